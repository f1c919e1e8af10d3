// Package handlers provides HTTP handlers for the win probability service.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/maxpolokov/nflwin/internal/plays"
	"github.com/maxpolokov/nflwin/internal/webservice/metrics"
)

// Predict is a handler scoring play states with the served model.
type Predict struct {
	models         ModelProvider
	maxRequestSize int64

	playsScored *metrics.PlayCounter
}

// NewPredict creates a new Predict handler.
func NewPredict(models ModelProvider, maxRequestSize int64, playsScored *metrics.PlayCounter) *Predict {
	return &Predict{
		models:         models,
		maxRequestSize: maxRequestSize,
		playsScored:    playsScored,
	}
}

// ServeHTTP handles incoming HTTP requests for win probability predictions.
func (h *Predict) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	metrics.ApplyLabels(r)
	reqID := uuid.New().String()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	model := h.models.Model()
	if model == nil {
		http.Error(w, "No model loaded", http.StatusServiceUnavailable)
		slog.Error("Prediction requested but no model is loaded", "req_id", reqID)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxRequestSize)
	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		slog.Error("Invalid JSON in prediction request", "req_id", reqID, "err", err)
		return
	}
	if len(req.Plays) == 0 {
		http.Error(w, "Request contains no plays", http.StatusBadRequest)
		return
	}
	if req.IncludeError && !model.HasBootstrap() {
		http.Error(w, "Served model has no bootstrap resamples", http.StatusUnprocessableEntity)
		return
	}

	slog.Info("Request recv'd", "req_id", reqID, "plays", len(req.Plays))

	ds, err := plays.ToDataset(req.Plays, model.Columns())
	if err != nil {
		http.Error(w, "Invalid plays", http.StatusBadRequest)
		slog.Error("Could not build dataset from request", "req_id", reqID, "err", err)
		return
	}

	resp := PredictResponse{
		ModelID:        model.ID().String(),
		ModelCreatedAt: model.CreatedAt().Format(time.RFC3339),
	}
	if req.IncludeError {
		resp.Probabilities, resp.StandardErrors, err = model.PredictWithError(ds)
	} else {
		resp.Probabilities, err = model.Predict(ds)
	}
	if err != nil {
		http.Error(w, "Prediction failed", http.StatusInternalServerError)
		slog.Error("Prediction failed", "req_id", reqID, "err", err)
		return
	}

	h.playsScored.Add(len(req.Plays))

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Could not write prediction response", "req_id", reqID, "err", err)
	}
}
