package handlers

import (
	"github.com/maxpolokov/nflwin/internal/plays"
	"github.com/maxpolokov/nflwin/internal/wp"
)

// ModelProvider is an interface that defines the model access methods used by the handlers.
type ModelProvider interface {
	Model() *wp.Model // Model returns the currently served model, or nil when none is loaded.
}

// PredictRequest is the body of a prediction request.
type PredictRequest struct {
	Plays []plays.Play `json:"plays"`

	// IncludeError requests bootstrap standard errors alongside the
	// probabilities. Fails when the served model carries no resamples.
	IncludeError bool `json:"include_error,omitempty"`
}

// PredictResponse is the body of a successful prediction response.
type PredictResponse struct {
	ModelID        string    `json:"model_id"`
	ModelCreatedAt string    `json:"model_created_at"`
	Probabilities  []float64 `json:"probabilities"`
	StandardErrors []float64 `json:"standard_errors,omitempty"`
}
