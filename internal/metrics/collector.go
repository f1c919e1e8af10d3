package metrics

import (
	"time"

	"github.com/maxpolokov/nflwin/internal/wp"
	"github.com/prometheus/client_golang/prometheus"
)

// ModelSource provides the currently served win probability model.
type ModelSource interface {
	Model() *wp.Model
	LoadedAt() time.Time
}

// RegisterModelInfo registers gauges describing the served model: when its
// artifact was loaded and when the model was trained. Both are Unix
// timestamps in seconds, 0 while no model is loaded.
func RegisterModelInfo(reg prometheus.Registerer, src ModelSource) {
	loadedAt := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "wp_model_loaded_timestamp_seconds",
		Help: "Unix time the served model artifact was loaded.",
	}, func() float64 {
		t := src.LoadedAt()
		if t.IsZero() {
			return 0
		}
		return float64(t.Unix())
	})

	trainedAt := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "wp_model_trained_timestamp_seconds",
		Help: "Unix time the served model was trained.",
	}, func() float64 {
		m := src.Model()
		if m == nil {
			return 0
		}
		return float64(m.CreatedAt().Unix())
	})

	reg.MustRegister(loadedAt, trainedAt)
}
