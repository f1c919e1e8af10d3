package wp

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/maxpolokov/nflwin/internal/fileutils"
	"github.com/maxpolokov/nflwin/internal/model"
	"github.com/maxpolokov/nflwin/internal/pipeline"
	"github.com/maxpolokov/nflwin/internal/plays"
	"github.com/maxpolokov/nflwin/internal/validation"
	"github.com/ubuntu/decorate"
)

// formatVersion is the artifact format written by Save and accepted by Load.
const formatVersion = 1

// ErrBadArtifact is returned when a model artifact cannot be used.
var ErrBadArtifact = errors.New("invalid model artifact")

type artifact struct {
	FormatVersion int       `json:"format_version"`
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`

	Columns plays.Columns `json:"columns"`

	TrainingSeasons       []int    `json:"training_seasons,omitempty"`
	TrainingSeasonTypes   []string `json:"training_season_types,omitempty"`
	ValidationSeasons     []int    `json:"validation_seasons,omitempty"`
	ValidationSeasonTypes []string `json:"validation_season_types,omitempty"`

	Validation *validation.Result `json:"validation,omitempty"`

	Pipeline  pipelineState   `json:"pipeline"`
	Bootstrap []pipelineState `json:"bootstrap,omitempty"`

	// BestC records the grid search winner when one was used for training.
	BestC float64 `json:"best_c,omitempty"`
}

type pipelineState struct {
	SelectColumns    []string             `json:"select_columns"`
	OneHotCategories map[string][]float64 `json:"onehot_categories"`
	Estimator        *model.Calibrated    `json:"estimator"`
}

// Save writes the fitted model to path as a versioned JSON artifact,
// atomically, creating the directory when needed.
func (m *Model) Save(path string) (err error) {
	defer decorate.OnError(&err, "could not save model")

	if !m.Fitted() {
		return model.ErrNotFitted
	}

	a := artifact{
		FormatVersion:         formatVersion,
		ID:                    m.id.String(),
		CreatedAt:             m.createdAt,
		Columns:               m.columns,
		TrainingSeasons:       m.trainingSeasons,
		TrainingSeasonTypes:   m.trainingSeasonTypes,
		ValidationSeasons:     m.validationSeasons,
		ValidationSeasonTypes: m.validationSeasonTypes,
		Validation:            m.validationResult,
	}

	a.Pipeline, a.BestC, err = snapshotPipeline(m.pipe)
	if err != nil {
		return err
	}
	for _, pipe := range m.bootstrap {
		st, _, err := snapshotPipeline(pipe)
		if err != nil {
			return err
		}
		a.Bootstrap = append(a.Bootstrap, st)
	}

	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return err
	}
	return fileutils.AtomicWrite(path, data)
}

// Load reads a model artifact written by Save and rebuilds a ready to
// predict model.
func Load(path string) (m *Model, err error) {
	defer decorate.OnError(&err, "could not load model")

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadArtifact, err)
	}
	if a.FormatVersion != formatVersion {
		return nil, fmt.Errorf("%w: unsupported format version %d", ErrBadArtifact, a.FormatVersion)
	}

	id, err := uuid.Parse(a.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: bad model id: %v", ErrBadArtifact, err)
	}
	if a.CreatedAt.IsZero() {
		return nil, fmt.Errorf("%w: missing creation time", ErrBadArtifact)
	}

	m = New(WithColumns(a.Columns))
	if err := restorePipeline(m.pipe, a.Pipeline); err != nil {
		return nil, err
	}
	for i, st := range a.Bootstrap {
		pipe := m.newPipeline()
		if err := restorePipeline(pipe, st); err != nil {
			return nil, fmt.Errorf("bootstrap resample %d: %w", i, err)
		}
		m.bootstrap = append(m.bootstrap, pipe)
	}
	m.bootstrapN = len(m.bootstrap)

	m.id = id
	m.createdAt = a.CreatedAt
	m.trainingSeasons = a.TrainingSeasons
	m.trainingSeasonTypes = a.TrainingSeasonTypes
	m.validationSeasons = a.ValidationSeasons
	m.validationSeasonTypes = a.ValidationSeasonTypes
	m.validationResult = a.Validation
	return m, nil
}

// snapshotPipeline extracts the fitted state of a default pipeline.
func snapshotPipeline(pipe *pipeline.Pipeline) (pipelineState, float64, error) {
	st := pipelineState{}
	for _, stage := range pipe.Stages() {
		switch s := stage.(type) {
		case *pipeline.SelectColumns:
			st.SelectColumns = s.Columns
		case *pipeline.OneHot:
			st.OneHotCategories = s.Categories
		}
	}

	var bestC float64
	switch est := pipe.Estimator().(type) {
	case *model.Calibrated:
		st.Estimator = est
	case *model.GridSearch:
		if est.Best == nil {
			return pipelineState{}, 0, model.ErrNotFitted
		}
		st.Estimator = est.Best
		bestC = est.BestC
	default:
		return pipelineState{}, 0, fmt.Errorf("cannot persist classifier of type %T", est)
	}

	if len(st.SelectColumns) == 0 || st.OneHotCategories == nil || len(st.Estimator.Folds) == 0 {
		return pipelineState{}, 0, model.ErrNotFitted
	}
	return st, bestC, nil
}

// restorePipeline injects fitted state into a freshly built default pipeline.
func restorePipeline(pipe *pipeline.Pipeline, st pipelineState) error {
	if len(st.SelectColumns) == 0 || st.OneHotCategories == nil ||
		st.Estimator == nil || len(st.Estimator.Folds) == 0 {
		return fmt.Errorf("%w: artifact does not contain a fitted pipeline", ErrBadArtifact)
	}

	for _, stage := range pipe.Stages() {
		switch s := stage.(type) {
		case *pipeline.SelectColumns:
			s.Columns = st.SelectColumns
		case *pipeline.OneHot:
			s.Categories = st.OneHotCategories
		}
	}

	cal, ok := pipe.Estimator().(*model.Calibrated)
	if !ok {
		return fmt.Errorf("cannot restore classifier of type %T", pipe.Estimator())
	}
	cal.NFolds = st.Estimator.NFolds
	cal.Folds = st.Estimator.Folds

	pipe.MarkFitted()
	return nil
}
