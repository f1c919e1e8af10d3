// Package wp ties the preprocessing pipeline and calibrated classifier into
// the win probability model: training, validation, prediction and bootstrap
// uncertainty estimation.
package wp

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/maxpolokov/nflwin/internal/dataset"
	"github.com/maxpolokov/nflwin/internal/model"
	"github.com/maxpolokov/nflwin/internal/pipeline"
	"github.com/maxpolokov/nflwin/internal/plays"
	"github.com/maxpolokov/nflwin/internal/validation"
	"github.com/ubuntu/decorate"
)

// Feature column names produced by the default pipeline.
const (
	offenseHomeColumn = "is_offense_home"
	scoreDiffColumn   = "score_differential"
	elapsedColumn     = "total_elapsed_time"
)

// Model estimates the probability that the offense wins the game.
type Model struct {
	columns plays.Columns
	pipe    *pipeline.Pipeline

	bootstrapN int
	bootstrap  []*pipeline.Pipeline

	gridSearch bool
	rng        *rand.Rand

	id        uuid.UUID
	createdAt time.Time

	trainingSeasons       []int
	trainingSeasonTypes   []string
	validationSeasons     []int
	validationSeasonTypes []string
	validationResult      *validation.Result
}

type options struct {
	columns    plays.Columns
	bootstrapN int
	gridSearch bool
	seed       int64
	hasSeed    bool
}

// Option is a function which tweaks the creation of the Model.
type Option func(*options)

// WithColumns overrides the column names the model reads from its input data.
func WithColumns(cols plays.Columns) Option {
	return func(o *options) { o.columns = cols }
}

// WithBootstrap additionally fits n models, n at least two, on bootstrap
// resamples of the
// training data, so predictions can report a sampling uncertainty.
func WithBootstrap(n int) Option {
	return func(o *options) { o.bootstrapN = n }
}

// WithGridSearch selects the regularization strength by cross-validated
// Brier score instead of using the default.
func WithGridSearch() Option {
	return func(o *options) { o.gridSearch = true }
}

// WithSeed fixes the random source used for bootstrap resampling.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.hasSeed = true
	}
}

// New creates an untrained win probability model with the default pipeline.
func New(args ...Option) *Model {
	opts := options{columns: plays.DefaultColumns()}
	for _, opt := range args {
		opt(&opts)
	}

	seed := opts.seed
	if !opts.hasSeed {
		seed = time.Now().UnixNano()
	}

	m := &Model{
		columns:    opts.columns,
		bootstrapN: opts.bootstrapN,
		gridSearch: opts.gridSearch,
		// #nosec:G404 We don't need cryptographic randomness.
		rng: rand.New(rand.NewSource(seed)),
	}
	m.pipe = m.newPipeline()
	return m
}

// newPipeline builds the default win probability estimation pipeline:
// offense-is-home flag, offense-relative score differential, integer downs,
// total elapsed time, column selection and one-hot encoded downs, feeding an
// isotonic-calibrated logistic regression.
func (m *Model) newPipeline() *pipeline.Pipeline {
	cols := m.columns
	stages := []pipeline.Stage{
		pipeline.OffenseHome{
			OffenseTeamColumn: cols.OffenseTeam,
			HomeTeamColumn:    cols.HomeTeam,
			OutColumn:         offenseHomeColumn,
		},
		pipeline.ScoreDifferential{
			HomeScoreColumn:   cols.HomeScore,
			AwayScoreColumn:   cols.AwayScore,
			OffenseHomeColumn: offenseHomeColumn,
			OutColumn:         scoreDiffColumn,
		},
		pipeline.DownToInt{DownColumn: cols.Down},
		pipeline.ElapsedTime{
			QuarterColumn: cols.Quarter,
			TimeColumn:    cols.SecondsElapsed,
			OutColumn:     elapsedColumn,
		},
		&pipeline.SelectColumns{Columns: []string{
			offenseHomeColumn,
			scoreDiffColumn,
			elapsedColumn,
			cols.Yardline,
			cols.YardsToGo,
			cols.Down,
		}},
		&pipeline.OneHot{ColumnNames: []string{cols.Down}},
	}

	var estimator model.Classifier = model.NewCalibrated()
	if m.gridSearch {
		estimator = model.NewGridSearch()
	}
	return pipeline.New(stages, estimator)
}

// Columns returns the column names the model reads.
func (m *Model) Columns() plays.Columns {
	return m.columns
}

// ID returns the model identifier, set when the model is trained.
func (m *Model) ID() uuid.UUID { return m.id }

// CreatedAt returns the time the model was trained.
func (m *Model) CreatedAt() time.Time { return m.createdAt }

// TrainingSeasons returns the seasons the model was trained on, if recorded.
func (m *Model) TrainingSeasons() []int { return m.trainingSeasons }

// TrainingSeasonTypes returns the season phases the model was trained on.
func (m *Model) TrainingSeasonTypes() []string { return m.trainingSeasonTypes }

// ValidationSeasons returns the seasons the model was validated on.
func (m *Model) ValidationSeasons() []int { return m.validationSeasons }

// ValidationSeasonTypes returns the season phases used for validation.
func (m *Model) ValidationSeasonTypes() []string { return m.validationSeasonTypes }

// ValidationResult returns the stored validation curve and p-value, or nil
// if the model has not been validated.
func (m *Model) ValidationResult() *validation.Result { return m.validationResult }

// Fitted reports whether the model has been trained.
func (m *Model) Fitted() bool {
	return !m.createdAt.IsZero()
}

// HasBootstrap reports whether the model carries bootstrap resample fits.
func (m *Model) HasBootstrap() bool {
	return len(m.bootstrap) > 0
}

// split separates the labeled training data into features and 0/1 labels.
func (m *Model) split(ds *dataset.Dataset) (*dataset.Dataset, []float64, error) {
	y, err := ds.Floats(m.columns.OffenseWon)
	if err != nil {
		return nil, nil, fmt.Errorf("training data is missing the outcome column: %w", err)
	}
	return ds.Drop(m.columns.OffenseWon), y, nil
}

// Train fits the model on labeled play data. The seasons arguments are
// metadata only and may be empty for data from sources without season
// information.
func (m *Model) Train(ds *dataset.Dataset, seasons []int, seasonTypes []string) (err error) {
	defer decorate.OnError(&err, "could not train win probability model")

	// A single resample has no spread to estimate standard errors from.
	if m.bootstrapN == 1 {
		return errors.New("bootstrapping requires at least two resamples")
	}

	features, y, err := m.split(ds)
	if err != nil {
		return err
	}

	if err := m.pipe.Fit(features, y); err != nil {
		return err
	}

	m.bootstrap = nil
	for b := range m.bootstrapN {
		rows := make([]int, ds.NumRows())
		for i := range rows {
			rows[i] = m.rng.Intn(ds.NumRows())
		}
		sample, err := ds.TakeRows(rows)
		if err != nil {
			return err
		}
		sampleFeatures, sampleY, err := m.split(sample)
		if err != nil {
			return err
		}

		pipe := m.newPipeline()
		if err := pipe.Fit(sampleFeatures, sampleY); err != nil {
			return fmt.Errorf("failed to fit bootstrap resample %d: %w", b, err)
		}
		m.bootstrap = append(m.bootstrap, pipe)
		slog.Debug("Fitted bootstrap resample", "resample", b+1, "total", m.bootstrapN)
	}

	m.id = uuid.New()
	m.createdAt = time.Now()
	m.trainingSeasons = seasons
	m.trainingSeasonTypes = seasonTypes
	m.validationSeasons = nil
	m.validationSeasonTypes = nil
	m.validationResult = nil
	return nil
}

// Validate predicts on held-out labeled data and tests the predictions
// against the observed outcomes, returning the combined p-value. The curve
// and p-value are also stored on the model.
func (m *Model) Validate(ds *dataset.Dataset, seasons []int, seasonTypes []string) (pvalue float64, err error) {
	defer decorate.OnError(&err, "could not validate win probability model")

	if !m.Fitted() {
		return 0, model.ErrNotFitted
	}

	features, y, err := m.split(ds)
	if err != nil {
		return 0, err
	}
	probs, err := m.pipe.PredictProba(features)
	if err != nil {
		return 0, err
	}

	result, err := validation.Validate(y, probs)
	if err != nil {
		return 0, err
	}

	m.validationSeasons = seasons
	m.validationSeasonTypes = seasonTypes
	m.validationResult = &result
	return result.PValue, nil
}

// Predict returns the probability that the offense wins the game for each
// play. The outcome column is ignored when present.
func (m *Model) Predict(ds *dataset.Dataset) ([]float64, error) {
	if !m.Fitted() {
		return nil, model.ErrNotFitted
	}
	return m.pipe.PredictProba(ds.Drop(m.columns.OffenseWon))
}

// PredictWithError returns win probabilities together with their sampling
// standard error estimated from the bootstrap resamples. It fails when the
// model was trained without bootstrapping.
func (m *Model) PredictWithError(ds *dataset.Dataset) (probs, stderr []float64, err error) {
	if !m.Fitted() {
		return nil, nil, model.ErrNotFitted
	}
	if len(m.bootstrap) == 0 {
		return nil, nil, errors.New("model was trained without bootstrap resamples")
	}
	if len(m.bootstrap) < 2 {
		return nil, nil, errors.New("need at least two bootstrap resamples to estimate errors")
	}

	features := ds.Drop(m.columns.OffenseWon)
	probs, err = m.pipe.PredictProba(features)
	if err != nil {
		return nil, nil, err
	}

	resampled := make([][]float64, len(m.bootstrap))
	for b, pipe := range m.bootstrap {
		resampled[b], err = pipe.PredictProba(features)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap resample %d failed to predict: %w", b, err)
		}
	}

	// Sample standard deviation across resamples, per play.
	stderr = make([]float64, len(probs))
	for i := range probs {
		var mean float64
		for b := range resampled {
			mean += resampled[b][i]
		}
		mean /= float64(len(resampled))

		var ss float64
		for b := range resampled {
			d := resampled[b][i] - mean
			ss += d * d
		}
		stderr[i] = math.Sqrt(ss / float64(len(resampled)-1))
	}
	return probs, stderr, nil
}
