// Package pipeline composes fit/transform preprocessing stages and a final
// classifier into the win probability estimation pipeline.
//
// Stages consume and produce datasets without mutating their input, so the
// same raw play data can safely be run through several pipelines (for
// instance during bootstrap resampling).
package pipeline

import (
	"fmt"

	"github.com/maxpolokov/nflwin/internal/dataset"
	"github.com/maxpolokov/nflwin/internal/model"
)

// Stage is a single preprocessing step.
//
// Fit learns any state the stage needs from the training data. Transform
// applies the stage, returning a new dataset; stateful stages return
// model.ErrNotFitted when transformed before being fit.
type Stage interface {
	Name() string
	Fit(ds *dataset.Dataset) error
	Transform(ds *dataset.Dataset) (*dataset.Dataset, error)
}

// Pipeline runs an ordered list of stages and hands the resulting feature
// matrix to a classifier.
type Pipeline struct {
	stages    []Stage
	estimator model.Classifier

	fitted bool
}

// New creates a pipeline from the given stages and final classifier.
func New(stages []Stage, estimator model.Classifier) *Pipeline {
	return &Pipeline{stages: stages, estimator: estimator}
}

// Stages returns the pipeline's stages in order.
func (p *Pipeline) Stages() []Stage {
	return p.stages
}

// Estimator returns the pipeline's final classifier.
func (p *Pipeline) Estimator() model.Classifier {
	return p.estimator
}

// Fit runs every stage's Fit and Transform in order on the training data,
// then fits the classifier on the transformed feature matrix.
func (p *Pipeline) Fit(ds *dataset.Dataset, y []float64) error {
	if ds.NumRows() != len(y) {
		return fmt.Errorf("dataset has %d rows but %d labels were given", ds.NumRows(), len(y))
	}

	cur := ds
	for _, s := range p.stages {
		if err := s.Fit(cur); err != nil {
			return fmt.Errorf("failed to fit stage %s: %w", s.Name(), err)
		}
		next, err := s.Transform(cur)
		if err != nil {
			return fmt.Errorf("failed to apply stage %s: %w", s.Name(), err)
		}
		cur = next
	}

	X, err := cur.Matrix()
	if err != nil {
		return fmt.Errorf("preprocessed data is not fully numeric: %w", err)
	}
	if err := p.estimator.Fit(X, y); err != nil {
		return fmt.Errorf("failed to fit classifier: %w", err)
	}

	p.fitted = true
	return nil
}

// Transform applies all fitted stages to the data without predicting.
func (p *Pipeline) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	cur := ds
	for _, s := range p.stages {
		next, err := s.Transform(cur)
		if err != nil {
			return nil, fmt.Errorf("failed to apply stage %s: %w", s.Name(), err)
		}
		cur = next
	}
	return cur, nil
}

// PredictProba transforms the data and returns the classifier's class-1
// probabilities.
func (p *Pipeline) PredictProba(ds *dataset.Dataset) ([]float64, error) {
	if !p.fitted {
		return nil, model.ErrNotFitted
	}

	transformed, err := p.Transform(ds)
	if err != nil {
		return nil, err
	}
	X, err := transformed.Matrix()
	if err != nil {
		return nil, fmt.Errorf("preprocessed data is not fully numeric: %w", err)
	}
	return p.estimator.PredictProba(X)
}

// MarkFitted flags a pipeline restored from a model artifact as ready for
// prediction.
func (p *Pipeline) MarkFitted() {
	p.fitted = true
}
