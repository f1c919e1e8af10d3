package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// CalibratedFold holds the base classifier and calibration map trained for a
// single cross-validation fold.
type CalibratedFold struct {
	Base *LogisticRegression `json:"base"`
	Iso  Isotonic            `json:"iso"`
}

// Calibrated wraps a logistic regression with isotonic probability
// calibration estimated by cross-validation.
//
// Training data is split into NFolds contiguous folds. For each fold a fresh
// base classifier is trained on the complement, and an isotonic map from its
// probabilities to the observed labels is fit on the fold itself. Predictions
// average the calibrated probabilities of every fold's pair.
type Calibrated struct {
	// NewBase builds a fresh base classifier for each fold.
	NewBase func() *LogisticRegression `json:"-"`

	// NFolds is the number of cross-validation folds (default 2).
	NFolds int

	// Folds holds the fitted per-fold classifiers. Nil until Fit.
	Folds []CalibratedFold `json:"folds,omitempty"`
}

// NewCalibrated creates a calibrated classifier over the default logistic
// regression with two folds, matching the default win probability pipeline.
func NewCalibrated() *Calibrated {
	return &Calibrated{NewBase: NewLogistic, NFolds: 2}
}

// Fit trains the per-fold base classifiers and their calibration maps.
func (c *Calibrated) Fit(X mat.Matrix, y []float64) error {
	if err := checkTrainingData(X, y); err != nil {
		return err
	}

	nFolds := c.NFolds
	if nFolds <= 1 {
		nFolds = 2
	}
	rows, _ := X.Dims()
	if rows < 2*nFolds {
		return fmt.Errorf("need at least %d rows to calibrate with %d folds", 2*nFolds, nFolds)
	}
	newBase := c.NewBase
	if newBase == nil {
		newBase = NewLogistic
	}

	c.Folds = nil
	for k := range nFolds {
		lo, hi := k*rows/nFolds, (k+1)*rows/nFolds

		trainIdx := make([]int, 0, rows-(hi-lo))
		for i := range rows {
			if i < lo || i >= hi {
				trainIdx = append(trainIdx, i)
			}
		}
		calibIdx := make([]int, 0, hi-lo)
		for i := lo; i < hi; i++ {
			calibIdx = append(calibIdx, i)
		}

		base := newBase()
		if err := base.Fit(takeRows(X, trainIdx), takeVals(y, trainIdx)); err != nil {
			return fmt.Errorf("failed to fit base classifier for fold %d: %w", k, err)
		}

		probs, err := base.PredictProba(takeRows(X, calibIdx))
		if err != nil {
			return fmt.Errorf("failed to predict calibration probabilities for fold %d: %w", k, err)
		}

		var iso Isotonic
		if err := iso.Fit(probs, takeVals(y, calibIdx)); err != nil {
			return fmt.Errorf("failed to fit calibration map for fold %d: %w", k, err)
		}

		c.Folds = append(c.Folds, CalibratedFold{Base: base, Iso: iso})
	}
	return nil
}

// PredictProba returns the calibrated probability of class 1 for each row,
// averaged over the cross-validation folds.
func (c *Calibrated) PredictProba(X mat.Matrix) ([]float64, error) {
	if len(c.Folds) == 0 {
		return nil, ErrNotFitted
	}

	rows, _ := X.Dims()
	probs := make([]float64, rows)
	for _, fold := range c.Folds {
		raw, err := fold.Base.PredictProba(X)
		if err != nil {
			return nil, err
		}
		for i, p := range raw {
			cal, err := fold.Iso.Predict(p)
			if err != nil {
				return nil, err
			}
			probs[i] += cal
		}
	}
	for i := range probs {
		probs[i] /= float64(len(c.Folds))
	}
	return probs, nil
}

func takeRows(X mat.Matrix, idx []int) mat.Matrix {
	_, cols := X.Dims()
	out := mat.NewDense(len(idx), cols, nil)
	for i, r := range idx {
		for j := range cols {
			out.Set(i, j, X.At(r, j))
		}
	}
	return out
}

func takeVals(v []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, r := range idx {
		out[i] = v[r]
	}
	return out
}
