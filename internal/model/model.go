// Package model implements the classifiers used to estimate win
// probabilities: an L2 penalized logistic regression, isotonic regression
// for probability calibration, a cross-validated calibrated classifier and a
// grid search wrapper.
package model

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFitted is returned when predicting with an estimator that has not been fit.
	ErrNotFitted = errors.New("estimator has not been fit")

	// ErrSingleClass is returned when the training labels contain a single class.
	ErrSingleClass = errors.New("training labels must contain both classes")

	// ErrNaNInput is returned when the training data contains NaN values.
	ErrNaNInput = errors.New("training data contains NaN values")
)

// Classifier is a binary probabilistic classifier.
//
// Labels are 0 or 1, and PredictProba returns the probability of class 1 for
// each row of X.
type Classifier interface {
	Fit(X mat.Matrix, y []float64) error
	PredictProba(X mat.Matrix) ([]float64, error)
}

// checkTrainingData validates the shape, values and labels of a training set.
// NaN features would silently drive the optimizer nowhere, so they are
// rejected up front.
func checkTrainingData(X mat.Matrix, y []float64) error {
	rows, cols := X.Dims()
	if rows != len(y) {
		return errors.New("number of rows in X must match the number of labels")
	}
	if rows == 0 {
		return errors.New("training data is empty")
	}

	for i := range rows {
		for j := range cols {
			if math.IsNaN(X.At(i, j)) {
				return fmt.Errorf("%w: feature column %d, row %d", ErrNaNInput, j, i)
			}
		}
	}

	var havePos, haveNeg bool
	for i, v := range y {
		if math.IsNaN(v) {
			return fmt.Errorf("%w: label row %d", ErrNaNInput, i)
		}
		if v >= 0.5 {
			havePos = true
		} else {
			haveNeg = true
		}
	}
	if !havePos || !haveNeg {
		return ErrSingleClass
	}
	return nil
}
