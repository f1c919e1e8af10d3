package model

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"
)

// GridSearch selects the regularization strength of the calibrated classifier
// by cross-validated Brier score, then refits the best candidate on the full
// training set.
//
// The scorer follows the original model: 1 - Brier score, higher is better.
type GridSearch struct {
	// Cs are the candidate inverse regularization strengths.
	Cs []float64

	// Folds is the number of cross-validation folds (default 3).
	Folds int

	// Best is the refit winning classifier. Nil until Fit.
	Best *Calibrated

	// BestC and BestScore describe the winning candidate.
	BestC     float64
	BestScore float64
}

// NewGridSearch creates a grid search over the original model's penalty
// strengths.
func NewGridSearch() *GridSearch {
	return &GridSearch{
		Cs:    []float64{0.01, 0.1, 1, 10, 100},
		Folds: 3,
	}
}

// Fit evaluates every candidate and refits the best on all data.
func (gs *GridSearch) Fit(X mat.Matrix, y []float64) error {
	if err := checkTrainingData(X, y); err != nil {
		return err
	}
	if len(gs.Cs) == 0 {
		return fmt.Errorf("no candidate values to search over")
	}
	folds := gs.Folds
	if folds <= 1 {
		folds = 3
	}

	rows, _ := X.Dims()
	bestScore := -1.0
	bestC := gs.Cs[0]

	for _, c := range gs.Cs {
		var scoreSum float64
		scored := 0

		for k := range folds {
			lo, hi := k*rows/folds, (k+1)*rows/folds

			trainIdx := make([]int, 0, rows-(hi-lo))
			testIdx := make([]int, 0, hi-lo)
			for i := range rows {
				if i >= lo && i < hi {
					testIdx = append(testIdx, i)
				} else {
					trainIdx = append(trainIdx, i)
				}
			}

			cand := NewCalibrated()
			cand.NewBase = func() *LogisticRegression {
				lr := NewLogistic()
				lr.C = c
				return lr
			}
			if err := cand.Fit(takeRows(X, trainIdx), takeVals(y, trainIdx)); err != nil {
				slog.Debug("Grid search candidate failed on fold", "C", c, "fold", k, "error", err)
				continue
			}

			probs, err := cand.PredictProba(takeRows(X, testIdx))
			if err != nil {
				return err
			}
			brier, err := BrierScore(takeVals(y, testIdx), probs)
			if err != nil {
				return err
			}
			scoreSum += 1 - brier
			scored++
		}

		if scored == 0 {
			continue
		}
		if score := scoreSum / float64(scored); score > bestScore {
			bestScore = score
			bestC = c
		}
	}

	if bestScore < 0 {
		return fmt.Errorf("no grid search candidate could be fit")
	}

	best := NewCalibrated()
	best.NewBase = func() *LogisticRegression {
		lr := NewLogistic()
		lr.C = bestC
		return lr
	}
	if err := best.Fit(X, y); err != nil {
		return fmt.Errorf("failed to refit best candidate (C=%g): %w", bestC, err)
	}

	gs.Best = best
	gs.BestC = bestC
	gs.BestScore = bestScore
	return nil
}

// PredictProba delegates to the best refit classifier.
func (gs *GridSearch) PredictProba(X mat.Matrix) ([]float64, error) {
	if gs.Best == nil {
		return nil, ErrNotFitted
	}
	return gs.Best.PredictProba(X)
}
