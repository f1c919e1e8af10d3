package model_test

import (
	"testing"

	"github.com/maxpolokov/nflwin/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestCalibratedFitAndPredict(t *testing.T) {
	t.Parallel()

	X, y := binaryTrainingSet(60)

	c := model.NewCalibrated()
	require.NoError(t, c.Fit(X, y), "Fit should not fail")
	require.Len(t, c.Folds, 2, "The default classifier uses two folds")
	for i, fold := range c.Folds {
		assert.NotNil(t, fold.Base.Weights, "Fold %d base classifier should be fit", i)
		assert.NotEmpty(t, fold.Iso.X, "Fold %d calibration map should be fit", i)
	}

	probe := mat.NewDense(2, 1, []float64{-1, 1})
	probs, err := c.PredictProba(probe)
	require.NoError(t, err, "PredictProba should not fail")

	assert.LessOrEqual(t, probs[0], probs[1], "Calibrated probabilities should respect the feature ordering")
	for _, p := range probs {
		assert.GreaterOrEqual(t, p, 0.0, "Probabilities should stay in [0, 1]")
		assert.LessOrEqual(t, p, 1.0, "Probabilities should stay in [0, 1]")
	}
}

func TestCalibratedFitErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		rows int

		singleClass bool
		wantErr     error
	}{
		"Too few rows for the folds": {rows: 3},
		"Single class": {
			rows:        20,
			singleClass: true,
			wantErr:     model.ErrSingleClass,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			X, y := binaryTrainingSet(tc.rows)
			if tc.singleClass {
				for i := range y {
					y[i] = 1
				}
			}

			c := model.NewCalibrated()
			err := c.Fit(X, y)
			require.Error(t, err, "Fit should have failed")
			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr, "Fit should fail with the expected error")
			}
		})
	}
}

func TestCalibratedPredictUnfitted(t *testing.T) {
	t.Parallel()

	c := model.NewCalibrated()
	_, err := c.PredictProba(mat.NewDense(1, 1, []float64{1}))
	require.ErrorIs(t, err, model.ErrNotFitted, "PredictProba should fail before Fit")
}

func TestBrierScore(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		y     []float64
		probs []float64

		want    float64
		wantErr bool
	}{
		"Perfect predictions":   {y: []float64{0, 1}, probs: []float64{0, 1}, want: 0},
		"Worst predictions":     {y: []float64{0, 1}, probs: []float64{1, 0}, want: 1},
		"Uniform predictions":   {y: []float64{0, 1}, probs: []float64{0.5, 0.5}, want: 0.25},
		"Error on length":       {y: []float64{0}, probs: []float64{0, 1}, wantErr: true},
		"Error on empty inputs": {y: nil, probs: nil, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := model.BrierScore(tc.y, tc.probs)
			if tc.wantErr {
				require.Error(t, err, "BrierScore should have failed")
				return
			}
			require.NoError(t, err, "BrierScore should not fail")
			assert.InDelta(t, tc.want, got, 1e-12, "Unexpected Brier score")
		})
	}
}

func TestGridSearch(t *testing.T) {
	t.Parallel()

	X, y := binaryTrainingSet(60)

	gs := model.NewGridSearch()
	require.NoError(t, gs.Fit(X, y), "Fit should not fail")
	require.NotNil(t, gs.Best, "Fit should select and refit a best candidate")
	assert.Contains(t, gs.Cs, gs.BestC, "The winning C should come from the candidate grid")
	assert.Greater(t, gs.BestScore, 0.5, "The winning score should beat coin flipping")

	probs, err := gs.PredictProba(mat.NewDense(2, 1, []float64{-1, 1}))
	require.NoError(t, err, "PredictProba should not fail")
	assert.LessOrEqual(t, probs[0], probs[1], "Probabilities should respect the feature ordering")
}

func TestGridSearchUnfitted(t *testing.T) {
	t.Parallel()

	gs := model.NewGridSearch()
	_, err := gs.PredictProba(mat.NewDense(1, 1, []float64{1}))
	require.ErrorIs(t, err, model.ErrNotFitted, "PredictProba should fail before Fit")
}
