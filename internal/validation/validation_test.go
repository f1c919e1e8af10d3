package validation_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/maxpolokov/nflwin/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinomialTest(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		k, n int
		p    float64

		want      float64
		wantDelta float64
	}{
		"All heads biased coin": {k: 10, n: 10, p: 0.9, want: 0.612579511, wantDelta: 1e-6},
		"Fair coin exact half":  {k: 5, n: 10, p: 0.5, want: 1, wantDelta: 1e-9},
		"All heads fair coin":   {k: 10, n: 10, p: 0.5, want: 2.0 / 1024, wantDelta: 1e-9},
		"Zero trials":           {k: 0, n: 0, p: 0.5, want: 1, wantDelta: 1e-12},
		"Observed matches rate": {k: 50, n: 100, p: 0.5, want: 1, wantDelta: 0.05},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := validation.BinomialTest(tc.k, tc.n, tc.p)
			assert.InDelta(t, tc.want, got, tc.wantDelta, "Unexpected p-value")
		})
	}
}

func TestBinomialTestClampsObservations(t *testing.T) {
	t.Parallel()

	assert.Equal(t, validation.BinomialTest(0, 10, 0.5), validation.BinomialTest(-3, 10, 0.5),
		"Negative counts should clamp to zero")
	assert.Equal(t, validation.BinomialTest(10, 10, 0.5), validation.BinomialTest(15, 10, 0.5),
		"Counts above n should clamp to n")
}

func TestFisherCombined(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		pvals []float64

		want      float64
		wantDelta float64
	}{
		"No p-values":       {pvals: nil, want: 1, wantDelta: 1e-12},
		"All ones":          {pvals: []float64{1, 1, 1}, want: 1, wantDelta: 1e-9},
		"Contains zero":     {pvals: []float64{0.5, 0}, want: 0, wantDelta: 1e-12},
		"Single half":       {pvals: []float64{0.5}, want: 0.5, wantDelta: 1e-9},
		"Small values drop": {pvals: []float64{1e-10, 1e-10}, want: 0, wantDelta: 1e-6},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got := validation.FisherCombined(tc.pvals)
			assert.InDelta(t, tc.want, got, tc.wantDelta, "Unexpected combined p-value")
		})
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	// Synthetic well calibrated predictions: outcomes drawn with exactly the
	// predicted probability.
	rng := rand.New(rand.NewSource(42))
	n := 5000
	actual := make([]float64, n)
	predicted := make([]float64, n)
	for i := range n {
		p := rng.Float64()
		predicted[i] = p
		if rng.Float64() < p {
			actual[i] = 1
		}
	}

	result, err := validation.Validate(actual, predicted)
	require.NoError(t, err, "Validate should not fail")

	require.Len(t, result.SampleProbabilities, 99, "The curve is sampled from 1% to 99%")
	assert.InDelta(t, 0.01, result.SampleProbabilities[0], 1e-12)
	assert.InDelta(t, 0.99, result.SampleProbabilities[98], 1e-12)

	require.Len(t, result.PredictedWinPercents, 99)
	require.Len(t, result.NumPlaysUsed, 99)
	for i, wp := range result.PredictedWinPercents {
		assert.False(t, math.IsNaN(wp), "Win percent at sample %d should not be NaN", i)
		assert.Greater(t, result.NumPlaysUsed[i], 0.0, "Every sample point should have smoothed plays")
	}

	// Well calibrated predictions should track the diagonal in the middle of
	// the curve where smoothing artifacts are small.
	assert.InDelta(t, 0.5, result.PredictedWinPercents[49], 0.1,
		"Calibrated predictions should be close to the diagonal at 50%")
	assert.Greater(t, result.PValue, 0.0, "A calibrated model should not be rejected outright")
}

func TestValidateDetectsMiscalibration(t *testing.T) {
	t.Parallel()

	// Predictions stuck at 0.8 while the offense wins only 20% of the time.
	n := 2000
	actual := make([]float64, n)
	predicted := make([]float64, n)
	for i := range n {
		predicted[i] = 0.8
		if i%5 == 0 {
			actual[i] = 1
		}
	}

	result, err := validation.Validate(actual, predicted)
	require.NoError(t, err, "Validate should not fail")
	assert.Less(t, result.PValue, 0.01, "A badly miscalibrated model should be rejected")
}

func TestValidateErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		actual    []float64
		predicted []float64
	}{
		"Length mismatch": {actual: []float64{1}, predicted: []float64{0.5, 0.5}},
		"Empty data":      {actual: nil, predicted: nil},
		"No wins":         {actual: []float64{0, 0}, predicted: []float64{0.5, 0.5}},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			_, err := validation.Validate(tc.actual, tc.predicted)
			require.Error(t, err, "Validate should have failed")
		})
	}
}
