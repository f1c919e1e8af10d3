// Package validation measures how well predicted win probabilities match
// observed outcomes.
//
// Predicted probabilities are smoothed with a Gaussian kernel density
// estimate, separately for plays the offense won and for all plays. The ratio
// of the two densities, sampled from 1% to 99%, is the observed win rate at
// each predicted probability. Every sampled point is tested against the
// binomial distribution and the per-point p-values are combined with Fisher's
// method. The endpoints are excluded because smoothing can place mass at
// exactly 0 or 1 and zero out the combined p-value.
package validation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	kdeBandwidth = 0.01
	numSamples   = 99
)

// Result holds the calibration curve and the combined p-value of a
// validation run.
type Result struct {
	// SampleProbabilities are the predicted probabilities the curve is
	// sampled at (0.01 through 0.99).
	SampleProbabilities []float64 `json:"sample_probabilities" yaml:"sample_probabilities"`

	// PredictedWinPercents is the observed win rate at each sample point.
	PredictedWinPercents []float64 `json:"predicted_win_percents" yaml:"predicted_win_percents"`

	// NumPlaysUsed is the smoothed number of plays contributing to each
	// sample point.
	NumPlaysUsed []float64 `json:"num_plays_used" yaml:"num_plays_used"`

	// PValue is the Fisher-combined p-value. Values close to zero mean the
	// model is unlikely to be predicting correct win probabilities.
	PValue float64 `json:"p_value" yaml:"p_value"`
}

// Validate computes the calibration curve and combined p-value for a set of
// held-out outcomes and their predicted probabilities.
func Validate(actual, predicted []float64) (Result, error) {
	samples, winPercents, numPlays, err := calibrationCurve(actual, predicted)
	if err != nil {
		return Result{}, err
	}

	pvals := make([]float64, len(samples))
	for i := range samples {
		wins := math.Round(winPercents[i] * numPlays[i])
		trials := math.Round(numPlays[i])
		pvals[i] = BinomialTest(int(wins), int(trials), samples[i])
	}

	return Result{
		SampleProbabilities:  samples,
		PredictedWinPercents: winPercents,
		NumPlaysUsed:         numPlays,
		PValue:               FisherCombined(pvals),
	}, nil
}

// calibrationCurve smooths the predicted probabilities with a Gaussian KDE
// and returns the observed win rate and play count at each percent from 1 to
// 99.
func calibrationCurve(actual, predicted []float64) (samples, winPercents, numPlays []float64, err error) {
	if len(actual) != len(predicted) {
		return nil, nil, nil, errors.New("outcomes and probabilities must have the same length")
	}
	if len(actual) == 0 {
		return nil, nil, nil, errors.New("cannot validate on empty data")
	}

	var won []float64
	for i, a := range actual {
		if a >= 0.5 {
			won = append(won, predicted[i])
		}
	}
	if len(won) == 0 {
		return nil, nil, nil, errors.New("no winning plays in validation data")
	}

	samples = make([]float64, numSamples)
	for i := range samples {
		samples[i] = float64(i+1) / 100
	}

	densityWon := kde(won, samples)
	densityAll := kde(predicted, samples)

	// Scale each density so it sums to its population size, giving smoothed
	// play counts per sample point.
	nWon := float64(len(won))
	nAll := float64(len(predicted))
	var sumWon, sumAll float64
	for i := range samples {
		sumWon += densityWon[i]
		sumAll += densityAll[i]
	}

	winPercents = make([]float64, numSamples)
	numPlays = make([]float64, numSamples)
	for i := range samples {
		countWon := densityWon[i] * nWon / sumWon
		countAll := densityAll[i] * nAll / sumAll
		numPlays[i] = countAll
		winPercents[i] = countWon / countAll
	}
	return samples, winPercents, numPlays, nil
}

// kde evaluates a Gaussian kernel density estimate of data at the given
// points.
func kde(data, points []float64) []float64 {
	norm := distuv.Normal{Mu: 0, Sigma: 1}
	out := make([]float64, len(points))
	scale := 1 / (float64(len(data)) * kdeBandwidth)
	for i, p := range points {
		var sum float64
		for _, d := range data {
			sum += norm.Prob((p - d) / kdeBandwidth)
		}
		out[i] = sum * scale
	}
	return out
}

// BinomialTest returns the two-sided p-value of observing k successes in n
// trials when the success probability is p: the total probability of all
// outcomes no more likely than the observed one.
func BinomialTest(k, n int, p float64) float64 {
	if n <= 0 {
		return 1
	}
	if k < 0 {
		k = 0
	}
	if k > n {
		k = n
	}

	bin := distuv.Binomial{N: float64(n), P: p}
	observed := bin.Prob(float64(k))

	// Tolerance mirrors the reference implementation, which compares
	// probabilities with a small relative slack.
	const relErr = 1 + 1e-7
	var pval float64
	for i := 0; i <= n; i++ {
		if prob := bin.Prob(float64(i)); prob <= observed*relErr {
			pval += prob
		}
	}
	return math.Min(pval, 1)
}

// FisherCombined combines independent p-values with Fisher's method.
func FisherCombined(pvals []float64) float64 {
	if len(pvals) == 0 {
		return 1
	}

	var stat float64
	for _, p := range pvals {
		if p <= 0 {
			return 0
		}
		stat += -2 * math.Log(p)
	}

	chi2 := distuv.ChiSquared{K: float64(2 * len(pvals))}
	return chi2.Survival(stat)
}
