package model

import "errors"

// BrierScore returns the mean squared difference between predicted
// probabilities and the 0/1 outcomes. Lower is better.
func BrierScore(y, probs []float64) (float64, error) {
	if len(y) != len(probs) {
		return 0, errors.New("labels and probabilities must have the same length")
	}
	if len(y) == 0 {
		return 0, errors.New("cannot score empty predictions")
	}

	var sum float64
	for i := range y {
		d := probs[i] - y[i]
		sum += d * d
	}
	return sum / float64(len(y)), nil
}
