package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// LogisticRegression is a binary logistic regression classifier with an L2
// penalty, fit by minimizing the penalized negative log-likelihood with
// L-BFGS.
//
// The zero value uses sensible defaults (C=1, 100 iterations); NewLogistic
// fills them in explicitly.
type LogisticRegression struct {
	// C is the inverse regularization strength. Smaller values mean a
	// stronger penalty. The intercept is never penalized.
	C float64

	// MaxIter caps the number of optimizer iterations.
	MaxIter int

	// Tol is the gradient convergence threshold.
	Tol float64

	// Weights holds the fitted parameters, intercept first. Nil until Fit.
	Weights []float64 `json:"weights,omitempty"`
}

// NewLogistic creates a logistic regression classifier with default
// hyperparameters.
func NewLogistic() *LogisticRegression {
	return &LogisticRegression{C: 1.0, MaxIter: 100, Tol: 1e-6}
}

// Fit estimates the model weights from the given feature matrix and 0/1
// labels.
func (lr *LogisticRegression) Fit(X mat.Matrix, y []float64) error {
	if err := checkTrainingData(X, y); err != nil {
		return err
	}

	rows, cols := X.Dims()
	c := lr.C
	if c <= 0 {
		c = 1.0
	}
	maxIter := lr.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}
	tol := lr.Tol
	if tol <= 0 {
		tol = 1e-6
	}

	// w[0] is the intercept, w[1:] the feature weights.
	nll := func(w []float64) float64 {
		var loss float64
		for i := range rows {
			z := w[0]
			for j := range cols {
				z += w[j+1] * X.At(i, j)
			}
			// log(1+exp(z)) - y*z, computed stably.
			loss += math.Max(z, 0) + math.Log1p(math.Exp(-math.Abs(z))) - y[i]*z
		}
		for j := 1; j < len(w); j++ {
			loss += 0.5 / c * w[j] * w[j]
		}
		return loss
	}

	grad := func(g, w []float64) {
		for j := range g {
			g[j] = 0
		}
		for i := range rows {
			z := w[0]
			for j := range cols {
				z += w[j+1] * X.At(i, j)
			}
			r := sigmoid(z) - y[i]
			g[0] += r
			for j := range cols {
				g[j+1] += r * X.At(i, j)
			}
		}
		for j := 1; j < len(w); j++ {
			g[j] += w[j] / c
		}
	}

	problem := optimize.Problem{Func: nll, Grad: grad}
	settings := &optimize.Settings{
		MajorIterations:   maxIter,
		GradientThreshold: tol,
	}

	initial := make([]float64, cols+1)
	result, err := optimize.Minimize(problem, initial, settings, &optimize.LBFGS{})
	if err != nil {
		// The linesearch can stall near the optimum on hard data. The
		// weights are still usable then, but only when they are finite.
		if result == nil || !allFinite(result.X) {
			return fmt.Errorf("logistic regression optimization failed: %w", err)
		}
	}

	lr.Weights = result.X
	return nil
}

func allFinite(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// PredictProba returns the probability of class 1 for each row of X.
func (lr *LogisticRegression) PredictProba(X mat.Matrix) ([]float64, error) {
	if lr.Weights == nil {
		return nil, ErrNotFitted
	}

	rows, cols := X.Dims()
	if cols != len(lr.Weights)-1 {
		return nil, fmt.Errorf("feature matrix has %d columns, model was fit with %d", cols, len(lr.Weights)-1)
	}

	probs := make([]float64, rows)
	for i := range rows {
		z := lr.Weights[0]
		for j := range cols {
			z += lr.Weights[j+1] * X.At(i, j)
		}
		probs[i] = sigmoid(z)
	}
	return probs, nil
}

func sigmoid(z float64) float64 {
	if z >= 0 {
		return 1 / (1 + math.Exp(-z))
	}
	e := math.Exp(z)
	return e / (1 + e)
}
