package model

import (
	"errors"
	"sort"
)

// Isotonic is a non-decreasing step-free regression fit with the weighted
// pool adjacent violators algorithm. It maps raw classifier probabilities to
// calibrated ones by linear interpolation between fitted knots.
type Isotonic struct {
	// X and Y are the fitted knots, X strictly increasing. Nil until Fit.
	X []float64 `json:"x,omitempty"`
	Y []float64 `json:"y,omitempty"`
}

// Fit computes the isotonic fit of y on x with unit weights.
func (iso *Isotonic) Fit(x, y []float64) error {
	if len(x) != len(y) {
		return errors.New("x and y must have the same length")
	}
	if len(x) == 0 {
		return errors.New("cannot fit isotonic regression on empty data")
	}

	// Order by x, averaging y over duplicate x values so knots are strictly
	// increasing in x.
	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return x[idx[a]] < x[idx[b]] })

	var xs, ys, ws []float64
	for _, i := range idx {
		if n := len(xs); n > 0 && xs[n-1] == x[i] {
			ys[n-1] = (ys[n-1]*ws[n-1] + y[i]) / (ws[n-1] + 1)
			ws[n-1]++
			continue
		}
		xs = append(xs, x[i])
		ys = append(ys, y[i])
		ws = append(ws, 1)
	}

	// Pool adjacent violators: merge blocks while any block mean exceeds the
	// mean of its successor.
	type block struct {
		lo, hi int // index range into xs
		sum, w float64
	}
	blocks := make([]block, 0, len(xs))
	for i := range xs {
		blocks = append(blocks, block{lo: i, hi: i, sum: ys[i] * ws[i], w: ws[i]})
		for len(blocks) > 1 {
			a, b := blocks[len(blocks)-2], blocks[len(blocks)-1]
			if a.sum/a.w <= b.sum/b.w {
				break
			}
			blocks = blocks[:len(blocks)-1]
			blocks[len(blocks)-1] = block{lo: a.lo, hi: b.hi, sum: a.sum + b.sum, w: a.w + b.w}
		}
	}

	fitted := make([]float64, len(xs))
	for _, b := range blocks {
		mean := b.sum / b.w
		for i := b.lo; i <= b.hi; i++ {
			fitted[i] = mean
		}
	}

	iso.X = xs
	iso.Y = fitted
	return nil
}

// Predict returns the calibrated value for v, linearly interpolating between
// knots and clipping outside the fitted range.
func (iso Isotonic) Predict(v float64) (float64, error) {
	if len(iso.X) == 0 {
		return 0, ErrNotFitted
	}

	n := len(iso.X)
	switch {
	case v <= iso.X[0]:
		return iso.Y[0], nil
	case v >= iso.X[n-1]:
		return iso.Y[n-1], nil
	}

	i := sort.SearchFloat64s(iso.X, v)
	if iso.X[i] == v {
		return iso.Y[i], nil
	}
	x0, x1 := iso.X[i-1], iso.X[i]
	y0, y1 := iso.Y[i-1], iso.Y[i]
	return y0 + (y1-y0)*(v-x0)/(x1-x0), nil
}
