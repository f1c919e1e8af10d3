package pipeline

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/maxpolokov/nflwin/internal/dataset"
	"github.com/maxpolokov/nflwin/internal/model"
)

// OneHot expands categorical numeric columns into indicator columns, one per
// category value observed during Fit. Output columns are named
// "<column>_<value>" and replace the original column in place (at its
// position in the column order).
type OneHot struct {
	// ColumnNames lists the categorical columns to encode.
	ColumnNames []string

	// IgnoreUnseen makes Transform encode unseen category values as all
	// zeros instead of failing.
	IgnoreUnseen bool

	// Categories holds the values learned for each column at Fit, sorted
	// ascending. Nil until Fit.
	Categories map[string][]float64
}

// Name implements Stage.
func (s *OneHot) Name() string { return "encode_categorical_columns" }

// Fit learns the category values present in each configured column.
func (s *OneHot) Fit(ds *dataset.Dataset) error {
	cats := make(map[string][]float64, len(s.ColumnNames))
	for _, name := range s.ColumnNames {
		vals, err := ds.Floats(name)
		if err != nil {
			return err
		}

		seen := make(map[float64]bool)
		var unique []float64
		for _, v := range vals {
			if !seen[v] {
				seen[v] = true
				unique = append(unique, v)
			}
		}
		sort.Float64s(unique)
		cats[name] = unique
	}

	s.Categories = cats
	return nil
}

// Transform replaces each categorical column with its indicator columns.
func (s *OneHot) Transform(ds *dataset.Dataset) (*dataset.Dataset, error) {
	if s.Categories == nil {
		return nil, model.ErrNotFitted
	}

	out := dataset.New()
	for _, name := range ds.Columns() {
		cats, ok := s.Categories[name]
		if !ok {
			sub, err := ds.Select(name)
			if err != nil {
				return nil, err
			}
			kind, err := sub.ColumnKind(name)
			if err != nil {
				return nil, err
			}
			if kind == dataset.KindString {
				vals, _ := sub.Strings(name)
				if err := out.AddStrings(name, vals); err != nil {
					return nil, err
				}
				continue
			}
			vals, _ := sub.Floats(name)
			if err := out.AddFloats(name, vals); err != nil {
				return nil, err
			}
			continue
		}

		vals, err := ds.Floats(name)
		if err != nil {
			return nil, err
		}

		indicators := make(map[float64][]float64, len(cats))
		for _, c := range cats {
			indicators[c] = make([]float64, len(vals))
		}
		for i, v := range vals {
			col, ok := indicators[v]
			if !ok {
				if s.IgnoreUnseen {
					continue
				}
				return nil, fmt.Errorf("column %s has value %g not seen during fit", name, v)
			}
			col[i] = 1
		}

		for _, c := range cats {
			colName := name + "_" + strconv.FormatFloat(c, 'g', -1, 64)
			if err := out.AddFloats(colName, indicators[c]); err != nil {
				return nil, err
			}
		}
	}

	return out, nil
}
