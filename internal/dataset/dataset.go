// Package dataset provides a small column oriented table used to carry
// play-by-play data through the preprocessing pipeline.
//
// A Dataset holds named columns of equal length. Columns are either numeric
// (float64) or string valued. Numeric columns use NaN for missing values.
package dataset

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var (
	// ErrMissingColumn is returned when a required column is not present in the dataset.
	ErrMissingColumn = errors.New("missing required column")

	// ErrColumnExists is returned when adding a column under a name that is already taken.
	ErrColumnExists = errors.New("column already exists")

	// ErrLengthMismatch is returned when adding a column whose length differs from the dataset.
	ErrLengthMismatch = errors.New("column length mismatch")
)

// Kind describes the value type of a column.
type Kind int

// Column kinds.
const (
	KindFloat Kind = iota
	KindString
)

type column struct {
	name    string
	kind    Kind
	floats  []float64
	strings []string
}

func (c column) len() int {
	if c.kind == KindString {
		return len(c.strings)
	}
	return len(c.floats)
}

// Dataset is an ordered collection of named, equally sized columns.
//
// The zero value is not usable, use New.
type Dataset struct {
	cols  []column
	index map[string]int
}

// New creates an empty dataset.
func New() *Dataset {
	return &Dataset{index: make(map[string]int)}
}

// NumRows returns the number of rows in the dataset.
func (d *Dataset) NumRows() int {
	if len(d.cols) == 0 {
		return 0
	}
	return d.cols[0].len()
}

// NumColumns returns the number of columns in the dataset.
func (d *Dataset) NumColumns() int {
	return len(d.cols)
}

// Columns returns the column names in order.
func (d *Dataset) Columns() []string {
	names := make([]string, len(d.cols))
	for i, c := range d.cols {
		names[i] = c.name
	}
	return names
}

// Has reports whether the dataset contains a column with the given name.
func (d *Dataset) Has(name string) bool {
	_, ok := d.index[name]
	return ok
}

// ColumnKind returns the kind of the named column.
func (d *Dataset) ColumnKind(name string) (Kind, error) {
	i, ok := d.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return d.cols[i].kind, nil
}

func (d *Dataset) checkAdd(name string, length int) error {
	if _, ok := d.index[name]; ok {
		return fmt.Errorf("%w: %s", ErrColumnExists, name)
	}
	if len(d.cols) > 0 && length != d.NumRows() {
		return fmt.Errorf("%w: column %s has %d values, dataset has %d rows",
			ErrLengthMismatch, name, length, d.NumRows())
	}
	return nil
}

// AddFloats appends a numeric column to the dataset. The slice is not copied.
func (d *Dataset) AddFloats(name string, values []float64) error {
	if err := d.checkAdd(name, len(values)); err != nil {
		return err
	}
	d.index[name] = len(d.cols)
	d.cols = append(d.cols, column{name: name, kind: KindFloat, floats: values})
	return nil
}

// AddStrings appends a string column to the dataset. The slice is not copied.
func (d *Dataset) AddStrings(name string, values []string) error {
	if err := d.checkAdd(name, len(values)); err != nil {
		return err
	}
	d.index[name] = len(d.cols)
	d.cols = append(d.cols, column{name: name, kind: KindString, strings: values})
	return nil
}

// Floats returns the values of a numeric column.
func (d *Dataset) Floats(name string) ([]float64, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	if d.cols[i].kind != KindFloat {
		return nil, fmt.Errorf("column %s is not numeric", name)
	}
	return d.cols[i].floats, nil
}

// Strings returns the values of a string column.
func (d *Dataset) Strings(name string) ([]string, error) {
	i, ok := d.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	if d.cols[i].kind != KindString {
		return nil, fmt.Errorf("column %s is not a string column", name)
	}
	return d.cols[i].strings, nil
}

// Select returns a dataset holding exactly the named columns, in the
// requested order. Column data is shared with the receiver, not copied.
func (d *Dataset) Select(names ...string) (*Dataset, error) {
	out := New()
	for _, name := range names {
		i, ok := d.index[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
		out.index[name] = len(out.cols)
		out.cols = append(out.cols, d.cols[i])
	}
	return out, nil
}

// Drop returns a dataset without the named columns. Unknown names are ignored.
func (d *Dataset) Drop(names ...string) *Dataset {
	dropped := make(map[string]bool, len(names))
	for _, n := range names {
		dropped[n] = true
	}

	out := New()
	for _, c := range d.cols {
		if dropped[c.name] {
			continue
		}
		out.index[c.name] = len(out.cols)
		out.cols = append(out.cols, c)
	}
	return out
}

// Clone returns a deep copy of the dataset.
func (d *Dataset) Clone() *Dataset {
	out := New()
	for _, c := range d.cols {
		nc := column{name: c.name, kind: c.kind}
		if c.kind == KindString {
			nc.strings = append([]string(nil), c.strings...)
		} else {
			nc.floats = append([]float64(nil), c.floats...)
		}
		out.index[c.name] = len(out.cols)
		out.cols = append(out.cols, nc)
	}
	return out
}

// TakeRows returns a deep copy of the dataset restricted to the given row
// indices, in order. Indices may repeat, which is used for bootstrap
// resampling.
func (d *Dataset) TakeRows(rows []int) (*Dataset, error) {
	n := d.NumRows()
	for _, r := range rows {
		if r < 0 || r >= n {
			return nil, fmt.Errorf("row index %d out of range [0, %d)", r, n)
		}
	}

	out := New()
	for _, c := range d.cols {
		nc := column{name: c.name, kind: c.kind}
		if c.kind == KindString {
			nc.strings = make([]string, len(rows))
			for i, r := range rows {
				nc.strings[i] = c.strings[r]
			}
		} else {
			nc.floats = make([]float64, len(rows))
			for i, r := range rows {
				nc.floats[i] = c.floats[r]
			}
		}
		out.index[c.name] = len(out.cols)
		out.cols = append(out.cols, nc)
	}
	return out, nil
}

// Matrix returns the dataset as a dense row-major matrix. All columns must be
// numeric.
func (d *Dataset) Matrix() (*mat.Dense, error) {
	for _, c := range d.cols {
		if c.kind != KindFloat {
			return nil, fmt.Errorf("column %s is not numeric", c.name)
		}
	}

	rows, cols := d.NumRows(), len(d.cols)
	if rows == 0 || cols == 0 {
		return nil, errors.New("cannot build a matrix from an empty dataset")
	}

	m := mat.NewDense(rows, cols, nil)
	for j, c := range d.cols {
		for i, v := range c.floats {
			m.Set(i, j, v)
		}
	}
	return m, nil
}
