package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// ReadCSV parses CSV data into a dataset. The first record is the header.
//
// A column is numeric if every non-empty cell parses as a float. Empty cells
// in numeric columns become NaN, in string columns they stay empty strings.
func ReadCSV(r io.Reader) (*Dataset, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not parse CSV data: %w", err)
	}
	if len(records) == 0 {
		return nil, errors.New("CSV data has no header row")
	}

	header := records[0]
	rows := records[1:]

	ds := New()
	for j, name := range header {
		cells := make([]string, len(rows))
		for i, rec := range rows {
			cells[i] = rec[j]
		}

		if floats, ok := parseFloats(cells); ok {
			if err := ds.AddFloats(name, floats); err != nil {
				return nil, err
			}
			continue
		}
		if err := ds.AddStrings(name, cells); err != nil {
			return nil, err
		}
	}
	return ds, nil
}

// parseFloats converts cells to floats, reporting whether the whole column is
// numeric. Columns with no non-empty cell are not considered numeric.
func parseFloats(cells []string) ([]float64, bool) {
	floats := make([]float64, len(cells))
	seen := false
	for i, cell := range cells {
		if cell == "" {
			floats[i] = math.NaN()
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, false
		}
		floats[i] = v
		seen = true
	}
	return floats, seen
}

// WriteCSV writes the dataset as CSV, with a header row. NaN values are
// written as empty cells.
func (d *Dataset) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(d.Columns()); err != nil {
		return fmt.Errorf("could not write CSV header: %w", err)
	}

	record := make([]string, len(d.cols))
	for i := range d.NumRows() {
		for j, c := range d.cols {
			if c.kind == KindString {
				record[j] = c.strings[i]
				continue
			}
			v := c.floats[i]
			if math.IsNaN(v) {
				record[j] = ""
				continue
			}
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("could not write CSV record: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
