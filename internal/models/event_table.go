package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// EventTable is a tabular event stream (sound events, pokes, trials) kept as text
// so that columns the aligner does not touch round-trip unchanged.
type EventTable struct {
	Columns []string
	Rows    [][]string
}

// ColumnIndex returns the position of a named column or -1.
func (t *EventTable) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Float64Column parses a named column. Empty and NaN-like cells become NaN.
func (t *EventTable) Float64Column(name string) ([]float64, error) {
	idx := t.ColumnIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("column %q not found", name)
	}
	out := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		if idx >= len(row) {
			out[i] = math.NaN()
			continue
		}
		v, err := ParseTimestampCell(row[idx])
		if err != nil {
			return nil, fmt.Errorf("column %q row %d: %w", name, i, err)
		}
		out[i] = v
	}
	return out, nil
}

// SetFloat64Column writes values into a named column, appending it when absent.
func (t *EventTable) SetFloat64Column(name string, values []float64) error {
	if len(values) != len(t.Rows) {
		return fmt.Errorf("column %q: %d values for %d rows", name, len(values), len(t.Rows))
	}
	idx := t.ColumnIndex(name)
	if idx < 0 {
		t.Columns = append(t.Columns, name)
		idx = len(t.Columns) - 1
	}
	for i := range t.Rows {
		for len(t.Rows[i]) <= idx {
			t.Rows[i] = append(t.Rows[i], "")
		}
		t.Rows[i][idx] = FormatTimestampCell(values[i])
	}
	return nil
}

// ParseTimestampCell reads a seconds value; missing markers yield NaN.
func ParseTimestampCell(cell string) (float64, error) {
	s := strings.TrimSpace(cell)
	switch strings.ToLower(s) {
	case "", "nan", "na", "null", "none":
		return math.NaN(), nil
	}
	return strconv.ParseFloat(s, 64)
}

// FormatTimestampCell renders seconds with the shortest exact representation; NaN is empty.
func FormatTimestampCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
