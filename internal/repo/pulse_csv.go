package repo

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/extractors"
	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

const (
	defaultTimestampColumn = "timestamp"
	defaultStateColumn     = "state"
)

// PulseCSVOptions selects the columns and rows of a pulse table.
type PulseCSVOptions struct {
	TimestampColumn string
	StateColumn     string
	// Filter keeps only rows whose cells equal the given values. Numeric cells
	// compare by value, so "4" matches "4.0".
	Filter map[string]string
}

func (o PulseCSVOptions) withDefaults() PulseCSVOptions {
	if o.TimestampColumn == "" {
		o.TimestampColumn = defaultTimestampColumn
	}
	if o.StateColumn == "" {
		o.StateColumn = defaultStateColumn
	}
	return o
}

// LoadPulseCSV reads a timestamp/state table from path.
func LoadPulseCSV(path string, opts PulseCSVOptions) (models.PulseStateLog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pulse table: %w", err)
	}
	defer f.Close()

	log, err := ReadPulseCSV(f, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return log, nil
}

// ReadPulseCSV parses a CSV table with a timestamp and a state column into a
// pulse log sorted by timestamp.
func ReadPulseCSV(r io.Reader, opts PulseCSVOptions) (models.PulseStateLog, error) {
	opts = opts.withDefaults()
	tbl, err := readFilteredRows(r, opts.Filter, opts.TimestampColumn, opts.StateColumn)
	if err != nil {
		return nil, err
	}
	tsIdx := tbl.index[opts.TimestampColumn]
	stateIdx := tbl.index[opts.StateColumn]

	log := make(models.PulseStateLog, 0, len(tbl.rows))
	for _, row := range tbl.rows {
		ts, err := parseTimestamp(row.cells, tsIdx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row.line, err)
		}
		state, err := ParseState(cell(row.cells, stateIdx))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row.line, err)
		}
		log = append(log, models.PulseSample{Timestamp: ts, State: state})
	}
	return log.Sorted(), nil
}

// LoadSetClearCSV reads separately logged set and clear event tables and merges
// them into one pulse log.
func LoadSetClearCSV(setPath, clearPath string, opts PulseCSVOptions) (models.PulseStateLog, error) {
	setFile, err := os.Open(setPath)
	if err != nil {
		return nil, fmt.Errorf("open set table: %w", err)
	}
	defer setFile.Close()

	clearFile, err := os.Open(clearPath)
	if err != nil {
		return nil, fmt.Errorf("open clear table: %w", err)
	}
	defer clearFile.Close()

	return ReadSetClearCSV(setFile, clearFile, opts)
}

// ReadSetClearCSV tags set-event times high and clear-event times low and
// merges them by timestamp. The state column is ignored.
func ReadSetClearCSV(set, clear io.Reader, opts PulseCSVOptions) (models.PulseStateLog, error) {
	opts = opts.withDefaults()
	setTimes, err := readTimestamps(set, opts)
	if err != nil {
		return nil, fmt.Errorf("set table: %w", err)
	}
	clearTimes, err := readTimestamps(clear, opts)
	if err != nil {
		return nil, fmt.Errorf("clear table: %w", err)
	}
	return extractors.MergeTransitions(setTimes, clearTimes), nil
}

func readTimestamps(r io.Reader, opts PulseCSVOptions) ([]float64, error) {
	tbl, err := readFilteredRows(r, opts.Filter, opts.TimestampColumn)
	if err != nil {
		return nil, err
	}
	idx := tbl.index[opts.TimestampColumn]
	out := make([]float64, 0, len(tbl.rows))
	for _, row := range tbl.rows {
		ts, err := parseTimestamp(row.cells, idx)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", row.line, err)
		}
		out = append(out, ts)
	}
	return out, nil
}

// ParseState reads a digital level. Accepted forms are 0/1, true/false,
// high/low and any number (positive is high).
func ParseState(value string) (uint8, error) {
	s := strings.ToLower(strings.TrimSpace(value))
	switch s {
	case "1", "true", "high":
		return 1, nil
	case "0", "false", "low":
		return 0, nil
	case "":
		return 0, fmt.Errorf("empty state")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) {
		return 0, fmt.Errorf("invalid state %q", value)
	}
	if v > 0 {
		return 1, nil
	}
	return 0, nil
}

type csvRow struct {
	line  int
	cells []string
}

type csvTable struct {
	index map[string]int
	rows  []csvRow
}

// readFilteredRows reads a headed CSV, checks that every required column exists
// and keeps the rows that match filter.
func readFilteredRows(r io.Reader, filter map[string]string, required ...string) (*csvTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("table has no header")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	tbl := &csvTable{index: make(map[string]int, len(header))}
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, dup := tbl.index[name]; !dup {
			tbl.index[name] = i
		}
	}
	for _, name := range required {
		if _, ok := tbl.index[name]; !ok {
			return nil, fmt.Errorf("column %q not found", name)
		}
	}
	for name := range filter {
		if _, ok := tbl.index[name]; !ok {
			return nil, fmt.Errorf("filter column %q not found", name)
		}
	}

	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !matchesFilter(record, tbl.index, filter) {
			continue
		}
		tbl.rows = append(tbl.rows, csvRow{line: line, cells: record})
	}
	return tbl, nil
}

func matchesFilter(record []string, index map[string]int, filter map[string]string) bool {
	for name, want := range filter {
		got := strings.TrimSpace(cell(record, index[name]))
		want = strings.TrimSpace(want)
		if got == want {
			continue
		}
		gv, gerr := strconv.ParseFloat(got, 64)
		wv, werr := strconv.ParseFloat(want, 64)
		if gerr != nil || werr != nil || gv != wv {
			return false
		}
	}
	return true
}

func parseTimestamp(record []string, idx int) (float64, error) {
	raw := strings.TrimSpace(cell(record, idx))
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", raw)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite timestamp %q", raw)
	}
	return v, nil
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}
