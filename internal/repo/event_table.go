package repo

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

// LoadEventTable reads a headed CSV event table from path.
func LoadEventTable(path string) (*models.EventTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open event table: %w", err)
	}
	defer f.Close()

	table, err := ReadEventTable(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return table, nil
}

// ReadEventTable reads a headed CSV. Cells are kept as text.
func ReadEventTable(r io.Reader) (*models.EventTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("table has no header")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	table := &models.EventTable{Columns: append([]string(nil), header...)}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row %d: %w", len(table.Rows)+1, err)
		}
		table.Rows = append(table.Rows, record)
	}
	return table, nil
}

// WriteEventTable writes the table as CSV. Short rows are padded to the header width.
func WriteEventTable(w io.Writer, table *models.EventTable) error {
	if table == nil {
		return fmt.Errorf("event table is nil")
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(table.Columns); err != nil {
		return err
	}
	width := len(table.Columns)
	for _, row := range table.Rows {
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		if err := writer.Write(row); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// SaveEventTable writes the table to path atomically.
func SaveEventTable(path string, table *models.EventTable) error {
	var buf bytes.Buffer
	if err := WriteEventTable(&buf, table); err != nil {
		return fmt.Errorf("encode event table: %w", err)
	}
	if err := renameio.WriteFile(path, buf.Bytes(), 0o644, renameio.WithTempDir(filepath.Dir(path))); err != nil {
		return fmt.Errorf("write event table: %w", err)
	}
	return nil
}
