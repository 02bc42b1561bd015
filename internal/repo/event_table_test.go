package repo

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SainsburyWellcomeCentre/FNT-timestamp-alignment/internal/models"
)

func TestEventTableReadWrite(t *testing.T) {
	input := "Time,Sound,Note\n1.5,tone,\"a, b\"\n,noise,x\n"
	table, err := ReadEventTable(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"Time", "Sound", "Note"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "a, b", table.Rows[0][2])

	var buf bytes.Buffer
	require.NoError(t, WriteEventTable(&buf, table))
	assert.Equal(t, input, buf.String())
}

func TestWriteEventTablePadsShortRows(t *testing.T) {
	table := &models.EventTable{Columns: []string{"a", "b"}, Rows: [][]string{{"1"}}}
	var buf bytes.Buffer
	require.NoError(t, WriteEventTable(&buf, table))
	assert.Equal(t, "a,b\n1,\n", buf.String())

	assert.Error(t, WriteEventTable(&buf, nil))
}

func TestSaveAndLoadEventTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trials_ephys.csv")
	table := &models.EventTable{
		Columns: []string{"TrialStart", "TrialEnd"},
		Rows:    [][]string{{"1", "2"}, {"3", ""}},
	}
	require.NoError(t, SaveEventTable(path, table))

	loaded, err := LoadEventTable(path)
	require.NoError(t, err)
	assert.Equal(t, table, loaded)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReadEventTableRejectsEmpty(t *testing.T) {
	_, err := ReadEventTable(strings.NewReader(""))
	assert.Error(t, err)
}
