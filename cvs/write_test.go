package cvs

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() *Table {
	t := NewTable("videoId", "score", "note")
	t.Append([]Cell{Str("v1"), Str("1"), Null})
	t.Append([]Cell{Str("v2"), Null, Str("")})
	return t
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable().Write(FormatCSV, &buf))
	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	want := [][]string{
		{"videoId", "score", "note"},
		{"v1", "1", ""},
		{"v2", "", ""},
	}
	if diff := cmp.Diff(want, records); diff != "" {
		t.Errorf("csv mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, sampleTable().Write(FormatJSON, &buf))
	var got struct {
		Columns []string
		Rows    [][]*string
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"videoId", "score", "note"}, got.Columns)
	require.Len(t, got.Rows, 2)
	assert.Nil(t, got.Rows[0][2])
	assert.Nil(t, got.Rows[1][1])
	require.NotNil(t, got.Rows[1][2])
	assert.Equal(t, "", *got.Rows[1][2])
}

func TestWriteXLSX(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "out", "table.xlsx")
	require.NoError(t, WriteTable(sampleTable(), FormatXLSX, fname))

	f, err := excelize.OpenFile(fname)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"videoId", "score", "note"}, rows[0])
	assert.Equal(t, "v1", rows[1][0])
	assert.Equal(t, "1", rows[1][1])
}

func TestWriteSQLite(t *testing.T) {
	fname := filepath.Join(t.TempDir(), "table.sqlite3")
	// existing files are replaced
	require.NoError(t, os.WriteFile(fname, []byte("junk"), 0644))
	require.NoError(t, WriteTable(sampleTable(), FormatSQLite, fname))

	db, err := sql.Open("sqlite3", fname)
	require.NoError(t, err)
	defer db.Close()
	var count, nulls int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t").Scan(&count))
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM t WHERE score IS NULL").Scan(&nulls))
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, nulls)
}

func TestWriteTableError(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0644))

	err := WriteTable(sampleTable(), FormatCSV, filepath.Join(blocker, "sub", "t.csv"))
	var writeErr *WriteError
	require.True(t, errors.As(err, &writeErr), "got %v", err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat(".CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)
	assert.Equal(t, ".csv", f.Ext())
	f, err = ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatXLSX, f)
	_, err = ParseFormat("parquet")
	assert.Error(t, err)
}

func TestTableOps(t *testing.T) {
	table := sampleTable()
	dropped := table.Drop("score")
	assert.Equal(t, []string{"videoId", "note"}, dropped.Labels())
	assert.Equal(t, []string{"videoId", "score", "note"}, table.Labels())

	filtered := table.Filter(func(row []Cell) bool { return !row[1].IsNull() })
	assert.Equal(t, 1, filtered.Len())

	grouped := table.WithColumn(ColumnSpec{Label: "g", Type: "string"}, func(row []Cell) Cell {
		if row[0].Value == "v2" {
			return Null
		}
		return Str("x")
	}).GroupBy("g")
	require.Len(t, grouped, 1)
	assert.Equal(t, "x", grouped[0].Key)
	assert.Equal(t, 1, grouped[0].Table.Len())
}
