package cvs

import (
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xuri/excelize/v2"
)

// Format of a written table.
type Format string

const (
	FormatXLSX   Format = "xlsx"
	FormatCSV    Format = "csv"
	FormatJSON   Format = "json"
	FormatSQLite Format = "sqlite3"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatXLSX, FormatCSV, FormatJSON, FormatSQLite:
		return f, nil
	case "":
		return FormatXLSX, nil
	}
	return "", fmt.Errorf("unknown format %s", s)
}

// Ext is the file extension, including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

const xlsxSheet = "Sheet1"

// Write serializes the table to w.
func (t *Table) Write(format Format, w io.Writer) error {
	switch format {
	case FormatJSON:
		_, err := w.Write(JsonMarshal(t.jsonView()))
		return err
	case FormatCSV:
		csvw := csv.NewWriter(w)
		// Write column labels as first row in the CSV file.
		csvw.Write(t.Labels())
		for _, row := range t.Rows {
			record := make([]string, len(row))
			for i, c := range row {
				record[i] = c.String()
			}
			csvw.Write(record)
		}
		csvw.Flush()
		return csvw.Error()
	case FormatXLSX:
		f, err := t.toXLSX()
		if err != nil {
			return err
		}
		defer f.Close()
		return f.Write(w)
	case FormatSQLite:
		// we create the database first as temporary file on disk
		// and then copy its bytes to w
		tmp, err := os.CreateTemp("", "*.sqlite3")
		if err != nil {
			return err
		}
		tmpFname := tmp.Name()
		tmp.Close()
		defer os.Remove(tmpFname)
		if err := t.WriteSQLFile(tmpFname); err != nil {
			return fmt.Errorf("error writing as sqlite3: %w", err)
		}
		file, err := os.Open(tmpFname)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(w, file)
		return err
	}
	return fmt.Errorf("unknown format %s", format)
}

type tableJSON struct {
	Columns []string `json:"columns"`
	Rows    [][]Cell `json:"rows"`
}

func (t *Table) jsonView() tableJSON {
	rows := t.Rows
	if rows == nil {
		rows = [][]Cell{}
	}
	return tableJSON{Columns: t.Labels(), Rows: rows}
}

// MarshalJSON encodes the table as its columns and rows.
func (t *Table) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.jsonView())
}

func (t *Table) toXLSX() (*excelize.File, error) {
	f := excelize.NewFile()
	header := make([]interface{}, len(t.Columns))
	for i, label := range t.Labels() {
		header[i] = label
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		f.Close()
		return nil, err
	}
	for i, row := range t.Rows {
		axis, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		values := make([]interface{}, len(row))
		for j, c := range row {
			if c.Valid {
				values[j] = c.Value
			}
		}
		if err := f.SetSheetRow(xlsxSheet, axis, &values); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

// WriteSQLFile stores the table as table t of a new sqlite3 database.
// Null cells are stored as NULL.
func (t *Table) WriteSQLFile(fname string) error {
	if err := os.Remove(fname); err != nil && !os.IsNotExist(err) {
		return err
	}
	db, err := sql.Open("sqlite3", fname)
	if err != nil {
		return err
	}
	defer db.Close()
	cols := make([]string, len(t.Columns))
	for i, spec := range t.Columns {
		var typ string
		if spec.Type == "int" {
			typ = "INTEGER"
		} else if spec.Type == "float64" {
			typ = "REAL"
		} else {
			typ = "TEXT"
		}
		cols[i] = fmt.Sprintf("%q %s", spec.Label, typ)
	}
	if _, err := db.Exec("CREATE TABLE t (" + strings.Join(cols, ", ") + ")"); err != nil {
		return err
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	qs := make([]string, len(t.Columns))
	for i := range qs {
		qs[i] = "?"
	}
	stmt, err := tx.Prepare("INSERT INTO t VALUES (" + strings.Join(qs, ", ") + ")")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, row := range t.Rows {
		args := make([]interface{}, len(row))
		for i, c := range row {
			args[i] = c.SQL()
		}
		if _, err := stmt.Exec(args...); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// WriteTable writes t to fname, creating parent directories and replacing
// any existing file. Failures are returned as *WriteError.
func WriteTable(t *Table, format Format, fname string) error {
	if err := os.MkdirAll(filepath.Dir(fname), 0755); err != nil {
		return &WriteError{Path: fname, Err: err}
	}
	if format == FormatSQLite {
		if err := t.WriteSQLFile(fname); err != nil {
			return &WriteError{Path: fname, Err: err}
		}
		return nil
	}
	err := func() error {
		file, err := os.Create(fname)
		if err != nil {
			return err
		}
		if err := t.Write(format, file); err != nil {
			file.Close()
			return err
		}
		return file.Close()
	}()
	if err != nil {
		return &WriteError{Path: fname, Err: err}
	}
	return nil
}
