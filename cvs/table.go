package cvs

import (
	"fmt"
)

type ColumnSpec struct {
	Label string
	// data type, one of "string", "int"
	Type string
}

// Table is the materialized form of a row set: ordered columns and rows of
// nullable cells. Operations return new tables and leave the receiver as is.
type Table struct {
	Columns []ColumnSpec
	Rows    [][]Cell
}

func NewTable(labels ...string) *Table {
	t := &Table{}
	for _, label := range labels {
		t.Columns = append(t.Columns, ColumnSpec{Label: label, Type: "string"})
	}
	return t
}

func (t *Table) Labels() []string {
	labels := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		labels[i] = col.Label
	}
	return labels
}

// ColumnIndex returns the index of the column, or -1.
func (t *Table) ColumnIndex(label string) int {
	for i, col := range t.Columns {
		if col.Label == label {
			return i
		}
	}
	return -1
}

func (t *Table) Append(row []Cell) {
	if len(row) != len(t.Columns) {
		panic(fmt.Errorf("row has %d cells but table has %d columns", len(row), len(t.Columns)))
	}
	t.Rows = append(t.Rows, row)
}

func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the values of one column.
func (t *Table) Column(label string) []Cell {
	idx := t.ColumnIndex(label)
	if idx < 0 {
		return nil
	}
	cells := make([]Cell, len(t.Rows))
	for i, row := range t.Rows {
		cells[i] = row[idx]
	}
	return cells
}

// WithColumn returns a copy of t with a new column appended, computed per row.
func (t *Table) WithColumn(spec ColumnSpec, f func(row []Cell) Cell) *Table {
	out := &Table{Columns: append(append([]ColumnSpec(nil), t.Columns...), spec)}
	for _, row := range t.Rows {
		newRow := make([]Cell, 0, len(row)+1)
		newRow = append(newRow, row...)
		out.Rows = append(out.Rows, append(newRow, f(row)))
	}
	return out
}

// DropFunc returns a copy of t without the columns matching drop.
func (t *Table) DropFunc(drop func(label string) bool) *Table {
	var keep []int
	out := &Table{}
	for i, col := range t.Columns {
		if drop(col.Label) {
			continue
		}
		keep = append(keep, i)
		out.Columns = append(out.Columns, col)
	}
	for _, row := range t.Rows {
		newRow := make([]Cell, len(keep))
		for j, i := range keep {
			newRow[j] = row[i]
		}
		out.Rows = append(out.Rows, newRow)
	}
	return out
}

func (t *Table) Drop(labels ...string) *Table {
	set := make(map[string]bool)
	for _, label := range labels {
		set[label] = true
	}
	return t.DropFunc(func(label string) bool {
		return set[label]
	})
}

// Filter returns a copy of t with the rows for which keep is true.
func (t *Table) Filter(keep func(row []Cell) bool) *Table {
	out := &Table{Columns: append([]ColumnSpec(nil), t.Columns...)}
	for _, row := range t.Rows {
		if keep(row) {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// Group of rows sharing the same non-null key.
type Group struct {
	Key   string
	Table *Table
}

// GroupBy splits t by the value of a column, in order of first appearance.
// Rows where the column is null are skipped.
func (t *Table) GroupBy(label string) []Group {
	idx := t.ColumnIndex(label)
	if idx < 0 {
		return nil
	}
	var groups []Group
	byKey := make(map[string]int)
	for _, row := range t.Rows {
		key := row[idx]
		if key.IsNull() {
			continue
		}
		gi, ok := byKey[key.Value]
		if !ok {
			gi = len(groups)
			byKey[key.Value] = gi
			groups = append(groups, Group{
				Key:   key.Value,
				Table: &Table{Columns: append([]ColumnSpec(nil), t.Columns...)},
			})
		}
		groups[gi].Table.Rows = append(groups[gi].Table.Rows, row)
	}
	return groups
}

func raterColumns(suffix string) []string {
	var labels []string
	for i := 1; i <= NumRaters; i++ {
		labels = append(labels, fmt.Sprintf("rater%d%s", i, suffix))
	}
	return labels
}

func scoreColumns(suffix string) []string {
	var labels []string
	for cat := 1; cat <= NumCategories; cat++ {
		for i := 1; i <= NumRaters; i++ {
			labels = append(labels, fmt.Sprintf("c%d_rater%d%s", cat, i, suffix))
		}
	}
	return labels
}

func difficultyColumns() []string {
	var labels []string
	for i := 1; i <= NumRaters; i++ {
		labels = append(labels, fmt.Sprintf("difficulty_rater%d", i))
	}
	return labels
}

func frameColumns(suffix string) []string {
	labels := []string{"nodeId"}
	labels = append(labels, raterColumns(suffix)...)
	return append(labels, scoreColumns(suffix)...)
}

func videoColumns(suffix string) []string {
	labels := []string{"video_nodeId", "difficulty_nodeId"}
	labels = append(labels, raterColumns(suffix)...)
	labels = append(labels, scoreColumns(suffix)...)
	return append(labels, difficultyColumns()...)
}

const (
	ColumnVideoID   = "videoId"
	ColumnVideoName = "video_name"
	ColumnReason    = "reason"
)

func FrameTable(rows []FrameRow) *Table {
	t := NewTable(append([]string{ColumnVideoID}, frameColumns("")...)...)
	for _, row := range rows {
		t.Append(row.cells())
	}
	return t
}

func VideoTable(rows []VideoRow) *Table {
	t := NewTable(append([]string{ColumnVideoID}, videoColumns("")...)...)
	for _, row := range rows {
		t.Append(row.cells())
	}
	return t
}

// Columns present on both sides of the join get a _frame or _video suffix.
func combinedColumns() []string {
	labels := []string{ColumnVideoID}
	labels = append(labels, frameColumns("_frame")...)
	return append(labels, videoColumns("_video")...)
}

func CombinedTable(rows []CombinedRow) *Table {
	t := NewTable(combinedColumns()...)
	for _, row := range rows {
		t.Append(row.cells())
	}
	return t
}

func WrongTable(rows []WrongRow) *Table {
	t := NewTable(append(combinedColumns(), ColumnReason)...)
	for _, row := range rows {
		t.Append(append(row.cells(), Str(string(row.Reason))))
	}
	return t
}
