package viewmodel

import (
	"slices"
	"unicode/utf8"

	"github.com/Veraticus/showroom/internal/format"
	"github.com/Veraticus/showroom/internal/model"
)

// TableRow is one rendered ledger row.
type TableRow struct {
	Cells       []string
	Index       int
	Highlighted bool
}

// SheetTable is a master-sheet snapshot flattened to display strings.
type SheetTable struct {
	Title       string
	Location    string
	Columns     []string
	Rows        []TableRow
	TotalRows   int
	UniqueDeals int
}

// NewSheetTable renders snap. highlighted lists the row indexes to mark as
// newly added.
func NewSheetTable(snap *model.MasterSheetSnapshot, highlighted []int) SheetTable {
	if snap == nil {
		return SheetTable{}
	}

	table := SheetTable{
		Title:       snap.Name(),
		Location:    snap.Summary.Location,
		Columns:     slices.Clone(snap.Columns),
		TotalRows:   snap.TotalRows,
		UniqueDeals: snap.Summary.UniqueDeals,
		Rows:        make([]TableRow, len(snap.Rows)),
	}
	if table.TotalRows == 0 {
		table.TotalRows = len(snap.Rows)
	}

	for i, row := range snap.Rows {
		cells := make([]string, len(snap.Columns))
		for j, col := range snap.Columns {
			cells[j] = SanitizeForDisplay(format.CellValue(row.Value(col)))
		}
		table.Rows[i] = TableRow{
			Index:       i,
			Cells:       cells,
			Highlighted: slices.Contains(highlighted, i),
		}
	}
	return table
}

// ColumnWidths sizes each column to its widest cell, capped at maxWidth.
func (t SheetTable) ColumnWidths(maxWidth int) []int {
	widths := make([]int, len(t.Columns))
	for i, col := range t.Columns {
		widths[i] = utf8.RuneCountInString(col)
	}
	for _, row := range t.Rows {
		for i, cell := range row.Cells {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}
	if maxWidth > 0 {
		for i := range widths {
			widths[i] = min(widths[i], maxWidth)
		}
	}
	return widths
}

// Window returns at most height rows starting at offset, clamped to the table.
func (t SheetTable) Window(offset, height int) []TableRow {
	if height <= 0 || len(t.Rows) == 0 {
		return nil
	}
	offset = max(0, min(offset, len(t.Rows)-1))
	end := min(len(t.Rows), offset+height)
	return t.Rows[offset:end]
}

// FirstHighlighted is the index of the first newly added row, or -1.
func (t SheetTable) FirstHighlighted() int {
	for _, row := range t.Rows {
		if row.Highlighted {
			return row.Index
		}
	}
	return -1
}
