package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/showroom/internal/format"
	"github.com/Veraticus/showroom/internal/model"
)

// ErrNoSheets is returned when an export has no sheets to write.
var ErrNoSheets = errors.New("no sheets to export")

// SheetExport is one master sheet plus the row indexes to highlight.
type SheetExport struct {
	Snapshot  *model.MasterSheetSnapshot
	Highlight []int
}

const (
	maxSheetNameLen = 31
	highlightColor  = "#FFF3B0"
	headerFillColor = "#E2E8F0"
)

// WriteMasterSheetXLSX writes each export to its own worksheet.
func WriteMasterSheetXLSX(w io.Writer, exports ...SheetExport) error {
	if len(exports) == 0 {
		return ErrNoSheets
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{headerFillColor}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	highlightStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{highlightColor}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("failed to create highlight style: %w", err)
	}

	defaultSheet := f.GetSheetName(f.GetActiveSheetIndex())
	used := make(map[string]bool)
	for i, exp := range exports {
		if exp.Snapshot == nil {
			return fmt.Errorf("%w: export %d has no snapshot", ErrNoSheets, i)
		}
		name := uniqueSheetName(sheetName(exp.Snapshot, i), used)

		if i == 0 {
			if err := f.SetSheetName(defaultSheet, name); err != nil {
				return fmt.Errorf("failed to name sheet %q: %w", name, err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %q: %w", name, err)
		}

		if err := writeSheet(f, name, exp, headerStyle, highlightStyle); err != nil {
			return err
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, exp SheetExport, headerStyle, highlightStyle int) error {
	snap := exp.Snapshot
	if len(snap.Columns) == 0 {
		return nil
	}

	header := make([]any, len(snap.Columns))
	for i, col := range snap.Columns {
		header[i] = col
	}
	if err := f.SetSheetRow(name, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", name, err)
	}
	lastCol, err := excelize.ColumnNumberToName(len(snap.Columns))
	if err != nil {
		return fmt.Errorf("failed to resolve columns of %q: %w", name, err)
	}
	if err := f.SetCellStyle(name, "A1", lastCol+"1", headerStyle); err != nil {
		return fmt.Errorf("failed to style header of %q: %w", name, err)
	}

	for i, r := range snap.Rows {
		values := make([]any, len(snap.Columns))
		for j, col := range snap.Columns {
			values[j] = cellValue(r.Value(col))
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("failed to address row %d of %q: %w", i, name, err)
		}
		if err := f.SetSheetRow(name, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i, name, err)
		}
	}

	for _, idx := range exp.Highlight {
		if idx < 0 || idx >= len(snap.Rows) {
			continue
		}
		rowNum := idx + 2
		if err := f.SetCellStyle(name, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("%s%d", lastCol, rowNum), highlightStyle); err != nil {
			return fmt.Errorf("failed to highlight row %d of %q: %w", idx, name, err)
		}
	}

	return f.SetColWidth(name, "A", lastCol, 16)
}

// cellValue keeps numbers and text native so the workbook stays sortable.
func cellValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case string, float64, float32, int, int64, bool:
		return val
	default:
		return format.CellValue(val)
	}
}

func sheetName(snap *model.MasterSheetSnapshot, i int) string {
	name := snap.Name()
	if name == "" {
		name = snap.Summary.CurrentSheet
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, "'")
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if r := []rune(name); len(r) > maxSheetNameLen {
		name = string(r[:maxSheetNameLen])
	}
	return name
}

func uniqueSheetName(name string, used map[string]bool) string {
	candidate := name
	for n := 2; used[strings.ToLower(candidate)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		base := []rune(name)
		if len(base)+len(suffix) > maxSheetNameLen {
			base = base[:maxSheetNameLen-len(suffix)]
		}
		candidate = string(base) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}
