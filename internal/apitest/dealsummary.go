package apitest

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/showroom/internal/model"
)

// DefaultLedgerColumns are used for a month tab created by a deal upload.
var DefaultLedgerColumns = []string{"Deal #", "Date", "Customer", "Salesperson", "Vehicle", "Gross"}

// Response details for unreadable deal summaries.
const (
	NoDealNumberDetail = "Deal number not found in deal summary"
	NoDealMonthDetail  = "Could not determine the deal month from the file"
)

var (
	errNoDealNumber = errors.New("deal number not found")
	errNoDealMonth  = errors.New("deal month not found")
)

var dateLabels = []string{"date", "deal date", "sold date", "contract date"}

var knownLabels = func() map[string]bool {
	labels := map[string]bool{"month": true, "customer": true, "salesperson": true}
	for _, l := range dealColumnNames {
		labels[l] = true
	}
	for _, l := range dateLabels {
		labels[l] = true
	}
	return labels
}()

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"1/2/2006",
	"01-02-06",
	"1-2-06",
	"01/02/06",
	"1/2/06 15:04",
	"Jan 2, 2006",
	"January 2, 2006",
}

// DealSummary is what the server pulls out of an uploaded deal workbook.
type DealSummary struct {
	Date       time.Time
	Fields     map[string]string
	DealNumber string
	Month      time.Month
	Year       int
}

// ParseDealSummary reads the first worksheet of an .xlsx deal summary.
// It accepts either label/value rows ("Deal #" | "1042") or a header row
// followed by one row of values.
func ParseDealSummary(data []byte, fallbackYear int) (*DealSummary, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errNoDealNumber
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", sheets[0], err)
	}

	fields := make(map[string]string)
	if len(rows) >= 2 && isHeaderRow(rows[0]) {
		for i, h := range rows[0] {
			if key := normalizeLabel(h); key != "" && i < len(rows[1]) {
				fields[key] = strings.TrimSpace(rows[1][i])
			}
		}
	} else {
		for _, row := range rows {
			if len(row) >= 2 && strings.TrimSpace(row[0]) != "" {
				fields[normalizeLabel(row[0])] = strings.TrimSpace(row[1])
			}
		}
	}

	summary := &DealSummary{Fields: fields, Year: fallbackYear}
	for _, label := range dealColumnNames {
		if v := fields[label]; v != "" {
			summary.DealNumber = v
			break
		}
	}
	if summary.DealNumber == "" {
		return nil, errNoDealNumber
	}

	for _, label := range dateLabels {
		if t, ok := parseDate(fields[label]); ok {
			summary.Date = t
			summary.Month = t.Month()
			summary.Year = t.Year()
			break
		}
	}
	if summary.Month == 0 {
		if m, ok := parseMonth(fields["month"]); ok {
			summary.Month = m
		}
	}
	if summary.Month == 0 {
		return nil, errNoDealMonth
	}
	return summary, nil
}

// SheetName is the ledger tab the deal belongs to, e.g. "Nov".
func (d *DealSummary) SheetName() string {
	return d.Month.String()[:3]
}

func (s *Server) handleDealSummary(w http.ResponseWriter, r *http.Request) {
	name, data, ok := readUpload(w, r)
	if !ok {
		return
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext != ".xlsx" && ext != ".xls" {
		writeDetail(w, http.StatusBadRequest, "Please upload a valid Excel file (.xlsx or .xls)")
		return
	}

	summary, err := ParseDealSummary(data, s.now().Year())
	if err != nil {
		detail := "Failed to parse deal summary: " + err.Error()
		switch {
		case errors.Is(err, errNoDealNumber):
			detail = NoDealNumberDetail
		case errors.Is(err, errNoDealMonth):
			detail = NoDealMonthDetail
		}
		writeDetail(w, http.StatusBadRequest, detail)
		return
	}

	username, _ := r.Context().Value(ctxUsername).(string)
	result := s.appendDeal(summary)
	s.logger.Info("Processed deal summary",
		"deal_number", summary.DealNumber,
		"sheet", result.MonthSheet,
		"duplicate", result.DuplicateWarning,
		"user", username)
	writeJSON(w, http.StatusOK, result)
}

// appendDeal adds the deal to its month tab unless the deal number is
// already there.
func (s *Server) appendDeal(d *DealSummary) *model.DealSummaryUploadResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	sheetName := d.SheetName()
	sh, ok := s.sheets[sheetName]
	if !ok {
		sh = s.setSheetLocked(sheetName, DefaultLedgerColumns, nil)
	}

	result := &model.DealSummaryUploadResult{
		Success:    true,
		DealNumber: d.DealNumber,
		MonthSheet: sheetName,
	}

	dealCol := dealColumn(sh.columns)
	if dealCol == "" {
		dealCol = sh.columns[0]
	}
	for _, existing := range sh.rows {
		if strings.EqualFold(fmt.Sprint(existing[dealCol]), d.DealNumber) {
			result.DuplicateWarning = true
			result.Message = fmt.Sprintf("Deal %s already exists in %s", d.DealNumber, sheetName)
			return result
		}
	}

	row := make(model.Row, len(sh.columns))
	for _, col := range sh.columns {
		if v, ok := d.Fields[normalizeLabel(col)]; ok {
			row[col] = v
		}
	}
	row[dealCol] = d.DealNumber
	sh.rows = append(sh.rows, row)

	idx := len(sh.rows) - 1
	sh.newlyAdded = []int{idx}
	result.NewlyAddedRowIndex = &idx
	result.KPIsUpdated = s.countDealLocked(d.Year, d.Month.String())
	result.Message = fmt.Sprintf("Deal %s added to %s", d.DealNumber, sheetName)
	return result
}

func normalizeLabel(s string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(s)), ":")
}

// isHeaderRow is true when at least two cells of row are known field
// labels, so the row reads as column titles rather than a label/value pair.
func isHeaderRow(row []string) bool {
	known := 0
	for _, cell := range row {
		if knownLabels[normalizeLabel(cell)] {
			known++
		}
	}
	return known >= 2
}

func parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseMonth(s string) (time.Month, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, false
	}
	for m := time.January; m <= time.December; m++ {
		full := strings.ToLower(m.String())
		if s == full || s == full[:3] {
			return m, true
		}
	}
	return 0, false
}
