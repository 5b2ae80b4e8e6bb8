package model

import "strings"

// MasterSheetSnapshot is a read-only projection of one month sheet of the server ledger.
type MasterSheetSnapshot struct {
	SheetName      *string            `json:"sheet_name" yaml:"sheet_name"`
	Columns        []string           `json:"columns" yaml:"columns"`
	Rows           []Row              `json:"rows" yaml:"rows"`
	NewlyAddedRows []int              `json:"newly_added_rows" yaml:"newly_added_rows"`
	Summary        MasterSheetSummary `json:"summary" yaml:"summary"`
	TotalRows      int                `json:"total_rows" yaml:"total_rows"`
}

// MasterSheetSummary carries ledger metadata returned with a sheet.
type MasterSheetSummary struct {
	CurrentSheet string `json:"current_sheet" yaml:"current_sheet"`
	Location     string `json:"location" yaml:"location"`
	Bucket       string `json:"bucket" yaml:"bucket"`
	S3Key        string `json:"s3_key" yaml:"s3_key"`
	TotalRows    int    `json:"total_rows" yaml:"total_rows"`
	UniqueDeals  int    `json:"unique_deals" yaml:"unique_deals"`
}

// Row maps column names to cell values. Values are whatever the server sent.
type Row map[string]any

// Value returns the cell for a column, or nil when absent.
func (r Row) Value(column string) any {
	if r == nil {
		return nil
	}
	return r[column]
}

// Name returns the sheet name, or an empty string when the server sent none.
func (s *MasterSheetSnapshot) Name() string {
	if s == nil || s.SheetName == nil {
		return ""
	}
	return *s.SheetName
}

// dealNumberColumns are header spellings used by the ledger for the deal identifier.
var dealNumberColumns = []string{"deal #", "deal number", "deal no", "deal_number", "deal no.", "deal"}

// DealNumberColumn returns the column holding the deal number, if the sheet has one.
func (s *MasterSheetSnapshot) DealNumberColumn() (string, bool) {
	if s == nil {
		return "", false
	}
	for _, want := range dealNumberColumns {
		for _, col := range s.Columns {
			if strings.EqualFold(strings.TrimSpace(col), want) {
				return col, true
			}
		}
	}
	return "", false
}

// MasterSheetList is the response of the sheet-listing endpoint.
type MasterSheetList struct {
	MonthlySheets []string `json:"monthly_sheets"`
}

// DownloadLink is a time-limited URL for the master-sheet export.
type DownloadLink struct {
	DownloadURL string `json:"download_url"`
}
