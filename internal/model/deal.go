package model

import "time"

// DealSummaryUploadResult is the server's outcome for one processed deal summary.
type DealSummaryUploadResult struct {
	NewlyAddedRowIndex *int   `json:"newly_added_row_index" yaml:"newly_added_row_index"`
	Message            string `json:"message,omitempty" yaml:"message,omitempty"`
	DealNumber         string `json:"deal_number" yaml:"deal_number"`
	MonthSheet         string `json:"month_sheet" yaml:"month_sheet"`
	Success            bool   `json:"success" yaml:"success"`
	DuplicateWarning   bool   `json:"duplicate_warning" yaml:"duplicate_warning"`
	KPIsUpdated        bool   `json:"kpis_updated" yaml:"kpis_updated"`
}

// LatestDeal points at the most recently appended master-sheet row.
// It is written after a successful ingestion and read by the master-sheet viewer.
type LatestDeal struct {
	Timestamp  time.Time `json:"timestamp"`
	Month      string    `json:"month"`
	DealNumber string    `json:"dealNumber"`
	RowIndex   int       `json:"rowIndex"`
}
