package model

import "time"

// UploadCandidate is a file picked for upload but not yet submitted.
type UploadCandidate struct {
	Path        string
	Name        string
	ContentType string
	ErrorReason string
	Size        int64
	Validated   bool
}

// UploadKind names which ingestion path a file went through.
type UploadKind string

const (
	// UploadDealSummary processes one deal summary into the master sheet.
	UploadDealSummary UploadKind = "deal_summary"
	// UploadRawFile stores a file in the server's durable storage.
	UploadRawFile UploadKind = "raw_file"
	// UploadSpreadsheet is the generic monthly spreadsheet upload.
	UploadSpreadsheet UploadKind = "spreadsheet"
)

// UploadRecord is a client-local log entry of one upload attempt outcome.
type UploadRecord struct {
	CreatedAt  time.Time
	Kind       UploadKind
	Filename   string
	Message    string
	DealNumber string
	MonthSheet string
	ID         int64
	Size       int64
	Succeeded  bool
}
