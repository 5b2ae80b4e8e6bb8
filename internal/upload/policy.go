// Package upload validates files picked for ingestion and runs each upload
// attempt through its state machine.
package upload

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/model"
)

// MB is one megabyte as the size ceilings count it.
const MB = 1024 * 1024

// Rejection reasons.
const (
	ReasonExtension = "extension"
	ReasonSize      = "size"
	ReasonEmpty     = "empty"
)

// Policy is the client-side check for one upload path. The server remains
// authoritative; a policy only spares a round trip for obvious mistakes.
type Policy struct {
	Kind             model.UploadKind
	ExtensionMessage string
	SizeMessage      string
	Extensions       []string
	// MIMETypes, when set, accept a file whose declared type matches even if
	// its extension does not.
	MIMETypes []string
	MaxBytes  int64
}

// Policies for each upload path. The ceilings differ on purpose.
var (
	SpreadsheetPolicy = Policy{
		Kind:       model.UploadSpreadsheet,
		Extensions: []string{".xlsx", ".xls", ".csv"},
		MIMETypes: []string{
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/vnd.ms-excel",
			"text/csv",
		},
		MaxBytes:         10 * MB,
		ExtensionMessage: "Please upload a valid Excel (.xlsx, .xls) or CSV file",
		SizeMessage:      "File size must be less than 10MB",
	}

	DealSummaryPolicy = Policy{
		Kind:             model.UploadDealSummary,
		Extensions:       []string{".xlsx", ".xls"},
		MaxBytes:         50 * MB,
		ExtensionMessage: "Please upload a valid Excel file (.xlsx or .xls)",
		SizeMessage:      "File size must be less than 50MB",
	}

	RawFilePolicy = Policy{
		Kind:             model.UploadRawFile,
		Extensions:       []string{".csv", ".xlsx"},
		MaxBytes:         50 * MB,
		ExtensionMessage: "Only CSV and XLSX files are allowed",
		SizeMessage:      "File size exceeds 50MB limit",
	}
)

// PolicyFor returns the policy of an upload kind.
func PolicyFor(kind model.UploadKind) (Policy, error) {
	switch kind {
	case model.UploadSpreadsheet:
		return SpreadsheetPolicy, nil
	case model.UploadDealSummary:
		return DealSummaryPolicy, nil
	case model.UploadRawFile:
		return RawFilePolicy, nil
	default:
		return Policy{}, fmt.Errorf("unknown upload kind %q", kind)
	}
}

// Validate checks the extension first, then the size. A file of exactly
// MaxBytes is accepted.
func (p Policy) Validate(c *model.UploadCandidate) error {
	if c == nil || c.Name == "" {
		return &common.ValidationError{Reason: ReasonEmpty, Message: "Please select a file"}
	}

	ext := strings.ToLower(filepath.Ext(c.Name))
	typeOK := len(p.MIMETypes) > 0 && slices.Contains(p.MIMETypes, baseMIMEType(c.ContentType))
	if !slices.Contains(p.Extensions, ext) && !typeOK {
		return &common.ValidationError{Reason: ReasonExtension, Message: p.ExtensionMessage}
	}

	if c.Size > p.MaxBytes {
		return &common.ValidationError{Reason: ReasonSize, Message: p.SizeMessage}
	}
	return nil
}

// Hint is the one-line description of what the policy accepts.
func (p Policy) Hint() string {
	exts := make([]string, len(p.Extensions))
	for i, e := range p.Extensions {
		exts[i] = strings.TrimPrefix(e, ".")
	}
	return fmt.Sprintf("%s files, max %dMB", strings.ToUpper(strings.Join(exts, ", ")), p.MaxBytes/MB)
}

func baseMIMEType(ct string) string {
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mediaType
}

// Inspect builds a candidate from a file on disk.
func Inspect(path string) (*model.UploadCandidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	name := filepath.Base(path)
	return &model.UploadCandidate{
		Path:        path,
		Name:        name,
		Size:        info.Size(),
		ContentType: ContentType(name),
	}, nil
}

// ContentType guesses the media type from a file name.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".csv":
		return "text/csv"
	}
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
