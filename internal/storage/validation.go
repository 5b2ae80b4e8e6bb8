// Package storage provides the local persistence layer for the showroom client.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/showroom/internal/model"
)

// Validation errors.
var (
	ErrNilContext       = errors.New("context cannot be nil")
	ErrEmptyString      = errors.New("string parameter cannot be empty")
	ErrNilParameter     = errors.New("parameter cannot be nil")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrInvalidUpload    = errors.New("invalid upload record")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateUploadRecord(record *model.UploadRecord) error {
	if record == nil {
		return fmt.Errorf("%w: upload record", ErrNilParameter)
	}
	switch record.Kind {
	case model.UploadDealSummary, model.UploadRawFile, model.UploadSpreadsheet:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidUpload, record.Kind)
	}
	if record.Filename == "" {
		return fmt.Errorf("%w: missing filename", ErrInvalidUpload)
	}
	if record.Size < 0 {
		return fmt.Errorf("%w: negative size", ErrInvalidUpload)
	}
	return nil
}
