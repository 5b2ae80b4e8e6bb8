package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/showroom/internal/common"
)

// Input errors, raised before any request is sent.
var (
	ErrInvalidYear  = errors.New("year must be a positive integer")
	ErrInvalidMonth = errors.New("month is required")
	ErrInvalidSheet = errors.New("sheet name is required")
	ErrNoFile       = errors.New("file is required")
)

// RequestError is any failed call other than a 401.
// It matches common.ErrRequestFailed.
type RequestError struct {
	Err        error
	Op         string
	Detail     string
	StatusCode int
}

func (e *RequestError) Error() string {
	var b strings.Builder
	b.WriteString("failed to ")
	b.WriteString(e.Op)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the request failure sentinel and the cause.
func (e *RequestError) Unwrap() []error {
	if e.Err == nil {
		return []error{common.ErrRequestFailed}
	}
	return []error{common.ErrRequestFailed, e.Err}
}

// Message is the server's detail when it sent one, else a generic
// sentence naming the operation.
func (e *RequestError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return "Failed to " + e.Op
}

// UserFacingMessage lets common.Message render the error.
func (e *RequestError) UserFacingMessage() string {
	return e.Message()
}

// ServerDetail returns the message the server put in the error body, if any.
func ServerDetail(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Detail
	}
	return ""
}
