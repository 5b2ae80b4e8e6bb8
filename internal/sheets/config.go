// Package sheets publishes master-sheet snapshots to Google Sheets.
package sheets

import (
	"errors"
	"fmt"
	"time"
)

// DefaultSpreadsheetName titles the spreadsheet created when no ID is configured.
const DefaultSpreadsheetName = "Dealership Master Sheet"

var (
	// ErrNoCredentials means neither a service account nor OAuth2 refresh
	// credentials were configured.
	ErrNoCredentials = errors.New("no Google Sheets credentials configured")
	// ErrConflictingCredentials means both kinds of credentials were configured.
	ErrConflictingCredentials = errors.New("both service account and OAuth2 credentials configured")
)

// Config says where to publish and how to authenticate. Exactly one of
// ServiceAccountPath or the ClientID/ClientSecret/RefreshToken triple is set.
type Config struct {
	ClientID           string
	ClientSecret       string
	RefreshToken       string
	ServiceAccountPath string
	// SpreadsheetID targets an existing spreadsheet; empty creates one.
	SpreadsheetID   string
	SpreadsheetName string
	// TimeZone is an IANA name; the dealership's local dates are written as text.
	TimeZone string
	// BatchSize is the number of rows sent per values update.
	BatchSize int
	// HighlightNewDeals bolds the header and shades rows of the latest deal.
	HighlightNewDeals bool
}

// DefaultConfig returns publishing defaults with no credentials.
func DefaultConfig() Config {
	return Config{
		SpreadsheetName:   DefaultSpreadsheetName,
		TimeZone:          "America/New_York",
		BatchSize:         500,
		HighlightNewDeals: true,
	}
}

func (c *Config) usesOAuth() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RefreshToken != ""
}

// Validate reports the first problem that would stop a publish.
func (c *Config) Validate() error {
	oauth, account := c.usesOAuth(), c.ServiceAccountPath != ""
	switch {
	case !oauth && !account:
		return ErrNoCredentials
	case oauth && account:
		return fmt.Errorf("%w: use one or the other", ErrConflictingCredentials)
	case c.BatchSize <= 0:
		return fmt.Errorf("sheets batch size must be positive, got %d", c.BatchSize)
	}
	if c.TimeZone != "" {
		if _, err := time.LoadLocation(c.TimeZone); err != nil {
			return fmt.Errorf("sheets time zone %q: %w", c.TimeZone, err)
		}
	}
	return nil
}
