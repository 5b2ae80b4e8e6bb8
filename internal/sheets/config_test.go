package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	account := func(c *Config) { c.ServiceAccountPath = "/etc/showroom/sa.json" }
	oauth := func(c *Config) {
		c.ClientID, c.ClientSecret, c.RefreshToken = "client", "secret", "refresh"
	}

	tests := []struct {
		wantErr error
		edit    func(*Config)
		name    string
		errText string
	}{
		{name: "service account", edit: account},
		{name: "oauth refresh token", edit: oauth},
		{
			name:    "partial oauth",
			edit:    func(c *Config) { c.ClientID, c.RefreshToken = "client", "refresh" },
			wantErr: ErrNoCredentials,
		},
		{
			name:    "both kinds",
			edit:    func(c *Config) { account(c); oauth(c) },
			wantErr: ErrConflictingCredentials,
		},
		{
			name:    "zero batch size",
			edit:    func(c *Config) { account(c); c.BatchSize = 0 },
			errText: "batch size must be positive",
		},
		{
			name:    "unknown time zone",
			edit:    func(c *Config) { account(c); c.TimeZone = "Mars/Olympus_Mons" },
			errText: "time zone",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.edit(&cfg)
			err := cfg.Validate()
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			case tt.errText != "":
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errText)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.True(t, cfg.HighlightNewDeals)
	assert.Equal(t, DefaultSpreadsheetName, cfg.SpreadsheetName)
	assert.Equal(t, 500, cfg.BatchSize)
	assert.ErrorIs(t, cfg.Validate(), ErrNoCredentials)
}
