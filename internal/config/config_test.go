package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, DefaultSheet, cfg.DefaultSheet)
	assert.NotContains(t, cfg.StoragePath, "$HOME")
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_TrimsTrailingSlash(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("api.base_url", "https://kpi.example.com/ ")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "https://kpi.example.com", cfg.BaseURL)
}

func TestLoad_RejectsBadBaseURL(t *testing.T) {
	tests := []string{"ftp://kpi.example.com", "kpi.example.com", "http://"}

	for _, raw := range tests {
		t.Run(raw, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set("api.base_url", raw)

			_, err := Load(v)
			assert.ErrorIs(t, err, common.ErrInvalidConfig)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SHOWROOM_TEST_DOTENV=loaded\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("SHOWROOM_TEST_DOTENV") })

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("SHOWROOM_TEST_DOTENV"))
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	t.Setenv("SHOWROOM_TEST_DIR", "/srv/data")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"  ", ""},
		{"~", home},
		{"~/db.sqlite", filepath.Join(home, "db.sqlite")},
		{"$SHOWROOM_TEST_DIR/db.sqlite", "/srv/data/db.sqlite"},
		{"'/tmp/Deal Summary.xlsx'", "/tmp/Deal Summary.xlsx"},
		{` "~/deals/nov.xlsx" `, filepath.Join(home, "deals", "nov.xlsx")},
		{`"/tmp/half-quoted.xlsx`, `"/tmp/half-quoted.xlsx`},
		{":memory:", ":memory:"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ExpandPath(tt.in))
		})
	}
}

func TestLoadSheetsConfig_RequiresAuth(t *testing.T) {
	for _, k := range []string{"GOOGLE_SHEETS_SERVICE_ACCOUNT_PATH", "GOOGLE_SHEETS_CLIENT_ID", "GOOGLE_SHEETS_CLIENT_SECRET", "GOOGLE_SHEETS_REFRESH_TOKEN"} {
		t.Setenv(k, "")
	}

	_, err := LoadSheetsConfig(viper.New())
	assert.Error(t, err)

	v := viper.New()
	v.Set("sheets.service_account_path", "/tmp/sa.json")
	v.Set("sheets.spreadsheet_id", "abc123")
	cfg, err := LoadSheetsConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/sa.json", cfg.ServiceAccountPath)
	assert.Equal(t, "abc123", cfg.SpreadsheetID)
	assert.True(t, cfg.HighlightNewDeals)

	v.Set("sheets.time_zone", "America/Denver")
	v.Set("sheets.batch_size", 50)
	v.Set("sheets.highlight_new_deals", false)
	cfg, err = LoadSheetsConfig(v)
	require.NoError(t, err)
	assert.Equal(t, "America/Denver", cfg.TimeZone)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.False(t, cfg.HighlightNewDeals)
}

func TestConfig_CertDir(t *testing.T) {
	cfg := &Config{StoragePath: filepath.Join("/var", "lib", "showroom", "showroom.db")}
	assert.Equal(t, filepath.Join("/var", "lib", "showroom", "certs"), cfg.CertDir())

	cfg.StoragePath = ":memory:"
	assert.Contains(t, cfg.CertDir(), filepath.Join("showroom", "certs"))
}

func TestLoad_CAFile(t *testing.T) {
	v := viper.New()
	SetDefaults(v)
	v.Set("api.ca_file", "/etc/showroom/ca.pem")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "/etc/showroom/ca.pem", cfg.CAFile)
}
