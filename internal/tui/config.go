package tui

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/dashboard"
	"github.com/Veraticus/showroom/internal/mastersheet"
	"github.com/Veraticus/showroom/internal/session"
	"github.com/Veraticus/showroom/internal/tui/themes"
	"github.com/Veraticus/showroom/internal/upload"
)

// Config holds TUI configuration.
type Config struct {
	Theme         themes.Theme
	Auth          session.Authenticator
	Opener        mastersheet.Opener
	Session       *session.Store
	Dashboard     *dashboard.Controller
	Ingestor      *upload.Ingestor
	Viewer        *mastersheet.Viewer
	Logger        *slog.Logger
	Width         int
	Height        int
	Timeout       time.Duration
	UploadTimeout time.Duration
	ShowHelp      bool
}

// Option is a functional option for configuring the TUI.
type Option func(*Config)

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Theme:  themes.Default,
		Opener: mastersheet.BrowserOpener{},
		Logger: slog.Default(),
		Width:  100,
		Height: 30,
	}
}

func (c Config) validate() error {
	switch {
	case c.Session == nil:
		return fmt.Errorf("%w: session store is required", common.ErrMissingConfig)
	case c.Auth == nil:
		return fmt.Errorf("%w: authenticator is required", common.ErrMissingConfig)
	case c.Dashboard == nil:
		return fmt.Errorf("%w: dashboard controller is required", common.ErrMissingConfig)
	case c.Ingestor == nil:
		return fmt.Errorf("%w: upload ingestor is required", common.ErrMissingConfig)
	case c.Viewer == nil:
		return fmt.Errorf("%w: master sheet viewer is required", common.ErrMissingConfig)
	}
	return nil
}

// WithSession sets the session store and the authenticator used to sign in.
func WithSession(store *session.Store, auth session.Authenticator) Option {
	return func(c *Config) {
		c.Session = store
		c.Auth = auth
	}
}

// WithDashboard sets the KPI dashboard controller.
func WithDashboard(ctrl *dashboard.Controller) Option {
	return func(c *Config) {
		c.Dashboard = ctrl
	}
}

// WithIngestor sets the upload ingestor.
func WithIngestor(in *upload.Ingestor) Option {
	return func(c *Config) {
		c.Ingestor = in
	}
}

// WithViewer sets the master sheet viewer.
func WithViewer(v *mastersheet.Viewer) Option {
	return func(c *Config) {
		c.Viewer = v
	}
}

// WithOpener sets how download links are opened.
func WithOpener(o mastersheet.Opener) Option {
	return func(c *Config) {
		if o != nil {
			c.Opener = o
		}
	}
}

// WithTheme sets the visual theme.
func WithTheme(theme themes.Theme) Option {
	return func(c *Config) {
		c.Theme = theme
	}
}

// WithSize sets the initial terminal size.
func WithSize(width, height int) Option {
	return func(c *Config) {
		c.Width = width
		c.Height = height
	}
}

// WithLogger sets the logger. The TUI owns the terminal, so it should not
// write to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		if logger != nil {
			c.Logger = logger
		}
	}
}

// WithTimeouts sets per-request and per-upload deadlines. By default no
// deadline applies; only quitting cancels an operation. Zero leaves one unset.
func WithTimeouts(request, upload time.Duration) Option {
	return func(c *Config) {
		if request > 0 {
			c.Timeout = request
		}
		if upload > 0 {
			c.UploadTimeout = upload
		}
	}
}

// WithHelp shows the full key help instead of the one-line summary.
func WithHelp(full bool) Option {
	return func(c *Config) {
		c.ShowHelp = full
	}
}
