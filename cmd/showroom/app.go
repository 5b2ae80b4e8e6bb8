package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/showroom/internal/api"
	"github.com/Veraticus/showroom/internal/certs"
	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/config"
	"github.com/Veraticus/showroom/internal/dashboard"
	"github.com/Veraticus/showroom/internal/mastersheet"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/report"
	"github.com/Veraticus/showroom/internal/session"
	"github.com/Veraticus/showroom/internal/storage"
	"github.com/Veraticus/showroom/internal/upload"
)

// notSignedInMessage is shown by commands that need a session.
const notSignedInMessage = `Not signed in. Run "showroom login" first.`

// app is the wiring shared by every command that talks to the API.
type app struct {
	cfg    *config.Config
	db     *storage.SQLiteStorage
	store  *session.Store
	client *api.Client
	logger *slog.Logger
}

// openApp loads configuration and opens the local database.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	db, err := storage.Open(ctx, cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open local storage: %w", err)
	}

	logger := slog.Default()
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "showroom/" + version
	}

	opts := []api.Option{api.WithLogger(logger), api.WithUserAgent(userAgent)}
	if cfg.CAFile != "" {
		tlsConfig, err := certs.ClientConfig(cfg.CAFile)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("api.ca_file: %w", err)
		}
		opts = append(opts, api.WithHTTPClient(&http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsConfig, Proxy: http.ProxyFromEnvironment},
		}))
	}

	store := session.New(db, session.WithLogger(logger))
	return &app{
		cfg:    cfg,
		db:     db,
		store:  store,
		client: api.New(cfg.BaseURL, store, opts...),
		logger: logger,
	}, nil
}

func (a *app) Close() error {
	return a.db.Close()
}

// requireSession fails early when nobody is signed in.
func (a *app) requireSession(ctx context.Context) (*model.Session, error) {
	sess, err := a.store.Current(ctx)
	if errors.Is(err, common.ErrNotAuthenticated) {
		return nil, common.NewUserError(notSignedInMessage, err)
	}
	return sess, err
}

func (a *app) dashboard() *dashboard.Controller {
	return dashboard.NewController(a.client, a.logger)
}

func (a *app) viewer() *mastersheet.Viewer {
	return mastersheet.NewViewer(a.client, a.db,
		mastersheet.WithDefaultSheet(a.cfg.DefaultSheet),
		mastersheet.WithLogger(a.logger))
}

func (a *app) ingestor() *upload.Ingestor {
	return upload.NewIngestor(a.client, a.db,
		upload.WithHistory(a.db),
		upload.WithLogger(a.logger))
}

// withApp runs fn with an opened app, signed in unless anonymous is set.
func withApp(cmd *cobra.Command, anonymous bool, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if !anonymous {
		if _, err := a.requireSession(ctx); err != nil {
			return err
		}
	}
	return fn(ctx, a)
}

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "table", "output format (table, json, yaml)")
}

func outputFormat(cmd *cobra.Command) (report.Format, error) {
	s, _ := cmd.Flags().GetString("output")
	return report.ParseFormat(s)
}
