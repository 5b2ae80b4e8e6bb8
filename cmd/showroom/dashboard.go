package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/config"
	"github.com/Veraticus/showroom/internal/tui"
	"github.com/Veraticus/showroom/internal/tui/themes"
)

func dashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"ui"},
		Short:   "Open the interactive dashboard",
		Long: `Open the full-screen view with the KPI dashboard, uploads, and the
master sheet. Tab switches pages; ? shows every key.`,
		Args: cobra.NoArgs,
		RunE: runDashboard,
	}
	cmd.Flags().String("theme", "", "color theme (default, catppuccin-mocha)")
	cmd.Flags().Bool("full-help", false, "start with the full key help shown")
	_ = viper.BindPFlag("tui.theme", cmd.Flags().Lookup("theme"))
	return cmd
}

func runDashboard(cmd *cobra.Command, _ []string) error {
	fullHelp, _ := cmd.Flags().GetBool("full-help")

	return withApp(cmd, true, func(ctx context.Context, a *app) error {
		// Log lines would tear the alternate screen, so they go to a file.
		logger, closeLog, err := tuiLogger(a.cfg)
		if err != nil {
			return err
		}
		defer closeLog()

		return tui.Run(ctx,
			tui.WithSession(a.store, a.client),
			tui.WithDashboard(a.dashboard()),
			tui.WithIngestor(a.ingestor()),
			tui.WithViewer(a.viewer()),
			tui.WithTheme(themes.GetTheme(viper.GetString("tui.theme"))),
			tui.WithLogger(logger),
			tui.WithHelp(fullHelp),
		)
	})
}

func tuiLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	dir := filepath.Dir(cfg.StoragePath)
	if cfg.StoragePath == ":memory:" {
		dir = os.TempDir()
	}
	f, err := os.OpenFile(filepath.Join(dir, "showroom-tui.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, err
	}

	level, err := common.ParseLevel(cfg.LogLevel)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	logger, err := common.NewLogger(f, level, cfg.LogFormat)
	if err != nil {
		_ = f.Close()
		return nil, nil, err
	}
	return logger, func() { _ = f.Close() }, nil
}
