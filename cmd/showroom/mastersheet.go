package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/showroom/internal/cli"
	"github.com/Veraticus/showroom/internal/config"
	"github.com/Veraticus/showroom/internal/mastersheet"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/report"
	"github.com/Veraticus/showroom/internal/sheets"
	"github.com/Veraticus/showroom/internal/tui/viewmodel"
)

func masterSheetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "master-sheet",
		Aliases: []string{"ms"},
		Short:   "Browse, download, and export the master sheet",
	}
	cmd.AddCommand(masterSheetListCmd())
	cmd.AddCommand(masterSheetShowCmd())
	cmd.AddCommand(masterSheetDownloadCmd())
	cmd.AddCommand(masterSheetExportCmd())
	cmd.AddCommand(masterSheetPublishCmd())
	return cmd
}

func masterSheetListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the monthly sheets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				names, err := a.client.ListMasterSheets(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f != report.FormatTable {
					return report.Encode(out, f, names)
				}
				for _, n := range names {
					fmt.Fprintln(out, n)
				}
				return nil
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

// loadSheet selects name (or the configured default) and returns the viewer state.
func loadSheet(ctx context.Context, a *app, name string) (mastersheet.View, error) {
	v := a.viewer()
	if err := v.Load(ctx); err != nil {
		return v.View(), err
	}
	if name != "" {
		if err := v.Select(ctx, name); err != nil {
			return v.View(), err
		}
	}
	return v.View(), nil
}

func masterSheetShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print one monthly sheet, marking the latest deal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("sheet")
			f, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				view, err := loadSheet(ctx, a, name)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f != report.FormatTable {
					return report.Encode(out, f, view.Snapshot)
				}
				return printSheet(out, view)
			})
		},
	}
	cmd.Flags().String("sheet", "", "sheet name (default: mastersheet.default_sheet)")
	addOutputFlag(cmd)
	return cmd
}

func printSheet(w io.Writer, view mastersheet.View) error {
	table := viewmodel.NewSheetTable(view.Snapshot, view.Highlighted)

	fmt.Fprintln(w, cli.FormatTitle(fmt.Sprintf("%s · %d rows · %d unique deals", table.Title, table.TotalRows, table.UniqueDeals)))
	if table.Location != "" {
		fmt.Fprintln(w, cli.SubtitleStyle.Render(table.Location))
	}
	if view.Latest != nil && len(view.Highlighted) > 0 {
		fmt.Fprintln(w, cli.HighlightStyle.Render(fmt.Sprintf("%s Latest deal %s", cli.NewRowIcon, view.Latest.DealNumber)))
	}
	fmt.Fprintln(w)

	if len(table.Rows) == 0 {
		fmt.Fprintln(w, cli.FormatInfo("This sheet has no deals yet."))
		return nil
	}

	t := cli.NewTable(w, append([]string{" "}, table.Columns...)...)
	for _, row := range table.Rows {
		marker := " "
		if row.Highlighted {
			marker = cli.NewRowIcon
		}
		t.Row(append([]string{marker}, row.Cells...)...)
	}
	return t.Flush()
}

func masterSheetDownloadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Open the master-sheet download link",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			printOnly, _ := cmd.Flags().GetBool("print")
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				out := cmd.OutOrStdout()
				var opener mastersheet.Opener = mastersheet.BrowserOpener{}
				if printOnly {
					opener = mastersheet.PrintOpener{W: out}
				}

				url, err := a.viewer().Download(ctx, opener)
				if err != nil {
					if url != "" {
						fmt.Fprintln(out, cli.FormatWarning("Could not open a browser. Open this link to download:"))
						fmt.Fprintln(out, url)
						return nil
					}
					return err
				}
				if !printOnly {
					fmt.Fprintln(out, cli.FormatSuccess("Download link opened"))
				}
				return nil
			})
		},
	}
	cmd.Flags().Bool("print", false, "print the link instead of opening a browser")
	return cmd
}

func masterSheetExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export monthly sheets to an XLSX workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("xlsx")
			names, _ := cmd.Flags().GetStringSlice("sheet")
			all, _ := cmd.Flags().GetBool("all")
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				exports, err := collectExports(ctx, a, names, all)
				if err != nil {
					return err
				}
				return writeXLSX(cmd.OutOrStdout(), config.ExpandPath(path), exports)
			})
		},
	}
	cmd.Flags().String("xlsx", "", "output workbook path (required)")
	cmd.Flags().StringSlice("sheet", nil, "sheets to export (default: mastersheet.default_sheet)")
	cmd.Flags().Bool("all", false, "export every monthly sheet")
	_ = cmd.MarkFlagRequired("xlsx")
	return cmd
}

func collectExports(ctx context.Context, a *app, names []string, all bool) ([]report.SheetExport, error) {
	v := a.viewer()
	if err := v.Load(ctx); err != nil {
		return nil, err
	}
	switch {
	case all:
		names = v.View().Sheets
	case len(names) == 0:
		names = []string{v.View().Selected}
	}

	exports := make([]report.SheetExport, 0, len(names))
	for _, name := range names {
		if err := v.Select(ctx, name); err != nil {
			return nil, err
		}
		view := v.View()
		exports = append(exports, report.SheetExport{Snapshot: view.Snapshot, Highlight: view.Highlighted})
	}
	return exports, nil
}

func writeXLSX(out io.Writer, path string, exports []report.SheetExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create workbook: %w", err)
	}
	err = report.WriteMasterSheetXLSX(f, exports...)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Exported %d sheet(s) to %s", len(exports), path)))
	return nil
}

func masterSheetPublishCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Copy a monthly sheet to Google Sheets",
		Long: `Copy a monthly sheet into a Google Sheets spreadsheet, one tab per month,
with newly added rows highlighted.

Credentials come from sheets.* in the config file or the GOOGLE_SHEETS_*
environment variables: either a service account file or an OAuth client id,
secret, and refresh token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			name, _ := cmd.Flags().GetString("sheet")
			sheetsCfg, err := config.LoadSheetsConfig(viper.GetViper())
			if err != nil {
				return fmt.Errorf("google sheets is not configured: %w", err)
			}
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				view, err := loadSheet(ctx, a, name)
				if err != nil {
					return err
				}
				return publish(ctx, cmd.OutOrStdout(), a, *sheetsCfg, view.Snapshot, view.Highlighted)
			})
		},
	}
	cmd.Flags().String("sheet", "", "sheet name (default: mastersheet.default_sheet)")
	return cmd
}

func publish(ctx context.Context, out io.Writer, a *app, cfg sheets.Config, snap *model.MasterSheetSnapshot, highlight []int) error {
	writer, err := sheets.NewWriter(ctx, cfg, a.logger)
	if err != nil {
		return err
	}
	result, err := writer.Publish(ctx, snap, highlight)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Published %d rows to tab %q", result.RowsWritten, result.Tab)))
	if result.SpreadsheetURL != "" {
		fmt.Fprintln(out, result.SpreadsheetURL)
	}
	return nil
}
