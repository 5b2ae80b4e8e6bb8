package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/Veraticus/showroom/internal/cli"
	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/config"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/report"
	"github.com/Veraticus/showroom/internal/tui/viewmodel"
	"github.com/Veraticus/showroom/internal/upload"
)

func uploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Upload deal summaries and spreadsheets",
	}

	cmd.AddCommand(uploadKindCmd(model.UploadDealSummary, "deal-summary <file>",
		"Process one deal summary into the master sheet"))
	cmd.AddCommand(uploadKindCmd(model.UploadRawFile, "raw <file>",
		"Store a raw file in the server's file storage"))
	cmd.AddCommand(uploadKindCmd(model.UploadSpreadsheet, "spreadsheet <file>",
		"Upload a monthly spreadsheet for analysis"))
	cmd.AddCommand(uploadHistoryCmd())
	return cmd
}

func uploadKindCmd(kind model.UploadKind, use, short string) *cobra.Command {
	policy, _ := upload.PolicyFor(kind)
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long:  short + ".\n\nAccepts " + policy.Hint() + ".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quiet, _ := cmd.Flags().GetBool("no-progress")
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				return runUpload(ctx, cmd.OutOrStdout(), a, kind, config.ExpandPath(args[0]), !quiet)
			})
		},
	}
	cmd.Flags().Bool("no-progress", false, "do not draw a progress bar")
	return cmd
}

func runUpload(ctx context.Context, out io.Writer, a *app, kind model.UploadKind, path string, showProgress bool) error {
	policy, err := upload.PolicyFor(kind)
	if err != nil {
		return err
	}

	attempt, err := upload.Prepare(path, policy)
	if err != nil {
		return err
	}

	in := a.ingestor()
	if kind == model.UploadRawFile {
		status, err := in.StorageStatus(ctx)
		if err != nil {
			return err
		}
		if !status.Configured {
			return common.NewUserError("File storage is not configured on the server: "+status.Message, common.ErrValidation)
		}
	}

	interrupts := cli.NewInterruptHandler(out, "Upload interrupted").
		WithHint("The server may still have received the file. Check the master sheet before retrying.")
	ctx, stop := interrupts.HandleInterrupts(ctx)
	defer stop()

	candidate := attempt.Candidate()
	bar := progressbar.NewOptions64(candidate.Size,
		progressbar.OptionSetWriter(out),
		progressbar.OptionSetDescription("Uploading "+candidate.Name),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetVisibility(showProgress),
	)
	progress := func(sent, _ int64) {
		_ = bar.Set64(sent)
	}

	switch kind {
	case model.UploadDealSummary:
		result, err := in.ProcessDealSummary(ctx, attempt, progress)
		_ = bar.Finish()
		if err != nil {
			return err
		}
		printDealResult(out, result)
	default:
		var result *model.StorageUploadResult
		if kind == model.UploadRawFile {
			result, err = in.UploadRawFile(ctx, attempt, progress)
		} else {
			result, err = in.AnalyzeSpreadsheet(ctx, attempt, progress)
		}
		_ = bar.Finish()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.FormatSuccess(attempt.Message()))
		if result.S3Key != "" {
			fmt.Fprintln(out, cli.SubtitleStyle.Render("Stored as "+result.S3Key))
		}
	}
	return nil
}

func printDealResult(out io.Writer, r *model.DealSummaryUploadResult) {
	switch {
	case r.DuplicateWarning:
		fmt.Fprintln(out, cli.FormatWarning(fmt.Sprintf("Deal %s is already in the master sheet (%s)", r.DealNumber, r.MonthSheet)))
	default:
		fmt.Fprintln(out, cli.FormatSuccess(fmt.Sprintf("Deal %s added to %s", r.DealNumber, r.MonthSheet)))
	}
	if r.KPIsUpdated {
		fmt.Fprintln(out, cli.FormatInfo("KPIs updated"))
	}
	if r.MonthSheet != "" && !r.DuplicateWarning {
		fmt.Fprintln(out, cli.SubtitleStyle.Render(`View it with "showroom master-sheet show --sheet `+r.MonthSheet+`"`))
	}
}

func uploadHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent uploads made from this machine",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			f, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, true, func(ctx context.Context, a *app) error {
				records, err := a.db.RecentUploads(ctx, limit)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f != report.FormatTable {
					return report.Encode(out, f, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(out, cli.FormatInfo("No uploads yet"))
					return nil
				}

				table := cli.NewTable(out, "WHEN", "KIND", "FILE", "SIZE", "RESULT", "MESSAGE")
				for _, r := range records {
					result := cli.ErrorIcon + " failed"
					if r.Succeeded {
						result = cli.SuccessIcon + " ok"
					}
					table.Row(r.CreatedAt.Local().Format("2006-01-02 15:04"), string(r.Kind), r.Filename,
						viewmodel.FormatBytes(r.Size), result, r.Message)
				}
				return table.Flush()
			})
		},
	}
	cmd.Flags().Int("limit", 20, "number of uploads to show")
	addOutputFlag(cmd)
	return cmd
}

func storageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "storage",
		Short: "Server file storage",
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Check whether the server can store raw files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				status, err := a.client.StorageStatus(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f != report.FormatTable {
					return report.Encode(out, f, status)
				}
				if status.Configured {
					fmt.Fprintln(out, cli.FormatSuccess(status.Message))
				} else {
					fmt.Fprintln(out, cli.FormatWarning(status.Message))
				}
				return nil
			})
		},
	}
	addOutputFlag(status)
	cmd.AddCommand(status)
	return cmd
}
