package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/showroom/internal/cli"
	"github.com/Veraticus/showroom/internal/common"
	"github.com/Veraticus/showroom/internal/dashboard"
	"github.com/Veraticus/showroom/internal/format"
	"github.com/Veraticus/showroom/internal/model"
	"github.com/Veraticus/showroom/internal/report"
)

func yearsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "years",
		Short: "List the years that have KPI data",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				years, err := a.client.ListYears(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f != report.FormatTable {
					return report.Encode(out, f, years)
				}
				if len(years) == 0 {
					fmt.Fprintln(out, cli.FormatInfo("No KPI data yet. Upload a deal summary to get started."))
					return nil
				}
				for _, y := range years {
					fmt.Fprintln(out, y)
				}
				return nil
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func monthsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "months <year>",
		Short: "List the months of a year that have KPI data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			year, err := parseYear(args[0])
			if err != nil {
				return err
			}
			f, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				months, err := a.client.ListMonths(ctx, year)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f != report.FormatTable {
					return report.Encode(out, f, months)
				}
				for _, m := range months {
					fmt.Fprintln(out, format.Month(m))
				}
				return nil
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func kpisCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kpis",
		Short: "Show monthly KPI snapshots",
	}
	cmd.AddCommand(kpisShowCmd())
	cmd.AddCommand(kpisAllCmd())
	cmd.AddCommand(kpisReportCmd())
	return cmd
}

// cardOptions are the flags that shape which KPIs are shown and how people rank.
type cardOptions struct {
	hidden map[dashboard.KPIID]bool
	metric dashboard.RankingMetric
}

func addCardFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("hide", nil, "KPI ids to hide (e.g. lease,finance,cash)")
	cmd.Flags().String("rank-by", string(dashboard.RankByUnits), "salesperson ranking metric")
}

func readCardFlags(cmd *cobra.Command) (cardOptions, error) {
	opts := cardOptions{hidden: make(map[dashboard.KPIID]bool)}

	hide, _ := cmd.Flags().GetStringSlice("hide")
	for _, h := range hide {
		id, err := dashboard.ParseKPIID(strings.TrimSpace(h))
		if err != nil {
			return opts, common.NewUserError(err.Error(), err)
		}
		opts.hidden[id] = true
	}

	rankBy, _ := cmd.Flags().GetString("rank-by")
	metric, err := dashboard.ParseRankingMetric(rankBy)
	if err != nil {
		return opts, common.NewUserError(err.Error(), err)
	}
	opts.metric = metric
	return opts, nil
}

func (o cardOptions) visible(id dashboard.KPIID) bool {
	return !o.hidden[id]
}

func kpisShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <year> <month>",
		Short: "Show the KPIs of one month",
		Example: `  showroom kpis show 2025 january
  showroom kpis show 2025 march --hide lease,finance,cash --rank-by avg_gross`,
		Args: cobra.ExactArgs(2),
		RunE: runKPIsShow,
	}
	addOutputFlag(cmd)
	addCardFlags(cmd)
	return cmd
}

func runKPIsShow(cmd *cobra.Command, args []string) error {
	year, err := parseYear(args[0])
	if err != nil {
		return err
	}
	month := strings.ToLower(strings.TrimSpace(args[1]))
	f, err := outputFormat(cmd)
	if err != nil {
		return err
	}
	opts, err := readCardFlags(cmd)
	if err != nil {
		return err
	}

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		snap, err := a.client.GetKPIs(ctx, year, month)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if f != report.FormatTable {
			return report.Encode(out, f, snap)
		}
		return printSnapshot(out, snap, format.Period(month, year), opts)
	})
}

func printSnapshot(w io.Writer, snap *model.KPISnapshot, period string, opts cardOptions) error {
	fmt.Fprintln(w, cli.FormatTitle("KPIs · "+period))

	cards := dashboard.FilterCards(dashboard.BuildCards(snap), opts.visible)
	section := ""
	table := cli.NewTable(w)
	for _, c := range cards {
		if c.Section != section {
			if err := table.Flush(); err != nil {
				return err
			}
			section = c.Section
			fmt.Fprintln(w)
			fmt.Fprintln(w, cli.BoldStyle.Render(section))
		}
		table.Row("  "+c.Title, c.Value)
	}
	if err := table.Flush(); err != nil {
		return err
	}

	if len(snap.TopSalespeople) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, cli.BoldStyle.Render("Top Salespeople by "+opts.metric.Label()))
		table = cli.NewTable(w, "  #", "NAME", "UNITS", strings.ToUpper(opts.metric.Label()))
		for _, r := range dashboard.Rank(snap.TopSalespeople, opts.metric) {
			table.Row("  "+strconv.Itoa(r.Rank), r.Salesperson.Name, strconv.Itoa(r.Salesperson.Units), r.Display)
		}
		if err := table.Flush(); err != nil {
			return err
		}
	}

	if len(snap.TopModels) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, cli.BoldStyle.Render("Top Models"))
		table = cli.NewTable(w)
		for _, m := range snap.TopModels {
			table.Row("  "+m.Model, strconv.Itoa(m.Units))
		}
		if err := table.Flush(); err != nil {
			return err
		}
	}

	if snap.Insights != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, cli.BoldStyle.Render("Insights"))
		fmt.Fprintln(w, snap.Insights)
	}
	return nil
}

func kpisAllCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Summarize every month the server has KPIs for",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := outputFormat(cmd)
			if err != nil {
				return err
			}
			return withApp(cmd, false, func(ctx context.Context, a *app) error {
				all, err := a.client.GetAllKPIs(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if f != report.FormatTable {
					return report.Encode(out, f, all)
				}

				keys := make([]string, 0, len(all))
				for k := range all {
					keys = append(keys, k)
				}
				slices.Sort(keys)

				table := cli.NewTable(out, "PERIOD", "UNITS", "AVG GROSS", "F&I PEN", "NEW/USED")
				for _, k := range keys {
					s := all[k]
					table.Row(k,
						strconv.Itoa(s.TotalUnitsSold),
						format.Currency(s.AvgGrossPerUnit),
						format.Percentage(s.FIPenetrationRate),
						format.Ratio(s.NewUsedRatio))
				}
				return table.Flush()
			})
		},
	}
	addOutputFlag(cmd)
	return cmd
}

func kpisReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <year> <month>",
		Short: "Write one month's KPIs as a PDF report",
		Args:  cobra.ExactArgs(2),
		RunE:  runKPIsReport,
	}
	cmd.Flags().String("pdf", "", "output PDF path (required)")
	_ = cmd.MarkFlagRequired("pdf")
	addCardFlags(cmd)
	return cmd
}

func runKPIsReport(cmd *cobra.Command, args []string) error {
	year, err := parseYear(args[0])
	if err != nil {
		return err
	}
	month := strings.ToLower(strings.TrimSpace(args[1]))
	opts, err := readCardFlags(cmd)
	if err != nil {
		return err
	}
	path, _ := cmd.Flags().GetString("pdf")

	return withApp(cmd, false, func(ctx context.Context, a *app) error {
		snap, err := a.client.GetKPIs(ctx, year, month)
		if err != nil {
			return err
		}

		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create report: %w", err)
		}
		err = report.WriteKPIPDF(f, report.KPIReport{
			GeneratedAt: time.Now(),
			Snapshot:    snap,
			Visible:     opts.visible,
			Period:      format.Period(month, year),
			Metric:      opts.metric,
		})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Report written to "+path))
		return nil
	})
}

func parseYear(s string) (int, error) {
	year, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || year <= 0 {
		return 0, common.NewUserError(fmt.Sprintf("%q is not a year", s), dashboard.ErrInvalidYear)
	}
	return year, nil
}
