package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"hourlysheet/app"
	"hourlysheet/domain/activity"
	"hourlysheet/domain/metrics"
	"hourlysheet/domain/production"
	"hourlysheet/internal/testkit"
	"hourlysheet/ports"

	"github.com/spf13/cobra"
)

func newAddCmd() *cobra.Command {
	var in app.RecordInput
	var hour int

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Append one hourly record",
		Long: `Append one hourly record to the data file. The shift is derived from the
hour when --shift is omitted.

Example: hourlysheet add --date 2024-03-01 --hour 9 --machine M1 --operator Asha --product Bracket --target 100 --actual 94`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("hour") {
				in.Hour = &hour
			}
			rec, err := in.Record()
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				stored, err := s.service.AddRecord(ctx, rec)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(stored)
				}
				fmt.Printf("Added %s %02d:00 (%s) for %s\n", stored.DateString(), stored.Hour, stored.Shift, stored.MachineID)
				return nil
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&in.Date, "date", time.Now().Format(production.DateLayout), "Date, YYYY-MM-DD")
	f.IntVar(&hour, "hour", 0, "Hour of day, 0-23 (required)")
	f.StringVar(&in.Shift, "shift", "", "Shift (derived from hour when omitted)")
	f.StringVar(&in.MachineID, "machine", "", "Machine ID")
	f.StringVar(&in.OperatorName, "operator", "", "Operator name")
	f.StringVar(&in.ProductName, "product", "", "Product name")
	f.Float64Var(&in.TargetOutput, "target", 0, "Target output for the hour")
	f.Float64Var(&in.ActualOutput, "actual", 0, "Actual output for the hour")
	f.Float64Var(&in.CumulativeOutput, "cumulative", 0, "Cumulative output so far")
	f.IntVar(&in.DefectsRework, "defects", 0, "Defective or reworked units")
	f.Float64Var(&in.DowntimeMinutes, "downtime", 0, "Downtime minutes")
	f.StringVar(&in.ReasonForDowntime, "reason", "", "Reason for downtime")
	f.StringVar(&in.OperatorRemarks, "remarks", "", "Operator remarks")
	return cmd
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Import an hourly sheet (CSV or XLSX)",
		Long: `Import the rows of an hourly sheet. Rows with invalid values are skipped and
reported. Without a file argument the configured IMPORT_FILE is used.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				path := s.config.Data.ImportFile
				if len(args) == 1 {
					path = args[0]
				}
				result, err := s.service.Import(ctx, path)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(result)
				}
				fmt.Printf("Imported %d records from %s (%d skipped)\n", result.Imported, result.Source, result.Skipped)
				for _, p := range result.Problems {
					fmt.Printf("  line %d: %s\n", p.Line, p.Message)
				}
				return nil
			})
		},
	}
}

func newSearchCmd() *cobra.Command {
	var in app.FilterInput

	cmd := &cobra.Command{
		Use:   "search",
		Short: "List records matching the filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := in.Filters()
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				records, err := s.service.Records(ctx, filters)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(records)
				}
				if len(records) == 0 {
					fmt.Println("No records match.")
					return nil
				}
				printRecords(os.Stdout, records)
				return nil
			})
		},
	}

	addFilterFlags(cmd, &in)
	return cmd
}

func printRecords(w io.Writer, records []production.HourlyRecord) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tHOUR\tSHIFT\tMACHINE\tOPERATOR\tPRODUCT\tTARGET\tACTUAL\tEFF\tDEFECTS\tDOWNTIME\tREASON")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%02d\t%s\t%s\t%s\t%s\t%.0f\t%.0f\t%s\t%d\t%.0f\t%s\n",
			r.DateString(), r.Hour, r.Shift, r.MachineID, r.OperatorName, r.ProductName,
			r.TargetOutput, r.ActualOutput,
			metrics.FormatPercentage(metrics.Efficiency(r.ActualOutput, r.TargetOutput), 1),
			r.DefectsRework, r.DowntimeMinutes, r.ReasonForDowntime)
	}
	tw.Flush()
	fmt.Fprintf(w, "\n%d records\n", len(records))
}

func newExportCmd() *cobra.Command {
	var in app.FilterInput
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export matching records as CSV or XLSX",
		Long: `Export matching records. CSV goes to stdout unless --output is given; XLSX
always needs --output.

Example: hourlysheet export --format xlsx --machine M3 --output m3.xlsx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			exportFormat, err := app.ParseExportFormat(format)
			if err != nil {
				return err
			}
			filters, err := in.Filters()
			if err != nil {
				return err
			}
			if exportFormat == app.FormatXLSX && output == "" {
				return fmt.Errorf("xlsx export needs --output")
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				var w io.Writer = os.Stdout
				if output != "" {
					file, err := os.Create(output)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer file.Close()
					buffered := bufio.NewWriter(file)
					defer buffered.Flush()
					w = buffered
				}

				n, err := s.service.Export(ctx, w, exportFormat, filters)
				if err != nil {
					return err
				}
				if output != "" {
					fmt.Fprintf(os.Stderr, "Exported %d records to %s\n", n, output)
				}
				return nil
			})
		},
	}

	addFilterFlags(cmd, &in)
	cmd.Flags().StringVar(&format, "format", "csv", "Export format: csv|xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file")
	return cmd
}

func newStatsCmd() *cobra.Command {
	var in app.FilterInput

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarise production, defects and downtime",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := in.Filters()
			if err != nil {
				return err
			}
			return withSession(cmd, func(ctx context.Context, s *session) error {
				report, err := s.service.Report(ctx, filters)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(report)
				}
				printReport(report)
				return nil
			})
		},
	}

	addFilterFlags(cmd, &in)
	return cmd
}

func printReport(report *app.Report) {
	st := report.Stats
	fmt.Printf("Records:          %d\n", st.Records)
	if st.FirstDate != nil && st.LastDate != nil {
		fmt.Printf("Period:           %s to %s\n", st.FirstDate.Format(production.DateLayout), st.LastDate.Format(production.DateLayout))
	}
	fmt.Printf("Machines:         %d\n", st.Machines)
	fmt.Printf("Operators:        %d\n", st.Operators)
	fmt.Printf("Total production: %.0f of %.0f target\n", st.TotalProduction, st.TotalTarget)
	fmt.Printf("Efficiency:       %s\n", metrics.FormatPercentage(st.Efficiency, 1))
	fmt.Printf("Defects:          %d (%s)\n", st.TotalDefects, metrics.FormatPercentage(st.DefectRate, 2))
	fmt.Printf("Downtime:         %s\n", duration(st.TotalDowntime))
	fmt.Printf("Model:            %s\n", report.Model.State)

	if len(report.RecentDowntime) > 0 {
		fmt.Println("\nRecent downtime:")
		for _, e := range report.RecentDowntime {
			fmt.Printf("  %s %02d:00 %-4s %s  %s\n", e.Date.Format(production.DateLayout), e.Hour, e.MachineID, duration(e.DowntimeMinutes), e.Reason)
		}
	}
}

func duration(minutes float64) string {
	s, err := metrics.FormatDuration(int(minutes))
	if err != nil {
		return fmt.Sprintf("%.0f min", minutes)
	}
	return s
}

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question...]",
		Short: "Ask a plain-language question about the data",
		Long: `Answer a question such as "which machine had the most downtime?",
"summary for M2", "how did Asha do last shift?" or "total output by shift".`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")
			return withSession(cmd, func(ctx context.Context, s *session) error {
				answer, err := s.service.Ask(ctx, question)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(answer)
				}
				fmt.Println(answer.Text)
				return nil
			})
		},
	}
}

func newFitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fit",
		Short: "Train the downtime risk model on all records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				model, err := s.service.FitModel(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(model)
				}
				fmt.Printf("Trained model %s on %d samples (%d positive), saved to %s\n",
					model.ID, model.Samples, model.Positives, s.config.Data.ModelFile)
				return nil
			})
		},
	}
}

func newPredictCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "predict [machine-id]",
		Short: "Predict a machine's downtime risk",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				p, err := s.service.PredictDowntime(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(p)
				}
				fmt.Printf("Machine %s: %s risk of downtime in the next %d hours (p=%.3f, %d records)\n",
					p.MachineID, p.RiskLevel, p.HorizonHours, p.Probability, p.Records)
				return nil
			})
		},
	}
}

func newTargetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "target [machine-id]",
		Short: "Suggest an hourly production target for a machine",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				suggestion, err := s.service.SuggestTarget(ctx, args[0])
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(suggestion)
				}
				if suggestion.OptimalTarget != nil {
					fmt.Printf("Machine %s: suggested target %.0f per hour (confidence %d%%)\n",
						suggestion.MachineID, *suggestion.OptimalTarget, suggestion.Confidence)
				}
				fmt.Println(suggestion.Message)
				return nil
			})
		},
	}
}

func newAnomaliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "anomalies",
		Short: "Flag unusual hours per machine and product",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				flags, err := s.service.Anomalies(ctx)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(flags)
				}
				if len(flags) == 0 {
					fmt.Println("No anomalies found.")
					return nil
				}
				for _, f := range flags {
					fmt.Printf("[%.0f%%] %s\n", f.Confidence*100, f.Reason)
				}
				fmt.Printf("\n%d anomalies\n", len(flags))
				return nil
			})
		},
	}
}

func newIssueCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "issue [machine-id] [reason...]",
		Short: "Categorise a downtime reason and suggest fixes",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reason := strings.Join(args[1:], " ")
			return withSession(cmd, func(ctx context.Context, s *session) error {
				analysis, err := s.service.AnalyzeIssue(ctx, args[0], reason)
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(analysis)
				}
				fmt.Println(analysis.Text)
				return nil
			})
		},
	}
}

func newHistoryCmd() *cobra.Command {
	var action string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the activity ledger, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(ctx context.Context, s *session) error {
				if !s.config.Ledger.Enabled {
					return fmt.Errorf("the activity ledger is disabled (LEDGER_ENABLED=false)")
				}
				entries, err := s.service.History(ctx, ports.LedgerFilter{Action: activity.Action(action), Limit: limit})
				if err != nil {
					return err
				}
				if jsonOutput {
					return printJSON(entries)
				}
				tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
				fmt.Fprintln(tw, "WHEN\tACTION\tSUBJECT\tRECORDS\tDETAIL")
				for _, e := range entries {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n",
						e.CreatedAt.Local().Format("2006-01-02 15:04:05"), e.Action, e.Subject, e.RecordCount, e.Detail)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&action, "action", "", "Only this action (append, import, export, ask, fit, predict, anomalies, issue, seed)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries")
	return cmd
}

func newSeedCmd() *cobra.Command {
	var days int
	var seed int64
	var start string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Append a generated demo hourly sheet",
		Long: `Generate deterministic hourly records for four machines across two shifts,
one of them breaking down more often, and append them to the data file.

Example: hourlysheet seed --days 14 --seed 7`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			genConfig := testkit.DefaultSheetConfig()
			genConfig.Days = days
			genConfig.Seed = seed
			if start != "" {
				d, err := production.ParseDate(start)
				if err != nil {
					return fmt.Errorf("invalid --start %q, expected YYYY-MM-DD", start)
				}
				genConfig.StartDate = d
			}

			return withSession(cmd, func(ctx context.Context, s *session) error {
				genConfig.Shifts = s.config.Analytics.Shifts
				records := testkit.NewSheetGenerator(genConfig).Generate()
				n, err := s.service.Seed(ctx, records)
				if err != nil {
					return err
				}
				fmt.Printf("Appended %d generated records to %s\n", n, s.config.Data.DataFile)
				return nil
			})
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "Days to generate")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic output")
	cmd.Flags().StringVar(&start, "start", "", "First date, YYYY-MM-DD (default 2024-03-04)")
	return cmd
}
