package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"hourlysheet/app"
	"hourlysheet/internal/config"
	"hourlysheet/internal/container"
	"hourlysheet/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globals set by persistent flags
var (
	jsonOutput bool
	verbose    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hourlysheet",
		Short:         "Log hourly production sheets and analyse them",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at the configured level instead of warnings only")

	rootCmd.AddCommand(
		newAddCmd(),
		newImportCmd(),
		newSearchCmd(),
		newExportCmd(),
		newStatsCmd(),
		newAskCmd(),
		newFitCmd(),
		newPredictCmd(),
		newTargetCmd(),
		newAnomaliesCmd(),
		newIssueCmd(),
		newHistoryCmd(),
		newSeedCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// session is the wired application for one command run
type session struct {
	config    *config.Config
	container *container.Container
	service   *app.HourlySheetService
}

// openSession loads configuration and wires the container. The caller must
// call close.
func openSession(ctx context.Context) (*session, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := "warn"
	if verbose {
		level = cfg.Logging.Level
	}
	if err := logging.Init(cfg.Logging.AppEnv, level); err != nil {
		return nil, err
	}

	c, err := container.New(ctx, cfg, logging.GetLogger())
	if err != nil {
		return nil, err
	}
	return &session{config: cfg, container: c, service: c.Service}, nil
}

func (s *session) close() {
	if err := s.container.Shutdown(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: failed to close ledger:", err)
	}
	logging.Close()
}

// withSession runs fn against a freshly opened session
func withSession(cmd *cobra.Command, fn func(ctx context.Context, s *session) error) error {
	ctx := cmd.Context()
	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.close()
	return fn(ctx, s)
}

// printJSON writes v indented to stdout
func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

// addFilterFlags binds the record filter flags shared by search, export
// and stats
func addFilterFlags(cmd *cobra.Command, in *app.FilterInput) {
	cmd.Flags().StringVar(&in.MachineID, "machine", "", "Only this machine ID")
	cmd.Flags().StringVar(&in.OperatorName, "operator", "", "Only this operator")
	cmd.Flags().StringVar(&in.Shift, "shift", "", "Only this shift (Morning, Afternoon, Night)")
	cmd.Flags().StringVar(&in.StartDate, "from", "", "First date, YYYY-MM-DD")
	cmd.Flags().StringVar(&in.EndDate, "to", "", "Last date, YYYY-MM-DD")
}
