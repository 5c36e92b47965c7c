package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sells-group/admission-watch/internal/compare"
	"github.com/sells-group/admission-watch/internal/notify"
)

var (
	compareDir      string
	comparePrefix   string
	compareColumns  []string
	compareSchedule string
	compareDryRun   bool
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Diff the two most recent dated exports and post an adaptive card",
	Long:  "Selects the latest and previous <prefix>_<timestamp>.json exports in a directory, diffs them, and posts the changes as an adaptive card. Exits non-zero when delivery fails.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("dir") {
			cfg.Scan.Dir = compareDir
		}
		if cmd.Flags().Changed("prefix") {
			cfg.Scan.Prefix = comparePrefix
		}
		if cmd.Flags().Changed("columns") {
			cfg.Scan.Columns = compareColumns
		}
		if cmd.Flags().Changed("schedule") {
			cfg.Scan.Schedule = compareSchedule
		}

		runner := &compare.Runner{
			Dir:     cfg.Scan.Dir,
			Prefix:  cfg.Scan.Prefix,
			Columns: cfg.Scan.Columns,
		}
		if !compareDryRun {
			if err := cfg.Validate("compare"); err != nil {
				return err
			}
			svc, err := notify.NewServiceFromConfig(cfg.Notify, notify.FormatCard)
			if err != nil {
				return err
			}
			runner.Notifier = svc
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if cfg.Scan.Schedule != "" {
			return compare.Schedule(ctx, cfg.Scan.Schedule, runner)
		}

		res, err := runner.Run(ctx)
		if res != nil {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "latest:   %s\nprevious: %s\n", res.Latest.Name, res.Previous.Name) //nolint:errcheck
			fmt.Fprintf(out, "changes:  %d\n%s", len(res.Changes), notify.RenderSummary(res.Changes)) //nolint:errcheck
		}
		return err
	},
}

func init() {
	compareCmd.Flags().StringVar(&compareDir, "dir", "", "directory holding dated exports (default from config)")
	compareCmd.Flags().StringVar(&comparePrefix, "prefix", "", "export file prefix (default from config)")
	compareCmd.Flags().StringSliceVar(&compareColumns, "columns", nil, "columns to report (default from config)")
	compareCmd.Flags().StringVar(&compareSchedule, "schedule", "", "cron expression to repeat the comparison")
	compareCmd.Flags().BoolVar(&compareDryRun, "dry-run", false, "print changes without posting")
	rootCmd.AddCommand(compareCmd)
}
