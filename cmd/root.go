package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/admission-watch/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "admission-watch",
	Short: "Detect admission applicant count changes and post them to a webhook",
	Long:  "Watches admission dataset exports (CSV, JSON or XLSX), diffs numeric cells against the previous observation, and delivers the changes to a webhook as a raw diff or an adaptive card.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
