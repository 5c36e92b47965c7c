package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/admission-watch/internal/config"
	"github.com/sells-group/admission-watch/internal/notify"
	"github.com/sells-group/admission-watch/internal/resilience"
	"github.com/sells-group/admission-watch/internal/source"
	"github.com/sells-group/admission-watch/internal/status"
	"github.com/sells-group/admission-watch/internal/watch"
)

var (
	watchStatusAddr string
	watchFormat     string
)

var watchCmd = &cobra.Command{
	Use:   "watch [path...]",
	Short: "Watch dataset files and post numeric changes to the webhook",
	Long:  "Waits for each file to exist, records its first observation silently, then re-checks after every debounced change and posts detected changes. Paths default to watch.paths.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) > 0 {
			cfg.Watch.Paths = args
		}
		if cmd.Flags().Changed("status-addr") {
			cfg.Status.Addr = watchStatusAddr
		}
		if cmd.Flags().Changed("format") {
			cfg.Notify.Format = watchFormat
		}
		if err := cfg.Validate("watch"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := notify.NewServiceFromConfig(cfg.Notify, notify.Format(cfg.Notify.Format))
		if err != nil {
			return err
		}

		watchers := buildWatchers(cfg, svc)
		g, gctx := errgroup.WithContext(ctx)
		for _, w := range watchers {
			w := w
			g.Go(func() error { return w.Run(gctx) })
		}

		if cfg.Status.Addr != "" {
			reporters := make([]status.Reporter, 0, len(watchers))
			for _, w := range watchers {
				reporters = append(reporters, w)
			}
			g.Go(func() error { return status.Serve(gctx, cfg.Status.Addr, reporters) })
		}

		zap.L().Info("watch: started",
			zap.Strings("paths", cfg.Watch.Paths),
			zap.String("format", cfg.Notify.Format),
		)
		return g.Wait()
	},
}

// buildWatchers creates one independent Watcher per configured path.
func buildWatchers(c *config.Config, n watch.Notifier) []*watch.Watcher {
	opts := watch.Options{
		Debounce: time.Duration(c.Watch.DebounceMs) * time.Millisecond,
		Await:    resilience.FromPollConfig(c.Watch.AwaitIntervalMs, c.Watch.AwaitAttempts),
	}
	watchers := make([]*watch.Watcher, 0, len(c.Watch.Paths))
	for _, p := range c.Watch.Paths {
		watchers = append(watchers, watch.New(p, source.FileLoader{}, n, opts))
	}
	return watchers
}

func init() {
	watchCmd.Flags().StringVar(&watchStatusAddr, "status-addr", "", "serve watcher status on this address (default from config)")
	watchCmd.Flags().StringVar(&watchFormat, "format", "", "payload format: raw or card (default from config)")
	rootCmd.AddCommand(watchCmd)
}
