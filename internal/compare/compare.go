// Package compare diffs the two most recent dated exports in a directory.
// Unlike the live watcher it has no first-run suppression: an empty
// previous export reports every numeric cell as added.
package compare

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/sells-group/admission-watch/internal/diff"
	"github.com/sells-group/admission-watch/internal/model"
	"github.com/sells-group/admission-watch/internal/notify"
	"github.com/sells-group/admission-watch/internal/source"
)

// Result is the outcome of one comparison.
type Result struct {
	Latest   source.Artifact      `json:"latest"`
	Previous source.Artifact      `json:"previous"`
	Changes  []model.ChangeRecord `json:"changes"`
	Counts   diff.Counts          `json:"counts"`
}

// Compare loads the latest and previous artifacts named <prefix>_<stamp>.json
// in dir and diffs them. When columns is non-empty only changes in those
// columns are kept. Fewer than two artifacts yields an error matching
// source.ErrInsufficientHistory.
func Compare(ctx context.Context, dir, prefix string, columns []string) (*Result, error) {
	latest, previous, err := source.LatestPair(dir, prefix)
	if err != nil {
		return nil, err
	}

	prevRows, err := source.LoadJSONRows(ctx, previous.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "compare: load previous %s", previous.Name)
	}
	currRows, err := source.LoadJSONRows(ctx, latest.Path)
	if err != nil {
		return nil, eris.Wrapf(err, "compare: load latest %s", latest.Name)
	}

	changes := diff.FilterColumns(
		diff.Diff(model.TakeSnapshot(prevRows), model.TakeSnapshot(currRows)),
		columns...,
	)
	return &Result{
		Latest:   latest,
		Previous: previous,
		Changes:  changes,
		Counts:   diff.Count(changes),
	}, nil
}

// Notifier delivers a change sequence.
type Notifier interface {
	Notify(ctx context.Context, source string, changes []model.ChangeRecord) error
}

// Runner performs a comparison and delivers the result.
type Runner struct {
	Dir      string
	Prefix   string
	Columns  []string
	Notifier Notifier
}

// Run compares the latest pair and notifies when anything changed. Missing
// history is not an error: it is logged and Run returns a nil Result. A
// delivery failure is returned to the caller.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	res, err := Compare(ctx, r.Dir, r.Prefix, r.Columns)
	if eris.Is(err, source.ErrInsufficientHistory) {
		zap.L().Info("compare: fewer than two exports, nothing to compare",
			zap.String("dir", r.Dir),
			zap.String("prefix", r.Prefix),
		)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("latest", res.Latest.Name),
		zap.String("previous", res.Previous.Name),
	)
	if len(res.Changes) == 0 {
		log.Info("compare: no changes")
		return res, nil
	}

	log.Info("compare: changes detected",
		zap.Int("added", res.Counts.Added),
		zap.Int("removed", res.Counts.Removed),
		zap.Int("updated", res.Counts.Updated),
	)
	for _, c := range res.Changes {
		log.Info("compare: change", zap.String("line", notify.SummaryLine(c)))
	}

	if r.Notifier != nil {
		if err := r.Notifier.Notify(ctx, res.Latest.Name, res.Changes); err != nil {
			return res, err
		}
	}
	return res, nil
}

// Schedule runs r on the cron expression spec until ctx is cancelled.
// Failed runs are logged and do not stop the schedule. A tick that arrives
// while the previous run is still going is skipped.
func Schedule(ctx context.Context, spec string, r *Runner) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	_, err := c.AddFunc(spec, func() {
		start := time.Now()
		if _, err := r.Run(ctx); err != nil {
			zap.L().Error("compare: scheduled run failed", zap.Error(err))
			return
		}
		zap.L().Debug("compare: scheduled run finished", zap.Duration("elapsed", time.Since(start)))
	})
	if err != nil {
		return eris.Wrapf(err, "compare: invalid schedule %q", spec)
	}

	c.Start()
	zap.L().Info("compare: schedule started", zap.String("schedule", spec))
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
