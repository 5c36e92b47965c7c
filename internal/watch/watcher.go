// Package watch re-checks a dataset file whenever it changes on disk and
// reports cell-level numeric changes against the previous observation.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/admission-watch/internal/model"
	"github.com/sells-group/admission-watch/internal/resilience"
)

// Loader reads the rows of a dataset file.
type Loader interface {
	Load(ctx context.Context, path string) ([]model.Row, error)
}

// Notifier delivers a non-empty change sequence detected in source.
type Notifier interface {
	Notify(ctx context.Context, source string, changes []model.ChangeRecord) error
}

// Options configures a Watcher.
type Options struct {
	// Debounce is the quiet interval after the last filesystem event
	// before the file is re-read. Default: 2s.
	Debounce time.Duration
	// Await controls existence polling before the file first appears.
	// Default: every 3s, forever.
	Await resilience.RetryConfig
}

// Phase is where a Watcher is in its lifecycle.
type Phase string

const (
	PhaseStarting     Phase = "starting"
	PhaseAwaitingFile Phase = "awaiting_file"
	PhaseWatching     Phase = "watching"
	PhaseStopped      Phase = "stopped"
)

// Status is a point-in-time view of one Watcher.
type Status struct {
	Path         string     `json:"path"`
	Phase        Phase      `json:"phase"`
	State        string     `json:"state"`
	Baselined    bool       `json:"baselined"`
	BaselineRows int        `json:"baselineRows"`
	LastCheck    *time.Time `json:"lastCheck,omitempty"`
	LastChanges  int        `json:"lastChanges"`
	Checks       int64      `json:"checks"`
	Deliveries   int64      `json:"deliveries"`
	Failures     int64      `json:"failures"`
	LastError    string     `json:"lastError,omitempty"`
}

// Watcher owns the baseline and check cycle for one path. Watchers share
// no state, so several can run in one process.
type Watcher struct {
	path     string
	source   string
	loader   Loader
	notifier Notifier
	opts     Options

	guard cycleGuard
	due   chan struct{}

	mu       sync.Mutex
	phase    Phase
	baseline Baseline
	stats    Status
}

// New creates a Watcher for path.
func New(path string, loader Loader, notifier Notifier, opts Options) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = 2 * time.Second
	}
	if opts.Await.MaxAttempts == 0 {
		opts.Await = resilience.FixedInterval(3*time.Second, resilience.Unlimited)
	}
	return &Watcher{
		path:     path,
		source:   filepath.Base(path),
		loader:   loader,
		notifier: notifier,
		opts:     opts,
		due:      make(chan struct{}, 1),
		phase:    PhaseStarting,
	}
}

// Path returns the watched path.
func (w *Watcher) Path() string { return w.path }

// Run waits for the file to exist, records the initial baseline without
// notifying, then re-checks after each debounced change until ctx is
// cancelled. It returns an error only if the file never appears or the
// filesystem watch cannot be set up.
func (w *Watcher) Run(ctx context.Context) error {
	log := zap.L().With(zap.String("path", w.path))
	defer func() {
		w.guard.Reset()
		w.setPhase(PhaseStopped)
	}()

	if err := w.awaitFile(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return eris.Wrapf(err, "watch: %s never became readable", w.path)
	}

	fw, err := NewFileWatcher(w.path)
	if err != nil {
		return err
	}
	if err := fw.Start(); err != nil {
		_ = fw.Stop()
		return err
	}
	defer fw.Stop() //nolint:errcheck

	debouncer := NewDebouncer(w.opts.Debounce, w.trigger)
	defer debouncer.Stop()

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.work(ctx)
	}()
	defer wg.Wait()
	defer cancel()

	w.setPhase(PhaseWatching)
	log.Info("watch: watching file", zap.Duration("debounce", w.opts.Debounce))
	w.trigger()

	for {
		select {
		case <-ctx.Done():
			log.Info("watch: stopping")
			return nil
		case ev, ok := <-fw.Events():
			if !ok {
				return nil
			}
			log.Debug("watch: file event", zap.String("op", ev.Op.String()))
			debouncer.Trigger()
		case err, ok := <-fw.Errors():
			if !ok {
				return nil
			}
			log.Warn("watch: fsnotify error", zap.Error(err))
		}
	}
}

// Status returns a snapshot of the watcher's state.
func (w *Watcher) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := w.stats
	st.Path = w.path
	st.Phase = w.phase
	st.State = w.guard.State().String()
	st.Baselined = w.baseline.Established()
	st.BaselineRows = w.baseline.Rows()
	if st.LastCheck != nil {
		t := *st.LastCheck
		st.LastCheck = &t
	}
	return st
}

func (w *Watcher) awaitFile(ctx context.Context) error {
	if _, err := os.Stat(w.path); err == nil {
		return nil
	}

	w.setPhase(PhaseAwaitingFile)
	zap.L().Info("watch: waiting for file", zap.String("path", w.path))

	cfg := w.opts.Await
	cfg.ShouldRetry = func(err error) bool {
		return errors.Is(err, fs.ErrNotExist) || resilience.IsTransient(err)
	}
	cfg.OnRetry = resilience.RetryLogger("await file", w.path)

	return resilience.Do(ctx, cfg, func(_ context.Context) error {
		_, err := os.Stat(w.path)
		return err
	})
}

// trigger requests a check. Only a trigger that finds the guard idle
// queues work; the rest mark a follow-up on the running cycle.
func (w *Watcher) trigger() {
	if !w.guard.Begin() {
		zap.L().Debug("watch: check in flight, follow-up queued", zap.String("path", w.path))
		return
	}
	select {
	case w.due <- struct{}{}:
	default:
	}
}

// work is the single worker for this path. Cycles never overlap.
func (w *Watcher) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.due:
			for {
				w.check(ctx)
				if ctx.Err() != nil || !w.guard.Finish() {
					break
				}
			}
		}
	}
}

// check reads the file, diffs it against the baseline, advances the
// baseline and delivers any changes. Read and delivery failures are logged
// and never stop the watcher.
func (w *Watcher) check(ctx context.Context) {
	log := zap.L().With(zap.String("path", w.path))
	start := time.Now()

	rows, err := w.loader.Load(ctx, w.path)
	if err != nil {
		log.Warn("watch: read failed, keeping previous baseline",
			zap.Bool("transient", resilience.IsTransient(err)),
			zap.Error(err),
		)
		w.record(start, 0, err, false)
		return
	}

	current := model.TakeSnapshot(rows)

	w.mu.Lock()
	prev := w.baseline
	next, changes := Recheck(prev, current)
	w.baseline = next
	w.mu.Unlock()

	if !prev.Established() {
		log.Info("watch: baseline established", zap.Int("rows", len(current)))
		w.record(start, 0, nil, false)
		return
	}
	if len(changes) == 0 {
		log.Debug("watch: no numeric changes", zap.Int("rows", len(current)))
		w.record(start, 0, nil, false)
		return
	}

	log.Info("watch: numeric changes detected",
		zap.Int("changes", len(changes)),
		zap.Int("rows", len(current)),
	)
	err = w.notifier.Notify(ctx, w.source, changes)
	if err != nil {
		log.Error("watch: delivery failed", zap.Error(err))
	}
	w.record(start, len(changes), err, true)
}

func (w *Watcher) record(at time.Time, changes int, err error, delivered bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stats.Checks++
	w.stats.LastCheck = &at
	w.stats.LastChanges = changes
	if delivered && err == nil {
		w.stats.Deliveries++
	}
	if err != nil {
		w.stats.Failures++
		w.stats.LastError = err.Error()
	}
}

func (w *Watcher) setPhase(p Phase) {
	w.mu.Lock()
	w.phase = p
	w.mu.Unlock()
}
