package watch

import (
	"github.com/sells-group/admission-watch/internal/diff"
	"github.com/sells-group/admission-watch/internal/model"
)

// Baseline is the snapshot the next observation of a path is diffed
// against. The zero value has no snapshot yet.
type Baseline struct {
	snapshot    model.Snapshot
	established bool
}

// Established reports whether an observation has been recorded.
func (b Baseline) Established() bool { return b.established }

// Snapshot returns the recorded snapshot, nil before the first observation.
func (b Baseline) Snapshot() model.Snapshot { return b.snapshot }

// Rows returns the number of rows in the recorded snapshot.
func (b Baseline) Rows() int { return len(b.snapshot) }

// Recheck diffs current against b and returns the baseline to use next.
// The first observation only establishes the baseline and reports nothing.
func Recheck(b Baseline, current model.Snapshot) (Baseline, []model.ChangeRecord) {
	next := Baseline{snapshot: current, established: true}
	if !b.established {
		return next, nil
	}
	return next, diff.Diff(b.snapshot, current)
}
