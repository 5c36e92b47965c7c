// Package diff computes cell-level changes between two dataset snapshots.
package diff

import (
	"github.com/sells-group/admission-watch/internal/model"
)

// Diff compares two snapshots and returns one ChangeRecord per numeric cell
// that appeared, disappeared or changed value. Non-numeric cells never
// produce records.
//
// For a key present in both snapshots only the columns of the current row
// are inspected, so a column dropped from a surviving row is not reported.
// Whole-row removal is the only source of Removed records.
//
// Records are grouped by key in sorted key order, and by column order
// within a row. Callers should still treat the result as a set.
func Diff(previous, current model.Snapshot) []model.ChangeRecord {
	var changes []model.ChangeRecord

	for _, key := range unionKeys(previous, current) {
		prevRow, inPrev := previous[key]
		currRow, inCurr := current[key]

		switch {
		case inCurr && !inPrev:
			changes = appendNumeric(changes, currRow, func(col string, v float64) model.ChangeRecord {
				return model.Added(key, col, v)
			})

		case inPrev && !inCurr:
			changes = appendNumeric(changes, prevRow, func(col string, v float64) model.ChangeRecord {
				return model.Removed(key, col, v)
			})

		default:
			changes = append(changes, compareRows(key, prevRow, currRow)...)
		}
	}

	return changes
}

func compareRows(key model.RowKey, prevRow, currRow model.Row) []model.ChangeRecord {
	var changes []model.ChangeRecord

	for _, col := range currRow.Columns() {
		newValue, ok := model.ParseNumber(currRow.Value(col))
		if !ok {
			continue
		}

		oldValue, ok := model.ParseNumber(prevRow.Value(col))
		if !ok {
			changes = append(changes, model.Added(key, col, newValue))
			continue
		}

		if oldValue != newValue {
			changes = append(changes, model.Updated(key, col, oldValue, newValue))
		}
	}

	return changes
}

func appendNumeric(changes []model.ChangeRecord, row model.Row, record func(col string, v float64) model.ChangeRecord) []model.ChangeRecord {
	for _, col := range row.Columns() {
		if v, ok := model.ParseNumber(row.Value(col)); ok {
			changes = append(changes, record(col, v))
		}
	}
	return changes
}

func unionKeys(a, b model.Snapshot) []model.RowKey {
	union := make(model.Snapshot, len(a)+len(b))
	for k := range a {
		union[k] = model.Row{}
	}
	for k := range b {
		union[k] = model.Row{}
	}
	return union.Keys()
}
