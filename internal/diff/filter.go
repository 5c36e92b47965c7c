package diff

import (
	"github.com/sells-group/admission-watch/internal/model"
)

// Counts tallies records by change type.
type Counts struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Updated int `json:"updated"`
}

// Total returns the number of counted records.
func (c Counts) Total() int {
	return c.Added + c.Removed + c.Updated
}

// Count tallies changes by type.
func Count(changes []model.ChangeRecord) Counts {
	var c Counts
	for _, ch := range changes {
		switch ch.Type {
		case model.ChangeAdded:
			c.Added++
		case model.ChangeRemoved:
			c.Removed++
		case model.ChangeUpdated:
			c.Updated++
		}
	}
	return c
}

// FilterColumns keeps only records for the given columns. With no columns
// the input is returned unchanged.
func FilterColumns(changes []model.ChangeRecord, columns ...string) []model.ChangeRecord {
	if len(columns) == 0 {
		return changes
	}

	keep := make(map[string]bool, len(columns))
	for _, c := range columns {
		keep[c] = true
	}

	out := make([]model.ChangeRecord, 0, len(changes))
	for _, ch := range changes {
		if keep[ch.Column] {
			out = append(out, ch)
		}
	}
	return out
}
