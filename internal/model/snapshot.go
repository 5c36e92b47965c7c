package model

import (
	"sort"
	"strings"
)

// Identity columns that together name one admission row.
const (
	ColumnProgram    = "모집과정"
	ColumnUniversity = "대학"
	ColumnDepartment = "학과"
	ColumnAdmission  = "모집구분"
)

// KeyDelimiter joins identity segments. It is not expected to occur in data.
const KeyDelimiter = "|"

// KeyColumns lists the identity columns in key order.
var KeyColumns = []string{ColumnProgram, ColumnUniversity, ColumnDepartment, ColumnAdmission}

// RowKey identifies the same logical row across observations.
type RowKey string

// BuildRowKey derives the RowKey for a row. Missing identity columns
// contribute an empty segment.
func BuildRowKey(r Row) RowKey {
	parts := make([]string, len(KeyColumns))
	for i, col := range KeyColumns {
		parts[i] = r.Value(col)
	}
	return RowKey(strings.Join(parts, KeyDelimiter))
}

// Part returns the identity value for one of KeyColumns, or "" if the column
// is not an identity column or the key has too few segments.
func (k RowKey) Part(column string) string {
	parts := strings.Split(string(k), KeyDelimiter)
	for i, col := range KeyColumns {
		if col == column && i < len(parts) {
			return parts[i]
		}
	}
	return ""
}

// Snapshot is one observation of the dataset keyed by RowKey.
type Snapshot map[RowKey]Row

// TakeSnapshot keys rows by BuildRowKey. Later rows win on duplicate keys.
func TakeSnapshot(rows []Row) Snapshot {
	snap := make(Snapshot, len(rows))
	for _, r := range rows {
		snap[BuildRowKey(r)] = r
	}
	return snap
}

// Keys returns the snapshot keys in sorted order.
func (s Snapshot) Keys() []RowKey {
	keys := make([]RowKey, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
