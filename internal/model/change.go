package model

import (
	"strconv"
	"strings"
)

// ChangeType tags a ChangeRecord.
type ChangeType string

const (
	ChangeAdded   ChangeType = "added"
	ChangeRemoved ChangeType = "removed"
	ChangeUpdated ChangeType = "updated"
)

// ChangeRecord is one cell-level difference between two snapshots.
// Added carries NewValue, Removed carries OldValue, Updated carries both.
type ChangeRecord struct {
	Type     ChangeType `json:"type"`
	RowKey   RowKey     `json:"rowKey"`
	Column   string     `json:"column"`
	OldValue *float64   `json:"oldValue,omitempty"`
	NewValue *float64   `json:"newValue,omitempty"`
}

// Added records a numeric cell that appeared.
func Added(key RowKey, column string, newValue float64) ChangeRecord {
	return ChangeRecord{Type: ChangeAdded, RowKey: key, Column: column, NewValue: &newValue}
}

// Removed records a numeric cell that disappeared with its row.
func Removed(key RowKey, column string, oldValue float64) ChangeRecord {
	return ChangeRecord{Type: ChangeRemoved, RowKey: key, Column: column, OldValue: &oldValue}
}

// Updated records a numeric cell whose value changed.
func Updated(key RowKey, column string, oldValue, newValue float64) ChangeRecord {
	return ChangeRecord{Type: ChangeUpdated, RowKey: key, Column: column, OldValue: &oldValue, NewValue: &newValue}
}

// Old returns the old value, or 0 when absent.
func (c ChangeRecord) Old() float64 {
	if c.OldValue == nil {
		return 0
	}
	return *c.OldValue
}

// New returns the new value, or 0 when absent.
func (c ChangeRecord) New() float64 {
	if c.NewValue == nil {
		return 0
	}
	return *c.NewValue
}

// Delta returns New() - Old().
func (c ChangeRecord) Delta() float64 {
	return c.New() - c.Old()
}

// ParseNumber coerces a raw cell value to a number. Every character other
// than a digit, '.' or '-' is dropped before parsing. ok is false when
// nothing remains or the remainder does not parse.
func ParseNumber(raw string) (value float64, ok bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			return r
		}
		return -1
	}, raw)
	if cleaned == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// FormatNumber renders a value without trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
