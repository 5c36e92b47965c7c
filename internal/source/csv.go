package source

import (
	"regexp"
	"strings"

	"github.com/sells-group/admission-watch/internal/model"
)

var lineBreak = regexp.MustCompile(`\r\n|\r|\n`)

// ParseCSV parses comma-delimited text with a header line. Blank lines are
// skipped, fields are trimmed, and lines shorter than the header get ""
// for the missing trailing columns. Fields beyond the header are dropped.
// Fewer than two non-blank lines yields no rows.
//
// Quoted fields are not supported: a comma always separates fields.
func ParseCSV(text string) []model.Row {
	var records [][]string
	for _, line := range lineBreak.Split(text, -1) {
		if strings.TrimSpace(line) == "" {
			continue
		}
		records = append(records, splitFields(line))
	}
	return recordsToRows(records)
}

func splitFields(line string) []string {
	fields := strings.Split(line, ",")
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}
