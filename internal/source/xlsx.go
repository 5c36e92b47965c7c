package source

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/admission-watch/internal/model"
)

// ReadXLSX reads the first sheet of a workbook. The first non-blank row is
// the header; later rows map onto it by position like ParseCSV.
func ReadXLSX(path string) ([]model.Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "xlsx: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("xlsx: %s has no sheets", path)
	}

	var records [][]string
	for _, row := range f.Sheets[0].Rows {
		if row == nil {
			continue
		}
		cells := rowToStrings(row)
		if isBlank(cells) {
			continue
		}
		records = append(records, cells)
	}
	return recordsToRows(records), nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = strings.TrimSpace(cell.String())
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if c != "" {
			return false
		}
	}
	return true
}

func recordsToRows(records [][]string) []model.Row {
	if len(records) < 2 {
		return []model.Row{}
	}

	headers := records[0]
	rows := make([]model.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		var row model.Row
		for i, h := range headers {
			val := ""
			if i < len(rec) {
				val = rec[i]
			}
			row.Set(h, val)
		}
		rows = append(rows, row)
	}
	return rows
}
