package notify

import (
	"fmt"
	"strings"

	"github.com/sells-group/admission-watch/internal/model"
)

// SummaryLine renders one change as a human-readable line, e.g.
//
//	  - 데이터분석과 (일반) 접수인원: 10 → 15 (+5)
func SummaryLine(c model.ChangeRecord) string {
	label := fmt.Sprintf("  - %s (%s) %s: ",
		c.RowKey.Part(model.ColumnDepartment),
		c.RowKey.Part(model.ColumnAdmission),
		c.Column,
	)

	switch c.Type {
	case model.ChangeAdded:
		return label + "신규 " + model.FormatNumber(c.New())
	case model.ChangeRemoved:
		return label + "삭제 (이전 " + model.FormatNumber(c.Old()) + ")"
	default:
		return fmt.Sprintf("%s%s → %s (%s)", label,
			model.FormatNumber(c.Old()), model.FormatNumber(c.New()), signed(c.Delta()))
	}
}

// RenderSummary renders every change on its own line.
func RenderSummary(changes []model.ChangeRecord) string {
	var b strings.Builder
	for _, c := range changes {
		b.WriteString(SummaryLine(c))
		b.WriteByte('\n')
	}
	return b.String()
}

func signed(v float64) string {
	if v > 0 {
		return "+" + model.FormatNumber(v)
	}
	return model.FormatNumber(v)
}
