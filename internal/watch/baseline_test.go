package watch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/admission-watch/internal/diff"
	"github.com/sells-group/admission-watch/internal/model"
)

func snapshotOf(applicants string) model.Snapshot {
	return model.TakeSnapshot(admissionRows(applicants))
}

func admissionRows(applicants string) []model.Row {
	return []model.Row{model.RowOf(
		model.ColumnProgram, "학위과정",
		model.ColumnUniversity, "서울강서",
		model.ColumnDepartment, "데이터분석과",
		model.ColumnAdmission, "일반",
		"접수인원", applicants,
	)}
}

const admissionKey = model.RowKey("학위과정|서울강서|데이터분석과|일반")

func TestRecheck_FirstObservationIsSilent(t *testing.T) {
	next, changes := Recheck(Baseline{}, snapshotOf("5"))
	assert.Empty(t, changes)
	assert.True(t, next.Established())
	assert.Equal(t, 1, next.Rows())

	// The plain diff against an empty snapshot reports every numeric cell.
	assert.Equal(t, []model.ChangeRecord{model.Added(admissionKey, "접수인원", 5)},
		diff.Diff(model.Snapshot{}, snapshotOf("5")))
}

func TestRecheck_ReportsUpdateAndAdvances(t *testing.T) {
	b, _ := Recheck(Baseline{}, snapshotOf("10"))

	b, changes := Recheck(b, snapshotOf("15"))
	require.Len(t, changes, 1)
	assert.Equal(t, model.Updated(admissionKey, "접수인원", 10, 15), changes[0])
	assert.Equal(t, "15", b.Snapshot()[admissionKey].Value("접수인원"))

	_, changes = Recheck(b, snapshotOf("15"))
	assert.Empty(t, changes)
}

func TestRecheck_EmptyFirstObservation(t *testing.T) {
	b, changes := Recheck(Baseline{}, model.Snapshot{})
	assert.Empty(t, changes)
	assert.True(t, b.Established())

	_, changes = Recheck(b, snapshotOf("5"))
	assert.Equal(t, []model.ChangeRecord{model.Added(admissionKey, "접수인원", 5)}, changes)
}
