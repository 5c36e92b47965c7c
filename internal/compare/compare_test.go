package compare

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/admission-watch/internal/model"
	"github.com/sells-group/admission-watch/internal/source"
)

const key = model.RowKey("학위과정|서울강서|데이터분석과|일반")

func writeExport(t *testing.T, dir, stamp, applicants, quota string) {
	t.Helper()
	body := `[{"모집과정":"학위과정","대학":"서울강서","학과":"데이터분석과","모집구분":"일반",` +
		`"모집정원":"` + quota + `","접수인원":"` + applicants + `","비고":"-"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kopo_admission_"+stamp+".json"), []byte(body), 0o644))
}

type recordingNotifier struct {
	mu      sync.Mutex
	sources []string
	changes [][]model.ChangeRecord
	err     error
}

func (n *recordingNotifier) Notify(_ context.Context, src string, changes []model.ChangeRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sources = append(n.sources, src)
	n.changes = append(n.changes, changes)
	return n.err
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sources)
}

func TestCompare_LatestPairOnly(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "2025-11-18T09-00-00-000Z", "1", "20")
	writeExport(t, dir, "2025-11-19T09-00-00-000Z", "10", "20")
	writeExport(t, dir, "2025-11-20T09-00-00-000Z", "15", "25")

	res, err := Compare(context.Background(), dir, "kopo_admission", []string{"접수인원"})
	require.NoError(t, err)

	assert.Equal(t, "kopo_admission_2025-11-20T09-00-00-000Z.json", res.Latest.Name)
	assert.Equal(t, "kopo_admission_2025-11-19T09-00-00-000Z.json", res.Previous.Name)
	assert.Equal(t, []model.ChangeRecord{model.Updated(key, "접수인원", 10, 15)}, res.Changes)
	assert.Equal(t, 1, res.Counts.Updated)
}

func TestCompare_AllColumns(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "2025-11-19T09-00-00-000Z", "10", "20")
	writeExport(t, dir, "2025-11-20T09-00-00-000Z", "15", "25")

	res, err := Compare(context.Background(), dir, "kopo_admission", nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []model.ChangeRecord{
		model.Updated(key, "접수인원", 10, 15),
		model.Updated(key, "모집정원", 20, 25),
	}, res.Changes)
}

func TestCompare_EmptyPreviousReportsAdded(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kopo_admission_2025-11-19T09-00-00-000Z.json"), []byte("[]"), 0o644))
	writeExport(t, dir, "2025-11-20T09-00-00-000Z", "5", "20")

	res, err := Compare(context.Background(), dir, "kopo_admission", []string{"접수인원"})
	require.NoError(t, err)
	assert.Equal(t, []model.ChangeRecord{model.Added(key, "접수인원", 5)}, res.Changes)
}

func TestCompare_InsufficientHistory(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "2025-11-20T09-00-00-000Z", "5", "20")

	_, err := Compare(context.Background(), dir, "kopo_admission", nil)
	require.Error(t, err)
	assert.True(t, eris.Is(err, source.ErrInsufficientHistory))
}

func TestCompare_MalformedExport(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "2025-11-19T09-00-00-000Z", "10", "20")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kopo_admission_2025-11-20T09-00-00-000Z.json"), []byte("{"), 0o644))

	_, err := Compare(context.Background(), dir, "kopo_admission", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load latest")
}

func TestRunner_NotifiesOnChange(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "2025-11-19T09-00-00-000Z", "10", "20")
	writeExport(t, dir, "2025-11-20T09-00-00-000Z", "15", "20")

	n := &recordingNotifier{}
	r := &Runner{Dir: dir, Prefix: "kopo_admission", Columns: []string{"접수인원"}, Notifier: n}
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res)
	require.Equal(t, 1, n.count())
	assert.Equal(t, "kopo_admission_2025-11-20T09-00-00-000Z.json", n.sources[0])
}

func TestRunner_NoChangeNoNotify(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "2025-11-19T09-00-00-000Z", "10", "20")
	writeExport(t, dir, "2025-11-20T09-00-00-000Z", "10", "25")

	n := &recordingNotifier{}
	r := &Runner{Dir: dir, Prefix: "kopo_admission", Columns: []string{"접수인원"}, Notifier: n}
	res, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Equal(t, 0, n.count())
}

func TestRunner_InsufficientHistoryIsNotAnError(t *testing.T) {
	n := &recordingNotifier{}
	r := &Runner{Dir: t.TempDir(), Prefix: "kopo_admission", Notifier: n}
	res, err := r.Run(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestRunner_DeliveryFailureReturned(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "2025-11-19T09-00-00-000Z", "10", "20")
	writeExport(t, dir, "2025-11-20T09-00-00-000Z", "15", "20")

	n := &recordingNotifier{err: errors.New("notify: webhook returned 502")}
	r := &Runner{Dir: dir, Prefix: "kopo_admission", Notifier: n}
	res, err := r.Run(context.Background())
	require.Error(t, err)
	assert.NotNil(t, res)
}

func TestSchedule_InvalidSpec(t *testing.T) {
	err := Schedule(context.Background(), "not a cron", &Runner{})
	assert.Error(t, err)
}

func TestSchedule_RunsUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "2025-11-19T09-00-00-000Z", "10", "20")
	writeExport(t, dir, "2025-11-20T09-00-00-000Z", "15", "20")

	n := &recordingNotifier{}
	r := &Runner{Dir: dir, Prefix: "kopo_admission", Notifier: n}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Schedule(ctx, "@every 1s", r) }()

	require.Eventually(t, func() bool { return n.count() >= 1 }, 3*time.Second, 20*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("schedule did not stop")
	}
}

type slowNotifier struct {
	release   chan struct{}
	mu        sync.Mutex
	calls     int
	active    int
	maxActive int
}

func (n *slowNotifier) Notify(ctx context.Context, _ string, _ []model.ChangeRecord) error {
	n.mu.Lock()
	n.calls++
	n.active++
	if n.active > n.maxActive {
		n.maxActive = n.active
	}
	n.mu.Unlock()

	select {
	case <-n.release:
	case <-ctx.Done():
	}

	n.mu.Lock()
	n.active--
	n.mu.Unlock()
	return nil
}

func (n *slowNotifier) snapshot() (calls, maxActive int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls, n.maxActive
}

func TestSchedule_SkipsTickWhileRunning(t *testing.T) {
	dir := t.TempDir()
	writeExport(t, dir, "2025-11-19T09-00-00-000Z", "10", "20")
	writeExport(t, dir, "2025-11-20T09-00-00-000Z", "15", "20")

	n := &slowNotifier{release: make(chan struct{})}
	r := &Runner{Dir: dir, Prefix: "kopo_admission", Notifier: n}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Schedule(ctx, "@every 1s", r) }()

	require.Eventually(t, func() bool {
		calls, _ := n.snapshot()
		return calls >= 1
	}, 3*time.Second, 20*time.Millisecond)

	// At least two more ticks elapse while the first delivery is blocked.
	time.Sleep(2500 * time.Millisecond)
	calls, maxActive := n.snapshot()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, maxActive)

	close(n.release)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("schedule did not stop")
	}
}
