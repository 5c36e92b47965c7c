package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"golang.org/x/text/encoding/unicode"

	"github.com/sells-group/admission-watch/internal/diff"
	"github.com/sells-group/admission-watch/internal/model"
)

func writeTestFile(t *testing.T, path string, data []byte) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestParseCSV_Basic(t *testing.T) {
	rows := ParseCSV("A,B,C\n1,2,3\n")
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"A", "B", "C"}, rows[0].Columns())
	assert.Equal(t, "1", rows[0].Value("A"))
	assert.Equal(t, "2", rows[0].Value("B"))
	assert.Equal(t, "3", rows[0].Value("C"))
}

func TestParseCSV_LineEndingsAndBlankLines(t *testing.T) {
	rows := ParseCSV("A,B\r\n1,2\r\n\r\n   \n3,4\r5,6")
	require.Len(t, rows, 3)
	assert.Equal(t, "3", rows[1].Value("A"))
	assert.Equal(t, "6", rows[2].Value("B"))
}

func TestParseCSV_TrimsAndPadsShortLines(t *testing.T) {
	rows := ParseCSV(" 학과 , 접수인원 , 비고 \n 데이터분석과 , 12 \n")
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"학과", "접수인원", "비고"}, rows[0].Columns())
	assert.Equal(t, "데이터분석과", rows[0].Value("학과"))
	assert.Equal(t, "12", rows[0].Value("접수인원"))
	v, ok := rows[0].Get("비고")
	assert.True(t, ok)
	assert.Equal(t, "", v)
}

func TestParseCSV_ExtraFieldsDropped(t *testing.T) {
	rows := ParseCSV("A,B\n1,2,3\n")
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].Len())
}

func TestParseCSV_QuotedCommaIsNotSpecial(t *testing.T) {
	rows := ParseCSV("A,B\n\"x,y\",2\n")
	require.Len(t, rows, 1)
	assert.Equal(t, `"x`, rows[0].Value("A"))
	assert.Equal(t, `y"`, rows[0].Value("B"))
}

func TestParseCSV_TooFewLines(t *testing.T) {
	assert.Empty(t, ParseCSV(""))
	assert.Empty(t, ParseCSV("A,B,C\n"))
	assert.Empty(t, ParseCSV("\n\n  \n"))
}

func TestDecodeText_StripsBOM(t *testing.T) {
	text, err := DecodeText([]byte("\ufeff모집과정,학과\n"))
	require.NoError(t, err)
	assert.Equal(t, "모집과정,학과\n", text)
}

func TestDecodeText_UTF16(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	raw, err := enc.Bytes([]byte("학과,접수인원\n"))
	require.NoError(t, err)

	text, err := DecodeText(raw)
	require.NoError(t, err)
	assert.Equal(t, "학과,접수인원\n", text)
}

func TestLoad_CSVWithBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kopo_admission.csv")
	writeTestFile(t, path, []byte("\ufeff모집과정,대학,학과,모집구분,접수인원\n학위과정,서울강서,데이터분석과,일반,15\n"))

	rows, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.RowKey("학위과정|서울강서|데이터분석과|일반"), model.BuildRowKey(rows[0]))
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(eris.Cause(err)))
}

func TestLoad_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Load(ctx, "whatever.csv")
	assert.Error(t, err)
}

func TestParseJSONRows(t *testing.T) {
	input := `[{"학과":"데이터분석과","접수인원":"15"},{"학과":"AI융합과","접수인원":3}]`
	rows, err := ParseJSONRows(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "15", rows[0].Value("접수인원"))
	assert.Equal(t, "3", rows[1].Value("접수인원"))
}

func TestParseJSONRows_ExponentNumbers(t *testing.T) {
	prev, err := ParseJSONRows(context.Background(), strings.NewReader(`[{"학과":"A","접수인원":1000,"경쟁률":150}]`))
	require.NoError(t, err)
	curr, err := ParseJSONRows(context.Background(), strings.NewReader(`[{"학과":"A","접수인원":1e3,"경쟁률":1.5E+2}]`))
	require.NoError(t, err)
	require.Len(t, curr, 1)

	assert.Equal(t, "1000", curr[0].Value("접수인원"))
	assert.Equal(t, "150", curr[0].Value("경쟁률"))
	assert.Empty(t, diff.Diff(model.TakeSnapshot(prev), model.TakeSnapshot(curr)))
}

func TestParseJSONRows_Empty(t *testing.T) {
	rows, err := ParseJSONRows(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = ParseJSONRows(context.Background(), strings.NewReader("[]"))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestParseJSONRows_Malformed(t *testing.T) {
	_, err := ParseJSONRows(context.Background(), strings.NewReader(`{"not":"array"}`))
	assert.Error(t, err)

	_, err = ParseJSONRows(context.Background(), strings.NewReader(`[{"학과":"A"},`))
	assert.Error(t, err)
}

func TestLoad_JSONByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.json")
	writeTestFile(t, path, []byte(`[{"모집과정":"학위과정","접수인원":"7"}]`))

	rows, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "7", rows[0].Value("접수인원"))
}

func createTestXLSX(t *testing.T, rows [][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("경쟁률")
	require.NoError(t, err)
	for _, rowData := range rows {
		row := sheet.AddRow()
		for _, cellData := range rowData {
			cell := row.AddCell()
			cell.SetString(cellData)
		}
	}
	path := filepath.Join(t.TempDir(), "kopo_admission.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLoad_XLSX(t *testing.T) {
	path := createTestXLSX(t, [][]string{
		{"학과", "모집정원", "접수인원"},
		{"데이터분석과", "20", "15"},
		{"AI융합과", "25"},
	})

	rows, err := Load(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "15", rows[0].Value("접수인원"))
	assert.Equal(t, "", rows[1].Value("접수인원"))
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatCSV, DetectFormat("a.csv"))
	assert.Equal(t, FormatJSON, DetectFormat("a.JSON"))
	assert.Equal(t, FormatXLSX, DetectFormat("/x/a.xlsx"))
	assert.Equal(t, FormatCSV, DetectFormat("noext"))
}

func TestListArtifacts_SelectsLatestPair(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"kopo_admission_2025-11-19T09-00-00-000Z.json",
		"kopo_admission_2025-11-18T23-59-59-999Z.json",
		"kopo_admission_2025-11-20T12-03-54-894Z.json",
		"kopo_admission_2025-11-21.xlsx",
		"other_2025-11-22T00-00-00-000Z.json",
		"kopo_admission_latest.json",
	} {
		writeTestFile(t, filepath.Join(dir, name), []byte("[]"))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "kopo_admission_2025-11-23T00-00-00-000Z.json"), 0o755))

	artifacts, err := ListArtifacts(dir, "kopo_admission")
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	latest, previous, err := LatestPair(dir, "kopo_admission")
	require.NoError(t, err)
	assert.Equal(t, "kopo_admission_2025-11-20T12-03-54-894Z.json", latest.Name)
	assert.Equal(t, "kopo_admission_2025-11-19T09-00-00-000Z.json", previous.Name)
	assert.Equal(t, time.Date(2025, 11, 20, 12, 3, 54, 894_000_000, time.UTC), latest.Timestamp)
	assert.Equal(t, filepath.Join(dir, latest.Name), latest.Path)
}

func TestLatestPair_InsufficientHistory(t *testing.T) {
	dir := t.TempDir()
	writeTestFile(t, filepath.Join(dir, "kopo_admission_2025-11-20T12-03-54-894Z.json"), []byte("[]"))

	_, _, err := LatestPair(dir, "kopo_admission")
	require.Error(t, err)
	assert.True(t, eris.Is(err, ErrInsufficientHistory))
}

func TestLatestPair_MissingDir(t *testing.T) {
	_, _, err := LatestPair(filepath.Join(t.TempDir(), "missing"), "kopo_admission")
	require.Error(t, err)
	assert.False(t, eris.Is(err, ErrInsufficientHistory))
}

// artifactName returns the file name the producer gives an export taken at ts.
func artifactName(prefix string, ts time.Time) string {
	stamp := strings.NewReplacer(":", "-", ".", "-").Replace(ts.UTC().Format(isoMillis))
	return prefix + "_" + stamp + ".json"
}

func TestListArtifacts_ParsesProducerStamp(t *testing.T) {
	dir := t.TempDir()
	older := time.Date(2025, 11, 20, 12, 3, 54, 894_000_000, time.UTC)
	newer := older.Add(90 * time.Second)
	assert.Equal(t, "kopo_admission_2025-11-20T12-03-54-894Z.json", artifactName("kopo_admission", older))

	for _, ts := range []time.Time{older, newer} {
		writeTestFile(t, filepath.Join(dir, artifactName("kopo_admission", ts)), []byte("[]"))
	}

	latest, previous, err := LatestPair(dir, "kopo_admission")
	require.NoError(t, err)
	assert.True(t, newer.Equal(latest.Timestamp))
	assert.True(t, older.Equal(previous.Timestamp))
}
