package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/bytedance/sonic"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/kwsearch"
	"github.com/letmevibethatforyou/kwsearch/internal/worker"
)

var fixedNow = time.Date(2024, 3, 15, 14, 30, 45, 0, time.Local)

func clock() time.Time { return fixedNow }

func testReport() *worker.Report {
	r1 := kwsearch.NewResult("golang", 1, "The Go Programming Language", "https://go.dev/", "Go is an open source language")
	r2 := kwsearch.NewResult("golang", 2, "Go, \"quoted\" title", "https://pkg.go.dev/std", "Standard library,\nwith newline")
	r3 := kwsearch.NewResult("日本語", 1, "日本語のタイトル", "https://example.jp/page", "スニペット")
	for _, r := range []*kwsearch.Result{&r1, &r2, &r3} {
		r.SearchedAt = fixedNow
	}
	return &worker.Report{
		RunID:     "run1",
		Keywords:  3,
		Results:   []kwsearch.Result{r1, r2, r3},
		Processed: 3,
		Failed:    []worker.KeywordError{{Keyword: "broken", Err: errors.New("quota exceeded")}},
		StartedAt: fixedNow,
	}
}

func TestCSVExport(t *testing.T) {
	dir := t.TempDir()
	exp := NewCSV(dir, "search_results", WithClock(clock))

	path, err := exp.Export(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if want := filepath.Join(dir, "search_results_20240315_143045.csv"); path != want {
		t.Errorf("Expected path %s, got %s", want, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}) {
		t.Error("Expected UTF-8 BOM")
	}

	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	if err != nil {
		t.Fatalf("CSV parse failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("Expected header and 3 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != strings.Join(Header, ",") {
		t.Errorf("Unexpected header %v", rows[0])
	}
	if rows[1][0] != "golang" || rows[1][1] != "1" || rows[1][6] != "go.dev" {
		t.Errorf("Unexpected first row %v", rows[1])
	}
	if rows[1][5] != "2024-03-15 14:30:45" {
		t.Errorf("Unexpected timestamp %s", rows[1][5])
	}
	if rows[2][2] != "Go, \"quoted\" title" {
		t.Errorf("Expected quoting preserved, got %q", rows[2][2])
	}
	if rows[3][0] != "日本語" || rows[3][6] != "example.jp" {
		t.Errorf("Unexpected unicode row %v", rows[3])
	}
}

func TestCSVExport_PreventsOverwrite(t *testing.T) {
	dir := t.TempDir()
	exp := NewCSV(dir, "out", WithClock(clock))

	var paths []string
	for i := 0; i < 3; i++ {
		p, err := exp.Export(context.Background(), testReport())
		if err != nil {
			t.Fatalf("Export %d failed: %v", i, err)
		}
		paths = append(paths, filepath.Base(p))
	}

	want := []string{"out_20240315_143045.csv", "out_20240315_143045_001.csv", "out_20240315_143045_002.csv"}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Expected %s, got %s", want[i], paths[i])
		}
	}
}

func TestCSVExport_NoResults(t *testing.T) {
	dir := t.TempDir()
	_, err := NewCSV(dir, "out").Export(context.Background(), &worker.Report{})
	if !errors.Is(err, ErrNoResults) {
		t.Errorf("Expected ErrNoResults, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("Expected no files, got %d", len(entries))
	}
}

func TestCSVExport_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "output")
	if _, err := NewCSV(dir, "out", WithClock(clock)).Export(context.Background(), testReport()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if _, err := os.Stat(dir); err != nil {
		t.Errorf("Expected directory to be created: %v", err)
	}
}

func TestWriteSummary(t *testing.T) {
	dir := t.TempDir()
	exp := NewCSV(dir, "out", WithClock(clock))
	report := testReport()

	csvPath, err := exp.Export(context.Background(), report)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	summaryPath, err := exp.WriteSummary(report, csvPath)
	if err != nil {
		t.Fatalf("WriteSummary failed: %v", err)
	}
	if filepath.Base(summaryPath) != "out_20240315_143045_summary.txt" {
		t.Errorf("Unexpected summary name %s", filepath.Base(summaryPath))
	}

	data, err := os.ReadFile(summaryPath)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	text := string(data)
	for _, want := range []string{
		"Run: run1",
		"Processed: 3",
		"Successful: 2",
		"Failed: 1",
		"Success rate: 66.7%",
		"Results: 3",
		"  1. golang",
		"https://pkg.go.dev/std",
		"broken: quota exceeded",
		"Generated: 2024-03-15 14:30:45",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Expected summary to contain %q", want)
		}
	}
}

func TestJSONExport(t *testing.T) {
	dir := t.TempDir()
	path, err := NewJSON(dir, "out", WithClock(clock)).Export(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if filepath.Base(path) != "out_20240315_143045.json" {
		t.Errorf("Unexpected file name %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var records []map[string]interface{}
	if err := sonic.Unmarshal(data, &records); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("Expected 3 records, got %d", len(records))
	}
	if records[0]["keyword"] != "golang" || records[0]["domain"] != "go.dev" {
		t.Errorf("Unexpected first record %v", records[0])
	}
	if records[0]["rank"] != float64(1) {
		t.Errorf("Expected rank 1, got %v", records[0]["rank"])
	}
	if !strings.Contains(string(data), "\n  {") {
		t.Error("Expected indented output")
	}
}

type mockBatchWriter struct {
	inputs []*dynamodb.BatchWriteItemInput
	err    error
}

func (m *mockBatchWriter) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	m.inputs = append(m.inputs, params)
	if m.err != nil {
		return nil, m.err
	}
	return &dynamodb.BatchWriteItemOutput{}, nil
}

func TestDynamoDBExport(t *testing.T) {
	mock := &mockBatchWriter{}
	loc, err := NewDynamoDB(mock, "results").Export(context.Background(), testReport())
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if !strings.Contains(loc, "results") || !strings.Contains(loc, "3 items") {
		t.Errorf("Unexpected location %s", loc)
	}
	if len(mock.inputs) != 1 || len(mock.inputs[0].RequestItems["results"]) != 3 {
		t.Errorf("Expected one batch of 3 items")
	}

	failing := &mockBatchWriter{err: errors.New("access denied")}
	if _, err := NewDynamoDB(failing, "results").Export(context.Background(), testReport()); err == nil {
		t.Error("Expected error")
	}
	if _, err := NewDynamoDB(mock, "results").Export(context.Background(), &worker.Report{}); !errors.Is(err, ErrNoResults) {
		t.Errorf("Expected ErrNoResults, got %v", err)
	}
}

type mockSaver struct {
	index   string
	objects []map[string]interface{}
	err     error
}

func (m *mockSaver) BatchSaveObjects(ctx context.Context, indexName string, objects []map[string]interface{}) error {
	m.index = indexName
	m.objects = objects
	return m.err
}

func TestAlgoliaExport(t *testing.T) {
	saver := &mockSaver{}
	if _, err := NewAlgolia(saver, "kw-results").Export(context.Background(), testReport()); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if saver.index != "kw-results" {
		t.Errorf("Expected index kw-results, got %s", saver.index)
	}
	if len(saver.objects) != 3 {
		t.Fatalf("Expected 3 objects, got %d", len(saver.objects))
	}

	ids := map[interface{}]bool{}
	for _, obj := range saver.objects {
		if obj["objectID"] == "" || obj["objectID"] == nil {
			t.Error("Expected objectID on every object")
		}
		ids[obj["objectID"]] = true
		if obj["run_id"] != "run1" {
			t.Errorf("Expected run_id run1, got %v", obj["run_id"])
		}
	}
	if len(ids) != 3 {
		t.Error("Expected distinct objectIDs")
	}

	failing := &mockSaver{err: errors.New("forbidden")}
	if _, err := NewAlgolia(failing, "kw-results").Export(context.Background(), testReport()); err == nil {
		t.Error("Expected error")
	}
}
