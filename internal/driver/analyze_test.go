package driver

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"pyflow/internal/diag"
	"pyflow/internal/sema"
	"pyflow/internal/source"
)

const mismatchDoc = `{
	"path": "t.py",
	"source": "counter: int\ncounter = \"x\"\n",
	"module": {"_type": "Module", "body": [
		{"_type": "AnnAssign", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 12,
		 "target": {"_type": "Name", "id": "counter", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 7},
		 "annotation": {"_type": "Name", "id": "int", "lineno": 1, "col_offset": 9, "end_lineno": 1, "end_col_offset": 12},
		 "value": null},
		{"_type": "Assign", "lineno": 2, "col_offset": 0, "end_lineno": 2, "end_col_offset": 13,
		 "targets": [{"_type": "Name", "id": "counter", "lineno": 2, "col_offset": 0, "end_lineno": 2, "end_col_offset": 7}],
		 "value": {"_type": "Constant", "value": "x", "lineno": 2, "col_offset": 10, "end_lineno": 2, "end_col_offset": 13}}
	]}
}`

const cleanDoc = `{
	"path": "ok.py",
	"source": "x = 1\n",
	"module": {"_type": "Module", "body": [
		{"_type": "Assign", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 5,
		 "targets": [{"_type": "Name", "id": "x", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 1}],
		 "value": {"_type": "Constant", "value": 1, "lineno": 1, "col_offset": 4, "end_lineno": 1, "end_col_offset": 5}}
	]}
}`

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func testConfig() Config {
	return Config{
		MaxDiagnostics: 100,
		Sema:           sema.DefaultOptions(),
	}
}

func TestAnalyzeFile(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "doc.json", mismatchDoc)

	files := source.NewFileSet()
	res := AnalyzeFile(path, files, testConfig())

	if res.Bag.Len() != 1 || res.Bag.Items()[0].Code != diag.SemaAnnotationMismatch {
		t.Fatalf("diagnostics = %+v, want one AnnotationMismatch", res.Bag.Items())
	}
	if res.FromCache {
		t.Fatalf("first run reported a cache hit")
	}
}

func TestAnalyzeFileMissing(t *testing.T) {
	files := source.NewFileSet()
	res := AnalyzeFile(filepath.Join(t.TempDir(), "absent.json"), files, testConfig())
	if res.Bag.Len() != 1 || res.Bag.Items()[0].Code != diag.IOLoadFileError {
		t.Fatalf("diagnostics = %+v, want one IOLoadFileError", res.Bag.Items())
	}
}

func TestDiskCacheRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "doc.json", mismatchDoc)

	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	cfg := testConfig()
	cfg.Cache = cache

	first := AnalyzeFile(path, source.NewFileSet(), cfg)
	if first.FromCache {
		t.Fatalf("cold cache reported a hit")
	}

	files := source.NewFileSet()
	second := AnalyzeFile(path, files, cfg)
	if !second.FromCache {
		t.Fatalf("warm cache missed")
	}
	if second.Bag.Len() != 1 || second.Bag.Items()[0].Code != diag.SemaAnnotationMismatch {
		t.Fatalf("restored diagnostics = %+v", second.Bag.Items())
	}
	// Restored spans resolve against the re-registered source.
	start, _ := files.Resolve(second.Bag.Items()[0].Primary)
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("restored position = %d:%d, want 2:1", start.Line, start.Col)
	}
}

func TestDiskCacheInvalidatesOnContentChange(t *testing.T) {
	dir := t.TempDir()
	path := writeDoc(t, dir, "doc.json", mismatchDoc)

	cache, err := OpenDiskCacheAt(filepath.Join(dir, "cache"))
	if err != nil {
		t.Fatalf("OpenDiskCacheAt: %v", err)
	}
	cfg := testConfig()
	cfg.Cache = cache

	AnalyzeFile(path, source.NewFileSet(), cfg)
	writeDoc(t, dir, "doc.json", cleanDoc)

	res := AnalyzeFile(path, source.NewFileSet(), cfg)
	if res.FromCache {
		t.Fatalf("changed content still hit the cache")
	}
	if res.Bag.Len() != 0 {
		t.Fatalf("diagnostics = %+v, want none", res.Bag.Items())
	}
}

func TestAnalyzeDir(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.json", mismatchDoc)
	writeDoc(t, dir, "b.json", cleanDoc)
	writeDoc(t, dir, "c.json", "{broken")

	var seen atomic.Int32
	_, results, err := AnalyzeDir(context.Background(), dir, testConfig(), 2, func(FileResult) {
		seen.Add(1)
	})
	if err != nil {
		t.Fatalf("AnalyzeDir: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	if seen.Load() != 3 {
		t.Fatalf("onFile called %d times, want 3", seen.Load())
	}

	// Results follow sorted path order.
	if results[0].Bag.Items()[0].Code != diag.SemaAnnotationMismatch {
		t.Fatalf("a.json diagnostics = %+v", results[0].Bag.Items())
	}
	if results[1].Bag.Len() != 0 {
		t.Fatalf("b.json diagnostics = %+v", results[1].Bag.Items())
	}
	if results[2].Bag.Items()[0].Code != diag.DecodeInvalidDocument {
		t.Fatalf("c.json diagnostics = %+v", results[2].Bag.Items())
	}
}

func TestAnalyzeDirCancellation(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.json", "b.json", "c.json", "d.json"} {
		writeDoc(t, dir, name, cleanDoc)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := AnalyzeDir(ctx, dir, testConfig(), 1, nil)
	if err == nil {
		t.Fatalf("canceled context did not propagate")
	}
}
