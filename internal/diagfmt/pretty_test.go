package diagfmt

import (
	"strings"
	"testing"

	"pyflow/internal/diag"
	"pyflow/internal/source"
)

func testBag(t *testing.T) (*diag.Bag, *source.FileSet, source.FileID) {
	t.Helper()
	fs := source.NewFileSet()
	id := fs.Add("sample.py", []byte("counter: int\ncounter = \"x\"\n"), 0)

	bag := diag.NewBag(10)
	bag.Add(diag.New(
		diag.SevError,
		diag.SemaAnnotationMismatch,
		source.Span{File: id, Start: 13, End: 26},
		"cannot assign str to counter: declared as int",
	))
	return bag, fs, id
}

func TestPrettyFormat(t *testing.T) {
	bag, fs, _ := testBag(t)

	var sb strings.Builder
	Pretty(&sb, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	out := sb.String()

	if !strings.HasPrefix(out, "sample.py:2:1: ERROR SEM3002: cannot assign str to counter") {
		t.Fatalf("header line wrong:\n%s", out)
	}
	if !strings.Contains(out, "  counter = \"x\"\n") {
		t.Fatalf("context line missing:\n%s", out)
	}
	if !strings.Contains(out, "  ^~~~~~~~~~~~~\n") {
		t.Fatalf("underline missing or misaligned:\n%s", out)
	}
}

func TestPrettyNotes(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.Add("sample.py", []byte("valid: bool\nvalid: str\n"), 0)

	bag := diag.NewBag(10)
	d := diag.New(
		diag.SevError,
		diag.SemaRedeclarationConflict,
		source.Span{File: id, Start: 12, End: 17},
		"conflicting redeclaration of 'valid': already declared as bool",
	).WithNote(source.Span{File: id, Start: 0, End: 5}, "previous declaration here")
	bag.Add(d)

	var sb strings.Builder
	Pretty(&sb, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	out := sb.String()

	if !strings.Contains(out, "sample.py:1:1: INFO note: previous declaration here") {
		t.Fatalf("note line missing:\n%s", out)
	}

	sb.Reset()
	Pretty(&sb, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	if strings.Contains(sb.String(), "previous declaration here") {
		t.Fatalf("notes printed despite ShowNotes=false")
	}
}

func TestPrettyContextLines(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.Add("sample.py", []byte("a = 1\nb = 2\nc = undefined\n"), 0)

	bag := diag.NewBag(10)
	bag.Add(diag.New(
		diag.SevError,
		diag.SemaUndefinedName,
		source.Span{File: id, Start: 16, End: 25},
		"undefined name 'undefined'",
	))

	var sb strings.Builder
	Pretty(&sb, bag, fs, PrettyOpts{PathMode: PathModeBasename, Context: 2})
	out := sb.String()

	if !strings.Contains(out, "  a = 1\n  b = 2\n  c = undefined\n") {
		t.Fatalf("leading context missing:\n%s", out)
	}
}
