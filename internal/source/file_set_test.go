package source

import (
	"testing"
)

func TestResolveLineCol(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("test.py", []byte("counter: int\ncounter = 10\n"))

	// "counter" on the second line starts at byte 13.
	start, end := fs.Resolve(Span{File: id, Start: 13, End: 20})
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("start = %+v, want line 2 col 1", start)
	}
	if end.Line != 2 || end.Col != 8 {
		t.Fatalf("end = %+v, want line 2 col 8", end)
	}
}

func TestOffsetOfRoundTrip(t *testing.T) {
	fs := NewFileSet()
	content := "a = 1\nbb = 22\nccc = 333\n"
	id := fs.AddVirtual("test.py", []byte(content))

	// Python ast convention: 1-based line, 0-based column.
	off := fs.OffsetOf(id, 3, 0)
	start, _ := fs.Resolve(Span{File: id, Start: off, End: off})
	if start.Line != 3 || start.Col != 1 {
		t.Fatalf("round trip = %+v, want line 3 col 1", start)
	}

	if got := fs.OffsetOf(id, 99, 0); got != uint32(len(content)) {
		t.Fatalf("out-of-range line should clamp to EOF, got %d", got)
	}
}

func TestAddNormalizesContent(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("crlf.py", []byte("\xEF\xBB\xBFx = 1\r\ny = 2\r\n"))

	f := fs.Get(id)
	if f.Flags&FileHadBOM == 0 {
		t.Fatalf("expected BOM flag")
	}
	if f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("expected CRLF flag")
	}
	if string(f.Content) != "x = 1\ny = 2\n" {
		t.Fatalf("content not normalized: %q", f.Content)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("lines.py", []byte("first\nsecond\nthird"))
	f := fs.Get(id)

	if got := f.GetLine(2); got != "second" {
		t.Fatalf("GetLine(2) = %q", got)
	}
	if got := f.GetLine(3); got != "third" {
		t.Fatalf("GetLine(3) = %q", got)
	}
	if got := f.GetLine(4); got != "" {
		t.Fatalf("GetLine(4) = %q, want empty", got)
	}
}
