package diag

import (
	"testing"

	"pyflow/internal/source"
)

func span(file, start, end uint32) source.Span {
	return source.Span{File: source.FileID(file), Start: start, End: end}
}

func TestBagPreservesDetectionOrder(t *testing.T) {
	bag := NewBag(10)
	bag.Add(NewError(SemaUndefinedName, span(0, 20, 27), "undefined name 'result3'"))
	bag.Add(NewError(SemaUndefinedName, span(0, 5, 12), "undefined name 'result4'"))

	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("len = %d", len(items))
	}
	// Detection order wins over span order until an explicit Sort.
	if items[0].Primary.Start != 20 {
		t.Fatalf("bag reordered diagnostics: %+v", items[0])
	}
}

func TestBagCap(t *testing.T) {
	bag := NewBag(1)
	if !bag.Add(NewError(SemaUndefinedName, span(0, 0, 1), "first")) {
		t.Fatalf("first add rejected")
	}
	if bag.Add(NewError(SemaUndefinedName, span(0, 1, 2), "second")) {
		t.Fatalf("add over cap accepted")
	}
	if bag.Len() != 1 {
		t.Fatalf("len = %d", bag.Len())
	}
}

func TestBagSeverityQueries(t *testing.T) {
	bag := NewBag(10)
	bag.Add(NewWarning(SemaUnknownAttribute, span(0, 0, 1), "unknown attribute"))
	if bag.HasErrors() {
		t.Fatalf("warning counted as error")
	}
	if !bag.HasWarnings() {
		t.Fatalf("warning not detected")
	}
	bag.Add(NewError(SemaAnnotationMismatch, span(0, 1, 2), "mismatch"))
	if !bag.HasErrors() {
		t.Fatalf("error not detected")
	}
}

func TestBagMergeAndSort(t *testing.T) {
	a := NewBag(1)
	a.Add(NewError(SemaUndefinedName, span(1, 5, 6), "b"))
	b := NewBag(1)
	b.Add(NewError(SemaUndefinedName, span(0, 9, 10), "a"))

	a.Merge(b)
	if a.Len() != 2 {
		t.Fatalf("merge lost items, len = %d", a.Len())
	}
	a.Sort()
	if a.Items()[0].Primary.File != 0 {
		t.Fatalf("sort did not order by file: %+v", a.Items()[0])
	}
}

func TestCodeID(t *testing.T) {
	if got := SemaUseBeforeBind.ID(); got != "SEM3003" {
		t.Fatalf("ID = %q", got)
	}
	if got := DecodeUnsupportedNode.ID(); got != "DEC2002" {
		t.Fatalf("ID = %q", got)
	}
	if got := IOLoadFileError.ID(); got != "IO4001" {
		t.Fatalf("ID = %q", got)
	}
}
