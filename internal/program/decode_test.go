package program

import (
	"strings"
	"testing"

	"pyflow/internal/diag"
	"pyflow/internal/pyast"
	"pyflow/internal/sema"
	"pyflow/internal/source"
	"pyflow/internal/testkit"
)

func decodeString(t *testing.T, doc string) (Decoded, *pyast.Builder, *source.FileSet, *diag.Bag) {
	t.Helper()
	builder := pyast.NewBuilder(pyast.Hints{})
	files := source.NewFileSet()
	bag := diag.NewBag(100)
	dec, err := Decode([]byte(doc), builder, files, diag.BagReporter{Bag: bag})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	return dec, builder, files, bag
}

func analyze(t *testing.T, doc string) (sema.Result, *diag.Bag, *source.FileSet) {
	t.Helper()
	dec, builder, files, bag := decodeString(t, doc)
	res := sema.Check(builder, dec.File, sema.Options{
		Reporter:       diag.BagReporter{Bag: bag},
		TreatBoolAsInt: true,
	})
	return res, bag, files
}

func TestDecodeDeclareThenAssign(t *testing.T) {
	doc := `{
		"path": "t.py",
		"source": "counter: int\ncounter = 10\n",
		"module": {"_type": "Module", "body": [
			{"_type": "AnnAssign", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 12,
			 "target": {"_type": "Name", "id": "counter", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 7},
			 "annotation": {"_type": "Name", "id": "int", "lineno": 1, "col_offset": 9, "end_lineno": 1, "end_col_offset": 12},
			 "value": null},
			{"_type": "Assign", "lineno": 2, "col_offset": 0, "end_lineno": 2, "end_col_offset": 12,
			 "targets": [{"_type": "Name", "id": "counter", "lineno": 2, "col_offset": 0, "end_lineno": 2, "end_col_offset": 7}],
			 "value": {"_type": "Constant", "value": 10, "lineno": 2, "col_offset": 10, "end_lineno": 2, "end_col_offset": 12}}
		]}
	}`
	_, bag, _ := analyze(t, doc)
	if bag.Len() != 0 {
		t.Fatalf("diagnostics = %+v, want none", bag.Items())
	}
}

func TestDecodeAnnotationMismatchLocation(t *testing.T) {
	doc := `{
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
	_, bag, files := analyze(t, doc)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaAnnotationMismatch {
		t.Fatalf("diagnostics = %+v, want one AnnotationMismatch", bag.Items())
	}
	start, _ := files.Resolve(bag.Items()[0].Primary)
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("reported at %d:%d, want 2:1", start.Line, start.Col)
	}
}

func TestDecodeRoundAttributeFixture(t *testing.T) {
	doc := `{
		"path": "round.py",
		"source": "a = 999.999\nresulta = round(a.seconds, 0)\n",
		"module": {"_type": "Module", "body": [
			{"_type": "Assign", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 11,
			 "targets": [{"_type": "Name", "id": "a", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 1}],
			 "value": {"_type": "Constant", "value": 999.999, "lineno": 1, "col_offset": 4, "end_lineno": 1, "end_col_offset": 11}},
			{"_type": "Assign", "lineno": 2, "col_offset": 0, "end_lineno": 2, "end_col_offset": 29,
			 "targets": [{"_type": "Name", "id": "resulta", "lineno": 2, "col_offset": 0, "end_lineno": 2, "end_col_offset": 7}],
			 "value": {"_type": "Call", "lineno": 2, "col_offset": 10, "end_lineno": 2, "end_col_offset": 29,
			   "func": {"_type": "Name", "id": "round", "lineno": 2, "col_offset": 10, "end_lineno": 2, "end_col_offset": 15},
			   "args": [
			     {"_type": "Attribute", "attr": "seconds", "lineno": 2, "col_offset": 16, "end_lineno": 2, "end_col_offset": 25,
			      "value": {"_type": "Name", "id": "a", "lineno": 2, "col_offset": 16, "end_lineno": 2, "end_col_offset": 17}},
			     {"_type": "Constant", "value": 0, "lineno": 2, "col_offset": 27, "end_lineno": 2, "end_col_offset": 28}
			   ],
			   "keywords": []}}
		]}
	}`
	_, bag, files := analyze(t, doc)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaUnknownAttribute {
		t.Fatalf("diagnostics = %+v, want one UnknownAttribute", bag.Items())
	}
	if bag.Items()[0].Severity != diag.SevWarning {
		t.Fatalf("unknown attribute severity = %v, want warning", bag.Items()[0].Severity)
	}
	start, _ := files.Resolve(bag.Items()[0].Primary)
	if start.Line != 2 || start.Col != 17 {
		t.Fatalf("reported at %d:%d, want 2:17", start.Line, start.Col)
	}
}

func TestDecodeKeywordArgumentsCountForArity(t *testing.T) {
	doc := `{
		"path": "t.py",
		"source": "x = round(1.5, ndigits=2)\n",
		"module": {"_type": "Module", "body": [
			{"_type": "Assign", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 25,
			 "targets": [{"_type": "Name", "id": "x", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 1}],
			 "value": {"_type": "Call", "lineno": 1, "col_offset": 4, "end_lineno": 1, "end_col_offset": 25,
			   "func": {"_type": "Name", "id": "round", "lineno": 1, "col_offset": 4, "end_lineno": 1, "end_col_offset": 9},
			   "args": [{"_type": "Constant", "value": 1.5, "lineno": 1, "col_offset": 10, "end_lineno": 1, "end_col_offset": 13}],
			   "keywords": [{"_type": "keyword", "arg": "ndigits",
			     "value": {"_type": "Constant", "value": 2, "lineno": 1, "col_offset": 23, "end_lineno": 1, "end_col_offset": 24}}]}}
		]}
	}`
	res, bag, _ := analyze(t, doc)
	if bag.Len() != 0 {
		t.Fatalf("diagnostics = %+v, want none", bag.Items())
	}
	// x carries round's two-argument float result.
	foundFloat := false
	for _, ty := range res.ExprTypes {
		if ty == res.TypeInterner.Builtins().Float {
			foundFloat = true
		}
	}
	if !foundFloat {
		t.Fatalf("no float-typed expression recorded")
	}
}

func TestDecodeAugAssignLowersToRead(t *testing.T) {
	doc := `{
		"path": "t.py",
		"source": "total += 1\n",
		"module": {"_type": "Module", "body": [
			{"_type": "AugAssign", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 10,
			 "target": {"_type": "Name", "id": "total", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 5},
			 "op": {"_type": "Add"},
			 "value": {"_type": "Constant", "value": 1, "lineno": 1, "col_offset": 9, "end_lineno": 1, "end_col_offset": 10}}
		]}
	}`
	// total is read before any binding exists.
	_, bag, _ := analyze(t, doc)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.SemaUndefinedName {
		t.Fatalf("diagnostics = %+v, want one UndefinedName", bag.Items())
	}
}

func TestDecodeOpaqueStatementsAreSilent(t *testing.T) {
	doc := `{
		"path": "t.py",
		"source": "import os\n",
		"module": {"_type": "Module", "body": [
			{"_type": "Import", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 9},
			{"_type": "SomethingNew", "lineno": 1, "col_offset": 0, "end_lineno": 1, "end_col_offset": 9}
		]}
	}`
	_, _, _, bag := decodeString(t, doc)
	if bag.Len() != 1 || bag.Items()[0].Code != diag.DecodeUnsupportedNode {
		t.Fatalf("diagnostics = %+v, want one DecodeUnsupportedNode", bag.Items())
	}
	if bag.Items()[0].Severity != diag.SevInfo {
		t.Fatalf("unsupported node severity = %v, want info", bag.Items()[0].Severity)
	}
}

func TestDecodeRejectsBadEnvelope(t *testing.T) {
	builder := pyast.NewBuilder(pyast.Hints{})
	files := source.NewFileSet()
	bag := diag.NewBag(10)

	if _, err := Decode([]byte("{not json"), builder, files, diag.BagReporter{Bag: bag}); err == nil {
		t.Fatalf("malformed JSON did not error")
	}
	if _, err := Decode([]byte(`{"path":"t.py","source":"","module":{"_type":"Expr"}}`), builder, files, diag.BagReporter{Bag: bag}); err == nil {
		t.Fatalf("non-Module root did not error")
	}
	if _, err := Decode([]byte(`{"path":"t.py","source":""}`), builder, files, diag.BagReporter{Bag: bag}); err == nil {
		t.Fatalf("missing module did not error")
	}
	for _, d := range bag.Items() {
		if d.Code != diag.DecodeInvalidDocument {
			t.Fatalf("unexpected code %v", d.Code)
		}
	}
}

func TestDecodeFunctionWithParams(t *testing.T) {
	src := strings.Join([]string{
		"def scale(x: float, factor: int) -> float:",
		"    return x * factor",
		"",
	}, "\n")
	doc := `{
		"path": "t.py",
		"source": ` + jsonQuote(src) + `,
		"module": {"_type": "Module", "body": [
			{"_type": "FunctionDef", "name": "scale", "lineno": 1, "col_offset": 0, "end_lineno": 2, "end_col_offset": 21,
			 "args": {"posonlyargs": [], "kwonlyargs": [], "args": [
			   {"_type": "arg", "arg": "x", "lineno": 1, "col_offset": 10, "end_lineno": 1, "end_col_offset": 18,
			    "annotation": {"_type": "Name", "id": "float", "lineno": 1, "col_offset": 13, "end_lineno": 1, "end_col_offset": 18}},
			   {"_type": "arg", "arg": "factor", "lineno": 1, "col_offset": 20, "end_lineno": 1, "end_col_offset": 31,
			    "annotation": {"_type": "Name", "id": "int", "lineno": 1, "col_offset": 28, "end_lineno": 1, "end_col_offset": 31}}
			 ]},
			 "returns": {"_type": "Name", "id": "float", "lineno": 1, "col_offset": 37, "end_lineno": 1, "end_col_offset": 42},
			 "body": [
			   {"_type": "Return", "lineno": 2, "col_offset": 4, "end_lineno": 2, "end_col_offset": 21,
			    "value": {"_type": "BinOp", "lineno": 2, "col_offset": 11, "end_lineno": 2, "end_col_offset": 21,
			      "left": {"_type": "Name", "id": "x", "lineno": 2, "col_offset": 11, "end_lineno": 2, "end_col_offset": 12},
			      "op": {"_type": "Mult"},
			      "right": {"_type": "Name", "id": "factor", "lineno": 2, "col_offset": 15, "end_lineno": 2, "end_col_offset": 21}}}
			 ]}
		]}
	}`
	res, bag, _ := analyze(t, doc)
	if bag.Len() != 0 {
		t.Fatalf("diagnostics = %+v, want none", bag.Items())
	}
	// x * factor promotes float * int to float.
	foundFloat := false
	for _, ty := range res.ExprTypes {
		if ty == res.TypeInterner.Builtins().Float {
			foundFloat = true
		}
	}
	if !foundFloat {
		t.Fatalf("promoted multiply not recorded as float")
	}
}

func TestDecodeSpansStayInsideContent(t *testing.T) {
	doc := `{
		"path": "t.py",
		"source": "def scale(x: float, factor: int):\n    return x * factor\n",
		"module": {"_type": "Module", "body": [
			{"_type": "FunctionDef", "name": "scale", "lineno": 1, "col_offset": 0, "end_lineno": 2, "end_col_offset": 21,
			 "args": {"_type": "arguments", "posonlyargs": [], "kwonlyargs": [],
			  "args": [
			   {"_type": "arg", "arg": "x", "lineno": 1, "col_offset": 10, "end_lineno": 1, "end_col_offset": 18,
			    "annotation": {"_type": "Name", "id": "float", "lineno": 1, "col_offset": 13, "end_lineno": 1, "end_col_offset": 18}},
			   {"_type": "arg", "arg": "factor", "lineno": 1, "col_offset": 20, "end_lineno": 1, "end_col_offset": 31,
			    "annotation": {"_type": "Name", "id": "int", "lineno": 1, "col_offset": 28, "end_lineno": 1, "end_col_offset": 31}}
			  ]},
			 "body": [
			  {"_type": "Return", "lineno": 2, "col_offset": 4, "end_lineno": 2, "end_col_offset": 21,
			   "value": {"_type": "BinOp", "lineno": 2, "col_offset": 11, "end_lineno": 2, "end_col_offset": 21,
			    "left": {"_type": "Name", "id": "x", "lineno": 2, "col_offset": 11, "end_lineno": 2, "end_col_offset": 12},
			    "op": {"_type": "Mult"},
			    "right": {"_type": "Name", "id": "factor", "lineno": 2, "col_offset": 15, "end_lineno": 2, "end_col_offset": 21}}}
			 ]}
		]}
	}`
	dec, builder, files, bag := decodeString(t, doc)
	if bag.Len() != 0 {
		t.Fatalf("diagnostics = %+v, want none", bag.Items())
	}
	if err := testkit.CheckSpanInvariants(builder, dec.File, files.Get(dec.Source)); err != nil {
		t.Fatalf("span invariants: %v", err)
	}
}

func jsonQuote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}
