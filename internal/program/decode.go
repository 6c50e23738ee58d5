// Package program decodes external-parser documents into pyast arenas.
//
// The engine never parses Python text itself. An external parser dumps
// the ast module's node tree as JSON; this package maps that tree onto
// the structured representation, converting 1-based-line/0-based-column
// locations into byte-offset spans against the embedded source. Node
// kinds the engine does not model become opaque nodes rather than
// decode failures.
package program

import (
	"encoding/json"
	"fmt"
	"strings"

	"fortio.org/safecast"

	"pyflow/internal/diag"
	"pyflow/internal/pyast"
	"pyflow/internal/source"
)

// Document is the envelope an external parser hands the engine: the file
// path, its full text, and the ast.Module dump.
type Document struct {
	Path   string          `json:"path"`
	Source string          `json:"source"`
	Module json.RawMessage `json:"module"`
}

// Decoded ties the structured file to its registered source.
type Decoded struct {
	File   pyast.FileID
	Source source.FileID
}

// Decode parses a raw document and lowers it. Only envelope-level
// problems are errors; malformed or unmodeled nodes degrade to opaque
// nodes with a decode diagnostic.
func Decode(data []byte, builder *pyast.Builder, files *source.FileSet, reporter diag.Reporter) (Decoded, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		report(reporter, diag.DecodeInvalidDocument, diag.SevError, source.Span{},
			fmt.Sprintf("document is not valid JSON: %v", err))
		return Decoded{}, fmt.Errorf("decode document: %w", err)
	}
	return DecodeDocument(doc, builder, files, reporter)
}

// DecodeDocument lowers an already-parsed envelope.
func DecodeDocument(doc Document, builder *pyast.Builder, files *source.FileSet, reporter diag.Reporter) (Decoded, error) {
	if len(doc.Module) == 0 || string(doc.Module) == "null" {
		report(reporter, diag.DecodeInvalidDocument, diag.SevError, source.Span{},
			"document carries no module")
		return Decoded{}, fmt.Errorf("decode document %q: no module", doc.Path)
	}

	var mod node
	if err := json.Unmarshal(doc.Module, &mod); err != nil {
		report(reporter, diag.DecodeInvalidDocument, diag.SevError, source.Span{},
			fmt.Sprintf("module is not a node object: %v", err))
		return Decoded{}, fmt.Errorf("decode document %q: %w", doc.Path, err)
	}
	if mod.Type != "Module" {
		report(reporter, diag.DecodeInvalidDocument, diag.SevError, source.Span{},
			fmt.Sprintf("root node is %q, expected Module", mod.Type))
		return Decoded{}, fmt.Errorf("decode document %q: root node %q", doc.Path, mod.Type)
	}

	src := files.Add(doc.Path, []byte(doc.Source), 0)
	content := files.Get(src).Content
	fileSpan := source.Span{File: src, Start: 0, End: u32(len(content))}
	file := builder.NewFile(fileSpan, src)

	d := decoder{
		builder:  builder,
		files:    files,
		reporter: reporter,
		src:      src,
	}
	for i := range mod.Body {
		builder.PushStmt(file, d.stmt(&mod.Body[i]))
	}
	return Decoded{File: file, Source: src}, nil
}

// node is the union of every ast dump field the decoder reads. Which
// fields are meaningful depends on _type; json.RawMessage covers the
// polymorphic ones ("value" is a child node on statements but a scalar
// on Constant, "args" is a list on Call but an object on FunctionDef).
type node struct {
	Type string `json:"_type"`

	Lineno       int `json:"lineno"`
	ColOffset    int `json:"col_offset"`
	EndLineno    int `json:"end_lineno"`
	EndColOffset int `json:"end_col_offset"`

	Body        []node            `json:"body"`
	Targets     []node            `json:"targets"`
	Target      *node             `json:"target"`
	Annotation  *node             `json:"annotation"`
	Value       json.RawMessage   `json:"value"`
	Returns     *node             `json:"returns"`
	Name        string            `json:"name"`
	Args        json.RawMessage   `json:"args"`
	Keywords    []node            `json:"keywords"`
	Func        *node             `json:"func"`
	Attr        string            `json:"attr"`
	ID          string            `json:"id"`
	Arg         string            `json:"arg"`
	Slice       *node             `json:"slice"`
	Elts        []node            `json:"elts"`
	Keys        []json.RawMessage `json:"keys"`
	Values      []node            `json:"values"`
	Left        *node             `json:"left"`
	Right       *node             `json:"right"`
	Op          *node             `json:"op"`
	Operand     *node             `json:"operand"`
	Comparators []node            `json:"comparators"`
}

type argumentsNode struct {
	PosOnly []node `json:"posonlyargs"`
	Args    []node `json:"args"`
	KwOnly  []node `json:"kwonlyargs"`
}

type decoder struct {
	builder  *pyast.Builder
	files    *source.FileSet
	reporter diag.Reporter
	src      source.FileID
}

// Statement kinds the flow checker deliberately steps over. They decode
// to opaque nodes without a diagnostic.
var opaqueStmts = map[string]bool{
	"Import": true, "ImportFrom": true,
	"If": true, "For": true, "While": true, "With": true, "Try": true,
	"AsyncFor": true, "AsyncWith": true, "Match": true, "TryStar": true,
	"Raise": true, "Assert": true, "Delete": true,
	"Global": true, "Nonlocal": true,
	"Break": true, "Continue": true,
}

// Expression kinds that evaluate to Unknown without a diagnostic.
var opaqueExprs = map[string]bool{
	"Lambda": true, "IfExp": true, "NamedExpr": true,
	"ListComp": true, "SetComp": true, "DictComp": true, "GeneratorExp": true,
	"JoinedStr": true, "FormattedValue": true,
	"Await": true, "Yield": true, "YieldFrom": true,
	"Starred": true, "Slice": true,
}

func (d *decoder) stmt(n *node) pyast.StmtID {
	sp := d.span(n)

	switch n.Type {
	case "Assign":
		targets := make([]pyast.ExprID, 0, len(n.Targets))
		for i := range n.Targets {
			targets = append(targets, d.expr(&n.Targets[i]))
		}
		return d.builder.NewStmt(pyast.Stmt{
			Kind:    pyast.StmtAssign,
			Span:    sp,
			Targets: targets,
			Value:   d.exprRaw(n.Value),
		})

	case "AnnAssign":
		st := pyast.Stmt{Kind: pyast.StmtAnnAssign, Span: sp}
		if n.Target != nil {
			st.Targets = []pyast.ExprID{d.expr(n.Target)}
		}
		if n.Annotation != nil {
			st.Ann = d.expr(n.Annotation)
		}
		st.Value = d.exprRaw(n.Value)
		return d.builder.NewStmt(st)

	case "AugAssign":
		// x += v lowers to x = x <op> v: the right-hand side reads the
		// target, the assignment rebinds it.
		if n.Target == nil {
			return d.builder.NewStmt(pyast.Stmt{Kind: pyast.StmtOpaque, Span: sp})
		}
		read := d.expr(n.Target)
		bin := d.builder.NewExpr(pyast.Expr{
			Kind: pyast.ExprBinary,
			Span: sp,
			X:    read,
			Y:    d.exprRaw(n.Value),
			Op:   binOpKind(n.Op),
		})
		return d.builder.NewStmt(pyast.Stmt{
			Kind:    pyast.StmtAssign,
			Span:    sp,
			Targets: []pyast.ExprID{d.expr(n.Target)},
			Value:   bin,
		})

	case "Return":
		return d.builder.NewStmt(pyast.Stmt{
			Kind:  pyast.StmtReturn,
			Span:  sp,
			Value: d.exprRaw(n.Value),
		})

	case "Expr":
		return d.builder.NewStmt(pyast.Stmt{
			Kind:  pyast.StmtExpr,
			Span:  sp,
			Value: d.exprRaw(n.Value),
		})

	case "FunctionDef", "AsyncFunctionDef":
		st := pyast.Stmt{
			Kind: pyast.StmtFunctionDef,
			Span: sp,
			Name: d.builder.Intern(n.Name),
		}
		if n.Returns != nil {
			st.Returns = d.expr(n.Returns)
		}
		st.Params = d.params(n.Args)
		st.Body = d.body(n.Body)
		return d.builder.NewStmt(st)

	case "ClassDef":
		return d.builder.NewStmt(pyast.Stmt{
			Kind: pyast.StmtClassDef,
			Span: sp,
			Name: d.builder.Intern(n.Name),
			Body: d.body(n.Body),
		})

	case "Pass":
		return d.builder.NewStmt(pyast.Stmt{Kind: pyast.StmtPass, Span: sp})

	default:
		if !opaqueStmts[n.Type] {
			d.report(diag.DecodeUnsupportedNode, diag.SevInfo, sp,
				fmt.Sprintf("statement kind %q is not modeled", n.Type))
		}
		return d.builder.NewStmt(pyast.Stmt{Kind: pyast.StmtOpaque, Span: sp})
	}
}

func (d *decoder) body(nodes []node) []pyast.StmtID {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]pyast.StmtID, 0, len(nodes))
	for i := range nodes {
		out = append(out, d.stmt(&nodes[i]))
	}
	return out
}

// params flattens positional-only, regular and keyword-only parameters
// into one list; the engine does not distinguish how they are passed.
func (d *decoder) params(raw json.RawMessage) []pyast.Param {
	args := d.arguments(raw)
	if args == nil {
		return nil
	}
	total := len(args.PosOnly) + len(args.Args) + len(args.KwOnly)
	if total == 0 {
		return nil
	}
	out := make([]pyast.Param, 0, total)
	for _, group := range [][]node{args.PosOnly, args.Args, args.KwOnly} {
		for i := range group {
			a := &group[i]
			p := pyast.Param{
				Name: d.builder.Intern(a.Arg),
				Span: d.span(a),
			}
			if a.Annotation != nil {
				p.Ann = d.expr(a.Annotation)
			}
			out = append(out, p)
		}
	}
	return out
}

func (d *decoder) arguments(raw json.RawMessage) *argumentsNode {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var args argumentsNode
	if err := json.Unmarshal(raw, &args); err != nil {
		d.report(diag.DecodeInvalidDocument, diag.SevWarning, source.Span{File: d.src},
			fmt.Sprintf("malformed arguments node: %v", err))
		return nil
	}
	return &args
}

func (d *decoder) expr(n *node) pyast.ExprID {
	sp := d.span(n)

	switch n.Type {
	case "Name":
		return d.builder.NewExpr(pyast.Expr{
			Kind: pyast.ExprIdent,
			Span: sp,
			Name: d.builder.Intern(n.ID),
		})

	case "Constant":
		return d.constant(n, sp)

	case "Call":
		ex := pyast.Expr{Kind: pyast.ExprCall, Span: sp}
		if n.Func != nil {
			ex.X = d.expr(n.Func)
		}
		// Positional arguments first, then keyword values, the order the
		// call site reads them.
		var args []node
		if len(n.Args) > 0 && string(n.Args) != "null" {
			if err := json.Unmarshal(n.Args, &args); err != nil {
				d.report(diag.DecodeInvalidDocument, diag.SevWarning, sp,
					fmt.Sprintf("malformed call arguments: %v", err))
			}
		}
		ex.Elems = make([]pyast.ExprID, 0, len(args)+len(n.Keywords))
		for i := range args {
			ex.Elems = append(ex.Elems, d.expr(&args[i]))
		}
		for i := range n.Keywords {
			if v := d.rawNode(n.Keywords[i].Value); v != nil {
				ex.Elems = append(ex.Elems, d.expr(v))
			}
		}
		return d.builder.NewExpr(ex)

	case "Attribute":
		ex := pyast.Expr{
			Kind: pyast.ExprAttribute,
			Span: sp,
			Name: d.builder.Intern(n.Attr),
		}
		if base := d.rawNode(n.Value); base != nil {
			ex.X = d.expr(base)
		}
		return d.builder.NewExpr(ex)

	case "Subscript":
		ex := pyast.Expr{Kind: pyast.ExprSubscript, Span: sp}
		if base := d.rawNode(n.Value); base != nil {
			ex.X = d.expr(base)
		}
		if n.Slice != nil {
			ex.Y = d.expr(n.Slice)
		}
		return d.builder.NewExpr(ex)

	case "Tuple":
		return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprTuple, Span: sp, Elems: d.exprList(n.Elts)})
	case "List":
		return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprListLit, Span: sp, Elems: d.exprList(n.Elts)})
	case "Set":
		return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprSetLit, Span: sp, Elems: d.exprList(n.Elts)})

	case "Dict":
		ex := pyast.Expr{Kind: pyast.ExprDictLit, Span: sp}
		ex.Elems = d.exprList(n.Values)
		for _, rawKey := range n.Keys {
			// A null key is a **mapping splat; it contributes no key.
			if k := d.rawNode(rawKey); k != nil {
				ex.Keys = append(ex.Keys, d.expr(k))
			}
		}
		return d.builder.NewExpr(ex)

	case "BinOp":
		ex := pyast.Expr{Kind: pyast.ExprBinary, Span: sp, Op: binOpKind(n.Op)}
		if n.Left != nil {
			ex.X = d.expr(n.Left)
		}
		if n.Right != nil {
			ex.Y = d.expr(n.Right)
		}
		return d.builder.NewExpr(ex)

	case "UnaryOp":
		ex := pyast.Expr{Kind: pyast.ExprUnary, Span: sp, Op: unaryOpKind(n.Op)}
		if n.Operand != nil {
			ex.X = d.expr(n.Operand)
		}
		return d.builder.NewExpr(ex)

	case "Compare":
		ex := pyast.Expr{Kind: pyast.ExprCompare, Span: sp}
		if n.Left != nil {
			ex.X = d.expr(n.Left)
		}
		ex.Elems = d.exprList(n.Comparators)
		return d.builder.NewExpr(ex)

	case "BoolOp":
		ex := pyast.Expr{Kind: pyast.ExprBoolOp, Span: sp, Op: boolOpKind(n.Op)}
		ex.Elems = d.exprList(n.Values)
		return d.builder.NewExpr(ex)

	default:
		if !opaqueExprs[n.Type] {
			d.report(diag.DecodeUnsupportedNode, diag.SevInfo, sp,
				fmt.Sprintf("expression kind %q is not modeled", n.Type))
		}
		return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprOpaque, Span: sp})
	}
}

func (d *decoder) exprList(nodes []node) []pyast.ExprID {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]pyast.ExprID, 0, len(nodes))
	for i := range nodes {
		out = append(out, d.expr(&nodes[i]))
	}
	return out
}

// exprRaw decodes a polymorphic child slot; absent or null yields no
// expression.
func (d *decoder) exprRaw(raw json.RawMessage) pyast.ExprID {
	n := d.rawNode(raw)
	if n == nil {
		return pyast.NoExprID
	}
	return d.expr(n)
}

func (d *decoder) rawNode(raw json.RawMessage) *node {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var n node
	if err := json.Unmarshal(raw, &n); err != nil {
		d.report(diag.DecodeInvalidDocument, diag.SevWarning, source.Span{File: d.src},
			fmt.Sprintf("malformed child node: %v", err))
		return nil
	}
	return &n
}

// constant lowers a Constant node; its "value" slot is a JSON scalar
// rather than a node object.
func (d *decoder) constant(n *node, sp source.Span) pyast.ExprID {
	raw := strings.TrimSpace(string(n.Value))
	switch {
	case raw == "" || raw == "null":
		return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprNoneLit, Span: sp})
	case raw == "true" || raw == "false":
		return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprBoolLit, Span: sp})
	case raw[0] == '"':
		var s string
		if err := json.Unmarshal(n.Value, &s); err != nil {
			d.report(diag.DecodeInvalidDocument, diag.SevWarning, sp,
				fmt.Sprintf("malformed string constant: %v", err))
			return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprOpaque, Span: sp})
		}
		return d.builder.NewExpr(pyast.Expr{
			Kind: pyast.ExprStrLit,
			Span: sp,
			Name: d.builder.Intern(s),
		})
	default:
		var num json.Number
		if err := json.Unmarshal(n.Value, &num); err != nil {
			d.report(diag.DecodeInvalidDocument, diag.SevWarning, sp,
				fmt.Sprintf("malformed constant: %v", err))
			return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprOpaque, Span: sp})
		}
		if strings.ContainsAny(num.String(), ".eE") {
			return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprFloatLit, Span: sp})
		}
		v, err := num.Int64()
		if err != nil {
			return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprFloatLit, Span: sp})
		}
		return d.builder.NewExpr(pyast.Expr{Kind: pyast.ExprIntLit, Span: sp, IntValue: v})
	}
}

// span maps ast locations onto a byte range. Nodes without a location
// (Module, synthesized nodes) get an empty span.
func (d *decoder) span(n *node) source.Span {
	if n == nil || n.Lineno <= 0 {
		return source.Span{File: d.src}
	}
	start := d.files.OffsetOf(d.src, u32(n.Lineno), u32(n.ColOffset))
	endLine, endCol := n.EndLineno, n.EndColOffset
	if endLine <= 0 {
		endLine, endCol = n.Lineno, n.ColOffset
	}
	end := d.files.OffsetOf(d.src, u32(endLine), u32(endCol))
	if end < start {
		d.report(diag.DecodeBadLocation, diag.SevInfo,
			source.Span{File: d.src, Start: start, End: start},
			"node range ends before it starts")
		end = start
	}
	return source.Span{File: d.src, Start: start, End: end}
}

func binOpKind(op *node) pyast.OpKind {
	if op == nil {
		return pyast.OpNone
	}
	switch op.Type {
	case "Add":
		return pyast.OpAdd
	case "Sub":
		return pyast.OpSub
	case "Mult":
		return pyast.OpMul
	case "Div":
		return pyast.OpDiv
	case "FloorDiv":
		return pyast.OpFloorDiv
	case "Mod":
		return pyast.OpMod
	case "Pow":
		return pyast.OpPow
	default:
		// Bitwise and matrix operators promote like plain arithmetic.
		return pyast.OpNone
	}
}

func unaryOpKind(op *node) pyast.OpKind {
	if op == nil {
		return pyast.OpNone
	}
	switch op.Type {
	case "USub":
		return pyast.OpNeg
	case "UAdd":
		return pyast.OpPos
	case "Not":
		return pyast.OpNot
	default:
		return pyast.OpNone
	}
}

func boolOpKind(op *node) pyast.OpKind {
	if op == nil {
		return pyast.OpNone
	}
	switch op.Type {
	case "And":
		return pyast.OpAnd
	case "Or":
		return pyast.OpOr
	default:
		return pyast.OpNone
	}
}

func (d *decoder) report(code diag.Code, sev diag.Severity, span source.Span, msg string) {
	report(d.reporter, code, sev, span, msg)
}

func report(r diag.Reporter, code diag.Code, sev diag.Severity, span source.Span, msg string) {
	if r == nil {
		return
	}
	r.Report(code, sev, span, msg, nil)
}

func u32(v int) uint32 {
	if v < 0 {
		return 0
	}
	out, err := safecast.Conv[uint32](v)
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return out
}
