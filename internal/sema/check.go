package sema

import (
	"fmt"

	"pyflow/internal/diag"
	"pyflow/internal/pyast"
	"pyflow/internal/source"
	"pyflow/internal/symbols"
	"pyflow/internal/types"
)

// Options configure one analysis pass over a file.
type Options struct {
	Reporter diag.Reporter
	Types    *types.Interner

	// StrictUnknownBuiltins escalates calls to unmodeled builtin names
	// from the silent open-world fallback to an UnknownBuiltin warning.
	StrictUnknownBuiltins bool

	// TreatBoolAsInt lets boolean values participate in numeric promotion
	// (min(True, 0.5) -> float). When false they are rejected as
	// non-numeric.
	TreatBoolAsInt bool

	// StmtBudget caps the number of statements visited; 0 means no cap.
	// The cap is the caller's only cancellation surface: the engine
	// itself never blocks and performs no I/O.
	StmtBudget int
}

// DefaultOptions returns the documented defaults: open-world builtins,
// bool promotes to int.
func DefaultOptions() Options {
	return Options{TreatBoolAsInt: true}
}

// Result stores the artefacts of one pass.
type Result struct {
	TypeInterner *types.Interner
	Table        *symbols.Table
	ExprTypes    map[pyast.ExprID]types.TypeID

	// Truncated is set when the statement budget stopped the walk early.
	Truncated bool
}

// visitState guards against revisiting nested scopes; a well-formed
// program representation is a tree, so Visiting is only ever observed
// when a decoder produced a cyclic body.
type visitState uint8

const (
	stateUnvisited visitState = iota
	stateVisiting
	stateDone
)

// Check runs the flow pass: statements in program order, one scope per
// function body, every finding reported through opts.Reporter. It never
// aborts on a diagnostic; all failures are recoverable by construction.
func Check(builder *pyast.Builder, fileID pyast.FileID, opts Options) Result {
	res := Result{
		ExprTypes: make(map[pyast.ExprID]types.TypeID),
	}
	if opts.Types != nil {
		res.TypeInterner = opts.Types
	} else {
		res.TypeInterner = types.NewInterner()
	}
	res.Table = symbols.NewTable(res.TypeInterner)
	if builder == nil || fileID == pyast.NoFileID {
		return res
	}

	fc := &flowChecker{
		builder:  builder,
		fileID:   fileID,
		reporter: opts.Reporter,
		opts:     opts,
		types:    res.TypeInterner,
		table:    res.Table,
		result:   &res,
		visited:  make(map[pyast.StmtID]visitState),
	}
	fc.run()
	return res
}

type flowChecker struct {
	builder  *pyast.Builder
	fileID   pyast.FileID
	reporter diag.Reporter
	opts     Options
	types    *types.Interner
	table    *symbols.Table
	result   *Result

	scopeStack []symbols.ScopeID
	visited    map[pyast.StmtID]visitState
	stmtCount  int
}

func (fc *flowChecker) run() {
	file := fc.builder.Files.Get(fc.fileID)
	if file == nil {
		return
	}
	module := fc.table.NewScope(symbols.ScopeModule, symbols.NoScopeID, file.Span)
	fc.pushScope(module)
	fc.walkBody(file.Body)
	fc.popScope()
}

func (fc *flowChecker) pushScope(scope symbols.ScopeID) {
	fc.scopeStack = append(fc.scopeStack, scope)
}

func (fc *flowChecker) popScope() {
	if len(fc.scopeStack) == 0 {
		// Engine bug, not an input problem: the walk pushes and pops
		// symmetrically by construction.
		panic("sema: scope stack underflow")
	}
	fc.scopeStack = fc.scopeStack[:len(fc.scopeStack)-1]
}

func (fc *flowChecker) currentScope() symbols.ScopeID {
	if len(fc.scopeStack) == 0 {
		panic("sema: no current scope")
	}
	return fc.scopeStack[len(fc.scopeStack)-1]
}

func (fc *flowChecker) report(code diag.Code, sev diag.Severity, span source.Span, msg string, notes ...diag.Note) {
	if fc.reporter == nil {
		return
	}
	fc.reporter.Report(code, sev, span, msg, notes)
}

// typeString renders a type for a message.
func (fc *flowChecker) typeString(id types.TypeID) string {
	return fc.types.String(id, fc.builder.Names)
}

func (fc *flowChecker) walkBody(body []pyast.StmtID) {
	for _, id := range body {
		if !fc.walkStmt(id) {
			return
		}
	}
}

// walkStmt visits one statement; it returns false when the statement
// budget ran out and the walk must stop.
func (fc *flowChecker) walkStmt(id pyast.StmtID) bool {
	if fc.opts.StmtBudget > 0 && fc.stmtCount >= fc.opts.StmtBudget {
		fc.result.Truncated = true
		return false
	}
	fc.stmtCount++

	stmt := fc.builder.Stmts.Get(id)
	if stmt == nil {
		return true
	}

	switch stmt.Kind {
	case pyast.StmtAnnAssign:
		fc.checkAnnAssign(stmt)
	case pyast.StmtAssign:
		fc.checkAssign(stmt)
	case pyast.StmtReturn, pyast.StmtExpr:
		if stmt.Value.IsValid() {
			fc.evalExpr(stmt.Value)
		}
	case pyast.StmtFunctionDef:
		fc.checkFunctionDef(id, stmt)
	case pyast.StmtClassDef:
		fc.checkClassDef(id, stmt)
	case pyast.StmtPass, pyast.StmtOpaque, pyast.StmtInvalid:
		// Nothing to track.
	}
	return true
}

// checkAnnAssign handles `name: T` and `name: T = value`.
func (fc *flowChecker) checkAnnAssign(stmt *pyast.Stmt) {
	if len(stmt.Targets) == 0 {
		return
	}
	target := fc.builder.Exprs.Get(stmt.Targets[0])
	if target == nil || target.Kind != pyast.ExprIdent {
		// Annotated attribute/subscript targets carry no binding.
		if stmt.Value.IsValid() {
			fc.evalExpr(stmt.Value)
		}
		return
	}

	declared := fc.resolveAnnotation(stmt.Ann)

	// The value is evaluated before the declaration takes effect, the
	// same order Python evaluates an annotated assignment.
	var valueType types.TypeID
	if stmt.Value.IsValid() {
		valueType = fc.evalExpr(stmt.Value)
	}

	decl := fc.table.Declare(fc.currentScope(), target.Name, declared, target.Span)
	if decl.Conflict {
		fc.report(diag.SemaRedeclarationConflict, diag.SevError, target.Span,
			fmt.Sprintf("conflicting redeclaration of '%s': already declared as %s",
				fc.builder.Name(target.Name), fc.typeString(decl.Prev)),
			diag.Note{Span: decl.PrevSpan, Msg: "previous declaration here"})
	}

	if stmt.Value.IsValid() {
		fc.bindChecked(target, valueType, stmt.Span)
	}
}

// checkAssign handles plain assignments, including tuple unpacking and
// chained targets.
func (fc *flowChecker) checkAssign(stmt *pyast.Stmt) {
	if !stmt.Value.IsValid() {
		return
	}
	valueType := fc.evalExpr(stmt.Value)

	for _, targetID := range stmt.Targets {
		target := fc.builder.Exprs.Get(targetID)
		if target == nil {
			continue
		}
		switch target.Kind {
		case pyast.ExprIdent:
			fc.bindChecked(target, valueType, stmt.Span)
		case pyast.ExprTuple, pyast.ExprListLit:
			fc.bindUnpacked(target, stmt.Value, valueType, stmt.Span)
		case pyast.ExprAttribute, pyast.ExprSubscript:
			// Attribute and item stores do not create bindings, but the
			// base (and index) are still reads.
			if target.X.IsValid() {
				fc.evalExpr(target.X)
			}
			if target.Y.IsValid() {
				fc.evalExpr(target.Y)
			}
		}
	}
}

// bindChecked binds an identifier target and reports an incompatible
// assignment at the statement that performed it.
func (fc *flowChecker) bindChecked(target *pyast.Expr, valueType types.TypeID, at source.Span) {
	res := fc.table.Bind(fc.currentScope(), target.Name, valueType, target.Span)
	if res.Incompatible {
		fc.report(diag.SemaAnnotationMismatch, diag.SevError, at,
			fmt.Sprintf("cannot assign %s to '%s' declared as %s",
				fc.typeString(valueType), fc.builder.Name(target.Name), fc.typeString(res.Declared)),
			diag.Note{Span: res.DeclaredSpan, Msg: "declared here"})
	}
}

// bindUnpacked distributes a right-hand side over tuple/list targets.
// Only a literal sequence RHS is arity-checked; a non-literal tuple type
// unpacks element-wise when the arity happens to match and degrades to
// Unknown otherwise.
func (fc *flowChecker) bindUnpacked(target *pyast.Expr, valueID pyast.ExprID, valueType types.TypeID, at source.Span) {
	unknown := fc.types.Builtins().Unknown
	n := len(target.Elems)

	elemTypes := make([]types.TypeID, 0, n)
	value := fc.builder.Exprs.Get(valueID)
	switch {
	case value != nil && (value.Kind == pyast.ExprTuple || value.Kind == pyast.ExprListLit):
		if len(value.Elems) != n {
			fc.report(diag.SemaArityMismatch, diag.SevError, at,
				fmt.Sprintf("expected %d values to unpack, got %d", n, len(value.Elems)))
			break
		}
		for _, e := range value.Elems {
			elemTypes = append(elemTypes, fc.result.ExprTypes[e])
		}
	default:
		if elems := fc.types.TupleElems(valueType); len(elems) == n {
			elemTypes = append(elemTypes, elems...)
		}
	}

	for i, tID := range target.Elems {
		t := fc.builder.Exprs.Get(tID)
		if t == nil || t.Kind != pyast.ExprIdent {
			continue
		}
		et := unknown
		if i < len(elemTypes) && elemTypes[i] != types.NoTypeID {
			et = elemTypes[i]
		}
		fc.bindChecked(t, et, at)
	}
}

// checkFunctionDef binds the function name in the enclosing scope, then
// walks the body in a fresh child scope with parameters pre-bound.
func (fc *flowChecker) checkFunctionDef(id pyast.StmtID, stmt *pyast.Stmt) {
	unknown := fc.types.Builtins().Unknown

	ret := fc.resolveAnnotation(stmt.Returns)
	if ret == types.NoTypeID {
		ret = unknown
	}
	fnType := fc.types.Intern(types.MakeFunction(stmt.Name, ret))
	fc.table.Bind(fc.currentScope(), stmt.Name, fnType, stmt.Span)

	if fc.visited[id] == stateVisiting {
		return
	}
	fc.visited[id] = stateVisiting
	defer func() { fc.visited[id] = stateDone }()

	scope := fc.table.NewScope(symbols.ScopeFunction, fc.currentScope(), stmt.Span)
	fc.pushScope(scope)
	defer fc.popScope()

	for _, p := range stmt.Params {
		pt := fc.resolveAnnotation(p.Ann)
		if pt == types.NoTypeID {
			pt = unknown
		}
		fc.table.Bind(scope, p.Name, pt, p.Span)
	}
	fc.walkBody(stmt.Body)
}

// checkClassDef binds the class name as its constructor so later
// annotations resolve to the class and calls yield instances.
func (fc *flowChecker) checkClassDef(id pyast.StmtID, stmt *pyast.Stmt) {
	instance := fc.types.Intern(types.MakeClass(stmt.Name))
	ctor := fc.types.Intern(types.MakeFunction(stmt.Name, instance))
	fc.table.Bind(fc.currentScope(), stmt.Name, ctor, stmt.Span)

	if fc.visited[id] == stateVisiting {
		return
	}
	fc.visited[id] = stateVisiting
	defer func() { fc.visited[id] = stateDone }()

	scope := fc.table.NewScope(symbols.ScopeClass, fc.currentScope(), stmt.Span)
	fc.pushScope(scope)
	defer fc.popScope()
	fc.walkBody(stmt.Body)
}
