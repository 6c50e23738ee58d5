package symbols

import (
	"testing"

	"pyflow/internal/source"
	"pyflow/internal/types"
)

func newFixture() (*Table, *types.Interner, *source.Interner) {
	in := types.NewInterner()
	return NewTable(in), in, source.NewInterner()
}

func TestDeclareThenCompatibleBind(t *testing.T) {
	table, in, names := newFixture()
	b := in.Builtins()
	scope := table.NewScope(ScopeModule, NoScopeID, source.Span{})
	counter := names.Intern("counter")

	decl := table.Declare(scope, counter, b.Int, source.Span{Start: 0, End: 7})
	if decl.Conflict {
		t.Fatalf("fresh declare conflicted")
	}
	if got := table.Get(decl.Binding); got.State != StateDeclared || got.Bound != types.NoTypeID {
		t.Fatalf("declared binding in wrong state: %+v", got)
	}

	bind := table.Bind(scope, counter, b.Int, source.Span{Start: 20, End: 27})
	if bind.Incompatible || bind.Created {
		t.Fatalf("compatible bind misreported: %+v", bind)
	}
	got := table.Get(bind.Binding)
	if got.State != StateBound || got.Bound != b.Int {
		t.Fatalf("binding after bind: %+v", got)
	}
}

func TestBindIncompatibleKeepsDeclaredType(t *testing.T) {
	table, in, names := newFixture()
	b := in.Builtins()
	scope := table.NewScope(ScopeModule, NoScopeID, source.Span{})
	counter := names.Intern("counter")

	table.Declare(scope, counter, b.Int, source.Span{})
	bind := table.Bind(scope, counter, b.Str, source.Span{})
	if !bind.Incompatible {
		t.Fatalf("str into int not flagged")
	}
	// The transition still completes and the declared type stays
	// authoritative for subsequent reads.
	got := table.Get(bind.Binding)
	if got.State != StateBound {
		t.Fatalf("binding did not transition: %+v", got)
	}
	if got.Effective() != b.Int {
		t.Fatalf("effective type = %v, want declared int", got.Effective())
	}
}

func TestRedeclarationRules(t *testing.T) {
	table, in, names := newFixture()
	b := in.Builtins()
	scope := table.NewScope(ScopeModule, NoScopeID, source.Span{})
	name := names.Intern("score")

	table.Declare(scope, name, b.Float, source.Span{})

	if res := table.Declare(scope, name, b.Float, source.Span{}); res.Conflict {
		t.Fatalf("re-declaring with the same type must be a no-op")
	}
	if res := table.Declare(scope, name, b.Str, source.Span{}); !res.Conflict || res.Prev != b.Float {
		t.Fatalf("conflicting redeclaration not reported: %+v", res)
	}
	// The original declared type is immutable.
	if got := table.Get(table.Lookup(scope, name).Binding); got.Declared != b.Float {
		t.Fatalf("declared type changed to %v", got.Declared)
	}

	// Declaring after the name is bound is permitted.
	table.Bind(scope, name, b.Float, source.Span{})
	if res := table.Declare(scope, name, b.Int, source.Span{}); res.Conflict {
		t.Fatalf("declare after bind must not conflict")
	}
}

func TestBindWithoutDeclare(t *testing.T) {
	table, in, names := newFixture()
	b := in.Builtins()
	scope := table.NewScope(ScopeModule, NoScopeID, source.Span{})
	name := names.Intern("x")

	res := table.Bind(scope, name, b.Float, source.Span{})
	if !res.Created {
		t.Fatalf("bare assignment should create a binding")
	}
	got := table.Get(res.Binding)
	if got.Declared != types.NoTypeID || got.Bound != b.Float {
		t.Fatalf("bare binding: %+v", got)
	}

	// Reassignment with a different type is fine without an annotation.
	res = table.Bind(scope, name, b.Str, source.Span{})
	if res.Incompatible {
		t.Fatalf("unannotated rebind flagged")
	}
	if table.Get(res.Binding).Bound != b.Str {
		t.Fatalf("rebind did not update bound type")
	}
}

func TestLookupScopeChain(t *testing.T) {
	table, in, names := newFixture()
	b := in.Builtins()
	module := table.NewScope(ScopeModule, NoScopeID, source.Span{})
	fn := table.NewScope(ScopeFunction, module, source.Span{})
	name := names.Intern("total")

	table.Bind(module, name, b.Int, source.Span{})

	res := table.Lookup(fn, name)
	if !res.Found || res.Type != b.Int {
		t.Fatalf("lookup through parent failed: %+v", res)
	}

	missing := table.Lookup(fn, names.Intern("nowhere"))
	if missing.Found {
		t.Fatalf("absent name reported found")
	}
	if missing.Type != b.Unknown {
		t.Fatalf("absent name type = %v, want Unknown", missing.Type)
	}
}

func TestLookupDistinguishesDeclaredOnly(t *testing.T) {
	table, in, names := newFixture()
	b := in.Builtins()
	scope := table.NewScope(ScopeModule, NoScopeID, source.Span{})
	name := names.Intern("pending")

	table.Declare(scope, name, b.Str, source.Span{})
	res := table.Lookup(scope, name)
	if !res.Found || res.State != StateDeclared {
		t.Fatalf("declared-only lookup: %+v", res)
	}
	// Reads still observe the declared type, keeping downstream checks
	// informative rather than cascading into Unknown.
	if res.Type != b.Str {
		t.Fatalf("declared-only effective type = %v", res.Type)
	}
}
