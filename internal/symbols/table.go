package symbols

import (
	"fmt"

	"fortio.org/safecast"

	"pyflow/internal/source"
	"pyflow/internal/types"
)

// Table owns every scope and binding of one analysis pass. Bindings live
// for the duration of their scope and are dropped with it; the table is
// never shared between passes.
type Table struct {
	scopes   []Scope
	bindings []Binding
	types    *types.Interner
}

func NewTable(in *types.Interner) *Table {
	return &Table{
		scopes:   make([]Scope, 0, 8),
		bindings: make([]Binding, 0, 64),
		types:    in,
	}
}

// NewScope creates a scope chained to parent (NoScopeID for the module
// root) and returns its ID.
func (t *Table) NewScope(kind ScopeKind, parent ScopeID, span source.Span) ScopeID {
	lenScopes, err := safecast.Conv[uint32](len(t.scopes))
	if err != nil {
		panic(fmt.Errorf("scope count overflow: %w", err))
	}
	t.scopes = append(t.scopes, Scope{
		Kind:      kind,
		Parent:    parent,
		Span:      span,
		NameIndex: make(map[source.StringID]BindingID),
	})
	return ScopeID(lenScopes + 1)
}

func (t *Table) Scope(id ScopeID) *Scope {
	if !id.IsValid() || int(id) > len(t.scopes) {
		return nil
	}
	return &t.scopes[id-1]
}

func (t *Table) Get(id BindingID) *Binding {
	if !id.IsValid() || int(id) > len(t.bindings) {
		return nil
	}
	return &t.bindings[id-1]
}

func (t *Table) newBinding(scope ScopeID, b Binding) BindingID {
	lenBindings, err := safecast.Conv[uint32](len(t.bindings))
	if err != nil {
		panic(fmt.Errorf("binding count overflow: %w", err))
	}
	t.bindings = append(t.bindings, b)
	id := BindingID(lenBindings + 1)
	sc := t.Scope(scope)
	if sc == nil {
		panic("symbols: declare into invalid scope")
	}
	sc.NameIndex[b.Name] = id
	sc.Order = append(sc.Order, id)
	return id
}

// DeclareResult reports what Declare did. Conflict is set when the name
// already carries a different declared type in the same scope; the
// original declared type wins (declared types are immutable).
type DeclareResult struct {
	Binding  BindingID
	Conflict bool
	Prev     types.TypeID // previous declared type, set on conflict
	PrevSpan source.Span
}

// Declare records an annotation-only declaration. Re-declaring with the
// same type, or declaring a name that is already Bound, is a no-op on the
// declared type.
func (t *Table) Declare(scope ScopeID, name source.StringID, ty types.TypeID, span source.Span) DeclareResult {
	sc := t.Scope(scope)
	if sc == nil {
		panic("symbols: declare into invalid scope")
	}
	if existing, ok := sc.NameIndex[name]; ok {
		b := t.Get(existing)
		if b.State == StateDeclared && b.Declared != ty {
			return DeclareResult{
				Binding:  existing,
				Conflict: true,
				Prev:     b.Declared,
				PrevSpan: b.Span,
			}
		}
		// Same type again, or already bound: nothing to update.
		return DeclareResult{Binding: existing}
	}

	id := t.newBinding(scope, Binding{
		Name:     name,
		State:    StateDeclared,
		Declared: ty,
		Span:     span,
	})
	return DeclareResult{Binding: id}
}

// BindResult reports what Bind did. Incompatible is set when a declared
// type exists and the bound type does not fit it; the transition still
// completes with the declared type taking precedence for later reads.
type BindResult struct {
	Binding      BindingID
	Created      bool
	Incompatible bool
	Declared     types.TypeID // the declared type, when present
	DeclaredSpan source.Span
}

// Bind records an assignment to name in scope. A fresh name becomes a
// Bound binding without a declared type; a Declared binding transitions
// to Bound; a Bound binding has its bound type replaced.
func (t *Table) Bind(scope ScopeID, name source.StringID, ty types.TypeID, span source.Span) BindResult {
	sc := t.Scope(scope)
	if sc == nil {
		panic("symbols: bind into invalid scope")
	}
	existing, ok := sc.NameIndex[name]
	if !ok {
		id := t.newBinding(scope, Binding{
			Name:  name,
			State: StateBound,
			Bound: ty,
			Span:  span,
		})
		return BindResult{Binding: id, Created: true}
	}

	b := t.Get(existing)
	res := BindResult{
		Binding:      existing,
		Declared:     b.Declared,
		DeclaredSpan: b.Span,
	}
	b.State = StateBound
	if b.Declared != types.NoTypeID && !t.types.Compatible(b.Declared, ty) {
		res.Incompatible = true
		// Best-effort recovery: keep the declared type authoritative so
		// downstream inference stays informative.
		b.Bound = b.Declared
		return res
	}
	b.Bound = ty
	return res
}

// LookupResult distinguishes the three outcomes a read can see:
// a bound name, a declared-only name (deferred but legitimate until
// read), and a name never seen anywhere in the scope chain.
type LookupResult struct {
	Binding BindingID
	State   BindState
	Type    types.TypeID // effective type; Unknown when the name is absent
	Found   bool
}

// Lookup searches scope and its ancestors for name.
func (t *Table) Lookup(scope ScopeID, name source.StringID) LookupResult {
	for id := scope; id.IsValid(); {
		sc := t.Scope(id)
		if sc == nil {
			break
		}
		if bid, ok := sc.NameIndex[name]; ok {
			b := t.Get(bid)
			return LookupResult{
				Binding: bid,
				State:   b.State,
				Type:    b.Effective(),
				Found:   true,
			}
		}
		id = sc.Parent
	}
	return LookupResult{Type: t.types.Builtins().Unknown}
}
