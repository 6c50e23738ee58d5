package symbols

import (
	"pyflow/internal/source"
	"pyflow/internal/types"
)

type BindingID uint32

const NoBindingID BindingID = 0

func (id BindingID) IsValid() bool { return id != NoBindingID }

// BindState is the two-state binding lifecycle. An annotation with no
// value produces StateDeclared; the first assignment moves the binding to
// StateBound. There is no runtime "unbound sentinel"; the state machine
// is explicit.
type BindState uint8

const (
	// StateDeclared: annotated, no value yet. Legal until first read.
	StateDeclared BindState = iota
	// StateBound: a value reached the name.
	StateBound
)

func (s BindState) String() string {
	switch s {
	case StateDeclared:
		return "declared"
	case StateBound:
		return "bound"
	}
	return "invalid"
}

// Binding tracks one name in one scope.
//
// Invariants: StateBound implies Bound is set; StateDeclared implies Bound
// is NoTypeID. Declared, once set by an annotation, never changes for the
// binding's lifetime.
type Binding struct {
	Name     source.StringID
	State    BindState
	Declared types.TypeID // NoTypeID when never annotated
	Bound    types.TypeID // NoTypeID while StateDeclared
	Span     source.Span  // declaration or first-binding site
}

// Effective returns the type reads of this binding observe: the bound
// type once bound, the declared type while declared-only.
func (b *Binding) Effective() types.TypeID {
	if b.State == StateBound {
		return b.Bound
	}
	return b.Declared
}
