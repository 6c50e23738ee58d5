package symbols

import (
	"pyflow/internal/source"
)

type ScopeID uint32

const NoScopeID ScopeID = 0

func (id ScopeID) IsValid() bool { return id != NoScopeID }

// ScopeKind enumerates supported scope categories.
type ScopeKind uint8

const (
	ScopeInvalid  ScopeKind = iota
	ScopeModule             // top-level statements of a file
	ScopeFunction           // function body
	ScopeClass              // class body
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeModule:
		return "module"
	case ScopeFunction:
		return "function"
	case ScopeClass:
		return "class"
	default:
		return "invalid"
	}
}

// Scope is an ordered name->binding mapping. Parent is a read-only
// back-reference used for lookups only; a child never mutates an
// enclosing scope.
type Scope struct {
	Kind      ScopeKind
	Parent    ScopeID
	Span      source.Span
	NameIndex map[source.StringID]BindingID
	Order     []BindingID // insertion order, for deterministic iteration
}
