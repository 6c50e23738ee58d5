package types

import (
	"strings"

	"pyflow/internal/source"
)

// String renders a TypeID for diagnostics. Class and function names need
// the string interner the program was decoded with.
func (in *Interner) String(id TypeID, names *source.Interner) string {
	t, ok := in.Lookup(id)
	if !ok {
		return "<none>"
	}
	switch t.Kind {
	case KindList, KindSet:
		return t.Kind.String() + "[" + in.String(t.Elem, names) + "]"
	case KindDict:
		return "dict[" + in.String(t.Key, names) + ", " + in.String(t.Elem, names) + "]"
	case KindOptional:
		return "Optional[" + in.String(t.Elem, names) + "]"
	case KindTuple:
		elems := in.TupleElems(id)
		parts := make([]string, len(elems))
		for i, e := range elems {
			parts[i] = in.String(e, names)
		}
		return "tuple[" + strings.Join(parts, ", ") + "]"
	case KindClass:
		if names != nil {
			if s, ok := names.Lookup(t.Name); ok && s != "" {
				return s
			}
		}
		return "class"
	case KindFunction:
		if names != nil {
			if s, ok := names.Lookup(t.Name); ok && s != "" {
				return "def " + s
			}
		}
		return "function"
	default:
		return t.Kind.String()
	}
}
