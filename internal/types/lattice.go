package types

// The numeric promotion lattice: Bool < Int < Float. Promotion only ever
// moves up; an int never silently becomes a bool.

// numericRank returns the position of a kind in the numeric lattice,
// or -1 for non-numeric kinds.
func numericRank(k Kind) int {
	switch k {
	case KindBool:
		return 0
	case KindInt:
		return 1
	case KindFloat:
		return 2
	default:
		return -1
	}
}

// IsNumeric reports whether id participates in numeric promotion.
func (in *Interner) IsNumeric(id TypeID) bool {
	return numericRank(in.Kind(id)) >= 0
}

// Promote returns the least upper bound of two types in the numeric
// lattice. Unknown absorbs anything. For incomparable types it returns
// (NoTypeID, false); lattice operations never panic and never report.
func (in *Interner) Promote(a, b TypeID) (TypeID, bool) {
	ka, kb := in.Kind(a), in.Kind(b)
	if ka == KindUnknown || kb == KindUnknown {
		return in.builtins.Unknown, true
	}
	if a == b && a != NoTypeID {
		return a, true
	}
	ra, rb := numericRank(ka), numericRank(kb)
	if ra < 0 || rb < 0 {
		return NoTypeID, false
	}
	if ra >= rb {
		return a, true
	}
	return b, true
}

// Compatible reports whether a value of type actual may be bound to a
// name declared as declared. Numeric values may promote up the lattice
// into the declared type; Unknown on either side is always compatible;
// Optional accepts None, its inner type, and compatible Optionals.
// Incomparable types are simply incompatible, never an error.
func (in *Interner) Compatible(declared, actual TypeID) bool {
	if declared == NoTypeID || actual == NoTypeID {
		return true
	}
	dt, ok := in.Lookup(declared)
	if !ok {
		return true
	}
	at, ok := in.Lookup(actual)
	if !ok {
		return true
	}
	if dt.Kind == KindUnknown || at.Kind == KindUnknown {
		return true
	}
	if declared == actual {
		return true
	}

	switch dt.Kind {
	case KindBool, KindInt, KindFloat:
		rd, ra := numericRank(dt.Kind), numericRank(at.Kind)
		return ra >= 0 && ra <= rd

	case KindOptional:
		if at.Kind == KindNone {
			return true
		}
		if at.Kind == KindOptional {
			return in.Compatible(dt.Elem, at.Elem)
		}
		return in.Compatible(dt.Elem, actual)

	case KindList, KindSet:
		return at.Kind == dt.Kind && in.Compatible(dt.Elem, at.Elem)

	case KindDict:
		return at.Kind == KindDict &&
			in.Compatible(dt.Key, at.Key) &&
			in.Compatible(dt.Elem, at.Elem)

	case KindTuple:
		if at.Kind != KindTuple {
			return false
		}
		de, ae := in.TupleElems(declared), in.TupleElems(actual)
		if len(de) != len(ae) {
			return false
		}
		for i := range de {
			if !in.Compatible(de[i], ae[i]) {
				return false
			}
		}
		return true

	case KindClass:
		return at.Kind == KindClass && dt.Name == at.Name

	default:
		return false
	}
}
