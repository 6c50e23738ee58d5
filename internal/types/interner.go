package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the primitive types every analysis needs.
type Builtins struct {
	Invalid  TypeID
	Unknown  TypeID
	NoneType TypeID
	Bool     TypeID
	Int      TypeID
	Float    TypeID
	Str      TypeID
}

// TupleInfo stores the element list for an interned tuple type.
type TupleInfo struct {
	Elems []TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Type is a flat comparable struct, so the descriptor itself is the key.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	builtins Builtins
	tuples   []TupleInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[Type]TypeID, 64),
	}
	in.tuples = append(in.tuples, TupleInfo{}) // reserve 0 as invalid sentinel
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Unknown = in.Intern(Type{Kind: KindUnknown})
	in.builtins.NoneType = in.Intern(Type{Kind: KindNone})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int = in.Intern(Type{Kind: KindInt})
	in.builtins.Float = in.Intern(Type{Kind: KindFloat})
	in.builtins.Str = in.Intern(Type{Kind: KindStr})
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// InternTuple interns a tuple type with the given element types.
func (in *Interner) InternTuple(elems []TypeID) TypeID {
	// Linear scan over existing tuples; programs intern few tuple shapes.
	for idx := 1; idx < len(in.tuples); idx++ {
		if tupleElemsEqual(in.tuples[idx].Elems, elems) {
			payload, err := safecast.Conv[uint32](idx)
			if err != nil {
				panic(fmt.Errorf("tuple payload overflow: %w", err))
			}
			return in.Intern(Type{Kind: KindTuple, Payload: payload})
		}
	}
	payload, err := safecast.Conv[uint32](len(in.tuples))
	if err != nil {
		panic(fmt.Errorf("tuple payload overflow: %w", err))
	}
	cp := make([]TypeID, len(elems))
	copy(cp, elems)
	in.tuples = append(in.tuples, TupleInfo{Elems: cp})
	return in.Intern(Type{Kind: KindTuple, Payload: payload})
}

// TupleElems returns the element types of an interned tuple, or nil when
// id is not a tuple.
func (in *Interner) TupleElems(id TypeID) []TypeID {
	t, ok := in.Lookup(id)
	if !ok || t.Kind != KindTuple || t.Payload == 0 || int(t.Payload) >= len(in.tuples) {
		return nil
	}
	return in.tuples[t.Payload].Elems
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Kind returns the kind for a TypeID, KindInvalid for NoTypeID.
func (in *Interner) Kind(id TypeID) Kind {
	t, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return t.Kind
}

func tupleElemsEqual(a, b []TypeID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
