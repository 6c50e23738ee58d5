package types

import (
	"fmt"

	"pyflow/internal/source"
)

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type (no annotation, no inference).
const NoTypeID TypeID = 0

// Kind enumerates all supported kinds of types.
type Kind uint8

const (
	KindInvalid Kind = iota
	// KindUnknown is the absorbing element: any operation involving it
	// yields Unknown again, never a diagnostic.
	KindUnknown
	KindNone
	KindBool
	KindInt
	KindFloat
	KindStr
	KindList
	KindSet
	KindDict
	KindTuple
	KindOptional
	KindClass
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindUnknown:
		return "Unknown"
	case KindNone:
		return "None"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindStr:
		return "str"
	case KindList:
		return "list"
	case KindSet:
		return "set"
	case KindDict:
		return "dict"
	case KindTuple:
		return "tuple"
	case KindOptional:
		return "Optional"
	case KindClass:
		return "class"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID          // list/set element, Optional inner, dict value, function return
	Key     TypeID          // dict key
	Name    source.StringID // class or function name
	Payload uint32          // tuple element list index
}

// Descriptor helpers ---------------------------------------------------------

// MakeList describes list[elem].
func MakeList(elem TypeID) Type {
	return Type{Kind: KindList, Elem: elem}
}

// MakeSet describes set[elem].
func MakeSet(elem TypeID) Type {
	return Type{Kind: KindSet, Elem: elem}
}

// MakeDict describes dict[key, value].
func MakeDict(key, value TypeID) Type {
	return Type{Kind: KindDict, Key: key, Elem: value}
}

// MakeOptional describes Optional[inner].
func MakeOptional(inner TypeID) Type {
	return Type{Kind: KindOptional, Elem: inner}
}

// MakeClass describes an instance of the named user class.
func MakeClass(name source.StringID) Type {
	return Type{Kind: KindClass, Name: name}
}

// MakeFunction describes a callable with the given annotated return type
// (NoTypeID when the return annotation is absent).
func MakeFunction(name source.StringID, ret TypeID) Type {
	return Type{Kind: KindFunction, Name: name, Elem: ret}
}
