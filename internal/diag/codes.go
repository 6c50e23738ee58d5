package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Decode errors: the structured program representation supplied by the
	// external parser is malformed or uses nodes the engine does not model.
	DecodeInfo            Code = 2000
	DecodeInvalidDocument Code = 2001
	DecodeUnsupportedNode Code = 2002
	DecodeBadLocation     Code = 2003

	// Semantic findings. These are the engine's primary output; all of
	// them are recoverable and the pass always runs to completion.
	SemaInfo                  Code = 3000
	SemaRedeclarationConflict Code = 3001
	SemaAnnotationMismatch    Code = 3002
	SemaUseBeforeBind         Code = 3003
	SemaUndefinedName         Code = 3004
	SemaArgumentTypeMismatch  Code = 3005
	SemaArityMismatch         Code = 3006
	SemaUnknownAttribute      Code = 3007
	SemaUnknownBuiltin        Code = 3008

	// I/O errors from the hosting driver.
	IOLoadFileError Code = 4001
)

var codeDescription = map[Code]string{
	UnknownCode:           "Unknown error",
	DecodeInfo:            "Decode information",
	DecodeInvalidDocument: "Invalid program document",
	DecodeUnsupportedNode: "Unsupported node kind",
	DecodeBadLocation:     "Bad node location",

	SemaInfo:                  "Semantic information",
	SemaRedeclarationConflict: "Conflicting redeclaration",
	SemaAnnotationMismatch:    "Assignment incompatible with declared type",
	SemaUseBeforeBind:         "Name declared but never bound at this point",
	SemaUndefinedName:         "Undefined name",
	SemaArgumentTypeMismatch:  "Argument type mismatch",
	SemaArityMismatch:         "Wrong number of values",
	SemaUnknownAttribute:      "Unknown attribute",
	SemaUnknownBuiltin:        "Unmodeled builtin call",

	IOLoadFileError: "I/O load file error",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("DEC%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[Code(0)]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
