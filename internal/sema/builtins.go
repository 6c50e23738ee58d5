package sema

import (
	"fmt"

	"pyflow/internal/diag"
	"pyflow/internal/pyast"
	"pyflow/internal/source"
	"pyflow/internal/types"
)

// The engine models a closed table of builtins whose return type depends
// on the runtime kinds of their arguments. Everything outside the table
// is open-world: the call types as Unknown with no finding (strict mode
// turns it into an UnknownBuiltin warning). A closed table plus an
// explicit escape hatch beats silently mis-typing unrecognized calls.

type builtinKind uint8

const (
	builtinRound builtinKind = iota
	builtinMin
	builtinMax
	builtinAbs
	builtinLen
)

var builtinTable = map[string]builtinKind{
	"round": builtinRound,
	"min":   builtinMin,
	"max":   builtinMax,
	"abs":   builtinAbs,
	"len":   builtinLen,
}

func (fc *flowChecker) resolveBuiltin(call, callee *pyast.Expr, argTypes []types.TypeID) types.TypeID {
	b := fc.types.Builtins()
	name := fc.builder.Name(callee.Name)

	kind, ok := builtinTable[name]
	if !ok {
		if fc.opts.StrictUnknownBuiltins {
			fc.report(diag.SemaUnknownBuiltin, diag.SevWarning, callee.Span,
				fmt.Sprintf("call to unmodeled builtin '%s'", name))
		}
		return b.Unknown
	}

	switch kind {
	case builtinRound:
		return fc.resolveRound(call, argTypes)
	case builtinMin, builtinMax:
		return fc.resolveMinMax(call, name, argTypes)
	case builtinAbs:
		return fc.resolveAbs(call, argTypes)
	case builtinLen:
		return fc.resolveLen(call, argTypes)
	}
	return b.Unknown
}

// resolveRound types round(x) and round(x, ndigits). The one-argument
// form rounds to an integer regardless of x; the two-argument form keeps
// x's kind. A negative literal ndigits is legal and changes nothing.
func (fc *flowChecker) resolveRound(call *pyast.Expr, argTypes []types.TypeID) types.TypeID {
	b := fc.types.Builtins()

	if len(argTypes) == 0 || len(argTypes) > 2 {
		fc.report(diag.SemaArityMismatch, diag.SevError, call.Span,
			fmt.Sprintf("round() takes 1 or 2 arguments, got %d", len(argTypes)))
		return b.Unknown
	}

	x := argTypes[0]
	xKind := fc.types.Kind(x)
	if xKind != types.KindUnknown && !fc.numericArg(x) {
		fc.report(diag.SemaArgumentTypeMismatch, diag.SevError, fc.argSpan(call, 0),
			fmt.Sprintf("round() expects a numeric argument, got %s", fc.typeString(x)))
		return b.Unknown
	}

	if len(argTypes) == 1 {
		return b.Int
	}

	nd := argTypes[1]
	if !fc.intArg(nd) && fc.types.Kind(nd) != types.KindUnknown {
		fc.report(diag.SemaArgumentTypeMismatch, diag.SevError, fc.argSpan(call, 1),
			fmt.Sprintf("round() expects int for ndigits, got %s", fc.typeString(nd)))
	}

	switch xKind {
	case types.KindFloat:
		return b.Float
	case types.KindInt:
		return b.Int
	case types.KindBool:
		return b.Int
	default:
		return b.Unknown
	}
}

// resolveMinMax folds the promotion lattice left to right over the
// argument types: any Float makes the result Float, ints stay int, bools
// are ints first (when the configuration allows them in at all).
func (fc *flowChecker) resolveMinMax(call *pyast.Expr, name string, argTypes []types.TypeID) types.TypeID {
	b := fc.types.Builtins()

	if len(argTypes) == 0 {
		fc.report(diag.SemaArityMismatch, diag.SevError, call.Span,
			fmt.Sprintf("%s() expects at least 1 argument", name))
		return b.Unknown
	}

	result := types.NoTypeID
	degraded := false
	for i, at := range argTypes {
		if fc.types.Kind(at) == types.KindUnknown {
			degraded = true
			continue
		}
		if !fc.numericArg(at) {
			fc.report(diag.SemaArgumentTypeMismatch, diag.SevError, fc.argSpan(call, i),
				fmt.Sprintf("%s() argument %d is not numeric (%s)", name, i+1, fc.typeString(at)))
			degraded = true
			continue
		}
		norm := at
		if fc.types.Kind(at) == types.KindBool {
			norm = b.Int
		}
		if result == types.NoTypeID {
			result = norm
			continue
		}
		if p, ok := fc.types.Promote(result, norm); ok {
			result = p
		} else {
			degraded = true
		}
	}
	if degraded || result == types.NoTypeID {
		return b.Unknown
	}
	return result
}

func (fc *flowChecker) resolveAbs(call *pyast.Expr, argTypes []types.TypeID) types.TypeID {
	b := fc.types.Builtins()

	if len(argTypes) != 1 {
		fc.report(diag.SemaArityMismatch, diag.SevError, call.Span,
			fmt.Sprintf("abs() takes exactly 1 argument, got %d", len(argTypes)))
		return b.Unknown
	}
	switch fc.types.Kind(argTypes[0]) {
	case types.KindUnknown:
		return b.Unknown
	case types.KindBool, types.KindInt:
		return b.Int
	case types.KindFloat:
		return b.Float
	default:
		fc.report(diag.SemaArgumentTypeMismatch, diag.SevError, fc.argSpan(call, 0),
			fmt.Sprintf("abs() expects a numeric argument, got %s", fc.typeString(argTypes[0])))
		return b.Unknown
	}
}

func (fc *flowChecker) resolveLen(call *pyast.Expr, argTypes []types.TypeID) types.TypeID {
	b := fc.types.Builtins()

	if len(argTypes) != 1 {
		fc.report(diag.SemaArityMismatch, diag.SevError, call.Span,
			fmt.Sprintf("len() takes exactly 1 argument, got %d", len(argTypes)))
		return b.Unknown
	}
	switch fc.types.Kind(argTypes[0]) {
	case types.KindUnknown:
		return b.Int
	case types.KindStr, types.KindList, types.KindSet, types.KindDict, types.KindTuple:
		return b.Int
	default:
		fc.report(diag.SemaArgumentTypeMismatch, diag.SevError, fc.argSpan(call, 0),
			fmt.Sprintf("len() argument has no length (%s)", fc.typeString(argTypes[0])))
		return b.Unknown
	}
}

// numericArg reports whether a type participates in numeric promotion
// under the current configuration.
func (fc *flowChecker) numericArg(id types.TypeID) bool {
	k := fc.types.Kind(id)
	if k == types.KindBool {
		return fc.opts.TreatBoolAsInt
	}
	return k == types.KindInt || k == types.KindFloat
}

// intArg reports whether a type is acceptable where an int is required.
func (fc *flowChecker) intArg(id types.TypeID) bool {
	k := fc.types.Kind(id)
	if k == types.KindBool {
		return fc.opts.TreatBoolAsInt
	}
	return k == types.KindInt
}

// argSpan returns the span of the i-th argument, falling back to the call
// span when the argument list is shorter than expected.
func (fc *flowChecker) argSpan(call *pyast.Expr, i int) source.Span {
	if i < len(call.Elems) {
		if arg := fc.builder.Exprs.Get(call.Elems[i]); arg != nil {
			return arg.Span
		}
	}
	return call.Span
}
