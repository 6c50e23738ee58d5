package sema

import (
	"fmt"

	"pyflow/internal/diag"
	"pyflow/internal/pyast"
	"pyflow/internal/symbols"
	"pyflow/internal/types"
)

// evalExpr infers the static type of an expression. It is read-only with
// respect to the symbol table; the only side effects are diagnostics and
// the ExprTypes memo. Expressions over Unknown stay Unknown instead of
// cascading into further findings.
func (fc *flowChecker) evalExpr(id pyast.ExprID) types.TypeID {
	t := fc.evalExprUncached(id)
	fc.result.ExprTypes[id] = t
	return t
}

func (fc *flowChecker) evalExprUncached(id pyast.ExprID) types.TypeID {
	b := fc.types.Builtins()
	expr := fc.builder.Exprs.Get(id)
	if expr == nil {
		return b.Unknown
	}

	switch expr.Kind {
	case pyast.ExprIntLit:
		return b.Int
	case pyast.ExprFloatLit:
		return b.Float
	case pyast.ExprBoolLit:
		return b.Bool
	case pyast.ExprStrLit:
		return b.Str
	case pyast.ExprNoneLit:
		return b.NoneType

	case pyast.ExprIdent:
		return fc.evalIdent(expr)

	case pyast.ExprTuple:
		elems := make([]types.TypeID, 0, len(expr.Elems))
		for _, e := range expr.Elems {
			elems = append(elems, fc.evalExpr(e))
		}
		return fc.types.InternTuple(elems)

	case pyast.ExprListLit:
		return fc.types.Intern(types.MakeList(fc.foldElems(expr.Elems)))
	case pyast.ExprSetLit:
		return fc.types.Intern(types.MakeSet(fc.foldElems(expr.Elems)))
	case pyast.ExprDictLit:
		key := fc.foldElems(expr.Keys)
		val := fc.foldElems(expr.Elems)
		return fc.types.Intern(types.MakeDict(key, val))

	case pyast.ExprCall:
		return fc.evalCall(expr)

	case pyast.ExprAttribute:
		return fc.evalAttribute(expr)

	case pyast.ExprSubscript:
		return fc.evalSubscript(expr)

	case pyast.ExprBinary:
		return fc.evalBinary(expr)

	case pyast.ExprUnary:
		return fc.evalUnary(expr)

	case pyast.ExprCompare:
		fc.evalExpr(expr.X)
		for _, c := range expr.Elems {
			fc.evalExpr(c)
		}
		return b.Bool

	case pyast.ExprBoolOp:
		// `and`/`or` return one of their operands; fold through the
		// lattice and fall back to Unknown for mixed non-numerics.
		var cur types.TypeID
		for i, e := range expr.Elems {
			et := fc.evalExpr(e)
			if i == 0 {
				cur = et
				continue
			}
			if p, ok := fc.types.Promote(cur, et); ok {
				cur = p
			} else {
				cur = b.Unknown
			}
		}
		if cur == types.NoTypeID {
			return b.Unknown
		}
		return cur

	default:
		return b.Unknown
	}
}

// evalIdent resolves a name read. A declared-only name is a
// use-before-bind but still evaluates to its declared type so downstream
// checks stay informative; a name that exists nowhere in the scope chain
// is an undefined-name error and evaluates to Unknown.
func (fc *flowChecker) evalIdent(expr *pyast.Expr) types.TypeID {
	res := fc.table.Lookup(fc.currentScope(), expr.Name)
	if !res.Found {
		fc.report(diag.SemaUndefinedName, diag.SevError, expr.Span,
			fmt.Sprintf("undefined name '%s'", fc.builder.Name(expr.Name)))
		return fc.types.Builtins().Unknown
	}
	if res.State == symbols.StateDeclared {
		fc.report(diag.SemaUseBeforeBind, diag.SevError, expr.Span,
			fmt.Sprintf("'%s' is declared but not bound to a value at this point",
				fc.builder.Name(expr.Name)))
	}
	return res.Type
}

// evalCall types a call site. Identifier callees that resolve to nothing
// in the scope chain hit the builtin table: modeled builtins get overload
// resolution, everything else is open-world Unknown (or an UnknownBuiltin
// warning in strict mode).
func (fc *flowChecker) evalCall(expr *pyast.Expr) types.TypeID {
	b := fc.types.Builtins()

	callee := fc.builder.Exprs.Get(expr.X)
	if callee != nil && callee.Kind == pyast.ExprIdent {
		res := fc.table.Lookup(fc.currentScope(), callee.Name)
		if !res.Found {
			// Arguments are evaluated left to right before dispatch, the
			// order reads (and their diagnostics) occur in.
			argTypes := fc.evalArgs(expr.Elems)
			return fc.resolveBuiltin(expr, callee, argTypes)
		}
		if res.State == symbols.StateDeclared {
			fc.report(diag.SemaUseBeforeBind, diag.SevError, callee.Span,
				fmt.Sprintf("'%s' is declared but not bound to a value at this point",
					fc.builder.Name(callee.Name)))
		}
		fc.evalArgs(expr.Elems)
		if t, ok := fc.types.Lookup(res.Type); ok && t.Kind == types.KindFunction {
			// Simple return-type propagation; no inference across the
			// function boundary beyond its annotation.
			return t.Elem
		}
		return b.Unknown
	}

	// Method calls and computed callees: evaluate everything, assume
	// nothing about the result.
	if expr.X.IsValid() {
		fc.evalExpr(expr.X)
	}
	fc.evalArgs(expr.Elems)
	return b.Unknown
}

func (fc *flowChecker) evalArgs(args []pyast.ExprID) []types.TypeID {
	out := make([]types.TypeID, 0, len(args))
	for _, a := range args {
		out = append(out, fc.evalExpr(a))
	}
	return out
}

// evalAttribute types `base.attr`. Classes and containers are open-world
// (their attributes are not modeled, so the result is Unknown without a
// finding); scalars have no attributes worth modeling, so the access is
// flagged and the result is Unknown to avoid cascading failures.
func (fc *flowChecker) evalAttribute(expr *pyast.Expr) types.TypeID {
	b := fc.types.Builtins()
	baseType := fc.evalExpr(expr.X)

	switch fc.types.Kind(baseType) {
	case types.KindUnknown, types.KindClass, types.KindList, types.KindSet,
		types.KindDict, types.KindTuple, types.KindOptional:
		return b.Unknown
	default:
		fc.report(diag.SemaUnknownAttribute, diag.SevWarning, expr.Span,
			fmt.Sprintf("type %s has no attribute '%s'",
				fc.typeString(baseType), fc.builder.Name(expr.Name)))
		return b.Unknown
	}
}

// evalSubscript types `base[index]`.
func (fc *flowChecker) evalSubscript(expr *pyast.Expr) types.TypeID {
	b := fc.types.Builtins()
	baseType := fc.evalExpr(expr.X)
	var index *pyast.Expr
	if expr.Y.IsValid() {
		fc.evalExpr(expr.Y)
		index = fc.builder.Exprs.Get(expr.Y)
	}

	base, ok := fc.types.Lookup(baseType)
	if !ok {
		return b.Unknown
	}
	switch base.Kind {
	case types.KindList, types.KindDict:
		return base.Elem
	case types.KindStr:
		return b.Str
	case types.KindTuple:
		if index != nil && index.Kind == pyast.ExprIntLit {
			elems := fc.types.TupleElems(baseType)
			if i := index.IntValue; i >= 0 && int(i) < len(elems) {
				return elems[i]
			}
		}
		return b.Unknown
	default:
		return b.Unknown
	}
}

func (fc *flowChecker) evalBinary(expr *pyast.Expr) types.TypeID {
	b := fc.types.Builtins()
	lt := fc.evalExpr(expr.X)
	rt := fc.evalExpr(expr.Y)

	lk, rk := fc.types.Kind(lt), fc.types.Kind(rt)
	if lk == types.KindUnknown || rk == types.KindUnknown {
		return b.Unknown
	}

	// str + str and list + list concatenate.
	if expr.Op == pyast.OpAdd {
		if lk == types.KindStr && rk == types.KindStr {
			return b.Str
		}
		if lk == types.KindList && rk == types.KindList && lt == rt {
			return lt
		}
	}

	if p, ok := fc.types.Promote(lt, rt); ok {
		if expr.Op == pyast.OpDiv {
			// Python 3 true division always produces a float.
			return b.Float
		}
		if fc.types.Kind(p) == types.KindBool {
			// True + True is an int; arithmetic leaves the bool rung.
			return b.Int
		}
		return p
	}
	return b.Unknown
}

func (fc *flowChecker) evalUnary(expr *pyast.Expr) types.TypeID {
	b := fc.types.Builtins()
	ot := fc.evalExpr(expr.X)

	switch expr.Op {
	case pyast.OpNot:
		return b.Bool
	case pyast.OpNeg, pyast.OpPos:
		switch fc.types.Kind(ot) {
		case types.KindUnknown:
			return b.Unknown
		case types.KindBool:
			return b.Int
		case types.KindInt, types.KindFloat:
			return ot
		default:
			return b.Unknown
		}
	default:
		return b.Unknown
	}
}

// foldElems joins literal element types through the lattice: a uniform or
// numerically promotable element list keeps its concrete type, anything
// mixed degrades to Unknown, and an empty literal is Unknown too.
func (fc *flowChecker) foldElems(elems []pyast.ExprID) types.TypeID {
	b := fc.types.Builtins()
	if len(elems) == 0 {
		return b.Unknown
	}
	var cur types.TypeID
	for i, e := range elems {
		et := fc.evalExpr(e)
		if i == 0 {
			cur = et
			continue
		}
		if cur == et {
			continue
		}
		if p, ok := fc.types.Promote(cur, et); ok {
			cur = p
		} else {
			cur = b.Unknown
		}
	}
	return cur
}
