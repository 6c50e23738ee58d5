package sema

import (
	"pyflow/internal/pyast"
	"pyflow/internal/source"
	"pyflow/internal/types"
)

// resolveAnnotation maps an annotation expression to a type. Returns
// NoTypeID when there is no annotation at all; unrecognized annotation
// shapes resolve to Unknown rather than failing.
func (fc *flowChecker) resolveAnnotation(id pyast.ExprID) types.TypeID {
	if !id.IsValid() {
		return types.NoTypeID
	}
	b := fc.types.Builtins()
	expr := fc.builder.Exprs.Get(id)
	if expr == nil {
		return b.Unknown
	}

	switch expr.Kind {
	case pyast.ExprIdent:
		return fc.namedAnnotation(expr.Name)
	case pyast.ExprNoneLit:
		return b.NoneType
	case pyast.ExprStrLit:
		// Forward reference: "ClassName".
		return fc.types.Intern(types.MakeClass(expr.Name))
	case pyast.ExprSubscript:
		return fc.subscriptAnnotation(expr)
	default:
		return b.Unknown
	}
}

func (fc *flowChecker) namedAnnotation(name source.StringID) types.TypeID {
	b := fc.types.Builtins()
	switch fc.builder.Name(name) {
	case "int":
		return b.Int
	case "float":
		return b.Float
	case "bool":
		return b.Bool
	case "str":
		return b.Str
	case "None":
		return b.NoneType
	case "Any", "object":
		return b.Unknown
	case "list", "List":
		return fc.types.Intern(types.MakeList(b.Unknown))
	case "set", "Set":
		return fc.types.Intern(types.MakeSet(b.Unknown))
	case "dict", "Dict":
		return fc.types.Intern(types.MakeDict(b.Unknown, b.Unknown))
	case "tuple", "Tuple":
		return b.Unknown
	default:
		return fc.types.Intern(types.MakeClass(name))
	}
}

// subscriptAnnotation handles parameterized annotations: list[int],
// dict[str, int], Optional[str], tuple[int, float].
func (fc *flowChecker) subscriptAnnotation(expr *pyast.Expr) types.TypeID {
	b := fc.types.Builtins()
	base := fc.builder.Exprs.Get(expr.X)
	if base == nil || base.Kind != pyast.ExprIdent {
		return b.Unknown
	}

	params := fc.annotationParams(expr.Y)
	one := func(i int) types.TypeID {
		if i < len(params) {
			return fc.resolveAnnotation(params[i])
		}
		return b.Unknown
	}

	switch fc.builder.Name(base.Name) {
	case "list", "List":
		return fc.types.Intern(types.MakeList(one(0)))
	case "set", "Set":
		return fc.types.Intern(types.MakeSet(one(0)))
	case "frozenset", "FrozenSet":
		return fc.types.Intern(types.MakeSet(one(0)))
	case "dict", "Dict":
		return fc.types.Intern(types.MakeDict(one(0), one(1)))
	case "Optional":
		return fc.types.Intern(types.MakeOptional(one(0)))
	case "tuple", "Tuple":
		elems := make([]types.TypeID, 0, len(params))
		for i := range params {
			elems = append(elems, fc.resolveAnnotation(params[i]))
		}
		return fc.types.InternTuple(elems)
	default:
		return b.Unknown
	}
}

// annotationParams splits the subscript index into its parameter list:
// a bare index is one parameter, a tuple index is several.
func (fc *flowChecker) annotationParams(id pyast.ExprID) []pyast.ExprID {
	if !id.IsValid() {
		return nil
	}
	idx := fc.builder.Exprs.Get(id)
	if idx == nil {
		return nil
	}
	if idx.Kind == pyast.ExprTuple {
		return idx.Elems
	}
	return []pyast.ExprID{id}
}
