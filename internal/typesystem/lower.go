package typesystem

import (
	"fmt"

	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/loom"
)

// LowerCtx resolves bound variables while lowering types to the graph
// level. The compiler's context implements it: under a partial
// monomorphization it substitutes decided variables and renumbers the
// surviving ones.
type LowerCtx interface {
	TypeVarToLoom(v BoundTypeVar) (loom.Type, error)
	ConstVarToLoom(v BoundConstVar) (loom.TypeArg, error)
}

// LowerType lowers a source type to its graph representation. Structs
// lower to tuples of their field types and enums to sums of their payload
// rows; the graph has no nominal types.
func LowerType(t Type, ctx LowerCtx) (loom.Type, error) {
	switch ty := t.(type) {
	case NoneType:
		return loom.Unit(), nil
	case BoolType:
		return loom.Bool(), nil
	case StringType:
		return exts.StrTy(), nil
	case NumericType:
		switch ty.Kind {
		case NatKind:
			return exts.NatTy(), nil
		case FloatKind:
			return exts.FloatTy(), nil
		default:
			return exts.IntTy(), nil
		}
	case QubitType:
		return exts.QubitTy(), nil
	case *ArrayType:
		elem, err := LowerType(ty.Elem, ctx)
		if err != nil {
			return nil, err
		}
		length, err := LowerConst(ty.Len, ctx)
		if err != nil {
			return nil, err
		}
		if ty.Borrowed {
			return exts.BorrowArrayTy(elem, length), nil
		}
		return exts.ArrayTy(elem, length), nil
	case *TupleType:
		elems, err := lowerAll(ty.Elements, ctx)
		if err != nil {
			return nil, err
		}
		return &loom.TupleType{Elems: elems}, nil
	case *StructType:
		fields := ty.FieldTypes()
		elems := make([]loom.Type, len(fields))
		for i, f := range fields {
			lowered, err := LowerType(f.Ty, ctx)
			if err != nil {
				return nil, err
			}
			elems[i] = lowered
		}
		return &loom.TupleType{Elems: elems}, nil
	case *EnumType:
		variants := ty.VariantRows()
		rows := make([][]loom.Type, len(variants))
		for i, v := range variants {
			row, err := lowerAll(v.Payloads, ctx)
			if err != nil {
				return nil, err
			}
			rows[i] = row
		}
		return &loom.SumType{Rows: rows}, nil
	case *FuncType:
		return LowerFuncType(ty, ctx)
	case BoundTypeVar:
		return ctx.TypeVarToLoom(ty)
	case ExistentialTypeVar:
		return nil, fmt.Errorf("unsolved type variable ?%s reached lowering", ty.Name)
	default:
		return nil, fmt.Errorf("cannot lower type %s", t)
	}
}

// LowerFuncType lowers a signature. Borrowed linear inputs are returned
// implicitly, so they appear in both the input and the output row.
func LowerFuncType(t *FuncType, ctx LowerCtx) (*loom.FuncType, error) {
	params, err := LowerParams(t.Params)
	if err != nil {
		return nil, err
	}
	ins := make([]loom.Type, len(t.Inputs))
	var inout []loom.Type
	for i, in := range t.Inputs {
		lowered, err := LowerType(in.Ty, ctx)
		if err != nil {
			return nil, err
		}
		ins[i] = lowered
		if !in.Owned && Linear(in.Ty) {
			inout = append(inout, lowered)
		}
	}
	var outs []loom.Type
	if _, isNone := t.Output.(NoneType); !isNone {
		out, err := LowerType(t.Output, ctx)
		if err != nil {
			return nil, err
		}
		outs = append(outs, out)
	}
	outs = append(outs, inout...)
	return &loom.FuncType{Inputs: ins, Outputs: outs, Params: params}, nil
}

// LowerParams lowers surviving generic parameters. Only type parameters
// and nat constants exist at the graph level; anything else must have been
// monomorphized away.
func LowerParams(params []Parameter) ([]loom.TypeParam, error) {
	if len(params) == 0 {
		return nil, nil
	}
	out := make([]loom.TypeParam, len(params))
	for i, p := range params {
		switch pp := p.(type) {
		case TypeParam:
			bound := loom.Copyable
			if pp.Linear {
				bound = loom.Linear
			}
			out[i] = loom.TypeParam{Name: pp.Name, Sort: loom.TypeSort, Bound: bound}
		case ConstParam:
			if n, ok := pp.Ty.(NumericType); ok && n.Kind == NatKind {
				out[i] = loom.TypeParam{Name: pp.Name, Sort: loom.NatSort}
				continue
			}
			return nil, fmt.Errorf("constant parameter %s of type %s cannot be lowered", pp.Name, pp.Ty)
		default:
			return nil, fmt.Errorf("cannot lower parameter %s", p)
		}
	}
	return out, nil
}

// LowerConst lowers a constant expression to a graph type argument.
func LowerConst(c Const, ctx LowerCtx) (loom.TypeArg, error) {
	switch cv := c.(type) {
	case ConstValue:
		switch val := cv.Val.(type) {
		case NatPayload:
			return loom.NatArg{N: val.V}, nil
		case StringPayload:
			return loom.StringArg{S: val.S}, nil
		default:
			return nil, fmt.Errorf("constant %s of type %s cannot appear in the graph", cv, cv.Ty)
		}
	case BoundConstVar:
		return ctx.ConstVarToLoom(cv)
	case ExistentialConstVar:
		return nil, fmt.Errorf("unsolved constant variable ?%s reached lowering", cv.Name)
	default:
		return nil, fmt.Errorf("cannot lower constant %s", c)
	}
}

// LowerArg lowers an instantiation argument to a graph type argument.
func LowerArg(a Argument, ctx LowerCtx) (loom.TypeArg, error) {
	switch arg := a.(type) {
	case TypeArg:
		ty, err := LowerType(arg.Ty, ctx)
		if err != nil {
			return nil, err
		}
		return loom.TypeArgTy{Ty: ty}, nil
	case ConstArg:
		return LowerConst(arg.C, ctx)
	default:
		return nil, fmt.Errorf("cannot lower argument %s", a)
	}
}

func lowerAll(ts []Type, ctx LowerCtx) ([]loom.Type, error) {
	out := make([]loom.Type, len(ts))
	for i, t := range ts {
		lowered, err := LowerType(t, ctx)
		if err != nil {
			return nil, err
		}
		out[i] = lowered
	}
	return out, nil
}
