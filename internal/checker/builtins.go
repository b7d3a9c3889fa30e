package checker

import (
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/loom"
	"github.com/weftlang/weft/internal/typesystem"
)

// RegisterBuiltins seeds a store with the builtin types and functions.
// Sessions call it once, before any user definition registers. Calls to
// the builtin functions lower onto single extension ops; the exts
// registry carries the matching versions and side-effect table.
func RegisterBuiltins(s *Store) error {
	for _, d := range builtinTypes() {
		if err := s.Register(d); err != nil {
			return err
		}
	}
	for _, d := range builtinFuncs() {
		if err := s.Register(d); err != nil {
			return err
		}
	}
	return nil
}

func builtinTypes() []Def {
	simple := func(name string, ty typesystem.Type) Def {
		return &BuiltinTypeDef{
			id:   ids.FreshDefId(),
			name: name,
			inst: func(eng *Engine, args typesystem.Inst) (typesystem.Type, error) {
				if len(args) != 0 {
					return nil, diag.Newf(diag.ErrT003, name,
						"expected 0 generic arguments, got %d", len(args))
				}
				return ty, nil
			},
		}
	}
	return []Def{
		simple("None", typesystem.NoneType{}),
		simple("bool", typesystem.BoolType{}),
		simple("int", typesystem.NumericType{Kind: typesystem.IntKind}),
		simple("nat", typesystem.NumericType{Kind: typesystem.NatKind}),
		simple("float", typesystem.NumericType{Kind: typesystem.FloatKind}),
		simple("str", typesystem.StringType{}),
		simple("qubit", typesystem.QubitType{}),
		arrayType("array", false),
		arrayType("borrow_array", true),
	}
}

// arrayType builds the array and borrow_array type definitions. Both take
// an element type, which may be linear, and a nat length. Borrowed arrays
// sit behind the experimental flag.
func arrayType(name string, borrowed bool) Def {
	return &BuiltinTypeDef{
		id:     ids.FreshDefId(),
		name:   name,
		params: []string{"T", "n"},
		inst: func(eng *Engine, args typesystem.Inst) (typesystem.Type, error) {
			if borrowed && !eng.Experimental() {
				return nil, diag.Newf(diag.ErrE002, name,
					"%s is experimental and experimental features are disabled", name)
			}
			if len(args) != 2 {
				return nil, diag.Newf(diag.ErrT003, name,
					"expected 2 generic arguments, got %d", len(args))
			}
			elem, ok := args[0].(typesystem.TypeArg)
			if !ok {
				return nil, diag.Newf(diag.ErrT008, name, `parameter "T" expects a type argument`)
			}
			length, ok := args[1].(typesystem.ConstArg)
			if !ok {
				return nil, diag.Newf(diag.ErrT008, name, `parameter "n" expects a constant argument`)
			}
			lenTy := typesystem.ConstTypeOf(length.C)
			if !typesystem.TypesEqual(lenTy, typesystem.NumericType{Kind: typesystem.NatKind}) {
				return nil, diag.Newf(diag.ErrT002, name,
					"array length has type %s, expected nat", lenTy)
			}
			return &typesystem.ArrayType{Elem: elem.Ty, Len: length.C, Borrowed: borrowed}, nil
		},
	}
}

func builtinFuncs() []Def {
	var (
		intTy   = typesystem.NumericType{Kind: typesystem.IntKind}
		natTy   = typesystem.NumericType{Kind: typesystem.NatKind}
		floatTy = typesystem.NumericType{Kind: typesystem.FloatKind}
		strTy   = typesystem.StringType{}
		boolTy  = typesystem.BoolType{}
		noneTy  = typesystem.NoneType{}
		qubitTy = typesystem.QubitType{}
	)
	owned := func(t typesystem.Type) typesystem.FuncInput {
		return typesystem.FuncInput{Ty: t, Owned: true}
	}
	borrow := func(t typesystem.Type) typesystem.FuncInput {
		return typesystem.FuncInput{Ty: t}
	}
	fn := func(name string, sig *typesystem.FuncType, lower LowerCall) Def {
		return &CustomFunctionDef{
			Id:       ids.FreshDefId(),
			GlobalId: ids.FreshGlobalConstId(),
			Name:     name,
			Sig:      sig,
			Lower:    lower,
		}
	}
	tagged := func(name string) []typesystem.Parameter {
		return []typesystem.Parameter{typesystem.ConstParam{Idx: 0, Name: name, Ty: strTy}}
	}

	// array_repeat duplicates its element, so T stays copyable.
	repeatT := typesystem.BoundTypeVar{Idx: 0, Name: "T", Copyable: true}
	repeatN := typesystem.BoundConstVar{Idx: 1, Name: "n", Ty: natTy}

	return []Def{
		fn("qalloc",
			&typesystem.FuncType{Output: qubitTy},
			extOp(exts.QuantumExt, "qalloc")),
		fn("qfree",
			&typesystem.FuncType{Inputs: []typesystem.FuncInput{owned(qubitTy)}, Output: noneTy},
			extOp(exts.QuantumExt, "qfree")),
		fn("h",
			&typesystem.FuncType{Inputs: []typesystem.FuncInput{borrow(qubitTy)}, Output: noneTy},
			extOp(exts.QuantumExt, "h")),
		fn("x",
			&typesystem.FuncType{Inputs: []typesystem.FuncInput{borrow(qubitTy)}, Output: noneTy},
			extOp(exts.QuantumExt, "x")),
		fn("cx",
			&typesystem.FuncType{Inputs: []typesystem.FuncInput{borrow(qubitTy), borrow(qubitTy)}, Output: noneTy},
			extOp(exts.QuantumExt, "cx")),
		fn("measure",
			&typesystem.FuncType{Inputs: []typesystem.FuncInput{owned(qubitTy)}, Output: boolTy},
			extOp(exts.QuantumExt, "measure_free")),
		fn("project_z",
			&typesystem.FuncType{Inputs: []typesystem.FuncInput{borrow(qubitTy)}, Output: boolTy},
			extOp(exts.QuantumExt, "measure")),

		fn("result_int",
			&typesystem.FuncType{
				Inputs: []typesystem.FuncInput{owned(intTy)},
				Output: noneTy,
				Params: tagged("tag"),
			},
			extOp(exts.ResultExt, "result_int", 0)),
		fn("result_bool",
			&typesystem.FuncType{
				Inputs: []typesystem.FuncInput{owned(boolTy)},
				Output: noneTy,
				Params: tagged("tag"),
			},
			extOp(exts.ResultExt, "result_bool", 0)),
		fn("result_float",
			&typesystem.FuncType{
				Inputs: []typesystem.FuncInput{owned(floatTy)},
				Output: noneTy,
				Params: tagged("tag"),
			},
			extOp(exts.ResultExt, "result_float", 0)),

		fn("panic",
			&typesystem.FuncType{Output: noneTy, Params: tagged("msg")},
			extOp(exts.PreludeExt, "panic", 0)),
		fn("exit",
			&typesystem.FuncType{
				Output: noneTy,
				Params: []typesystem.Parameter{typesystem.ConstParam{Idx: 0, Name: "code", Ty: natTy}},
			},
			extOp(exts.PreludeExt, "exit", 0)),
		fn("state_dump",
			&typesystem.FuncType{Output: noneTy, Params: tagged("tag")},
			extOp(exts.DebugExt, "state_result", 0)),

		fn("iadd",
			&typesystem.FuncType{Inputs: []typesystem.FuncInput{owned(intTy), owned(intTy)}, Output: intTy},
			extOp(exts.ArithExt, "iadd")),
		fn("imul",
			&typesystem.FuncType{Inputs: []typesystem.FuncInput{owned(intTy), owned(intTy)}, Output: intTy},
			extOp(exts.ArithExt, "imul")),
		fn("ieq",
			&typesystem.FuncType{Inputs: []typesystem.FuncInput{owned(intTy), owned(intTy)}, Output: boolTy},
			extOp(exts.ArithExt, "ieq")),
		fn("fadd",
			&typesystem.FuncType{Inputs: []typesystem.FuncInput{owned(floatTy), owned(floatTy)}, Output: floatTy},
			extOp(exts.ArithExt, "fadd")),

		fn("array_repeat",
			&typesystem.FuncType{
				Inputs: []typesystem.FuncInput{owned(repeatT)},
				Output: &typesystem.ArrayType{Elem: repeatT, Len: repeatN},
				Params: []typesystem.Parameter{
					typesystem.TypeParam{Idx: 0, Name: "T"},
					typesystem.ConstParam{Idx: 1, Name: "n", Ty: natTy},
				},
			},
			extOp(exts.CollectionsExt, "repeat", 1, 0)),
	}
}

// extOp builds the lowering hook for a builtin backed by one extension
// operation. argSlots names the generic slots whose arguments become the
// op's graph-level type arguments, in the op's argument order.
func extOp(ext, name string, argSlots ...int) LowerCall {
	return func(ctx *CallCtx, ins []loom.Wire) ([]loom.Wire, error) {
		sig, err := ctx.LowerSig(ctx.Sig)
		if err != nil {
			return nil, err
		}
		var args []loom.TypeArg
		for _, slot := range argSlots {
			a, err := ctx.LowerArg(ctx.Inst[slot])
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		n := ctx.B.Add(&loom.ExtOp{Extension: ext, Name: name, Args: args, Signature: sig}, ins...)
		outs := make([]loom.Wire, len(sig.Outputs))
		for i := range outs {
			outs[i] = loom.Wire{Node: n, Index: i}
		}
		return outs, nil
	}
}
