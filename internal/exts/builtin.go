package exts

import "github.com/weftlang/weft/internal/loom"

// Builtin extension names.
const (
	QuantumExt     = "quantum"
	ResultExt      = "result"
	PreludeExt     = "prelude"
	DebugExt       = "debug"
	ArithExt       = "arith"
	CollectionsExt = "collections"
	WeftExt        = "weft"
)

// Drop is the reconciliation op spliced onto unconsumed affine wires.
const DropOp = "drop"

// Builtins returns the registry every compilation starts from.
func Builtins() *Registry {
	r := NewRegistry()

	quantum := MustNew(QuantumExt, "0.3.1")
	quantum.AddType("qubit", true)
	quantum.AddOp("qalloc", true)
	quantum.AddOp("qfree", true)
	quantum.AddOp("h", false)
	quantum.AddOp("x", false)
	quantum.AddOp("cx", false)
	quantum.AddOp("measure", false)
	quantum.AddOp("measure_free", true)

	result := MustNew(ResultExt, "0.1.0")
	result.AddOp("result_int", true)
	result.AddOp("result_bool", true)
	result.AddOp("result_float", true)

	prelude := MustNew(PreludeExt, "0.1.0")
	prelude.AddOp("panic", true)
	prelude.AddOp("exit", true)

	debug := MustNew(DebugExt, "0.1.0")
	debug.AddOp("state_result", true)

	arith := MustNew(ArithExt, "0.2.0")
	arith.AddType("int", false)
	arith.AddType("nat", false)
	arith.AddType("float", false)
	arith.AddType("str", false)
	arith.AddOp("iadd", false)
	arith.AddOp("imul", false)
	arith.AddOp("ieq", false)
	arith.AddOp("fadd", false)

	collections := MustNew(CollectionsExt, "0.2.0")
	collections.AddType("array", true)
	collections.AddType("borrow_array", true)
	collections.AddOp("repeat", false)

	weft := MustNew(WeftExt, "0.1.0")
	weft.AddOp(DropOp, false)

	for _, e := range []*Extension{quantum, result, prelude, debug, arith, collections, weft} {
		if err := r.Register(e); err != nil {
			panic(err)
		}
	}
	return r
}

// Graph-level constructors for the builtin extension types. The compiler
// lowers source types through these so the qualified names stay in one
// place.

// QubitTy is the linear qubit wire type.
func QubitTy() *loom.ExtType {
	return &loom.ExtType{Extension: QuantumExt, Name: "qubit", TyBound: loom.Linear}
}

// IntTy is the signed integer wire type.
func IntTy() *loom.ExtType {
	return &loom.ExtType{Extension: ArithExt, Name: "int", TyBound: loom.Copyable}
}

// NatTy is the unsigned integer wire type.
func NatTy() *loom.ExtType {
	return &loom.ExtType{Extension: ArithExt, Name: "nat", TyBound: loom.Copyable}
}

// FloatTy is the float64 wire type.
func FloatTy() *loom.ExtType {
	return &loom.ExtType{Extension: ArithExt, Name: "float", TyBound: loom.Copyable}
}

// StrTy is the static string wire type.
func StrTy() *loom.ExtType {
	return &loom.ExtType{Extension: ArithExt, Name: "str", TyBound: loom.Copyable}
}

// ArrayTy is the linear array wire type over elem and a length argument.
func ArrayTy(elem loom.Type, length loom.TypeArg) *loom.ExtType {
	return &loom.ExtType{
		Extension: CollectionsExt,
		Name:      "array",
		Args:      []loom.TypeArg{length, loom.TypeArgTy{Ty: elem}},
		TyBound:   loom.Linear,
	}
}

// BorrowArrayTy is the experimental borrowed-array wire type.
func BorrowArrayTy(elem loom.Type, length loom.TypeArg) *loom.ExtType {
	return &loom.ExtType{
		Extension: CollectionsExt,
		Name:      "borrow_array",
		Args:      []loom.TypeArg{length, loom.TypeArgTy{Ty: elem}},
		TyBound:   loom.Linear,
	}
}

// DropOpFor builds the drop node op for one affine wire type.
func DropOpFor(t loom.Type) *loom.ExtOp {
	return &loom.ExtOp{
		Extension: WeftExt,
		Name:      DropOp,
		Signature: &loom.FuncType{Inputs: []loom.Type{t}, Outputs: nil},
	}
}
