package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/loom"
)

// passthroughCtx lowers bound variables positionally, the way a fully
// generic body is lowered.
type passthroughCtx struct{}

func (passthroughCtx) TypeVarToLoom(v BoundTypeVar) (loom.Type, error) {
	bound := loom.Copyable
	if !v.Copyable {
		bound = loom.Linear
	}
	return &loom.VarType{Idx: v.Idx, VBound: bound}, nil
}

func (passthroughCtx) ConstVarToLoom(v BoundConstVar) (loom.TypeArg, error) {
	return loom.VarArg{Idx: v.Idx}, nil
}

func TestLowerPrimitives(t *testing.T) {
	ctx := passthroughCtx{}

	got, err := LowerType(BoolType{}, ctx)
	require.NoError(t, err)
	assert.Equal(t, loom.Bool(), got)

	got, err = LowerType(NoneType{}, ctx)
	require.NoError(t, err)
	assert.Equal(t, loom.Unit(), got)

	got, err = LowerType(QubitType{}, ctx)
	require.NoError(t, err)
	assert.Equal(t, loom.Linear, got.Bound())
}

func TestLowerStructToTuple(t *testing.T) {
	decl := &testStructDecl{
		id:   ids.FreshDefId(),
		name: "Point",
		fields: []StructField{
			{Name: "x", Ty: intTy()},
			{Name: "y", Ty: BoundTypeVar{Idx: 0, Name: "T", Copyable: true}},
		},
	}
	st := &StructType{Decl: decl, Args: Inst{TypeArg{Ty: BoolType{}}}}

	got, err := LowerType(st, passthroughCtx{})
	require.NoError(t, err)
	tup, ok := got.(*loom.TupleType)
	require.True(t, ok, "structs lower structurally")
	require.Len(t, tup.Elems, 2)
	assert.Equal(t, loom.Bool(), tup.Elems[1])
}

func TestLowerArrayCarriesLength(t *testing.T) {
	arr := &ArrayType{Elem: QubitType{}, Len: NatConst(5)}
	got, err := LowerType(arr, passthroughCtx{})
	require.NoError(t, err)
	ext, ok := got.(*loom.ExtType)
	require.True(t, ok)
	assert.Equal(t, "collections.array", ext.QualifiedName())
	assert.Equal(t, loom.Linear, ext.Bound())
	require.Len(t, ext.Args, 2)
	assert.Equal(t, loom.NatArg{N: 5}, ext.Args[0])
}

func TestLowerBorrowedLinearInputsAreReturned(t *testing.T) {
	// First qubit is borrowed and comes back as an extra output, the
	// second is consumed, the int is copyable and never returned.
	sig := &FuncType{
		Inputs: []FuncInput{
			{Ty: QubitType{}},
			{Ty: QubitType{}, Owned: true},
			{Ty: intTy()},
		},
		Output: BoolType{},
	}
	got, err := LowerFuncType(sig, passthroughCtx{})
	require.NoError(t, err)
	require.Len(t, got.Inputs, 3)
	require.Len(t, got.Outputs, 2) // bool result + borrowed qubit
	assert.Equal(t, loom.Bool(), got.Outputs[0])
	assert.Equal(t, loom.Linear, got.Outputs[1].Bound())
}

func TestLowerNoneOutputIsEmptyRow(t *testing.T) {
	sig := &FuncType{Inputs: []FuncInput{{Ty: intTy()}}, Output: NoneType{}}
	got, err := LowerFuncType(sig, passthroughCtx{})
	require.NoError(t, err)
	assert.Empty(t, got.Outputs)
}

func TestLowerParams(t *testing.T) {
	params := []Parameter{
		TypeParam{Idx: 0, Name: "T", Linear: true},
		ConstParam{Idx: 1, Name: "n", Ty: natTy()},
	}
	got, err := LowerParams(params)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, loom.TypeSort, got[0].Sort)
	assert.Equal(t, loom.Linear, got[0].Bound)
	assert.Equal(t, loom.NatSort, got[1].Sort)

	// non-nat constant parameters cannot survive to the graph
	_, err = LowerParams([]Parameter{ConstParam{Idx: 0, Name: "tag", Ty: StringType{}}})
	require.Error(t, err)
}

func TestLowerRejectsUnsolvedVariables(t *testing.T) {
	_, err := LowerType(FreshExistentialTypeVar("T"), passthroughCtx{})
	require.Error(t, err)

	_, err = LowerConst(FreshExistentialConstVar("n", natTy()), passthroughCtx{})
	require.Error(t, err)
}

func TestLowerBoundVarsGoThroughContext(t *testing.T) {
	v := BoundTypeVar{Idx: 3, Name: "T", Copyable: false}
	got, err := LowerType(v, passthroughCtx{})
	require.NoError(t, err)
	assert.Equal(t, &loom.VarType{Idx: 3, VBound: loom.Linear}, got)

	n := BoundConstVar{Idx: 2, Name: "n", Ty: natTy()}
	arg, err := LowerConst(n, passthroughCtx{})
	require.NoError(t, err)
	assert.Equal(t, loom.VarArg{Idx: 2}, arg)
}
