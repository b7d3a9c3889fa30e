package typesystem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstantiateReplacesBoundVars(t *testing.T) {
	v := BoundTypeVar{Idx: 0, Name: "T", Copyable: true}
	n := BoundConstVar{Idx: 1, Name: "n", Ty: natTy()}
	ty := &TupleType{Elements: []Type{v, &ArrayType{Elem: v, Len: n}}}

	inst := Inst{TypeArg{Ty: BoolType{}}, ConstArg{C: NatConst(3)}}
	got := Instantiate(ty, inst)

	want := &TupleType{Elements: []Type{BoolType{}, &ArrayType{Elem: BoolType{}, Len: NatConst(3)}}}
	assert.True(t, TypesEqual(want, got), "got %s", got)
}

func TestInstantiateLeavesExistentials(t *testing.T) {
	e := FreshExistentialTypeVar("X")
	ty := &TupleType{Elements: []Type{e, BoundTypeVar{Idx: 0, Name: "T", Copyable: true}}}
	got := Instantiate(ty, Inst{TypeArg{Ty: intTy()}})
	tup := got.(*TupleType)
	assert.Equal(t, e, tup.Elements[0])
	assert.True(t, TypesEqual(intTy(), tup.Elements[1]))
}

func TestApplySubstLeavesBoundVars(t *testing.T) {
	e := FreshExistentialTypeVar("X")
	b := BoundTypeVar{Idx: 0, Name: "T", Copyable: true}
	ty := &TupleType{Elements: []Type{e, b}}

	s := Subst{e.ID: TypeArg{Ty: intTy()}}
	got := ApplySubst(ty, s).(*TupleType)
	assert.True(t, TypesEqual(intTy(), got.Elements[0]))
	assert.Equal(t, Type(b), got.Elements[1])
}

func TestApplySubstFollowsChains(t *testing.T) {
	a := FreshExistentialTypeVar("A")
	b := FreshExistentialTypeVar("B")
	s := Subst{
		a.ID: TypeArg{Ty: &TupleType{Elements: []Type{b}}},
		b.ID: TypeArg{Ty: intTy()},
	}
	got := ApplySubst(a, s)
	assert.True(t, TypesEqual(&TupleType{Elements: []Type{intTy()}}, got))
}

func TestUndecidedBeforeCompaction(t *testing.T) {
	arg := TypeArg{Ty: intTy()}
	tests := []struct {
		name string
		inst Inst
		idx  int
		want int
	}{
		{"all undecided", Inst{nil, nil, nil}, 2, 2},
		{"all decided before", Inst{arg, arg, nil}, 2, 0},
		{"mixed", Inst{nil, arg, nil}, 2, 1},
		{"first slot", Inst{nil, arg, nil}, 0, 0},
		{"decided then undecided", Inst{arg, nil, nil, arg, nil}, 4, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, UndecidedBefore(tt.inst, tt.idx))
		})
	}
}

func TestInstantiatePartialRenumbers(t *testing.T) {
	// f[T, n: nat, U](T, array[U, n]) -> U
	params := []Parameter{
		TypeParam{Idx: 0, Name: "T"},
		ConstParam{Idx: 1, Name: "n", Ty: natTy()},
		TypeParam{Idx: 2, Name: "U"},
	}
	sig := &FuncType{
		Inputs: []FuncInput{
			{Ty: BoundTypeVar{Idx: 0, Name: "T", Copyable: true}},
			{Ty: &ArrayType{Elem: BoundTypeVar{Idx: 2, Name: "U", Copyable: true}, Len: BoundConstVar{Idx: 1, Name: "n", Ty: natTy()}}},
		},
		Output: BoundTypeVar{Idx: 2, Name: "U", Copyable: true},
		Params: params,
	}

	// decide only n := 4; T and U survive with indices 0 and 1
	got := sig.InstantiatePartial(Inst{nil, ConstArg{C: NatConst(4)}, nil})
	require.Len(t, got.Params, 2)
	assert.Equal(t, 0, got.Params[0].ParamIdx())
	assert.Equal(t, "T", got.Params[0].ParamName())
	assert.Equal(t, 1, got.Params[1].ParamIdx())
	assert.Equal(t, "U", got.Params[1].ParamName())

	arr := got.Inputs[1].Ty.(*ArrayType)
	assert.Equal(t, NatConst(4), arr.Len)
	u := arr.Elem.(BoundTypeVar)
	assert.Equal(t, 1, u.Idx)
	out := got.Output.(BoundTypeVar)
	assert.Equal(t, 1, out.Idx)
}

func TestInstantiatePartialFullDecision(t *testing.T) {
	sig := &FuncType{
		Inputs: []FuncInput{{Ty: BoundTypeVar{Idx: 0, Name: "T", Copyable: true}}},
		Output: BoundTypeVar{Idx: 0, Name: "T", Copyable: true},
		Params: []Parameter{TypeParam{Idx: 0, Name: "T"}},
	}
	got := sig.InstantiatePartial(Inst{TypeArg{Ty: QubitType{}}})
	assert.Empty(t, got.Params)
	assert.True(t, TypesEqual(QubitType{}, got.Inputs[0].Ty))
	assert.True(t, TypesEqual(QubitType{}, got.Output))
}

func TestUnquantified(t *testing.T) {
	sig := &FuncType{
		Inputs: []FuncInput{{Ty: BoundTypeVar{Idx: 0, Name: "T", Copyable: true}}},
		Output: BoundTypeVar{Idx: 0, Name: "T", Copyable: true},
		Params: []Parameter{TypeParam{Idx: 0, Name: "T"}},
	}
	opened, exts := sig.Unquantified()
	require.Len(t, exts, 1)
	assert.Empty(t, opened.Params)

	// the fresh variable unifies like any existential
	s, err := UnifyTypes(opened.Inputs[0].Ty, intTy(), Subst{})
	require.NoError(t, err)
	assert.True(t, TypesEqual(intTy(), ApplySubst(opened.Output, s)))

	// opening twice yields distinct variables
	opened2, _ := sig.Unquantified()
	v1 := opened.Inputs[0].Ty.(ExistentialTypeVar)
	v2 := opened2.Inputs[0].Ty.(ExistentialTypeVar)
	assert.NotEqual(t, v1.ID, v2.ID)
}

func TestComposeAppliesLeftThenRight(t *testing.T) {
	a := FreshExistentialTypeVar("A")
	b := FreshExistentialTypeVar("B")

	s1 := Subst{a.ID: TypeArg{Ty: &TupleType{Elements: []Type{b}}}}
	s2 := Subst{b.ID: TypeArg{Ty: intTy()}}

	composed := s1.Compose(s2)
	got := ApplySubst(a, composed)
	assert.True(t, TypesEqual(&TupleType{Elements: []Type{intTy()}}, got))

	// entries of the right side are preserved
	assert.True(t, TypesEqual(intTy(), ApplySubst(b, composed)))
}

func TestSubstRestrict(t *testing.T) {
	a := FreshExistentialTypeVar("A")
	b := FreshExistentialTypeVar("B")
	s := Subst{
		a.ID: TypeArg{Ty: intTy()},
		b.ID: TypeArg{Ty: BoolType{}},
	}
	got := s.Restrict([]uint64{b.ID})
	require.Len(t, got, 1)
	_, hasA := got[a.ID]
	assert.False(t, hasA)
}

func TestUnsolvedVarsOrder(t *testing.T) {
	a := FreshExistentialTypeVar("A")
	b := FreshExistentialConstVar("n", natTy())
	ty := &TupleType{Elements: []Type{
		&ArrayType{Elem: a, Len: b},
		a, // repeated occurrence is not listed twice
	}}
	got := UnsolvedVars(ty)
	assert.Equal(t, []uint64{a.ID, b.ID}, got)
}
