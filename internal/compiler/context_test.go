package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/loom"
	"github.com/weftlang/weft/internal/typesystem"
)

func boolArg() typesystem.Argument {
	return typesystem.TypeArg{Ty: typesystem.BoolType{}}
}

func natArg(v uint64) typesystem.Argument {
	return typesystem.ConstArg{C: typesystem.NatConst(v)}
}

func TestCompileVariableIdxPassthrough(t *testing.T) {
	c := &Context{}
	for idx := 0; idx < 4; idx++ {
		got, err := c.CompileVariableIdx(idx)
		require.NoError(t, err)
		assert.Equal(t, idx, got)
	}
}

func TestCompileVariableIdxCompaction(t *testing.T) {
	d := boolArg()
	tests := []struct {
		name string
		mono typesystem.Inst
		want map[int]int
	}{
		{"none decided", typesystem.Inst{nil, nil, nil, nil}, map[int]int{0: 0, 1: 1, 2: 2, 3: 3}},
		{"first decided", typesystem.Inst{d, nil, nil, nil}, map[int]int{1: 0, 2: 1, 3: 2}},
		{"last decided", typesystem.Inst{nil, nil, nil, d}, map[int]int{0: 0, 1: 1, 2: 2}},
		{"alternating", typesystem.Inst{d, nil, d, nil}, map[int]int{1: 0, 3: 1}},
		{"middle run decided", typesystem.Inst{nil, d, d, nil}, map[int]int{0: 0, 3: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Context{mono: tt.mono}
			for idx, want := range tt.want {
				got, err := c.CompileVariableIdx(idx)
				require.NoError(t, err)
				assert.Equal(t, want, got, "slot %d", idx)
			}
		})
	}
}

func TestCompileVariableIdxDecidedSlot(t *testing.T) {
	c := &Context{mono: typesystem.Inst{boolArg(), nil}}
	_, err := c.CompileVariableIdx(0)
	require.Error(t, err)
	assert.True(t, diag.IsInternal(err))
}

func TestCompileVariableIdxOutOfRange(t *testing.T) {
	c := &Context{mono: typesystem.Inst{nil, nil}}
	for _, idx := range []int{-1, 2} {
		_, err := c.CompileVariableIdx(idx)
		require.Error(t, err, "index %d", idx)
		assert.True(t, diag.IsInternal(err))
	}
}

func TestTypeVarToLoomDecided(t *testing.T) {
	c := &Context{mono: typesystem.Inst{boolArg()}}
	got, err := c.TypeVarToLoom(typesystem.BoundTypeVar{Idx: 0, Name: "T", Copyable: true})
	require.NoError(t, err)
	assert.Equal(t, loom.Bool(), got)
}

func TestTypeVarToLoomSurvivorRenumbers(t *testing.T) {
	c := &Context{mono: typesystem.Inst{boolArg(), nil}}
	got, err := c.TypeVarToLoom(typesystem.BoundTypeVar{Idx: 1, Name: "T", Copyable: true})
	require.NoError(t, err)
	assert.Equal(t, "v0", got.String())
}

func TestConstVarToLoomDecidedByType(t *testing.T) {
	c := &Context{mono: typesystem.Inst{boolArg()}}
	_, err := c.ConstVarToLoom(typesystem.BoundConstVar{Idx: 0, Name: "n", Ty: typesystem.NumericType{Kind: typesystem.NatKind}})
	require.Error(t, err)
	assert.True(t, diag.IsInternal(err))
}

func TestConstVarToLoomDecided(t *testing.T) {
	c := &Context{mono: typesystem.Inst{natArg(5)}}
	got, err := c.ConstVarToLoom(typesystem.BoundConstVar{Idx: 0, Name: "n", Ty: typesystem.NumericType{Kind: typesystem.NatKind}})
	require.NoError(t, err)
	assert.Equal(t, "5", got.String())
}

func TestRestrictMono(t *testing.T) {
	mono := typesystem.Inst{boolArg(), natArg(3), boolArg()}

	got := restrictMono(mono, map[int]bool{1: true})
	require.Len(t, got, 3)
	assert.Nil(t, got[0])
	assert.Equal(t, mono[1], got[1])
	assert.Nil(t, got[2])

	assert.Nil(t, restrictMono(nil, map[int]bool{0: true}))

	empty := restrictMono(mono, nil)
	require.Len(t, empty, 3)
	for i, a := range empty {
		assert.Nil(t, a, "slot %d", i)
	}
}

func TestMangledName(t *testing.T) {
	assert.Equal(t, "id", mangledName("id", nil))

	name := mangledName("id", typesystem.Inst{boolArg(), nil})
	other := mangledName("id", typesystem.Inst{natArg(2), nil})
	assert.NotEqual(t, name, other)
	assert.Contains(t, name, "id")
}
