package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/loom"
)

// producerOf adds an op whose single output of type t dangles.
func producerOf(fb *loom.DfBuilder, t loom.Type) loom.Node {
	return fb.Add(&loom.ExtOp{
		Extension: exts.CollectionsExt,
		Name:      "repeat",
		Signature: &loom.FuncType{Outputs: []loom.Type{t}},
	})
}

func TestInsertDropsDanglingArray(t *testing.T) {
	mb := loom.NewModuleBuilder()
	fb := mb.DefineFunc("f", &loom.FuncType{})
	g := mb.Graph()

	arr := exts.ArrayTy(exts.IntTy(), loom.NatArg{N: 4})
	n := producerOf(fb, arr)

	require.Equal(t, 1, insertDrops(g))

	ports := g.LinkedPorts(loom.Wire{Node: n, Index: 0})
	require.Len(t, ports, 1)
	drop, ok := g.Op(ports[0].Node).(*loom.ExtOp)
	require.True(t, ok)
	assert.Equal(t, exts.WeftExt+"."+exts.DropOp, drop.OpName())
	assert.Equal(t, g.Parent(n), g.Parent(ports[0].Node))
}

func TestInsertDropsIdempotent(t *testing.T) {
	mb := loom.NewModuleBuilder()
	fb := mb.DefineFunc("f", &loom.FuncType{})
	g := mb.Graph()

	producerOf(fb, exts.ArrayTy(exts.IntTy(), loom.NatArg{N: 2}))
	producerOf(fb, exts.BorrowArrayTy(exts.FloatTy(), loom.NatArg{N: 8}))

	assert.Equal(t, 2, insertDrops(g))
	assert.Equal(t, 0, insertDrops(g))
}

func TestInsertDropsLeavesQubitsDangling(t *testing.T) {
	mb := loom.NewModuleBuilder()
	fb := mb.DefineFunc("f", &loom.FuncType{})
	g := mb.Graph()

	n := producerOf(fb, exts.QubitTy())

	assert.Equal(t, 0, insertDrops(g))
	assert.Empty(t, g.LinkedPorts(loom.Wire{Node: n, Index: 0}))
}

func TestInsertDropsSkipsConnectedAndCopyable(t *testing.T) {
	mb := loom.NewModuleBuilder()
	fb := mb.DefineFunc("f", &loom.FuncType{})
	g := mb.Graph()

	// Consumed array: no drop.
	arr := exts.ArrayTy(exts.IntTy(), loom.NatArg{N: 1})
	n := producerOf(fb, arr)
	fb.Add(&loom.ExtOp{
		Extension: exts.CollectionsExt,
		Name:      "repeat",
		Signature: &loom.FuncType{Inputs: []loom.Type{arr}},
	}, loom.Wire{Node: n, Index: 0})

	// Dangling copyable: no drop either.
	producerOf(fb, exts.IntTy())

	assert.Equal(t, 0, insertDrops(g))
}

func TestDropAllowedComposites(t *testing.T) {
	arr := exts.ArrayTy(exts.IntTy(), loom.NatArg{N: 3})
	tests := []struct {
		name string
		typ  loom.Type
		want bool
	}{
		{"array", arr, true},
		{"qubit", exts.QubitTy(), false},
		{"tuple of arrays", &loom.TupleType{Elems: []loom.Type{arr, arr}}, true},
		{"tuple holding qubit", &loom.TupleType{Elems: []loom.Type{arr, exts.QubitTy()}}, false},
		{"sum with qubit row", &loom.SumType{Rows: [][]loom.Type{{arr}, {exts.QubitTy()}}}, false},
		{"sum of droppable rows", &loom.SumType{Rows: [][]loom.Type{{}, {arr}}}, true},
		{"linear variable", &loom.VarType{Idx: 0, VBound: loom.Linear}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dropAllowed(tt.typ))
		})
	}
}

func TestDroppableRequiresLinear(t *testing.T) {
	assert.False(t, droppable(exts.IntTy()))
	assert.False(t, droppable(loom.Bool()))
	assert.True(t, droppable(exts.ArrayTy(exts.NatTy(), loom.NatArg{N: 2})))
	assert.True(t, droppable(&loom.VarType{Idx: 1, VBound: loom.Linear}))
	assert.False(t, droppable(&loom.VarType{Idx: 1, VBound: loom.Copyable}))
}
