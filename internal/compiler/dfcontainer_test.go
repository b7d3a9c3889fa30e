package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/loom"
	"github.com/weftlang/weft/internal/typesystem"
)

func newTestLowering(t *testing.T) (*lowering, *loom.Graph) {
	t.Helper()
	mb := loom.NewModuleBuilder()
	fb := mb.DefineFunc("f", &loom.FuncType{})
	return &lowering{c: &Context{}, b: fb}, mb.Graph()
}

func intBoolTuple() *typesystem.TupleType {
	return &typesystem.TupleType{Elements: []typesystem.Type{
		typesystem.NumericType{Kind: typesystem.IntKind},
		typesystem.BoolType{},
	}}
}

func TestDFContainerExplodesOnComponentRead(t *testing.T) {
	lw, g := newTestLowering(t)
	df := newDFContainer(lw)

	tup := intBoolTuple()
	p := VarPlace{Name: "pair", Ty: tup}
	src := producerOf(lw.b, &loom.TupleType{Elems: []loom.Type{exts.IntTy(), loom.Bool()}})
	df.Bind(p.Key(), loom.Wire{Node: src, Index: 0})

	first, err := df.Get(IndexPlace{Parent: p, Index: 0, Ty: tup.Elements[0]})
	require.NoError(t, err)
	_, ok := g.Op(first.Node).(*loom.UnpackTuple)
	require.True(t, ok)
	assert.Equal(t, 0, first.Index)

	// The sibling comes off the same unpack, not a second one.
	second, err := df.Get(IndexPlace{Parent: p, Index: 1, Ty: tup.Elements[1]})
	require.NoError(t, err)
	assert.Equal(t, first.Node, second.Node)
	assert.Equal(t, 1, second.Index)
}

func TestDFContainerRepacksWholeFromComponents(t *testing.T) {
	lw, g := newTestLowering(t)
	df := newDFContainer(lw)

	tup := intBoolTuple()
	p := VarPlace{Name: "pair", Ty: tup}
	src := producerOf(lw.b, &loom.TupleType{Elems: []loom.Type{exts.IntTy(), loom.Bool()}})
	df.Bind(p.Key(), loom.Wire{Node: src, Index: 0})

	_, err := df.Get(IndexPlace{Parent: p, Index: 0, Ty: tup.Elements[0]})
	require.NoError(t, err)

	whole, err := df.Get(p)
	require.NoError(t, err)
	_, ok := g.Op(whole.Node).(*loom.MakeTuple)
	require.True(t, ok)
	assert.Equal(t, 0, whole.Index)
}

func TestDFContainerLinearReadConsumes(t *testing.T) {
	lw, _ := newTestLowering(t)
	df := newDFContainer(lw)

	p := VarPlace{Name: "q", Ty: typesystem.QubitType{}}
	src := producerOf(lw.b, exts.QubitTy())
	df.Bind(p.Key(), loom.Wire{Node: src, Index: 0})

	w, err := df.Get(p)
	require.NoError(t, err)
	assert.Equal(t, src, w.Node)

	_, err = df.Get(p)
	require.Error(t, err)
	assert.True(t, diag.IsInternal(err))
}

func TestDFContainerCopyableReadFansOut(t *testing.T) {
	lw, _ := newTestLowering(t)
	df := newDFContainer(lw)

	p := VarPlace{Name: "n", Ty: typesystem.NumericType{Kind: typesystem.IntKind}}
	src := producerOf(lw.b, exts.IntTy())
	df.Bind(p.Key(), loom.Wire{Node: src, Index: 0})

	first, err := df.Get(p)
	require.NoError(t, err)
	second, err := df.Get(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDFContainerSetDiscardsStaleComponents(t *testing.T) {
	lw, g := newTestLowering(t)
	df := newDFContainer(lw)

	tup := intBoolTuple()
	p := VarPlace{Name: "pair", Ty: tup}
	src := producerOf(lw.b, &loom.TupleType{Elems: []loom.Type{exts.IntTy(), loom.Bool()}})
	df.Bind(p.Key(), loom.Wire{Node: src, Index: 0})

	old, err := df.Get(IndexPlace{Parent: p, Index: 0, Ty: tup.Elements[0]})
	require.NoError(t, err)

	fresh := producerOf(lw.b, &loom.TupleType{Elems: []loom.Type{exts.IntTy(), loom.Bool()}})
	require.NoError(t, df.Set(p, loom.Wire{Node: fresh, Index: 0}))

	got, err := df.Get(IndexPlace{Parent: p, Index: 0, Ty: tup.Elements[0]})
	require.NoError(t, err)
	assert.NotEqual(t, old.Node, got.Node)
	unpack, ok := g.Op(got.Node).(*loom.UnpackTuple)
	require.True(t, ok)
	assert.Len(t, unpack.Types, 2)
}

func TestDFContainerSetComponentThenReadWhole(t *testing.T) {
	lw, g := newTestLowering(t)
	df := newDFContainer(lw)

	tup := intBoolTuple()
	p := VarPlace{Name: "pair", Ty: tup}
	src := producerOf(lw.b, &loom.TupleType{Elems: []loom.Type{exts.IntTy(), loom.Bool()}})
	df.Bind(p.Key(), loom.Wire{Node: src, Index: 0})

	repl := producerOf(lw.b, exts.IntTy())
	replWire := loom.Wire{Node: repl, Index: 0}
	require.NoError(t, df.Set(IndexPlace{Parent: p, Index: 0, Ty: tup.Elements[0]}, replWire))

	whole, err := df.Get(p)
	require.NoError(t, err)
	_, ok := g.Op(whole.Node).(*loom.MakeTuple)
	require.True(t, ok)

	drv, ok := g.Driver(loom.Port{Node: whole.Node, Index: 0})
	require.True(t, ok)
	assert.Equal(t, replWire, drv)
}

func TestPlaceKeys(t *testing.T) {
	root := VarPlace{Name: "s", Ty: intBoolTuple()}
	idx := IndexPlace{Parent: root, Index: 1, Ty: typesystem.BoolType{}}
	fld := FieldPlace{Parent: root, Field: "flag", Index: 0, Ty: typesystem.BoolType{}}

	assert.Equal(t, "s", root.Key())
	assert.Equal(t, "s.1", idx.Key())
	assert.Equal(t, "s.flag", fld.Key())
}
