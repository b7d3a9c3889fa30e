package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/loom"
)

func qallocOp() *loom.ExtOp {
	return &loom.ExtOp{
		Extension: exts.QuantumExt,
		Name:      "qalloc",
		Signature: &loom.FuncType{Outputs: []loom.Type{exts.QubitTy()}},
	}
}

func hadamardOp() *loom.ExtOp {
	return &loom.ExtOp{
		Extension: exts.QuantumExt,
		Name:      "h",
		Signature: &loom.FuncType{Inputs: []loom.Type{exts.QubitTy()}, Outputs: []loom.Type{exts.QubitTy()}},
	}
}

func TestOrderTrackerChainsEffects(t *testing.T) {
	mb := loom.NewModuleBuilder()
	fb := mb.DefineFunc("f", &loom.FuncType{})
	g := mb.Graph()

	tracker := trackEffects(g, exts.Builtins())
	a := fb.Add(qallocOp())
	b := fb.Add(qallocOp())
	tracker.finish()
	tracker.restore()

	assert.True(t, g.HasOrderEdge(fb.InputNode(), a))
	assert.True(t, g.HasOrderEdge(a, b))
	assert.True(t, g.HasOrderEdge(b, fb.OutputNode()))
	assert.False(t, g.HasOrderEdge(fb.InputNode(), b))
}

func TestOrderTrackerIgnoresPureOps(t *testing.T) {
	mb := loom.NewModuleBuilder()
	fb := mb.DefineFunc("f", &loom.FuncType{})
	g := mb.Graph()

	tracker := trackEffects(g, exts.Builtins())
	q := fb.Add(qallocOp())
	fb.Add(hadamardOp(), loom.Wire{Node: q, Index: 0})
	tracker.finish()
	tracker.restore()

	for _, e := range g.OrderEdges() {
		if ext, ok := g.Op(e[0]).(*loom.ExtOp); ok {
			assert.NotEqual(t, "quantum.h", ext.OpName())
		}
		if ext, ok := g.Op(e[1]).(*loom.ExtOp); ok {
			assert.NotEqual(t, "quantum.h", ext.OpName())
		}
	}
}

func TestOrderTrackerTreatsCallsAsEffects(t *testing.T) {
	mb := loom.NewModuleBuilder()
	sig := &loom.FuncType{}
	decl := mb.DeclareFunc("ping", sig)
	fb := mb.DefineFunc("f", &loom.FuncType{})
	g := mb.Graph()

	tracker := trackEffects(g, exts.Builtins())
	first := fb.Call(decl, sig, nil)
	second := fb.Call(decl, sig, nil)
	tracker.finish()
	tracker.restore()

	assert.True(t, g.HasOrderEdge(first, second))
}

// An effect inside a case arm must order the whole conditional within the
// enclosing body, and order itself within the arm.
func TestOrderTrackerPropagatesThroughConditional(t *testing.T) {
	mb := loom.NewModuleBuilder()
	fb := mb.DefineFunc("f", &loom.FuncType{Inputs: []loom.Type{loom.Bool()}})
	g := mb.Graph()

	tracker := trackEffects(g, exts.Builtins())
	before := fb.Add(qallocOp())
	cb := fb.Cond(fb.Inputs()[0], loom.Bool(), nil, nil)
	arm := cb.AddCase()
	inner := arm.Add(qallocOp())
	cb.AddCase()
	tracker.finish()
	tracker.restore()

	assert.True(t, g.HasOrderEdge(arm.InputNode(), inner))
	assert.True(t, g.HasOrderEdge(inner, arm.OutputNode()))
	assert.True(t, g.HasOrderEdge(before, cb.Node()))
	assert.True(t, g.HasOrderEdge(cb.Node(), fb.OutputNode()))
}

func TestOrderTrackerRestoreStopsTracking(t *testing.T) {
	mb := loom.NewModuleBuilder()
	fb := mb.DefineFunc("f", &loom.FuncType{})
	g := mb.Graph()

	tracker := trackEffects(g, exts.Builtins())
	tracker.restore()

	a := fb.Add(qallocOp())
	b := fb.Add(qallocOp())
	require.Empty(t, g.OrderEdges())
	assert.False(t, g.HasOrderEdge(a, b))
}

// Scopes only record effects per container: two sibling function bodies
// never get edges between each other.
func TestOrderTrackerScopesAreIndependent(t *testing.T) {
	mb := loom.NewModuleBuilder()
	f1 := mb.DefineFunc("f1", &loom.FuncType{})
	f2 := mb.DefineFunc("f2", &loom.FuncType{})
	g := mb.Graph()

	tracker := trackEffects(g, exts.Builtins())
	a := f1.Add(qallocOp())
	b := f2.Add(qallocOp())
	tracker.finish()
	tracker.restore()

	assert.False(t, g.HasOrderEdge(a, b))
	assert.True(t, g.HasOrderEdge(f1.InputNode(), a))
	assert.True(t, g.HasOrderEdge(f2.InputNode(), b))
	assert.True(t, g.HasOrderEdge(a, f1.OutputNode()))
	assert.True(t, g.HasOrderEdge(b, f2.OutputNode()))
}
