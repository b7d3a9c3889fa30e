package loom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intTy() Type {
	return &ExtType{Extension: "arith", Name: "int", TyBound: Copyable}
}

func qubitTy() Type {
	return &ExtType{Extension: "quantum", Name: "qubit", TyBound: Linear}
}

func TestTypeBounds(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		want TypeBound
	}{
		{"ext copyable", intTy(), Copyable},
		{"ext linear", qubitTy(), Linear},
		{"tuple of copyable", &TupleType{Elems: []Type{intTy(), Bool()}}, Copyable},
		{"tuple containing linear", &TupleType{Elems: []Type{intTy(), qubitTy()}}, Linear},
		{"sum containing linear row", &SumType{Rows: [][]Type{{}, {qubitTy()}}}, Linear},
		{"function over linear is copyable", &FuncType{Inputs: []Type{qubitTy()}, Outputs: []Type{qubitTy()}}, Copyable},
		{"bool", Bool(), Copyable},
		{"linear variable", &VarType{Idx: 0, VBound: Linear}, Linear},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.typ.Bound())
		})
	}
}

func TestBuildFunction(t *testing.T) {
	mb := NewModuleBuilder()
	sig := &FuncType{Inputs: []Type{intTy()}, Outputs: []Type{intTy()}}
	fb := mb.DefineFunc("double", sig)

	ins := fb.Inputs()
	require.Len(t, ins, 1)

	add := fb.Add(&ExtOp{
		Extension: "arith",
		Name:      "iadd",
		Signature: &FuncType{Inputs: []Type{intTy(), intTy()}, Outputs: []Type{intTy()}},
	}, ins[0], ins[0])
	fb.SetOutputs(Wire{Node: add, Index: 0})

	g := mb.Graph()
	assert.Equal(t, Node(0), g.Root())
	require.Equal(t, 5, g.NumNodes()) // module, defn, input, output, iadd

	defn := g.Children(g.Root())[0]
	_, ok := g.Op(defn).(*FuncDefn)
	require.True(t, ok)
	assert.Equal(t, defn, g.Parent(add))

	// both iadd inputs are driven by the same input wire
	drv0, ok := g.Driver(Port{Node: add, Index: 0})
	require.True(t, ok)
	drv1, ok := g.Driver(Port{Node: add, Index: 1})
	require.True(t, ok)
	assert.Equal(t, drv0, drv1)
	assert.Equal(t, ins[0], drv0)

	out := g.OutputNode(defn)
	require.NotEqual(t, InvalidNode, out)
	drv, ok := g.Driver(Port{Node: out, Index: 0})
	require.True(t, ok)
	assert.Equal(t, Wire{Node: add, Index: 0}, drv)
}

func TestConnectTwicePanics(t *testing.T) {
	g := NewGraph()
	n := g.Insert(&Input{Types: []Type{intTy()}}, g.Root())
	m := g.Insert(&Output{Types: []Type{intTy()}}, g.Root())
	g.Connect(Wire{Node: n, Index: 0}, Port{Node: m, Index: 0})
	assert.Panics(t, func() {
		g.Connect(Wire{Node: n, Index: 0}, Port{Node: m, Index: 0})
	})
}

func TestOrderEdges(t *testing.T) {
	g := NewGraph()
	a := g.Insert(&Input{Types: nil}, g.Root())
	b := g.Insert(&Output{Types: nil}, g.Root())

	g.AddOrderEdge(a, b)
	g.AddOrderEdge(a, b) // duplicate collapses
	require.Len(t, g.OrderEdges(), 1)
	assert.True(t, g.HasOrderEdge(a, b))
	assert.False(t, g.HasOrderEdge(b, a))

	assert.Panics(t, func() { g.AddOrderEdge(a, a) })
}

func TestConditionalBuilder(t *testing.T) {
	mb := NewModuleBuilder()
	sig := &FuncType{Inputs: []Type{intTy()}, Outputs: []Type{intTy()}}
	fb := mb.DefineFunc("pick", sig)
	ins := fb.Inputs()

	flag := fb.Add(&LoadConst{Ty: Bool(), Value: BoolVal{B: true}})
	cb := fb.Cond(Wire{Node: flag, Index: 0}, Bool(), ins, []Type{intTy()})

	falseArm := cb.AddCase()
	falseArm.SetOutputs(falseArm.Inputs()[0])
	trueArm := cb.AddCase()
	trueArm.SetOutputs(trueArm.Inputs()[0])

	fb.SetOutputs(cb.Out(0))

	g := mb.Graph()
	condNode := cb.Node()
	require.Len(t, g.Children(condNode), 2)
	for _, kid := range g.Children(condNode) {
		_, ok := g.Op(kid).(*Case)
		assert.True(t, ok)
	}

	// a third case is a programming error
	assert.Panics(t, func() { cb.AddCase() })
}

func TestInserterSwapRestores(t *testing.T) {
	g := NewGraph()
	var seen []string
	spy := inserterFunc(func(op Op, parent Node) Node {
		seen = append(seen, op.OpName())
		return g.addNode(op, parent)
	})

	prev := g.SwapInserter(spy)
	g.Insert(&Input{Types: nil}, g.Root())
	g.SwapInserter(prev)
	g.Insert(&Output{Types: nil}, g.Root())

	assert.Equal(t, []string{"core.input"}, seen)
	assert.Equal(t, 3, g.NumNodes())
}

type inserterFunc func(op Op, parent Node) Node

func (f inserterFunc) AddNode(op Op, parent Node) Node { return f(op, parent) }

func TestEnvelopeRoundTrip(t *testing.T) {
	mb := NewModuleBuilder()
	mb.SetModuleMeta("core.generator", "weftc 0.1.0")
	sig := &FuncType{Inputs: []Type{qubitTy()}, Outputs: []Type{qubitTy()}}
	fb := mb.DefineFunc("flip", sig)
	h := fb.Add(&ExtOp{
		Extension: "quantum",
		Name:      "h",
		Signature: &FuncType{Inputs: []Type{qubitTy()}, Outputs: []Type{qubitTy()}},
	}, fb.Inputs()[0])
	fb.SetOutputs(Wire{Node: h, Index: 0})

	g := mb.Graph()
	g.AddOrderEdge(fb.InputNode(), h)

	reqs := []Requirement{{Name: "quantum", Constraint: "~0.3"}}
	data := EncodeEnvelope(g, reqs)
	require.NotEmpty(t, data)

	env, err := DecodeEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, uint64(EnvelopeVersion), env.Version)
	require.Len(t, env.Nodes, g.NumNodes())
	assert.Equal(t, "core.module", env.Nodes[0].Op)
	assert.Equal(t, -1, env.Nodes[0].Parent)
	assert.Equal(t, reqs, env.Extensions)
	require.Len(t, env.Order, 1)
	assert.Equal(t, int(fb.InputNode()), env.Order[0].Before)
	assert.Equal(t, int(h), env.Order[0].After)

	require.Len(t, env.Meta, 1)
	assert.Equal(t, "core.generator", env.Meta[0].Key)
	assert.Equal(t, "weftc 0.1.0", env.Meta[0].Value)

	var flip *NodeRecord
	for i := range env.Nodes {
		if env.Nodes[i].Op == "core.func_defn" {
			flip = &env.Nodes[i]
		}
	}
	require.NotNil(t, flip)
	assert.Equal(t, "flip", flip.Label)

	// two dataflow links: input->h, h->output
	assert.Len(t, env.Links, 2)
}

func TestDecodeEnvelopeRejectsGarbage(t *testing.T) {
	_, err := DecodeEnvelope([]byte{0xff, 0xff, 0xff})
	require.Error(t, err)

	// valid framing but no version field
	_, err = DecodeEnvelope(nil)
	require.Error(t, err)
}
