package loom

import "fmt"

// ModuleBuilder constructs a graph top-down from the module root.
type ModuleBuilder struct {
	g *Graph
}

// NewModuleBuilder returns a builder over a fresh graph.
func NewModuleBuilder() *ModuleBuilder {
	return &ModuleBuilder{g: NewGraph()}
}

// Graph exposes the graph under construction.
func (mb *ModuleBuilder) Graph() *Graph { return mb.g }

// SetModuleMeta attaches metadata to the module root.
func (mb *ModuleBuilder) SetModuleMeta(key string, value interface{}) {
	mb.g.SetMeta(mb.g.Root(), key, value)
}

// DefineFunc adds a function definition and returns the builder for its
// body region.
func (mb *ModuleBuilder) DefineFunc(name string, sig *FuncType) *DfBuilder {
	n := mb.g.Insert(&FuncDefn{Name: name, Signature: sig}, mb.g.Root())
	return newDfBuilder(mb.g, n, sig.Inputs, sig.Outputs)
}

// DeclareFunc adds a bodyless function declaration.
func (mb *ModuleBuilder) DeclareFunc(name string, sig *FuncType) Node {
	return mb.g.Insert(&FuncDecl{Name: name, Signature: sig}, mb.g.Root())
}

// DfBuilder constructs one dataflow region: the children of a function
// definition, a case arm or a loop body, delimited by Input and Output
// nodes.
type DfBuilder struct {
	g      *Graph
	node   Node
	input  Node
	output Node
}

func newDfBuilder(g *Graph, container Node, ins, outs []Type) *DfBuilder {
	b := &DfBuilder{g: g, node: container}
	b.input = g.Insert(&Input{Types: ins}, container)
	b.output = g.Insert(&Output{Types: outs}, container)
	return b
}

// Node returns the container node this builder fills.
func (b *DfBuilder) Node() Node { return b.node }

// Graph returns the underlying graph.
func (b *DfBuilder) Graph() *Graph { return b.g }

// Inputs returns the wires sourcing the region's input values.
func (b *DfBuilder) Inputs() []Wire {
	n := b.g.NumOut(b.input)
	ws := make([]Wire, n)
	for i := range ws {
		ws[i] = Wire{Node: b.input, Index: i}
	}
	return ws
}

// Add inserts op into the region and connects ins to its input ports in
// order. The number of wires must match the op's input arity.
func (b *DfBuilder) Add(op Op, ins ...Wire) Node {
	want := len(op.InPortTypes())
	if len(ins) != want {
		panic(fmt.Sprintf("loom: op %s expects %d inputs, got %d", op.OpName(), want, len(ins)))
	}
	n := b.g.Insert(op, b.node)
	for i, w := range ins {
		b.g.Connect(w, Port{Node: n, Index: i})
	}
	return n
}

// Call invokes the function definition or declaration fn. sig must be the
// signature instantiated for this call site; args instantiate any
// remaining parameters of the callee.
func (b *DfBuilder) Call(fn Node, sig *FuncType, args []TypeArg, ins ...Wire) Node {
	op := &Call{Signature: sig, TypeArgs: args}
	if len(ins) != len(sig.Inputs) {
		panic(fmt.Sprintf("loom: call expects %d inputs, got %d", len(sig.Inputs), len(ins)))
	}
	n := b.g.Insert(op, b.node)
	for i, w := range ins {
		b.g.Connect(w, Port{Node: n, Index: i})
	}
	b.g.Connect(Wire{Node: fn, Index: 0}, Port{Node: n, Index: len(ins)})
	return n
}

// LoadFunc materializes fn as a first-class function value.
func (b *DfBuilder) LoadFunc(fn Node, sig *FuncType, args []TypeArg) Wire {
	n := b.g.Insert(&LoadFunction{Signature: sig, TypeArgs: args}, b.node)
	b.g.Connect(Wire{Node: fn, Index: 0}, Port{Node: n, Index: 0})
	return Wire{Node: n, Index: 0}
}

// SetOutputs wires the region's results into its Output node.
func (b *DfBuilder) SetOutputs(ws ...Wire) {
	want := b.g.NumIn(b.output)
	if len(ws) != want {
		panic(fmt.Sprintf("loom: region expects %d outputs, got %d", want, len(ws)))
	}
	for i, w := range ws {
		b.g.Connect(w, Port{Node: b.output, Index: i})
	}
}

// InputNode returns the region's Input delimiter.
func (b *DfBuilder) InputNode() Node { return b.input }

// OutputNode returns the region's Output delimiter.
func (b *DfBuilder) OutputNode() Node { return b.output }

// Cond starts a conditional branching on the sum wire. others flow
// unchanged into every case; outs is the type row every case must
// produce.
func (b *DfBuilder) Cond(sum Wire, sumTy *SumType, others []Wire, outs []Type) *CondBuilder {
	otherTys := make([]Type, len(others))
	for i, w := range others {
		otherTys[i] = b.g.OutPortType(w)
	}
	op := &Conditional{Sum: sumTy, Other: otherTys, Outputs: outs}
	n := b.g.Insert(op, b.node)
	b.g.Connect(sum, Port{Node: n, Index: 0})
	for i, w := range others {
		b.g.Connect(w, Port{Node: n, Index: i + 1})
	}
	return &CondBuilder{g: b.g, node: n, sum: sumTy, other: otherTys, outs: outs}
}

// CondBuilder fills the case arms of a conditional, in tag order.
type CondBuilder struct {
	g     *Graph
	node  Node
	sum   *SumType
	other []Type
	outs  []Type
	cases int
}

// Node returns the conditional node.
func (cb *CondBuilder) Node() Node { return cb.node }

// AddCase opens the next case region. Its inputs are the current tag's
// payload row followed by the conditional's other inputs.
func (cb *CondBuilder) AddCase() *DfBuilder {
	if cb.cases >= len(cb.sum.Rows) {
		panic(fmt.Sprintf("loom: conditional has %d cases", len(cb.sum.Rows)))
	}
	row := cb.sum.Rows[cb.cases]
	cb.cases++
	ins := make([]Type, 0, len(row)+len(cb.other))
	ins = append(ins, row...)
	ins = append(ins, cb.other...)
	caseNode := cb.g.Insert(&Case{Inputs: ins, Outputs: cb.outs}, cb.node)
	return newDfBuilder(cb.g, caseNode, ins, cb.outs)
}

// Out returns the i-th result wire of the finished conditional.
func (cb *CondBuilder) Out(i int) Wire {
	return Wire{Node: cb.node, Index: i}
}
