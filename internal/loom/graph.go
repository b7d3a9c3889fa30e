package loom

import (
	"fmt"
	"sort"
)

// Node identifies a node within one Graph. The module root is node 0.
type Node int

// InvalidNode is the nil value for Node references.
const InvalidNode Node = -1

// Port addresses one input or output port of a node; direction is implied
// by use.
type Port struct {
	Node  Node
	Index int
}

// Wire is an output port whose value flows to input ports.
type Wire = Port

func (p Port) String() string {
	return fmt.Sprintf("%d:%d", p.Node, p.Index)
}

// NodeInserter is the node-creation seam. The graph itself is the base
// inserter; passes that need to observe node creation (side-effect
// ordering) wrap the current inserter for the duration of a lowering and
// restore it afterwards.
type NodeInserter interface {
	AddNode(op Op, parent Node) Node
}

type nodeData struct {
	op       Op
	parent   Node
	children []Node
	numIn    int
	numOut   int
	meta     map[string]interface{}
}

// Graph is a mutable dataflow graph under construction.
type Graph struct {
	nodes      []nodeData
	outLinks   map[Port][]Port
	inLinks    map[Port]Port
	orderEdges [][2]Node
	orderSet   map[[2]Node]bool
	inserter   NodeInserter
}

// coreInserter is the base inserter backing every graph.
type coreInserter struct {
	g *Graph
}

func (ci coreInserter) AddNode(op Op, parent Node) Node {
	return ci.g.addNode(op, parent)
}

// NewGraph returns a graph holding only the module root.
func NewGraph() *Graph {
	g := &Graph{
		outLinks: make(map[Port][]Port),
		inLinks:  make(map[Port]Port),
		orderSet: make(map[[2]Node]bool),
	}
	g.inserter = coreInserter{g}
	g.addNode(Module{}, InvalidNode)
	return g
}

// Root returns the module node.
func (g *Graph) Root() Node { return 0 }

// NumNodes returns the number of nodes including the root.
func (g *Graph) NumNodes() int { return len(g.nodes) }

func (g *Graph) addNode(op Op, parent Node) Node {
	n := Node(len(g.nodes))
	g.nodes = append(g.nodes, nodeData{
		op:     op,
		parent: parent,
		numIn:  len(op.InPortTypes()),
		numOut: len(op.OutPortTypes()),
	})
	if parent != InvalidNode {
		g.nodes[parent].children = append(g.nodes[parent].children, n)
	}
	return n
}

// Insert creates a node through the currently installed inserter.
func (g *Graph) Insert(op Op, parent Node) Node {
	return g.inserter.AddNode(op, parent)
}

// SwapInserter installs ni as the graph's inserter and returns the
// previous one, so callers can restore it when their pass ends.
func (g *Graph) SwapInserter(ni NodeInserter) NodeInserter {
	prev := g.inserter
	g.inserter = ni
	return prev
}

// Connect wires the output port src into the input port dst. Driving an
// input port twice is a programming error and panics.
func (g *Graph) Connect(src Wire, dst Port) {
	if prev, ok := g.inLinks[dst]; ok {
		panic(fmt.Sprintf("loom: input port %s already driven by %s", dst, prev))
	}
	g.inLinks[dst] = src
	g.outLinks[src] = append(g.outLinks[src], dst)
}

// Driver returns the output port feeding the input port dst.
func (g *Graph) Driver(dst Port) (Wire, bool) {
	src, ok := g.inLinks[dst]
	return src, ok
}

// LinkedPorts returns the input ports fed by the output port src.
func (g *Graph) LinkedPorts(src Wire) []Port {
	ports := g.outLinks[src]
	out := make([]Port, len(ports))
	copy(out, ports)
	return out
}

// AddOrderEdge records that a must run before b. Duplicate edges collapse;
// self edges are programming errors.
func (g *Graph) AddOrderEdge(a, b Node) {
	if a == b {
		panic(fmt.Sprintf("loom: order edge %d -> %d is a self edge", a, b))
	}
	key := [2]Node{a, b}
	if g.orderSet[key] {
		return
	}
	g.orderSet[key] = true
	g.orderEdges = append(g.orderEdges, key)
}

// OrderEdges returns all order edges in insertion order.
func (g *Graph) OrderEdges() [][2]Node {
	out := make([][2]Node, len(g.orderEdges))
	copy(out, g.orderEdges)
	return out
}

// HasOrderEdge reports whether the edge a -> b exists.
func (g *Graph) HasOrderEdge(a, b Node) bool {
	return g.orderSet[[2]Node{a, b}]
}

// Op returns the operation of node n.
func (g *Graph) Op(n Node) Op { return g.nodes[n].op }

// Parent returns the parent container of n, or InvalidNode for the root.
func (g *Graph) Parent(n Node) Node { return g.nodes[n].parent }

// Children returns the children of n in insertion order.
func (g *Graph) Children(n Node) []Node {
	kids := g.nodes[n].children
	out := make([]Node, len(kids))
	copy(out, kids)
	return out
}

// NumIn returns the number of input ports of n.
func (g *Graph) NumIn(n Node) int { return g.nodes[n].numIn }

// NumOut returns the number of output ports of n.
func (g *Graph) NumOut(n Node) int { return g.nodes[n].numOut }

// OutPortType returns the type of the value produced on p.
func (g *Graph) OutPortType(p Port) Type {
	return g.nodes[p.Node].op.OutPortTypes()[p.Index]
}

// InputNode returns the Input delimiter of the dataflow region under
// container, or InvalidNode when the container has none.
func (g *Graph) InputNode(container Node) Node {
	for _, c := range g.nodes[container].children {
		if _, ok := g.nodes[c].op.(*Input); ok {
			return c
		}
	}
	return InvalidNode
}

// OutputNode returns the Output delimiter of the dataflow region under
// container, or InvalidNode when the container has none.
func (g *Graph) OutputNode(container Node) Node {
	for _, c := range g.nodes[container].children {
		if _, ok := g.nodes[c].op.(*Output); ok {
			return c
		}
	}
	return InvalidNode
}

// SetMeta attaches a metadata value to n.
func (g *Graph) SetMeta(n Node, key string, value interface{}) {
	if g.nodes[n].meta == nil {
		g.nodes[n].meta = make(map[string]interface{})
	}
	g.nodes[n].meta[key] = value
}

// Meta reads a metadata value from n.
func (g *Graph) Meta(n Node, key string) (interface{}, bool) {
	v, ok := g.nodes[n].meta[key]
	return v, ok
}

// MetaKeys returns n's metadata keys sorted for deterministic output.
func (g *Graph) MetaKeys(n Node) []string {
	keys := make([]string, 0, len(g.nodes[n].meta))
	for k := range g.nodes[n].meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
