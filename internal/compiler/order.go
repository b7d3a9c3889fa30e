package compiler

import (
	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/loom"
)

// orderTracker observes node creation during one body's lowering and
// strings side-effecting nodes together with order edges, so effects
// execute in program order within each dataflow region. Installed as the
// graph's inserter for the duration of the body.
type orderTracker struct {
	g    *loom.Graph
	base loom.NodeInserter
	se   map[string]bool
	// last maps a region container to its most recent effect.
	last   map[loom.Node]loom.Node
	scopes []loom.Node
}

// trackEffects installs a tracker as the graph's inserter until restore
// is called.
func trackEffects(g *loom.Graph, reg *exts.Registry) *orderTracker {
	t := &orderTracker{
		g:    g,
		se:   reg.SideEffectingOps(),
		last: make(map[loom.Node]loom.Node),
	}
	t.base = g.SwapInserter(t)
	return t
}

// restore reinstalls the inserter the tracker replaced.
func (t *orderTracker) restore() {
	t.g.SwapInserter(t.base)
}

func (t *orderTracker) AddNode(op loom.Op, parent loom.Node) loom.Node {
	n := t.base.AddNode(op, parent)
	if t.isEffect(op) {
		t.note(n)
	}
	return n
}

// isEffect consults the registry for extension ops. Calls are effects
// unconditionally: the callee may do anything.
func (t *orderTracker) isEffect(op loom.Op) bool {
	switch o := op.(type) {
	case *loom.ExtOp:
		return t.se[o.OpName()]
	case *loom.Call:
		return true
	case *loom.CallIndirect:
		return true
	default:
		return false
	}
}

// note chains n behind the previous effect of its region, then propagates
// upward: a conditional whose arm contains an effect is itself an effect
// in the region holding it. Case nodes delimit arms rather than owning a
// place in their parent's dataflow, so they forward to their conditional.
// The first effect of a region is pinned after the region's Input node.
func (t *orderTracker) note(n loom.Node) {
	for {
		if _, isCase := t.g.Op(n).(*loom.Case); isCase {
			n = t.g.Parent(n)
			continue
		}
		parent := t.g.Parent(n)
		if parent == loom.InvalidNode {
			return
		}
		if _, isRoot := t.g.Op(parent).(loom.Module); isRoot {
			return
		}
		if last, ok := t.last[parent]; ok {
			if last == n {
				return
			}
			t.g.AddOrderEdge(last, n)
		} else {
			t.scopes = append(t.scopes, parent)
			if in := t.g.InputNode(parent); in != loom.InvalidNode && in != n {
				t.g.AddOrderEdge(in, n)
			}
		}
		t.last[parent] = n
		n = parent
	}
}

// finish pins the trailing effect of every touched region to the region's
// Output node, so no effect can sink past its region boundary. Called
// only when the body lowered cleanly.
func (t *orderTracker) finish() {
	for _, scope := range t.scopes {
		last := t.last[scope]
		if out := t.g.OutputNode(scope); out != loom.InvalidNode && out != last {
			t.g.AddOrderEdge(last, out)
		}
	}
}
