package compiler

import (
	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/loom"
)

// insertDrops reconciles affine leaks over a finished graph: every
// dangling output wire whose type tolerates an implicit discard gets an
// explicit drop node in the producing node's region. The pass runs once
// after all bodies are lowered; drop nodes have no outputs, so it cannot
// feed itself. Returns the number of drops inserted.
func insertDrops(g *loom.Graph) int {
	count := 0
	total := g.NumNodes()
	for id := 0; id < total; id++ {
		n := loom.Node(id)
		for i, ty := range g.Op(n).OutPortTypes() {
			w := loom.Wire{Node: n, Index: i}
			if len(g.LinkedPorts(w)) > 0 || !droppable(ty) {
				continue
			}
			dn := g.Insert(exts.DropOpFor(ty), g.Parent(n))
			g.Connect(w, loom.Port{Node: dn, Index: 0})
			count++
		}
	}
	return count
}

// droppable reports whether a dangling wire of type t may be dropped.
// Arrays are affine: programs discard them silently and the graph gets an
// explicit drop. Qubits are not: an unconsumed qubit stays dangling for
// validation to flag. Composites drop when everything linear inside them
// does; a linear type parameter drops, with the instantiating call site
// deciding what that means.
func droppable(t loom.Type) bool {
	if t.Bound() != loom.Linear {
		return false
	}
	return dropAllowed(t)
}

// dropAllowed reports whether every linear leaf under t tolerates an
// implicit discard.
func dropAllowed(t loom.Type) bool {
	switch ty := t.(type) {
	case *loom.ExtType:
		q := ty.QualifiedName()
		return q == exts.CollectionsExt+".array" || q == exts.CollectionsExt+".borrow_array"
	case *loom.TupleType:
		return dropAllowedRow(ty.Elems)
	case *loom.SumType:
		for _, row := range ty.Rows {
			if !dropAllowedRow(row) {
				return false
			}
		}
		return true
	case *loom.VarType:
		return true
	default:
		return true
	}
}

func dropAllowedRow(row []loom.Type) bool {
	for _, e := range row {
		if e.Bound() == loom.Linear && !dropAllowed(e) {
			return false
		}
	}
	return true
}
