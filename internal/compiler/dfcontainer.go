package compiler

import (
	"strconv"
	"strings"

	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/loom"
	"github.com/weftlang/weft/internal/typesystem"
)

// retKey holds a body's pending return value. The leading % keeps it out
// of the identifier namespace.
const retKey = "%ret"

// Place names a storable location: a local variable or a field or element
// path rooted in one. Borrowed arguments are places, so a call's implicit
// returns know where to write back.
type Place interface {
	// Key is the container key, unique per path.
	Key() string
	// PlaceTy is the location's declared type, before any
	// monomorphization is applied.
	PlaceTy() typesystem.Type
}

// VarPlace is a local variable.
type VarPlace struct {
	Name string
	Ty   typesystem.Type
}

func (p VarPlace) Key() string              { return p.Name }
func (p VarPlace) PlaceTy() typesystem.Type { return p.Ty }

// FieldPlace is a struct field within a parent place.
type FieldPlace struct {
	Parent Place
	Field  string
	Index  int
	Ty     typesystem.Type
}

func (p FieldPlace) Key() string              { return p.Parent.Key() + "." + p.Field }
func (p FieldPlace) PlaceTy() typesystem.Type { return p.Ty }

// IndexPlace is a tuple element within a parent place.
type IndexPlace struct {
	Parent Place
	Index  int
	Ty     typesystem.Type
}

func (p IndexPlace) Key() string              { return p.Parent.Key() + "." + strconv.Itoa(p.Index) }
func (p IndexPlace) PlaceTy() typesystem.Type { return p.Ty }

// DFContainer tracks which wire currently carries each live place of one
// dataflow region. A composite value is bound either whole or as
// individual components, never both: reading below the bound granularity
// unpacks on demand, reading above it packs the components back together.
type DFContainer struct {
	lw    *lowering
	wires map[string]loom.Wire
}

func newDFContainer(lw *lowering) *DFContainer {
	return &DFContainer{lw: lw, wires: make(map[string]loom.Wire)}
}

// Bind records w as the wire carrying key.
func (df *DFContainer) Bind(key string, w loom.Wire) {
	df.wires[key] = w
}

// Unbind removes and returns the wire carrying key.
func (df *DFContainer) Unbind(key string) (loom.Wire, bool) {
	w, ok := df.wires[key]
	if ok {
		delete(df.wires, key)
	}
	return w, ok
}

// Get returns the wire holding p. Linear reads consume the binding;
// copyable wires stay bound and may fan out.
func (df *DFContainer) Get(p Place) (loom.Wire, error) {
	if w, ok := df.take(p); ok {
		return w, nil
	}
	if err := df.explodeTo(p); err != nil {
		return loom.Wire{}, err
	}
	if w, ok := df.take(p); ok {
		return w, nil
	}
	return df.repack(p)
}

func (df *DFContainer) take(p Place) (loom.Wire, bool) {
	w, ok := df.wires[p.Key()]
	if ok && df.lw.c.isLinear(p.PlaceTy()) {
		delete(df.wires, p.Key())
	}
	return w, ok
}

// Set binds p to w, discarding anything previously known below it. Stale
// component wires of the overwritten value are left dangling for the drop
// pass.
func (df *DFContainer) Set(p Place, w loom.Wire) error {
	if err := df.explodeTo(p); err != nil {
		return err
	}
	prefix := p.Key() + "."
	for k := range df.wires {
		if strings.HasPrefix(k, prefix) {
			delete(df.wires, k)
		}
	}
	df.wires[p.Key()] = w
	return nil
}

// explodeTo unpacks bound ancestors of p until p's own level is reached.
// Ancestors without a binding were exploded earlier and are skipped.
func (df *DFContainer) explodeTo(p Place) error {
	chain := placeChain(p)
	for _, anc := range chain[:len(chain)-1] {
		w, ok := df.wires[anc.Key()]
		if !ok {
			continue
		}
		children := childPlaces(anc)
		if children == nil {
			return diag.Internalf("place %s of type %s cannot be unpacked", anc.Key(), anc.PlaceTy())
		}
		row := make([]loom.Type, len(children))
		for i, ch := range children {
			t, err := df.lw.c.lowerType(ch.PlaceTy())
			if err != nil {
				return err
			}
			row[i] = t
		}
		n := df.lw.b.Add(&loom.UnpackTuple{Types: row}, w)
		delete(df.wires, anc.Key())
		for i, ch := range children {
			df.wires[ch.Key()] = loom.Wire{Node: n, Index: i}
		}
	}
	return nil
}

// repack reassembles p from its components. Linear components are
// consumed: after a repack the value lives at p, not below it.
func (df *DFContainer) repack(p Place) (loom.Wire, error) {
	children := childPlaces(p)
	if children == nil {
		return loom.Wire{}, diag.Internalf("place %s is not bound", p.Key())
	}
	ws := make([]loom.Wire, len(children))
	row := make([]loom.Type, len(children))
	for i, ch := range children {
		w, err := df.Get(ch)
		if err != nil {
			return loom.Wire{}, err
		}
		t, err := df.lw.c.lowerType(ch.PlaceTy())
		if err != nil {
			return loom.Wire{}, err
		}
		ws[i] = w
		row[i] = t
	}
	n := df.lw.b.Add(&loom.MakeTuple{Types: row}, ws...)
	return loom.Wire{Node: n, Index: 0}, nil
}

// placeChain lists the path from the root variable down to p, inclusive.
func placeChain(p Place) []Place {
	switch x := p.(type) {
	case FieldPlace:
		return append(placeChain(x.Parent), p)
	case IndexPlace:
		return append(placeChain(x.Parent), p)
	default:
		return []Place{p}
	}
}

// childPlaces enumerates one level of sub-places, nil for types without a
// fixed component layout.
func childPlaces(p Place) []Place {
	switch ty := p.PlaceTy().(type) {
	case *typesystem.StructType:
		fields := ty.FieldTypes()
		out := make([]Place, len(fields))
		for i, f := range fields {
			out[i] = FieldPlace{Parent: p, Field: f.Name, Index: i, Ty: f.Ty}
		}
		return out
	case *typesystem.TupleType:
		out := make([]Place, len(ty.Elements))
		for i, e := range ty.Elements {
			out[i] = IndexPlace{Parent: p, Index: i, Ty: e}
		}
		return out
	default:
		return nil
	}
}
