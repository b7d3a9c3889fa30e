// Package exts defines the extension registry: the named, versioned op and
// type vocabularies a graph may draw on beyond the core dataflow ops.
//
// Every extension carries a semantic version. Envelopes record which
// extensions a graph used together with a version constraint, and tooling
// validates those constraints against the registry it was built with.
package exts

import (
	"fmt"
	"sort"

	"github.com/Masterminds/semver/v3"
	"github.com/pkg/errors"

	"github.com/weftlang/weft/internal/loom"
)

// OpDef describes one extension operation.
type OpDef struct {
	Name string
	// SideEffecting ops are kept in program order by the compiler's
	// ordering pass.
	SideEffecting bool
}

// TypeDef describes one extension type constructor.
type TypeDef struct {
	Name   string
	Linear bool
}

// Extension is a named, versioned group of ops and types.
type Extension struct {
	Name    string
	Version *semver.Version

	ops     map[string]*OpDef
	opOrder []string
	types   map[string]*TypeDef
	tyOrder []string
}

// New creates an extension. version must be valid semver.
func New(name, version string) (*Extension, error) {
	v, err := semver.NewVersion(version)
	if err != nil {
		return nil, errors.Wrapf(err, "extension %s: bad version %q", name, version)
	}
	return &Extension{
		Name:    name,
		Version: v,
		ops:     make(map[string]*OpDef),
		types:   make(map[string]*TypeDef),
	}, nil
}

// MustNew is New for static extension tables.
func MustNew(name, version string) *Extension {
	e, err := New(name, version)
	if err != nil {
		panic(err)
	}
	return e
}

// AddOp registers an operation. Re-registering a name panics; the builtin
// tables are static.
func (e *Extension) AddOp(name string, sideEffecting bool) *OpDef {
	if _, dup := e.ops[name]; dup {
		panic(fmt.Sprintf("exts: op %s.%s registered twice", e.Name, name))
	}
	def := &OpDef{Name: name, SideEffecting: sideEffecting}
	e.ops[name] = def
	e.opOrder = append(e.opOrder, name)
	return def
}

// AddType registers a type constructor.
func (e *Extension) AddType(name string, linear bool) *TypeDef {
	if _, dup := e.types[name]; dup {
		panic(fmt.Sprintf("exts: type %s.%s registered twice", e.Name, name))
	}
	def := &TypeDef{Name: name, Linear: linear}
	e.types[name] = def
	e.tyOrder = append(e.tyOrder, name)
	return def
}

// Op looks up an operation by bare name.
func (e *Extension) Op(name string) (*OpDef, bool) {
	def, ok := e.ops[name]
	return def, ok
}

// Ops returns the extension's operations in registration order.
func (e *Extension) Ops() []*OpDef {
	out := make([]*OpDef, 0, len(e.opOrder))
	for _, name := range e.opOrder {
		out = append(out, e.ops[name])
	}
	return out
}

// Types returns the extension's type constructors in registration order.
func (e *Extension) Types() []*TypeDef {
	out := make([]*TypeDef, 0, len(e.tyOrder))
	for _, name := range e.tyOrder {
		out = append(out, e.types[name])
	}
	return out
}

// Registry maps extension names to extensions.
type Registry struct {
	exts  map[string]*Extension
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{exts: make(map[string]*Extension)}
}

// Register adds an extension; duplicate names are rejected.
func (r *Registry) Register(e *Extension) error {
	if _, dup := r.exts[e.Name]; dup {
		return errors.Errorf("extension %s already registered", e.Name)
	}
	r.exts[e.Name] = e
	r.order = append(r.order, e.Name)
	return nil
}

// Lookup finds an extension by name.
func (r *Registry) Lookup(name string) (*Extension, bool) {
	e, ok := r.exts[name]
	return e, ok
}

// Extensions returns all extensions in registration order.
func (r *Registry) Extensions() []*Extension {
	out := make([]*Extension, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.exts[name])
	}
	return out
}

// SideEffectingOps returns the qualified names of every registered
// side-effecting operation, sorted.
func (r *Registry) SideEffectingOps() map[string]bool {
	out := make(map[string]bool)
	for _, e := range r.exts {
		for name, def := range e.ops {
			if def.SideEffecting {
				out[e.Name+"."+name] = true
			}
		}
	}
	return out
}

// Check verifies that the registry carries the named extension at a
// version satisfying the constraint.
func (r *Registry) Check(name, constraint string) error {
	e, ok := r.exts[name]
	if !ok {
		return errors.Errorf("extension %s not registered", name)
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return errors.Wrapf(err, "extension %s: bad constraint %q", name, constraint)
	}
	if !c.Check(e.Version) {
		return errors.Errorf("extension %s at %s does not satisfy %q", name, e.Version, constraint)
	}
	return nil
}

// Constraint renders the registry's compatibility constraint for an
// extension: same major.minor line as the registered version.
func (r *Registry) Constraint(name string) (string, bool) {
	e, ok := r.exts[name]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("~%d.%d", e.Version.Major(), e.Version.Minor()), true
}

// Requirements scans a graph for extension usage and renders envelope
// requirements against this registry, sorted by extension name. Unknown
// extensions get an exact-unknown constraint so validation fails loudly on
// the consumer side.
func (r *Registry) Requirements(g *loom.Graph) []loom.Requirement {
	used := make(map[string]bool)
	for id := 0; id < g.NumNodes(); id++ {
		n := loom.Node(id)
		op := g.Op(n)
		if ext, ok := op.(*loom.ExtOp); ok {
			used[ext.Extension] = true
		}
		collectTypeExts(op.InPortTypes(), used)
		collectTypeExts(op.OutPortTypes(), used)
	}
	names := make([]string, 0, len(used))
	for name := range used {
		names = append(names, name)
	}
	sort.Strings(names)

	reqs := make([]loom.Requirement, 0, len(names))
	for _, name := range names {
		constraint, ok := r.Constraint(name)
		if !ok {
			constraint = "unknown"
		}
		reqs = append(reqs, loom.Requirement{Name: name, Constraint: constraint})
	}
	return reqs
}

func collectTypeExts(ts []loom.Type, used map[string]bool) {
	for _, t := range ts {
		collectTypeExt(t, used)
	}
}

func collectTypeExt(t loom.Type, used map[string]bool) {
	switch ty := t.(type) {
	case *loom.ExtType:
		used[ty.Extension] = true
		for _, a := range ty.Args {
			if ta, ok := a.(loom.TypeArgTy); ok {
				collectTypeExt(ta.Ty, used)
			}
		}
	case *loom.TupleType:
		collectTypeExts(ty.Elems, used)
	case *loom.SumType:
		for _, row := range ty.Rows {
			collectTypeExts(row, used)
		}
	case *loom.FuncType:
		collectTypeExts(ty.Inputs, used)
		collectTypeExts(ty.Outputs, used)
	}
}
