package weft

import (
	"fmt"

	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/loom"
)

// Program is a compiled program: the lowered dataflow graph together
// with the extension registry it was compiled against.
type Program struct {
	g   *loom.Graph
	reg *exts.Registry
}

// Requirement names an extension the compiled graph depends on and the
// version constraint a consumer must satisfy.
type Requirement struct {
	Name       string
	Constraint string
}

// NumNodes reports the size of the compiled graph.
func (p *Program) NumNodes() int { return p.g.NumNodes() }

// Extensions lists the graph's extension requirements, sorted by name.
func (p *Program) Extensions() []Requirement {
	reqs := p.reg.Requirements(p.g)
	out := make([]Requirement, len(reqs))
	for i, r := range reqs {
		out[i] = Requirement{Name: r.Name, Constraint: r.Constraint}
	}
	return out
}

// Envelope serializes the program into the binary envelope format,
// extension requirements included.
func (p *Program) Envelope() []byte {
	return loom.EncodeEnvelope(p.g, p.reg.Requirements(p.g))
}

// Metadata returns a module-level metadata entry rendered as a string.
// The compiler stamps core.generator and core.used_extensions.
func (p *Program) Metadata(key string) (string, bool) {
	v, ok := p.g.Meta(p.g.Root(), key)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", v), true
}
