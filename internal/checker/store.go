package checker

import (
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/ids"
)

// Store holds the definitions registered through the builder API, keyed
// by id and by top-level name, plus the instance functions attached to
// types. It is the durable layer of a session: engines derive per-run
// state from it (parsed forms, generated constructors) but never mutate
// it during a run.
type Store struct {
	byId   map[ids.DefId]Def
	byName map[string]ids.DefId
	order  []ids.DefId
	impls  map[ids.DefId]map[string]ids.DefId
}

// NewStore returns an empty definition store.
func NewStore() *Store {
	return &Store{
		byId:   make(map[ids.DefId]Def),
		byName: make(map[string]ids.DefId),
		impls:  make(map[ids.DefId]map[string]ids.DefId),
	}
}

// Register adds a top-level definition under its name.
func (s *Store) Register(d Def) error {
	name := d.DefName()
	if _, ok := s.byName[name]; ok {
		return diag.Newf(diag.ErrD011, name, "a definition named %q is already registered", name)
	}
	if _, ok := s.byId[d.DefId()]; ok {
		return diag.Internalf("definition id %d registered twice", d.DefId())
	}
	s.byId[d.DefId()] = d
	s.byName[name] = d.DefId()
	s.order = append(s.order, d.DefId())
	return nil
}

// Def looks a definition up by id.
func (s *Store) Def(id ids.DefId) (Def, bool) {
	d, ok := s.byId[id]
	return d, ok
}

// Lookup resolves a top-level name.
func (s *Store) Lookup(name string) (ids.DefId, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// Defs returns all registered ids in registration order.
func (s *Store) Defs() []ids.DefId {
	out := make([]ids.DefId, len(s.order))
	copy(out, s.order)
	return out
}

// RegisterImpl attaches fn as the instance function name of the type
// definition owner.
func (s *Store) RegisterImpl(owner ids.DefId, name string, fn ids.DefId) error {
	m := s.impls[owner]
	if m == nil {
		m = make(map[string]ids.DefId)
		s.impls[owner] = m
	}
	if _, ok := m[name]; ok {
		ownerName := ""
		if d, found := s.byId[owner]; found {
			ownerName = d.DefName()
		}
		return diag.Newf(diag.ErrD010, ownerName, "instance function %q is already defined", name)
	}
	m[name] = fn
	return nil
}

// Impl looks up an instance function by owner and name.
func (s *Store) Impl(owner ids.DefId, name string) (ids.DefId, bool) {
	fn, ok := s.impls[owner][name]
	return fn, ok
}
