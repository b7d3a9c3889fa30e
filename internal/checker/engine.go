package checker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/typesystem"
)

// proofCacheSize bounds the protocol satisfaction cache. Proofs are
// small; the bound exists so pathological programs cannot hold every
// ground check of a long session in memory.
const proofCacheSize = 256

// Engine drives definitions through their lifecycle: raw, parsed,
// checked. It owns the per-run caches and worklists; the store it wraps
// is never mutated during a run, so several engines can share one store.
// An engine is not safe for concurrent use.
type Engine struct {
	store        *Store
	log          *zap.Logger
	session      uuid.UUID
	experimental bool

	// Definitions the engine itself derives from registered ones:
	// methods split off class bodies and generated constructors. They
	// layer over the store and are rebuilt on every run.
	derived      map[ids.DefId]Def
	derivedImpls map[ids.DefId]map[string]ids.DefId

	parsed  map[ids.DefId]ParsedDef
	checked map[string]CheckedDef

	// Two worklists: type definitions drain first, so every signature
	// a function mentions is resolved before any body is checked. Both
	// are FIFO to keep runs deterministic.
	typesQ  []ids.DefId
	typesQd map[ids.DefId]bool
	checkQ  []workItem
	checkQd map[string]bool

	// inProgress guards type definition checking. Entering a definition
	// already in the set means its shape refers back to itself.
	inProgress map[ids.DefId]bool

	proofs *lru.Cache[string, ImplProof]
}

type workItem struct {
	id   ids.DefId
	mono typesystem.Inst
}

// EngineOption configures an engine at construction.
type EngineOption func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(log *zap.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

// WithExperimental enables language features gated behind the
// experimental flag, such as borrowed array types.
func WithExperimental(on bool) EngineOption {
	return func(e *Engine) { e.experimental = on }
}

// NewEngine builds an engine over a definition store.
func NewEngine(store *Store, opts ...EngineOption) *Engine {
	e := &Engine{store: store, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	e.Reset()
	return e
}

// Reset clears every per-run cache and mints a fresh run id. Check calls
// it on entry: results never carry over between top-level invocations.
func (e *Engine) Reset() {
	e.session = uuid.New()
	e.derived = make(map[ids.DefId]Def)
	e.derivedImpls = make(map[ids.DefId]map[string]ids.DefId)
	e.parsed = make(map[ids.DefId]ParsedDef)
	e.checked = make(map[string]CheckedDef)
	e.typesQ = nil
	e.typesQd = make(map[ids.DefId]bool)
	e.checkQ = nil
	e.checkQd = make(map[string]bool)
	e.inProgress = make(map[ids.DefId]bool)
	// Cannot fail for a positive size.
	e.proofs, _ = lru.New[string, ImplProof](proofCacheSize)
}

// Logger returns the engine's logger.
func (e *Engine) Logger() *zap.Logger { return e.log }

// SessionID identifies the current run. It changes on every Reset.
func (e *Engine) SessionID() uuid.UUID { return e.session }

// Experimental reports whether gated features are enabled.
func (e *Engine) Experimental() bool { return e.experimental }

// LookupDef resolves a top-level name against the store.
func (e *Engine) LookupDef(name string) (ids.DefId, bool) {
	return e.store.Lookup(name)
}

// lookupAny finds a definition by id in the derived layer or the store.
func (e *Engine) lookupAny(id ids.DefId) (Def, bool) {
	if d, ok := e.derived[id]; ok {
		return d, true
	}
	return e.store.Def(id)
}

// addDerivedDef records a definition the engine created itself.
func (e *Engine) addDerivedDef(d Def) {
	e.derived[d.DefId()] = d
}

// registerDerivedImpl attaches fn as instance function name of owner,
// checking both the derived layer and the store for clashes.
func (e *Engine) registerDerivedImpl(owner ids.DefId, ownerName, name string, fn ids.DefId) error {
	if _, ok := e.store.Impl(owner, name); ok {
		return diag.Newf(diag.ErrD010, ownerName, "instance function %q is already defined", name)
	}
	m := e.derivedImpls[owner]
	if m == nil {
		m = make(map[string]ids.DefId)
		e.derivedImpls[owner] = m
	}
	if _, ok := m[name]; ok {
		return diag.Newf(diag.ErrD010, ownerName, "instance function %q is already defined", name)
	}
	m[name] = fn
	return nil
}

// InstanceFunc looks up the instance function name on the type ty.
func (e *Engine) InstanceFunc(ty typesystem.Type, name string) (ids.DefId, bool) {
	owner, ok := e.typeOwner(ty)
	if !ok {
		return 0, false
	}
	return e.implOf(owner, name)
}

// implOf looks up an instance function on the owning definition directly.
func (e *Engine) implOf(owner ids.DefId, name string) (ids.DefId, bool) {
	if fn, ok := e.derivedImpls[owner][name]; ok {
		return fn, true
	}
	return e.store.Impl(owner, name)
}

// typeOwner maps a type to the definition instance functions attach to.
// Tuples and function types have no owner.
func (e *Engine) typeOwner(ty typesystem.Type) (ids.DefId, bool) {
	switch t := ty.(type) {
	case *typesystem.StructType:
		return t.Decl.StructId(), true
	case *typesystem.EnumType:
		return t.Decl.EnumId(), true
	case typesystem.BoolType, typesystem.StringType, typesystem.NumericType,
		typesystem.QubitType, typesystem.NoneType:
		return e.store.Lookup(ty.String())
	case *typesystem.ArrayType:
		if t.Borrowed {
			return e.store.Lookup("borrow_array")
		}
		return e.store.Lookup("array")
	default:
		return 0, false
	}
}

// GetParsed parses a definition on first demand and schedules it:
// type definitions go on the types-first worklist, non-generic
// checkables on the general one. Generic definitions wait until a call
// site demands a concrete instantiation through RegisterGenericUse.
func (e *Engine) GetParsed(id ids.DefId) (ParsedDef, error) {
	if p, ok := e.parsed[id]; ok {
		return p, nil
	}
	d, ok := e.lookupAny(id)
	if !ok {
		return nil, diag.Internalf("no definition registered under id %d", id)
	}
	var p ParsedDef
	switch def := d.(type) {
	case RawDef:
		parsed, err := def.Parse(e)
		if err != nil {
			return nil, err
		}
		p = parsed
	case ParsedDef:
		p = def
	default:
		return nil, diag.Internalf("definition %q cannot be parsed", d.DefName())
	}
	e.parsed[id] = p

	switch p.(type) {
	case *ParsedStructDef, *ParsedEnumDef, *ParsedProtocolDef, *BuiltinTypeDef:
		e.enqueueType(id)
	default:
		if len(p.GenericParamNames()) == 0 {
			e.enqueueCheck(id, nil)
		}
	}
	return p, nil
}

// GetChecked checks a definition under the given monomorphization,
// memoized per (definition, decided slots). Checking a struct or enum
// also registers its generated constructors as instance functions.
func (e *Engine) GetChecked(id ids.DefId, mono typesystem.Inst) (CheckedDef, error) {
	key := monoKey(id, mono)
	if c, ok := e.checked[key]; ok {
		return c, nil
	}
	p, err := e.GetParsed(id)
	if err != nil {
		return nil, err
	}
	var c CheckedDef
	switch def := p.(type) {
	case Checkable:
		if len(mono) > 0 {
			return nil, diag.Internalf("%s %q takes no monomorphization", p.Description(), p.DefName())
		}
		c, err = e.checkOnce(id, def)
	case GenericCheckable:
		c, err = def.CheckMono(e, mono)
	default:
		err = diag.Internalf("%s %q is not checkable", p.Description(), p.DefName())
	}
	if err != nil {
		return nil, err
	}
	e.checked[key] = c
	if err := e.registerConstructors(id, c); err != nil {
		return nil, err
	}
	e.log.Debug("definition checked",
		zap.String("name", c.DefName()),
		zap.String("key", key))
	return c, nil
}

// checkOnce runs a type definition's check inside the recursion guard.
// A struct or enum whose fields lead back to itself would otherwise
// recurse through resolution forever.
func (e *Engine) checkOnce(id ids.DefId, def Checkable) (CheckedDef, error) {
	if e.inProgress[id] {
		return nil, diag.Newf(diag.ErrD008, def.DefName(),
			"%s %q is defined in terms of itself", def.Description(), def.DefName())
	}
	e.inProgress[id] = true
	defer delete(e.inProgress, id)
	return def.Check(e)
}

// registerConstructors attaches the generated constructors of a freshly
// checked struct or enum.
func (e *Engine) registerConstructors(id ids.DefId, c CheckedDef) error {
	switch d := c.(type) {
	case *CheckedStructDef:
		ctor := makeConstructor(d)
		e.addDerivedDef(ctor)
		return e.registerDerivedImpl(id, d.DefName(), "__new__", ctor.Id)
	case *CheckedEnumDef:
		for i, ctor := range makeVariantConstructors(d) {
			e.addDerivedDef(ctor)
			if err := e.registerDerivedImpl(id, d.DefName(), d.EnumVariants()[i].Name, ctor.Id); err != nil {
				return err
			}
		}
	}
	return nil
}

// RegisterGenericUse schedules a generic definition for checking under
// the decided slots a call site demands. Duplicate demands are dropped.
func (e *Engine) RegisterGenericUse(id ids.DefId, mono typesystem.Inst) {
	e.enqueueCheck(id, mono)
}

func (e *Engine) enqueueType(id ids.DefId) {
	if e.typesQd[id] {
		return
	}
	e.typesQd[id] = true
	e.typesQ = append(e.typesQ, id)
}

func (e *Engine) enqueueCheck(id ids.DefId, mono typesystem.Inst) {
	key := monoKey(id, mono)
	if e.checkQd[key] {
		return
	}
	if _, done := e.checked[key]; done {
		return
	}
	e.checkQd[key] = true
	e.checkQ = append(e.checkQ, workItem{id: id, mono: mono})
}

// Check is the top-level entry: it resets the engine, validates that
// entry has no unresolved generic parameters, then drains the worklists
// until every reachable definition is checked. The types-first list
// always empties completely before the general list advances.
func (e *Engine) Check(entry ids.DefId) (CheckedDef, error) {
	e.Reset()
	parsed, err := e.GetParsed(entry)
	if err != nil {
		return nil, err
	}
	if names := parsed.GenericParamNames(); len(names) > 0 {
		return nil, diag.Newf(diag.ErrE001, parsed.DefName(),
			"%q cannot be an entry point: generic parameter(s) %s are unresolved",
			parsed.DefName(), strings.Join(names, ", "))
	}
	e.log.Debug("check started",
		zap.String("entry", parsed.DefName()),
		zap.String("session", e.session.String()))
	e.enqueueCheck(entry, nil)
	if err := e.drain(); err != nil {
		return nil, err
	}
	return e.GetChecked(entry, nil)
}

func (e *Engine) drain() error {
	for {
		if len(e.typesQ) > 0 {
			id := e.typesQ[0]
			e.typesQ = e.typesQ[1:]
			if _, err := e.GetChecked(id, nil); err != nil {
				return err
			}
			continue
		}
		if len(e.checkQ) > 0 {
			it := e.checkQ[0]
			e.checkQ = e.checkQ[1:]
			if _, err := e.GetChecked(it.id, it.mono); err != nil {
				return err
			}
			continue
		}
		return nil
	}
}

// monoKey renders the memoization key for one checked definition.
// InstKey is injective, so distinct monomorphizations never collide.
func monoKey(id ids.DefId, mono typesystem.Inst) string {
	return fmt.Sprintf("%d(%s)", id, typesystem.InstKey(mono))
}
