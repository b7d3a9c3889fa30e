// Package compiler lowers checked definitions into loom graphs.
//
// Checking decides what a program means; this package decides what the
// graph looks like: which generic parameters survive as graph-level
// variables and which are baked into specialized copies, which calls
// become which nodes, how borrowed values thread back to their places,
// in what order side effects run, and where leftover affine values get
// dropped.
package compiler

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/weftlang/weft/internal/checker"
	"github.com/weftlang/weft/internal/config"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/loom"
	"github.com/weftlang/weft/internal/typesystem"
)

// Context drives one lowering run. It owns the module builder, the cache
// of compiled definitions and the worklist of bodies still to lower; one
// Context produces one graph. Like the engine it wraps, a Context is not
// safe for concurrent use.
type Context struct {
	eng *checker.Engine
	log *zap.Logger
	reg *exts.Registry
	mb  *loom.ModuleBuilder

	compiled map[string]*CompiledDef
	worklist []bodyWork

	// globals caches the graph functions backing builtins loaded as
	// first-class values, keyed by global id and instantiation.
	globals map[string]loadedGlobal

	// mono is the monomorphization of the body currently being lowered:
	// one slot per declared parameter of the enclosing definition, with
	// forced slots decided and survivors nil. It is nil between bodies
	// and inside definitions without generic parameters.
	mono typesystem.Inst
}

// CompiledDef is one definition's compiled form: a graph function
// (defined or declared), or a builtin that expands inline at each call
// site, in which case Custom is set and there is no node.
type CompiledDef struct {
	Id   ids.DefId
	Name string
	Mono typesystem.Inst

	Node loom.Node
	Sig  *loom.FuncType

	// SrcSig is the signature with the monomorphization applied:
	// decided parameters substituted, survivors renumbered from zero.
	// Everything at a call boundary is expressed in this space.
	SrcSig *typesystem.FuncType

	Custom *checker.CustomFunctionDef
}

type bodyWork struct {
	cd *CompiledDef
	fn *checker.CheckedFunctionDef
	b  *loom.DfBuilder
}

type loadedGlobal struct {
	node loom.Node
	sig  *loom.FuncType
}

// NewContext builds a compilation context over a checked engine and the
// extension registry the emitted ops come from.
func NewContext(eng *checker.Engine, reg *exts.Registry) *Context {
	return &Context{
		eng:      eng,
		log:      eng.Logger(),
		reg:      reg,
		mb:       loom.NewModuleBuilder(),
		compiled: make(map[string]*CompiledDef),
		globals:  make(map[string]loadedGlobal),
	}
}

// Graph returns the graph under construction.
func (c *Context) Graph() *loom.Graph { return c.mb.Graph() }

// BuildCompiledDef returns the compiled form of a definition under mono,
// compiling it on first use. mono carries one slot per declared generic
// parameter, forced slots decided by ground arguments and survivors nil;
// a nil mono stands for no parameters at all. Bodies are not lowered
// here: they go on the worklist, so a recursive function finds its own
// entry already cached when its body lowers.
func (c *Context) BuildCompiledDef(id ids.DefId, mono typesystem.Inst) (*CompiledDef, error) {
	key := defKey(id, mono)
	if cd, ok := c.compiled[key]; ok {
		return cd, nil
	}
	parsed, err := c.eng.GetParsed(id)
	if err != nil {
		return nil, err
	}
	def, ok := parsed.(checker.SignatureDef)
	if !ok {
		return nil, diag.Internalf("%s %q cannot be compiled as a function",
			parsed.Description(), parsed.DefName())
	}
	sig := def.Signature()
	if len(mono) != len(sig.Params) {
		return nil, diag.Internalf("%q takes %d generic parameters, monomorphization has %d slots",
			def.DefName(), len(sig.Params), len(mono))
	}
	for _, a := range mono {
		if a == nil {
			continue
		}
		if err := groundArg(def.DefName(), a); err != nil {
			return nil, err
		}
	}
	// The checker only splits on forced constants; handing it the full
	// mono would check identical bodies once per specialization.
	checked, err := c.eng.GetChecked(id, restrictMono(mono, typesystem.ForcedConstParams(sig.Params)))
	if err != nil {
		return nil, err
	}
	switch impl := checked.(type) {
	case *checker.CustomFunctionDef:
		cd := &CompiledDef{Id: id, Name: impl.Name, Mono: mono, Node: loom.InvalidNode, SrcSig: impl.Sig, Custom: impl}
		c.compiled[key] = cd
		return cd, nil
	case *checker.CheckedFunctionDef:
		srcSig := sig.InstantiatePartial(mono)
		lsig, err := typesystem.LowerFuncType(srcSig, noMono{})
		if err != nil {
			return nil, err
		}
		name := mangledName(def.DefName(), mono)
		cd := &CompiledDef{Id: id, Name: name, Mono: mono, SrcSig: srcSig, Sig: lsig}
		if impl.IsDeclaration() {
			cd.Node = c.mb.DeclareFunc(name, lsig)
			c.compiled[key] = cd
			return cd, nil
		}
		fb := c.mb.DefineFunc(name, lsig)
		cd.Node = fb.Node()
		c.compiled[key] = cd
		c.worklist = append(c.worklist, bodyWork{cd: cd, fn: impl, b: fb})
		c.log.Debug("function queued for lowering",
			zap.String("name", name),
			zap.Int("worklist", len(c.worklist)))
		return cd, nil
	default:
		return nil, diag.Internalf("%s %q cannot be compiled as a function",
			parsed.Description(), parsed.DefName())
	}
}

// compiledCallee compiles the definition a call site references. inst is
// the call's full instantiation, already resolved against the enclosing
// body's monomorphization: forced slots must be ground, the survivors
// become graph type arguments of the call. The returned signature is the
// callee's compacted signature with those survivors substituted in, which
// is exactly the row layout of the call node. Builtins come back with
// Custom set and no type args or signature; they never become call nodes.
func (c *Context) compiledCallee(def checker.SignatureDef, inst typesystem.Inst) (*CompiledDef, []loom.TypeArg, *loom.FuncType, error) {
	sig := def.Signature()
	if len(sig.Params) == 0 {
		cd, err := c.BuildCompiledDef(def.DefId(), nil)
		if err != nil {
			return nil, nil, nil, err
		}
		return cd, nil, cd.Sig, nil
	}
	if len(inst) != len(sig.Params) {
		return nil, nil, nil, diag.Internalf("call to %q decides %d generic slots, want %d",
			def.DefName(), len(inst), len(sig.Params))
	}
	forced := typesystem.ForcedParams(sig.Params)
	compileMono := make(typesystem.Inst, len(sig.Params))
	var targs []loom.TypeArg
	var sols typesystem.Inst
	for i := range sig.Params {
		a := inst[i]
		if a == nil {
			return nil, nil, nil, diag.Internalf("call to %q leaves generic slot %d undecided",
				def.DefName(), i)
		}
		if forced[i] {
			if err := groundArg(def.DefName(), a); err != nil {
				return nil, nil, nil, err
			}
			compileMono[i] = a
			continue
		}
		ta, err := typesystem.LowerArg(a, noMono{})
		if err != nil {
			return nil, nil, nil, err
		}
		targs = append(targs, ta)
		sols = append(sols, a)
	}
	cd, err := c.BuildCompiledDef(def.DefId(), compileMono)
	if err != nil {
		return nil, nil, nil, err
	}
	if cd.Custom != nil {
		return cd, nil, nil, nil
	}
	callSig, err := typesystem.LowerFuncType(
		&typesystem.FuncType{Inputs: cd.SrcSig.Inputs, Output: cd.SrcSig.Output},
		callsiteLower{sols: sols},
	)
	if err != nil {
		return nil, nil, nil, err
	}
	return cd, targs, callSig, nil
}

// BuildCompiledInstanceFunc resolves and compiles the instance function
// name on ty, with inst deciding the implementation's own parameters. A
// type without such a member yields nil with no error: how the member
// was found, and what its absence means, is the caller's business.
func (c *Context) BuildCompiledInstanceFunc(ty typesystem.Type, name string, inst typesystem.Inst) (*CompiledDef, []loom.TypeArg, *loom.FuncType, error) {
	implId, ok := c.eng.InstanceFunc(ty, name)
	if !ok {
		return nil, nil, nil, nil
	}
	parsed, err := c.eng.GetParsed(implId)
	if err != nil {
		return nil, nil, nil, err
	}
	def, ok := parsed.(checker.SignatureDef)
	if !ok {
		return nil, nil, nil, diag.Internalf("member %q of %s is not a function", name, ty)
	}
	return c.compiledCallee(def, inst)
}

// DeclareGlobalFunc materializes a builtin as a first-class callable: a
// graph function whose body is the builtin's expansion applied to the
// region inputs. One wrapper exists per (global id, instantiation);
// loading qalloc as a value, say, always yields the same nullary
// function producing a qubit.
func (c *Context) DeclareGlobalFunc(custom *checker.CustomFunctionDef, inst typesystem.Inst) (loom.Node, *loom.FuncType, error) {
	key := fmt.Sprintf("%d(%s)", custom.GlobalId, typesystem.InstKey(inst))
	if lg, ok := c.globals[key]; ok {
		return lg.node, lg.sig, nil
	}
	if len(custom.Sig.Params) != 0 {
		return loom.InvalidNode, nil, diag.Internalf("builtin %q loaded as a value with undecided parameters", custom.Name)
	}
	lsig, err := typesystem.LowerFuncType(custom.Sig, noMono{})
	if err != nil {
		return loom.InvalidNode, nil, err
	}
	fb := c.mb.DefineFunc(custom.Name, lsig)
	outs, err := custom.Lower(c.callCtx(fb, custom.Sig, inst), fb.Inputs())
	if err != nil {
		return loom.InvalidNode, nil, err
	}
	fb.SetOutputs(outs...)
	c.globals[key] = loadedGlobal{node: fb.Node(), sig: lsig}
	return fb.Node(), lsig, nil
}

// Finish drains the worklist until every reachable body is lowered, then
// reconciles leftover affine values with explicit drops. The drop pass
// runs once, over the whole graph.
func (c *Context) Finish() error {
	for len(c.worklist) > 0 {
		item := c.worklist[0]
		c.worklist = c.worklist[1:]
		if err := c.lowerBody(item); err != nil {
			return err
		}
	}
	if n := insertDrops(c.mb.Graph()); n > 0 {
		c.log.Debug("inserted drops", zap.Int("count", n))
	}
	return nil
}

// callCtx assembles the hook context for a builtin's call lowering. Sig
// and Inst must arrive with the enclosing body's monomorphization
// already applied; the lower helpers map them straight to graph types.
func (c *Context) callCtx(b *loom.DfBuilder, sig *typesystem.FuncType, inst typesystem.Inst) *checker.CallCtx {
	return &checker.CallCtx{
		B:    b,
		Sig:  sig,
		Inst: inst,
		LowerTy: func(t typesystem.Type) (loom.Type, error) {
			return typesystem.LowerType(t, noMono{})
		},
		LowerArg: func(a typesystem.Argument) (loom.TypeArg, error) {
			return typesystem.LowerArg(a, noMono{})
		},
		LowerSig: func(ft *typesystem.FuncType) (*loom.FuncType, error) {
			return typesystem.LowerFuncType(ft, noMono{})
		},
	}
}

// monoType resolves the active monomorphization in a declared-space
// type. Identity when none is active.
func (c *Context) monoType(t typesystem.Type) typesystem.Type {
	if c.mono == nil {
		return t
	}
	return typesystem.Instantiate(t, c.mono)
}

func (c *Context) monoInst(inst typesystem.Inst) typesystem.Inst {
	if c.mono == nil || inst == nil {
		return inst
	}
	return typesystem.InstantiateInst(inst, c.mono)
}

func (c *Context) monoProto(p typesystem.ProtocolInst) typesystem.ProtocolInst {
	if c.mono == nil {
		return p
	}
	return typesystem.InstantiateProtocol(p, c.mono)
}

// monoSig resolves the active monomorphization in a call-site signature.
// Such signatures carry no parameters of their own; their types may still
// mention the enclosing definition's.
func (c *Context) monoSig(sig *typesystem.FuncType) *typesystem.FuncType {
	if c.mono == nil {
		return sig
	}
	ins := make([]typesystem.FuncInput, len(sig.Inputs))
	for i, in := range sig.Inputs {
		ins[i] = typesystem.FuncInput{Ty: typesystem.Instantiate(in.Ty, c.mono), Owned: in.Owned}
	}
	return &typesystem.FuncType{Inputs: ins, Output: typesystem.Instantiate(sig.Output, c.mono)}
}

// isLinear reports whether a declared-space type is linear once the
// active monomorphization is applied. Surviving linear-capable variables
// count as linear; the graph holds them to the stricter discipline.
func (c *Context) isLinear(t typesystem.Type) bool {
	return typesystem.Linear(c.monoType(t))
}

func (c *Context) lowerType(t typesystem.Type) (loom.Type, error) {
	return typesystem.LowerType(t, c)
}

// CompileVariableIdx maps a declared parameter index into the compacted
// space of the surviving parameters: the number of undecided slots
// strictly before it. The slot itself must be undecided; decided slots
// have no compiled variable. With no active monomorphization every slot
// survives and the index passes through unchanged.
func (c *Context) CompileVariableIdx(idx int) (int, error) {
	if c.mono == nil {
		return idx, nil
	}
	if idx < 0 || idx >= len(c.mono) {
		return 0, diag.Internalf("variable index %d outside a monomorphization of %d slots", idx, len(c.mono))
	}
	if c.mono[idx] != nil {
		return 0, diag.Internalf("variable index %d was decided by the monomorphization", idx)
	}
	return typesystem.UndecidedBefore(c.mono, idx), nil
}

// TypeVarToLoom implements typesystem.LowerCtx against the active
// monomorphization: decided variables lower to their decided argument,
// survivors renumber into the compacted space.
func (c *Context) TypeVarToLoom(v typesystem.BoundTypeVar) (loom.Type, error) {
	if c.mono == nil {
		return loomVar(v.Idx, v.Copyable), nil
	}
	if v.Idx < 0 || v.Idx >= len(c.mono) {
		return nil, diag.Internalf("type variable %s references slot %d of %d", v.Name, v.Idx, len(c.mono))
	}
	if a := c.mono[v.Idx]; a != nil {
		ta, ok := a.(typesystem.TypeArg)
		if !ok {
			return nil, diag.Internalf("type variable %s decided by constant %s", v.Name, a)
		}
		return typesystem.LowerType(ta.Ty, noMono{})
	}
	idx, err := c.CompileVariableIdx(v.Idx)
	if err != nil {
		return nil, err
	}
	return loomVar(idx, v.Copyable), nil
}

// ConstVarToLoom is the constant half of typesystem.LowerCtx. Surviving
// constant variables must be nat-typed: constants of any other type are
// always forced onto the monomorphization and cannot reach here
// undecided.
func (c *Context) ConstVarToLoom(v typesystem.BoundConstVar) (loom.TypeArg, error) {
	if c.mono != nil {
		if v.Idx < 0 || v.Idx >= len(c.mono) {
			return nil, diag.Internalf("constant variable %s references slot %d of %d", v.Name, v.Idx, len(c.mono))
		}
		if a := c.mono[v.Idx]; a != nil {
			ca, ok := a.(typesystem.ConstArg)
			if !ok {
				return nil, diag.Internalf("constant variable %s decided by type %s", v.Name, a)
			}
			return typesystem.LowerConst(ca.C, noMono{})
		}
	}
	if n, ok := v.Ty.(typesystem.NumericType); !ok || n.Kind != typesystem.NatKind {
		return nil, diag.Internalf("constant variable %s of type %s survived into lowering", v.Name, v.Ty)
	}
	idx := v.Idx
	if c.mono != nil {
		var err error
		idx, err = c.CompileVariableIdx(v.Idx)
		if err != nil {
			return nil, err
		}
	}
	return loom.VarArg{Idx: idx}, nil
}

// noMono lowers types that already live in their final variable space:
// indices pass through unchanged. Compiled signatures and pre-resolved
// arguments lower this way.
type noMono struct{}

func (noMono) TypeVarToLoom(v typesystem.BoundTypeVar) (loom.Type, error) {
	return loomVar(v.Idx, v.Copyable), nil
}

func (noMono) ConstVarToLoom(v typesystem.BoundConstVar) (loom.TypeArg, error) {
	if n, ok := v.Ty.(typesystem.NumericType); !ok || n.Kind != typesystem.NatKind {
		return nil, diag.Internalf("constant variable %s of type %s survived into lowering", v.Name, v.Ty)
	}
	return loom.VarArg{Idx: v.Idx}, nil
}

// callsiteLower lowers a callee's compacted signature with the arguments
// one call site decided for its surviving parameters. The signature's
// shape, including which borrowed inputs thread back out, stays the
// callee's; only the variables are replaced.
type callsiteLower struct {
	sols typesystem.Inst
}

func (v callsiteLower) TypeVarToLoom(tv typesystem.BoundTypeVar) (loom.Type, error) {
	a, err := v.sol(tv.Idx, tv.Name)
	if err != nil {
		return nil, err
	}
	ta, ok := a.(typesystem.TypeArg)
	if !ok {
		return nil, diag.Internalf("call site decided type variable %s with constant %s", tv.Name, a)
	}
	return typesystem.LowerType(ta.Ty, noMono{})
}

func (v callsiteLower) ConstVarToLoom(cv typesystem.BoundConstVar) (loom.TypeArg, error) {
	a, err := v.sol(cv.Idx, cv.Name)
	if err != nil {
		return nil, err
	}
	ca, ok := a.(typesystem.ConstArg)
	if !ok {
		return nil, diag.Internalf("call site decided constant variable %s with type %s", cv.Name, a)
	}
	return typesystem.LowerConst(ca.C, noMono{})
}

func (v callsiteLower) sol(idx int, name string) (typesystem.Argument, error) {
	if idx < 0 || idx >= len(v.sols) || v.sols[idx] == nil {
		return nil, diag.Internalf("call site leaves variable %s (slot %d) unsolved", name, idx)
	}
	return v.sols[idx], nil
}

func loomVar(idx int, copyable bool) *loom.VarType {
	bound := loom.Linear
	if copyable {
		bound = loom.Copyable
	}
	return &loom.VarType{Idx: idx, VBound: bound}
}

// defKey renders the cache key for one compiled definition. InstKey is
// injective, so distinct monomorphizations never collide.
func defKey(id ids.DefId, mono typesystem.Inst) string {
	return fmt.Sprintf("%d(%s)", id, typesystem.InstKey(mono))
}

// mangledName appends the decided generic arguments to a definition's
// name, so distinct specializations get distinct graph symbols. Slots
// that stay generic render as underscores.
func mangledName(name string, mono typesystem.Inst) string {
	for _, a := range mono {
		if a != nil {
			return name + typesystem.InstString(mono)
		}
	}
	return name
}

// restrictMono keeps only the slots whose decisions the checker splits
// on; anything else would check identical bodies repeatedly.
func restrictMono(mono typesystem.Inst, keep map[int]bool) typesystem.Inst {
	if mono == nil {
		return nil
	}
	out := make(typesystem.Inst, len(mono))
	for i := range mono {
		if keep[i] {
			out[i] = mono[i]
		}
	}
	return out
}

// groundArg rejects monomorphization arguments that still mention
// variables: a definition can only be specialized by concrete values.
func groundArg(owner string, a typesystem.Argument) error {
	args := typesystem.Inst{a}
	if len(typesystem.UnsolvedInArgs(args)) > 0 {
		return diag.Internalf("%s: monomorphization argument %s has unsolved variables", owner, a)
	}
	if len(typesystem.BoundRefsInArgs(args)) > 0 {
		return diag.Internalf("%s: monomorphization argument %s mentions enclosing parameters", owner, a)
	}
	return nil
}

// Compile checks the definition named by entry, then lowers it and
// everything it reaches into one dataflow graph. The graph carries the
// generator and the extension requirements as module metadata; the entry
// function is marked unless it is a bodyless declaration.
func Compile(eng *checker.Engine, reg *exts.Registry, entry ids.DefId) (*loom.Graph, error) {
	if _, err := eng.Check(entry); err != nil {
		return nil, err
	}
	c := NewContext(eng, reg)
	cd, err := c.BuildCompiledDef(entry, nil)
	if err != nil {
		return nil, err
	}
	if cd.Custom != nil {
		return nil, diag.Newf(diag.ErrE001, cd.Name, "builtin %q cannot be an entry point", cd.Name)
	}
	if err := c.Finish(); err != nil {
		return nil, err
	}
	g := c.mb.Graph()
	if _, defined := g.Op(cd.Node).(*loom.FuncDefn); defined {
		g.SetMeta(cd.Node, "core.entrypoint", "true")
	}
	c.mb.SetModuleMeta("core.generator",
		fmt.Sprintf("%s v%s (%s)", config.ToolName, config.Version, eng.SessionID()))
	reqs := reg.Requirements(g)
	names := make([]string, len(reqs))
	for i, r := range reqs {
		names[i] = r.Name + r.Constraint
	}
	c.mb.SetModuleMeta("core.used_extensions", strings.Join(names, ", "))
	c.log.Debug("compile finished",
		zap.String("entry", cd.Name),
		zap.Int("nodes", g.NumNodes()),
		zap.Int("extensions", len(reqs)))
	return g, nil
}
