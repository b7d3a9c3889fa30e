// Package weft embeds the weft language in Go programs.
//
// A Session accumulates definitions built from the spec types and the
// expression constructors in this package; Check runs the type checker
// from an entry point and Compile lowers the checked program into a
// dataflow graph ready to serialize. Programs are data, not text: there
// is no parser, callers assemble bodies directly.
//
//	s, _ := weft.NewSession()
//	_ = s.DefineFunc(weft.FuncSpec{
//		Name:    "bell",
//		Returns: weft.TupleTy(weft.Named("bool"), weft.Named("bool")),
//		Body: []weft.Stmt{
//			weft.Let("q0", weft.Call("qalloc")),
//			weft.Let("q1", weft.Call("qalloc")),
//			weft.Do(weft.Call("h", weft.Name("q0"))),
//			weft.Do(weft.Call("cx", weft.Name("q0"), weft.Name("q1"))),
//			weft.Return(weft.Tuple(
//				weft.Call("measure", weft.Name("q0")),
//				weft.Call("measure", weft.Name("q1")))),
//		},
//	})
//	prog, err := s.Compile("bell")
package weft

import (
	"go.uber.org/zap"

	"github.com/weftlang/weft/internal/ast"
	"github.com/weftlang/weft/internal/checker"
	"github.com/weftlang/weft/internal/compiler"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/exts"
	"github.com/weftlang/weft/internal/ids"
)

// Session holds the definitions of one program and the settings they are
// checked under. Sessions are not safe for concurrent use.
type Session struct {
	store        *checker.Store
	log          *zap.Logger
	experimental bool
}

// SessionOption configures a session at construction.
type SessionOption func(*Session)

// WithLogger routes checker and compiler logging to log.
func WithLogger(log *zap.Logger) SessionOption {
	return func(s *Session) { s.log = log }
}

// WithExperimental enables language features gated behind the
// experimental flag, such as borrowed array types.
func WithExperimental(on bool) SessionOption {
	return func(s *Session) { s.experimental = on }
}

// NewSession returns a session seeded with the builtin types and
// functions.
func NewSession(opts ...SessionOption) (*Session, error) {
	s := &Session{store: checker.NewStore(), log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if err := checker.RegisterBuiltins(s.store); err != nil {
		return nil, err
	}
	return s, nil
}

// DefineFunc registers a top-level function or, when the body is nil, an
// external function declaration.
func (s *Session) DefineFunc(spec FuncSpec) error {
	return s.store.Register(&checker.RawFunctionDef{Id: ids.FreshDefId(), Fn: spec.funcDef()})
}

// DefineStruct registers a struct definition.
func (s *Session) DefineStruct(spec StructSpec) error {
	return s.store.Register(&checker.RawStructDef{Id: ids.FreshDefId(), Cls: spec.classDef()})
}

// DefineEnum registers an enum definition.
func (s *Session) DefineEnum(spec EnumSpec) error {
	return s.store.Register(&checker.RawEnumDef{Id: ids.FreshDefId(), Cls: spec.classDef()})
}

// DefineProtocol registers a protocol definition.
func (s *Session) DefineProtocol(spec ProtocolSpec) error {
	return s.store.Register(&checker.RawProtocolDef{Id: ids.FreshDefId(), Cls: spec.classDef()})
}

// DefineMethod attaches spec as an instance function of the named type,
// reachable through method calls and protocol satisfaction. The first
// input must be self; its annotation defaults to the type itself. This
// is how the builtin types get methods, since they have no class body to
// declare them in.
func (s *Session) DefineMethod(typeName string, spec FuncSpec) error {
	owner, ok := s.store.Lookup(typeName)
	if !ok {
		return diag.Newf(diag.ErrT001, typeName, "no type named %q", typeName)
	}
	fn := spec.funcDef()
	if len(fn.Inputs) == 0 || fn.Inputs[0].Name != "self" {
		return diag.Newf(diag.ErrD003, fn.Name,
			"method %q must take self as its first input", fn.Name)
	}
	if _, dup := s.store.Impl(owner, fn.Name); dup {
		return diag.Newf(diag.ErrD010, typeName,
			"instance function %q is already defined", fn.Name)
	}
	if fn.Inputs[0].Ann == nil {
		fn.Inputs[0].Ann = &ast.NamedType{Name: typeName}
	}
	member := fn.Name
	fn.Name = typeName + "." + member
	raw := &checker.RawFunctionDef{Id: ids.FreshDefId(), Fn: fn}
	if err := s.store.Register(raw); err != nil {
		return err
	}
	return s.store.RegisterImpl(owner, member, raw.Id)
}

// Check type-checks the program reachable from the named entry point.
// The entry must be a registered function with no generic parameters.
func (s *Session) Check(entry string) error {
	id, err := s.entry(entry)
	if err != nil {
		return err
	}
	_, err = s.engine().Check(id)
	return err
}

// Compile checks the program and lowers it into a dataflow graph.
func (s *Session) Compile(entry string) (*Program, error) {
	id, err := s.entry(entry)
	if err != nil {
		return nil, err
	}
	reg := exts.Builtins()
	g, err := compiler.Compile(s.engine(), reg, id)
	if err != nil {
		return nil, err
	}
	return &Program{g: g, reg: reg}, nil
}

func (s *Session) entry(name string) (ids.DefId, error) {
	id, ok := s.store.Lookup(name)
	if !ok {
		return 0, diag.Newf(diag.ErrT001, name, "no definition named %q", name)
	}
	return id, nil
}

// engine builds a fresh checker engine; results never carry over between
// Check or Compile calls.
func (s *Session) engine() *checker.Engine {
	return checker.NewEngine(s.store,
		checker.WithLogger(s.log),
		checker.WithExperimental(s.experimental))
}
