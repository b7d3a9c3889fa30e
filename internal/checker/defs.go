// Package checker turns definitions registered through the builder API
// into checked, compilable form. It owns the definition lifecycle
// (raw, parsed, checked), class-shape validation, protocol satisfaction
// and function body checking. Graph emission lives in internal/compiler.
package checker

import (
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/loom"
	"github.com/weftlang/weft/internal/typesystem"
)

// Def is the interface common to every definition stage.
type Def interface {
	DefId() ids.DefId
	DefName() string
	// Description is the construct kind used in diagnostics ("struct",
	// "enum", "protocol", "function").
	Description() string
}

// RawDef is a definition exactly as the builder registered it, before
// any validation has run.
type RawDef interface {
	Def
	// Parse validates the definition's shape, derives member definitions
	// (methods) and resolves the signature where the definition has one.
	Parse(eng *Engine) (ParsedDef, error)
}

// ParsedDef is a definition with validated shape and a known generic
// parameter list.
type ParsedDef interface {
	Def
	// GenericParamNames lists the definition's generic parameters in
	// declaration order. Entry points must have none.
	GenericParamNames() []string
}

// CheckedDef is a fully typed definition.
type CheckedDef interface {
	ParsedDef
	checkedDef()
}

// Checkable is a parsed definition checked once, without generic
// arguments: type definitions and protocols.
type Checkable interface {
	ParsedDef
	Check(eng *Engine) (CheckedDef, error)
}

// GenericCheckable is a parsed definition checked per monomorphization.
// mono has one slot per generic parameter; nil slots stay generic.
type GenericCheckable interface {
	ParsedDef
	CheckMono(eng *Engine, mono typesystem.Inst) (CheckedDef, error)
}

// TypeDef is a definition that denotes a type when named in annotations.
type TypeDef interface {
	Def
	// CheckInstantiate validates args against the definition's
	// parameters and returns the resulting type.
	CheckInstantiate(eng *Engine, args typesystem.Inst) (typesystem.Type, error)
}

// SignatureDef is a definition callable as a function.
type SignatureDef interface {
	Def
	// Signature returns the fully generic signature.
	Signature() *typesystem.FuncType
}

// CallCtx is handed to a compiler-defined function's lowering hook. Sig
// is the signature instantiated for the call site being lowered; Inst is
// the full instantiation of the definition's parameters. Both arrive
// with the enclosing body's monomorphization already applied; the Lower
// helpers map them straight to graph types.
type CallCtx struct {
	B        *loom.DfBuilder
	Sig      *typesystem.FuncType
	Inst     typesystem.Inst
	LowerTy  func(typesystem.Type) (loom.Type, error)
	LowerArg func(typesystem.Argument) (loom.TypeArg, error)
	LowerSig func(*typesystem.FuncType) (*loom.FuncType, error)
}

// LowerCall emits the dataflow nodes implementing a call to a
// compiler-defined function and returns the call's result wires.
type LowerCall func(ctx *CallCtx, ins []loom.Wire) ([]loom.Wire, error)

// CustomFunctionDef is a function provided by the compiler itself: the
// builtin operations and the generated constructors. It has no body to
// check; calls lower through its hook. GlobalId keys the graph function
// the compiler declares when the definition is used as a value rather
// than called.
type CustomFunctionDef struct {
	Id       ids.DefId
	GlobalId ids.GlobalConstId
	Name     string
	Sig      *typesystem.FuncType
	Lower    LowerCall
}

func (d *CustomFunctionDef) DefId() ids.DefId    { return d.Id }
func (d *CustomFunctionDef) DefName() string     { return d.Name }
func (d *CustomFunctionDef) Description() string { return "function" }

func (d *CustomFunctionDef) GenericParamNames() []string { return paramNames(d.Sig.Params) }

func (d *CustomFunctionDef) Signature() *typesystem.FuncType { return d.Sig }

// CheckMono validates the decided slots and returns the definition
// itself; customs carry no body.
func (d *CustomFunctionDef) CheckMono(eng *Engine, mono typesystem.Inst) (CheckedDef, error) {
	if err := checkMonoShape(d.Name, d.Sig.Params, mono); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *CustomFunctionDef) checkedDef() {}

// BuiltinTypeDef is a type provided by the compiler: bool, int, nat,
// float, str, qubit, none, array and borrow_array. It is born checked.
type BuiltinTypeDef struct {
	id     ids.DefId
	name   string
	params []string
	inst   func(eng *Engine, args typesystem.Inst) (typesystem.Type, error)
}

func (d *BuiltinTypeDef) DefId() ids.DefId    { return d.id }
func (d *BuiltinTypeDef) DefName() string     { return d.name }
func (d *BuiltinTypeDef) Description() string { return "type" }

func (d *BuiltinTypeDef) GenericParamNames() []string { return d.params }

func (d *BuiltinTypeDef) Check(eng *Engine) (CheckedDef, error) { return d, nil }

func (d *BuiltinTypeDef) checkedDef() {}

func (d *BuiltinTypeDef) CheckInstantiate(eng *Engine, args typesystem.Inst) (typesystem.Type, error) {
	return d.inst(eng, args)
}

func paramNames(params []typesystem.Parameter) []string {
	if len(params) == 0 {
		return nil
	}
	names := make([]string, len(params))
	for i, p := range params {
		names[i] = p.ParamName()
	}
	return names
}
