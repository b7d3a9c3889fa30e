package checker

import (
	"github.com/weftlang/weft/internal/ast"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/typesystem"
)

// RawFunctionDef is a function definition or declaration as the builder
// registered it. Methods split off from class bodies also arrive here,
// with their owner's generic parameters prepended.
type RawFunctionDef struct {
	Id ids.DefId
	Fn *ast.FuncDef
}

func (d *RawFunctionDef) DefId() ids.DefId    { return d.Id }
func (d *RawFunctionDef) DefName() string     { return d.Fn.Name }
func (d *RawFunctionDef) Description() string { return "function" }

// Parse resolves the signature eagerly. Signatures only reference types,
// so they can always be resolved before any body is checked; bodies wait
// for a monomorphization demanded by a call site.
func (d *RawFunctionDef) Parse(eng *Engine) (ParsedDef, error) {
	fn := d.Fn
	sc := newScope(eng, fn.Name)
	params, err := resolveParams(sc, fn.Params, 0)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	inputs := make([]typesystem.FuncInput, len(fn.Inputs))
	names := make([]string, len(fn.Inputs))
	for i, in := range fn.Inputs {
		if seen[in.Name] {
			return nil, diag.Newf(diag.ErrD006, fn.Name, "duplicate input %q", in.Name)
		}
		seen[in.Name] = true
		if in.Ann == nil {
			return nil, diag.Newf(diag.ErrT010, fn.Name, "input %q has no type annotation", in.Name)
		}
		ty, err := resolveTypeExpr(sc, in.Ann)
		if err != nil {
			return nil, err
		}
		inputs[i] = typesystem.FuncInput{Ty: ty, Owned: in.Owned}
		names[i] = in.Name
	}
	output := typesystem.Type(typesystem.NoneType{})
	if fn.Returns != nil {
		ty, err := resolveTypeExpr(sc, fn.Returns)
		if err != nil {
			return nil, err
		}
		output = ty
	}
	return &ParsedFunctionDef{
		id:          d.Id,
		name:        fn.Name,
		sig:         &typesystem.FuncType{Inputs: inputs, Output: output, Params: params},
		inputNames:  names,
		body:        fn.Body,
		declaration: fn.Body == nil,
	}, nil
}

// ParsedFunctionDef is a function with a resolved signature and an
// unchecked body.
type ParsedFunctionDef struct {
	id          ids.DefId
	name        string
	sig         *typesystem.FuncType
	inputNames  []string
	body        []ast.Stmt
	declaration bool
}

func (d *ParsedFunctionDef) DefId() ids.DefId    { return d.id }
func (d *ParsedFunctionDef) DefName() string     { return d.name }
func (d *ParsedFunctionDef) Description() string { return "function" }

func (d *ParsedFunctionDef) GenericParamNames() []string { return paramNames(d.sig.Params) }

func (d *ParsedFunctionDef) Signature() *typesystem.FuncType { return d.sig }

// CheckMono checks the body under the given monomorphization. Decided
// slots substitute into the body's types; undecided parameters stay bound
// variables at their declared indices. Constant parameters of non-nat type
// act as values inside the body, which is why their slots must be decided
// before checking.
func (d *ParsedFunctionDef) CheckMono(eng *Engine, mono typesystem.Inst) (CheckedDef, error) {
	if err := checkMonoShape(d.name, d.sig.Params, mono); err != nil {
		return nil, err
	}
	out := &CheckedFunctionDef{
		id:          d.id,
		name:        d.name,
		sig:         d.sig,
		mono:        mono,
		inputNames:  d.inputNames,
		declaration: d.declaration,
	}
	if d.declaration {
		return out, nil
	}
	body, err := checkBody(eng, d, mono)
	if err != nil {
		return nil, err
	}
	out.body = body
	return out, nil
}

// checkMonoShape validates a monomorphization against a parameter list.
// Violations are engine bugs: call sites construct monos from solved
// arguments, which the checker has already validated.
func checkMonoShape(owner string, params []typesystem.Parameter, mono typesystem.Inst) error {
	if mono == nil {
		if len(params) == 0 {
			return nil
		}
		return diag.Internalf("%s: monomorphization is missing its %d slots", owner, len(params))
	}
	if len(mono) != len(params) {
		return diag.Internalf("%s: monomorphization has %d slots, want %d", owner, len(mono), len(params))
	}
	forced := typesystem.ForcedConstParams(params)
	for i, p := range params {
		a := mono[i]
		if a == nil {
			if forced[i] {
				return diag.Internalf("%s: parameter %s must be decided before checking", owner, p.ParamName())
			}
			continue
		}
		switch p.(type) {
		case typesystem.TypeParam:
			if _, ok := a.(typesystem.TypeArg); !ok {
				return diag.Internalf("%s: slot %d holds %s, want a type argument", owner, i, a)
			}
		case typesystem.ConstParam:
			if _, ok := a.(typesystem.ConstArg); !ok {
				return diag.Internalf("%s: slot %d holds %s, want a constant argument", owner, i, a)
			}
		}
		if unsolved := typesystem.UnsolvedInArgs(typesystem.Inst{a}); len(unsolved) > 0 {
			return diag.Internalf("%s: slot %d contains unsolved variables", owner, i)
		}
	}
	return nil
}

// CheckedFunctionDef is a function checked under one monomorphization.
// The signature stays fully generic; mono records which slots were
// decided for this checking. Declarations carry no body and lower to
// graph-level function declarations.
type CheckedFunctionDef struct {
	id          ids.DefId
	name        string
	sig         *typesystem.FuncType
	mono        typesystem.Inst
	inputNames  []string
	body        []TStmt
	declaration bool
}

func (d *CheckedFunctionDef) DefId() ids.DefId    { return d.id }
func (d *CheckedFunctionDef) DefName() string     { return d.name }
func (d *CheckedFunctionDef) Description() string { return "function" }

func (d *CheckedFunctionDef) GenericParamNames() []string { return paramNames(d.sig.Params) }

func (d *CheckedFunctionDef) checkedDef() {}

func (d *CheckedFunctionDef) Signature() *typesystem.FuncType { return d.sig }

// Mono returns the slots decided when this body was checked.
func (d *CheckedFunctionDef) Mono() typesystem.Inst { return d.mono }

// InputNames returns the declared input names in order.
func (d *CheckedFunctionDef) InputNames() []string { return d.inputNames }

// Body returns the typed body, nil for declarations.
func (d *CheckedFunctionDef) Body() []TStmt { return d.body }

// IsDeclaration reports whether the function has no body.
func (d *CheckedFunctionDef) IsDeclaration() bool { return d.declaration }
