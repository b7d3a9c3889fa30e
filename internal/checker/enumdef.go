package checker

import (
	"github.com/weftlang/weft/internal/ast"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/loom"
	"github.com/weftlang/weft/internal/typesystem"
)

// RawEnumDef is an enum definition as the builder registered it.
type RawEnumDef struct {
	Id  ids.DefId
	Cls *ast.ClassDef
}

func (d *RawEnumDef) DefId() ids.DefId    { return d.Id }
func (d *RawEnumDef) DefName() string     { return d.Cls.Name }
func (d *RawEnumDef) Description() string { return "enum" }

// Parse validates the class body shape. Enums carry variants and methods;
// fields are a struct thing.
func (d *RawEnumDef) Parse(eng *Engine) (ParsedDef, error) {
	cls := d.Cls
	if len(cls.Bases) > 0 {
		return nil, diag.Newf(diag.ErrD005, cls.Name, "enum %q cannot have base classes", cls.Name)
	}
	var variants []*ast.VariantDecl
	variantNames := make(map[string]bool)
	methodNames := make(map[string]bool)
	for _, stmt := range cls.Body {
		switch s := stmt.(type) {
		case *ast.VariantDecl:
			if variantNames[s.Name] {
				return nil, diag.Newf(diag.ErrD002, cls.Name, "duplicate variant %q", s.Name)
			}
			variantNames[s.Name] = true
			variants = append(variants, s)
		case *ast.FieldDecl:
			return nil, diag.Newf(diag.ErrD003, cls.Name, "enum %q cannot declare field %q", cls.Name, s.Name)
		case *ast.MethodDecl:
			name, err := deriveMethod(eng, d.Id, cls, s)
			if err != nil {
				return nil, err
			}
			methodNames[name] = true
		case *ast.PassStmt, *ast.DocString:
		case *ast.OpaqueStmt:
			return nil, diag.Newf(diag.ErrD003, cls.Name, "unsupported statement in enum %q: %s", cls.Name, s.Desc)
		default:
			return nil, diag.Internalf("unhandled class statement %T", stmt)
		}
	}
	for name := range methodNames {
		if variantNames[name] {
			return nil, diag.Newf(diag.ErrD009, cls.Name,
				"enum %q declares both a variant and a method named %q", cls.Name, name)
		}
	}
	return &ParsedEnumDef{id: d.Id, cls: cls, variants: variants}, nil
}

// ParsedEnumDef is an enum with validated shape, payload types not yet
// resolved.
type ParsedEnumDef struct {
	id       ids.DefId
	cls      *ast.ClassDef
	variants []*ast.VariantDecl
}

func (d *ParsedEnumDef) DefId() ids.DefId    { return d.id }
func (d *ParsedEnumDef) DefName() string     { return d.cls.Name }
func (d *ParsedEnumDef) Description() string { return "enum" }

func (d *ParsedEnumDef) GenericParamNames() []string { return declNames(d.cls.Params) }

func (d *ParsedEnumDef) Check(eng *Engine) (CheckedDef, error) {
	sc := newScope(eng, d.cls.Name)
	params, err := resolveParams(sc, d.cls.Params, 0)
	if err != nil {
		return nil, err
	}
	variants := make([]typesystem.EnumVariant, len(d.variants))
	for i, v := range d.variants {
		payloads := make([]typesystem.Type, len(v.Payloads))
		for j, p := range v.Payloads {
			ty, err := resolveTypeExpr(sc, p)
			if err != nil {
				return nil, err
			}
			payloads[j] = ty
		}
		variants[i] = typesystem.EnumVariant{Name: v.Name, Payloads: payloads}
	}
	return &CheckedEnumDef{id: d.id, name: d.cls.Name, params: params, variants: variants}, nil
}

// CheckedEnumDef is a fully typed enum. It doubles as the declaration
// object enum types reference.
type CheckedEnumDef struct {
	id       ids.DefId
	name     string
	params   []typesystem.Parameter
	variants []typesystem.EnumVariant
}

func (d *CheckedEnumDef) DefId() ids.DefId    { return d.id }
func (d *CheckedEnumDef) DefName() string     { return d.name }
func (d *CheckedEnumDef) Description() string { return "enum" }

func (d *CheckedEnumDef) GenericParamNames() []string { return paramNames(d.params) }

func (d *CheckedEnumDef) checkedDef() {}

func (d *CheckedEnumDef) EnumId() ids.DefId { return d.id }
func (d *CheckedEnumDef) EnumName() string  { return d.name }

func (d *CheckedEnumDef) EnumVariants() []typesystem.EnumVariant { return d.variants }

// Params returns the enum's generic parameters.
func (d *CheckedEnumDef) Params() []typesystem.Parameter { return d.params }

func (d *CheckedEnumDef) CheckInstantiate(eng *Engine, args typesystem.Inst) (typesystem.Type, error) {
	if err := checkInstArgs(eng, d.name, d.params, args); err != nil {
		return nil, err
	}
	return &typesystem.EnumType{Decl: d, Args: args}, nil
}

// makeVariantConstructors builds one generated constructor per variant.
// Each takes the variant's payloads as owned inputs and tags them into
// the enum's sum representation.
func makeVariantConstructors(d *CheckedEnumDef) []*CustomFunctionDef {
	out := make([]*CustomFunctionDef, len(d.variants))
	for i, v := range d.variants {
		variant := i
		ins := make([]typesystem.FuncInput, len(v.Payloads))
		for j, p := range v.Payloads {
			ins[j] = typesystem.FuncInput{Ty: p, Owned: true}
		}
		ret := &typesystem.EnumType{Decl: d, Args: typesystem.IdentityInst(d.params)}
		out[i] = &CustomFunctionDef{
			Id:       ids.FreshDefId(),
			GlobalId: ids.FreshGlobalConstId(),
			Name:     d.name + "." + v.Name,
			Sig:      &typesystem.FuncType{Inputs: ins, Output: ret, Params: d.params},
			Lower: func(ctx *CallCtx, ins []loom.Wire) ([]loom.Wire, error) {
				lowered, err := ctx.LowerTy(ctx.Sig.Output)
				if err != nil {
					return nil, err
				}
				sum, ok := lowered.(*loom.SumType)
				if !ok {
					return nil, diag.Internalf("variant constructor output lowered to %T", lowered)
				}
				n := ctx.B.Add(&loom.Tag{Variant: variant, Sum: sum}, ins...)
				return []loom.Wire{{Node: n, Index: 0}}, nil
			},
		}
	}
	return out
}
