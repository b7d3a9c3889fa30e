package checker

import (
	"github.com/weftlang/weft/internal/ast"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/loom"
	"github.com/weftlang/weft/internal/typesystem"
)

// RawStructDef is a struct definition as the builder registered it.
type RawStructDef struct {
	Id  ids.DefId
	Cls *ast.ClassDef
}

func (d *RawStructDef) DefId() ids.DefId    { return d.Id }
func (d *RawStructDef) DefName() string     { return d.Cls.Name }
func (d *RawStructDef) Description() string { return "struct" }

// Parse validates the class body shape, splits methods off into derived
// function definitions and keeps the field declarations for checking.
func (d *RawStructDef) Parse(eng *Engine) (ParsedDef, error) {
	cls := d.Cls
	if len(cls.Bases) > 0 {
		return nil, diag.Newf(diag.ErrD005, cls.Name, "struct %q cannot have base classes", cls.Name)
	}
	var fields []*ast.FieldDecl
	fieldNames := make(map[string]bool)
	methodNames := make(map[string]bool)
	for _, stmt := range cls.Body {
		switch s := stmt.(type) {
		case *ast.FieldDecl:
			if fieldNames[s.Name] {
				return nil, diag.Newf(diag.ErrD001, cls.Name, "duplicate field %q", s.Name)
			}
			if s.Default != nil {
				return nil, diag.Newf(diag.ErrD007, cls.Name, "field %q has a default value", s.Name)
			}
			if s.Ann == nil {
				return nil, diag.Newf(diag.ErrT010, cls.Name, "field %q has no type annotation", s.Name)
			}
			fieldNames[s.Name] = true
			fields = append(fields, s)
		case *ast.VariantDecl:
			return nil, diag.Newf(diag.ErrD003, cls.Name, "struct %q cannot declare variant %q", cls.Name, s.Name)
		case *ast.MethodDecl:
			name, err := deriveMethod(eng, d.Id, cls, s)
			if err != nil {
				return nil, err
			}
			methodNames[name] = true
		case *ast.PassStmt, *ast.DocString:
		case *ast.OpaqueStmt:
			return nil, diag.Newf(diag.ErrD003, cls.Name, "unsupported statement in struct %q: %s", cls.Name, s.Desc)
		default:
			return nil, diag.Internalf("unhandled class statement %T", stmt)
		}
	}
	for name := range methodNames {
		if fieldNames[name] {
			return nil, diag.Newf(diag.ErrD009, cls.Name,
				"struct %q declares both a field and a method named %q", cls.Name, name)
		}
	}
	return &ParsedStructDef{id: d.Id, cls: cls, fields: fields}, nil
}

// deriveMethod registers a class method as a standalone function whose
// generic parameters are the owner's followed by the method's own, and
// attaches it as an instance function of the owner. The returned name is
// the unqualified method name.
func deriveMethod(eng *Engine, owner ids.DefId, cls *ast.ClassDef, m *ast.MethodDecl) (string, error) {
	if m.Foreign || m.Fn == nil {
		return "", diag.Newf(diag.ErrD004, cls.Name,
			"methods of %q must be built through the definition API", cls.Name)
	}
	fn := m.Fn
	if fn.Name == "__new__" {
		return "", diag.Newf(diag.ErrD010, cls.Name,
			"%q cannot define __new__; a constructor is generated automatically", cls.Name)
	}
	if len(fn.Inputs) == 0 || fn.Inputs[0].Name != "self" {
		return "", diag.Newf(diag.ErrD003, cls.Name,
			"method %q must take self as its first input", fn.Name)
	}
	inputs := make([]*ast.InputDecl, len(fn.Inputs))
	copy(inputs, fn.Inputs)
	if inputs[0].Ann == nil {
		self := *inputs[0]
		self.Ann = ownerTypeExpr(cls)
		inputs[0] = &self
	}
	params := make([]*ast.ParamDecl, 0, len(cls.Params)+len(fn.Params))
	params = append(params, cls.Params...)
	params = append(params, fn.Params...)
	raw := &RawFunctionDef{
		Id: ids.FreshDefId(),
		Fn: &ast.FuncDef{
			Name:    cls.Name + "." + fn.Name,
			Params:  params,
			Inputs:  inputs,
			Returns: fn.Returns,
			Body:    fn.Body,
		},
	}
	eng.addDerivedDef(raw)
	if err := eng.registerDerivedImpl(owner, cls.Name, fn.Name, raw.Id); err != nil {
		return "", err
	}
	return fn.Name, nil
}

// ownerTypeExpr builds the syntactic self type of a class: the class
// applied to its own parameters by name.
func ownerTypeExpr(cls *ast.ClassDef) *ast.NamedType {
	if len(cls.Params) == 0 {
		return &ast.NamedType{Name: cls.Name}
	}
	args := make([]ast.TypeArgExpr, len(cls.Params))
	for i, p := range cls.Params {
		if p.Kind == ast.ConstParamKind {
			args[i] = &ast.TypeArgConst{Value: &ast.NameExpr{Name: p.Name}}
		} else {
			args[i] = &ast.TypeArgType{Ty: &ast.NamedType{Name: p.Name}}
		}
	}
	return &ast.NamedType{Name: cls.Name, Args: args}
}

// ParsedStructDef is a struct with validated shape, methods already split
// off, fields not yet typed.
type ParsedStructDef struct {
	id     ids.DefId
	cls    *ast.ClassDef
	fields []*ast.FieldDecl
}

func (d *ParsedStructDef) DefId() ids.DefId    { return d.id }
func (d *ParsedStructDef) DefName() string     { return d.cls.Name }
func (d *ParsedStructDef) Description() string { return "struct" }

func (d *ParsedStructDef) GenericParamNames() []string { return declNames(d.cls.Params) }

// Check resolves the parameter list and every field type. Field types may
// reference the parameters as bound variables; recursion through the
// struct itself is caught by the engine's in-progress set.
func (d *ParsedStructDef) Check(eng *Engine) (CheckedDef, error) {
	sc := newScope(eng, d.cls.Name)
	params, err := resolveParams(sc, d.cls.Params, 0)
	if err != nil {
		return nil, err
	}
	fields := make([]typesystem.StructField, len(d.fields))
	for i, f := range d.fields {
		ty, err := resolveTypeExpr(sc, f.Ann)
		if err != nil {
			return nil, err
		}
		fields[i] = typesystem.StructField{Name: f.Name, Ty: ty}
	}
	return &CheckedStructDef{id: d.id, name: d.cls.Name, params: params, fields: fields}, nil
}

// CheckedStructDef is a fully typed struct. It doubles as the declaration
// object struct types reference.
type CheckedStructDef struct {
	id     ids.DefId
	name   string
	params []typesystem.Parameter
	fields []typesystem.StructField
}

func (d *CheckedStructDef) DefId() ids.DefId    { return d.id }
func (d *CheckedStructDef) DefName() string     { return d.name }
func (d *CheckedStructDef) Description() string { return "struct" }

func (d *CheckedStructDef) GenericParamNames() []string { return paramNames(d.params) }

func (d *CheckedStructDef) checkedDef() {}

func (d *CheckedStructDef) StructId() ids.DefId { return d.id }
func (d *CheckedStructDef) StructName() string  { return d.name }

func (d *CheckedStructDef) StructFields() []typesystem.StructField { return d.fields }

// Params returns the struct's generic parameters.
func (d *CheckedStructDef) Params() []typesystem.Parameter { return d.params }

func (d *CheckedStructDef) CheckInstantiate(eng *Engine, args typesystem.Inst) (typesystem.Type, error) {
	if err := checkInstArgs(eng, d.name, d.params, args); err != nil {
		return nil, err
	}
	return &typesystem.StructType{Decl: d, Args: args}, nil
}

// makeConstructor builds the generated __new__ of a checked struct: it
// takes every field as an owned input and packs them into a tuple.
func makeConstructor(d *CheckedStructDef) *CustomFunctionDef {
	ins := make([]typesystem.FuncInput, len(d.fields))
	for i, f := range d.fields {
		ins[i] = typesystem.FuncInput{Ty: f.Ty, Owned: true}
	}
	out := &typesystem.StructType{Decl: d, Args: typesystem.IdentityInst(d.params)}
	return &CustomFunctionDef{
		Id:       ids.FreshDefId(),
		GlobalId: ids.FreshGlobalConstId(),
		Name:     d.name + ".__new__",
		Sig:      &typesystem.FuncType{Inputs: ins, Output: out, Params: d.params},
		Lower: func(ctx *CallCtx, ins []loom.Wire) ([]loom.Wire, error) {
			g := ctx.B.Graph()
			tys := make([]loom.Type, len(ins))
			for i, w := range ins {
				tys[i] = g.OutPortType(w)
			}
			n := ctx.B.Add(&loom.MakeTuple{Types: tys}, ins...)
			return []loom.Wire{{Node: n, Index: 0}}, nil
		},
	}
}

func declNames(decls []*ast.ParamDecl) []string {
	if len(decls) == 0 {
		return nil
	}
	names := make([]string, len(decls))
	for i, p := range decls {
		names[i] = p.Name
	}
	return names
}
