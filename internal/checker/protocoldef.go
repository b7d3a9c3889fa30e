package checker

import (
	"github.com/weftlang/weft/internal/ast"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/typesystem"
)

// RawProtocolDef is a protocol definition as the builder registered it.
type RawProtocolDef struct {
	Id  ids.DefId
	Cls *ast.ClassDef
}

func (d *RawProtocolDef) DefId() ids.DefId    { return d.Id }
func (d *RawProtocolDef) DefName() string     { return d.Cls.Name }
func (d *RawProtocolDef) Description() string { return "protocol" }

// Parse validates the body shape: protocols declare member signatures and
// nothing else.
func (d *RawProtocolDef) Parse(eng *Engine) (ParsedDef, error) {
	cls := d.Cls
	if len(cls.Bases) > 0 {
		return nil, diag.Newf(diag.ErrD005, cls.Name, "protocol %q cannot have base classes", cls.Name)
	}
	var members []*ast.FuncDef
	seen := make(map[string]bool)
	for _, stmt := range cls.Body {
		switch s := stmt.(type) {
		case *ast.MethodDecl:
			if s.Foreign || s.Fn == nil {
				return nil, diag.Newf(diag.ErrD004, cls.Name,
					"members of %q must be built through the definition API", cls.Name)
			}
			fn := s.Fn
			if seen[fn.Name] {
				return nil, diag.Newf(diag.ErrD010, cls.Name, "member %q is declared twice", fn.Name)
			}
			if len(fn.Body) > 0 {
				return nil, diag.Newf(diag.ErrD003, cls.Name,
					"protocol member %q cannot have a body", fn.Name)
			}
			if len(fn.Inputs) == 0 || fn.Inputs[0].Name != "self" || fn.Inputs[0].Ann != nil {
				return nil, diag.Newf(diag.ErrD003, cls.Name,
					"protocol member %q must take an unannotated self as its first input", fn.Name)
			}
			seen[fn.Name] = true
			members = append(members, fn)
		case *ast.FieldDecl:
			return nil, diag.Newf(diag.ErrD003, cls.Name, "protocol %q cannot declare field %q", cls.Name, s.Name)
		case *ast.VariantDecl:
			return nil, diag.Newf(diag.ErrD003, cls.Name, "protocol %q cannot declare variant %q", cls.Name, s.Name)
		case *ast.PassStmt, *ast.DocString:
		case *ast.OpaqueStmt:
			return nil, diag.Newf(diag.ErrD003, cls.Name, "unsupported statement in protocol %q: %s", cls.Name, s.Desc)
		default:
			return nil, diag.Internalf("unhandled class statement %T", stmt)
		}
	}
	return &ParsedProtocolDef{id: d.Id, cls: cls, members: members}, nil
}

// ParsedProtocolDef is a protocol with validated shape.
type ParsedProtocolDef struct {
	id      ids.DefId
	cls     *ast.ClassDef
	members []*ast.FuncDef
}

func (d *ParsedProtocolDef) DefId() ids.DefId    { return d.id }
func (d *ParsedProtocolDef) DefName() string     { return d.cls.Name }
func (d *ParsedProtocolDef) Description() string { return "protocol" }

func (d *ParsedProtocolDef) GenericParamNames() []string { return declNames(d.cls.Params) }

// Check resolves the protocol's parameters and each member's signature
// schema. Member signatures live in a parameter space of their own: Self
// sits at index 0 carrying the protocol itself as its bound, the
// protocol's parameters follow shifted up by one, and the member's own
// parameters come last. Satisfaction checks pin the first 1+k slots and
// leave the member's own parameters rigid.
func (d *ParsedProtocolDef) Check(eng *Engine) (CheckedDef, error) {
	name := d.cls.Name
	sc := newScope(eng, name)
	params, err := resolveParams(sc, d.cls.Params, 0)
	if err != nil {
		return nil, err
	}
	members := make([]ProtocolMember, len(d.members))
	for i, m := range d.members {
		sig, err := d.memberSchema(eng, m)
		if err != nil {
			return nil, err
		}
		members[i] = ProtocolMember{Name: m.Name, Sig: sig}
	}
	return &CheckedProtocolDef{id: d.id, name: name, params: params, members: members}, nil
}

func (d *ParsedProtocolDef) memberSchema(eng *Engine, m *ast.FuncDef) (*typesystem.FuncType, error) {
	name := d.cls.Name
	sc := newScope(eng, name+"."+m.Name)
	shifted, err := resolveParams(sc, d.cls.Params, 1)
	if err != nil {
		return nil, err
	}
	selfBounds := []typesystem.ProtocolInst{{
		Def:  d.id,
		Name: name,
		Args: typesystem.IdentityInst(shifted),
	}}
	selfVar := typesystem.BoundTypeVar{Idx: 0, Name: "Self", Bounds: selfBounds}
	sc.bind("Self", typesystem.TypeArg{Ty: selfVar})
	own, err := resolveParams(sc, m.Params, 1+len(shifted))
	if err != nil {
		return nil, err
	}
	inputs := make([]typesystem.FuncInput, len(m.Inputs))
	inputs[0] = typesystem.FuncInput{Ty: selfVar, Owned: m.Inputs[0].Owned}
	for j, in := range m.Inputs[1:] {
		if in.Ann == nil {
			return nil, diag.Newf(diag.ErrT010, sc.owner, "input %q has no type annotation", in.Name)
		}
		ty, err := resolveTypeExpr(sc, in.Ann)
		if err != nil {
			return nil, err
		}
		inputs[j+1] = typesystem.FuncInput{Ty: ty, Owned: in.Owned}
	}
	output := typesystem.Type(typesystem.NoneType{})
	if m.Returns != nil {
		ty, err := resolveTypeExpr(sc, m.Returns)
		if err != nil {
			return nil, err
		}
		output = ty
	}
	schema := make([]typesystem.Parameter, 0, 1+len(shifted)+len(own))
	schema = append(schema, typesystem.TypeParam{Idx: 0, Name: "Self", Bounds: selfBounds, Linear: true})
	schema = append(schema, shifted...)
	schema = append(schema, own...)
	return &typesystem.FuncType{Inputs: inputs, Output: output, Params: schema}, nil
}

// ProtocolMember is one required member with its signature schema.
type ProtocolMember struct {
	Name string
	Sig  *typesystem.FuncType
}

// CheckedProtocolDef is a fully resolved protocol.
type CheckedProtocolDef struct {
	id      ids.DefId
	name    string
	params  []typesystem.Parameter
	members []ProtocolMember
}

func (d *CheckedProtocolDef) DefId() ids.DefId    { return d.id }
func (d *CheckedProtocolDef) DefName() string     { return d.name }
func (d *CheckedProtocolDef) Description() string { return "protocol" }

func (d *CheckedProtocolDef) GenericParamNames() []string { return paramNames(d.params) }

func (d *CheckedProtocolDef) checkedDef() {}

// Params returns the protocol's own parameters, indexed from zero as they
// appear in bounds.
func (d *CheckedProtocolDef) Params() []typesystem.Parameter { return d.params }

// Members returns the member schemas in declaration order.
func (d *CheckedProtocolDef) Members() []ProtocolMember { return d.members }

// Member looks up a member schema by name.
func (d *CheckedProtocolDef) Member(name string) (ProtocolMember, bool) {
	for _, m := range d.members {
		if m.Name == name {
			return m, true
		}
	}
	return ProtocolMember{}, false
}
