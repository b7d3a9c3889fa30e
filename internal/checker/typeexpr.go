package checker

import (
	"github.com/weftlang/weft/internal/ast"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/typesystem"
)

// scope resolves the names a definition's annotations mention. Generic
// parameters shadow top-level definitions, so lookups try the parameter
// map first and fall back to the engine's definition table.
type scope struct {
	eng    *Engine
	owner  string
	params map[string]typesystem.Argument
}

func newScope(eng *Engine, owner string) *scope {
	return &scope{eng: eng, owner: owner, params: make(map[string]typesystem.Argument)}
}

func (sc *scope) bind(name string, arg typesystem.Argument) {
	sc.params[name] = arg
}

// resolveParams turns parameter declarations into typesystem parameters,
// binding each one into the scope as it goes so later declarations can
// reference earlier ones. startIdx offsets the de Bruijn indices, which
// methods use to place their owner's parameters first.
func resolveParams(sc *scope, decls []*ast.ParamDecl, startIdx int) ([]typesystem.Parameter, error) {
	params := make([]typesystem.Parameter, 0, len(decls))
	for i, d := range decls {
		if _, dup := sc.params[d.Name]; dup {
			return nil, diag.Newf(diag.ErrD006, sc.owner, "duplicate generic parameter %q", d.Name)
		}
		idx := startIdx + i
		switch d.Kind {
		case ast.TypeParamKind:
			bounds := make([]typesystem.ProtocolInst, 0, len(d.Bounds))
			for _, b := range d.Bounds {
				pi, err := resolveProtocolBound(sc, b)
				if err != nil {
					return nil, err
				}
				bounds = append(bounds, pi)
			}
			p := typesystem.TypeParam{Idx: idx, Name: d.Name, Bounds: bounds, Linear: d.Linear}
			params = append(params, p)
			sc.bind(d.Name, p.ToBound())
		case ast.ConstParamKind:
			if d.Ty == nil {
				return nil, diag.Newf(diag.ErrT010, sc.owner, "constant parameter %q has no type annotation", d.Name)
			}
			ty, err := resolveTypeExpr(sc, d.Ty)
			if err != nil {
				return nil, err
			}
			p := typesystem.ConstParam{Idx: idx, Name: d.Name, Ty: ty}
			params = append(params, p)
			sc.bind(d.Name, p.ToBound())
		default:
			return nil, diag.Internalf("parameter %q has unknown kind %d", d.Name, d.Kind)
		}
	}
	return params, nil
}

// resolveTypeExpr turns a syntactic type into a typesystem type, checking
// generic definitions as needed.
func resolveTypeExpr(sc *scope, e ast.TypeExpr) (typesystem.Type, error) {
	switch t := e.(type) {
	case *ast.NamedType:
		return resolveNamedType(sc, t)
	case *ast.TupleType:
		if len(t.Elems) == 0 {
			return typesystem.NoneType{}, nil
		}
		elems := make([]typesystem.Type, len(t.Elems))
		for i, el := range t.Elems {
			ty, err := resolveTypeExpr(sc, el)
			if err != nil {
				return nil, err
			}
			elems[i] = ty
		}
		return &typesystem.TupleType{Elements: elems}, nil
	case *ast.FuncTypeExpr:
		ins := make([]typesystem.FuncInput, len(t.Inputs))
		for i, in := range t.Inputs {
			ty, err := resolveTypeExpr(sc, in)
			if err != nil {
				return nil, err
			}
			ins[i] = typesystem.FuncInput{Ty: ty, Owned: typesystem.Linear(ty)}
		}
		out := typesystem.Type(typesystem.NoneType{})
		if t.Output != nil {
			ty, err := resolveTypeExpr(sc, t.Output)
			if err != nil {
				return nil, err
			}
			out = ty
		}
		return &typesystem.FuncType{Inputs: ins, Output: out}, nil
	default:
		return nil, diag.Internalf("unhandled type expression %T", e)
	}
}

func resolveNamedType(sc *scope, t *ast.NamedType) (typesystem.Type, error) {
	if arg, ok := sc.params[t.Name]; ok {
		if len(t.Args) > 0 {
			return nil, diag.Newf(diag.ErrT003, sc.owner, "generic parameter %q takes no arguments", t.Name)
		}
		ta, ok := arg.(typesystem.TypeArg)
		if !ok {
			return nil, diag.Newf(diag.ErrT009, sc.owner, "constant parameter %q does not denote a type", t.Name)
		}
		return ta.Ty, nil
	}
	id, ok := sc.eng.LookupDef(t.Name)
	if !ok {
		return nil, diag.Newf(diag.ErrT001, sc.owner, "unknown name %q", t.Name)
	}
	parsed, err := sc.eng.GetParsed(id)
	if err != nil {
		return nil, err
	}
	switch parsed.(type) {
	case *ParsedStructDef, *ParsedEnumDef, *BuiltinTypeDef:
	case *ParsedProtocolDef:
		return nil, diag.Newf(diag.ErrT009, sc.owner,
			"protocol %q is not a type; use it as a parameter bound", t.Name)
	default:
		return nil, diag.Newf(diag.ErrT009, sc.owner,
			"%s %q does not denote a type", parsed.Description(), t.Name)
	}
	args, err := resolveTypeArgs(sc, t.Args)
	if err != nil {
		return nil, err
	}
	checked, err := sc.eng.GetChecked(id, nil)
	if err != nil {
		return nil, err
	}
	td, ok := checked.(TypeDef)
	if !ok {
		return nil, diag.Internalf("checked definition %q does not instantiate to a type", t.Name)
	}
	return td.CheckInstantiate(sc.eng, args)
}

// resolveTypeArgs resolves the argument list of a type application or an
// explicit call instantiation. The result has no nil slots.
func resolveTypeArgs(sc *scope, exprs []ast.TypeArgExpr) (typesystem.Inst, error) {
	if len(exprs) == 0 {
		return nil, nil
	}
	args := make(typesystem.Inst, len(exprs))
	for i, e := range exprs {
		switch a := e.(type) {
		case *ast.TypeArgType:
			ty, err := resolveTypeExpr(sc, a.Ty)
			if err != nil {
				return nil, err
			}
			args[i] = typesystem.TypeArg{Ty: ty}
		case *ast.TypeArgConst:
			c, err := resolveConstExpr(sc, a.Value)
			if err != nil {
				return nil, err
			}
			args[i] = typesystem.ConstArg{C: c}
		default:
			return nil, diag.Internalf("unhandled type argument %T", e)
		}
	}
	return args, nil
}

// resolveConstExpr evaluates an expression in a constant argument position.
// Only literals and references to constant parameters are static.
func resolveConstExpr(sc *scope, e ast.Expr) (typesystem.Const, error) {
	switch v := e.(type) {
	case *ast.IntLit:
		if v.Nat {
			if v.Value < 0 {
				return nil, diag.Newf(diag.ErrT008, sc.owner, "nat constant cannot be negative")
			}
			return typesystem.NatConst(uint64(v.Value)), nil
		}
		return typesystem.ConstValue{
			Ty:  typesystem.NumericType{Kind: typesystem.IntKind},
			Val: typesystem.IntPayload{V: v.Value},
		}, nil
	case *ast.FloatLit:
		return typesystem.ConstValue{
			Ty:  typesystem.NumericType{Kind: typesystem.FloatKind},
			Val: typesystem.FloatPayload{F: v.Value},
		}, nil
	case *ast.BoolLit:
		return typesystem.BoolConst(v.Value), nil
	case *ast.StringLit:
		return typesystem.StringConst(v.Value), nil
	case *ast.NameExpr:
		arg, ok := sc.params[v.Name]
		if !ok {
			return nil, diag.Newf(diag.ErrT001, sc.owner, "unknown name %q in constant position", v.Name)
		}
		ca, ok := arg.(typesystem.ConstArg)
		if !ok {
			return nil, diag.Newf(diag.ErrT008, sc.owner,
				"type parameter %q cannot be used as a constant argument", v.Name)
		}
		return ca.C, nil
	default:
		return nil, diag.Newf(diag.ErrT008, sc.owner,
			"only literals and constant parameters may appear in constant positions")
	}
}

// resolveProtocolBound resolves a parameter bound, which must name a
// protocol definition applied to well-kinded arguments.
func resolveProtocolBound(sc *scope, e ast.TypeExpr) (typesystem.ProtocolInst, error) {
	named, ok := e.(*ast.NamedType)
	if !ok {
		return typesystem.ProtocolInst{}, diag.Newf(diag.ErrT009, sc.owner,
			"parameter bound must name a protocol")
	}
	id, ok := sc.eng.LookupDef(named.Name)
	if !ok {
		return typesystem.ProtocolInst{}, diag.Newf(diag.ErrT001, sc.owner, "unknown name %q", named.Name)
	}
	checked, err := sc.eng.GetChecked(id, nil)
	if err != nil {
		return typesystem.ProtocolInst{}, err
	}
	proto, ok := checked.(*CheckedProtocolDef)
	if !ok {
		return typesystem.ProtocolInst{}, diag.Newf(diag.ErrT009, sc.owner,
			"%s %q cannot be used as a parameter bound", checked.Description(), named.Name)
	}
	args, err := resolveTypeArgs(sc, named.Args)
	if err != nil {
		return typesystem.ProtocolInst{}, err
	}
	if err := checkInstArgs(sc.eng, sc.owner, proto.Params(), args); err != nil {
		return typesystem.ProtocolInst{}, err
	}
	return typesystem.ProtocolInst{Def: id, Name: proto.DefName(), Args: args}, nil
}

// checkInstArgs validates an argument list against a parameter list: arity,
// argument kind, constant types, linearity and protocol bounds. Arguments
// may mention bound variables of the referencing definition; bound checks
// on those go through the variables' declared assumptions.
func checkInstArgs(eng *Engine, owner string, params []typesystem.Parameter, args typesystem.Inst) error {
	if len(args) != len(params) {
		return diag.Newf(diag.ErrT003, owner, "expected %d generic arguments, got %d", len(params), len(args))
	}
	for i, p := range params {
		a := args[i]
		if a == nil {
			return diag.Internalf("generic argument %d of %s is undecided", i, owner)
		}
		switch p := p.(type) {
		case typesystem.TypeParam:
			ta, ok := a.(typesystem.TypeArg)
			if !ok {
				return diag.Newf(diag.ErrT008, owner, "parameter %q expects a type argument", p.Name)
			}
			if !p.Linear && typesystem.Linear(ta.Ty) {
				return diag.Newf(diag.ErrT002, owner,
					"linear type %s cannot instantiate copyable parameter %q", ta.Ty, p.Name)
			}
			for _, b := range p.Bounds {
				bound := typesystem.InstantiateProtocol(b, args)
				if _, _, err := eng.CheckProtocol(ta.Ty, bound); err != nil {
					return err
				}
			}
		case typesystem.ConstParam:
			ca, ok := a.(typesystem.ConstArg)
			if !ok {
				return diag.Newf(diag.ErrT008, owner, "parameter %q expects a constant argument", p.Name)
			}
			want := typesystem.Instantiate(p.Ty, args)
			got := typesystem.ConstTypeOf(ca.C)
			if !typesystem.TypesEqual(want, got) {
				return diag.Newf(diag.ErrT002, owner,
					"constant argument for %q has type %s, expected %s", p.Name, got, want)
			}
		}
	}
	return nil
}
