package checker

import (
	"github.com/weftlang/weft/internal/ast"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/typesystem"
)

// bodyChecker synthesizes types for one function body. It runs under a
// fixed monomorphization: decided generic slots substitute into every
// type it produces, undecided parameters appear as bound variables at
// their declared indices.
type bodyChecker struct {
	eng    *Engine
	fn     *ParsedFunctionDef
	sc     *scope
	full   typesystem.Inst
	locals map[string]typesystem.Type
	retTy  typesystem.Type
}

func checkBody(eng *Engine, d *ParsedFunctionDef, mono typesystem.Inst) ([]TStmt, error) {
	full := bodyInst(d.sig.Params, mono)
	sc := newScope(eng, d.name)
	for i, p := range d.sig.Params {
		sc.bind(p.ParamName(), full[i])
	}
	bc := &bodyChecker{
		eng:    eng,
		fn:     d,
		sc:     sc,
		full:   full,
		locals: make(map[string]typesystem.Type),
		retTy:  typesystem.Instantiate(d.sig.Output, full),
	}
	for i, in := range d.sig.Inputs {
		bc.locals[d.inputNames[i]] = typesystem.Instantiate(in.Ty, full)
	}
	return bc.stmts(d.body)
}

// bodyInst completes a partial monomorphization with identity arguments:
// decided slots keep their decision, undecided parameters stand for
// themselves. Types and bounds of surviving parameters are re-resolved
// under the completed instantiation, since they may mention decided slots.
func bodyInst(params []typesystem.Parameter, mono typesystem.Inst) typesystem.Inst {
	full := make(typesystem.Inst, len(params))
	for i, p := range params {
		if mono != nil && mono[i] != nil {
			full[i] = mono[i]
		} else {
			full[i] = p.ToBound()
		}
	}
	for i, p := range params {
		if mono != nil && mono[i] != nil {
			continue
		}
		switch pp := p.(type) {
		case typesystem.TypeParam:
			if len(pp.Bounds) == 0 {
				continue
			}
			bounds := make([]typesystem.ProtocolInst, len(pp.Bounds))
			for j, b := range pp.Bounds {
				bounds[j] = typesystem.InstantiateProtocol(b, full)
			}
			full[i] = typesystem.TypeArg{Ty: typesystem.BoundTypeVar{
				Idx: pp.Idx, Name: pp.Name, Copyable: !pp.Linear, Bounds: bounds,
			}}
		case typesystem.ConstParam:
			full[i] = typesystem.ConstArg{C: typesystem.BoundConstVar{
				Idx: pp.Idx, Name: pp.Name, Ty: typesystem.Instantiate(pp.Ty, full),
			}}
		}
	}
	return full
}

func (bc *bodyChecker) stmts(body []ast.Stmt) ([]TStmt, error) {
	out := make([]TStmt, 0, len(body))
	sawReturn := false
	for i, st := range body {
		switch s := st.(type) {
		case *ast.AssignStmt:
			v, err := bc.expr(s.Value)
			if err != nil {
				return nil, err
			}
			bc.locals[s.Name] = v.Ty()
			out = append(out, &TAssign{Name: s.Name, Value: v})
		case *ast.ExprStmt:
			v, err := bc.expr(s.X)
			if err != nil {
				return nil, err
			}
			out = append(out, &TExprStmt{X: v})
		case *ast.ReturnStmt:
			if i != len(body)-1 {
				return nil, diag.Newf(diag.ErrT014, bc.fn.name,
					"statements after return are unreachable")
			}
			ret, err := bc.returnStmt(s)
			if err != nil {
				return nil, err
			}
			out = append(out, ret)
			sawReturn = true
		default:
			return nil, diag.Internalf("unhandled statement %T", st)
		}
	}
	if !sawReturn {
		if _, isNone := bc.retTy.(typesystem.NoneType); !isNone {
			return nil, diag.Newf(diag.ErrT002, bc.fn.name,
				"missing return: function produces %s", bc.retTy)
		}
	}
	return out, nil
}

func (bc *bodyChecker) returnStmt(s *ast.ReturnStmt) (*TReturn, error) {
	if s.Value == nil {
		if _, isNone := bc.retTy.(typesystem.NoneType); !isNone {
			return nil, diag.Newf(diag.ErrT002, bc.fn.name,
				"return has no value, function produces %s", bc.retTy)
		}
		return &TReturn{}, nil
	}
	v, err := bc.expr(s.Value)
	if err != nil {
		return nil, err
	}
	if !typesystem.TypesEqual(v.Ty(), bc.retTy) {
		return nil, diag.Newf(diag.ErrT002, bc.fn.name,
			"return type mismatch: got %s, want %s", v.Ty(), bc.retTy)
	}
	return &TReturn{Value: v}, nil
}

func (bc *bodyChecker) expr(e ast.Expr) (TExpr, error) {
	switch x := e.(type) {
	case *ast.IntLit:
		if x.Nat {
			if x.Value < 0 {
				return nil, diag.Newf(diag.ErrT008, bc.fn.name, "nat literal cannot be negative")
			}
			return &TConst{C: typesystem.NatConst(uint64(x.Value))}, nil
		}
		return &TConst{C: typesystem.ConstValue{
			Ty:  typesystem.NumericType{Kind: typesystem.IntKind},
			Val: typesystem.IntPayload{V: x.Value},
		}}, nil
	case *ast.FloatLit:
		return &TConst{C: typesystem.ConstValue{
			Ty:  typesystem.NumericType{Kind: typesystem.FloatKind},
			Val: typesystem.FloatPayload{F: x.Value},
		}}, nil
	case *ast.BoolLit:
		return &TConst{C: typesystem.BoolConst(x.Value)}, nil
	case *ast.StringLit:
		return &TConst{C: typesystem.StringConst(x.Value)}, nil
	case *ast.TupleExpr:
		if len(x.Elems) == 0 {
			return &TUnit{}, nil
		}
		elems := make([]TExpr, len(x.Elems))
		tys := make([]typesystem.Type, len(x.Elems))
		for i, el := range x.Elems {
			v, err := bc.expr(el)
			if err != nil {
				return nil, err
			}
			elems[i] = v
			tys[i] = v.Ty()
		}
		return &TTuple{Elems: elems, Type: &typesystem.TupleType{Elements: tys}}, nil
	case *ast.NameExpr:
		return bc.name(x)
	case *ast.AttrExpr:
		return bc.attr(x)
	case *ast.TupleIndexExpr:
		v, err := bc.expr(x.X)
		if err != nil {
			return nil, err
		}
		tup, ok := v.Ty().(*typesystem.TupleType)
		if !ok {
			return nil, diag.Newf(diag.ErrT006, bc.fn.name,
				"value of type %s is not a tuple", v.Ty())
		}
		if x.Index < 0 || x.Index >= len(tup.Elements) {
			return nil, diag.Newf(diag.ErrT006, bc.fn.name,
				"tuple of %d elements has no element %d", len(tup.Elements), x.Index)
		}
		return &TTupleIndex{X: v, Index: x.Index, Type: tup.Elements[x.Index]}, nil
	case *ast.CondExpr:
		return bc.cond(x)
	case *ast.CallExpr:
		return bc.call(x)
	default:
		return nil, diag.Internalf("unhandled expression %T", e)
	}
}

func (bc *bodyChecker) cond(x *ast.CondExpr) (TExpr, error) {
	cond, err := bc.expr(x.Cond)
	if err != nil {
		return nil, err
	}
	if _, ok := cond.Ty().(typesystem.BoolType); !ok {
		return nil, diag.Newf(diag.ErrT002, bc.fn.name,
			"condition has type %s, expected bool", cond.Ty())
	}
	then, err := bc.expr(x.Then)
	if err != nil {
		return nil, err
	}
	els, err := bc.expr(x.Else)
	if err != nil {
		return nil, err
	}
	if !typesystem.TypesEqual(then.Ty(), els.Ty()) {
		return nil, diag.Newf(diag.ErrT002, bc.fn.name,
			"conditional arms disagree: %s vs %s", then.Ty(), els.Ty())
	}
	return &TCond{Cond: cond, Then: then, Else: els, Type: then.Ty()}, nil
}

// name resolves a name in value position: locals first, then generic
// parameters, then global definitions. A decided constant parameter acts
// as the literal it was instantiated with; a global function becomes a
// first-class value when it has no generic parameters left to infer.
func (bc *bodyChecker) name(x *ast.NameExpr) (TExpr, error) {
	if ty, ok := bc.locals[x.Name]; ok {
		return &TName{Name: x.Name, Type: ty}, nil
	}
	if arg, ok := bc.sc.params[x.Name]; ok {
		ca, ok := arg.(typesystem.ConstArg)
		if !ok {
			return nil, diag.Newf(diag.ErrT013, bc.fn.name,
				"type parameter %q cannot be used as a value", x.Name)
		}
		cv, ok := ca.C.(typesystem.ConstValue)
		if !ok {
			return nil, diag.Newf(diag.ErrT011, bc.fn.name,
				"constant parameter %q is not decided here and cannot be used as a value", x.Name)
		}
		return &TConst{C: cv}, nil
	}
	id, ok := bc.eng.LookupDef(x.Name)
	if !ok {
		return nil, diag.Newf(diag.ErrT001, bc.fn.name, "unknown name %q", x.Name)
	}
	parsed, err := bc.eng.GetParsed(id)
	if err != nil {
		return nil, err
	}
	def, ok := parsed.(SignatureDef)
	if !ok {
		return nil, diag.Newf(diag.ErrT013, bc.fn.name,
			"%s %q cannot be used as a value", parsed.Description(), x.Name)
	}
	sig := def.Signature()
	if len(sig.Params) > 0 {
		return nil, diag.Newf(diag.ErrT004, bc.fn.name,
			"cannot infer the generic arguments of %q used as a value", x.Name)
	}
	bc.eng.RegisterGenericUse(id, nil)
	callSig := instantiateSig(sig, nil)
	return &TFunc{Def: id, Name: x.Name, Sig: callSig}, nil
}

// attr resolves a bare attribute access, which must be a struct field.
// Methods and variant constructors only make sense as callees and are
// handled by call.
func (bc *bodyChecker) attr(x *ast.AttrExpr) (TExpr, error) {
	v, err := bc.expr(x.X)
	if err != nil {
		return nil, err
	}
	st, ok := v.Ty().(*typesystem.StructType)
	if !ok {
		return nil, diag.Newf(diag.ErrT006, bc.fn.name,
			"value of type %s has no field %q", v.Ty(), x.Name)
	}
	for i, f := range st.FieldTypes() {
		if f.Name == x.Name {
			return &TField{X: v, Field: x.Name, Index: i, Type: f.Ty}, nil
		}
	}
	return nil, diag.Newf(diag.ErrT006, bc.fn.name,
		"struct %s has no field %q", st, x.Name)
}

func (bc *bodyChecker) call(x *ast.CallExpr) (TExpr, error) {
	switch fn := x.Fn.(type) {
	case *ast.NameExpr:
		if ty, ok := bc.locals[fn.Name]; ok {
			ft, ok := ty.(*typesystem.FuncType)
			if !ok {
				return nil, diag.Newf(diag.ErrT005, bc.fn.name,
					"%q has type %s and is not callable", fn.Name, ty)
			}
			if len(x.TypeArgs) > 0 {
				return nil, diag.Newf(diag.ErrT003, bc.fn.name,
					"function values take no generic arguments")
			}
			return bc.callIndirect(&TName{Name: fn.Name, Type: ty}, ft, x.Args)
		}
		if _, ok := bc.sc.params[fn.Name]; ok {
			return nil, diag.Newf(diag.ErrT005, bc.fn.name,
				"generic parameter %q is not callable", fn.Name)
		}
		id, ok := bc.eng.LookupDef(fn.Name)
		if !ok {
			return nil, diag.Newf(diag.ErrT001, bc.fn.name, "unknown name %q", fn.Name)
		}
		parsed, err := bc.eng.GetParsed(id)
		if err != nil {
			return nil, err
		}
		switch d := parsed.(type) {
		case SignatureDef:
			return bc.callDirect(d, nil, x.TypeArgs, x.Args)
		case *ParsedStructDef:
			ctor, err := bc.typeMember(id, "__new__", fn.Name)
			if err != nil {
				return nil, err
			}
			return bc.callDirect(ctor, nil, x.TypeArgs, x.Args)
		case *ParsedEnumDef:
			return nil, diag.Newf(diag.ErrT005, bc.fn.name,
				"enum %q is not callable; construct a variant with %s.Variant(...)", fn.Name, fn.Name)
		default:
			return nil, diag.Newf(diag.ErrT005, bc.fn.name,
				"%s %q is not callable", d.Description(), fn.Name)
		}
	case *ast.AttrExpr:
		// Type.name resolves statically: a variant constructor or an
		// unbound method. Anything else is an instance call on the
		// receiver's type.
		if nm, ok := fn.X.(*ast.NameExpr); ok {
			_, isLocal := bc.locals[nm.Name]
			_, isParam := bc.sc.params[nm.Name]
			if !isLocal && !isParam {
				if id, ok := bc.eng.LookupDef(nm.Name); ok {
					parsed, err := bc.eng.GetParsed(id)
					if err != nil {
						return nil, err
					}
					switch parsed.(type) {
					case *ParsedStructDef, *ParsedEnumDef:
						member, err := bc.typeMember(id, fn.Name, nm.Name)
						if err != nil {
							return nil, err
						}
						return bc.callDirect(member, nil, x.TypeArgs, x.Args)
					}
				}
			}
		}
		recv, err := bc.expr(fn.X)
		if err != nil {
			return nil, err
		}
		return bc.callMethod(recv, fn.Name, x.TypeArgs, x.Args)
	default:
		f, err := bc.expr(x.Fn)
		if err != nil {
			return nil, err
		}
		ft, ok := f.Ty().(*typesystem.FuncType)
		if !ok {
			return nil, diag.Newf(diag.ErrT005, bc.fn.name,
				"value of type %s is not callable", f.Ty())
		}
		if len(x.TypeArgs) > 0 {
			return nil, diag.Newf(diag.ErrT003, bc.fn.name,
				"function values take no generic arguments")
		}
		return bc.callIndirect(f, ft, x.Args)
	}
}

// typeMember resolves a name on a type definition: a generated
// constructor, a variant constructor or an unbound method. Checking the
// owner first guarantees the generated members exist.
func (bc *bodyChecker) typeMember(owner ids.DefId, name, ownerName string) (SignatureDef, error) {
	if _, err := bc.eng.GetChecked(owner, nil); err != nil {
		return nil, err
	}
	implId, ok := bc.eng.implOf(owner, name)
	if !ok {
		return nil, diag.Newf(diag.ErrT007, bc.fn.name,
			"%s has no member %q", ownerName, name)
	}
	parsed, err := bc.eng.GetParsed(implId)
	if err != nil {
		return nil, err
	}
	def, ok := parsed.(SignatureDef)
	if !ok {
		return nil, diag.Internalf("member %q of %s has no signature", name, ownerName)
	}
	return def, nil
}

// callMethod dispatches name on the receiver: through the declared
// assumptions when the receiver's type is a generic parameter, through
// the type's instance functions otherwise.
func (bc *bodyChecker) callMethod(recv TExpr, name string, targs []ast.TypeArgExpr, argExprs []ast.Expr) (TExpr, error) {
	if v, ok := recv.Ty().(typesystem.BoundTypeVar); ok {
		return bc.callMember(recv, v, name, targs, argExprs)
	}
	implId, ok := bc.eng.InstanceFunc(recv.Ty(), name)
	if !ok {
		return nil, diag.Newf(diag.ErrT007, bc.fn.name,
			"type %s has no method %q", recv.Ty(), name)
	}
	parsed, err := bc.eng.GetParsed(implId)
	if err != nil {
		return nil, err
	}
	def, ok := parsed.(SignatureDef)
	if !ok {
		return nil, diag.Internalf("method %q of %s has no signature", name, recv.Ty())
	}
	return bc.callDirect(def, []TExpr{recv}, targs, argExprs)
}

// callDirect checks a call to a global definition, inferring its generic
// arguments from lead and the argument expressions. lead carries
// already-checked leading arguments (the receiver of a method call).
func (bc *bodyChecker) callDirect(def SignatureDef, lead []TExpr, targs []ast.TypeArgExpr, argExprs []ast.Expr) (TExpr, error) {
	sig := def.Signature()
	opened, fresh := sig.Unquantified()
	s := typesystem.Subst{}

	if len(targs) > 0 {
		if len(lead) > 0 {
			return nil, diag.Newf(diag.ErrT003, bc.fn.name,
				"explicit generic arguments are not supported on method calls")
		}
		explicit, err := resolveTypeArgs(bc.sc, targs)
		if err != nil {
			return nil, err
		}
		if len(explicit) != len(sig.Params) {
			return nil, diag.Newf(diag.ErrT003, bc.fn.name,
				"%q takes %d generic arguments, got %d", def.DefName(), len(sig.Params), len(explicit))
		}
		for i := range explicit {
			s2, err := typesystem.Unify(fresh[i], explicit[i], s)
			if err != nil {
				return nil, diag.Newf(diag.ErrT008, bc.fn.name,
					"generic argument %d of %q: %v", i, def.DefName(), err)
			}
			s = s2
		}
	}

	if len(lead)+len(argExprs) != len(opened.Inputs) {
		return nil, diag.Newf(diag.ErrT003, bc.fn.name,
			"%q expects %d arguments, got %d", def.DefName(), len(opened.Inputs), len(lead)+len(argExprs))
	}
	args := make([]TExpr, 0, len(opened.Inputs))
	for i := range opened.Inputs {
		var a TExpr
		if i < len(lead) {
			a = lead[i]
		} else {
			checked, err := bc.expr(argExprs[i-len(lead)])
			if err != nil {
				return nil, err
			}
			a = checked
		}
		want := typesystem.ApplySubst(opened.Inputs[i].Ty, s)
		s2, err := typesystem.UnifyTypes(want, a.Ty(), s)
		if err != nil {
			return nil, diag.Newf(diag.ErrT002, bc.fn.name,
				"argument %d of %q has type %s, expected %s", i, def.DefName(), a.Ty(), want)
		}
		s = s2
		if err := bc.checkBorrowedPlace(opened.Inputs[i], a, s, i, def.DefName()); err != nil {
			return nil, err
		}
		args = append(args, a)
	}

	solved := typesystem.ApplySubstInst(fresh, s)
	if unsolved := typesystem.UnsolvedInArgs(solved); len(unsolved) > 0 {
		return nil, diag.Newf(diag.ErrT004, bc.fn.name,
			"cannot infer %d generic argument(s) of %q", len(unsolved), def.DefName())
	}
	if err := checkInstArgs(bc.eng, def.DefName(), sig.Params, solved); err != nil {
		return nil, err
	}
	bc.registerUse(def, solved)
	callSig := instantiateSig(sig, solved)
	return &TCall{
		Def:  def.DefId(),
		Name: def.DefName(),
		Inst: solved,
		Sig:  callSig,
		Args: args,
		Type: callSig.Output,
	}, nil
}

// callMember checks a call to a protocol member on a receiver whose type
// is a generic parameter. Exactly one declared assumption must provide
// the member.
func (bc *bodyChecker) callMember(recv TExpr, v typesystem.BoundTypeVar, member string, targs []ast.TypeArgExpr, argExprs []ast.Expr) (TExpr, error) {
	if len(targs) > 0 {
		return nil, diag.Newf(diag.ErrT003, bc.fn.name,
			"explicit generic arguments are not supported on method calls")
	}
	type candidate struct {
		proto typesystem.ProtocolInst
		m     ProtocolMember
	}
	var found []candidate
	for _, b := range v.Bounds {
		checked, err := bc.eng.GetChecked(b.Def, nil)
		if err != nil {
			return nil, err
		}
		pd, ok := checked.(*CheckedProtocolDef)
		if !ok {
			return nil, diag.Internalf("assumption on %s is not a protocol", v.Name)
		}
		if m, ok := pd.Member(member); ok {
			found = append(found, candidate{proto: b, m: m})
		}
	}
	switch len(found) {
	case 0:
		return nil, diag.Newf(diag.ErrT007, bc.fn.name,
			"no assumption on %s provides a member %q", v.Name, member)
	case 1:
	default:
		return nil, diag.Newf(diag.ErrP006, bc.fn.name,
			"%d assumptions on %s provide %q; the call is ambiguous", len(found), v.Name, member)
	}
	c := found[0]

	// Member schema: self at slot 0, the protocol's parameters next,
	// the member's own parameters last. Pin the first two groups and
	// open the member's own as existentials.
	msig := c.m.Sig
	k := len(c.proto.Args)
	inst := make(typesystem.Inst, len(msig.Params))
	inst[0] = typesystem.TypeArg{Ty: v}
	for j, a := range c.proto.Args {
		inst[1+j] = a
	}
	own := msig.Params[1+k:]
	fresh := make(typesystem.Inst, len(own))
	for j, p := range own {
		fresh[j] = p.ToExistential()
		inst[1+k+j] = fresh[j]
	}
	opened := instantiateSig(msig, inst)

	if len(argExprs)+1 != len(opened.Inputs) {
		return nil, diag.Newf(diag.ErrT003, bc.fn.name,
			"%q expects %d arguments, got %d", member, len(opened.Inputs), len(argExprs)+1)
	}
	s := typesystem.Subst{}
	args := make([]TExpr, 0, len(opened.Inputs))
	for i := range opened.Inputs {
		var a TExpr
		if i == 0 {
			a = recv
		} else {
			checked, err := bc.expr(argExprs[i-1])
			if err != nil {
				return nil, err
			}
			a = checked
		}
		want := typesystem.ApplySubst(opened.Inputs[i].Ty, s)
		s2, err := typesystem.UnifyTypes(want, a.Ty(), s)
		if err != nil {
			return nil, diag.Newf(diag.ErrT002, bc.fn.name,
				"argument %d of %q has type %s, expected %s", i, member, a.Ty(), want)
		}
		s = s2
		if err := bc.checkBorrowedPlace(opened.Inputs[i], a, s, i, member); err != nil {
			return nil, err
		}
		args = append(args, a)
	}

	ownSolved := typesystem.ApplySubstInst(fresh, s)
	if unsolved := typesystem.UnsolvedInArgs(ownSolved); len(unsolved) > 0 {
		return nil, diag.Newf(diag.ErrT004, bc.fn.name,
			"cannot infer %d generic argument(s) of %q", len(unsolved), member)
	}
	fullSolved := make(typesystem.Inst, len(inst))
	copy(fullSolved, inst)
	for j := range ownSolved {
		fullSolved[1+k+j] = ownSolved[j]
	}
	if err := checkInstArgs(bc.eng, member, msig.Params, fullSolved); err != nil {
		return nil, err
	}
	callSig := instantiateSig(msig, fullSolved)
	return &TCallMember{
		Proto:   c.proto,
		Member:  member,
		OwnInst: ownSolved,
		Sig:     callSig,
		Args:    args,
		Type:    callSig.Output,
	}, nil
}

func (bc *bodyChecker) callIndirect(f TExpr, ft *typesystem.FuncType, argExprs []ast.Expr) (TExpr, error) {
	if len(argExprs) != len(ft.Inputs) {
		return nil, diag.Newf(diag.ErrT003, bc.fn.name,
			"function value expects %d arguments, got %d", len(ft.Inputs), len(argExprs))
	}
	args := make([]TExpr, len(argExprs))
	for i, ae := range argExprs {
		a, err := bc.expr(ae)
		if err != nil {
			return nil, err
		}
		if !typesystem.TypesEqual(a.Ty(), ft.Inputs[i].Ty) {
			return nil, diag.Newf(diag.ErrT002, bc.fn.name,
				"argument %d has type %s, expected %s", i, a.Ty(), ft.Inputs[i].Ty)
		}
		if err := bc.checkBorrowedPlace(ft.Inputs[i], a, nil, i, "function value"); err != nil {
			return nil, err
		}
		args[i] = a
	}
	return &TCallIndirect{Fn: f, Sig: ft, Args: args, Type: ft.Output}, nil
}

// checkBorrowedPlace enforces that borrowed linear arguments are place
// expressions. The compiler rebinds the place to the call's implicit
// return, which only works when there is a place to rebind.
func (bc *bodyChecker) checkBorrowedPlace(in typesystem.FuncInput, a TExpr, s typesystem.Subst, i int, callee string) error {
	if in.Owned {
		return nil
	}
	ty := in.Ty
	if s != nil {
		ty = typesystem.ApplySubst(ty, s)
	}
	if !typesystem.Linear(ty) {
		return nil
	}
	if !isPlace(a) {
		return diag.Newf(diag.ErrT012, bc.fn.name,
			"argument %d of %q is borrowed and must be an assignable place", i, callee)
	}
	return nil
}

// isPlace reports whether an expression names a storage location: a
// local, or a field/element projection of one.
func isPlace(e TExpr) bool {
	switch x := e.(type) {
	case *TName:
		return true
	case *TField:
		return isPlace(x.X)
	case *TTupleIndex:
		return isPlace(x.X)
	default:
		return false
	}
}

// registerUse schedules the callee for checking under the slots the
// call site forces. Non-nat constants and their dependencies must be
// decided before a body can be checked; everything else stays generic.
func (bc *bodyChecker) registerUse(def SignatureDef, solved typesystem.Inst) {
	params := def.Signature().Params
	if len(params) == 0 {
		bc.eng.RegisterGenericUse(def.DefId(), nil)
		return
	}
	forced := typesystem.ForcedConstParams(params)
	mono := make(typesystem.Inst, len(params))
	for i := range params {
		if forced[i] {
			mono[i] = solved[i]
		}
	}
	bc.eng.RegisterGenericUse(def.DefId(), mono)
}

// instantiateSig applies a complete instantiation to a signature. The
// result has no parameters left.
func instantiateSig(sig *typesystem.FuncType, inst typesystem.Inst) *typesystem.FuncType {
	ins := make([]typesystem.FuncInput, len(sig.Inputs))
	for i, in := range sig.Inputs {
		ins[i] = typesystem.FuncInput{Ty: typesystem.Instantiate(in.Ty, inst), Owned: in.Owned}
	}
	return &typesystem.FuncType{Inputs: ins, Output: typesystem.Instantiate(sig.Output, inst)}
}
