package typesystem

import "fmt"

// Subst maps existential variable identities to the arguments that solve
// them. Bound variables are never substituted through a Subst; that is
// Instantiate's job.
type Subst map[uint64]Argument

// Clone returns an independent copy.
func (s Subst) Clone() Subst {
	out := make(Subst, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Compose combines two substitutions: applying the result is equivalent to
// applying s first, then other.
func (s Subst) Compose(other Subst) Subst {
	out := make(Subst, len(s)+len(other))
	for k, v := range other {
		out[k] = v
	}
	for k, v := range s {
		out[k] = ApplySubstArg(v, other)
	}
	return out
}

// Restrict keeps only the entries whose identity is in keep.
func (s Subst) Restrict(keep []uint64) Subst {
	out := make(Subst)
	for _, id := range keep {
		if v, ok := s[id]; ok {
			out[id] = v
		}
	}
	return out
}

// ApplySubst replaces solved existential variables in t. Replacements are
// applied recursively; occurs checking during unification keeps the
// substitution acyclic.
func ApplySubst(t Type, s Subst) Type {
	if len(s) == 0 {
		return t
	}
	switch ty := t.(type) {
	case ExistentialTypeVar:
		a, ok := s[ty.ID]
		if !ok {
			return ty
		}
		ta, ok := a.(TypeArg)
		if !ok {
			panic(fmt.Sprintf("typesystem: type variable ?%s solved by constant argument", ty.Name))
		}
		return ApplySubst(ta.Ty, s)
	case *ArrayType:
		return &ArrayType{Elem: ApplySubst(ty.Elem, s), Len: ApplySubstConst(ty.Len, s), Borrowed: ty.Borrowed}
	case *TupleType:
		elems := make([]Type, len(ty.Elements))
		for i, e := range ty.Elements {
			elems[i] = ApplySubst(e, s)
		}
		return &TupleType{Elements: elems}
	case *StructType:
		return &StructType{Decl: ty.Decl, Args: ApplySubstInst(ty.Args, s)}
	case *EnumType:
		return &EnumType{Decl: ty.Decl, Args: ApplySubstInst(ty.Args, s)}
	case *FuncType:
		ins := make([]FuncInput, len(ty.Inputs))
		for i, in := range ty.Inputs {
			ins[i] = FuncInput{Ty: ApplySubst(in.Ty, s), Owned: in.Owned}
		}
		return &FuncType{Inputs: ins, Output: ApplySubst(ty.Output, s), Params: ty.Params}
	case BoundTypeVar:
		if len(ty.Bounds) == 0 {
			return ty
		}
		bounds := make([]ProtocolInst, len(ty.Bounds))
		for i, b := range ty.Bounds {
			bounds[i] = ProtocolInst{Def: b.Def, Name: b.Name, Args: ApplySubstInst(b.Args, s)}
		}
		ty.Bounds = bounds
		return ty
	default:
		return t
	}
}

// ApplySubstConst replaces solved existential variables in c.
func ApplySubstConst(c Const, s Subst) Const {
	switch cv := c.(type) {
	case ExistentialConstVar:
		a, ok := s[cv.ID]
		if !ok {
			return ExistentialConstVar{ID: cv.ID, Name: cv.Name, Ty: ApplySubst(cv.Ty, s)}
		}
		ca, ok := a.(ConstArg)
		if !ok {
			panic(fmt.Sprintf("typesystem: constant variable ?%s solved by type argument", cv.Name))
		}
		return ApplySubstConst(ca.C, s)
	case ConstValue:
		return ConstValue{Ty: ApplySubst(cv.Ty, s), Val: cv.Val}
	default:
		return c
	}
}

// ApplySubstArg replaces solved existential variables in an argument.
func ApplySubstArg(a Argument, s Subst) Argument {
	switch arg := a.(type) {
	case TypeArg:
		return TypeArg{Ty: ApplySubst(arg.Ty, s)}
	case ConstArg:
		return ConstArg{C: ApplySubstConst(arg.C, s)}
	default:
		return a
	}
}

// ApplySubstInst applies s across an instantiation, preserving undecided
// slots.
func ApplySubstInst(inst Inst, s Subst) Inst {
	out := make(Inst, len(inst))
	for i, a := range inst {
		if a == nil {
			continue
		}
		out[i] = ApplySubstArg(a, s)
	}
	return out
}

// UndecidedBefore counts the undecided slots strictly before idx. When a
// partial instantiation keeps a parameter generic, this is the parameter's
// renumbered index: every decided slot before it disappears, shifting it
// down.
func UndecidedBefore(inst Inst, idx int) int {
	count := 0
	for i := 0; i < idx && i < len(inst); i++ {
		if inst[i] == nil {
			count++
		}
	}
	return count
}

// Instantiate replaces bound variables in t according to inst. Decided
// slots substitute their argument; undecided (nil) slots renumber the
// variable by position compaction. Polymorphic function types bind their
// own parameters and are left untouched.
func Instantiate(t Type, inst Inst) Type {
	switch ty := t.(type) {
	case BoundTypeVar:
		if ty.Idx >= len(inst) {
			panic(fmt.Sprintf("typesystem: bound type variable %s has index %d outside instantiation of length %d", ty.Name, ty.Idx, len(inst)))
		}
		a := inst[ty.Idx]
		if a == nil {
			out := BoundTypeVar{
				Idx:      UndecidedBefore(inst, ty.Idx),
				Name:     ty.Name,
				Copyable: ty.Copyable,
			}
			if len(ty.Bounds) > 0 {
				bounds := make([]ProtocolInst, len(ty.Bounds))
				for i, b := range ty.Bounds {
					bounds[i] = InstantiateProtocol(b, inst)
				}
				out.Bounds = bounds
			}
			return out
		}
		ta, ok := a.(TypeArg)
		if !ok {
			panic(fmt.Sprintf("typesystem: type parameter %s instantiated with constant argument", ty.Name))
		}
		return ta.Ty
	case *ArrayType:
		return &ArrayType{Elem: Instantiate(ty.Elem, inst), Len: InstantiateConst(ty.Len, inst), Borrowed: ty.Borrowed}
	case *TupleType:
		elems := make([]Type, len(ty.Elements))
		for i, e := range ty.Elements {
			elems[i] = Instantiate(e, inst)
		}
		return &TupleType{Elements: elems}
	case *StructType:
		return &StructType{Decl: ty.Decl, Args: InstantiateInst(ty.Args, inst)}
	case *EnumType:
		return &EnumType{Decl: ty.Decl, Args: InstantiateInst(ty.Args, inst)}
	case *FuncType:
		if len(ty.Params) > 0 {
			return ty
		}
		ins := make([]FuncInput, len(ty.Inputs))
		for i, in := range ty.Inputs {
			ins[i] = FuncInput{Ty: Instantiate(in.Ty, inst), Owned: in.Owned}
		}
		return &FuncType{Inputs: ins, Output: Instantiate(ty.Output, inst)}
	default:
		return t
	}
}

// InstantiateConst replaces bound constant variables in c according to
// inst.
func InstantiateConst(c Const, inst Inst) Const {
	switch cv := c.(type) {
	case BoundConstVar:
		if cv.Idx >= len(inst) {
			panic(fmt.Sprintf("typesystem: bound constant variable %s has index %d outside instantiation of length %d", cv.Name, cv.Idx, len(inst)))
		}
		a := inst[cv.Idx]
		if a == nil {
			return BoundConstVar{
				Idx:  UndecidedBefore(inst, cv.Idx),
				Name: cv.Name,
				Ty:   Instantiate(cv.Ty, inst),
			}
		}
		ca, ok := a.(ConstArg)
		if !ok {
			panic(fmt.Sprintf("typesystem: constant parameter %s instantiated with type argument", cv.Name))
		}
		return ca.C
	case ConstValue:
		return ConstValue{Ty: Instantiate(cv.Ty, inst), Val: cv.Val}
	default:
		return c
	}
}

// InstantiateArg replaces bound variables in an argument.
func InstantiateArg(a Argument, inst Inst) Argument {
	switch arg := a.(type) {
	case TypeArg:
		return TypeArg{Ty: Instantiate(arg.Ty, inst)}
	case ConstArg:
		return ConstArg{C: InstantiateConst(arg.C, inst)}
	default:
		return a
	}
}

// InstantiateInst maps Instantiate across an argument list.
func InstantiateInst(args Inst, inst Inst) Inst {
	out := make(Inst, len(args))
	for i, a := range args {
		if a == nil {
			continue
		}
		out[i] = InstantiateArg(a, inst)
	}
	return out
}

// InstantiateProtocol replaces bound variables in a protocol reference.
func InstantiateProtocol(p ProtocolInst, inst Inst) ProtocolInst {
	return ProtocolInst{Def: p.Def, Name: p.Name, Args: InstantiateInst(p.Args, inst)}
}

// Unquantified replaces every parameter of the signature with a fresh
// existential variable. It returns the opened signature and the
// instantiation that produced it, aligned with Params. Parameter bounds
// and constant parameter types may reference earlier parameters, so slots
// are opened left to right.
func (t *FuncType) Unquantified() (*FuncType, Inst) {
	exts := make(Inst, len(t.Params))
	for i, p := range t.Params {
		switch pp := p.(type) {
		case ConstParam:
			ty := Instantiate(pp.Ty, exts)
			exts[i] = ConstArg{C: FreshExistentialConstVar(pp.Name, ty)}
		default:
			exts[i] = p.ToExistential()
		}
	}
	opened := &FuncType{Inputs: t.Inputs, Output: t.Output}
	return Instantiate(opened, exts).(*FuncType), exts
}

// InstantiatePartial applies a partial instantiation to a generic
// signature: decided parameters disappear into their arguments, undecided
// ones survive with compacted indices.
func (t *FuncType) InstantiatePartial(inst Inst) *FuncType {
	if len(inst) != len(t.Params) {
		panic(fmt.Sprintf("typesystem: instantiation of length %d against %d parameters", len(inst), len(t.Params)))
	}
	full := make(Inst, len(inst))
	copy(full, inst)

	var kept []Parameter
	next := 0
	for i, p := range t.Params {
		if inst[i] != nil {
			continue
		}
		renumbered := p.WithIdx(next)
		switch pp := renumbered.(type) {
		case TypeParam:
			if len(pp.Bounds) > 0 {
				bounds := make([]ProtocolInst, len(pp.Bounds))
				for j, b := range pp.Bounds {
					bounds[j] = InstantiateProtocol(b, full)
				}
				pp.Bounds = bounds
			}
			renumbered = pp
		case ConstParam:
			pp.Ty = Instantiate(pp.Ty, full)
			renumbered = pp
		}
		kept = append(kept, renumbered)
		next++
	}

	ins := make([]FuncInput, len(t.Inputs))
	for i, in := range t.Inputs {
		ins[i] = FuncInput{Ty: Instantiate(in.Ty, full), Owned: in.Owned}
	}
	return &FuncType{Inputs: ins, Output: Instantiate(t.Output, full), Params: kept}
}
