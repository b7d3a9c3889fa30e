package typesystem

import "fmt"

// Unification is purely structural: no subtyping, no coercions, no
// deferred constraints. Callers thread a substitution through a sequence
// of calls; any error means "no match" and leaves the caller's
// substitution untouched, so speculative checks can simply retry with
// something else. The messages exist for the protocol checker to attach
// context to, not as a user surface of their own.

// Unify unifies two arguments under s and returns the extended
// substitution.
func Unify(x, y Argument, s Subst) (Subst, error) {
	switch xa := x.(type) {
	case TypeArg:
		if ya, ok := y.(TypeArg); ok {
			return UnifyTypes(xa.Ty, ya.Ty, s)
		}
	case ConstArg:
		if ya, ok := y.(ConstArg); ok {
			return UnifyConsts(xa.C, ya.C, s)
		}
	}
	return nil, errMismatch(x, y)
}

// UnifyTypes unifies two types under s.
func UnifyTypes(t1, t2 Type, s Subst) (Subst, error) {
	t1 = ApplySubst(t1, s)
	t2 = ApplySubst(t2, s)

	if v, ok := t1.(ExistentialTypeVar); ok {
		return bindType(v, t2, s)
	}
	if v, ok := t2.(ExistentialTypeVar); ok {
		return bindType(v, t1, s)
	}

	switch a := t1.(type) {
	case NoneType:
		if _, ok := t2.(NoneType); ok {
			return s, nil
		}
	case BoolType:
		if _, ok := t2.(BoolType); ok {
			return s, nil
		}
	case StringType:
		if _, ok := t2.(StringType); ok {
			return s, nil
		}
	case QubitType:
		if _, ok := t2.(QubitType); ok {
			return s, nil
		}
	case NumericType:
		if b, ok := t2.(NumericType); ok && a.Kind == b.Kind {
			return s, nil
		}
	case BoundTypeVar:
		// Bound variables are rigid: they only match themselves.
		if b, ok := t2.(BoundTypeVar); ok && a.Idx == b.Idx {
			return s, nil
		}
	case *ArrayType:
		if b, ok := t2.(*ArrayType); ok && a.Borrowed == b.Borrowed {
			s, err := UnifyTypes(a.Elem, b.Elem, s)
			if err != nil {
				return nil, err
			}
			return UnifyConsts(a.Len, b.Len, s)
		}
	case *TupleType:
		if b, ok := t2.(*TupleType); ok {
			return unifyTypeRows(a.Elements, b.Elements, s, t1, t2)
		}
	case *StructType:
		if b, ok := t2.(*StructType); ok && a.Decl.StructId() == b.Decl.StructId() {
			return unifyInsts(a.Args, b.Args, s, t1, t2)
		}
	case *EnumType:
		if b, ok := t2.(*EnumType); ok && a.Decl.EnumId() == b.Decl.EnumId() {
			return unifyInsts(a.Args, b.Args, s, t1, t2)
		}
	case *FuncType:
		b, ok := t2.(*FuncType)
		if !ok {
			break
		}
		if !paramsCompatible(a.Params, b.Params) {
			return nil, errMismatch(t1, t2)
		}
		if len(a.Inputs) != len(b.Inputs) {
			return nil, errMismatch(t1, t2)
		}
		for i := range a.Inputs {
			if a.Inputs[i].Owned != b.Inputs[i].Owned {
				return nil, errMismatch(t1, t2)
			}
			var err error
			s, err = UnifyTypes(a.Inputs[i].Ty, b.Inputs[i].Ty, s)
			if err != nil {
				return nil, err
			}
		}
		return UnifyTypes(a.Output, b.Output, s)
	}
	return nil, errMismatch(t1, t2)
}

// UnifyConsts unifies two constant expressions under s.
func UnifyConsts(c1, c2 Const, s Subst) (Subst, error) {
	c1 = ApplySubstConst(c1, s)
	c2 = ApplySubstConst(c2, s)

	if v, ok := c1.(ExistentialConstVar); ok {
		return bindConst(v, c2, s)
	}
	if v, ok := c2.(ExistentialConstVar); ok {
		return bindConst(v, c1, s)
	}

	switch a := c1.(type) {
	case ConstValue:
		if b, ok := c2.(ConstValue); ok && TypesEqual(a.Ty, b.Ty) && a.Val == b.Val {
			return s, nil
		}
	case BoundConstVar:
		if b, ok := c2.(BoundConstVar); ok && a.Idx == b.Idx {
			return s, nil
		}
	}
	return nil, errMismatch(c1, c2)
}

// UnifyInsts unifies two argument lists slot by slot under strict arity.
func UnifyInsts(xs, ys Inst, s Subst) (Subst, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("cannot unify %s with %s: argument count differs", InstString(xs), InstString(ys))
	}
	var err error
	for i := range xs {
		s, err = Unify(xs[i], ys[i], s)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func unifyTypeRows(xs, ys []Type, s Subst, t1, t2 Type) (Subst, error) {
	if len(xs) != len(ys) {
		return nil, errMismatch(t1, t2)
	}
	var err error
	for i := range xs {
		s, err = UnifyTypes(xs[i], ys[i], s)
		if err != nil {
			return nil, err
		}
	}
	return s, nil
}

func unifyInsts(xs, ys Inst, s Subst, t1, t2 Type) (Subst, error) {
	s, err := UnifyInsts(xs, ys, s)
	if err != nil {
		return nil, errMismatch(t1, t2)
	}
	return s, nil
}

// bindType solves an existential type variable. Binding a variable to
// itself succeeds without extending the substitution; binding it to a type
// containing it would build an infinite type and fails.
func bindType(v ExistentialTypeVar, t Type, s Subst) (Subst, error) {
	if other, ok := t.(ExistentialTypeVar); ok && other.ID == v.ID {
		return s, nil
	}
	if OccursCheck(v.ID, t) {
		return nil, fmt.Errorf("infinite type detected: ?%s occurs in %s", v.Name, t)
	}
	out := s.Clone()
	out[v.ID] = TypeArg{Ty: t}
	return out, nil
}

// bindConst solves an existential constant variable after checking the
// constant inhabits the variable's type.
func bindConst(v ExistentialConstVar, c Const, s Subst) (Subst, error) {
	if other, ok := c.(ExistentialConstVar); ok && other.ID == v.ID {
		return s, nil
	}
	s2, err := UnifyTypes(v.Ty, ConstTypeOf(c), s)
	if err != nil {
		return nil, fmt.Errorf("cannot unify constant ?%s: %v", v.Name, err)
	}
	out := s2.Clone()
	out[v.ID] = ConstArg{C: c}
	return out, nil
}

// OccursCheck reports whether the existential variable id occurs anywhere
// in t.
func OccursCheck(id uint64, t Type) bool {
	for _, found := range UnsolvedVars(t) {
		if found == id {
			return true
		}
	}
	return false
}

func errMismatch(a, b fmt.Stringer) error {
	return fmt.Errorf("cannot unify %s with %s", a, b)
}
