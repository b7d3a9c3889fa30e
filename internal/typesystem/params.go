package typesystem

import "fmt"

// Parameter declares one generic parameter of a definition. Idx is the de
// Bruijn index bound variables use to reference it.
type Parameter interface {
	fmt.Stringer
	ParamIdx() int
	ParamName() string
	// ToBound returns the argument that instantiates the parameter with
	// itself, i.e. a bound variable of the matching kind.
	ToBound() Argument
	// ToExistential returns a fresh unsolved argument of the matching
	// kind, for unquantifying signatures.
	ToExistential() Argument
	// WithIdx returns a copy renumbered to idx, for partial
	// instantiation compaction.
	WithIdx(idx int) Parameter
	// SameKind reports whether other declares a parameter of the same
	// kind (type vs constant, constant value type).
	SameKind(other Parameter) bool
}

// TypeParam declares a generic type parameter with optional protocol
// bounds. Linear parameters may be instantiated with linear types.
type TypeParam struct {
	Idx    int
	Name   string
	Bounds []ProtocolInst
	Linear bool
}

func (p TypeParam) ParamIdx() int     { return p.Idx }
func (p TypeParam) ParamName() string { return p.Name }

func (p TypeParam) String() string {
	s := p.Name
	if len(p.Bounds) > 0 {
		s += ": " + p.Bounds[0].String()
		for _, b := range p.Bounds[1:] {
			s += " + " + b.String()
		}
	}
	return s
}

func (p TypeParam) ToBound() Argument {
	return TypeArg{Ty: BoundTypeVar{Idx: p.Idx, Name: p.Name, Copyable: !p.Linear, Bounds: p.Bounds}}
}

func (p TypeParam) ToExistential() Argument {
	return TypeArg{Ty: FreshExistentialTypeVar(p.Name)}
}

func (p TypeParam) WithIdx(idx int) Parameter {
	p.Idx = idx
	return p
}

func (p TypeParam) SameKind(other Parameter) bool {
	_, ok := other.(TypeParam)
	return ok
}

// ConstParam declares a generic constant parameter of the given type.
type ConstParam struct {
	Idx  int
	Name string
	Ty   Type
}

func (p ConstParam) ParamIdx() int     { return p.Idx }
func (p ConstParam) ParamName() string { return p.Name }

func (p ConstParam) String() string {
	return p.Name + ": " + p.Ty.String()
}

func (p ConstParam) ToBound() Argument {
	return ConstArg{C: BoundConstVar{Idx: p.Idx, Name: p.Name, Ty: p.Ty}}
}

func (p ConstParam) ToExistential() Argument {
	return ConstArg{C: FreshExistentialConstVar(p.Name, p.Ty)}
}

func (p ConstParam) WithIdx(idx int) Parameter {
	p.Idx = idx
	return p
}

func (p ConstParam) SameKind(other Parameter) bool {
	o, ok := other.(ConstParam)
	return ok && TypesEqual(p.Ty, o.Ty)
}

// IdentityInst instantiates every parameter with itself.
func IdentityInst(params []Parameter) Inst {
	inst := make(Inst, len(params))
	for i, p := range params {
		inst[i] = p.ToBound()
	}
	return inst
}

// paramsCompatible checks two parameter lists pairwise for kind agreement.
func paramsCompatible(a, b []Parameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].SameKind(b[i]) {
			return false
		}
	}
	return true
}

// ForcedParams reports which parameters must be decided before a definition
// can be lowered. The graph format expresses type parameters with
// copy/linear bounds and nat constants, nothing else: constant parameters
// of any other type are forced, protocol-bounded type parameters are forced
// (member dispatch needs a concrete receiver), and any parameter mentioned
// by a forced constant's own type is pulled in transitively.
func ForcedParams(params []Parameter) map[int]bool {
	forced := make(map[int]bool)
	for i, p := range params {
		switch p := p.(type) {
		case ConstParam:
			if !isNatType(p.Ty) {
				forced[i] = true
			}
		case TypeParam:
			if len(p.Bounds) > 0 {
				forced[i] = true
			}
		}
	}
	closeForcedDeps(params, forced)
	return forced
}

// ForcedConstParams reports which parameters must be decided before a
// definition's body can be checked. Non-nat constants act as static values
// while the body is checked, so they are forced along with every parameter
// their own types mention. Protocol-bounded type parameters are not in this
// set: member calls on them dispatch through the declared bounds and stay
// generic until lowering.
func ForcedConstParams(params []Parameter) map[int]bool {
	forced := make(map[int]bool)
	for i, p := range params {
		if cp, ok := p.(ConstParam); ok && !isNatType(cp.Ty) {
			forced[i] = true
		}
	}
	closeForcedDeps(params, forced)
	return forced
}

// closeForcedDeps pulls every parameter mentioned by a forced constant
// parameter's type into the forced set, to a fixed point.
func closeForcedDeps(params []Parameter, forced map[int]bool) {
	for changed := true; changed; {
		changed = false
		for i := range forced {
			cp, ok := params[i].(ConstParam)
			if !ok {
				continue
			}
			for _, j := range boundParamRefs(cp.Ty) {
				if !forced[j] {
					forced[j] = true
					changed = true
				}
			}
		}
	}
}

func isNatType(t Type) bool {
	n, ok := t.(NumericType)
	return ok && n.Kind == NatKind
}

// BoundVarRefs collects the de Bruijn indices of the bound variables
// mentioned anywhere inside t, in first-occurrence order.
func BoundVarRefs(t Type) []int {
	w := newBoundWalker()
	w.ty(t)
	return w.idxs
}

// BoundRefsInArgs collects bound variable indices across an argument list.
func BoundRefsInArgs(args []Argument) []int {
	w := newBoundWalker()
	for _, a := range args {
		w.arg(a)
	}
	return w.idxs
}

func boundParamRefs(t Type) []int { return BoundVarRefs(t) }

type boundWalker struct {
	idxs []int
	seen map[int]bool
	ty   func(Type)
	arg  func(Argument)
}

func newBoundWalker() *boundWalker {
	w := &boundWalker{seen: make(map[int]bool)}
	var walkTy func(Type)
	var walkConst func(Const)
	var walkArg func(Argument)
	walkTy = func(t Type) {
		switch t := t.(type) {
		case BoundTypeVar:
			if !w.seen[t.Idx] {
				w.seen[t.Idx] = true
				w.idxs = append(w.idxs, t.Idx)
			}
			for _, b := range t.Bounds {
				for _, a := range b.Args {
					walkArg(a)
				}
			}
		case *ArrayType:
			walkTy(t.Elem)
			walkConst(t.Len)
		case *TupleType:
			for _, e := range t.Elements {
				walkTy(e)
			}
		case *StructType:
			for _, a := range t.Args {
				walkArg(a)
			}
		case *EnumType:
			for _, a := range t.Args {
				walkArg(a)
			}
		case *FuncType:
			for _, in := range t.Inputs {
				walkTy(in.Ty)
			}
			walkTy(t.Output)
		}
	}
	walkConst = func(c Const) {
		switch c := c.(type) {
		case BoundConstVar:
			if !w.seen[c.Idx] {
				w.seen[c.Idx] = true
				w.idxs = append(w.idxs, c.Idx)
			}
			walkTy(c.Ty)
		case ConstValue:
			walkTy(c.Ty)
		case ExistentialConstVar:
			walkTy(c.Ty)
		}
	}
	walkArg = func(a Argument) {
		switch a := a.(type) {
		case TypeArg:
			walkTy(a.Ty)
		case ConstArg:
			walkConst(a.C)
		}
	}
	w.ty = walkTy
	w.arg = walkArg
	return w
}
