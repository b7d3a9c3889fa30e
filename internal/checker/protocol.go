package checker

import (
	"fmt"

	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/typesystem"
)

// ImplProof is the evidence that a type satisfies a protocol.
type ImplProof interface {
	implProof()
}

// AssumptionProof proves satisfaction through a declared parameter bound:
// the receiver is a bound variable and exactly one of its assumptions
// matched. Proto carries the assumption rewritten under the unifier.
type AssumptionProof struct {
	Var   typesystem.BoundTypeVar
	Proto typesystem.ProtocolInst
}

// ConcreteProof proves satisfaction by a concrete type's instance
// functions. Proto carries the protocol with every argument solved.
type ConcreteProof struct {
	Proto   typesystem.ProtocolInst
	Members []MemberImpl
}

// MemberImpl records the implementation of one member: the definition
// that implements it and the arguments solving that definition's generic
// parameters, expressed in terms of the member's own parameters.
type MemberImpl struct {
	Member string
	Def    ids.DefId
	Inst   typesystem.Inst
}

func (*AssumptionProof) implProof() {}
func (*ConcreteProof) implProof()   {}

// CheckProtocol decides whether ty satisfies proto. Bound variables
// satisfy a protocol only through their declared assumptions; concrete
// types satisfy it by implementing every member. The returned
// substitution solves any unsolved variables appearing in proto's
// arguments. Failures are hard: no fallback paths, no arbitrary picks
// between ambiguous assumptions.
func (e *Engine) CheckProtocol(ty typesystem.Type, proto typesystem.ProtocolInst) (ImplProof, typesystem.Subst, error) {
	if v, ok := ty.(typesystem.BoundTypeVar); ok {
		return e.checkAssumption(v, proto)
	}
	key, cacheable := proofKey(ty, proto)
	if cacheable {
		if proof, ok := e.proofs.Get(key); ok {
			return proof, typesystem.Subst{}, nil
		}
	}
	proof, residual, err := e.checkConcrete(ty, proto)
	if err != nil {
		return nil, nil, err
	}
	if cacheable {
		e.proofs.Add(key, proof)
	}
	return proof, residual, nil
}

// proofKey renders a cache key for a satisfaction check. Only fully
// ground checks are cacheable: variables make the outcome depend on
// context the key cannot capture.
func proofKey(ty typesystem.Type, proto typesystem.ProtocolInst) (string, bool) {
	if len(typesystem.UnsolvedVars(ty)) > 0 || len(typesystem.BoundVarRefs(ty)) > 0 {
		return "", false
	}
	if len(typesystem.UnsolvedInArgs(proto.Args)) > 0 || len(typesystem.BoundRefsInArgs(proto.Args)) > 0 {
		return "", false
	}
	return ty.String() + " : " + proto.String(), true
}

func (e *Engine) checkAssumption(v typesystem.BoundTypeVar, proto typesystem.ProtocolInst) (ImplProof, typesystem.Subst, error) {
	var solutions []typesystem.Subst
	for _, b := range v.Bounds {
		if b.Def != proto.Def {
			continue
		}
		s, err := typesystem.UnifyInsts(b.Args, proto.Args, typesystem.Subst{})
		if err != nil {
			continue
		}
		solutions = append(solutions, s)
	}
	switch len(solutions) {
	case 0:
		return nil, nil, diag.Newf(diag.ErrP005, v.Name, "no assumption on %s matches %s", v.Name, proto)
	case 1:
	default:
		return nil, nil, diag.Newf(diag.ErrP006, v.Name,
			"%d assumptions on %s match %s; the use is ambiguous", len(solutions), v.Name, proto)
	}
	s := solutions[0]
	resolved := typesystem.ProtocolInst{
		Def:  proto.Def,
		Name: proto.Name,
		Args: typesystem.ApplySubstInst(proto.Args, s),
	}
	residual := s.Restrict(typesystem.UnsolvedInArgs(proto.Args))
	return &AssumptionProof{Var: v, Proto: resolved}, residual, nil
}

func (e *Engine) checkConcrete(ty typesystem.Type, proto typesystem.ProtocolInst) (*ConcreteProof, typesystem.Subst, error) {
	checked, err := e.GetChecked(proto.Def, nil)
	if err != nil {
		return nil, nil, err
	}
	def, ok := checked.(*CheckedProtocolDef)
	if !ok {
		return nil, nil, diag.Internalf("definition %q is not a protocol", checked.DefName())
	}
	s := typesystem.Subst{}
	members := make([]MemberImpl, 0, len(def.Members()))
	for _, m := range def.Members() {
		pin, err := memberPin(m.Sig, ty, proto.Args)
		if err != nil {
			return nil, nil, err
		}
		pinned := m.Sig.InstantiatePartial(pin)

		implId, ok := e.InstanceFunc(ty, m.Name)
		if !ok {
			return nil, nil, diag.Newf(diag.ErrP001, proto.Name,
				"type %s does not implement %s: missing member %q", ty, proto.Name, m.Name)
		}
		parsed, err := e.GetParsed(implId)
		if err != nil {
			return nil, nil, err
		}
		sigDef, ok := parsed.(SignatureDef)
		if !ok {
			return nil, nil, diag.Internalf("instance function %q of %s has no signature", m.Name, ty)
		}
		opened, fresh := sigDef.Signature().Unquantified()

		s2, err := unifySignatures(pinned, opened, s)
		if err != nil {
			return nil, nil, diag.Newf(diag.ErrP002, proto.Name,
				"member %q of %s does not match the protocol: %v", m.Name, ty, err)
		}
		s = s2

		// The implementation must be pinned down entirely by matching
		// the member's signature; its own fresh variables may not leak.
		solved := typesystem.ApplySubstInst(fresh, s)
		freshIds := make(map[uint64]bool)
		for _, id := range typesystem.UnsolvedInArgs(fresh) {
			freshIds[id] = true
		}
		for _, id := range typesystem.UnsolvedInArgs(solved) {
			if freshIds[id] {
				return nil, nil, diag.Newf(diag.ErrP003, proto.Name,
					"cannot determine how %s instantiates member %q", ty, m.Name)
			}
		}
		members = append(members, MemberImpl{Member: m.Name, Def: implId, Inst: solved})
	}

	resolvedArgs := typesystem.ApplySubstInst(proto.Args, s)
	if unsolved := typesystem.UnsolvedInArgs(resolvedArgs); len(unsolved) > 0 {
		return nil, nil, diag.Newf(diag.ErrP004, proto.Name,
			"checking %s left %d parameter(s) of %s undetermined", ty, len(unsolved), proto.Name)
	}
	for i := range members {
		members[i].Inst = typesystem.ApplySubstInst(members[i].Inst, s)
	}
	residual := s.Restrict(typesystem.UnsolvedInArgs(proto.Args))
	resolved := typesystem.ProtocolInst{Def: proto.Def, Name: proto.Name, Args: resolvedArgs}
	return &ConcreteProof{Proto: resolved, Members: members}, residual, nil
}

// memberPin builds the partial instantiation that specializes a member
// schema for a receiver: the self slot is pinned to the receiver and
// every protocol parameter slot is pinned to the corresponding requested
// argument, located by matching the identity arguments of the self
// bound. The member's own parameters stay open.
func memberPin(msig *typesystem.FuncType, self typesystem.Type, protoArgs []typesystem.Argument) (typesystem.Inst, error) {
	pin := make(typesystem.Inst, len(msig.Params))
	pin[0] = typesystem.TypeArg{Ty: self}
	selfParam, ok := msig.Params[0].(typesystem.TypeParam)
	if !ok || len(selfParam.Bounds) == 0 {
		return nil, diag.Internalf("member schema lacks a bounded self parameter")
	}
	bound := selfParam.Bounds[0]
	if len(bound.Args) != len(protoArgs) {
		return nil, diag.Internalf("self bound has %d arguments, request has %d", len(bound.Args), len(protoArgs))
	}
	for j, a := range bound.Args {
		idx := -1
		switch arg := a.(type) {
		case typesystem.TypeArg:
			if v, ok := arg.Ty.(typesystem.BoundTypeVar); ok {
				idx = v.Idx
			}
		case typesystem.ConstArg:
			if v, ok := arg.C.(typesystem.BoundConstVar); ok {
				idx = v.Idx
			}
		}
		if idx <= 0 || idx >= len(pin) {
			return nil, diag.Internalf("self bound argument %d does not pin a parameter slot", j)
		}
		pin[idx] = protoArgs[j]
	}
	return pin, nil
}

// unifySignatures matches a pinned member schema against an opened
// implementation signature row by row: input count, ownership flags,
// input types, output type. The member's surviving parameters are rigid;
// the implementation side carries the existentials to solve.
func unifySignatures(want, got *typesystem.FuncType, s typesystem.Subst) (typesystem.Subst, error) {
	if len(want.Inputs) != len(got.Inputs) {
		return nil, fmt.Errorf("expects %d inputs, implementation has %d", len(want.Inputs), len(got.Inputs))
	}
	for i := range want.Inputs {
		if want.Inputs[i].Owned != got.Inputs[i].Owned {
			return nil, fmt.Errorf("input %d ownership differs", i)
		}
		var err error
		s, err = typesystem.UnifyTypes(want.Inputs[i].Ty, got.Inputs[i].Ty, s)
		if err != nil {
			return nil, err
		}
	}
	return typesystem.UnifyTypes(want.Output, got.Output, s)
}
