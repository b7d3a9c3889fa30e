package compiler

import (
	"sort"

	"go.uber.org/zap"

	"github.com/weftlang/weft/internal/checker"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/loom"
	"github.com/weftlang/weft/internal/typesystem"
)

// lowering is the per-region state of one body's emission: the builder
// for the region's nodes and the container tracking which wire carries
// each live place. Conditional arms get their own lowering over a fresh
// container.
type lowering struct {
	c  *Context
	b  *loom.DfBuilder
	df *DFContainer
}

// lowerBody emits one queued function body. The item's monomorphization
// is active for the duration: every type reaching the graph passes
// through it. An order tracker observes the emitted nodes and keeps side
// effects in program order.
func (c *Context) lowerBody(item bodyWork) error {
	c.mono = item.cd.Mono
	tracker := trackEffects(c.mb.Graph(), c.reg)
	defer func() {
		tracker.restore()
		c.mono = nil
	}()

	c.log.Debug("lowering body", zap.String("name", item.cd.Name))

	lw := &lowering{c: c, b: item.b}
	lw.df = newDFContainer(lw)

	names := item.fn.InputNames()
	ins := item.b.Inputs()
	if len(names) != len(ins) {
		return diag.Internalf("%q declares %d inputs, its region provides %d",
			item.cd.Name, len(names), len(ins))
	}
	for i, name := range names {
		lw.df.Bind(name, ins[i])
	}

	for _, s := range item.fn.Body() {
		if err := lw.stmt(s); err != nil {
			return err
		}
	}
	if err := lw.finishOutputs(item); err != nil {
		return err
	}
	tracker.finish()
	return nil
}

// finishOutputs wires the region's Output node: the return value when the
// body produces one, then every borrowed linear input threading back out.
func (lw *lowering) finishOutputs(item bodyWork) error {
	srcSig := item.cd.SrcSig
	var outs []loom.Wire
	if _, none := srcSig.Output.(typesystem.NoneType); !none {
		w, ok := lw.df.Unbind(retKey)
		if !ok {
			return diag.Internalf("%q produces %s but its body never returns", item.cd.Name, srcSig.Output)
		}
		outs = append(outs, w)
	}
	names := item.fn.InputNames()
	declared := item.fn.Signature()
	for i, in := range srcSig.Inputs {
		if in.Owned || !typesystem.Linear(in.Ty) {
			continue
		}
		w, err := lw.df.Get(VarPlace{Name: names[i], Ty: declared.Inputs[i].Ty})
		if err != nil {
			return err
		}
		outs = append(outs, w)
	}
	item.b.SetOutputs(outs...)
	return nil
}

func (lw *lowering) stmt(s checker.TStmt) error {
	switch st := s.(type) {
	case *checker.TAssign:
		w, err := lw.expr(st.Value)
		if err != nil {
			return err
		}
		return lw.df.Set(VarPlace{Name: st.Name, Ty: st.Value.Ty()}, w)
	case *checker.TExprStmt:
		_, err := lw.expr(st.X)
		return err
	case *checker.TReturn:
		if st.Value == nil {
			return nil
		}
		w, err := lw.expr(st.Value)
		if err != nil {
			return err
		}
		lw.df.Bind(retKey, w)
		return nil
	default:
		return diag.Internalf("unhandled statement %T", s)
	}
}

func (lw *lowering) expr(e checker.TExpr) (loom.Wire, error) {
	switch x := e.(type) {
	case *checker.TConst:
		return lw.constant(x)
	case *checker.TUnit:
		return lw.unit(), nil
	case *checker.TName:
		return lw.df.Get(VarPlace{Name: x.Name, Ty: x.Type})
	case *checker.TTuple:
		return lw.tuple(x)
	case *checker.TField:
		if p := placeOf(x); p != nil {
			return lw.df.Get(p)
		}
		return lw.project(x.X, x.Index)
	case *checker.TTupleIndex:
		if p := placeOf(x); p != nil {
			return lw.df.Get(p)
		}
		return lw.project(x.X, x.Index)
	case *checker.TCond:
		return lw.cond(x)
	case *checker.TFunc:
		return lw.funcValue(x)
	case *checker.TCall:
		return lw.call(x)
	case *checker.TCallMember:
		return lw.memberCall(x)
	case *checker.TCallIndirect:
		return lw.indirectCall(x)
	default:
		return loom.Wire{}, diag.Internalf("unhandled expression %T", e)
	}
}

func (lw *lowering) exprs(es []checker.TExpr) ([]loom.Wire, error) {
	ws := make([]loom.Wire, len(es))
	for i, e := range es {
		w, err := lw.expr(e)
		if err != nil {
			return nil, err
		}
		ws[i] = w
	}
	return ws, nil
}

// unit materializes the empty tuple.
func (lw *lowering) unit() loom.Wire {
	n := lw.b.Add(&loom.MakeTuple{})
	return loom.Wire{Node: n, Index: 0}
}

func (lw *lowering) constant(x *checker.TConst) (loom.Wire, error) {
	ty, err := lw.c.lowerType(x.C.Ty)
	if err != nil {
		return loom.Wire{}, err
	}
	val, err := constVal(x.C.Val)
	if err != nil {
		return loom.Wire{}, err
	}
	n := lw.b.Add(&loom.LoadConst{Ty: ty, Value: val})
	return loom.Wire{Node: n, Index: 0}, nil
}

func constVal(p typesystem.ConstPayload) (loom.ConstVal, error) {
	switch v := p.(type) {
	case typesystem.NatPayload:
		return loom.NatVal{V: v.V}, nil
	case typesystem.IntPayload:
		return loom.IntVal{V: v.V}, nil
	case typesystem.FloatPayload:
		return loom.FloatVal{V: v.F}, nil
	case typesystem.BoolPayload:
		return loom.BoolVal{B: v.B}, nil
	case typesystem.StringPayload:
		return loom.StringVal{S: v.S}, nil
	default:
		return nil, diag.Internalf("constant payload %T has no graph form", p)
	}
}

func (lw *lowering) tuple(x *checker.TTuple) (loom.Wire, error) {
	ws, err := lw.exprs(x.Elems)
	if err != nil {
		return loom.Wire{}, err
	}
	row := make([]loom.Type, len(x.Elems))
	for i, e := range x.Elems {
		t, err := lw.c.lowerType(e.Ty())
		if err != nil {
			return loom.Wire{}, err
		}
		row[i] = t
	}
	n := lw.b.Add(&loom.MakeTuple{Types: row}, ws...)
	return loom.Wire{Node: n, Index: 0}, nil
}

// project unpacks a non-place composite and selects one element. Unused
// linear siblings are left dangling for the drop pass.
func (lw *lowering) project(x checker.TExpr, index int) (loom.Wire, error) {
	w, err := lw.expr(x)
	if err != nil {
		return loom.Wire{}, err
	}
	row, err := lw.lowerRow(x.Ty())
	if err != nil {
		return loom.Wire{}, err
	}
	n := lw.b.Add(&loom.UnpackTuple{Types: row}, w)
	return loom.Wire{Node: n, Index: index}, nil
}

// lowerRow lowers a struct or tuple type to its component row.
func (lw *lowering) lowerRow(t typesystem.Type) ([]loom.Type, error) {
	var elems []typesystem.Type
	switch ty := t.(type) {
	case *typesystem.StructType:
		for _, f := range ty.FieldTypes() {
			elems = append(elems, f.Ty)
		}
	case *typesystem.TupleType:
		elems = ty.Elements
	default:
		return nil, diag.Internalf("type %s has no component row", t)
	}
	row := make([]loom.Type, len(elems))
	for i, e := range elems {
		lt, err := lw.c.lowerType(e)
		if err != nil {
			return nil, err
		}
		row[i] = lt
	}
	return row, nil
}

// placeOf maps a place expression to its Place, nil when the expression
// is not one.
func placeOf(e checker.TExpr) Place {
	switch x := e.(type) {
	case *checker.TName:
		return VarPlace{Name: x.Name, Ty: x.Type}
	case *checker.TField:
		parent := placeOf(x.X)
		if parent == nil {
			return nil
		}
		return FieldPlace{Parent: parent, Field: x.Field, Index: x.Index, Ty: x.Type}
	case *checker.TTupleIndex:
		parent := placeOf(x.X)
		if parent == nil {
			return nil
		}
		return IndexPlace{Parent: parent, Index: x.Index, Ty: x.Type}
	default:
		return nil
	}
}

func (lw *lowering) call(tc *checker.TCall) (loom.Wire, error) {
	parsed, err := lw.c.eng.GetParsed(tc.Def)
	if err != nil {
		return loom.Wire{}, err
	}
	args, err := lw.exprs(tc.Args)
	if err != nil {
		return loom.Wire{}, err
	}
	if custom, ok := parsed.(*checker.CustomFunctionDef); ok {
		sig := lw.c.monoSig(tc.Sig)
		outs, err := custom.Lower(lw.c.callCtx(lw.b, sig, lw.c.monoInst(tc.Inst)), args)
		if err != nil {
			return loom.Wire{}, err
		}
		return lw.callResults(sig, tc.Args, outs)
	}
	def, ok := parsed.(checker.SignatureDef)
	if !ok {
		return loom.Wire{}, diag.Internalf("%s %q is not callable", parsed.Description(), tc.Name)
	}
	cd, targs, callSig, err := lw.c.compiledCallee(def, lw.c.monoInst(tc.Inst))
	if err != nil {
		return loom.Wire{}, err
	}
	n := lw.b.Call(cd.Node, callSig, targs, args...)
	return lw.callResults(cd.SrcSig, tc.Args, portRange(n, len(callSig.Outputs)))
}

func (lw *lowering) memberCall(tcm *checker.TCallMember) (loom.Wire, error) {
	recvTy := lw.c.monoType(tcm.Args[0].Ty())
	if len(typesystem.UnsolvedVars(recvTy)) > 0 || len(typesystem.BoundVarRefs(recvTy)) > 0 {
		return loom.Wire{}, diag.Internalf("receiver of %q is not concrete at lowering: %s", tcm.Member, recvTy)
	}
	proof, _, err := lw.c.eng.CheckProtocol(recvTy, lw.c.monoProto(tcm.Proto))
	if err != nil {
		return loom.Wire{}, err
	}
	cp, ok := proof.(*checker.ConcreteProof)
	if !ok {
		return loom.Wire{}, diag.Internalf("receiver %s of %q yields no concrete implementation", recvTy, tcm.Member)
	}
	var impl *checker.MemberImpl
	for i := range cp.Members {
		if cp.Members[i].Member == tcm.Member {
			impl = &cp.Members[i]
			break
		}
	}
	if impl == nil {
		return loom.Wire{}, diag.Internalf("member %q of %s vanished between checking and lowering", tcm.Member, recvTy)
	}
	implInst := typesystem.InstantiateInst(impl.Inst, lw.c.monoInst(tcm.OwnInst))

	args, err := lw.exprs(tcm.Args)
	if err != nil {
		return loom.Wire{}, err
	}
	cd, targs, callSig, err := lw.c.BuildCompiledInstanceFunc(recvTy, tcm.Member, implInst)
	if err != nil {
		return loom.Wire{}, err
	}
	if cd == nil {
		return loom.Wire{}, diag.Internalf("type %s lost member %q between checking and lowering", recvTy, tcm.Member)
	}
	if cd.Custom != nil {
		sig := lw.c.monoSig(tcm.Sig)
		outs, err := cd.Custom.Lower(lw.c.callCtx(lw.b, sig, implInst), args)
		if err != nil {
			return loom.Wire{}, err
		}
		return lw.callResults(sig, tcm.Args, outs)
	}
	n := lw.b.Call(cd.Node, callSig, targs, args...)
	return lw.callResults(cd.SrcSig, tcm.Args, portRange(n, len(callSig.Outputs)))
}

func (lw *lowering) indirectCall(tc *checker.TCallIndirect) (loom.Wire, error) {
	fn, err := lw.expr(tc.Fn)
	if err != nil {
		return loom.Wire{}, err
	}
	args, err := lw.exprs(tc.Args)
	if err != nil {
		return loom.Wire{}, err
	}
	lsig, err := typesystem.LowerFuncType(tc.Sig, lw.c)
	if err != nil {
		return loom.Wire{}, err
	}
	ins := append([]loom.Wire{fn}, args...)
	n := lw.b.Add(&loom.CallIndirect{Signature: lsig}, ins...)
	return lw.callResults(tc.Sig, tc.Args, portRange(n, len(lsig.Outputs)))
}

// funcValue materializes a global definition as a first-class value.
func (lw *lowering) funcValue(tf *checker.TFunc) (loom.Wire, error) {
	parsed, err := lw.c.eng.GetParsed(tf.Def)
	if err != nil {
		return loom.Wire{}, err
	}
	if custom, ok := parsed.(*checker.CustomFunctionDef); ok {
		node, sig, err := lw.c.DeclareGlobalFunc(custom, lw.c.monoInst(tf.Inst))
		if err != nil {
			return loom.Wire{}, err
		}
		return lw.b.LoadFunc(node, sig, nil), nil
	}
	cd, err := lw.c.BuildCompiledDef(tf.Def, lw.c.monoInst(tf.Inst))
	if err != nil {
		return loom.Wire{}, err
	}
	return lw.b.LoadFunc(cd.Node, cd.Sig, nil), nil
}

// callResults distributes a call's output row: the value result first,
// then one implicit return per borrowed linear input, each written back
// to the place its argument was read from. sig must be the signature
// whose lowering produced the row.
func (lw *lowering) callResults(sig *typesystem.FuncType, argExprs []checker.TExpr, outs []loom.Wire) (loom.Wire, error) {
	idx := 0
	var result loom.Wire
	if _, none := sig.Output.(typesystem.NoneType); none {
		result = lw.unit()
	} else {
		if idx >= len(outs) {
			return loom.Wire{}, diag.Internalf("call produced %d outputs, the value result is missing", len(outs))
		}
		result = outs[idx]
		idx++
	}
	for i, in := range sig.Inputs {
		if in.Owned || !typesystem.Linear(in.Ty) {
			continue
		}
		if idx >= len(outs) {
			return loom.Wire{}, diag.Internalf("call produced %d outputs, the implicit return of input %d is missing", len(outs), i)
		}
		w := outs[idx]
		idx++
		if p := placeOf(argExprs[i]); p != nil {
			if err := lw.df.Set(p, w); err != nil {
				return loom.Wire{}, err
			}
		}
	}
	if idx != len(outs) {
		return loom.Wire{}, diag.Internalf("call produced %d outputs, only %d were consumed", len(outs), idx)
	}
	return result, nil
}

// cond lowers a value conditional. Free variables of the arms enter the
// conditional as extra inputs and each arm lowers against a fresh
// container over them, so arm-local consumption stays inside its case.
func (lw *lowering) cond(tc *checker.TCond) (loom.Wire, error) {
	condW, err := lw.expr(tc.Cond)
	if err != nil {
		return loom.Wire{}, err
	}
	free := freeVars(tc.Then, tc.Else)
	others := make([]loom.Wire, len(free))
	for i, fv := range free {
		w, err := lw.df.Get(VarPlace{Name: fv.name, Ty: fv.ty})
		if err != nil {
			return loom.Wire{}, err
		}
		others[i] = w
	}
	outTy, err := lw.c.lowerType(tc.Type)
	if err != nil {
		return loom.Wire{}, err
	}
	cb := lw.b.Cond(condW, loom.Bool(), others, []loom.Type{outTy})
	// Tag 0 is false, so the else arm lowers first.
	for _, arm := range []checker.TExpr{tc.Else, tc.Then} {
		armB := cb.AddCase()
		armLw := &lowering{c: lw.c, b: armB}
		armLw.df = newDFContainer(armLw)
		ins := armB.Inputs()
		// Bool payload rows are empty; case inputs start at the free
		// variables.
		for i, fv := range free {
			armLw.df.Bind(fv.name, ins[i])
		}
		w, err := armLw.expr(arm)
		if err != nil {
			return loom.Wire{}, err
		}
		armB.SetOutputs(w)
	}
	return cb.Out(0), nil
}

type freeVar struct {
	name string
	ty   typesystem.Type
}

// freeVars collects the locals the arm expressions read, sorted by name.
func freeVars(arms ...checker.TExpr) []freeVar {
	seen := make(map[string]typesystem.Type)
	for _, arm := range arms {
		collectNames(arm, seen)
	}
	out := make([]freeVar, 0, len(seen))
	for name, ty := range seen {
		out = append(out, freeVar{name: name, ty: ty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

func collectNames(e checker.TExpr, seen map[string]typesystem.Type) {
	switch x := e.(type) {
	case *checker.TName:
		if _, ok := seen[x.Name]; !ok {
			seen[x.Name] = x.Type
		}
	case *checker.TTuple:
		for _, el := range x.Elems {
			collectNames(el, seen)
		}
	case *checker.TField:
		collectNames(x.X, seen)
	case *checker.TTupleIndex:
		collectNames(x.X, seen)
	case *checker.TCall:
		for _, a := range x.Args {
			collectNames(a, seen)
		}
	case *checker.TCallMember:
		for _, a := range x.Args {
			collectNames(a, seen)
		}
	case *checker.TCallIndirect:
		collectNames(x.Fn, seen)
		for _, a := range x.Args {
			collectNames(a, seen)
		}
	case *checker.TCond:
		collectNames(x.Cond, seen)
		collectNames(x.Then, seen)
		collectNames(x.Else, seen)
	}
}

func portRange(n loom.Node, count int) []loom.Wire {
	ws := make([]loom.Wire, count)
	for i := range ws {
		ws[i] = loom.Wire{Node: n, Index: i}
	}
	return ws
}
