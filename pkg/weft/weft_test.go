package weft_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/loom"
	"github.com/weftlang/weft/pkg/weft"
)

func newSession(t *testing.T) *weft.Session {
	t.Helper()
	s, err := weft.NewSession()
	require.NoError(t, err)
	return s
}

// decode round-trips a compiled program through its binary envelope.
func decode(t *testing.T, p *weft.Program) *loom.Envelope {
	t.Helper()
	env, err := loom.DecodeEnvelope(p.Envelope())
	require.NoError(t, err)
	return env
}

func opCount(env *loom.Envelope, op string) int {
	n := 0
	for _, rec := range env.Nodes {
		if rec.Op == op {
			n++
		}
	}
	return n
}

// funcNames lists the labels of every function definition in the graph.
func funcNames(env *loom.Envelope) []string {
	var names []string
	for _, rec := range env.Nodes {
		if rec.Op == "core.func_defn" {
			names = append(names, rec.Label)
		}
	}
	return names
}

func extensionNames(p *weft.Program) []string {
	reqs := p.Extensions()
	names := make([]string, len(reqs))
	for i, r := range reqs {
		names[i] = r.Name
	}
	return names
}

func TestCompileBellPair(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name:    "bell",
		Returns: weft.TupleTy(weft.Named("bool"), weft.Named("bool")),
		Body: []weft.Stmt{
			weft.Let("q0", weft.Call("qalloc")),
			weft.Let("q1", weft.Call("qalloc")),
			weft.Do(weft.Call("h", weft.Name("q0"))),
			weft.Do(weft.Call("cx", weft.Name("q0"), weft.Name("q1"))),
			weft.Return(weft.Tuple(
				weft.Call("measure", weft.Name("q0")),
				weft.Call("measure", weft.Name("q1")))),
		},
	}))

	p, err := s.Compile("bell")
	require.NoError(t, err)

	env := decode(t, p)
	assert.Equal(t, uint64(1), env.Version)
	assert.Equal(t, 2, opCount(env, "quantum.qalloc"))
	assert.Equal(t, 1, opCount(env, "quantum.h"))
	assert.Equal(t, 1, opCount(env, "quantum.cx"))
	assert.Equal(t, 2, opCount(env, "quantum.measure_free"))
	assert.Contains(t, funcNames(env), "bell")
	assert.NotEmpty(t, env.Order, "allocations and measurements must be kept in program order")

	for _, rec := range env.Nodes {
		if rec.Op == "core.func_defn" && rec.Label == "bell" {
			assert.Contains(t, rec.Meta, loom.MetaEntry{Key: "core.entrypoint", Value: "true"})
		}
	}

	require.Len(t, p.Extensions(), 1)
	assert.Equal(t, weft.Requirement{Name: "quantum", Constraint: "~0.3"}, p.Extensions()[0])

	gen, ok := p.Metadata("core.generator")
	require.True(t, ok)
	assert.Contains(t, gen, "weftc")
}

func TestGenericIdentityStaysPolymorphic(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name:    "identity",
		Params:  []weft.ParamSpec{weft.TypeParam("T")},
		Inputs:  []weft.InputSpec{weft.InOwned("x", weft.Named("T"))},
		Returns: weft.Named("T"),
		Body:    []weft.Stmt{weft.Return(weft.Name("x"))},
	}))
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name: "main",
		Body: []weft.Stmt{
			weft.Do(weft.CallT("result_int", []weft.TypeArg{weft.ArgStr("i")},
				weft.Call("identity", weft.Int(1)))),
			weft.Do(weft.CallT("result_bool", []weft.TypeArg{weft.ArgStr("b")},
				weft.Call("identity", weft.Bool(true)))),
			weft.Let("p", weft.Call("identity",
				weft.Tuple(weft.Int(2), weft.Bool(false)))),
			weft.Do(weft.CallT("result_bool", []weft.TypeArg{weft.ArgStr("pb")},
				weft.Item(weft.Name("p"), 1))),
		},
	}))

	p, err := s.Compile("main")
	require.NoError(t, err)

	env := decode(t, p)
	copies := 0
	for _, n := range funcNames(env) {
		if n == "identity" {
			copies++
		}
	}
	assert.Equal(t, 1, copies, "an unbounded parameter compiles once, with call-site type arguments")
	assert.Equal(t, 3, opCount(env, "core.call"))
	assert.Equal(t, 1, opCount(env, "result.result_int"))
	assert.Equal(t, 2, opCount(env, "result.result_bool"))
	assert.Equal(t, 1, opCount(env, "core.make_tuple"), "the tuple argument is built once")
	assert.Equal(t, 1, opCount(env, "core.unpack_tuple"), "projecting the returned tuple unpacks it")
	assert.Equal(t, []string{"arith", "result"}, extensionNames(p))
}

func TestProtocolBoundedSpecialization(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.DefineProtocol(weft.ProtocolSpec{
		Name: "Doubler",
		Members: []weft.FuncSpec{{
			Name:    "double",
			Inputs:  []weft.InputSpec{weft.SelfOwned()},
			Returns: weft.Named("Self"),
		}},
	}))
	require.NoError(t, s.DefineMethod("int", weft.FuncSpec{
		Name:    "double",
		Inputs:  []weft.InputSpec{weft.SelfOwned()},
		Returns: weft.Named("int"),
		Body: []weft.Stmt{
			weft.Return(weft.Call("iadd", weft.Name("self"), weft.Name("self"))),
		},
	}))
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name:    "quadruple",
		Params:  []weft.ParamSpec{weft.TypeParam("T", weft.Named("Doubler"))},
		Inputs:  []weft.InputSpec{weft.InOwned("x", weft.Named("T"))},
		Returns: weft.Named("T"),
		Body: []weft.Stmt{
			weft.Return(weft.Method(weft.Method(weft.Name("x"), "double"), "double")),
		},
	}))
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name: "main",
		Body: []weft.Stmt{
			weft.Do(weft.CallT("result_int", []weft.TypeArg{weft.ArgStr("out")},
				weft.Call("quadruple", weft.Int(3)))),
		},
	}))

	p, err := s.Compile("main")
	require.NoError(t, err)

	names := funcNames(decode(t, p))
	assert.Contains(t, names, "quadruple[int]", "a bounded parameter forces a ground specialization")
	assert.Contains(t, names, "int.double")
	assert.NotContains(t, names, "quadruple")
}

func TestEntryPointMustBeGround(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name:    "identity",
		Params:  []weft.ParamSpec{weft.TypeParam("T")},
		Inputs:  []weft.InputSpec{weft.InOwned("x", weft.Named("T"))},
		Returns: weft.Named("T"),
		Body:    []weft.Stmt{weft.Return(weft.Name("x"))},
	}))

	err := s.Check("identity")
	require.Error(t, err)
	assert.Equal(t, diag.ErrE001, diag.CodeOf(err))

	_, err = s.Compile("identity")
	require.Error(t, err)
	assert.Equal(t, diag.ErrE001, diag.CodeOf(err))
}

func TestBorrowedArgumentNeedsPlace(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name: "bad",
		Body: []weft.Stmt{
			weft.Do(weft.Call("h", weft.Call("qalloc"))),
		},
	}))

	err := s.Check("bad")
	require.Error(t, err)
	assert.Equal(t, diag.ErrT012, diag.CodeOf(err))
}

func TestConditionalLowersToCases(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name:    "choose",
		Returns: weft.Named("int"),
		Body: []weft.Stmt{
			weft.Let("q", weft.Call("qalloc")),
			weft.Do(weft.Call("h", weft.Name("q"))),
			weft.Return(weft.If(weft.Call("measure", weft.Name("q")),
				weft.Int(1),
				weft.Int(2))),
		},
	}))

	p, err := s.Compile("choose")
	require.NoError(t, err)

	env := decode(t, p)
	require.Equal(t, 1, opCount(env, "core.conditional"))
	assert.Equal(t, 2, opCount(env, "core.case"))

	cond := -1
	for _, rec := range env.Nodes {
		if rec.Op == "core.conditional" {
			cond = rec.Id
		}
	}
	for _, rec := range env.Nodes {
		if rec.Op == "core.case" {
			assert.Equal(t, cond, rec.Parent, "cases hang off the conditional")
		}
	}
}

func TestStructConstructionAndMethods(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.DefineStruct(weft.StructSpec{
		Name: "Point",
		Fields: []weft.FieldSpec{
			{Name: "x", Ty: weft.Named("int")},
			{Name: "y", Ty: weft.Named("int")},
		},
		Methods: []weft.FuncSpec{{
			Name:    "total",
			Inputs:  []weft.InputSpec{weft.Self()},
			Returns: weft.Named("int"),
			Body: []weft.Stmt{
				weft.Return(weft.Call("iadd",
					weft.Field(weft.Name("self"), "x"),
					weft.Field(weft.Name("self"), "y"))),
			},
		}},
	}))
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name: "main",
		Body: []weft.Stmt{
			weft.Let("p", weft.Call("Point", weft.Int(3), weft.Int(4))),
			weft.Do(weft.CallT("result_int", []weft.TypeArg{weft.ArgStr("total")},
				weft.Method(weft.Name("p"), "total"))),
		},
	}))

	p, err := s.Compile("main")
	require.NoError(t, err)

	env := decode(t, p)
	assert.Contains(t, funcNames(env), "Point.total")
	assert.GreaterOrEqual(t, opCount(env, "core.make_tuple"), 1,
		"the generated constructor packs the fields")
}

func TestEnumVariantsLowerToTags(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.DefineEnum(weft.EnumSpec{
		Name: "Coin",
		Variants: []weft.VariantSpec{
			{Name: "heads"},
			{Name: "tails", Payloads: []weft.TypeExpr{weft.Named("int")}},
		},
	}))
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name:    "flip",
		Returns: weft.TupleTy(weft.Named("Coin"), weft.Named("Coin")),
		Body: []weft.Stmt{
			weft.Let("a", weft.Method(weft.Name("Coin"), "heads")),
			weft.Let("b", weft.Method(weft.Name("Coin"), "tails", weft.Int(7))),
			weft.Return(weft.Tuple(weft.Name("a"), weft.Name("b"))),
		},
	}))

	p, err := s.Compile("flip")
	require.NoError(t, err)
	assert.Equal(t, 2, opCount(decode(t, p), "core.tag"))
}

func TestExternalDeclarationKeepsCallOrder(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name:   "oracle",
		Inputs: []weft.InputSpec{weft.In("q", weft.Named("qubit"))},
	}))
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name: "main",
		Body: []weft.Stmt{
			weft.Let("q", weft.Call("qalloc")),
			weft.Do(weft.Call("oracle", weft.Name("q"))),
			weft.Do(weft.Call("qfree", weft.Name("q"))),
		},
	}))

	p, err := s.Compile("main")
	require.NoError(t, err)

	env := decode(t, p)
	assert.Equal(t, 1, opCount(env, "core.func_decl"))

	var qalloc, call, qfree int
	for _, rec := range env.Nodes {
		switch rec.Op {
		case "quantum.qalloc":
			qalloc = rec.Id
		case "core.call":
			call = rec.Id
		case "quantum.qfree":
			qfree = rec.Id
		}
	}
	assert.Contains(t, env.Order, loom.OrderRecord{Before: qalloc, After: call},
		"a call may observe anything, so it stays after the allocation")
	assert.Contains(t, env.Order, loom.OrderRecord{Before: call, After: qfree})
}

func TestUnusedArrayIsDropped(t *testing.T) {
	s := newSession(t)
	require.NoError(t, s.DefineFunc(weft.FuncSpec{
		Name: "main",
		Body: []weft.Stmt{
			weft.Let("xs", weft.CallT("array_repeat",
				[]weft.TypeArg{weft.ArgTy(weft.Named("int")), weft.ArgNat(4)},
				weft.Int(0))),
		},
	}))

	p, err := s.Compile("main")
	require.NoError(t, err)

	env := decode(t, p)
	assert.Equal(t, 1, opCount(env, "collections.repeat"))
	assert.Equal(t, 1, opCount(env, "weft.drop"), "the unconsumed array is reconciled with a drop")
	assert.Equal(t, []string{"arith", "collections", "weft"}, extensionNames(p))
}

func TestDuplicateMethodRejected(t *testing.T) {
	s := newSession(t)
	double := weft.FuncSpec{
		Name:    "double",
		Inputs:  []weft.InputSpec{weft.SelfOwned()},
		Returns: weft.Named("int"),
		Body: []weft.Stmt{
			weft.Return(weft.Call("iadd", weft.Name("self"), weft.Name("self"))),
		},
	}
	require.NoError(t, s.DefineMethod("int", double))

	err := s.DefineMethod("int", double)
	require.Error(t, err)
	assert.Equal(t, diag.ErrD010, diag.CodeOf(err))
}

func TestDuplicateDefinitionRejected(t *testing.T) {
	s := newSession(t)
	spec := weft.FuncSpec{Name: "noop", Body: []weft.Stmt{weft.Return(nil)}}
	require.NoError(t, s.DefineFunc(spec))

	err := s.DefineFunc(spec)
	require.Error(t, err)
	assert.Equal(t, diag.ErrD011, diag.CodeOf(err))
}

func TestUnknownEntryPoint(t *testing.T) {
	s := newSession(t)
	err := s.Check("missing")
	require.Error(t, err)
	assert.Equal(t, diag.ErrT001, diag.CodeOf(err))

	_, err = s.Compile("missing")
	require.Error(t, err)
	assert.Equal(t, diag.ErrT001, diag.CodeOf(err))
}
