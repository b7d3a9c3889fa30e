package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlang/weft/internal/ast"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/typesystem"
)

func newTestEngine(t *testing.T) (*Engine, *Store) {
	t.Helper()
	store := NewStore()
	require.NoError(t, RegisterBuiltins(store))
	return NewEngine(store), store
}

func selfInput() *ast.InputDecl {
	return &ast.InputDecl{Name: "self"}
}

func named(name string) *ast.NamedType {
	return &ast.NamedType{Name: name}
}

// member declares one protocol member signature: a bodyless function
// over an unannotated self.
func member(name string, returns ast.TypeExpr, params ...*ast.ParamDecl) ast.ClassStmt {
	return &ast.MethodDecl{Fn: &ast.FuncDef{
		Name:    name,
		Params:  params,
		Inputs:  []*ast.InputDecl{selfInput()},
		Returns: returns,
	}}
}

func defineProtocol(t *testing.T, store *Store, cls *ast.ClassDef) ids.DefId {
	t.Helper()
	raw := &RawProtocolDef{Id: ids.FreshDefId(), Cls: cls}
	require.NoError(t, store.Register(raw))
	return raw.Id
}

// defineMethod attaches fn as an instance function of the named builtin
// type, the same way the embedding API does.
func defineMethod(t *testing.T, store *Store, typeName string, fn *ast.FuncDef) ids.DefId {
	t.Helper()
	owner, ok := store.Lookup(typeName)
	require.True(t, ok)
	if fn.Inputs[0].Ann == nil {
		fn.Inputs[0].Ann = named(typeName)
	}
	memberName := fn.Name
	fn.Name = typeName + "." + memberName
	raw := &RawFunctionDef{Id: ids.FreshDefId(), Fn: fn}
	require.NoError(t, store.Register(raw))
	require.NoError(t, store.RegisterImpl(owner, memberName, raw.Id))
	return raw.Id
}

func intType() typesystem.Type {
	return typesystem.NumericType{Kind: typesystem.IntKind}
}

func protoInst(id ids.DefId, name string, args ...typesystem.Argument) typesystem.ProtocolInst {
	return typesystem.ProtocolInst{Def: id, Name: name, Args: args}
}

func TestCheckProtocolAssumption(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name: "Printable",
		Body: []ast.ClassStmt{member("describe", named("str"))},
	})
	want := protoInst(id, "Printable")

	v := typesystem.BoundTypeVar{
		Idx: 0, Name: "T", Copyable: true,
		Bounds: []typesystem.ProtocolInst{want},
	}
	proof, residual, err := eng.CheckProtocol(v, want)
	require.NoError(t, err)
	assert.Empty(t, residual)

	ap, ok := proof.(*AssumptionProof)
	require.True(t, ok)
	assert.Equal(t, "T", ap.Var.Name)
	assert.Equal(t, id, ap.Proto.Def)
}

func TestCheckProtocolNoAssumption(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name: "Printable",
		Body: []ast.ClassStmt{member("describe", named("str"))},
	})

	v := typesystem.BoundTypeVar{Idx: 0, Name: "T", Copyable: true}
	_, _, err := eng.CheckProtocol(v, protoInst(id, "Printable"))
	require.Error(t, err)
	assert.Equal(t, diag.ErrP005, diag.CodeOf(err))
}

func TestCheckProtocolAssumptionSolvesArguments(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name:   "Conv",
		Params: []*ast.ParamDecl{{Name: "U", Kind: ast.TypeParamKind}},
		Body:   []ast.ClassStmt{member("conv", named("U"))},
	})

	v := typesystem.BoundTypeVar{
		Idx: 0, Name: "T", Copyable: true,
		Bounds: []typesystem.ProtocolInst{
			protoInst(id, "Conv", typesystem.TypeArg{Ty: intType()}),
		},
	}
	u := typesystem.FreshExistentialTypeVar("u")
	proof, residual, err := eng.CheckProtocol(v, protoInst(id, "Conv", typesystem.TypeArg{Ty: u}))
	require.NoError(t, err)

	ap, ok := proof.(*AssumptionProof)
	require.True(t, ok)
	require.Len(t, ap.Proto.Args, 1)
	assert.Equal(t, typesystem.TypeArg{Ty: intType()}, ap.Proto.Args[0])
	assert.Equal(t, typesystem.TypeArg{Ty: intType()}, residual[u.ID])
}

func TestCheckProtocolAmbiguousAssumption(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name:   "Conv",
		Params: []*ast.ParamDecl{{Name: "U", Kind: ast.TypeParamKind}},
		Body:   []ast.ClassStmt{member("conv", named("U"))},
	})

	v := typesystem.BoundTypeVar{
		Idx: 0, Name: "T", Copyable: true,
		Bounds: []typesystem.ProtocolInst{
			protoInst(id, "Conv", typesystem.TypeArg{Ty: intType()}),
			protoInst(id, "Conv", typesystem.TypeArg{Ty: typesystem.BoolType{}}),
		},
	}
	u := typesystem.FreshExistentialTypeVar("u")
	_, _, err := eng.CheckProtocol(v, protoInst(id, "Conv", typesystem.TypeArg{Ty: u}))
	require.Error(t, err)
	assert.Equal(t, diag.ErrP006, diag.CodeOf(err))
}

func TestCheckProtocolConcrete(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name: "Printable",
		Body: []ast.ClassStmt{member("describe", named("str"))},
	})
	implId := defineMethod(t, store, "int", &ast.FuncDef{
		Name:    "describe",
		Inputs:  []*ast.InputDecl{selfInput()},
		Returns: named("str"),
		Body:    []ast.Stmt{&ast.ReturnStmt{Value: &ast.StringLit{Value: "int"}}},
	})

	proof, residual, err := eng.CheckProtocol(intType(), protoInst(id, "Printable"))
	require.NoError(t, err)
	assert.Empty(t, residual)

	cp, ok := proof.(*ConcreteProof)
	require.True(t, ok)
	require.Len(t, cp.Members, 1)
	assert.Equal(t, "describe", cp.Members[0].Member)
	assert.Equal(t, implId, cp.Members[0].Def)
}

func TestCheckProtocolMissingMember(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name: "Printable",
		Body: []ast.ClassStmt{member("describe", named("str"))},
	})

	_, _, err := eng.CheckProtocol(intType(), protoInst(id, "Printable"))
	require.Error(t, err)
	assert.Equal(t, diag.ErrP001, diag.CodeOf(err))
	assert.Contains(t, err.Error(), "describe")
}

func TestCheckProtocolSignatureMismatch(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name: "Printable",
		Body: []ast.ClassStmt{member("describe", named("str"))},
	})
	defineMethod(t, store, "int", &ast.FuncDef{
		Name:    "describe",
		Inputs:  []*ast.InputDecl{selfInput()},
		Returns: named("bool"),
		Body:    []ast.Stmt{&ast.ReturnStmt{Value: &ast.BoolLit{Value: true}}},
	})

	_, _, err := eng.CheckProtocol(intType(), protoInst(id, "Printable"))
	require.Error(t, err)
	assert.Equal(t, diag.ErrP002, diag.CodeOf(err))
}

// A protocol parameter mentioned in a member signature is solved from
// the implementing type's method.
func TestCheckProtocolInfersParameter(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name:   "Producer",
		Params: []*ast.ParamDecl{{Name: "U", Kind: ast.TypeParamKind}},
		Body:   []ast.ClassStmt{member("produce", named("U"))},
	})
	defineMethod(t, store, "int", &ast.FuncDef{
		Name:    "produce",
		Inputs:  []*ast.InputDecl{selfInput()},
		Returns: named("bool"),
		Body:    []ast.Stmt{&ast.ReturnStmt{Value: &ast.BoolLit{Value: true}}},
	})

	u := typesystem.FreshExistentialTypeVar("u")
	proof, residual, err := eng.CheckProtocol(intType(), protoInst(id, "Producer", typesystem.TypeArg{Ty: u}))
	require.NoError(t, err)

	cp, ok := proof.(*ConcreteProof)
	require.True(t, ok)
	require.Len(t, cp.Proto.Args, 1)
	assert.Equal(t, typesystem.TypeArg{Ty: typesystem.BoolType{}}, cp.Proto.Args[0])
	assert.Equal(t, typesystem.TypeArg{Ty: typesystem.BoolType{}}, residual[u.ID])
}

// A parameter no member signature mentions can never be determined.
func TestCheckProtocolUndeterminedParameter(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name:   "Tagged",
		Params: []*ast.ParamDecl{{Name: "U", Kind: ast.TypeParamKind}},
		Body:   []ast.ClassStmt{member("tag", named("bool"))},
	})
	defineMethod(t, store, "int", &ast.FuncDef{
		Name:    "tag",
		Inputs:  []*ast.InputDecl{selfInput()},
		Returns: named("bool"),
		Body:    []ast.Stmt{&ast.ReturnStmt{Value: &ast.BoolLit{Value: true}}},
	})

	u := typesystem.FreshExistentialTypeVar("u")
	_, _, err := eng.CheckProtocol(intType(), protoInst(id, "Tagged", typesystem.TypeArg{Ty: u}))
	require.Error(t, err)
	assert.Equal(t, diag.ErrP004, diag.CodeOf(err))
}

// An implementation whose own generic parameter the member signature
// cannot pin down is rejected rather than instantiated arbitrarily.
func TestCheckProtocolUnpinnedImplementationParameter(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name: "Printable",
		Body: []ast.ClassStmt{member("describe", named("str"))},
	})
	defineMethod(t, store, "int", &ast.FuncDef{
		Name:    "describe",
		Params:  []*ast.ParamDecl{{Name: "T", Kind: ast.TypeParamKind}},
		Inputs:  []*ast.InputDecl{selfInput()},
		Returns: named("str"),
		Body:    []ast.Stmt{&ast.ReturnStmt{Value: &ast.StringLit{Value: "?"}}},
	})

	_, _, err := eng.CheckProtocol(intType(), protoInst(id, "Printable"))
	require.Error(t, err)
	assert.Equal(t, diag.ErrP003, diag.CodeOf(err))
}

// Fully ground checks are cached per engine: the second check returns
// the identical proof without re-running satisfaction.
func TestCheckProtocolProofCache(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineProtocol(t, store, &ast.ClassDef{
		Name: "Printable",
		Body: []ast.ClassStmt{member("describe", named("str"))},
	})
	defineMethod(t, store, "int", &ast.FuncDef{
		Name:    "describe",
		Inputs:  []*ast.InputDecl{selfInput()},
		Returns: named("str"),
		Body:    []ast.Stmt{&ast.ReturnStmt{Value: &ast.StringLit{Value: "int"}}},
	})

	first, _, err := eng.CheckProtocol(intType(), protoInst(id, "Printable"))
	require.NoError(t, err)
	second, _, err := eng.CheckProtocol(intType(), protoInst(id, "Printable"))
	require.NoError(t, err)
	assert.Same(t, first, second)

	// A sibling engine over the same store starts cold and still agrees.
	other := NewEngine(store)
	proof, _, err := other.CheckProtocol(intType(), protoInst(id, "Printable"))
	require.NoError(t, err)
	assert.NotSame(t, first, proof)
	assert.IsType(t, &ConcreteProof{}, proof)
}
