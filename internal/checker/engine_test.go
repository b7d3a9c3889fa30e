package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weftlang/weft/internal/ast"
	"github.com/weftlang/weft/internal/diag"
	"github.com/weftlang/weft/internal/ids"
)

func field(name string, ann ast.TypeExpr) ast.ClassStmt {
	return &ast.FieldDecl{Name: name, Ann: ann}
}

func defineStruct(t *testing.T, store *Store, cls *ast.ClassDef) ids.DefId {
	t.Helper()
	raw := &RawStructDef{Id: ids.FreshDefId(), Cls: cls}
	require.NoError(t, store.Register(raw))
	return raw.Id
}

func TestRecursiveStructRejected(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineStruct(t, store, &ast.ClassDef{
		Name: "Node",
		Body: []ast.ClassStmt{field("next", named("Node"))},
	})

	_, err := eng.GetChecked(id, nil)
	require.Error(t, err)
	assert.Equal(t, diag.ErrD008, diag.CodeOf(err))
}

func TestMutuallyRecursiveStructsRejected(t *testing.T) {
	eng, store := newTestEngine(t)
	idA := defineStruct(t, store, &ast.ClassDef{
		Name: "Ping",
		Body: []ast.ClassStmt{field("other", named("Pong"))},
	})
	defineStruct(t, store, &ast.ClassDef{
		Name: "Pong",
		Body: []ast.ClassStmt{field("other", named("Ping"))},
	})

	_, err := eng.GetChecked(idA, nil)
	require.Error(t, err)
	assert.Equal(t, diag.ErrD008, diag.CodeOf(err))
}

// Non-cyclic references between structs are fine in either direction.
func TestStructReferencesSibling(t *testing.T) {
	eng, store := newTestEngine(t)
	outer := defineStruct(t, store, &ast.ClassDef{
		Name: "Outer",
		Body: []ast.ClassStmt{field("inner", named("Inner"))},
	})
	defineStruct(t, store, &ast.ClassDef{
		Name: "Inner",
		Body: []ast.ClassStmt{field("n", named("int"))},
	})

	checked, err := eng.GetChecked(outer, nil)
	require.NoError(t, err)
	assert.Equal(t, "Outer", checked.DefName())
}

func TestStructConstructorDerived(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineStruct(t, store, &ast.ClassDef{
		Name: "Point",
		Body: []ast.ClassStmt{field("x", named("int")), field("y", named("int"))},
	})

	_, err := eng.GetChecked(id, nil)
	require.NoError(t, err)

	ctor, ok := eng.implOf(id, "__new__")
	require.True(t, ok)
	parsed, err := eng.GetParsed(ctor)
	require.NoError(t, err)
	sig, ok := parsed.(SignatureDef)
	require.True(t, ok)
	assert.Len(t, sig.Signature().Inputs, 2)
}

func TestEnumVariantConstructorsDerived(t *testing.T) {
	eng, store := newTestEngine(t)
	raw := &RawEnumDef{Id: ids.FreshDefId(), Cls: &ast.ClassDef{
		Name: "Shape",
		Body: []ast.ClassStmt{
			&ast.VariantDecl{Name: "Dot"},
			&ast.VariantDecl{Name: "Line", Payloads: []ast.TypeExpr{named("int")}},
		},
	}}
	require.NoError(t, store.Register(raw))

	_, err := eng.GetChecked(raw.Id, nil)
	require.NoError(t, err)

	for _, variant := range []string{"Dot", "Line"} {
		_, ok := eng.implOf(raw.Id, variant)
		assert.True(t, ok, "variant %q", variant)
	}
}

func TestShapeDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		def  func() Def
		want diag.ErrorCode
	}{
		{"duplicate field", func() Def {
			return &RawStructDef{Id: ids.FreshDefId(), Cls: &ast.ClassDef{
				Name: "S",
				Body: []ast.ClassStmt{field("x", named("int")), field("x", named("bool"))},
			}}
		}, diag.ErrD001},
		{"duplicate variant", func() Def {
			return &RawEnumDef{Id: ids.FreshDefId(), Cls: &ast.ClassDef{
				Name: "E",
				Body: []ast.ClassStmt{&ast.VariantDecl{Name: "A"}, &ast.VariantDecl{Name: "A"}},
			}}
		}, diag.ErrD002},
		{"struct base clause", func() Def {
			return &RawStructDef{Id: ids.FreshDefId(), Cls: &ast.ClassDef{
				Name:  "S",
				Bases: []ast.TypeExpr{named("int")},
				Body:  []ast.ClassStmt{field("x", named("int"))},
			}}
		}, diag.ErrD005},
		{"field default value", func() Def {
			return &RawStructDef{Id: ids.FreshDefId(), Cls: &ast.ClassDef{
				Name: "S",
				Body: []ast.ClassStmt{&ast.FieldDecl{Name: "x", Ann: named("int"), Default: &ast.IntLit{Value: 1}}},
			}}
		}, diag.ErrD007},
		{"variant in struct", func() Def {
			return &RawStructDef{Id: ids.FreshDefId(), Cls: &ast.ClassDef{
				Name: "S",
				Body: []ast.ClassStmt{&ast.VariantDecl{Name: "A"}},
			}}
		}, diag.ErrD003},
		{"protocol member with body", func() Def {
			return &RawProtocolDef{Id: ids.FreshDefId(), Cls: &ast.ClassDef{
				Name: "P",
				Body: []ast.ClassStmt{&ast.MethodDecl{Fn: &ast.FuncDef{
					Name:    "m",
					Inputs:  []*ast.InputDecl{selfInput()},
					Returns: named("bool"),
					Body:    []ast.Stmt{&ast.ReturnStmt{Value: &ast.BoolLit{Value: true}}},
				}}},
			}}
		}, diag.ErrD003},
		{"duplicate input", func() Def {
			return &RawFunctionDef{Id: ids.FreshDefId(), Fn: &ast.FuncDef{
				Name: "f",
				Inputs: []*ast.InputDecl{
					{Name: "a", Ann: named("int")},
					{Name: "a", Ann: named("bool")},
				},
				Returns: named("int"),
				Body:    []ast.Stmt{&ast.ReturnStmt{Value: &ast.NameExpr{Name: "a"}}},
			}}
		}, diag.ErrD006},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, store := newTestEngine(t)
			def := tt.def()
			require.NoError(t, store.Register(def))
			_, err := eng.GetParsed(def.DefId())
			require.Error(t, err)
			assert.Equal(t, tt.want, diag.CodeOf(err))
		})
	}
}

// Parse failures are sticky per engine but never corrupt memoization:
// asking again reports the same diagnostic.
func TestParseErrorRepeats(t *testing.T) {
	eng, store := newTestEngine(t)
	id := defineStruct(t, store, &ast.ClassDef{
		Name: "S",
		Body: []ast.ClassStmt{field("x", named("int")), field("x", named("int"))},
	})

	_, err1 := eng.GetParsed(id)
	require.Error(t, err1)
	_, err2 := eng.GetParsed(id)
	require.Error(t, err2)
	assert.Equal(t, diag.CodeOf(err1), diag.CodeOf(err2))
}
