package weft

import "github.com/weftlang/weft/internal/ast"

// The syntax node interfaces, aliased so programs can be assembled
// without importing internal packages.
type (
	// TypeExpr is a syntactic reference to a type.
	TypeExpr = ast.TypeExpr
	// TypeArg is one argument in a type application: a type or a
	// constant.
	TypeArg = ast.TypeArgExpr
	// Expr is an expression.
	Expr = ast.Expr
	// Stmt is a function body statement.
	Stmt = ast.Stmt
)

// ---------------------------------------------------------------------------
// Types

// Named references a type definition or generic parameter by name,
// optionally applied to arguments:
//
//	Named("array", ArgTy(Named("int")), ArgNat(4))
func Named(name string, args ...TypeArg) TypeExpr {
	return &ast.NamedType{Name: name, Args: args}
}

// TupleTy is the tuple type of the given elements. With no elements it
// is the unit type.
func TupleTy(elems ...TypeExpr) TypeExpr {
	return &ast.TupleType{Elems: elems}
}

// FuncTy is a first-class function type.
func FuncTy(inputs []TypeExpr, output TypeExpr) TypeExpr {
	return &ast.FuncTypeExpr{Inputs: inputs, Output: output}
}

// ArgTy uses a type as a type argument.
func ArgTy(ty TypeExpr) TypeArg { return &ast.TypeArgType{Ty: ty} }

// ArgNat uses a nat literal as a constant type argument: array lengths,
// exit codes.
func ArgNat(v int64) TypeArg {
	return &ast.TypeArgConst{Value: &ast.IntLit{Value: v, Nat: true}}
}

// ArgStr uses a string literal as a constant type argument: the tags of
// result_int and friends.
func ArgStr(v string) TypeArg {
	return &ast.TypeArgConst{Value: &ast.StringLit{Value: v}}
}

// ArgRef passes a constant parameter of the enclosing definition along
// as a type argument.
func ArgRef(name string) TypeArg {
	return &ast.TypeArgConst{Value: &ast.NameExpr{Name: name}}
}

// ---------------------------------------------------------------------------
// Expressions

// Name references a local, an input, a constant parameter or a top-level
// function.
func Name(name string) Expr { return &ast.NameExpr{Name: name} }

// Int is a signed integer literal.
func Int(v int64) Expr { return &ast.IntLit{Value: v} }

// Nat is an unsigned integer literal.
func Nat(v int64) Expr { return &ast.IntLit{Value: v, Nat: true} }

// Float is a float literal.
func Float(v float64) Expr { return &ast.FloatLit{Value: v} }

// Bool is a boolean literal.
func Bool(v bool) Expr { return &ast.BoolLit{Value: v} }

// Str is a string literal.
func Str(v string) Expr { return &ast.StringLit{Value: v} }

// Tuple packs values into a tuple.
func Tuple(elems ...Expr) Expr { return &ast.TupleExpr{Elems: elems} }

// Unit is the empty tuple value.
func Unit() Expr { return &ast.TupleExpr{} }

// Call calls a top-level function by name, inferring any generic
// arguments from the value arguments.
func Call(fn string, args ...Expr) Expr {
	return &ast.CallExpr{Fn: &ast.NameExpr{Name: fn}, Args: args}
}

// CallT calls a top-level function with explicit generic arguments.
// Builtins whose parameters never appear in their value arguments, such
// as result_int's tag, must be called this way.
func CallT(fn string, targs []TypeArg, args ...Expr) Expr {
	return &ast.CallExpr{Fn: &ast.NameExpr{Name: fn}, TypeArgs: targs, Args: args}
}

// Method calls a method on a receiver. When recv names a type rather
// than a value the call resolves statically, which is how variant
// constructors and unbound methods are reached:
//
//	Method(Name("Coin"), "tails", Int(7))
func Method(recv Expr, name string, args ...Expr) Expr {
	return &ast.CallExpr{Fn: &ast.AttrExpr{X: recv, Name: name}, Args: args}
}

// Apply calls a function value.
func Apply(fn Expr, args ...Expr) Expr {
	return &ast.CallExpr{Fn: fn, Args: args}
}

// Field accesses a struct field.
func Field(x Expr, name string) Expr { return &ast.AttrExpr{X: x, Name: name} }

// Item projects one element out of a tuple.
func Item(x Expr, index int) Expr { return &ast.TupleIndexExpr{X: x, Index: index} }

// If is a conditional expression. Both arms must have the same type.
func If(cond, then, els Expr) Expr {
	return &ast.CondExpr{Cond: cond, Then: then, Else: els}
}

// ---------------------------------------------------------------------------
// Statements

// Let binds a value to a local name.
func Let(name string, value Expr) Stmt {
	return &ast.AssignStmt{Name: name, Value: value}
}

// Do evaluates an expression for its effects.
func Do(x Expr) Stmt { return &ast.ExprStmt{X: x} }

// Return returns from the function. Pass nil in none-returning
// functions.
func Return(value Expr) Stmt { return &ast.ReturnStmt{Value: value} }

// ---------------------------------------------------------------------------
// Definition specs

// ParamSpec declares one generic parameter. Leaving Const nil declares a
// type parameter constrained by Bounds; setting Const declares a
// constant parameter of that value type.
type ParamSpec struct {
	Name   string
	Bounds []TypeExpr
	Linear bool
	Const  TypeExpr
}

// TypeParam declares a type parameter instantiable with copyable types.
func TypeParam(name string, bounds ...TypeExpr) ParamSpec {
	return ParamSpec{Name: name, Bounds: bounds}
}

// LinearTypeParam declares a type parameter that linear types may
// instantiate as well.
func LinearTypeParam(name string, bounds ...TypeExpr) ParamSpec {
	return ParamSpec{Name: name, Bounds: bounds, Linear: true}
}

// ConstParam declares a constant parameter of the given value type.
func ConstParam(name string, ty TypeExpr) ParamSpec {
	return ParamSpec{Name: name, Const: ty}
}

// InputSpec declares one function input.
type InputSpec struct {
	Name  string
	Ty    TypeExpr
	Owned bool
}

// In declares an input the callee borrows: a linear argument threads
// back to the caller when the call returns.
func In(name string, ty TypeExpr) InputSpec {
	return InputSpec{Name: name, Ty: ty}
}

// InOwned declares an input the callee consumes.
func InOwned(name string, ty TypeExpr) InputSpec {
	return InputSpec{Name: name, Ty: ty, Owned: true}
}

// Self declares the unannotated self input of a method or protocol
// member. In a method the annotation defaults to the owning type.
func Self() InputSpec { return InputSpec{Name: "self"} }

// SelfOwned declares a self input the method consumes.
func SelfOwned() InputSpec { return InputSpec{Name: "self", Owned: true} }

// FuncSpec describes a function. A nil Body declares a signature without
// an implementation, which compiles to an external function declaration.
// A nil Returns means the function returns nothing.
type FuncSpec struct {
	Name    string
	Params  []ParamSpec
	Inputs  []InputSpec
	Returns TypeExpr
	Body    []Stmt
}

// FieldSpec describes one struct field.
type FieldSpec struct {
	Name string
	Ty   TypeExpr
}

// StructSpec describes a struct. A constructor taking every field as an
// owned input is generated under __new__ and called by naming the
// struct; methods take self as their first input.
type StructSpec struct {
	Name    string
	Params  []ParamSpec
	Fields  []FieldSpec
	Methods []FuncSpec
}

// VariantSpec describes one enum variant and its payload types.
type VariantSpec struct {
	Name     string
	Payloads []TypeExpr
}

// EnumSpec describes a tagged union. Every variant gets a generated
// constructor, reached as a static member of the enum.
type EnumSpec struct {
	Name     string
	Params   []ParamSpec
	Variants []VariantSpec
	Methods  []FuncSpec
}

// ProtocolSpec describes a protocol. Members are bodyless signatures
// whose first input is an unannotated self; their annotations may name
// the receiver type as Self.
type ProtocolSpec struct {
	Name    string
	Params  []ParamSpec
	Members []FuncSpec
}

func paramDecls(specs []ParamSpec) []*ast.ParamDecl {
	if len(specs) == 0 {
		return nil
	}
	out := make([]*ast.ParamDecl, len(specs))
	for i, p := range specs {
		d := &ast.ParamDecl{Name: p.Name}
		if p.Const != nil {
			d.Kind = ast.ConstParamKind
			d.Ty = p.Const
		} else {
			d.Kind = ast.TypeParamKind
			d.Bounds = p.Bounds
			d.Linear = p.Linear
		}
		out[i] = d
	}
	return out
}

func inputDecls(specs []InputSpec) []*ast.InputDecl {
	if len(specs) == 0 {
		return nil
	}
	out := make([]*ast.InputDecl, len(specs))
	for i, in := range specs {
		out[i] = &ast.InputDecl{Name: in.Name, Ann: in.Ty, Owned: in.Owned}
	}
	return out
}

func (f FuncSpec) funcDef() *ast.FuncDef {
	return &ast.FuncDef{
		Name:    f.Name,
		Params:  paramDecls(f.Params),
		Inputs:  inputDecls(f.Inputs),
		Returns: f.Returns,
		Body:    f.Body,
	}
}

func (s StructSpec) classDef() *ast.ClassDef {
	body := make([]ast.ClassStmt, 0, len(s.Fields)+len(s.Methods))
	for _, f := range s.Fields {
		body = append(body, &ast.FieldDecl{Name: f.Name, Ann: f.Ty})
	}
	for _, m := range s.Methods {
		body = append(body, &ast.MethodDecl{Fn: m.funcDef()})
	}
	return &ast.ClassDef{Name: s.Name, Params: paramDecls(s.Params), Body: body}
}

func (e EnumSpec) classDef() *ast.ClassDef {
	body := make([]ast.ClassStmt, 0, len(e.Variants)+len(e.Methods))
	for _, v := range e.Variants {
		body = append(body, &ast.VariantDecl{Name: v.Name, Payloads: v.Payloads})
	}
	for _, m := range e.Methods {
		body = append(body, &ast.MethodDecl{Fn: m.funcDef()})
	}
	return &ast.ClassDef{Name: e.Name, Params: paramDecls(e.Params), Body: body}
}

func (p ProtocolSpec) classDef() *ast.ClassDef {
	body := make([]ast.ClassStmt, 0, len(p.Members))
	for _, m := range p.Members {
		body = append(body, &ast.MethodDecl{Fn: m.funcDef()})
	}
	return &ast.ClassDef{Name: p.Name, Params: paramDecls(p.Params), Body: body}
}
