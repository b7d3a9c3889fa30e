// Package ast holds the syntax trees that raw definitions carry into the
// engine.
//
// weft programs are embedded: the pkg/weft builder API constructs these
// nodes directly, so there is no lexer and no positions. The checker still
// validates shapes the way a parser front end would, because nothing stops
// a caller from assembling a malformed body by hand.
package ast

// Node is implemented by every syntax node.
type Node interface {
	node()
}

// ---------------------------------------------------------------------------
// Type expressions

// TypeExpr is a syntactic reference to a type.
type TypeExpr interface {
	Node
	typeExpr()
}

// NamedType references a type definition or generic parameter by name,
// optionally applied to arguments: "array[int, n]".
type NamedType struct {
	Name string
	Args []TypeArgExpr
}

// TupleType is "(T1, T2, ...)". An empty element list is the unit type.
type TupleType struct {
	Elems []TypeExpr
}

// FuncTypeExpr is a first-class function type "(S) -> T".
type FuncTypeExpr struct {
	Inputs []TypeExpr
	Output TypeExpr
}

func (*NamedType) node()        {}
func (*TupleType) node()        {}
func (*FuncTypeExpr) node()     {}
func (*NamedType) typeExpr()    {}
func (*TupleType) typeExpr()    {}
func (*FuncTypeExpr) typeExpr() {}

// TypeArgExpr is an argument in a type application: either a type or a
// constant expression.
type TypeArgExpr interface {
	Node
	typeArgExpr()
}

// TypeArgType wraps a type expression used as a type argument.
type TypeArgType struct {
	Ty TypeExpr
}

// TypeArgConst wraps a constant expression used as a type argument. The
// expression must be a literal or a reference to a constant parameter.
type TypeArgConst struct {
	Value Expr
}

func (*TypeArgType) node()         {}
func (*TypeArgConst) node()        {}
func (*TypeArgType) typeArgExpr()  {}
func (*TypeArgConst) typeArgExpr() {}

// ---------------------------------------------------------------------------
// Generic parameter declarations

// ParamKind discriminates generic parameter declarations.
type ParamKind int

const (
	TypeParamKind ParamKind = iota
	ConstParamKind
)

// ParamDecl declares one generic parameter of a definition.
type ParamDecl struct {
	Name   string
	Kind   ParamKind
	Bounds []TypeExpr // protocol bounds, type parameters only
	Ty     TypeExpr   // value type, constant parameters only
	Linear bool       // type parameter may be instantiated with linear types
}

func (*ParamDecl) node() {}

// ---------------------------------------------------------------------------
// Class-like bodies (structs, enums, protocols)

// ClassDef is the body of a struct, enum or protocol definition. The
// definition kind decides which statements are legal.
type ClassDef struct {
	Name   string
	Params []*ParamDecl
	Bases  []TypeExpr
	Body   []ClassStmt
}

func (*ClassDef) node() {}

// ClassStmt is a statement inside a class-like body.
type ClassStmt interface {
	Node
	classStmt()
}

// FieldDecl declares a struct field "name: T". Default carries an
// unsupported initializer so the checker can reject it by name.
type FieldDecl struct {
	Name    string
	Ann     TypeExpr
	Default Expr
}

// VariantDecl declares an enum variant with payload types.
type VariantDecl struct {
	Name     string
	Payloads []TypeExpr
}

// MethodDecl declares a method. Foreign marks callables attached to the
// body without going through the definition API; the checker rejects them.
type MethodDecl struct {
	Fn      *FuncDef
	Foreign bool
}

// PassStmt is an allowed no-op filler statement.
type PassStmt struct{}

// DocString is an allowed documentation statement.
type DocString struct {
	Text string
}

// OpaqueStmt is any statement the builder cannot classify. Desc names the
// construct for diagnostics.
type OpaqueStmt struct {
	Desc string
}

func (*FieldDecl) node()        {}
func (*VariantDecl) node()      {}
func (*MethodDecl) node()       {}
func (*PassStmt) node()         {}
func (*DocString) node()        {}
func (*OpaqueStmt) node()       {}
func (*FieldDecl) classStmt()   {}
func (*VariantDecl) classStmt() {}
func (*MethodDecl) classStmt()  {}
func (*PassStmt) classStmt()    {}
func (*DocString) classStmt()   {}
func (*OpaqueStmt) classStmt()  {}

// ---------------------------------------------------------------------------
// Functions

// InputDecl declares one function input. Owned marks linear inputs the
// callee consumes; unmarked linear inputs are borrowed.
type InputDecl struct {
	Name  string
	Ann   TypeExpr
	Owned bool
}

func (*InputDecl) node() {}

// FuncDef is a function definition or declaration. A nil Body declares a
// signature with no implementation.
type FuncDef struct {
	Name    string
	Params  []*ParamDecl
	Inputs  []*InputDecl
	Returns TypeExpr // nil means none
	Body    []Stmt
}

func (*FuncDef) node() {}

// ---------------------------------------------------------------------------
// Statements

// Stmt is a statement inside a function body.
type Stmt interface {
	Node
	stmt()
}

// AssignStmt binds the value to a local name.
type AssignStmt struct {
	Name  string
	Value Expr
}

// ExprStmt evaluates an expression for its effects.
type ExprStmt struct {
	X Expr
}

// ReturnStmt returns from the function. Value is nil for none-returning
// functions.
type ReturnStmt struct {
	Value Expr
}

func (*AssignStmt) node() {}
func (*ExprStmt) node()   {}
func (*ReturnStmt) node() {}
func (*AssignStmt) stmt() {}
func (*ExprStmt) stmt()   {}
func (*ReturnStmt) stmt() {}

// ---------------------------------------------------------------------------
// Expressions

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// NameExpr references a local, a function or a type by name.
type NameExpr struct {
	Name string
}

// IntLit is an integer literal. Nat requests the unsigned numeric type,
// used for constant arguments such as array lengths.
type IntLit struct {
	Value int64
	Nat   bool
}

// FloatLit is a float literal.
type FloatLit struct {
	Value float64
}

// BoolLit is a boolean literal.
type BoolLit struct {
	Value bool
}

// StringLit is a string literal.
type StringLit struct {
	Value string
}

// TupleExpr constructs a tuple. Empty means the unit value.
type TupleExpr struct {
	Elems []Expr
}

// CallExpr calls Fn. TypeArgs are optional explicit generic arguments.
type CallExpr struct {
	Fn       Expr
	TypeArgs []TypeArgExpr
	Args     []Expr
}

// AttrExpr accesses a field, a method or an enum variant constructor.
type AttrExpr struct {
	X    Expr
	Name string
}

// TupleIndexExpr projects element Index out of a tuple-typed expression.
type TupleIndexExpr struct {
	X     Expr
	Index int
}

// CondExpr is "if Cond { Then } else { Else }" yielding a value. Both arms
// must have the same type.
type CondExpr struct {
	Cond Expr
	Then Expr
	Else Expr
}

func (*NameExpr) node()       {}
func (*IntLit) node()         {}
func (*FloatLit) node()       {}
func (*BoolLit) node()        {}
func (*StringLit) node()      {}
func (*TupleExpr) node()      {}
func (*CallExpr) node()       {}
func (*AttrExpr) node()       {}
func (*TupleIndexExpr) node() {}
func (*CondExpr) node()       {}
func (*NameExpr) expr()       {}
func (*IntLit) expr()         {}
func (*FloatLit) expr()       {}
func (*BoolLit) expr()        {}
func (*StringLit) expr()      {}
func (*TupleExpr) expr()      {}
func (*CallExpr) expr()       {}
func (*AttrExpr) expr()       {}
func (*TupleIndexExpr) expr() {}
func (*CondExpr) expr()       {}
