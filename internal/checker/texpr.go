package checker

import (
	"github.com/weftlang/weft/internal/ids"
	"github.com/weftlang/weft/internal/typesystem"
)

// TExpr is a typed expression, the checker's output and the compiler's
// input. Types may mention the enclosing definition's undecided parameters
// as bound variables at their declared indices; the compiler substitutes
// or renumbers them under its active monomorphization.
type TExpr interface {
	Ty() typesystem.Type
	tExpr()
}

// TStmt is a typed statement.
type TStmt interface {
	tStmt()
}

// TConst is a literal or a decided constant parameter used as a value.
type TConst struct {
	C typesystem.ConstValue
}

// TUnit is the empty tuple, the single value of type None.
type TUnit struct{}

// TName reads a local binding.
type TName struct {
	Name string
	Type typesystem.Type
}

// TTuple packs elements into a tuple.
type TTuple struct {
	Elems []TExpr
	Type  *typesystem.TupleType
}

// TField projects a named field out of a struct value.
type TField struct {
	X     TExpr
	Field string
	Index int
	Type  typesystem.Type
}

// TTupleIndex projects an element out of a tuple value.
type TTupleIndex struct {
	X     TExpr
	Index int
	Type  typesystem.Type
}

// TCall calls a global definition. Inst is the full solution of the
// callee's parameters at this call site; Sig is the callee's signature
// under Inst, with no parameters left. Borrowed linear arguments are
// place expressions, so the call's implicit returns can be rebound.
type TCall struct {
	Def  ids.DefId
	Name string
	Inst typesystem.Inst
	Sig  *typesystem.FuncType
	Args []TExpr
	Type typesystem.Type
}

// TCallMember calls a protocol member on a receiver whose type is a bound
// variable carrying the protocol among its assumptions. The receiver is
// Args[0]. OwnInst solves the member's own parameters, renumbered to start
// at zero; the implementation is only known once the compiler has decided
// the receiver. Sig is the member schema under the full call-site solution.
type TCallMember struct {
	Proto   typesystem.ProtocolInst
	Member  string
	OwnInst typesystem.Inst
	Sig     *typesystem.FuncType
	Args    []TExpr
	Type    typesystem.Type
}

// TCallIndirect calls a first-class function value.
type TCallIndirect struct {
	Fn   TExpr
	Sig  *typesystem.FuncType
	Args []TExpr
	Type typesystem.Type
}

// TCond is a value-producing conditional. Both arms have the same type.
type TCond struct {
	Cond TExpr
	Then TExpr
	Else TExpr
	Type typesystem.Type
}

// TFunc materializes a global definition as a first-class function value.
// Inst must be fully decided: a function value cannot stay generic.
type TFunc struct {
	Def  ids.DefId
	Name string
	Inst typesystem.Inst
	Sig  *typesystem.FuncType
}

func (e *TConst) Ty() typesystem.Type        { return e.C.Ty }
func (e *TUnit) Ty() typesystem.Type         { return typesystem.NoneType{} }
func (e *TName) Ty() typesystem.Type         { return e.Type }
func (e *TTuple) Ty() typesystem.Type        { return e.Type }
func (e *TField) Ty() typesystem.Type        { return e.Type }
func (e *TTupleIndex) Ty() typesystem.Type   { return e.Type }
func (e *TCall) Ty() typesystem.Type         { return e.Type }
func (e *TCallMember) Ty() typesystem.Type   { return e.Type }
func (e *TCallIndirect) Ty() typesystem.Type { return e.Type }
func (e *TCond) Ty() typesystem.Type         { return e.Type }
func (e *TFunc) Ty() typesystem.Type         { return e.Sig }

func (*TConst) tExpr()        {}
func (*TUnit) tExpr()         {}
func (*TName) tExpr()         {}
func (*TTuple) tExpr()        {}
func (*TField) tExpr()        {}
func (*TTupleIndex) tExpr()   {}
func (*TCall) tExpr()         {}
func (*TCallMember) tExpr()   {}
func (*TCallIndirect) tExpr() {}
func (*TCond) tExpr()         {}
func (*TFunc) tExpr()         {}

// TAssign binds a value to a local name, shadowing any previous binding
// of the same type.
type TAssign struct {
	Name  string
	Value TExpr
}

// TExprStmt evaluates an expression for its effects.
type TExprStmt struct {
	X TExpr
}

// TReturn leaves the function. Value is nil in none-returning functions.
type TReturn struct {
	Value TExpr
}

func (*TAssign) tStmt()   {}
func (*TExprStmt) tStmt() {}
func (*TReturn) tStmt()   {}
