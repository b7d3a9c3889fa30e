package typesystem

import "fmt"

// Const is a constant expression in a type position: an array length, a
// static tag, or a variable standing for one.
type Const interface {
	fmt.Stringer
	isConst()
}

// ConstValue is a concrete constant with its type.
type ConstValue struct {
	Ty  Type
	Val ConstPayload
}

// ConstPayload is the value carried by a ConstValue.
type ConstPayload interface {
	fmt.Stringer
	isConstPayload()
}

// NatPayload is an unsigned integer constant value.
type NatPayload struct {
	V uint64
}

// IntPayload is a signed integer constant value.
type IntPayload struct {
	V int64
}

// BoolPayload is a boolean constant value.
type BoolPayload struct {
	B bool
}

// StringPayload is a string constant value.
type StringPayload struct {
	S string
}

// FloatPayload is a float constant value.
type FloatPayload struct {
	F float64
}

func (p NatPayload) String() string    { return fmt.Sprintf("%d", p.V) }
func (p IntPayload) String() string    { return fmt.Sprintf("%d", p.V) }
func (p BoolPayload) String() string   { return fmt.Sprintf("%t", p.B) }
func (p StringPayload) String() string { return fmt.Sprintf("%q", p.S) }
func (p FloatPayload) String() string  { return fmt.Sprintf("%g", p.F) }

func (NatPayload) isConstPayload()    {}
func (IntPayload) isConstPayload()    {}
func (BoolPayload) isConstPayload()   {}
func (StringPayload) isConstPayload() {}
func (FloatPayload) isConstPayload()  {}

// BoundConstVar references a generic constant parameter by de Bruijn
// index.
type BoundConstVar struct {
	Idx  int
	Name string
	Ty   Type
}

// ExistentialConstVar is an unsolved constant hole of a known type.
type ExistentialConstVar struct {
	ID   uint64
	Name string
	Ty   Type
}

func (ConstValue) isConst()          {}
func (BoundConstVar) isConst()       {}
func (ExistentialConstVar) isConst() {}

func (c ConstValue) String() string          { return c.Val.String() }
func (c BoundConstVar) String() string       { return c.Name }
func (c ExistentialConstVar) String() string { return "?" + c.Name }

// NatConst builds a nat-typed constant value.
func NatConst(v uint64) ConstValue {
	return ConstValue{Ty: NumericType{Kind: NatKind}, Val: NatPayload{V: v}}
}

// StringConst builds a str-typed constant value.
func StringConst(s string) ConstValue {
	return ConstValue{Ty: StringType{}, Val: StringPayload{S: s}}
}

// BoolConst builds a bool-typed constant value.
func BoolConst(b bool) ConstValue {
	return ConstValue{Ty: BoolType{}, Val: BoolPayload{B: b}}
}

// ConstTypeOf returns the type a constant expression inhabits.
func ConstTypeOf(c Const) Type {
	switch cv := c.(type) {
	case ConstValue:
		return cv.Ty
	case BoundConstVar:
		return cv.Ty
	case ExistentialConstVar:
		return cv.Ty
	default:
		return NoneType{}
	}
}
