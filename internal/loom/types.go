// Package loom implements the typed dataflow graph format the compiler
// emits.
//
// A graph is a hierarchy of nodes: a module root containing function
// definitions, each function containing a dataflow region delimited by
// Input and Output nodes, with values flowing along wires between ports.
// Besides dataflow wires the graph carries order edges, a second edge kind
// that constrains execution order without moving a value.
//
// Types at this level know nothing about protocols or generic inference;
// they only distinguish copyable from linear wires, which is what graph
// validation cares about.
package loom

import (
	"fmt"
	"strings"
)

// TypeBound classifies how a wire of some type may be used.
type TypeBound int

const (
	// Copyable wires may fan out to any number of consumers or none.
	Copyable TypeBound = iota
	// Linear wires must be consumed exactly once.
	Linear
)

func (b TypeBound) String() string {
	if b == Linear {
		return "linear"
	}
	return "copyable"
}

// joinBounds returns the weaker discipline that still covers both.
func joinBounds(a, b TypeBound) TypeBound {
	if a == Linear || b == Linear {
		return Linear
	}
	return Copyable
}

func boundOfAll(ts []Type) TypeBound {
	bound := Copyable
	for _, t := range ts {
		bound = joinBounds(bound, t.Bound())
	}
	return bound
}

// Type is a graph-level wire type.
type Type interface {
	fmt.Stringer
	Bound() TypeBound
}

// SumType is a tagged union over rows of payload types. Row i is the
// payload carried by tag i.
type SumType struct {
	Rows [][]Type
}

func (t *SumType) Bound() TypeBound {
	bound := Copyable
	for _, row := range t.Rows {
		bound = joinBounds(bound, boundOfAll(row))
	}
	return bound
}

func (t *SumType) String() string {
	rows := make([]string, len(t.Rows))
	for i, row := range t.Rows {
		rows[i] = "(" + joinTypes(row) + ")"
	}
	return "Sum(" + strings.Join(rows, ", ") + ")"
}

// Bool is the canonical two-tag unit sum. Tag 0 is false, tag 1 is true.
func Bool() *SumType {
	return &SumType{Rows: [][]Type{{}, {}}}
}

// TupleType is an ordered product of element types.
type TupleType struct {
	Elems []Type
}

func (t *TupleType) Bound() TypeBound { return boundOfAll(t.Elems) }

func (t *TupleType) String() string {
	return "(" + joinTypes(t.Elems) + ")"
}

// Unit is the empty tuple.
func Unit() *TupleType { return &TupleType{} }

// ExtType is a type provided by an extension, e.g. quantum.qubit or
// collections.array.
type ExtType struct {
	Extension string
	Name      string
	Args      []TypeArg
	TyBound   TypeBound
}

func (t *ExtType) Bound() TypeBound { return t.TyBound }

// QualifiedName returns the registry key "extension.name".
func (t *ExtType) QualifiedName() string {
	return t.Extension + "." + t.Name
}

func (t *ExtType) String() string {
	if len(t.Args) == 0 {
		return t.QualifiedName()
	}
	args := make([]string, len(t.Args))
	for i, a := range t.Args {
		args[i] = a.String()
	}
	return t.QualifiedName() + "[" + strings.Join(args, ", ") + "]"
}

// VarType is a reference to a type parameter of the enclosing polymorphic
// function, by position.
type VarType struct {
	Idx    int
	VBound TypeBound
}

func (t *VarType) Bound() TypeBound { return t.VBound }

func (t *VarType) String() string { return fmt.Sprintf("v%d", t.Idx) }

// FuncType is the signature of a function value or definition. Params make
// the signature polymorphic; value types referring to them use VarType and
// VarArg by position.
type FuncType struct {
	Inputs  []Type
	Outputs []Type
	Params  []TypeParam
}

// Function values can always be duplicated or discarded.
func (t *FuncType) Bound() TypeBound { return Copyable }

func (t *FuncType) String() string {
	var sb strings.Builder
	if len(t.Params) > 0 {
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		sb.WriteString("[" + strings.Join(parts, ", ") + "]")
	}
	sb.WriteString("(" + joinTypes(t.Inputs) + ") -> (" + joinTypes(t.Outputs) + ")")
	return sb.String()
}

func joinTypes(ts []Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}

// ParamSort discriminates the kinds of graph-level type parameters.
type ParamSort int

const (
	// TypeSort parameters stand for a wire type within the given bound.
	TypeSort ParamSort = iota
	// NatSort parameters stand for an unsigned integer, e.g. an array
	// length.
	NatSort
	// StringSort parameters stand for a static string, e.g. a result tag.
	StringSort
)

// TypeParam declares one parameter of a polymorphic signature.
type TypeParam struct {
	Name  string
	Sort  ParamSort
	Bound TypeBound // only meaningful for TypeSort
}

func (p TypeParam) String() string {
	switch p.Sort {
	case NatSort:
		return p.Name + ": nat"
	case StringSort:
		return p.Name + ": str"
	default:
		return p.Name + ": type(" + p.Bound.String() + ")"
	}
}

// TypeArg is an argument supplied for a TypeParam, attached to call and
// load-function nodes.
type TypeArg interface {
	fmt.Stringer
	typeArg()
}

// TypeArgTy supplies a type for a TypeSort parameter.
type TypeArgTy struct {
	Ty Type
}

// NatArg supplies a concrete natural number for a NatSort parameter.
type NatArg struct {
	N uint64
}

// StringArg supplies a static string for a StringSort parameter.
type StringArg struct {
	S string
}

// VarArg references a NatSort parameter of the enclosing polymorphic
// function, by position.
type VarArg struct {
	Idx int
}

func (a TypeArgTy) String() string { return a.Ty.String() }
func (a NatArg) String() string    { return fmt.Sprintf("%d", a.N) }
func (a StringArg) String() string { return fmt.Sprintf("%q", a.S) }
func (a VarArg) String() string    { return fmt.Sprintf("a%d", a.Idx) }

func (TypeArgTy) typeArg() {}
func (NatArg) typeArg()    {}
func (StringArg) typeArg() {}
func (VarArg) typeArg()    {}
