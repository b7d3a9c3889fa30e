// Package typesystem implements the type and argument model of the
// language: the types a program can mention, the constant expressions that
// may appear in type positions (array lengths, static tags), generic
// parameters and the two variable namespaces the checker works with.
//
// Bound variables reference the generic parameters of an enclosing
// definition by de Bruijn index; they are rigid. Existential variables are
// fresh unsolved holes introduced during inference and protocol checking;
// substitutions map their identities to arguments. The two namespaces
// never mix: Instantiate replaces bound variables, ApplySubst replaces
// existential ones, and every call site states which it means.
package typesystem

import (
	"fmt"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/weftlang/weft/internal/ids"
)

// Type is a source-level type.
type Type interface {
	fmt.Stringer
	isType()
}

// NumericKind discriminates the builtin numeric types.
type NumericKind int

const (
	NatKind NumericKind = iota
	IntKind
	FloatKind
)

func (k NumericKind) String() string {
	switch k {
	case NatKind:
		return "nat"
	case FloatKind:
		return "float"
	default:
		return "int"
	}
}

// NoneType is the unit type.
type NoneType struct{}

// BoolType is the builtin boolean.
type BoolType struct{}

// StringType is the builtin static string.
type StringType struct{}

// NumericType is one of nat, int, float.
type NumericType struct {
	Kind NumericKind
}

// QubitType is the linear quantum bit.
type QubitType struct{}

// ArrayType is a fixed-length array. Arrays are linear wires in the graph
// but affine at the source level: programs may silently discard them and
// the compiler reconciles with explicit drops. Borrowed marks the
// experimental borrow_array form.
type ArrayType struct {
	Elem     Type
	Len      Const
	Borrowed bool
}

// TupleType is an ordered product.
type TupleType struct {
	Elements []Type
}

// StructDecl is the narrow view of a checked struct definition that types
// carry. The checker's definition objects implement it.
type StructDecl interface {
	StructId() ids.DefId
	StructName() string
	// StructFields lists the declared fields; field types may reference
	// the struct's generic parameters as bound variables.
	StructFields() []StructField
}

// StructField is one declared field.
type StructField struct {
	Name string
	Ty   Type
}

// StructType is an instantiated reference to a struct definition.
type StructType struct {
	Decl StructDecl
	Args []Argument
}

// EnumDecl is the narrow view of a checked enum definition.
type EnumDecl interface {
	EnumId() ids.DefId
	EnumName() string
	EnumVariants() []EnumVariant
}

// EnumVariant is one declared variant with its payload row.
type EnumVariant struct {
	Name     string
	Payloads []Type
}

// EnumType is an instantiated reference to an enum definition.
type EnumType struct {
	Decl EnumDecl
	Args []Argument
}

// FuncInput is one function input with its ownership flag. Owned linear
// inputs are consumed by the callee; unmarked linear inputs are borrowed
// and returned implicitly.
type FuncInput struct {
	Ty    Type
	Owned bool
}

// FuncType is a function signature, generic when Params is non-empty.
// Bound variables inside Inputs and Output index into Params.
type FuncType struct {
	Inputs []FuncInput
	Output Type
	Params []Parameter
}

// ProtocolInst is a reference to a protocol applied to arguments, as used
// in parameter bounds and satisfaction checks.
type ProtocolInst struct {
	Def  ids.DefId
	Name string
	Args []Argument
}

// BoundTypeVar references a generic type parameter by de Bruijn index.
// Bounds carries the protocol assumptions declared on the parameter.
// Copyable is false for parameters that may be instantiated with linear
// types.
type BoundTypeVar struct {
	Idx      int
	Name     string
	Copyable bool
	Bounds   []ProtocolInst
}

// ExistentialTypeVar is an unsolved type hole. ID is globally fresh.
type ExistentialTypeVar struct {
	ID   uint64
	Name string
}

func (NoneType) isType()           {}
func (BoolType) isType()           {}
func (StringType) isType()         {}
func (NumericType) isType()        {}
func (QubitType) isType()          {}
func (*ArrayType) isType()         {}
func (*TupleType) isType()         {}
func (*StructType) isType()        {}
func (*EnumType) isType()          {}
func (*FuncType) isType()          {}
func (BoundTypeVar) isType()       {}
func (ExistentialTypeVar) isType() {}

func (NoneType) String() string      { return "None" }
func (BoolType) String() string      { return "bool" }
func (StringType) String() string    { return "str" }
func (QubitType) String() string     { return "qubit" }
func (t NumericType) String() string { return t.Kind.String() }

func (t *ArrayType) String() string {
	name := "array"
	if t.Borrowed {
		name = "borrow_array"
	}
	return fmt.Sprintf("%s[%s, %s]", name, t.Elem, t.Len)
}

func (t *TupleType) String() string {
	parts := make([]string, len(t.Elements))
	for i, e := range t.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *StructType) String() string {
	return instName(t.Decl.StructName(), t.Args)
}

func (t *EnumType) String() string {
	return instName(t.Decl.EnumName(), t.Args)
}

func (p ProtocolInst) String() string {
	return instName(p.Name, p.Args)
}

func instName(name string, args []Argument) string {
	if len(args) == 0 {
		return name
	}
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return name + "[" + strings.Join(parts, ", ") + "]"
}

func (t *FuncType) String() string {
	var sb strings.Builder
	if len(t.Params) > 0 {
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		sb.WriteString("[" + strings.Join(parts, ", ") + "]")
	}
	ins := make([]string, len(t.Inputs))
	for i, in := range t.Inputs {
		ins[i] = in.Ty.String()
		if in.Owned {
			ins[i] += " @owned"
		}
	}
	sb.WriteString("(" + strings.Join(ins, ", ") + ") -> " + t.Output.String())
	return sb.String()
}

func (t BoundTypeVar) String() string       { return t.Name }
func (t ExistentialTypeVar) String() string { return "?" + t.Name }

var existCounter atomic.Uint64

func freshExistId() uint64 { return existCounter.Add(1) }

// FreshExistentialTypeVar mints an unsolved type variable.
func FreshExistentialTypeVar(name string) ExistentialTypeVar {
	return ExistentialTypeVar{ID: freshExistId(), Name: name}
}

// FreshExistentialConstVar mints an unsolved constant variable of the
// given type.
func FreshExistentialConstVar(name string, ty Type) ExistentialConstVar {
	return ExistentialConstVar{ID: freshExistId(), Name: name, Ty: ty}
}

// TypesEqual is structural equality. Declaration references compare by
// identity, which holds because every definition owns a single checked
// object.
func TypesEqual(a, b Type) bool {
	return reflect.DeepEqual(a, b)
}

// Linear reports whether values of t must be treated as linear resources.
func Linear(t Type) bool {
	switch ty := t.(type) {
	case QubitType:
		return true
	case *ArrayType:
		return true
	case *TupleType:
		for _, e := range ty.Elements {
			if Linear(e) {
				return true
			}
		}
		return false
	case *StructType:
		for _, f := range ty.FieldTypes() {
			if Linear(f.Ty) {
				return true
			}
		}
		return false
	case *EnumType:
		for _, v := range ty.VariantRows() {
			for _, p := range v.Payloads {
				if Linear(p) {
					return true
				}
			}
		}
		return false
	case BoundTypeVar:
		return !ty.Copyable
	default:
		return false
	}
}

// FieldTypes returns the struct's fields with the definition's parameters
// instantiated by the reference's arguments.
func (t *StructType) FieldTypes() []StructField {
	decl := t.Decl.StructFields()
	out := make([]StructField, len(decl))
	for i, f := range decl {
		out[i] = StructField{Name: f.Name, Ty: Instantiate(f.Ty, t.Args)}
	}
	return out
}

// VariantRows returns the enum's variants with the definition's parameters
// instantiated by the reference's arguments.
func (t *EnumType) VariantRows() []EnumVariant {
	decl := t.Decl.EnumVariants()
	out := make([]EnumVariant, len(decl))
	for i, v := range decl {
		payloads := make([]Type, len(v.Payloads))
		for j, p := range v.Payloads {
			payloads[j] = Instantiate(p, t.Args)
		}
		out[i] = EnumVariant{Name: v.Name, Payloads: payloads}
	}
	return out
}

// UnsolvedVars collects the identities of every existential variable in t,
// in first-occurrence order.
func UnsolvedVars(t Type) []uint64 {
	var out []uint64
	seen := make(map[uint64]bool)
	collectUnsolved(t, &out, seen)
	return out
}

// UnsolvedInArgs collects existential identities across an argument list.
func UnsolvedInArgs(args []Argument) []uint64 {
	var out []uint64
	seen := make(map[uint64]bool)
	for _, a := range args {
		collectUnsolvedArg(a, &out, seen)
	}
	return out
}

func collectUnsolved(t Type, out *[]uint64, seen map[uint64]bool) {
	switch ty := t.(type) {
	case ExistentialTypeVar:
		if !seen[ty.ID] {
			seen[ty.ID] = true
			*out = append(*out, ty.ID)
		}
	case *ArrayType:
		collectUnsolved(ty.Elem, out, seen)
		collectUnsolvedConst(ty.Len, out, seen)
	case *TupleType:
		for _, e := range ty.Elements {
			collectUnsolved(e, out, seen)
		}
	case *StructType:
		for _, a := range ty.Args {
			collectUnsolvedArg(a, out, seen)
		}
	case *EnumType:
		for _, a := range ty.Args {
			collectUnsolvedArg(a, out, seen)
		}
	case *FuncType:
		for _, in := range ty.Inputs {
			collectUnsolved(in.Ty, out, seen)
		}
		collectUnsolved(ty.Output, out, seen)
	case BoundTypeVar:
		for _, b := range ty.Bounds {
			for _, a := range b.Args {
				collectUnsolvedArg(a, out, seen)
			}
		}
	}
}

func collectUnsolvedArg(a Argument, out *[]uint64, seen map[uint64]bool) {
	switch arg := a.(type) {
	case TypeArg:
		collectUnsolved(arg.Ty, out, seen)
	case ConstArg:
		collectUnsolvedConst(arg.C, out, seen)
	}
}

func collectUnsolvedConst(c Const, out *[]uint64, seen map[uint64]bool) {
	switch cv := c.(type) {
	case ExistentialConstVar:
		if !seen[cv.ID] {
			seen[cv.ID] = true
			*out = append(*out, cv.ID)
		}
	case ConstValue:
		collectUnsolved(cv.Ty, out, seen)
	}
}
