package typesystem

import (
	"fmt"
	"strings"
)

// Argument instantiates one generic parameter: a type for a type
// parameter, a constant for a constant parameter.
type Argument interface {
	fmt.Stringer
	isArgument()
}

// TypeArg wraps a type used as an argument.
type TypeArg struct {
	Ty Type
}

// ConstArg wraps a constant used as an argument.
type ConstArg struct {
	C Const
}

func (TypeArg) isArgument()  {}
func (ConstArg) isArgument() {}

func (a TypeArg) String() string  { return a.Ty.String() }
func (a ConstArg) String() string { return a.C.String() }

// Inst is an instantiation of a definition's parameters. A nil slot means
// the parameter is still generic (partial monomorphization).
type Inst = []Argument

// InstString renders an instantiation for messages and metadata, with "_"
// for undecided slots.
func InstString(inst Inst) string {
	parts := make([]string, len(inst))
	for i, a := range inst {
		if a == nil {
			parts[i] = "_"
		} else {
			parts[i] = a.String()
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// InstKey renders an instantiation as an injective cache key. Unlike
// String, the encoding disambiguates every constructor, so two distinct
// instantiations never collide.
func InstKey(inst Inst) string {
	var sb strings.Builder
	for i, a := range inst {
		if i > 0 {
			sb.WriteByte(',')
		}
		if a == nil {
			sb.WriteByte('_')
		} else {
			writeArgKey(&sb, a)
		}
	}
	return sb.String()
}

func writeArgKey(sb *strings.Builder, a Argument) {
	switch arg := a.(type) {
	case TypeArg:
		sb.WriteByte('t')
		writeTypeKey(sb, arg.Ty)
	case ConstArg:
		sb.WriteByte('c')
		writeConstKey(sb, arg.C)
	}
}

func writeTypeKey(sb *strings.Builder, t Type) {
	switch ty := t.(type) {
	case NoneType:
		sb.WriteString("none")
	case BoolType:
		sb.WriteString("bool")
	case StringType:
		sb.WriteString("str")
	case NumericType:
		sb.WriteString(ty.Kind.String())
	case QubitType:
		sb.WriteString("qubit")
	case *ArrayType:
		if ty.Borrowed {
			sb.WriteString("barr(")
		} else {
			sb.WriteString("arr(")
		}
		writeTypeKey(sb, ty.Elem)
		sb.WriteByte(';')
		writeConstKey(sb, ty.Len)
		sb.WriteByte(')')
	case *TupleType:
		sb.WriteString("tup(")
		for i, e := range ty.Elements {
			if i > 0 {
				sb.WriteByte(';')
			}
			writeTypeKey(sb, e)
		}
		sb.WriteByte(')')
	case *StructType:
		fmt.Fprintf(sb, "stru%d(", ty.Decl.StructId())
		for i, a := range ty.Args {
			if i > 0 {
				sb.WriteByte(';')
			}
			writeArgKey(sb, a)
		}
		sb.WriteByte(')')
	case *EnumType:
		fmt.Fprintf(sb, "enum%d(", ty.Decl.EnumId())
		for i, a := range ty.Args {
			if i > 0 {
				sb.WriteByte(';')
			}
			writeArgKey(sb, a)
		}
		sb.WriteByte(')')
	case *FuncType:
		fmt.Fprintf(sb, "fn%d(", len(ty.Params))
		for i, in := range ty.Inputs {
			if i > 0 {
				sb.WriteByte(';')
			}
			if in.Owned {
				sb.WriteByte('!')
			}
			writeTypeKey(sb, in.Ty)
		}
		sb.WriteString("->")
		writeTypeKey(sb, ty.Output)
		sb.WriteByte(')')
	case BoundTypeVar:
		fmt.Fprintf(sb, "b%d", ty.Idx)
	case ExistentialTypeVar:
		fmt.Fprintf(sb, "e%d", ty.ID)
	}
}

func writeConstKey(sb *strings.Builder, c Const) {
	switch cv := c.(type) {
	case ConstValue:
		sb.WriteString("v(")
		writeTypeKey(sb, cv.Ty)
		sb.WriteByte('=')
		sb.WriteString(cv.Val.String())
		sb.WriteByte(')')
	case BoundConstVar:
		fmt.Fprintf(sb, "b%d", cv.Idx)
	case ExistentialConstVar:
		fmt.Fprintf(sb, "e%d", cv.ID)
	}
}

// TypeKey renders one type as an injective cache key.
func TypeKey(t Type) string {
	var sb strings.Builder
	writeTypeKey(&sb, t)
	return sb.String()
}
