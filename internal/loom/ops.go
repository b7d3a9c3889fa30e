package loom

import (
	"fmt"
	"strconv"
	"strings"
)

// Op is the operation performed by a graph node. Every op knows its own
// port signature; the graph derives port counts from it.
type Op interface {
	// OpName is the stable qualified name recorded in envelopes.
	OpName() string
	// InPortTypes lists the value types expected on the node's input
	// ports, in port order.
	InPortTypes() []Type
	// OutPortTypes lists the value types produced on the node's output
	// ports, in port order.
	OutPortTypes() []Type
}

// Module is the root of every graph.
type Module struct{}

func (Module) OpName() string       { return "core.module" }
func (Module) InPortTypes() []Type  { return nil }
func (Module) OutPortTypes() []Type { return nil }

// FuncDefn defines a function. Its children form the body's dataflow
// region; its single output port carries the function value consumed by
// Call and LoadFunction nodes.
type FuncDefn struct {
	Name      string
	Signature *FuncType
}

func (o *FuncDefn) OpName() string       { return "core.func_defn" }
func (o *FuncDefn) InPortTypes() []Type  { return nil }
func (o *FuncDefn) OutPortTypes() []Type { return []Type{o.Signature} }

// FuncDecl declares an external function with no body.
type FuncDecl struct {
	Name      string
	Signature *FuncType
}

func (o *FuncDecl) OpName() string       { return "core.func_decl" }
func (o *FuncDecl) InPortTypes() []Type  { return nil }
func (o *FuncDecl) OutPortTypes() []Type { return []Type{o.Signature} }

// Input delimits the start of a dataflow region, sourcing the region's
// input values.
type Input struct {
	Types []Type
}

func (o *Input) OpName() string       { return "core.input" }
func (o *Input) InPortTypes() []Type  { return nil }
func (o *Input) OutPortTypes() []Type { return o.Types }

// Output delimits the end of a dataflow region, consuming the region's
// results.
type Output struct {
	Types []Type
}

func (o *Output) OpName() string       { return "core.output" }
func (o *Output) InPortTypes() []Type  { return o.Types }
func (o *Output) OutPortTypes() []Type { return nil }

// Call invokes a function definition or declaration. The last input port
// is the static function edge; Signature is the instantiated signature at
// this call site and TypeArgs record the instantiation of any remaining
// parameters of the callee.
type Call struct {
	Signature *FuncType
	TypeArgs  []TypeArg
}

func (o *Call) OpName() string { return "core.call" }

func (o *Call) InPortTypes() []Type {
	ins := make([]Type, 0, len(o.Signature.Inputs)+1)
	ins = append(ins, o.Signature.Inputs...)
	return append(ins, o.Signature)
}

func (o *Call) OutPortTypes() []Type { return o.Signature.Outputs }

// CallIndirect invokes a function value flowing on its first input port.
type CallIndirect struct {
	Signature *FuncType
}

func (o *CallIndirect) OpName() string { return "core.call_indirect" }

func (o *CallIndirect) InPortTypes() []Type {
	ins := make([]Type, 0, len(o.Signature.Inputs)+1)
	ins = append(ins, o.Signature)
	return append(ins, o.Signature.Inputs...)
}

func (o *CallIndirect) OutPortTypes() []Type { return o.Signature.Outputs }

// LoadFunction turns a function definition into a first-class function
// value. The input port is the static function edge.
type LoadFunction struct {
	Signature *FuncType // instantiated signature of the loaded value
	TypeArgs  []TypeArg
}

func (o *LoadFunction) OpName() string       { return "core.load_func" }
func (o *LoadFunction) InPortTypes() []Type  { return []Type{o.Signature} }
func (o *LoadFunction) OutPortTypes() []Type { return []Type{o.Signature} }

// ConstVal is a compile-time constant payload.
type ConstVal interface {
	fmt.Stringer
	constVal()
}

// IntVal is a signed integer constant.
type IntVal struct{ V int64 }

// NatVal is an unsigned integer constant.
type NatVal struct{ V uint64 }

// FloatVal is a float64 constant.
type FloatVal struct{ V float64 }

// BoolVal is a boolean constant.
type BoolVal struct{ B bool }

// StringVal is a string constant.
type StringVal struct{ S string }

func (v IntVal) String() string    { return strconv.FormatInt(v.V, 10) }
func (v NatVal) String() string    { return strconv.FormatUint(v.V, 10) }
func (v FloatVal) String() string  { return strconv.FormatFloat(v.V, 'g', -1, 64) }
func (v BoolVal) String() string   { return strconv.FormatBool(v.B) }
func (v StringVal) String() string { return strconv.Quote(v.S) }

func (IntVal) constVal()    {}
func (NatVal) constVal()    {}
func (FloatVal) constVal()  {}
func (BoolVal) constVal()   {}
func (StringVal) constVal() {}

// LoadConst materializes a constant value on its output port.
type LoadConst struct {
	Ty    Type
	Value ConstVal
}

func (o *LoadConst) OpName() string       { return "core.const" }
func (o *LoadConst) InPortTypes() []Type  { return nil }
func (o *LoadConst) OutPortTypes() []Type { return []Type{o.Ty} }

// MakeTuple packs its inputs into a tuple.
type MakeTuple struct {
	Types []Type
}

func (o *MakeTuple) OpName() string       { return "core.make_tuple" }
func (o *MakeTuple) InPortTypes() []Type  { return o.Types }
func (o *MakeTuple) OutPortTypes() []Type { return []Type{&TupleType{Elems: o.Types}} }

// UnpackTuple unpacks a tuple into its elements.
type UnpackTuple struct {
	Types []Type
}

func (o *UnpackTuple) OpName() string       { return "core.unpack_tuple" }
func (o *UnpackTuple) InPortTypes() []Type  { return []Type{&TupleType{Elems: o.Types}} }
func (o *UnpackTuple) OutPortTypes() []Type { return o.Types }

// Tag injects a payload into a sum type under the given tag.
type Tag struct {
	Variant int
	Sum     *SumType
}

func (o *Tag) OpName() string       { return "core.tag" }
func (o *Tag) InPortTypes() []Type  { return o.Sum.Rows[o.Variant] }
func (o *Tag) OutPortTypes() []Type { return []Type{o.Sum} }

// Conditional branches on the sum flowing into its first input port. Its
// children are Case regions, one per sum row, in tag order.
type Conditional struct {
	Sum     *SumType
	Other   []Type // inputs passed unchanged to every case
	Outputs []Type
}

func (o *Conditional) OpName() string { return "core.conditional" }

func (o *Conditional) InPortTypes() []Type {
	ins := make([]Type, 0, len(o.Other)+1)
	ins = append(ins, o.Sum)
	return append(ins, o.Other...)
}

func (o *Conditional) OutPortTypes() []Type { return o.Outputs }

// Case is one arm of a Conditional. Its dataflow region receives the
// variant payload followed by the conditional's other inputs.
type Case struct {
	Inputs  []Type
	Outputs []Type
}

func (o *Case) OpName() string       { return "core.case" }
func (o *Case) InPortTypes() []Type  { return nil }
func (o *Case) OutPortTypes() []Type { return nil }

// TailLoop repeats its child region until the region's control output
// selects the exit row.
type TailLoop struct {
	Inputs  []Type
	Outputs []Type
}

func (o *TailLoop) OpName() string       { return "core.tail_loop" }
func (o *TailLoop) InPortTypes() []Type  { return o.Inputs }
func (o *TailLoop) OutPortTypes() []Type { return o.Outputs }

// ExtOp is an operation provided by an extension, identified by the
// qualified "extension.name" pair.
type ExtOp struct {
	Extension string
	Name      string
	Args      []TypeArg
	Signature *FuncType
}

func (o *ExtOp) OpName() string       { return o.Extension + "." + o.Name }
func (o *ExtOp) InPortTypes() []Type  { return o.Signature.Inputs }
func (o *ExtOp) OutPortTypes() []Type { return o.Signature.Outputs }

// opLabel is the human-readable tag stored in envelopes next to the op
// name.
func opLabel(op Op) string {
	switch o := op.(type) {
	case *FuncDefn:
		return o.Name
	case *FuncDecl:
		return o.Name
	case *LoadConst:
		return o.Value.String()
	case *Tag:
		return "tag " + strconv.Itoa(o.Variant)
	case *ExtOp:
		if len(o.Args) == 0 {
			return ""
		}
		parts := make([]string, len(o.Args))
		for i, a := range o.Args {
			parts[i] = a.String()
		}
		return strings.Join(parts, ", ")
	default:
		return ""
	}
}
