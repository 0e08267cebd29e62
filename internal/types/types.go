package types

import "fmt"

// TypeID uniquely identifies a type inside the interner.
type TypeID uint32

// NoTypeID marks the absence of a type.
const NoTypeID TypeID = 0

// Kind enumerates the semantic type kinds the ABI layer reasons about.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindVoid
	KindBool
	KindInt
	KindUint
	KindFloat
	KindPointer
	KindEnum
	KindComplex
	KindVector
	KindArray
	KindStruct
	KindUnion
)

func (k Kind) String() string {
	switch k {
	case KindInvalid:
		return "invalid"
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindUint:
		return "uint"
	case KindFloat:
		return "float"
	case KindPointer:
		return "pointer"
	case KindEnum:
		return "enum"
	case KindComplex:
		return "complex"
	case KindVector:
		return "vector"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindUnion:
		return "union"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Width captures the precision of integers/floats in bits.
type Width uint8

const (
	WidthAny Width = 0
	Width8   Width = 8
	Width16  Width = 16
	Width32  Width = 32
	Width64  Width = 64
	// Width80 is the extended-precision "long double". Its storage size is
	// target dependent.
	Width80 Width = 80
)

// ArrayFlexible marks a trailing flexible array member (T[]).
const ArrayFlexible = ^uint32(0)

// Type is a compact descriptor for any supported type.
type Type struct {
	Kind    Kind
	Elem    TypeID // pointee, element, or enum base
	Count   uint32 // arrays (ArrayFlexible for T[]) and vectors
	Width   Width  // numeric primitives
	Payload uint32 // record or enum slot
}

// Descriptor helpers ---------------------------------------------------------

// MakeInt describes a signed integer of the given width.
func MakeInt(width Width) Type {
	return Type{Kind: KindInt, Width: width}
}

// MakeUint describes an unsigned integer type.
func MakeUint(width Width) Type {
	return Type{Kind: KindUint, Width: width}
}

// MakeFloat describes a floating-point type (32, 64 or 80 bits).
func MakeFloat(width Width) Type {
	return Type{Kind: KindFloat, Width: width}
}

// MakePointer describes a data or function pointer.
func MakePointer(elem TypeID) Type {
	return Type{Kind: KindPointer, Elem: elem}
}

// MakeArray describes a fixed-size array. Use ArrayFlexible for a trailing
// flexible array member.
func MakeArray(elem TypeID, count uint32) Type {
	return Type{Kind: KindArray, Elem: elem, Count: count}
}

// MakeVector describes a SIMD vector of count elements.
func MakeVector(elem TypeID, count uint32) Type {
	return Type{Kind: KindVector, Elem: elem, Count: count}
}

// MakeComplex describes a complex number over a scalar element type.
func MakeComplex(elem TypeID) Type {
	return Type{Kind: KindComplex, Elem: elem}
}
