// Package lltype models the physical LLVM types produced by ABI lowering and
// the data layout rules used to size them.
package lltype

import (
	"fmt"
	"strings"
)

// Kind enumerates physical type kinds.
type Kind uint8

const (
	KindVoid Kind = iota
	KindInt
	KindFloat
	KindDouble
	KindX86FP80
	KindPointer
	KindStruct
	KindArray
	KindVector
)

// Type is an immutable physical type. The zero value is void.
type Type struct {
	kind   Kind
	bits   int
	elems  []Type
	elem   *Type
	n      int
	packed bool
}

var (
	I1      = Int(1)
	I8      = Int(8)
	I16     = Int(16)
	I32     = Int(32)
	I64     = Int(64)
	Float   = Type{kind: KindFloat}
	Double  = Type{kind: KindDouble}
	X86FP80 = Type{kind: KindX86FP80}
	Ptr     = Type{kind: KindPointer}
)

// Void returns the void type.
func Void() Type { return Type{} }

// Int returns an integer type of the given bit width.
func Int(bits int) Type {
	return Type{kind: KindInt, bits: bits}
}

// Struct returns a literal struct with natural element alignment.
func Struct(elems ...Type) Type {
	return Type{kind: KindStruct, elems: append([]Type(nil), elems...)}
}

// PackedStruct returns a literal struct without inter-element padding.
func PackedStruct(elems ...Type) Type {
	return Type{kind: KindStruct, elems: append([]Type(nil), elems...), packed: true}
}

// Array returns [n x elem].
func Array(elem Type, n int) Type {
	e := elem
	return Type{kind: KindArray, elem: &e, n: n}
}

// Vector returns <n x elem>.
func Vector(elem Type, n int) Type {
	e := elem
	return Type{kind: KindVector, elem: &e, n: n}
}

func (t Type) Kind() Kind   { return t.kind }
func (t Type) Bits() int    { return t.bits }
func (t Type) Len() int     { return t.n }
func (t Type) Packed() bool { return t.packed }

// NumElems returns the number of struct elements.
func (t Type) NumElems() int { return len(t.elems) }

// ElemAt returns the i-th struct element.
func (t Type) ElemAt(i int) Type { return t.elems[i] }

// Elems returns a copy of the struct elements.
func (t Type) Elems() []Type {
	return append([]Type(nil), t.elems...)
}

// Elem returns the array or vector element type.
func (t Type) Elem() Type {
	if t.elem == nil {
		return Type{}
	}
	return *t.elem
}

func (t Type) IsVoid() bool { return t.kind == KindVoid }

// IsFloatingPoint reports float, double and x86_fp80.
func (t Type) IsFloatingPoint() bool {
	return t.kind == KindFloat || t.kind == KindDouble || t.kind == KindX86FP80
}

// IsAggregate reports struct and array types.
func (t Type) IsAggregate() bool {
	return t.kind == KindStruct || t.kind == KindArray
}

// Equal compares types structurally.
func (t Type) Equal(o Type) bool {
	if t.kind != o.kind {
		return false
	}
	switch t.kind {
	case KindInt:
		return t.bits == o.bits
	case KindStruct:
		if t.packed != o.packed || len(t.elems) != len(o.elems) {
			return false
		}
		for i := range t.elems {
			if !t.elems[i].Equal(o.elems[i]) {
				return false
			}
		}
		return true
	case KindArray, KindVector:
		return t.n == o.n && t.Elem().Equal(o.Elem())
	default:
		return true
	}
}

func (t Type) String() string {
	var sb strings.Builder
	t.write(&sb)
	return sb.String()
}

func (t Type) write(sb *strings.Builder) {
	switch t.kind {
	case KindVoid:
		sb.WriteString("void")
	case KindInt:
		fmt.Fprintf(sb, "i%d", t.bits)
	case KindFloat:
		sb.WriteString("float")
	case KindDouble:
		sb.WriteString("double")
	case KindX86FP80:
		sb.WriteString("x86_fp80")
	case KindPointer:
		sb.WriteString("ptr")
	case KindStruct:
		if t.packed {
			sb.WriteByte('<')
		}
		if len(t.elems) == 0 {
			sb.WriteString("{}")
		} else {
			sb.WriteString("{ ")
			for i, e := range t.elems {
				if i > 0 {
					sb.WriteString(", ")
				}
				e.write(sb)
			}
			sb.WriteString(" }")
		}
		if t.packed {
			sb.WriteByte('>')
		}
	case KindArray:
		fmt.Fprintf(sb, "[%d x ", t.n)
		t.Elem().write(sb)
		sb.WriteByte(']')
	case KindVector:
		fmt.Fprintf(sb, "<%d x ", t.n)
		t.Elem().write(sb)
		sb.WriteByte('>')
	}
}
