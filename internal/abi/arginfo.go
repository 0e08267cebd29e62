// Package abi decides how C-like function signatures cross the machine
// calling convention boundary. Each parameter and the result receive an
// ArgInfo disposition chosen by the target's classifier; Lower turns the
// dispositions into a physical signature with attributes.
package abi

import (
	"fmt"

	"callconv/internal/lltype"
)

// Kind enumerates passing strategies.
type Kind uint8

const (
	// KindDirect passes the value as its own physical type.
	KindDirect Kind = iota
	// KindIndirect passes the value in memory through a pointer.
	KindIndirect
	// KindIgnore passes nothing.
	KindIgnore
	// KindExpand passes each scalar leaf of a struct as a separate parameter.
	KindExpand
	// KindCoerce reinterprets the value's bytes as a different physical type.
	KindCoerce
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "Direct"
	case KindIndirect:
		return "Indirect"
	case KindIgnore:
		return "Ignore"
	case KindExpand:
		return "Expand"
	case KindCoerce:
		return "Coerce"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// ArgInfo is the disposition of one parameter or of the result.
// Coerce carries its target type and Indirect its alignment; the other kinds
// carry nothing.
type ArgInfo struct {
	kind     Kind
	coerceTo lltype.Type
	align    int
}

func Direct() ArgInfo { return ArgInfo{kind: KindDirect} }
func Ignore() ArgInfo { return ArgInfo{kind: KindIgnore} }
func Expand() ArgInfo { return ArgInfo{kind: KindExpand} }

// Indirect passes the value through memory. An alignment of 0 means "natural".
func Indirect(align int) ArgInfo {
	return ArgInfo{kind: KindIndirect, align: align}
}

// Coerce passes the value's bytes reinterpreted as t.
func Coerce(t lltype.Type) ArgInfo {
	return ArgInfo{kind: KindCoerce, coerceTo: t}
}

func (a ArgInfo) Kind() Kind       { return a.kind }
func (a ArgInfo) IsDirect() bool   { return a.kind == KindDirect }
func (a ArgInfo) IsIndirect() bool { return a.kind == KindIndirect }
func (a ArgInfo) IsIgnore() bool   { return a.kind == KindIgnore }
func (a ArgInfo) IsExpand() bool   { return a.kind == KindExpand }
func (a ArgInfo) IsCoerce() bool   { return a.kind == KindCoerce }

// CoerceToType returns the coercion target. Asking a non-Coerce disposition
// for it is a programming error.
func (a ArgInfo) CoerceToType() lltype.Type {
	if a.kind != KindCoerce {
		invariant("CoerceToType on %s disposition", a.kind)
	}
	return a.coerceTo
}

// IndirectAlign returns the alignment of an Indirect disposition.
func (a ArgInfo) IndirectAlign() int {
	if a.kind != KindIndirect {
		invariant("IndirectAlign on %s disposition", a.kind)
	}
	return a.align
}

// Equal compares two dispositions including their payloads.
func (a ArgInfo) Equal(o ArgInfo) bool {
	if a.kind != o.kind {
		return false
	}
	switch a.kind {
	case KindCoerce:
		return a.coerceTo.Equal(o.coerceTo)
	case KindIndirect:
		return a.align == o.align
	default:
		return true
	}
}

// String renders the disposition for dumps and reports, e.g.
// "Coerce(double)" or "Indirect(align=0)".
func (a ArgInfo) String() string {
	switch a.kind {
	case KindCoerce:
		return fmt.Sprintf("Coerce(%s)", a.coerceTo)
	case KindIndirect:
		return fmt.Sprintf("Indirect(align=%d)", a.align)
	default:
		return a.kind.String()
	}
}
