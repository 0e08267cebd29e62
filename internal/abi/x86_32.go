package abi

import (
	"context"

	"callconv/internal/lltype"
	"callconv/internal/types"
)

// X86_32Info implements the i386 System V convention, with the Darwin
// variant that returns small structures in registers.
type X86_32Info struct {
	base
	structReturnInRegs bool
}

func (*X86_32Info) Name() string { return "x86-32" }

func (x *X86_32Info) ClassifyReturn(ret types.TypeID) ArgInfo {
	if x.types.IsVoid(ret) {
		return Ignore()
	}
	if !x.types.IsAggregate(ret) {
		return Direct()
	}
	// Without the small-struct convention only complex values come back in
	// registers.
	if !x.structReturnInRegs && !x.types.IsComplex(ret) {
		return Indirect(0)
	}

	if elem, ok := x.types.SingleElement(ret); ok {
		if t, ok := x.singleElementType(elem); ok {
			return Coerce(t)
		}
	}

	size, ok := x.sizeBits(ret)
	if !ok {
		return Indirect(0)
	}
	switch size {
	case 8, 16, 32, 64:
		return Coerce(lltype.Int(int(size)))
	default:
		return Indirect(0)
	}
}

// singleElementType maps the scalar leaf of a single-element struct to the
// register type it is returned in.
func (x *X86_32Info) singleElementType(elem types.TypeID) (lltype.Type, bool) {
	tt, ok := x.lookup(elem)
	if !ok {
		return lltype.Type{}, false
	}
	switch tt.Kind {
	case types.KindBool, types.KindInt, types.KindUint:
		size, ok := x.sizeBits(elem)
		if !ok {
			return lltype.Type{}, false
		}
		return lltype.Int(int(size)), true
	case types.KindFloat:
		switch tt.Width {
		case types.Width32:
			return lltype.Float, true
		case types.Width64:
			return lltype.Double, true
		}
	case types.KindPointer:
		return lltype.Ptr, true
	}
	return lltype.Type{}, false
}

func (x *X86_32Info) ClassifyArgument(arg types.TypeID) ArgInfo {
	if !x.types.IsAggregate(arg) {
		return Direct()
	}
	if x.types.IsStructure(arg) && x.types.HasFlexibleArrayMember(arg) {
		return Indirect(0)
	}
	size, ok := x.sizeBits(arg)
	if !ok {
		return Indirect(0)
	}
	if x.types.IsStructure(arg) {
		if size == 0 {
			return Ignore()
		}
		if size <= 128 && x.allFields32Or64BitBasic(arg) {
			return Expand()
		}
	}
	return Indirect(0)
}

// allFields32Or64BitBasic reports whether every field is a 32- or 64-bit
// builtin or pointer. Nested records never qualify.
func (x *X86_32Info) allFields32Or64BitBasic(id types.TypeID) bool {
	for _, f := range x.types.RecordFields(id) {
		if f.BitField {
			return false
		}
		tt, ok := x.lookup(f.Type)
		if !ok {
			return false
		}
		switch tt.Kind {
		case types.KindBool, types.KindInt, types.KindUint, types.KindFloat, types.KindPointer:
		default:
			return false
		}
		size, ok := x.sizeBits(f.Type)
		if !ok || (size != 32 && size != 64) {
			return false
		}
	}
	return true
}

func (x *X86_32Info) ComputeInfo(_ context.Context, fi *FunctionInfo) {
	computeDefault(x, fi)
}
