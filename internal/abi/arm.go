package abi

import (
	"context"

	"callconv/internal/lltype"
	"callconv/internal/types"
)

// ARMInfo implements the APCS-style ARM convention: aggregates travel as
// arrays of words and only word-sized aggregates come back in a register.
type ARMInfo struct {
	base
}

func (*ARMInfo) Name() string { return "arm" }

func (a *ARMInfo) ClassifyReturn(ret types.TypeID) ArgInfo {
	if a.types.IsVoid(ret) {
		return Ignore()
	}
	if !a.types.IsAggregate(ret) {
		return Direct()
	}
	size, ok := a.sizeBits(ret)
	if ok && size <= 32 {
		return Coerce(lltype.I32)
	}
	return Indirect(0)
}

func (a *ARMInfo) ClassifyArgument(arg types.TypeID) ArgInfo {
	if !a.types.IsAggregate(arg) {
		return Direct()
	}
	size, ok := a.sizeBits(arg)
	if !ok {
		return Indirect(0)
	}
	align, _ := a.alignBits(arg)
	elem, words := lltype.I32, (size+31)/32
	if align > 32 {
		elem, words = lltype.I64, (size+63)/64
	}
	return Coerce(lltype.PackedStruct(lltype.Array(elem, int(words))))
}

func (a *ARMInfo) ComputeInfo(_ context.Context, fi *FunctionInfo) {
	computeDefault(a, fi)
}
