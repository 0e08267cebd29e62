package abi

import (
	"context"

	"callconv/internal/layout"
	"callconv/internal/lltype"
	"callconv/internal/types"
)

// Info is a target's parameter classifier.
type Info interface {
	// Name identifies the convention in dumps.
	Name() string
	ClassifyReturn(ret types.TypeID) ArgInfo
	ClassifyArgument(arg types.TypeID) ArgInfo
	// ComputeInfo fills every disposition of a freshly built FunctionInfo.
	ComputeInfo(ctx context.Context, fi *FunctionInfo)
}

// ForTarget selects the classifier for the conv's target architecture.
func ForTarget(conv *lltype.Converter) Info {
	b := base{types: conv.Types, layout: conv.Layout, conv: conv}
	switch conv.Layout.Target.Arch {
	case layout.ArchX86_64:
		return &X86_64Info{base: b}
	case layout.ArchX86:
		return &X86_32Info{base: b, structReturnInRegs: conv.Layout.Target.StructReturnInRegs}
	case layout.ArchARM:
		return &ARMInfo{base: b}
	default:
		return &DefaultInfo{base: b}
	}
}

// base carries the type context every classifier needs.
type base struct {
	types  *types.Interner
	layout *layout.LayoutEngine
	conv   *lltype.Converter
}

// sizeBits returns the size of id in bits. ok is false when the type has no
// layout; callers then fall back to Indirect.
func (b base) sizeBits(id types.TypeID) (uint64, bool) {
	l, err := b.layout.LayoutOf(id)
	if err != nil {
		return 0, false
	}
	return l.SizeInBits(), true
}

func (b base) alignBits(id types.TypeID) (uint64, bool) {
	l, err := b.layout.LayoutOf(id)
	if err != nil {
		return 0, false
	}
	return l.AlignInBits(), true
}

func (b base) lookup(id types.TypeID) (types.Type, bool) {
	return b.types.Lookup(id)
}

// computeDefault classifies the result and every argument independently.
func computeDefault(info Info, fi *FunctionInfo) {
	fi.ret.Info = info.ClassifyReturn(fi.ret.Type)
	for i := range fi.args {
		fi.args[i].Info = info.ClassifyArgument(fi.args[i].Type)
	}
}

// DefaultInfo is the fallback convention: aggregates go through memory and
// scalars are passed directly.
type DefaultInfo struct {
	base
}

func (*DefaultInfo) Name() string { return "default" }

func (d *DefaultInfo) ClassifyReturn(ret types.TypeID) ArgInfo {
	if d.types.IsVoid(ret) {
		return Ignore()
	}
	return d.ClassifyArgument(ret)
}

func (d *DefaultInfo) ClassifyArgument(arg types.TypeID) ArgInfo {
	if d.types.IsAggregate(arg) {
		return Indirect(0)
	}
	if _, ok := d.sizeBits(arg); !ok {
		return Indirect(0)
	}
	return Direct()
}

func (d *DefaultInfo) ComputeInfo(_ context.Context, fi *FunctionInfo) {
	computeDefault(d, fi)
}
