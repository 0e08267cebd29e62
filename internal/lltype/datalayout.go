package lltype

import "callconv/internal/layout"

// DataLayout holds the size and alignment rules for physical types on one
// target. All values are in bytes.
type DataLayout struct {
	PtrSize     int
	PtrAlign    int
	I64Align    int
	DoubleAlign int
	FP80Size    int
	FP80Align   int
}

// DataLayoutFor derives the physical layout rules from a target.
func DataLayoutFor(t layout.Target) DataLayout {
	dl := DataLayout{
		PtrSize:     t.PtrSize,
		PtrAlign:    t.PtrAlign,
		I64Align:    t.Int64Align,
		DoubleAlign: t.DoubleAlign,
		FP80Size:    16,
		FP80Align:   16,
	}
	if t.LongDoubleX87 {
		dl.FP80Size = t.LongDoubleSize
		dl.FP80Align = t.LongDoubleAlign
	}
	return dl
}

// AllocSize returns the number of bytes an alloca of t occupies, including
// tail padding.
func (dl DataLayout) AllocSize(t Type) int {
	switch t.kind {
	case KindVoid:
		return 0
	case KindInt:
		return roundUp(dl.StoreSize(t), dl.ABIAlign(t))
	case KindFloat:
		return 4
	case KindDouble:
		return 8
	case KindX86FP80:
		return dl.FP80Size
	case KindPointer:
		return dl.PtrSize
	case KindStruct:
		size, _ := dl.structLayout(t)
		return size
	case KindArray:
		return t.n * dl.AllocSize(t.Elem())
	case KindVector:
		return roundUp(dl.StoreSize(t), dl.ABIAlign(t))
	}
	return 0
}

// StoreSize returns the number of bytes written by a store of t.
func (dl DataLayout) StoreSize(t Type) int {
	switch t.kind {
	case KindInt:
		return (t.bits + 7) / 8
	case KindX86FP80:
		return 10
	case KindVector:
		return t.n * dl.StoreSize(t.Elem())
	}
	return dl.AllocSize(t)
}

// ABIAlign returns the ABI alignment of t.
func (dl DataLayout) ABIAlign(t Type) int {
	switch t.kind {
	case KindInt:
		size := nextPow2((t.bits + 7) / 8)
		if size >= 8 {
			return dl.I64Align
		}
		return size
	case KindFloat:
		return 4
	case KindDouble:
		return dl.DoubleAlign
	case KindX86FP80:
		return dl.FP80Align
	case KindPointer:
		return dl.PtrAlign
	case KindStruct:
		_, align := dl.structLayout(t)
		return align
	case KindArray:
		return dl.ABIAlign(t.Elem())
	case KindVector:
		return min(nextPow2(t.n*dl.StoreSize(t.Elem())), 16)
	}
	return 1
}

// ElementOffset returns the byte offset of element i in struct t.
func (dl DataLayout) ElementOffset(t Type, i int) int {
	off := 0
	for j, e := range t.elems {
		if !t.packed {
			off = roundUp(off, dl.ABIAlign(e))
		}
		if j == i {
			return off
		}
		off += dl.AllocSize(e)
	}
	return off
}

func (dl DataLayout) structLayout(t Type) (int, int) {
	off, align := 0, 1
	for _, e := range t.elems {
		if !t.packed {
			a := dl.ABIAlign(e)
			off = roundUp(off, a)
			align = max(align, a)
		}
		off += dl.AllocSize(e)
	}
	return roundUp(off, align), align
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	if r := n % align; r != 0 {
		return n + align - r
	}
	return n
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
