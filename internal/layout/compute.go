package layout

import (
	"fortio.org/safecast"

	"callconv/internal/types"
)

func (e *LayoutEngine) computeLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if id == types.NoTypeID || e.Types == nil {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsupported, Type: id}
	}
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsupported, Type: id}
	}

	switch tt.Kind {
	case types.KindVoid:
		return TypeLayout{Size: 0, Align: 1}, nil

	case types.KindBool:
		return TypeLayout{Size: 1, Align: 1}, nil

	case types.KindInt, types.KindUint:
		size := int(tt.Width) / 8
		if size <= 0 {
			return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsupported, Type: id}
		}
		if size == 8 {
			return TypeLayout{Size: 8, Align: e.orDefault(e.Target.Int64Align, 8)}, nil
		}
		return scalarLayoutBytes(size), nil

	case types.KindFloat:
		switch tt.Width {
		case types.Width32:
			return scalarLayoutBytes(4), nil
		case types.Width64:
			return TypeLayout{Size: 8, Align: e.orDefault(e.Target.DoubleAlign, 8)}, nil
		case types.Width80:
			return TypeLayout{
				Size:  e.orDefault(e.Target.LongDoubleSize, 16),
				Align: e.orDefault(e.Target.LongDoubleAlign, 16),
			}, nil
		default:
			return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsupported, Type: id}
		}

	case types.KindPointer:
		return e.ptrLayout(), nil

	case types.KindEnum:
		return e.layoutOf(tt.Elem, state)

	case types.KindComplex:
		el, err := e.layoutOf(tt.Elem, state)
		if err != nil {
			return el, err
		}
		return TypeLayout{Size: 2 * el.Size, Align: el.Align}, nil

	case types.KindVector:
		el, err := e.layoutOf(tt.Elem, state)
		if err != nil {
			return el, err
		}
		n, convErr := safecast.Conv[int](tt.Count)
		if convErr != nil {
			return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsupported, Type: id}
		}
		size := nextPow2(el.Size * n)
		return TypeLayout{Size: size, Align: maxInt(size, 1)}, nil

	case types.KindArray:
		return e.arrayLayout(id, tt, state)

	case types.KindStruct:
		return e.structLayout(id, state)

	case types.KindUnion:
		return e.unionLayout(id, state)

	default:
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsupported, Type: id}
	}
}

func (e *LayoutEngine) ptrLayout() TypeLayout {
	ptrSize := e.orDefault(e.Target.PtrSize, 8)
	return TypeLayout{Size: ptrSize, Align: e.orDefault(e.Target.PtrAlign, ptrSize)}
}

func (e *LayoutEngine) orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

func scalarLayoutBytes(size int) TypeLayout {
	if size <= 0 {
		return TypeLayout{Size: 0, Align: 1}
	}
	return TypeLayout{Size: size, Align: size}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	r := n % align
	if r == 0 {
		return n
	}
	return n + (align - r)
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (e *LayoutEngine) arrayLayout(id types.TypeID, tt types.Type, state *layoutState) (TypeLayout, *LayoutError) {
	el, err := e.layoutOf(tt.Elem, state)
	if err != nil {
		return el, err
	}
	elemAlign := maxInt(el.Align, 1)
	if tt.Count == types.ArrayFlexible {
		return TypeLayout{Size: 0, Align: elemAlign}, nil
	}
	n, convErr := safecast.Conv[int](tt.Count)
	if convErr != nil {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrUnsupported, Type: id}
	}
	return TypeLayout{
		Size:  roundUp(el.Size, elemAlign) * n,
		Align: elemAlign,
	}, nil
}

// structLayout places fields in declaration order. Bit-fields share a
// storage unit of their declared type while they fit in one aligned unit;
// a zero-width bit-field closes the current unit. Packed records ignore
// alignment and place bit-fields back to back.
func (e *LayoutEngine) structLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	info, ok := e.Types.RecordInfo(id)
	if !ok || !info.Complete {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrIncomplete, Type: id}
	}
	fields := info.Fields
	offsets := make([]int, len(fields))
	aligns := make([]int, len(fields))

	bits := 0
	align := 1
	for i, f := range fields {
		fl, err := e.layoutOf(f.Type, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		if isFlexible(e.Types, f.Type) && i != len(fields)-1 {
			return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrFlexibleNotLast, Type: id, Field: f.Name}
		}
		fAlign := maxInt(fl.Align, 1)
		if info.Packed {
			fAlign = 1
		}
		aligns[i] = fAlign

		if f.BitField {
			unitBits := fl.Size * 8
			width, convErr := safecast.Conv[int](f.BitWidth)
			if convErr != nil || width > unitBits {
				return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrBitWidth, Type: id, Field: f.Name}
			}
			unitAlignBits := maxInt(fl.Align, 1) * 8
			switch {
			case width == 0:
				if !info.Packed {
					bits = roundUp(bits, unitAlignBits)
				}
			case !info.Packed:
				start := bits - bits%unitAlignBits
				if bits+width > start+unitBits {
					bits = roundUp(bits, unitAlignBits)
				}
			}
			offsets[i] = bits
			bits += width
			if !info.Packed && width > 0 {
				align = maxInt(align, fl.Align)
			}
			continue
		}

		bits = roundUp(bits, fAlign*8)
		offsets[i] = bits
		bits += fl.Size * 8
		align = maxInt(align, fAlign)
	}
	size := roundUp(roundUp(bits, 8)/8, align)
	return TypeLayout{
		Size:            size,
		Align:           align,
		FieldBitOffsets: offsets,
		FieldAligns:     aligns,
	}, nil
}

func (e *LayoutEngine) unionLayout(id types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	info, ok := e.Types.RecordInfo(id)
	if !ok || !info.Complete {
		return TypeLayout{Size: 0, Align: 1}, &LayoutError{Kind: LayoutErrIncomplete, Type: id}
	}
	offsets := make([]int, len(info.Fields))
	aligns := make([]int, len(info.Fields))
	size := 0
	align := 1
	for i, f := range info.Fields {
		fl, err := e.layoutOf(f.Type, state)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		fAlign := maxInt(fl.Align, 1)
		if info.Packed {
			fAlign = 1
		}
		aligns[i] = fAlign
		fSize := fl.Size
		if f.BitField {
			fSize = (int(f.BitWidth) + 7) / 8
			if f.BitWidth == 0 {
				continue
			}
		}
		size = maxInt(size, fSize)
		align = maxInt(align, fAlign)
	}
	return TypeLayout{
		Size:            roundUp(size, align),
		Align:           align,
		FieldBitOffsets: offsets,
		FieldAligns:     aligns,
	}, nil
}

func isFlexible(in *types.Interner, id types.TypeID) bool {
	tt, ok := in.Lookup(id)
	return ok && tt.Kind == types.KindArray && tt.Count == types.ArrayFlexible
}
