package lltype

import (
	"fmt"

	"fortio.org/safecast"

	"callconv/internal/layout"
	"callconv/internal/types"
)

// Converter maps semantic types to their physical representation.
type Converter struct {
	Types  *types.Interner
	Layout *layout.LayoutEngine
	DL     DataLayout
}

// NewConverter builds a converter for the layout engine's target.
func NewConverter(typesIn *types.Interner, le *layout.LayoutEngine) *Converter {
	return &Converter{
		Types:  typesIn,
		Layout: le,
		DL:     DataLayoutFor(le.Target),
	}
}

// ConvertType returns the value representation of id: bool is i1 and
// aggregates are their in-memory struct or array type.
func (c *Converter) ConvertType(id types.TypeID) (Type, error) {
	return c.convert(id, false)
}

// ConvertTypeForMem returns the in-memory representation of id. It differs
// from ConvertType only for bool, which is stored as i8.
func (c *Converter) ConvertTypeForMem(id types.TypeID) (Type, error) {
	return c.convert(id, true)
}

// MustConvert is ConvertType for types that already passed layout.
func (c *Converter) MustConvert(id types.TypeID) Type {
	t, err := c.ConvertType(id)
	if err != nil {
		panic(err)
	}
	return t
}

// MustConvertForMem is ConvertTypeForMem for types that already passed layout.
func (c *Converter) MustConvertForMem(id types.TypeID) Type {
	t, err := c.ConvertTypeForMem(id)
	if err != nil {
		panic(err)
	}
	return t
}

func (c *Converter) convert(id types.TypeID, mem bool) (Type, error) {
	tt, ok := c.Types.Lookup(id)
	if !ok {
		return Type{}, fmt.Errorf("unknown type id %d", id)
	}
	switch tt.Kind {
	case types.KindVoid:
		return Void(), nil
	case types.KindBool:
		if mem {
			return I8, nil
		}
		return I1, nil
	case types.KindInt, types.KindUint:
		return Int(int(tt.Width)), nil
	case types.KindFloat:
		return c.floatType(tt.Width)
	case types.KindPointer:
		return Ptr, nil
	case types.KindEnum:
		return c.convert(tt.Elem, mem)
	case types.KindComplex:
		elem, err := c.convert(tt.Elem, true)
		if err != nil {
			return Type{}, err
		}
		return Struct(elem, elem), nil
	case types.KindVector:
		elem, err := c.convert(tt.Elem, false)
		if err != nil {
			return Type{}, err
		}
		n, err := safecast.Conv[int](tt.Count)
		if err != nil {
			return Type{}, err
		}
		return Vector(elem, n), nil
	case types.KindArray:
		elem, err := c.convert(tt.Elem, true)
		if err != nil {
			return Type{}, err
		}
		if tt.Count == types.ArrayFlexible {
			return Array(elem, 0), nil
		}
		n, err := safecast.Conv[int](tt.Count)
		if err != nil {
			return Type{}, err
		}
		return Array(elem, n), nil
	case types.KindStruct:
		return c.structType(id)
	case types.KindUnion:
		return c.unionType(id)
	default:
		return Type{}, fmt.Errorf("unsupported type kind %s", tt.Kind)
	}
}

func (c *Converter) floatType(w types.Width) (Type, error) {
	switch w {
	case types.Width32:
		return Float, nil
	case types.Width64:
		return Double, nil
	case types.Width80:
		if c.Layout.Target.LongDoubleX87 {
			return X86FP80, nil
		}
		return Double, nil
	default:
		return Type{}, fmt.Errorf("unsupported float width %d", w)
	}
}

type piece struct {
	off  int
	size int
	ty   Type
	bits bool
}

// structType lowers a struct to a packed literal struct with explicit byte
// padding so every field sits at its layout offset. Runs of bit-fields
// become byte arrays covering the bytes they touch.
func (c *Converter) structType(id types.TypeID) (Type, error) {
	l, err := c.Layout.LayoutOf(id)
	if err != nil {
		return Type{}, err
	}
	fields := c.Types.RecordFields(id)
	pieces := make([]piece, 0, len(fields))
	for i, f := range fields {
		off := l.FieldBitOffsets[i]
		if f.BitField {
			if f.BitWidth == 0 {
				continue
			}
			start := off / 8
			end := (off + int(f.BitWidth) + 7) / 8
			if n := len(pieces); n > 0 && pieces[n-1].bits && pieces[n-1].off+pieces[n-1].size >= start {
				last := &pieces[n-1]
				last.size = max(last.size, end-last.off)
				last.ty = Array(I8, last.size)
				continue
			}
			pieces = append(pieces, piece{off: start, size: end - start, ty: Array(I8, end-start), bits: true})
			continue
		}
		ft, err := c.convert(f.Type, true)
		if err != nil {
			return Type{}, err
		}
		pieces = append(pieces, piece{off: off / 8, size: c.DL.AllocSize(ft), ty: ft})
	}

	elems := make([]Type, 0, len(pieces)+2)
	cur := 0
	for _, p := range pieces {
		if p.off > cur {
			elems = append(elems, Array(I8, p.off-cur))
			cur = p.off
		}
		elems = append(elems, p.ty)
		cur += p.size
	}
	if l.Size > cur {
		elems = append(elems, Array(I8, l.Size-cur))
	}
	return PackedStruct(elems...), nil
}

// unionType lowers a union to its most aligned member followed by padding.
func (c *Converter) unionType(id types.TypeID) (Type, error) {
	l, err := c.Layout.LayoutOf(id)
	if err != nil {
		return Type{}, err
	}
	var (
		best      Type
		bestAlign int
		bestSize  int
		found     bool
	)
	for _, f := range c.Types.RecordFields(id) {
		if f.BitField {
			continue
		}
		ft, err := c.convert(f.Type, true)
		if err != nil {
			return Type{}, err
		}
		a, s := c.DL.ABIAlign(ft), c.DL.AllocSize(ft)
		if !found || a > bestAlign || (a == bestAlign && s > bestSize) {
			best, bestAlign, bestSize, found = ft, a, s, true
		}
	}
	if !found {
		return PackedStruct(Array(I8, l.Size)), nil
	}
	if l.Size > bestSize {
		return PackedStruct(best, Array(I8, l.Size-bestSize)), nil
	}
	return PackedStruct(best), nil
}
