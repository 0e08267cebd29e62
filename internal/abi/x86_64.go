package abi

import (
	"context"
	"fmt"
	"strconv"

	"callconv/internal/lltype"
	"callconv/internal/trace"
	"callconv/internal/types"
)

const (
	x86_64IntRegs = 6
	x86_64SSERegs = 8
)

// X86_64Info implements the System V AMD64 convention.
type X86_64Info struct {
	base
}

func (*X86_64Info) Name() string { return "x86-64" }

// memoryAt is the classification of a value that must live in memory,
// placed in the eightbyte containing offset.
func memoryAt(offset uint64) Classification {
	if offset < 64 {
		return Classification{Lo: Memory, Hi: Memory}
	}
	return Classification{Lo: NoClass, Hi: Memory}
}

// at places class c in the eightbyte containing offset.
func at(offset uint64, c Class) Classification {
	if offset < 64 {
		return Classification{Lo: c, Hi: NoClass}
	}
	return Classification{Lo: NoClass, Hi: c}
}

// Classify returns the eightbyte classes of id placed at offset bits inside
// an enclosing object. Classify(id, 0) is the classification of id itself.
func (x *X86_64Info) Classify(id types.TypeID, offset uint64) Classification {
	tt, ok := x.lookup(id)
	if !ok {
		return memoryAt(offset)
	}
	switch tt.Kind {
	case types.KindVoid:
		return Classification{Lo: NoClass, Hi: NoClass}

	case types.KindBool, types.KindInt, types.KindUint, types.KindPointer:
		return at(offset, Integer)

	case types.KindEnum:
		return x.Classify(tt.Elem, offset)

	case types.KindFloat:
		if tt.Width == types.Width80 {
			if x.layout.Target.LongDoubleX87 {
				return Classification{Lo: X87, Hi: X87Up}
			}
			return at(offset, SSE)
		}
		return at(offset, SSE)

	case types.KindVector:
		return x.classifyVector(id, tt, offset)

	case types.KindComplex:
		return x.classifyComplex(id, tt, offset)

	case types.KindArray:
		return x.classifyArray(id, tt, offset)

	case types.KindStruct, types.KindUnion:
		return x.classifyRecord(id, offset)

	default:
		return memoryAt(offset)
	}
}

func (x *X86_64Info) classifyVector(id types.TypeID, tt types.Type, offset uint64) Classification {
	size, ok := x.sizeBits(id)
	if !ok {
		return memoryAt(offset)
	}
	switch size {
	case 32:
		c := at(offset, Integer)
		// A 32-bit vector straddling the eightbyte boundary occupies both.
		if offset/64 != (offset+size-1)/64 {
			c.Hi = c.Lo
		}
		return c
	case 64:
		elem, _ := x.lookup(tt.Elem)
		var c Classification
		switch {
		case elem.Kind == types.KindFloat && elem.Width == types.Width64:
			// <1 x double> is passed in memory.
			return memoryAt(offset)
		case elem.Kind == types.KindInt && elem.Width == types.Width64:
			c = at(offset, Integer)
		default:
			c = at(offset, SSE)
		}
		if offset != 0 && offset != 64 {
			c.Hi = c.Lo
		}
		return c
	case 128:
		return Classification{Lo: SSE, Hi: SSEUp}
	default:
		return memoryAt(offset)
	}
}

func (x *X86_64Info) classifyComplex(id types.TypeID, tt types.Type, offset uint64) Classification {
	size, ok := x.sizeBits(id)
	if !ok {
		return memoryAt(offset)
	}
	elem, _ := x.lookup(tt.Elem)
	var c Classification
	switch {
	case x.types.IsIntegral(tt.Elem):
		switch {
		case size <= 64:
			c = at(offset, Integer)
		case size <= 128:
			c = Classification{Lo: Integer, Hi: Integer}
		default:
			return memoryAt(offset)
		}
	case elem.Kind == types.KindFloat && elem.Width == types.Width32:
		c = at(offset, SSE)
	case elem.Kind == types.KindFloat && elem.Width == types.Width64:
		c = Classification{Lo: SSE, Hi: SSE}
	case elem.Kind == types.KindFloat && elem.Width == types.Width80:
		if !x.layout.Target.LongDoubleX87 {
			c = Classification{Lo: SSE, Hi: SSE}
			break
		}
		return Classification{Lo: ComplexX87, Hi: ComplexX87}
	default:
		return memoryAt(offset)
	}

	// A complex value whose imaginary part starts in the next eightbyte
	// occupies both.
	elemSize, ok := x.sizeBits(tt.Elem)
	if ok && c.Hi == NoClass && offset/64 != (offset+elemSize)/64 {
		c.Hi = c.Lo
	}
	return c
}

func (x *X86_64Info) classifyArray(id types.TypeID, tt types.Type, offset uint64) Classification {
	if tt.Count == types.ArrayFlexible {
		return memoryAt(offset)
	}
	size, ok := x.sizeBits(id)
	if !ok || size > 128 {
		return memoryAt(offset)
	}
	elemAlign, ok := x.alignBits(tt.Elem)
	if !ok || offset%elemAlign != 0 {
		return memoryAt(offset)
	}
	elemSize, ok := x.sizeBits(tt.Elem)
	if !ok {
		return memoryAt(offset)
	}

	c := Classification{Lo: NoClass, Hi: NoClass}
	for i := uint64(0); i < uint64(tt.Count); i++ {
		fc := x.Classify(tt.Elem, offset+i*elemSize)
		c.Lo = Merge(c.Lo, fc.Lo)
		c.Hi = Merge(c.Hi, fc.Hi)
		if c.Lo == Memory || c.Hi == Memory {
			break
		}
	}
	if c.Hi == Memory {
		c.Lo = Memory
	}
	return c
}

func (x *X86_64Info) classifyRecord(id types.TypeID, offset uint64) Classification {
	size, ok := x.sizeBits(id)
	if !ok || size > 128 {
		return memoryAt(offset)
	}
	if x.types.HasFlexibleArrayMember(id) {
		return memoryAt(offset)
	}
	l, err := x.layout.LayoutOf(id)
	if err != nil {
		return memoryAt(offset)
	}

	c := Classification{Lo: NoClass, Hi: NoClass}
	for i, f := range x.types.RecordFields(id) {
		fieldOffset := offset + uint64(l.FieldBitOffsets[i])

		var fc Classification
		if f.BitField {
			if f.BitWidth == 0 {
				continue
			}
			ebLo := fieldOffset / 64
			ebHi := (fieldOffset + uint64(f.BitWidth) - 1) / 64
			if ebLo != 0 {
				if ebHi != ebLo {
					invariant("bit-field %q crosses past the second eightbyte", f.Name)
				}
				fc = Classification{Lo: NoClass, Hi: Integer}
			} else {
				fc = Classification{Lo: Integer, Hi: NoClass}
				if ebHi != 0 {
					fc.Hi = Integer
				}
			}
		} else {
			fieldAlign, ok := x.alignBits(f.Type)
			if !ok || fieldOffset%fieldAlign != 0 {
				return Classification{Lo: Memory, Hi: Memory}
			}
			fc = x.Classify(f.Type, fieldOffset)
		}

		c.Lo = Merge(c.Lo, fc.Lo)
		c.Hi = Merge(c.Hi, fc.Hi)
		if c.Lo == Memory || c.Hi == Memory {
			break
		}
	}

	if c.Hi == Memory {
		c.Lo = Memory
	}
	if c.Hi == SSEUp && c.Lo != SSE {
		c.Hi = SSE
	}
	return c
}

// coerceResult simplifies a register type back to Direct when it is the
// type's own physical representation.
func (x *X86_64Info) coerceResult(id types.TypeID, t lltype.Type) ArgInfo {
	switch {
	case t.Equal(lltype.I64):
		if x.types.IsIntegral(id) || x.types.IsPointer(id) {
			return Direct()
		}
	case t.Equal(lltype.Double):
		if x.types.IsRealFloating(id) {
			return Direct()
		}
	}
	if !x.types.IsAggregate(id) {
		if own, err := x.conv.ConvertType(id); err == nil && own.Equal(t) {
			return Direct()
		}
	}
	return Coerce(t)
}

func (x *X86_64Info) ClassifyReturn(ret types.TypeID) ArgInfo {
	c := x.Classify(ret, 0)
	c.Validate()

	var res lltype.Type
	switch c.Lo {
	case NoClass:
		return Ignore()
	case SSEUp, X87Up:
		invariant("invalid low classification %s for result", c)
	case Memory:
		return Indirect(0)
	case Integer:
		res = lltype.I64
	case SSE:
		res = lltype.Double
	case X87:
		res = lltype.X86FP80
	case ComplexX87:
		if c.Hi != ComplexX87 {
			invariant("unexpected ComplexX87 classification %s", c)
		}
		res = lltype.Struct(lltype.X86FP80, lltype.X86FP80)
	}

	switch c.Hi {
	case Memory, X87:
		invariant("invalid high classification %s for result", c)
	case ComplexX87, NoClass:
	case Integer:
		res = lltype.Struct(res, lltype.I64)
	case SSE:
		res = lltype.Struct(res, lltype.Double)
	case SSEUp:
		res = lltype.Vector(lltype.Double, 2)
	case X87Up:
		// X87Up after X87 is the upper half of one long double. Otherwise
		// the high part is returned in an SSE register.
		if c.Lo != X87 {
			res = lltype.Struct(res, lltype.Double)
		}
	}
	return x.coerceResult(ret, res)
}

func (x *X86_64Info) ClassifyArgument(arg types.TypeID) ArgInfo {
	info, _, _ := x.ClassifyArgumentRegs(arg)
	return info
}

// ClassifyArgumentRegs classifies an argument and reports how many integer
// and SSE registers it needs when passed in registers.
func (x *X86_64Info) ClassifyArgumentRegs(arg types.TypeID) (ArgInfo, int, int) {
	c := x.Classify(arg, 0)
	c.Validate()

	neededInt, neededSSE := 0, 0
	var res lltype.Type
	switch c.Lo {
	case NoClass:
		return Ignore(), 0, 0
	case Memory, X87, ComplexX87:
		return Indirect(0), 0, 0
	case SSEUp, X87Up:
		invariant("invalid low classification %s for argument", c)
	case Integer:
		neededInt++
		res = lltype.I64
	case SSE:
		neededSSE++
		res = lltype.Double
	}

	switch c.Hi {
	case Memory, X87, ComplexX87:
		invariant("invalid high classification %s for argument", c)
	case NoClass:
	case Integer:
		res = lltype.Struct(res, lltype.I64)
		neededInt++
	case X87Up, SSE:
		// X87Up here comes from a union overlaying a long double.
		res = lltype.Struct(res, lltype.Double)
		neededSSE++
	case SSEUp:
		res = lltype.Vector(lltype.Double, 2)
	}
	return x.coerceResult(arg, res), neededInt, neededSSE
}

// ComputeInfo classifies the result and then each argument left to right
// against a budget of 6 integer and 8 SSE registers. An argument that does
// not fit entirely is demoted to Indirect; earlier arguments keep their
// registers.
func (x *X86_64Info) ComputeInfo(ctx context.Context, fi *FunctionInfo) {
	tracer := trace.FromContext(ctx)
	fi.ret.Info = x.ClassifyReturn(fi.ret.Type)

	freeInt, freeSSE := x86_64IntRegs, x86_64SSERegs
	for i := range fi.args {
		info, needInt, needSSE := x.ClassifyArgumentRegs(fi.args[i].Type)
		if freeInt >= needInt && freeSSE >= needSSE {
			freeInt -= needInt
			freeSSE -= needSSE
			fi.args[i].Info = info
			continue
		}
		fi.args[i].Info = Indirect(0)
		trace.Point(tracer, trace.ScopeArgument, "abi.demote", fmt.Sprintf("arg %d", i), map[string]string{
			"type":     x.types.TypeString(fi.args[i].Type),
			"need_int": strconv.Itoa(needInt),
			"need_sse": strconv.Itoa(needSSE),
			"free_int": strconv.Itoa(freeInt),
			"free_sse": strconv.Itoa(freeSSE),
		})
	}
}
