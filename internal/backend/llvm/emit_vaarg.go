package llvm

import (
	"errors"

	"callconv/internal/abi"
	"callconv/internal/layout"
	"callconv/internal/lltype"
	"callconv/internal/types"
)

// ErrVAArgUnsupported is returned for targets without a variadic reader.
var ErrVAArgUnsupported = errors.New("va_arg is not supported on this target")

// Register save area limits of the x86-64 va_list.
const (
	gpSaveAreaSize = 6 * 8
	fpSaveAreaSize = gpSaveAreaSize + 8*16
)

// vaListX86_64 is { gp_offset, fp_offset, overflow_arg_area, reg_save_area }.
var vaListX86_64 = lltype.Struct(lltype.I32, lltype.I32, lltype.Ptr, lltype.Ptr)

// EmitVAArg reads the next variadic argument of type ty through the va_list
// at vaList and returns the address of the fetched value.
func EmitVAArg(fe *FuncEmitter, vaList Value, ty types.TypeID) (Value, error) {
	switch fe.sess.Target.Arch {
	case layout.ArchX86_64:
		x, ok := fe.sess.ABI.(*abi.X86_64Info)
		if !ok {
			return Value{}, ErrVAArgUnsupported
		}
		return fe.vaArgX86_64(x, vaList, ty), nil
	case layout.ArchX86, layout.ArchARM:
		return fe.vaArgPointerBump(vaList, ty), nil
	default:
		return Value{}, ErrVAArgUnsupported
	}
}

// vaArgPointerBump handles a va_list that is a single pointer into the
// argument area, advanced in 4-byte slots.
func (fe *FuncEmitter) vaArgPointerBump(vaList Value, ty types.TypeID) Value {
	cur := fe.load(lltype.Ptr, vaList, fe.dl().PtrAlign, "ap.cur")
	step := roundUp(fe.sizeOf(ty), 4)
	next := fe.byteGEP(cur, constInt(lltype.I32, int64(step)), "ap.next")
	fe.store(next, vaList, fe.dl().PtrAlign)
	return cur
}

func (fe *FuncEmitter) vaArgX86_64(x *abi.X86_64Info, vaList Value, ty types.TypeID) Value {
	info, neededInt, neededSSE := x.ClassifyArgumentRegs(ty)
	if neededInt == 0 && neededSSE == 0 {
		return fe.vaArgFromMemory(vaList, ty)
	}

	var inRegs, gpOffsetP, gpOffset, fpOffsetP, fpOffset Value
	if neededInt > 0 {
		gpOffsetP = fe.structGEP(vaListX86_64, vaList, 0, "gp_offset_p")
		gpOffset = fe.load(lltype.I32, gpOffsetP, 4, "gp_offset")
		inRegs = fe.icmp("ule", gpOffset, constInt(lltype.I32, int64(gpSaveAreaSize-neededInt*8)), "fits_in_gp")
	}
	if neededSSE > 0 {
		fpOffsetP = fe.structGEP(vaListX86_64, vaList, 1, "fp_offset_p")
		fpOffset = fe.load(lltype.I32, fpOffsetP, 4, "fp_offset")
		fits := fe.icmp("ule", fpOffset, constInt(lltype.I32, int64(fpSaveAreaSize-neededSSE*16)), "fits_in_fp")
		if inRegs.IsValid() {
			inRegs = fe.binary("and", inRegs, fits, "")
		} else {
			inRegs = fits
		}
	}

	inRegBlock := fe.newBlock("vaarg.in_reg")
	inMemBlock := fe.newBlock("vaarg.in_mem")
	endBlock := fe.newBlock("vaarg.end")
	fe.condBr(inRegs, inRegBlock, inMemBlock)

	fe.startBlock(inRegBlock)
	regSaveP := fe.structGEP(vaListX86_64, vaList, 3, "")
	regSave := fe.load(lltype.Ptr, regSaveP, fe.dl().PtrAlign, "reg_save_area")

	var regAddr Value
	switch {
	case neededInt > 0 && neededSSE > 0:
		// One eightbyte in each register file; reassemble in memory.
		if !info.IsCoerce() {
			abi.Fatal("mixed register va_arg of %s is %s, want Coerce", fe.sess.Types.TypeString(ty), info)
		}
		st := info.CoerceToType()
		if st.Kind() != lltype.KindStruct || st.NumElems() != 2 {
			abi.Fatal("mixed register va_arg coerces to %s", st)
		}
		lo, hi := st.ElemAt(0), st.ElemAt(1)
		if lo.IsFloatingPoint() == hi.IsFloatingPoint() {
			abi.Fatal("mixed register va_arg coerces to %s", st)
		}
		tmp := fe.alloca(st, 0, "")
		gpAddr := fe.byteGEP(regSave, gpOffset, "")
		fpAddr := fe.byteGEP(regSave, fpOffset, "")
		loAddr, hiAddr := gpAddr, fpAddr
		if lo.IsFloatingPoint() {
			loAddr, hiAddr = fpAddr, gpAddr
		}
		v := fe.load(lo, loAddr, fe.dl().ABIAlign(lo), "")
		fe.store(v, fe.structGEP(st, tmp, 0, ""), fe.dl().ABIAlign(lo))
		v = fe.load(hi, hiAddr, fe.dl().ABIAlign(hi), "")
		fe.store(v, fe.structGEP(st, tmp, 1, ""), fe.dl().ABIAlign(hi))
		regAddr = tmp

	case neededInt > 0:
		regAddr = fe.byteGEP(regSave, gpOffset, "")

	case neededSSE == 1:
		regAddr = fe.byteGEP(regSave, fpOffset, "")

	case neededSSE == 2:
		// SSE slots are 16 bytes apart in the save area.
		pair := lltype.Struct(lltype.Double, lltype.Double)
		loAddr := fe.byteGEP(regSave, fpOffset, "")
		hiAddr := fe.byteGEP(loAddr, constInt(lltype.I32, 16), "")
		tmp := fe.alloca(pair, 0, "")
		v := fe.load(lltype.Double, loAddr, 8, "")
		fe.store(v, fe.structGEP(pair, tmp, 0, ""), 8)
		v = fe.load(lltype.Double, hiAddr, 8, "")
		fe.store(v, fe.structGEP(pair, tmp, 1, ""), 8)
		regAddr = tmp

	default:
		abi.Fatal("va_arg of %s needs %d SSE registers", fe.sess.Types.TypeString(ty), neededSSE)
	}

	if neededInt > 0 {
		next := fe.binary("add", gpOffset, constInt(lltype.I32, int64(neededInt*8)), "")
		fe.store(next, gpOffsetP, 4)
	}
	if neededSSE > 0 {
		next := fe.binary("add", fpOffset, constInt(lltype.I32, int64(neededSSE*16)), "")
		fe.store(next, fpOffsetP, 4)
	}
	fe.br(endBlock)

	fe.startBlock(inMemBlock)
	memAddr := fe.vaArgFromMemory(vaList, ty)
	fe.br(endBlock)

	fe.startBlock(endBlock)
	return fe.phi(lltype.Ptr, "vaarg.addr",
		incoming{v: regAddr, block: inRegBlock},
		incoming{v: memAddr, block: inMemBlock})
}

// vaArgFromMemory fetches ty from the overflow area, aligning it to 16 when
// the type needs more than 8 and advancing the area in 8-byte units.
func (fe *FuncEmitter) vaArgFromMemory(vaList Value, ty types.TypeID) Value {
	areaP := fe.structGEP(vaListX86_64, vaList, 2, "overflow_arg_area_p")
	area := fe.load(lltype.Ptr, areaP, 8, "overflow_arg_area")

	if fe.alignOf(ty) > 8 {
		bumped := fe.byteGEP(area, constInt(lltype.I32, 15), "")
		asInt := fe.cast("ptrtoint", bumped, lltype.I64, "")
		masked := fe.binary("and", asInt, constInt(lltype.I64, -16), "")
		area = fe.cast("inttoptr", masked, lltype.Ptr, "overflow_arg_area.align")
	}

	step := roundUp(fe.sizeOf(ty), 8)
	next := fe.byteGEP(area, constInt(lltype.I32, int64(step)), "overflow_arg_area.next")
	fe.store(next, areaP, 8)
	return area
}

func roundUp(n, align int) int {
	return (n + align - 1) / align * align
}
