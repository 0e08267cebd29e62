package llvm

import (
	"callconv/internal/abi"
	"callconv/internal/lltype"
	"callconv/internal/types"
)

// RValueKind says how a logical value is held.
type RValueKind uint8

const (
	RValueScalar RValueKind = iota
	RValueComplex
	RValueAggregate
)

// RValue is a logical value crossing a call boundary. Scalars are SSA
// values, complex numbers a (real, imaginary) pair and aggregates the
// address of their storage.
type RValue struct {
	Kind RValueKind
	V    Value // scalar, or real part
	Im   Value // imaginary part
	Addr Value // aggregate storage
}

func Scalar(v Value) RValue            { return RValue{Kind: RValueScalar, V: v} }
func ComplexPair(re, im Value) RValue  { return RValue{Kind: RValueComplex, V: re, Im: im} }
func Aggregate(addr Value) RValue      { return RValue{Kind: RValueAggregate, Addr: addr} }
func (rv RValue) IsScalar() bool       { return rv.Kind == RValueScalar }
func (rv RValue) IsComplex() bool      { return rv.Kind == RValueComplex }
func (rv RValue) IsAggregate() bool    { return rv.Kind == RValueAggregate }
func (rv RValue) AggregateAddr() Value { return rv.Addr }

func (fe *FuncEmitter) valueType(id types.TypeID) lltype.Type {
	t, err := fe.sess.Conv.ConvertType(id)
	if err != nil {
		abi.Fatal("no physical type for %s: %v", fe.sess.Types.TypeString(id), err)
	}
	return t
}

func (fe *FuncEmitter) memType(id types.TypeID) lltype.Type {
	t, err := fe.sess.Conv.ConvertTypeForMem(id)
	if err != nil {
		abi.Fatal("no physical type for %s: %v", fe.sess.Types.TypeString(id), err)
	}
	return t
}

func (fe *FuncEmitter) alignOf(id types.TypeID) int {
	a, err := fe.sess.Layout.AlignOf(id)
	if err != nil || a <= 0 {
		return fe.dl().ABIAlign(fe.memType(id))
	}
	return a
}

func (fe *FuncEmitter) sizeOf(id types.TypeID) int {
	n, err := fe.sess.Layout.SizeOf(id)
	if err != nil {
		abi.Fatal("no layout for %s: %v", fe.sess.Types.TypeString(id), err)
	}
	return n
}

// slotFor allocates memory holding one value of the logical type id.
func (fe *FuncEmitter) slotFor(id types.TypeID, hint string) Value {
	t := fe.memType(id)
	return fe.alloca(t, max(fe.alignOf(id), fe.dl().ABIAlign(t)), hint)
}

func (fe *FuncEmitter) isAggregate(id types.TypeID) bool {
	return fe.sess.Types.IsAggregate(id)
}

func (fe *FuncEmitter) kindOf(id types.TypeID) types.Kind {
	tt, ok := fe.sess.Types.Lookup(id)
	if !ok {
		return types.KindInvalid
	}
	return tt.Kind
}

// loadScalar loads a scalar of logical type id. Bools live in memory as i8
// and are truncated to i1.
func (fe *FuncEmitter) loadScalar(addr Value, id types.TypeID, hint string) Value {
	mt := fe.memType(id)
	v := fe.load(mt, addr, fe.alignOf(id), hint)
	if vt := fe.valueType(id); !vt.Equal(mt) {
		v = fe.cast("trunc", v, vt, "")
	}
	return v
}

func (fe *FuncEmitter) storeScalar(v, addr Value, id types.TypeID) {
	if mt := fe.memType(id); !v.Ty.Equal(mt) {
		v = fe.cast("zext", v, mt, "")
	}
	fe.store(v, addr, fe.alignOf(id))
}

func (fe *FuncEmitter) complexParts(id types.TypeID) (lltype.Type, types.TypeID) {
	tt, ok := fe.sess.Types.Lookup(id)
	if !ok || tt.Kind != types.KindComplex {
		abi.Fatal("%s is not a complex type", fe.sess.Types.TypeString(id))
	}
	return fe.memType(id), tt.Elem
}

func (fe *FuncEmitter) loadComplex(addr Value, id types.TypeID) (Value, Value) {
	ct, elem := fe.complexParts(id)
	et := fe.valueType(elem)
	align := fe.alignOf(elem)
	reP := fe.structGEP(ct, addr, 0, "real.p")
	imP := fe.structGEP(ct, addr, 1, "imag.p")
	return fe.load(et, reP, align, "real"), fe.load(et, imP, align, "imag")
}

func (fe *FuncEmitter) storeComplex(re, im, addr Value, id types.TypeID) {
	ct, elem := fe.complexParts(id)
	align := fe.alignOf(elem)
	fe.store(re, fe.structGEP(ct, addr, 0, "real.p"), align)
	fe.store(im, fe.structGEP(ct, addr, 1, "imag.p"), align)
}

func (fe *FuncEmitter) copyAggregate(dst, src Value, id types.TypeID) {
	fe.memcpy(dst, src, fe.sizeOf(id), fe.alignOf(id))
}

// undefRValue is the placeholder result of a call whose value is unused or
// never produced.
func (fe *FuncEmitter) undefRValue(id types.TypeID) RValue {
	in := fe.sess.Types
	switch {
	case in.IsVoid(id):
		return Scalar(Value{})
	case in.IsComplex(id):
		_, elem := fe.complexParts(id)
		et := fe.valueType(elem)
		return ComplexPair(undef(et), undef(et))
	case fe.isAggregate(id):
		return Aggregate(fe.slotFor(id, "undef.agg.tmp"))
	default:
		return Scalar(undef(fe.valueType(id)))
	}
}

// convertScalar converts v from logical type from to logical type to with
// C conversion semantics.
func (fe *FuncEmitter) convertScalar(v Value, from, to types.TypeID) Value {
	if from == to {
		return v
	}
	in := fe.sess.Types
	dst := fe.valueType(to)

	if fe.kindOf(to) == types.KindBool {
		switch {
		case v.Ty.IsFloatingPoint():
			return fe.fcmp("une", v, Value{Ty: v.Ty, Ref: "0.0"}, "tobool")
		case v.Ty.Kind() == lltype.KindPointer:
			return fe.icmp("ne", v, Value{Ty: v.Ty, Ref: "null"}, "tobool")
		default:
			return fe.icmp("ne", v, constInt(v.Ty, 0), "tobool")
		}
	}
	if v.Ty.Equal(dst) {
		return v
	}

	srcPtr := v.Ty.Kind() == lltype.KindPointer
	dstPtr := dst.Kind() == lltype.KindPointer
	srcFP := v.Ty.IsFloatingPoint()
	dstFP := dst.IsFloatingPoint()
	switch {
	case srcPtr && dstPtr:
		return v
	case srcPtr:
		return fe.cast("ptrtoint", v, dst, "conv")
	case dstPtr:
		return fe.cast("inttoptr", v, dst, "conv")
	case !srcFP && !dstFP:
		switch {
		case v.Ty.Bits() > dst.Bits():
			return fe.cast("trunc", v, dst, "conv")
		case in.IsSignedInteger(from):
			return fe.cast("sext", v, dst, "conv")
		default:
			return fe.cast("zext", v, dst, "conv")
		}
	case !srcFP:
		if in.IsSignedInteger(from) {
			return fe.cast("sitofp", v, dst, "conv")
		}
		return fe.cast("uitofp", v, dst, "conv")
	case !dstFP:
		if in.IsSignedInteger(to) {
			return fe.cast("fptosi", v, dst, "conv")
		}
		return fe.cast("fptoui", v, dst, "conv")
	default:
		if fe.dl().StoreSize(v.Ty) < fe.dl().StoreSize(dst) {
			return fe.cast("fpext", v, dst, "conv")
		}
		return fe.cast("fptrunc", v, dst, "conv")
	}
}

// Load reads a logical value of type id from addr. Aggregates are not
// copied; the result refers to addr.
func (fe *FuncEmitter) Load(addr Value, id types.TypeID) RValue {
	switch {
	case fe.sess.Types.IsComplex(id):
		re, im := fe.loadComplex(addr, id)
		return ComplexPair(re, im)
	case fe.isAggregate(id):
		return Aggregate(addr)
	default:
		return Scalar(fe.loadScalar(addr, id, ""))
	}
}

// StoreReturn writes rv into the return slot.
func (fe *FuncEmitter) StoreReturn(rv RValue) {
	retTy := fe.ReturnType()
	if fe.sess.Types.IsVoid(retTy) {
		return
	}
	if !fe.retSlot.IsValid() {
		abi.Fatal("%s: store to return slot before prologue", fe.name)
	}
	fe.storeRValue(rv, fe.retSlot, retTy)
}

// Store writes rv into memory of type id at addr.
func (fe *FuncEmitter) Store(rv RValue, addr Value, id types.TypeID) {
	fe.storeRValue(rv, addr, id)
}
