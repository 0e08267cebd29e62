package llvm

import (
	"fmt"
	"strings"

	"callconv/internal/abi"
	"callconv/internal/types"
)

// EmitCall calls callee with the physical signature l. args holds one
// RValue per logical argument followed by any variadic extras, which are
// passed as already-promoted scalars. The result is the logical return
// value.
func EmitCall(fe *FuncEmitter, callee string, l *abi.Lowered, args []RValue) (RValue, error) {
	fi := l.Info
	switch {
	case len(args) < fi.NumArgs():
		return RValue{}, fmt.Errorf("call to %s: %d arguments, want %d", callee, len(args), fi.NumArgs())
	case len(args) > fi.NumArgs() && !l.Variadic:
		return RValue{}, fmt.Errorf("call to %s: %d arguments to a non-variadic function taking %d", callee, len(args), fi.NumArgs())
	}
	fe.emitter.Declare(callee, l)

	retTy := fi.ReturnType()
	retInfo := fi.ReturnInfo()
	actuals := make([]Value, 0, len(l.Params)+len(args)-fi.NumArgs())

	var resultSlot Value
	if retInfo.IsIndirect() {
		resultSlot = fe.slotFor(retTy, "agg.tmp")
		actuals = append(actuals, resultSlot)
	}

	for i := range fi.NumArgs() {
		slot := fi.Arg(i)
		rv := args[i]
		switch slot.Info.Kind() {
		case abi.KindIndirect:
			if rv.IsAggregate() {
				actuals = append(actuals, rv.Addr)
				break
			}
			tmp := fe.slotFor(slot.Type, "indirect.arg")
			fe.storeRValue(rv, tmp, slot.Type)
			actuals = append(actuals, tmp)

		case abi.KindDirect:
			switch rv.Kind {
			case RValueScalar:
				actuals = append(actuals, rv.V)
			case RValueComplex:
				agg := undef(fe.valueType(slot.Type))
				agg = fe.insertValue(agg, rv.V, 0)
				agg = fe.insertValue(agg, rv.Im, 1)
				actuals = append(actuals, agg)
			default:
				actuals = append(actuals, fe.load(fe.valueType(slot.Type), rv.Addr, fe.alignOf(slot.Type), ""))
			}

		case abi.KindIgnore:

		case abi.KindCoerce:
			src := rv.Addr
			if !rv.IsAggregate() {
				src = fe.slotFor(slot.Type, "coerce")
				fe.storeRValue(rv, src, slot.Type)
			}
			actuals = append(actuals, fe.createCoercedLoad(src, fe.memType(slot.Type), slot.Info.CoerceToType()))

		case abi.KindExpand:
			if !rv.IsAggregate() {
				abi.Fatal("expanded argument %d of %s is not an aggregate", i, callee)
			}
			leaves, err := fe.sess.ExpandedLeaves(slot.Type)
			if err != nil {
				return RValue{}, err
			}
			for _, leaf := range leaves {
				p := fe.byteOffset(rv.Addr, leaf.Offset, "")
				actuals = append(actuals, fe.loadScalar(p, leaf.Type, ""))
			}
		}
	}
	for _, rv := range args[fi.NumArgs():] {
		if !rv.IsScalar() {
			return RValue{}, fmt.Errorf("call to %s: variadic arguments must be scalars", callee)
		}
		actuals = append(actuals, rv.V)
	}

	ci := fe.emitCallInstr(callee, l, actuals)

	if l.FnAttrs.Has(abi.AttrNoReturn) {
		fe.unreachable()
		fe.startBlock(fe.newBlock("noreturn.cont"))
		return fe.undefRValue(retTy), nil
	}

	in := fe.sess.Types
	switch retInfo.Kind() {
	case abi.KindIndirect:
		switch {
		case in.IsComplex(retTy):
			re, im := fe.loadComplex(resultSlot, retTy)
			return ComplexPair(re, im), nil
		case fe.isAggregate(retTy):
			return Aggregate(resultSlot), nil
		default:
			return Scalar(fe.loadScalar(resultSlot, retTy, "")), nil
		}

	case abi.KindDirect:
		switch {
		case in.IsComplex(retTy):
			return ComplexPair(fe.extractValue(ci, 0, "real"), fe.extractValue(ci, 1, "imag")), nil
		case fe.isAggregate(retTy):
			tmp := fe.slotFor(retTy, "agg.tmp")
			fe.store(ci, tmp, fe.alignOf(retTy))
			return Aggregate(tmp), nil
		default:
			return Scalar(ci), nil
		}

	case abi.KindIgnore:
		return fe.undefRValue(retTy), nil

	case abi.KindCoerce:
		tmp := fe.slotFor(retTy, "coerce")
		fe.createCoercedStore(ci, tmp, fe.memType(retTy))
		switch {
		case in.IsComplex(retTy):
			re, im := fe.loadComplex(tmp, retTy)
			return ComplexPair(re, im), nil
		case fe.isAggregate(retTy):
			return Aggregate(tmp), nil
		default:
			return Scalar(fe.loadScalar(tmp, retTy, "")), nil
		}
	}
	abi.Fatal("invalid disposition %s for result of %s", retInfo, callee)
	return RValue{}, nil
}

// storeRValue writes a scalar or complex value into memory of type id.
func (fe *FuncEmitter) storeRValue(rv RValue, addr Value, id types.TypeID) {
	switch rv.Kind {
	case RValueScalar:
		fe.storeScalar(rv.V, addr, id)
	case RValueComplex:
		fe.storeComplex(rv.V, rv.Im, addr, id)
	default:
		fe.copyAggregate(addr, rv.Addr, id)
	}
}

// emitCallInstr renders the call instruction. Variadic callees are called
// through their full function type.
func (fe *FuncEmitter) emitCallInstr(callee string, l *abi.Lowered, actuals []Value) Value {
	parts := make([]string, len(actuals))
	for i, a := range actuals {
		if i < len(l.Params) {
			if attrs := l.CallAttrs(i); attrs != "" {
				parts[i] = fmt.Sprintf("%s %s %s", a.Ty, attrs, a.Ref)
				continue
			}
		}
		parts[i] = a.String()
	}

	callTy := l.Result.String()
	if l.Variadic {
		callTy = l.FunctionType()
	}
	if ra := l.ResultAttrs(); ra != "" {
		callTy = ra + " " + callTy
	}
	suffix := ""
	if fa := l.FunctionAttrs(); fa != "" {
		suffix = " " + fa
	}

	if l.Result.IsVoid() {
		fe.emit("call %s @%s(%s)%s", callTy, callee, strings.Join(parts, ", "), suffix)
		return Value{}
	}
	name := fe.local("call")
	fe.emit("%s = call %s @%s(%s)%s", name, callTy, callee, strings.Join(parts, ", "), suffix)
	return Value{Ty: l.Result, Ref: name}
}
