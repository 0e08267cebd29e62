package llvm

import (
	"fmt"

	"callconv/internal/abi"
	"callconv/internal/types"
)

// ParamDecl names a logical parameter of the function being defined. Type
// is the declared type; it may differ from the signature type for K&R-style
// definitions, in which case the received value is converted. NoTypeID
// means the signature type.
type ParamDecl struct {
	Name string
	Type types.TypeID
}

// Local is a logical parameter bound to memory.
type Local struct {
	Name string
	Type types.TypeID
	Addr Value
}

// EmitPrologue names the physical parameters and binds every logical
// parameter to a stack slot or, for aggregates passed by reference, to the
// incoming pointer. It also allocates the return slot.
func EmitPrologue(fe *FuncEmitter, decls []ParamDecl) ([]Local, error) {
	l := fe.lowered
	fi := l.Info
	if len(decls) != fi.NumArgs() {
		return nil, fmt.Errorf("%s: %d parameter declarations for %d arguments", fe.name, len(decls), fi.NumArgs())
	}
	if l.HasStructRet() {
		fe.nameParam(0, "agg.result")
	}
	if retTy := fi.ReturnType(); !fe.sess.Types.IsVoid(retTy) {
		fe.retSlot = fe.slotFor(retTy, "retval")
	}

	locals := make([]Local, len(decls))
	for i, decl := range decls {
		slot := fi.Arg(i)
		declTy := decl.Type
		if declTy == types.NoTypeID {
			declTy = slot.Type
		}
		start, n := l.ArgParams(i)
		agg := fe.isAggregate(slot.Type)
		local := Local{Name: decl.Name, Type: declTy}

		switch slot.Info.Kind() {
		case abi.KindIndirect:
			p := fe.nameParam(start, decl.Name)
			if agg {
				local.Addr = p
				break
			}
			v := fe.loadScalar(p, slot.Type, "")
			local.Addr = fe.spill(fe.convertScalar(v, slot.Type, declTy), declTy, decl.Name)

		case abi.KindDirect:
			p := fe.nameParam(start, decl.Name)
			if agg {
				local.Addr = fe.slotFor(slot.Type, decl.Name+".addr")
				fe.store(p, local.Addr, fe.alignOf(slot.Type))
				break
			}
			local.Addr = fe.spill(fe.convertScalar(p, slot.Type, declTy), declTy, decl.Name)

		case abi.KindExpand:
			local.Addr = fe.slotFor(slot.Type, decl.Name+".addr")
			leaves, err := fe.sess.ExpandedLeaves(slot.Type)
			if err != nil {
				return nil, err
			}
			if len(leaves) != n {
				abi.Fatal("%s: %d leaves for %d expanded parameters", fe.name, len(leaves), n)
			}
			for j, leaf := range leaves {
				p := fe.nameParam(start+j, fmt.Sprintf("%s.%d", decl.Name, j))
				fe.storeScalar(p, fe.byteOffset(local.Addr, leaf.Offset, ""), leaf.Type)
			}

		case abi.KindIgnore:
			if agg {
				local.Addr = fe.slotFor(slot.Type, decl.Name+".addr")
				break
			}
			local.Addr = fe.spill(undef(fe.valueType(declTy)), declTy, decl.Name)

		case abi.KindCoerce:
			p := fe.nameParam(start, decl.Name)
			tmp := fe.slotFor(slot.Type, "coerce")
			fe.createCoercedStore(p, tmp, fe.memType(slot.Type))
			if agg {
				local.Addr = tmp
				break
			}
			v := fe.loadScalar(tmp, slot.Type, "")
			local.Addr = fe.spill(fe.convertScalar(v, slot.Type, declTy), declTy, decl.Name)
		}
		locals[i] = local
	}
	return locals, nil
}

// spill stores a received scalar into a fresh slot of its declared type.
func (fe *FuncEmitter) spill(v Value, id types.TypeID, name string) Value {
	addr := fe.slotFor(id, name+".addr")
	fe.storeScalar(v, addr, id)
	return addr
}

// EmitEpilogue returns the value the body left in the return slot.
func EmitEpilogue(fe *FuncEmitter) error {
	fi := fe.lowered.Info
	retTy := fi.ReturnType()
	retInfo := fi.ReturnInfo()
	in := fe.sess.Types

	if in.IsVoid(retTy) {
		fe.retVoid()
		return nil
	}
	if !fe.retSlot.IsValid() {
		return fmt.Errorf("%s: epilogue without prologue", fe.name)
	}

	switch retInfo.Kind() {
	case abi.KindIndirect:
		sret := fe.Param(0)
		switch {
		case in.IsComplex(retTy):
			re, im := fe.loadComplex(fe.retSlot, retTy)
			fe.storeComplex(re, im, sret, retTy)
		case fe.isAggregate(retTy):
			fe.copyAggregate(sret, fe.retSlot, retTy)
		default:
			fe.storeScalar(fe.loadScalar(fe.retSlot, retTy, ""), sret, retTy)
		}
		fe.retVoid()

	case abi.KindDirect:
		if fe.isAggregate(retTy) {
			fe.ret(fe.load(fe.valueType(retTy), fe.retSlot, fe.alignOf(retTy), ""))
			break
		}
		fe.ret(fe.loadScalar(fe.retSlot, retTy, ""))

	case abi.KindIgnore:
		fe.retVoid()

	case abi.KindCoerce:
		fe.ret(fe.createCoercedLoad(fe.retSlot, fe.memType(retTy), retInfo.CoerceToType()))

	case abi.KindExpand:
		abi.Fatal("%s: invalid disposition %s for result", fe.name, retInfo)
	}
	return nil
}
