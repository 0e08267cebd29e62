package llvm

import (
	"fmt"
	"strings"

	"callconv/internal/lltype"
)

const memcpyDecl = "declare void @llvm.memcpy.p0.p0.i64(ptr, ptr, i64, i1)"

// alloca reserves a stack slot of type t in the entry block.
func (fe *FuncEmitter) alloca(t lltype.Type, align int, hint string) Value {
	name := fe.local(hint)
	if align <= 0 {
		align = fe.dl().ABIAlign(t)
	}
	fmt.Fprintf(&fe.allocas, "  %s = alloca %s, align %d\n", name, t, align)
	return Value{Ty: lltype.Ptr, Ref: name}
}

func (fe *FuncEmitter) load(t lltype.Type, ptr Value, align int, hint string) Value {
	name := fe.local(hint)
	fe.emit("%s = load %s, ptr %s, align %d", name, t, ptr.Ref, alignOr1(align))
	return Value{Ty: t, Ref: name}
}

func (fe *FuncEmitter) store(v, ptr Value, align int) {
	fe.emit("store %s, ptr %s, align %d", v, ptr.Ref, alignOr1(align))
}

// byteGEP offsets ptr by off bytes.
func (fe *FuncEmitter) byteGEP(ptr Value, off Value, hint string) Value {
	name := fe.local(hint)
	fe.emit("%s = getelementptr inbounds i8, ptr %s, %s", name, ptr.Ref, off)
	return Value{Ty: lltype.Ptr, Ref: name}
}

func (fe *FuncEmitter) byteOffset(ptr Value, off int, hint string) Value {
	if off == 0 {
		return ptr
	}
	return fe.byteGEP(ptr, constInt(lltype.I64, int64(off)), hint)
}

func (fe *FuncEmitter) structGEP(t lltype.Type, ptr Value, idx int, hint string) Value {
	name := fe.local(hint)
	fe.emit("%s = getelementptr inbounds %s, ptr %s, i32 0, i32 %d", name, t, ptr.Ref, idx)
	return Value{Ty: lltype.Ptr, Ref: name}
}

func (fe *FuncEmitter) extractValue(agg Value, idx int, hint string) Value {
	name := fe.local(hint)
	fe.emit("%s = extractvalue %s, %d", name, agg, idx)
	return Value{Ty: agg.Ty.ElemAt(idx), Ref: name}
}

func (fe *FuncEmitter) insertValue(agg, v Value, idx int) Value {
	name := fe.nextTemp()
	fe.emit("%s = insertvalue %s, %s, %d", name, agg, v, idx)
	return Value{Ty: agg.Ty, Ref: name}
}

func (fe *FuncEmitter) binary(op string, a, b Value, hint string) Value {
	name := fe.local(hint)
	fe.emit("%s = %s %s, %s", name, op, a, b.Ref)
	return Value{Ty: a.Ty, Ref: name}
}

func (fe *FuncEmitter) icmp(pred string, a, b Value, hint string) Value {
	name := fe.local(hint)
	fe.emit("%s = icmp %s %s, %s", name, pred, a, b.Ref)
	return Value{Ty: lltype.I1, Ref: name}
}

func (fe *FuncEmitter) fcmp(pred string, a, b Value, hint string) Value {
	name := fe.local(hint)
	fe.emit("%s = fcmp %s %s, %s", name, pred, a, b.Ref)
	return Value{Ty: lltype.I1, Ref: name}
}

func (fe *FuncEmitter) cast(op string, v Value, to lltype.Type, hint string) Value {
	name := fe.local(hint)
	fe.emit("%s = %s %s to %s", name, op, v, to)
	return Value{Ty: to, Ref: name}
}

func (fe *FuncEmitter) br(label string) {
	fe.terminate("br label %%%s", label)
}

func (fe *FuncEmitter) condBr(cond Value, then, els string) {
	fe.terminate("br %s, label %%%s, label %%%s", cond, then, els)
}

type incoming struct {
	v     Value
	block string
}

func (fe *FuncEmitter) phi(t lltype.Type, hint string, in ...incoming) Value {
	name := fe.local(hint)
	parts := make([]string, len(in))
	for i, p := range in {
		parts[i] = fmt.Sprintf("[ %s, %%%s ]", p.v.Ref, p.block)
	}
	fe.emit("%s = phi %s %s", name, t, strings.Join(parts, ", "))
	return Value{Ty: t, Ref: name}
}

func (fe *FuncEmitter) ret(v Value) {
	fe.terminate("ret %s", v)
}

func (fe *FuncEmitter) retVoid() {
	fe.terminate("ret void")
}

func (fe *FuncEmitter) unreachable() {
	fe.terminate("unreachable")
}

// memcpy copies size bytes between two slots of the given alignment.
func (fe *FuncEmitter) memcpy(dst, src Value, size, align int) {
	fe.emitter.declareRaw("llvm.memcpy.p0.p0.i64", memcpyDecl)
	fe.emit("call void @llvm.memcpy.p0.p0.i64(ptr align %d %s, ptr align %d %s, i64 %d, i1 false)",
		alignOr1(align), dst.Ref, alignOr1(align), src.Ref, size)
}

func alignOr1(a int) int {
	if a <= 0 {
		return 1
	}
	return a
}
