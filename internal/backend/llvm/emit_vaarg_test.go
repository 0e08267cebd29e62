package llvm

import (
	"errors"
	"strings"
	"testing"

	"callconv/internal/abi"
	"callconv/internal/layout"
	"callconv/internal/lltype"
	"callconv/internal/types"
)

func (f *fixture) vaArg(ty types.TypeID) (*FuncEmitter, Value) {
	f.t.Helper()
	fe := f.e.BeginFunction("reader", f.lower(abi.DeclAttrs{}, false, f.b.Void))
	addr, err := EmitVAArg(fe, Value{Ty: lltype.Ptr, Ref: "%ap"}, ty)
	if err != nil {
		f.t.Fatalf("va_arg: %v", err)
	}
	return fe, addr
}

func TestVAArgX86_64SingleSSE(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	fe, addr := f.vaArg(f.b.Float64)
	if addr.Ref != "%vaarg.addr" {
		t.Fatalf("result should be the join phi, got %s", addr.Ref)
	}
	mustContain(t, fe.body.String(),
		"%fp_offset_p = getelementptr inbounds { i32, i32, ptr, ptr }, ptr %ap, i32 0, i32 1",
		"%fp_offset = load i32, ptr %fp_offset_p, align 4",
		"%fits_in_fp = icmp ule i32 %fp_offset, 160",
		"br i1 %fits_in_fp, label %vaarg.in_reg, label %vaarg.in_mem",
		"vaarg.in_reg:",
		"%reg_save_area = load ptr",
		"add i32 %fp_offset, 16",
		"vaarg.in_mem:",
		"%overflow_arg_area.next = getelementptr inbounds i8, ptr %overflow_arg_area, i32 8",
		"vaarg.end:",
		"%vaarg.addr = phi ptr [ %t1, %vaarg.in_reg ], [ %overflow_arg_area, %vaarg.in_mem ]",
	)
}

func TestVAArgX86_64MixedRegisters(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.b
	mixed := f.record("mixed", fld("n", b.Int64), fld("d", b.Float64))
	fe, _ := f.vaArg(mixed)
	mustContain(t, fe.body.String(),
		"%fits_in_gp = icmp ule i32 %gp_offset, 40",
		"%fits_in_fp = icmp ule i32 %fp_offset, 160",
		"and i1 %fits_in_gp, %fits_in_fp",
		"load i64, ptr",
		"load double, ptr",
		"add i32 %gp_offset, 8",
		"add i32 %fp_offset, 16",
	)
	mustContain(t, fe.allocas.String(), "alloca { i64, double }, align 8")
}

func TestVAArgX86_64TwoSSE(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.b
	dd := f.record("dd", fld("a", b.Float64), fld("b", b.Float64))
	fe, _ := f.vaArg(dd)
	mustContain(t, fe.body.String(),
		"%fits_in_fp = icmp ule i32 %fp_offset, 144",
		", i32 16",
		"add i32 %fp_offset, 32",
	)
	mustContain(t, fe.allocas.String(), "alloca { double, double }, align 8")
}

func TestVAArgX86_64MemoryOnly(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	fe, addr := f.vaArg(f.b.LongDouble)
	if addr.Ref != "%overflow_arg_area.align" {
		t.Fatalf("memory-only va_arg returns the aligned area, got %s", addr.Ref)
	}
	body := fe.body.String()
	mustContain(t, body,
		"%overflow_arg_area_p = getelementptr inbounds { i32, i32, ptr, ptr }, ptr %ap, i32 0, i32 2",
		"getelementptr inbounds i8, ptr %overflow_arg_area, i32 15",
		"and i64",
		", -16",
		"%overflow_arg_area.next = getelementptr inbounds i8, ptr %overflow_arg_area.align, i32 16",
		"store ptr %overflow_arg_area.next, ptr %overflow_arg_area_p, align 8",
	)
	for _, bad := range []string{"phi", "vaarg.in_reg"} {
		if strings.Contains(body, bad) {
			t.Fatalf("memory-only path must not branch:\n%s", body)
		}
	}
}

func TestVAArgPointerBump(t *testing.T) {
	for _, target := range []layout.Target{layout.I386LinuxGNU(), layout.ARMLinuxGNUEABI()} {
		f := newFixture(t, target)
		fe, addr := f.vaArg(f.b.Int16)
		if addr.Ref != "%ap.cur" {
			t.Fatalf("%s: va_arg returns the current pointer, got %s", target.Triple, addr.Ref)
		}
		mustContain(t, fe.body.String(),
			"%ap.cur = load ptr, ptr %ap, align 4",
			"%ap.next = getelementptr inbounds i8, ptr %ap.cur, i32 4",
			"store ptr %ap.next, ptr %ap, align 4",
		)
	}
}

func TestVAArgDefaultUnsupported(t *testing.T) {
	f := newFixture(t, layout.Generic("riscv64-unknown-elf"))
	fe := f.e.BeginFunction("reader", f.lower(abi.DeclAttrs{}, false, f.b.Void))
	_, err := EmitVAArg(fe, Value{Ty: lltype.Ptr, Ref: "%ap"}, f.b.Int32)
	if !errors.Is(err, ErrVAArgUnsupported) {
		t.Fatalf("expected ErrVAArgUnsupported, got %v", err)
	}
}
