package abi

import (
	"testing"

	"callconv/internal/layout"
	"callconv/internal/lltype"
	"callconv/internal/types"
)

func TestX86_64Classify(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.b
	in := f.in

	empty := f.record("empty", false)
	cases := []struct {
		name string
		id   types.TypeID
		want Classification
	}{
		{"int32", b.Int32, Classification{Integer, NoClass}},
		{"pointer", in.Pointer(b.Void), Classification{Integer, NoClass}},
		{"enum", in.RegisterEnum("e", b.Uint8), Classification{Integer, NoClass}},
		{"double", b.Float64, Classification{SSE, NoClass}},
		{"long double", b.LongDouble, Classification{X87, X87Up}},
		{"two doubles", f.record("dd", false, fld("a", b.Float64), fld("b", b.Float64)), Classification{SSE, SSE}},
		{"two floats", f.record("ff", false, fld("a", b.Float32), fld("b", b.Float32)), Classification{SSE, NoClass}},
		{"float and int", f.record("fi", false, fld("a", b.Float32), fld("b", b.Int32)), Classification{Integer, NoClass}},
		{"double and int", f.record("di", false, fld("a", b.Float64), fld("b", b.Int32)), Classification{SSE, Integer}},
		{"one char", f.record("c", false, fld("c", b.Int8)), Classification{Integer, NoClass}},
		{"five ints", f.record("i5", false,
			fld("a", b.Int32), fld("b", b.Int32), fld("c", b.Int32), fld("d", b.Int32), fld("e", b.Int32)),
			Classification{Memory, Memory}},
		{"misaligned", f.record("packed", true, fld("c", b.Int8), fld("i", b.Int32)), Classification{Memory, Memory}},
		{"flexible", f.record("flex", false, fld("n", b.Int32), fld("d", in.Array(b.Int8, types.ArrayFlexible))), Classification{Memory, Memory}},
		{"empty", empty, Classification{NoClass, NoClass}},
		{"double[2]", in.Array(b.Float64, 2), Classification{SSE, SSE}},
		{"int64[3]", in.Array(b.Int64, 3), Classification{Memory, Memory}},
		{"vec4 float", in.Vector(b.Float32, 4), Classification{SSE, SSEUp}},
		{"vec2 float", in.Vector(b.Float32, 2), Classification{SSE, NoClass}},
		{"vec1 double", in.Vector(b.Float64, 1), Classification{Memory, Memory}},
		{"vec1 int64", in.Vector(b.Int64, 1), Classification{Integer, NoClass}},
		{"vec4 int8", in.Vector(b.Int8, 4), Classification{Integer, NoClass}},
		{"complex float", in.Complex(b.Float32), Classification{SSE, NoClass}},
		{"complex double", in.Complex(b.Float64), Classification{SSE, SSE}},
		{"complex int32", in.Complex(b.Int32), Classification{Integer, NoClass}},
		{"complex int64", in.Complex(b.Int64), Classification{Integer, Integer}},
		{"complex long double", in.Complex(b.LongDouble), Classification{ComplexX87, ComplexX87}},
		{"union float int", f.union("ufi", fld("f", b.Float32), fld("i", b.Int32)), Classification{Integer, NoClass}},
		{"union vector int", f.union("uvi", fld("v", in.Vector(b.Float32, 4)), fld("i", b.Int32)), Classification{Integer, SSE}},
		{"union long double double", f.union("uld", fld("ld", b.LongDouble), fld("d", b.Float64)), Classification{Memory, X87Up}},
		{"bit-fields low", f.record("bl", false, bits("a", b.Int32, 3), bits("b", b.Int64, 40)), Classification{Integer, NoClass}},
		{"bit-field high", f.record("bh", false, fld("a", b.Float64), bits("b", b.Int32, 3)), Classification{SSE, Integer}},
		{"nested", f.record("outer", false,
			fld("e", empty),
			fld("in", f.record("inner", false, fld("x", b.Float32), fld("y", b.Float32))),
			fld("z", b.Float64)),
			Classification{SSE, SSE}},
	}
	x := f.x64()
	for _, tc := range cases {
		if got := x.Classify(tc.id, 0); got != tc.want {
			t.Fatalf("%s: Classify = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestX86_64ClassifyReturn(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.b
	in := f.in
	cases := []struct {
		name string
		id   types.TypeID
		want ArgInfo
	}{
		{"void", b.Void, Ignore()},
		{"int32", b.Int32, Direct()},
		{"bool", b.Bool, Direct()},
		{"pointer", in.Pointer(b.Int8), Direct()},
		{"float", b.Float32, Direct()},
		{"long double", b.LongDouble, Direct()},
		{"char struct", f.record("c", false, fld("c", b.Int8)), Coerce(lltype.I64)},
		{"two doubles", f.record("dd", false, fld("a", b.Float64), fld("b", b.Float64)),
			Coerce(lltype.Struct(lltype.Double, lltype.Double))},
		{"two longs", f.record("ll", false, fld("a", b.Int64), fld("b", b.Int64)),
			Coerce(lltype.Struct(lltype.I64, lltype.I64))},
		{"vector struct", f.record("v", false, fld("v", in.Vector(b.Float32, 4))),
			Coerce(lltype.Vector(lltype.Double, 2))},
		{"long double struct", f.record("ld", false, fld("x", b.LongDouble)), Coerce(lltype.X86FP80)},
		{"complex long double", in.Complex(b.LongDouble),
			Coerce(lltype.Struct(lltype.X86FP80, lltype.X86FP80))},
		{"big", in.Array(b.Int32, 5), Indirect(0)},
	}
	x := f.x64()
	for _, tc := range cases {
		if got := x.ClassifyReturn(tc.id); !got.Equal(tc.want) {
			t.Fatalf("%s: ClassifyReturn = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestX86_64ClassifyArgumentRegs(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.b
	cases := []struct {
		name string
		id   types.TypeID
		want ArgInfo
		nInt int
		nSSE int
	}{
		{"int32", b.Int32, Direct(), 1, 0},
		{"double", b.Float64, Direct(), 0, 1},
		{"long double", b.LongDouble, Indirect(0), 0, 0},
		{"complex long double", f.in.Complex(b.LongDouble), Indirect(0), 0, 0},
		{"empty", f.record("empty", false), Ignore(), 0, 0},
		{"double and long", f.record("dl", false, fld("d", b.Float64), fld("l", b.Int64)),
			Coerce(lltype.Struct(lltype.Double, lltype.I64)), 1, 1},
		{"two floats", f.record("ff", false, fld("a", b.Float32), fld("b", b.Float32)), Coerce(lltype.Double), 0, 1},
	}
	x := f.x64()
	for _, tc := range cases {
		got, ni, ns := x.ClassifyArgumentRegs(tc.id)
		if !got.Equal(tc.want) || ni != tc.nInt || ns != tc.nSSE {
			t.Fatalf("%s: got %s int=%d sse=%d, want %s int=%d sse=%d", tc.name, got, ni, ns, tc.want, tc.nInt, tc.nSSE)
		}
	}
}

func TestX86_64RegisterBudget(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.b
	args := make([]types.TypeID, 7)
	for i := range args {
		args[i] = b.Int32
	}
	fi := f.intern(f.sess, b.Void, args...)
	for i := range 6 {
		if !fi.Arg(i).Info.IsDirect() {
			t.Fatalf("arg %d should be in a register, got %s", i, fi.Arg(i).Info)
		}
	}
	if got := fi.Arg(6).Info; !got.Equal(Indirect(0)) {
		t.Fatalf("seventh integer arg should be demoted, got %s", got)
	}

	// A two-register struct that no longer fits is demoted, but a later
	// one-register argument still takes the last free register.
	pair := f.record("pair", false, fld("a", b.Int64), fld("b", b.Int64))
	fi = f.intern(f.sess, b.Void, b.Int32, b.Int32, b.Int32, b.Int32, b.Int32, pair, b.Int64)
	if got := fi.Arg(5).Info; !got.IsIndirect() {
		t.Fatalf("pair should be demoted, got %s", got)
	}
	if got := fi.Arg(6).Info; !got.IsDirect() {
		t.Fatalf("trailing int64 should use the sixth register, got %s", got)
	}

	doubles := make([]types.TypeID, 9)
	for i := range doubles {
		doubles[i] = b.Float64
	}
	fi = f.intern(f.sess, b.Void, doubles...)
	if !fi.Arg(7).Info.IsDirect() || !fi.Arg(8).Info.IsIndirect() {
		t.Fatalf("ninth double should be demoted: %s / %s", fi.Arg(7).Info, fi.Arg(8).Info)
	}
}

func TestX86_64ComplexStraddlesEightbytes(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.b
	// complex float at offset 32 spans both eightbytes.
	s := f.record("fz", false, fld("f", b.Float32), fld("z", f.in.Complex(b.Float32)))
	if got := f.x64().Classify(s, 0); got != (Classification{SSE, SSE}) {
		t.Fatalf("got %s", got)
	}
}

func TestNonX87LongDoubleIsDouble(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	tgt := layout.X86_64LinuxGNU()
	tgt.LongDoubleX87 = false
	tgt.LongDoubleSize, tgt.LongDoubleAlign = 8, 8
	s := f.retarget(tgt)
	x := s.ABI.(*X86_64Info)
	if got := x.Classify(f.b.LongDouble, 0); got != (Classification{SSE, NoClass}) {
		t.Fatalf("got %s", got)
	}
	if got := x.ClassifyArgument(f.b.LongDouble); !got.IsDirect() {
		t.Fatalf("got %s", got)
	}
}
