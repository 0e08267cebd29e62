package abi

import (
	"testing"

	"callconv/internal/layout"
	"callconv/internal/lltype"
	"callconv/internal/types"
)

func TestX86_32Arguments(t *testing.T) {
	f := newFixture(t, layout.I386LinuxGNU())
	b := f.b
	inner := f.record("inner", false, fld("x", b.Int32))
	cases := []struct {
		name string
		id   types.TypeID
		want ArgInfo
	}{
		{"int8", b.Int8, Direct()},
		{"empty", f.record("empty", false), Ignore()},
		{"two ints", f.record("ii", false, fld("a", b.Int32), fld("b", b.Int32)), Expand()},
		{"ptr and double", f.record("pd", false, fld("p", f.in.Pointer(b.Void)), fld("d", b.Float64)), Expand()},
		{"char", f.record("c", false, fld("c", b.Int8)), Indirect(0)},
		{"bit-field", f.record("bf", false, bits("a", b.Int32, 32)), Indirect(0)},
		{"nested", f.record("nest", false, fld("in", inner)), Indirect(0)},
		{"too big", f.record("big", false,
			fld("a", b.Int64), fld("b", b.Int64), fld("c", b.Int32)), Indirect(0)},
		{"flexible", f.record("flex", false, fld("n", b.Int32), fld("d", f.in.Array(b.Int32, types.ArrayFlexible))), Indirect(0)},
		{"union", f.union("u", fld("a", b.Int32)), Indirect(0)},
		{"array", f.in.Array(b.Int32, 2), Indirect(0)},
	}
	x := f.sess.ABI
	for _, tc := range cases {
		if got := x.ClassifyArgument(tc.id); !got.Equal(tc.want) {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestX86_32Returns(t *testing.T) {
	f := newFixture(t, layout.I386LinuxGNU())
	b := f.b
	empty := f.record("empty", false)
	oneInt := f.record("one", false, fld("x", b.Int32))
	oneFloat := f.record("flt", false, fld("e", empty), fld("f", b.Float32))
	onePtr := f.record("ptr", false, fld("p", f.in.Pointer(b.Int8)))
	shorts := f.record("ss", false, fld("a", b.Int16), fld("b", b.Int16))
	three := f.record("three", false, fld("a", f.in.Array(b.Int8, 3)))
	cplx := f.in.Complex(b.Float32)

	linux := f.sess.ABI
	darwin := f.retarget(layout.I386Darwin()).ABI
	cases := []struct {
		name string
		info Info
		id   types.TypeID
		want ArgInfo
	}{
		{"linux void", linux, b.Void, Ignore()},
		{"linux int64", linux, b.Int64, Direct()},
		{"linux struct", linux, oneInt, Indirect(0)},
		{"linux complex", linux, cplx, Coerce(lltype.I64)},
		{"linux complex double", linux, f.in.Complex(b.Float64), Indirect(0)},
		{"darwin one int", darwin, oneInt, Coerce(lltype.I32)},
		{"darwin one float", darwin, oneFloat, Coerce(lltype.Float)},
		{"darwin one pointer", darwin, onePtr, Coerce(lltype.Ptr)},
		{"darwin two shorts", darwin, shorts, Coerce(lltype.I32)},
		{"darwin three bytes", darwin, three, Indirect(0)},
	}
	for _, tc := range cases {
		if got := tc.info.ClassifyReturn(tc.id); !got.Equal(tc.want) {
			t.Fatalf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestARMClassification(t *testing.T) {
	f := newFixture(t, layout.ARMLinuxGNUEABI())
	b := f.b
	threeChars := f.record("ccc", false, fld("a", b.Int8), fld("b", b.Int8), fld("c", b.Int8))
	withDouble := f.record("d", false, fld("d", b.Float64), fld("i", b.Int32))
	pair := f.record("ii", false, fld("a", b.Int32), fld("b", b.Int32))
	info := f.sess.ABI

	if got := info.ClassifyArgument(threeChars); !got.Equal(Coerce(lltype.PackedStruct(lltype.Array(lltype.I32, 1)))) {
		t.Fatalf("three chars: %s", got)
	}
	if got := info.ClassifyArgument(withDouble); !got.Equal(Coerce(lltype.PackedStruct(lltype.Array(lltype.I64, 2)))) {
		t.Fatalf("double struct: %s", got)
	}
	if got := info.ClassifyArgument(b.Float64); !got.IsDirect() {
		t.Fatalf("double: %s", got)
	}
	if got := info.ClassifyReturn(threeChars); !got.Equal(Coerce(lltype.I32)) {
		t.Fatalf("small return: %s", got)
	}
	if got := info.ClassifyReturn(pair); !got.Equal(Indirect(0)) {
		t.Fatalf("large return: %s", got)
	}
	if got := info.ClassifyReturn(b.Void); !got.IsIgnore() {
		t.Fatalf("void return: %s", got)
	}
}

func TestDefaultClassification(t *testing.T) {
	f := newFixture(t, layout.Generic("sparc-sun-solaris"))
	b := f.b
	info := f.sess.ABI
	if info.Name() != "default" {
		t.Fatalf("expected default convention, got %s", info.Name())
	}
	s := f.record("s", false, fld("a", b.Int32))
	if got := info.ClassifyArgument(s); !got.Equal(Indirect(0)) {
		t.Fatalf("aggregate arg: %s", got)
	}
	if got := info.ClassifyReturn(s); !got.Equal(Indirect(0)) {
		t.Fatalf("aggregate return: %s", got)
	}
	if got := info.ClassifyArgument(f.in.Vector(b.Float32, 4)); !got.IsDirect() {
		t.Fatalf("vector arg: %s", got)
	}
	if got := info.ClassifyReturn(b.Void); !got.IsIgnore() {
		t.Fatalf("void: %s", got)
	}
}

func TestArgInfoAccessors(t *testing.T) {
	c := Coerce(lltype.I64)
	if c.String() != "Coerce(i64)" || !c.CoerceToType().Equal(lltype.I64) {
		t.Fatalf("coerce: %s", c)
	}
	if Indirect(8).String() != "Indirect(align=8)" || Indirect(8).IndirectAlign() != 8 {
		t.Fatalf("indirect: %s", Indirect(8))
	}
	if Indirect(0).Equal(Indirect(4)) || Coerce(lltype.I32).Equal(Coerce(lltype.I64)) {
		t.Fatalf("payloads must take part in equality")
	}
	expectPanic(t, func() { Direct().CoerceToType() })
	expectPanic(t, func() { Ignore().IndirectAlign() })
}
