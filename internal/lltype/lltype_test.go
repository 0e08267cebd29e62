package lltype_test

import (
	"testing"

	"callconv/internal/layout"
	"callconv/internal/lltype"
	"callconv/internal/types"
)

func TestTypeStrings(t *testing.T) {
	cases := []struct {
		ty   lltype.Type
		want string
	}{
		{lltype.Void(), "void"},
		{lltype.I64, "i64"},
		{lltype.Struct(lltype.Double, lltype.I64), "{ double, i64 }"},
		{lltype.PackedStruct(lltype.Array(lltype.I32, 3)), "<{ [3 x i32] }>"},
		{lltype.Vector(lltype.Double, 2), "<2 x double>"},
		{lltype.Struct(), "{}"},
		{lltype.Struct(lltype.X86FP80, lltype.X86FP80), "{ x86_fp80, x86_fp80 }"},
	}
	for _, tc := range cases {
		if got := tc.ty.String(); got != tc.want {
			t.Fatalf("got %q, want %q", got, tc.want)
		}
	}
}

func TestTypeEquality(t *testing.T) {
	a := lltype.Struct(lltype.Double, lltype.I64)
	b := lltype.Struct(lltype.Double, lltype.I64)
	if !a.Equal(b) {
		t.Fatalf("identical structs must compare equal")
	}
	if a.Equal(lltype.PackedStruct(lltype.Double, lltype.I64)) {
		t.Fatalf("packedness must matter")
	}
	if lltype.Array(lltype.I32, 2).Equal(lltype.Array(lltype.I32, 3)) {
		t.Fatalf("array length must matter")
	}
}

func TestDataLayoutSizes(t *testing.T) {
	x64 := lltype.DataLayoutFor(layout.X86_64LinuxGNU())
	i386 := lltype.DataLayoutFor(layout.I386LinuxGNU())
	cases := []struct {
		dl    lltype.DataLayout
		ty    lltype.Type
		size  int
		align int
	}{
		{x64, lltype.I1, 1, 1},
		{x64, lltype.Int(24), 4, 4},
		{x64, lltype.Struct(lltype.I8, lltype.Double), 16, 8},
		{i386, lltype.Struct(lltype.I8, lltype.Double), 12, 4},
		{x64, lltype.PackedStruct(lltype.I8, lltype.Double), 9, 1},
		{x64, lltype.X86FP80, 16, 16},
		{i386, lltype.X86FP80, 12, 4},
		{x64, lltype.Vector(lltype.Double, 2), 16, 16},
		{x64, lltype.Array(lltype.I64, 3), 24, 8},
	}
	for _, tc := range cases {
		if got := tc.dl.AllocSize(tc.ty); got != tc.size {
			t.Fatalf("AllocSize(%s) = %d, want %d", tc.ty, got, tc.size)
		}
		if got := tc.dl.ABIAlign(tc.ty); got != tc.align {
			t.Fatalf("ABIAlign(%s) = %d, want %d", tc.ty, got, tc.align)
		}
	}
	if off := x64.ElementOffset(lltype.Struct(lltype.I8, lltype.Double), 1); off != 8 {
		t.Fatalf("element offset %d", off)
	}
}

func TestConvertMatchesLayoutSize(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	s := in.RegisterStruct("mixed")
	in.SetRecordBody(s, false, []types.Field{
		{Name: "flag", Type: b.Bool},
		{Name: "a", Type: b.Uint32, BitField: true, BitWidth: 5},
		{Name: "b", Type: b.Uint32, BitField: true, BitWidth: 7},
		{Name: "d", Type: b.Float64},
		{Name: "ld", Type: b.LongDouble},
		{Name: "z", Type: in.Complex(b.Float32)},
	})
	u := in.RegisterUnion("u")
	in.SetRecordBody(u, false, []types.Field{
		{Name: "c", Type: in.Array(b.Int8, 13)},
		{Name: "d", Type: b.Float64},
	})
	for _, target := range []layout.Target{layout.X86_64LinuxGNU(), layout.I386LinuxGNU(), layout.ARMLinuxGNUEABI()} {
		le := layout.New(target, in)
		conv := lltype.NewConverter(in, le)
		for _, id := range []types.TypeID{s, u, in.Complex(b.LongDouble), in.Array(s, 2)} {
			ty, err := conv.ConvertTypeForMem(id)
			if err != nil {
				t.Fatalf("%s: %v", in.TypeString(id), err)
			}
			size, _ := le.SizeOf(id)
			if got := conv.DL.AllocSize(ty); got != size {
				t.Fatalf("%s on %s: %s has size %d, layout says %d", in.TypeString(id), target.Triple, ty, got, size)
			}
		}
	}
}

func TestConvertScalars(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	conv := lltype.NewConverter(in, layout.New(layout.X86_64LinuxGNU(), in))
	if got := conv.MustConvert(b.Bool); !got.Equal(lltype.I1) {
		t.Fatalf("bool value type %s", got)
	}
	if got := conv.MustConvertForMem(b.Bool); !got.Equal(lltype.I8) {
		t.Fatalf("bool memory type %s", got)
	}
	if got := conv.MustConvert(b.LongDouble); !got.Equal(lltype.X86FP80) {
		t.Fatalf("long double %s", got)
	}
	if got := conv.MustConvert(in.RegisterEnum("e", b.Uint16)); !got.Equal(lltype.I16) {
		t.Fatalf("enum %s", got)
	}
	arm := lltype.NewConverter(in, layout.New(layout.ARMLinuxGNUEABI(), in))
	if got := arm.MustConvert(b.LongDouble); !got.Equal(lltype.Double) {
		t.Fatalf("arm long double %s", got)
	}
}
