package abi

import (
	"context"
	"testing"

	"callconv/internal/layout"
	"callconv/internal/types"
)

type fixture struct {
	t    *testing.T
	in   *types.Interner
	b    types.Builtins
	sess *Session
}

func newFixture(t *testing.T, target layout.Target) *fixture {
	t.Helper()
	in := types.NewInterner()
	return &fixture{t: t, in: in, b: in.Builtins(), sess: NewSession(target, in)}
}

// retarget builds a session for another target over the same types.
func (f *fixture) retarget(target layout.Target) *Session {
	return NewSession(target, f.in)
}

func (f *fixture) record(name string, packed bool, fields ...types.Field) types.TypeID {
	id := f.in.RegisterStruct(name)
	f.in.SetRecordBody(id, packed, fields)
	return id
}

func (f *fixture) union(name string, fields ...types.Field) types.TypeID {
	id := f.in.RegisterUnion(name)
	f.in.SetRecordBody(id, false, fields)
	return id
}

func fld(name string, ty types.TypeID) types.Field {
	return types.Field{Name: name, Type: ty}
}

func bits(name string, ty types.TypeID, width uint32) types.Field {
	return types.Field{Name: name, Type: ty, BitField: true, BitWidth: width}
}

func (f *fixture) intern(s *Session, ret types.TypeID, args ...types.TypeID) *FunctionInfo {
	return s.Registry.Intern(context.Background(), ret, args)
}

func (f *fixture) x64() *X86_64Info {
	x, ok := f.sess.ABI.(*X86_64Info)
	if !ok {
		f.t.Fatalf("session is not x86-64: %T", f.sess.ABI)
	}
	return x
}

func expectPanic(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected invariant panic")
		}
		if _, ok := r.(*InvariantError); !ok {
			t.Fatalf("expected *InvariantError, got %T: %v", r, r)
		}
	}()
	fn()
}
