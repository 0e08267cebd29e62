package abi

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"callconv/internal/layout"
	"callconv/internal/trace"
	"callconv/internal/types"
)

func TestRegistryReturnsCanonicalRecord(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.b
	args := []types.TypeID{b.Int32, b.Float64}
	first := f.intern(f.sess, b.Void, args...)
	args[0] = b.Int8 // the registry must not alias the caller's slice
	second := f.intern(f.sess, b.Void, b.Int32, b.Float64)
	if first != second {
		t.Fatalf("equal signatures must share one record")
	}
	if first.Arg(0).Type != b.Int32 {
		t.Fatalf("record changed with the caller's slice")
	}
	if other := f.intern(f.sess, b.Int32, b.Int32, b.Float64); other == first {
		t.Fatalf("different result types must not share a record")
	}
	if f.sess.Registry.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", f.sess.Registry.Len())
	}
}

func TestRegistryConcurrentInterning(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.b
	s := f.record("s", false, fld("a", b.Float64), fld("b", b.Int64))
	// Warm layouts so concurrent readers never race with interner mutation.
	if _, err := f.sess.Layout.LayoutOf(s); err != nil {
		t.Fatalf("layout: %v", err)
	}

	const workers = 32
	got := make([]*FunctionInfo, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got[i] = f.sess.Registry.Intern(context.Background(), s, []types.TypeID{s, b.Int32})
		}()
	}
	wg.Wait()
	for i := 1; i < workers; i++ {
		if got[i] != got[0] {
			t.Fatalf("worker %d got a different record", i)
		}
	}
	if !got[0].ReturnInfo().IsCoerce() {
		t.Fatalf("record published before classification: %s", got[0].ReturnInfo())
	}
}

func TestRegistryTracesDemotions(t *testing.T) {
	f := newFixture(t, layout.X86_64LinuxGNU())
	b := f.b
	var buf bytes.Buffer
	tr := trace.NewStreamTracer(&buf, trace.LevelDebug, trace.FormatText)
	ctx := trace.WithTracer(context.Background(), tr)
	args := make([]types.TypeID, 7)
	for i := range args {
		args[i] = b.Int64
	}
	f.sess.Registry.Intern(ctx, b.Void, args)
	if err := tr.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "abi.demote (arg 6)") || !strings.Contains(out, "abi.intern") {
		t.Fatalf("missing trace events:\n%s", out)
	}
}
