package driver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"callconv/internal/abi"
	"callconv/internal/backend/llvm"
	"callconv/internal/layout"
	"callconv/internal/sigfile"
	"callconv/internal/trace"
)

const unitSrc = `
[target]
triple = "x86_64-linux-gnu"

[[record]]
name = "pair"
[[record.field]]
name = "a"
type = "float"
[[record.field]]
name = "b"
type = "float"

[[record]]
name = "big"
[[record.field]]
name = "v"
type = "int64[4]"

[[signature]]
name = "f"
params = ["int32", "pair"]
param_names = ["n", "p"]

[[signature]]
name = "g"
params = ["int32", "pair"]

[[signature]]
name = "make_big"
result = "big"
params = ["int8"]
nothrow = true

[[signature]]
name = "logf"
result = "int32"
params = ["int8*"]
variadic = true
va_reads = ["double", "int64", "big"]
`

func parseUnit(t *testing.T, src string) *sigfile.Unit {
	t.Helper()
	u, err := sigfile.Parse("unit.toml", src, sigfile.Options{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return u
}

func TestLowerAllKeepsOrderAndSharesSignatures(t *testing.T) {
	u := parseUnit(t, unitSrc)
	b, err := LowerAll(context.Background(), u, Options{Jobs: 3})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if len(b.Results) != 4 || len(b.Failed()) != 0 {
		t.Fatalf("results %+v", b.Results)
	}
	for i, want := range []string{"f", "g", "make_big", "logf"} {
		if got := b.Results[i].Signature.Name; got != want {
			t.Fatalf("result %d is %s, want %s", i, got, want)
		}
	}
	if b.Results[0].Info != b.Results[1].Info {
		t.Fatalf("equal signatures must share one registry entry")
	}
	if b.Session.Registry.Len() != 3 {
		t.Fatalf("registry holds %d entries, want 3", b.Session.Registry.Len())
	}

	f := b.Results[0].Info
	if !f.ReturnInfo().IsIgnore() || !f.Arg(0).Info.IsDirect() || !f.Arg(1).Info.IsCoerce() {
		t.Fatalf("f dispositions: ret %s, %s, %s", f.ReturnInfo(), f.Arg(0).Info, f.Arg(1).Info)
	}
	mk := b.Results[2].Lowered
	if !mk.HasStructRet() || !mk.Params[1].Attrs.Has(abi.AttrSExt) || !mk.FnAttrs.Has(abi.AttrNoUnwind) {
		t.Fatalf("make_big lowered %+v", mk)
	}
	if len(b.Timing.Phases) != 2 || b.Timing.Phases[1].Name != "lower" {
		t.Fatalf("timing %+v", b.Timing)
	}
}

func TestLowerAllReportsPerSignatureFailure(t *testing.T) {
	src := `
[target]
triple = "x86_64-linux-gnu"

[[record]]
name = "loop"
[[record.field]]
name = "self"
type = "struct loop"

[[signature]]
name = "bad"
params = ["struct loop"]

[[signature]]
name = "good"
result = "double"
params = ["double"]
`
	b, err := LowerAll(context.Background(), parseUnit(t, src), Options{})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	failed := b.Failed()
	if len(failed) != 1 || failed[0].Signature.Name != "bad" {
		t.Fatalf("failed %+v", failed)
	}
	var le *layout.LayoutError
	if !errors.As(failed[0].Err, &le) || !strings.HasPrefix(failed[0].Err.Error(), "bad: ") {
		t.Fatalf("expected a layout error for bad, got %v", failed[0].Err)
	}
	if b.Results[1].Err != nil || b.Results[1].Lowered == nil {
		t.Fatalf("good must still lower: %+v", b.Results[1])
	}
}

func TestLowerAllHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := LowerAll(ctx, parseUnit(t, unitSrc), Options{Jobs: 1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestLowerAllEmitsTraceAndPhases(t *testing.T) {
	ring := trace.NewRingTracer(256, trace.LevelDetail)
	ctx := trace.WithTracer(context.Background(), ring)

	var mu sync.Mutex
	var events []PhaseEvent
	obs := func(ev PhaseEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	}
	if _, err := LowerAll(ctx, parseUnit(t, unitSrc), Options{Observer: obs}); err != nil {
		t.Fatalf("lower: %v", err)
	}
	if len(events) != 4 || events[2].Name != "lower" || events[2].Status != PhaseStart || events[3].Status != PhaseEnd {
		t.Fatalf("phase events %+v", events)
	}

	var sawDriver, sawSignature, sawIntern bool
	for _, ev := range ring.Snapshot() {
		switch {
		case ev.Name == "driver.lower_all" && ev.Kind == trace.KindSpanEnd:
			sawDriver = ev.Extra["signatures"] == "4" && ev.Extra["failed"] == "0"
		case ev.Name == "driver.lower" && ev.Kind == trace.KindSpanEnd:
			sawSignature = true
		case ev.Name == "abi.intern":
			sawIntern = true
		}
	}
	if !sawDriver || !sawSignature || !sawIntern {
		t.Fatalf("missing trace events: driver=%v signature=%v intern=%v", sawDriver, sawSignature, sawIntern)
	}
}

func TestBuildModule(t *testing.T) {
	ctx := context.Background()
	b, err := LowerAll(ctx, parseUnit(t, unitSrc), Options{})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	mod, err := BuildModule(ctx, b)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, want := range []string{
		`target triple = "x86_64-linux-gnu"`,
		"declare void @f(i32, double)",
		"declare void @make_big(ptr sret(",
		"declare i32 @logf(ptr, ...)",
		"define void @f.wrap(i32 %n, double %p) {",
		"call void @f(i32 ",
		"define void @g.wrap(i32 %a0, double %a1) {",
		"define void @make_big.wrap(ptr sret(",
		"%agg.result",
		"call i32 (ptr, ...) @logf(ptr ",
		"define void @logf.va(ptr %ap, ptr %out0, ptr %out1, ptr %out2) nounwind {",
		"%vaarg.addr = phi ptr",
		"%overflow_arg_area_p = getelementptr inbounds { i32, i32, ptr, ptr }",
		"call void @llvm.memcpy.p0.p0.i64(",
	} {
		if !strings.Contains(mod, want) {
			t.Fatalf("missing %q in\n%s", want, mod)
		}
	}
	if strings.Contains(mod, "declare void @f.wrap") {
		t.Fatalf("defined wrappers must not be declared:\n%s", mod)
	}
}

func TestBuildModuleDefaultTargetSkipsReader(t *testing.T) {
	src := strings.Replace(unitSrc, "x86_64-linux-gnu", "riscv64-unknown-elf", 1)
	ctx := context.Background()
	b, err := LowerAll(ctx, parseUnit(t, src), Options{})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	mod, err := BuildModule(ctx, b)
	if !errors.Is(err, llvm.ErrVAArgUnsupported) || !strings.Contains(err.Error(), "logf.va") {
		t.Fatalf("expected ErrVAArgUnsupported for logf.va, got %v", err)
	}
	if !strings.Contains(mod, "define i32 @logf.wrap(") || strings.Contains(mod, "@logf.va(") {
		t.Fatalf("wrapper kept, reader dropped:\n%s", mod)
	}
}

func TestLowerAllReportsProgress(t *testing.T) {
	var mu sync.Mutex
	last := map[int]SignatureStatus{}
	queued := 0
	progress := func(ev SignatureEvent) {
		mu.Lock()
		defer mu.Unlock()
		if ev.Status == SignatureQueued {
			queued++
		}
		if prev, ok := last[ev.Index]; ok && ev.Status <= prev {
			t.Errorf("signature %d went from %d to %d", ev.Index, prev, ev.Status)
		}
		last[ev.Index] = ev.Status
	}
	b, err := LowerAll(context.Background(), parseUnit(t, unitSrc), Options{Jobs: 2, Progress: progress})
	if err != nil {
		t.Fatalf("lower: %v", err)
	}
	if queued != len(b.Results) || len(last) != len(b.Results) {
		t.Fatalf("queued %d, tracked %d, results %d", queued, len(last), len(b.Results))
	}
	for i, st := range last {
		if st != SignatureDone {
			t.Fatalf("signature %d ended in %d", i, st)
		}
	}
}

func TestChannelProgress(t *testing.T) {
	ch := make(chan SignatureEvent, 1)
	ChannelProgress(ch)(SignatureEvent{Index: 3, Name: "f", Status: SignatureError})
	if ev := <-ch; ev.Index != 3 || ev.Status != SignatureError {
		t.Fatalf("event %+v", ev)
	}
}
