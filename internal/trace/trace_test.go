package trace

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/vmihailenco/msgpack/v5"
)

func TestLevelGatesScopes(t *testing.T) {
	cases := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelPhase, ScopePass, true},
		{LevelPhase, ScopeSignature, false},
		{LevelDetail, ScopeSignature, true},
		{LevelDetail, ScopeArgument, false},
		{LevelDebug, ScopeArgument, true},
	}
	for _, tc := range cases {
		if got := tc.level.ShouldEmit(tc.scope); got != tc.want {
			t.Fatalf("%s.ShouldEmit(%s) = %v, want %v", tc.level, tc.scope, got, tc.want)
		}
	}
}

func TestStreamTracerWritesSpans(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	ctx := WithTracer(context.Background(), tr)

	ctx, outer := Start(ctx, ScopePass, "lower")
	_, inner := Start(ctx, ScopeSignature, "sig:f")
	inner.WithExtra("args", "2").End("")
	outer.End("done")
	if err := tr.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	out := buf.String()
	for _, want := range []string{"→ lower", "→ sig:f", "← sig:f {args=2}", "← lower (done)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestRingTracerKeepsLastEvents(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeArgument, name, "", nil)
	}
	got := r.Snapshot()
	if len(got) != 2 || got[0].Name != "b" || got[1].Name != "c" {
		t.Fatalf("unexpected snapshot %+v", got)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatNDJSON); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 || !strings.Contains(buf.String(), `"name":"c"`) {
		t.Fatalf("unexpected dump %q", buf.String())
	}
}

func TestNopTracerIsDisabled(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if tr.Enabled() {
		t.Fatalf("off level must produce a disabled tracer")
	}
	ctx := WithTracer(context.Background(), tr)
	if next, s := Start(ctx, ScopeDriver, "x"); s.ID() != 0 || next != ctx || s.End("") != 0 {
		t.Fatalf("disabled tracer must not allocate spans")
	}
}

func TestSpansNestUnderParent(t *testing.T) {
	r := NewRingTracer(16, LevelDetail)
	ctx := WithTracer(context.Background(), r)
	ctx, outer := Start(ctx, ScopePass, "outer")
	_, inner := Start(ctx, ScopeSignature, "inner")
	// Argument scope is filtered at detail level.
	_, arg := Start(ctx, ScopeArgument, "arg")
	arg.End("")
	inner.End("")
	outer.End("")

	evs := r.Snapshot()
	if len(evs) != 4 {
		t.Fatalf("events %+v", evs)
	}
	if evs[1].ParentID != outer.ID() || evs[0].ParentID != 0 {
		t.Fatalf("parent ids: %+v", evs)
	}
	if evs[3].Kind != KindSpanEnd || evs[3].Name != "outer" || evs[3].Elapsed <= 0 {
		t.Fatalf("end event %+v", evs[3])
	}
}

func TestMsgpackStream(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatMsgpack)
	Point(tr, ScopeArgument, "abi.demote", "f", map[string]string{"arg": "2"})
	Point(tr, ScopeArgument, "abi.demote", "g", nil)
	if err := tr.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	dec := msgpack.NewDecoder(&buf)
	var first, second Event
	if err := dec.Decode(&first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := dec.Decode(&second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Detail != "f" || first.Extra["arg"] != "2" || first.Scope != ScopeArgument || second.Seq <= first.Seq {
		t.Fatalf("decoded %+v then %+v", first, second)
	}
}

func TestNewBothKeepsRing(t *testing.T) {
	var buf bytes.Buffer
	tr, err := New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf, RingSize: 8})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	Point(tr, ScopePass, "load", "", nil)
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	ring := RingOf(tr)
	if ring == nil || len(ring.Snapshot()) != 1 {
		t.Fatalf("ring missing or empty")
	}
	if !strings.Contains(buf.String(), "• load") {
		t.Fatalf("stream output %q", buf.String())
	}
	if RingOf(Nop) != nil {
		t.Fatalf("nop has no ring")
	}
}

func TestParseHelpers(t *testing.T) {
	if l, err := ParseLevel("DEBUG"); err != nil || l != LevelDebug {
		t.Fatalf("ParseLevel: %v %v", l, err)
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
	if m, err := ParseMode("both"); err != nil || m != ModeBoth {
		t.Fatalf("ParseMode: %v %v", m, err)
	}
	if f, err := ParseFormat("ndjson"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat: %v %v", f, err)
	}
	if f := resolveFormat(Config{OutputPath: "run.msgpack"}); f != FormatMsgpack {
		t.Fatalf("resolveFormat: %v", f)
	}
}
