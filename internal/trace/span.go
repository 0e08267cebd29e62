package trace

import (
	"context"
	"sync/atomic"
	"time"
)

var (
	seqCounter  atomic.Uint64
	spanCounter atomic.Uint64
)

// NextSeq returns a monotonically increasing sequence number.
func NextSeq() uint64 { return seqCounter.Add(1) }

type ctxKey struct{}

// ctxState is what a context carries: the tracer and the innermost open
// span, which becomes the parent of spans started below it.
type ctxState struct {
	tracer Tracer
	parent uint64
}

func stateOf(ctx context.Context) ctxState {
	if ctx != nil {
		if st, ok := ctx.Value(ctxKey{}).(ctxState); ok {
			return st
		}
	}
	return ctxState{tracer: Nop}
}

// FromContext returns the tracer attached to ctx, or Nop.
func FromContext(ctx context.Context) Tracer {
	return stateOf(ctx).tracer
}

// WithTracer attaches t to ctx. Spans started from the result are roots.
func WithTracer(ctx context.Context, t Tracer) context.Context {
	if t == nil {
		t = Nop
	}
	return context.WithValue(ctx, ctxKey{}, ctxState{tracer: t})
}

// Span tracks one begin/end pair.
type Span struct {
	tracer  Tracer
	id      uint64
	parent  uint64
	scope   Scope
	name    string
	started time.Time
	extra   map[string]string
}

var disabledSpan = &Span{tracer: Nop}

// Start begins a span under the tracer and parent span stored in ctx and
// returns a context in which the new span is the parent. When the scope is
// filtered out, ctx is returned unchanged with an inert span.
func Start(ctx context.Context, scope Scope, name string) (context.Context, *Span) {
	st := stateOf(ctx)
	if !st.tracer.Enabled() || !st.tracer.Level().ShouldEmit(scope) {
		return ctx, disabledSpan
	}
	s := &Span{
		tracer:  st.tracer,
		id:      spanCounter.Add(1),
		parent:  st.parent,
		scope:   scope,
		name:    name,
		started: time.Now(),
	}
	s.emit(KindSpanBegin, "", nil, 0)
	return context.WithValue(ctx, ctxKey{}, ctxState{tracer: st.tracer, parent: s.id}), s
}

func (s *Span) emit(kind Kind, detail string, extra map[string]string, elapsed time.Duration) {
	s.tracer.Emit(&Event{
		Time:     time.Now(),
		Kind:     kind,
		Scope:    s.scope,
		SpanID:   s.id,
		ParentID: s.parent,
		Name:     s.name,
		Detail:   detail,
		Extra:    extra,
		Elapsed:  elapsed,
	})
}

// End emits the end event and returns the span's duration. Inert spans
// return 0.
func (s *Span) End(detail string) time.Duration {
	if s == nil || s.id == 0 {
		return 0
	}
	dur := time.Since(s.started)
	s.emit(KindSpanEnd, detail, s.extra, dur)
	return dur
}

// WithExtra attaches a key/value pair to the end event.
func (s *Span) WithExtra(key, value string) *Span {
	if s == nil || s.id == 0 {
		return s
	}
	if s.extra == nil {
		s.extra = make(map[string]string, 4)
	}
	s.extra[key] = value
	return s
}

// ID returns the span ID, 0 for an inert span.
func (s *Span) ID() uint64 {
	if s == nil {
		return 0
	}
	return s.id
}

// Point emits an instant event.
func Point(t Tracer, scope Scope, name, detail string, extra map[string]string) {
	if t == nil || !t.Enabled() || !t.Level().ShouldEmit(scope) {
		return
	}
	t.Emit(&Event{
		Time:   time.Now(),
		Kind:   KindPoint,
		Scope:  scope,
		Name:   name,
		Detail: detail,
		Extra:  extra,
	})
}
