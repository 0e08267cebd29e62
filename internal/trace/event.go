package trace

import "time"

// Kind represents the type of trace event.
type Kind uint8

const (
	KindSpanBegin Kind = iota + 1
	KindSpanEnd
	KindPoint
)

func (k Kind) String() string {
	switch k {
	case KindSpanBegin:
		return "begin"
	case KindSpanEnd:
		return "end"
	case KindPoint:
		return "point"
	default:
		return "unknown"
	}
}

// Scope indicates the granularity of an event. Coarser scopes have lower
// values so a level can gate them with one comparison.
type Scope uint8

const (
	ScopeDriver    Scope = iota + 1 // whole command
	ScopePass                       // load, classify, lower, emit
	ScopeSignature                  // one function signature
	ScopeArgument                   // one argument disposition
)

func (s Scope) String() string {
	switch s {
	case ScopeDriver:
		return "driver"
	case ScopePass:
		return "pass"
	case ScopeSignature:
		return "signature"
	case ScopeArgument:
		return "argument"
	default:
		return "unknown"
	}
}

// Event is one trace record. Seq is assigned by the sink that stores it.
type Event struct {
	Time     time.Time         `json:"-" msgpack:"time"`
	Seq      uint64            `json:"seq" msgpack:"seq"`
	Kind     Kind              `json:"-" msgpack:"kind"`
	Scope    Scope             `json:"-" msgpack:"scope"`
	SpanID   uint64            `json:"span_id,omitempty" msgpack:"span,omitempty"`
	ParentID uint64            `json:"parent_id,omitempty" msgpack:"parent,omitempty"`
	Name     string            `json:"name" msgpack:"name"`
	Detail   string            `json:"detail,omitempty" msgpack:"detail,omitempty"`
	Extra    map[string]string `json:"extra,omitempty" msgpack:"extra,omitempty"`
	// Elapsed is set on span end events.
	Elapsed time.Duration `json:"-" msgpack:"elapsed,omitempty"`
}
