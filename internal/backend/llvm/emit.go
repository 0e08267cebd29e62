package llvm

import (
	"fmt"
	"strings"

	"callconv/internal/abi"
	"callconv/internal/lltype"
)

// Emitter collects the declarations and function bodies of one textual
// LLVM module.
type Emitter struct {
	sess      *abi.Session
	buf       strings.Builder
	declOrder []string
	decls     map[string]string
	defined   map[string]bool
}

// Value is a typed SSA operand: a register, a constant or "undef".
type Value struct {
	Ty  lltype.Type
	Ref string
}

func (v Value) String() string {
	return v.Ty.String() + " " + v.Ref
}

// IsValid reports whether v names an operand.
func (v Value) IsValid() bool { return v.Ref != "" }

func undef(t lltype.Type) Value { return Value{Ty: t, Ref: "undef"} }

func constInt(t lltype.Type, n int64) Value {
	return Value{Ty: t, Ref: fmt.Sprintf("%d", n)}
}

func NewEmitter(sess *abi.Session) *Emitter {
	return &Emitter{
		sess:    sess,
		decls:   make(map[string]string),
		defined: make(map[string]bool),
	}
}

// Session returns the ABI session the module is emitted for.
func (e *Emitter) Session() *abi.Session { return e.sess }

// Declare records an external declaration of name. A later definition of
// the same name suppresses it.
func (e *Emitter) Declare(name string, l *abi.Lowered) {
	e.declareRaw(name, l.Declare(name))
}

func (e *Emitter) declareRaw(name, text string) {
	if _, ok := e.decls[name]; ok {
		return
	}
	e.decls[name] = text
	e.declOrder = append(e.declOrder, name)
}

// String renders the module: preamble, declarations, then definitions in
// the order they were finished.
func (e *Emitter) String() string {
	var out strings.Builder
	e.emitPreamble(&out)
	n := 0
	for _, name := range e.declOrder {
		if e.defined[name] {
			continue
		}
		out.WriteString(e.decls[name])
		out.WriteByte('\n')
		n++
	}
	if n > 0 {
		out.WriteByte('\n')
	}
	out.WriteString(e.buf.String())
	return out.String()
}

func (e *Emitter) emitPreamble(out *strings.Builder) {
	fmt.Fprintf(out, "target triple = \"%s\"\n\n", e.sess.Target.Triple)
}
