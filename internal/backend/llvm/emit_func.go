package llvm

import (
	"fmt"
	"strings"

	"callconv/internal/abi"
	"callconv/internal/lltype"
	"callconv/internal/types"
)

// FuncEmitter builds one function definition. Allocas are collected in a
// separate section so they always land at the top of the entry block.
type FuncEmitter struct {
	emitter *Emitter
	sess    *abi.Session
	name    string
	lowered *abi.Lowered

	paramNames []string
	allocas    strings.Builder
	body       strings.Builder
	tmpID      int
	locals     map[string]bool

	cur        string
	terminated bool
	retSlot    Value
}

// BeginFunction starts the definition of name with the physical signature l.
func (e *Emitter) BeginFunction(name string, l *abi.Lowered) *FuncEmitter {
	fe := &FuncEmitter{
		emitter:    e,
		sess:       e.sess,
		name:       name,
		lowered:    l,
		paramNames: make([]string, len(l.Params)),
		locals:     make(map[string]bool),
		cur:        "entry",
	}
	fe.locals["entry"] = true
	for i := range l.Params {
		fe.paramNames[i] = strings.TrimPrefix(fe.local(fmt.Sprintf("arg%d", i)), "%")
	}
	return fe
}

// Lowered returns the physical signature being defined.
func (fe *FuncEmitter) Lowered() *abi.Lowered { return fe.lowered }

// Param returns physical parameter i.
func (fe *FuncEmitter) Param(i int) Value {
	return Value{Ty: fe.lowered.Params[i].Type, Ref: "%" + fe.paramNames[i]}
}

func (fe *FuncEmitter) nameParam(i int, hint string) Value {
	delete(fe.locals, fe.paramNames[i])
	fe.paramNames[i] = strings.TrimPrefix(fe.local(hint), "%")
	return fe.Param(i)
}

// ReturnSlot is the memory the body stores its result into before the
// epilogue. It is invalid for functions returning void.
func (fe *FuncEmitter) ReturnSlot() Value { return fe.retSlot }

// ReturnType is the logical result type.
func (fe *FuncEmitter) ReturnType() types.TypeID { return fe.lowered.Info.ReturnType() }

// Finish closes the function and appends it to the module.
func (fe *FuncEmitter) Finish() error {
	if !fe.terminated {
		return fmt.Errorf("%s: block %s has no terminator", fe.name, fe.cur)
	}
	e := fe.emitter
	fmt.Fprintf(&e.buf, "%s\n", fe.lowered.Define(fe.name, fe.paramNames))
	e.buf.WriteString("entry:\n")
	e.buf.WriteString(fe.allocas.String())
	e.buf.WriteString(fe.body.String())
	e.buf.WriteString("}\n\n")
	e.defined[fe.name] = true
	return nil
}

// local reserves a fresh local name derived from hint. LLVM shares one
// namespace between values and block labels.
func (fe *FuncEmitter) local(hint string) string {
	if hint == "" {
		return fe.nextTemp()
	}
	name := hint
	for n := 1; fe.locals[name]; n++ {
		name = fmt.Sprintf("%s%d", hint, n)
	}
	fe.locals[name] = true
	return "%" + name
}

func (fe *FuncEmitter) nextTemp() string {
	for {
		name := fmt.Sprintf("t%d", fe.tmpID)
		fe.tmpID++
		if !fe.locals[name] {
			fe.locals[name] = true
			return "%" + name
		}
	}
}

// newBlock reserves a label without starting the block.
func (fe *FuncEmitter) newBlock(hint string) string {
	return strings.TrimPrefix(fe.local(hint), "%")
}

// startBlock begins emitting into label.
func (fe *FuncEmitter) startBlock(label string) {
	fmt.Fprintf(&fe.body, "%s:\n", label)
	fe.cur = label
	fe.terminated = false
}

func (fe *FuncEmitter) emit(format string, args ...any) {
	if fe.terminated {
		abi.Fatal("%s: instruction after terminator in block %s", fe.name, fe.cur)
	}
	fe.body.WriteString("  ")
	fmt.Fprintf(&fe.body, format, args...)
	fe.body.WriteByte('\n')
}

func (fe *FuncEmitter) terminate(format string, args ...any) {
	fe.emit(format, args...)
	fe.terminated = true
}

func (fe *FuncEmitter) dl() lltype.DataLayout { return fe.sess.Conv.DL }
