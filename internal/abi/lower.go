package abi

import (
	"fmt"
	"strings"

	"callconv/internal/lltype"
	"callconv/internal/types"
)

// Attr is a set of parameter, result or function attributes.
type Attr uint16

const (
	AttrSExt Attr = 1 << iota
	AttrZExt
	AttrByVal
	AttrStructRet
	AttrNoAlias
	AttrNoUnwind
	AttrNoReturn
	AttrReadOnly
	AttrReadNone
)

func (a Attr) Has(b Attr) bool { return a&b == b }

// DeclAttrs are the source-level properties of a function declaration.
type DeclAttrs struct {
	NoThrow  bool
	NoReturn bool
	Pure     bool // reads memory only
	Const    bool // touches no memory
}

// Param is one physical parameter.
type Param struct {
	Type    lltype.Type
	Attrs   Attr
	Pointee lltype.Type // for sret and byval
	Align   int         // for byval, 0 means natural
	Arg     int         // logical argument index, -1 for the sret pointer
}

// Lowered is the physical form of a function type plus its attribute list.
type Lowered struct {
	Info     *FunctionInfo
	Decl     DeclAttrs
	Variadic bool

	Result   lltype.Type
	RetAttrs Attr
	FnAttrs  Attr
	Params   []Param

	argStart []int
	argCount []int
}

// HasStructRet reports whether the first physical parameter is the hidden
// result pointer.
func (l *Lowered) HasStructRet() bool {
	return len(l.Params) > 0 && l.Params[0].Attrs.Has(AttrStructRet)
}

// ArgParams returns the range of physical parameters carrying logical
// argument i. Ignored arguments have n == 0.
func (l *Lowered) ArgParams(i int) (start, n int) {
	return l.argStart[i], l.argCount[i]
}

// Lower maps fi to a physical signature. The hidden result pointer, when
// present, is always the first parameter. Ignored arguments contribute no
// parameter and expanded arguments one per leaf.
func (s *Session) Lower(fi *FunctionInfo, decl DeclAttrs, variadic bool) (*Lowered, error) {
	l := &Lowered{
		Info:     fi,
		Decl:     decl,
		Variadic: variadic,
		argStart: make([]int, fi.NumArgs()),
		argCount: make([]int, fi.NumArgs()),
	}
	if decl.NoThrow {
		l.FnAttrs |= AttrNoUnwind
	}
	if decl.NoReturn {
		l.FnAttrs |= AttrNoReturn
	}
	if decl.Pure {
		l.FnAttrs |= AttrReadOnly
	}
	if decl.Const {
		l.FnAttrs |= AttrReadNone
	}

	ret := fi.Return()
	switch ret.Info.Kind() {
	case KindDirect:
		t, err := s.Conv.ConvertType(ret.Type)
		if err != nil {
			return nil, err
		}
		l.Result = t
		l.RetAttrs = s.extensionAttr(ret.Type)
	case KindIndirect:
		pointee, err := s.Conv.ConvertTypeForMem(ret.Type)
		if err != nil {
			return nil, err
		}
		l.Result = lltype.Void()
		l.Params = append(l.Params, Param{
			Type:    lltype.Ptr,
			Attrs:   AttrStructRet | AttrNoAlias,
			Pointee: pointee,
			Arg:     -1,
		})
		l.FnAttrs &^= AttrReadOnly | AttrReadNone
	case KindIgnore:
		l.Result = lltype.Void()
	case KindCoerce:
		l.Result = ret.Info.CoerceToType()
	case KindExpand:
		invariant("invalid disposition %s for result", ret.Info)
	}

	for i := range fi.NumArgs() {
		arg := fi.Arg(i)
		l.argStart[i] = len(l.Params)
		switch arg.Info.Kind() {
		case KindDirect:
			t, err := s.Conv.ConvertType(arg.Type)
			if err != nil {
				return nil, err
			}
			l.Params = append(l.Params, Param{Type: t, Attrs: s.extensionAttr(arg.Type), Arg: i})
		case KindIndirect:
			pointee, err := s.Conv.ConvertTypeForMem(arg.Type)
			if err != nil {
				return nil, err
			}
			l.Params = append(l.Params, Param{
				Type:    lltype.Ptr,
				Attrs:   AttrByVal,
				Pointee: pointee,
				Align:   arg.Info.IndirectAlign(),
				Arg:     i,
			})
			// The callee receives a copy in caller-owned memory it may read.
			l.FnAttrs &^= AttrReadOnly | AttrReadNone
		case KindCoerce:
			l.Params = append(l.Params, Param{Type: arg.Info.CoerceToType(), Arg: i})
		case KindIgnore:
		case KindExpand:
			leaves, err := s.ExpandedTypes(arg.Type)
			if err != nil {
				return nil, err
			}
			for _, t := range leaves {
				l.Params = append(l.Params, Param{Type: t, Arg: i})
			}
		}
		l.argCount[i] = len(l.Params) - l.argStart[i]
	}
	return l, nil
}

// extensionAttr returns signext/zeroext for integers narrower than int.
func (s *Session) extensionAttr(id types.TypeID) Attr {
	if !s.Types.IsPromotableInteger(id) {
		return 0
	}
	if s.Types.IsSignedInteger(id) {
		return AttrSExt
	}
	return AttrZExt
}

// FunctionType renders the physical function type, e.g. "void (ptr, i32)".
func (l *Lowered) FunctionType() string {
	parts := make([]string, 0, len(l.Params)+1)
	for _, p := range l.Params {
		parts = append(parts, p.Type.String())
	}
	if l.Variadic {
		parts = append(parts, "...")
	}
	return fmt.Sprintf("%s (%s)", l.Result, strings.Join(parts, ", "))
}

// Declare renders an external declaration of the function.
func (l *Lowered) Declare(name string) string {
	return "declare " + l.header(name, nil)
}

// Define renders the opening line of a function definition. names holds one
// entry per physical parameter, without the leading '%'.
func (l *Lowered) Define(name string, names []string) string {
	return "define " + l.header(name, names) + " {"
}

func (l *Lowered) header(name string, names []string) string {
	var sb strings.Builder
	if ra := renderAttrs(l.RetAttrs); ra != "" {
		sb.WriteString(ra)
		sb.WriteByte(' ')
	}
	fmt.Fprintf(&sb, "%s @%s(", l.Result, name)
	for i, p := range l.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.String())
		if names != nil {
			sb.WriteString(" %")
			sb.WriteString(names[i])
		}
	}
	if l.Variadic {
		if len(l.Params) > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("...")
	}
	sb.WriteByte(')')
	if fa := renderAttrs(l.FnAttrs); fa != "" {
		sb.WriteByte(' ')
		sb.WriteString(fa)
	}
	return sb.String()
}

// CallAttrs renders the attributes a call site repeats for parameter i.
func (l *Lowered) CallAttrs(i int) string {
	return l.Params[i].attrString()
}

// ResultAttrs renders the result attributes, e.g. "signext".
func (l *Lowered) ResultAttrs() string { return renderAttrs(l.RetAttrs) }

// FunctionAttrs renders the function attributes, e.g. "nounwind memory(read)".
func (l *Lowered) FunctionAttrs() string { return renderAttrs(l.FnAttrs) }

// String renders the parameter type with its attributes.
func (p Param) String() string {
	if a := p.attrString(); a != "" {
		return p.Type.String() + " " + a
	}
	return p.Type.String()
}

func (p Param) attrString() string {
	parts := make([]string, 0, 3)
	if p.Attrs.Has(AttrStructRet) {
		parts = append(parts, fmt.Sprintf("sret(%s)", p.Pointee))
	}
	if p.Attrs.Has(AttrByVal) {
		parts = append(parts, fmt.Sprintf("byval(%s)", p.Pointee))
		if p.Align > 0 {
			parts = append(parts, fmt.Sprintf("align %d", p.Align))
		}
	}
	if rest := renderAttrs(p.Attrs &^ (AttrStructRet | AttrByVal)); rest != "" {
		parts = append(parts, rest)
	}
	return strings.Join(parts, " ")
}

func renderAttrs(a Attr) string {
	var parts []string
	if a.Has(AttrSExt) {
		parts = append(parts, "signext")
	}
	if a.Has(AttrZExt) {
		parts = append(parts, "zeroext")
	}
	if a.Has(AttrNoAlias) {
		parts = append(parts, "noalias")
	}
	if a.Has(AttrNoUnwind) {
		parts = append(parts, "nounwind")
	}
	if a.Has(AttrNoReturn) {
		parts = append(parts, "noreturn")
	}
	switch {
	case a.Has(AttrReadNone):
		parts = append(parts, "memory(none)")
	case a.Has(AttrReadOnly):
		parts = append(parts, "memory(read)")
	}
	return strings.Join(parts, " ")
}
