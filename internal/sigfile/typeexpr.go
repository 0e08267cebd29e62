package sigfile

import (
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"

	"callconv/internal/types"
)

// Type expressions use the same spelling TypeString prints:
//
//	int32  uint8  float  double  long double  bool  void
//	T*  T[4]  T[]  complex<T>  vec<T, 4>
//	struct name  union name  enum name  name
type exprParser struct {
	src string
	pos int
	sc  *scope
}

// scope resolves the names a type expression may use.
type scope struct {
	in      *types.Interner
	records map[string]types.TypeID
	enums   map[string]types.TypeID
}

func (sc *scope) parseType(src string) (types.TypeID, error) {
	p := &exprParser{src: src, sc: sc}
	id, err := p.parseType()
	if err != nil {
		return types.NoTypeID, err
	}
	p.skipSpace()
	if p.pos < len(p.src) {
		return types.NoTypeID, p.errorf("unexpected %q", p.src[p.pos:])
	}
	return id, nil
}

func (p *exprParser) errorf(format string, args ...any) error {
	return fmt.Errorf("%w in %q at %d: %s", ErrSyntax, p.src, p.pos, fmt.Sprintf(format, args...))
}

func (p *exprParser) parseType() (types.TypeID, error) {
	id, err := p.parseBase()
	if err != nil {
		return types.NoTypeID, err
	}
	for {
		p.skipSpace()
		switch {
		case p.accept('*'):
			id = p.sc.in.Pointer(id)
		case p.accept('['):
			p.skipSpace()
			if p.accept(']') {
				id = p.sc.in.Array(id, types.ArrayFlexible)
				continue
			}
			n, err := p.count()
			if err != nil {
				return types.NoTypeID, err
			}
			if !p.expect(']') {
				return types.NoTypeID, p.errorf("expected ']'")
			}
			id = p.sc.in.Array(id, n)
		default:
			return id, nil
		}
	}
}

func (p *exprParser) parseBase() (types.TypeID, error) {
	p.skipSpace()
	word := p.word()
	if word == "" {
		return types.NoTypeID, p.errorf("expected a type")
	}
	b := p.sc.in.Builtins()
	switch word {
	case "void":
		return b.Void, nil
	case "bool":
		return b.Bool, nil
	case "int8":
		return b.Int8, nil
	case "int16":
		return b.Int16, nil
	case "int32":
		return b.Int32, nil
	case "int64":
		return b.Int64, nil
	case "uint8":
		return b.Uint8, nil
	case "uint16":
		return b.Uint16, nil
	case "uint32":
		return b.Uint32, nil
	case "uint64":
		return b.Uint64, nil
	case "float", "float32":
		return b.Float32, nil
	case "double", "float64":
		return b.Float64, nil
	case "long":
		p.skipSpace()
		if p.word() != "double" {
			return types.NoTypeID, p.errorf("expected 'double' after 'long'")
		}
		return b.LongDouble, nil
	case "struct", "union":
		p.skipSpace()
		name := normalizeName(p.word())
		id, ok := p.sc.records[name]
		if !ok {
			return types.NoTypeID, fmt.Errorf("%w: %s %s", ErrUnknownType, word, name)
		}
		if got := p.sc.in.MustLookup(id).Kind.String(); got != word {
			return types.NoTypeID, fmt.Errorf("%w: %s is a %s", ErrUnknownType, name, got)
		}
		return id, nil
	case "enum":
		p.skipSpace()
		name := normalizeName(p.word())
		id, ok := p.sc.enums[name]
		if !ok {
			return types.NoTypeID, fmt.Errorf("%w: enum %s", ErrUnknownType, name)
		}
		return id, nil
	case "complex":
		if !p.expect('<') {
			return types.NoTypeID, p.errorf("expected '<'")
		}
		elem, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.expect('>') {
			return types.NoTypeID, p.errorf("expected '>'")
		}
		return p.sc.in.Complex(elem), nil
	case "vec":
		if !p.expect('<') {
			return types.NoTypeID, p.errorf("expected '<'")
		}
		elem, err := p.parseType()
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.expect(',') {
			return types.NoTypeID, p.errorf("expected ','")
		}
		p.skipSpace()
		n, err := p.count()
		if err != nil {
			return types.NoTypeID, err
		}
		if !p.expect('>') {
			return types.NoTypeID, p.errorf("expected '>'")
		}
		return p.sc.in.Vector(elem, n), nil
	}
	name := normalizeName(word)
	if id, ok := p.sc.records[name]; ok {
		return id, nil
	}
	if id, ok := p.sc.enums[name]; ok {
		return id, nil
	}
	return types.NoTypeID, fmt.Errorf("%w: %s", ErrUnknownType, name)
}

func (p *exprParser) count() (uint32, error) {
	start := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if start == p.pos {
		return 0, p.errorf("expected a count")
	}
	n, err := strconv.ParseUint(p.src[start:p.pos], 10, 64)
	if err != nil {
		return 0, p.errorf("bad count: %v", err)
	}
	c, err := safecast.Conv[uint32](n)
	if err != nil || c == types.ArrayFlexible {
		return 0, p.errorf("count %d out of range", n)
	}
	return c, nil
}

// word consumes an identifier: letters, digits, '_', '.' and '$'.
func (p *exprParser) word() string {
	start := p.pos
	for p.pos < len(p.src) {
		r, size := utf8.DecodeRuneInString(p.src[p.pos:])
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '.' && r != '$' {
			break
		}
		if p.pos == start && unicode.IsDigit(r) {
			break
		}
		p.pos += size
	}
	return p.src[start:p.pos]
}

func (p *exprParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *exprParser) accept(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *exprParser) expect(c byte) bool {
	p.skipSpace()
	return p.accept(c)
}
