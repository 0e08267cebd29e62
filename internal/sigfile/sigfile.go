// Package sigfile reads a TOML description of a target, its record types
// and a list of function signatures to lower.
//
//	[target]
//	triple = "x86_64-linux-gnu"
//
//	[[record]]
//	name = "pair"
//	[[record.field]]
//	name = "a"
//	type = "int32"
//	[[record.field]]
//	name = "b"
//	type = "float"
//
//	[[signature]]
//	name = "f"
//	result = "void"
//	params = ["int32", "struct pair"]
package sigfile

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"golang.org/x/text/unicode/norm"

	"callconv/internal/abi"
	"callconv/internal/layout"
	"callconv/internal/types"
)

// Options adjusts how a file is turned into a Unit.
type Options struct {
	// Triple overrides [target].triple when set.
	Triple string
	// DefaultTriple is used when neither Triple nor the file names one.
	DefaultTriple string
}

// Unit is a fully resolved signature file.
type Unit struct {
	Path       string
	Target     layout.Target
	Types      *types.Interner
	Records    map[string]types.TypeID
	Enums      map[string]types.TypeID
	Signatures []Signature
}

// Signature is one function to lower.
type Signature struct {
	Name       string
	Result     types.TypeID
	Params     []types.TypeID
	ParamNames []string
	Variadic   bool
	Decl       abi.DeclAttrs
	// VAReads lists the types a generated reader fetches, in order, from a
	// va_list.
	VAReads []types.TypeID
}

type fileDoc struct {
	Target    targetDoc      `toml:"target"`
	Enums     []enumDoc      `toml:"enum"`
	Records   []recordDoc    `toml:"record"`
	Signature []signatureDoc `toml:"signature"`
}

type targetDoc struct {
	Triple             string `toml:"triple"`
	StructReturnInRegs bool   `toml:"struct_return_in_regs"`
	LongDouble         string `toml:"long_double"`
}

type enumDoc struct {
	Name string `toml:"name"`
	Base string `toml:"base"`
}

type recordDoc struct {
	Name   string     `toml:"name"`
	Kind   string     `toml:"kind"`
	Packed bool       `toml:"packed"`
	Fields []fieldDoc `toml:"field"`
}

type fieldDoc struct {
	Name string  `toml:"name"`
	Type string  `toml:"type"`
	Bits *uint32 `toml:"bits"`
}

type signatureDoc struct {
	Name       string   `toml:"name"`
	Result     string   `toml:"result"`
	Params     []string `toml:"params"`
	ParamNames []string `toml:"param_names"`
	Variadic   bool     `toml:"variadic"`
	NoThrow    bool     `toml:"nothrow"`
	NoReturn   bool     `toml:"noreturn"`
	Pure       bool     `toml:"pure"`
	Const      bool     `toml:"const"`
	VAReads    []string `toml:"va_reads"`
}

// Load reads and resolves the signature file at path.
func Load(path string, opts Options) (*Unit, error) {
	var doc fileDoc
	meta, err := toml.DecodeFile(path, &doc)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	return build(path, &doc, meta, opts)
}

// Parse resolves a signature file held in memory. name is used in errors.
func Parse(name, data string, opts Options) (*Unit, error) {
	var doc fileDoc
	meta, err := toml.Decode(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", name, err)
	}
	return build(name, &doc, meta, opts)
}

func build(path string, doc *fileDoc, meta toml.MetaData, opts Options) (*Unit, error) {
	fail := func(where string, err error) error {
		return &Error{Path: path, Where: where, Err: err}
	}

	target, err := resolveTarget(doc.Target, meta, opts)
	if err != nil {
		return nil, fail("[target]", err)
	}

	in := types.NewInterner()
	u := &Unit{
		Path:    path,
		Target:  target,
		Types:   in,
		Records: make(map[string]types.TypeID, len(doc.Records)),
		Enums:   make(map[string]types.TypeID, len(doc.Enums)),
	}
	sc := &scope{in: in, records: u.Records, enums: u.Enums}

	// Enums first: record fields may use them. Records are registered before
	// any body is resolved so they can refer to each other.
	for i, ed := range doc.Enums {
		name := normalizeName(ed.Name)
		where := fmt.Sprintf("enum %d", i)
		if name == "" {
			return nil, fail(where, fmt.Errorf("%w: empty enum name", ErrInvalidName))
		}
		if _, dup := u.Enums[name]; dup {
			return nil, fail(where, fmt.Errorf("%w: enum %s", ErrDuplicate, name))
		}
		base := in.Builtins().Int32
		if strings.TrimSpace(ed.Base) != "" {
			base, err = sc.parseType(ed.Base)
			if err != nil {
				return nil, fail(where, err)
			}
			if !in.IsIntegral(base) {
				return nil, fail(where, fmt.Errorf("enum base %s is not an integer type", in.TypeString(base)))
			}
		}
		u.Enums[name] = in.RegisterEnum(name, base)
	}
	for i, rd := range doc.Records {
		name := normalizeName(rd.Name)
		where := fmt.Sprintf("record %d", i)
		if name == "" {
			return nil, fail(where, fmt.Errorf("%w: empty record name", ErrInvalidName))
		}
		if _, dup := u.Records[name]; dup {
			return nil, fail(where, fmt.Errorf("%w: record %s", ErrDuplicate, name))
		}
		switch strings.TrimSpace(rd.Kind) {
		case "", "struct":
			u.Records[name] = in.RegisterStruct(name)
		case "union":
			u.Records[name] = in.RegisterUnion(name)
		default:
			return nil, fail(where, fmt.Errorf("record kind %q is neither struct nor union", rd.Kind))
		}
	}
	for _, rd := range doc.Records {
		name := normalizeName(rd.Name)
		fields := make([]types.Field, len(rd.Fields))
		for j, fd := range rd.Fields {
			where := fmt.Sprintf("record %s field %d", name, j)
			ft, err := sc.parseType(fd.Type)
			if err != nil {
				return nil, fail(where, err)
			}
			fields[j] = types.Field{Name: normalizeName(fd.Name), Type: ft}
			if fd.Bits != nil {
				if !in.IsIntegral(ft) {
					return nil, fail(where, fmt.Errorf("bit-field of non-integer type %s", in.TypeString(ft)))
				}
				fields[j].BitField = true
				fields[j].BitWidth = *fd.Bits
			}
		}
		in.SetRecordBody(u.Records[name], rd.Packed, fields)
	}

	seen := make(map[string]bool, len(doc.Signature))
	for i, sd := range doc.Signature {
		sig, err := resolveSignature(sc, sd)
		if err != nil {
			return nil, fail(fmt.Sprintf("signature %d", i), err)
		}
		if seen[sig.Name] {
			return nil, fail(fmt.Sprintf("signature %d", i), fmt.Errorf("%w: %s", ErrDuplicate, sig.Name))
		}
		seen[sig.Name] = true
		u.Signatures = append(u.Signatures, sig)
	}
	return u, nil
}

func resolveTarget(td targetDoc, meta toml.MetaData, opts Options) (layout.Target, error) {
	triple := strings.TrimSpace(opts.Triple)
	if triple == "" && meta.IsDefined("target", "triple") {
		triple = strings.TrimSpace(td.Triple)
	}
	if triple == "" {
		triple = strings.TrimSpace(opts.DefaultTriple)
	}
	if triple == "" {
		return layout.Target{}, ErrTargetMissing
	}
	t, err := layout.ParseTriple(triple)
	if err != nil {
		return layout.Target{}, err
	}
	if meta.IsDefined("target", "struct_return_in_regs") {
		t.StructReturnInRegs = td.StructReturnInRegs
	}
	if meta.IsDefined("target", "long_double") {
		switch strings.TrimSpace(td.LongDouble) {
		case "x87":
			t.LongDoubleX87 = true
			t.LongDoubleSize, t.LongDoubleAlign = 12, 4
			if t.PtrSize == 8 {
				t.LongDoubleSize, t.LongDoubleAlign = 16, 16
			}
		case "double":
			t.LongDoubleX87 = false
			t.LongDoubleSize, t.LongDoubleAlign = 8, t.DoubleAlign
		default:
			return layout.Target{}, fmt.Errorf("long_double must be \"x87\" or \"double\", got %q", td.LongDouble)
		}
	}
	return t, nil
}

func resolveSignature(sc *scope, sd signatureDoc) (Signature, error) {
	name := normalizeName(sd.Name)
	if !isSymbolName(name) {
		return Signature{}, fmt.Errorf("%w: function name %q", ErrInvalidName, sd.Name)
	}
	sig := Signature{
		Name:     name,
		Variadic: sd.Variadic,
		Decl: abi.DeclAttrs{
			NoThrow:  sd.NoThrow,
			NoReturn: sd.NoReturn,
			Pure:     sd.Pure,
			Const:    sd.Const,
		},
	}
	result := sd.Result
	if strings.TrimSpace(result) == "" {
		result = "void"
	}
	var err error
	if sig.Result, err = sc.parseType(result); err != nil {
		return Signature{}, fmt.Errorf("%s result: %w", name, err)
	}
	if len(sd.ParamNames) > 0 && len(sd.ParamNames) != len(sd.Params) {
		return Signature{}, fmt.Errorf("%s: %d param_names for %d params", name, len(sd.ParamNames), len(sd.Params))
	}
	for j, src := range sd.Params {
		id, err := sc.parseType(src)
		if err != nil {
			return Signature{}, fmt.Errorf("%s param %d: %w", name, j, err)
		}
		if sc.in.IsVoid(id) {
			return Signature{}, fmt.Errorf("%s param %d: void parameter", name, j)
		}
		sig.Params = append(sig.Params, id)
		pname := fmt.Sprintf("a%d", j)
		if len(sd.ParamNames) > 0 {
			pname = normalizeName(sd.ParamNames[j])
			if !isSymbolName(pname) {
				return Signature{}, fmt.Errorf("%w: parameter name %q", ErrInvalidName, sd.ParamNames[j])
			}
		}
		sig.ParamNames = append(sig.ParamNames, pname)
	}
	for j, src := range sd.VAReads {
		id, err := sc.parseType(src)
		if err != nil {
			return Signature{}, fmt.Errorf("%s va_reads %d: %w", name, j, err)
		}
		sig.VAReads = append(sig.VAReads, id)
	}
	if len(sig.VAReads) > 0 && !sig.Variadic {
		return Signature{}, fmt.Errorf("%s: va_reads on a non-variadic signature", name)
	}
	return sig, nil
}

// normalizeName trims s and puts it in NFC so differently composed
// spellings of one name compare equal.
func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// isSymbolName reports whether s can be printed as an unquoted LLVM name.
func isSymbolName(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_', c == '.', c == '$', c == '-':
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
