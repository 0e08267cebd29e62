package types

import (
	"fmt"
	"strings"
)

// IsAggregate reports whether values of the type live in memory rather than
// in a single scalar: records, arrays and complex numbers. Vectors and enums
// are scalars.
func (in *Interner) IsAggregate(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindStruct, KindUnion, KindArray, KindComplex:
		return true
	default:
		return false
	}
}

// IsComplex reports whether id is a complex type.
func (in *Interner) IsComplex(id TypeID) bool {
	return in.kindOf(id) == KindComplex
}

// IsStructure reports whether id is a struct (not a union).
func (in *Interner) IsStructure(id TypeID) bool {
	return in.kindOf(id) == KindStruct
}

// IsRecord reports whether id is a struct or a union.
func (in *Interner) IsRecord(id TypeID) bool {
	k := in.kindOf(id)
	return k == KindStruct || k == KindUnion
}

// IsVoid reports whether id is void.
func (in *Interner) IsVoid(id TypeID) bool {
	return in.kindOf(id) == KindVoid
}

// IsIntegral reports whether id is bool, an integer or an enum.
func (in *Interner) IsIntegral(id TypeID) bool {
	switch in.kindOf(id) {
	case KindBool, KindInt, KindUint, KindEnum:
		return true
	default:
		return false
	}
}

// IsPointer reports whether id is a pointer.
func (in *Interner) IsPointer(id TypeID) bool {
	return in.kindOf(id) == KindPointer
}

// IsRealFloating reports whether id is a float, double or long double.
func (in *Interner) IsRealFloating(id TypeID) bool {
	return in.kindOf(id) == KindFloat
}

// IsSignedInteger reports whether id is a signed integer, looking through enums.
func (in *Interner) IsSignedInteger(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	if tt.Kind == KindEnum {
		return in.IsSignedInteger(tt.Elem)
	}
	return tt.Kind == KindInt
}

// IsPromotableInteger reports whether id is narrower than int and gets
// widened at call boundaries: bool and 8- or 16-bit integers.
func (in *Interner) IsPromotableInteger(id TypeID) bool {
	tt, ok := in.Lookup(id)
	if !ok {
		return false
	}
	switch tt.Kind {
	case KindBool:
		return true
	case KindInt, KindUint:
		return tt.Width == Width8 || tt.Width == Width16
	default:
		return false
	}
}

// HasFlexibleArrayMember reports whether the struct ends with T[].
func (in *Interner) HasFlexibleArrayMember(id TypeID) bool {
	info := in.recordInfo(id)
	if info == nil || len(info.Fields) == 0 {
		return false
	}
	last, ok := in.Lookup(info.Fields[len(info.Fields)-1].Type)
	return ok && last.Kind == KindArray && last.Count == ArrayFlexible
}

// IsEmptyRecord reports whether a struct has no fields once nested empty
// structs are ignored. A struct with a flexible array member is never empty.
func (in *Interner) IsEmptyRecord(id TypeID) bool {
	if !in.IsStructure(id) {
		return false
	}
	if in.HasFlexibleArrayMember(id) {
		return false
	}
	for _, f := range in.RecordFields(id) {
		if !in.isEmptyField(f) {
			return false
		}
	}
	return true
}

func (in *Interner) isEmptyField(f Field) bool {
	return !f.BitField && in.IsEmptyRecord(f.Type)
}

// SingleElement returns the type of the only non-empty leaf of a struct,
// descending through nested single-element structs. Empty nested structs are
// skipped. The result is never itself a record.
func (in *Interner) SingleElement(id TypeID) (TypeID, bool) {
	if !in.IsStructure(id) || in.HasFlexibleArrayMember(id) {
		return NoTypeID, false
	}
	found := NoTypeID
	for _, f := range in.RecordFields(id) {
		if in.isEmptyField(f) {
			continue
		}
		if found != NoTypeID || f.BitField {
			return NoTypeID, false
		}
		ft := f.Type
		if in.IsAggregate(ft) {
			inner, ok := in.SingleElement(ft)
			if !ok {
				return NoTypeID, false
			}
			ft = inner
		}
		found = ft
	}
	return found, found != NoTypeID
}

// TypeString renders a human readable description of the type.
func (in *Interner) TypeString(id TypeID) string {
	var sb strings.Builder
	in.writeType(&sb, id, 0)
	return sb.String()
}

func (in *Interner) writeType(sb *strings.Builder, id TypeID, depth int) {
	tt, ok := in.Lookup(id)
	if !ok || depth > 32 {
		sb.WriteString("<invalid>")
		return
	}
	switch tt.Kind {
	case KindVoid, KindBool:
		sb.WriteString(tt.Kind.String())
	case KindInt:
		fmt.Fprintf(sb, "int%d", tt.Width)
	case KindUint:
		fmt.Fprintf(sb, "uint%d", tt.Width)
	case KindFloat:
		switch tt.Width {
		case Width32:
			sb.WriteString("float")
		case Width64:
			sb.WriteString("double")
		default:
			sb.WriteString("long double")
		}
	case KindPointer:
		in.writeType(sb, tt.Elem, depth+1)
		sb.WriteByte('*')
	case KindEnum:
		name := "<anon>"
		if info, ok := in.EnumInfo(id); ok && info.Name != "" {
			name = info.Name
		}
		sb.WriteString("enum ")
		sb.WriteString(name)
	case KindComplex:
		sb.WriteString("complex<")
		in.writeType(sb, tt.Elem, depth+1)
		sb.WriteByte('>')
	case KindVector:
		sb.WriteString("vec<")
		in.writeType(sb, tt.Elem, depth+1)
		fmt.Fprintf(sb, ", %d>", tt.Count)
	case KindArray:
		in.writeType(sb, tt.Elem, depth+1)
		if tt.Count == ArrayFlexible {
			sb.WriteString("[]")
		} else {
			fmt.Fprintf(sb, "[%d]", tt.Count)
		}
	case KindStruct, KindUnion:
		sb.WriteString(tt.Kind.String())
		sb.WriteByte(' ')
		if info := in.recordInfo(id); info != nil && info.Name != "" {
			sb.WriteString(info.Name)
		} else {
			sb.WriteString("<anon>")
		}
	default:
		sb.WriteString(tt.Kind.String())
	}
}

func (in *Interner) kindOf(id TypeID) Kind {
	tt, ok := in.Lookup(id)
	if !ok {
		return KindInvalid
	}
	return tt.Kind
}
