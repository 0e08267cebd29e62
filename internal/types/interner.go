package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for common primitive types.
type Builtins struct {
	Invalid    TypeID
	Void       TypeID
	Bool       TypeID
	Int8       TypeID
	Int16      TypeID
	Int32      TypeID
	Int64      TypeID
	Uint8      TypeID
	Uint16     TypeID
	Uint32     TypeID
	Uint64     TypeID
	Float32    TypeID
	Float64    TypeID
	LongDouble TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Records and enums are nominal: every Register call yields a fresh TypeID.
//
// The interner is not safe for concurrent mutation. Once every type is
// registered and every record body is set, concurrent lookups are fine.
type Interner struct {
	types    []Type
	index    map[typeKey]TypeID
	builtins Builtins
	records  []RecordInfo
	enums    []EnumInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[typeKey]TypeID, 64),
	}
	in.records = append(in.records, RecordInfo{}) // reserve 0 as invalid sentinel
	in.enums = append(in.enums, EnumInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool})
	in.builtins.Int8 = in.Intern(MakeInt(Width8))
	in.builtins.Int16 = in.Intern(MakeInt(Width16))
	in.builtins.Int32 = in.Intern(MakeInt(Width32))
	in.builtins.Int64 = in.Intern(MakeInt(Width64))
	in.builtins.Uint8 = in.Intern(MakeUint(Width8))
	in.builtins.Uint16 = in.Intern(MakeUint(Width16))
	in.builtins.Uint32 = in.Intern(MakeUint(Width32))
	in.builtins.Uint64 = in.Intern(MakeUint(Width64))
	in.builtins.Float32 = in.Intern(MakeFloat(Width32))
	in.builtins.Float64 = in.Intern(MakeFloat(Width64))
	in.builtins.LongDouble = in.Intern(MakeFloat(Width80))
	return in
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	key := typeKey(t)
	if id, ok := in.index[key]; ok {
		return id
	}
	return in.internRaw(t)
}

// internRaw adds the descriptor to the storage without consulting the map.
func (in *Interner) internRaw(t Type) TypeID {
	lenTypes, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(lenTypes)
	in.types = append(in.types, t)
	in.index[typeKey(t)] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// MustLookup panics when id is invalid.
func (in *Interner) MustLookup(id TypeID) Type {
	tt, ok := in.Lookup(id)
	if !ok {
		panic("types: invalid TypeID")
	}
	return tt
}

// Pointer interns a pointer to elem.
func (in *Interner) Pointer(elem TypeID) TypeID {
	return in.Intern(MakePointer(elem))
}

// Array interns a fixed-size array of elem.
func (in *Interner) Array(elem TypeID, count uint32) TypeID {
	return in.Intern(MakeArray(elem, count))
}

// Vector interns a vector of elem.
func (in *Interner) Vector(elem TypeID, count uint32) TypeID {
	return in.Intern(MakeVector(elem, count))
}

// Complex interns a complex type over elem.
func (in *Interner) Complex(elem TypeID) TypeID {
	return in.Intern(MakeComplex(elem))
}

type typeKey struct {
	Kind    Kind
	Elem    TypeID
	Count   uint32
	Width   Width
	Payload uint32
}
