package types

import (
	"fmt"
	"slices"

	"fortio.org/safecast"
)

// Field describes a single member of a struct or union.
type Field struct {
	Name     string
	Type     TypeID
	BitField bool
	BitWidth uint32 // meaningful only when BitField is set
}

// RecordInfo stores metadata for a struct or union type.
type RecordInfo struct {
	Name     string
	Fields   []Field
	Packed   bool
	Complete bool
}

// EnumInfo stores metadata for an enumeration.
type EnumInfo struct {
	Name string
}

// RegisterStruct allocates a nominal struct type slot and returns its TypeID.
// The body is attached later with SetRecordBody.
func (in *Interner) RegisterStruct(name string) TypeID {
	slot := in.appendRecordInfo(RecordInfo{Name: name})
	return in.internRaw(Type{Kind: KindStruct, Payload: slot})
}

// RegisterUnion allocates a nominal union type slot and returns its TypeID.
func (in *Interner) RegisterUnion(name string) TypeID {
	slot := in.appendRecordInfo(RecordInfo{Name: name})
	return in.internRaw(Type{Kind: KindUnion, Payload: slot})
}

// SetRecordBody stores the fields for a struct or union and marks it complete.
func (in *Interner) SetRecordBody(typeID TypeID, packed bool, fields []Field) {
	info := in.recordInfo(typeID)
	if info == nil {
		return
	}
	info.Fields = slices.Clone(fields)
	info.Packed = packed
	info.Complete = true
}

// RecordInfo returns metadata for the provided struct or union TypeID.
func (in *Interner) RecordInfo(typeID TypeID) (*RecordInfo, bool) {
	info := in.recordInfo(typeID)
	if info == nil {
		return nil, false
	}
	return info, true
}

// RecordFields returns a copy of the record fields.
func (in *Interner) RecordFields(typeID TypeID) []Field {
	info := in.recordInfo(typeID)
	if info == nil || len(info.Fields) == 0 {
		return nil
	}
	return slices.Clone(info.Fields)
}

// RegisterEnum allocates a nominal enum over the given integer base type.
func (in *Interner) RegisterEnum(name string, base TypeID) TypeID {
	lenEnums, err := safecast.Conv[uint32](len(in.enums))
	if err != nil {
		panic(fmt.Errorf("enum info overflow: %w", err))
	}
	in.enums = append(in.enums, EnumInfo{Name: name})
	return in.internRaw(Type{Kind: KindEnum, Elem: base, Payload: lenEnums})
}

// EnumInfo returns metadata for an enum TypeID.
func (in *Interner) EnumInfo(typeID TypeID) (*EnumInfo, bool) {
	tt, ok := in.Lookup(typeID)
	if !ok || tt.Kind != KindEnum {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.enums) {
		return nil, false
	}
	return &in.enums[tt.Payload], true
}

func (in *Interner) recordInfo(typeID TypeID) *RecordInfo {
	tt, ok := in.Lookup(typeID)
	if !ok || (tt.Kind != KindStruct && tt.Kind != KindUnion) {
		return nil
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.records) {
		return nil
	}
	return &in.records[tt.Payload]
}

func (in *Interner) appendRecordInfo(info RecordInfo) uint32 {
	slot, err := safecast.Conv[uint32](len(in.records))
	if err != nil {
		panic(fmt.Errorf("record info overflow: %w", err))
	}
	in.records = append(in.records, info)
	return slot
}
