package abi

import (
	"fmt"

	"callconv/internal/lltype"
	"callconv/internal/types"
)

// Leaf is one scalar produced by expanding a struct.
type Leaf struct {
	Type   types.TypeID
	Offset int // bytes from the start of the outermost struct
	Path   []int
}

// ExpandedLeaves flattens a struct into its scalar leaves in declaration
// order, descending into nested structs. Expansion is only defined for
// structs without bit-fields, unions, arrays or complex members.
func (s *Session) ExpandedLeaves(id types.TypeID) ([]Leaf, error) {
	var leaves []Leaf
	if err := s.expand(id, 0, nil, &leaves); err != nil {
		return nil, err
	}
	return leaves, nil
}

func (s *Session) expand(id types.TypeID, base int, path []int, out *[]Leaf) error {
	if !s.Types.IsStructure(id) {
		return fmt.Errorf("cannot expand %s", s.Types.TypeString(id))
	}
	l, err := s.Layout.LayoutOf(id)
	if err != nil {
		return err
	}
	for i, f := range s.Types.RecordFields(id) {
		if f.BitField {
			return fmt.Errorf("cannot expand bit-field %q of %s", f.Name, s.Types.TypeString(id))
		}
		off := base + l.FieldBitOffsets[i]/8
		fieldPath := append(append([]int(nil), path...), i)
		if s.Types.IsStructure(f.Type) {
			if err := s.expand(f.Type, off, fieldPath, out); err != nil {
				return err
			}
			continue
		}
		if s.Types.IsAggregate(f.Type) {
			return fmt.Errorf("cannot expand field %q of %s", f.Name, s.Types.TypeString(id))
		}
		*out = append(*out, Leaf{Type: f.Type, Offset: off, Path: fieldPath})
	}
	return nil
}

// ExpandedTypes returns the physical types of the expanded leaves.
func (s *Session) ExpandedTypes(id types.TypeID) ([]lltype.Type, error) {
	leaves, err := s.ExpandedLeaves(id)
	if err != nil {
		return nil, err
	}
	out := make([]lltype.Type, len(leaves))
	for i, leaf := range leaves {
		t, err := s.Conv.ConvertType(leaf.Type)
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}
