package layout

import (
	"fmt"
	"strings"

	"callconv/internal/types"
)

// LayoutErrorKind enumerates types of layout calculation errors.
type LayoutErrorKind uint8

const (
	// LayoutErrRecursiveUnsized indicates a record that contains itself by value.
	LayoutErrRecursiveUnsized LayoutErrorKind = iota + 1
	LayoutErrIncomplete
	LayoutErrUnsupported
	LayoutErrFlexibleNotLast
	LayoutErrBitWidth
)

// LayoutError represents an error during memory layout calculation.
type LayoutError struct {
	Kind  LayoutErrorKind
	Type  types.TypeID
	Cycle []types.TypeID // for LayoutErrRecursiveUnsized
	Field string         // for field-level errors
}

func (e *LayoutError) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case LayoutErrRecursiveUnsized:
		if len(e.Cycle) == 0 {
			return fmt.Sprintf("recursive value type has infinite size (type#%d)", e.Type)
		}
		parts := make([]string, 0, len(e.Cycle))
		for _, id := range e.Cycle {
			parts = append(parts, fmt.Sprintf("type#%d", id))
		}
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(parts, " -> "))
	case LayoutErrIncomplete:
		return fmt.Sprintf("record type#%d has no body", e.Type)
	case LayoutErrUnsupported:
		return fmt.Sprintf("type#%d has no layout on this target", e.Type)
	case LayoutErrFlexibleNotLast:
		return fmt.Sprintf("flexible array member %q must be the last field (type#%d)", e.Field, e.Type)
	case LayoutErrBitWidth:
		return fmt.Sprintf("bit-field %q is wider than its type (type#%d)", e.Field, e.Type)
	default:
		return fmt.Sprintf("layout error kind=%d type#%d", e.Kind, e.Type)
	}
}
