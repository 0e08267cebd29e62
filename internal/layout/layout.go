package layout

import (
	"callconv/internal/types"
)

// TypeLayout is the ABI layout of a type for a specific Target.
type TypeLayout struct {
	Size  int // bytes, a multiple of Align
	Align int // bytes

	// Record-only, one entry per field in declaration order.
	FieldBitOffsets []int
	FieldAligns     []int
}

// SizeInBits returns Size*8.
func (l TypeLayout) SizeInBits() uint64 {
	return uint64(l.Size) * 8
}

// AlignInBits returns Align*8.
func (l TypeLayout) AlignInBits() uint64 {
	return uint64(l.Align) * 8
}

// LayoutEngine computes memory layout for types. It is safe for concurrent
// use once the interner is no longer mutated.
type LayoutEngine struct {
	Target Target
	Types  *types.Interner

	cache *cache
}

// New creates a new LayoutEngine for the specified target.
func New(target Target, typesIn *types.Interner) *LayoutEngine {
	return &LayoutEngine{
		Target: target,
		Types:  typesIn,
		cache:  newCache(),
	}
}

type layoutState struct {
	stack []types.TypeID
	index map[types.TypeID]int
}

func newLayoutState() *layoutState {
	return &layoutState{
		index: make(map[types.TypeID]int, 16),
	}
}

// LayoutOf computes and caches the layout of a type.
func (e *LayoutEngine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	if e == nil {
		return TypeLayout{Size: 0, Align: 1}, nil
	}
	l, err := e.layoutOf(t, newLayoutState())
	if err != nil {
		return l, err
	}
	return l, nil
}

func (e *LayoutEngine) layoutOf(t types.TypeID, state *layoutState) (TypeLayout, *LayoutError) {
	if cached, ok := e.cache.get(t); ok {
		return cached.Layout, cached.Err
	}

	if idx, ok := state.index[t]; ok {
		cycle := append([]types.TypeID(nil), state.stack[idx:]...)
		cycle = append(cycle, t)
		err := &LayoutError{
			Kind:  LayoutErrRecursiveUnsized,
			Type:  t,
			Cycle: cycle,
		}
		return TypeLayout{Size: 0, Align: 1}, err
	}

	state.index[t] = len(state.stack)
	state.stack = append(state.stack, t)
	l, err := e.computeLayout(t, state)
	state.stack = state.stack[:len(state.stack)-1]
	delete(state.index, t)

	e.cache.put(t, &cacheEntry{Layout: l, Err: err})
	return l, err
}

// SizeOf returns the size of a type in bytes.
func (e *LayoutEngine) SizeOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Size, err
}

// AlignOf returns the alignment requirement of a type in bytes.
func (e *LayoutEngine) AlignOf(t types.TypeID) (int, error) {
	l, err := e.LayoutOf(t)
	return l.Align, err
}

// FieldBitOffset returns the bit offset of a record field.
func (e *LayoutEngine) FieldBitOffset(record types.TypeID, fieldIdx int) (int, error) {
	l, err := e.LayoutOf(record)
	if err != nil {
		return 0, err
	}
	if fieldIdx < 0 || fieldIdx >= len(l.FieldBitOffsets) {
		return 0, nil
	}
	return l.FieldBitOffsets[fieldIdx], nil
}
