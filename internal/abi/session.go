package abi

import (
	"callconv/internal/layout"
	"callconv/internal/lltype"
	"callconv/internal/types"
)

// Session bundles the per-target state shared by classification, lowering
// and marshalling.
type Session struct {
	Target   layout.Target
	Types    *types.Interner
	Layout   *layout.LayoutEngine
	Conv     *lltype.Converter
	ABI      Info
	Registry *Registry
}

// NewSession wires a layout engine, type converter, classifier and registry
// for target over typesIn.
func NewSession(target layout.Target, typesIn *types.Interner) *Session {
	le := layout.New(target, typesIn)
	conv := lltype.NewConverter(typesIn, le)
	info := ForTarget(conv)
	return &Session{
		Target:   target,
		Types:    typesIn,
		Layout:   le,
		Conv:     conv,
		ABI:      info,
		Registry: NewRegistry(info),
	}
}
