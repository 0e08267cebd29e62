package abi

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"callconv/internal/trace"
	"callconv/internal/types"
)

// ArgSlot pairs a semantic type with its disposition.
type ArgSlot struct {
	Type types.TypeID
	Info ArgInfo
}

// FunctionInfo is the canonical record for one (result, arguments)
// signature. It is immutable once published by a Registry.
type FunctionInfo struct {
	key  string
	ret  ArgSlot
	args []ArgSlot
}

func newFunctionInfo(key string, ret types.TypeID, args []types.TypeID) *FunctionInfo {
	fi := &FunctionInfo{
		key:  key,
		ret:  ArgSlot{Type: ret},
		args: make([]ArgSlot, len(args)),
	}
	for i, a := range args {
		fi.args[i].Type = a
	}
	return fi
}

// Key returns the structural identity of the signature.
func (fi *FunctionInfo) Key() string { return fi.key }

// Return returns the result slot.
func (fi *FunctionInfo) Return() ArgSlot { return fi.ret }

// ReturnType returns the semantic result type.
func (fi *FunctionInfo) ReturnType() types.TypeID { return fi.ret.Type }

// ReturnInfo returns the result disposition.
func (fi *FunctionInfo) ReturnInfo() ArgInfo { return fi.ret.Info }

// NumArgs returns the number of fixed parameters.
func (fi *FunctionInfo) NumArgs() int { return len(fi.args) }

// Arg returns the i-th parameter slot.
func (fi *FunctionInfo) Arg(i int) ArgSlot { return fi.args[i] }

// Args returns a copy of the parameter slots.
func (fi *FunctionInfo) Args() []ArgSlot {
	return append([]ArgSlot(nil), fi.args...)
}

// Registry interns FunctionInfo records by structural signature. Equal
// signatures always yield the same pointer and the classifier runs for a
// signature before it becomes visible. Safe for concurrent use.
type Registry struct {
	abi     Info
	entries sync.Map // string -> *FunctionInfo
	size    atomic.Int64
}

// NewRegistry builds a registry over one target classifier.
func NewRegistry(info Info) *Registry {
	return &Registry{abi: info}
}

// Intern returns the canonical FunctionInfo for (ret, args), computing its
// dispositions on first use. The args slice is not retained.
func (r *Registry) Intern(ctx context.Context, ret types.TypeID, args []types.TypeID) *FunctionInfo {
	key := signatureKey(ret, args)
	if v, ok := r.entries.Load(key); ok {
		return v.(*FunctionInfo)
	}

	fi := newFunctionInfo(key, ret, args)
	r.abi.ComputeInfo(ctx, fi)

	// Two goroutines may classify the same signature; the first stored
	// record wins and the other is dropped. Classification is deterministic.
	actual, loaded := r.entries.LoadOrStore(key, fi)
	if !loaded {
		n := r.size.Add(1)
		trace.Point(trace.FromContext(ctx), trace.ScopeSignature, "abi.intern", key, map[string]string{
			"abi":     r.abi.Name(),
			"entries": strconv.FormatInt(n, 10),
		})
	}
	return actual.(*FunctionInfo)
}

// Len returns the number of interned signatures.
func (r *Registry) Len() int {
	return int(r.size.Load())
}

func signatureKey(ret types.TypeID, args []types.TypeID) string {
	var sb strings.Builder
	sb.Grow(8 + 6*len(args))
	sb.WriteString(strconv.FormatUint(uint64(ret), 10))
	sb.WriteByte('(')
	for i, a := range args {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatUint(uint64(a), 10))
	}
	sb.WriteByte(')')
	return sb.String()
}
