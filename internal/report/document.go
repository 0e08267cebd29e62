// Package report renders a lowered batch for people and for tools.
package report

import (
	"callconv/internal/abi"
	"callconv/internal/driver"
	"callconv/internal/observ"
)

// Document is the serializable view of one batch.
type Document struct {
	Target     string         `json:"target" msgpack:"target"`
	ABI        string         `json:"abi" msgpack:"abi"`
	Registry   int            `json:"registry_entries" msgpack:"registry_entries"`
	Signatures []Entry        `json:"signatures" msgpack:"signatures"`
	Timing     *observ.Report `json:"timing,omitempty" msgpack:"timing,omitempty"`
}

// Entry describes one signature.
type Entry struct {
	Name        string `json:"name" msgpack:"name"`
	Key         string `json:"key,omitempty" msgpack:"key,omitempty"`
	Variadic    bool   `json:"variadic,omitempty" msgpack:"variadic,omitempty"`
	Declaration string `json:"declaration,omitempty" msgpack:"declaration,omitempty"`
	Return      Slot   `json:"return" msgpack:"return"`
	Args        []Slot `json:"args" msgpack:"args"`
	Error       string `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Slot is one logical value and the physical parameters carrying it.
type Slot struct {
	Name        string   `json:"name,omitempty" msgpack:"name,omitempty"`
	Type        string   `json:"type" msgpack:"type"`
	Kind        string   `json:"kind,omitempty" msgpack:"kind,omitempty"`
	Disposition string   `json:"disposition,omitempty" msgpack:"disposition,omitempty"`
	Physical    []string `json:"physical,omitempty" msgpack:"physical,omitempty"`
}

// FromBatch builds the document for b. Timing is attached when withTiming
// is set.
func FromBatch(b *driver.Batch, withTiming bool) Document {
	sess := b.Session
	doc := Document{
		Target:     sess.Target.Triple,
		ABI:        sess.ABI.Name(),
		Registry:   sess.Registry.Len(),
		Signatures: make([]Entry, 0, len(b.Results)),
	}
	if withTiming {
		t := b.Timing
		doc.Timing = &t
	}
	in := sess.Types
	for _, r := range b.Results {
		sig := r.Signature
		e := Entry{
			Name:     sig.Name,
			Variadic: sig.Variadic,
			Return:   Slot{Type: in.TypeString(sig.Result)},
			Args:     make([]Slot, len(sig.Params)),
		}
		for i, p := range sig.Params {
			e.Args[i] = Slot{Name: sig.ParamNames[i], Type: in.TypeString(p)}
		}
		if r.Err != nil {
			e.Error = r.Err.Error()
			doc.Signatures = append(doc.Signatures, e)
			continue
		}
		fi, l := r.Info, r.Lowered
		e.Key = fi.Key()
		e.Declaration = l.Declare(sig.Name)
		e.Return.Kind = fi.ReturnInfo().Kind().String()
		e.Return.Disposition = fi.ReturnInfo().String()
		e.Return.Physical = returnPhysical(l)
		for i := range e.Args {
			info := fi.Arg(i).Info
			e.Args[i].Kind = info.Kind().String()
			e.Args[i].Disposition = info.String()
			start, n := l.ArgParams(i)
			for _, p := range l.Params[start : start+n] {
				e.Args[i].Physical = append(e.Args[i].Physical, p.String())
			}
		}
		doc.Signatures = append(doc.Signatures, e)
	}
	return doc
}

func returnPhysical(l *abi.Lowered) []string {
	var out []string
	if l.HasStructRet() {
		out = append(out, l.Params[0].String())
	}
	if !l.Result.IsVoid() {
		res := l.Result.String()
		if ra := l.ResultAttrs(); ra != "" {
			res += " " + ra
		}
		out = append(out, res)
	}
	return out
}
