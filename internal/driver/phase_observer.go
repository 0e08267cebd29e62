package driver

import (
	"time"

	"callconv/internal/observ"
)

// PhaseStatus reports whether a phase started or finished.
type PhaseStatus int

const (
	// PhaseStart indicates that a batch phase has begun.
	PhaseStart PhaseStatus = iota
	PhaseEnd
)

// PhaseEvent describes a timing phase boundary.
type PhaseEvent struct {
	Name    string
	Status  PhaseStatus
	Elapsed time.Duration
}

// PhaseObserver receives phase events emitted by LowerAll and BuildModule.
type PhaseObserver func(PhaseEvent)

type phase struct {
	timer    *observ.Timer
	observer PhaseObserver
	name     string
	idx      int
	started  time.Time
}

func beginPhase(timer *observ.Timer, obs PhaseObserver, name string) phase {
	p := phase{timer: timer, observer: obs, name: name, idx: -1, started: time.Now()}
	if timer != nil {
		p.idx = timer.Begin(name)
	}
	if obs != nil {
		obs(PhaseEvent{Name: name, Status: PhaseStart})
	}
	return p
}

func (p phase) end(note string) {
	if p.timer != nil {
		p.timer.End(p.idx, note)
	}
	if p.observer != nil {
		p.observer(PhaseEvent{Name: p.name, Status: PhaseEnd, Elapsed: time.Since(p.started)})
	}
}

// SignatureStatus is the progress state of one signature in a batch.
type SignatureStatus int

const (
	SignatureQueued SignatureStatus = iota
	SignatureWorking
	SignatureDone
	SignatureError
)

// SignatureEvent reports progress for the signature at Index.
type SignatureEvent struct {
	Index  int
	Name   string
	Status SignatureStatus
}

// SignatureObserver receives per-signature progress. LowerAll calls it from
// worker goroutines, so it must be safe for concurrent use.
type SignatureObserver func(SignatureEvent)

// ChannelProgress forwards progress events to ch. Sends block, so ch should
// be drained concurrently with LowerAll.
func ChannelProgress(ch chan<- SignatureEvent) SignatureObserver {
	return func(ev SignatureEvent) { ch <- ev }
}

func (o SignatureObserver) emit(i int, name string, status SignatureStatus) {
	if o != nil {
		o(SignatureEvent{Index: i, Name: name, Status: status})
	}
}
