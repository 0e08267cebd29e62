package driver

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"callconv/internal/abi"
	"callconv/internal/observ"
	"callconv/internal/sigfile"
	"callconv/internal/trace"
)

// Options controls a batch run.
type Options struct {
	// Jobs bounds the number of signatures lowered at once. Zero or less
	// means GOMAXPROCS.
	Jobs int
	// Observer, when set, receives phase boundaries.
	Observer PhaseObserver
	// Progress, when set, receives per-signature status changes.
	Progress SignatureObserver
}

// Result is the outcome for one signature of the unit.
type Result struct {
	Signature sigfile.Signature
	Info      *abi.FunctionInfo
	Lowered   *abi.Lowered
	// Err is set when classification or lowering failed for this signature
	// only. Other signatures of the batch are unaffected.
	Err error
}

// Batch holds every lowered signature of one unit, in file order.
type Batch struct {
	Unit    *sigfile.Unit
	Session *abi.Session
	Results []Result
	Timing  observ.Report
}

// Failed returns the results that carry an error.
func (b *Batch) Failed() []Result {
	var out []Result
	for _, r := range b.Results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

// batchMetrics counts what the workers did; it is reported on the driver span.
type batchMetrics struct {
	completed atomic.Int64
	failed    atomic.Int64
}

// LowerAll classifies and lowers every signature of u in parallel through
// one shared session. Per-signature failures land in Result.Err; the
// returned error is only set when ctx is cancelled.
func LowerAll(ctx context.Context, u *sigfile.Unit, opts Options) (*Batch, error) {
	timer := observ.NewTimer()
	ctx, span := trace.Start(ctx, trace.ScopeDriver, "driver.lower_all")
	span.WithExtra("target", u.Target.Triple)

	phase := beginPhase(timer, opts.Observer, "session")
	sess := abi.NewSession(u.Target, u.Types)
	phase.end(sess.ABI.Name())

	batch := &Batch{
		Unit:    u,
		Session: sess,
		Results: make([]Result, len(u.Signatures)),
	}
	if len(u.Signatures) == 0 {
		batch.Timing = timer.Report()
		span.End("empty")
		return batch, nil
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	for i, sig := range u.Signatures {
		opts.Progress.emit(i, sig.Name, SignatureQueued)
	}

	var metrics batchMetrics
	phase = beginPhase(timer, opts.Observer, "lower")
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(min(jobs, len(u.Signatures)))
	for i, sig := range u.Signatures {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			opts.Progress.emit(i, sig.Name, SignatureWorking)
			// Each index is written by exactly one goroutine.
			batch.Results[i] = lowerOne(gctx, sess, sig)
			metrics.completed.Add(1)
			if batch.Results[i].Err != nil {
				metrics.failed.Add(1)
				opts.Progress.emit(i, sig.Name, SignatureError)
				return nil
			}
			opts.Progress.emit(i, sig.Name, SignatureDone)
			return nil
		})
	}
	err := g.Wait()
	phase.end(fmt.Sprintf("%d signatures, %d failed", metrics.completed.Load(), metrics.failed.Load()))
	batch.Timing = timer.Report()

	span.WithExtra("signatures", strconv.FormatInt(metrics.completed.Load(), 10)).
		WithExtra("failed", strconv.FormatInt(metrics.failed.Load(), 10)).
		WithExtra("registry", strconv.Itoa(sess.Registry.Len()))
	if err != nil {
		span.End("cancelled")
		return batch, err
	}
	span.End("")
	return batch, nil
}

// lowerOne runs the registry and lowering for sig.
func lowerOne(ctx context.Context, sess *abi.Session, sig sigfile.Signature) Result {
	ctx, span := trace.Start(ctx, trace.ScopeSignature, "driver.lower")
	span.WithExtra("name", sig.Name)
	res := Result{Signature: sig}
	res.Info, res.Lowered, res.Err = lowerGuarded(ctx, sess, sig)
	if res.Err != nil {
		res.Err = fmt.Errorf("%s: %w", sig.Name, res.Err)
		span.End(res.Err.Error())
		return res
	}
	span.End(res.Info.Key())
	return res
}

// lowerGuarded turns a classifier invariant violation into an error.
func lowerGuarded(ctx context.Context, sess *abi.Session, sig sigfile.Signature) (fi *abi.FunctionInfo, l *abi.Lowered, err error) {
	defer abi.RecoverInvariant(&err)
	fi = sess.Registry.Intern(ctx, sig.Result, sig.Params)
	l, err = sess.Lower(fi, sig.Decl, sig.Variadic)
	return fi, l, err
}
