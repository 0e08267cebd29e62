package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	if r := tm.Report(); len(r.Phases) != 0 || r.TotalMS != 0 {
		t.Fatalf("empty timer report %+v", r)
	}

	load := tm.Begin("load")
	time.Sleep(time.Millisecond)
	tm.End(load, "3 records")
	lower := tm.Begin("lower")
	tm.End(lower, "")
	tm.End(42, "ignored")

	r := tm.Report()
	if len(r.Phases) != 2 || r.Phases[0].Name != "load" || r.Phases[0].Note != "3 records" {
		t.Fatalf("report %+v", r)
	}
	if r.Phases[0].DurationMS <= 0 || r.TotalMS < r.Phases[0].DurationMS {
		t.Fatalf("durations not accumulated: %+v", r)
	}

	s := tm.Summary()
	for _, want := range []string{"timings:", "load", "// 3 records", "total"} {
		if !strings.Contains(s, want) {
			t.Fatalf("summary missing %q:\n%s", want, s)
		}
	}
}
