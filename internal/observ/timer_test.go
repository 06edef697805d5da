package observ

import (
	"strings"
	"testing"
	"time"
)

func TestTimerPhases(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("callgraph")
	time.Sleep(time.Millisecond)
	tm.End(a, "")
	b := tm.Begin("liveness")
	tm.End(b, "4 functions")

	report := tm.Report()
	if len(report.Phases) != 2 {
		t.Fatalf("want 2 phases, got %d", len(report.Phases))
	}
	if report.Phases[0].Name != "callgraph" || report.Phases[1].Name != "liveness" {
		t.Errorf("phase order: %+v", report.Phases)
	}
	if report.Phases[0].DurationMS <= 0 {
		t.Errorf("timed phase should have a positive duration")
	}
	if report.Phases[1].Note != "4 functions" {
		t.Errorf("note lost: %+v", report.Phases[1])
	}
	if report.TotalMS < report.Phases[0].DurationMS {
		t.Errorf("total should cover all phases")
	}
}

func TestTimerSummary(t *testing.T) {
	tm := NewTimer()
	tm.End(tm.Begin("ownership"), "")

	s := tm.Summary()
	if !strings.Contains(s, "ownership") || !strings.Contains(s, "total") {
		t.Errorf("summary missing sections:\n%s", s)
	}
}

func TestTimerOutOfRangeEndIsIgnored(t *testing.T) {
	tm := NewTimer()
	tm.End(5, "nope")
	if got := tm.Report(); len(got.Phases) != 0 {
		t.Errorf("no phases expected, got %+v", got)
	}
}
