// Package observ holds lightweight instrumentation for the analysis
// pipeline: a phase timer surfaced through the --timings flag.
package observ

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"
)

type phase struct {
	name    string
	started time.Time
	elapsed time.Duration
	note    string
}

// Timer tracks how long each analysis stage ran. Not safe for
// concurrent Begin/End; the pipeline times stages from one goroutine.
type Timer struct {
	phases []phase
}

func NewTimer() *Timer { return &Timer{} }

// Begin opens a phase and returns a handle to pass to End.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, phase{name: name, started: time.Now()})
	return len(t.phases) - 1
}

// End closes the phase opened by Begin. Handles outside the recorded
// range are ignored.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	t.phases[idx].elapsed = time.Since(t.phases[idx].started)
	t.phases[idx].note = note
}

// PhaseReport is one timed phase in serializable form.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Note       string  `json:"note,omitempty"`
}

// Report is the full timing breakdown with the summed total.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	var r Report
	var total time.Duration
	for _, p := range t.phases {
		total += p.elapsed
		r.Phases = append(r.Phases, PhaseReport{
			Name:       p.name,
			DurationMS: float64(p.elapsed) / float64(time.Millisecond),
			Note:       p.note,
		})
	}
	r.TotalMS = float64(total) / float64(time.Millisecond)
	return r
}

// Summary renders the report as an aligned text block for stderr.
func (t *Timer) Summary() string {
	r := t.Report()
	var b strings.Builder
	b.WriteString("timings:\n")
	w := tabwriter.NewWriter(&b, 2, 0, 2, ' ', 0)
	for _, p := range r.Phases {
		note := ""
		if p.Note != "" {
			note = "// " + p.Note
		}
		fmt.Fprintf(w, "  %s\t%.2f ms\t%s\n", p.Name, p.DurationMS, note)
	}
	fmt.Fprintf(w, "  %s\t%.2f ms\t\n", "total", r.TotalMS)
	w.Flush()
	return b.String()
}
