package driver

import "time"

// Stage describes a high-level pipeline phase.
type Stage string

const (
	// StageLoad is program file loading and resolution.
	StageLoad Stage = "load"
	// StageCallGraph is call graph construction.
	StageCallGraph Stage = "callgraph"
	// StageReadonly is the readonly-parameter fixed point.
	StageReadonly Stage = "readonly"
	// StageLiveness is the per-function backward liveness pass.
	StageLiveness Stage = "liveness"
	// StageOwnership is the per-function move checking pass.
	StageOwnership Stage = "ownership"
	// StageDecide is decision-layer construction.
	StageDecide Stage = "decide"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the unit is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the unit is currently being analyzed.
	StatusWorking Status = "working"
	// StatusDone indicates the unit is done.
	StatusDone Status = "done"
	// StatusError indicates the unit produced errors.
	StatusError Status = "error"
)

// Event reports progress for one function (or for the whole pipeline
// when Unit is empty).
type Event struct {
	Unit    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// nopSink drops events; used when no observer is attached.
type nopSink struct{}

func (nopSink) OnEvent(Event) {}
