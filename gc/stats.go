package gc

import "time"

// NumGenerations is the number of ordinary generations.
const NumGenerations = 3

// Stats counts collector work for one generation.
type Stats struct {
	// Collections is the number of passes in which this generation was the oldest scanned.
	Collections int
	// Collected is the number of unreachable objects reclaimed.
	Collected int
	// Uncollectable is the number of objects moved to the garbage list.
	Uncollectable int
}

func (s *Stats) add(o Stats) {
	s.Collections += o.Collections
	s.Collected += o.Collected
	s.Uncollectable += o.Uncollectable
}

// Phase tells a Callback whether a pass is starting or has finished.
type Phase uint8

const (
	// PhaseStart is reported before a pass touches any generation.
	PhaseStart Phase = iota
	// PhaseStop is reported after a pass, with the pass's results.
	PhaseStop
)

func (p Phase) String() string {
	switch p {
	case PhaseStart:
		return "start"
	case PhaseStop:
		return "stop"
	default:
		return "unknown"
	}
}

// Callback observes collection passes. stats is zero for PhaseStart.
type Callback func(phase Phase, generation int, stats Stats)

// Metrics receives per-pass measurements. Implementations must be cheap.
type Metrics interface {
	RecordCollection(generation int, stats Stats, duration time.Duration)
	RecordFinalizerError(err error)
	RecordAbortedPass(generation int, err error)
}

type noopMetrics struct{}

func (noopMetrics) RecordCollection(int, Stats, time.Duration) {}
func (noopMetrics) RecordFinalizerError(error)                 {}
func (noopMetrics) RecordAbortedPass(int, error)               {}
