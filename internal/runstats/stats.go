// Package runstats accumulates the in-memory-only counters that make up
// a run's Summary. Never written to disk — the harness carries no
// persistent state.
package runstats

import "sync/atomic"

// Stats is shared by every Mapper Worker (and the inline path) for the
// duration of one run. Safe for concurrent use.
type Stats struct {
	SubjectsProcessed atomic.Int64
	SandboxFailures   atomic.Int64
	RejectedPartials  atomic.Int64
}

// Snapshot is a point-in-time, non-atomic copy of Stats for reporting.
type Snapshot struct {
	SubjectsProcessed int64
	SandboxFailures   int64
	RejectedPartials  int64
}

// Snapshot reads the current counters.
func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		SubjectsProcessed: s.SubjectsProcessed.Load(),
		SandboxFailures:   s.SandboxFailures.Load(),
		RejectedPartials:  s.RejectedPartials.Load(),
	}
}
