package runstats

import "testing"

func TestSnapshotReflectsCounters(t *testing.T) {
	var s Stats
	s.SubjectsProcessed.Add(3)
	s.SandboxFailures.Add(1)
	s.RejectedPartials.Add(2)

	snap := s.Snapshot()
	if snap.SubjectsProcessed != 3 {
		t.Errorf("expected 3, got %d", snap.SubjectsProcessed)
	}
	if snap.SandboxFailures != 1 {
		t.Errorf("expected 1, got %d", snap.SandboxFailures)
	}
	if snap.RejectedPartials != 2 {
		t.Errorf("expected 2, got %d", snap.RejectedPartials)
	}
}

func TestSnapshotNilSafe(t *testing.T) {
	var s *Stats
	snap := s.Snapshot()
	if snap.SubjectsProcessed != 0 || snap.SandboxFailures != 0 || snap.RejectedPartials != 0 {
		t.Errorf("expected zero snapshot for nil Stats, got %+v", snap)
	}
}
