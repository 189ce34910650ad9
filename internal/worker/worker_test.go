package worker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/opal-project/opalrunner/internal/algorithm"
	"github.com/opal-project/opalrunner/internal/queue"
	"github.com/opal-project/opalrunner/internal/runstats"
	"github.com/opal-project/opalrunner/internal/sandbox"
	"github.com/opal-project/opalrunner/internal/subject"
)

func TestProcessRecordsSandboxFailure(t *testing.T) {
	dir := t.TempDir()
	subjectPath := filepath.Join(dir, "subject.csv")
	row := subject.FixtureRow(map[subject.CDRField]string{
		subject.FieldInteraction:     "call",
		subject.FieldDirection:       "out",
		subject.FieldCorrespondentID: "corr-1",
		subject.FieldDatetime:        time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC).Format(subject.DatetimeLayout),
		subject.FieldCallDuration:    "60",
	})
	if err := os.WriteFile(subjectPath, []byte(row+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	ex, err := sandbox.New(sandbox.Config{Sandboxing: false, PythonPath: "/no/such/interpreter"})
	if err != nil {
		t.Fatalf("unexpected error constructing executor: %v", err)
	}

	fq := queue.NewFileQueue(1)
	rq := queue.NewResultsQueue(1)
	stats := &runstats.Stats{}

	w := &Worker{
		ID:       0,
		Executor: ex,
		Files:    fq,
		Results:  rq,
		Bundle:   algorithm.Bundle{Source: "class X:\n    pass\n", EntryName: "X"},
		Params:   algorithm.Params{},
		Stats:    stats,
	}

	w.process(context.Background(), queue.FileItem{File: subject.File{ID: "s1", Path: subjectPath}, Weight: 1})

	snap := stats.Snapshot()
	if snap.SandboxFailures != 1 {
		t.Errorf("expected 1 sandbox failure, got %d", snap.SandboxFailures)
	}
	if snap.SubjectsProcessed != 0 {
		t.Errorf("expected 0 subjects processed, got %d", snap.SubjectsProcessed)
	}
}

func TestRunExitsOnClosedQueue(t *testing.T) {
	fq := queue.NewFileQueue(1)
	fq.Close()
	rq := queue.NewResultsQueue(1)

	w := &Worker{
		ID:      0,
		Files:   fq,
		Results: rq,
		Stats:   &runstats.Stats{},
	}

	done := make(chan struct{})
	go func() {
		w.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to exit promptly on a closed, drained queue")
	}
}

func TestRunExitsOnCancelledContext(t *testing.T) {
	fq := queue.NewFileQueue(1)
	rq := queue.NewResultsQueue(1)

	w := &Worker{
		ID:      0,
		Files:   fq,
		Results: rq,
		Stats:   &runstats.Stats{},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("expected Run to exit promptly on cancelled context")
	}
}
