// Package worker implements the Mapper Worker: drains the
// File Queue, runs each subject through its Sandbox Executor, validates
// the result, and forwards validated (partial, weight) pairs to the
// Results Queue.
package worker

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/opal-project/opalrunner/internal/algorithm"
	"github.com/opal-project/opalrunner/internal/queue"
	"github.com/opal-project/opalrunner/internal/runstats"
	"github.com/opal-project/opalrunner/internal/sandbox"
	"github.com/opal-project/opalrunner/internal/validate"
)

// pollInterval is how long a worker waits on an empty File Queue before
// re-checking for cancellation or termination.
const pollInterval = 200 * time.Millisecond

// Worker runs a loop with one Executor, reused across invocations,
// pulling from a shared File Queue and pushing to a shared Results
// Queue.
type Worker struct {
	ID       int
	Executor *sandbox.Executor
	Files    *queue.FileQueue
	Results  *queue.ResultsQueue
	Bundle   algorithm.Bundle
	Params   algorithm.Params
	DevMode  bool
	// Stats must be non-nil; the Runner always supplies one shared
	// instance across every worker for the run.
	Stats *runstats.Stats
}

// Run loops until the File Queue is closed and drained, or ctx is
// cancelled (an interrupted run). Each iteration's suspension points are
// the File Queue take, the synchronous sandbox call, and the Results
// Queue put.
func (w *Worker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, state := w.Files.TryPop(pollInterval)
		switch state {
		case queue.PopClosed:
			return
		case queue.PopTimeout:
			continue
		}

		w.process(ctx, item)
	}
}

// process runs one (file, weight) item end to end: sandbox, validate,
// forward. Sandbox and validation failures are per-subject losses only —
// the worker continues to its next item.
func (w *Worker) process(ctx context.Context, item queue.FileItem) {
	raw, err := w.Executor.Execute(ctx, w.Bundle.Source, w.Bundle.EntryName, w.Params, item.File.Path)
	if err != nil {
		w.Stats.SandboxFailures.Add(1)
		if w.DevMode {
			fmt.Fprintf(os.Stderr, "worker %d: sandbox failure on %s: %v\n", w.ID, item.File.ID, err)
		}
		return
	}

	p, err := validate.Validate(raw)
	if err != nil {
		w.Stats.RejectedPartials.Add(1)
		if w.DevMode {
			fmt.Fprintf(os.Stderr, "worker %d: rejected partial from %s: %v\n", w.ID, item.File.ID, err)
		}
		return
	}

	if validate.IsEmpty(p) {
		return
	}

	w.Stats.SubjectsProcessed.Add(1)
	w.Results.Push(queue.ResultItem{Partial: p, Weight: item.Weight})
}
