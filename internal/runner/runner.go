// Package runner implements the Runner: it constructs the
// File Queue and Results Queue, spawns the Mapper Workers and the single
// Collector, wires an operator interrupt into graceful shutdown, and joins
// everything before returning.
//
// State machine:
//
//	IDLE -> (call) -> STARTING -> RUNNING -> DRAINING -> JOINED -> DONE
//	any of STARTING..DRAINING -> INTERRUPTED -> JOINED -> FAILED
package runner

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/opal-project/opalrunner/internal/aggregator"
	"github.com/opal-project/opalrunner/internal/algorithm"
	"github.com/opal-project/opalrunner/internal/collector"
	"github.com/opal-project/opalrunner/internal/envgate"
	"github.com/opal-project/opalrunner/internal/partial"
	"github.com/opal-project/opalrunner/internal/queue"
	"github.com/opal-project/opalrunner/internal/runstats"
	"github.com/opal-project/opalrunner/internal/sandbox"
	"github.com/opal-project/opalrunner/internal/scale"
	"github.com/opal-project/opalrunner/internal/subject"
	"github.com/opal-project/opalrunner/internal/validate"
)

// Config is the Runner's construction-time configuration.
type Config struct {
	DataDir     string
	WeightsFile string // optional; "" means every subject defaults to weight 1
	NumWorkers  int

	Bundle algorithm.Bundle
	Params algorithm.Params

	PythonPath  string // OPALALGO_SANDBOX_VENV interpreter path
	SandboxUser string // OPALALGO_SANDBOX_USER

	CPULimitSeconds int // 0 uses sandbox.DefaultCPULimit

	DevMode      bool
	Multiprocess bool // true runs the worker pool; the zero value (false) runs the inline single-thread path
	Sandboxing   bool // true runs children as SandboxUser; the zero value (false) runs the unsafe/dev path
}

// Summary is returned on a clean run, bundling the Collector's result with
// the in-memory-only Run Record counters. Partials is populated only in
// dev mode; production-mode callers only care that err was nil.
type Summary struct {
	RunID        string
	StartedAt    time.Time
	EndedAt      time.Time
	SubjectsSeen int
	Stats        runstats.Snapshot
	Partials     []partial.Partial
}

// Runner owns one run's worker group; nothing about it is package-global.
type Runner struct {
	cfg Config
}

// New constructs a Runner. It does no I/O — Run performs the Environment
// Gate check and all filesystem work.
func New(cfg Config) *Runner {
	if cfg.NumWorkers < 1 {
		cfg.NumWorkers = 1
	}
	return &Runner{cfg: cfg}
}

// Run executes the Runner's responsibilities in order:
// Environment Gate, subject/weight discovery, dispatch (inline or
// parallel), interrupt-aware join, and result translation.
//
// ctx is the caller's interrupt token: Run derives
// its own cancellable context from it. On the parallel path it also wires
// SIGINT and SIGTERM once the workers are spawned, so a Runner invoked as
// a library (not just from the CLI) still honors an operator interrupt;
// the inline path relies on ctx alone.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	started := time.Now().UTC()
	runID := uuid.NewString()

	if err := envgate.Verify(r.cfg.Sandboxing, os.LookupEnv); err != nil {
		return Summary{}, err
	}

	files, err := subject.Discover(r.cfg.DataDir)
	if err != nil {
		return Summary{}, fmt.Errorf("runner: %w", err)
	}

	weights, err := subject.LoadWeights(r.cfg.WeightsFile)
	if err != nil {
		return Summary{}, fmt.Errorf("runner: %w", err)
	}

	var client *aggregator.Client
	if !r.cfg.DevMode {
		url := r.cfg.Params.AggregationServiceURL()
		if url == "" {
			return Summary{}, fmt.Errorf("runner: %s is required in production mode", algorithm.AggregationServiceURLKey)
		}
		client = aggregator.New(url)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var result collector.Result
	var stats runstats.Stats
	if r.cfg.Multiprocess {
		result, err = r.runParallel(runCtx, cancel, files, weights, client, &stats)
	} else {
		result, err = r.runInline(runCtx, files, weights, client, &stats)
	}
	if err != nil {
		return Summary{}, err
	}

	return Summary{
		RunID:        runID,
		StartedAt:    started,
		EndedAt:      time.Now().UTC(),
		SubjectsSeen: len(files),
		Stats:        stats.Snapshot(),
		Partials:     result.Partials,
	}, nil
}

// runInline implements the Runner's non-multiprocess path: a
// single calling-thread loop running Sandbox -> Validate -> Scale ->
// Collect per subject.
func (r *Runner) runInline(ctx context.Context, files []subject.File, weights subject.WeightMap, client *aggregator.Client, stats *runstats.Stats) (collector.Result, error) {
	ex, err := sandbox.New(sandbox.Config{
		PythonPath: r.cfg.PythonPath,
		User:       r.cfg.SandboxUser,
		Sandboxing: r.cfg.Sandboxing,
		CPULimit:   time.Duration(r.cfg.CPULimitSeconds) * time.Second,
		DevMode:    r.cfg.DevMode,
	})
	if err != nil {
		return collector.Result{}, fmt.Errorf("runner: construct executor: %w", err)
	}

	var out collector.Result
	for _, f := range files {
		select {
		case <-ctx.Done():
			return collector.Result{}, &InterruptedError{}
		default:
		}

		raw, err := ex.Execute(ctx, r.cfg.Bundle.Source, r.cfg.Bundle.EntryName, r.cfg.Params, f.Path)
		if err != nil {
			stats.SandboxFailures.Add(1)
			if r.cfg.DevMode {
				fmt.Fprintf(os.Stderr, "inline: sandbox failure on %s: %v\n", f.ID, err)
			}
			continue
		}

		p, err := validate.Validate(raw)
		if err != nil {
			stats.RejectedPartials.Add(1)
			if r.cfg.DevMode {
				fmt.Fprintf(os.Stderr, "inline: rejected partial from %s: %v\n", f.ID, err)
			}
			continue
		}
		if validate.IsEmpty(p) {
			continue
		}
		stats.SubjectsProcessed.Add(1)

		scaled := scale.Apply(p, weights.Weight(f.ID))
		if r.cfg.DevMode {
			out.Partials = append(out.Partials, scaled)
			continue
		}
		if err := client.Post(scaled); err != nil {
			return collector.Result{}, err
		}
	}
	return out, nil
}

// collectorOutcome carries the Collector goroutine's return values back
// to the Runner over a channel.
type collectorOutcome struct {
	result collector.Result
	err    error
}

// runParallel implements steps 3 (multiprocess branch) and
// 4-8: queue construction, worker/collector spawn, signal wiring, join,
// sentinel hand-off, and interrupt translation.
func (r *Runner) runParallel(ctx context.Context, cancel context.CancelFunc, files []subject.File, weights subject.WeightMap, client *aggregator.Client, stats *runstats.Stats) (collector.Result, error) {
	fq := queue.NewFileQueue(len(files) + 1)
	for _, f := range files {
		fq.Push(queue.FileItem{File: f, Weight: weights.Weight(f.ID)})
	}
	fq.Close()

	rq := queue.NewResultsQueue(len(files) + 1)
	coll := collector.New(rq, r.cfg.DevMode, client)

	// Spawn the collector first.
	collDone := make(chan collectorOutcome, 1)
	go func() {
		result, err := coll.Run()
		collDone <- collectorOutcome{result: result, err: err}
	}()

	// Ignore interrupts while workers are spawning.
	signal.Ignore(syscall.SIGINT, syscall.SIGTERM)

	workers := make([]*workerHandle, r.cfg.NumWorkers)
	var wg sync.WaitGroup
	var spawnErr error
	for i := 0; i < r.cfg.NumWorkers && spawnErr == nil; i++ {
		w, err := newWorkerHandle(i, r.cfg, fq, rq, stats)
		if err != nil {
			spawnErr = fmt.Errorf("runner: spawn worker %d: %w", i, err)
			break
		}
		workers[i] = w
		wg.Add(1)
		go func(w *workerHandle) {
			defer wg.Done()
			w.worker.Run(ctx)
		}(w)
	}

	// Restore a real handler: a subsequent interrupt now triggers a
	// graceful exit.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var interrupted bool
	sigDone := make(chan struct{})
	stopSig := make(chan struct{})
	go func() {
		defer close(sigDone)
		select {
		case <-sigCh:
			interrupted = true
			cancel()
		case <-ctx.Done():
		case <-stopSig:
		}
	}()

	workersDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(workersDone)
	}()
	<-workersDone

	// Every worker has terminated; the Collector may now see its one
	// sentinel.
	rq.PushSentinel()
	outcome := <-collDone
	close(stopSig)
	<-sigDone

	if spawnErr != nil {
		return collector.Result{}, spawnErr
	}
	if interrupted || ctx.Err() != nil {
		return collector.Result{}, &InterruptedError{}
	}
	if outcome.err != nil {
		return collector.Result{}, outcome.err
	}
	return outcome.result, nil
}
