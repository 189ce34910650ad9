package runner

import (
	"time"

	"github.com/opal-project/opalrunner/internal/queue"
	"github.com/opal-project/opalrunner/internal/runstats"
	"github.com/opal-project/opalrunner/internal/sandbox"
	"github.com/opal-project/opalrunner/internal/worker"
)

// workerHandle pairs a Mapper Worker with the Sandbox Executor it owns
// for the worker's lifetime.
type workerHandle struct {
	worker *worker.Worker
}

func newWorkerHandle(id int, cfg Config, fq *queue.FileQueue, rq *queue.ResultsQueue, stats *runstats.Stats) (*workerHandle, error) {
	ex, err := sandbox.New(sandbox.Config{
		PythonPath: cfg.PythonPath,
		User:       cfg.SandboxUser,
		Sandboxing: cfg.Sandboxing,
		CPULimit:   time.Duration(cfg.CPULimitSeconds) * time.Second,
		DevMode:    cfg.DevMode,
	})
	if err != nil {
		return nil, err
	}

	return &workerHandle{
		worker: &worker.Worker{
			ID:       id,
			Executor: ex,
			Files:    fq,
			Results:  rq,
			Bundle:   cfg.Bundle,
			Params:   cfg.Params,
			DevMode:  cfg.DevMode,
			Stats:    stats,
		},
	}, nil
}
