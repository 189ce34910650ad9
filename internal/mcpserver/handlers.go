package mcpserver

import (
	"context"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/opal-project/opalrunner/internal/algorithm"
	"github.com/opal-project/opalrunner/internal/envgate"
	"github.com/opal-project/opalrunner/internal/partial"
	"github.com/opal-project/opalrunner/internal/runner"
)

// RunInput defines parameters for the opal_run tool.
type RunInput struct {
	DataDir     string         `json:"data_dir" jsonschema:"directory of subject CDR files"`
	Algorithm   string         `json:"algorithm" jsonschema:"Python source of the analyst's algorithm"`
	Entry       string         `json:"entry" jsonschema:"name of the class in algorithm implementing map()"`
	Params      map[string]any `json:"params" jsonschema:"algorithm parameters, including aggregationServiceUrl in production mode"`
	WeightsFile string         `json:"weights_file,omitempty" jsonschema:"path to a JSON object of subject ID -> weight"`
	Workers     int            `json:"workers,omitempty" jsonschema:"number of Mapper Workers, default 4"`
	Dev         bool           `json:"dev,omitempty" jsonschema:"return scaled partials instead of posting to the aggregation service"`
	Unsafe      bool           `json:"unsafe,omitempty" jsonschema:"disable sandbox isolation for local development"`
	CPULimitSec int            `json:"cpu_limit_seconds,omitempty" jsonschema:"per-invocation CPU time cap in seconds, default 15"`
}

// RunOutput contains a successful run's result. A failed run returns an
// empty RunOutput; its error text is in the tool result's content.
type RunOutput struct {
	RunID             string            `json:"run_id,omitempty"`
	SubjectsSeen      int               `json:"subjects_seen,omitempty"`
	SubjectsProcessed int64             `json:"subjects_processed,omitempty"`
	SandboxFailures   int64             `json:"sandbox_failures,omitempty"`
	RejectedPartials  int64             `json:"rejected_partials,omitempty"`
	Partials          []partial.Partial `json:"partials,omitempty"`
}

func (s *Server) handleRun(ctx context.Context, req *mcpsdk.CallToolRequest, input RunInput) (*mcpsdk.CallToolResult, RunOutput, error) {
	workers := input.Workers
	if workers < 1 {
		workers = 4
	}

	r := runner.New(runner.Config{
		DataDir:         input.DataDir,
		WeightsFile:     input.WeightsFile,
		NumWorkers:      workers,
		Bundle:          algorithm.Bundle{Source: input.Algorithm, EntryName: input.Entry},
		Params:          algorithm.Params(input.Params),
		PythonPath:      os.Getenv(envgate.SandboxVenvEnv),
		SandboxUser:     os.Getenv(envgate.SandboxUserEnv),
		CPULimitSeconds: input.CPULimitSec,
		DevMode:         input.Dev,
		Multiprocess:    true,
		Sandboxing:      !input.Unsafe,
	})

	summary, err := r.Run(ctx)
	if err != nil {
		return &mcpsdk.CallToolResult{
			IsError: true,
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: err.Error()}},
		}, RunOutput{}, nil
	}

	return nil, RunOutput{
		RunID:             summary.RunID,
		SubjectsSeen:      summary.SubjectsSeen,
		SubjectsProcessed: summary.Stats.SubjectsProcessed,
		SandboxFailures:   summary.Stats.SandboxFailures,
		RejectedPartials:  summary.Stats.RejectedPartials,
		Partials:          summary.Partials,
	}, nil
}
