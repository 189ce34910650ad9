package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/opal-project/opalrunner/internal/algorithm"
	"github.com/opal-project/opalrunner/internal/config"
	"github.com/opal-project/opalrunner/internal/envgate"
	"github.com/opal-project/opalrunner/internal/runner"
)

var (
	runDataDir    string
	runAlgorithm  string
	runEntry      string
	runParamsFile string
	runWeights    string
	runWorkers    int
	runDev        bool
	runUnsafe     bool
	runConfig     string
	runCPULimit   int
)

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVar(&runDataDir, "data-dir", "", "Directory of subject CDR files (required)")
	runCmd.Flags().StringVar(&runAlgorithm, "algorithm", "", "Path to the analyst's Python algorithm source (required)")
	runCmd.Flags().StringVar(&runEntry, "entry", "", "Name of the class in --algorithm implementing map() (required)")
	runCmd.Flags().StringVar(&runParamsFile, "params", "", "Path to a JSON object of algorithm parameters (required)")
	runCmd.Flags().StringVar(&runWeights, "weights", "", "Path to a JSON object of subject ID -> weight")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "Number of Mapper Workers (default: from --config, else 4)")
	runCmd.Flags().BoolVar(&runDev, "dev", false, "Print scaled partials instead of posting to the aggregation service")
	runCmd.Flags().BoolVar(&runUnsafe, "unsafe", false, "Disable the sandbox uid drop for local development (the CPU limit still applies)")
	runCmd.Flags().StringVar(&runConfig, "config", "", "Path to a YAML run profile")
	runCmd.Flags().IntVar(&runCPULimit, "cpu-limit", 0, "Per-invocation CPU time cap in seconds (default: from --config, else 15)")
	_ = runCmd.MarkFlagRequired("data-dir")
	_ = runCmd.MarkFlagRequired("algorithm")
	_ = runCmd.MarkFlagRequired("entry")
	_ = runCmd.MarkFlagRequired("params")
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run an algorithm snippet against a directory of subject files",
	Long:  "Constructs the File Queue and Results Queue, spawns the Mapper Workers and Collector, and either prints the scaled partials (--dev) or posts them to the aggregation service named in --params.",
	RunE:  runRunCmd,
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	profile, err := config.LoadProfile(runConfig)
	if err != nil {
		return err
	}
	if runWorkers > 0 {
		profile.Workers = runWorkers
	}
	if runDev {
		profile.DevMode = true
	}
	if runUnsafe {
		profile.Sandboxing = false
	}
	if runCPULimit > 0 {
		profile.CPULimitSeconds = runCPULimit
	}

	source, err := os.ReadFile(runAlgorithm)
	if err != nil {
		return fmt.Errorf("opalrun run: read algorithm source: %w", err)
	}

	paramsRaw, err := os.ReadFile(runParamsFile)
	if err != nil {
		return fmt.Errorf("opalrun run: read params: %w", err)
	}
	var params algorithm.Params
	if err := json.Unmarshal(paramsRaw, &params); err != nil {
		return fmt.Errorf("opalrun run: parse params: %w", err)
	}

	pythonPath, sandboxUser := os.Getenv(envgate.SandboxVenvEnv), os.Getenv(envgate.SandboxUserEnv)

	r := runner.New(runner.Config{
		DataDir:         runDataDir,
		WeightsFile:     runWeights,
		NumWorkers:      profile.Workers,
		Bundle:          algorithm.Bundle{Source: string(source), EntryName: runEntry},
		Params:          params,
		PythonPath:      pythonPath,
		SandboxUser:     sandboxUser,
		CPULimitSeconds: profile.CPULimitSeconds,
		DevMode:         profile.DevMode,
		Multiprocess:    true,
		Sandboxing:      profile.Sandboxing,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	summary, err := r.Run(ctx)
	if err != nil {
		return err
	}

	if profile.DevMode {
		out, _ := json.MarshalIndent(summary.Partials, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	fmt.Fprintf(os.Stderr, "opalrun: run %s complete, %d subjects processed, %d sandbox failures, %d rejected partials\n",
		summary.RunID, summary.Stats.SubjectsProcessed, summary.Stats.SandboxFailures, summary.Stats.RejectedPartials)
	return nil
}
