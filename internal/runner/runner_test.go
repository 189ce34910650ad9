package runner

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/opal-project/opalrunner/internal/algorithm"
	"github.com/opal-project/opalrunner/internal/envgate"
)

func emptyDataDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// unsafeEnv satisfies the environment gate's unconditional interpreter-path
// requirement so unsafe-mode tests exercise the logic beyond the gate.
func unsafeEnv(t *testing.T) {
	t.Helper()
	t.Setenv(envgate.SandboxVenvEnv, "/usr/bin/python3")
}

func TestRunFailsOnMissingDataDir(t *testing.T) {
	unsafeEnv(t)
	r := New(Config{DataDir: "/no/such/directory", Sandboxing: false, DevMode: true})
	_, err := r.Run(t.Context())
	if err == nil {
		t.Fatal("expected error for missing data dir")
	}
}

func TestRunFailsWithoutAggregationURLInProductionMode(t *testing.T) {
	unsafeEnv(t)
	r := New(Config{
		DataDir:    emptyDataDir(t),
		Sandboxing: false,
		DevMode:    false,
		Params:     algorithm.Params{},
	})
	_, err := r.Run(t.Context())
	if err == nil {
		t.Fatal("expected error for missing aggregationServiceUrl")
	}
}

func TestRunDevModeEmptyDataDirSucceeds(t *testing.T) {
	unsafeEnv(t)
	r := New(Config{
		DataDir:    emptyDataDir(t),
		Sandboxing: false,
		DevMode:    true,
	})
	summary, err := r.Run(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.SubjectsSeen != 0 {
		t.Errorf("expected 0 subjects seen, got %d", summary.SubjectsSeen)
	}
	if len(summary.Partials) != 0 {
		t.Errorf("expected no partials, got %d", len(summary.Partials))
	}
}

func TestRunProductionModeNoSubjectsNeverPosts(t *testing.T) {
	unsafeEnv(t)
	var posts int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		posts++
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := New(Config{
		DataDir:    emptyDataDir(t),
		Sandboxing: false,
		DevMode:    false,
		Params:     algorithm.Params{algorithm.AggregationServiceURLKey: srv.URL},
	})
	_, err := r.Run(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if posts != 0 {
		t.Errorf("expected no posts with no subjects, got %d", posts)
	}
}

func TestRunEnforcesEnvironmentGateWhenSandboxing(t *testing.T) {
	t.Setenv(envgate.SandboxVenvEnv, "")
	t.Setenv(envgate.SandboxUserEnv, "")

	r := New(Config{
		DataDir:    emptyDataDir(t),
		Sandboxing: true,
		DevMode:    true,
	})
	_, err := r.Run(t.Context())
	if err == nil {
		t.Fatal("expected environment gate error")
	}
}

func TestNewDefaultsNumWorkersToOne(t *testing.T) {
	r := New(Config{NumWorkers: 0})
	if r.cfg.NumWorkers != 1 {
		t.Errorf("expected NumWorkers defaulted to 1, got %d", r.cfg.NumWorkers)
	}
}

func TestInterruptedErrorMessage(t *testing.T) {
	err := &InterruptedError{}
	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}
}

func TestRunDevModeLoadsWeightsFile(t *testing.T) {
	unsafeEnv(t)
	dir := emptyDataDir(t)
	weightsPath := filepath.Join(dir, "weights.json")
	if err := os.WriteFile(weightsPath, []byte(`{}`), 0o644); err != nil {
		t.Fatal(err)
	}

	r := New(Config{
		DataDir:     dir,
		WeightsFile: weightsPath,
		Sandboxing:  false,
		DevMode:     true,
	})
	_, err := r.Run(t.Context())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
