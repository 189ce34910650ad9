// Package sandbox runs one analyst-supplied snippet against one subject
// file as a resource-limited, per-invocation child process: a sanitized
// environment, a captured stdout/stderr pair, and a synthetic command
// line built per invocation rather than a long-lived interpreter.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// DefaultCPULimit is the per-invocation CPU-time cap applied when
// Config.CPULimit is zero. Wall-clock is deliberately left unbounded —
// real-time limiting is an explicitly disabled, open question.
const DefaultCPULimit = 15 * time.Second

// Config configures one Executor, reused across invocations by a single
// Mapper Worker.
type Config struct {
	// PythonPath is the interpreter binary inside OPALALGO_SANDBOX_VENV.
	PythonPath string
	// User is the unprivileged account sandboxed children run as.
	// Ignored when Sandboxing is false.
	User string
	// Sandboxing enables the uid drop to User. When false (unsafe mode,
	// for local development) the same driver still runs as a subprocess —
	// a Go host process has no way to execute Python "in-process" — as the
	// current user. The CPU-time cap applies in both modes.
	Sandboxing bool
	// CPULimit overrides DefaultCPULimit when non-zero.
	CPULimit time.Duration
	// DevMode is passed to the CDR loader as its describe/warnings
	// toggle. Independent of Sandboxing: a production run can be
	// unsafe, and a dev run can still be sandboxed.
	DevMode bool
}

func (c Config) cpuLimit() time.Duration {
	if c.CPULimit <= 0 {
		return DefaultCPULimit
	}
	return c.CPULimit
}

// ExecutionError is raised on any sandbox failure: CPU limit exceeded,
// non-zero exit, malformed output, or host policy denial. Exactly one
// attempt is made; there is no internal retry.
type ExecutionError struct {
	Subject string
	Reason  string
	Stderr  string
}

func (e *ExecutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("sandbox: %s: %s (stderr: %s)", e.Subject, e.Reason, e.Stderr)
	}
	return fmt.Sprintf("sandbox: %s: %s", e.Subject, e.Reason)
}

// Executor runs one snippet+subject invocation at a time. Callers own
// serialization across invocations; an Executor has no internal mutex
// because each Mapper Worker owns exactly one.
type Executor struct {
	cfg Config
}

// New constructs an Executor. When cfg.Sandboxing is true, cfg.User must
// resolve to a local account — New resolves it once so a bad account name
// fails fast rather than on the first invocation.
func New(cfg Config) (*Executor, error) {
	if cfg.Sandboxing {
		if _, err := user.Lookup(cfg.User); err != nil {
			return nil, fmt.Errorf("sandbox: resolve user %q: %w", cfg.User, err)
		}
	}
	return &Executor{cfg: cfg}, nil
}

// Execute runs snippet's entry class against subjectFile with params, and
// returns the raw value the map() call produced. The value is untyped —
// validation happens at the Validator boundary, not here.
func (e *Executor) Execute(ctx context.Context, snippetSource, entryName string, params map[string]any, subjectFile string) (RawResult, error) {
	workDir, err := os.MkdirTemp("", "opalalgo-run-")
	if err != nil {
		return RawResult{}, &ExecutionError{Subject: subjectFile, Reason: fmt.Sprintf("create workdir: %v", err)}
	}
	defer os.RemoveAll(workDir)

	// The subject file is copied under a fixed name into the fresh
	// workdir, which also holds the params file and the driver; the child
	// is given only that copy's path. The child's view of the rest of the
	// filesystem is not restricted beyond what its user may read.
	isolatedSubject := filepath.Join(workDir, "subject.csv")
	if err := copyFile(subjectFile, isolatedSubject); err != nil {
		return RawResult{}, &ExecutionError{Subject: subjectFile, Reason: fmt.Sprintf("stage subject file: %v", err)}
	}

	paramsFile := filepath.Join(workDir, "params.json")
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return RawResult{}, &ExecutionError{Subject: subjectFile, Reason: fmt.Sprintf("marshal params: %v", err)}
	}
	if err := os.WriteFile(paramsFile, paramsJSON, 0o600); err != nil {
		return RawResult{}, &ExecutionError{Subject: subjectFile, Reason: fmt.Sprintf("write params: %v", err)}
	}

	driverFile := filepath.Join(workDir, "driver.py")
	driverSource := buildDriver(snippetSource, entryName, e.cfg.DevMode)
	if err := os.WriteFile(driverFile, []byte(driverSource), 0o600); err != nil {
		return RawResult{}, &ExecutionError{Subject: subjectFile, Reason: fmt.Sprintf("write driver: %v", err)}
	}

	cmd, err := e.buildCommand(ctx, driverFile, isolatedSubject, paramsFile)
	if err != nil {
		return RawResult{}, &ExecutionError{Subject: subjectFile, Reason: err.Error()}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Dir = workDir

	if err := cmd.Run(); err != nil {
		return RawResult{}, &ExecutionError{
			Subject: subjectFile,
			Reason:  fmt.Sprintf("interpreter exited: %v", err),
			Stderr:  stderr.String(),
		}
	}

	result, err := decodeResult(bytes.TrimSpace(stdout.Bytes()))
	if err != nil {
		return RawResult{}, &ExecutionError{
			Subject: subjectFile,
			Reason:  fmt.Sprintf("malformed output: %v", err),
			Stderr:  stderr.String(),
		}
	}

	return result, nil
}

// buildCommand constructs the per-invocation child process. CPU time is
// capped via the shell's ulimit -t, a standard way to apply RLIMIT_CPU to
// a not-yet-exec'd process without a fork/exec hook; real-time (wall
// clock) is left unset. The unprivileged user, when sandboxing is
// enabled, is applied via the process credential.
func (e *Executor) buildCommand(ctx context.Context, driverFile, subjectFile, paramsFile string) (*exec.Cmd, error) {
	script := fmt.Sprintf(
		"ulimit -t %d; exec %s %s --subject %s --params %s",
		int(e.cfg.cpuLimit().Seconds()),
		shellQuote(e.cfg.PythonPath),
		shellQuote(driverFile),
		shellQuote(subjectFile),
		shellQuote(paramsFile),
	)

	cmd := exec.CommandContext(ctx, "/bin/sh", "-c", script)
	cmd.Env = []string{"PATH=" + os.Getenv("PATH")}

	if e.cfg.Sandboxing {
		u, err := user.Lookup(e.cfg.User)
		if err != nil {
			return nil, fmt.Errorf("resolve user %q: %w", e.cfg.User, err)
		}
		uid, err := strconv.ParseUint(u.Uid, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse uid for %q: %w", e.cfg.User, err)
		}
		gid, err := strconv.ParseUint(u.Gid, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("parse gid for %q: %w", e.cfg.User, err)
		}
		cmd.SysProcAttr = &syscall.SysProcAttr{
			Credential: &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)},
		}
	}

	return cmd, nil
}

// buildDriver concatenates the snippet source with a small program that
// instantiates entryName, loads the subject file, calls map(), and prints
// the result as JSON on stdout. devMode toggles the describe/warnings
// flag passed to the opaque CDR loader.
func buildDriver(snippetSource, entryName string, devMode bool) string {
	describe := "False"
	if devMode {
		describe = "True"
	}
	return fmt.Sprintf(`%s

import argparse
import json
from opalalgorithms.utils import bandicoot_format as _cdr

def _main():
    parser = argparse.ArgumentParser()
    parser.add_argument("--subject", required=True)
    parser.add_argument("--params", required=True)
    args = parser.parse_args()

    with open(args.params) as f:
        params = json.load(f)

    subject = _cdr.load(args.subject, describe=%s)
    algo = %s()
    result = algo.map(params, subject)

    is_mapping = isinstance(result, dict)
    entries = list(result.items()) if is_mapping else []
    print(json.dumps({"is_mapping": is_mapping, "entries": entries}))

if __name__ == "__main__":
    _main()
`, snippetSource, describe, entryName)
}

// shellQuote wraps s in single quotes for safe use in the generated
// ulimit/exec shell line, escaping any embedded single quotes.
func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
