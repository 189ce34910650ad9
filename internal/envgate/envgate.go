// Package envgate verifies the sandbox configuration the Runner depends on
// before any work starts: one Verify call, no fallback, no defaulting.
package envgate

import "fmt"

// Env names of the two configuration inputs the Sandbox Executor requires.
const (
	SandboxVenvEnv = "OPALALGO_SANDBOX_VENV"
	SandboxUserEnv = "OPALALGO_SANDBOX_USER"
)

// ConfigurationError reports a missing required environment input. It is
// always fatal — callers never recover from it mid-run.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("opalalgo: missing required configuration: %v", e.Missing)
}

// LookupFunc matches os.LookupEnv's signature, overridable in tests.
type LookupFunc func(key string) (string, bool)

// Verify checks that the sandbox configuration inputs the Runner is
// about to depend on are present. The interpreter path is required
// unconditionally — unsafe mode still shells out to the same generated
// driver, it just skips the uid drop, so OPALALGO_SANDBOX_VENV is still
// needed to find the interpreter. The
// unprivileged account is required only when sandboxing is enabled,
// since unsafe mode never drops privileges.
func Verify(sandboxing bool, lookup LookupFunc) error {
	var missing []string
	if v, ok := lookup(SandboxVenvEnv); !ok || v == "" {
		missing = append(missing, SandboxVenvEnv)
	}
	if sandboxing {
		if v, ok := lookup(SandboxUserEnv); !ok || v == "" {
			missing = append(missing, SandboxUserEnv)
		}
	}

	if len(missing) > 0 {
		return &ConfigurationError{Missing: missing}
	}
	return nil
}
