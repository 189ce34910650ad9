// Package validate implements the Validator: the trust
// boundary between an untrusted snippet's raw return value and the typed
// Partial the rest of the pipeline operates on.
package validate

import (
	"fmt"
	"math"

	"github.com/opal-project/opalrunner/internal/partial"
	"github.com/opal-project/opalrunner/internal/sandbox"
)

// InvalidPartialError is raised when a raw sandbox result fails
// validation. It is always absorbed by the caller (dropped, optionally
// logged in dev mode) — never surfaced to the Runner.
type InvalidPartialError struct {
	Reason string
}

func (e *InvalidPartialError) Error() string {
	return fmt.Sprintf("invalid partial: %s", e.Reason)
}

// Validate checks raw against the trust boundary's rules: it must be a
// mapping, every key a string, every value a finite integer or
// floating-point number. Non-string keys are rejected outright.
//
// An empty, valid mapping is returned as an empty Partial rather than
// dropped here; dropping it is left to the caller.
func Validate(raw sandbox.RawResult) (partial.Partial, error) {
	if !raw.IsMapping {
		return nil, &InvalidPartialError{Reason: "result is not a mapping"}
	}

	p := make(partial.Partial, len(raw.Entries))
	for _, entry := range raw.Entries {
		key, ok := entry.Key.(string)
		if !ok {
			return nil, &InvalidPartialError{Reason: fmt.Sprintf("key %#v is not a string", entry.Key)}
		}
		num, ok := asFiniteNumber(entry.Value)
		if !ok {
			return nil, &InvalidPartialError{Reason: fmt.Sprintf("value for key %q is not a finite number", key)}
		}
		p[key] = num
	}
	return p, nil
}

// IsEmpty reports whether p contributes nothing to aggregation, the
// signal a Mapper Worker may use to silently drop it before scaling.
func IsEmpty(p partial.Partial) bool {
	return len(p) == 0
}

func asFiniteNumber(v any) (float64, bool) {
	f, ok := v.(float64)
	if !ok {
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
