package runner

// InterruptedError is surfaced when an operator interrupt (SIGINT or
// SIGTERM) is translated into a graceful shutdown. No partial results are
// ever returned alongside it — the caller sees only the error.
type InterruptedError struct{}

func (e *InterruptedError) Error() string {
	return "opalrun: interrupted, exiting"
}
