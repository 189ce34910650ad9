// Package collector implements the Collector: the single
// consumer of the Results Queue, scaling every validated partial and
// dispatching it either into an in-memory list (dev mode) or to the
// Aggregator Client (production mode).
package collector

import (
	"github.com/opal-project/opalrunner/internal/aggregator"
	"github.com/opal-project/opalrunner/internal/partial"
	"github.com/opal-project/opalrunner/internal/queue"
	"github.com/opal-project/opalrunner/internal/scale"
)

// Result is what Run returns on a clean finalize. In dev mode, Partials
// holds every scaled partial in Results-Queue arrival order. In
// production mode, Partials is always nil — only the success token (a
// nil error) matters.
type Result struct {
	Partials []partial.Partial
}

// Collector is single-threaded by design: the aggregation endpoint sees
// partials serialized per run, and dev-mode list ordering is deterministic
// relative to Results-Queue arrival order.
type Collector struct {
	queue      *queue.ResultsQueue
	devMode    bool
	aggregator *aggregator.Client
}

// New constructs a Collector. client is nil in dev mode (and must be
// non-nil in production mode — the Runner guarantees this at construction).
func New(q *queue.ResultsQueue, devMode bool, client *aggregator.Client) *Collector {
	return &Collector{queue: q, devMode: devMode, aggregator: client}
}

// Run consumes the Results Queue until it observes the sentinel, scaling
// and dispatching every item in between, then returns the final Result.
// On an Aggregator Client failure it aborts immediately without draining
// the remainder of the queue — the Runner fails the whole run on error.
func (c *Collector) Run() (Result, error) {
	var out Result
	for {
		item := c.queue.Pop()
		if item.IsSentinel {
			return out, nil
		}

		scaled := scale.Apply(item.Partial, item.Weight)

		if c.devMode {
			out.Partials = append(out.Partials, scaled)
			continue
		}

		if err := c.aggregator.Post(scaled); err != nil {
			return Result{}, err
		}
	}
}
