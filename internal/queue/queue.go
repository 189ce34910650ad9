// Package queue implements the two shared, internally synchronized queues
// the runner passes between its workers and collector: a File Queue of
// (subject, weight) work items and a Results Queue of validated partials
// terminated by a sentinel. Both are buffered channels behind a small
// type, sized once at construction, with a fixed consumer pool and no
// per-item goroutines.
package queue

import (
	"time"

	"github.com/opal-project/opalrunner/internal/partial"
	"github.com/opal-project/opalrunner/internal/subject"
)

// FileItem is one (subject-file, weight) entry drained by a Mapper Worker.
type FileItem struct {
	File   subject.File
	Weight float64
}

// FileQueue is a FIFO, many-producer/many-consumer backlog of FileItems.
// The Runner bulk-inserts at startup (the only producer); Mapper Workers
// drain it with TryPop. Closing signals producers have quiesced: once
// closed and drained, TryPop reports the empty/no-more-producers case
// that is a worker's normal termination signal.
type FileQueue struct {
	items chan FileItem
}

// NewFileQueue creates a queue sized to hold every item up front, since
// the Runner inserts the full backlog in one bulk operation before any
// worker starts.
func NewFileQueue(capacity int) *FileQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &FileQueue{items: make(chan FileItem, capacity)}
}

// Push enqueues one item. Must not be called after Close.
func (q *FileQueue) Push(item FileItem) {
	q.items <- item
}

// Close signals that no further items will be pushed.
func (q *FileQueue) Close() {
	close(q.items)
}

// PopResult is the outcome of a File Queue TryPop.
type PopResult int

const (
	// Got an item.
	PopItem PopResult = iota
	// No item arrived before timeout; the queue may still produce more.
	PopTimeout
	// The queue is closed and drained — a worker's normal exit signal.
	PopClosed
)

// TryPop waits up to timeout for an item. PopClosed is returned only once
// the queue has been closed and every buffered item drained — a worker
// observing it is the normal termination path.
func (q *FileQueue) TryPop(timeout time.Duration) (FileItem, PopResult) {
	select {
	case item, open := <-q.items:
		if !open {
			return FileItem{}, PopClosed
		}
		return item, PopItem
	case <-time.After(timeout):
		return FileItem{}, PopTimeout
	}
}

// ResultItem is one Results Queue entry: a validated partial and its
// weight, or, when IsSentinel is set, the distinguished token the Runner
// places into the Results Queue once every worker has terminated, telling
// the Collector no more partials will arrive.
type ResultItem struct {
	Partial    partial.Partial
	Weight     float64
	IsSentinel bool
}

// ResultsQueue carries validated (Partial, weight) pairs from Mapper
// Workers to the single Collector, terminated by exactly one sentinel.
type ResultsQueue struct {
	items chan ResultItem
}

// NewResultsQueue creates a buffered results queue. The buffer absorbs
// bursts from concurrent workers without making a worker's Results Queue
// put a contended suspension point under normal load.
func NewResultsQueue(capacity int) *ResultsQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &ResultsQueue{items: make(chan ResultItem, capacity)}
}

// Push enqueues a validated partial and the weight to scale it by.
func (q *ResultsQueue) Push(item ResultItem) {
	q.items <- item
}

// PushSentinel enqueues the distinguished termination token.
func (q *ResultsQueue) PushSentinel() {
	q.items <- ResultItem{IsSentinel: true}
}

// Pop blocks until an item (or the sentinel) arrives. Unlike the File
// Queue, the Collector has no timeout-based termination path — it is
// terminated only by observing the sentinel.
func (q *ResultsQueue) Pop() ResultItem {
	return <-q.items
}
