package graph

import "sync/atomic"

// RequestCounter observes the requests a Client sends.
type RequestCounter interface {
	// RequestSent is called once per HTTP exchange; batchSize is the number
	// of queued requests for batches and 0 otherwise.
	RequestSent(batchSize int)
	// RequestFailed is called with the kind of each Graph error returned.
	RequestFailed(kind ErrorKind)
}

// NopCounter ignores everything.
type NopCounter struct{}

func (NopCounter) RequestSent(int)         {}
func (NopCounter) RequestFailed(ErrorKind) {}

// AtomicCounter counts requests in memory.
type AtomicCounter struct {
	requests atomic.Int64
	batched  atomic.Int64
	failures atomic.Int64
}

func (c *AtomicCounter) RequestSent(batchSize int) {
	c.requests.Add(1)
	c.batched.Add(int64(batchSize))
}

func (c *AtomicCounter) RequestFailed(ErrorKind) {
	c.failures.Add(1)
}

// Value returns the number of HTTP exchanges.
func (c *AtomicCounter) Value() int64 { return c.requests.Load() }

// BatchedRequests returns the number of requests sent inside batches.
func (c *AtomicCounter) BatchedRequests() int64 { return c.batched.Load() }

// Failures returns the number of Graph errors seen.
func (c *AtomicCounter) Failures() int64 { return c.failures.Load() }

// Reset zeroes all counts.
func (c *AtomicCounter) Reset() {
	c.requests.Store(0)
	c.batched.Store(0)
	c.failures.Store(0)
}
