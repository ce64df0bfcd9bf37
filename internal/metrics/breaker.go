package metrics

import (
	"sync"
	"time"
)

// CircuitBreaker guards calls to the external metrics store. It has two
// observable states: closed (calls pass) and open (calls rejected until the
// reset window elapses). A half-open retry is modeled as the open state
// resetting itself once the window passes, not as a third state.
//
// The breaker is pure bookkeeping around a client call; it contains no
// network logic. It is instance-scoped and must be shared only through the
// client that owns it.
type CircuitBreaker struct {
	mu          sync.Mutex
	failures    int
	openedAt    time.Time
	threshold   int
	resetWindow time.Duration
	now         func() time.Time
}

// NewCircuitBreaker creates a closed breaker that opens after threshold
// consecutive failures and stays open for the reset window.
func NewCircuitBreaker(threshold int, resetWindow time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		threshold:   threshold,
		resetWindow: resetWindow,
		now:         time.Now,
	}
}

// Allow reports whether a call may proceed. Once the reset window has
// elapsed the breaker closes again and lets the next call through; a single
// subsequent failure reopens it.
func (b *CircuitBreaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failures < b.threshold {
		return true
	}
	if b.now().Sub(b.openedAt) >= b.resetWindow {
		// One probe call is allowed through. A success fully closes the
		// breaker; a single failure reopens it immediately.
		b.failures = b.threshold - 1
		return true
	}
	return false
}

// Open reports whether the breaker currently rejects calls, without
// mutating state.
func (b *CircuitBreaker) Open() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.failures >= b.threshold && b.now().Sub(b.openedAt) < b.resetWindow
}

// RecordSuccess resets the consecutive failure counter.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
}

// RecordFailure counts a failure; reaching the threshold opens the breaker
// and stamps the opening time.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	if b.failures == b.threshold {
		b.openedAt = b.now()
	}
}
