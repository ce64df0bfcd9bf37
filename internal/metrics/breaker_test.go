package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func newTestBreaker(threshold int, window time.Duration) (*CircuitBreaker, *time.Time) {
	now := time.Unix(1000, 0)
	b := NewCircuitBreaker(threshold, window)
	b.now = func() time.Time { return now }
	return b, &now
}

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()

	assert.True(t, b.Allow())
	assert.False(t, b.Open())
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}

	assert.False(t, b.Allow())
	assert.True(t, b.Open())
}

func TestBreakerAllowsProbeAfterResetWindow(t *testing.T) {
	b, now := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	assert.False(t, b.Allow())

	*now = now.Add(59 * time.Second)
	assert.False(t, b.Allow(), "window not yet elapsed")

	*now = now.Add(time.Second)
	assert.True(t, b.Allow(), "one call permitted once the window elapses")
}

func TestBreakerReopensOnSingleFailureAfterReset(t *testing.T) {
	b, now := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	*now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow())

	// The probe call fails: straight back to open.
	b.RecordFailure()
	assert.False(t, b.Allow())
}

func TestBreakerClosesOnSuccess(t *testing.T) {
	b, now := newTestBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		b.RecordFailure()
	}
	*now = now.Add(2 * time.Minute)
	assert.True(t, b.Allow())

	b.RecordSuccess()
	assert.True(t, b.Allow())
	assert.False(t, b.Open())

	// Fully closed again: a single failure is not enough to reopen.
	b.RecordFailure()
	assert.True(t, b.Allow())
}

func TestBreakerSuccessResetsConsecutiveCount(t *testing.T) {
	b, _ := newTestBreaker(3, time.Minute)

	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	b.RecordFailure()
	b.RecordFailure()

	assert.True(t, b.Allow(), "failures were not consecutive")
}
