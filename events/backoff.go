package events

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// linearBackOff waits step × attempt, capped at max, and gives up after maxAttempts.
type linearBackOff struct {
	step        time.Duration
	max         time.Duration
	maxAttempts int
	attempt     int
}

var _ backoff.BackOff = (*linearBackOff)(nil)

func newLinearBackOff(step, max time.Duration, maxAttempts int) *linearBackOff {
	return &linearBackOff{step: step, max: max, maxAttempts: maxAttempts}
}

func (b *linearBackOff) NextBackOff() time.Duration {
	if b.attempt >= b.maxAttempts {
		return backoff.Stop
	}
	b.attempt++
	next := b.step * time.Duration(b.attempt)
	if b.max > 0 && next > b.max {
		next = b.max
	}
	return next
}

func (b *linearBackOff) Reset() {
	b.attempt = 0
}

// Attempt is the number of delays handed out since the last Reset.
func (b *linearBackOff) Attempt() int {
	return b.attempt
}
