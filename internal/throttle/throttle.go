// Package throttle caps download byte throughput with a token bucket.
package throttle

import (
	"context"

	"golang.org/x/time/rate"
)

// Throttle limits byte throughput to a configured rate. Capacity is one
// second's worth of bytes; tokens replenish continuously. Each active
// download owns its own instance, so every job gets an independent budget.
type Throttle struct {
	limiter *rate.Limiter
	burst   int
}

// New returns a throttle for bytesPerSec. A rate of 0 or less means
// unlimited and Wait short-circuits to a no-op.
func New(bytesPerSec int64) *Throttle {
	if bytesPerSec <= 0 {
		return &Throttle{}
	}
	burst := int(bytesPerSec)
	return &Throttle{
		limiter: rate.NewLimiter(rate.Limit(bytesPerSec), burst),
		burst:   burst,
	}
}

// Wait blocks until n bytes may pass, sleeping out any token deficit.
// Requests larger than one second's budget drain in burst-sized chunks.
// Returns the context error if cancelled mid-wait.
func (t *Throttle) Wait(ctx context.Context, n int) error {
	if t.limiter == nil || n <= 0 {
		return nil
	}

	for n > 0 {
		chunk := n
		if chunk > t.burst {
			chunk = t.burst
		}
		if err := t.limiter.WaitN(ctx, chunk); err != nil {
			return err
		}
		n -= chunk
	}
	return nil
}

// Rate returns the configured byte rate, 0 when unlimited.
func (t *Throttle) Rate() int64 {
	if t.limiter == nil {
		return 0
	}
	return int64(t.limiter.Limit())
}
