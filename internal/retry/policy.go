// Package retry decides whether and when a failed download attempt runs again.
package retry

import (
	"math/rand"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/domain/consts"
)

// Policy computes retry decisions and backoff delays.
//
// Pure and stateless, safe for concurrent use without locking.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	DelayCap    time.Duration
	Jitter      time.Duration
}

// DefaultPolicy returns the stock backoff policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: consts.DefaultMaxRetries,
		BaseDelay:   consts.DefaultRetryBaseDelay,
		DelayCap:    consts.DefaultRetryDelayCap,
		Jitter:      consts.DefaultRetryJitter,
	}
}

// ShouldRetry reports whether the attempt that just failed (1-based) may run
// again. Only transient network failures are retryable.
func (p Policy) ShouldRetry(attempt int, kind consts.ErrorKind) bool {
	if attempt >= p.MaxAttempts {
		return false
	}
	return kind == consts.ErrKindTransient
}

// NextDelay returns how long to wait after the given failed attempt before
// the next one becomes eligible: base doubled per attempt, clamped to the
// cap, plus uniform random jitter.
func (p Policy) NextDelay(attempt int) time.Duration {
	d := p.BaseDelay
	for i := 1; i < attempt; i++ {
		if d >= p.DelayCap {
			break
		}
		d *= 2
	}
	if d > p.DelayCap {
		d = p.DelayCap
	}

	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return d
}
