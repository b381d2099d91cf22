// Package ratelimit enforces per-domain concurrency caps and minimum request
// spacing for download workers.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// domainState tracks one domain's in-flight slots and request spacing.
// Guarded independently per domain so a slow domain never blocks workers
// operating on other domains.
type domainState struct {
	slots chan struct{}

	mu            sync.Mutex
	nextAllowedAt time.Time
}

// Limiter grants per-domain permits. Each domain gets a concurrency
// semaphore and a minimum inter-request interval tracked as a "next allowed
// time" timestamp.
type Limiter struct {
	concurrency int
	interval    time.Duration

	mu      sync.Mutex
	domains map[string]*domainState
}

// New returns a limiter allowing at most concurrency in-flight requests per
// domain, spaced at least interval apart. A concurrency below 1 is treated
// as 1; a negative interval as 0.
func New(concurrency int, interval time.Duration) *Limiter {
	if concurrency < 1 {
		concurrency = 1
	}
	if interval < 0 {
		interval = 0
	}
	return &Limiter{
		concurrency: concurrency,
		interval:    interval,
		domains:     make(map[string]*domainState),
	}
}

func (l *Limiter) state(domain string) *domainState {
	l.mu.Lock()
	defer l.mu.Unlock()

	st, ok := l.domains[domain]
	if !ok {
		st = &domainState{slots: make(chan struct{}, l.concurrency)}
		l.domains[domain] = st
	}
	return st
}

// Acquire blocks until the domain grants an in-flight slot and the minimum
// interval since the previous grant has elapsed. The caller must Release the
// domain when its request finishes. Returns the context error if cancelled
// while waiting; no slot is held in that case.
func (l *Limiter) Acquire(ctx context.Context, domain string) error {
	st := l.state(domain)

	select {
	case st.slots <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := l.waitTurn(ctx, st); err != nil {
		<-st.slots
		return err
	}
	return nil
}

// TryAcquire takes an in-flight slot for the domain if one is instantly
// available. The caller must still call WaitTurn before issuing the request,
// and Release when done.
func (l *Limiter) TryAcquire(domain string) bool {
	st := l.state(domain)
	select {
	case st.slots <- struct{}{}:
		return true
	default:
		return false
	}
}

// WaitTurn performs the minimum-interval wait for a domain whose slot the
// caller already holds. The wait is computed once and slept once, never
// polled. The slot is kept regardless of outcome.
func (l *Limiter) WaitTurn(ctx context.Context, domain string) error {
	return l.waitTurn(ctx, l.state(domain))
}

func (l *Limiter) waitTurn(ctx context.Context, st *domainState) error {
	if l.interval == 0 {
		return nil
	}

	// Reserve the next send window under the domain lock, then sleep out
	// the remainder without holding it.
	st.mu.Lock()
	now := time.Now()
	wait := time.Until(st.nextAllowedAt)
	if wait < 0 {
		wait = 0
	}
	st.nextAllowedAt = now.Add(wait + l.interval)
	st.mu.Unlock()

	if wait == 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees one of the domain's in-flight slots.
func (l *Limiter) Release(domain string) {
	st := l.state(domain)
	select {
	case <-st.slots:
	default:
		// Release without a matching acquire is a programming error,
		// but must not block the worker.
	}
}

// Active returns how many requests are currently in flight for the domain.
func (l *Limiter) Active(domain string) int {
	return len(l.state(domain).slots)
}
