package throttle_test

import (
	"context"
	"testing"
	"time"

	"github.com/primoscope/CoomerDL-sub000/internal/throttle"
)

func TestWaitEnforcesRate(t *testing.T) {
	t.Parallel()

	// 100 KB/s with a full initial bucket: moving 130 KB must take at
	// least ~300ms for the 30 KB beyond the first second's budget.
	const bytesPerSec = 100_000
	th := throttle.New(bytesPerSec)

	start := time.Now()
	moved := 0
	for moved < 130_000 {
		chunk := 16_384
		if err := th.Wait(context.Background(), chunk); err != nil {
			t.Fatalf("expected wait to succeed, got: %v", err)
		}
		moved += chunk
	}
	elapsed := time.Since(start)

	if elapsed < 250*time.Millisecond {
		t.Fatalf("expected >= 250ms for 130KB at 100KB/s, took %v", elapsed)
	}
}

func TestZeroRateIsNoOp(t *testing.T) {
	t.Parallel()

	th := throttle.New(0)

	start := time.Now()
	for i := 0; i < 1000; i++ {
		if err := th.Wait(context.Background(), 1_000_000); err != nil {
			t.Fatalf("expected unlimited wait to succeed, got: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Fatalf("expected unlimited throttle to add negligible time, took %v", elapsed)
	}

	if got := th.Rate(); got != 0 {
		t.Fatalf("expected rate 0 for unlimited throttle, got %d", got)
	}
}

func TestOversizedRequestChunks(t *testing.T) {
	t.Parallel()

	// A single request several times the burst must still pass, spaced
	// out rather than rejected.
	const bytesPerSec = 50_000
	th := throttle.New(bytesPerSec)

	start := time.Now()
	if err := th.Wait(context.Background(), 3*bytesPerSec); err != nil {
		t.Fatalf("expected oversized wait to succeed, got: %v", err)
	}
	elapsed := time.Since(start)

	// First second's worth is free from the full bucket; the remaining
	// two seconds' worth must be slept out.
	if elapsed < 1500*time.Millisecond {
		t.Fatalf("expected >= 1.5s for 3x burst, took %v", elapsed)
	}
}

func TestWaitHonorsCancellation(t *testing.T) {
	t.Parallel()

	th := throttle.New(1_000) // tiny rate so a big request must sleep

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- th.Wait(ctx, 50_000)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatalf("expected cancelled wait to return an error")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("expected cancelled wait to return promptly")
	}
}
