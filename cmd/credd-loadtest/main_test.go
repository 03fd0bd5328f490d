package main

import (
	"errors"
	"math/rand"
	"testing"
	"time"
)

func TestPercentile(t *testing.T) {
	samples := make([]time.Duration, 100)
	for i := range samples {
		samples[i] = time.Duration(i+1) * time.Millisecond
	}

	if got := percentile(samples, 50); got != 50*time.Millisecond {
		t.Fatalf("p50 = %s", got)
	}
	if got := percentile(samples, 0); got != time.Millisecond {
		t.Fatalf("p0 = %s", got)
	}
	if got := percentile(samples, 100); got != 100*time.Millisecond {
		t.Fatalf("p100 = %s", got)
	}
	if got := percentile(nil, 50); got != 0 {
		t.Fatalf("empty = %s", got)
	}
}

func TestRunPhaseCountsEveryOp(t *testing.T) {
	calls := 0
	errBoom := errors.New("boom")
	stats := runPhase(50, 1, 1, func(*rand.Rand) error {
		calls++
		if calls%5 == 0 {
			return errBoom
		}
		return nil
	})

	if stats.ops != 50 || calls != 50 {
		t.Fatalf("expected 50 ops, got stats=%d calls=%d", stats.ops, calls)
	}
	if stats.failures != 10 {
		t.Fatalf("expected 10 failures, got %d", stats.failures)
	}
}
