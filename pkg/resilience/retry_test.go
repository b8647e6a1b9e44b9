package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:  attempts,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "flaky-connect", fastRetryConfig(5), func() error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry = %v, want nil after recovery", err)
	}
	if calls != 3 {
		t.Errorf("fn ran %d times, want 3", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	down := errors.New("backend down")
	calls := 0
	err := Retry(context.Background(), "dead-connect", fastRetryConfig(3), func() error {
		calls++
		return down
	})
	if !errors.Is(err, down) {
		t.Fatalf("err = %v, want wrapped final attempt error", err)
	}
	if calls != 3 {
		t.Errorf("fn ran %d times, want exactly MaxAttempts", calls)
	}
}

func TestRetryFirstAttemptSuccess(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), "healthy-connect", RetryConfig{}, func() error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Errorf("err = %v, calls = %d; want immediate success", err, calls)
	}
}

func TestRetryAbortsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, "cancelled-connect", RetryConfig{MaxAttempts: 10, InitialDelay: 50 * time.Millisecond}, func() error {
		calls++
		cancel()
		return errors.New("still down")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("fn ran %d times after cancel, want 1", calls)
	}
}
