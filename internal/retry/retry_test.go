package retry

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDoStopsAfterMaxAttempts(t *testing.T) {
	policy := Policy{MaxAttempts: 3, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	calls := 0
	failure := errors.New("boom")
	err := policy.Do(context.Background(), func() error {
		calls++
		return failure
	})
	if !errors.Is(err, failure) {
		t.Fatalf("expected final error %v, got %v", failure, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestDoReturnsFirstSuccess(t *testing.T) {
	policy := Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond}

	calls := 0
	err := policy.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected 2 attempts, got %d", calls)
	}
}

func TestDoHonorsRetryablePredicate(t *testing.T) {
	policy := Policy{MaxAttempts: 5, InitialBackoff: time.Millisecond, Retryable: Transient}

	calls := 0
	permanent := &StatusError{Code: 400, Body: "bad request"}
	err := policy.Do(context.Background(), func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, error(permanent)) {
		t.Fatalf("expected %v, got %v", permanent, err)
	}
	if calls != 1 {
		t.Fatalf("permanent error should not be retried, got %d attempts", calls)
	}
}

func TestTransientClassification(t *testing.T) {
	testCases := []struct {
		name   string
		err    error
		expect bool
	}{
		{"rate limit", &StatusError{Code: 429}, true},
		{"server error", &StatusError{Code: 503}, true},
		{"client error", &StatusError{Code: 404}, false},
		{"network error", errors.New("connection reset"), true},
		{"nil", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Transient(tc.err); got != tc.expect {
				t.Fatalf("expected %v got %v", tc.expect, got)
			}
		})
	}
}

func TestDoRespectsContextCancellation(t *testing.T) {
	policy := Policy{MaxAttempts: 10, InitialBackoff: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	err := policy.Do(ctx, func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt before cancellation, got %d", calls)
	}
}
