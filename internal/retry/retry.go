package retry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Policy controls how external calls are retried. A single policy is built at
// startup and injected into every client that talks to a remote service.
type Policy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// Retryable decides whether the error is worth another attempt. When nil
	// every error is retried until the attempt budget runs out.
	Retryable func(error) bool
}

// Default mirrors the budgets used against the hackathon APIs.
func Default() Policy {
	return Policy{
		MaxAttempts:    5,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     90 * time.Second,
		Retryable:      Transient,
	}
}

// StatusError reports a non-success HTTP status from an external call.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, body)
}

// Transient reports whether the error is a rate limit, server fault, or a
// network-level failure. Client errors other than 429 are not retried.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == 429 || se.Code >= 500
	}
	return true
}

// Do runs op until it succeeds, the attempt budget is exhausted, the error is
// deemed permanent, or the context is cancelled. The backoff doubles after
// every failed attempt up to MaxBackoff.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialBackoff

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if p.Retryable != nil && !p.Retryable(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if p.MaxBackoff > 0 && delay > p.MaxBackoff {
			delay = p.MaxBackoff
		}
	}
	return lastErr
}
