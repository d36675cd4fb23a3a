// Package retry runs a single outbound call under a bounded
// exponential-backoff policy.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrExhausted wraps the last error once every allowed attempt was used.
var ErrExhausted = errors.New("retry attempts exhausted")

// Outcome classifies the result of one attempt.
type Outcome int

const (
	// Success ends the loop with the attempt's result.
	Success Outcome = iota
	// Retryable schedules another attempt if the cap allows it.
	Retryable
	// Fatal ends the loop with the attempt's error.
	Fatal
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Retryable:
		return "retryable"
	case Fatal:
		return "fatal"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Classifier maps an attempt error to an Outcome. A nil error is always Success.
type Classifier func(err error) Outcome

// Policy bounds the loop. The zero value makes exactly one attempt.
type Policy struct {
	// MaxRetries is the number of attempts allowed after the first one.
	MaxRetries int
	// BaseDelay is the wait after the first failed attempt; it doubles after each.
	BaseDelay time.Duration
	// MaxDelay caps a single wait. Zero means uncapped.
	MaxDelay time.Duration

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is called before each backoff wait.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// Delay returns the wait that follows failed attempt n (0-based):
// BaseDelay * 2^n, capped by MaxDelay.
func (p Policy) Delay(n int) time.Duration {
	d := p.BaseDelay
	for i := 0; i < n; i++ {
		if (p.MaxDelay > 0 && d >= p.MaxDelay) || d > math.MaxInt64/2 {
			break
		}
		d *= 2
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	return d
}

// Do runs call until it succeeds, fails fatally, or MaxRetries+1 attempts
// have been made. Attempts run strictly one after another.
func Do[T any](ctx context.Context, p Policy, call func(ctx context.Context, attempt int) (T, error), classify Classifier) (T, error) {
	var zero T
	sleep := p.Sleep
	if sleep == nil {
		sleep = wait
	}
	maxRetries := max(p.MaxRetries, 0)

	for attempt := 0; ; attempt++ {
		res, err := call(ctx, attempt)
		if err == nil {
			return res, nil
		}

		switch classify(err) {
		case Success:
			return res, nil
		case Fatal:
			return zero, err
		}

		if attempt >= maxRetries {
			return zero, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, attempt+1, err)
		}

		delay := p.Delay(attempt)
		if p.OnRetry != nil {
			p.OnRetry(attempt, delay, err)
		}
		if serr := sleep(ctx, delay); serr != nil {
			return zero, fmt.Errorf("backoff interrupted after %d attempts: %w", attempt+1, serr)
		}
	}
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
