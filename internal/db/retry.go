package db

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"
)

// Backoff returns the wait before retry number attempt (0-based): 500ms, 1s, 2s, ... capped at 10s.
func Backoff(attempt int) time.Duration {
	base := 500 * time.Millisecond
	capDelay := 10 * time.Second

	multiple := math.Pow(2, float64(attempt))
	delay := time.Duration(float64(base) * multiple)

	if delay > capDelay {
		delay = capDelay
	}

	// small jitter (0–250ms) so replicas don't reconnect in lockstep
	delay += time.Duration(rand.Intn(250)) * time.Millisecond
	return delay
}

// Retry calls connect until it succeeds, attempts run out, or ctx ends. Databases in
// compose setups often come up after the api does.
func Retry(ctx context.Context, log *slog.Logger, what string, attempts int, connect func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = 1
	}

	var err error

	for attempt := 0; attempt < attempts; attempt++ {
		err = connect(ctx)
		if err == nil {
			return nil
		}

		if attempt == attempts-1 {
			break
		}

		wait := Backoff(attempt)
		log.WarnContext(ctx, "connect failed, retrying", "target", what, "attempt", attempt+1, "wait", wait, "err", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return err
}
