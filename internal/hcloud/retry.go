package hcloud

import (
	"context"
	"fmt"
	"time"
)

const maxBackoff = time.Minute

// retry runs fn until it succeeds, fails with an error that is not
// recoverable, or timeout elapses. Waits start at base and double.
func retry(ctx context.Context, opName string, timeout, base time.Duration, fn func() error) error {
	deadline := time.Now().Add(timeout)
	sleep := base
	if sleep <= 0 {
		sleep = 100 * time.Millisecond
	}

	for attempt := 1; ; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !isRecoverable(err) {
			return err
		}
		if time.Now().Add(sleep).After(deadline) {
			return fmt.Errorf("%s still failing after %d attempts: %w", opName, attempt, err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(sleep):
		}

		sleep = min(sleep*2, maxBackoff)
	}
}
