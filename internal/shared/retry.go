package shared

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// RetryOnConflict calls fn until it succeeds, fails with an error that is not a
// SQLite conflict, or attempts run out. The delay doubles after every conflict:
// base, 2*base, 4*base...
func RetryOnConflict(ctx context.Context, op string, attempts int, base time.Duration, fn func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !IsSQLiteConflictError(err) || i == attempts-1 {
			break
		}

		delay := base * time.Duration(1<<i)
		slog.Debug("SQLite conflict, retrying",
			"op", op,
			"attempt", i+1,
			"delay", delay)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-timer.C:
		}
	}

	if IsSQLiteConflictError(err) {
		return fmt.Errorf("%s after %d attempts: %w", op, attempts, err)
	}
	return err
}
