package session

import (
	"context"
	"time"
)

// DefaultSweepInterval is used by StartSweeper when interval is not positive.
const DefaultSweepInterval = 5 * time.Minute

// StartSweeper runs a background goroutine that periodically expires idle
// sessions until ctx is done.
func StartSweeper(ctx context.Context, r *Registry, ttl, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		r.logger.Info("Session sweeper started", "interval", interval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				if n := r.Sweep(ttl); n > 0 {
					r.logger.Info("Session sweeper expired sessions", "count", n, "remaining", r.Len())
				}
			case <-ctx.Done():
				r.logger.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
