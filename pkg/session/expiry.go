package session

import (
	"context"
	"log/slog"
	"time"
)

// DefaultCleanupInterval is how often ContinuouslyDeleteExpired sweeps when
// no period is given.
const DefaultCleanupInterval = 5 * time.Minute

// ContinuouslyDeleteExpired purges expired records every period until ctx is
// done. Failures are logged and the loop carries on.
func ContinuouslyDeleteExpired(ctx context.Context, store Expirer, period time.Duration, log *slog.Logger) {
	if period <= 0 {
		period = DefaultCleanupInterval
	}

	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := store.DeleteExpired(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				log.Warn("failed to delete expired sessions", "error", err)
				continue
			}
			if n > 0 {
				log.Debug("deleted expired sessions", "count", n)
			}
		}
	}
}
