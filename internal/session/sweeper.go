package session

import (
	"context"
	"log/slog"
	"time"
)

// StartSweeper runs a background goroutine that periodically deletes
// expired sessions. It stops when ctx is cancelled. Expired rows are also
// filtered out of reads lazily, so the sweeper only reclaims storage.
func StartSweeper(ctx context.Context, store Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", interval)

		for {
			select {
			case <-ticker.C:
				deleted, err := store.SweepExpired(ctx)
				if err != nil {
					slog.Error("Session sweep failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("Swept expired sessions", "count", deleted)
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
