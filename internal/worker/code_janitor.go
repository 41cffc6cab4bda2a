package worker

import (
	"context"
	"log/slog"
	"time"
)

type expiredCodeDeleter interface {
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// CodeJanitor periodically deletes expired verification codes. Expired codes
// are already unusable; this only reclaims storage.
type CodeJanitor struct {
	store    expiredCodeDeleter
	interval time.Duration
}

func NewCodeJanitor(store expiredCodeDeleter, interval time.Duration) *CodeJanitor {
	return &CodeJanitor{store: store, interval: interval}
}

func (j *CodeJanitor) Run(ctx context.Context) {
	slog.Info("code janitor started", "interval", j.interval)
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("code janitor stopped")
			return
		case <-ticker.C:
			n, err := j.store.DeleteExpired(ctx, time.Now().UTC())
			if err != nil {
				slog.Error("code janitor sweep failed", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("expired verification codes removed", "count", n)
			}
		}
	}
}
