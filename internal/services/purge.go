package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/nextgendevs/ng-backend/internal/metrics"
)

// Purger deletes accounts whose deactivation is older than the retention window
type Purger struct {
	users     UserStore
	interval  time.Duration
	retention time.Duration
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

func NewPurger(users UserStore, interval, retention time.Duration, m *metrics.Metrics, logger *slog.Logger) *Purger {
	return &Purger{
		users:     users,
		interval:  interval,
		retention: retention,
		metrics:   m,
		logger:    logger,
		now:       time.Now,
	}
}

// PurgeOnce runs a single sweep and returns the number of deleted accounts
func (p *Purger) PurgeOnce(ctx context.Context) (int64, error) {
	cutoff := p.now().UTC().Add(-p.retention)
	n, err := p.users.DeleteDeactivatedBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	p.metrics.AccountsPurged.Add(float64(n))
	if n > 0 {
		p.logger.Info("purged deactivated accounts", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Run sweeps once immediately and then on every tick until ctx is done
func (p *Purger) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.PurgeOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("account purge failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
