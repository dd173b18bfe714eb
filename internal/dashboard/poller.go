package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/kirillkom/intellidocs/internal/core/domain"
)

const DefaultPollInterval = 5 * time.Second

type HealthStatus string

const (
	HealthOK    HealthStatus = "OK"
	HealthError HealthStatus = "ERROR"
)

type StatsUpdate struct {
	Status HealthStatus
	Stats  *domain.DashboardStats
	Err    error
	At     time.Time
}

// Poller re-fetches dashboard stats on a fixed interval until its context ends. A failed
// fetch flips Status to ERROR and keeps the last good stats.
type Poller struct {
	source   DataSource
	interval time.Duration
	onUpdate func(StatsUpdate)
	logger   *slog.Logger
}

func NewPoller(source DataSource, interval time.Duration, onUpdate func(StatsUpdate), logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{source: source, interval: interval, onUpdate: onUpdate, logger: logger}
}

// Run polls immediately and then every interval. It returns ctx.Err() when stopped.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	var last *domain.DashboardStats
	for {
		last = p.poll(ctx, last)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func (p *Poller) poll(ctx context.Context, last *domain.DashboardStats) *domain.DashboardStats {
	stats, err := p.source.Stats(ctx)
	update := StatsUpdate{Status: HealthOK, Stats: stats, At: time.Now()}
	if err != nil {
		if ctx.Err() != nil {
			return last
		}
		p.logger.Warn("dashboard_stats_poll_failed", "error", err)
		update = StatsUpdate{Status: HealthError, Stats: last, Err: err, At: time.Now()}
	} else {
		last = stats
	}
	if p.onUpdate != nil {
		p.onUpdate(update)
	}
	return last
}
