// Package scheduler runs periodic maintenance jobs with gocron.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// DefaultPruneInterval is how often the delivery log is trimmed.
const DefaultPruneInterval = time.Hour

// Pruneable is the part of the delivery store the pruner needs.
type Pruneable interface {
	PruneBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// PrunerConfig holds the pruner configuration.
type PrunerConfig struct {
	Store     Pruneable
	Retention time.Duration
	Interval  time.Duration
	Logger    *slog.Logger
	// Now is used to compute the cutoff; defaults to time.Now.
	Now func() time.Time
}

// Pruner deletes delivery log entries older than the retention window.
type Pruner struct {
	cron gocron.Scheduler
	cfg  PrunerConfig
}

// NewPruner creates a Pruner. It does nothing until Start is called.
func NewPruner(cfg PrunerConfig) (*Pruner, error) {
	if cfg.Store == nil {
		return nil, errors.New("pruner requires a store")
	}
	if cfg.Retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", cfg.Retention)
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPruneInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}
	return &Pruner{cron: cron, cfg: cfg}, nil
}

// Start schedules the prune job, running it once immediately.
func (p *Pruner) Start(ctx context.Context) error {
	_, err := p.cron.NewJob(
		gocron.DurationJob(p.cfg.Interval),
		gocron.NewTask(func() { p.prune(ctx) }),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithName("delivery-log-retention"),
	)
	if err != nil {
		return fmt.Errorf("scheduling delivery log pruning: %w", err)
	}

	p.cron.Start()
	p.cfg.Logger.Info("delivery log pruner started",
		"retention", p.cfg.Retention.String(),
		"interval", p.cfg.Interval.String())
	return nil
}

// Stop shuts down the gocron scheduler.
func (p *Pruner) Stop() error {
	return p.cron.Shutdown()
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := p.cfg.Now().Add(-p.cfg.Retention).UTC()
	n, err := p.cfg.Store.PruneBefore(ctx, cutoff)
	if err != nil {
		p.cfg.Logger.Error("failed to prune delivery log", "cutoff", cutoff, "error", err)
		return
	}
	if n > 0 {
		p.cfg.Logger.Info("pruned delivery log", "removed", n, "cutoff", cutoff)
	}
}
