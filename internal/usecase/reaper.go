package usecase

import (
	"context"
	"log/slog"
	"time"
)

type idleEvictor interface {
	EvictIdle(ctx context.Context, ttl time.Duration) []string
}

type snapshotMirror interface {
	DeleteByID(ctx context.Context, id string) error
}

// Reaper - periodically evicts games nobody has touched or watched for a while.
type Reaper struct {
	logger   *slog.Logger
	registry idleEvictor
	mirror   snapshotMirror
	ttl      time.Duration
	interval time.Duration
}

// NewReaper - mirror may be nil when snapshots are not mirrored.
func NewReaper(logger *slog.Logger, registry idleEvictor, mirror snapshotMirror, ttl, interval time.Duration) *Reaper {
	return &Reaper{
		logger:   logger.With("component", "reaper"),
		registry: registry,
		mirror:   mirror,
		ttl:      ttl,
		interval: interval,
	}
}

// Run - blocks until ctx is done.
func (that *Reaper) Run(ctx context.Context) error {
	if that.ttl <= 0 || that.interval <= 0 {
		that.logger.Info("idle eviction disabled")
		<-ctx.Done()

		return nil
	}

	ticker := time.NewTicker(that.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			that.Sweep(ctx)
		}
	}
}

// Sweep - one eviction pass. Returns the evicted game ids.
func (that *Reaper) Sweep(ctx context.Context) []string {
	log := that.logger.With("method", "Sweep")

	evicted := that.registry.EvictIdle(ctx, that.ttl)
	if len(evicted) == 0 {
		return nil
	}

	if that.mirror != nil {
		for _, id := range evicted {
			if err := that.mirror.DeleteByID(ctx, id); err != nil {
				log.Warn("could not delete mirrored snapshot", "game_id", id, "error", err)
			}
		}
	}

	log.Info("evicted idle games", "count", len(evicted))

	return evicted
}
