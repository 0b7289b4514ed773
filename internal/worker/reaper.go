package worker

import (
	"context"
	"time"

	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/notify"
	"studio/internal/observability"
)

// ReapMessage is recorded on generations failed by the reaper.
const ReapMessage = "generation timed out before completion"

// Reaper fails generations stuck in pending or processing, covering workers
// that crashed mid-job or never picked a row up.
type Reaper struct {
	generations domain.GenerationRepository
	events      notify.Publisher
	metrics     *observability.Metrics
	logger      infra.Logger
	interval    time.Duration
	maxAge      time.Duration
	now         func() time.Time
}

func NewReaper(generations domain.GenerationRepository, events notify.Publisher, metrics *observability.Metrics, logger infra.Logger, interval, maxAge time.Duration) *Reaper {
	if events == nil {
		events = notify.Nop{}
	}
	return &Reaper{
		generations: generations,
		events:      events,
		metrics:     metrics,
		logger:      infra.Component(logger, "reaper"),
		interval:    interval,
		maxAge:      maxAge,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run reaps once per interval until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.ReapOnce(ctx); err != nil && ctx.Err() == nil {
				r.logger.Error().Err(err).Msg("reap stale generations failed")
			}
		}
	}
}

// ReapOnce fails every unfinished generation not updated within maxAge.
func (r *Reaper) ReapOnce(ctx context.Context) (int, error) {
	now := r.now()
	reaped, err := r.generations.ReapStale(ctx, now.Add(-r.maxAge), ReapMessage)
	if err != nil {
		return 0, err
	}
	for _, g := range reaped {
		r.logger.Warn().Str("generation_id", g.ID).Msg("generation reaped")
		ev := notify.Event{
			GenerationID: g.ID,
			OwnerID:      g.OwnerID,
			Status:       domain.StatusError,
			Error:        ReapMessage,
			At:           now,
		}
		if err := r.events.Publish(ctx, ev); err != nil {
			r.logger.Warn().Err(err).Str("generation_id", g.ID).Msg("publish status event failed")
		}
	}
	r.metrics.Reaped(ctx, len(reaped))
	return len(reaped), nil
}
