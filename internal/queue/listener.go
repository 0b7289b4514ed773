package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/lib/pq"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// Listener turns LISTEN notifications into coalesced wake-ups.
type Listener struct {
	listener *pq.Listener
	logger   infra.Logger
	wake     chan struct{}
}

// NewListener opens a dedicated LISTEN connection on the generation_jobs
// channel.
func NewListener(databaseURL string, logger infra.Logger) (*Listener, error) {
	log := infra.Component(logger, "queue")
	pl := pq.NewListener(databaseURL, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			log.Warn().Err(err).Int("event", int(ev)).Msg("listener connection event")
		}
	})
	if err := pl.Listen(sqlinline.GenerationJobsChannel); err != nil {
		_ = pl.Close()
		return nil, fmt.Errorf("listen %s: %w", sqlinline.GenerationJobsChannel, err)
	}
	return &Listener{listener: pl, logger: log, wake: make(chan struct{}, 1)}, nil
}

// Wake delivers at most one pending wake-up regardless of how many
// notifications arrived.
func (l *Listener) Wake() <-chan struct{} {
	return l.wake
}

// Run forwards notifications until ctx is done, then closes the connection.
func (l *Listener) Run(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer l.listener.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case n := <-l.listener.Notify:
			// A nil notification follows a reconnect; anything may have been
			// missed, so wake anyway.
			if n != nil {
				l.logger.Debug().Str("generation_id", n.Extra).Msg("generation enqueued")
			}
			signal(l.wake)
		case <-ticker.C:
			if err := l.listener.Ping(); err != nil {
				l.logger.Warn().Err(err).Msg("listener ping failed")
			}
		}
	}
}

func signal(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}
