package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"studio/internal/infra"
)

// RedisBus publishes events on a per-generation pub/sub channel.
type RedisBus struct {
	rdb    *goredis.Client
	logger infra.Logger
}

// NewRedisBus connects to addr and verifies the connection with a ping.
func NewRedisBus(ctx context.Context, addr string, logger infra.Logger) (*RedisBus, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBus{rdb: rdb, logger: infra.Component(logger, "notify")}, nil
}

func (b *RedisBus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, channelFor(ev.GenerationID), raw).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, generationID string) (Subscription, error) {
	sub := b.rdb.Subscribe(ctx, channelFor(generationID))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	out := make(chan Event, 8)
	go func() {
		defer close(out)
		for m := range sub.Channel() {
			var ev Event
			if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
				b.logger.Warn().Err(err).Str("channel", m.Channel).Msg("bad event payload")
				continue
			}
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return &redisSubscription{sub: sub, events: out}, nil
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}

type redisSubscription struct {
	sub    *goredis.PubSub
	events chan Event
}

func (s *redisSubscription) Events() <-chan Event { return s.events }

// Close ends the subscription; the events channel closes once the reader
// goroutine drains.
func (s *redisSubscription) Close() error {
	return s.sub.Close()
}

var (
	_ Publisher  = (*RedisBus)(nil)
	_ Subscriber = (*RedisBus)(nil)
	_ Publisher  = Nop{}
	_ Subscriber = Nop{}
)
