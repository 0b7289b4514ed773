// Package notify carries generation status changes between the worker and
// API processes.
package notify

import (
	"context"
	"time"

	"studio/internal/domain"
)

// Event is one observed status change of a generation.
type Event struct {
	GenerationID string                  `json:"generation_id"`
	OwnerID      string                  `json:"user_id"`
	Status       domain.GenerationStatus `json:"status"`
	ResultURLs   []string                `json:"result_urls,omitempty"`
	Error        string                  `json:"error,omitempty"`
	At           time.Time               `json:"at"`
}

// Terminal reports whether the event ends the generation.
func (e Event) Terminal() bool {
	return e.Status.Terminal()
}

// EventFor snapshots g as an event.
func EventFor(g *domain.Generation) Event {
	return Event{
		GenerationID: g.ID,
		OwnerID:      g.OwnerID,
		Status:       g.Status,
		ResultURLs:   g.ResultURLs,
		Error:        g.Failure(),
		At:           g.UpdatedAt,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Subscription streams events for one generation until closed.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

type Subscriber interface {
	Subscribe(ctx context.Context, generationID string) (Subscription, error)
}

// Nop drops every event and hands out subscriptions that never fire. It is
// used when no Redis address is configured; readers then rely on polling.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Subscribe(context.Context, string) (Subscription, error) {
	return nopSubscription{}, nil
}

type nopSubscription struct{}

func (nopSubscription) Events() <-chan Event { return nil }
func (nopSubscription) Close() error         { return nil }

func channelFor(generationID string) string {
	return "generation:" + generationID
}
