package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"studio/internal/domain"
	"studio/internal/notify"
)

const (
	eventsHeartbeat = 15 * time.Second
	// eventsRecheck re-reads the row so streams finish even when no event bus
	// is configured or a message was lost.
	eventsRecheck = 5 * time.Second
)

// GenerationEvents streams status changes of one generation as server-sent
// events. The current row is sent first; the stream ends after the first
// terminal status.
func (a *App) GenerationEvents(w http.ResponseWriter, r *http.Request) {
	g, ok := a.loadOwned(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		a.error(w, http.StatusInternalServerError, "internal_error", "streaming unsupported")
		return
	}
	ctx := r.Context()

	sub, err := a.Events.Subscribe(ctx, g.ID)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	defer sub.Close()

	// Re-read after subscribing so a transition between the ownership check
	// and the subscription is not lost.
	if fresh, err := a.Generations.GetByID(ctx, g.ID); err == nil {
		g = fresh
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	last := g.Status
	if err := writeEvent(w, notify.EventFor(g)); err != nil {
		return
	}
	flusher.Flush()
	if last.Terminal() {
		return
	}

	heartbeat := time.NewTicker(eventsHeartbeat)
	defer heartbeat.Stop()
	recheck := time.NewTicker(eventsRecheck)
	defer recheck.Stop()

	emit := func(ev notify.Event) (done bool) {
		if statusRank(ev.Status) <= statusRank(last) {
			return false
		}
		if err := writeEvent(w, ev); err != nil {
			return true
		}
		flusher.Flush()
		last = ev.Status
		return ev.Terminal()
	}

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if emit(ev) {
				return
			}
		case <-recheck.C:
			current, err := a.Generations.GetByID(ctx, g.ID)
			if err != nil {
				continue
			}
			if emit(notify.EventFor(current)) {
				return
			}
		case <-heartbeat.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func writeEvent(w http.ResponseWriter, ev notify.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: status\ndata: %s\n\n", payload)
	return err
}

func statusRank(s domain.GenerationStatus) int {
	switch s {
	case domain.StatusPending:
		return 0
	case domain.StatusProcessing:
		return 1
	case domain.StatusSuccess, domain.StatusError:
		return 2
	}
	return -1
}
