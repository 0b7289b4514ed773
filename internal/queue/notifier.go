// Package queue wakes workers when generations are enqueued. The generations
// table is the queue itself; notifications only shorten the claim latency.
package queue

import (
	"context"
	"fmt"

	"studio/internal/infra"
	"studio/internal/sqlinline"
)

// Notifier publishes generation ids on the generation_jobs channel.
type Notifier struct {
	sql infra.SQLExecutor
}

func NewNotifier(sql infra.SQLExecutor) *Notifier {
	return &Notifier{sql: sql}
}

// Notify sends a pg_notify hint for id. A lost hint only delays the job until
// the next worker tick.
func (n *Notifier) Notify(ctx context.Context, generationID string) error {
	if _, err := n.sql.Exec(ctx, sqlinline.QNotifyGenerationJob, generationID); err != nil {
		return fmt.Errorf("notify generation %s: %w", generationID, err)
	}
	return nil
}
