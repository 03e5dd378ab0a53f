package store

import (
	"context"
	"fmt"

	"github.com/kortix-auth-service/internal/model"
)

// RecordWebhookEvent inserts the event id; a conflict means the event was
// already processed and the delivery is a retry.
func (p *Postgres) RecordWebhookEvent(ctx context.Context, event *model.WebhookEvent) (bool, error) {
	tag, err := p.pool.Exec(ctx, `
		INSERT INTO webhook_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, event.EventID, event.EventType)
	if err != nil {
		return false, fmt.Errorf("insert webhook_event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
