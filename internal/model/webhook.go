package model

import "time"

// WebhookEvent records a processed provider event for idempotency. A second
// delivery of the same event id is acknowledged without reprocessing.
type WebhookEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	ReceivedAt time.Time `json:"received_at"`
}
