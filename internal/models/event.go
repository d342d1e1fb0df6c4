package models

import "time"

// Event is a row of the events table. Payload holds the raw JSON document.
type Event struct {
	GlobalPosition int64     `db:"global_position"`
	EventID        string    `db:"event_id"`
	StreamID       string    `db:"stream_id"`
	TenantID       string    `db:"tenant_id"`
	AggregateType  string    `db:"aggregate_type"`
	AggregateID    string    `db:"aggregate_id"`
	Version        int64     `db:"version"`
	EventType      string    `db:"event_type"`
	Payload        []byte    `db:"payload"`
	ActorID        string    `db:"actor_id"`
	OccurredAt     time.Time `db:"occurred_at"`
}
