package mapping

import (
	"encoding/json"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	"github.com/SscSPs/mma_ledger/internal/models"
)

// ToModelEvent converts a domain Event to an events row
func ToModelEvent(d domain.Event) models.Event {
	return models.Event{
		GlobalPosition: d.GlobalPosition,
		EventID:        d.EventID,
		StreamID:       d.StreamID(),
		TenantID:       d.TenantID,
		AggregateType:  string(d.AggregateType),
		AggregateID:    d.AggregateID,
		Version:        d.Version,
		EventType:      string(d.Type),
		Payload:        []byte(d.Payload),
		ActorID:        d.ActorID,
		OccurredAt:     d.OccurredAt.UTC(),
	}
}

// ToDomainEvent converts an events row to a domain Event
func ToDomainEvent(m models.Event) domain.Event {
	return domain.Event{
		EventID:        m.EventID,
		TenantID:       m.TenantID,
		AggregateType:  domain.AggregateType(m.AggregateType),
		AggregateID:    m.AggregateID,
		Version:        m.Version,
		Type:           domain.EventType(m.EventType),
		Payload:        json.RawMessage(m.Payload),
		ActorID:        m.ActorID,
		OccurredAt:     m.OccurredAt.UTC(),
		GlobalPosition: m.GlobalPosition,
	}
}
