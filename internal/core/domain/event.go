package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AggregateType names the kind of aggregate that owns a stream.
type AggregateType string

const (
	AggregateJournal     AggregateType = "journal"
	AggregateAccount     AggregateType = "account"
	AggregateAccountCode AggregateType = "account_code"
)

// EventType is the discriminator of an event payload.
type EventType string

const (
	EventAccountCreated          EventType = "AccountCreated"
	EventAccountRenamed          EventType = "AccountRenamed"
	EventAccountDebited          EventType = "AccountDebited"
	EventAccountCredited         EventType = "AccountCredited"
	EventAccountDeactivated      EventType = "AccountDeactivated"
	EventAccountChildAdded       EventType = "AccountChildAdded"
	EventAccountChildRemoved     EventType = "AccountChildRemoved"
	EventAccountCodeReserved     EventType = "AccountCodeReserved"
	EventJournalCreated          EventType = "JournalCreated"
	EventJournalLineAdded        EventType = "JournalLineAdded"
	EventJournalPosted           EventType = "JournalPosted"
	EventJournalCancelled        EventType = "JournalCancelled"
	EventJournalReversed         EventType = "JournalReversed"
	EventReversingJournalCreated EventType = "ReversingJournalCreated"
)

// Event is the persisted envelope of a single domain fact.
// Version is the position within the aggregate stream (starting at 1);
// GlobalPosition is assigned by the event store on append.
type Event struct {
	EventID        string          `json:"eventID"`
	TenantID       string          `json:"tenantID"`
	AggregateType  AggregateType   `json:"aggregateType"`
	AggregateID    string          `json:"aggregateID"`
	Version        int64           `json:"version"`
	Type           EventType       `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	ActorID        string          `json:"actorID"`
	OccurredAt     time.Time       `json:"occurredAt"`
	GlobalPosition int64           `json:"globalPosition"`
}

// StreamID returns the tenant-scoped stream the event belongs to.
func (e Event) StreamID() string {
	return StreamID(e.TenantID, e.AggregateType, e.AggregateID)
}

// Metadata describes who caused a change and when.
type Metadata struct {
	ActorID    string
	OccurredAt time.Time
}

// StreamID builds the stream key tenant/{tenantID}/{aggregateType}/{aggregateID}.
func StreamID(tenantID string, aggregateType AggregateType, aggregateID string) string {
	return fmt.Sprintf("tenant/%s/%s/%s", tenantID, aggregateType, aggregateID)
}

// ParseStreamID splits a stream key back into its parts.
func ParseStreamID(streamID string) (tenantID string, aggregateType AggregateType, aggregateID string, err error) {
	parts := strings.SplitN(streamID, "/", 4)
	if len(parts) != 4 || parts[0] != "tenant" || parts[1] == "" || parts[2] == "" || parts[3] == "" {
		return "", "", "", fmt.Errorf("malformed stream id %q", streamID)
	}
	return parts[1], AggregateType(parts[2]), parts[3], nil
}

// NewEvent marshals payload into a new envelope.
func NewEvent(tenantID string, aggregateType AggregateType, aggregateID string, version int64, eventType EventType, payload any, meta Metadata) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	occurredAt := meta.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	return Event{
		EventID:       uuid.NewString(),
		TenantID:      tenantID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		Version:       version,
		Type:          eventType,
		Payload:       raw,
		ActorID:       meta.ActorID,
		OccurredAt:    occurredAt,
	}, nil
}

// DecodePayload unmarshals the payload into its concrete type.
// An event type without a payload type here is an error, never ignored.
func DecodePayload(evt Event) (any, error) {
	var payload any
	switch evt.Type {
	case EventAccountCreated:
		payload = &AccountCreated{}
	case EventAccountRenamed:
		payload = &AccountRenamed{}
	case EventAccountDebited:
		payload = &AccountDebited{}
	case EventAccountCredited:
		payload = &AccountCredited{}
	case EventAccountDeactivated:
		payload = &AccountDeactivated{}
	case EventAccountChildAdded:
		payload = &AccountChildAdded{}
	case EventAccountChildRemoved:
		payload = &AccountChildRemoved{}
	case EventAccountCodeReserved:
		payload = &AccountCodeReserved{}
	case EventJournalCreated:
		payload = &JournalCreated{}
	case EventJournalLineAdded:
		payload = &JournalLineAdded{}
	case EventJournalPosted:
		payload = &JournalPosted{}
	case EventJournalCancelled:
		payload = &JournalCancelled{}
	case EventJournalReversed:
		payload = &JournalReversed{}
	case EventReversingJournalCreated:
		payload = &ReversingJournalCreated{}
	default:
		return nil, Errorf(ErrUnknownEvent, "unknown event type %q on stream %s", evt.Type, evt.StreamID())
	}
	if len(evt.Payload) > 0 {
		if err := json.Unmarshal(evt.Payload, payload); err != nil {
			return nil, fmt.Errorf("failed to decode %s payload (event %s): %w", evt.Type, evt.EventID, err)
		}
	}
	return payload, nil
}

// ValidateAppend checks that events belong to streamID and continue it from expectedVersion.
// Event stores call it before writing anything.
func ValidateAppend(streamID string, expectedVersion int64, events []Event) error {
	tenantID, aggregateType, aggregateID, err := ParseStreamID(streamID)
	if err != nil {
		return err
	}
	if expectedVersion < 0 {
		return fmt.Errorf("negative expected version %d for stream %s", expectedVersion, streamID)
	}
	for i, evt := range events {
		if evt.TenantID != tenantID {
			return Errorf(ErrTenantMismatch, "event %s has tenant %q, stream %s belongs to %q", evt.EventID, evt.TenantID, streamID, tenantID)
		}
		if evt.AggregateType != aggregateType || evt.AggregateID != aggregateID {
			return fmt.Errorf("event %s targets %s/%s, not stream %s", evt.EventID, evt.AggregateType, evt.AggregateID, streamID)
		}
		if evt.Version != expectedVersion+int64(i)+1 {
			return fmt.Errorf("event %s has version %d, expected %d on stream %s", evt.EventID, evt.Version, expectedVersion+int64(i)+1, streamID)
		}
	}
	return nil
}
