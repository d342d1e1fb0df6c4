package domain

import (
	"fmt"
)

// Aggregate is an event-sourced consistency boundary.
type Aggregate interface {
	AggregateID() string
	TenantID() string
	AggregateType() AggregateType
	// Version is the stream version including uncommitted changes.
	Version() int64
	// OriginalVersion is the stream version the aggregate was loaded at.
	OriginalVersion() int64
	Changes() []Event
	MarkCommitted()
	// Apply folds one event into the aggregate state.
	Apply(evt Event) error
}

// aggregateBase tracks versions and uncommitted events for the embedding aggregate.
type aggregateBase struct {
	version         int64
	originalVersion int64
	changes         []Event
}

func (b *aggregateBase) Version() int64 {
	return b.version
}

func (b *aggregateBase) OriginalVersion() int64 {
	return b.originalVersion
}

func (b *aggregateBase) Changes() []Event {
	return b.changes
}

func (b *aggregateBase) MarkCommitted() {
	b.originalVersion = b.version
	b.changes = nil
}

// SetVersion restores the version after loading a snapshot.
func (b *aggregateBase) SetVersion(version int64) {
	b.version = version
	b.originalVersion = version
}

// checkNext rejects events that do not directly follow the current version.
func (b *aggregateBase) checkNext(evt Event) error {
	if evt.Version != b.version+1 {
		return fmt.Errorf("event %s on %s has version %d, expected %d", evt.Type, evt.StreamID(), evt.Version, b.version+1)
	}
	return nil
}

// raise builds the next event for agg, folds it and records it as uncommitted.
// Folding the encoded event keeps live state and replayed state identical.
func raise(agg Aggregate, base *aggregateBase, eventType EventType, payload any, meta Metadata) error {
	evt, err := NewEvent(agg.TenantID(), agg.AggregateType(), agg.AggregateID(), base.version+1, eventType, payload, meta)
	if err != nil {
		return err
	}
	if err := agg.Apply(evt); err != nil {
		return err
	}
	base.changes = append(base.changes, evt)
	return nil
}

// Replay folds a persisted history into agg and marks it committed.
func Replay(agg Aggregate, events []Event) error {
	for _, evt := range events {
		if err := agg.Apply(evt); err != nil {
			return err
		}
	}
	agg.MarkCommitted()
	return nil
}
