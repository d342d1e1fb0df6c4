// Package memory provides in-process implementations of the ledger repositories for tests and local runs.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
)

// EventStore keeps every stream in memory. Appends are serialized by a single lock.
type EventStore struct {
	mu sync.RWMutex

	// Stream storage, events in version order
	streams map[string][]domain.Event

	// Global feed, index i holds GlobalPosition i+1
	all []domain.Event
}

// NewEventStore creates an empty event store.
func NewEventStore() *EventStore {
	return &EventStore{
		streams: make(map[string][]domain.Event),
		all:     make([]domain.Event, 0),
	}
}

var _ portsrepo.EventStoreFacade = (*EventStore)(nil)

func (s *EventStore) Append(ctx context.Context, streamID string, expectedVersion int64, events []domain.Event) ([]domain.Event, error) {
	return s.AppendStreams(ctx, portsrepo.StreamBatch{StreamID: streamID, ExpectedVersion: expectedVersion, Events: events})
}

func (s *EventStore) AppendStreams(ctx context.Context, batches ...portsrepo.StreamBatch) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate everything before the first write.
	seen := make(map[string]struct{}, len(batches))
	for _, b := range batches {
		if _, dup := seen[b.StreamID]; dup {
			return nil, fmt.Errorf("stream %s appears twice in one append", b.StreamID)
		}
		seen[b.StreamID] = struct{}{}

		current := int64(len(s.streams[b.StreamID]))
		if current != b.ExpectedVersion {
			return nil, apperrors.NewConcurrencyError(b.StreamID, b.ExpectedVersion, current)
		}
		if err := domain.ValidateAppend(b.StreamID, b.ExpectedVersion, b.Events); err != nil {
			return nil, err
		}
	}

	stored := make([]domain.Event, 0)
	for _, b := range batches {
		for _, evt := range b.Events {
			evt.GlobalPosition = int64(len(s.all)) + 1
			s.all = append(s.all, evt)
			s.streams[b.StreamID] = append(s.streams[b.StreamID], evt)
			stored = append(stored, evt)
		}
	}
	return stored, nil
}

func (s *EventStore) ReadStream(ctx context.Context, streamID string, fromVersion int64) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	stream := s.streams[streamID]
	if fromVersion < 1 {
		fromVersion = 1
	}
	if fromVersion > int64(len(stream)) {
		return []domain.Event{}, nil
	}
	out := make([]domain.Event, len(stream)-int(fromVersion-1))
	copy(out, stream[fromVersion-1:])
	return out, nil
}

func (s *EventStore) ReadAll(ctx context.Context, afterPosition int64, limit int) ([]domain.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if afterPosition < 0 {
		afterPosition = 0
	}
	if afterPosition >= int64(len(s.all)) {
		return []domain.Event{}, nil
	}
	end := len(s.all)
	if limit > 0 && int(afterPosition)+limit < end {
		end = int(afterPosition) + limit
	}
	out := make([]domain.Event, end-int(afterPosition))
	copy(out, s.all[afterPosition:end])
	return out, nil
}
