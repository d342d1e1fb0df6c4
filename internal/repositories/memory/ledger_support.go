package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SscSPs/mma_ledger/internal/apperrors"
	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/google/uuid"
)

// SequenceAllocator is a mutex-guarded counter per (tenant, journal type, month).
type SequenceAllocator struct {
	mu       sync.Mutex
	counters map[string]int64
}

func NewSequenceAllocator() *SequenceAllocator {
	return &SequenceAllocator{counters: make(map[string]int64)}
}

var _ portsrepo.SequenceAllocator = (*SequenceAllocator)(nil)

func (a *SequenceAllocator) NextSequence(ctx context.Context, tenantID string, journalType domain.JournalType, ym domain.YearMonth) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key := domain.SequenceKey(tenantID, journalType, ym)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.counters[key]++
	return a.counters[key], nil
}

// PeriodRepository tracks closed fiscal periods. Every period is open until closed.
type PeriodRepository struct {
	mu     sync.RWMutex
	closed map[tenantKey]string
}

func NewPeriodRepository() *PeriodRepository {
	return &PeriodRepository{closed: make(map[tenantKey]string)}
}

var _ portsrepo.PeriodRepositoryFacade = (*PeriodRepository)(nil)

func (r *PeriodRepository) IsOpen(_ context.Context, tenantID string, date time.Time) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, closed := r.closed[tenantKey{tenantID, domain.FiscalPeriodOf(date)}]
	return !closed, nil
}

func (r *PeriodRepository) ClosePeriod(_ context.Context, tenantID, fiscalPeriod, actorID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed[tenantKey{tenantID, fiscalPeriod}] = actorID
	return nil
}

func (r *PeriodRepository) ReopenPeriod(_ context.Context, tenantID, fiscalPeriod string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.closed, tenantKey{tenantID, fiscalPeriod})
	return nil
}

// DeadLetterStore keeps quarantined projection events.
type DeadLetterStore struct {
	mu      sync.Mutex
	letters map[string]*portsrepo.DeadLetter
	// (projection, event id) -> dead letter id
	byEvent map[tenantKey]string
	now     func() time.Time
}

func NewDeadLetterStore() *DeadLetterStore {
	return &DeadLetterStore{
		letters: make(map[string]*portsrepo.DeadLetter),
		byEvent: make(map[tenantKey]string),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ portsrepo.DeadLetterStore = (*DeadLetterStore)(nil)

func (s *DeadLetterStore) Quarantine(_ context.Context, projection string, evt domain.Event, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if id, ok := s.byEvent[tenantKey{projection, evt.EventID}]; ok {
		dl := s.letters[id]
		dl.Attempts++
		dl.Reason = reason
		dl.LastFailedAt = now
		return nil
	}
	id := uuid.NewString()
	s.letters[id] = &portsrepo.DeadLetter{
		ID:            id,
		Projection:    projection,
		Event:         evt,
		Reason:        reason,
		Attempts:      1,
		FirstFailedAt: now,
		LastFailedAt:  now,
	}
	s.byEvent[tenantKey{projection, evt.EventID}] = id
	return nil
}

func (s *DeadLetterStore) ListDeadLetters(_ context.Context, projection string, limit int) ([]portsrepo.DeadLetter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]portsrepo.DeadLetter, 0)
	for _, dl := range s.letters {
		if dl.Projection == projection {
			out = append(out, *dl)
		}
	}
	// Oldest global position first so retries keep per-aggregate order.
	sort.Slice(out, func(i, j int) bool {
		if out[i].Event.GlobalPosition != out[j].Event.GlobalPosition {
			return out[i].Event.GlobalPosition < out[j].Event.GlobalPosition
		}
		return out[i].Event.Version < out[j].Event.Version
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *DeadLetterStore) RecordFailure(_ context.Context, id string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dl, ok := s.letters[id]
	if !ok {
		return fmt.Errorf("%w: dead letter %s", apperrors.ErrNotFound, id)
	}
	dl.Attempts++
	dl.Reason = reason
	dl.LastFailedAt = s.now()
	return nil
}

func (s *DeadLetterStore) Resolve(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dl, ok := s.letters[id]
	if !ok {
		return nil
	}
	delete(s.byEvent, tenantKey{dl.Projection, dl.Event.EventID})
	delete(s.letters, id)
	return nil
}

// CheckpointStore keeps feed positions by consumer name.
type CheckpointStore struct {
	mu          sync.RWMutex
	checkpoints map[string]int64
}

func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{checkpoints: make(map[string]int64)}
}

var _ portsrepo.CheckpointStore = (*CheckpointStore)(nil)

func (s *CheckpointStore) LoadCheckpoint(_ context.Context, name string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkpoints[name], nil
}

func (s *CheckpointStore) SaveCheckpoint(_ context.Context, name string, position int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if position > s.checkpoints[name] {
		s.checkpoints[name] = position
	}
	return nil
}

// SnapshotCache keeps the latest snapshot per stream.
type SnapshotCache struct {
	mu        sync.RWMutex
	snapshots map[string]portsrepo.Snapshot
}

func NewSnapshotCache() *SnapshotCache {
	return &SnapshotCache{snapshots: make(map[string]portsrepo.Snapshot)}
}

var _ portsrepo.SnapshotCache = (*SnapshotCache)(nil)

func (c *SnapshotCache) LoadSnapshot(_ context.Context, streamID string) (*portsrepo.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[streamID]
	if !ok {
		return nil, nil
	}
	snap.State = append([]byte(nil), snap.State...)
	return &snap, nil
}

func (c *SnapshotCache) SaveSnapshot(_ context.Context, snapshot portsrepo.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.snapshots[snapshot.StreamID]; ok && existing.Version >= snapshot.Version {
		return nil
	}
	snapshot.State = append([]byte(nil), snapshot.State...)
	c.snapshots[snapshot.StreamID] = snapshot
	return nil
}

// LeaseLocker keeps leases in process memory. Expired leases can be taken over.
type LeaseLocker struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

type lease struct {
	token     string
	expiresAt time.Time
}

// NewLeaseLocker creates an empty LeaseLocker.
func NewLeaseLocker() *LeaseLocker {
	return &LeaseLocker{leases: make(map[string]lease), now: time.Now}
}

var _ portsrepo.LeaseLocker = (*LeaseLocker)(nil)

func (l *LeaseLocker) TryAcquire(_ context.Context, key string, ttl time.Duration) (func(context.Context) error, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	if held, ok := l.leases[key]; ok && now.Before(held.expiresAt) {
		return nil, false, nil
	}
	token := uuid.NewString()
	l.leases[key] = lease{token: token, expiresAt: now.Add(ttl)}
	release := func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if held, ok := l.leases[key]; ok && held.token == token {
			delete(l.leases, key)
		}
		return nil
	}
	return release, true, nil
}
