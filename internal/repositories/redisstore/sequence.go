package redisstore

import (
	"context"
	"fmt"

	"github.com/SscSPs/mma_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
)

// SequenceAllocator keeps one INCR counter per (tenant, journal type, month).
// Counters never expire.
type SequenceAllocator struct {
	client *Client
}

var _ portsrepo.SequenceAllocator = (*SequenceAllocator)(nil)

func (a *SequenceAllocator) NextSequence(ctx context.Context, tenantID string, journalType domain.JournalType, ym domain.YearMonth) (int64, error) {
	key := domain.SequenceKey(tenantID, journalType, ym)
	next, err := a.client.rdb.Incr(ctx, a.client.key("seq", key)).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate sequence %s: %w", key, err)
	}
	return next, nil
}
