package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	portsrepo "github.com/SscSPs/mma_ledger/internal/core/ports/repositories"
	"github.com/redis/go-redis/v9"
)

// saveSnapshotScript writes the hash only when it moves the stored version forward.
var saveSnapshotScript = redis.NewScript(`
local current = redis.call("HGET", KEYS[1], "version")
if current and tonumber(current) >= tonumber(ARGV[1]) then
  return 0
end
redis.call("HSET", KEYS[1], "version", ARGV[1], "state", ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[3])
end
return 1
`)

// SnapshotCache stores each aggregate snapshot as a hash {version, state}.
type SnapshotCache struct {
	client *Client
	ttl    time.Duration
}

var _ portsrepo.SnapshotCache = (*SnapshotCache)(nil)

func (c *SnapshotCache) LoadSnapshot(ctx context.Context, streamID string) (*portsrepo.Snapshot, error) {
	fields, err := c.client.rdb.HGetAll(ctx, c.client.key("snapshot", streamID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load snapshot %s: %w", streamID, err)
	}
	if len(fields) == 0 {
		return nil, nil
	}
	version, err := strconv.ParseInt(fields["version"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse snapshot version of %s: %w", streamID, err)
	}
	return &portsrepo.Snapshot{StreamID: streamID, Version: version, State: []byte(fields["state"])}, nil
}

func (c *SnapshotCache) SaveSnapshot(ctx context.Context, snapshot portsrepo.Snapshot) error {
	keys := []string{c.client.key("snapshot", snapshot.StreamID)}
	err := saveSnapshotScript.Run(ctx, c.client.rdb, keys, snapshot.Version, snapshot.State, c.ttl.Milliseconds()).Err()
	if err != nil {
		return fmt.Errorf("save snapshot %s@%d: %w", snapshot.StreamID, snapshot.Version, err)
	}
	return nil
}
