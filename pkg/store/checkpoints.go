package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// SaveCheckpoint writes a team-awareness checkpoint and indexes it for
// project-wide recall, with a Redis-level expiry mirroring ExpiresAtMs so
// stale checkpoints are reclaimed even if nothing prunes the index.
func (s *Store) SaveCheckpoint(ctx context.Context, c *Checkpoint) (*Checkpoint, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	key := CheckpointKey(s.instanceName, c.ID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, checkpointToHash(c))
	if c.ExpiresAtMs > c.CreatedAtMs {
		pipe.PExpire(ctx, key, timeDuration(c.ExpiresAtMs-c.CreatedAtMs))
	}
	pipe.ZAdd(ctx, CheckpointStreamKey(s.instanceName, c.Project), redis.Z{
		Score:  float64(c.CreatedAtMs),
		Member: c.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("save checkpoint: %w", err)
	}
	return c, nil
}

// ListCheckpoints returns unexpired checkpoints for a project, newest first.
func (s *Store) ListCheckpoints(ctx context.Context, project string, nowMs int64) ([]*Checkpoint, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ids, err := s.rdb.ZRevRange(ctx, CheckpointStreamKey(s.instanceName, project), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list checkpoints for %s: %w", project, err)
	}
	out := make([]*Checkpoint, 0, len(ids))
	for _, id := range ids {
		hash, err := s.rdb.HGetAll(ctx, CheckpointKey(s.instanceName, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("read checkpoint %s: %w", id, err)
		}
		cp, err := hashToCheckpoint(hash)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		if cp.ExpiresAtMs > 0 && cp.ExpiresAtMs <= nowMs {
			continue
		}
		out = append(out, cp)
	}
	return out, nil
}
