package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RecordScan appends a best-effort codebase-scan ingest to a project's
// scan stream.
func (s *Store) RecordScan(ctx context.Context, r *ScanRecord) (*ScanRecord, error) {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal scan record: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, ScanKey(s.instanceName, r.ID), map[string]interface{}{"payload": payload})
	pipe.ZAdd(ctx, ScanStreamKey(s.instanceName, r.Project), redis.Z{
		Score:  float64(r.CreatedAtMs),
		Member: r.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record scan: %w", err)
	}
	return r, nil
}

// ListScans returns scan records recorded under a project, newest first.
func (s *Store) ListScans(ctx context.Context, project string, limit int64) ([]*ScanRecord, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ids, err := s.rdb.ZRevRange(ctx, ScanStreamKey(s.instanceName, project), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list scans for %s: %w", project, err)
	}
	out := make([]*ScanRecord, 0, len(ids))
	for _, id := range ids {
		hash, err := s.rdb.HGetAll(ctx, ScanKey(s.instanceName, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("read scan %s: %w", id, err)
		}
		raw, ok := hash["payload"]
		if !ok {
			continue
		}
		var r ScanRecord
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, fmt.Errorf("unmarshal scan %s: %w", id, err)
		}
		out = append(out, &r)
	}
	return out, nil
}
