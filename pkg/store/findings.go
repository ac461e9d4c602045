package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RecordFinding appends a cross-session research finding to a project's
// findings stream.
func (s *Store) RecordFinding(ctx context.Context, f *Finding) (*Finding, error) {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	payload, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal finding: %w", err)
	}

	project := findingProject(f)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, FindingKey(s.instanceName, f.ID), map[string]interface{}{"payload": payload})
	pipe.ZAdd(ctx, FindingStreamKey(s.instanceName, project), redis.Z{
		Score:  float64(f.CreatedAtMs),
		Member: f.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record finding: %w", err)
	}
	return f, nil
}

// findingProject derives the stream scope key for a finding. Findings are
// recorded by one session but shared across sessions; the stream is keyed
// by the finding's whole Topic, so ListFindings' project argument is the
// topic.
func findingProject(f *Finding) string {
	return f.Topic
}

// ListFindings returns findings recorded under a project/topic, newest
// first.
func (s *Store) ListFindings(ctx context.Context, project string, limit int64) ([]*Finding, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ids, err := s.rdb.ZRevRange(ctx, FindingStreamKey(s.instanceName, project), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list findings for %s: %w", project, err)
	}
	out := make([]*Finding, 0, len(ids))
	for _, id := range ids {
		hash, err := s.rdb.HGetAll(ctx, FindingKey(s.instanceName, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("read finding %s: %w", id, err)
		}
		raw, ok := hash["payload"]
		if !ok {
			continue
		}
		var f Finding
		if err := json.Unmarshal([]byte(raw), &f); err != nil {
			return nil, fmt.Errorf("unmarshal finding %s: %w", id, err)
		}
		out = append(out, &f)
	}
	return out, nil
}
