package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RecordLearning appends a best-effort learning to a session's learning
// stream. Callers (internal/externalio) are expected to swallow any
// returned error rather than fail the host tool call on it.
func (s *Store) RecordLearning(ctx context.Context, l *Learning) (*Learning, error) {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	payload, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal learning: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, LearningKey(s.instanceName, l.ID), map[string]interface{}{"payload": payload})
	pipe.ZAdd(ctx, LearningStreamKey(s.instanceName, l.SessionID), redis.Z{
		Score:  float64(l.CreatedAtMs),
		Member: l.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("record learning: %w", err)
	}
	return l, nil
}

// ListLearnings returns learnings recorded under a session, newest first.
func (s *Store) ListLearnings(ctx context.Context, sessionID string, limit int64) ([]*Learning, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ids, err := s.rdb.ZRevRange(ctx, LearningStreamKey(s.instanceName, sessionID), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list learnings for %s: %w", sessionID, err)
	}
	out := make([]*Learning, 0, len(ids))
	for _, id := range ids {
		hash, err := s.rdb.HGetAll(ctx, LearningKey(s.instanceName, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("read learning %s: %w", id, err)
		}
		raw, ok := hash["payload"]
		if !ok {
			continue
		}
		var l Learning
		if err := json.Unmarshal([]byte(raw), &l); err != nil {
			return nil, fmt.Errorf("unmarshal learning %s: %w", id, err)
		}
		out = append(out, &l)
	}
	return out, nil
}
