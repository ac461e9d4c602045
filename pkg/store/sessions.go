package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// UpsertSession writes a session hash and updates the heartbeat index,
// scored by LastHeartbeat so ListActive can range by recency without
// scanning every session. ttlSeconds, when positive, sets a Redis-level
// expiry on the session hash as a safety net: a session whose supervisor
// crashes without a final heartbeat still gets reclaimed instead of
// lingering forever.
func (s *Store) UpsertSession(ctx context.Context, sess *Session, ttlSeconds int64) error {
	if err := sess.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	hash, err := sessionToHash(sess)
	if err != nil {
		return fmt.Errorf("serialize session: %w", err)
	}

	key := SessionKey(s.instanceName, sess.ID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, hash)
	if ttlSeconds > 0 {
		pipe.Expire(ctx, key, timeDuration(ttlSeconds*1000))
	}
	pipe.ZAdd(ctx, SessionsIndexKey(s.instanceName), redis.Z{
		Score:  float64(sess.LastHeartbeat),
		Member: sess.ID,
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("upsert session %s: %w", sess.ID, err)
	}
	return nil
}

// Heartbeat bumps a session's last_heartbeat without touching other fields,
// refreshing the same Redis-level TTL UpsertSession sets.
func (s *Store) Heartbeat(ctx context.Context, sessionID string, atMs int64, ttlSeconds int64) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	key := SessionKey(s.instanceName, sessionID)
	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, "last_heartbeat", atMs)
	if ttlSeconds > 0 {
		pipe.Expire(ctx, key, timeDuration(ttlSeconds*1000))
	}
	pipe.ZAdd(ctx, SessionsIndexKey(s.instanceName), redis.Z{Score: float64(atMs), Member: sessionID})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("heartbeat session %s: %w", sessionID, err)
	}
	return nil
}

// GetSession retrieves a session by id.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	hash, err := s.rdb.HGetAll(ctx, SessionKey(s.instanceName, sessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return hashToSession(hash)
}

// ListActiveSessions returns sessions whose last_heartbeat is at or after
// sinceMs, ordered oldest heartbeat first.
func (s *Store) ListActiveSessions(ctx context.Context, sinceMs int64) ([]*Session, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	ids, err := s.rdb.ZRangeByScore(ctx, SessionsIndexKey(s.instanceName), &redis.ZRangeBy{
		Min: fmt.Sprintf("%d", sinceMs),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	sessions := make([]*Session, 0, len(ids))
	for _, id := range ids {
		sess, err := s.GetSession(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	return sessions, nil
}
