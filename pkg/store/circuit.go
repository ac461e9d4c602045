package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// circuitUpsertScript creates the CircuitState row if absent, seeding it
// closed with the given initial threshold, and is a no-op otherwise —
// the conditional upsert-returning primitive for first-touch initialization.
var circuitUpsertScript = redis.NewScript(`
local key = KEYS[1]
local exists = redis.call('EXISTS', key)
if exists == 1 then
  return 0
end
redis.call('HSET', key, unpack(ARGV))
return 1
`)

// GetOrCreateCircuitState returns the existing breaker state for cbID, or
// creates and returns a fresh closed breaker seeded with initialThreshold.
func (s *Store) GetOrCreateCircuitState(ctx context.Context, cbID string, initialThreshold int, nowMs int64) (*CircuitState, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	key := CircuitStateKey(s.instanceName, cbID)
	fresh := &CircuitState{
		CBID:             cbID,
		State:            CircuitClosed,
		CurrentThreshold: initialThreshold,
		WindowStartMs:    nowMs,
		CreatedAtMs:      nowMs,
		UpdatedAtMs:      nowMs,
	}
	hash := circuitStateToHash(fresh)
	args := make([]interface{}, 0, len(hash)*2)
	for k, v := range hash {
		args = append(args, k, v)
	}
	if _, err := circuitUpsertScript.Run(ctx, s.rdb, []string{key}, args...).Result(); err != nil {
		return nil, fmt.Errorf("get-or-create circuit state %s: %w", cbID, err)
	}

	raw, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read circuit state %s: %w", cbID, err)
	}
	return hashToCircuitState(raw)
}

// maxCircuitStateRetries bounds the WATCH/MULTI/EXEC retry loop in
// UpdateCircuitState. Contention on a single CB_ID this deep would mean
// dozens of PostToolUse events landing within the same round trip, which
// the hook protocol's one-event-at-a-time-per-agent shape does not produce.
const maxCircuitStateRetries = 10

// UpdateCircuitState performs an atomic read-modify-write on a breaker's
// row: mutate is handed the current state and edits it in place, and the
// write only lands if nothing else touched the row between the read and
// the write. This is go-redis's own documented optimistic-locking idiom
// (WATCH the key, read, mutate, MULTI/EXEC, retry on redis.TxFailedErr).
// A plain HGetAll-then-HSet here would let two concurrent PostToolUse
// events for the same CB_ID silently lose one side's failure/success
// increment, leaving state/current_threshold stale.
func (s *Store) UpdateCircuitState(ctx context.Context, cbID string, initialThreshold int, nowMs int64, mutate func(*CircuitState)) (*CircuitState, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if _, err := s.GetOrCreateCircuitState(ctx, cbID, initialThreshold, nowMs); err != nil {
		return nil, err
	}

	key := CircuitStateKey(s.instanceName, cbID)
	var result *CircuitState
	txf := func(tx *redis.Tx) error {
		raw, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}
		state, err := hashToCircuitState(raw)
		if err != nil {
			return err
		}
		mutate(state)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, circuitStateToHash(state))
			return nil
		})
		if err != nil {
			return err
		}
		result = state
		return nil
	}

	for i := 0; i < maxCircuitStateRetries; i++ {
		err := s.rdb.Watch(ctx, txf, key)
		if err == nil {
			return result, nil
		}
		if err == redis.TxFailedErr {
			continue
		}
		return nil, fmt.Errorf("update circuit state %s: %w", cbID, err)
	}
	return nil, fmt.Errorf("update circuit state %s: exceeded retries under contention", cbID)
}

// GetCircuitState retrieves a breaker's persisted state.
func (s *Store) GetCircuitState(ctx context.Context, cbID string) (*CircuitState, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	hash, err := s.rdb.HGetAll(ctx, CircuitStateKey(s.instanceName, cbID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get circuit state %s: %w", cbID, err)
	}
	return hashToCircuitState(hash)
}
