package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RegisterAgent upserts the Agent row and adds it to the running index.
// Registering the same id twice leaves one row with the second call's
// non-key fields winning (pattern, pid, ppid may change across retries of
// the same spawn) — spec's idempotence law for register.
func (s *Store) RegisterAgent(ctx context.Context, a *Agent) error {
	if err := a.Validate(); err != nil {
		return fmt.Errorf("invalid agent: %w", err)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, AgentKey(s.instanceName, a.ID), agentToHash(a))
	pipe.SAdd(ctx, AgentsRunningKey(s.instanceName), a.ID)
	pipe.SAdd(ctx, AgentsBySessionKey(s.instanceName, a.SessionID), a.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("register agent: %w", err)
	}
	return nil
}

// completeScript marks an agent terminal exactly once: a no-op if the id is
// unknown (agents may terminate via a path that skips the registry) or
// already terminal (completed_at reflects the first call only), otherwise
// sets status/completed_at/error_message and drops it from the running
// index.
var completeScript = redis.NewScript(`
local key = KEYS[1]
local runningKey = KEYS[2]
local status = redis.call('HGET', key, 'status')
if not status or status == '' or status ~= 'running' then
  return 0
end
redis.call('HSET', key, 'status', ARGV[1], 'completed_at', ARGV[2], 'error_message', ARGV[3])
redis.call('SREM', runningKey, ARGV[4])
return 1
`)

// CompleteAgent marks an agent terminal (completed/failed/cancelled). A
// no-op if the agent is unknown or already terminal.
func (s *Store) CompleteAgent(ctx context.Context, agentID string, status AgentStatus, completedAtMs int64, errMsg string) error {
	switch status {
	case AgentStatusCompleted, AgentStatusFailed, AgentStatusCancelled:
	default:
		return fmt.Errorf("complete agent: not a terminal status %q", status)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	key := AgentKey(s.instanceName, agentID)
	runningKey := AgentsRunningKey(s.instanceName)
	if _, err := completeScript.Run(ctx, s.rdb, []string{key, runningKey}, string(status), completedAtMs, errMsg, agentID).Result(); err != nil {
		return fmt.Errorf("complete agent %s: %w", agentID, err)
	}
	return nil
}

// GetAgent retrieves an agent by id.
func (s *Store) GetAgent(ctx context.Context, agentID string) (*Agent, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	hash, err := s.rdb.HGetAll(ctx, AgentKey(s.instanceName, agentID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get agent %s: %w", agentID, err)
	}
	return hashToAgent(hash)
}

// CountRunning returns the number of agents currently in the running index.
func (s *Store) CountRunning(ctx context.Context) (int64, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	n, err := s.rdb.SCard(ctx, AgentsRunningKey(s.instanceName)).Result()
	if err != nil {
		return 0, fmt.Errorf("count running agents: %w", err)
	}
	return n, nil
}

// ListRunning returns the full Agent rows for every agent in the running
// index.
func (s *Store) ListRunning(ctx context.Context) ([]*Agent, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	ids, err := s.rdb.SMembers(ctx, AgentsRunningKey(s.instanceName)).Result()
	if err != nil {
		return nil, fmt.Errorf("list running agents: %w", err)
	}
	agents := make([]*Agent, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetAgent(ctx, id)
		if err != nil {
			if IsNotFound(err) {
				continue
			}
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// SweepLeakedAgents removes running-index entries whose Agent row has been
// running longer than maxAge (default 24h per spec) and marks them failed
// with a leak error message, guarding against processes that crashed
// without ever calling CompleteAgent.
func (s *Store) SweepLeakedAgents(ctx context.Context, nowMs int64, maxAge time.Duration) (int, error) {
	agents, err := s.ListRunning(ctx)
	if err != nil {
		return 0, err
	}
	swept := 0
	maxAgeMs := maxAge.Milliseconds()
	for _, a := range agents {
		if nowMs-a.SpawnedAt < maxAgeMs {
			continue
		}
		if err := s.CompleteAgent(ctx, a.ID, AgentStatusFailed, nowMs, "swept: exceeded max agent lifetime"); err != nil {
			return swept, err
		}
		swept++
	}
	return swept, nil
}
