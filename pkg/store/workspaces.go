package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// workspaceClaimScript claims a feature workspace name for a session unless
// another session already owns it — the conditional upsert-returning
// primitive for FeatureWorkspace, preventing two sessions from silently
// colliding on the same named unit of work.
// ARGV: 1=id 2=project 3=name 4=owner_session 5=created_at_ms
var workspaceClaimScript = redis.NewScript(`
local key = KEYS[1]
local owner = redis.call('HGET', key, 'owner_session')
if owner and owner ~= '' and owner ~= ARGV[4] then
  return 0
end
redis.call('HSET', key, 'id', ARGV[1], 'project', ARGV[2], 'name', ARGV[3], 'owner_session', ARGV[4], 'created_at_ms', ARGV[5])
return 1
`)

// ClaimFeatureWorkspace registers ownership of a named feature workspace,
// or confirms the caller's existing ownership. Returns owned=false if
// another session already owns the name.
func (s *Store) ClaimFeatureWorkspace(ctx context.Context, w *FeatureWorkspace) (owned bool, err error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	key := FeatureWorkspaceKey(s.instanceName, w.Project, w.Name)
	res, err := workspaceClaimScript.Run(ctx, s.rdb, []string{key},
		w.ID, w.Project, w.Name, w.OwnerSession, w.CreatedAtMs,
	).Int()
	if err != nil {
		return false, fmt.Errorf("claim feature workspace %s/%s: %w", w.Project, w.Name, err)
	}
	return res == 1, nil
}

// GetFeatureWorkspace retrieves a feature workspace by project/name.
func (s *Store) GetFeatureWorkspace(ctx context.Context, project, name string) (*FeatureWorkspace, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	hash, err := s.rdb.HGetAll(ctx, FeatureWorkspaceKey(s.instanceName, project, name)).Result()
	if err != nil {
		return nil, fmt.Errorf("get feature workspace %s/%s: %w", project, name, err)
	}
	if len(hash) == 0 {
		return nil, ErrNotFound
	}
	return &FeatureWorkspace{
		ID:           hash["id"],
		Project:      hash["project"],
		Name:         hash["name"],
		OwnerSession: hash["owner_session"],
	}, nil
}
