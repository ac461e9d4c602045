package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// fileClaimAcquireScript implements the FileClaim conditional
// upsert-returning primitive: acquire the claim if free, or take it over if
// the existing claim has expired (now - claimed_at > ttl_seconds*1000).
// Returns 1 if the caller now holds the claim, 0 if a live claim held by
// another session blocks it.
var fileClaimAcquireScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local sessionID = ARGV[2]
local claimedAt = tonumber(ARGV[3])
local ttlSeconds = tonumber(ARGV[4])
local project = ARGV[5]
local filePath = ARGV[6]

local existingSession = redis.call('HGET', key, 'session_id')
if existingSession and existingSession ~= '' and existingSession ~= sessionID then
  local existingClaimedAt = tonumber(redis.call('HGET', key, 'claimed_at'))
  local existingTTL = tonumber(redis.call('HGET', key, 'ttl_seconds'))
  local expired = false
  if existingTTL and existingTTL > 0 then
    expired = (now - existingClaimedAt) > (existingTTL * 1000)
  end
  if not expired then
    return 0
  end
end

redis.call('HSET', key, 'file_path', filePath, 'project', project, 'session_id', sessionID, 'claimed_at', claimedAt, 'ttl_seconds', ttlSeconds)
return 1
`)

// AcquireFileClaim attempts to claim filePath for sessionID within project.
// It succeeds immediately if the file is unclaimed, if the session already
// holds it (idempotent re-claim), or if the existing claim has expired.
// Returns held=false when a live claim by another session blocks it.
func (s *Store) AcquireFileClaim(ctx context.Context, c *FileClaim) (held bool, err error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	key := FileClaimKey(s.instanceName, c.Project, c.FilePath)
	res, err := fileClaimAcquireScript.Run(ctx, s.rdb, []string{key},
		c.ClaimedAt, c.SessionID, c.ClaimedAt, c.TTLSeconds, c.Project, c.FilePath,
	).Int()
	if err != nil {
		return false, fmt.Errorf("acquire file claim %s/%s: %w", c.Project, c.FilePath, err)
	}
	return res == 1, nil
}

// GetFileClaim retrieves the current claim on a file, if any.
func (s *Store) GetFileClaim(ctx context.Context, project, filePath string) (*FileClaim, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	hash, err := s.rdb.HGetAll(ctx, FileClaimKey(s.instanceName, project, filePath)).Result()
	if err != nil {
		return nil, fmt.Errorf("get file claim %s/%s: %w", project, filePath, err)
	}
	return hashToFileClaim(hash)
}

// fileClaimReleaseScript deletes the claim only if it is still held by the
// calling session, mirroring fileClaimAcquireScript's own conditional-check
// idiom. Without this, a plain read-then-delete could race a take-over:
// another session's fileClaimAcquireScript could win an expired claim
// between the release's read and its Del, and the stale release would then
// delete the new owner's live claim.
var fileClaimReleaseScript = redis.NewScript(`
local key = KEYS[1]
local sessionID = ARGV[1]

local existingSession = redis.call('HGET', key, 'session_id')
if not existingSession or existingSession ~= sessionID then
  return 0
end
redis.call('DEL', key)
return 1
`)

// ReleaseFileClaim removes a claim, but only if held by sessionID — a
// session cannot release a claim it does not own.
func (s *Store) ReleaseFileClaim(ctx context.Context, project, filePath, sessionID string) (released bool, err error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	key := FileClaimKey(s.instanceName, project, filePath)
	res, err := fileClaimReleaseScript.Run(ctx, s.rdb, []string{key}, sessionID).Int()
	if err != nil {
		return false, fmt.Errorf("release file claim %s/%s: %w", project, filePath, err)
	}
	return res == 1, nil
}
