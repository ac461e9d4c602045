package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertAndGetSession(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	sess := &Session{
		ID:            "sess-1",
		Project:       "clan",
		StartedAt:     1000,
		LastHeartbeat: 1000,
		ActiveFiles:   []string{"a.go", "b.go"},
	}
	require.NoError(t, s.UpsertSession(ctx, sess, 300))

	got, err := s.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.Equal(t, "clan", got.Project)
	assert.ElementsMatch(t, []string{"a.go", "b.go"}, got.ActiveFiles)
}

func TestHeartbeatAndListActive(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.UpsertSession(ctx, &Session{ID: "old", Project: "p", StartedAt: 0, LastHeartbeat: 0}, 300))
	require.NoError(t, s.UpsertSession(ctx, &Session{ID: "recent", Project: "p", StartedAt: 0, LastHeartbeat: 100}, 300))

	require.NoError(t, s.Heartbeat(ctx, "recent", 500, 300))

	active, err := s.ListActiveSessions(ctx, 200)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "recent", active[0].ID)
}

func TestUpsertSessionRejectsMissingProject(t *testing.T) {
	s, _ := setupTestStore(t)
	err := s.UpsertSession(context.Background(), &Session{ID: "sess-1"}, 300)
	assert.Error(t, err)
}

func TestUpsertSessionSetsTTL(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	sess := &Session{ID: "sess-1", Project: "p", StartedAt: 1000, LastHeartbeat: 1000}
	require.NoError(t, s.UpsertSession(ctx, sess, 90))

	ttl := mr.TTL(SessionKey(s.instanceName, "sess-1"))
	assert.Greater(t, ttl.Seconds(), 0.0)
	assert.LessOrEqual(t, ttl.Seconds(), 90.0)

	require.NoError(t, s.Heartbeat(ctx, "sess-1", 2000, 90))
	ttl = mr.TTL(SessionKey(s.instanceName, "sess-1"))
	assert.Greater(t, ttl.Seconds(), 0.0)
}

func TestUpsertSessionWithoutTTLNeverExpires(t *testing.T) {
	s, mr := setupTestStore(t)
	ctx := context.Background()

	sess := &Session{ID: "sess-1", Project: "p", StartedAt: 1000, LastHeartbeat: 1000}
	require.NoError(t, s.UpsertSession(ctx, sess, 0))

	assert.Equal(t, 0.0, mr.TTL(SessionKey(s.instanceName, "sess-1")).Seconds())
}
