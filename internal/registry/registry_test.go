package registry

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/clan/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRegistry(t *testing.T) *Registry {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	s, err := store.NewStore(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return New(s)
}

func TestRegisterAndComplete(t *testing.T) {
	r := setupTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, &store.Agent{ID: "scout-1", SessionID: "sess-1", SpawnedAt: 1000}))

	n, err := r.CountRunning(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, r.Complete(ctx, "scout-1", store.AgentStatusCompleted, 2000, ""))

	n, err = r.CountRunning(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRegisterRejectsInvalidID(t *testing.T) {
	r := setupTestRegistry(t)
	err := r.Register(context.Background(), &store.Agent{ID: "has a space", SessionID: "sess-1"})
	assert.Error(t, err)
}

func TestCompleteUnknownAgentIsNoOp(t *testing.T) {
	r := setupTestRegistry(t)
	assert.NoError(t, r.Complete(context.Background(), "ghost", store.AgentStatusCompleted, 1000, ""))
}

func TestListRunningFiltersBySession(t *testing.T) {
	r := setupTestRegistry(t)
	ctx := context.Background()

	require.NoError(t, r.Register(ctx, &store.Agent{ID: "a1", SessionID: "sess-1", SpawnedAt: 1000}))
	require.NoError(t, r.Register(ctx, &store.Agent{ID: "a2", SessionID: "sess-2", SpawnedAt: 1000}))

	all, err := r.ListRunning(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := r.ListRunning(ctx, "sess-1")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "a1", filtered[0].ID)
}
