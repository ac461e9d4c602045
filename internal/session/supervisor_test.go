package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/clan/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestSupervisor(t *testing.T) (*Supervisor, *store.Store) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	s, err := store.NewStore(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return New(s, 90), s
}

func TestTouchCreatesThenHeartbeats(t *testing.T) {
	sup, st := setupTestSupervisor(t)
	ctx := context.Background()

	require.NoError(t, sup.Touch(ctx, "sess-1", "clan", 1000))
	sess, err := st.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, sess.StartedAt)

	require.NoError(t, sup.Touch(ctx, "sess-1", "clan", 2000))
	sess, err = st.GetSession(ctx, "sess-1")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, sess.StartedAt, "started_at does not change on re-touch")
	assert.EqualValues(t, 2000, sess.LastHeartbeat)
}

func TestListActiveExcludesStale(t *testing.T) {
	sup, _ := setupTestSupervisor(t)
	ctx := context.Background()

	require.NoError(t, sup.Touch(ctx, "recent", "clan", 1_000_000))
	require.NoError(t, sup.Touch(ctx, "stale", "clan", 0))

	now := int64(1_000_000) + int64(6*time.Minute/time.Millisecond)
	active, err := sup.ListActive(ctx, now)
	require.NoError(t, err)
	require.Len(t, active, 0, "even 'recent' is now beyond the 5 minute window")
}

func TestIsActive(t *testing.T) {
	sess := &store.Session{LastHeartbeat: 1000}
	assert.True(t, IsActive(sess, 1000+int64(4*time.Minute/time.Millisecond)))
	assert.False(t, IsActive(sess, 1000+int64(6*time.Minute/time.Millisecond)))
}

func TestWaitReadySucceedsImmediatelyWhenReachable(t *testing.T) {
	sup, _ := setupTestSupervisor(t)
	assert.NoError(t, sup.WaitReady(context.Background(), time.Second))
}
