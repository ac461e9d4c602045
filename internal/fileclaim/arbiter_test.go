package fileclaim

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/clan/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestArbiter(t *testing.T) *Arbiter {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	s, err := store.NewStore(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return New(s, 30)
}

// Mirrors spec §8 scenario 3: file claim race between two sessions.
func TestFileClaimRace(t *testing.T) {
	a := setupTestArbiter(t)
	ctx := context.Background()

	r1, err := a.Claim(ctx, "src/x.py", "p", "S1", 5, 1000)
	require.NoError(t, err)
	assert.True(t, r1.Claimed)

	r2, err := a.Claim(ctx, "src/x.py", "p", "S2", 5, 1100)
	require.NoError(t, err)
	assert.False(t, r2.Claimed)
	assert.Equal(t, "S1", r2.By)

	// after ttl (5s = 5000ms) elapses without release, S2 succeeds
	r3, err := a.Claim(ctx, "src/x.py", "p", "S2", 5, 1000+6000)
	require.NoError(t, err)
	assert.True(t, r3.Claimed)

	check, err := a.Check(ctx, "src/x.py", "p", "S1", 1000+6000)
	require.NoError(t, err)
	assert.True(t, check.Claimed)
	assert.Equal(t, "S2", check.By)
}

func TestCheckOwnerSeesUnclaimed(t *testing.T) {
	a := setupTestArbiter(t)
	ctx := context.Background()

	_, err := a.Claim(ctx, "f.go", "p", "S1", 300, 1000)
	require.NoError(t, err)

	check, err := a.Check(ctx, "f.go", "p", "S1", 1100)
	require.NoError(t, err)
	assert.False(t, check.Claimed)
}

func TestReleaseOnlyByOwner(t *testing.T) {
	a := setupTestArbiter(t)
	ctx := context.Background()

	_, err := a.Claim(ctx, "f.go", "p", "S1", 300, 1000)
	require.NoError(t, err)

	released, err := a.Release(ctx, "f.go", "p", "S2")
	require.NoError(t, err)
	assert.False(t, released)

	released, err = a.Release(ctx, "f.go", "p", "S1")
	require.NoError(t, err)
	assert.True(t, released)
}

func TestClaimRejectsInvalidSessionID(t *testing.T) {
	a := setupTestArbiter(t)
	_, err := a.Claim(context.Background(), "f.go", "p", "bad id!", 300, 1000)
	assert.Error(t, err)
}
