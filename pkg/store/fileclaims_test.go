package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireFileClaim(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	claim := &FileClaim{FilePath: "internal/foo.go", Project: "clan", SessionID: "sess-1", ClaimedAt: 1000, TTLSeconds: 300}
	held, err := s.AcquireFileClaim(ctx, claim)
	require.NoError(t, err)
	assert.True(t, held)

	// same session re-claiming is fine
	held, err = s.AcquireFileClaim(ctx, claim)
	require.NoError(t, err)
	assert.True(t, held)

	// a different, live claim blocks another session
	other := &FileClaim{FilePath: "internal/foo.go", Project: "clan", SessionID: "sess-2", ClaimedAt: 1100, TTLSeconds: 300}
	held, err = s.AcquireFileClaim(ctx, other)
	require.NoError(t, err)
	assert.False(t, held)
}

func TestAcquireFileClaimTakeoverAfterExpiry(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	claim := &FileClaim{FilePath: "internal/foo.go", Project: "clan", SessionID: "sess-1", ClaimedAt: 1000, TTLSeconds: 10}
	held, err := s.AcquireFileClaim(ctx, claim)
	require.NoError(t, err)
	require.True(t, held)

	// beyond TTL (10s = 10000ms), a new session may take over
	other := &FileClaim{FilePath: "internal/foo.go", Project: "clan", SessionID: "sess-2", ClaimedAt: 20000, TTLSeconds: 300}
	held, err = s.AcquireFileClaim(ctx, other)
	require.NoError(t, err)
	assert.True(t, held)

	got, err := s.GetFileClaim(ctx, "clan", "internal/foo.go")
	require.NoError(t, err)
	assert.Equal(t, "sess-2", got.SessionID)
}

func TestReleaseFileClaim(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	claim := &FileClaim{FilePath: "f.go", Project: "clan", SessionID: "sess-1", ClaimedAt: 1000, TTLSeconds: 300}
	_, err := s.AcquireFileClaim(ctx, claim)
	require.NoError(t, err)

	released, err := s.ReleaseFileClaim(ctx, "clan", "f.go", "sess-2")
	require.NoError(t, err)
	assert.False(t, released, "non-owner cannot release")

	released, err = s.ReleaseFileClaim(ctx, "clan", "f.go", "sess-1")
	require.NoError(t, err)
	assert.True(t, released)

	_, err = s.GetFileClaim(ctx, "clan", "f.go")
	assert.True(t, IsNotFound(err))
}
