package store

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a Store backed by a fresh miniredis instance.
func setupTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	s, err := NewStore(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, mr
}

func TestNewStore(t *testing.T) {
	t.Run("creates store successfully", func(t *testing.T) {
		s, _ := setupTestStore(t)
		assert.NotNil(t, s)
		assert.Equal(t, "test-instance", s.Instance())
	})

	t.Run("rejects empty instance name", func(t *testing.T) {
		_, err := NewStore(&redis.Options{Addr: "localhost:6379"}, "")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "instance name cannot be empty")
	})
}

func TestStorePing(t *testing.T) {
	s, _ := setupTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestValidID(t *testing.T) {
	assert.True(t, ValidID("scout-1"))
	assert.True(t, ValidID("a"))
	assert.False(t, ValidID(""))
	assert.False(t, ValidID("has a space"))
	assert.False(t, ValidID(""))
}
