package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateCircuitState(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	c, err := s.GetOrCreateCircuitState(ctx, "cb-1", 5, 1000)
	require.NoError(t, err)
	assert.Equal(t, CircuitClosed, c.State)
	assert.Equal(t, 5, c.CurrentThreshold)

	// second call must not reset an already-mutated state
	_, err = s.UpdateCircuitState(ctx, "cb-1", 5, 1000, func(state *CircuitState) {
		state.FailureCount = 3
	})
	require.NoError(t, err)

	again, err := s.GetOrCreateCircuitState(ctx, "cb-1", 5, 2000)
	require.NoError(t, err)
	assert.Equal(t, 3, again.FailureCount)
}

func TestUpdateCircuitStateAppliesMutation(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateCircuitState(ctx, "cb-1", 5, 1000)
	require.NoError(t, err)

	updated, err := s.UpdateCircuitState(ctx, "cb-1", 5, 5000, func(state *CircuitState) {
		state.State = CircuitOpen
		state.FailureCount = 5
		state.UpdatedAtMs = 5000
	})
	require.NoError(t, err)
	assert.Equal(t, CircuitOpen, updated.State)
	assert.Equal(t, 5, updated.FailureCount)

	got, err := s.GetCircuitState(ctx, "cb-1")
	require.NoError(t, err)
	assert.Equal(t, CircuitOpen, got.State)
	assert.Equal(t, 5, got.FailureCount)
}

func TestUpdateCircuitStateSuccessiveCallsBothApply(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	_, err := s.GetOrCreateCircuitState(ctx, "cb-1", 5, 1000)
	require.NoError(t, err)

	_, err = s.UpdateCircuitState(ctx, "cb-1", 5, 1000, func(state *CircuitState) {
		state.FailureCount++
	})
	require.NoError(t, err)

	_, err = s.UpdateCircuitState(ctx, "cb-1", 5, 1000, func(state *CircuitState) {
		state.SuccessCount++
	})
	require.NoError(t, err)

	got, err := s.GetCircuitState(ctx, "cb-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.FailureCount)
	assert.Equal(t, 1, got.SuccessCount)
}
