package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndCompleteAgent(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	a := &Agent{
		ID:        "scout-1",
		SessionID: "sess-1",
		Pattern:   "swarm",
		SpawnedAt: 1000,
		Status:    AgentStatusRunning,
		Source:    AgentSourceCLI,
	}

	require.NoError(t, s.RegisterAgent(ctx, a))

	got, err := s.GetAgent(ctx, "scout-1")
	require.NoError(t, err)
	assert.Equal(t, AgentStatusRunning, got.Status)
	assert.Equal(t, "sess-1", got.SessionID)

	n, err := s.CountRunning(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.NoError(t, s.CompleteAgent(ctx, "scout-1", AgentStatusCompleted, 2000, ""))

	got, err = s.GetAgent(ctx, "scout-1")
	require.NoError(t, err)
	assert.Equal(t, AgentStatusCompleted, got.Status)
	assert.EqualValues(t, 2000, got.CompletedAt)

	n, err = s.CountRunning(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestRegisterAgentIdempotent(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	a := &Agent{ID: "scout-1", SessionID: "sess-1", SpawnedAt: 1000, Status: AgentStatusRunning}
	require.NoError(t, s.RegisterAgent(ctx, a))
	require.NoError(t, s.RegisterAgent(ctx, a))

	n, err := s.CountRunning(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestCompleteAgentIdempotent(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.RegisterAgent(ctx, &Agent{ID: "scout-1", SessionID: "sess-1", SpawnedAt: 1000, Status: AgentStatusRunning}))
	require.NoError(t, s.CompleteAgent(ctx, "scout-1", AgentStatusCompleted, 2000, ""))
	require.NoError(t, s.CompleteAgent(ctx, "scout-1", AgentStatusFailed, 3000, "second call should be a no-op"))

	got, err := s.GetAgent(ctx, "scout-1")
	require.NoError(t, err)
	assert.Equal(t, AgentStatusCompleted, got.Status, "first call wins")
	assert.EqualValues(t, 2000, got.CompletedAt, "completed_at reflects the first call")
}

func TestCompleteAgentUnknownIsNoOp(t *testing.T) {
	s, _ := setupTestStore(t)
	assert.NoError(t, s.CompleteAgent(context.Background(), "never-registered", AgentStatusCompleted, 1000, ""))
}

func TestRegisterAgentRejectsInvalid(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	err := s.RegisterAgent(ctx, &Agent{ID: "", SessionID: "sess-1", Status: AgentStatusRunning})
	assert.Error(t, err)
}

func TestSweepLeakedAgents(t *testing.T) {
	s, _ := setupTestStore(t)
	ctx := context.Background()

	dayMs := int64(24 * time.Hour / time.Millisecond)
	now := int64(2) * dayMs

	require.NoError(t, s.RegisterAgent(ctx, &Agent{
		ID: "old", SessionID: "sess-1", SpawnedAt: 0, Status: AgentStatusRunning,
	}))
	require.NoError(t, s.RegisterAgent(ctx, &Agent{
		ID: "fresh", SessionID: "sess-1", SpawnedAt: now - 1000, Status: AgentStatusRunning,
	}))

	swept, err := s.SweepLeakedAgents(ctx, now, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	n, err := s.CountRunning(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	old, err := s.GetAgent(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, AgentStatusFailed, old.Status)
}
