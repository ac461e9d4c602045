package pattern

import (
	"context"
	"testing"

	"github.com/dyluth/clan/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bashEvent(exitCode int) Event {
	body := `{"exit_code":0}`
	if exitCode != 0 {
		body = `{"exit_code":1}`
	}
	return Event{HookEventName: EventPostToolUse, ToolName: "Bash", ToolResponse: body}
}

// Mirrors spec §8 scenario 2: adaptive breaker sequence.
func TestAdaptiveBreakerSequence(t *testing.T) {
	deps := setupTestDeps(t)
	cb := NewCircuitBreaker(deps)
	ctx := context.Background()
	env := Env{CBID: "cb1", AgentRole: "primary"}

	for i := 0; i < 3; i++ {
		_, err := cb.OnEvent(ctx, env, bashEvent(1), int64(1000+i*100))
		require.NoError(t, err)
	}
	state, err := deps.Store.GetCircuitState(ctx, "cb1")
	require.NoError(t, err)
	assert.Equal(t, store.CircuitOpen, state.State)
	assert.Equal(t, 3, state.FailureCount)

	_, err = cb.OnEvent(ctx, env, bashEvent(0), 1400)
	require.NoError(t, err)
	state, err = deps.Store.GetCircuitState(ctx, "cb1")
	require.NoError(t, err)
	assert.Equal(t, store.CircuitHalfOpen, state.State)

	_, err = cb.OnEvent(ctx, env, bashEvent(0), 1500)
	require.NoError(t, err)
	state, err = deps.Store.GetCircuitState(ctx, "cb1")
	require.NoError(t, err)
	assert.Equal(t, store.CircuitClosed, state.State)
	assert.Equal(t, 0, state.FailureCount)
}

func TestBreakerThresholdMonotonicDecreaseUnderSustainedFailure(t *testing.T) {
	deps := setupTestDeps(t)
	cb := NewCircuitBreaker(deps)
	ctx := context.Background()
	env := Env{CBID: "cb-decay", AgentRole: "primary"}

	var lastThreshold int
	for i := 0; i < 20; i++ {
		_, err := cb.OnEvent(ctx, env, bashEvent(1), int64(1000+i*10))
		require.NoError(t, err)
		state, err := deps.Store.GetCircuitState(ctx, "cb-decay")
		require.NoError(t, err)
		if i > 0 {
			assert.LessOrEqual(t, state.CurrentThreshold, lastThreshold)
		}
		lastThreshold = state.CurrentThreshold
	}
	assert.Equal(t, 1, lastThreshold)
}

func TestBreakerNonPrimaryRoleIsNoOp(t *testing.T) {
	deps := setupTestDeps(t)
	cb := NewCircuitBreaker(deps)
	d, err := cb.OnEvent(context.Background(), Env{CBID: "cb1", AgentRole: "fallback"}, bashEvent(1), 1000)
	require.NoError(t, err)
	assert.Equal(t, ResultNoOp, d.Result)
}

func TestBreakerSubagentStartBriefings(t *testing.T) {
	deps := setupTestDeps(t)
	cb := NewCircuitBreaker(deps)
	ctx := context.Background()

	d, err := cb.OnEvent(ctx, Env{CBID: "cb2", AgentRole: "primary"}, Event{HookEventName: EventSubagentStart}, 1000)
	require.NoError(t, err)
	assert.Contains(t, d.Message, "monitored normal operation")

	d, err = cb.OnEvent(ctx, Env{CBID: "cb2", AgentRole: "fallback"}, Event{HookEventName: EventSubagentStart}, 1000)
	require.NoError(t, err)
	assert.Contains(t, d.Message, "degraded safer backup")
}
