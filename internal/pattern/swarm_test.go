package pattern

import (
	"context"
	"testing"

	"github.com/dyluth/clan/internal/statetransfer"
	"github.com/dyluth/clan/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Mirrors spec §8 scenario 1: swarm completion.
func TestSwarmCompletionScenario(t *testing.T) {
	deps := setupTestDeps(t)
	sw := NewSwarm(deps)
	ctx := context.Background()
	env := Env{SwarmID: "s1"}

	for _, id := range []string{"a1", "a2", "a3"} {
		resp := `{"agent_id":"` + id + `"}`
		_, err := sw.OnEvent(ctx, env, Event{HookEventName: EventPostToolUse, ToolName: "Task", ToolResponse: resp}, 1000)
		require.NoError(t, err)
	}

	d, err := sw.OnEvent(ctx, env, Event{HookEventName: EventSubagentStop, AgentID: "a1"}, 1100)
	require.NoError(t, err)
	assert.Equal(t, ResultContinue, d.Result)

	d, err = sw.OnEvent(ctx, env, Event{HookEventName: EventStop}, 1200)
	require.NoError(t, err)
	assert.Equal(t, ResultBlock, d.Result)
	assert.Equal(t, "Waiting for 2 agent(s) to complete.", d.Message)

	_, err = sw.OnEvent(ctx, env, Event{HookEventName: EventSubagentStop, AgentID: "a2"}, 1300)
	require.NoError(t, err)
	_, err = sw.OnEvent(ctx, env, Event{HookEventName: EventSubagentStop, AgentID: "a3"}, 1400)
	require.NoError(t, err)

	d, err = sw.OnEvent(ctx, env, Event{HookEventName: EventStop}, 1500)
	require.NoError(t, err)
	assert.Equal(t, ResultContinue, d.Result)
}

func TestSwarmStopHookActiveShortCircuits(t *testing.T) {
	deps := setupTestDeps(t)
	sw := NewSwarm(deps)
	d, err := sw.OnEvent(context.Background(), Env{SwarmID: "s1"}, Event{HookEventName: EventStop, StopHookActive: true}, 1000)
	require.NoError(t, err)
	assert.Equal(t, ResultContinue, d.Result)
}

func TestSwarmSubagentStartRestoresState(t *testing.T) {
	deps := setupTestDeps(t)
	sw := NewSwarm(deps)
	ctx := context.Background()
	env := Env{SwarmID: "s1", SwarmStateTransfer: true, SwarmHandoffTarget: "agent-b"}

	state := statetransfer.AgentState{Progress: 42, PendingTasks: []string{"t1"}}
	require.NoError(t, deps.Transfer.Publish(ctx, "s1", "agent-a", "agent-b", state, 1000))

	d, err := sw.OnEvent(ctx, env, Event{HookEventName: EventSubagentStart, AgentID: "agent-b"}, 1100)
	require.NoError(t, err)
	assert.Equal(t, ResultContinue, d.Result)
	assert.Contains(t, d.Message, "progress=42")
}

func TestSwarmPreToolUseInjectsOtherSenderActivity(t *testing.T) {
	deps := setupTestDeps(t)
	sw := NewSwarm(deps)
	ctx := context.Background()
	env := Env{SwarmID: "s1", AgentID: "self"}

	_, err := deps.Blackboard.Post(ctx, "s1", "other", store.BroadcastStarted, "{}", 1000)
	require.NoError(t, err)

	d, err := sw.OnEvent(ctx, env, Event{HookEventName: EventPreToolUse}, 1100)
	require.NoError(t, err)
	assert.Equal(t, ResultContinue, d.Result)
	assert.Contains(t, d.Message, "other")
}
