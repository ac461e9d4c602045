package pattern

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dyluth/clan/internal/statetransfer"
	"github.com/dyluth/clan/pkg/store"
)

// Swarm implements the swarm pattern (§4.5.a): a group of agents sharing a
// SWARM_ID, coordinated purely through Blackboard broadcasts. There is no
// dedicated swarm row — "in progress" is derived on every check from the
// distinct-sender counts.
type Swarm struct {
	deps Deps
}

// NewSwarm builds a Swarm engine over deps.
func NewSwarm(deps Deps) *Swarm { return &Swarm{deps: deps} }

func (sw *Swarm) OnEvent(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	switch event.HookEventName {
	case EventSubagentStart:
		return sw.onSubagentStart(ctx, env, event, nowMs)
	case EventPostToolUse:
		return sw.onPostToolUse(ctx, env, event, nowMs)
	case EventPreToolUse:
		return sw.onPreToolUse(ctx, env, event)
	case EventSubagentStop:
		return sw.onSubagentStop(ctx, env, event, nowMs)
	case EventStop:
		return sw.onStop(ctx, env, event)
	default:
		return NoOp(), nil
	}
}

func (sw *Swarm) onSubagentStart(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	if !env.SwarmStateTransfer || !store.ValidID(event.AgentID) {
		return NoOp(), nil
	}
	state, ok, err := sw.deps.Transfer.Restore(ctx, env.SwarmID, event.AgentID)
	if err != nil {
		return NoOp(), nil // Transient/Validation: log-and-noop, never block startup
	}
	if !ok {
		return NoOp(), nil
	}
	return Continue(fmt.Sprintf("state restored: progress=%d, %d pending task(s)", state.Progress, len(state.PendingTasks))), nil
}

// taskResponse is the shape this engine expects from a Task tool_response:
// the id of the agent it spawned.
type taskResponse struct {
	AgentID string `json:"agent_id"`
}

func (sw *Swarm) onPostToolUse(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	if event.ToolName != "Task" {
		return NoOp(), nil
	}
	sender := "unknown"
	var resp taskResponse
	if err := json.Unmarshal([]byte(event.ToolResponse), &resp); err == nil && store.ValidID(resp.AgentID) {
		sender = resp.AgentID
	}
	if _, err := sw.deps.Blackboard.Post(ctx, env.SwarmID, sender, store.BroadcastStarted, "{}", nowMs); err != nil {
		return NoOp(), nil
	}
	return NoOp(), nil
}

func (sw *Swarm) onPreToolUse(ctx context.Context, env Env, event Event) (Decision, error) {
	broadcasts, err := sw.deps.Blackboard.Read(ctx, env.SwarmID, store.BroadcastReadOptions{ExcludeSender: env.AgentID})
	if err != nil || len(broadcasts) == 0 {
		return NoOp(), nil
	}
	msg := "recent swarm activity:\n"
	for _, b := range broadcasts {
		msg += fmt.Sprintf("[%s] %s: %s", b.SenderAgent, b.BroadcastType, b.Payload) + "\n"
	}
	return Continue(msg), nil
}

// agentStateResponse is the shape a SubagentStop tool_response carries when
// it embeds handoff state alongside its normal output.
type agentStateResponse struct {
	Context      string   `json:"context"`
	Memory       string   `json:"memory"`
	Progress     int      `json:"progress"`
	PendingTasks []string `json:"pendingTasks"`
}

func (sw *Swarm) onSubagentStop(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	if !store.ValidID(event.AgentID) {
		return NoOp(), nil
	}
	if _, err := sw.deps.Blackboard.Post(ctx, env.SwarmID, event.AgentID, store.BroadcastDone, `{"auto":true}`, nowMs); err != nil {
		return NoOp(), nil
	}

	if env.SwarmHandoffTarget != "" && store.ValidID(env.SwarmHandoffTarget) {
		var resp agentStateResponse
		_ = json.Unmarshal([]byte(event.ToolResponse), &resp)
		state := statetransfer.AgentState{
			Context:      resp.Context,
			Memory:       resp.Memory,
			Progress:     resp.Progress,
			PendingTasks: resp.PendingTasks,
		}
		if err := sw.deps.Transfer.Publish(ctx, env.SwarmID, event.AgentID, env.SwarmHandoffTarget, state, nowMs); err != nil {
			// Validation/Transient: handoff intent is skipped, done is still recorded.
			return Continue("done recorded; handoff publish failed"), nil
		}
	}

	complete, err := sw.isComplete(ctx, env.SwarmID)
	if err == nil && complete {
		return Continue("all swarm members have reported done; synthesize the combined result"), nil
	}
	return Continue("done recorded"), nil
}

func (sw *Swarm) onStop(ctx context.Context, env Env, event Event) (Decision, error) {
	if event.StopHookActive {
		return Continue(""), nil
	}
	total, err := sw.deps.Blackboard.CountDistinctSenders(ctx, env.SwarmID)
	if err != nil {
		return NoOp(), nil
	}
	done, err := sw.deps.Blackboard.CountDistinctSendersByType(ctx, env.SwarmID, store.BroadcastDone)
	if err != nil {
		return NoOp(), nil
	}
	if done < total {
		missing := total - done
		return Block(fmt.Sprintf("Waiting for %d agent(s) to complete.", missing)), nil
	}
	return Continue("all swarm members complete; synthesize the combined result"), nil
}

func (sw *Swarm) isComplete(ctx context.Context, swarmID string) (bool, error) {
	total, err := sw.deps.Blackboard.CountDistinctSenders(ctx, swarmID)
	if err != nil {
		return false, err
	}
	done, err := sw.deps.Blackboard.CountDistinctSendersByType(ctx, swarmID, store.BroadcastDone)
	if err != nil {
		return false, err
	}
	return done >= total, nil
}
