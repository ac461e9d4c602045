package pattern

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dyluth/clan/pkg/store"
)

// GeneratorCritic implements the two-role loop sketched in §4.5.d: a
// generator produces work, a critic's verdict gates the generator's next
// turn. Structurally this is a two-agent pipeline keyed by AGENT_ROLE
// instead of STAGE_INDEX.
type GeneratorCritic struct {
	deps Deps
}

func NewGeneratorCritic(deps Deps) *GeneratorCritic { return &GeneratorCritic{deps: deps} }

type verdictResponse struct {
	Verdict string `json:"verdict"`
}

func (g *GeneratorCritic) OnEvent(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	switch event.HookEventName {
	case EventPreToolUse:
		if env.AgentRole != "generator" {
			return NoOp(), nil
		}
		broadcasts, err := g.deps.Blackboard.Read(ctx, env.SwarmID, store.BroadcastReadOptions{Limit: 1})
		if err != nil || len(broadcasts) == 0 {
			return NoOp(), nil
		}
		last := broadcasts[0]
		if last.BroadcastType != "critic_verdict" {
			return NoOp(), nil
		}
		return Continue(fmt.Sprintf("critic verdict: %s", last.Payload)), nil

	case EventSubagentStop:
		if env.AgentRole != "critic" {
			return NoOp(), nil
		}
		var resp verdictResponse
		_ = json.Unmarshal([]byte(event.ToolResponse), &resp)
		payload, _ := json.Marshal(resp)
		if _, err := g.deps.Blackboard.Post(ctx, env.SwarmID, event.AgentID, "critic_verdict", string(payload), nowMs); err != nil {
			return NoOp(), nil
		}
		return Continue(fmt.Sprintf("critic verdict recorded: %s", resp.Verdict)), nil

	default:
		return NoOp(), nil
	}
}

// Hierarchical implements parent/child coordination via parent_agent_id
// (§4.5.d): a parent's Stop blocks until every descendant it spawned has
// reached a terminal status.
type Hierarchical struct {
	deps Deps
}

func NewHierarchical(deps Deps) *Hierarchical { return &Hierarchical{deps: deps} }

func (h *Hierarchical) OnEvent(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	if event.HookEventName == EventSubagentStart {
		if _, err := h.deps.Blackboard.Post(ctx, env.SwarmID, event.AgentID, store.BroadcastTaskSpawned, event.AgentType, nowMs); err != nil {
			return NoOp(), nil
		}
		return NoOp(), nil
	}
	if event.HookEventName != EventStop {
		return NoOp(), nil
	}
	if event.StopHookActive {
		return Continue(""), nil
	}
	running, err := h.deps.Registry.ListRunning(ctx, event.SessionID)
	if err != nil {
		return NoOp(), nil
	}
	pending := 0
	for _, a := range running {
		if a.ParentAgentID == event.AgentID {
			pending++
		}
	}
	if pending > 0 {
		plural := "s"
		if pending == 1 {
			plural = ""
		}
		return Block(fmt.Sprintf("waiting for %d descendant%s to complete", pending, plural)), nil
	}
	return Continue("all descendants complete"), nil
}

// MapReduce implements fan-out/fan-in via swarm semantics, with a
// distinguished reducer role whose completion terminates the group
// (§4.5.d).
type MapReduce struct {
	deps Deps
}

func NewMapReduce(deps Deps) *MapReduce { return &MapReduce{deps: deps} }

const mapReduceReducerType store.BroadcastType = "reducer_done"

func (m *MapReduce) OnEvent(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	switch event.HookEventName {
	case EventSubagentStop:
		if env.AgentRole == "reducer" {
			if _, err := m.deps.Blackboard.Post(ctx, env.SwarmID, event.AgentID, mapReduceReducerType, "{}", nowMs); err != nil {
				return NoOp(), nil
			}
			return Continue("reducer complete; map-reduce group finished"), nil
		}
		if _, err := m.deps.Blackboard.Post(ctx, env.SwarmID, event.AgentID, store.BroadcastDone, `{"auto":true}`, nowMs); err != nil {
			return NoOp(), nil
		}
		return Continue("mapper done recorded"), nil

	case EventStop:
		if event.StopHookActive {
			return Continue(""), nil
		}
		n, err := m.deps.Blackboard.CountAny(ctx, env.SwarmID, mapReduceReducerType)
		if err != nil {
			return NoOp(), nil
		}
		if n == 0 {
			return Block("waiting for reducer to complete"), nil
		}
		return Continue("map-reduce group finished"), nil

	default:
		return NoOp(), nil
	}
}

// Jury implements a quorum vote (§4.5.d): N independent verdict broadcasts
// against a fixed quorum of defaultJuryQuorum (3); the quorum is not
// configurable.
type Jury struct {
	deps Deps
}

func NewJury(deps Deps) *Jury { return &Jury{deps: deps} }

const (
	defaultJuryQuorum                   = 3
	juryVerdictType store.BroadcastType = "verdict"
)

func (j *Jury) OnEvent(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	switch event.HookEventName {
	case EventSubagentStop:
		var resp verdictResponse
		_ = json.Unmarshal([]byte(event.ToolResponse), &resp)
		payload, _ := json.Marshal(resp)
		if _, err := j.deps.Blackboard.Post(ctx, env.SwarmID, event.AgentID, juryVerdictType, string(payload), nowMs); err != nil {
			return NoOp(), nil
		}
		return Continue("verdict recorded"), nil

	case EventStop:
		if event.StopHookActive {
			return Continue(""), nil
		}
		votes, err := j.deps.Blackboard.CountDistinctSendersByType(ctx, env.SwarmID, juryVerdictType)
		if err != nil {
			return NoOp(), nil
		}
		if votes < defaultJuryQuorum {
			return Block(fmt.Sprintf("waiting for jury quorum: %d/%d verdicts recorded", votes, defaultJuryQuorum)), nil
		}
		return Continue("jury quorum reached"), nil

	default:
		return NoOp(), nil
	}
}

// ChainOfResponsibility implements an ordered agent list (§4.5.d): each
// link either produces a terminal result or a "pass" broadcast advancing
// the chain.
type ChainOfResponsibility struct {
	deps Deps
}

func NewChainOfResponsibility(deps Deps) *ChainOfResponsibility { return &ChainOfResponsibility{deps: deps} }

const (
	chainResultType store.BroadcastType = "chain_result"
	chainPassType   store.BroadcastType = "chain_pass"
)

type chainResponse struct {
	Result string `json:"result"`
}

func (c *ChainOfResponsibility) OnEvent(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	switch event.HookEventName {
	case EventSubagentStop:
		var resp chainResponse
		_ = json.Unmarshal([]byte(event.ToolResponse), &resp)
		if resp.Result != "" {
			payload, _ := json.Marshal(resp)
			if _, err := c.deps.Blackboard.Post(ctx, env.SwarmID, event.AgentID, chainResultType, string(payload), nowMs); err != nil {
				return NoOp(), nil
			}
			return Continue("chain terminated with a result"), nil
		}
		if _, err := c.deps.Blackboard.Post(ctx, env.SwarmID, event.AgentID, chainPassType, "{}", nowMs); err != nil {
			return NoOp(), nil
		}
		return Continue("passed to the next link in the chain"), nil

	case EventStop:
		if event.StopHookActive {
			return Continue(""), nil
		}
		n, err := c.deps.Blackboard.CountAny(ctx, env.SwarmID, chainResultType)
		if err != nil {
			return NoOp(), nil
		}
		if n == 0 {
			return Block("chain has not yet produced a terminal result"), nil
		}
		return Continue("chain complete"), nil

	default:
		return NoOp(), nil
	}
}

// Adversarial and EventDriven carry domain-specific broadcast tags with no
// pattern-level blocking beyond swarm completion (§4.5.d): they delegate
// directly to the swarm state machine.
type Adversarial struct{ *Swarm }

func NewAdversarial(deps Deps) *Adversarial { return &Adversarial{Swarm: NewSwarm(deps)} }

type EventDriven struct{ *Swarm }

func NewEventDriven(deps Deps) *EventDriven { return &EventDriven{Swarm: NewSwarm(deps)} }
