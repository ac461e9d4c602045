// Package pattern implements the per-pattern coordination state machines
// (C5): swarm, pipeline, adaptive circuit breaker, and the lighter-weight
// contract-sketch patterns, each handling the subset of hook events it
// cares about and returning a typed Decision.
package pattern

import (
	"context"

	"github.com/dyluth/clan/internal/config"
	"github.com/dyluth/clan/internal/fileclaim"
	"github.com/dyluth/clan/internal/registry"
	"github.com/dyluth/clan/internal/statetransfer"
	"github.com/dyluth/clan/pkg/blackboard"
	"github.com/dyluth/clan/pkg/store"
)

// Event is one hook invocation's payload, decoded from stdin JSON.
type Event struct {
	HookEventName   string `json:"hook_event_name"`
	SessionID       string `json:"session_id"`
	TimestampMs     int64  `json:"timestamp"`
	ToolName        string `json:"tool_name,omitempty"`
	ToolInput       string `json:"tool_input,omitempty"`
	ToolResponse    string `json:"tool_response,omitempty"`
	AgentID         string `json:"agent_id,omitempty"`
	AgentType       string `json:"agent_type,omitempty"`
	StopHookActive  bool   `json:"stop_hook_active,omitempty"`
	Source          string `json:"source,omitempty"`
	Trigger         string `json:"trigger,omitempty"`
	TranscriptPath  string `json:"transcript_path,omitempty"`
	UserPrompt      string `json:"user_prompt,omitempty"`
}

const (
	EventSessionStart      = "SessionStart"
	EventUserPromptSubmit  = "UserPromptSubmit"
	EventPreToolUse        = "PreToolUse"
	EventPostToolUse       = "PostToolUse"
	EventSubagentStart     = "SubagentStart"
	EventSubagentStop      = "SubagentStop"
	EventStop              = "Stop"
	EventPreCompact        = "PreCompact"
	EventSessionEnd        = "SessionEnd"
)

// Env is the subset of the process environment the dispatcher parses per
// §6 before routing to a pattern engine.
type Env struct {
	PatternType         string
	SwarmID             string
	CBID                string
	AgentRole           string
	AgentID             string
	PipelineID          string
	StageIndex          int
	PipelineMandatory   bool
	SwarmStateTransfer  bool
	SwarmHandoffTarget  string
	CBInitialThreshold  int
	CBMinThreshold      int
	CBMaxThreshold      int
	CBAdaptationRate    float64
	CBWindowSizeSeconds int64
	ComposeWith         string
	ComposeScope        string
	ComposeSeq          string
}

// Result is the dispatcher-level verdict a pattern engine returns.
type Result string

const (
	ResultNoOp     Result = ""
	ResultContinue Result = "continue"
	ResultBlock    Result = "block"
)

// Decision is what a pattern engine hands back to the dispatcher, which
// marshals it to the hook protocol's stdout JSON.
type Decision struct {
	Result              Result
	Message             string
	HookSpecificOutput  map[string]any
	Learning            map[string]any
}

// NoOp is the empty decision: dispatcher emits {}.
func NoOp() Decision { return Decision{Result: ResultNoOp} }

// Continue builds a continue decision, optionally carrying a message.
func Continue(message string) Decision {
	return Decision{Result: ResultContinue, Message: message}
}

// Block builds a block decision. Only Stop and SubagentStop respect this;
// elsewhere the dispatcher passes it through and the host treats it as
// advisory.
func Block(message string) Decision {
	return Decision{Result: ResultBlock, Message: message}
}

// Deps are the component references every pattern engine is built from.
type Deps struct {
	Store      *store.Store
	Registry   *registry.Registry
	Blackboard *blackboard.Blackboard
	Arbiter    *fileclaim.Arbiter
	Transfer   *statetransfer.Transfer
	// Config carries coordination.yml's breaker/composition overrides. Nil
	// is valid — engines fall back to their built-in defaults.
	Config *config.Config
}

// Engine handles the subset of hook events a single pattern cares about.
// Events it does not implement should return NoOp(), nil.
type Engine interface {
	OnEvent(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error)
}

// Registry is the PATTERN_TYPE lookup table described in §9: pattern
// selection is a table, not a type hierarchy.
type Registry struct {
	engines map[string]Engine
}

// NewRegistry builds every known pattern engine over the given Deps.
func NewRegistry(deps Deps) *Registry {
	return &Registry{
		engines: map[string]Engine{
			"swarm":                  NewSwarm(deps),
			"pipeline":               NewPipeline(deps),
			"circuit_breaker":        NewCircuitBreaker(deps),
			"generator_critic":       NewGeneratorCritic(deps),
			"hierarchical":           NewHierarchical(deps),
			"map_reduce":             NewMapReduce(deps),
			"jury":                   NewJury(deps),
			"chain_of_responsibility": NewChainOfResponsibility(deps),
			"adversarial":            NewAdversarial(deps),
			"event_driven":           NewEventDriven(deps),
		},
	}
}

// Lookup returns the engine registered for patternType, or nil if none.
func (r *Registry) Lookup(patternType string) Engine {
	return r.engines[patternType]
}
