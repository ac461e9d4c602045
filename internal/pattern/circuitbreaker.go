package pattern

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/dyluth/clan/internal/config"
	"github.com/dyluth/clan/pkg/store"
)

const (
	defaultInitialThreshold  = 3
	defaultMinThreshold      = 1
	defaultMaxThreshold      = 10
	defaultAdaptationRate    = 0.2
	defaultWindowSizeSeconds = 60
)

// CircuitBreaker implements the adaptive circuit breaker pattern (§4.5.c).
type CircuitBreaker struct {
	deps Deps
}

// NewCircuitBreaker builds a CircuitBreaker engine over deps.
func NewCircuitBreaker(deps Deps) *CircuitBreaker { return &CircuitBreaker{deps: deps} }

type breakerParams struct {
	initial, min, max int
	adaptationRate    float64
	windowSizeMs      int64
}

// resolveParams layers three sources, lowest precedence first: the §4.5.c
// built-in defaults, then a coordination.yml breaker override for env.CBID,
// then the CB_* environment overrides, which win over everything.
func resolveParams(env Env, cfg *config.Config) breakerParams {
	p := breakerParams{
		initial:        defaultInitialThreshold,
		min:            defaultMinThreshold,
		max:            defaultMaxThreshold,
		adaptationRate: defaultAdaptationRate,
		windowSizeMs:   defaultWindowSizeSeconds * 1000,
	}
	if cfg != nil {
		if override, ok := cfg.Breakers[env.CBID]; ok {
			if override.InitialThreshold > 0 {
				p.initial = override.InitialThreshold
			}
			if override.MinThreshold > 0 {
				p.min = override.MinThreshold
			}
			if override.MaxThreshold > 0 {
				p.max = override.MaxThreshold
			}
			if override.AdaptationRate > 0 {
				p.adaptationRate = override.AdaptationRate
			}
			if override.WindowSizeSeconds > 0 {
				p.windowSizeMs = override.WindowSizeSeconds * 1000
			}
		}
	}
	if env.CBInitialThreshold > 0 {
		p.initial = env.CBInitialThreshold
	}
	if env.CBMinThreshold > 0 {
		p.min = env.CBMinThreshold
	}
	if env.CBMaxThreshold > 0 {
		p.max = env.CBMaxThreshold
	}
	if env.CBAdaptationRate > 0 {
		p.adaptationRate = env.CBAdaptationRate
	}
	if env.CBWindowSizeSeconds > 0 {
		p.windowSizeMs = env.CBWindowSizeSeconds * 1000
	}
	return p
}

func (cb *CircuitBreaker) OnEvent(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	switch event.HookEventName {
	case EventSubagentStart:
		return cb.onSubagentStart(ctx, env, nowMs)
	case EventPostToolUse:
		return cb.onPostToolUse(ctx, env, event, nowMs)
	case EventSubagentStop:
		return NoOp(), nil // no summary is read or logged on SubagentStop
	case EventStop:
		return cb.onStop(ctx, env)
	default:
		return NoOp(), nil
	}
}

func (cb *CircuitBreaker) onSubagentStart(ctx context.Context, env Env, nowMs int64) (Decision, error) {
	params := resolveParams(env, cb.deps.Config)
	state, err := cb.deps.Store.GetOrCreateCircuitState(ctx, env.CBID, params.initial, nowMs)
	if err != nil {
		return NoOp(), nil
	}
	switch {
	case env.AgentRole == "primary" && state.State == store.CircuitClosed:
		return Continue("monitored normal operation"), nil
	case env.AgentRole == "primary" && state.State == store.CircuitHalfOpen:
		return Continue("a single failure reopens the circuit"), nil
	case env.AgentRole == "fallback":
		return Continue("you are a degraded safer backup"), nil
	default:
		return NoOp(), nil
	}
}

type toolResponsePayload struct {
	ExitCode int    `json:"exit_code"`
	Error    string `json:"error"`
}

func isFailure(event Event) bool {
	var resp toolResponsePayload
	_ = json.Unmarshal([]byte(event.ToolResponse), &resp)
	if event.ToolName == "Bash" && resp.ExitCode != 0 {
		return true
	}
	return resp.Error != ""
}

// recomputeThreshold applies the adaptation formula from §4.5.c. Rounding
// is directional (floor when shrinking, ceil when growing) rather than
// nearest-integer, so a threshold under sustained one-sided pressure
// actually reaches its bound instead of stalling on a repeating fraction.
func recomputeThreshold(current int, failureRate float64, params breakerParams) int {
	var next float64
	var rounded int
	if failureRate > 0.5 {
		next = float64(current) - params.adaptationRate*float64(current)
		rounded = int(math.Floor(next))
	} else {
		next = float64(current) + params.adaptationRate*(1-failureRate)*float64(current)
		rounded = int(math.Ceil(next))
	}
	if rounded < params.min {
		rounded = params.min
	}
	if rounded > params.max {
		rounded = params.max
	}
	return rounded
}

func (cb *CircuitBreaker) onPostToolUse(ctx context.Context, env Env, event Event, nowMs int64) (Decision, error) {
	if env.AgentRole != "primary" {
		return NoOp(), nil
	}
	params := resolveParams(env, cb.deps.Config)
	failed := isFailure(event)

	_, err := cb.deps.Store.UpdateCircuitState(ctx, env.CBID, params.initial, nowMs, func(state *store.CircuitState) {
		if nowMs-state.WindowStartMs > params.windowSizeMs {
			state.FailureCount = 0
			state.SuccessCount = 0
			state.WindowStartMs = nowMs
		}

		if failed {
			state.FailureCount++
			state.LastFailureAtMs = nowMs
			rate := failureRate(state)
			state.CurrentThreshold = recomputeThreshold(state.CurrentThreshold, rate, params)
			switch state.State {
			case store.CircuitClosed:
				if state.FailureCount >= state.CurrentThreshold {
					state.State = store.CircuitOpen
				}
			case store.CircuitHalfOpen:
				state.State = store.CircuitOpen
			case store.CircuitOpen:
				// stays open; timed re-test is out of scope, only success recovers
			}
		} else {
			state.SuccessCount++
			state.LastSuccessAtMs = nowMs
			rate := failureRate(state)
			state.CurrentThreshold = recomputeThreshold(state.CurrentThreshold, rate, params)
			switch state.State {
			case store.CircuitOpen:
				state.State = store.CircuitHalfOpen
			case store.CircuitHalfOpen:
				state.State = store.CircuitClosed
				state.FailureCount = 0
			case store.CircuitClosed:
				// stays closed
			}
		}

		state.UpdatedAtMs = nowMs
	})
	if err != nil {
		return NoOp(), nil
	}
	return NoOp(), nil
}

func failureRate(state *store.CircuitState) float64 {
	total := state.FailureCount + state.SuccessCount
	if total == 0 {
		return 0
	}
	return float64(state.FailureCount) / float64(total)
}

func (cb *CircuitBreaker) onStop(ctx context.Context, env Env) (Decision, error) {
	state, err := cb.deps.Store.GetCircuitState(ctx, env.CBID)
	if err != nil {
		return NoOp(), nil
	}
	msg := fmt.Sprintf(
		"breaker %s: state=%s threshold=%d failures=%d successes=%d failure_rate=%.2f last_failure=%d last_success=%d",
		env.CBID, state.State, state.CurrentThreshold, state.FailureCount, state.SuccessCount,
		failureRate(state), state.LastFailureAtMs, state.LastSuccessAtMs,
	)
	return Continue(msg), nil
}
