// Package hook implements the Hook Dispatcher (C2): decodes one hook
// invocation from stdin JSON, resolves the environment into a
// pattern.Env, routes to the pattern engine named by PATTERN_TYPE, and
// encodes the resulting Decision back to stdout JSON.
//
// The dispatcher must never let a hook invocation fail the host tool
// call: any decode error, unknown pattern, or panic inside an engine
// degrades to the empty-object no-op response rather than a non-zero
// exit or an uncaught crash.
package hook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dyluth/clan/internal/composition"
	"github.com/dyluth/clan/internal/config"
	"github.com/dyluth/clan/internal/pattern"
	"github.com/dyluth/clan/pkg/store"
)

// stdinReadBudget bounds how long dispatch waits to read the hook body
// off stdin, per the child-process stdin read budget in the concurrency
// model.
const stdinReadBudget = 30 * time.Second

// output is the wire shape of the hook protocol's stdout JSON: either
// {} or {"result": ..., "message"?, "hookSpecificOutput"?, "learning"?}.
type output struct {
	Result             pattern.Result `json:"result,omitempty"`
	Message            string         `json:"message,omitempty"`
	HookSpecificOutput map[string]any `json:"hookSpecificOutput,omitempty"`
	Learning           map[string]any `json:"learning,omitempty"`
}

func noOpOutput() output { return output{} }

func decisionOutput(d pattern.Decision) output {
	if d.Result == pattern.ResultNoOp {
		return noOpOutput()
	}
	msg := d.Message
	if len(msg) > 2048 {
		msg = msg[:2048]
	}
	return output{
		Result:             d.Result,
		Message:            msg,
		HookSpecificOutput: d.HookSpecificOutput,
		Learning:           d.Learning,
	}
}

// EnvFromEnviron parses the hook environment-variable contract (§6) into
// a pattern.Env. Malformed numeric/bool overrides are ignored rather than
// treated as errors, since an env var typo must not fail the hook.
func EnvFromEnviron(getenv func(string) string) pattern.Env {
	env := pattern.Env{
		PatternType: getenv("PATTERN_TYPE"),
		SwarmID:     getenv("SWARM_ID"),
		CBID:        getenv("CB_ID"),
		AgentRole:   getenv("AGENT_ROLE"),
		AgentID:     getenv("AGENT_ID"),
		PipelineID:  getenv("PIPELINE_ID"),
	}
	if v, err := strconv.Atoi(getenv("STAGE_INDEX")); err == nil {
		env.StageIndex = v
	}
	if v, err := strconv.ParseBool(getenv("PIPELINE_MANDATORY")); err == nil {
		env.PipelineMandatory = v
	}
	if v, err := strconv.ParseBool(getenv("SWARM_STATE_TRANSFER")); err == nil {
		env.SwarmStateTransfer = v
	}
	env.SwarmHandoffTarget = getenv("SWARM_HANDOFF_TARGET")
	if v, err := strconv.Atoi(getenv("CB_INITIAL_THRESHOLD")); err == nil {
		env.CBInitialThreshold = v
	}
	if v, err := strconv.Atoi(getenv("CB_MIN_THRESHOLD")); err == nil {
		env.CBMinThreshold = v
	}
	if v, err := strconv.Atoi(getenv("CB_MAX_THRESHOLD")); err == nil {
		env.CBMaxThreshold = v
	}
	if v, err := strconv.ParseFloat(getenv("CB_ADAPTATION_RATE"), 64); err == nil {
		env.CBAdaptationRate = v
	}
	if v, err := strconv.ParseInt(getenv("CB_WINDOW_SIZE_SECONDS"), 10, 64); err == nil {
		env.CBWindowSizeSeconds = v
	}
	env.ComposeWith = getenv("COMPOSE_WITH")
	env.ComposeScope = getenv("COMPOSE_SCOPE")
	env.ComposeSeq = getenv("COMPOSE_SEQ")
	return env
}

// isNoOpEnv reports whether env carries none of the identifiers the
// dispatcher routes on — such an event has nothing to dispatch to.
func isNoOpEnv(env pattern.Env) bool {
	return env.PatternType == "" && env.SwarmID == "" && env.CBID == "" &&
		env.AgentRole == "" && env.PipelineID == ""
}

// validateIDs blanks any id-bearing field that fails the identifier
// grammar, per §6: invalid ids are treated as unknown, not fatal.
func validateIDs(env pattern.Env) pattern.Env {
	clean := func(id string) string {
		if id != "" && !store.ValidID(id) {
			return ""
		}
		return id
	}
	env.SwarmID = clean(env.SwarmID)
	env.CBID = clean(env.CBID)
	env.AgentID = clean(env.AgentID)
	env.PipelineID = clean(env.PipelineID)
	env.SwarmHandoffTarget = clean(env.SwarmHandoffTarget)
	return env
}

// Dispatcher wires a pattern.Registry to the stdin/stdout hook protocol.
type Dispatcher struct {
	registry  *pattern.Registry
	gate      *composition.Gate
	overrides []config.CompositionOverride
}

// New builds a Dispatcher over the given pattern registry. cfg may be nil,
// in which case the Composition Gate runs with no coordination.yml overrides.
func New(registry *pattern.Registry, cfg *config.Config) *Dispatcher {
	d := &Dispatcher{registry: registry, gate: composition.New()}
	if cfg != nil {
		d.overrides = cfg.Composition
	}
	return d
}

// matchesOverride reports whether override applies to req, treating "*" in
// either pattern field as a wildcard and an empty override scope as
// matching any scope.
func matchesOverride(override config.CompositionOverride, req composition.Request) bool {
	patternMatches := func(want string, got string) bool {
		return want == "*" || want == got
	}
	if !patternMatches(override.PatternA, req.PatternA) || !patternMatches(override.PatternB, req.PatternB) {
		return false
	}
	if override.Scope != "" && override.Scope != string(req.Scope) {
		return false
	}
	return true
}

// applyCompositionOverrides lets coordination.yml relax or tighten the
// gate's built-in policy verdict for a specific pattern pair. The last
// matching override wins.
func applyCompositionOverrides(res composition.Result, req composition.Request, overrides []config.CompositionOverride) composition.Result {
	for _, override := range overrides {
		if !matchesOverride(override, req) {
			continue
		}
		switch override.Verdict {
		case "valid":
			res.Valid = true
			res.Errors = nil
		case "invalid":
			res.Valid = false
			if override.Message != "" {
				res.Errors = append(res.Errors, override.Message)
			}
		case "warn":
			res.Valid = true
			res.Errors = nil
			if override.Message != "" {
				res.Warnings = append(res.Warnings, override.Message)
			}
		}
	}
	return res
}

// Run reads one hook event from r, dispatches it, and writes the
// resulting stdout JSON to w. It never returns a non-nil error for a
// dispatch-time failure — those are logged to stderr and reported as a
// no-op — only for I/O failures writing the response itself.
func (d *Dispatcher) Run(ctx context.Context, r io.Reader, w io.Writer, stderr io.Writer, getenv func(string) string, nowMs int64) error {
	out := d.dispatch(ctx, r, stderr, getenv, nowMs)
	enc := json.NewEncoder(w)
	return enc.Encode(out)
}

func (d *Dispatcher) dispatch(ctx context.Context, r io.Reader, stderr io.Writer, getenv func(string) string, nowMs int64) (result output) {
	defer func() {
		if rec := recover(); rec != nil {
			fmt.Fprintf(stderr, "hook: recovered panic: %v\n", rec)
			result = noOpOutput()
		}
	}()

	ctx, cancel := context.WithTimeout(ctx, stdinReadBudget)
	defer cancel()

	body, err := readAll(ctx, r)
	if err != nil {
		fmt.Fprintf(stderr, "hook: reading stdin: %v\n", err)
		return noOpOutput()
	}

	var event pattern.Event
	if err := json.Unmarshal(body, &event); err != nil {
		fmt.Fprintf(stderr, "hook: decoding event: %v\n", err)
		return noOpOutput()
	}

	// A stop_hook_active=true observation must return continue without
	// side effects, independent of which pattern (if any) is active.
	if event.HookEventName == pattern.EventStop && event.StopHookActive {
		return decisionOutput(pattern.Continue(""))
	}

	env := validateIDs(EnvFromEnviron(getenv))
	if isNoOpEnv(env) {
		return noOpOutput()
	}

	engine := d.registry.Lookup(env.PatternType)
	if engine == nil {
		return noOpOutput()
	}

	if env.ComposeWith != "" {
		req := composition.Request{
			PatternA:   env.PatternType,
			PatternB:   env.ComposeWith,
			Scope:      composition.Scope(env.ComposeScope),
			Sequencing: composition.Sequencing(env.ComposeSeq),
		}
		res := d.gate.Validate(req)
		res = applyCompositionOverrides(res, req, d.overrides)
		if !res.Valid {
			return decisionOutput(pattern.Block(fmt.Sprintf("composition %s %s %s rejected: %s", req.PatternA, req.Sequencing, req.PatternB, strings.Join(res.Errors, "; "))))
		}
	}

	decision, err := engine.OnEvent(ctx, env, event, nowMs)
	if err != nil {
		fmt.Fprintf(stderr, "hook: %s(%s): %v\n", env.PatternType, event.HookEventName, err)
		return noOpOutput()
	}
	return decisionOutput(decision)
}

// readAll drains r, honoring ctx's deadline via a background goroutine
// since io.Reader has no native cancellation.
func readAll(ctx context.Context, r io.Reader) ([]byte, error) {
	type result struct {
		body []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := io.ReadAll(r)
		done <- result{body, err}
	}()
	select {
	case res := <-done:
		return res.body, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// RunFromOS is the cmd/hookd entrypoint: os.Stdin/os.Stdout/os.Stderr and
// the real process environment.
func (d *Dispatcher) RunFromOS(ctx context.Context, nowMs int64) error {
	return d.Run(ctx, os.Stdin, os.Stdout, os.Stderr, os.Getenv, nowMs)
}
