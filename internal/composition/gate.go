// Package composition implements the Composition Gate (C8): validating
// that two patterns may be composed under a scope and sequencing operator
// before the dispatcher is allowed to enter the composed pattern.
package composition

import "fmt"

// Scope is how state is shared across the composed patterns.
type Scope string

const (
	ScopeHandoff Scope = "handoff"
	ScopeShared  Scope = "shared"
)

// Sequencing is how the two patterns are ordered relative to each other.
type Sequencing string

const (
	SeqThen     Sequencing = ";"
	SeqParallel Sequencing = "||"
)

// Request describes a proposed composition of two patterns.
type Request struct {
	PatternA   string
	PatternB   string
	Scope      Scope
	Sequencing Sequencing
}

// Result is the gate's verdict.
type Result struct {
	Valid      bool
	Errors     []string
	Warnings   []string
	ScopeTrace []string
}

const wildcard = "*"

// Gate validates pattern-pair compositions against a fixed policy table.
type Gate struct{}

// New constructs a Gate. It carries no state; policy is a pure function of
// the request.
func New() *Gate { return &Gate{} }

// Validate returns {valid, errors[], warnings[], scope_trace[]} for a
// proposed composition. The dispatcher must refuse to enter any composed
// pattern for which Valid is false.
func (g *Gate) Validate(req Request) Result {
	res := Result{Valid: true}
	res.ScopeTrace = append(res.ScopeTrace, fmt.Sprintf("%s %s %s (scope=%s)", req.PatternA, req.Sequencing, req.PatternB, req.Scope))

	switch req.Scope {
	case ScopeHandoff, ScopeShared:
	default:
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("unknown scope operator %q", req.Scope))
	}
	switch req.Sequencing {
	case SeqThen, SeqParallel:
	default:
		res.Valid = false
		res.Errors = append(res.Errors, fmt.Sprintf("unknown sequencing operator %q", req.Sequencing))
	}
	if !res.Valid {
		return res
	}

	switch {
	case req.PatternA == "pipeline" && req.PatternB == "pipeline" && req.Sequencing == SeqThen && req.Scope == ScopeHandoff:
		// valid: sequential pipelines handing state to one another

	case req.PatternA == "swarm" && req.PatternB == "swarm" && req.Sequencing == SeqParallel:
		res.Warnings = append(res.Warnings, "swarm || swarm: concurrent agent pools may exhaust the agent budget")

	case req.PatternA == "circuit_breaker" || req.PatternB == "circuit_breaker":
		// circuit_breaker ; * (or || *) is always valid: it wraps any
		// other pattern without constraining its semantics.

	case req.PatternA == "hierarchical" && req.PatternB == "hierarchical":
		if req.Scope == ScopeShared {
			res.Valid = false
			res.Errors = append(res.Errors, "cyclic hierarchical nesting is invalid")
		}

	case req.PatternA == wildcard || req.PatternB == wildcard:
		// explicit wildcard requests are accepted with no further checks

	default:
		// no policy entry forbids this pair; allow by default but flag it
		// as unvetted so callers can decide whether to proceed.
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s %s %s: no explicit policy entry, allowed by default", req.PatternA, req.Sequencing, req.PatternB))
	}

	if req.Scope == ScopeShared && (req.PatternA == "swarm" || req.PatternB == "swarm") {
		res.Warnings = append(res.Warnings, "shared scope with swarm: concurrent writers to shared state, ensure idempotent broadcasts")
	}

	return res
}
