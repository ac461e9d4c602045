package composition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPipelineThenPipelineHandoffIsValid(t *testing.T) {
	g := New()
	res := g.Validate(Request{PatternA: "pipeline", PatternB: "pipeline", Scope: ScopeHandoff, Sequencing: SeqThen})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestSwarmParallelSwarmIsWarned(t *testing.T) {
	g := New()
	res := g.Validate(Request{PatternA: "swarm", PatternB: "swarm", Scope: ScopeHandoff, Sequencing: SeqParallel})
	assert.True(t, res.Valid)
	assert.NotEmpty(t, res.Warnings)
}

func TestCircuitBreakerWithAnyPatternIsValid(t *testing.T) {
	g := New()
	res := g.Validate(Request{PatternA: "circuit_breaker", PatternB: "generator_critic", Scope: ScopeHandoff, Sequencing: SeqThen})
	assert.True(t, res.Valid)
	assert.Empty(t, res.Errors)
}

func TestCyclicHierarchicalIsInvalid(t *testing.T) {
	g := New()
	res := g.Validate(Request{PatternA: "hierarchical", PatternB: "hierarchical", Scope: ScopeShared, Sequencing: SeqThen})
	assert.False(t, res.Valid)
	assert.NotEmpty(t, res.Errors)
}

func TestUnknownScopeIsInvalid(t *testing.T) {
	g := New()
	res := g.Validate(Request{PatternA: "pipeline", PatternB: "pipeline", Scope: "bogus", Sequencing: SeqThen})
	assert.False(t, res.Valid)
}

func TestScopeTraceIsAlwaysRecorded(t *testing.T) {
	g := New()
	res := g.Validate(Request{PatternA: "pipeline", PatternB: "swarm", Scope: ScopeHandoff, Sequencing: SeqThen})
	assert.Len(t, res.ScopeTrace, 1)
}
