package pattern

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/dyluth/clan/internal/fileclaim"
	"github.com/dyluth/clan/internal/registry"
	"github.com/dyluth/clan/internal/statetransfer"
	"github.com/dyluth/clan/pkg/blackboard"
	"github.com/dyluth/clan/pkg/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func setupTestDeps(t *testing.T) Deps {
	mr := miniredis.NewMiniRedis()
	require.NoError(t, mr.Start())
	t.Cleanup(mr.Close)

	s, err := store.NewStore(&redis.Options{Addr: mr.Addr()}, "test-instance")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	bb := blackboard.New(s)
	return Deps{
		Store:      s,
		Registry:   registry.New(s),
		Blackboard: bb,
		Arbiter:    fileclaim.New(s, 30),
		Transfer:   statetransfer.New(bb),
	}
}

func TestRegistryLookupKnownPatterns(t *testing.T) {
	deps := setupTestDeps(t)
	reg := NewRegistry(deps)
	for _, name := range []string{
		"swarm", "pipeline", "circuit_breaker", "generator_critic",
		"hierarchical", "map_reduce", "jury", "chain_of_responsibility",
		"adversarial", "event_driven",
	} {
		require.NotNil(t, reg.Lookup(name), "expected engine for %s", name)
	}
}

func TestRegistryLookupUnknownPatternIsNil(t *testing.T) {
	deps := setupTestDeps(t)
	reg := NewRegistry(deps)
	require.Nil(t, reg.Lookup("no-such-pattern"))
}
