// Package registry implements the Agent Registry (C3): the source of truth
// for "who is running", backed by pkg/store's Agent operations.
package registry

import (
	"context"
	"errors"
	"time"

	"github.com/dyluth/clan/internal/clanerr"
	"github.com/dyluth/clan/pkg/store"
)

// maxAgentAge is the presumed-leaked threshold: a running agent older than
// this is garbage-collected by Sweep.
const maxAgentAge = 24 * time.Hour

// Registry tracks every running agent's id, session, pattern, parent, pid,
// status, and timestamps.
type Registry struct {
	store *store.Store
}

// New wraps an existing Store as a Registry.
func New(s *store.Store) *Registry {
	return &Registry{store: s}
}

// Register upserts the agent row (idempotent on id) and marks it running.
func (r *Registry) Register(ctx context.Context, a *store.Agent) error {
	if !store.ValidID(a.ID) || !store.ValidID(a.SessionID) {
		return clanerr.Validation(errors.New("register: invalid agent or session id"))
	}
	if a.Status == "" {
		a.Status = store.AgentStatusRunning
	}
	if err := r.store.RegisterAgent(ctx, a); err != nil {
		return clanerr.Transient(err)
	}
	return nil
}

// Complete marks an agent terminal. A no-op if the id is unknown — agents
// may terminate via a path that skips the registry.
func (r *Registry) Complete(ctx context.Context, id string, status store.AgentStatus, nowMs int64, errMsg string) error {
	if !store.ValidID(id) {
		return nil
	}
	if err := r.store.CompleteAgent(ctx, id, status, nowMs, errMsg); err != nil {
		return clanerr.Transient(err)
	}
	return nil
}

// CountRunning returns how many agents are currently running.
func (r *Registry) CountRunning(ctx context.Context) (int, error) {
	n, err := r.store.CountRunning(ctx)
	if err != nil {
		return 0, clanerr.Transient(err)
	}
	return int(n), nil
}

// ListRunning returns every currently-running agent, optionally filtered to
// a single session.
func (r *Registry) ListRunning(ctx context.Context, sessionID string) ([]*store.Agent, error) {
	agents, err := r.store.ListRunning(ctx)
	if err != nil {
		return nil, clanerr.Transient(err)
	}
	if sessionID == "" {
		return agents, nil
	}
	filtered := make([]*store.Agent, 0, len(agents))
	for _, a := range agents {
		if a.SessionID == sessionID {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// Sweep marks agents that have been running longer than maxAgentAge as
// failed, guarding against leaked rows from crashed processes.
func (r *Registry) Sweep(ctx context.Context, nowMs int64) (int, error) {
	swept, err := r.store.SweepLeakedAgents(ctx, nowMs, maxAgentAge)
	if err != nil {
		return 0, clanerr.Transient(err)
	}
	return swept, nil
}
