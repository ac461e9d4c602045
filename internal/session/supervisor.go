// Package session implements the Session Supervisor (C9): heartbeats live
// sessions, exposes the "active sessions" view for cross-session awareness,
// and gates startup on backing-store readiness.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/dyluth/clan/internal/clanerr"
	"github.com/dyluth/clan/pkg/store"
)

// staleAfter is the window past which a session's last heartbeat is
// considered stale, per spec §3.
const staleAfter = 5 * time.Minute

// fallbackHeartbeatTTLSeconds matches internal/config's own HEARTBEAT_TTL
// default, used when New is given no positive TTL.
const fallbackHeartbeatTTLSeconds = 90

// Supervisor heartbeats and lists active sessions.
type Supervisor struct {
	store             *store.Store
	heartbeatTTLSeconds int64
}

// New wraps an existing Store as a Supervisor. heartbeatTTLSeconds backs
// every session hash with a Redis-level expiry as a safety net alongside
// the application-level staleness window: internal/config's TTLs.
// HeartbeatSeconds is the intended source. A value <= 0 falls back to
// fallbackHeartbeatTTLSeconds.
func New(s *store.Store, heartbeatTTLSeconds int64) *Supervisor {
	if heartbeatTTLSeconds <= 0 {
		heartbeatTTLSeconds = fallbackHeartbeatTTLSeconds
	}
	return &Supervisor{store: s, heartbeatTTLSeconds: heartbeatTTLSeconds}
}

// Touch records a heartbeat for sessionID, creating the session row on
// first sight (SessionStart, SubagentStart, SubagentStop all call this).
func (s *Supervisor) Touch(ctx context.Context, sessionID, project string, nowMs int64) error {
	if !store.ValidID(sessionID) {
		return clanerr.Validation(errors.New("touch: invalid session id"))
	}
	existing, err := s.store.GetSession(ctx, sessionID)
	if err != nil && !store.IsNotFound(err) {
		return clanerr.Transient(err)
	}
	if existing == nil {
		sess := &store.Session{ID: sessionID, Project: project, StartedAt: nowMs, LastHeartbeat: nowMs}
		if err := s.store.UpsertSession(ctx, sess, s.heartbeatTTLSeconds); err != nil {
			return clanerr.Transient(err)
		}
		return nil
	}
	if err := s.store.Heartbeat(ctx, sessionID, nowMs, s.heartbeatTTLSeconds); err != nil {
		return clanerr.Transient(err)
	}
	return nil
}

// ListActive returns sessions whose last_heartbeat is within the 5 minute
// staleness window, evaluated at nowMs.
func (s *Supervisor) ListActive(ctx context.Context, nowMs int64) ([]*store.Session, error) {
	sessions, err := s.store.ListActiveSessions(ctx, nowMs-staleAfter.Milliseconds())
	if err != nil {
		return nil, clanerr.Transient(err)
	}
	return sessions, nil
}

// IsActive reports whether a session's last heartbeat is within the
// staleness window as of nowMs.
func IsActive(sess *store.Session, nowMs int64) bool {
	return nowMs-sess.LastHeartbeat <= staleAfter.Milliseconds()
}

// WaitReady blocks until the backing store answers Ping, or timeout
// elapses, whichever comes first. Used by cmd/agentctl serve at startup —
// grounded on the docker-startup readiness gate the original Python source
// runs before declaring a session ready.
func (s *Supervisor) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	backoff := 100 * time.Millisecond
	for {
		if err := s.store.Ping(ctx); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return clanerr.Transient(errors.New("wait ready: backing store still unreachable after timeout"))
		}
		select {
		case <-ctx.Done():
			return clanerr.Transient(ctx.Err())
		case <-time.After(backoff):
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}
