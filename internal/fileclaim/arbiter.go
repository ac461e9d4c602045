// Package fileclaim implements the File Claim Arbiter (C6): project-scoped
// exclusive locks on file paths, with TTL expiry and atomic take-over.
package fileclaim

import (
	"context"
	"errors"

	"github.com/dyluth/clan/internal/clanerr"
	"github.com/dyluth/clan/pkg/store"
)

// fallbackTTLSeconds is used when New is given no positive default —
// matches internal/config's own LOCK_TTL default, so an Arbiter built
// without a Config still agrees with the documented default instead of
// silently outliving it.
const fallbackTTLSeconds = 30

// Arbiter arbitrates exclusive file claims.
type Arbiter struct {
	store             *store.Store
	defaultTTLSeconds int64
}

// New wraps an existing Store as an Arbiter. defaultTTLSeconds is used by
// Claim whenever a caller passes ttlSeconds <= 0; callers should supply
// internal/config's TTLs.LockSeconds rather than invent their own default.
// A value <= 0 falls back to fallbackTTLSeconds.
func New(s *store.Store, defaultTTLSeconds int64) *Arbiter {
	if defaultTTLSeconds <= 0 {
		defaultTTLSeconds = fallbackTTLSeconds
	}
	return &Arbiter{store: s, defaultTTLSeconds: defaultTTLSeconds}
}

// ClaimResult is the outcome of a Claim call.
type ClaimResult struct {
	Claimed bool
	By      string // set when Claimed is false: the current live owner
}

// Claim attempts to take exclusive ownership of path within project on
// behalf of sessionID. If a live claim by another session already exists,
// Claimed is false and By names the current owner. ttlSeconds <= 0 uses
// defaultTTLSeconds.
func (a *Arbiter) Claim(ctx context.Context, path, project, sessionID string, ttlSeconds int64, nowMs int64) (*ClaimResult, error) {
	if !store.ValidID(sessionID) {
		return nil, clanerr.Validation(errors.New("claim: invalid session id"))
	}
	if path == "" || project == "" {
		return nil, clanerr.Validation(errors.New("claim: path and project are required"))
	}
	if ttlSeconds <= 0 {
		ttlSeconds = a.defaultTTLSeconds
	}

	claim := &store.FileClaim{
		FilePath:   path,
		Project:    project,
		SessionID:  sessionID,
		ClaimedAt:  nowMs,
		TTLSeconds: ttlSeconds,
	}
	held, err := a.store.AcquireFileClaim(ctx, claim)
	if err != nil {
		return nil, clanerr.Transient(err)
	}
	if held {
		return &ClaimResult{Claimed: true}, nil
	}

	current, err := a.store.GetFileClaim(ctx, project, path)
	if err != nil {
		return nil, clanerr.Transient(err)
	}
	return &ClaimResult{Claimed: false, By: current.SessionID}, nil
}

// CheckResult is the outcome of a Check call.
type CheckResult struct {
	Claimed bool
	By      string
}

// Check reports whether path is claimed by any session other than me,
// taking TTL expiry into account.
func (a *Arbiter) Check(ctx context.Context, path, project, me string, nowMs int64) (*CheckResult, error) {
	claim, err := a.store.GetFileClaim(ctx, project, path)
	if err != nil {
		if store.IsNotFound(err) {
			return &CheckResult{Claimed: false}, nil
		}
		return nil, clanerr.Transient(err)
	}
	if claim.SessionID == me {
		return &CheckResult{Claimed: false}, nil
	}
	if !claim.Live(nowMs) {
		return &CheckResult{Claimed: false}, nil
	}
	return &CheckResult{Claimed: true, By: claim.SessionID}, nil
}

// Release drops a claim, but only if sessionID currently owns it.
func (a *Arbiter) Release(ctx context.Context, path, project, sessionID string) (bool, error) {
	released, err := a.store.ReleaseFileClaim(ctx, project, path, sessionID)
	if err != nil {
		return false, clanerr.Transient(err)
	}
	return released, nil
}
