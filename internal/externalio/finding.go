package externalio

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/clan/pkg/blackboard"
	"github.com/dyluth/clan/pkg/store"
)

// Findings is the cross-session research-notes sink: unlike a Learning
// (scoped to one session's transcript), a Finding is meant to be recalled
// by a different session working the same topic later, so ListFindings is
// keyed by topic rather than session id.
type Findings struct {
	store  *store.Store
	bb     *blackboard.Blackboard
	stderr io.Writer
}

// NewFindings builds a finding sink writing best-effort failures to stderr.
func NewFindings(s *store.Store, bb *blackboard.Blackboard, stderr io.Writer) *Findings {
	return &Findings{store: s, bb: bb, stderr: stderr}
}

// Record persists a finding under topic and, when swarmID is non-empty,
// also posts it to that swarm's blackboard as a BroadcastFinding so agents
// still in flight see it without polling ListFindings themselves. Returns
// the finding id, or "" if the write failed.
func (f *Findings) Record(ctx context.Context, sessionID, swarmID, topic, finding string, relevantTo []string, nowMs int64) string {
	if finding == "" {
		return ""
	}
	rec, err := f.store.RecordFinding(ctx, &store.Finding{
		SessionID:   sessionID,
		Topic:       topic,
		Finding:     finding,
		RelevantTo:  relevantTo,
		CreatedAtMs: nowMs,
	})
	if err != nil {
		fmt.Fprintf(f.stderr, "externalio: finding record failed: %v\n", err)
		return ""
	}

	if swarmID != "" {
		if _, err := f.bb.Post(ctx, swarmID, sessionID, store.BroadcastFinding, finding, nowMs); err != nil {
			fmt.Fprintf(f.stderr, "externalio: finding broadcast failed: %v\n", err)
		}
	}
	return rec.ID
}

// List returns findings recorded under topic, newest first, capped at limit.
func (f *Findings) List(ctx context.Context, topic string, limit int64) ([]*store.Finding, error) {
	findings, err := f.store.ListFindings(ctx, topic, limit)
	if err != nil {
		return nil, fmt.Errorf("list findings: %w", err)
	}
	return findings, nil
}
