// Package externalio implements the best-effort sinks in the External
// I/O Contracts: the learning sink, the codebase-scan ingest and the
// findings sink. None of them blocks or fails the host tool call — a
// Store write failure degrades to an empty id, logged to stderr and
// swallowed.
package externalio

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/clan/pkg/store"
)

// LearningKind is one of the enumerated learning kinds the sink accepts.
type LearningKind string

const (
	LearningWorkingSolution       LearningKind = "WORKING_SOLUTION"
	LearningFailedApproach        LearningKind = "FAILED_APPROACH"
	LearningArchitecturalDecision LearningKind = "ARCHITECTURAL_DECISION"
	LearningCodebasePattern       LearningKind = "CODEBASE_PATTERN"
	LearningErrorFix              LearningKind = "ERROR_FIX"
)

func validLearningKind(k string) bool {
	switch LearningKind(k) {
	case LearningWorkingSolution, LearningFailedApproach, LearningArchitecturalDecision,
		LearningCodebasePattern, LearningErrorFix:
		return true
	}
	return false
}

// Learnings is the learning sink.
type Learnings struct {
	store  *store.Store
	stderr io.Writer
}

// NewLearnings builds a learning sink writing best-effort failures to
// stderr.
func NewLearnings(s *store.Store, stderr io.Writer) *Learnings {
	return &Learnings{store: s, stderr: stderr}
}

// Store records a learning. An unknown kind is coerced to
// CODEBASE_PATTERN rather than rejected, since the sink must degrade
// silently, not surface a validation error to the caller. A blank
// confidence is filled in by ScoreConfidence.
//
// Returns the learning id, or "" if the write failed — the sink never
// returns an error the caller must handle.
func (l *Learnings) Store(ctx context.Context, sessionID, kind, content, learningContext, confidence string, nowMs int64) string {
	if content == "" {
		return ""
	}
	if !validLearningKind(kind) {
		kind = string(LearningCodebasePattern)
	}
	if !ValidConfidence(confidence) {
		confidence = string(ScoreConfidence(content))
	}

	rec, err := l.store.RecordLearning(ctx, &store.Learning{
		SessionID:   sessionID,
		Kind:        kind,
		Content:     content,
		Context:     learningContext,
		Confidence:  confidence,
		CreatedAtMs: nowMs,
	})
	if err != nil {
		fmt.Fprintf(l.stderr, "externalio: learning store failed: %v\n", err)
		return ""
	}
	return rec.ID
}
