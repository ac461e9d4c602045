package externalio

import (
	"context"
	"fmt"
	"io"

	"github.com/dyluth/clan/pkg/store"
)

// Scans is the codebase-scan ingest.
type Scans struct {
	store  *store.Store
	stderr io.Writer
}

// NewScans builds a scan ingest writing best-effort failures to stderr.
func NewScans(s *store.Store, stderr io.Writer) *Scans {
	return &Scans{store: s, stderr: stderr}
}

// Ingest records a codebase-scan result. Returns the record id, or "" if
// the write failed.
func (s *Scans) Ingest(ctx context.Context, sessionID, project, scanType, content string, metadata map[string]string, nowMs int64) string {
	if content == "" {
		return ""
	}
	rec, err := s.store.RecordScan(ctx, &store.ScanRecord{
		SessionID:   sessionID,
		Project:     project,
		ScanType:    scanType,
		Content:     content,
		Metadata:    metadata,
		CreatedAtMs: nowMs,
	})
	if err != nil {
		fmt.Fprintf(s.stderr, "externalio: scan ingest failed: %v\n", err)
		return ""
	}
	return rec.ID
}
