package store

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Serialization helpers for converting between Go structs and Redis hashes.
//
// Redis hashes are string-to-string maps; array fields are JSON-encoded into
// a single hash field to keep scalar fields individually queryable while
// still allowing complex structures.

func agentToHash(a *Agent) map[string]interface{} {
	return map[string]interface{}{
		"id":              a.ID,
		"session_id":      a.SessionID,
		"pattern":         a.Pattern,
		"parent_agent_id": a.ParentAgentID,
		"pid":             a.PID,
		"ppid":            a.PPID,
		"spawned_at":      a.SpawnedAt,
		"completed_at":    a.CompletedAt,
		"status":          string(a.Status),
		"error_message":   a.ErrorMessage,
		"source":          string(a.Source),
	}
}

func hashToAgent(hash map[string]string) (*Agent, error) {
	if len(hash) == 0 {
		return nil, ErrNotFound
	}
	pid, _ := strconv.Atoi(hash["pid"])
	ppid, _ := strconv.Atoi(hash["ppid"])
	spawnedAt, _ := strconv.ParseInt(hash["spawned_at"], 10, 64)
	completedAt, _ := strconv.ParseInt(hash["completed_at"], 10, 64)
	return &Agent{
		ID:            hash["id"],
		SessionID:     hash["session_id"],
		Pattern:       hash["pattern"],
		ParentAgentID: hash["parent_agent_id"],
		PID:           pid,
		PPID:          ppid,
		SpawnedAt:     spawnedAt,
		CompletedAt:   completedAt,
		Status:        AgentStatus(hash["status"]),
		ErrorMessage:  hash["error_message"],
		Source:        AgentSource(hash["source"]),
	}, nil
}

func sessionToHash(s *Session) (map[string]interface{}, error) {
	activeFilesJSON, err := json.Marshal(s.ActiveFiles)
	if err != nil {
		return nil, fmt.Errorf("marshal active_files: %w", err)
	}
	blockedByJSON, err := json.Marshal(s.BlockedBy)
	if err != nil {
		return nil, fmt.Errorf("marshal blocked_by: %w", err)
	}
	return map[string]interface{}{
		"id":             s.ID,
		"project":        s.Project,
		"working_on":     s.WorkingOn,
		"started_at":     s.StartedAt,
		"last_heartbeat": s.LastHeartbeat,
		"current_phase":  s.CurrentPhase,
		"active_files":   string(activeFilesJSON),
		"blocked_by":     string(blockedByJSON),
		"next_action":    s.NextAction,
	}, nil
}

func hashToSession(hash map[string]string) (*Session, error) {
	if len(hash) == 0 {
		return nil, ErrNotFound
	}
	startedAt, _ := strconv.ParseInt(hash["started_at"], 10, 64)
	lastHeartbeat, _ := strconv.ParseInt(hash["last_heartbeat"], 10, 64)

	var activeFiles []string
	if raw := hash["active_files"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &activeFiles); err != nil {
			return nil, fmt.Errorf("unmarshal active_files: %w", err)
		}
	}
	var blockedBy []string
	if raw := hash["blocked_by"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &blockedBy); err != nil {
			return nil, fmt.Errorf("unmarshal blocked_by: %w", err)
		}
	}

	return &Session{
		ID:            hash["id"],
		Project:       hash["project"],
		WorkingOn:     hash["working_on"],
		StartedAt:     startedAt,
		LastHeartbeat: lastHeartbeat,
		CurrentPhase:  hash["current_phase"],
		ActiveFiles:   activeFiles,
		BlockedBy:     blockedBy,
		NextAction:    hash["next_action"],
	}, nil
}

func fileClaimToHash(c *FileClaim) map[string]interface{} {
	return map[string]interface{}{
		"file_path":   c.FilePath,
		"project":     c.Project,
		"session_id":  c.SessionID,
		"claimed_at":  c.ClaimedAt,
		"ttl_seconds": c.TTLSeconds,
	}
}

func hashToFileClaim(hash map[string]string) (*FileClaim, error) {
	if len(hash) == 0 {
		return nil, ErrNotFound
	}
	claimedAt, _ := strconv.ParseInt(hash["claimed_at"], 10, 64)
	ttl, _ := strconv.ParseInt(hash["ttl_seconds"], 10, 64)
	return &FileClaim{
		FilePath:   hash["file_path"],
		Project:    hash["project"],
		SessionID:  hash["session_id"],
		ClaimedAt:  claimedAt,
		TTLSeconds: ttl,
	}, nil
}

func circuitStateToHash(c *CircuitState) map[string]interface{} {
	return map[string]interface{}{
		"cb_id":             c.CBID,
		"state":             string(c.State),
		"failure_count":     c.FailureCount,
		"success_count":     c.SuccessCount,
		"current_threshold": c.CurrentThreshold,
		"window_start_ms":   c.WindowStartMs,
		"last_failure_at_ms": c.LastFailureAtMs,
		"last_success_at_ms": c.LastSuccessAtMs,
		"created_at_ms":     c.CreatedAtMs,
		"updated_at_ms":     c.UpdatedAtMs,
	}
}

func hashToCircuitState(hash map[string]string) (*CircuitState, error) {
	if len(hash) == 0 {
		return nil, ErrNotFound
	}
	failureCount, _ := strconv.Atoi(hash["failure_count"])
	successCount, _ := strconv.Atoi(hash["success_count"])
	currentThreshold, _ := strconv.Atoi(hash["current_threshold"])
	windowStartMs, _ := strconv.ParseInt(hash["window_start_ms"], 10, 64)
	lastFailureAtMs, _ := strconv.ParseInt(hash["last_failure_at_ms"], 10, 64)
	lastSuccessAtMs, _ := strconv.ParseInt(hash["last_success_at_ms"], 10, 64)
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	updatedAtMs, _ := strconv.ParseInt(hash["updated_at_ms"], 10, 64)
	return &CircuitState{
		CBID:             hash["cb_id"],
		State:            CircuitBreakerState(hash["state"]),
		FailureCount:     failureCount,
		SuccessCount:     successCount,
		CurrentThreshold: currentThreshold,
		WindowStartMs:    windowStartMs,
		LastFailureAtMs:  lastFailureAtMs,
		LastSuccessAtMs:  lastSuccessAtMs,
		CreatedAtMs:      createdAtMs,
		UpdatedAtMs:      updatedAtMs,
	}, nil
}

func checkpointToHash(c *Checkpoint) map[string]interface{} {
	return map[string]interface{}{
		"id":            c.ID,
		"session_id":    c.SessionID,
		"project":       c.Project,
		"content":       c.Content,
		"created_at_ms": c.CreatedAtMs,
		"expires_at_ms": c.ExpiresAtMs,
	}
}

func hashToCheckpoint(hash map[string]string) (*Checkpoint, error) {
	if len(hash) == 0 {
		return nil, ErrNotFound
	}
	createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
	expiresAtMs, _ := strconv.ParseInt(hash["expires_at_ms"], 10, 64)
	return &Checkpoint{
		ID:          hash["id"],
		SessionID:   hash["session_id"],
		Project:     hash["project"],
		Content:     hash["content"],
		CreatedAtMs: createdAtMs,
		ExpiresAtMs: expiresAtMs,
	}, nil
}
