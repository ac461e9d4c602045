// Package store provides the durable, transactional backing for the clan
// coordination runtime: agents, sessions, file claims, broadcasts, pipeline
// artefacts, circuit state, findings, checkpoints and feature workspaces.
//
// The backing engine is Redis. Single-row entities are stored as hashes,
// append-only collections as sorted sets ordered by creation sequence, and
// the handful of atomicity-sensitive operations (FileClaim take-over, Agent
// upsert, CircuitState read-modify-write) go through WATCH/MULTI/EXEC
// transactions or embedded Lua so that concurrent callers observe a single
// winner, never a torn write.
package store

import (
	"fmt"
	"regexp"
)

// idPattern is the identifier grammar from the hook protocol contract:
// opaque strings, letters/digits/underscore/hyphen, 1-64 characters.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// ValidID reports whether s matches the runtime's identifier grammar.
// Invalid ids are treated as "unknown" by callers, never passed to Redis.
func ValidID(s string) bool {
	return idPattern.MatchString(s)
}

// AgentStatus is the lifecycle state of an Agent row.
type AgentStatus string

const (
	AgentStatusRunning   AgentStatus = "running"
	AgentStatusCompleted AgentStatus = "completed"
	AgentStatusFailed    AgentStatus = "failed"
	AgentStatusCancelled AgentStatus = "cancelled"
)

// AgentSource identifies which surface spawned the agent.
type AgentSource string

const (
	AgentSourceCLI    AgentSource = "cli"
	AgentSourceServer AgentSource = "server"
)

// Agent is a single tracked child process spawned by the host CLI.
type Agent struct {
	ID            string      `json:"id"`
	SessionID     string      `json:"session_id"`
	Pattern       string      `json:"pattern,omitempty"`
	ParentAgentID string      `json:"parent_agent_id,omitempty"`
	PID           int         `json:"pid,omitempty"`
	PPID          int         `json:"ppid,omitempty"`
	SpawnedAt     int64       `json:"spawned_at"`
	CompletedAt   int64       `json:"completed_at,omitempty"`
	Status        AgentStatus `json:"status"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	Source        AgentSource `json:"source,omitempty"`
}

// Validate checks structural invariants of an Agent row.
func (a *Agent) Validate() error {
	if !ValidID(a.ID) {
		return fmt.Errorf("invalid agent id %q", a.ID)
	}
	if !ValidID(a.SessionID) {
		return fmt.Errorf("invalid session id %q", a.SessionID)
	}
	switch a.Status {
	case AgentStatusRunning, AgentStatusCompleted, AgentStatusFailed, AgentStatusCancelled:
	default:
		return fmt.Errorf("unknown agent status %q", a.Status)
	}
	return nil
}

// Session is a top-level user interaction lifetime; parent of agents, owner
// of file claims.
type Session struct {
	ID            string   `json:"id"`
	Project       string   `json:"project"`
	WorkingOn     string   `json:"working_on,omitempty"`
	StartedAt     int64    `json:"started_at"`
	LastHeartbeat int64    `json:"last_heartbeat"`
	CurrentPhase  string   `json:"current_phase,omitempty"`
	ActiveFiles   []string `json:"active_files,omitempty"`
	BlockedBy     []string `json:"blocked_by,omitempty"`
	NextAction    string   `json:"next_action,omitempty"`
}

// Validate checks structural invariants of a Session row.
func (s *Session) Validate() error {
	if !ValidID(s.ID) {
		return fmt.Errorf("invalid session id %q", s.ID)
	}
	if s.Project == "" {
		return fmt.Errorf("session %s: project cannot be empty", s.ID)
	}
	return nil
}

// BroadcastType tags a Broadcast row. Beyond the fixed vocabulary below,
// pattern engines may append their own domain tags freely.
type BroadcastType string

const (
	BroadcastStarted      BroadcastType = "started"
	BroadcastDone         BroadcastType = "done"
	BroadcastStateTransfer BroadcastType = "state_transfer"
	BroadcastTaskSpawned  BroadcastType = "task_spawned"
	BroadcastFinding      BroadcastType = "finding"
)

// Broadcast is a single append-only blackboard entry.
type Broadcast struct {
	ID           string        `json:"id"`
	SwarmID      string        `json:"swarm_id"`
	SenderAgent  string        `json:"sender_agent"`
	BroadcastType BroadcastType `json:"broadcast_type"`
	Payload      string        `json:"payload_json"`
	CreatedAtMs  int64         `json:"created_at_ms"`
}

// Validate checks structural invariants of a Broadcast row.
func (b *Broadcast) Validate() error {
	if !ValidID(b.SwarmID) {
		return fmt.Errorf("invalid swarm id %q", b.SwarmID)
	}
	if b.BroadcastType == "" {
		return fmt.Errorf("broadcast type cannot be empty")
	}
	return nil
}

// FileClaim is a project-scoped exclusive lock on a file path.
type FileClaim struct {
	FilePath   string `json:"file_path"`
	Project    string `json:"project"`
	SessionID  string `json:"session_id"`
	ClaimedAt  int64  `json:"claimed_at"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// Live reports whether the claim has not yet expired, evaluated at nowMs.
func (c *FileClaim) Live(nowMs int64) bool {
	if c.TTLSeconds <= 0 {
		return true
	}
	return nowMs-c.ClaimedAt <= c.TTLSeconds*1000
}

// PipelineArtifact is a typed output emitted by a pipeline stage.
type PipelineArtifact struct {
	PipelineID     string `json:"pipeline_id"`
	StageIndex     int    `json:"stage_index"`
	ArtifactType   string `json:"artifact_type"`
	ArtifactPath   string `json:"artifact_path,omitempty"`
	ArtifactContent string `json:"artifact_content,omitempty"`
	CreatedAtMs    int64  `json:"created_at_ms"`
}

// CircuitBreakerState is the finite lifecycle state of a breaker.
type CircuitBreakerState string

const (
	CircuitClosed   CircuitBreakerState = "closed"
	CircuitOpen     CircuitBreakerState = "open"
	CircuitHalfOpen CircuitBreakerState = "half-open"
)

// CircuitState is the persisted state of a single adaptive circuit breaker.
type CircuitState struct {
	CBID             string              `json:"cb_id"`
	State            CircuitBreakerState `json:"state"`
	FailureCount     int                 `json:"failure_count"`
	SuccessCount     int                 `json:"success_count"`
	CurrentThreshold int                 `json:"current_threshold"`
	WindowStartMs    int64               `json:"window_start_ms"`
	LastFailureAtMs  int64               `json:"last_failure_at_ms,omitempty"`
	LastSuccessAtMs  int64               `json:"last_success_at_ms,omitempty"`
	CreatedAtMs      int64               `json:"created_at_ms"`
	UpdatedAtMs      int64               `json:"updated_at_ms"`
}

// Finding is a cross-session research note.
type Finding struct {
	ID          string   `json:"id"`
	SessionID   string   `json:"session_id"`
	Topic       string   `json:"topic"`
	Finding     string   `json:"finding"`
	RelevantTo  []string `json:"relevant_to,omitempty"`
	CreatedAtMs int64    `json:"created_at_ms"`
}

// Learning is a best-effort session learning recorded by the External I/O
// Contracts' learning sink. Kind is one of the enumerated learning kinds
// (WORKING_SOLUTION, FAILED_APPROACH, ARCHITECTURAL_DECISION,
// CODEBASE_PATTERN, ERROR_FIX); Confidence is low/medium/high.
type Learning struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	Kind        string `json:"kind"`
	Content     string `json:"content"`
	Context     string `json:"context,omitempty"`
	Confidence  string `json:"confidence"`
	CreatedAtMs int64  `json:"created_at_ms"`
}

// ScanRecord is a best-effort codebase-scan ingest.
type ScanRecord struct {
	ID          string            `json:"id"`
	SessionID   string            `json:"session_id"`
	Project     string            `json:"project"`
	ScanType    string            `json:"scan_type"`
	Content     string            `json:"content"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	CreatedAtMs int64             `json:"created_at_ms"`
}

// Checkpoint is a team-awareness snapshot with an expiry.
type Checkpoint struct {
	ID          string `json:"id"`
	SessionID   string `json:"session_id"`
	Project     string `json:"project"`
	Content     string `json:"content"`
	CreatedAtMs int64  `json:"created_at_ms"`
	ExpiresAtMs int64  `json:"expires_at_ms"`
}

// FeatureWorkspace tracks a named unit of in-flight work for cross-session
// awareness.
type FeatureWorkspace struct {
	ID          string `json:"id"`
	Project     string `json:"project"`
	Name        string `json:"name"`
	OwnerSession string `json:"owner_session"`
	CreatedAtMs int64  `json:"created_at_ms"`
}
