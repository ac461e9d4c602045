package store

import "fmt"

// Redis key and channel pattern helpers.
//
// All keys and Pub/Sub channels are namespaced by instance name so that
// multiple clan instances can safely coexist on a single Redis server.
//
// Key pattern:     clan:{instance}:{entity}:{id}
// Channel pattern: clan:{instance}:{entity}:{id}:{event}

// SessionKey returns the Redis key for a session hash.
func SessionKey(instance, sessionID string) string {
	return fmt.Sprintf("clan:%s:session:%s", instance, sessionID)
}

// SessionsIndexKey returns the key for the sorted set of active session ids,
// scored by last_heartbeat, used by the Session Supervisor's list_active.
func SessionsIndexKey(instance string) string {
	return fmt.Sprintf("clan:%s:sessions_by_heartbeat", instance)
}

// AgentKey returns the Redis key for an agent hash.
func AgentKey(instance, agentID string) string {
	return fmt.Sprintf("clan:%s:agent:%s", instance, agentID)
}

// AgentsRunningKey returns the key for the set of currently-running agent ids.
func AgentsRunningKey(instance string) string {
	return fmt.Sprintf("clan:%s:agents_running", instance)
}

// AgentsBySessionKey returns the key for the set of agent ids under a session.
func AgentsBySessionKey(instance, sessionID string) string {
	return fmt.Sprintf("clan:%s:session:%s:agents", instance, sessionID)
}

// BroadcastStreamKey returns the key for a swarm's broadcast sorted set,
// scored by creation sequence.
func BroadcastStreamKey(instance, swarmID string) string {
	return fmt.Sprintf("clan:%s:swarm:%s:broadcasts", instance, swarmID)
}

// BroadcastKey returns the key for a single broadcast's hash.
func BroadcastKey(instance, broadcastID string) string {
	return fmt.Sprintf("clan:%s:broadcast:%s", instance, broadcastID)
}

// BroadcastEventsChannel returns the Pub/Sub channel for live broadcast
// notification within a swarm.
func BroadcastEventsChannel(instance, swarmID string) string {
	return fmt.Sprintf("clan:%s:swarm:%s:broadcast_events", instance, swarmID)
}

// FileClaimKey returns the key for a file claim hash, scoped by project.
func FileClaimKey(instance, project, filePath string) string {
	return fmt.Sprintf("clan:%s:fileclaim:%s:%s", instance, project, filePath)
}

// PipelineArtifactStreamKey returns the key for a pipeline's artefact sorted set.
func PipelineArtifactStreamKey(instance, pipelineID string) string {
	return fmt.Sprintf("clan:%s:pipeline:%s:artifacts", instance, pipelineID)
}

// CircuitStateKey returns the key for a circuit breaker's state hash.
func CircuitStateKey(instance, cbID string) string {
	return fmt.Sprintf("clan:%s:circuit:%s", instance, cbID)
}

// FindingStreamKey returns the key for the project-wide findings sorted set.
func FindingStreamKey(instance, project string) string {
	return fmt.Sprintf("clan:%s:project:%s:findings", instance, project)
}

// FindingKey returns the key for a single finding's hash.
func FindingKey(instance, findingID string) string {
	return fmt.Sprintf("clan:%s:finding:%s", instance, findingID)
}

// CheckpointKey returns the key for a single checkpoint's hash.
func CheckpointKey(instance, checkpointID string) string {
	return fmt.Sprintf("clan:%s:checkpoint:%s", instance, checkpointID)
}

// CheckpointStreamKey returns the key for a project's checkpoint sorted set.
func CheckpointStreamKey(instance, project string) string {
	return fmt.Sprintf("clan:%s:project:%s:checkpoints", instance, project)
}

// FeatureWorkspaceKey returns the key for a feature workspace hash.
func FeatureWorkspaceKey(instance, project, name string) string {
	return fmt.Sprintf("clan:%s:workspace:%s:%s", instance, project, name)
}

// SchemaMigrationsKey returns the key for the applied-migrations ledger.
func SchemaMigrationsKey(instance string) string {
	return fmt.Sprintf("clan:%s:schema_migrations", instance)
}

// StateTransferChannel returns the Pub/Sub channel used to publish a
// serialized handoff state to the receiving agent.
func StateTransferChannel(instance, targetAgentID string) string {
	return fmt.Sprintf("clan:%s:agent:%s:state_transfer", instance, targetAgentID)
}

// LearningStreamKey returns the key for a session's learning sorted set.
func LearningStreamKey(instance, sessionID string) string {
	return fmt.Sprintf("clan:%s:session:%s:learnings", instance, sessionID)
}

// LearningKey returns the key for a single learning's hash.
func LearningKey(instance, learningID string) string {
	return fmt.Sprintf("clan:%s:learning:%s", instance, learningID)
}

// ScanStreamKey returns the key for a project's codebase-scan sorted set.
func ScanStreamKey(instance, project string) string {
	return fmt.Sprintf("clan:%s:project:%s:scans", instance, project)
}

// ScanKey returns the key for a single codebase-scan record's hash.
func ScanKey(instance, scanID string) string {
	return fmt.Sprintf("clan:%s:scan:%s", instance, scanID)
}
