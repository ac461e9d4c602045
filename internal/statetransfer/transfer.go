// Package statetransfer implements State Transfer (C7): serializing an
// agent's working state with an integrity checksum, publishing it via the
// Blackboard, and restoring it on the successor's SubagentStart.
package statetransfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"

	"github.com/dyluth/clan/internal/clanerr"
	"github.com/dyluth/clan/pkg/blackboard"
	"github.com/dyluth/clan/pkg/store"
)

// maxStateBytes is the maximum serialized state size before StateTooLarge.
const maxStateBytes = 1 << 20 // 1 MiB

// ErrStateTooLarge is returned when a serialized state exceeds maxStateBytes.
var ErrStateTooLarge = errors.New("statetransfer: state exceeds 1 MiB maximum")

// AgentState is the payload handed off between agents.
type AgentState struct {
	Context      string   `json:"context"`
	Memory       string   `json:"memory"`
	Progress     int      `json:"progress"`
	PendingTasks []string `json:"pendingTasks"`
}

// envelope is what actually goes into the broadcast payload: the state plus
// its checksum and the intended recipient.
type envelope struct {
	Target   string     `json:"target"`
	Checksum uint32     `json:"checksum"`
	State    AgentState `json:"state"`
}

// Serialize marshals state to JSON and computes its CRC32 checksum. Returns
// ErrStateTooLarge if the encoded form exceeds 1 MiB.
func Serialize(state AgentState) (payload []byte, checksum uint32, err error) {
	if state.Progress < 0 || state.Progress > 100 {
		return nil, 0, clanerr.Validation(fmt.Errorf("progress %d out of range [0,100]", state.Progress))
	}
	payload, err = json.Marshal(state)
	if err != nil {
		return nil, 0, clanerr.Validation(fmt.Errorf("marshal state: %w", err))
	}
	if len(payload) > maxStateBytes {
		return nil, 0, clanerr.Validation(ErrStateTooLarge)
	}
	return payload, crc32.ChecksumIEEE(payload), nil
}

// Deserialize is the inverse of Serialize; round-tripping the same payload
// yields a bit-equal AgentState and a matching checksum.
func Deserialize(payload []byte) (AgentState, uint32, error) {
	var state AgentState
	if err := json.Unmarshal(payload, &state); err != nil {
		return AgentState{}, 0, clanerr.Validation(fmt.Errorf("unmarshal state: %w", err))
	}
	return state, crc32.ChecksumIEEE(payload), nil
}

// Transfer publishes and restores handoff state over a Blackboard.
type Transfer struct {
	bb *blackboard.Blackboard
}

// New wraps a Blackboard as a Transfer.
func New(bb *blackboard.Blackboard) *Transfer {
	return &Transfer{bb: bb}
}

// Publish serializes state and posts a state_transfer broadcast targeting
// dst.
func (t *Transfer) Publish(ctx context.Context, swarmID, src, dst string, state AgentState, nowMs int64) error {
	payload, checksum, err := Serialize(state)
	if err != nil {
		return err
	}
	env := envelope{Target: dst, Checksum: checksum, State: mustDecodeState(payload)}
	envJSON, err := json.Marshal(env)
	if err != nil {
		return clanerr.Validation(fmt.Errorf("marshal envelope: %w", err))
	}
	if _, err := t.bb.Post(ctx, swarmID, src, store.BroadcastStateTransfer, string(envJSON), nowMs); err != nil {
		return clanerr.Transient(err)
	}
	return nil
}

// mustDecodeState re-decodes a payload we just encoded ourselves, purely to
// nest it under envelope without double-escaping JSON as a string.
func mustDecodeState(payload []byte) AgentState {
	var s AgentState
	_ = json.Unmarshal(payload, &s)
	return s
}

// Restore looks up the most recent state_transfer broadcast targeting
// agentID within swarmID, verifies its checksum, and returns the restored
// state. Older state_transfer broadcasts targeting other agents are skipped
// rather than ending the search — a swarm can hand off state more than
// once, to different agents, and the match for agentID may not be the
// newest transfer overall. If no matching broadcast exists, ok is false.
// If the checksum on the latest matching transfer fails to verify
// (corruption), it's discarded silently — ok is false and err is nil,
// matching the spec's "discard silently" requirement.
func (t *Transfer) Restore(ctx context.Context, swarmID, agentID string) (state AgentState, ok bool, err error) {
	broadcasts, err := t.bb.Read(ctx, swarmID, store.BroadcastReadOptions{Limit: store.UnlimitedBroadcasts})
	if err != nil {
		return AgentState{}, false, clanerr.Transient(err)
	}

	for _, b := range broadcasts {
		if b.BroadcastType != store.BroadcastStateTransfer {
			continue
		}
		var env envelope
		if err := json.Unmarshal([]byte(b.Payload), &env); err != nil {
			continue
		}
		if env.Target != agentID {
			continue
		}

		reencoded, err := json.Marshal(env.State)
		if err != nil {
			return AgentState{}, false, nil
		}
		if crc32.ChecksumIEEE(reencoded) != env.Checksum {
			return AgentState{}, false, nil
		}
		return env.State, true, nil
	}
	return AgentState{}, false, nil
}
