// Package blackboard implements the append-only, swarm-scoped broadcast
// surface (C4 in the coordination data model): agents post progress and
// findings, and any agent or the pattern engine can read the full history
// or count contributions without re-deriving state from process output.
//
// It is a thin façade over pkg/store — every operation here is a direct
// call into the durable Store, plus the semantics (dedup by sender,
// "any of type X") that patterns like swarm-completion need.
package blackboard

import (
	"context"
	"fmt"

	"github.com/dyluth/clan/pkg/store"
)

// Blackboard is a swarm-scoped view over the Store's broadcast stream.
type Blackboard struct {
	store *store.Store
}

// New wraps an existing Store as a Blackboard.
func New(s *store.Store) *Blackboard {
	return &Blackboard{store: s}
}

// Post appends a broadcast to swarmID's stream, publishing it for any live
// subscriber, and returns the broadcast with its assigned id.
func (b *Blackboard) Post(ctx context.Context, swarmID, senderAgent string, broadcastType store.BroadcastType, payloadJSON string, nowMs int64) (*store.Broadcast, error) {
	bc := &store.Broadcast{
		SwarmID:       swarmID,
		SenderAgent:   senderAgent,
		BroadcastType: broadcastType,
		Payload:       payloadJSON,
		CreatedAtMs:   nowMs,
	}
	posted, err := b.store.PostBroadcast(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("post to blackboard: %w", err)
	}
	return posted, nil
}

// Read returns broadcasts posted to a swarm, newest first, narrowed and
// bounded by opts (zero value: no filters, default 10-row cap).
func (b *Blackboard) Read(ctx context.Context, swarmID string, opts store.BroadcastReadOptions) ([]*store.Broadcast, error) {
	broadcasts, err := b.store.ReadBroadcasts(ctx, swarmID, opts)
	if err != nil {
		return nil, fmt.Errorf("read blackboard: %w", err)
	}
	return broadcasts, nil
}

// CountDistinctSenders returns how many distinct agents have posted to a
// swarm. Swarm completion treats this as the dispatched agent count and
// compares it against the count of distinct "done" senders to decide
// whether every member has reported in.
func (b *Blackboard) CountDistinctSenders(ctx context.Context, swarmID string) (int, error) {
	n, err := b.store.CountDistinctSenders(ctx, swarmID)
	if err != nil {
		return 0, fmt.Errorf("count distinct senders: %w", err)
	}
	return n, nil
}

// CountDistinctSendersByType returns how many distinct agents have posted a
// broadcast of broadcastType to a swarm — used to count "done" senders
// specifically, as distinct from CountDistinctSenders' "any type" count.
func (b *Blackboard) CountDistinctSendersByType(ctx context.Context, swarmID string, broadcastType store.BroadcastType) (int, error) {
	n, err := b.store.CountDistinctSendersByType(ctx, swarmID, broadcastType)
	if err != nil {
		return 0, fmt.Errorf("count distinct senders by type: %w", err)
	}
	return n, nil
}

// CountAny returns how many broadcasts of broadcastType exist in a swarm.
// broadcastType == "" counts every broadcast regardless of type.
func (b *Blackboard) CountAny(ctx context.Context, swarmID string, broadcastType store.BroadcastType) (int, error) {
	n, err := b.store.CountAny(ctx, swarmID, broadcastType)
	if err != nil {
		return 0, fmt.Errorf("count broadcasts: %w", err)
	}
	return n, nil
}

// Subscribe opens a live Pub/Sub feed of broadcasts posted to a swarm going
// forward. No agentctl command subscribes; hook invocations are
// short-lived and use Read/Count instead.
func (b *Blackboard) Subscribe(ctx context.Context, swarmID string) (*store.BroadcastSubscription, error) {
	sub, err := b.store.SubscribeBroadcasts(ctx, swarmID)
	if err != nil {
		return nil, fmt.Errorf("subscribe to blackboard: %w", err)
	}
	return sub, nil
}
