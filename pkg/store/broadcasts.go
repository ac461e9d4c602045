package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// PostBroadcast appends a broadcast to a swarm's stream and publishes it for
// live subscribers. The broadcast is assigned a generated id and CreatedAtMs
// is used as the sorted-set score, giving stable creation-order iteration.
func (s *Store) PostBroadcast(ctx context.Context, b *Broadcast) (*Broadcast, error) {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid broadcast: %w", err)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()

	payload, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("marshal broadcast: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, BroadcastKey(s.instanceName, b.ID), map[string]interface{}{
		"id":             b.ID,
		"swarm_id":       b.SwarmID,
		"sender_agent":   b.SenderAgent,
		"broadcast_type": string(b.BroadcastType),
		"payload_json":   b.Payload,
		"created_at_ms":  b.CreatedAtMs,
	})
	pipe.ZAdd(ctx, BroadcastStreamKey(s.instanceName, b.SwarmID), redis.Z{
		Score:  float64(b.CreatedAtMs),
		Member: b.ID,
	})
	pipe.Publish(ctx, BroadcastEventsChannel(s.instanceName, b.SwarmID), payload)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("post broadcast: %w", err)
	}
	return b, nil
}

// DefaultBroadcastLimit is applied to ReadBroadcasts when the caller leaves
// Limit unset.
const DefaultBroadcastLimit = 10

// UnlimitedBroadcasts disables the default 10-row cap on ReadBroadcasts,
// for callers (like state-transfer restore, or agentctl's blackboard dump)
// that need the full history rather than a recent window.
const UnlimitedBroadcasts = -1

// BroadcastReadOptions narrows and bounds a ReadBroadcasts call.
type BroadcastReadOptions struct {
	SinceMs       int64  // 0 = no lower bound
	ExcludeSender string // "" = no exclusion
	Limit         int    // 0 = DefaultBroadcastLimit; UnlimitedBroadcasts = no cap
}

// ReadBroadcasts returns broadcasts posted to a swarm, newest first, after
// applying SinceMs/ExcludeSender and capping at Limit (DefaultBroadcastLimit
// when Limit is 0).
func (s *Store) ReadBroadcasts(ctx context.Context, swarmID string, opts BroadcastReadOptions) ([]*Broadcast, error) {
	all, err := s.readAllBroadcasts(ctx, swarmID)
	if err != nil {
		return nil, err
	}

	filtered := make([]*Broadcast, 0, len(all))
	for _, b := range all {
		if opts.SinceMs > 0 && b.CreatedAtMs < opts.SinceMs {
			continue
		}
		if opts.ExcludeSender != "" && b.SenderAgent == opts.ExcludeSender {
			continue
		}
		filtered = append(filtered, b)
	}

	for i, j := 0, len(filtered)-1; i < j; i, j = i+1, j-1 {
		filtered[i], filtered[j] = filtered[j], filtered[i]
	}

	limit := opts.Limit
	if limit == 0 {
		limit = DefaultBroadcastLimit
	}
	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// readAllBroadcasts returns every broadcast posted to a swarm, oldest first
// and unfiltered — the raw stream backing ReadBroadcasts and the Count*
// helpers, which need the complete history regardless of the public read
// contract's default window.
func (s *Store) readAllBroadcasts(ctx context.Context, swarmID string) ([]*Broadcast, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	ids, err := s.rdb.ZRange(ctx, BroadcastStreamKey(s.instanceName, swarmID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read broadcasts for swarm %s: %w", swarmID, err)
	}
	out := make([]*Broadcast, 0, len(ids))
	for _, id := range ids {
		hash, err := s.rdb.HGetAll(ctx, BroadcastKey(s.instanceName, id)).Result()
		if err != nil {
			return nil, fmt.Errorf("read broadcast %s: %w", id, err)
		}
		if len(hash) == 0 {
			continue
		}
		createdAtMs, _ := strconv.ParseInt(hash["created_at_ms"], 10, 64)
		out = append(out, &Broadcast{
			ID:            hash["id"],
			SwarmID:       hash["swarm_id"],
			SenderAgent:   hash["sender_agent"],
			BroadcastType: BroadcastType(hash["broadcast_type"]),
			Payload:       hash["payload_json"],
			CreatedAtMs:   createdAtMs,
		})
	}
	return out, nil
}

// CountDistinctSenders returns how many distinct sender agents have posted
// to a swarm, used by patterns (swarm completion) that gate on "every
// dispatched agent has broadcast done".
func (s *Store) CountDistinctSenders(ctx context.Context, swarmID string) (int, error) {
	broadcasts, err := s.readAllBroadcasts(ctx, swarmID)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(broadcasts))
	for _, b := range broadcasts {
		seen[b.SenderAgent] = struct{}{}
	}
	return len(seen), nil
}

// CountDistinctSendersByType returns how many distinct sender agents have
// posted a broadcast of the given type to a swarm — the "done" count in
// the swarm-completion comparison against CountDistinctSenders' "any" count.
func (s *Store) CountDistinctSendersByType(ctx context.Context, swarmID string, broadcastType BroadcastType) (int, error) {
	broadcasts, err := s.readAllBroadcasts(ctx, swarmID)
	if err != nil {
		return 0, err
	}
	seen := make(map[string]struct{}, len(broadcasts))
	for _, b := range broadcasts {
		if b.BroadcastType == broadcastType {
			seen[b.SenderAgent] = struct{}{}
		}
	}
	return len(seen), nil
}

// CountAny returns how many broadcasts of a given type exist in a swarm.
// broadcastType == "" matches every broadcast.
func (s *Store) CountAny(ctx context.Context, swarmID string, broadcastType BroadcastType) (int, error) {
	broadcasts, err := s.readAllBroadcasts(ctx, swarmID)
	if err != nil {
		return 0, err
	}
	if broadcastType == "" {
		return len(broadcasts), nil
	}
	n := 0
	for _, b := range broadcasts {
		if b.BroadcastType == broadcastType {
			n++
		}
	}
	return n, nil
}

// BroadcastSubscription is an active Pub/Sub subscription to a swarm's
// broadcast events. Callers must call Close() when done.
type BroadcastSubscription struct {
	events <-chan *Broadcast
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel of broadcast events.
func (sub *BroadcastSubscription) Events() <-chan *Broadcast { return sub.events }

// Errors returns the channel of subscription errors; the subscription
// continues after an error, skipping the offending message.
func (sub *BroadcastSubscription) Errors() <-chan error { return sub.errors }

// Close stops the subscription. Safe to call multiple times.
func (sub *BroadcastSubscription) Close() error {
	sub.once.Do(sub.cancel)
	return nil
}

// SubscribeBroadcasts subscribes to live broadcast events for a swarm.
// Context cancellation also stops the subscription.
func (s *Store) SubscribeBroadcasts(ctx context.Context, swarmID string) (*BroadcastSubscription, error) {
	channel := BroadcastEventsChannel(s.instanceName, swarmID)
	pubsub := s.rdb.Subscribe(ctx, channel)

	eventsChan := make(chan *Broadcast, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var b Broadcast
				if err := json.Unmarshal([]byte(msg.Payload), &b); err != nil {
					select {
					case errorsChan <- fmt.Errorf("unmarshal broadcast event: %w", err):
					case <-subCtx.Done():
						return
					}
					continue
				}
				select {
				case eventsChan <- &b:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &BroadcastSubscription{events: eventsChan, errors: errorsChan, cancel: cancelFunc}, nil
}
