package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// defaultOpTimeout bounds every Store operation. The spec requires the
// runtime to fail fast (not hang a hook process) when the backing store is
// unreachable; five seconds matches the orchestrator's health-check budget
// in the teacher codebase.
const defaultOpTimeout = 5 * time.Second

// Store provides instance-scoped Redis persistence for every entity in the
// coordination data model. All keys and channels are namespaced with the
// instance name. Store is safe for concurrent use.
type Store struct {
	rdb          *redis.Client
	instanceName string
	opTimeout    time.Duration
}

// NewStore creates a Store for the given instance, connecting with redisOpts.
// Returns an error if instanceName is empty.
func NewStore(redisOpts *redis.Options, instanceName string) (*Store, error) {
	if instanceName == "" {
		return nil, fmt.Errorf("instance name cannot be empty")
	}
	return &Store{
		rdb:          redis.NewClient(redisOpts),
		instanceName: instanceName,
		opTimeout:    defaultOpTimeout,
	}, nil
}

// Close closes the underlying Redis connection. Implements io.Closer.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Ping verifies Redis connectivity, bounded by the store's operation timeout.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()
	return s.rdb.Ping(ctx).Err()
}

// Instance returns the instance name this store is namespaced under.
func (s *Store) Instance() string {
	return s.instanceName
}

// bound applies the store's operation timeout to ctx, unless ctx already
// carries an earlier deadline.
func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < s.opTimeout {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}
