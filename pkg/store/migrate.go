package store

import (
	"context"
	"fmt"
)

// migration describes one idempotent schema step recorded in the
// migrations ledger. Redis has no schema to alter, so migrations here are
// housekeeping steps (index backfills, default seeding) rather than DDL.
type migration struct {
	version int
	name    string
	apply   func(ctx context.Context, s *Store) error
}

// migrations is the ordered list of steps Migrate applies. Empty today —
// the initial schema needs no backfill — but the ledger and the loop exist
// so future steps can be appended without changing call sites, matching the
// original migration manager's append-only ledger discipline.
var migrations = []migration{}

// Migrate applies any migration steps not yet recorded in the instance's
// ledger. Safe to call on every process start.
func (s *Store) Migrate(ctx context.Context) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	ledgerKey := SchemaMigrationsKey(s.instanceName)
	applied, err := s.rdb.SMembers(ctx, ledgerKey).Result()
	if err != nil {
		return fmt.Errorf("read migration ledger: %w", err)
	}
	appliedSet := make(map[string]struct{}, len(applied))
	for _, v := range applied {
		appliedSet[v] = struct{}{}
	}

	for _, m := range migrations {
		key := fmt.Sprintf("%d:%s", m.version, m.name)
		if _, ok := appliedSet[key]; ok {
			continue
		}
		if err := m.apply(ctx, s); err != nil {
			return fmt.Errorf("apply migration %s: %w", key, err)
		}
		if err := s.rdb.SAdd(ctx, ledgerKey, key).Err(); err != nil {
			return fmt.Errorf("record migration %s: %w", key, err)
		}
	}
	return nil
}
