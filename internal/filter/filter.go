// Package filter applies client-side criteria over a blackboard read, the
// same shape agentctl's list commands use for narrowing large result sets
// without adding bespoke Redis query paths for every combination of
// filter.
package filter

import (
	"path/filepath"

	"github.com/dyluth/clan/pkg/store"
)

// Criteria filters broadcasts. All set fields are ANDed together.
type Criteria struct {
	SinceMs     int64  // 0 = no lower bound
	UntilMs     int64  // 0 = no upper bound
	TypeGlob    string // glob over BroadcastType, empty = no filter
	SenderAgent string // exact match, empty = no filter
}

// Matches reports whether b satisfies every set criterion.
func (c *Criteria) Matches(b *store.Broadcast) bool {
	if c.SinceMs > 0 && b.CreatedAtMs < c.SinceMs {
		return false
	}
	if c.UntilMs > 0 && b.CreatedAtMs > c.UntilMs {
		return false
	}
	if c.TypeGlob != "" {
		matched, err := filepath.Match(c.TypeGlob, string(b.BroadcastType))
		if err != nil || !matched {
			return false
		}
	}
	if c.SenderAgent != "" && b.SenderAgent != c.SenderAgent {
		return false
	}
	return true
}

// HasFilters reports whether any criterion is active.
func (c *Criteria) HasFilters() bool {
	return c.SinceMs > 0 || c.UntilMs > 0 || c.TypeGlob != "" || c.SenderAgent != ""
}

// Apply returns the subset of broadcasts matching c.
func Apply(broadcasts []*store.Broadcast, c *Criteria) []*store.Broadcast {
	if !c.HasFilters() {
		return broadcasts
	}
	out := make([]*store.Broadcast, 0, len(broadcasts))
	for _, b := range broadcasts {
		if c.Matches(b) {
			out = append(out, b)
		}
	}
	return out
}
