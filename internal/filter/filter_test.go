package filter

import (
	"testing"

	"github.com/dyluth/clan/pkg/store"
	"github.com/stretchr/testify/assert"
)

func TestMatchesTimeBounds(t *testing.T) {
	b := &store.Broadcast{CreatedAtMs: 1000}
	assert.True(t, (&Criteria{}).Matches(b))
	assert.False(t, (&Criteria{SinceMs: 2000}).Matches(b))
	assert.False(t, (&Criteria{UntilMs: 500}).Matches(b))
	assert.True(t, (&Criteria{SinceMs: 500, UntilMs: 2000}).Matches(b))
}

func TestMatchesTypeGlob(t *testing.T) {
	b := &store.Broadcast{BroadcastType: store.BroadcastDone}
	assert.True(t, (&Criteria{TypeGlob: "done"}).Matches(b))
	assert.True(t, (&Criteria{TypeGlob: "d*"}).Matches(b))
	assert.False(t, (&Criteria{TypeGlob: "started"}).Matches(b))
}

func TestMatchesSender(t *testing.T) {
	b := &store.Broadcast{SenderAgent: "a1"}
	assert.True(t, (&Criteria{SenderAgent: "a1"}).Matches(b))
	assert.False(t, (&Criteria{SenderAgent: "a2"}).Matches(b))
}

func TestApplyFiltersSlice(t *testing.T) {
	broadcasts := []*store.Broadcast{
		{SenderAgent: "a1", BroadcastType: store.BroadcastStarted, CreatedAtMs: 100},
		{SenderAgent: "a2", BroadcastType: store.BroadcastDone, CreatedAtMs: 200},
	}
	out := Apply(broadcasts, &Criteria{SenderAgent: "a2"})
	assert.Len(t, out, 1)
	assert.Equal(t, "a2", out[0].SenderAgent)
}

func TestApplyWithNoFiltersReturnsSameSlice(t *testing.T) {
	broadcasts := []*store.Broadcast{{SenderAgent: "a1"}}
	out := Apply(broadcasts, &Criteria{})
	assert.Equal(t, broadcasts, out)
}
