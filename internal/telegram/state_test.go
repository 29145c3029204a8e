package telegram

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateTable(t *testing.T) {
	table := NewStateTable()

	// Unknown users start in StateNone.
	assert.Equal(t, Flow{}, table.Get(1))

	table.Set(1, Flow{State: StateAwaitingLink})
	assert.Equal(t, StateAwaitingLink, table.Get(1).State)
	assert.Equal(t, StateNone, table.Get(2).State)

	// A new Set replaces the whole flow, so a user is never in two flows.
	table.Set(1, Flow{State: StateAwaitingPromoUses, PromoDays: 14})
	flow := table.Get(1)
	assert.Equal(t, StateAwaitingPromoUses, flow.State)
	assert.Equal(t, 14, flow.PromoDays)
	assert.Empty(t, flow.Link)

	table.Clear(1)
	assert.Equal(t, Flow{}, table.Get(1))
}

func TestStateTable_CarriesFlowData(t *testing.T) {
	table := NewStateTable()

	table.Set(5, Flow{State: StateAwaitingReason, Link: "https://t.me/c/123/45"})
	flow := table.Get(5)
	assert.Equal(t, StateAwaitingReason, flow.State)
	assert.Equal(t, "https://t.me/c/123/45", flow.Link)
}

func TestStateTable_ConcurrentAccess(t *testing.T) {
	table := NewStateTable()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			table.Set(userID, Flow{State: StateAwaitingLink})
			_ = table.Get(userID)
			table.Clear(userID)
		}(int64(i % 10))
	}
	wg.Wait()

	for userID := int64(0); userID < 10; userID++ {
		assert.Equal(t, StateNone, table.Get(userID).State)
	}
}
