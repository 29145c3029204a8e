package telegram

import "sync"

// State names one step of a user's conversation flow.
type State string

const (
	StateNone State = ""
	// Report flow
	StateAwaitingLink   State = "awaiting_link"
	StateAwaitingReason State = "awaiting_reason"
	// Promo redemption flow
	StateAwaitingPromo State = "awaiting_promo"
	// Admin flows
	StateAwaitingBanInput    State = "awaiting_ban_input"
	StateAwaitingUnbanInput  State = "awaiting_unban_input"
	StateAwaitingGrantInput  State = "awaiting_grant_input"
	StateAwaitingRevokeInput State = "awaiting_revoke_input"
	StateAwaitingPromoDays   State = "awaiting_promo_days"
	StateAwaitingPromoUses   State = "awaiting_promo_uses"
)

// Flow is the current state of one user's conversation plus the data
// collected so far.
type Flow struct {
	State State
	// Link is the message link collected by the report flow.
	Link string
	// PromoDays carries the first answer of the two-step promo creation.
	PromoDays int
}

// StateTable is the single authority for per-user flow state. One keyed
// table with explicit states replaces ad hoc presence checks across
// independent maps, so a user can never be in two flows at once.
type StateTable struct {
	mu    sync.RWMutex
	flows map[int64]Flow
}

func NewStateTable() *StateTable {
	return &StateTable{flows: make(map[int64]Flow)}
}

// Get returns the user's current flow; absent users are in StateNone.
func (t *StateTable) Get(userID int64) Flow {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.flows[userID]
}

// Set replaces the user's flow.
func (t *StateTable) Set(userID int64, flow Flow) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.flows[userID] = flow
}

// Clear resets the user to StateNone.
func (t *StateTable) Clear(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.flows, userID)
}
