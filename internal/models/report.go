package models

// ReportReason is a report reason accepted by the Telegram API.
type ReportReason string

const (
	ReasonSpam        ReportReason = "spam"
	ReasonPornography ReportReason = "pornography"
	ReasonViolence    ReportReason = "violence"
)

// Valid reports whether the reason is one of the supported values.
func (r ReportReason) Valid() bool {
	switch r {
	case ReasonSpam, ReasonPornography, ReasonViolence:
		return true
	}
	return false
}

// ReportTarget is a resolved reference to a reported message, produced by
// parsing a sharable t.me link. Exactly one of ChatID/Handle is set:
// ChatID for private/internal chats, Handle for public chats and users.
type ReportTarget struct {
	// ChatID is the canonical chat id with the -100 channel prefix applied.
	ChatID int64 `json:"chat_id"`
	// Handle is the public username of the chat or user.
	Handle string `json:"handle"`
	// MessageID is the id of the reported message inside the chat.
	MessageID int `json:"message_id"`
}

// AggregateResult is the outcome of one report sweep across the account pool.
// Immutable after construction.
type AggregateResult struct {
	// Success is the number of accounts whose report attempt succeeded.
	Success int `json:"success"`
	// Total is the number of accounts attempted.
	Total int `json:"total"`
	// Errors holds one entry per failed attempt, in completion order.
	Errors []string `json:"errors"`
}

// UniqueErrors returns the distinct error strings preserving first-seen order.
func (r *AggregateResult) UniqueErrors() []string {
	seen := make(map[string]struct{}, len(r.Errors))
	var unique []string
	for _, e := range r.Errors {
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		unique = append(unique, e)
	}
	return unique
}
