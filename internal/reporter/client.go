package reporter

import (
	"context"

	"github.com/aircrouching/delator/internal/models"
)

// Client is one authorized reporting account. Session issuance and the
// underlying protocol live behind this boundary; the pool only needs an
// account that can resolve a target to its own view of the entity and
// execute the report action against it.
type Client interface {
	// Name identifies the account in logs and error strings.
	Name() string
	// Authorized reports whether the session is live and usable.
	Authorized(ctx context.Context) (bool, error)
	// Resolve maps the parsed target to the account's local peer reference.
	// Accounts may see different cached entities for the same handle.
	Resolve(ctx context.Context, target models.ReportTarget) (string, error)
	// Report files a report against the resolved peer's message.
	Report(ctx context.Context, peer string, messageID int, reason models.ReportReason) error
	Close() error
}

// Dialer establishes a Client from one opaque credential bundle.
type Dialer interface {
	Dial(ctx context.Context, sessionPath string) (Client, error)
}
