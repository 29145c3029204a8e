package models

import "context"

// PaymentOracle is the external payment provider consulted by the
// reconciliation loop. Network or non-ok responses are surfaced as errors,
// never as a paid/unpaid determination.
type PaymentOracle interface {
	CreateInvoice(ctx context.Context, userID int64, amount float64, description string) (*Invoice, error)
	GetInvoiceStatus(ctx context.Context, invoiceID int64) (string, error)
	// CheckToken verifies the provider credentials. Failure at startup is
	// fatal for the whole process.
	CheckToken(ctx context.Context) error
}

// ReportPool owns the set of live reporting accounts and fans report
// actions out across all of them.
type ReportPool interface {
	// Init authorizes all discovered credential bundles and returns the
	// number of accounts added. Idempotent.
	Init(ctx context.Context) (int, error)

	// Dispatch sends one report per live account for the linked message.
	Dispatch(ctx context.Context, rawLink string, reason ReportReason) *AggregateResult

	// Size returns the number of live accounts.
	Size() int

	Close()
}
