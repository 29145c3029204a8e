package models

import "time"

// Invoice statuses reported by the payment oracle.
const (
	InvoiceStatusActive  = "active"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusExpired = "expired"
)

// Invoice is the payment oracle's view of a created invoice.
type Invoice struct {
	InvoiceID int64  `json:"invoice_id"`
	Status    string `json:"status"`
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	PayURL    string `json:"pay_url"`
}

// PendingInvoice is an invoice awaiting external confirmation. Tracked only
// in process memory: a restart loses in-flight invoices.
type PendingInvoice struct {
	// InvoiceID is the oracle-assigned invoice id.
	InvoiceID int64 `json:"invoice_id"`
	// UserID is the payer to credit once the invoice is paid.
	UserID int64 `json:"user_id"`
	// Days is the number of subscription days bought.
	Days int `json:"days"`
	// CreatedAt is when the invoice was issued; used for staleness eviction.
	CreatedAt time.Time `json:"created_at"`
}

// Tariff is one purchasable subscription plan.
type Tariff struct {
	ID    string
	Price float64
	Title string
	Days  int
}

// Tariffs is the fixed plan table, keyed by callback id.
var Tariffs = map[string]Tariff{
	"1day":    {ID: "1day", Price: 2.0, Title: "1 день", Days: 1},
	"3days":   {ID: "3days", Price: 3.0, Title: "3 дня", Days: 3},
	"7days":   {ID: "7days", Price: 5.0, Title: "7 дней", Days: 7},
	"30days":  {ID: "30days", Price: 9.0, Title: "30 дней", Days: 30},
	"forever": {ID: "forever", Price: 13.0, Title: "Навсегда", Days: 3650},
}
