package payments

import (
	"context"
	"sync"
	"time"

	"github.com/aircrouching/delator/internal/models"
	"github.com/aircrouching/delator/pkg/logger"
)

const (
	// checkInterval is the pause between reconciliation ticks.
	checkInterval = time.Minute
	// maxInvoiceAge is how long an unconfirmed invoice stays tracked.
	maxInvoiceAge = 30 * time.Minute
)

// Granter credits a user's subscription once an invoice is confirmed.
type Granter interface {
	Grant(userID int64, days int) bool
}

// Notifier delivers a short message to the payer.
type Notifier func(ctx context.Context, userID int64, text string)

// Reconciler closes the gap between "invoice created" and "subscription
// credited": it tracks pending invoices in process memory and polls the
// payment oracle until each one is paid or goes stale. An invoice is
// credited at most once; removal on credit keeps later ticks from seeing it.
type Reconciler struct {
	logger *logger.Logger

	oracle models.PaymentOracle
	ledger Granter
	notify Notifier

	mu      sync.Mutex
	pending map[int64]models.PendingInvoice
}

func NewReconciler(oracle models.PaymentOracle, ledger Granter, notify Notifier, logger *logger.Logger) *Reconciler {
	return &Reconciler{
		logger:  logger,
		oracle:  oracle,
		ledger:  ledger,
		notify:  notify,
		pending: make(map[int64]models.PendingInvoice),
	}
}

// SetNotifier installs the payer notification callback. The bot is built
// after the reconciler, so the callback is wired late.
func (r *Reconciler) SetNotifier(notify Notifier) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notify = notify
}

// Track registers an invoice for reconciliation.
func (r *Reconciler) Track(invoice models.PendingInvoice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[invoice.InvoiceID] = invoice
	r.logger.Debug("Tracking invoice ", "invoice ", invoice.InvoiceID, " user ", invoice.UserID)
}

// PendingCount returns the number of invoices awaiting confirmation.
func (r *Reconciler) PendingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// Run polls the oracle once a minute until the context is canceled. Ticks
// are strictly sequential relative to each other.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(checkInterval)
	defer ticker.Stop()

	r.logger.Info("Payment reconciliation loop started")
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Payment reconciliation loop stopped")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick checks every tracked invoice once. A query failure for one invoice
// never prevents the rest of the tick from running.
func (r *Reconciler) Tick(ctx context.Context) {
	r.mu.Lock()
	snapshot := make([]models.PendingInvoice, 0, len(r.pending))
	for _, invoice := range r.pending {
		snapshot = append(snapshot, invoice)
	}
	notify := r.notify
	r.mu.Unlock()

	now := time.Now()
	for _, invoice := range snapshot {
		if now.Sub(invoice.CreatedAt) > maxInvoiceAge {
			r.drop(invoice.InvoiceID)
			r.logger.Warn("Dropped stale invoice ", "invoice ", invoice.InvoiceID, " user ", invoice.UserID)
			continue
		}

		status, err := r.oracle.GetInvoiceStatus(ctx, invoice.InvoiceID)
		if err != nil {
			r.logger.Error("Failed to check invoice status ", "invoice ", invoice.InvoiceID, " error ", err)
			continue
		}
		if status != models.InvoiceStatusPaid {
			continue
		}

		if !r.ledger.Grant(invoice.UserID, invoice.Days) {
			// Keep the invoice tracked: the increment never happened, so the
			// next tick retries the credit.
			r.logger.Error("Failed to credit paid invoice ", "invoice ", invoice.InvoiceID, " user ", invoice.UserID)
			continue
		}
		r.drop(invoice.InvoiceID)
		r.logger.Info("Credited paid invoice ", "invoice ", invoice.InvoiceID, " user ", invoice.UserID, " days ", invoice.Days)

		if notify != nil {
			notify(ctx, invoice.UserID, "✅ Оплата получена! Ваша подписка активирована.")
		}
	}
}

func (r *Reconciler) drop(invoiceID int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, invoiceID)
}
