package services

import (
	"context"
	"fmt"
	"time"

	"github.com/brightbooks/backend/internal/models"
)

// Reconcile derives an invoice's lifecycle status from its recorded payment
// total. It is idempotent and is invoked both synchronously on payment
// receipt and in bulk by resync sweeps.
//
// Rules, in priority order:
//   - void is absorbing: no payment total or date ever changes it
//   - draft never moves on payments; sending is an explicit action
//   - totalPaid >= amount means paid, even past the due date
//   - 0 < totalPaid < amount means partially_paid
//   - past the due date with nothing paid means overdue
func Reconcile(inv *models.Invoice, totalPaid int64, now time.Time) models.InvoiceStatus {
	switch inv.Status {
	case models.InvoiceStatusVoid, models.InvoiceStatusDraft:
		return inv.Status
	}

	if totalPaid >= inv.Amount {
		return models.InvoiceStatusPaid
	}

	if totalPaid > 0 {
		return models.InvoiceStatusPartiallyPaid
	}

	if now.After(inv.DueDate) {
		return models.InvoiceStatusOverdue
	}

	return models.InvoiceStatusSent
}

// ReconcileAndPersist recomputes inv's status from its stored payment total
// and persists it when it changed. inv is updated in place. Idempotent: a
// redundant call finds nothing to change and writes nothing.
func ReconcileAndPersist(ctx context.Context, st Store, inv *models.Invoice, now time.Time) error {
	total, err := st.SumInvoicePayments(ctx, inv.OrgID, inv.ID)
	if err != nil {
		return fmt.Errorf("sum payments: %w", err)
	}

	next := Reconcile(inv, total, now)
	if next == inv.Status {
		return nil
	}

	var paidAt *time.Time
	if next == models.InvoiceStatusPaid {
		paidAt = &now
	}
	if err := st.UpdateInvoiceStatus(ctx, inv.OrgID, inv.ID, next, paidAt); err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	inv.Status = next
	return nil
}
