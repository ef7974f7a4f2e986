package services

import (
	"fmt"

	"github.com/brightbooks/backend/internal/models"
)

// ClientRollup holds per-client financial totals in minor currency units.
type ClientRollup struct {
	ClientID      string `json:"client_id"`
	TotalInvoiced int64  `json:"total_invoiced"`
	TotalPaid     int64  `json:"total_paid"`
	BalanceDue    int64  `json:"balance_due"`
	RawBalance    int64  `json:"raw_balance"`
}

// Rollup is the result of aggregating an organization's invoices and
// payments. BalanceDue is floored at zero for display; RawBalance keeps the
// possibly negative value for audit (negative means overpayment).
type Rollup struct {
	TotalInvoiced int64                   `json:"total_invoiced"`
	TotalPaid     int64                   `json:"total_paid"`
	BalanceDue    int64                   `json:"balance_due"`
	RawBalance    int64                   `json:"raw_balance"`
	PerClient     map[string]ClientRollup `json:"per_client"`
	PerInvoice    map[string]int64        `json:"-"`
	Skipped       []string                `json:"skipped,omitempty"`
}

// Aggregate computes financial totals over already-fetched rows. It is pure
// and idempotent: no I/O, identical inputs give identical output.
//
// Only billable invoices (not draft, not void) count. Payments referencing a
// nonexistent or non-billable invoice are skipped and reported, not summed.
// Any negative amount fails the whole call with ErrInvalidAmount.
func Aggregate(invoices []models.Invoice, payments []models.Payment) (*Rollup, error) {
	billable := make(map[string]models.Invoice, len(invoices))
	for _, inv := range invoices {
		if inv.Amount < 0 {
			return nil, fmt.Errorf("invoice %s amount %d: %w", inv.ID, inv.Amount, ErrInvalidAmount)
		}
		if inv.Status.Billable() {
			billable[inv.ID] = inv
		}
	}

	r := &Rollup{
		PerClient:  make(map[string]ClientRollup),
		PerInvoice: make(map[string]int64),
	}

	for _, inv := range billable {
		r.TotalInvoiced += inv.Amount
		c := r.PerClient[inv.ClientID]
		c.ClientID = inv.ClientID
		c.TotalInvoiced += inv.Amount
		r.PerClient[inv.ClientID] = c
	}

	for _, p := range payments {
		if p.Amount < 0 {
			return nil, fmt.Errorf("payment %s amount %d: %w", p.ID, p.Amount, ErrInvalidAmount)
		}
		inv, ok := billable[p.InvoiceID]
		if !ok {
			r.Skipped = append(r.Skipped, fmt.Sprintf("payment %s references non-billable invoice %s", p.ID, p.InvoiceID))
			continue
		}
		r.TotalPaid += p.Amount
		r.PerInvoice[p.InvoiceID] += p.Amount
		c := r.PerClient[inv.ClientID]
		c.TotalPaid += p.Amount
		r.PerClient[inv.ClientID] = c
	}

	r.RawBalance = r.TotalInvoiced - r.TotalPaid
	r.BalanceDue = floorZero(r.RawBalance)

	for id, c := range r.PerClient {
		c.RawBalance = c.TotalInvoiced - c.TotalPaid
		c.BalanceDue = floorZero(c.RawBalance)
		r.PerClient[id] = c
	}

	return r, nil
}

func floorZero(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
