package models

import (
	"time"
)

// Payment methods recorded against invoices.
const (
	PaymentMethodCard     = "card"
	PaymentMethodBank     = "bank_transfer"
	PaymentMethodCash     = "cash"
	PaymentMethodCheck    = "check"
	PaymentMethodExternal = "processor"
)

// Payment is a single recorded payment applied against exactly one invoice.
// Rows are append-only; the only field ever mutated after creation is the
// backfilled processor fee.
type Payment struct {
	ID           string     `json:"id" db:"id"`
	OrgID        string     `json:"org_id" db:"org_id"`
	InvoiceID    string     `json:"invoice_id" db:"invoice_id"`
	Amount       int64      `json:"amount" db:"amount"`
	Fee          *int64     `json:"fee,omitempty" db:"fee"`
	Method       string     `json:"method" db:"method"`
	PaidAt       time.Time  `json:"paid_at" db:"paid_at"`
	ProcessorRef *string    `json:"processor_ref,omitempty" db:"processor_ref"`
	Metadata     Metadata   `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	ReviewedAt   *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
}

// PaymentCreateRequest is the payload for manual payment entry.
type PaymentCreateRequest struct {
	Amount int64  `json:"amount" validate:"required,gt=0"`
	Method string `json:"method" validate:"required,oneof=card bank_transfer cash check processor"`
	PaidAt string `json:"paid_at" validate:"required,datetime=2006-01-02"`
}

// Processor event types accepted by the webhook intake. Anything else is
// rejected at the boundary.
const (
	ProcessorEventPaymentSucceeded = "payment.succeeded"
	ProcessorEventPaymentFailed    = "payment.failed"
	ProcessorEventPaymentRefunded  = "payment.refunded"
)

// ProcessorEvent is the discriminated webhook payload from the payment
// processor. Type selects which fields are meaningful.
type ProcessorEvent struct {
	EventID   string `json:"event_id" validate:"required"`
	Type      string `json:"type" validate:"required,oneof=payment.succeeded payment.failed payment.refunded"`
	InvoiceID string `json:"invoice_id" validate:"required,uuid4"`
	Amount    int64  `json:"amount" validate:"gte=0"`
	Fee       int64  `json:"fee" validate:"gte=0"`
	Reference string `json:"reference" validate:"required"`
	Reason    string `json:"reason,omitempty"`
	CreatedAt int64  `json:"created_at" validate:"required"`
}
