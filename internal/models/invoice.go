package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// InvoiceStatus is the lifecycle status of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusSent          InvoiceStatus = "sent"
	InvoiceStatusPartiallyPaid InvoiceStatus = "partially_paid"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusOverdue       InvoiceStatus = "overdue"
	InvoiceStatusVoid          InvoiceStatus = "void"
)

// Valid reports whether s is a known invoice status.
func (s InvoiceStatus) Valid() bool {
	switch s {
	case InvoiceStatusDraft, InvoiceStatusSent, InvoiceStatusPartiallyPaid,
		InvoiceStatusPaid, InvoiceStatusOverdue, InvoiceStatusVoid:
		return true
	}
	return false
}

// Billable reports whether the status counts toward financial rollups.
// Draft and void invoices are excluded.
func (s InvoiceStatus) Billable() bool {
	return s.Valid() && s != InvoiceStatusDraft && s != InvoiceStatusVoid
}

// Invoice represents a billable document issued to a client. Amounts are
// integer minor currency units (cents) to avoid floating-point drift.
type Invoice struct {
	ID           string        `json:"id" db:"id"`
	OrgID        string        `json:"org_id" db:"org_id"`
	ClientID     string        `json:"client_id" db:"client_id"`
	Number       string        `json:"number" db:"number"`
	Amount       int64         `json:"amount" db:"amount"`
	Status       InvoiceStatus `json:"status" db:"status"`
	IssueDate    time.Time     `json:"issue_date" db:"issue_date"`
	DueDate      time.Time     `json:"due_date" db:"due_date"`
	PaidAt       *time.Time    `json:"paid_at,omitempty" db:"paid_at"`
	ProcessorRef *string       `json:"processor_ref,omitempty" db:"processor_ref"`
	TemplateID   *string       `json:"template_id,omitempty" db:"template_id"`
	Metadata     Metadata      `json:"metadata,omitempty" db:"metadata"`
	CreatedAt    time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at" db:"updated_at"`
}

// InvoiceCreateRequest is the payload for creating an invoice.
type InvoiceCreateRequest struct {
	ClientID  string `json:"client_id" validate:"required,uuid4"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	IssueDate string `json:"issue_date" validate:"required,datetime=2006-01-02"`
	DueDate   string `json:"due_date" validate:"required,datetime=2006-01-02"`
	Draft     bool   `json:"draft"`
}

// Metadata type for JSONB fields
type Metadata map[string]any

// Value implements driver.Valuer for Metadata
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner for Metadata
func (m *Metadata) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}

	b, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(b, m)
}
