package services

import (
	"context"
	"time"

	"github.com/brightbooks/backend/internal/models"
)

// Store is the data-access capability set the services depend on. The
// Postgres implementation lives in internal/store; tests substitute a
// testify mock. No service reaches for an ambient database handle.
type Store interface {
	// Invoices
	ListInvoices(ctx context.Context, orgID string) ([]models.Invoice, error)
	// ListOverdueCandidates returns sent invoices whose due date has passed,
	// optionally scoped to one organization. The scheduled sweep re-reconciles
	// these so overdue invoices flip without waiting for a payment event.
	ListOverdueCandidates(ctx context.Context, orgID *string, now time.Time) ([]models.Invoice, error)
	GetInvoice(ctx context.Context, orgID, id string) (*models.Invoice, error)
	CreateInvoice(ctx context.Context, inv *models.Invoice) error
	UpdateInvoiceStatus(ctx context.Context, orgID, id string, status models.InvoiceStatus, paidAt *time.Time) error
	MarkInvoiceSent(ctx context.Context, orgID, id string) error
	VoidInvoice(ctx context.Context, orgID, id string) error

	// Payments
	ListPayments(ctx context.Context, orgID string) ([]models.Payment, error)
	ListInvoicePayments(ctx context.Context, orgID, invoiceID string) ([]models.Payment, error)
	CreatePayment(ctx context.Context, p *models.Payment) error
	SumInvoicePayments(ctx context.Context, orgID, invoiceID string) (int64, error)
	ListPaymentsMissingFees(ctx context.Context, orgID string) ([]models.Payment, error)
	BackfillPaymentFee(ctx context.Context, orgID, paymentID string, fee int64) error
	PaymentExistsByProcessorRef(ctx context.Context, orgID, ref string) (bool, error)

	// Recurring templates
	ListTemplates(ctx context.Context, orgID string) ([]models.RecurringTemplate, error)
	ListDueTemplates(ctx context.Context, orgID *string, now time.Time) ([]models.RecurringTemplate, error)
	GetTemplate(ctx context.Context, orgID, id string) (*models.RecurringTemplate, error)
	CreateTemplate(ctx context.Context, tpl *models.RecurringTemplate) error
	UpdateTemplateStatus(ctx context.Context, orgID, id, status string) error
	// AdvanceTemplate performs the single conditional update guarding the
	// schedule race: it succeeds only while next_generation_date still
	// equals expected and the template is active. Returns false when a
	// concurrent run got there first.
	AdvanceTemplate(ctx context.Context, orgID, id string, expected, next time.Time) (bool, error)

	// Clients
	ListClients(ctx context.Context, orgID string) ([]models.Client, error)
	GetClient(ctx context.Context, orgID, id string) (*models.Client, error)
	CreateClient(ctx context.Context, c *models.Client) error

	// Run log
	AppendRunLog(ctx context.Context, rl *models.RunLog) error

	// Auth
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	TouchUserLogin(ctx context.Context, userID string, at time.Time) error

	// Client upload portal
	CreatePortalToken(ctx context.Context, t *models.PortalToken) error
	GetPortalToken(ctx context.Context, id string) (*models.PortalToken, error)
	CreatePortalUpload(ctx context.Context, u *models.PortalUpload) error
	ListPortalUploads(ctx context.Context, orgID string) ([]models.PortalUpload, error)
}
