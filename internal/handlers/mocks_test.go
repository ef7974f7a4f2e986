package handlers

import (
	"context"
	"time"

	"github.com/brightbooks/backend/internal/models"
	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ListInvoices(ctx context.Context, orgID string) ([]models.Invoice, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *mockStore) ListOverdueCandidates(ctx context.Context, orgID *string, now time.Time) ([]models.Invoice, error) {
	args := m.Called(ctx, orgID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *mockStore) GetInvoice(ctx context.Context, orgID, id string) (*models.Invoice, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *mockStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *mockStore) UpdateInvoiceStatus(ctx context.Context, orgID, id string, status models.InvoiceStatus, paidAt *time.Time) error {
	return m.Called(ctx, orgID, id, status, paidAt).Error(0)
}

func (m *mockStore) MarkInvoiceSent(ctx context.Context, orgID, id string) error {
	return m.Called(ctx, orgID, id).Error(0)
}

func (m *mockStore) VoidInvoice(ctx context.Context, orgID, id string) error {
	return m.Called(ctx, orgID, id).Error(0)
}

func (m *mockStore) ListPayments(ctx context.Context, orgID string) ([]models.Payment, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *mockStore) ListInvoicePayments(ctx context.Context, orgID, invoiceID string) ([]models.Payment, error) {
	args := m.Called(ctx, orgID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *mockStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	return m.Called(ctx, p).Error(0)
}

func (m *mockStore) SumInvoicePayments(ctx context.Context, orgID, invoiceID string) (int64, error) {
	args := m.Called(ctx, orgID, invoiceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockStore) ListPaymentsMissingFees(ctx context.Context, orgID string) ([]models.Payment, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *mockStore) BackfillPaymentFee(ctx context.Context, orgID, paymentID string, fee int64) error {
	return m.Called(ctx, orgID, paymentID, fee).Error(0)
}

func (m *mockStore) PaymentExistsByProcessorRef(ctx context.Context, orgID, ref string) (bool, error) {
	args := m.Called(ctx, orgID, ref)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ListTemplates(ctx context.Context, orgID string) ([]models.RecurringTemplate, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RecurringTemplate), args.Error(1)
}

func (m *mockStore) ListDueTemplates(ctx context.Context, orgID *string, now time.Time) ([]models.RecurringTemplate, error) {
	args := m.Called(ctx, orgID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RecurringTemplate), args.Error(1)
}

func (m *mockStore) GetTemplate(ctx context.Context, orgID, id string) (*models.RecurringTemplate, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecurringTemplate), args.Error(1)
}

func (m *mockStore) CreateTemplate(ctx context.Context, tpl *models.RecurringTemplate) error {
	return m.Called(ctx, tpl).Error(0)
}

func (m *mockStore) UpdateTemplateStatus(ctx context.Context, orgID, id, status string) error {
	return m.Called(ctx, orgID, id, status).Error(0)
}

func (m *mockStore) AdvanceTemplate(ctx context.Context, orgID, id string, expected, next time.Time) (bool, error) {
	args := m.Called(ctx, orgID, id, expected, next)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) ListClients(ctx context.Context, orgID string) ([]models.Client, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Client), args.Error(1)
}

func (m *mockStore) GetClient(ctx context.Context, orgID, id string) (*models.Client, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *mockStore) CreateClient(ctx context.Context, c *models.Client) error {
	return m.Called(ctx, c).Error(0)
}

func (m *mockStore) AppendRunLog(ctx context.Context, rl *models.RunLog) error {
	return m.Called(ctx, rl).Error(0)
}

func (m *mockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockStore) TouchUserLogin(ctx context.Context, userID string, at time.Time) error {
	return m.Called(ctx, userID, at).Error(0)
}

func (m *mockStore) CreatePortalToken(ctx context.Context, t *models.PortalToken) error {
	return m.Called(ctx, t).Error(0)
}

func (m *mockStore) GetPortalToken(ctx context.Context, id string) (*models.PortalToken, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PortalToken), args.Error(1)
}

func (m *mockStore) CreatePortalUpload(ctx context.Context, u *models.PortalUpload) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockStore) ListPortalUploads(ctx context.Context, orgID string) ([]models.PortalUpload, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PortalUpload), args.Error(1)
}
