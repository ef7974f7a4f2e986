package services

import (
	"context"
	"time"

	"github.com/brightbooks/backend/internal/models"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func zapNop() *zap.Logger {
	return zap.NewNop()
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) ListInvoices(ctx context.Context, orgID string) ([]models.Invoice, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *MockStore) ListOverdueCandidates(ctx context.Context, orgID *string, now time.Time) ([]models.Invoice, error) {
	args := m.Called(ctx, orgID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Invoice), args.Error(1)
}

func (m *MockStore) GetInvoice(ctx context.Context, orgID, id string) (*models.Invoice, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Invoice), args.Error(1)
}

func (m *MockStore) CreateInvoice(ctx context.Context, inv *models.Invoice) error {
	args := m.Called(ctx, inv)
	return args.Error(0)
}

func (m *MockStore) UpdateInvoiceStatus(ctx context.Context, orgID, id string, status models.InvoiceStatus, paidAt *time.Time) error {
	args := m.Called(ctx, orgID, id, status, paidAt)
	return args.Error(0)
}

func (m *MockStore) MarkInvoiceSent(ctx context.Context, orgID, id string) error {
	args := m.Called(ctx, orgID, id)
	return args.Error(0)
}

func (m *MockStore) VoidInvoice(ctx context.Context, orgID, id string) error {
	args := m.Called(ctx, orgID, id)
	return args.Error(0)
}

func (m *MockStore) ListPayments(ctx context.Context, orgID string) ([]models.Payment, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *MockStore) ListInvoicePayments(ctx context.Context, orgID, invoiceID string) ([]models.Payment, error) {
	args := m.Called(ctx, orgID, invoiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *MockStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *MockStore) SumInvoicePayments(ctx context.Context, orgID, invoiceID string) (int64, error) {
	args := m.Called(ctx, orgID, invoiceID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockStore) ListPaymentsMissingFees(ctx context.Context, orgID string) ([]models.Payment, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Payment), args.Error(1)
}

func (m *MockStore) BackfillPaymentFee(ctx context.Context, orgID, paymentID string, fee int64) error {
	args := m.Called(ctx, orgID, paymentID, fee)
	return args.Error(0)
}

func (m *MockStore) PaymentExistsByProcessorRef(ctx context.Context, orgID, ref string) (bool, error) {
	args := m.Called(ctx, orgID, ref)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ListTemplates(ctx context.Context, orgID string) ([]models.RecurringTemplate, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RecurringTemplate), args.Error(1)
}

func (m *MockStore) ListDueTemplates(ctx context.Context, orgID *string, now time.Time) ([]models.RecurringTemplate, error) {
	args := m.Called(ctx, orgID, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.RecurringTemplate), args.Error(1)
}

func (m *MockStore) GetTemplate(ctx context.Context, orgID, id string) (*models.RecurringTemplate, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecurringTemplate), args.Error(1)
}

func (m *MockStore) CreateTemplate(ctx context.Context, tpl *models.RecurringTemplate) error {
	args := m.Called(ctx, tpl)
	return args.Error(0)
}

func (m *MockStore) UpdateTemplateStatus(ctx context.Context, orgID, id, status string) error {
	args := m.Called(ctx, orgID, id, status)
	return args.Error(0)
}

func (m *MockStore) AdvanceTemplate(ctx context.Context, orgID, id string, expected, next time.Time) (bool, error) {
	args := m.Called(ctx, orgID, id, expected, next)
	return args.Bool(0), args.Error(1)
}

func (m *MockStore) ListClients(ctx context.Context, orgID string) ([]models.Client, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Client), args.Error(1)
}

func (m *MockStore) GetClient(ctx context.Context, orgID, id string) (*models.Client, error) {
	args := m.Called(ctx, orgID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Client), args.Error(1)
}

func (m *MockStore) CreateClient(ctx context.Context, c *models.Client) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockStore) AppendRunLog(ctx context.Context, rl *models.RunLog) error {
	args := m.Called(ctx, rl)
	return args.Error(0)
}

func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockStore) TouchUserLogin(ctx context.Context, userID string, at time.Time) error {
	args := m.Called(ctx, userID, at)
	return args.Error(0)
}

func (m *MockStore) CreatePortalToken(ctx context.Context, t *models.PortalToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *MockStore) GetPortalToken(ctx context.Context, id string) (*models.PortalToken, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PortalToken), args.Error(1)
}

func (m *MockStore) CreatePortalUpload(ctx context.Context, u *models.PortalUpload) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockStore) ListPortalUploads(ctx context.Context, orgID string) ([]models.PortalUpload, error) {
	args := m.Called(ctx, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.PortalUpload), args.Error(1)
}
