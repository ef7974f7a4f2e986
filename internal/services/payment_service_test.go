package services

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brightbooks/backend/internal/middleware"
	"github.com/brightbooks/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func paymentRouter(svc *PaymentService) chi.Router {
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Post("/invoices/{id}/payments", svc.CreatePayment)
		r.Get("/payments", svc.ListPayments)
		r.Post("/sync-payments", svc.SyncPayments)
		r.Post("/payments/backfill-fees", svc.BackfillFees)
	})
	return r
}

func TestSyncPayments(t *testing.T) {
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	t.Run("reconciles every billable invoice and reports the rollup", func(t *testing.T) {
		st := new(MockStore)
		svc := NewPaymentService(st, zapNop())
		svc.now = func() time.Time { return now }

		invoices := []models.Invoice{
			{ID: "i1", OrgID: "org1", ClientID: "c1", Amount: 10000, Status: models.InvoiceStatusSent, DueDate: due},
			{ID: "i2", OrgID: "org1", ClientID: "c1", Amount: 5000, Status: models.InvoiceStatusSent, DueDate: due.AddDate(0, -1, 0)},
			{ID: "i3", OrgID: "org1", ClientID: "c2", Amount: 2000, Status: models.InvoiceStatusDraft, DueDate: due},
		}
		payments := []models.Payment{
			{ID: "p1", OrgID: "org1", InvoiceID: "i1", Amount: 4000},
		}

		st.On("ListInvoices", mock.Anything, "org1").Return(invoices, nil)
		st.On("ListPayments", mock.Anything, "org1").Return(payments, nil)
		// i1: 4000 of 10000 paid.
		st.On("UpdateInvoiceStatus", mock.Anything, "org1", "i1",
			models.InvoiceStatusPartiallyPaid, (*time.Time)(nil)).Return(nil)
		// i2: unpaid and past due.
		st.On("UpdateInvoiceStatus", mock.Anything, "org1", "i2",
			models.InvoiceStatusOverdue, (*time.Time)(nil)).Return(nil)

		rec := httptest.NewRecorder()
		paymentRouter(svc).ServeHTTP(rec, authedRequest(t, "POST", "/sync-payments", nil))

		assert.Equal(t, 200, rec.Code)
		var resp struct {
			Rollup  Rollup `json:"rollup"`
			Updated int    `json:"updated"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Updated)
		assert.Equal(t, int64(15000), resp.Rollup.TotalInvoiced) // draft i3 excluded
		assert.Equal(t, int64(4000), resp.Rollup.TotalPaid)
		assert.Equal(t, int64(11000), resp.Rollup.BalanceDue)
		st.AssertExpectations(t)
		// The draft invoice is never touched.
		st.AssertNotCalled(t, "UpdateInvoiceStatus", mock.Anything, "org1", "i3",
			mock.Anything, mock.Anything)
	})

	t.Run("running twice changes nothing the second time", func(t *testing.T) {
		st := new(MockStore)
		svc := NewPaymentService(st, zapNop())
		svc.now = func() time.Time { return now }

		// Statuses already reflect the payments.
		invoices := []models.Invoice{
			{ID: "i1", OrgID: "org1", ClientID: "c1", Amount: 10000, Status: models.InvoiceStatusPartiallyPaid, DueDate: due},
		}
		payments := []models.Payment{
			{ID: "p1", OrgID: "org1", InvoiceID: "i1", Amount: 4000},
		}

		st.On("ListInvoices", mock.Anything, "org1").Return(invoices, nil)
		st.On("ListPayments", mock.Anything, "org1").Return(payments, nil)

		rec := httptest.NewRecorder()
		paymentRouter(svc).ServeHTTP(rec, authedRequest(t, "POST", "/sync-payments", nil))

		assert.Equal(t, 200, rec.Code)
		var resp struct {
			Updated int `json:"updated"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 0, resp.Updated)
		st.AssertNotCalled(t, "UpdateInvoiceStatus", mock.Anything, mock.Anything,
			mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("negative stored amount surfaces the underlying error", func(t *testing.T) {
		st := new(MockStore)
		svc := NewPaymentService(st, zapNop())

		invoices := []models.Invoice{
			{ID: "i1", OrgID: "org1", ClientID: "c1", Amount: -100, Status: models.InvoiceStatusSent, DueDate: due},
		}
		st.On("ListInvoices", mock.Anything, "org1").Return(invoices, nil)
		st.On("ListPayments", mock.Anything, "org1").Return([]models.Payment{}, nil)

		rec := httptest.NewRecorder()
		paymentRouter(svc).ServeHTTP(rec, authedRequest(t, "POST", "/sync-payments", nil))

		assert.Equal(t, 400, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid amount")
	})
}

func TestBackfillFeesEndpoint(t *testing.T) {
	t.Run("fills fees and reports skips", func(t *testing.T) {
		st := new(MockStore)
		svc := NewPaymentService(st, zapNop())

		st.On("BackfillPaymentFee", mock.Anything, "org1", "p1", int64(120)).Return(nil)
		st.On("BackfillPaymentFee", mock.Anything, "org1", "p2", int64(90)).Return(ErrNotFound)

		body := bytes.NewBufferString(`{"fees":{"p1":120,"p2":90,"p3":-5}}`)
		rec := httptest.NewRecorder()
		paymentRouter(svc).ServeHTTP(rec, authedRequest(t, "POST", "/payments/backfill-fees", body))

		assert.Equal(t, 200, rec.Code)
		var resp struct {
			Backfilled int      `json:"backfilled"`
			Skipped    []string `json:"skipped"`
		}
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 1, resp.Backfilled)
		assert.Len(t, resp.Skipped, 2)
	})

	t.Run("empty fee map fails validation", func(t *testing.T) {
		st := new(MockStore)
		svc := NewPaymentService(st, zapNop())

		body := bytes.NewBufferString(`{"fees":{}}`)
		rec := httptest.NewRecorder()
		paymentRouter(svc).ServeHTTP(rec, authedRequest(t, "POST", "/payments/backfill-fees", body))

		assert.Equal(t, 400, rec.Code)
	})
}

func TestCreatePaymentEndpoint(t *testing.T) {
	due := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)

	t.Run("records against the invoice in the path", func(t *testing.T) {
		st := new(MockStore)
		svc := NewPaymentService(st, zapNop())
		svc.now = func() time.Time { return due.AddDate(0, 0, -10) }

		inv := &models.Invoice{ID: "i1", OrgID: "org1", Amount: 10000, Status: models.InvoiceStatusSent, DueDate: due}
		st.On("GetInvoice", mock.Anything, "org1", "i1").Return(inv, nil)
		st.On("CreatePayment", mock.Anything, mock.MatchedBy(func(p *models.Payment) bool {
			return p.InvoiceID == "i1" && p.Amount == 10000 && p.Method == models.PaymentMethodBank
		})).Return(nil)
		st.On("SumInvoicePayments", mock.Anything, "org1", "i1").Return(int64(10000), nil)
		st.On("UpdateInvoiceStatus", mock.Anything, "org1", "i1", models.InvoiceStatusPaid,
			mock.AnythingOfType("*time.Time")).Return(nil)

		body := bytes.NewBufferString(`{"amount":10000,"method":"bank_transfer","paid_at":"2026-03-20"}`)
		rec := httptest.NewRecorder()
		paymentRouter(svc).ServeHTTP(rec, authedRequest(t, "POST", "/invoices/i1/payments", body))

		assert.Equal(t, 201, rec.Code)
		assert.Contains(t, rec.Body.String(), `"invoice_status":"paid"`)
		st.AssertExpectations(t)
	})

	t.Run("unknown method fails validation", func(t *testing.T) {
		st := new(MockStore)
		svc := NewPaymentService(st, zapNop())

		body := bytes.NewBufferString(`{"amount":10000,"method":"barter","paid_at":"2026-03-20"}`)
		rec := httptest.NewRecorder()
		paymentRouter(svc).ServeHTTP(rec, authedRequest(t, "POST", "/invoices/i1/payments", body))

		assert.Equal(t, 400, rec.Code)
		st.AssertNotCalled(t, "CreatePayment", mock.Anything, mock.Anything)
	})
}
