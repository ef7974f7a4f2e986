package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/brightbooks/backend/internal/middleware"
	"github.com/brightbooks/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentService records payments against invoices and keeps derived invoice
// state consistent. Payments are append-only; recording one immediately
// re-reconciles the invoice.
type PaymentService struct {
	store     Store
	validator *ValidationHelper
	log       *zap.Logger
	now       func() time.Time
}

func NewPaymentService(store Store, log *zap.Logger) *PaymentService {
	return &PaymentService{
		store:     store,
		validator: NewValidationHelper(),
		log:       log,
		now:       time.Now,
	}
}

// Record inserts a payment and reconciles the invoice's status. Used by both
// the manual-entry endpoint and the processor webhook intake.
//
// Overpayment is tolerated, not rejected: the invoice simply goes to paid
// and the raw balance turns negative for manual review.
func (s *PaymentService) Record(ctx context.Context, p *models.Payment) (*models.Invoice, error) {
	if p.Amount < 0 {
		return nil, ErrInvalidAmount
	}

	inv, err := s.store.GetInvoice(ctx, p.OrgID, p.InvoiceID)
	if err != nil {
		return nil, err
	}
	if inv.Status == models.InvoiceStatusVoid {
		return nil, fmt.Errorf("invoice %s is void: %w", inv.ID, ErrNotFound)
	}

	if err := s.store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}

	if err := ReconcileAndPersist(ctx, s.store, inv, s.now()); err != nil {
		return nil, err
	}
	return inv, nil
}

// CreatePayment is the manual payment entry endpoint.
// @Summary Record a payment against an invoice
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Param request body models.PaymentCreateRequest true "Payment data"
// @Success 201 {object} object{payment=models.Payment,invoice_status=string}
// @Failure 400 {object} services.ErrorResponse
// @Failure 404 {object} services.ErrorResponse
// @Router /invoices/{id}/payments [post]
func (s *PaymentService) CreatePayment(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	invoiceID := chi.URLParam(r, "id")

	var req models.PaymentCreateRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	paidAt, _ := time.Parse("2006-01-02", req.PaidAt)

	p := &models.Payment{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		InvoiceID: invoiceID,
		Amount:    req.Amount,
		Method:    req.Method,
		PaidAt:    paidAt,
	}

	inv, err := s.Record(r.Context(), p)
	if err != nil {
		if IsNotFound(err) {
			SendErrorResponse(w, "Invoice not found", http.StatusNotFound, nil)
			return
		}
		s.log.Error("record payment failed",
			zap.String("invoice_id", invoiceID), zap.Error(err))
		SendErrorResponse(w, "Failed to record payment", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusCreated, map[string]any{
		"payment":        p,
		"invoice_status": inv.Status,
	})
}

// ListPayments returns all payments for the caller's organization.
// @Summary List payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{payments=[]models.Payment,count=int}
// @Router /payments [get]
func (s *PaymentService) ListPayments(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	payments, err := s.store.ListPayments(r.Context(), orgID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch payments", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"payments": payments,
		"count":    len(payments),
	})
}

// SyncPayments is the on-demand resync: it recomputes the caller's rollup
// from current rows and re-reconciles every billable invoice. Idempotent;
// running it twice changes nothing the second time.
// @Summary Resync invoice statuses and totals from payments
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{rollup=services.Rollup,updated=int}
// @Failure 400 {object} services.ErrorResponse
// @Router /sync-payments [post]
func (s *PaymentService) SyncPayments(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	invoices, err := s.store.ListInvoices(r.Context(), orgID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch invoices: "+err.Error(), http.StatusInternalServerError, nil)
		return
	}
	payments, err := s.store.ListPayments(r.Context(), orgID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch payments: "+err.Error(), http.StatusInternalServerError, nil)
		return
	}

	rollup, err := Aggregate(invoices, payments)
	if err != nil {
		// The owner is already authenticated; surface the underlying
		// validation error verbatim.
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}

	now := s.now()
	updated := 0
	for i := range invoices {
		inv := &invoices[i]
		if !inv.Status.Billable() {
			continue
		}
		before := inv.Status
		next := Reconcile(inv, rollup.PerInvoice[inv.ID], now)
		if next == before {
			continue
		}
		var paidAt *time.Time
		if next == models.InvoiceStatusPaid {
			paidAt = &now
		}
		if err := s.store.UpdateInvoiceStatus(r.Context(), orgID, inv.ID, next, paidAt); err != nil {
			SendErrorResponse(w, "Failed to update invoice "+inv.ID+": "+err.Error(), http.StatusInternalServerError, nil)
			return
		}
		updated++
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"rollup":  rollup,
		"updated": updated,
	})
}

// BackfillFees fills in missing processor fees on recorded payments. Each
// payment's fee is written at most once.
// @Summary Backfill processor fees on payments
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body object{fees=map[string]int64} true "Payment ID to fee, minor units"
// @Success 200 {object} object{backfilled=int,skipped=[]string}
// @Router /payments/backfill-fees [post]
func (s *PaymentService) BackfillFees(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req struct {
		Fees map[string]int64 `json:"fees" validate:"required,min=1"`
	}
	if err := DecodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	backfilled := 0
	var skipped []string
	for paymentID, fee := range req.Fees {
		if fee < 0 {
			skipped = append(skipped, paymentID+": negative fee")
			continue
		}
		if err := s.store.BackfillPaymentFee(r.Context(), orgID, paymentID, fee); err != nil {
			if IsNotFound(err) {
				skipped = append(skipped, paymentID+": not found or fee already set")
				continue
			}
			SendErrorResponse(w, "Failed to backfill fee for "+paymentID, http.StatusInternalServerError, nil)
			return
		}
		backfilled++
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"backfilled": backfilled,
		"skipped":    skipped,
	})
}
