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
	qrcode "github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

// InvoiceService owns the invoice CRUD surface.
type InvoiceService struct {
	store     Store
	validator *ValidationHelper
	log       *zap.Logger
	baseURL   string
}

func NewInvoiceService(store Store, log *zap.Logger, baseURL string) *InvoiceService {
	return &InvoiceService{
		store:     store,
		validator: NewValidationHelper(),
		log:       log,
		baseURL:   baseURL,
	}
}

// ListInvoices returns all invoices for the caller's organization.
// @Summary List invoices
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{invoices=[]models.Invoice,count=int}
// @Router /invoices [get]
func (s *InvoiceService) ListInvoices(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	invoices, err := s.store.ListInvoices(r.Context(), orgID)
	if err != nil {
		s.log.Error("list invoices failed", zap.String("org_id", orgID), zap.Error(err))
		SendErrorResponse(w, "Failed to fetch invoices", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"invoices": invoices,
		"count":    len(invoices),
	})
}

// GetInvoice returns one invoice plus its payments and running totals.
// @Summary Get invoice by ID
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 200 {object} object{invoice=models.Invoice,payments=[]models.Payment,total_paid=int64,balance_due=int64}
// @Failure 404 {object} services.ErrorResponse
// @Router /invoices/{id} [get]
func (s *InvoiceService) GetInvoice(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id := chi.URLParam(r, "id")

	inv, err := s.store.GetInvoice(r.Context(), orgID, id)
	if err != nil {
		if IsNotFound(err) {
			SendErrorResponse(w, "Invoice not found", http.StatusNotFound, nil)
			return
		}
		SendErrorResponse(w, "Failed to fetch invoice", http.StatusInternalServerError, nil)
		return
	}

	payments, err := s.store.ListInvoicePayments(r.Context(), orgID, id)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch payments", http.StatusInternalServerError, nil)
		return
	}

	var totalPaid int64
	for _, p := range payments {
		totalPaid += p.Amount
	}
	raw := inv.Amount - totalPaid

	SendJSON(w, http.StatusOK, map[string]any{
		"invoice":     inv,
		"payments":    payments,
		"total_paid":  totalPaid,
		"balance_due": floorZero(raw),
		"raw_balance": raw,
	})
}

// CreateInvoice creates a new invoice in draft or sent status.
// @Summary Create an invoice
// @Tags invoices
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.InvoiceCreateRequest true "Invoice data"
// @Success 201 {object} models.Invoice
// @Failure 400 {object} services.ErrorResponse
// @Router /invoices [post]
func (s *InvoiceService) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req models.InvoiceCreateRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if _, err := s.store.GetClient(r.Context(), orgID, req.ClientID); err != nil {
		if IsNotFound(err) {
			SendErrorResponse(w, "Client not found", http.StatusNotFound, nil)
			return
		}
		SendErrorResponse(w, "Failed to resolve client", http.StatusInternalServerError, nil)
		return
	}

	issueDate, _ := time.Parse("2006-01-02", req.IssueDate)
	dueDate, _ := time.Parse("2006-01-02", req.DueDate)
	if dueDate.Before(issueDate) {
		SendErrorResponse(w, "Due date precedes issue date", http.StatusBadRequest, nil)
		return
	}

	status := models.InvoiceStatusSent
	if req.Draft {
		status = models.InvoiceStatusDraft
	}

	inv := &models.Invoice{
		ID:        uuid.NewString(),
		OrgID:     orgID,
		ClientID:  req.ClientID,
		Number:    NewInvoiceNumber(),
		Amount:    req.Amount,
		Status:    status,
		IssueDate: issueDate,
		DueDate:   dueDate,
	}

	if err := s.store.CreateInvoice(r.Context(), inv); err != nil {
		s.log.Error("create invoice failed", zap.String("org_id", orgID), zap.Error(err))
		SendErrorResponse(w, "Failed to create invoice", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusCreated, inv)
}

// SendInvoice moves a draft invoice to sent. This is the only path out of
// draft; payments never do it.
// @Summary Send a draft invoice
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Router /invoices/{id}/send [post]
func (s *InvoiceService) SendInvoice(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.store.MarkInvoiceSent, "send")
}

// VoidInvoice voids an invoice. Void is terminal.
// @Summary Void an invoice
// @Tags invoices
// @Produce json
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 200 {object} object{success=bool}
// @Failure 404 {object} services.ErrorResponse
// @Router /invoices/{id}/void [post]
func (s *InvoiceService) VoidInvoice(w http.ResponseWriter, r *http.Request) {
	s.transition(w, r, s.store.VoidInvoice, "void")
}

func (s *InvoiceService) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, orgID, id string) error, action string) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id := chi.URLParam(r, "id")

	if err := fn(r.Context(), orgID, id); err != nil {
		if IsNotFound(err) {
			SendErrorResponse(w, "Invoice not found", http.StatusNotFound, nil)
			return
		}
		s.log.Error("invoice transition failed",
			zap.String("action", action), zap.String("invoice_id", id), zap.Error(err))
		SendErrorResponse(w, fmt.Sprintf("Failed to %s invoice", action), http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{"success": true})
}

// InvoiceQR renders a QR code pointing at the hosted payment page for the
// invoice.
// @Summary Payment-link QR code
// @Tags invoices
// @Produce png
// @Security BearerAuth
// @Param id path string true "Invoice ID"
// @Success 200 {string} binary "PNG image"
// @Failure 404 {object} services.ErrorResponse
// @Router /invoices/{id}/qr [get]
func (s *InvoiceService) InvoiceQR(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id := chi.URLParam(r, "id")

	inv, err := s.store.GetInvoice(r.Context(), orgID, id)
	if err != nil {
		if IsNotFound(err) {
			SendErrorResponse(w, "Invoice not found", http.StatusNotFound, nil)
			return
		}
		SendErrorResponse(w, "Failed to fetch invoice", http.StatusInternalServerError, nil)
		return
	}

	link := fmt.Sprintf("%s/pay/%s", s.baseURL, inv.ID)
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		SendErrorResponse(w, "Failed to render QR code", http.StatusInternalServerError, nil)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
