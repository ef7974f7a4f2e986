package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"time"

	"github.com/brightbooks/backend/internal/models"
	"github.com/brightbooks/backend/internal/services"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// webhookDedupeTTL bounds how long processed event ids are remembered.
const webhookDedupeTTL = 48 * time.Hour

// signatureHeader carries the hex HMAC-SHA256 of the raw request body,
// keyed with the shared webhook secret.
const signatureHeader = "X-Webhook-Signature"

// WebhookHandler ingests payment-processor events. Deliveries must carry a
// valid body signature; payloads are strict tagged JSON, and unknown event
// types and malformed shapes are rejected at the boundary instead of passed
// through.
type WebhookHandler struct {
	payments  *services.PaymentService
	store     services.Store
	redis     *redis.Client
	validator *services.ValidationHelper
	log       *zap.Logger
}

func NewWebhookHandler(payments *services.PaymentService, store services.Store, redisClient *redis.Client, log *zap.Logger) *WebhookHandler {
	return &WebhookHandler{
		payments:  payments,
		store:     store,
		redis:     redisClient,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

// HandleEvent processes one processor event.
// @Summary Payment processor webhook
// @Tags webhooks
// @Accept json
// @Produce json
// @Param org_id query string true "Organization ID"
// @Param X-Webhook-Signature header string true "Hex HMAC-SHA256 of the request body"
// @Param event body models.ProcessorEvent true "Processor event"
// @Success 200 {object} object{received=bool}
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Router /webhooks/payments [post]
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1_048_576))
	if err != nil {
		services.SendErrorResponse(w, "Failed to read request body", http.StatusBadRequest, nil)
		return
	}
	if !verifySignature(r.Header.Get(signatureHeader), body) {
		services.SendErrorResponse(w, "Invalid webhook signature", http.StatusUnauthorized, nil)
		return
	}

	orgID := r.URL.Query().Get("org_id")
	if _, err := uuid.Parse(orgID); err != nil {
		services.SendErrorResponse(w, "Invalid org_id", http.StatusBadRequest, nil)
		return
	}

	r.Body = io.NopCloser(bytes.NewReader(body))
	var ev models.ProcessorEvent
	if err := services.DecodeJSON(w, r, &ev); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&ev); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	if handled, err := h.alreadyHandled(r, orgID, &ev); err == nil && handled {
		h.log.Info("duplicate processor event ignored",
			zap.String("event_id", ev.EventID), zap.String("type", ev.Type))
		services.SendJSON(w, http.StatusOK, map[string]any{"received": true, "duplicate": true})
		return
	}

	switch ev.Type {
	case models.ProcessorEventPaymentSucceeded:
		fee := ev.Fee
		p := &models.Payment{
			ID:           uuid.NewString(),
			OrgID:        orgID,
			InvoiceID:    ev.InvoiceID,
			Amount:       ev.Amount,
			Fee:          &fee,
			Method:       models.PaymentMethodExternal,
			PaidAt:       time.Unix(ev.CreatedAt, 0).UTC(),
			ProcessorRef: &ev.Reference,
			Metadata:     models.Metadata{"event_id": ev.EventID},
		}
		if _, err := h.payments.Record(r.Context(), p); err != nil {
			// The delivery failed, so the processor's retry must not be
			// swallowed as a duplicate.
			h.releaseEvent(r.Context(), ev.EventID)
			if services.IsNotFound(err) {
				services.SendErrorResponse(w, "Invoice not found", http.StatusNotFound, nil)
				return
			}
			h.log.Error("webhook payment record failed",
				zap.String("event_id", ev.EventID), zap.Error(err))
			services.SendErrorResponse(w, "Failed to record payment", http.StatusInternalServerError, nil)
			return
		}

	case models.ProcessorEventPaymentFailed:
		// Nothing to mutate; the invoice stays where it is.
		h.log.Info("processor payment failed",
			zap.String("invoice_id", ev.InvoiceID),
			zap.String("reference", ev.Reference),
			zap.String("reason", ev.Reason))

	case models.ProcessorEventPaymentRefunded:
		// Refund handling is out of scope: flag for manual review rather
		// than recording a negative payment.
		h.log.Warn("processor refund received, flagged for manual review",
			zap.String("invoice_id", ev.InvoiceID),
			zap.String("reference", ev.Reference),
			zap.Int64("amount", ev.Amount))
	}

	services.SendJSON(w, http.StatusOK, map[string]any{"received": true})
}

// verifySignature checks the delivery's HMAC against the shared webhook
// secret. An unconfigured secret rejects every delivery.
func verifySignature(sig string, body []byte) bool {
	secret := viper.GetString("webhooks.secret")
	if secret == "" || sig == "" {
		return false
	}
	provided, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(provided, mac.Sum(nil))
}

// alreadyHandled marks the event id as seen via SETNX. When Redis is down
// the check degrades to the payments table for succeeded events.
func (h *WebhookHandler) alreadyHandled(r *http.Request, orgID string, ev *models.ProcessorEvent) (bool, error) {
	if h.redis != nil {
		set, err := h.redis.SetNX(r.Context(), "webhook:"+ev.EventID, "1", webhookDedupeTTL).Result()
		if err == nil {
			return !set, nil
		}
		h.log.Warn("webhook dedupe unavailable, falling back to payments table", zap.Error(err))
	}

	if ev.Type == models.ProcessorEventPaymentSucceeded {
		return h.store.PaymentExistsByProcessorRef(r.Context(), orgID, ev.Reference)
	}
	return false, nil
}

// releaseEvent drops the dedupe claim for an event whose processing failed.
func (h *WebhookHandler) releaseEvent(ctx context.Context, eventID string) {
	if h.redis == nil {
		return
	}
	if err := h.redis.Del(ctx, "webhook:"+eventID).Err(); err != nil {
		h.log.Warn("failed to release webhook dedupe key",
			zap.String("event_id", eventID), zap.Error(err))
	}
}
