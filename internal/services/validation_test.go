package services

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/brightbooks/backend/internal/models"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
)

func TestValidationHelper_ValidateStruct(t *testing.T) {
	vh := NewValidationHelper()

	t.Run("valid invoice request", func(t *testing.T) {
		valid := models.InvoiceCreateRequest{
			ClientID:  "7c9e6679-7425-40de-944b-e07fc1f90ae7",
			Amount:    10000,
			IssueDate: "2026-03-01",
			DueDate:   "2026-03-31",
		}

		err := vh.ValidateStruct(&valid)
		assert.NoError(t, err)
	})

	t.Run("missing and malformed fields", func(t *testing.T) {
		invalid := models.InvoiceCreateRequest{
			ClientID:  "not-a-uuid",
			Amount:    0,
			IssueDate: "03/01/2026",
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)

		validationErrors, ok := err.(validator.ValidationErrors)
		assert.True(t, ok)
		assert.Len(t, validationErrors, 4) // ClientID, Amount, IssueDate, DueDate
	})

	t.Run("frequency outside the allowed set", func(t *testing.T) {
		invalid := models.TemplateCreateRequest{
			ClientID:  "7c9e6679-7425-40de-944b-e07fc1f90ae7",
			Name:      "Retainer",
			Amount:    50000,
			Frequency: "fortnightly",
			StartDate: "2026-03-01",
		}

		err := vh.ValidateStruct(&invalid)
		assert.Error(t, err)
	})
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}

	decode := func(body string) error {
		req := httptest.NewRequest("POST", "/", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		var p payload
		return DecodeJSON(rec, req, &p)
	}

	t.Run("accepts a single well-formed object", func(t *testing.T) {
		assert.NoError(t, decode(`{"name":"Acme"}`))
	})

	t.Run("rejects unknown fields", func(t *testing.T) {
		assert.Error(t, decode(`{"name":"Acme","extra":1}`))
	})

	t.Run("rejects trailing content", func(t *testing.T) {
		assert.Error(t, decode(`{"name":"Acme"}{"name":"Again"}`))
	})

	t.Run("rejects malformed JSON", func(t *testing.T) {
		assert.Error(t, decode(`{"name":`))
	})
}

func TestSendErrorResponse(t *testing.T) {
	t.Run("includes validation details per field", func(t *testing.T) {
		vh := NewValidationHelper()
		err := vh.ValidateStruct(&models.PaymentCreateRequest{Method: "barter"})
		assert.Error(t, err)

		rec := httptest.NewRecorder()
		SendErrorResponse(rec, "Validation failed", 400, err)

		assert.Equal(t, 400, rec.Code)
		var resp ErrorResponse
		assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Validation failed", resp.Error)
		assert.Contains(t, resp.Details, "Method")
	})

	t.Run("plain error has no details", func(t *testing.T) {
		rec := httptest.NewRecorder()
		SendErrorResponse(rec, "Not found", 404, nil)

		assert.Equal(t, 404, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.NotContains(t, rec.Body.String(), "details")
	})
}
