package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/brightbooks/backend/internal/middleware"
	"github.com/brightbooks/backend/internal/models"
	"github.com/brightbooks/backend/internal/services"
	"go.uber.org/zap"
)

// PortalHandler wraps the client upload portal: owner-side token issuance
// and upload listing, plus the client-facing upload endpoint itself.
type PortalHandler struct {
	portal    *services.PortalService
	validator *services.ValidationHelper
	log       *zap.Logger
}

func NewPortalHandler(portal *services.PortalService, log *zap.Logger) *PortalHandler {
	return &PortalHandler{
		portal:    portal,
		validator: services.NewValidationHelper(),
		log:       log,
	}
}

// IssueToken mints an upload token for a client.
// @Summary Issue a client upload token
// @Tags portal
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.PortalTokenRequest true "Token request"
// @Success 201 {object} object{token=string,expires_at=string}
// @Failure 404 {object} services.ErrorResponse
// @Router /portal/tokens [post]
func (h *PortalHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req models.PortalTokenRequest
	if err := services.DecodeJSON(w, r, &req); err != nil {
		services.SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := h.validator.ValidateStruct(&req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	token, row, err := h.portal.IssueToken(r.Context(), orgID, req.ClientID, time.Duration(req.TTLHours)*time.Hour)
	if err != nil {
		if services.IsNotFound(err) {
			services.SendErrorResponse(w, "Client not found", http.StatusNotFound, nil)
			return
		}
		h.log.Error("portal token issuance failed", zap.Error(err))
		services.SendErrorResponse(w, "Failed to issue token", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusCreated, map[string]any{
		"token":      token,
		"expires_at": row.ExpiresAt,
	})
}

// Upload receives a multipart file from a client holding a portal token.
// @Summary Upload a file through the client portal
// @Tags portal
// @Accept multipart/form-data
// @Produce json
// @Param Authorization header string true "Bearer portal token"
// @Param file formData file true "File to upload"
// @Success 201 {object} models.PortalUpload
// @Failure 401 {object} services.ErrorResponse
// @Router /portal/uploads [post]
func (h *PortalHandler) Upload(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		services.SendErrorResponse(w, "Portal token required", http.StatusUnauthorized, nil)
		return
	}

	token, err := h.portal.Authenticate(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
	if err != nil {
		services.SendErrorResponse(w, "Invalid or expired portal token", http.StatusUnauthorized, nil)
		return
	}

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		services.SendErrorResponse(w, "Invalid multipart body", http.StatusBadRequest, nil)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		services.SendErrorResponse(w, "Missing file field", http.StatusBadRequest, nil)
		return
	}
	defer file.Close()

	upload, err := h.portal.SaveUpload(r.Context(), token, file, header)
	if err != nil {
		h.log.Error("portal upload failed",
			zap.String("client_id", token.ClientID), zap.Error(err))
		services.SendErrorResponse(w, "Failed to store upload", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusCreated, upload)
}

// ListUploads returns the organization's portal uploads.
// @Summary List portal uploads
// @Tags portal
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{uploads=[]models.PortalUpload,count=int}
// @Router /portal/uploads [get]
func (h *PortalHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	uploads, err := h.portal.ListUploads(r.Context(), orgID)
	if err != nil {
		services.SendErrorResponse(w, "Failed to fetch uploads", http.StatusInternalServerError, nil)
		return
	}

	services.SendJSON(w, http.StatusOK, map[string]any{
		"uploads": uploads,
		"count":   len(uploads),
	})
}
