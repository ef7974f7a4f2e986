package services

import (
	"net/http"
	"time"

	"github.com/brightbooks/backend/internal/middleware"
	"github.com/brightbooks/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TemplateService owns the recurring-template CRUD surface. The schedule
// itself is only ever mutated by the ScheduleService's conditional advance
// or by the explicit pause/resume/cancel actions here.
type TemplateService struct {
	store     Store
	validator *ValidationHelper
	log       *zap.Logger
}

func NewTemplateService(store Store, log *zap.Logger) *TemplateService {
	return &TemplateService{
		store:     store,
		validator: NewValidationHelper(),
		log:       log,
	}
}

// CreateTemplate creates a recurring template. The first generation date is
// the start date itself (occurrence 0).
// @Summary Create a recurring invoice template
// @Tags templates
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.TemplateCreateRequest true "Template data"
// @Success 201 {object} models.RecurringTemplate
// @Failure 400 {object} services.ErrorResponse
// @Router /templates [post]
func (s *TemplateService) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req models.TemplateCreateRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	freq, err := models.ParseFrequency(req.Frequency)
	if err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
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

	startDate, _ := time.Parse("2006-01-02", req.StartDate)

	tpl := &models.RecurringTemplate{
		ID:                 uuid.NewString(),
		OrgID:              orgID,
		ClientID:           req.ClientID,
		Name:               req.Name,
		Amount:             req.Amount,
		Frequency:          freq,
		StartDate:          startDate,
		NextGenerationDate: startDate,
		OccurrenceCount:    0,
		Status:             models.TemplateStatusActive,
		IssueAsDraft:       req.IssueAsDraft,
	}

	if err := s.store.CreateTemplate(r.Context(), tpl); err != nil {
		s.log.Error("create template failed", zap.String("org_id", orgID), zap.Error(err))
		SendErrorResponse(w, "Failed to create template", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusCreated, tpl)
}

// ListTemplates returns all recurring templates for the organization.
// @Summary List recurring templates
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{templates=[]models.RecurringTemplate,count=int}
// @Router /templates [get]
func (s *TemplateService) ListTemplates(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	templates, err := s.store.ListTemplates(r.Context(), orgID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch templates", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"templates": templates,
		"count":     len(templates),
	})
}

// GetTemplate returns one recurring template.
// @Summary Get template by ID
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} models.RecurringTemplate
// @Failure 404 {object} services.ErrorResponse
// @Router /templates/{id} [get]
func (s *TemplateService) GetTemplate(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	tpl, err := s.store.GetTemplate(r.Context(), orgID, chi.URLParam(r, "id"))
	if err != nil {
		if IsNotFound(err) {
			SendErrorResponse(w, "Template not found", http.StatusNotFound, nil)
			return
		}
		SendErrorResponse(w, "Failed to fetch template", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, tpl)
}

// PauseTemplate suspends generation without losing the schedule position.
// @Summary Pause a recurring template
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} object{success=bool}
// @Router /templates/{id}/pause [post]
func (s *TemplateService) PauseTemplate(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, models.TemplateStatusPaused)
}

// ResumeTemplate reactivates a paused template.
// @Summary Resume a paused template
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} object{success=bool}
// @Router /templates/{id}/resume [post]
func (s *TemplateService) ResumeTemplate(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, models.TemplateStatusActive)
}

// CancelTemplate ends a template permanently.
// @Summary Cancel a recurring template
// @Tags templates
// @Produce json
// @Security BearerAuth
// @Param id path string true "Template ID"
// @Success 200 {object} object{success=bool}
// @Router /templates/{id}/cancel [post]
func (s *TemplateService) CancelTemplate(w http.ResponseWriter, r *http.Request) {
	s.setStatus(w, r, models.TemplateStatusEnded)
}

func (s *TemplateService) setStatus(w http.ResponseWriter, r *http.Request, status string) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}
	id := chi.URLParam(r, "id")

	if err := s.store.UpdateTemplateStatus(r.Context(), orgID, id, status); err != nil {
		if IsNotFound(err) {
			SendErrorResponse(w, "Template not found", http.StatusNotFound, nil)
			return
		}
		s.log.Error("template status update failed",
			zap.String("template_id", id), zap.String("status", status), zap.Error(err))
		SendErrorResponse(w, "Failed to update template", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{"success": true})
}
