package services

import (
	"net/http"

	"github.com/brightbooks/backend/internal/middleware"
	"github.com/brightbooks/backend/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ClientService struct {
	store     Store
	validator *ValidationHelper
	log       *zap.Logger
}

func NewClientService(store Store, log *zap.Logger) *ClientService {
	return &ClientService{
		store:     store,
		validator: NewValidationHelper(),
		log:       log,
	}
}

// CreateClient registers a new client for the organization.
// @Summary Create a client
// @Tags clients
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body models.ClientCreateRequest true "Client data"
// @Success 201 {object} models.Client
// @Failure 400 {object} services.ErrorResponse
// @Router /clients [post]
func (s *ClientService) CreateClient(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	var req models.ClientCreateRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		SendErrorResponse(w, err.Error(), http.StatusBadRequest, nil)
		return
	}
	if err := s.validator.ValidateStruct(&req); err != nil {
		SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return
	}

	c := &models.Client{
		ID:    uuid.NewString(),
		OrgID: orgID,
		Name:  req.Name,
		Email: req.Email,
	}

	if err := s.store.CreateClient(r.Context(), c); err != nil {
		s.log.Error("create client failed", zap.String("org_id", orgID), zap.Error(err))
		SendErrorResponse(w, "Failed to create client", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusCreated, c)
}

// ListClients returns all clients for the organization.
// @Summary List clients
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{clients=[]models.Client,count=int}
// @Router /clients [get]
func (s *ClientService) ListClients(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	clients, err := s.store.ListClients(r.Context(), orgID)
	if err != nil {
		SendErrorResponse(w, "Failed to fetch clients", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, map[string]any{
		"clients": clients,
		"count":   len(clients),
	})
}

// GetClient returns one client.
// @Summary Get client by ID
// @Tags clients
// @Produce json
// @Security BearerAuth
// @Param id path string true "Client ID"
// @Success 200 {object} models.Client
// @Failure 404 {object} services.ErrorResponse
// @Router /clients/{id} [get]
func (s *ClientService) GetClient(w http.ResponseWriter, r *http.Request) {
	orgID, ok := middleware.OrgID(r.Context())
	if !ok {
		SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
		return
	}

	c, err := s.store.GetClient(r.Context(), orgID, chi.URLParam(r, "id"))
	if err != nil {
		if IsNotFound(err) {
			SendErrorResponse(w, "Client not found", http.StatusNotFound, nil)
			return
		}
		SendErrorResponse(w, "Failed to fetch client", http.StatusInternalServerError, nil)
		return
	}

	SendJSON(w, http.StatusOK, c)
}
