package template

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/frahmantamala/azure-docgen/internal/auth"
	"github.com/frahmantamala/azure-docgen/internal/transport"
	"github.com/frahmantamala/azure-docgen/pkg/logger"
)

type ServiceAPI interface {
	CreateTemplate(dto CreateTemplateDTO, createdBy string) (*Template, error)
	GetTemplate(templateID uuid.UUID, userID string) (*Template, error)
	ListUserTemplates(userID string, projectID *uuid.UUID) ([]*Template, error)
	UpdateTemplate(templateID uuid.UUID, dto UpdateTemplateDTO, userID string) (*Template, error)
	DeleteTemplate(templateID uuid.UUID, userID string) error
	DuplicateTemplate(templateID uuid.UUID, newName, userID string) (*Template, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// CreateTemplate handles POST /templates.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateTemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl, err := h.Service.CreateTemplate(dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, tmpl)
}

// GetTemplate handles GET /templates/{id}. Visibility follows the sharing
// rules; hidden templates return 404, not 403.
func (h *Handler) GetTemplate(w http.ResponseWriter, r *http.Request) {
	user, templateID, ok := h.userAndTemplateID(w, r)
	if !ok {
		return
	}

	tmpl, err := h.Service.GetTemplate(templateID, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tmpl)
}

// ListTemplates handles GET /templates with an optional project_id query
// filter.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var projectID *uuid.UUID
	if raw := r.URL.Query().Get("project_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, "invalid project_id")
			return
		}
		projectID = &id
	}

	templates, err := h.Service.ListUserTemplates(user.ID, projectID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, templates)
}

// UpdateTemplate handles PATCH /templates/{id}. Owner only.
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	user, templateID, ok := h.userAndTemplateID(w, r)
	if !ok {
		return
	}

	var dto UpdateTemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	tmpl, err := h.Service.UpdateTemplate(templateID, dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, tmpl)
}

// DeleteTemplate handles DELETE /templates/{id}. Owner only.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	user, templateID, ok := h.userAndTemplateID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteTemplate(templateID, user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// DuplicateTemplate handles POST /templates/{id}/duplicate.
func (h *Handler) DuplicateTemplate(w http.ResponseWriter, r *http.Request) {
	user, templateID, ok := h.userAndTemplateID(w, r)
	if !ok {
		return
	}

	var dto DuplicateTemplateDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	copy, err := h.Service.DuplicateTemplate(templateID, dto.Name, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, copy)
}

func (h *Handler) userAndTemplateID(w http.ResponseWriter, r *http.Request) (*auth.User, uuid.UUID, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, uuid.Nil, false
	}

	templateID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid template ID")
		return nil, uuid.Nil, false
	}

	return user, templateID, true
}
