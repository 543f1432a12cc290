package document

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/frahmantamala/azure-docgen/internal/auth"
	"github.com/frahmantamala/azure-docgen/internal/permission"
	"github.com/frahmantamala/azure-docgen/internal/transport"
	"github.com/frahmantamala/azure-docgen/pkg/logger"
)

type ServiceAPI interface {
	CreateDocument(dto CreateDocumentDTO, createdBy string) (*DesignDocument, error)
	GetDocument(documentID uuid.UUID) (*DesignDocument, error)
	ListProjectDocuments(projectID uuid.UUID, status *DocumentStatus) ([]*DesignDocument, error)
	AddVersion(documentID uuid.UUID, dto AddVersionDTO, createdBy string) (*DocumentVersion, error)
	GetVersion(documentID uuid.UUID, version int) (*DocumentVersion, error)
	GetLatestVersion(documentID uuid.UUID) (*DocumentVersion, error)
	ListVersions(documentID uuid.UUID) ([]*DocumentVersion, error)
}

type PermissionAPI interface {
	CanAccessProject(userID string, projectID uuid.UUID) (bool, error)
	HasProjectRoleOrHigher(userID string, projectID uuid.UUID, minimumRole permission.ProjectRoleType) (bool, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     ServiceAPI
	Permissions PermissionAPI
}

func NewHandler(service ServiceAPI, permissions PermissionAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
		Permissions: permissions,
	}
}

// CreateDocument handles POST /documents. Requires Developer or higher on the
// target project.
func (h *Handler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateDocumentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	allowed, err := h.Permissions.HasProjectRoleOrHigher(user.ID, dto.ProjectID, permission.ProjectDeveloper)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !allowed {
		h.WriteError(w, http.StatusForbidden, "requires project developer or higher")
		return
	}

	doc, err := h.Service.CreateDocument(dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, doc)
}

// GetDocument handles GET /documents/{id}.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	user, doc, ok := h.userAndDocument(w, r)
	if !ok {
		return
	}

	if !h.requireProjectAccess(w, user.ID, doc.ProjectID) {
		return
	}

	h.WriteJSON(w, http.StatusOK, doc)
}

// ListProjectDocuments handles GET /projects/{projectID}/documents with an
// optional status query filter.
func (h *Handler) ListProjectDocuments(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid project ID")
		return
	}

	if !h.requireProjectAccess(w, user.ID, projectID) {
		return
	}

	var status *DocumentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := DocumentStatus(raw)
		status = &st
	}

	documents, err := h.Service.ListProjectDocuments(projectID, status)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, documents)
}

// AddVersion handles POST /documents/{id}/versions. Requires Developer or
// higher on the owning project.
func (h *Handler) AddVersion(w http.ResponseWriter, r *http.Request) {
	user, doc, ok := h.userAndDocument(w, r)
	if !ok {
		return
	}

	allowed, err := h.Permissions.HasProjectRoleOrHigher(user.ID, doc.ProjectID, permission.ProjectDeveloper)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !allowed {
		h.WriteError(w, http.StatusForbidden, "requires project developer or higher")
		return
	}

	var dto AddVersionDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	version, err := h.Service.AddVersion(doc.ID, dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, version)
}

// ListVersions handles GET /documents/{id}/versions.
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	user, doc, ok := h.userAndDocument(w, r)
	if !ok {
		return
	}

	if !h.requireProjectAccess(w, user.ID, doc.ProjectID) {
		return
	}

	versions, err := h.Service.ListVersions(doc.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, versions)
}

// GetVersion handles GET /documents/{id}/versions/{version}; the literal
// "latest" resolves to the highest version number.
func (h *Handler) GetVersion(w http.ResponseWriter, r *http.Request) {
	user, doc, ok := h.userAndDocument(w, r)
	if !ok {
		return
	}

	if !h.requireProjectAccess(w, user.ID, doc.ProjectID) {
		return
	}

	raw := chi.URLParam(r, "version")
	if raw == "latest" {
		version, err := h.Service.GetLatestVersion(doc.ID)
		if err != nil {
			h.HandleServiceError(w, err)
			return
		}
		h.WriteJSON(w, http.StatusOK, version)
		return
	}

	number, err := strconv.Atoi(raw)
	if err != nil || number < 1 {
		h.WriteError(w, http.StatusBadRequest, "invalid version number")
		return
	}

	version, err := h.Service.GetVersion(doc.ID, number)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, version)
}

func (h *Handler) userAndDocument(w http.ResponseWriter, r *http.Request) (*auth.User, *DesignDocument, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, nil, false
	}

	documentID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid document ID")
		return nil, nil, false
	}

	doc, err := h.Service.GetDocument(documentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return nil, nil, false
	}

	return user, doc, true
}

func (h *Handler) requireProjectAccess(w http.ResponseWriter, userID string, projectID uuid.UUID) bool {
	canAccess, err := h.Permissions.CanAccessProject(userID, projectID)
	if err != nil {
		h.HandleServiceError(w, err)
		return false
	}
	if !canAccess {
		h.WriteError(w, http.StatusForbidden, "no access to project")
		return false
	}
	return true
}
