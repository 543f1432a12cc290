package project

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/frahmantamala/azure-docgen/internal/auth"
	"github.com/frahmantamala/azure-docgen/internal/permission"
	"github.com/frahmantamala/azure-docgen/internal/transport"
	"github.com/frahmantamala/azure-docgen/pkg/logger"
)

type ServiceAPI interface {
	CreateProject(dto CreateProjectDTO, createdBy string) (*Project, error)
	GetProject(projectID uuid.UUID) (*Project, error)
	ListUserProjects(userID string) ([]*Project, error)
	UpdateProject(projectID uuid.UUID, dto UpdateProjectDTO) (*Project, error)
	ArchiveProject(projectID uuid.UUID) error
	CreateEnvironment(projectID uuid.UUID, dto CreateEnvironmentDTO) (*Environment, error)
	GetEnvironment(environmentID uuid.UUID) (*Environment, error)
	ListEnvironments(projectID uuid.UUID) ([]*Environment, error)
	UpdateEnvironment(environmentID uuid.UUID, dto UpdateEnvironmentDTO) (*Environment, error)
	DeleteEnvironment(environmentID uuid.UUID) error
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

// CreateProject handles POST /projects. Any authenticated user can create a
// project; the creator becomes its owner.
func (h *Handler) CreateProject(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	proj, err := h.Service.CreateProject(dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, proj)
}

// ListProjects handles GET /projects, scoped to what the caller can access.
func (h *Handler) ListProjects(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	projects, err := h.Service.ListUserProjects(user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, projects)
}

// GetProject handles GET /projects/{projectID}.
func (h *Handler) GetProject(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.userAndProjectID(w, r)
	if !ok {
		return
	}

	if !h.requireProjectAccess(w, user.ID, projectID) {
		return
	}

	proj, err := h.Service.GetProject(projectID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, proj)
}

// UpdateProject handles PATCH /projects/{projectID}. Requires Manager or
// higher.
func (h *Handler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.userAndProjectID(w, r)
	if !ok {
		return
	}

	if !h.requireProjectRole(w, user.ID, projectID, permission.ProjectManager) {
		return
	}

	var dto UpdateProjectDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	proj, err := h.Service.UpdateProject(projectID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, proj)
}

// ArchiveProject handles POST /projects/{projectID}/archive. Owner only.
func (h *Handler) ArchiveProject(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.userAndProjectID(w, r)
	if !ok {
		return
	}

	if !h.requireProjectRole(w, user.ID, projectID, permission.ProjectOwner) {
		return
	}

	if err := h.Service.ArchiveProject(projectID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "archived"})
}

// CreateEnvironment handles POST /projects/{projectID}/environments.
// Requires Manager or higher.
func (h *Handler) CreateEnvironment(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.userAndProjectID(w, r)
	if !ok {
		return
	}

	if !h.requireProjectRole(w, user.ID, projectID, permission.ProjectManager) {
		return
	}

	var dto CreateEnvironmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	env, err := h.Service.CreateEnvironment(projectID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, env)
}

// ListEnvironments handles GET /projects/{projectID}/environments.
func (h *Handler) ListEnvironments(w http.ResponseWriter, r *http.Request) {
	user, projectID, ok := h.userAndProjectID(w, r)
	if !ok {
		return
	}

	if !h.requireProjectAccess(w, user.ID, projectID) {
		return
	}

	environments, err := h.Service.ListEnvironments(projectID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, environments)
}

// UpdateEnvironment handles PATCH /environments/{environmentID}. Requires
// Manager or higher on the owning project.
func (h *Handler) UpdateEnvironment(w http.ResponseWriter, r *http.Request) {
	user, environmentID, env, ok := h.userAndEnvironment(w, r)
	if !ok {
		return
	}

	if !h.requireProjectRole(w, user.ID, env.ProjectID, permission.ProjectManager) {
		return
	}

	var dto UpdateEnvironmentDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	updated, err := h.Service.UpdateEnvironment(environmentID, dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, updated)
}

// DeleteEnvironment handles DELETE /environments/{environmentID}. Requires
// Manager or higher on the owning project.
func (h *Handler) DeleteEnvironment(w http.ResponseWriter, r *http.Request) {
	user, environmentID, env, ok := h.userAndEnvironment(w, r)
	if !ok {
		return
	}

	if !h.requireProjectRole(w, user.ID, env.ProjectID, permission.ProjectManager) {
		return
	}

	if err := h.Service.DeleteEnvironment(environmentID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userAndProjectID(w http.ResponseWriter, r *http.Request) (*auth.User, uuid.UUID, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, uuid.Nil, false
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid project ID")
		return nil, uuid.Nil, false
	}

	return user, projectID, true
}

func (h *Handler) userAndEnvironment(w http.ResponseWriter, r *http.Request) (*auth.User, uuid.UUID, *Environment, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, uuid.Nil, nil, false
	}

	environmentID, err := uuid.Parse(chi.URLParam(r, "environmentID"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid environment ID")
		return nil, uuid.Nil, nil, false
	}

	env, err := h.Service.GetEnvironment(environmentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return nil, uuid.Nil, nil, false
	}

	return user, environmentID, env, true
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

func (h *Handler) requireProjectRole(w http.ResponseWriter, userID string, projectID uuid.UUID, minimum permission.ProjectRoleType) bool {
	allowed, err := h.Permissions.HasProjectRoleOrHigher(userID, projectID, minimum)
	if err != nil {
		h.HandleServiceError(w, err)
		return false
	}
	if !allowed {
		h.WriteError(w, http.StatusForbidden, "insufficient project role")
		return false
	}
	return true
}
