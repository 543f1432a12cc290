package permission

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/google/uuid"

	"github.com/frahmantamala/azure-docgen/internal/auth"
	"github.com/frahmantamala/azure-docgen/internal/transport"
	"github.com/frahmantamala/azure-docgen/pkg/logger"
)

type ServiceAPI interface {
	HasSystemRole(userID string, roleType SystemRoleType) (bool, error)
	HasProjectRoleOrHigher(userID string, projectID uuid.UUID, minimumRole ProjectRoleType) (bool, error)
	HasEnvironmentRole(userID string, environmentID uuid.UUID, roleType EnvironmentRoleType) (bool, error)
	GetProjectRole(userID string, projectID uuid.UUID) (*ProjectRoleType, error)
	GetEnvironmentRole(userID string, environmentID uuid.UUID) (*EnvironmentRoleType, error)
	CanAccessProject(userID string, projectID uuid.UUID) (bool, error)
	GrantSystemRole(userID string, roleType SystemRoleType, grantedBy string) error
	RevokeSystemRole(userID string, roleType SystemRoleType) error
	GrantProjectRole(userID string, projectID uuid.UUID, roleType ProjectRoleType, grantedBy string, expiresAt *time.Time) error
	GrantEnvironmentRole(userID string, environmentID uuid.UUID, roleType EnvironmentRoleType, grantedBy string, expiresAt *time.Time) error
	RevokeProjectRole(userID string, projectID uuid.UUID) error
	RevokeEnvironmentRole(userID string, environmentID uuid.UUID) error
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

// GrantSystemRole handles POST /system-roles. Only system administrators may
// grant system-scope roles.
func (h *Handler) GrantSystemRole(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	isAdmin, err := h.Service.HasSystemRole(user.ID, SystemAdministrator)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !isAdmin {
		h.WriteError(w, http.StatusForbidden, "only system administrators can grant system roles")
		return
	}

	var dto GrantSystemRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.GrantSystemRole(dto.UserID, dto.RoleType, user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]string{"status": "granted"})
}

// RevokeSystemRole handles DELETE /system-roles. Only system administrators
// may revoke system-scope roles.
func (h *Handler) RevokeSystemRole(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	isAdmin, err := h.Service.HasSystemRole(user.ID, SystemAdministrator)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !isAdmin {
		h.WriteError(w, http.StatusForbidden, "only system administrators can revoke system roles")
		return
	}

	var dto GrantSystemRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.RevokeSystemRole(dto.UserID, dto.RoleType); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// GrantProjectRole handles POST /projects/{projectID}/roles. Requires
// ProjectManager or higher on the target project.
func (h *Handler) GrantProjectRole(w http.ResponseWriter, r *http.Request) {
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

	allowed, err := h.Service.HasProjectRoleOrHigher(user.ID, projectID, ProjectManager)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !allowed {
		h.WriteError(w, http.StatusForbidden, "requires project manager or higher")
		return
	}

	var dto GrantProjectRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.GrantProjectRole(dto.UserID, projectID, dto.RoleType, user.ID, dto.ExpiresAt); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]string{"status": "granted"})
}

// RevokeProjectRole handles DELETE /projects/{projectID}/roles/{userID}.
func (h *Handler) RevokeProjectRole(w http.ResponseWriter, r *http.Request) {
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
	targetUserID := chi.URLParam(r, "userID")
	if targetUserID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing user ID")
		return
	}

	allowed, err := h.Service.HasProjectRoleOrHigher(user.ID, projectID, ProjectManager)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !allowed {
		h.WriteError(w, http.StatusForbidden, "requires project manager or higher")
		return
	}

	if err := h.Service.RevokeProjectRole(targetUserID, projectID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// GrantEnvironmentRole handles POST /environments/{environmentID}/roles.
func (h *Handler) GrantEnvironmentRole(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	environmentID, err := uuid.Parse(chi.URLParam(r, "environmentID"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid environment ID")
		return
	}

	allowed, err := h.Service.HasEnvironmentRole(user.ID, environmentID, EnvironmentManager)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !allowed {
		h.WriteError(w, http.StatusForbidden, "requires environment manager access")
		return
	}

	var dto GrantEnvironmentRoleDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.Service.GrantEnvironmentRole(dto.UserID, environmentID, dto.RoleType, user.ID, dto.ExpiresAt); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, map[string]string{"status": "granted"})
}

// RevokeEnvironmentRole handles DELETE /environments/{environmentID}/roles/{userID}.
func (h *Handler) RevokeEnvironmentRole(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	environmentID, err := uuid.Parse(chi.URLParam(r, "environmentID"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid environment ID")
		return
	}
	targetUserID := chi.URLParam(r, "userID")
	if targetUserID == "" {
		h.WriteError(w, http.StatusBadRequest, "missing user ID")
		return
	}

	allowed, err := h.Service.HasEnvironmentRole(user.ID, environmentID, EnvironmentManager)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !allowed {
		h.WriteError(w, http.StatusForbidden, "requires environment manager access")
		return
	}

	if err := h.Service.RevokeEnvironmentRole(targetUserID, environmentID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// GetProjectRole handles GET /projects/{projectID}/roles/{userID}.
func (h *Handler) GetProjectRole(w http.ResponseWriter, r *http.Request) {
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
	targetUserID := chi.URLParam(r, "userID")

	canAccess, err := h.Service.CanAccessProject(user.ID, projectID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !canAccess {
		h.WriteError(w, http.StatusForbidden, "no access to project")
		return
	}

	role, err := h.Service.GetProjectRole(targetUserID, projectID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, ProjectRoleResponse{UserID: targetUserID, Role: role})
}
