package user

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/permission"
	"github.com/frahmantamala/azure-docgen/internal/transport"
	"github.com/frahmantamala/azure-docgen/pkg/logger"
)

type ServiceAPI interface {
	GetByID(userID string) (*User, error)
	List() ([]*User, error)
}

type PermissionCheckAPI interface {
	HasSystemRole(userID string, roleType permission.SystemRoleType) (bool, error)
}

type Handler struct {
	*transport.BaseHandler
	Service     ServiceAPI
	Permissions PermissionCheckAPI
}

func NewHandler(svc ServiceAPI, permissions PermissionCheckAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
		Permissions: permissions,
	}
}

// GetCurrentUser handles GET /users/me
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	u, err := h.Service.GetByID(userID)
	if err != nil {
		h.Logger.Error("GetCurrentUser: lookup failed", "user_id", userID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, u)
}

// ListUsers handles GET /users. Administrators only; the list backs the role
// grant and reviewer assignment pickers.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	userID := internal.UserIDFromContext(r.Context())
	if userID == "" {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	isAdmin, err := h.Permissions.HasSystemRole(userID, permission.SystemAdministrator)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !isAdmin {
		h.WriteError(w, http.StatusForbidden, "requires system administrator")
		return
	}

	users, err := h.Service.List()
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, users)
}
