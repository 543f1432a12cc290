package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/azure-docgen/internal/auth"
	"github.com/frahmantamala/azure-docgen/internal/permission"
)

// SystemRoleChecker is the slice of the permission engine the router needs
// for route-level guards. Project and environment scope checks stay in the
// handlers because they need path parameters.
type SystemRoleChecker interface {
	HasSystemRole(userID string, roleType permission.SystemRoleType) (bool, error)
}

// RequireSystemRole guards a route group behind an active system role.
func RequireSystemRole(checker SystemRoleChecker, roleType permission.SystemRoleType, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := auth.UserFromContext(r.Context())
			if !ok || user == nil {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			allowed, err := checker.HasSystemRole(user.ID, roleType)
			if err != nil {
				logger.Error("system role check failed", "user_id", user.ID, "role_type", roleType, "error", err)
				http.Error(w, "Internal server error", http.StatusInternalServerError)
				return
			}
			if !allowed {
				logger.Warn("access denied: missing system role",
					"user_id", user.ID,
					"role_type", roleType,
					"path", r.URL.Path)
				http.Error(w, "Forbidden: insufficient permissions", http.StatusForbidden)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
