package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"

	"github.com/frahmantamala/azure-docgen/internal/auth"
	"github.com/frahmantamala/azure-docgen/internal/document"
	"github.com/frahmantamala/azure-docgen/internal/permission"
	"github.com/frahmantamala/azure-docgen/internal/project"
	"github.com/frahmantamala/azure-docgen/internal/review"
	"github.com/frahmantamala/azure-docgen/internal/template"
	"github.com/frahmantamala/azure-docgen/internal/transport/middleware"
	"github.com/frahmantamala/azure-docgen/internal/transport/swagger"
	"github.com/frahmantamala/azure-docgen/internal/user"
)

// Handlers bundles the feature handlers the router mounts.
type Handlers struct {
	Auth       *auth.Handler
	User       *user.Handler
	Project    *project.Handler
	Document   *document.Handler
	Template   *template.Handler
	Review     *review.Handler
	Permission *permission.Handler
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, handlers Handlers, roleChecker middleware.SystemRoleChecker, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		r.Route("/auth", func(sr chi.Router) {
			sr.Post("/login", handlers.Auth.Login)
			sr.Post("/refresh", handlers.Auth.RefreshToken)
			sr.Post("/logout", handlers.Auth.Logout)
		})

		// Everything below requires an authenticated user.
		r.Group(func(pr chi.Router) {
			pr.Use(handlers.Auth.AuthMiddleware)

			pr.Get("/users/me", handlers.User.GetCurrentUser)
			pr.Get("/users", handlers.User.ListUsers)

			pr.Route("/projects", func(sr chi.Router) {
				sr.Post("/", handlers.Project.CreateProject)
				sr.Get("/", handlers.Project.ListProjects)
				sr.Get("/{projectID}", handlers.Project.GetProject)
				sr.Patch("/{projectID}", handlers.Project.UpdateProject)
				sr.Post("/{projectID}/archive", handlers.Project.ArchiveProject)

				sr.Post("/{projectID}/environments", handlers.Project.CreateEnvironment)
				sr.Get("/{projectID}/environments", handlers.Project.ListEnvironments)

				sr.Get("/{projectID}/documents", handlers.Document.ListProjectDocuments)
				sr.Get("/{projectID}/reviews", handlers.Review.GetProjectWorkflows)

				// Project and environment scope role grants.
				sr.Post("/{projectID}/roles", handlers.Permission.GrantProjectRole)
				sr.Delete("/{projectID}/roles/{userID}", handlers.Permission.RevokeProjectRole)
				sr.Get("/{projectID}/roles/{userID}", handlers.Permission.GetProjectRole)
			})

			pr.Route("/environments/{environmentID}", func(sr chi.Router) {
				sr.Patch("/", handlers.Project.UpdateEnvironment)
				sr.Delete("/", handlers.Project.DeleteEnvironment)
				sr.Post("/roles", handlers.Permission.GrantEnvironmentRole)
				sr.Delete("/roles/{userID}", handlers.Permission.RevokeEnvironmentRole)
			})

			pr.Route("/documents", func(sr chi.Router) {
				sr.Post("/", handlers.Document.CreateDocument)
				sr.Get("/{id}", handlers.Document.GetDocument)
				sr.Post("/{id}/versions", handlers.Document.AddVersion)
				sr.Get("/{id}/versions", handlers.Document.ListVersions)
				sr.Get("/{id}/versions/{version}", handlers.Document.GetVersion)
			})

			pr.Route("/templates", func(sr chi.Router) {
				sr.Post("/", handlers.Template.CreateTemplate)
				sr.Get("/", handlers.Template.ListTemplates)
				sr.Get("/{id}", handlers.Template.GetTemplate)
				sr.Patch("/{id}", handlers.Template.UpdateTemplate)
				sr.Delete("/{id}", handlers.Template.DeleteTemplate)
				sr.Post("/{id}/duplicate", handlers.Template.DuplicateTemplate)
			})

			pr.Route("/reviews", func(sr chi.Router) {
				sr.Post("/", handlers.Review.CreateWorkflow)
				sr.Get("/assignments", handlers.Review.GetMyAssignments)
				sr.Get("/{id}", handlers.Review.GetWorkflow)
				sr.Get("/{id}/history", handlers.Review.GetWorkflowHistory)
				sr.Post("/{id}/reviewers", handlers.Review.AssignReviewers)
				sr.Post("/{id}/approve", handlers.Review.ApproveReview)
				sr.Post("/{id}/reject", handlers.Review.RejectReview)
				sr.Post("/{id}/cancel", handlers.Review.CancelWorkflow)
			})

			// System role administration is gated at the router level; the
			// handler re-checks on top.
			pr.Group(func(ar chi.Router) {
				ar.Use(middleware.RequireSystemRole(roleChecker, permission.SystemAdministrator, logger))
				ar.Post("/system-roles", handlers.Permission.GrantSystemRole)
				ar.Delete("/system-roles", handlers.Permission.RevokeSystemRole)
			})
		})
	})
}
