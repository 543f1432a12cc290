package review

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
	CreateWorkflow(dto CreateWorkflowDTO, createdBy string) (*ReviewWorkflow, error)
	AssignReviewers(workflowID uuid.UUID, reviewerIDs []string, assignedBy string) error
	ApproveReview(workflowID uuid.UUID, reviewerID string, comment *string) (bool, error)
	RejectReview(workflowID uuid.UUID, reviewerID, comment string) (bool, error)
	CancelWorkflow(workflowID uuid.UUID, cancelledBy string, reason *string) (bool, error)
	GetWorkflow(workflowID uuid.UUID) (*ReviewWorkflow, error)
	GetProjectWorkflows(projectID uuid.UUID, status *WorkflowStatus) ([]*ReviewWorkflow, error)
	GetUserReviewAssignments(reviewerID string, status *AssignmentStatus) ([]*ReviewAssignment, error)
	GetWorkflowHistory(workflowID uuid.UUID) ([]*WorkflowHistory, error)
	IsWorkflowComplete(workflowID uuid.UUID) (bool, error)
}

// PermissionAPI is the slice of the permission engine the review endpoints
// consult before mutating workflows.
type PermissionAPI interface {
	HasProjectRoleOrHigher(userID string, projectID uuid.UUID, minimumRole permission.ProjectRoleType) (bool, error)
	CanAccessProject(userID string, projectID uuid.UUID) (bool, error)
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

// CreateWorkflow handles POST /reviews. Requires Developer or higher on the
// target project.
func (h *Handler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto CreateWorkflowDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateWorkflow: invalid request body", "error", err)
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

	workflow, err := h.Service.CreateWorkflow(dto, user.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, workflow)
}

// AssignReviewers handles POST /reviews/{id}/reviewers.
func (h *Handler) AssignReviewers(w http.ResponseWriter, r *http.Request) {
	user, workflowID, ok := h.userAndWorkflowID(w, r)
	if !ok {
		return
	}

	var dto AssignReviewersDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	workflow, err := h.Service.GetWorkflow(workflowID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	allowed, err := h.Permissions.HasProjectRoleOrHigher(user.ID, workflow.ProjectID, permission.ProjectManager)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !allowed && workflow.CreatedBy != user.ID {
		h.WriteError(w, http.StatusForbidden, "requires project manager or workflow creator")
		return
	}

	if err := h.Service.AssignReviewers(workflowID, dto.ReviewerIDs, user.ID); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]string{"status": "reviewers assigned"})
}

// ApproveReview handles POST /reviews/{id}/approve. The service enforces the
// pending-assignment precondition; no project role is required.
func (h *Handler) ApproveReview(w http.ResponseWriter, r *http.Request) {
	user, workflowID, ok := h.userAndWorkflowID(w, r)
	if !ok {
		return
	}

	var dto ApproveReviewDTO
	if r.Body != nil {
		// body is optional for approvals
		_ = json.NewDecoder(r.Body).Decode(&dto)
	}

	applied, err := h.Service.ApproveReview(workflowID, user.ID, dto.Comment)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !applied {
		h.WriteError(w, http.StatusConflict, "no pending review assignment for this user")
		return
	}

	h.WriteJSON(w, http.StatusOK, DecisionResponse{Applied: true, Status: StatusApproved})
}

// RejectReview handles POST /reviews/{id}/reject. Comment is mandatory.
func (h *Handler) RejectReview(w http.ResponseWriter, r *http.Request) {
	user, workflowID, ok := h.userAndWorkflowID(w, r)
	if !ok {
		return
	}

	var dto RejectReviewDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := dto.Validate(); err != nil {
		h.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	applied, err := h.Service.RejectReview(workflowID, user.ID, dto.Comment)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !applied {
		h.WriteError(w, http.StatusConflict, "no pending review assignment for this user")
		return
	}

	h.WriteJSON(w, http.StatusOK, DecisionResponse{Applied: true, Status: StatusRejected})
}

// CancelWorkflow handles POST /reviews/{id}/cancel.
func (h *Handler) CancelWorkflow(w http.ResponseWriter, r *http.Request) {
	user, workflowID, ok := h.userAndWorkflowID(w, r)
	if !ok {
		return
	}

	var dto CancelWorkflowDTO
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&dto)
	}

	workflow, err := h.Service.GetWorkflow(workflowID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	allowed, err := h.Permissions.HasProjectRoleOrHigher(user.ID, workflow.ProjectID, permission.ProjectManager)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !allowed && workflow.CreatedBy != user.ID {
		h.WriteError(w, http.StatusForbidden, "requires project manager or workflow creator")
		return
	}

	applied, err := h.Service.CancelWorkflow(workflowID, user.ID, dto.Reason)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !applied {
		h.WriteError(w, http.StatusConflict, "workflow is already cancelled")
		return
	}

	h.WriteJSON(w, http.StatusOK, DecisionResponse{Applied: true, Status: StatusCancelled})
}

// GetWorkflow handles GET /reviews/{id}.
func (h *Handler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	user, workflowID, ok := h.userAndWorkflowID(w, r)
	if !ok {
		return
	}

	workflow, err := h.Service.GetWorkflow(workflowID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	canAccess, err := h.Permissions.CanAccessProject(user.ID, workflow.ProjectID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !canAccess {
		h.WriteError(w, http.StatusForbidden, "no access to project")
		return
	}

	h.WriteJSON(w, http.StatusOK, workflow)
}

// GetWorkflowHistory handles GET /reviews/{id}/history.
func (h *Handler) GetWorkflowHistory(w http.ResponseWriter, r *http.Request) {
	user, workflowID, ok := h.userAndWorkflowID(w, r)
	if !ok {
		return
	}

	workflow, err := h.Service.GetWorkflow(workflowID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	canAccess, err := h.Permissions.CanAccessProject(user.ID, workflow.ProjectID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !canAccess {
		h.WriteError(w, http.StatusForbidden, "no access to project")
		return
	}

	history, err := h.Service.GetWorkflowHistory(workflowID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, history)
}

// GetProjectWorkflows handles GET /projects/{projectID}/reviews with an
// optional status query filter.
func (h *Handler) GetProjectWorkflows(w http.ResponseWriter, r *http.Request) {
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

	canAccess, err := h.Permissions.CanAccessProject(user.ID, projectID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	if !canAccess {
		h.WriteError(w, http.StatusForbidden, "no access to project")
		return
	}

	var status *WorkflowStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := WorkflowStatus(raw)
		status = &st
	}

	workflows, err := h.Service.GetProjectWorkflows(projectID, status)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, workflows)
}

// GetMyAssignments handles GET /reviews/assignments with an optional status
// query filter; it always scopes to the authenticated user.
func (h *Handler) GetMyAssignments(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var status *AssignmentStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := AssignmentStatus(raw)
		status = &st
	}

	assignments, err := h.Service.GetUserReviewAssignments(user.ID, status)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, assignments)
}

func (h *Handler) userAndWorkflowID(w http.ResponseWriter, r *http.Request) (*auth.User, uuid.UUID, bool) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok || user == nil {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return nil, uuid.Nil, false
	}

	workflowID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid workflow ID")
		return nil, uuid.Nil, false
	}

	return user, workflowID, true
}
