package review

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/core/events"
)

// Repository defines the data access methods for review workflows.
// Transaction runs fn against a repository bound to one database
// transaction; every state transition executes its precondition re-check,
// row updates, and history append inside a single Transaction call so the
// audit trail can never diverge from the state.
type Repository interface {
	Transaction(fn func(Repository) error) error

	CreateWorkflow(workflow *ReviewWorkflow) error
	GetWorkflowByID(id uuid.UUID) (*ReviewWorkflow, error)
	GetWorkflowDetail(id uuid.UUID) (*ReviewWorkflow, error)
	UpdateWorkflow(workflow *ReviewWorkflow) error
	ListProjectWorkflows(projectID uuid.UUID, status *WorkflowStatus) ([]*ReviewWorkflow, error)

	GetAssignment(workflowID uuid.UUID, reviewerID string) (*ReviewAssignment, error)
	DeleteAssignments(workflowID uuid.UUID) error
	CreateAssignments(assignments []*ReviewAssignment) error
	UpdateAssignment(assignment *ReviewAssignment) error
	SkipPendingAssignments(workflowID uuid.UUID, exceptReviewerID string) error
	ListUserAssignments(reviewerID string, status *AssignmentStatus) ([]*ReviewAssignment, error)

	AppendHistory(history *WorkflowHistory) error
	ListWorkflowHistory(workflowID uuid.UUID) ([]*WorkflowHistory, error)
}

// EventPublisher is the fire-and-forget notification sink. Publish failures
// are the publisher's problem; they never roll back a committed transition.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Service drives the review workflow state machine.
type Service struct {
	repo   Repository
	events EventPublisher
	logger *slog.Logger
}

func NewService(repo Repository, publisher EventPublisher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: publisher,
		logger: logger,
	}
}

// CreateWorkflow creates a workflow in Draft and writes the creation history
// row in the same transaction.
func (s *Service) CreateWorkflow(dto CreateWorkflowDTO, createdBy string) (*ReviewWorkflow, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Error("workflow validation failed", "error", err, "created_by", createdBy)
		return nil, err
	}

	workflow := NewWorkflow(dto.TargetType, dto.TargetID, dto.ProjectID, dto.Title, dto.Description, createdBy)

	err := s.repo.Transaction(func(tx Repository) error {
		if err := tx.CreateWorkflow(workflow); err != nil {
			return err
		}
		return tx.AppendHistory(newHistory(workflow.ID, StatusDraft, StatusDraft, "Workflow created", createdBy, nil))
	})
	if err != nil {
		s.logger.Error("failed to create workflow", "error", err, "created_by", createdBy)
		return nil, err
	}

	s.logger.Info("review workflow created",
		"workflow_id", workflow.ID,
		"target_type", workflow.TargetType,
		"target_id", workflow.TargetID,
		"created_by", createdBy)

	return workflow, nil
}

// AssignReviewers moves a Draft workflow to InReview. The assignment set is
// replaced entirely: existing assignments are cleared and one Pending
// assignment is created per reviewer. After the transaction commits, a
// ReviewAssigned notification is published exactly once; its delivery is
// best-effort.
func (s *Service) AssignReviewers(workflowID uuid.UUID, reviewerIDs []string, assignedBy string) error {
	if len(reviewerIDs) == 0 {
		return internal.NewValidationError("at least one reviewer is required", internal.ErrCodeValidationFailed)
	}

	err := s.repo.Transaction(func(tx Repository) error {
		workflow, err := tx.GetWorkflowByID(workflowID)
		if err != nil {
			return err
		}
		if workflow == nil {
			return internal.ErrWorkflowNotFound
		}
		if workflow.Status != StatusDraft {
			s.logger.Warn("cannot assign reviewers in current status",
				"workflow_id", workflowID,
				"current_status", workflow.Status)
			return internal.ErrInvalidWorkflowStatus
		}

		if err := tx.DeleteAssignments(workflowID); err != nil {
			return err
		}

		assignments := make([]*ReviewAssignment, 0, len(reviewerIDs))
		for _, reviewerID := range reviewerIDs {
			assignments = append(assignments, NewAssignment(workflowID, reviewerID, assignedBy))
		}
		if err := tx.CreateAssignments(assignments); err != nil {
			return err
		}

		workflow.Status = StatusInReview
		workflow.UpdatedAt = time.Now()
		if err := tx.UpdateWorkflow(workflow); err != nil {
			return err
		}

		action := fmt.Sprintf("Reviewers assigned: %s", strings.Join(reviewerIDs, ", "))
		return tx.AppendHistory(newHistory(workflowID, StatusDraft, StatusInReview, action, assignedBy, nil))
	})
	if err != nil {
		return err
	}

	s.publishReviewEvent(events.EventTypeReviewAssigned, events.ActionReviewAssigned, workflowID, reviewerIDs)

	s.logger.Info("reviewers assigned",
		"workflow_id", workflowID,
		"reviewer_ids", reviewerIDs,
		"assigned_by", assignedBy)

	return nil
}

// ApproveReview resolves the workflow in the reviewer's favor. Returns false
// without mutating anything when the reviewer has no Pending assignment on
// the workflow; the precondition is evaluated inside the same transaction
// that applies the update, so two racing decisions cannot both win.
func (s *Service) ApproveReview(workflowID uuid.UUID, reviewerID string, comment *string) (bool, error) {
	var applied bool

	err := s.repo.Transaction(func(tx Repository) error {
		assignment, err := tx.GetAssignment(workflowID, reviewerID)
		if err != nil {
			return err
		}
		if assignment == nil || assignment.Status != AssignmentPending {
			return nil
		}

		workflow, err := tx.GetWorkflowByID(workflowID)
		if err != nil {
			return err
		}
		if workflow == nil {
			return internal.ErrWorkflowNotFound
		}
		if !CanTransition(workflow.Status, StatusApproved) {
			return nil
		}

		now := time.Now()
		assignment.Status = AssignmentApproved
		assignment.Comment = comment
		assignment.ReviewedAt = &now
		if err := tx.UpdateAssignment(assignment); err != nil {
			return err
		}

		// First decisive reviewer wins: everyone else's pending assignment
		// becomes Skipped in the same transaction.
		if err := tx.SkipPendingAssignments(workflowID, reviewerID); err != nil {
			return err
		}

		workflow.Status = StatusApproved
		workflow.UpdatedAt = now
		workflow.ApprovedAt = &now
		workflow.ApprovedBy = &reviewerID
		if err := tx.UpdateWorkflow(workflow); err != nil {
			return err
		}

		if err := tx.AppendHistory(newHistory(workflowID, StatusInReview, StatusApproved, "Review approved", reviewerID, comment)); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		s.logger.Error("approve review failed", "error", err, "workflow_id", workflowID, "reviewer_id", reviewerID)
		return false, err
	}

	if applied {
		s.publishReviewEvent(events.EventTypeReviewApproved, events.ActionReviewApproved, workflowID, []string{reviewerID})
		s.logger.Info("workflow approved", "workflow_id", workflowID, "reviewer_id", reviewerID)
	}

	return applied, nil
}

// RejectReview resolves the workflow against the target. Unlike approval, a
// comment is mandatory. No approved-at/approved-by is stamped.
func (s *Service) RejectReview(workflowID uuid.UUID, reviewerID, comment string) (bool, error) {
	if strings.TrimSpace(comment) == "" {
		return false, internal.ErrCommentRequired
	}

	var applied bool

	err := s.repo.Transaction(func(tx Repository) error {
		assignment, err := tx.GetAssignment(workflowID, reviewerID)
		if err != nil {
			return err
		}
		if assignment == nil || assignment.Status != AssignmentPending {
			return nil
		}

		workflow, err := tx.GetWorkflowByID(workflowID)
		if err != nil {
			return err
		}
		if workflow == nil {
			return internal.ErrWorkflowNotFound
		}
		if !CanTransition(workflow.Status, StatusRejected) {
			return nil
		}

		now := time.Now()
		assignment.Status = AssignmentRejected
		assignment.Comment = &comment
		assignment.ReviewedAt = &now
		if err := tx.UpdateAssignment(assignment); err != nil {
			return err
		}

		if err := tx.SkipPendingAssignments(workflowID, reviewerID); err != nil {
			return err
		}

		workflow.Status = StatusRejected
		workflow.UpdatedAt = now
		if err := tx.UpdateWorkflow(workflow); err != nil {
			return err
		}

		if err := tx.AppendHistory(newHistory(workflowID, StatusInReview, StatusRejected, "Review rejected", reviewerID, &comment)); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		s.logger.Error("reject review failed", "error", err, "workflow_id", workflowID, "reviewer_id", reviewerID)
		return false, err
	}

	if applied {
		s.publishReviewEvent(events.EventTypeReviewRejected, events.ActionReviewRejected, workflowID, []string{reviewerID})
		s.logger.Info("workflow rejected", "workflow_id", workflowID, "reviewer_id", reviewerID)
	}

	return applied, nil
}

// CancelWorkflow moves any non-terminal workflow to Cancelled, skipping all
// pending assignments. Returns false when the workflow is already Cancelled.
func (s *Service) CancelWorkflow(workflowID uuid.UUID, cancelledBy string, reason *string) (bool, error) {
	var applied bool

	err := s.repo.Transaction(func(tx Repository) error {
		workflow, err := tx.GetWorkflowByID(workflowID)
		if err != nil {
			return err
		}
		if workflow == nil {
			return internal.ErrWorkflowNotFound
		}
		if workflow.Status == StatusCancelled {
			return nil
		}
		if !CanTransition(workflow.Status, StatusCancelled) {
			return nil
		}

		previousStatus := workflow.Status

		if err := tx.SkipPendingAssignments(workflowID, ""); err != nil {
			return err
		}

		workflow.Status = StatusCancelled
		workflow.UpdatedAt = time.Now()
		if err := tx.UpdateWorkflow(workflow); err != nil {
			return err
		}

		if err := tx.AppendHistory(newHistory(workflowID, previousStatus, StatusCancelled, "Workflow cancelled", cancelledBy, reason)); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		s.logger.Error("cancel workflow failed", "error", err, "workflow_id", workflowID)
		return false, err
	}

	if applied {
		s.logger.Info("workflow cancelled", "workflow_id", workflowID, "cancelled_by", cancelledBy)
	}

	return applied, nil
}

// GetWorkflow returns the workflow with its assignments and history.
func (s *Service) GetWorkflow(workflowID uuid.UUID) (*ReviewWorkflow, error) {
	workflow, err := s.repo.GetWorkflowDetail(workflowID)
	if err != nil {
		return nil, err
	}
	if workflow == nil {
		return nil, internal.ErrWorkflowNotFound
	}
	return workflow, nil
}

func (s *Service) GetProjectWorkflows(projectID uuid.UUID, status *WorkflowStatus) ([]*ReviewWorkflow, error) {
	if status != nil && !status.Valid() {
		return nil, internal.NewValidationError("unknown workflow status filter", internal.ErrCodeInvalidWorkflowStatus)
	}
	return s.repo.ListProjectWorkflows(projectID, status)
}

func (s *Service) GetUserReviewAssignments(reviewerID string, status *AssignmentStatus) ([]*ReviewAssignment, error) {
	if status != nil && !status.Valid() {
		return nil, internal.NewValidationError("unknown assignment status filter", internal.ErrCodeValidationFailed)
	}
	return s.repo.ListUserAssignments(reviewerID, status)
}

// GetWorkflowHistory returns history entries ordered most recent first.
func (s *Service) GetWorkflowHistory(workflowID uuid.UUID) ([]*WorkflowHistory, error) {
	return s.repo.ListWorkflowHistory(workflowID)
}

// IsWorkflowComplete reports whether the workflow reached Approved, Rejected
// or Cancelled.
func (s *Service) IsWorkflowComplete(workflowID uuid.UUID) (bool, error) {
	workflow, err := s.repo.GetWorkflowByID(workflowID)
	if err != nil {
		return false, err
	}
	if workflow == nil {
		return false, internal.ErrWorkflowNotFound
	}
	return workflow.Status.Terminal(), nil
}

func (s *Service) publishReviewEvent(eventType, action string, workflowID uuid.UUID, reviewerIDs []string) {
	if s.events == nil {
		return
	}
	event := events.NewReviewEvent(eventType, action, workflowID, reviewerIDs)
	if err := s.events.Publish(context.Background(), event); err != nil {
		// Notification is best-effort relative to the state machine.
		s.logger.Error("failed to publish review event",
			"error", err,
			"event_type", eventType,
			"workflow_id", workflowID)
	}
}
