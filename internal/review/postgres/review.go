package postgres

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/review"
)

// ReviewRepository implements the review.Repository interface using GORM.
type ReviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) review.Repository {
	return &ReviewRepository{db: db}
}

// Transaction runs fn against a repository bound to a single database
// transaction. Nested calls reuse the outer transaction because gorm's
// Transaction on a tx handle creates a savepoint, which is fine here.
func (r *ReviewRepository) Transaction(fn func(review.Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ReviewRepository{db: tx})
	})
}

func (r *ReviewRepository) CreateWorkflow(workflow *review.ReviewWorkflow) error {
	return r.db.Create(workflow).Error
}

func (r *ReviewRepository) GetWorkflowByID(id uuid.UUID) (*review.ReviewWorkflow, error) {
	var workflow review.ReviewWorkflow
	err := r.db.Where("id = ?", id).First(&workflow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &workflow, nil
}

// GetWorkflowDetail loads the workflow with its assignments and full history.
func (r *ReviewRepository) GetWorkflowDetail(id uuid.UUID) (*review.ReviewWorkflow, error) {
	var workflow review.ReviewWorkflow
	err := r.db.
		Preload("Assignments", func(db *gorm.DB) *gorm.DB {
			return db.Order("assigned_at ASC")
		}).
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("action_at DESC")
		}).
		Where("id = ?", id).
		First(&workflow).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &workflow, nil
}

func (r *ReviewRepository) UpdateWorkflow(workflow *review.ReviewWorkflow) error {
	return r.db.Save(workflow).Error
}

func (r *ReviewRepository) ListProjectWorkflows(projectID uuid.UUID, status *review.WorkflowStatus) ([]*review.ReviewWorkflow, error) {
	query := r.db.Where("project_id = ?", projectID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var workflows []*review.ReviewWorkflow
	err := query.Order("created_at DESC").Find(&workflows).Error
	return workflows, err
}

func (r *ReviewRepository) GetAssignment(workflowID uuid.UUID, reviewerID string) (*review.ReviewAssignment, error) {
	var assignment review.ReviewAssignment
	err := r.db.Where("workflow_id = ? AND reviewer_id = ?", workflowID, reviewerID).
		First(&assignment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &assignment, nil
}

func (r *ReviewRepository) DeleteAssignments(workflowID uuid.UUID) error {
	return r.db.Where("workflow_id = ?", workflowID).
		Delete(&review.ReviewAssignment{}).Error
}

// CreateAssignments inserts the assignment batch. The unique index on
// (workflow_id, reviewer_id) turns duplicates into a conflict error.
func (r *ReviewRepository) CreateAssignments(assignments []*review.ReviewAssignment) error {
	if len(assignments) == 0 {
		return nil
	}
	return translateAssignmentError(r.db.Create(assignments).Error)
}

func (r *ReviewRepository) UpdateAssignment(assignment *review.ReviewAssignment) error {
	return r.db.Save(assignment).Error
}

// SkipPendingAssignments marks every still-pending assignment on the workflow
// as skipped. Pass an empty exceptReviewerID to skip all of them.
func (r *ReviewRepository) SkipPendingAssignments(workflowID uuid.UUID, exceptReviewerID string) error {
	query := r.db.Model(&review.ReviewAssignment{}).
		Where("workflow_id = ? AND status = ?", workflowID, review.AssignmentPending)
	if exceptReviewerID != "" {
		query = query.Where("reviewer_id <> ?", exceptReviewerID)
	}
	return query.Update("status", review.AssignmentSkipped).Error
}

func (r *ReviewRepository) ListUserAssignments(reviewerID string, status *review.AssignmentStatus) ([]*review.ReviewAssignment, error) {
	query := r.db.Where("reviewer_id = ?", reviewerID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var assignments []*review.ReviewAssignment
	err := query.Order("assigned_at DESC").Find(&assignments).Error
	return assignments, err
}

func (r *ReviewRepository) AppendHistory(history *review.WorkflowHistory) error {
	return r.db.Create(history).Error
}

func (r *ReviewRepository) ListWorkflowHistory(workflowID uuid.UUID) ([]*review.WorkflowHistory, error) {
	var entries []*review.WorkflowHistory
	err := r.db.Where("workflow_id = ?", workflowID).
		Order("action_at DESC").
		Find(&entries).Error
	return entries, err
}

func translateAssignmentError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.NewConflictError("reviewer already assigned to this workflow", internal.ErrCodeDuplicateAssignment).WithCause(err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed") {
		return internal.NewConflictError("reviewer already assigned to this workflow", internal.ErrCodeDuplicateAssignment).WithCause(err)
	}
	return err
}
