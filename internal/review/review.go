package review

import (
	"time"

	"github.com/google/uuid"
)

// WorkflowStatus is the review workflow state. Draft and InReview are open;
// Approved, Rejected and Cancelled are terminal.
type WorkflowStatus string

const (
	StatusDraft     WorkflowStatus = "draft"
	StatusInReview  WorkflowStatus = "in_review"
	StatusApproved  WorkflowStatus = "approved"
	StatusRejected  WorkflowStatus = "rejected"
	StatusCancelled WorkflowStatus = "cancelled"
)

// workflowTransitions is the single source of truth for legal state changes.
var workflowTransitions = map[WorkflowStatus][]WorkflowStatus{
	StatusDraft:    {StatusInReview, StatusCancelled},
	StatusInReview: {StatusApproved, StatusRejected, StatusCancelled},
}

// CanTransition reports whether from → to is a legal workflow transition.
func CanTransition(from, to WorkflowStatus) bool {
	for _, allowed := range workflowTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Terminal reports whether the status accepts no further assignments or
// decisions.
func (s WorkflowStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

func (s WorkflowStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusInReview, StatusApproved, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

type AssignmentStatus string

const (
	AssignmentPending  AssignmentStatus = "pending"
	AssignmentApproved AssignmentStatus = "approved"
	AssignmentRejected AssignmentStatus = "rejected"
	// AssignmentSkipped marks reviewers whose decision became moot because
	// another reviewer resolved the workflow first.
	AssignmentSkipped AssignmentStatus = "skipped"
)

func (s AssignmentStatus) Valid() bool {
	switch s {
	case AssignmentPending, AssignmentApproved, AssignmentRejected, AssignmentSkipped:
		return true
	}
	return false
}

type TargetType string

const (
	TargetDocument TargetType = "document"
	TargetTemplate TargetType = "template"
)

func (t TargetType) Valid() bool {
	return t == TargetDocument || t == TargetTemplate
}

type ReviewWorkflow struct {
	ID          uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	TargetType  TargetType     `json:"target_type" gorm:"column:target_type;not null"`
	TargetID    uuid.UUID      `json:"target_id" gorm:"column:target_id;type:uuid;not null"`
	ProjectID   uuid.UUID      `json:"project_id" gorm:"column:project_id;type:uuid;not null"`
	Title       string         `json:"title" gorm:"not null"`
	Description string         `json:"description"`
	Status      WorkflowStatus `json:"status" gorm:"column:status;default:draft"`
	CreatedBy   string         `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt   time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time      `json:"updated_at" gorm:"column:updated_at"`
	ApprovedAt  *time.Time     `json:"approved_at,omitempty" gorm:"column:approved_at"`
	ApprovedBy  *string        `json:"approved_by,omitempty" gorm:"column:approved_by"`
	Version     int            `json:"version" gorm:"column:version;default:1"`

	Assignments []*ReviewAssignment `json:"assignments,omitempty" gorm:"foreignKey:WorkflowID"`
	History     []*WorkflowHistory  `json:"history,omitempty" gorm:"foreignKey:WorkflowID"`
}

func (ReviewWorkflow) TableName() string {
	return "review_workflows"
}

type ReviewAssignment struct {
	ID         uuid.UUID        `json:"id" gorm:"primaryKey;type:uuid"`
	WorkflowID uuid.UUID        `json:"workflow_id" gorm:"column:workflow_id;type:uuid;not null"`
	ReviewerID string           `json:"reviewer_id" gorm:"column:reviewer_id;not null"`
	Status     AssignmentStatus `json:"status" gorm:"column:status;default:pending"`
	Comment    *string          `json:"comment,omitempty"`
	AssignedAt time.Time        `json:"assigned_at" gorm:"column:assigned_at"`
	ReviewedAt *time.Time       `json:"reviewed_at,omitempty" gorm:"column:reviewed_at"`
	AssignedBy string           `json:"assigned_by" gorm:"column:assigned_by"`
}

func (ReviewAssignment) TableName() string {
	return "review_assignments"
}

// WorkflowHistory rows are the append-only audit trail; exactly one row is
// written per state transition, in the same transaction as the change itself.
type WorkflowHistory struct {
	ID         uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	WorkflowID uuid.UUID      `json:"workflow_id" gorm:"column:workflow_id;type:uuid;not null"`
	FromStatus WorkflowStatus `json:"from_status" gorm:"column:from_status;not null"`
	ToStatus   WorkflowStatus `json:"to_status" gorm:"column:to_status;not null"`
	Action     string         `json:"action" gorm:"not null"`
	Comment    *string        `json:"comment,omitempty"`
	ActorID    string         `json:"actor_id" gorm:"column:actor_id;not null"`
	ActionAt   time.Time      `json:"action_at" gorm:"column:action_at"`
}

func (WorkflowHistory) TableName() string {
	return "workflow_histories"
}

func NewWorkflow(targetType TargetType, targetID, projectID uuid.UUID, title, description, createdBy string) *ReviewWorkflow {
	now := time.Now()
	return &ReviewWorkflow{
		ID:          uuid.New(),
		TargetType:  targetType,
		TargetID:    targetID,
		ProjectID:   projectID,
		Title:       title,
		Description: description,
		Status:      StatusDraft,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
}

func NewAssignment(workflowID uuid.UUID, reviewerID, assignedBy string) *ReviewAssignment {
	return &ReviewAssignment{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		ReviewerID: reviewerID,
		Status:     AssignmentPending,
		AssignedAt: time.Now(),
		AssignedBy: assignedBy,
	}
}

func newHistory(workflowID uuid.UUID, from, to WorkflowStatus, action, actorID string, comment *string) *WorkflowHistory {
	return &WorkflowHistory{
		ID:         uuid.New(),
		WorkflowID: workflowID,
		FromStatus: from,
		ToStatus:   to,
		Action:     action,
		Comment:    comment,
		ActorID:    actorID,
		ActionAt:   time.Now(),
	}
}
