package review

import (
	"errors"

	"github.com/google/uuid"
)

// CreateWorkflowDTO is the request payload for creating a review workflow.
type CreateWorkflowDTO struct {
	TargetType  TargetType `json:"target_type" validate:"required,oneof=document template"`
	TargetID    uuid.UUID  `json:"target_id" validate:"required"`
	ProjectID   uuid.UUID  `json:"project_id" validate:"required"`
	Title       string     `json:"title" validate:"required,min=1,max=200"`
	Description string     `json:"description" validate:"max=2000"`
}

func (dto CreateWorkflowDTO) Validate() error {
	if !dto.TargetType.Valid() {
		return errors.New("target_type must be document or template")
	}
	if dto.TargetID == uuid.Nil {
		return errors.New("target_id is required")
	}
	if dto.ProjectID == uuid.Nil {
		return errors.New("project_id is required")
	}
	if dto.Title == "" {
		return errors.New("title is required")
	}
	if len(dto.Title) > 200 {
		return errors.New("title must be less than 200 characters")
	}
	if len(dto.Description) > 2000 {
		return errors.New("description must be less than 2000 characters")
	}
	return nil
}

type AssignReviewersDTO struct {
	ReviewerIDs []string `json:"reviewer_ids" validate:"required,min=1"`
}

func (dto AssignReviewersDTO) Validate() error {
	if len(dto.ReviewerIDs) == 0 {
		return errors.New("at least one reviewer is required")
	}
	seen := make(map[string]struct{}, len(dto.ReviewerIDs))
	for _, id := range dto.ReviewerIDs {
		if id == "" {
			return errors.New("reviewer ids must not be empty")
		}
		if _, dup := seen[id]; dup {
			return errors.New("reviewer ids must be unique")
		}
		seen[id] = struct{}{}
	}
	return nil
}

type ApproveReviewDTO struct {
	Comment *string `json:"comment,omitempty"`
}

type RejectReviewDTO struct {
	Comment string `json:"comment" validate:"required"`
}

func (dto RejectReviewDTO) Validate() error {
	if dto.Comment == "" {
		return errors.New("comment is required when rejecting a review")
	}
	return nil
}

type CancelWorkflowDTO struct {
	Reason *string `json:"reason,omitempty"`
}

// DecisionResponse reports whether a decision call actually resolved the
// workflow. Applied is false when the caller held no pending assignment.
type DecisionResponse struct {
	Applied bool           `json:"applied"`
	Status  WorkflowStatus `json:"status,omitempty"`
}
