package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeReviewAssigned  = "review.assigned"
	EventTypeReviewApproved  = "review.approved"
	EventTypeReviewRejected  = "review.rejected"
	EventTypeReviewCancelled = "review.cancelled"
)

// Review action tags carried in the event payload and handed to the
// notification sink.
const (
	ActionReviewAssigned  = "ReviewAssigned"
	ActionReviewApproved  = "ReviewApproved"
	ActionReviewRejected  = "ReviewRejected"
	ActionReviewCancelled = "ReviewCancelled"
)

func NewReviewEvent(eventType, action string, workflowID uuid.UUID, reviewerIDs []string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"workflow_id":  workflowID.String(),
			"reviewer_ids": reviewerIDs,
			"action":       action,
		},
	}
}
