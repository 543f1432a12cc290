package notification

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/azure-docgen/internal/core/events"
)

// Notifier is the fire-and-forget sink for review events. It subscribes to
// the event bus and dispatches to whatever channel is configured; delivery
// failures are logged by the bus and never reach the review state machine.
type Notifier struct {
	logger *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger}
}

// Register subscribes the notifier to every review event type.
func (n *Notifier) Register(bus *events.EventBus) {
	bus.Subscribe(events.EventTypeReviewAssigned, n.handleReviewEvent)
	bus.Subscribe(events.EventTypeReviewApproved, n.handleReviewEvent)
	bus.Subscribe(events.EventTypeReviewRejected, n.handleReviewEvent)
	bus.Subscribe(events.EventTypeReviewCancelled, n.handleReviewEvent)
}

func (n *Notifier) handleReviewEvent(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload().(map[string]interface{})
	if !ok {
		return fmt.Errorf("unexpected payload type for event %s", event.EventID())
	}

	workflowID, _ := payload["workflow_id"].(string)
	action, _ := payload["action"].(string)
	reviewerIDs, _ := payload["reviewer_ids"].([]string)

	for _, reviewerID := range reviewerIDs {
		n.notify(reviewerID, action, workflowID)
	}

	return nil
}

// notify is the delivery point. The current channel is the structured log;
// an email or webhook sender slots in here without touching the engines.
func (n *Notifier) notify(userID, action, workflowID string) {
	n.logger.Info("notification dispatched",
		"user_id", userID,
		"action", action,
		"workflow_id", workflowID)
}
