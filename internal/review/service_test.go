package review_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/core/events"
	"github.com/frahmantamala/azure-docgen/internal/review"
)

func TestReviewService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Review Service Suite")
}

// Mock repository for testing
type mockReviewRepository struct {
	workflows   map[uuid.UUID]*review.ReviewWorkflow
	assignments []*review.ReviewAssignment
	history     []*review.WorkflowHistory

	createError error
	getError    error
	updateError error
}

func newMockReviewRepository() *mockReviewRepository {
	return &mockReviewRepository{
		workflows:   make(map[uuid.UUID]*review.ReviewWorkflow),
		assignments: make([]*review.ReviewAssignment, 0),
		history:     make([]*review.WorkflowHistory, 0),
	}
}

func (m *mockReviewRepository) Transaction(fn func(review.Repository) error) error {
	return fn(m)
}

func (m *mockReviewRepository) CreateWorkflow(workflow *review.ReviewWorkflow) error {
	if m.createError != nil {
		return m.createError
	}
	m.workflows[workflow.ID] = workflow
	return nil
}

func (m *mockReviewRepository) GetWorkflowByID(id uuid.UUID) (*review.ReviewWorkflow, error) {
	if m.getError != nil {
		return nil, m.getError
	}
	return m.workflows[id], nil
}

func (m *mockReviewRepository) GetWorkflowDetail(id uuid.UUID) (*review.ReviewWorkflow, error) {
	workflow, err := m.GetWorkflowByID(id)
	if err != nil || workflow == nil {
		return workflow, err
	}
	detail := *workflow
	detail.Assignments = nil
	detail.History = nil
	for _, a := range m.assignments {
		if a.WorkflowID == id {
			detail.Assignments = append(detail.Assignments, a)
		}
	}
	for _, h := range m.history {
		if h.WorkflowID == id {
			detail.History = append(detail.History, h)
		}
	}
	return &detail, nil
}

func (m *mockReviewRepository) UpdateWorkflow(workflow *review.ReviewWorkflow) error {
	if m.updateError != nil {
		return m.updateError
	}
	m.workflows[workflow.ID] = workflow
	return nil
}

func (m *mockReviewRepository) ListProjectWorkflows(projectID uuid.UUID, status *review.WorkflowStatus) ([]*review.ReviewWorkflow, error) {
	result := make([]*review.ReviewWorkflow, 0)
	for _, w := range m.workflows {
		if w.ProjectID != projectID {
			continue
		}
		if status != nil && w.Status != *status {
			continue
		}
		result = append(result, w)
	}
	return result, nil
}

func (m *mockReviewRepository) GetAssignment(workflowID uuid.UUID, reviewerID string) (*review.ReviewAssignment, error) {
	for _, a := range m.assignments {
		if a.WorkflowID == workflowID && a.ReviewerID == reviewerID {
			return a, nil
		}
	}
	return nil, nil
}

func (m *mockReviewRepository) DeleteAssignments(workflowID uuid.UUID) error {
	kept := m.assignments[:0]
	for _, a := range m.assignments {
		if a.WorkflowID != workflowID {
			kept = append(kept, a)
		}
	}
	m.assignments = kept
	return nil
}

func (m *mockReviewRepository) CreateAssignments(assignments []*review.ReviewAssignment) error {
	if m.createError != nil {
		return m.createError
	}
	m.assignments = append(m.assignments, assignments...)
	return nil
}

func (m *mockReviewRepository) UpdateAssignment(assignment *review.ReviewAssignment) error {
	if m.updateError != nil {
		return m.updateError
	}
	for i, a := range m.assignments {
		if a.ID == assignment.ID {
			m.assignments[i] = assignment
			return nil
		}
	}
	return nil
}

func (m *mockReviewRepository) SkipPendingAssignments(workflowID uuid.UUID, exceptReviewerID string) error {
	for _, a := range m.assignments {
		if a.WorkflowID != workflowID || a.Status != review.AssignmentPending {
			continue
		}
		if exceptReviewerID != "" && a.ReviewerID == exceptReviewerID {
			continue
		}
		a.Status = review.AssignmentSkipped
	}
	return nil
}

func (m *mockReviewRepository) ListUserAssignments(reviewerID string, status *review.AssignmentStatus) ([]*review.ReviewAssignment, error) {
	result := make([]*review.ReviewAssignment, 0)
	for _, a := range m.assignments {
		if a.ReviewerID != reviewerID {
			continue
		}
		if status != nil && a.Status != *status {
			continue
		}
		result = append(result, a)
	}
	return result, nil
}

func (m *mockReviewRepository) AppendHistory(history *review.WorkflowHistory) error {
	m.history = append(m.history, history)
	return nil
}

func (m *mockReviewRepository) ListWorkflowHistory(workflowID uuid.UUID) ([]*review.WorkflowHistory, error) {
	result := make([]*review.WorkflowHistory, 0)
	for _, h := range m.history {
		if h.WorkflowID == workflowID {
			result = append(result, h)
		}
	}
	return result, nil
}

// Capturing publisher for asserting notifications
type mockPublisher struct {
	published []events.Event
}

func (m *mockPublisher) Publish(_ context.Context, event events.Event) error {
	m.published = append(m.published, event)
	return nil
}

var _ = Describe("ReviewService", func() {
	var (
		repo      *mockReviewRepository
		publisher *mockPublisher
		service   *review.Service
		projectID uuid.UUID
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	newDraftWorkflow := func(createdBy string) *review.ReviewWorkflow {
		workflow, err := service.CreateWorkflow(review.CreateWorkflowDTO{
			TargetType:  review.TargetDocument,
			TargetID:    uuid.New(),
			ProjectID:   projectID,
			Title:       "API design review",
			Description: "Review the payment gateway redesign",
		}, createdBy)
		Expect(err).ToNot(HaveOccurred())
		return workflow
	}

	BeforeEach(func() {
		repo = newMockReviewRepository()
		publisher = &mockPublisher{}
		service = review.NewService(repo, publisher, testLogger)
		projectID = uuid.New()
	})

	Describe("CreateWorkflow", func() {
		It("should create a draft workflow with a creation history entry", func() {
			workflow := newDraftWorkflow("author-1")

			Expect(workflow.Status).To(Equal(review.StatusDraft))
			Expect(workflow.Version).To(Equal(1))

			history, err := service.GetWorkflowHistory(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].ToStatus).To(Equal(review.StatusDraft))
		})

		It("should reject an empty title", func() {
			_, err := service.CreateWorkflow(review.CreateWorkflowDTO{
				TargetType: review.TargetDocument,
				TargetID:   uuid.New(),
				ProjectID:  projectID,
				Title:      "",
			}, "author-1")

			Expect(err).To(HaveOccurred())
		})

		It("should reject an unknown target type", func() {
			_, err := service.CreateWorkflow(review.CreateWorkflowDTO{
				TargetType: review.TargetType("pipeline"),
				TargetID:   uuid.New(),
				ProjectID:  projectID,
				Title:      "Some review",
			}, "author-1")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("AssignReviewers", func() {
		It("should move the workflow to in_review with pending assignments", func() {
			workflow := newDraftWorkflow("author-1")

			err := service.AssignReviewers(workflow.ID, []string{"rev-1", "rev-2", "rev-3"}, "author-1")
			Expect(err).ToNot(HaveOccurred())

			updated, err := service.GetWorkflow(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(review.StatusInReview))
			Expect(updated.Assignments).To(HaveLen(3))
			for _, a := range updated.Assignments {
				Expect(a.Status).To(Equal(review.AssignmentPending))
			}
		})

		It("should publish a review assigned notification", func() {
			workflow := newDraftWorkflow("author-1")

			err := service.AssignReviewers(workflow.ID, []string{"rev-1"}, "author-1")
			Expect(err).ToNot(HaveOccurred())

			Expect(publisher.published).To(HaveLen(1))
			Expect(publisher.published[0].EventType()).To(Equal(events.EventTypeReviewAssigned))
		})

		It("should fail when the workflow is not in draft", func() {
			workflow := newDraftWorkflow("author-1")
			Expect(service.AssignReviewers(workflow.ID, []string{"rev-1"}, "author-1")).To(Succeed())

			err := service.AssignReviewers(workflow.ID, []string{"rev-2"}, "author-1")
			Expect(err).To(Equal(internal.ErrInvalidWorkflowStatus))
		})

		It("should fail with no reviewers", func() {
			workflow := newDraftWorkflow("author-1")

			err := service.AssignReviewers(workflow.ID, nil, "author-1")
			Expect(err).To(HaveOccurred())
		})

		It("should fail for a missing workflow", func() {
			err := service.AssignReviewers(uuid.New(), []string{"rev-1"}, "author-1")
			Expect(err).To(Equal(internal.ErrWorkflowNotFound))
		})
	})

	Describe("ApproveReview", func() {
		var workflow *review.ReviewWorkflow

		BeforeEach(func() {
			workflow = newDraftWorkflow("author-1")
			Expect(service.AssignReviewers(workflow.ID, []string{"rev-1", "rev-2", "rev-3"}, "author-1")).To(Succeed())
		})

		It("should approve the workflow and skip the remaining reviewers", func() {
			applied, err := service.ApproveReview(workflow.ID, "rev-2", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeTrue())

			updated, err := service.GetWorkflow(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(review.StatusApproved))
			Expect(updated.ApprovedBy).ToNot(BeNil())
			Expect(*updated.ApprovedBy).To(Equal("rev-2"))
			Expect(updated.ApprovedAt).ToNot(BeNil())

			statuses := map[string]review.AssignmentStatus{}
			for _, a := range updated.Assignments {
				statuses[a.ReviewerID] = a.Status
			}
			Expect(statuses["rev-1"]).To(Equal(review.AssignmentSkipped))
			Expect(statuses["rev-2"]).To(Equal(review.AssignmentApproved))
			Expect(statuses["rev-3"]).To(Equal(review.AssignmentSkipped))
		})

		It("should append exactly one history entry for the transition", func() {
			_, err := service.ApproveReview(workflow.ID, "rev-1", nil)
			Expect(err).ToNot(HaveOccurred())

			history, err := service.GetWorkflowHistory(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			// creation + assignment + approval
			Expect(history).To(HaveLen(3))
		})

		It("should not apply a second decision after the first wins", func() {
			applied, err := service.ApproveReview(workflow.ID, "rev-1", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeTrue())

			applied, err = service.ApproveReview(workflow.ID, "rev-2", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeFalse())

			updated, err := service.GetWorkflow(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(*updated.ApprovedBy).To(Equal("rev-1"))
		})

		It("should not apply for a reviewer without an assignment", func() {
			applied, err := service.ApproveReview(workflow.ID, "stranger", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeFalse())
		})

		It("should publish an approval notification only when applied", func() {
			published := len(publisher.published)

			_, err := service.ApproveReview(workflow.ID, "rev-1", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(publisher.published).To(HaveLen(published + 1))

			_, err = service.ApproveReview(workflow.ID, "rev-2", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(publisher.published).To(HaveLen(published + 1))
		})
	})

	Describe("RejectReview", func() {
		var workflow *review.ReviewWorkflow

		BeforeEach(func() {
			workflow = newDraftWorkflow("author-1")
			Expect(service.AssignReviewers(workflow.ID, []string{"rev-1", "rev-2"}, "author-1")).To(Succeed())
		})

		It("should require a comment", func() {
			_, err := service.RejectReview(workflow.ID, "rev-1", "   ")
			Expect(err).To(Equal(internal.ErrCommentRequired))
		})

		It("should reject the workflow without stamping approval fields", func() {
			applied, err := service.RejectReview(workflow.ID, "rev-1", "missing threat model section")
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeTrue())

			updated, err := service.GetWorkflow(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(review.StatusRejected))
			Expect(updated.ApprovedAt).To(BeNil())
			Expect(updated.ApprovedBy).To(BeNil())
		})

		It("should record the comment on the assignment and in history", func() {
			comment := "diagram contradicts the data flow"
			_, err := service.RejectReview(workflow.ID, "rev-2", comment)
			Expect(err).ToNot(HaveOccurred())

			updated, err := service.GetWorkflow(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			for _, a := range updated.Assignments {
				if a.ReviewerID == "rev-2" {
					Expect(a.Comment).ToNot(BeNil())
					Expect(*a.Comment).To(Equal(comment))
				}
			}

			history, err := service.GetWorkflowHistory(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			last := history[len(history)-1]
			Expect(last.ToStatus).To(Equal(review.StatusRejected))
			Expect(last.Comment).ToNot(BeNil())
			Expect(*last.Comment).To(Equal(comment))
		})
	})

	Describe("CancelWorkflow", func() {
		It("should cancel a draft workflow", func() {
			workflow := newDraftWorkflow("author-1")

			applied, err := service.CancelWorkflow(workflow.ID, "author-1", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeTrue())

			updated, err := service.GetWorkflow(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(review.StatusCancelled))
		})

		It("should skip all pending assignments on cancellation", func() {
			workflow := newDraftWorkflow("author-1")
			Expect(service.AssignReviewers(workflow.ID, []string{"rev-1", "rev-2"}, "author-1")).To(Succeed())

			applied, err := service.CancelWorkflow(workflow.ID, "author-1", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeTrue())

			updated, err := service.GetWorkflow(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			for _, a := range updated.Assignments {
				Expect(a.Status).To(Equal(review.AssignmentSkipped))
			}
		})

		It("should be a no-op when already cancelled", func() {
			workflow := newDraftWorkflow("author-1")
			_, err := service.CancelWorkflow(workflow.ID, "author-1", nil)
			Expect(err).ToNot(HaveOccurred())

			applied, err := service.CancelWorkflow(workflow.ID, "author-1", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeFalse())
		})

		It("should not cancel an approved workflow", func() {
			workflow := newDraftWorkflow("author-1")
			Expect(service.AssignReviewers(workflow.ID, []string{"rev-1"}, "author-1")).To(Succeed())
			_, err := service.ApproveReview(workflow.ID, "rev-1", nil)
			Expect(err).ToNot(HaveOccurred())

			applied, err := service.CancelWorkflow(workflow.ID, "author-1", nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(applied).To(BeFalse())

			updated, err := service.GetWorkflow(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(review.StatusApproved))
		})
	})

	Describe("IsWorkflowComplete", func() {
		It("should be false for open workflows and true for terminal ones", func() {
			workflow := newDraftWorkflow("author-1")

			complete, err := service.IsWorkflowComplete(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(complete).To(BeFalse())

			_, err = service.CancelWorkflow(workflow.ID, "author-1", nil)
			Expect(err).ToNot(HaveOccurred())

			complete, err = service.IsWorkflowComplete(workflow.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(complete).To(BeTrue())
		})
	})
})
