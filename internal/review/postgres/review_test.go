package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/review"
)

func TestReviewRepository(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Review Repository Suite")
}

// SQLite mirrors of the workflow tables, matching the migration columns.
type SQLiteWorkflow struct {
	ID          string     `gorm:"primaryKey"`
	TargetType  string     `gorm:"column:target_type;not null"`
	TargetID    string     `gorm:"column:target_id;not null"`
	ProjectID   string     `gorm:"column:project_id;not null"`
	Title       string     `gorm:"not null"`
	Description string     `gorm:"column:description"`
	Status      string     `gorm:"column:status;default:draft"`
	CreatedBy   string     `gorm:"column:created_by;not null"`
	CreatedAt   time.Time  `gorm:"column:created_at"`
	UpdatedAt   time.Time  `gorm:"column:updated_at"`
	ApprovedAt  *time.Time `gorm:"column:approved_at"`
	ApprovedBy  *string    `gorm:"column:approved_by"`
	Version     int        `gorm:"column:version;default:1"`
}

func (SQLiteWorkflow) TableName() string {
	return "review_workflows"
}

type SQLiteAssignment struct {
	ID         string     `gorm:"primaryKey"`
	WorkflowID string     `gorm:"column:workflow_id;not null;uniqueIndex:uq_workflow_reviewer"`
	ReviewerID string     `gorm:"column:reviewer_id;not null;uniqueIndex:uq_workflow_reviewer"`
	Status     string     `gorm:"column:status;default:pending"`
	Comment    *string    `gorm:"column:comment"`
	AssignedAt time.Time  `gorm:"column:assigned_at"`
	ReviewedAt *time.Time `gorm:"column:reviewed_at"`
	AssignedBy string     `gorm:"column:assigned_by"`
}

func (SQLiteAssignment) TableName() string {
	return "review_assignments"
}

type SQLiteHistory struct {
	ID         string    `gorm:"primaryKey"`
	WorkflowID string    `gorm:"column:workflow_id;not null"`
	FromStatus string    `gorm:"column:from_status;not null"`
	ToStatus   string    `gorm:"column:to_status;not null"`
	Action     string    `gorm:"not null"`
	Comment    *string   `gorm:"column:comment"`
	ActorID    string    `gorm:"column:actor_id;not null"`
	ActionAt   time.Time `gorm:"column:action_at"`
}

func (SQLiteHistory) TableName() string {
	return "workflow_histories"
}

var _ = Describe("ReviewRepository", func() {
	var (
		db   *gorm.DB
		repo review.Repository
	)

	BeforeEach(func() {
		var err error

		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
		Expect(err).NotTo(HaveOccurred())

		err = db.AutoMigrate(&SQLiteWorkflow{}, &SQLiteAssignment{}, &SQLiteHistory{})
		Expect(err).NotTo(HaveOccurred())

		repo = NewReviewRepository(db)
	})

	AfterEach(func() {
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		Expect(sqlDB.Close()).To(Succeed())
	})

	newWorkflow := func() *review.ReviewWorkflow {
		workflow := review.NewWorkflow(review.TargetDocument, uuid.New(), uuid.New(), "Storage design", "", "author-1")
		Expect(repo.CreateWorkflow(workflow)).To(Succeed())
		return workflow
	}

	Describe("GetWorkflowByID", func() {
		It("should return nil for a missing workflow", func() {
			found, err := repo.GetWorkflowByID(uuid.New())
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeNil())
		})

		It("should round-trip a created workflow", func() {
			workflow := newWorkflow()

			found, err := repo.GetWorkflowByID(workflow.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found).NotTo(BeNil())
			Expect(found.Title).To(Equal("Storage design"))
			Expect(found.Status).To(Equal(review.StatusDraft))
		})
	})

	Describe("CreateAssignments", func() {
		It("should reject a duplicate reviewer on the same workflow as a conflict", func() {
			workflow := newWorkflow()

			first := review.NewAssignment(workflow.ID, "rev-1", "author-1")
			Expect(repo.CreateAssignments([]*review.ReviewAssignment{first})).To(Succeed())

			dup := review.NewAssignment(workflow.ID, "rev-1", "author-1")
			err := repo.CreateAssignments([]*review.ReviewAssignment{dup})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})

		It("should allow the same reviewer on different workflows", func() {
			first := newWorkflow()
			second := newWorkflow()

			Expect(repo.CreateAssignments([]*review.ReviewAssignment{
				review.NewAssignment(first.ID, "rev-1", "author-1"),
			})).To(Succeed())
			Expect(repo.CreateAssignments([]*review.ReviewAssignment{
				review.NewAssignment(second.ID, "rev-1", "author-1"),
			})).To(Succeed())
		})
	})

	Describe("SkipPendingAssignments", func() {
		It("should skip everyone except the deciding reviewer", func() {
			workflow := newWorkflow()
			Expect(repo.CreateAssignments([]*review.ReviewAssignment{
				review.NewAssignment(workflow.ID, "rev-1", "author-1"),
				review.NewAssignment(workflow.ID, "rev-2", "author-1"),
				review.NewAssignment(workflow.ID, "rev-3", "author-1"),
			})).To(Succeed())

			Expect(repo.SkipPendingAssignments(workflow.ID, "rev-2")).To(Succeed())

			kept, err := repo.GetAssignment(workflow.ID, "rev-2")
			Expect(err).NotTo(HaveOccurred())
			Expect(kept.Status).To(Equal(review.AssignmentPending))

			for _, reviewerID := range []string{"rev-1", "rev-3"} {
				skipped, err := repo.GetAssignment(workflow.ID, reviewerID)
				Expect(err).NotTo(HaveOccurred())
				Expect(skipped.Status).To(Equal(review.AssignmentSkipped))
			}
		})

		It("should not touch assignments that already carry a decision", func() {
			workflow := newWorkflow()
			decided := review.NewAssignment(workflow.ID, "rev-1", "author-1")
			decided.Status = review.AssignmentApproved
			Expect(repo.CreateAssignments([]*review.ReviewAssignment{decided})).To(Succeed())

			Expect(repo.SkipPendingAssignments(workflow.ID, "")).To(Succeed())

			found, err := repo.GetAssignment(workflow.ID, "rev-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.Status).To(Equal(review.AssignmentApproved))
		})
	})

	Describe("GetWorkflowDetail", func() {
		It("should load assignments and history ordered for display", func() {
			workflow := newWorkflow()
			Expect(repo.CreateAssignments([]*review.ReviewAssignment{
				review.NewAssignment(workflow.ID, "rev-1", "author-1"),
			})).To(Succeed())

			earlier := &review.WorkflowHistory{
				ID:         uuid.New(),
				WorkflowID: workflow.ID,
				FromStatus: review.StatusDraft,
				ToStatus:   review.StatusDraft,
				Action:     "Workflow created",
				ActorID:    "author-1",
				ActionAt:   time.Now().Add(-time.Minute),
			}
			later := &review.WorkflowHistory{
				ID:         uuid.New(),
				WorkflowID: workflow.ID,
				FromStatus: review.StatusDraft,
				ToStatus:   review.StatusInReview,
				Action:     "Reviewers assigned",
				ActorID:    "author-1",
				ActionAt:   time.Now(),
			}
			Expect(repo.AppendHistory(earlier)).To(Succeed())
			Expect(repo.AppendHistory(later)).To(Succeed())

			detail, err := repo.GetWorkflowDetail(workflow.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(detail.Assignments).To(HaveLen(1))
			Expect(detail.History).To(HaveLen(2))
			// newest first
			Expect(detail.History[0].Action).To(Equal("Reviewers assigned"))
		})
	})

	Describe("ListProjectWorkflows", func() {
		It("should filter by status when asked", func() {
			workflow := newWorkflow()
			workflow.Status = review.StatusInReview
			Expect(repo.UpdateWorkflow(workflow)).To(Succeed())

			other := review.NewWorkflow(review.TargetDocument, uuid.New(), workflow.ProjectID, "Second", "", "author-1")
			Expect(repo.CreateWorkflow(other)).To(Succeed())

			status := review.StatusInReview
			inReview, err := repo.ListProjectWorkflows(workflow.ProjectID, &status)
			Expect(err).NotTo(HaveOccurred())
			Expect(inReview).To(HaveLen(1))
			Expect(inReview[0].ID).To(Equal(workflow.ID))

			all, err := repo.ListProjectWorkflows(workflow.ProjectID, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(all).To(HaveLen(2))
		})
	})

	Describe("Transaction", func() {
		It("should roll back every write when fn fails", func() {
			workflow := newWorkflow()

			err := repo.Transaction(func(tx review.Repository) error {
				if err := tx.CreateAssignments([]*review.ReviewAssignment{
					review.NewAssignment(workflow.ID, "rev-1", "author-1"),
				}); err != nil {
					return err
				}
				return internal.ErrInvalidWorkflowStatus
			})
			Expect(err).To(HaveOccurred())

			found, gerr := repo.GetAssignment(workflow.ID, "rev-1")
			Expect(gerr).NotTo(HaveOccurred())
			Expect(found).To(BeNil())
		})
	})
})
