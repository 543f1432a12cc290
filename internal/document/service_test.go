package document_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/document"
)

func TestDocumentService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Document Service Suite")
}

// Mock repository for testing
type mockDocumentRepository struct {
	documents map[uuid.UUID]*document.DesignDocument
	versions  []*document.DocumentVersion

	createError error
}

func newMockDocumentRepository() *mockDocumentRepository {
	return &mockDocumentRepository{
		documents: make(map[uuid.UUID]*document.DesignDocument),
		versions:  make([]*document.DocumentVersion, 0),
	}
}

func (m *mockDocumentRepository) Transaction(fn func(document.Repository) error) error {
	return fn(m)
}

func (m *mockDocumentRepository) CreateDocument(doc *document.DesignDocument) error {
	if m.createError != nil {
		return m.createError
	}
	m.documents[doc.ID] = doc
	return nil
}

func (m *mockDocumentRepository) GetDocumentByID(id uuid.UUID) (*document.DesignDocument, error) {
	return m.documents[id], nil
}

func (m *mockDocumentRepository) GetDocumentDetail(id uuid.UUID) (*document.DesignDocument, error) {
	doc := m.documents[id]
	if doc == nil {
		return nil, nil
	}
	detail := *doc
	detail.Versions = nil
	for _, v := range m.versions {
		if v.DocumentID == id {
			detail.Versions = append(detail.Versions, v)
		}
	}
	return &detail, nil
}

func (m *mockDocumentRepository) UpdateDocument(doc *document.DesignDocument) error {
	m.documents[doc.ID] = doc
	return nil
}

func (m *mockDocumentRepository) ListProjectDocuments(projectID uuid.UUID, status *document.DocumentStatus) ([]*document.DesignDocument, error) {
	result := make([]*document.DesignDocument, 0)
	for _, doc := range m.documents {
		if doc.ProjectID != projectID {
			continue
		}
		if status != nil && doc.Status != *status {
			continue
		}
		result = append(result, doc)
	}
	return result, nil
}

func (m *mockDocumentRepository) CreateVersion(version *document.DocumentVersion) error {
	if m.createError != nil {
		return m.createError
	}
	m.versions = append(m.versions, version)
	return nil
}

func (m *mockDocumentRepository) MaxVersion(documentID uuid.UUID) (int, error) {
	max := 0
	for _, v := range m.versions {
		if v.DocumentID == documentID && v.Version > max {
			max = v.Version
		}
	}
	return max, nil
}

func (m *mockDocumentRepository) GetVersion(documentID uuid.UUID, version int) (*document.DocumentVersion, error) {
	for _, v := range m.versions {
		if v.DocumentID == documentID && v.Version == version {
			return v, nil
		}
	}
	return nil, nil
}

func (m *mockDocumentRepository) LatestVersion(documentID uuid.UUID) (*document.DocumentVersion, error) {
	max, _ := m.MaxVersion(documentID)
	if max == 0 {
		return nil, nil
	}
	return m.GetVersion(documentID, max)
}

func (m *mockDocumentRepository) ListVersions(documentID uuid.UUID) ([]*document.DocumentVersion, error) {
	result := make([]*document.DocumentVersion, 0)
	for _, v := range m.versions {
		if v.DocumentID == documentID {
			result = append(result, v)
		}
	}
	return result, nil
}

var _ = Describe("DocumentService", func() {
	var (
		repo      *mockDocumentRepository
		service   *document.Service
		projectID uuid.UUID
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	BeforeEach(func() {
		repo = newMockDocumentRepository()
		service = document.NewService(repo, testLogger)
		projectID = uuid.New()
	})

	Describe("CreateDocument", func() {
		It("should create the head in draft with version 1", func() {
			doc, err := service.CreateDocument(document.CreateDocumentDTO{
				ProjectID: projectID,
				Title:     "VNet topology",
				Content:   "# Network design",
			}, "author-1")

			Expect(err).ToNot(HaveOccurred())
			Expect(doc.Status).To(Equal(document.StatusDraft))

			version, err := service.GetLatestVersion(doc.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(version.Version).To(Equal(1))
			Expect(version.Content).To(Equal("# Network design"))
			Expect(version.Comment).To(Equal("Initial version"))
		})

		It("should reject missing content", func() {
			_, err := service.CreateDocument(document.CreateDocumentDTO{
				ProjectID: projectID,
				Title:     "VNet topology",
			}, "author-1")

			Expect(err).To(HaveOccurred())
		})
	})

	Describe("AddVersion", func() {
		It("should assign dense version numbers", func() {
			doc, err := service.CreateDocument(document.CreateDocumentDTO{
				ProjectID: projectID,
				Title:     "VNet topology",
				Content:   "v1",
			}, "author-1")
			Expect(err).ToNot(HaveOccurred())

			v2, err := service.AddVersion(doc.ID, document.AddVersionDTO{Content: "v2"}, "author-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(v2.Version).To(Equal(2))

			v3, err := service.AddVersion(doc.ID, document.AddVersionDTO{Content: "v3", Comment: "added subnets"}, "author-2")
			Expect(err).ToNot(HaveOccurred())
			Expect(v3.Version).To(Equal(3))
			Expect(v3.CreatedBy).To(Equal("author-2"))
		})

		It("should fail for a missing document", func() {
			_, err := service.AddVersion(uuid.New(), document.AddVersionDTO{Content: "v2"}, "author-1")
			Expect(err).To(Equal(internal.ErrDocumentNotFound))
		})
	})

	Describe("GetVersion", func() {
		It("should return the requested snapshot", func() {
			doc, err := service.CreateDocument(document.CreateDocumentDTO{
				ProjectID: projectID,
				Title:     "VNet topology",
				Content:   "v1",
			}, "author-1")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.AddVersion(doc.ID, document.AddVersionDTO{Content: "v2"}, "author-1")
			Expect(err).ToNot(HaveOccurred())

			first, err := service.GetVersion(doc.ID, 1)
			Expect(err).ToNot(HaveOccurred())
			Expect(first.Content).To(Equal("v1"))
		})

		It("should fail for an unknown version number", func() {
			doc, err := service.CreateDocument(document.CreateDocumentDTO{
				ProjectID: projectID,
				Title:     "VNet topology",
				Content:   "v1",
			}, "author-1")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.GetVersion(doc.ID, 9)
			Expect(err).To(Equal(internal.ErrDocumentNotFound))
		})
	})

	Describe("review outcome stamps", func() {
		It("should stamp approval metadata on MarkApproved", func() {
			doc, err := service.CreateDocument(document.CreateDocumentDTO{
				ProjectID: projectID,
				Title:     "VNet topology",
				Content:   "v1",
			}, "author-1")
			Expect(err).ToNot(HaveOccurred())

			Expect(service.MarkInReview(doc.ID)).To(Succeed())
			Expect(service.MarkApproved(doc.ID, "rev-1")).To(Succeed())

			updated, err := service.GetDocument(doc.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(document.StatusApproved))
			Expect(updated.ApprovedAt).ToNot(BeNil())
			Expect(*updated.ApprovedBy).To(Equal("rev-1"))
		})

		It("should leave approval fields empty on MarkRejected", func() {
			doc, err := service.CreateDocument(document.CreateDocumentDTO{
				ProjectID: projectID,
				Title:     "VNet topology",
				Content:   "v1",
			}, "author-1")
			Expect(err).ToNot(HaveOccurred())

			Expect(service.MarkRejected(doc.ID)).To(Succeed())

			updated, err := service.GetDocument(doc.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Status).To(Equal(document.StatusRejected))
			Expect(updated.ApprovedAt).To(BeNil())
		})
	})
})
