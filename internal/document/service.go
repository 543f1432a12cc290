package document

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/azure-docgen/internal"
)

// Repository defines data access for design documents and their versions.
// AddVersion runs inside Transaction so the max+1 version assignment and the
// insert cannot race into duplicate numbers.
type Repository interface {
	Transaction(fn func(Repository) error) error

	CreateDocument(doc *DesignDocument) error
	GetDocumentByID(id uuid.UUID) (*DesignDocument, error)
	GetDocumentDetail(id uuid.UUID) (*DesignDocument, error)
	UpdateDocument(doc *DesignDocument) error
	ListProjectDocuments(projectID uuid.UUID, status *DocumentStatus) ([]*DesignDocument, error)

	CreateVersion(version *DocumentVersion) error
	MaxVersion(documentID uuid.UUID) (int, error)
	GetVersion(documentID uuid.UUID, version int) (*DocumentVersion, error)
	LatestVersion(documentID uuid.UUID) (*DocumentVersion, error)
	ListVersions(documentID uuid.UUID) ([]*DocumentVersion, error)
}

type Service struct {
	repo   Repository
	logger *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// CreateDocument creates the document head and its first version together.
func (s *Service) CreateDocument(dto CreateDocumentDTO, createdBy string) (*DesignDocument, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	doc := NewDocument(dto.ProjectID, dto.Title, createdBy)

	err := s.repo.Transaction(func(tx Repository) error {
		if err := tx.CreateDocument(doc); err != nil {
			return err
		}
		return tx.CreateVersion(NewVersion(doc.ID, 1, dto.Content, "Initial version", createdBy))
	})
	if err != nil {
		s.logger.Error("failed to create document", "error", err, "project_id", dto.ProjectID, "created_by", createdBy)
		return nil, err
	}

	s.logger.Info("design document created", "document_id", doc.ID, "project_id", doc.ProjectID, "created_by", createdBy)
	return doc, nil
}

func (s *Service) GetDocument(documentID uuid.UUID) (*DesignDocument, error) {
	doc, err := s.repo.GetDocumentDetail(documentID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, internal.ErrDocumentNotFound
	}
	return doc, nil
}

func (s *Service) ListProjectDocuments(projectID uuid.UUID, status *DocumentStatus) ([]*DesignDocument, error) {
	if status != nil && !status.Valid() {
		return nil, internal.NewValidationError("unknown document status filter", internal.ErrCodeValidationFailed)
	}
	return s.repo.ListProjectDocuments(projectID, status)
}

// AddVersion appends a new immutable content snapshot. The version number is
// assigned inside the transaction as max+1.
func (s *Service) AddVersion(documentID uuid.UUID, dto AddVersionDTO, createdBy string) (*DocumentVersion, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	var created *DocumentVersion

	err := s.repo.Transaction(func(tx Repository) error {
		doc, err := tx.GetDocumentByID(documentID)
		if err != nil {
			return err
		}
		if doc == nil {
			return internal.ErrDocumentNotFound
		}

		max, err := tx.MaxVersion(documentID)
		if err != nil {
			return err
		}

		version := NewVersion(documentID, max+1, dto.Content, dto.Comment, createdBy)
		if err := tx.CreateVersion(version); err != nil {
			return err
		}

		doc.UpdatedAt = time.Now()
		if err := tx.UpdateDocument(doc); err != nil {
			return err
		}

		created = version
		return nil
	})
	if err != nil {
		s.logger.Error("failed to add document version", "error", err, "document_id", documentID)
		return nil, err
	}

	s.logger.Info("document version added", "document_id", documentID, "version", created.Version, "created_by", createdBy)
	return created, nil
}

func (s *Service) GetVersion(documentID uuid.UUID, version int) (*DocumentVersion, error) {
	v, err := s.repo.GetVersion(documentID, version)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, internal.ErrDocumentNotFound
	}
	return v, nil
}

func (s *Service) GetLatestVersion(documentID uuid.UUID) (*DocumentVersion, error) {
	v, err := s.repo.LatestVersion(documentID)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, internal.ErrDocumentNotFound
	}
	return v, nil
}

func (s *Service) ListVersions(documentID uuid.UUID) ([]*DocumentVersion, error) {
	return s.repo.ListVersions(documentID)
}

// MarkApproved stamps the document after its review workflow resolves in
// favor. Called by the review completion path, not exposed over HTTP.
func (s *Service) MarkApproved(documentID uuid.UUID, approvedBy string) error {
	doc, err := s.repo.GetDocumentByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return internal.ErrDocumentNotFound
	}

	now := time.Now()
	doc.Status = StatusApproved
	doc.ApprovedAt = &now
	doc.ApprovedBy = &approvedBy
	doc.UpdatedAt = now
	return s.repo.UpdateDocument(doc)
}

// MarkInReview moves the document into review when a workflow is opened on
// it.
func (s *Service) MarkInReview(documentID uuid.UUID) error {
	doc, err := s.repo.GetDocumentByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return internal.ErrDocumentNotFound
	}

	doc.Status = StatusInReview
	doc.UpdatedAt = time.Now()
	return s.repo.UpdateDocument(doc)
}

// MarkRejected records a rejected review outcome on the document head.
func (s *Service) MarkRejected(documentID uuid.UUID) error {
	doc, err := s.repo.GetDocumentByID(documentID)
	if err != nil {
		return err
	}
	if doc == nil {
		return internal.ErrDocumentNotFound
	}

	doc.Status = StatusRejected
	doc.UpdatedAt = time.Now()
	return s.repo.UpdateDocument(doc)
}
