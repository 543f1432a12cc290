package postgres

import (
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frahmantamala/azure-docgen/internal/document"
)

// DocumentRepository implements the document.Repository interface using GORM.
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) document.Repository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Transaction(fn func(document.Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&DocumentRepository{db: tx})
	})
}

func (r *DocumentRepository) CreateDocument(doc *document.DesignDocument) error {
	return r.db.Create(doc).Error
}

func (r *DocumentRepository) GetDocumentByID(id uuid.UUID) (*document.DesignDocument, error) {
	var doc document.DesignDocument
	err := r.db.Where("id = ?", id).First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

// GetDocumentDetail loads the document with its versions, newest first.
func (r *DocumentRepository) GetDocumentDetail(id uuid.UUID) (*document.DesignDocument, error) {
	var doc document.DesignDocument
	err := r.db.
		Preload("Versions", func(db *gorm.DB) *gorm.DB {
			return db.Order("version DESC")
		}).
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *DocumentRepository) UpdateDocument(doc *document.DesignDocument) error {
	return r.db.Save(doc).Error
}

func (r *DocumentRepository) ListProjectDocuments(projectID uuid.UUID, status *document.DocumentStatus) ([]*document.DesignDocument, error) {
	query := r.db.Where("project_id = ?", projectID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}

	var documents []*document.DesignDocument
	err := query.Order("created_at DESC").Find(&documents).Error
	return documents, err
}

func (r *DocumentRepository) CreateVersion(version *document.DocumentVersion) error {
	return r.db.Create(version).Error
}

func (r *DocumentRepository) MaxVersion(documentID uuid.UUID) (int, error) {
	var max *int
	err := r.db.Model(&document.DocumentVersion{}).
		Where("document_id = ?", documentID).
		Select("MAX(version)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *DocumentRepository) GetVersion(documentID uuid.UUID, version int) (*document.DocumentVersion, error) {
	var v document.DocumentVersion
	err := r.db.Where("document_id = ? AND version = ?", documentID, version).
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *DocumentRepository) LatestVersion(documentID uuid.UUID) (*document.DocumentVersion, error) {
	var v document.DocumentVersion
	err := r.db.Where("document_id = ?", documentID).
		Order("version DESC").
		First(&v).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func (r *DocumentRepository) ListVersions(documentID uuid.UUID) ([]*document.DocumentVersion, error) {
	var versions []*document.DocumentVersion
	err := r.db.Where("document_id = ?", documentID).
		Order("version DESC").
		Find(&versions).Error
	return versions, err
}
