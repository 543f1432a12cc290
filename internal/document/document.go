package document

import (
	"time"

	"github.com/google/uuid"
)

type DocumentStatus string

const (
	StatusDraft    DocumentStatus = "draft"
	StatusInReview DocumentStatus = "in_review"
	StatusApproved DocumentStatus = "approved"
	StatusRejected DocumentStatus = "rejected"
)

func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusInReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// DesignDocument is the document head row. Content lives in versions; the
// head tracks status and approval stamps.
type DesignDocument struct {
	ID         uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID  uuid.UUID      `json:"project_id" gorm:"column:project_id;type:uuid;not null"`
	Title      string         `json:"title" gorm:"not null"`
	Status     DocumentStatus `json:"status" gorm:"column:status;default:draft"`
	CreatedBy  string         `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt  time.Time      `json:"created_at" gorm:"column:created_at"`
	UpdatedAt  time.Time      `json:"updated_at" gorm:"column:updated_at"`
	ApprovedAt *time.Time     `json:"approved_at,omitempty" gorm:"column:approved_at"`
	ApprovedBy *string        `json:"approved_by,omitempty" gorm:"column:approved_by"`

	Versions []*DocumentVersion `json:"versions,omitempty" gorm:"foreignKey:DocumentID"`
}

func (DesignDocument) TableName() string {
	return "design_documents"
}

// DocumentVersion is an immutable snapshot of document content. Version
// numbers are dense per document, assigned as max+1 at insert time.
type DocumentVersion struct {
	ID         uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	DocumentID uuid.UUID `json:"document_id" gorm:"column:document_id;type:uuid;not null"`
	Version    int       `json:"version" gorm:"column:version;not null"`
	Content    string    `json:"content" gorm:"not null"`
	Comment    string    `json:"comment"`
	CreatedBy  string    `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt  time.Time `json:"created_at" gorm:"column:created_at"`
}

func (DocumentVersion) TableName() string {
	return "document_versions"
}

func NewDocument(projectID uuid.UUID, title, createdBy string) *DesignDocument {
	now := time.Now()
	return &DesignDocument{
		ID:        uuid.New(),
		ProjectID: projectID,
		Title:     title,
		Status:    StatusDraft,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func NewVersion(documentID uuid.UUID, version int, content, comment, createdBy string) *DocumentVersion {
	return &DocumentVersion{
		ID:         uuid.New(),
		DocumentID: documentID,
		Version:    version,
		Content:    content,
		Comment:    comment,
		CreatedBy:  createdBy,
		CreatedAt:  time.Now(),
	}
}
