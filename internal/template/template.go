package template

import (
	"time"

	"github.com/google/uuid"
)

// SharingLevel controls template visibility. Private templates are visible to
// their creator only, Project templates to members of the associated project,
// Global templates to everyone.
type SharingLevel string

const (
	SharingPrivate SharingLevel = "private"
	SharingProject SharingLevel = "project"
	SharingGlobal  SharingLevel = "global"
)

func (s SharingLevel) Valid() bool {
	switch s {
	case SharingPrivate, SharingProject, SharingGlobal:
		return true
	}
	return false
}

// Template holds a reusable document structure. ProjectID is set only for
// project-shared templates; private and global ones carry none.
type Template struct {
	ID           uuid.UUID    `json:"id" gorm:"primaryKey;type:uuid"`
	Name         string       `json:"name" gorm:"not null"`
	Description  string       `json:"description"`
	Structure    string       `json:"structure" gorm:"type:jsonb;not null"`
	Version      int          `json:"version" gorm:"column:version;default:1"`
	SharingLevel SharingLevel `json:"sharing_level" gorm:"column:sharing_level;default:private"`
	ProjectID    *uuid.UUID   `json:"project_id,omitempty" gorm:"column:project_id;type:uuid"`
	CreatedBy    string       `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt    time.Time    `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time    `json:"updated_at" gorm:"column:updated_at"`

	Parameters []*TemplateParameter `json:"parameters,omitempty" gorm:"foreignKey:TemplateID"`
}

func (Template) TableName() string {
	return "templates"
}

type TemplateParameter struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	TemplateID   uuid.UUID `json:"template_id" gorm:"column:template_id;type:uuid;not null"`
	Name         string    `json:"name" gorm:"not null"`
	DataType     string    `json:"data_type" gorm:"column:data_type;not null"`
	DefaultValue string    `json:"default_value" gorm:"column:default_value"`
	Required     bool      `json:"required" gorm:"column:required;default:false"`
	DisplayOrder int       `json:"display_order" gorm:"column:display_order"`
}

func (TemplateParameter) TableName() string {
	return "template_parameters"
}

func NewTemplate(name, description, structure string, sharingLevel SharingLevel, projectID *uuid.UUID, createdBy string) *Template {
	now := time.Now()
	return &Template{
		ID:           uuid.New(),
		Name:         name,
		Description:  description,
		Structure:    structure,
		Version:      1,
		SharingLevel: sharingLevel,
		ProjectID:    projectID,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Duplicate copies the template for a new owner. The copy is always Private,
// detached from any project, and restarts at version 1.
func (t *Template) Duplicate(name, createdBy string) *Template {
	copy := NewTemplate(name, t.Description, t.Structure, SharingPrivate, nil, createdBy)
	copy.Parameters = make([]*TemplateParameter, 0, len(t.Parameters))
	for _, p := range t.Parameters {
		copy.Parameters = append(copy.Parameters, &TemplateParameter{
			ID:           uuid.New(),
			TemplateID:   copy.ID,
			Name:         p.Name,
			DataType:     p.DataType,
			DefaultValue: p.DefaultValue,
			Required:     p.Required,
			DisplayOrder: p.DisplayOrder,
		})
	}
	return copy
}
