package project

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	StatusActive   ProjectStatus = "active"
	StatusArchived ProjectStatus = "archived"
)

type Project struct {
	ID          uuid.UUID     `json:"id" gorm:"primaryKey;type:uuid"`
	Name        string        `json:"name" gorm:"not null"`
	Description string        `json:"description"`
	Status      ProjectStatus `json:"status" gorm:"column:status;default:active"`
	CreatedBy   string        `json:"created_by" gorm:"column:created_by;not null"`
	CreatedAt   time.Time     `json:"created_at" gorm:"column:created_at"`
	UpdatedAt   time.Time     `json:"updated_at" gorm:"column:updated_at"`

	Environments []*Environment `json:"environments,omitempty" gorm:"foreignKey:ProjectID"`
}

func (Project) TableName() string {
	return "projects"
}

func (p *Project) Archived() bool {
	return p.Status == StatusArchived
}

// Environment is a deployment stage inside a project. Names are unique per
// project; DisplayOrder drives listing.
type Environment struct {
	ID           uuid.UUID `json:"id" gorm:"primaryKey;type:uuid"`
	ProjectID    uuid.UUID `json:"project_id" gorm:"column:project_id;type:uuid;not null"`
	Name         string    `json:"name" gorm:"not null"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order" gorm:"column:display_order"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Environment) TableName() string {
	return "environments"
}

func NewProject(name, description, createdBy string) *Project {
	now := time.Now()
	return &Project{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		Status:      StatusActive,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func NewEnvironment(projectID uuid.UUID, name, description string, displayOrder int) *Environment {
	now := time.Now()
	return &Environment{
		ID:           uuid.New(),
		ProjectID:    projectID,
		Name:         name,
		Description:  description,
		DisplayOrder: displayOrder,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// defaultEnvironments are seeded for every new project, in this order.
func defaultEnvironments(projectID uuid.UUID) []*Environment {
	return []*Environment{
		NewEnvironment(projectID, "development", "Development environment", 1),
		NewEnvironment(projectID, "staging", "Staging environment", 2),
		NewEnvironment(projectID, "production", "Production environment", 3),
	}
}
