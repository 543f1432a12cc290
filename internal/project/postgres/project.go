package postgres

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/permission"
	"github.com/frahmantamala/azure-docgen/internal/project"
)

// ProjectRepository implements the project.Repository interface using GORM.
type ProjectRepository struct {
	db *gorm.DB
}

func NewProjectRepository(db *gorm.DB) project.Repository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) Transaction(fn func(project.Repository) error) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return fn(&ProjectRepository{db: tx})
	})
}

func (r *ProjectRepository) CreateProject(proj *project.Project) error {
	return r.db.Create(proj).Error
}

func (r *ProjectRepository) GetProjectByID(id uuid.UUID) (*project.Project, error) {
	var proj project.Project
	err := r.db.Where("id = ?", id).First(&proj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &proj, nil
}

// GetProjectDetail loads the project with its environments in display order.
func (r *ProjectRepository) GetProjectDetail(id uuid.UUID) (*project.Project, error) {
	var proj project.Project
	err := r.db.
		Preload("Environments", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Where("id = ?", id).
		First(&proj).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &proj, nil
}

func (r *ProjectRepository) UpdateProject(proj *project.Project) error {
	return r.db.Save(proj).Error
}

func (r *ProjectRepository) ListProjectsByIDs(ids []uuid.UUID) ([]*project.Project, error) {
	var projects []*project.Project
	err := r.db.Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&projects).Error
	return projects, err
}

func (r *ProjectRepository) CreateEnvironments(environments []*project.Environment) error {
	if len(environments) == 0 {
		return nil
	}
	return translateEnvironmentError(r.db.Create(environments).Error)
}

func (r *ProjectRepository) GetEnvironmentByID(id uuid.UUID) (*project.Environment, error) {
	var env project.Environment
	err := r.db.Where("id = ?", id).First(&env).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &env, nil
}

func (r *ProjectRepository) GetEnvironmentByName(projectID uuid.UUID, name string) (*project.Environment, error) {
	var env project.Environment
	err := r.db.Where("project_id = ? AND name = ?", projectID, name).
		First(&env).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &env, nil
}

func (r *ProjectRepository) UpdateEnvironment(env *project.Environment) error {
	return translateEnvironmentError(r.db.Save(env).Error)
}

func (r *ProjectRepository) DeleteEnvironment(id uuid.UUID) error {
	return r.db.Where("id = ?", id).Delete(&project.Environment{}).Error
}

func (r *ProjectRepository) ListEnvironments(projectID uuid.UUID) ([]*project.Environment, error) {
	var environments []*project.Environment
	err := r.db.Where("project_id = ?", projectID).
		Order("display_order ASC").
		Find(&environments).Error
	return environments, err
}

func (r *ProjectRepository) NextDisplayOrder(projectID uuid.UUID) (int, error) {
	var max *int
	err := r.db.Model(&project.Environment{}).
		Where("project_id = ?", projectID).
		Select("MAX(display_order)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 1, nil
	}
	return *max + 1, nil
}

// InsertOwnerGrant writes the creator's owner role inside the project
// creation transaction.
func (r *ProjectRepository) InsertOwnerGrant(grant *permission.ProjectUserRole) error {
	return r.db.Create(grant).Error
}

// translateEnvironmentError maps the per-project unique name index onto the
// conflict error type.
func translateEnvironmentError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.NewConflictError("environment name already exists in this project", internal.ErrCodeDuplicateEnvironment).WithCause(err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed") {
		return internal.NewConflictError("environment name already exists in this project", internal.ErrCodeDuplicateEnvironment).WithCause(err)
	}
	return err
}
