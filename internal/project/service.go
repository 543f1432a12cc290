package project

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/permission"
)

// Repository defines data access for projects and environments. Transaction
// binds fn to one database transaction; project creation uses it so the
// project row, the creator's owner grant and the default environments commit
// or roll back together.
type Repository interface {
	Transaction(fn func(Repository) error) error

	CreateProject(project *Project) error
	GetProjectByID(id uuid.UUID) (*Project, error)
	GetProjectDetail(id uuid.UUID) (*Project, error)
	UpdateProject(project *Project) error
	ListProjectsByIDs(ids []uuid.UUID) ([]*Project, error)

	CreateEnvironments(environments []*Environment) error
	GetEnvironmentByID(id uuid.UUID) (*Environment, error)
	GetEnvironmentByName(projectID uuid.UUID, name string) (*Environment, error)
	UpdateEnvironment(environment *Environment) error
	DeleteEnvironment(id uuid.UUID) error
	ListEnvironments(projectID uuid.UUID) ([]*Environment, error)
	NextDisplayOrder(projectID uuid.UUID) (int, error)

	InsertOwnerGrant(grant *permission.ProjectUserRole) error
}

// PermissionAPI is the slice of the permission engine the project service
// consults for read access and accessible-project scoping.
type PermissionAPI interface {
	CanAccessProject(userID string, projectID uuid.UUID) (bool, error)
	GetAccessibleProjectIDs(userID string) ([]uuid.UUID, error)
	HasProjectRoleOrHigher(userID string, projectID uuid.UUID, minimumRole permission.ProjectRoleType) (bool, error)
}

type Service struct {
	repo        Repository
	permissions PermissionAPI
	logger      *slog.Logger
}

func NewService(repo Repository, permissions PermissionAPI, logger *slog.Logger) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
		logger:      logger,
	}
}

// CreateProject creates the project, grants the creator ProjectOwner and
// seeds the development, staging and production environments in a single
// transaction.
func (s *Service) CreateProject(dto CreateProjectDTO, createdBy string) (*Project, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	proj := NewProject(dto.Name, dto.Description, createdBy)

	err := s.repo.Transaction(func(tx Repository) error {
		if err := tx.CreateProject(proj); err != nil {
			return err
		}
		grant := permission.NewProjectUserRole(createdBy, proj.ID, permission.ProjectOwner, createdBy, nil)
		if err := tx.InsertOwnerGrant(grant); err != nil {
			return err
		}
		return tx.CreateEnvironments(defaultEnvironments(proj.ID))
	})
	if err != nil {
		s.logger.Error("failed to create project", "error", err, "name", dto.Name, "created_by", createdBy)
		return nil, err
	}

	s.logger.Info("project created", "project_id", proj.ID, "name", proj.Name, "created_by", createdBy)
	return proj, nil
}

// GetProject returns the project with its environments. Callers are expected
// to have passed an access check already; the handler enforces it.
func (s *Service) GetProject(projectID uuid.UUID) (*Project, error) {
	proj, err := s.repo.GetProjectDetail(projectID)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		return nil, internal.ErrProjectNotFound
	}
	return proj, nil
}

// ListUserProjects returns the projects the user can access, resolved through
// the permission engine. Global readers see everything.
func (s *Service) ListUserProjects(userID string) ([]*Project, error) {
	ids, err := s.permissions.GetAccessibleProjectIDs(userID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return []*Project{}, nil
	}
	return s.repo.ListProjectsByIDs(ids)
}

func (s *Service) UpdateProject(projectID uuid.UUID, dto UpdateProjectDTO) (*Project, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	proj, err := s.repo.GetProjectByID(projectID)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		return nil, internal.ErrProjectNotFound
	}

	if dto.Name != nil {
		proj.Name = *dto.Name
	}
	if dto.Description != nil {
		proj.Description = *dto.Description
	}
	proj.UpdatedAt = time.Now()

	if err := s.repo.UpdateProject(proj); err != nil {
		s.logger.Error("failed to update project", "error", err, "project_id", projectID)
		return nil, err
	}
	return proj, nil
}

// ArchiveProject is idempotent: archiving an archived project is a no-op.
func (s *Service) ArchiveProject(projectID uuid.UUID) error {
	proj, err := s.repo.GetProjectByID(projectID)
	if err != nil {
		return err
	}
	if proj == nil {
		return internal.ErrProjectNotFound
	}
	if proj.Archived() {
		return nil
	}

	proj.Status = StatusArchived
	proj.UpdatedAt = time.Now()
	if err := s.repo.UpdateProject(proj); err != nil {
		return err
	}

	s.logger.Info("project archived", "project_id", projectID)
	return nil
}

// CreateEnvironment adds an environment to the project. Names are unique per
// project; the new environment goes to the end of the display order.
func (s *Service) CreateEnvironment(projectID uuid.UUID, dto CreateEnvironmentDTO) (*Environment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	proj, err := s.repo.GetProjectByID(projectID)
	if err != nil {
		return nil, err
	}
	if proj == nil {
		return nil, internal.ErrProjectNotFound
	}

	existing, err := s.repo.GetEnvironmentByName(projectID, dto.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, internal.NewConflictError("environment name already exists in this project", internal.ErrCodeDuplicateEnvironment)
	}

	order, err := s.repo.NextDisplayOrder(projectID)
	if err != nil {
		return nil, err
	}

	env := NewEnvironment(projectID, dto.Name, dto.Description, order)
	if err := s.repo.CreateEnvironments([]*Environment{env}); err != nil {
		s.logger.Error("failed to create environment", "error", err, "project_id", projectID, "name", dto.Name)
		return nil, err
	}

	s.logger.Info("environment created", "environment_id", env.ID, "project_id", projectID, "name", env.Name)
	return env, nil
}

func (s *Service) GetEnvironment(environmentID uuid.UUID) (*Environment, error) {
	env, err := s.repo.GetEnvironmentByID(environmentID)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, internal.ErrEnvironmentNotFound
	}
	return env, nil
}

func (s *Service) ListEnvironments(projectID uuid.UUID) ([]*Environment, error) {
	return s.repo.ListEnvironments(projectID)
}

func (s *Service) UpdateEnvironment(environmentID uuid.UUID, dto UpdateEnvironmentDTO) (*Environment, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	env, err := s.repo.GetEnvironmentByID(environmentID)
	if err != nil {
		return nil, err
	}
	if env == nil {
		return nil, internal.ErrEnvironmentNotFound
	}

	if dto.Name != nil && *dto.Name != env.Name {
		existing, err := s.repo.GetEnvironmentByName(env.ProjectID, *dto.Name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, internal.NewConflictError("environment name already exists in this project", internal.ErrCodeDuplicateEnvironment)
		}
		env.Name = *dto.Name
	}
	if dto.Description != nil {
		env.Description = *dto.Description
	}
	if dto.DisplayOrder != nil {
		env.DisplayOrder = *dto.DisplayOrder
	}
	env.UpdatedAt = time.Now()

	if err := s.repo.UpdateEnvironment(env); err != nil {
		return nil, err
	}
	return env, nil
}

func (s *Service) DeleteEnvironment(environmentID uuid.UUID) error {
	env, err := s.repo.GetEnvironmentByID(environmentID)
	if err != nil {
		return err
	}
	if env == nil {
		return internal.ErrEnvironmentNotFound
	}
	return s.repo.DeleteEnvironment(environmentID)
}
