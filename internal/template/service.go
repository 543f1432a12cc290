package template

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/azure-docgen/internal"
)

// Repository defines data access for templates and their parameters.
// ListVisibleTemplates implements the visibility union: templates the user
// created, global templates, and project-shared templates whose project id is
// in accessibleProjectIDs.
type Repository interface {
	Transaction(fn func(Repository) error) error

	CreateTemplate(tmpl *Template) error
	GetTemplateByID(id uuid.UUID) (*Template, error)
	GetTemplateDetail(id uuid.UUID) (*Template, error)
	UpdateTemplate(tmpl *Template) error
	DeleteTemplate(id uuid.UUID) error
	ListVisibleTemplates(userID string, accessibleProjectIDs []uuid.UUID, projectID *uuid.UUID) ([]*Template, error)

	ReplaceParameters(templateID uuid.UUID, parameters []*TemplateParameter) error
	CreateParameters(parameters []*TemplateParameter) error
}

// PermissionAPI resolves which projects the user can see, for project-shared
// template visibility.
type PermissionAPI interface {
	GetAccessibleProjectIDs(userID string) ([]uuid.UUID, error)
	CanAccessProject(userID string, projectID uuid.UUID) (bool, error)
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

// CreateTemplate creates the template with its parameters in one transaction.
// Project-shared templates require the creator to have access to the project
// they are shared with.
func (s *Service) CreateTemplate(dto CreateTemplateDTO, createdBy string) (*Template, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	if dto.SharingLevel == SharingProject {
		canAccess, err := s.permissions.CanAccessProject(createdBy, *dto.ProjectID)
		if err != nil {
			return nil, err
		}
		if !canAccess {
			return nil, internal.ErrUnauthorizedAccess
		}
	}

	var projectID *uuid.UUID
	if dto.SharingLevel == SharingProject {
		projectID = dto.ProjectID
	}

	tmpl := NewTemplate(dto.Name, dto.Description, dto.Structure, dto.SharingLevel, projectID, createdBy)

	err := s.repo.Transaction(func(tx Repository) error {
		if err := tx.CreateTemplate(tmpl); err != nil {
			return err
		}
		parameters := buildParameters(tmpl.ID, dto.Parameters)
		tmpl.Parameters = parameters
		return tx.CreateParameters(parameters)
	})
	if err != nil {
		s.logger.Error("failed to create template", "error", err, "name", dto.Name, "created_by", createdBy)
		return nil, err
	}

	s.logger.Info("template created", "template_id", tmpl.ID, "name", tmpl.Name, "sharing_level", tmpl.SharingLevel)
	return tmpl, nil
}

// GetTemplate returns the template with its parameters if the user may see
// it under the sharing rules.
func (s *Service) GetTemplate(templateID uuid.UUID, userID string) (*Template, error) {
	tmpl, err := s.repo.GetTemplateDetail(templateID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, internal.ErrTemplateNotFound
	}

	visible, err := s.canSee(tmpl, userID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, internal.ErrTemplateNotFound
	}
	return tmpl, nil
}

// ListUserTemplates returns the templates visible to the user: their own,
// global ones, and project-shared ones on accessible projects. An optional
// projectID narrows project-shared results to that project.
func (s *Service) ListUserTemplates(userID string, projectID *uuid.UUID) ([]*Template, error) {
	accessible, err := s.permissions.GetAccessibleProjectIDs(userID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListVisibleTemplates(userID, accessible, projectID)
}

// UpdateTemplate mutates a template the user owns and bumps its version.
func (s *Service) UpdateTemplate(templateID uuid.UUID, dto UpdateTemplateDTO, userID string) (*Template, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	tmpl, err := s.repo.GetTemplateByID(templateID)
	if err != nil {
		return nil, err
	}
	if tmpl == nil {
		return nil, internal.ErrTemplateNotFound
	}
	if tmpl.CreatedBy != userID {
		return nil, internal.ErrUnauthorizedAccess
	}

	if dto.Name != nil {
		tmpl.Name = *dto.Name
	}
	if dto.Description != nil {
		tmpl.Description = *dto.Description
	}
	if dto.Structure != nil {
		tmpl.Structure = *dto.Structure
		tmpl.Version++
	}
	if dto.SharingLevel != nil {
		if *dto.SharingLevel == SharingProject {
			if dto.ProjectID == nil {
				return nil, internal.NewValidationError("project_id is required for project sharing", internal.ErrCodeValidationFailed)
			}
			canAccess, err := s.permissions.CanAccessProject(userID, *dto.ProjectID)
			if err != nil {
				return nil, err
			}
			if !canAccess {
				return nil, internal.ErrUnauthorizedAccess
			}
			tmpl.ProjectID = dto.ProjectID
		} else {
			tmpl.ProjectID = nil
		}
		tmpl.SharingLevel = *dto.SharingLevel
	}
	tmpl.UpdatedAt = time.Now()

	err = s.repo.Transaction(func(tx Repository) error {
		if err := tx.UpdateTemplate(tmpl); err != nil {
			return err
		}
		if dto.Parameters == nil {
			return nil
		}
		parameters := buildParameters(tmpl.ID, dto.Parameters)
		tmpl.Parameters = parameters
		return tx.ReplaceParameters(tmpl.ID, parameters)
	})
	if err != nil {
		s.logger.Error("failed to update template", "error", err, "template_id", templateID)
		return nil, err
	}
	return tmpl, nil
}

// DeleteTemplate removes a template the user owns.
func (s *Service) DeleteTemplate(templateID uuid.UUID, userID string) error {
	tmpl, err := s.repo.GetTemplateByID(templateID)
	if err != nil {
		return err
	}
	if tmpl == nil {
		return internal.ErrTemplateNotFound
	}
	if tmpl.CreatedBy != userID {
		return internal.ErrUnauthorizedAccess
	}
	return s.repo.DeleteTemplate(templateID)
}

// DuplicateTemplate copies a visible template for the user. The copy is
// private and starts at version 1 regardless of the source.
func (s *Service) DuplicateTemplate(templateID uuid.UUID, newName, userID string) (*Template, error) {
	if newName == "" {
		return nil, internal.NewValidationError("name is required", internal.ErrCodeInvalidName)
	}

	source, err := s.GetTemplate(templateID, userID)
	if err != nil {
		return nil, err
	}

	copy := source.Duplicate(newName, userID)

	err = s.repo.Transaction(func(tx Repository) error {
		if err := tx.CreateTemplate(copy); err != nil {
			return err
		}
		return tx.CreateParameters(copy.Parameters)
	})
	if err != nil {
		s.logger.Error("failed to duplicate template", "error", err, "source_id", templateID)
		return nil, err
	}

	s.logger.Info("template duplicated", "source_id", templateID, "template_id", copy.ID, "created_by", userID)
	return copy, nil
}

func (s *Service) canSee(tmpl *Template, userID string) (bool, error) {
	if tmpl.CreatedBy == userID || tmpl.SharingLevel == SharingGlobal {
		return true, nil
	}
	if tmpl.SharingLevel == SharingProject && tmpl.ProjectID != nil {
		return s.permissions.CanAccessProject(userID, *tmpl.ProjectID)
	}
	return false, nil
}

func buildParameters(templateID uuid.UUID, dtos []ParameterDTO) []*TemplateParameter {
	parameters := make([]*TemplateParameter, 0, len(dtos))
	for i, p := range dtos {
		parameters = append(parameters, &TemplateParameter{
			ID:           uuid.New(),
			TemplateID:   templateID,
			Name:         p.Name,
			DataType:     p.DataType,
			DefaultValue: p.DefaultValue,
			Required:     p.Required,
			DisplayOrder: i + 1,
		})
	}
	return parameters
}
