package project

import "errors"

type CreateProjectDTO struct {
	Name        string `json:"name" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

func (dto CreateProjectDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if len(dto.Name) > 100 {
		return errors.New("name must be less than 100 characters")
	}
	if len(dto.Description) > 1000 {
		return errors.New("description must be less than 1000 characters")
	}
	return nil
}

type UpdateProjectDTO struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (dto UpdateProjectDTO) Validate() error {
	if dto.Name != nil {
		if *dto.Name == "" {
			return errors.New("name must not be empty")
		}
		if len(*dto.Name) > 100 {
			return errors.New("name must be less than 100 characters")
		}
	}
	if dto.Description != nil && len(*dto.Description) > 1000 {
		return errors.New("description must be less than 1000 characters")
	}
	return nil
}

type CreateEnvironmentDTO struct {
	Name        string `json:"name" validate:"required,min=1,max=50"`
	Description string `json:"description" validate:"max=500"`
}

func (dto CreateEnvironmentDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if len(dto.Name) > 50 {
		return errors.New("name must be less than 50 characters")
	}
	if len(dto.Description) > 500 {
		return errors.New("description must be less than 500 characters")
	}
	return nil
}

type UpdateEnvironmentDTO struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	DisplayOrder *int    `json:"display_order,omitempty"`
}

func (dto UpdateEnvironmentDTO) Validate() error {
	if dto.Name != nil {
		if *dto.Name == "" {
			return errors.New("name must not be empty")
		}
		if len(*dto.Name) > 50 {
			return errors.New("name must be less than 50 characters")
		}
	}
	if dto.Description != nil && len(*dto.Description) > 500 {
		return errors.New("description must be less than 500 characters")
	}
	if dto.DisplayOrder != nil && *dto.DisplayOrder < 0 {
		return errors.New("display_order must not be negative")
	}
	return nil
}
