package template

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"
)

type ParameterDTO struct {
	Name         string `json:"name" validate:"required"`
	DataType     string `json:"data_type" validate:"required"`
	DefaultValue string `json:"default_value"`
	Required     bool   `json:"required"`
}

type CreateTemplateDTO struct {
	Name         string         `json:"name" validate:"required,min=1,max=100"`
	Description  string         `json:"description" validate:"max=1000"`
	Structure    string         `json:"structure" validate:"required"`
	SharingLevel SharingLevel   `json:"sharing_level" validate:"required,oneof=private project global"`
	ProjectID    *uuid.UUID     `json:"project_id,omitempty"`
	Parameters   []ParameterDTO `json:"parameters,omitempty"`
}

func (dto CreateTemplateDTO) Validate() error {
	if dto.Name == "" {
		return errors.New("name is required")
	}
	if len(dto.Name) > 100 {
		return errors.New("name must be less than 100 characters")
	}
	if len(dto.Description) > 1000 {
		return errors.New("description must be less than 1000 characters")
	}
	if dto.Structure == "" {
		return errors.New("structure is required")
	}
	if !json.Valid([]byte(dto.Structure)) {
		return errors.New("structure must be valid JSON")
	}
	if !dto.SharingLevel.Valid() {
		return errors.New("sharing_level must be private, project or global")
	}
	if dto.SharingLevel == SharingProject && (dto.ProjectID == nil || *dto.ProjectID == uuid.Nil) {
		return errors.New("project_id is required for project sharing")
	}
	return validateParameters(dto.Parameters)
}

type UpdateTemplateDTO struct {
	Name         *string        `json:"name,omitempty"`
	Description  *string        `json:"description,omitempty"`
	Structure    *string        `json:"structure,omitempty"`
	SharingLevel *SharingLevel  `json:"sharing_level,omitempty"`
	ProjectID    *uuid.UUID     `json:"project_id,omitempty"`
	Parameters   []ParameterDTO `json:"parameters,omitempty"`
}

func (dto UpdateTemplateDTO) Validate() error {
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
	if dto.Structure != nil {
		if *dto.Structure == "" {
			return errors.New("structure must not be empty")
		}
		if !json.Valid([]byte(*dto.Structure)) {
			return errors.New("structure must be valid JSON")
		}
	}
	if dto.SharingLevel != nil && !dto.SharingLevel.Valid() {
		return errors.New("sharing_level must be private, project or global")
	}
	return validateParameters(dto.Parameters)
}

type DuplicateTemplateDTO struct {
	Name string `json:"name" validate:"required,min=1,max=100"`
}

func validateParameters(parameters []ParameterDTO) error {
	seen := make(map[string]struct{}, len(parameters))
	for _, p := range parameters {
		if p.Name == "" {
			return errors.New("parameter name is required")
		}
		if p.DataType == "" {
			return errors.New("parameter data_type is required")
		}
		if _, dup := seen[p.Name]; dup {
			return errors.New("parameter names must be unique")
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
