package permission

import (
	"errors"
	"time"
)

// GrantSystemRoleDTO is the request payload for granting a system role.
type GrantSystemRoleDTO struct {
	UserID   string         `json:"user_id" validate:"required"`
	RoleType SystemRoleType `json:"role_type" validate:"required"`
}

func (dto GrantSystemRoleDTO) Validate() error {
	if dto.UserID == "" {
		return errors.New("user_id is required")
	}
	if !dto.RoleType.Valid() {
		return errors.New("role_type must be system_administrator or global_viewer")
	}
	return nil
}

type GrantProjectRoleDTO struct {
	UserID    string          `json:"user_id" validate:"required"`
	RoleType  ProjectRoleType `json:"role_type" validate:"required"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
}

func (dto GrantProjectRoleDTO) Validate() error {
	if dto.UserID == "" {
		return errors.New("user_id is required")
	}
	if !dto.RoleType.Valid() {
		return errors.New("role_type is not a valid project role")
	}
	if dto.ExpiresAt != nil && !dto.ExpiresAt.After(time.Now()) {
		return errors.New("expires_at must be in the future")
	}
	return nil
}

type GrantEnvironmentRoleDTO struct {
	UserID    string              `json:"user_id" validate:"required"`
	RoleType  EnvironmentRoleType `json:"role_type" validate:"required"`
	ExpiresAt *time.Time          `json:"expires_at,omitempty"`
}

func (dto GrantEnvironmentRoleDTO) Validate() error {
	if dto.UserID == "" {
		return errors.New("user_id is required")
	}
	if !dto.RoleType.Valid() {
		return errors.New("role_type is not a valid environment role")
	}
	if dto.ExpiresAt != nil && !dto.ExpiresAt.After(time.Now()) {
		return errors.New("expires_at must be in the future")
	}
	return nil
}

type RevokeRoleDTO struct {
	UserID string `json:"user_id" validate:"required"`
}

func (dto RevokeRoleDTO) Validate() error {
	if dto.UserID == "" {
		return errors.New("user_id is required")
	}
	return nil
}

// ProjectRoleResponse is returned by role lookups; Role is null when the user
// holds no active grant at that scope.
type ProjectRoleResponse struct {
	UserID string           `json:"user_id"`
	Role   *ProjectRoleType `json:"role"`
}

type AccessCheckResponse struct {
	Allowed bool `json:"allowed"`
}
