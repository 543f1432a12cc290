package permission

import (
	"time"

	"github.com/google/uuid"
)

// SystemRole is a system-scope grant row. Grants are append-only: revocation
// and replacement flip IsActive, rows are never deleted.
type SystemRole struct {
	ID        uuid.UUID      `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string         `json:"user_id" gorm:"column:user_id;not null"`
	RoleType  SystemRoleType `json:"role_type" gorm:"column:role_type;not null"`
	GrantedAt time.Time      `json:"granted_at" gorm:"column:granted_at"`
	GrantedBy string         `json:"granted_by" gorm:"column:granted_by"`
	IsActive  bool           `json:"is_active" gorm:"column:is_active;default:true"`
}

func (SystemRole) TableName() string {
	return "system_roles"
}

type ProjectUserRole struct {
	ID        uuid.UUID       `json:"id" gorm:"primaryKey;type:uuid"`
	UserID    string          `json:"user_id" gorm:"column:user_id;not null"`
	ProjectID uuid.UUID       `json:"project_id" gorm:"column:project_id;type:uuid;not null"`
	RoleType  ProjectRoleType `json:"role_type" gorm:"column:role_type;not null"`
	GrantedAt time.Time       `json:"granted_at" gorm:"column:granted_at"`
	GrantedBy string          `json:"granted_by" gorm:"column:granted_by"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty" gorm:"column:expires_at"`
	IsActive  bool            `json:"is_active" gorm:"column:is_active;default:true"`
}

func (ProjectUserRole) TableName() string {
	return "project_user_roles"
}

// Effective reports whether the grant currently authorizes anything: active
// and either permanent or not yet expired. A grant past its expiry is treated
// as inactive even while its is_active flag is still true.
func (r *ProjectUserRole) Effective(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

type EnvironmentUserRole struct {
	ID            uuid.UUID           `json:"id" gorm:"primaryKey;type:uuid"`
	UserID        string              `json:"user_id" gorm:"column:user_id;not null"`
	EnvironmentID uuid.UUID           `json:"environment_id" gorm:"column:environment_id;type:uuid;not null"`
	RoleType      EnvironmentRoleType `json:"role_type" gorm:"column:role_type;not null"`
	GrantedAt     time.Time           `json:"granted_at" gorm:"column:granted_at"`
	GrantedBy     string              `json:"granted_by" gorm:"column:granted_by"`
	ExpiresAt     *time.Time          `json:"expires_at,omitempty" gorm:"column:expires_at"`
	IsActive      bool                `json:"is_active" gorm:"column:is_active;default:true"`
}

func (EnvironmentUserRole) TableName() string {
	return "environment_user_roles"
}

func (r *EnvironmentUserRole) Effective(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	return r.ExpiresAt == nil || r.ExpiresAt.After(now)
}

func NewSystemRole(userID string, roleType SystemRoleType, grantedBy string) *SystemRole {
	return &SystemRole{
		ID:        uuid.New(),
		UserID:    userID,
		RoleType:  roleType,
		GrantedAt: time.Now(),
		GrantedBy: grantedBy,
		IsActive:  true,
	}
}

func NewProjectUserRole(userID string, projectID uuid.UUID, roleType ProjectRoleType, grantedBy string, expiresAt *time.Time) *ProjectUserRole {
	return &ProjectUserRole{
		ID:        uuid.New(),
		UserID:    userID,
		ProjectID: projectID,
		RoleType:  roleType,
		GrantedAt: time.Now(),
		GrantedBy: grantedBy,
		ExpiresAt: expiresAt,
		IsActive:  true,
	}
}

func NewEnvironmentUserRole(userID string, environmentID uuid.UUID, roleType EnvironmentRoleType, grantedBy string, expiresAt *time.Time) *EnvironmentUserRole {
	return &EnvironmentUserRole{
		ID:            uuid.New(),
		UserID:        userID,
		EnvironmentID: environmentID,
		RoleType:      roleType,
		GrantedAt:     time.Now(),
		GrantedBy:     grantedBy,
		ExpiresAt:     expiresAt,
		IsActive:      true,
	}
}
