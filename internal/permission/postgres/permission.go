package postgres

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/permission"
)

// PermissionRepository implements the permission.Repository interface using GORM.
type PermissionRepository struct {
	db *gorm.DB
}

func NewPermissionRepository(db *gorm.DB) permission.Repository {
	return &PermissionRepository{db: db}
}

func (r *PermissionRepository) HasActiveSystemRole(userID string, roleType permission.SystemRoleType) (bool, error) {
	var count int64
	err := r.db.Model(&permission.SystemRole{}).
		Where("user_id = ? AND role_type = ? AND is_active = ?", userID, roleType, true).
		Count(&count).Error
	return count > 0, err
}

func (r *PermissionRepository) ListActiveSystemRoles(userID string) ([]*permission.SystemRole, error) {
	var roles []*permission.SystemRole
	err := r.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("granted_at ASC").
		Find(&roles).Error
	return roles, err
}

func (r *PermissionRepository) InsertSystemRole(grant *permission.SystemRole) error {
	return translateConstraintError(r.db.Create(grant).Error)
}

func (r *PermissionRepository) DeactivateSystemRoles(userID string, roleType permission.SystemRoleType) error {
	return r.db.Model(&permission.SystemRole{}).
		Where("user_id = ? AND role_type = ? AND is_active = ?", userID, roleType, true).
		Update("is_active", false).Error
}

func (r *PermissionRepository) GetActiveProjectRole(userID string, projectID uuid.UUID, now time.Time) (*permission.ProjectUserRole, error) {
	var role permission.ProjectUserRole
	err := r.db.Where("user_id = ? AND project_id = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)",
		userID, projectID, true, now).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *PermissionRepository) HasAnyActiveProjectGrant(userID string, projectID uuid.UUID, now time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&permission.ProjectUserRole{}).
		Where("user_id = ? AND project_id = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)",
			userID, projectID, true, now).
		Count(&count).Error
	return count > 0, err
}

// ReplaceProjectRole deactivates the pair's active grants and inserts the new
// one in a single transaction. The partial unique index on
// (user_id, project_id) WHERE is_active backstops concurrent callers; a
// violation surfaces as a conflict error and is never retried here.
func (r *PermissionRepository) ReplaceProjectRole(grant *permission.ProjectUserRole) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&permission.ProjectUserRole{}).
			Where("user_id = ? AND project_id = ? AND is_active = ?", grant.UserID, grant.ProjectID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(grant).Error
	})
	return translateConstraintError(err)
}

func (r *PermissionRepository) DeactivateProjectRoles(userID string, projectID uuid.UUID) error {
	return r.db.Model(&permission.ProjectUserRole{}).
		Where("user_id = ? AND project_id = ? AND is_active = ?", userID, projectID, true).
		Update("is_active", false).Error
}

func (r *PermissionRepository) ListAccessibleProjectIDs(userID string, now time.Time) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Model(&permission.ProjectUserRole{}).
		Distinct("project_id").
		Where("user_id = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)", userID, true, now).
		Pluck("project_id", &ids).Error
	return ids, err
}

func (r *PermissionRepository) ListAllProjectIDs() ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.Table("projects").Pluck("id", &ids).Error
	return ids, err
}

func (r *PermissionRepository) GetActiveEnvironmentRole(userID string, environmentID uuid.UUID, now time.Time) (*permission.EnvironmentUserRole, error) {
	var role permission.EnvironmentUserRole
	err := r.db.Where("user_id = ? AND environment_id = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)",
		userID, environmentID, true, now).
		First(&role).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &role, nil
}

func (r *PermissionRepository) HasAnyActiveEnvironmentGrant(userID string, environmentID uuid.UUID, now time.Time) (bool, error) {
	var count int64
	err := r.db.Model(&permission.EnvironmentUserRole{}).
		Where("user_id = ? AND environment_id = ? AND is_active = ? AND (expires_at IS NULL OR expires_at > ?)",
			userID, environmentID, true, now).
		Count(&count).Error
	return count > 0, err
}

func (r *PermissionRepository) ReplaceEnvironmentRole(grant *permission.EnvironmentUserRole) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&permission.EnvironmentUserRole{}).
			Where("user_id = ? AND environment_id = ? AND is_active = ?", grant.UserID, grant.EnvironmentID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(grant).Error
	})
	return translateConstraintError(err)
}

func (r *PermissionRepository) DeactivateEnvironmentRoles(userID string, environmentID uuid.UUID) error {
	return r.db.Model(&permission.EnvironmentUserRole{}).
		Where("user_id = ? AND environment_id = ? AND is_active = ?", userID, environmentID, true).
		Update("is_active", false).Error
}

func (r *PermissionRepository) EnvironmentProjectID(environmentID uuid.UUID) (uuid.UUID, error) {
	var projectID uuid.UUID
	row := r.db.Table("environments").Select("project_id").Where("id = ?", environmentID).Row()
	if err := row.Scan(&projectID); err != nil {
		return uuid.Nil, internal.ErrEnvironmentNotFound
	}
	return projectID, nil
}

func (r *PermissionRepository) DocumentProjectID(documentID uuid.UUID) (uuid.UUID, error) {
	var projectID uuid.UUID
	row := r.db.Table("design_documents").Select("project_id").Where("id = ?", documentID).Row()
	if err := row.Scan(&projectID); err != nil {
		return uuid.Nil, internal.ErrDocumentNotFound
	}
	return projectID, nil
}

// HasPendingReviewAssignment reports whether the user is the reviewer on a
// pending assignment whose workflow targets the given design document.
func (r *PermissionRepository) HasPendingReviewAssignment(userID string, documentID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Table("review_assignments").
		Joins("JOIN review_workflows ON review_workflows.id = review_assignments.workflow_id").
		Where("review_assignments.reviewer_id = ? AND review_assignments.status = ?", userID, "pending").
		Where("review_workflows.target_id = ? AND review_workflows.target_type = ?", documentID, "document").
		Count(&count).Error
	return count > 0, err
}

// translateConstraintError maps storage uniqueness violations onto the
// conflict error type so callers can treat them as retryable.
func translateConstraintError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.NewConflictError("role grant already exists for this scope", internal.ErrCodeDuplicateGrant).WithCause(err)
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint") || strings.Contains(msg, "unique failed") {
		return internal.NewConflictError("role grant already exists for this scope", internal.ErrCodeDuplicateGrant).WithCause(err)
	}
	return err
}
