package permission

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/core/common/validation"
)

// Repository defines the data access methods for role grants. Expiry is
// evaluated against the supplied instant so checks within one request agree
// on "now". The storage layer enforces at most one active grant per
// (user, project) and (user, environment) with partial unique indexes;
// Replace* run deactivate-then-insert inside a single transaction.
type Repository interface {
	HasActiveSystemRole(userID string, roleType SystemRoleType) (bool, error)
	ListActiveSystemRoles(userID string) ([]*SystemRole, error)
	InsertSystemRole(grant *SystemRole) error
	DeactivateSystemRoles(userID string, roleType SystemRoleType) error

	GetActiveProjectRole(userID string, projectID uuid.UUID, now time.Time) (*ProjectUserRole, error)
	HasAnyActiveProjectGrant(userID string, projectID uuid.UUID, now time.Time) (bool, error)
	ReplaceProjectRole(grant *ProjectUserRole) error
	DeactivateProjectRoles(userID string, projectID uuid.UUID) error
	ListAccessibleProjectIDs(userID string, now time.Time) ([]uuid.UUID, error)
	ListAllProjectIDs() ([]uuid.UUID, error)

	GetActiveEnvironmentRole(userID string, environmentID uuid.UUID, now time.Time) (*EnvironmentUserRole, error)
	HasAnyActiveEnvironmentGrant(userID string, environmentID uuid.UUID, now time.Time) (bool, error)
	ReplaceEnvironmentRole(grant *EnvironmentUserRole) error
	DeactivateEnvironmentRoles(userID string, environmentID uuid.UUID) error

	// Lookups into neighboring tables needed by cross-scope checks.
	EnvironmentProjectID(environmentID uuid.UUID) (uuid.UUID, error)
	DocumentProjectID(documentID uuid.UUID) (uuid.UUID, error)
	HasPendingReviewAssignment(userID string, documentID uuid.UUID) (bool, error)
}

// Service answers authorization questions and mutates role grants. All Has*/
// Can* checks are side-effect-free; only Grant*/Revoke* write.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// HasSystemRole reports whether an active system grant of exactly roleType
// exists. There is no hierarchy at system scope.
func (s *Service) HasSystemRole(userID string, roleType SystemRoleType) (bool, error) {
	return s.repo.HasActiveSystemRole(userID, roleType)
}

// HasProjectRole reports whether the user holds exactly roleType on the
// project. SystemAdministrator bypasses the project-level check.
func (s *Service) HasProjectRole(userID string, projectID uuid.UUID, roleType ProjectRoleType) (bool, error) {
	isAdmin, err := s.repo.HasActiveSystemRole(userID, SystemAdministrator)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}

	role, err := s.repo.GetActiveProjectRole(userID, projectID, s.now())
	if err != nil {
		return false, err
	}
	return role != nil && role.RoleType == roleType, nil
}

// HasProjectRoleOrHigher resolves the user's single active project role and
// compares it against minimumRole using the Owner>Manager>Reviewer>
// Developer>Viewer order.
func (s *Service) HasProjectRoleOrHigher(userID string, projectID uuid.UUID, minimumRole ProjectRoleType) (bool, error) {
	isAdmin, err := s.repo.HasActiveSystemRole(userID, SystemAdministrator)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}

	role, err := s.repo.GetActiveProjectRole(userID, projectID, s.now())
	if err != nil {
		return false, err
	}
	if role == nil {
		return false, nil
	}
	return role.RoleType.AtLeast(minimumRole), nil
}

// HasEnvironmentRole reports whether the user may act as roleType on the
// environment: SystemAdministrator, ProjectManager-or-higher on the owning
// project, or an exact active environment grant.
func (s *Service) HasEnvironmentRole(userID string, environmentID uuid.UUID, roleType EnvironmentRoleType) (bool, error) {
	isAdmin, err := s.repo.HasActiveSystemRole(userID, SystemAdministrator)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}

	projectID, err := s.repo.EnvironmentProjectID(environmentID)
	if err == nil {
		manages, merr := s.HasProjectRoleOrHigher(userID, projectID, ProjectManager)
		if merr != nil {
			return false, merr
		}
		if manages {
			return true, nil
		}
	} else if !isNotFound(err) {
		return false, err
	}

	role, err := s.repo.GetActiveEnvironmentRole(userID, environmentID, s.now())
	if err != nil {
		return false, err
	}
	return role != nil && role.RoleType == roleType, nil
}

// CanAccessProject reports whether the user may see the project at all:
// either system read-all roles or any active project grant.
func (s *Service) CanAccessProject(userID string, projectID uuid.UUID) (bool, error) {
	global, err := s.hasGlobalReadAccess(userID)
	if err != nil {
		return false, err
	}
	if global {
		return true, nil
	}

	return s.repo.HasAnyActiveProjectGrant(userID, projectID, s.now())
}

func (s *Service) CanAccessEnvironment(userID string, environmentID uuid.UUID) (bool, error) {
	global, err := s.hasGlobalReadAccess(userID)
	if err != nil {
		return false, err
	}
	if global {
		return true, nil
	}

	projectID, err := s.repo.EnvironmentProjectID(environmentID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	projectAccess, err := s.CanAccessProject(userID, projectID)
	if err != nil {
		return false, err
	}
	if projectAccess {
		return true, nil
	}

	return s.repo.HasAnyActiveEnvironmentGrant(userID, environmentID, s.now())
}

// CanReviewDocument is true for the reviewer of a currently pending review
// assignment targeting the document, or for anyone with Reviewer-or-higher
// on the document's project.
func (s *Service) CanReviewDocument(userID string, documentID uuid.UUID) (bool, error) {
	assigned, err := s.repo.HasPendingReviewAssignment(userID, documentID)
	if err != nil {
		return false, err
	}
	if assigned {
		return true, nil
	}

	projectID, err := s.repo.DocumentProjectID(documentID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return s.HasProjectRoleOrHigher(userID, projectID, ProjectReviewer)
}

// GetProjectRole returns the user's active, non-expired project role, or nil
// when none exists. The system-admin override is deliberately absent here;
// this reflects explicit grants only.
func (s *Service) GetProjectRole(userID string, projectID uuid.UUID) (*ProjectRoleType, error) {
	role, err := s.repo.GetActiveProjectRole(userID, projectID, s.now())
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, nil
	}
	rt := role.RoleType
	return &rt, nil
}

func (s *Service) GetEnvironmentRole(userID string, environmentID uuid.UUID) (*EnvironmentRoleType, error) {
	role, err := s.repo.GetActiveEnvironmentRole(userID, environmentID, s.now())
	if err != nil {
		return nil, err
	}
	if role == nil {
		return nil, nil
	}
	rt := role.RoleType
	return &rt, nil
}

// GetAccessibleProjectIDs returns every project for system read-all roles,
// otherwise the distinct projects where the user holds an active,
// non-expired grant.
func (s *Service) GetAccessibleProjectIDs(userID string) ([]uuid.UUID, error) {
	global, err := s.hasGlobalReadAccess(userID)
	if err != nil {
		return nil, err
	}
	if global {
		return s.repo.ListAllProjectIDs()
	}

	return s.repo.ListAccessibleProjectIDs(userID, s.now())
}

// ListSystemRoles returns the user's active system grants. A user may hold
// several distinct system role types at once.
func (s *Service) ListSystemRoles(userID string) ([]*SystemRole, error) {
	return s.repo.ListActiveSystemRoles(userID)
}

func (s *Service) GrantSystemRole(userID string, roleType SystemRoleType, grantedBy string) error {
	if !roleType.Valid() {
		return internal.NewValidationError("unknown system role type", internal.ErrCodeInvalidRole)
	}

	already, err := s.repo.HasActiveSystemRole(userID, roleType)
	if err != nil {
		return err
	}
	if already {
		return nil
	}

	if err := s.repo.InsertSystemRole(NewSystemRole(userID, roleType, grantedBy)); err != nil {
		s.logger.Error("failed to grant system role", "error", err, "user_id", userID, "role_type", roleType)
		return err
	}

	s.logger.Info("system role granted",
		"user_id", userID,
		"role_type", roleType,
		"granted_by", grantedBy)
	return nil
}

func (s *Service) RevokeSystemRole(userID string, roleType SystemRoleType) error {
	if err := s.repo.DeactivateSystemRoles(userID, roleType); err != nil {
		s.logger.Error("failed to revoke system role", "error", err, "user_id", userID, "role_type", roleType)
		return err
	}

	s.logger.Info("system role revoked", "user_id", userID, "role_type", roleType)
	return nil
}

// GrantProjectRole deactivates any existing active grant for the
// (user, project) pair and inserts a fresh active row. The inactive rows left
// behind are the audit trail. Concurrent grants for the same pair are caught
// by the storage uniqueness constraint and surface as a conflict error.
func (s *Service) GrantProjectRole(userID string, projectID uuid.UUID, roleType ProjectRoleType, grantedBy string, expiresAt *time.Time) error {
	if !roleType.Valid() {
		return internal.NewValidationError("unknown project role type", internal.ErrCodeInvalidRole)
	}
	if err := validation.ValidateGrantExpiry(expiresAt); err != nil {
		return err
	}

	if err := s.repo.ReplaceProjectRole(NewProjectUserRole(userID, projectID, roleType, grantedBy, expiresAt)); err != nil {
		s.logger.Error("failed to grant project role",
			"error", err,
			"user_id", userID,
			"project_id", projectID,
			"role_type", roleType)
		return err
	}

	s.logger.Info("project role granted",
		"user_id", userID,
		"project_id", projectID,
		"role_type", roleType,
		"granted_by", grantedBy)
	return nil
}

func (s *Service) GrantEnvironmentRole(userID string, environmentID uuid.UUID, roleType EnvironmentRoleType, grantedBy string, expiresAt *time.Time) error {
	if !roleType.Valid() {
		return internal.NewValidationError("unknown environment role type", internal.ErrCodeInvalidRole)
	}
	if err := validation.ValidateGrantExpiry(expiresAt); err != nil {
		return err
	}

	if err := s.repo.ReplaceEnvironmentRole(NewEnvironmentUserRole(userID, environmentID, roleType, grantedBy, expiresAt)); err != nil {
		s.logger.Error("failed to grant environment role",
			"error", err,
			"user_id", userID,
			"environment_id", environmentID,
			"role_type", roleType)
		return err
	}

	s.logger.Info("environment role granted",
		"user_id", userID,
		"environment_id", environmentID,
		"role_type", roleType,
		"granted_by", grantedBy)
	return nil
}

// RevokeProjectRole deactivates all active grants for the pair; rows are
// never deleted.
func (s *Service) RevokeProjectRole(userID string, projectID uuid.UUID) error {
	if err := s.repo.DeactivateProjectRoles(userID, projectID); err != nil {
		s.logger.Error("failed to revoke project role", "error", err, "user_id", userID, "project_id", projectID)
		return err
	}

	s.logger.Info("project roles revoked", "user_id", userID, "project_id", projectID)
	return nil
}

func (s *Service) RevokeEnvironmentRole(userID string, environmentID uuid.UUID) error {
	if err := s.repo.DeactivateEnvironmentRoles(userID, environmentID); err != nil {
		s.logger.Error("failed to revoke environment role", "error", err, "user_id", userID, "environment_id", environmentID)
		return err
	}

	s.logger.Info("environment roles revoked", "user_id", userID, "environment_id", environmentID)
	return nil
}

func isNotFound(err error) bool {
	if appErr, ok := internal.IsAppError(err); ok {
		return appErr.Type == internal.ErrorTypeNotFound
	}
	return false
}

func (s *Service) hasGlobalReadAccess(userID string) (bool, error) {
	isAdmin, err := s.repo.HasActiveSystemRole(userID, SystemAdministrator)
	if err != nil {
		return false, err
	}
	if isAdmin {
		return true, nil
	}
	return s.repo.HasActiveSystemRole(userID, GlobalViewer)
}
