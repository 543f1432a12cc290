package user

import (
	"fmt"

	"github.com/frahmantamala/azure-docgen/internal/permission"
)

type Repository interface {
	GetByID(userID string) (*User, error)
	GetByEmail(email string) (*User, error)
	List() ([]*User, error)
}

// PermissionAPI resolves the user's active system roles for the profile view.
type PermissionAPI interface {
	ListSystemRoles(userID string) ([]*permission.SystemRole, error)
}

type Service struct {
	repo        Repository
	permissions PermissionAPI
}

func NewService(repo Repository, permissions PermissionAPI) *Service {
	return &Service{
		repo:        repo,
		permissions: permissions,
	}
}

// GetByID returns the profile with its active system roles attached.
func (s *Service) GetByID(userID string) (*User, error) {
	u, err := s.repo.GetByID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	roles, err := s.permissions.ListSystemRoles(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get system roles: %w", err)
	}

	u.SystemRoles = make([]string, 0, len(roles))
	for _, role := range roles {
		u.SystemRoles = append(u.SystemRoles, string(role.RoleType))
	}

	return u, nil
}

func (s *Service) List() ([]*User, error) {
	return s.repo.List()
}
