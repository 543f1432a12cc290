package project_test

import (
	"log/slog"
	"os"
	"testing"

	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/frahmantamala/azure-docgen/internal"
	"github.com/frahmantamala/azure-docgen/internal/permission"
	"github.com/frahmantamala/azure-docgen/internal/project"
)

func TestProjectService(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Project Service Suite")
}

// Mock repository for testing
type mockProjectRepository struct {
	projects     map[uuid.UUID]*project.Project
	environments map[uuid.UUID]*project.Environment
	ownerGrants  []*permission.ProjectUserRole

	createError error
}

func newMockProjectRepository() *mockProjectRepository {
	return &mockProjectRepository{
		projects:     make(map[uuid.UUID]*project.Project),
		environments: make(map[uuid.UUID]*project.Environment),
	}
}

func (m *mockProjectRepository) Transaction(fn func(project.Repository) error) error {
	return fn(m)
}

func (m *mockProjectRepository) CreateProject(proj *project.Project) error {
	if m.createError != nil {
		return m.createError
	}
	m.projects[proj.ID] = proj
	return nil
}

func (m *mockProjectRepository) GetProjectByID(id uuid.UUID) (*project.Project, error) {
	return m.projects[id], nil
}

func (m *mockProjectRepository) GetProjectDetail(id uuid.UUID) (*project.Project, error) {
	proj := m.projects[id]
	if proj == nil {
		return nil, nil
	}
	detail := *proj
	detail.Environments = nil
	for _, env := range m.environments {
		if env.ProjectID == id {
			detail.Environments = append(detail.Environments, env)
		}
	}
	return &detail, nil
}

func (m *mockProjectRepository) UpdateProject(proj *project.Project) error {
	m.projects[proj.ID] = proj
	return nil
}

func (m *mockProjectRepository) ListProjectsByIDs(ids []uuid.UUID) ([]*project.Project, error) {
	result := make([]*project.Project, 0)
	for _, id := range ids {
		if proj, ok := m.projects[id]; ok {
			result = append(result, proj)
		}
	}
	return result, nil
}

func (m *mockProjectRepository) CreateEnvironments(environments []*project.Environment) error {
	if m.createError != nil {
		return m.createError
	}
	for _, env := range environments {
		m.environments[env.ID] = env
	}
	return nil
}

func (m *mockProjectRepository) GetEnvironmentByID(id uuid.UUID) (*project.Environment, error) {
	return m.environments[id], nil
}

func (m *mockProjectRepository) GetEnvironmentByName(projectID uuid.UUID, name string) (*project.Environment, error) {
	for _, env := range m.environments {
		if env.ProjectID == projectID && env.Name == name {
			return env, nil
		}
	}
	return nil, nil
}

func (m *mockProjectRepository) UpdateEnvironment(environment *project.Environment) error {
	m.environments[environment.ID] = environment
	return nil
}

func (m *mockProjectRepository) DeleteEnvironment(id uuid.UUID) error {
	delete(m.environments, id)
	return nil
}

func (m *mockProjectRepository) ListEnvironments(projectID uuid.UUID) ([]*project.Environment, error) {
	result := make([]*project.Environment, 0)
	for _, env := range m.environments {
		if env.ProjectID == projectID {
			result = append(result, env)
		}
	}
	return result, nil
}

func (m *mockProjectRepository) NextDisplayOrder(projectID uuid.UUID) (int, error) {
	max := 0
	for _, env := range m.environments {
		if env.ProjectID == projectID && env.DisplayOrder > max {
			max = env.DisplayOrder
		}
	}
	return max + 1, nil
}

func (m *mockProjectRepository) InsertOwnerGrant(grant *permission.ProjectUserRole) error {
	m.ownerGrants = append(m.ownerGrants, grant)
	return nil
}

// Stub permission engine
type stubPermissions struct {
	accessibleIDs []uuid.UUID
}

func (s *stubPermissions) CanAccessProject(string, uuid.UUID) (bool, error) {
	return true, nil
}

func (s *stubPermissions) GetAccessibleProjectIDs(string) ([]uuid.UUID, error) {
	return s.accessibleIDs, nil
}

func (s *stubPermissions) HasProjectRoleOrHigher(string, uuid.UUID, permission.ProjectRoleType) (bool, error) {
	return true, nil
}

var _ = Describe("ProjectService", func() {
	var (
		repo    *mockProjectRepository
		perms   *stubPermissions
		service *project.Service
	)

	testLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	BeforeEach(func() {
		repo = newMockProjectRepository()
		perms = &stubPermissions{}
		service = project.NewService(repo, perms, testLogger)
	})

	Describe("CreateProject", func() {
		It("should create the project with the creator as owner", func() {
			proj, err := service.CreateProject(project.CreateProjectDTO{
				Name:        "payments-platform",
				Description: "Payment gateway redesign",
			}, "user-1")

			Expect(err).ToNot(HaveOccurred())
			Expect(proj.Status).To(Equal(project.StatusActive))

			Expect(repo.ownerGrants).To(HaveLen(1))
			Expect(repo.ownerGrants[0].UserID).To(Equal("user-1"))
			Expect(repo.ownerGrants[0].ProjectID).To(Equal(proj.ID))
			Expect(repo.ownerGrants[0].RoleType).To(Equal(permission.ProjectOwner))
		})

		It("should seed development, staging and production environments", func() {
			proj, err := service.CreateProject(project.CreateProjectDTO{Name: "payments-platform"}, "user-1")
			Expect(err).ToNot(HaveOccurred())

			envs, err := service.ListEnvironments(proj.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(envs).To(HaveLen(3))

			names := make([]string, 0, len(envs))
			for _, env := range envs {
				names = append(names, env.Name)
			}
			Expect(names).To(ConsistOf("development", "staging", "production"))
		})

		It("should reject an empty name", func() {
			_, err := service.CreateProject(project.CreateProjectDTO{Name: ""}, "user-1")
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ListUserProjects", func() {
		It("should return only accessible projects", func() {
			visible, err := service.CreateProject(project.CreateProjectDTO{Name: "visible"}, "user-1")
			Expect(err).ToNot(HaveOccurred())
			_, err = service.CreateProject(project.CreateProjectDTO{Name: "hidden"}, "user-2")
			Expect(err).ToNot(HaveOccurred())

			perms.accessibleIDs = []uuid.UUID{visible.ID}

			projects, err := service.ListUserProjects("user-1")
			Expect(err).ToNot(HaveOccurred())
			Expect(projects).To(HaveLen(1))
			Expect(projects[0].ID).To(Equal(visible.ID))
		})

		It("should return an empty list for users without access", func() {
			projects, err := service.ListUserProjects("nobody")
			Expect(err).ToNot(HaveOccurred())
			Expect(projects).To(BeEmpty())
		})
	})

	Describe("ArchiveProject", func() {
		It("should archive an active project", func() {
			proj, err := service.CreateProject(project.CreateProjectDTO{Name: "legacy"}, "user-1")
			Expect(err).ToNot(HaveOccurred())

			Expect(service.ArchiveProject(proj.ID)).To(Succeed())

			archived, err := service.GetProject(proj.ID)
			Expect(err).ToNot(HaveOccurred())
			Expect(archived.Status).To(Equal(project.StatusArchived))
		})

		It("should be idempotent", func() {
			proj, err := service.CreateProject(project.CreateProjectDTO{Name: "legacy"}, "user-1")
			Expect(err).ToNot(HaveOccurred())

			Expect(service.ArchiveProject(proj.ID)).To(Succeed())
			Expect(service.ArchiveProject(proj.ID)).To(Succeed())
		})

		It("should fail for a missing project", func() {
			err := service.ArchiveProject(uuid.New())
			Expect(err).To(Equal(internal.ErrProjectNotFound))
		})
	})

	Describe("CreateEnvironment", func() {
		var proj *project.Project

		BeforeEach(func() {
			var err error
			proj, err = service.CreateProject(project.CreateProjectDTO{Name: "payments-platform"}, "user-1")
			Expect(err).ToNot(HaveOccurred())
		})

		It("should append the environment after the defaults", func() {
			env, err := service.CreateEnvironment(proj.ID, project.CreateEnvironmentDTO{Name: "qa"})
			Expect(err).ToNot(HaveOccurred())
			Expect(env.DisplayOrder).To(Equal(4))
		})

		It("should reject a duplicate name within the project", func() {
			_, err := service.CreateEnvironment(proj.ID, project.CreateEnvironmentDTO{Name: "staging"})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeConflict))
		})

		It("should allow the same name in another project", func() {
			other, err := service.CreateProject(project.CreateProjectDTO{Name: "other"}, "user-1")
			Expect(err).ToNot(HaveOccurred())

			_, err = service.CreateEnvironment(proj.ID, project.CreateEnvironmentDTO{Name: "qa"})
			Expect(err).ToNot(HaveOccurred())
			_, err = service.CreateEnvironment(other.ID, project.CreateEnvironmentDTO{Name: "qa"})
			Expect(err).ToNot(HaveOccurred())
		})
	})

	Describe("UpdateEnvironment", func() {
		It("should rename when the new name is free", func() {
			proj, err := service.CreateProject(project.CreateProjectDTO{Name: "payments-platform"}, "user-1")
			Expect(err).ToNot(HaveOccurred())

			env, err := service.CreateEnvironment(proj.ID, project.CreateEnvironmentDTO{Name: "qa"})
			Expect(err).ToNot(HaveOccurred())

			name := "uat"
			updated, err := service.UpdateEnvironment(env.ID, project.UpdateEnvironmentDTO{Name: &name})
			Expect(err).ToNot(HaveOccurred())
			Expect(updated.Name).To(Equal("uat"))
		})

		It("should reject renaming onto an existing name", func() {
			proj, err := service.CreateProject(project.CreateProjectDTO{Name: "payments-platform"}, "user-1")
			Expect(err).ToNot(HaveOccurred())

			env, err := service.CreateEnvironment(proj.ID, project.CreateEnvironmentDTO{Name: "qa"})
			Expect(err).ToNot(HaveOccurred())

			name := "production"
			_, err = service.UpdateEnvironment(env.ID, project.UpdateEnvironmentDTO{Name: &name})
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("DeleteEnvironment", func() {
		It("should delete an existing environment", func() {
			proj, err := service.CreateProject(project.CreateProjectDTO{Name: "payments-platform"}, "user-1")
			Expect(err).ToNot(HaveOccurred())

			env, err := service.CreateEnvironment(proj.ID, project.CreateEnvironmentDTO{Name: "qa"})
			Expect(err).ToNot(HaveOccurred())

			Expect(service.DeleteEnvironment(env.ID)).To(Succeed())

			_, err = service.GetEnvironment(env.ID)
			Expect(err).To(Equal(internal.ErrEnvironmentNotFound))
		})

		It("should fail for a missing environment", func() {
			err := service.DeleteEnvironment(uuid.New())
			Expect(err).To(Equal(internal.ErrEnvironmentNotFound))
		})
	})
})
