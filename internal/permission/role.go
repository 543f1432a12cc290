package permission

// SystemRoleType is a system-wide capability. System roles are not ranked
// against each other: SystemAdministrator and GlobalViewer are independent.
type SystemRoleType string

const (
	SystemAdministrator SystemRoleType = "system_administrator"
	GlobalViewer        SystemRoleType = "global_viewer"
)

func (r SystemRoleType) Valid() bool {
	return r == SystemAdministrator || r == GlobalViewer
}

// ProjectRoleType is a project-scoped role. The hierarchy
// Owner > Manager > Reviewer > Developer > Viewer is a design invariant and
// lives only in projectRoleRank below; every "or higher" comparison goes
// through AtLeast.
type ProjectRoleType string

const (
	ProjectOwner     ProjectRoleType = "project_owner"
	ProjectManager   ProjectRoleType = "project_manager"
	ProjectReviewer  ProjectRoleType = "project_reviewer"
	ProjectDeveloper ProjectRoleType = "project_developer"
	ProjectViewer    ProjectRoleType = "project_viewer"
)

var projectRoleRank = map[ProjectRoleType]int{
	ProjectViewer:    1,
	ProjectDeveloper: 2,
	ProjectReviewer:  3,
	ProjectManager:   4,
	ProjectOwner:     5,
}

func (r ProjectRoleType) Valid() bool {
	_, ok := projectRoleRank[r]
	return ok
}

// AtLeast reports whether r ranks at or above minimum. Unknown role values
// never satisfy any minimum.
func (r ProjectRoleType) AtLeast(minimum ProjectRoleType) bool {
	rank, ok := projectRoleRank[r]
	if !ok {
		return false
	}
	minRank, ok := projectRoleRank[minimum]
	if !ok {
		return false
	}
	return rank >= minRank
}

// EnvironmentRoleType is an environment-scoped role. Environment roles are
// exact-match capabilities; project managers and owners implicitly control
// every environment in their project.
type EnvironmentRoleType string

const (
	EnvironmentManager   EnvironmentRoleType = "environment_manager"
	EnvironmentDeveloper EnvironmentRoleType = "environment_developer"
	EnvironmentViewer    EnvironmentRoleType = "environment_viewer"
)

func (r EnvironmentRoleType) Valid() bool {
	switch r {
	case EnvironmentManager, EnvironmentDeveloper, EnvironmentViewer:
		return true
	}
	return false
}
