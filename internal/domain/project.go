package domain

import (
	"context"
	"time"
)

// Project statuses.
const (
	ProjectNew      = "New"
	ProjectActive   = "Active"
	ProjectPending  = "Pending"
	ProjectClosed   = "Closed"
	ProjectCanceled = "Canceled"
)

// ValidProjectStatus reports whether s is a known project status.
func ValidProjectStatus(s string) bool {
	switch s {
	case ProjectNew, ProjectActive, ProjectPending, ProjectClosed, ProjectCanceled:
		return true
	default:
		return false
	}
}

// Project is a unit of work that claims are filed against.
type Project struct {
	BaseModel
	Code        string    `gorm:"column:project_code;size:50;uniqueIndex;not null" json:"project_code"`
	Name        string    `gorm:"column:project_name;size:200;not null" json:"project_name"`
	Department  string    `gorm:"column:project_department;size:50;index" json:"project_department"`
	Description string    `gorm:"column:project_description;type:text" json:"project_description"`
	Status      string    `gorm:"column:project_status;size:20;not null;default:New;index" json:"project_status"`
	StartDate   time.Time `gorm:"column:project_start_date" json:"project_start_date"`
	EndDate     time.Time `gorm:"column:project_end_date" json:"project_end_date"`
	// Comment explains the latest status change.
	Comment string          `gorm:"column:project_comment;type:text" json:"project_comment"`
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"project_members"`
}

// Final reports whether the project status can no longer change.
func (p *Project) Final() bool {
	return p.Status == ProjectClosed || p.Status == ProjectCanceled
}

// Roles a user can hold inside a project. They are independent of the
// account role code.
const (
	ProjectRoleManager   = "PM"
	ProjectRoleLead      = "TL"
	ProjectRoleAnalyst   = "BA"
	ProjectRoleDeveloper = "DEV"
	ProjectRoleTester    = "QA"
)

// ProjectRole is a selectable project role.
type ProjectRole struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

var projectRoles = []ProjectRole{
	{Name: "Project Manager", Value: ProjectRoleManager},
	{Name: "Technical Lead", Value: ProjectRoleLead},
	{Name: "Business Analyst", Value: ProjectRoleAnalyst},
	{Name: "Developer", Value: ProjectRoleDeveloper},
	{Name: "Quality Assurance", Value: ProjectRoleTester},
}

// ProjectRoles returns the project roles in display order.
func ProjectRoles() []ProjectRole {
	out := make([]ProjectRole, len(projectRoles))
	copy(out, projectRoles)
	return out
}

// ValidProjectRole reports whether v is a known project role value.
func ValidProjectRole(v string) bool {
	for _, r := range projectRoles {
		if r.Value == v {
			return true
		}
	}
	return false
}

// ProjectMember assigns a user to a project with a project role.
type ProjectMember struct {
	ID        uint   `gorm:"primaryKey" json:"-"`
	ProjectID uint   `gorm:"not null;uniqueIndex:idx_project_member" json:"-"`
	UserID    uint   `gorm:"not null;uniqueIndex:idx_project_member;index" json:"user_id"`
	Role      string `gorm:"column:project_role;size:10;not null" json:"project_role"`
	User      *User  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// ProjectRepository defines the data access interface for projects.
type ProjectRepository interface {
	Create(ctx context.Context, project *Project) error
	GetByID(ctx context.Context, id uint) (*Project, error)
	List(ctx context.Context, req PageRequest) (*PageResult[Project], error)
	// Update saves the project's own columns; members are left alone.
	Update(ctx context.Context, project *Project) error
	// ReplaceMembers swaps the whole member list of a project atomically.
	ReplaceMembers(ctx context.Context, projectID uint, members []ProjectMember) error
	// Delete removes the project and its member rows.
	Delete(ctx context.Context, id uint) error
}

// ProjectInput carries the editable fields of a project.
type ProjectInput struct {
	Code        string
	Name        string
	Department  string
	Description string
	Status      string
	StartDate   time.Time
	EndDate     time.Time
	// Members replaces the member list when non-nil. A nil slice leaves
	// the members of an existing project unchanged.
	Members []ProjectMember
}

// ProjectService defines the business logic interface for projects.
type ProjectService interface {
	CreateProject(ctx context.Context, in ProjectInput) (*Project, error)
	GetProject(ctx context.Context, id uint) (*Project, error)
	ListProjects(ctx context.Context, req PageRequest) (*PageResult[Project], error)
	UpdateProject(ctx context.Context, id uint, in ProjectInput) (*Project, error)
	// ChangeStatus moves the project to status and records comment.
	// Closed and canceled projects are final.
	ChangeStatus(ctx context.Context, id uint, status, comment string) (*Project, error)
	// DeleteProject fails with CodeConflict while any claim refers to the
	// project.
	DeleteProject(ctx context.Context, id uint) error
	Roles() []ProjectRole
}
