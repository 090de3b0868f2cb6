package project

import (
	"context"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// maxCommentLength bounds the status change comment.
const maxCommentLength = 500

type projectService struct {
	repo        domain.ProjectRepository
	users       domain.UserRepository
	departments domain.DepartmentRepository
	claims      domain.ClaimReferences
}

// NewProjectService creates a ProjectService backed by repo. users and
// departments resolve member ids and department codes; claims guards
// deletion.
func NewProjectService(repo domain.ProjectRepository, users domain.UserRepository, departments domain.DepartmentRepository, claims domain.ClaimReferences) domain.ProjectService {
	return &projectService{repo: repo, users: users, departments: departments, claims: claims}
}

// CreateProject validates in and persists a new project with its members.
// An empty status defaults to New.
func (s *projectService) CreateProject(ctx context.Context, in domain.ProjectInput) (*domain.Project, error) {
	in = normalize(in)
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	project := &domain.Project{}
	apply(project, in)
	project.Members = in.Members
	if err := s.repo.Create(ctx, project); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, project.ID)
}

func (s *projectService) GetProject(ctx context.Context, id uint) (*domain.Project, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *projectService) ListProjects(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.Project], error) {
	return s.repo.List(ctx, req)
}

// UpdateProject replaces the editable fields of project id, and its members
// when in.Members is non-nil.
func (s *projectService) UpdateProject(ctx context.Context, id uint, in domain.ProjectInput) (*domain.Project, error) {
	in = normalize(in)
	if err := s.validate(ctx, in); err != nil {
		return nil, err
	}

	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Final() && in.Status != project.Status {
		return nil, domain.NewAppError(domain.CodeConflict, "project is "+strings.ToLower(project.Status)+" and can no longer change status", nil)
	}
	apply(project, in)
	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}
	if in.Members != nil {
		if err := s.repo.ReplaceMembers(ctx, id, in.Members); err != nil {
			return nil, err
		}
	}
	return s.repo.GetByID(ctx, id)
}

func (s *projectService) ChangeStatus(ctx context.Context, id uint, status, comment string) (*domain.Project, error) {
	status = strings.TrimSpace(status)
	comment = strings.TrimSpace(comment)
	if !domain.ValidProjectStatus(status) {
		return nil, domain.NewAppError(domain.CodeValidation, "unknown project status "+status, nil)
	}
	if utf8.RuneCountInString(comment) > maxCommentLength {
		return nil, domain.NewAppError(domain.CodeValidation, "comment must not exceed 500 characters", nil)
	}

	project, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project.Final() {
		return nil, domain.NewAppError(domain.CodeConflict, "project is "+strings.ToLower(project.Status)+" and can no longer change status", nil)
	}
	if project.Status == status {
		return nil, domain.NewAppError(domain.CodeValidation, "project is already "+status, nil)
	}

	project.Status = status
	project.Comment = comment
	if err := s.repo.Update(ctx, project); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *projectService) DeleteProject(ctx context.Context, id uint) error {
	n, err := s.claims.CountByProject(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return domain.NewAppError(domain.CodeConflict,
			"project has "+strconv.FormatInt(n, 10)+" claims and cannot be deleted", nil)
	}
	return s.repo.Delete(ctx, id)
}

func (s *projectService) Roles() []domain.ProjectRole {
	return domain.ProjectRoles()
}

func normalize(in domain.ProjectInput) domain.ProjectInput {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.Department = strings.ToUpper(strings.TrimSpace(in.Department))
	in.Description = strings.TrimSpace(in.Description)
	in.Status = strings.TrimSpace(in.Status)
	if in.Status == "" {
		in.Status = domain.ProjectNew
	}
	in.Members = slices.Clone(in.Members)
	for i := range in.Members {
		in.Members[i].Role = strings.ToUpper(strings.TrimSpace(in.Members[i].Role))
	}
	return in
}

func (s *projectService) validate(ctx context.Context, in domain.ProjectInput) error {
	if err := validate(in); err != nil {
		return err
	}
	if in.Department != "" {
		if _, err := s.departments.GetByCode(ctx, in.Department); err != nil {
			if domain.IsNotFound(err) {
				return domain.NewAppError(domain.CodeValidation, "unknown department "+in.Department, nil)
			}
			return err
		}
	}
	return s.validateMembers(ctx, in.Members)
}

func (s *projectService) validateMembers(ctx context.Context, members []domain.ProjectMember) error {
	seen := make(map[uint]bool, len(members))
	for _, m := range members {
		if m.UserID == 0 {
			return domain.NewAppError(domain.CodeValidation, "member user id is required", nil)
		}
		if !domain.ValidProjectRole(m.Role) {
			return domain.NewAppError(domain.CodeValidation, "unknown project role "+m.Role, nil)
		}
		if seen[m.UserID] {
			return domain.NewAppError(domain.CodeValidation, "user "+strconv.FormatUint(uint64(m.UserID), 10)+" is listed twice", nil)
		}
		seen[m.UserID] = true

		u, err := s.users.GetByID(ctx, m.UserID)
		if err != nil {
			if domain.IsNotFound(err) {
				return domain.NewAppError(domain.CodeValidation, "member "+strconv.FormatUint(uint64(m.UserID), 10)+" does not exist", nil)
			}
			return err
		}
		if u.IsBlocked {
			return domain.NewAppError(domain.CodeValidation, "member "+u.Email+" is blocked", nil)
		}
	}
	return nil
}

func validate(in domain.ProjectInput) error {
	if in.Code == "" {
		return domain.NewAppError(domain.CodeValidation, "project code is required", nil)
	}
	if utf8.RuneCountInString(in.Code) > 50 {
		return domain.NewAppError(domain.CodeValidation, "project code must not exceed 50 characters", nil)
	}
	if in.Name == "" {
		return domain.NewAppError(domain.CodeValidation, "project name is required", nil)
	}
	if utf8.RuneCountInString(in.Name) > 200 {
		return domain.NewAppError(domain.CodeValidation, "project name must not exceed 200 characters", nil)
	}
	if !domain.ValidProjectStatus(in.Status) {
		return domain.NewAppError(domain.CodeValidation, "unknown project status "+in.Status, nil)
	}
	if !in.StartDate.IsZero() && !in.EndDate.IsZero() && in.EndDate.Before(in.StartDate) {
		return domain.NewAppError(domain.CodeValidation, "end date must not be before start date", nil)
	}
	return nil
}

func apply(p *domain.Project, in domain.ProjectInput) {
	p.Code = in.Code
	p.Name = in.Name
	p.Department = in.Department
	p.Description = in.Description
	p.Status = in.Status
	p.StartDate = in.StartDate
	p.EndDate = in.EndDate
}
