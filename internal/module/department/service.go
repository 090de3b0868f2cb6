package department

import (
	"context"
	"strings"

	"github.com/simp-lee/claimdesk/internal/domain"
)

type departmentService struct {
	repo domain.DepartmentRepository
}

// NewDepartmentService creates a DepartmentService backed by repo.
func NewDepartmentService(repo domain.DepartmentRepository) domain.DepartmentService {
	return &departmentService{repo: repo}
}

// CreateDepartment stores a department. Codes are kept upper case so
// projects can refer to them without caring about case.
func (s *departmentService) CreateDepartment(ctx context.Context, code, name, description string) (*domain.Department, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	name = strings.TrimSpace(name)
	if code == "" {
		return nil, domain.NewAppError(domain.CodeValidation, "department code is required", nil)
	}
	if name == "" {
		return nil, domain.NewAppError(domain.CodeValidation, "department name is required", nil)
	}

	d := &domain.Department{Code: code, Name: name, Description: strings.TrimSpace(description)}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *departmentService) ListDepartments(ctx context.Context) ([]domain.Department, error) {
	return s.repo.All(ctx)
}
