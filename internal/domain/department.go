package domain

import "context"

// Department is an organizational unit. Projects refer to it by code.
type Department struct {
	BaseModel
	Code        string `gorm:"column:department_code;size:50;uniqueIndex;not null" json:"department_code"`
	Name        string `gorm:"column:department_name;size:100;not null" json:"department_name"`
	Description string `gorm:"type:text" json:"description"`
}

// DepartmentRepository defines the data access interface for departments.
type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	GetByCode(ctx context.Context, code string) (*Department, error)
	All(ctx context.Context) ([]Department, error)
}

// DepartmentService defines the business logic interface for departments.
type DepartmentService interface {
	CreateDepartment(ctx context.Context, code, name, description string) (*Department, error)
	ListDepartments(ctx context.Context) ([]Department, error)
}
