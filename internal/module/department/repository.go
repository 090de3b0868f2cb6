package department

import (
	"context"

	"gorm.io/gorm"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/pkg"
)

type departmentRepository struct {
	db *gorm.DB
}

// NewDepartmentRepository creates a DepartmentRepository backed by db.
func NewDepartmentRepository(db *gorm.DB) domain.DepartmentRepository {
	return &departmentRepository{db: db}
}

func (r *departmentRepository) Create(ctx context.Context, d *domain.Department) error {
	return mapError(r.db.WithContext(ctx).Create(d).Error)
}

func (r *departmentRepository) GetByCode(ctx context.Context, code string) (*domain.Department, error) {
	var d domain.Department
	if err := r.db.WithContext(ctx).Where("department_code = ?", code).First(&d).Error; err != nil {
		return nil, mapError(err)
	}
	return &d, nil
}

// All returns every department ordered by name. The table is small enough
// to serve the project form's picker unpaged.
func (r *departmentRepository) All(ctx context.Context) ([]domain.Department, error) {
	departments := []domain.Department{}
	if err := r.db.WithContext(ctx).Order("department_name ASC").Find(&departments).Error; err != nil {
		return nil, mapError(err)
	}
	return departments, nil
}

func mapError(err error) error {
	return pkg.MapDBError(err, "department")
}
