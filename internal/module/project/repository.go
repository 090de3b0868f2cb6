package project

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/pkg"
)

var (
	allowedSortFields = []string{
		"id", "project_code", "project_name", "project_department", "project_status",
		"project_start_date", "project_end_date", "created_at",
	}
	allowedFilterFields = []string{
		"project_code", "project_name", "project_department", "project_status",
		"project_start_date", "project_end_date",
	}
	keywordFields = []string{"project_code", "project_name"}
)

type projectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a ProjectRepository backed by db.
func NewProjectRepository(db *gorm.DB) domain.ProjectRepository {
	return &projectRepository{db: db}
}

// Create inserts the project together with its members.
func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	return mapError(r.db.WithContext(ctx).Create(project).Error)
}

func (r *projectRepository) GetByID(ctx context.Context, id uint) (*domain.Project, error) {
	var project domain.Project
	if err := r.db.WithContext(ctx).Scopes(withMembers).First(&project, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &project, nil
}

// List returns one page of projects. The keyword matches code or name;
// date columns accept __gte and __lte bounds.
func (r *projectRepository) List(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.Project], error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&domain.Project{}).
		Scopes(pkg.Filter(req, allowedFilterFields), pkg.Keyword(req, keywordFields))

	if err := base.Count(&total).Error; err != nil {
		return nil, mapError(err)
	}

	var projects []domain.Project
	if err := base.Scopes(
		pkg.Paginate(req),
		pkg.Sort(req, allowedSortFields),
		withMembers,
	).Find(&projects).Error; err != nil {
		return nil, mapError(err)
	}

	return pkg.BuildPage(projects, total, req), nil
}

func (r *projectRepository) Update(ctx context.Context, project *domain.Project) error {
	return mapError(r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error)
}

func (r *projectRepository) ReplaceMembers(ctx context.Context, projectID uint, members []domain.ProjectMember) error {
	return mapError(pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", projectID).Delete(&domain.ProjectMember{}).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		rows := make([]domain.ProjectMember, len(members))
		for i, m := range members {
			rows[i] = domain.ProjectMember{ProjectID: projectID, UserID: m.UserID, Role: m.Role}
		}
		return tx.Create(&rows).Error
	}))
}

func (r *projectRepository) Delete(ctx context.Context, id uint) error {
	return mapError(pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Where("project_id = ?", id).Delete(&domain.ProjectMember{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.Project{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewAppError(domain.CodeNotFound, "project not found", nil)
		}
		return nil
	}))
}

func withMembers(db *gorm.DB) *gorm.DB {
	return db.Preload("Members", func(db *gorm.DB) *gorm.DB {
		return db.Order("project_members.id ASC")
	}).Preload("Members.User")
}

func mapError(err error) error {
	return pkg.MapDBError(err, "project")
}
