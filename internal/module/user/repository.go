package user

import (
	"context"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/pkg"
	"gorm.io/gorm"
)

// Allowed fields for sorting and filtering in List queries.
var (
	allowedSortFields   = []string{"id", "name", "email", "role_code", "created_at", "updated_at"}
	allowedFilterFields = []string{"name", "email", "role_code"}
	keywordFields       = []string{"name", "email"}
)

// userRepository implements domain.UserRepository using GORM.
type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository backed by the given GORM database.
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepository{db: db}
}

// Create inserts a new user into the database.
func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	return mapError(r.db.WithContext(ctx).Create(user).Error)
}

// GetByID retrieves a user by its primary key.
func (r *userRepository) GetByID(ctx context.Context, id uint) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// GetByEmail retrieves a user by email address.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, mapError(err)
	}
	return &user, nil
}

// List returns a paginated, sorted, and filtered list of users. The keyword
// matches name or email.
func (r *userRepository) List(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.User], error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&domain.User{}).
		Scopes(pkg.Filter(req, allowedFilterFields), pkg.Keyword(req, keywordFields))

	if err := base.Count(&total).Error; err != nil {
		return nil, mapError(err)
	}

	var users []domain.User
	if err := base.Scopes(
		pkg.Paginate(req),
		pkg.Sort(req, allowedSortFields),
	).Find(&users).Error; err != nil {
		return nil, mapError(err)
	}

	return pkg.BuildPage(users, total, req), nil
}

// Update saves changes to an existing user.
func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	return mapError(r.db.WithContext(ctx).Save(user).Error)
}

// Delete removes a user by ID.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return mapError(pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&domain.ProjectMember{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&domain.User{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return domain.NewAppError(domain.CodeNotFound, "user not found", nil)
		}
		return nil
	}))
}

func mapError(err error) error {
	return pkg.MapDBError(err, "user")
}
