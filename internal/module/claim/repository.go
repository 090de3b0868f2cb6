package claim

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/simp-lee/claimdesk/internal/domain"
	"github.com/simp-lee/claimdesk/internal/pkg"
)

// statusInKey is an internal filter key restricting results to a
// comma-separated set of statuses. It is set by the service, never taken from
// the request.
const statusInKey = "claim_status__in"

var (
	allowedSortFields = []string{
		"id", "claim_name", "claim_status", "claim_start_date", "claim_end_date",
		"total_work_time", "created_at", "updated_at",
	}
	allowedFilterFields = []string{
		"claim_name", "claim_status", "requester_id", "project_id", "approver_id",
		"claim_start_date", "claim_end_date", "total_work_time",
	}
	keywordFields = []string{"claim_name"}
)

type claimRepository struct {
	db *gorm.DB
}

// NewClaimRepository creates a ClaimRepository backed by db.
func NewClaimRepository(db *gorm.DB) domain.ClaimRepository {
	return &claimRepository{db: db}
}

func (r *claimRepository) Create(ctx context.Context, claim *domain.Claim) error {
	return mapError(r.db.WithContext(ctx).Create(claim).Error)
}

func (r *claimRepository) GetByID(ctx context.Context, id uint) (*domain.Claim, error) {
	var claim domain.Claim
	if err := r.db.WithContext(ctx).First(&claim, id).Error; err != nil {
		return nil, mapError(err)
	}
	return &claim, nil
}

func (r *claimRepository) List(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.Claim], error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&domain.Claim{}).Scopes(
		pkg.Filter(req, allowedFilterFields),
		pkg.Keyword(req, keywordFields),
		statusIn(req),
	)

	if err := base.Count(&total).Error; err != nil {
		return nil, mapError(err)
	}

	var claims []domain.Claim
	if err := base.Scopes(
		pkg.Paginate(req),
		pkg.Sort(req, allowedSortFields),
	).Find(&claims).Error; err != nil {
		return nil, mapError(err)
	}

	return pkg.BuildPage(claims, total, req), nil
}

// Update saves the editable fields of a draft. The status column is never
// written here; it only moves through ChangeStatus.
func (r *claimRepository) Update(ctx context.Context, claim *domain.Claim) error {
	result := r.db.WithContext(ctx).Model(&domain.Claim{}).
		Where("id = ? AND claim_status = ?", claim.ID, domain.StatusDraft).
		Updates(map[string]any{
			"claim_name":       claim.Name,
			"project_id":       claim.ProjectID,
			"approver_id":      claim.ApproverID,
			"claim_start_date": claim.StartDate,
			"claim_end_date":   claim.EndDate,
			"total_work_time":  claim.TotalHours,
			"updated_at":       time.Now(),
		})
	if result.Error != nil {
		return mapError(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NewAppError(domain.CodeConflict, "only draft claims can be edited", nil)
	}
	return nil
}

// ChangeStatus performs a compare-and-set on the status column and appends
// the audit entry in the same transaction.
func (r *claimRepository) ChangeStatus(ctx context.Context, id uint, from, to domain.ClaimStatus, actorID uint, comment string) (*domain.Claim, error) {
	var claim domain.Claim
	err := pkg.WithTx(ctx, r.db, func(tx *gorm.DB) error {
		updates := map[string]any{
			"claim_status": to,
			"updated_at":   time.Now(),
		}
		if comment != "" {
			updates["comment"] = comment
		}

		changed, err := pkg.CompareAndSet(tx, &domain.Claim{}, id, "claim_status", from, updates)
		if err != nil {
			return err
		}
		if !changed {
			var count int64
			if err := tx.Model(&domain.Claim{}).Where("id = ?", id).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domain.NewAppError(domain.CodeNotFound, "claim not found", nil)
			}
			return domain.NewAppError(domain.CodeConflict, "claim status was changed by another request", nil)
		}

		entry := domain.ClaimLog{
			ClaimID:   id,
			OldStatus: from,
			NewStatus: to,
			ActorID:   actorID,
			Comment:   comment,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.First(&claim, id).Error
	})
	if err != nil {
		return nil, mapError(err)
	}
	return &claim, nil
}

// CountByStatus returns the number of claims per status among those matching
// filter (exact match on allowed columns).
func (r *claimRepository) CountByStatus(ctx context.Context, filter map[string]string) (map[domain.ClaimStatus]int64, error) {
	var rows []struct {
		ClaimStatus domain.ClaimStatus
		Total       int64
	}
	req := domain.PageRequest{Filter: filter}
	err := r.db.WithContext(ctx).Model(&domain.Claim{}).
		Scopes(pkg.Filter(req, allowedFilterFields), statusIn(req)).
		Select("claim_status, COUNT(*) AS total").
		Group("claim_status").
		Scan(&rows).Error
	if err != nil {
		return nil, mapError(err)
	}

	counts := make(map[domain.ClaimStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.ClaimStatus] = row.Total
	}
	return counts, nil
}

// NewClaimReferences returns the claim counts that guard project and user
// removal.
func NewClaimReferences(db *gorm.DB) domain.ClaimReferences {
	return &claimRepository{db: db}
}

func (r *claimRepository) CountByProject(ctx context.Context, projectID uint) (int64, error) {
	return r.count(ctx, "project_id = ?", projectID)
}

func (r *claimRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, "requester_id = ? OR approver_id = ?", userID, userID)
}

func (r *claimRepository) CountAwaitingApprover(ctx context.Context, approverID uint) (int64, error) {
	return r.count(ctx, "approver_id = ? AND claim_status = ?", approverID, domain.StatusPendingApproval)
}

func (r *claimRepository) count(ctx context.Context, query string, args ...any) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&domain.Claim{}).Where(query, args...).Count(&n).Error; err != nil {
		return 0, mapError(err)
	}
	return n, nil
}

// statusIn applies the statusInKey filter. Unknown statuses are dropped.
func statusIn(req domain.PageRequest) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		raw, ok := req.Filter[statusInKey]
		if !ok {
			return db
		}
		var statuses []string
		for _, s := range strings.Split(raw, ",") {
			if st, err := domain.ParseClaimStatus(strings.TrimSpace(s)); err == nil {
				statuses = append(statuses, string(st))
			}
		}
		if len(statuses) == 0 {
			return db.Where("1 = 0")
		}
		return db.Where("claim_status IN ?", statuses)
	}
}

func mapError(err error) error {
	return pkg.MapDBError(err, "claim")
}

// claimLogRepository implements domain.ClaimLogRepository.
type claimLogRepository struct {
	db *gorm.DB
}

var (
	logSortFields   = []string{"id", "created_at"}
	logFilterFields = []string{"claim_id", "updated_by", "old_status", "new_status"}
)

// NewClaimLogRepository creates a read-only repository over the audit log.
func NewClaimLogRepository(db *gorm.DB) domain.ClaimLogRepository {
	return &claimLogRepository{db: db}
}

func (r *claimLogRepository) List(ctx context.Context, req domain.PageRequest) (*domain.PageResult[domain.ClaimLog], error) {
	var total int64
	base := r.db.WithContext(ctx).Model(&domain.ClaimLog{}).
		Scopes(pkg.Filter(req, logFilterFields), pkg.Keyword(req, []string{"comment"}))

	if err := base.Count(&total).Error; err != nil {
		return nil, pkg.MapDBError(err, "claim log")
	}

	var entries []domain.ClaimLog
	if err := base.Scopes(
		pkg.Paginate(req),
		pkg.Sort(req, logSortFields),
	).Find(&entries).Error; err != nil {
		return nil, pkg.MapDBError(err, "claim log")
	}

	return pkg.BuildPage(entries, total, req), nil
}
