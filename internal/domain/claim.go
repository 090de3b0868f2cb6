package domain

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ClaimStatus is the lifecycle state of a claim.
type ClaimStatus string

// Claim statuses. No other value is valid.
const (
	StatusDraft           ClaimStatus = "Draft"
	StatusPendingApproval ClaimStatus = "Pending Approval"
	StatusApproved        ClaimStatus = "Approved"
	StatusRejected        ClaimStatus = "Rejected"
	StatusPaid            ClaimStatus = "Paid"
	StatusCanceled        ClaimStatus = "Canceled"
)

// ClaimStatuses lists every status in lifecycle order.
var ClaimStatuses = []ClaimStatus{
	StatusDraft,
	StatusPendingApproval,
	StatusApproved,
	StatusRejected,
	StatusPaid,
	StatusCanceled,
}

// Valid reports whether s is one of the enumerated statuses.
func (s ClaimStatus) Valid() bool {
	for _, v := range ClaimStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ClaimStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCanceled || s == StatusRejected
}

// ParseClaimStatus converts s to a ClaimStatus, rejecting unknown values.
func ParseClaimStatus(s string) (ClaimStatus, error) {
	st := ClaimStatus(s)
	if !st.Valid() {
		return "", NewAppError(CodeValidation, fmt.Sprintf("invalid claim status %q", s), nil)
	}
	return st, nil
}

// UnmarshalJSON rejects strings that are not a known status.
func (s *ClaimStatus) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseClaimStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Value rejects unknown statuses at write time.
func (s ClaimStatus) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, NewAppError(CodeValidation, fmt.Sprintf("invalid claim status %q", string(s)), nil)
	}
	return string(s), nil
}

// Claim is a staff-submitted request for approval and payment of work time.
type Claim struct {
	BaseModel
	Name        string      `gorm:"column:claim_name;size:200;not null" json:"claim_name"`
	RequesterID uint        `gorm:"not null;index" json:"requester_id"`
	ProjectID   uint        `gorm:"not null;index" json:"project_id"`
	ApproverID  uint        `gorm:"not null;index" json:"approver_id"`
	Status      ClaimStatus `gorm:"column:claim_status;size:32;not null;index" json:"claim_status"`
	StartDate   time.Time   `gorm:"column:claim_start_date" json:"claim_start_date"`
	EndDate     time.Time   `gorm:"column:claim_end_date" json:"claim_end_date"`
	TotalHours  float64     `gorm:"column:total_work_time;not null" json:"total_work_time"`
	Comment     string      `gorm:"type:text" json:"comment"`
}

// ClaimLog is one append-only audit entry recording a status change.
type ClaimLog struct {
	ID        uint        `gorm:"primaryKey" json:"id"`
	ClaimID   uint        `gorm:"not null;index" json:"claim_id"`
	OldStatus ClaimStatus `gorm:"size:32;not null" json:"old_status"`
	NewStatus ClaimStatus `gorm:"size:32;not null" json:"new_status"`
	ActorID   uint        `gorm:"column:updated_by;not null" json:"updated_by"`
	Comment   string      `gorm:"type:text" json:"comment"`
	CreatedAt time.Time   `json:"created_at"`
}

// Actor identifies the authenticated user performing an operation.
type Actor struct {
	UserID uint
	Role   string
}

// ClaimInput carries the editable fields of a draft claim.
type ClaimInput struct {
	Name       string
	ProjectID  uint
	ApproverID uint
	StartDate  time.Time
	EndDate    time.Time
	TotalHours float64
}

// Validate checks required fields and the date-range invariant.
func (in ClaimInput) Validate() error {
	if in.Name == "" {
		return NewAppError(CodeValidation, "claim name is required", nil)
	}
	if in.ProjectID == 0 {
		return NewAppError(CodeValidation, "project is required", nil)
	}
	if in.ApproverID == 0 {
		return NewAppError(CodeValidation, "approver is required", nil)
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return NewAppError(CodeValidation, "start and end dates are required", nil)
	}
	if in.EndDate.Before(in.StartDate) {
		return NewAppError(CodeValidation, "end date must not be before start date", nil)
	}
	if in.TotalHours <= 0 {
		return NewAppError(CodeValidation, "total work time must be positive", nil)
	}
	return nil
}

// ClaimScope selects which claims a search may see.
type ClaimScope string

// Search scopes, one per role-specific list endpoint.
const (
	ScopeAll      ClaimScope = "all"
	ScopeClaimer  ClaimScope = "claimer"
	ScopeApproval ClaimScope = "approval"
	ScopeFinance  ClaimScope = "finance"
)

// ClaimRepository defines the data access interface for claims.
type ClaimRepository interface {
	Create(ctx context.Context, claim *Claim) error
	GetByID(ctx context.Context, id uint) (*Claim, error)
	List(ctx context.Context, req PageRequest) (*PageResult[Claim], error)
	Update(ctx context.Context, claim *Claim) error
	// ChangeStatus moves the claim from `from` to `to` and appends the audit
	// entry atomically. It fails with CodeConflict when the stored status is no
	// longer `from`.
	ChangeStatus(ctx context.Context, id uint, from, to ClaimStatus, actorID uint, comment string) (*Claim, error)
	CountByStatus(ctx context.Context, filter map[string]string) (map[ClaimStatus]int64, error)
}

// ClaimReferences counts the claims that point at other records, so those
// records are not removed out from under a claim.
type ClaimReferences interface {
	CountByProject(ctx context.Context, projectID uint) (int64, error)
	// CountByUser counts claims the user requested or was assigned to approve.
	CountByUser(ctx context.Context, userID uint) (int64, error)
	// CountAwaitingApprover counts claims pending the approver's decision.
	CountAwaitingApprover(ctx context.Context, approverID uint) (int64, error)
}

// ClaimLogRepository defines read access to claim audit entries.
type ClaimLogRepository interface {
	List(ctx context.Context, req PageRequest) (*PageResult[ClaimLog], error)
}

// ClaimService defines the business logic interface for claims.
type ClaimService interface {
	CreateClaim(ctx context.Context, actor Actor, in ClaimInput) (*Claim, error)
	UpdateDraft(ctx context.Context, actor Actor, id uint, in ClaimInput) (*Claim, error)
	GetClaim(ctx context.Context, actor Actor, id uint) (*Claim, error)
	SearchClaims(ctx context.Context, actor Actor, scope ClaimScope, req PageRequest) (*PageResult[Claim], error)
	ChangeStatus(ctx context.Context, actor Actor, id uint, target ClaimStatus, comment string) (*Claim, error)
	ListLogs(ctx context.Context, actor Actor, req PageRequest) (*PageResult[ClaimLog], error)
	Stats(ctx context.Context, actor Actor) (map[ClaimStatus]int64, error)
}
