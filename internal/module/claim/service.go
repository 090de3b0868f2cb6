package claim

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// financeStatuses are the statuses visible to the finance role.
var financeStatuses = []domain.ClaimStatus{domain.StatusApproved, domain.StatusPaid}

type claimService struct {
	claims   domain.ClaimRepository
	logs     domain.ClaimLogRepository
	projects domain.ProjectRepository
	users    domain.UserRepository
}

// NewClaimService creates a ClaimService. projects and users are used to
// check the references of a claim.
func NewClaimService(
	claims domain.ClaimRepository,
	logs domain.ClaimLogRepository,
	projects domain.ProjectRepository,
	users domain.UserRepository,
) domain.ClaimService {
	return &claimService{claims: claims, logs: logs, projects: projects, users: users}
}

// CreateClaim stores a new Draft claim owned by actor.
func (s *claimService) CreateClaim(ctx context.Context, actor domain.Actor, in domain.ClaimInput) (*domain.Claim, error) {
	if actor.Role != domain.RoleMember {
		return nil, domain.NewAppError(domain.CodeForbidden, "only members can submit claims", nil)
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := s.checkInput(ctx, actor, in); err != nil {
		return nil, err
	}

	claim := &domain.Claim{
		Name:        in.Name,
		RequesterID: actor.UserID,
		ProjectID:   in.ProjectID,
		ApproverID:  in.ApproverID,
		Status:      domain.StatusDraft,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		TotalHours:  in.TotalHours,
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "claim created", "claim_id", claim.ID)
	return claim, nil
}

// UpdateDraft edits a Draft claim. Only its requester may edit it.
func (s *claimService) UpdateDraft(ctx context.Context, actor domain.Actor, id uint, in domain.ClaimInput) (*domain.Claim, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if claim.RequesterID != actor.UserID {
		return nil, domain.NewAppError(domain.CodeForbidden, "only the requester can edit a claim", nil)
	}
	if claim.Status != domain.StatusDraft {
		return nil, domain.NewAppError(domain.CodeConflict, "only draft claims can be edited", nil)
	}
	in.Name = strings.TrimSpace(in.Name)
	if err := s.checkInput(ctx, actor, in); err != nil {
		return nil, err
	}

	claim.Name = in.Name
	claim.ProjectID = in.ProjectID
	claim.ApproverID = in.ApproverID
	claim.StartDate = in.StartDate
	claim.EndDate = in.EndDate
	claim.TotalHours = in.TotalHours
	if err := s.claims.Update(ctx, claim); err != nil {
		return nil, err
	}
	return s.claims.GetByID(ctx, id)
}

// GetClaim returns a claim if actor may see it.
func (s *claimService) GetClaim(ctx context.Context, actor domain.Actor, id uint) (*domain.Claim, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, claim) {
		return nil, domain.NewAppError(domain.CodeForbidden, "claim is not visible to this user", nil)
	}
	return claim, nil
}

// SearchClaims lists claims within scope. Scope restrictions override any
// conflicting condition supplied by the caller.
func (s *claimService) SearchClaims(ctx context.Context, actor domain.Actor, scope domain.ClaimScope, req domain.PageRequest) (*domain.PageResult[domain.Claim], error) {
	filter := make(map[string]string, len(req.Filter)+1)
	for k, v := range req.Filter {
		if k == statusInKey {
			continue
		}
		filter[k] = v
	}

	switch scope {
	case domain.ScopeAll:
		if actor.Role != domain.RoleAdmin {
			return nil, domain.NewAppError(domain.CodeForbidden, "only administrators can search all claims", nil)
		}
	case domain.ScopeClaimer:
		filter["requester_id"] = formatID(actor.UserID)
	case domain.ScopeApproval:
		if actor.Role != domain.RoleApprover {
			return nil, domain.NewAppError(domain.CodeForbidden, "only approvers can search claims for approval", nil)
		}
		filter["approver_id"] = formatID(actor.UserID)
	case domain.ScopeFinance:
		if actor.Role != domain.RoleFinance {
			return nil, domain.NewAppError(domain.CodeForbidden, "only finance can search claims for payment", nil)
		}
		filter[statusInKey] = joinStatuses(financeStatuses)
	default:
		return nil, domain.NewAppError(domain.CodeValidation, "unknown search scope "+string(scope), nil)
	}

	if raw, ok := filter["claim_status"]; ok {
		if _, err := domain.ParseClaimStatus(raw); err != nil {
			return nil, err
		}
	}

	req.Filter = filter
	return s.claims.List(ctx, req)
}

// ChangeStatus moves claim id to target on behalf of actor. The transition
// table decides whether the edge exists and which role may take it; the
// claim's requester or assigned approver must be the actor for their edges.
func (s *claimService) ChangeStatus(ctx context.Context, actor domain.Actor, id uint, target domain.ClaimStatus, comment string) (*domain.Claim, error) {
	claim, err := s.claims.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tr, comment, err := domain.CheckTarget(claim.Status, target, actor.Role, comment)
	if err != nil {
		return nil, err
	}

	switch tr.Role {
	case domain.RoleMember:
		if claim.RequesterID != actor.UserID {
			return nil, domain.NewAppError(domain.CodeForbidden, "only the requester can "+string(tr.Action)+" this claim", nil)
		}
	case domain.RoleApprover:
		if claim.ApproverID != actor.UserID {
			return nil, domain.NewAppError(domain.CodeForbidden, "only the assigned approver can "+string(tr.Action)+" this claim", nil)
		}
	}

	updated, err := s.claims.ChangeStatus(ctx, id, tr.From, tr.To, actor.UserID, comment)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "claim status changed",
		"claim_id", id,
		"action", string(tr.Action),
		"from", string(tr.From),
		"to", string(tr.To),
	)
	return updated, nil
}

// ListLogs returns audit entries. Non-administrators must name a claim they
// can see.
func (s *claimService) ListLogs(ctx context.Context, actor domain.Actor, req domain.PageRequest) (*domain.PageResult[domain.ClaimLog], error) {
	if actor.Role != domain.RoleAdmin {
		raw := req.Filter["claim_id"]
		if raw == "" {
			return nil, domain.NewAppError(domain.CodeValidation, "claim_id is required", nil)
		}
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id == 0 {
			return nil, domain.NewAppError(domain.CodeValidation, "invalid claim_id "+raw, nil)
		}
		if _, err := s.GetClaim(ctx, actor, uint(id)); err != nil {
			return nil, err
		}
	}
	return s.logs.List(ctx, req)
}

// Stats counts the claims actor can see, per status. Every status relevant to
// the actor is present in the result, zero or not.
func (s *claimService) Stats(ctx context.Context, actor domain.Actor) (map[domain.ClaimStatus]int64, error) {
	filter := map[string]string{}
	statuses := domain.ClaimStatuses
	switch actor.Role {
	case domain.RoleMember:
		filter["requester_id"] = formatID(actor.UserID)
	case domain.RoleApprover:
		filter["approver_id"] = formatID(actor.UserID)
	case domain.RoleFinance:
		filter[statusInKey] = joinStatuses(financeStatuses)
		statuses = financeStatuses
	}

	counts, err := s.claims.CountByStatus(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make(map[domain.ClaimStatus]int64, len(statuses))
	for _, st := range statuses {
		out[st] = counts[st]
	}
	return out, nil
}

// checkInput validates in and its references.
func (s *claimService) checkInput(ctx context.Context, actor domain.Actor, in domain.ClaimInput) error {
	if err := in.Validate(); err != nil {
		return err
	}
	if _, err := s.projects.GetByID(ctx, in.ProjectID); err != nil {
		if domain.IsNotFound(err) {
			return domain.NewAppError(domain.CodeValidation, "project does not exist", nil)
		}
		return err
	}
	if in.ApproverID == actor.UserID {
		return domain.NewAppError(domain.CodeValidation, "a claim cannot be approved by its requester", nil)
	}
	approver, err := s.users.GetByID(ctx, in.ApproverID)
	if err != nil {
		if domain.IsNotFound(err) {
			return domain.NewAppError(domain.CodeValidation, "approver does not exist", nil)
		}
		return err
	}
	if approver.RoleCode != domain.RoleApprover || approver.IsBlocked {
		return domain.NewAppError(domain.CodeValidation, "assigned user cannot approve claims", nil)
	}
	return nil
}

func canView(actor domain.Actor, claim *domain.Claim) bool {
	switch actor.Role {
	case domain.RoleAdmin:
		return true
	case domain.RoleFinance:
		for _, st := range financeStatuses {
			if claim.Status == st {
				return true
			}
		}
		return false
	case domain.RoleApprover:
		return claim.ApproverID == actor.UserID || claim.RequesterID == actor.UserID
	default:
		return claim.RequesterID == actor.UserID
	}
}

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func joinStatuses(statuses []domain.ClaimStatus) string {
	parts := make([]string, len(statuses))
	for i, st := range statuses {
		parts[i] = string(st)
	}
	return strings.Join(parts, ",")
}
