package client

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// maxHistory is the page size used when loading a claim's audit log.
const maxHistory = 100

type changeStatusRequest struct {
	ID      uint               `json:"_id"`
	Status  domain.ClaimStatus `json:"claim_status"`
	Comment string             `json:"comment"`
}

// Workflow moves claims through their lifecycle on behalf of the session
// user. Every action is checked against domain.CheckAction before anything
// is sent; the held claim list is updated only after the server confirms.
type Workflow struct {
	api      *Client
	claims   *SearchClient[domain.Claim]
	notifier Notifier
	refetch  bool

	mu       sync.Mutex
	inFlight map[uint]bool
}

// WorkflowOption configures a Workflow.
type WorkflowOption func(*Workflow)

// WithRefetch makes the workflow refetch the claim list after each
// successful transition.
func WithRefetch(enabled bool) WorkflowOption {
	return func(w *Workflow) {
		w.refetch = enabled
	}
}

// WithWorkflowNotifier sets where outcomes are surfaced. A nil Notifier
// silences them.
func WithWorkflowNotifier(n Notifier) WorkflowOption {
	return func(w *Workflow) {
		w.notifier = n
	}
}

// NewWorkflow returns a Workflow that keeps claims, which may be nil, in
// step with confirmed transitions.
func NewWorkflow(api *Client, claims *SearchClient[domain.Claim], opts ...WorkflowOption) *Workflow {
	w := &Workflow{
		api:      api,
		claims:   claims,
		notifier: LogNotifier{},
		inFlight: make(map[uint]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Transition applies action to claim and returns the status the server
// confirmed. The comment is required for reject and return to draft and is
// dropped for approve.
//
// When the server answers 409 the held list is refetched so it shows the
// status another user set.
//
// A GuardError is returned, and no request is sent, when the session is not
// logged in, the action does not leave claim.Status, the session role may
// not perform it, a required comment is missing, or another transition of
// the same claim is still in flight.
func (w *Workflow) Transition(ctx context.Context, claim domain.Claim, action domain.ClaimAction, comment string) (domain.ClaimStatus, error) {
	tr, comment, err := w.check(claim, action, comment)
	if err != nil {
		notifyError(ctx, w.notifier, "claim "+strconv.FormatUint(uint64(claim.ID), 10), err)
		return "", err
	}
	defer w.release(claim.ID)

	req := changeStatusRequest{ID: claim.ID, Status: tr.To, Comment: comment}
	var updated domain.Claim
	if err := w.api.Do(ctx, http.MethodPut, "/claims/change-status", req, &updated); err != nil {
		notifyError(ctx, w.notifier, "claim "+strconv.FormatUint(uint64(claim.ID), 10), err)
		// A conflict means the held status is stale; show the server's.
		if domain.IsConflict(err) && w.claims != nil {
			_ = w.claims.Fetch(ctx)
		}
		return "", err
	}

	status := tr.To
	if updated.ID == claim.ID && updated.Status.Valid() {
		status = updated.Status
	}

	if w.claims != nil {
		w.claims.UpdateItem(
			func(c domain.Claim) bool { return c.ID == claim.ID },
			func(c *domain.Claim) {
				c.Status = status
				if comment != "" {
					c.Comment = comment
				}
			},
		)
		if w.refetch {
			// Failures are surfaced by the search client; the transition itself succeeded.
			_ = w.claims.Fetch(ctx)
		}
	}

	notify(ctx, w.notifier, Notification{
		Level:   slog.LevelInfo,
		Title:   "claim " + strconv.FormatUint(uint64(claim.ID), 10),
		Message: string(action) + ": " + string(claim.Status) + " -> " + string(status),
	})
	return status, nil
}

// Allowed returns the actions the session user may take on claim, in table
// order. It does not check comments.
func (w *Workflow) Allowed(claim domain.Claim) []domain.ClaimAction {
	if claim.Status.Terminal() {
		return nil
	}
	role := w.api.Session().Role()
	var out []domain.ClaimAction
	for _, t := range domain.Transitions() {
		if t.From == claim.Status && t.Role == role {
			out = append(out, t.Action)
		}
	}
	return out
}

func (w *Workflow) check(claim domain.Claim, action domain.ClaimAction, comment string) (domain.Transition, string, error) {
	if _, ok := w.api.Session().User(); !ok {
		return domain.Transition{}, "", &GuardError{Err: domain.NewAppError(domain.CodeUnauthorized, "not logged in", nil)}
	}
	if claim.ID == 0 {
		return domain.Transition{}, "", &GuardError{Err: domain.NewAppError(domain.CodeValidation, "claim id is required", nil)}
	}
	tr, normalized, err := domain.CheckAction(claim.Status, action, w.api.Session().Role(), comment)
	if err != nil {
		return domain.Transition{}, "", &GuardError{Err: err}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.inFlight[claim.ID] {
		return domain.Transition{}, "", &GuardError{Err: domain.NewAppError(domain.CodeConflict, "a transition of this claim is already in progress", nil)}
	}
	w.inFlight[claim.ID] = true
	return tr, normalized, nil
}

func (w *Workflow) release(id uint) {
	w.mu.Lock()
	delete(w.inFlight, id)
	w.mu.Unlock()
}

// History returns the audit entries of a claim, oldest first.
func (w *Workflow) History(ctx context.Context, claimID uint) ([]domain.ClaimLog, error) {
	q := Query{
		Filters:  map[string]string{"claim_id": strconv.FormatUint(uint64(claimID), 10)},
		PageNum:  1,
		PageSize: maxHistory,
		Sort:     "id:asc",
	}
	var page domain.PageResult[domain.ClaimLog]
	if err := w.api.Do(ctx, http.MethodPost, EndpointClaimLogs, q.request(), &page); err != nil {
		notifyError(ctx, w.notifier, "claim history", err)
		return nil, err
	}
	if page.Items == nil {
		return []domain.ClaimLog{}, nil
	}
	return page.Items, nil
}
