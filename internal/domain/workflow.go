package domain

import (
	"fmt"
	"strings"
)

// ClaimAction names a user action that moves a claim between statuses.
type ClaimAction string

// Claim workflow actions.
const (
	ActionRequestApproval ClaimAction = "request_approval"
	ActionCancel          ClaimAction = "cancel"
	ActionApprove         ClaimAction = "approve"
	ActionReject          ClaimAction = "reject"
	ActionReturnToDraft   ClaimAction = "return_to_draft"
	ActionMarkPaid        ClaimAction = "mark_paid"
)

// CommentRule describes how a transition treats the comment field.
type CommentRule int

const (
	CommentOptional CommentRule = iota
	CommentRequired
	CommentIgnored
)

// Transition is one allowed edge of the claim state machine.
type Transition struct {
	From    ClaimStatus
	Action  ClaimAction
	To      ClaimStatus
	Role    string
	Comment CommentRule
}

// transitions is the complete claim state machine. Any edge not listed here
// is invalid.
var transitions = []Transition{
	{From: StatusDraft, Action: ActionRequestApproval, To: StatusPendingApproval, Role: RoleMember},
	{From: StatusDraft, Action: ActionCancel, To: StatusCanceled, Role: RoleMember},
	{From: StatusPendingApproval, Action: ActionApprove, To: StatusApproved, Role: RoleApprover, Comment: CommentIgnored},
	{From: StatusPendingApproval, Action: ActionReject, To: StatusRejected, Role: RoleApprover, Comment: CommentRequired},
	{From: StatusPendingApproval, Action: ActionReturnToDraft, To: StatusDraft, Role: RoleApprover, Comment: CommentRequired},
	{From: StatusApproved, Action: ActionMarkPaid, To: StatusPaid, Role: RoleFinance},
}

// Transitions returns a copy of the state machine edges.
func Transitions() []Transition {
	out := make([]Transition, len(transitions))
	copy(out, transitions)
	return out
}

// LookupAction returns the edge leaving from via action.
func LookupAction(from ClaimStatus, action ClaimAction) (Transition, bool) {
	for _, t := range transitions {
		if t.From == from && t.Action == action {
			return t, true
		}
	}
	return Transition{}, false
}

// LookupTarget returns the edge leaving from that ends in to. Each
// (from, to) pair appears at most once in the table.
func LookupTarget(from, to ClaimStatus) (Transition, bool) {
	for _, t := range transitions {
		if t.From == from && t.To == to {
			return t, true
		}
	}
	return Transition{}, false
}

// Authorize checks the actor role and the comment rule for t and returns the
// comment that should be recorded.
func (t Transition) Authorize(role, comment string) (string, error) {
	if role != t.Role {
		return "", NewAppError(CodeForbidden,
			fmt.Sprintf("role %s cannot %s a claim", role, t.Action), nil)
	}
	comment = strings.TrimSpace(comment)
	switch t.Comment {
	case CommentRequired:
		if comment == "" {
			return "", NewAppError(CodeValidation,
				fmt.Sprintf("a comment is required to %s a claim", t.Action), nil)
		}
	case CommentIgnored:
		comment = ""
	}
	return comment, nil
}

// CheckAction validates moving a claim in status from via action on behalf of
// role. It returns the matching edge and the comment to record.
func CheckAction(from ClaimStatus, action ClaimAction, role, comment string) (Transition, string, error) {
	t, ok := LookupAction(from, action)
	if !ok {
		return Transition{}, "", NewAppError(CodeConflict,
			fmt.Sprintf("cannot %s a claim in status %q", action, from), nil)
	}
	normalized, err := t.Authorize(role, comment)
	if err != nil {
		return Transition{}, "", err
	}
	return t, normalized, nil
}

// CheckTarget validates moving a claim from one status to another on behalf of
// role.
func CheckTarget(from, to ClaimStatus, role, comment string) (Transition, string, error) {
	if !to.Valid() {
		return Transition{}, "", NewAppError(CodeValidation, fmt.Sprintf("invalid claim status %q", to), nil)
	}
	t, ok := LookupTarget(from, to)
	if !ok {
		return Transition{}, "", NewAppError(CodeConflict,
			fmt.Sprintf("cannot move a claim from %q to %q", from, to), nil)
	}
	normalized, err := t.Authorize(role, comment)
	if err != nil {
		return Transition{}, "", err
	}
	return t, normalized, nil
}
