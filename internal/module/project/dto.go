package project

import (
	"time"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// ProjectRequest is the body of project create and update calls. Omitting
// project_members on update keeps the current members; an empty list
// removes them all.
type ProjectRequest struct {
	Code        string          `json:"project_code" binding:"required,max=50"`
	Name        string          `json:"project_name" binding:"required,max=200"`
	Department  string          `json:"project_department" binding:"max=50"`
	Description string          `json:"project_description"`
	Status      string          `json:"project_status" binding:"omitempty,oneof=New Active Pending Closed Canceled"`
	StartDate   time.Time       `json:"project_start_date"`
	EndDate     time.Time       `json:"project_end_date"`
	Members     []MemberRequest `json:"project_members" binding:"omitempty,dive"`
}

// MemberRequest assigns one user to the project.
type MemberRequest struct {
	UserID uint   `json:"user_id" binding:"required"`
	Role   string `json:"project_role" binding:"required,max=10"`
}

// ChangeStatusRequest is the body of PUT /projects/change-status.
type ChangeStatusRequest struct {
	ID      uint   `json:"_id" binding:"required"`
	Status  string `json:"project_status" binding:"required,oneof=New Active Pending Closed Canceled"`
	Comment string `json:"project_comment" binding:"max=500"`
}

func (r ProjectRequest) input() domain.ProjectInput {
	in := domain.ProjectInput{
		Code:        r.Code,
		Name:        r.Name,
		Department:  r.Department,
		Description: r.Description,
		Status:      r.Status,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
	}
	if r.Members != nil {
		in.Members = make([]domain.ProjectMember, len(r.Members))
		for i, m := range r.Members {
			in.Members[i] = domain.ProjectMember{UserID: m.UserID, Role: m.Role}
		}
	}
	return in
}
