package claim

import (
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// ClaimRequest is the body of claim create and draft update calls.
type ClaimRequest struct {
	Name       string    `json:"claim_name" binding:"required,max=200"`
	ProjectID  uint      `json:"project_id" binding:"required"`
	ApproverID uint      `json:"approver_id" binding:"required"`
	StartDate  time.Time `json:"claim_start_date" binding:"required"`
	EndDate    time.Time `json:"claim_end_date" binding:"required,gtefield=StartDate"`
	TotalHours float64   `json:"total_work_time" binding:"required,gt=0"`
}

func (r ClaimRequest) input() domain.ClaimInput {
	return domain.ClaimInput{
		Name:       r.Name,
		ProjectID:  r.ProjectID,
		ApproverID: r.ApproverID,
		StartDate:  r.StartDate,
		EndDate:    r.EndDate,
		TotalHours: r.TotalHours,
	}
}

// ChangeStatusRequest is the body of PUT /claims/change-status.
type ChangeStatusRequest struct {
	ID      uint               `json:"_id" binding:"required"`
	Status  domain.ClaimStatus `json:"claim_status" binding:"required,claimstatus"`
	Comment string             `json:"comment" binding:"max=1000"`
}

var registerOnce sync.Once

// registerValidation adds the claimstatus tag to gin's validator.
func registerValidation() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		if err := v.RegisterValidation("claimstatus", validClaimStatus); err != nil {
			panic("claim: register claimstatus validation: " + err.Error())
		}
	})
}

func validClaimStatus(fl validator.FieldLevel) bool {
	return domain.ClaimStatus(fl.Field().String()).Valid()
}
