package department

// CreateDepartmentRequest is the body of POST /departments.
type CreateDepartmentRequest struct {
	Code        string `json:"department_code" binding:"required,max=50"`
	Name        string `json:"department_name" binding:"required,max=100"`
	Description string `json:"description"`
}
