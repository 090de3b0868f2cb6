package pkg

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/simp-lee/claimdesk/internal/domain"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testInput is used to generate real validator.ValidationErrors.
type testInput struct {
	Name  string `validate:"required"`
	Email string `validate:"required,email"`
}

// claimForm mirrors the shape of the claim DTOs so messages are checked
// against the tags the handlers actually use.
type claimForm struct {
	Name       string    `json:"claim_name" binding:"required,max=10"`
	Email      string    `json:"notify_email" binding:"omitempty,email"`
	Approver   string    `json:"approver" binding:"omitempty,min=3"`
	Kind       string    `json:"kind" binding:"omitempty,oneof=work travel"`
	StartDate  time.Time `json:"claim_start_date" binding:"required"`
	EndDate    time.Time `json:"claim_end_date" binding:"required,gtefield=StartDate"`
	TotalHours float64   `json:"total_work_time" binding:"required,gt=0"`
}

// newResponseTestContext creates a gin context backed by an httptest.ResponseRecorder.
func newResponseTestContext() (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	return c, w
}

// newResponseTestContextWithBody creates a gin context with a JSON request body.
func newResponseTestContextWithBody(body string) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	return c, w
}

// makeValidationErrors validates an empty testInput and returns the resulting
// validator.ValidationErrors.
func makeValidationErrors(t *testing.T) validator.ValidationErrors {
	t.Helper()
	validate := validator.New()
	err := validate.Struct(testInput{})
	if err == nil {
		t.Fatal("expected validation error, got nil")
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		t.Fatalf("expected validator.ValidationErrors, got %T", err)
	}
	return ve
}

func TestSuccess(t *testing.T) {
	c, w := newResponseTestContext()

	data := map[string]string{"greeting": "hello"}
	Success(c, data)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusOK {
		t.Errorf("expected code %d, got %d", http.StatusOK, resp.Code)
	}
	if resp.Message != "success" {
		t.Errorf("expected message %q, got %q", "success", resp.Message)
	}
	if !resp.Success {
		t.Error("expected success=true")
	}
	if resp.Data == nil {
		t.Error("expected non-nil data")
	}
}

func TestCreated(t *testing.T) {
	c, w := newResponseTestContext()

	Created(c, "claim created", map[string]int{"id": 7})

	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d", http.StatusCreated, w.Code)
	}
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if !resp.Success || resp.Message != "claim created" {
		t.Errorf("unexpected envelope: %+v", resp)
	}
}

func TestSuccess_NilData(t *testing.T) {
	c, w := newResponseTestContext()

	Success(c, nil)

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusOK {
		t.Errorf("expected code %d, got %d", http.StatusOK, resp.Code)
	}
	if resp.Data != nil {
		t.Errorf("expected nil data, got %v", resp.Data)
	}
}

func TestError_AppError_NotFound(t *testing.T) {
	c, w := newResponseTestContext()

	appErr := domain.NewAppError(domain.CodeNotFound, "claim not found", nil)
	Error(c, appErr)

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusNotFound {
		t.Errorf("expected code %d, got %d", http.StatusNotFound, resp.Code)
	}
	if resp.Message != "claim not found" {
		t.Errorf("expected message %q, got %q", "claim not found", resp.Message)
	}
	if resp.Success {
		t.Error("expected success=false for error response")
	}
	if resp.Data != nil {
		t.Errorf("expected nil data, got %v", resp.Data)
	}
}

func TestError_AppError_AlreadyExists(t *testing.T) {
	c, w := newResponseTestContext()

	appErr := domain.NewAppError(domain.CodeAlreadyExists, "email taken", nil)
	Error(c, appErr)

	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d", http.StatusConflict, w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusConflict {
		t.Errorf("expected code %d, got %d", http.StatusConflict, resp.Code)
	}
	if resp.Message != "email taken" {
		t.Errorf("expected message %q, got %q", "email taken", resp.Message)
	}
}

func TestError_AppError_Validation(t *testing.T) {
	c, w := newResponseTestContext()

	appErr := domain.NewAppError(domain.CodeValidation, "bad input", nil)
	Error(c, appErr)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
}

func TestError_GenericError(t *testing.T) {
	c, w := newResponseTestContext()

	Error(c, errors.New("something broke"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status %d, got %d", http.StatusInternalServerError, w.Code)
	}

	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusInternalServerError {
		t.Errorf("expected code %d, got %d", http.StatusInternalServerError, resp.Code)
	}
	if resp.Message != "internal error" {
		t.Errorf("expected message %q, got %q", "internal error", resp.Message)
	}
}

func TestList(t *testing.T) {
	c, w := newResponseTestContext()

	type item struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	result := BuildPage([]item{{ID: 1, Name: "Alice"}, {ID: 2, Name: "Bob"}}, 2,
		domain.PageRequest{Page: 1, PageSize: 20})
	List(c, result)

	if w.Code != http.StatusOK {
		t.Errorf("expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		Code    int                     `json:"code"`
		Success bool                    `json:"success"`
		Message string                  `json:"message"`
		Data    domain.PageResult[item] `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Code != http.StatusOK || !resp.Success {
		t.Errorf("unexpected envelope: code=%d success=%v", resp.Code, resp.Success)
	}
	if len(resp.Data.Items) != 2 {
		t.Errorf("expected 2 items, got %d", len(resp.Data.Items))
	}
	if resp.Data.PageInfo.TotalItems != 2 {
		t.Errorf("expected totalItems 2, got %d", resp.Data.PageInfo.TotalItems)
	}
	if resp.Data.PageInfo.TotalPages != 1 {
		t.Errorf("expected totalPages 1, got %d", resp.Data.PageInfo.TotalPages)
	}

	// The wire keys are part of the client contract.
	body := w.Body.String()
	for _, key := range []string{`"pageData"`, `"pageInfo"`, `"pageNum"`, `"totalItems"`} {
		if !strings.Contains(body, key) {
			t.Errorf("expected body to contain %s, got %s", key, body)
		}
	}
}

func TestError_RecordsCauseOnContext(t *testing.T) {
	c, _ := newResponseTestContext()

	cause := errors.New("disk full")
	Error(c, domain.NewAppError(domain.CodeInternal, "could not save claim", cause))

	if len(c.Errors) != 1 {
		t.Fatalf("expected 1 recorded error, got %d", len(c.Errors))
	}
	if !errors.Is(c.Errors[0].Err, cause) {
		t.Errorf("recorded error %v does not wrap cause", c.Errors[0].Err)
	}
}

func TestValidationError_WithoutObjUsesLowercasedFields(t *testing.T) {
	c, w := newResponseTestContext()

	ValidationError(c, makeValidationErrors(t))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
	}
	var resp ValidationErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Message != "validation error" || resp.Success {
		t.Errorf("unexpected envelope: %+v", resp)
	}
	for _, field := range []string{"name", "email"} {
		if resp.Errors[field] != "This field is required" {
			t.Errorf("Errors[%q] = %q", field, resp.Errors[field])
		}
	}
}

func TestValidationError_NonValidationError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "plain decode error", err: errors.New("unexpected EOF"), wantMsg: "bad request"},
		{name: "domain type rejected its value", err: domain.NewAppError(domain.CodeValidation, `invalid claim status "Lost"`, nil), wantMsg: `invalid claim status "Lost"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newResponseTestContext()
			ValidationError(c, tt.err)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}
			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if resp.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", resp.Message, tt.wantMsg)
			}
		})
	}
}

func TestBindAndValidate_ClaimFormMessages(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErrors map[string]string
	}{
		{
			name: "missing required fields",
			body: `{}`,
			wantErrors: map[string]string{
				"claim_name":       "This field is required",
				"claim_start_date": "This field is required",
				"claim_end_date":   "This field is required",
				"total_work_time":  "This field is required",
			},
		},
		{
			name: "format and range rules",
			body: `{"claim_name":"March overtime","notify_email":"nope","approver":"al","kind":"leave",
				"claim_start_date":"2026-03-10T00:00:00Z","claim_end_date":"2026-03-01T00:00:00Z","total_work_time":-1}`,
			wantErrors: map[string]string{
				"claim_name":      "Must be at most 10 characters",
				"notify_email":    "Must be a valid email address",
				"approver":        "Must be at least 3 characters",
				"kind":            "Must be one of: work, travel",
				"claim_end_date":  "Must not be before claim_start_date",
				"total_work_time": "Must be greater than 0",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := newResponseTestContextWithBody(tt.body)

			var form claimForm
			if BindAndValidate(c, &form) {
				t.Fatal("expected BindAndValidate to fail")
			}
			if w.Code != http.StatusBadRequest {
				t.Fatalf("expected status %d, got %d", http.StatusBadRequest, w.Code)
			}

			var resp ValidationErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if len(resp.Errors) != len(tt.wantErrors) {
				t.Errorf("errors = %v, want %d entries", resp.Errors, len(tt.wantErrors))
			}
			for field, want := range tt.wantErrors {
				if got := resp.Errors[field]; got != want {
					t.Errorf("Errors[%q] = %q, want %q", field, got, want)
				}
			}
		})
	}
}

func TestBindAndValidate_InvalidJSON(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"claim_name":`)

	var form claimForm
	if BindAndValidate(c, &form) {
		t.Fatal("expected BindAndValidate to fail for invalid JSON")
	}
	var resp Response
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if w.Code != http.StatusBadRequest || resp.Message != "bad request" {
		t.Errorf("status %d, message %q", w.Code, resp.Message)
	}
}

func TestBindAndValidate_ValidClaimForm(t *testing.T) {
	c, w := newResponseTestContextWithBody(`{"claim_name":"Overtime","claim_start_date":"2026-03-01T00:00:00Z",
		"claim_end_date":"2026-03-01T00:00:00Z","total_work_time":7.5}`)

	var form claimForm
	if !BindAndValidate(c, &form) {
		t.Fatalf("expected BindAndValidate to succeed, body %s", w.Body.String())
	}
	if w.Body.Len() != 0 {
		t.Errorf("expected empty body on success, got %q", w.Body.String())
	}
	if form.Name != "Overtime" || form.TotalHours != 7.5 {
		t.Errorf("form = %+v", form)
	}
}
