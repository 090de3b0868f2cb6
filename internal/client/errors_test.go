package client

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/simp-lee/claimdesk/internal/domain"
)

func TestRemoteError_UnwrapsToDomainCode(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
	}{
		{http.StatusConflict, domain.IsConflict},
		{http.StatusForbidden, domain.IsForbidden},
		{http.StatusNotFound, domain.IsNotFound},
		{http.StatusBadRequest, domain.IsValidation},
		{http.StatusUnauthorized, domain.IsUnauthorized},
		{http.StatusInternalServerError, domain.IsInternal},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var err error = &RemoteError{Status: tt.status, Message: "claim status was changed by another request"}
			if !tt.check(err) {
				t.Errorf("status %d did not map to its domain code", tt.status)
			}
		})
	}

	if unwrapped := (&RemoteError{Status: http.StatusBadGateway}).Unwrap(); unwrapped != nil {
		t.Errorf("502 unwrapped to %v, want nil", unwrapped)
	}
}

func TestErrorClasses(t *testing.T) {
	transport := &TransportError{Method: http.MethodPost, Path: "/claims/search", Err: errors.New("connection refused")}
	remote := &RemoteError{Status: http.StatusConflict, Message: "stale status"}
	guard := &GuardError{Err: domain.NewAppError(domain.CodeForbidden, "approvers only", nil)}

	if !IsTransport(transport) || IsRemote(transport) || IsGuard(transport) {
		t.Error("transport error misclassified")
	}
	if !IsRemote(remote) || IsTransport(remote) || IsGuard(remote) {
		t.Error("remote error misclassified")
	}
	if !IsGuard(guard) || !domain.IsForbidden(guard) {
		t.Error("guard error misclassified")
	}

	if got := transport.Error(); got != "POST /claims/search: connection refused" {
		t.Errorf("transport Error() = %q", got)
	}
	if got := (&RemoteError{Status: http.StatusBadGateway}).Error(); !strings.Contains(got, "Bad Gateway") {
		t.Errorf("remote Error() without message = %q", got)
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"remote message", &RemoteError{Status: http.StatusConflict, Message: "stale status"}, "stale status"},
		{"guard reason", &GuardError{Err: errors.New("comment is required")}, "comment is required"},
		{"transport", &TransportError{Err: errors.New("timeout")}, "could not reach the server: timeout"},
		{"plain", errors.New("boom"), "boom"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := message(tt.err); got != tt.want {
				t.Errorf("message() = %q, want %q", got, tt.want)
			}
		})
	}
}
