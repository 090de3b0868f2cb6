package client

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/simp-lee/claimdesk/internal/domain"
)

var (
	// ErrClosed is returned by operations on a SearchClient after Close.
	ErrClosed = errors.New("search client is closed")
	// ErrSuperseded is returned by Fetch when a newer request was issued
	// before this one completed; its response was discarded.
	ErrSuperseded = errors.New("response superseded by a newer request")
)

// TransportError reports a request that never produced a decodable response:
// connection failures, timeouts, cancellation, or a body that is not the
// expected JSON envelope.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// RemoteError reports a response where the server answered with
// success=false or a non-2xx status.
type RemoteError struct {
	Status  int
	Message string
	// Fields holds per-field messages from a validation failure, if any.
	Fields map[string]string
}

func (e *RemoteError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("server rejected request (%d): %s", e.Status, msg)
}

// Unwrap exposes the status as a *domain.AppError so callers can use
// domain.IsConflict and friends on server rejections too.
func (e *RemoteError) Unwrap() error {
	code := domain.CodeForHTTPStatus(e.Status)
	if code == 0 {
		return nil
	}
	return domain.NewAppError(code, e.Message, nil)
}

// GuardError reports an operation the client refused to send. Err is
// usually a *domain.AppError, so domain.IsConflict and friends still work.
type GuardError struct {
	Err error
}

func (e *GuardError) Error() string {
	return "blocked before sending: " + e.Err.Error()
}

func (e *GuardError) Unwrap() error {
	return e.Err
}

// IsTransport reports whether err is or wraps a *TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsRemote reports whether err is or wraps a *RemoteError.
func IsRemote(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// IsGuard reports whether err is or wraps a *GuardError.
func IsGuard(err error) bool {
	var ge *GuardError
	return errors.As(err, &ge)
}

// message returns the text a user should see for err.
func message(err error) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	var ge *GuardError
	if errors.As(err, &ge) {
		return ge.Err.Error()
	}
	var te *TransportError
	if errors.As(err, &te) {
		return "could not reach the server: " + te.Err.Error()
	}
	return err.Error()
}
