package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/simp-lee/claimdesk/internal/domain"
)

// RequestIDHeader carries the per-request correlation id. The server echoes
// it and logs it as the request id, or as client_request_id when it does not
// trust upstream ids.
const RequestIDHeader = "X-Request-ID"

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 4 << 20

// Client calls the claimdesk REST API. Every request carries the session's
// bearer token and a fresh request id, and every response is decoded from
// the {code, success, message, data} envelope.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
	logger  *slog.Logger
	newID   func() string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sends requests through a copy of hc. A positive timeout
// passed to New applies to the copy; hc itself is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc == nil {
			return
		}
		cp := *hc
		c.http = &cp
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// New returns a Client for the API rooted at baseURL (for example
// "http://localhost:8080/api/v1").
func New(baseURL string, session *Session, timeout time.Duration, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("client: base url is required")
	}
	if session == nil {
		session = NewSession()
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{},
		session: session,
		logger:  slog.Default(),
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	if timeout > 0 {
		c.http.Timeout = timeout
	}
	return c, nil
}

// Session returns the session the client authenticates with.
func (c *Client) Session() *Session {
	return c.session
}

type envelope struct {
	Code    int               `json:"code"`
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

// Do sends in as the JSON body of method path and decodes the envelope's
// data into out. in and out may be nil.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	url := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	requestID := c.newID()
	req.Header.Set(RequestIDHeader, requestID)
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "api request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", requestID),
			slog.Any("error", err),
		)
		return &TransportError{Method: method, Path: path, Err: err}
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "api request",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", requestID),
		slog.Int("status", resp.StatusCode),
		slog.Duration("latency", time.Since(start)),
	)

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &TransportError{Method: method, Path: path, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return &RemoteError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return &TransportError{Method: method, Path: path, Err: fmt.Errorf("decode response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !env.Success {
		return &RemoteError{Status: resp.StatusCode, Message: env.Message, Fields: env.Errors}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &TransportError{Method: method, Path: path, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token     string      `json:"token"`
	ExpiresAt int64       `json:"expires_at"`
	User      SessionUser `json:"user"`
}

// Login authenticates with email and password and starts the session.
func (c *Client) Login(ctx context.Context, email, password string) (SessionUser, error) {
	var tok tokenResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/login", loginRequest{Email: email, Password: password}, &tok); err != nil {
		return SessionUser{}, err
	}
	return c.startSession(http.MethodPost, "/auth/login", tok)
}

// Refresh trades the session token for a new one and extends the session.
// The session is left unchanged when the server refuses.
func (c *Client) Refresh(ctx context.Context) (SessionUser, error) {
	if c.session.Token() == "" {
		return SessionUser{}, &GuardError{Err: domain.NewAppError(domain.CodeUnauthorized, "not logged in", nil)}
	}
	var tok tokenResponse
	if err := c.Do(ctx, http.MethodPost, "/auth/refresh", nil, &tok); err != nil {
		return SessionUser{}, err
	}
	return c.startSession(http.MethodPost, "/auth/refresh", tok)
}

func (c *Client) startSession(method, path string, tok tokenResponse) (SessionUser, error) {
	if tok.Token == "" {
		return SessionUser{}, &TransportError{Method: method, Path: path, Err: errors.New("response carries no token")}
	}
	var expiresAt time.Time
	if tok.ExpiresAt > 0 {
		expiresAt = time.Unix(tok.ExpiresAt, 0)
	}
	c.session.Set(tok.Token, tok.User, expiresAt)
	return tok.User, nil
}

// Logout revokes the token on the server and clears the session. The
// session is cleared even when the server call fails.
func (c *Client) Logout(ctx context.Context) error {
	defer c.session.Clear()
	if c.session.Token() == "" {
		return nil
	}
	return c.Do(ctx, http.MethodPost, "/auth/logout", nil, nil)
}

// Me returns the server's view of the session user.
func (c *Client) Me(ctx context.Context) (SessionUser, error) {
	var u SessionUser
	err := c.Do(ctx, http.MethodGet, "/auth/me", nil, &u)
	return u, err
}
