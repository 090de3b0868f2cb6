package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNew_RequiresBaseURL(t *testing.T) {
	for _, raw := range []string{"", "   ", "/"} {
		if _, err := New(raw, nil, time.Second); err == nil {
			t.Errorf("New(%q) error = nil, want error", raw)
		}
	}
}

func TestNew_TrimsBaseURLAndDefaultsSession(t *testing.T) {
	c, err := New(" http://example.com/api/v1/ ", nil, 0)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.baseURL != "http://example.com/api/v1" {
		t.Errorf("baseURL = %q", c.baseURL)
	}
	if c.Session() == nil {
		t.Fatal("Session() = nil, want empty session")
	}
	if c.Session().Token() != "" {
		t.Error("new session should be logged out")
	}
}

func TestNew_HTTPClientIsCopied(t *testing.T) {
	shared := &http.Client{Timeout: time.Minute}
	c, err := New("http://example.com/api/v1", nil, 3*time.Second, WithHTTPClient(shared))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if shared.Timeout != time.Minute {
		t.Errorf("caller's client timeout changed to %v", shared.Timeout)
	}
	if c.http == shared || c.http.Timeout != 3*time.Second {
		t.Errorf("client timeout = %v, want 3s on a private copy", c.http.Timeout)
	}

	keep, _ := New("http://example.com/api/v1", nil, 0, WithHTTPClient(shared))
	if keep.http.Timeout != time.Minute {
		t.Errorf("zero timeout should keep the caller's, got %v", keep.http.Timeout)
	}
}

func TestClient_LoginSetsSessionAndBearer(t *testing.T) {
	var mu sync.Mutex
	var gotAuth, gotID string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body loginRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Email != "ann@example.com" {
			writeEnvelope(w, http.StatusBadRequest, false, "bad body", nil)
			return
		}
		writeEnvelope(w, http.StatusOK, true, "ok", map[string]any{
			"token":      "tok-1",
			"expires_at": time.Now().Add(time.Hour).Unix(),
			"user":       map[string]any{"id": 7, "name": "Ann", "email": "ann@example.com", "role_code": "A004"},
		})
	})
	mux.HandleFunc("GET /api/v1/auth/me", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotAuth = r.Header.Get("Authorization")
		gotID = r.Header.Get(RequestIDHeader)
		mu.Unlock()
		writeEnvelope(w, http.StatusOK, true, "ok", map[string]any{"id": 7, "name": "Ann", "email": "ann@example.com", "role_code": "A004"})
	})
	api, _ := newTestAPI(t, mux)

	user, err := api.Login(context.Background(), "ann@example.com", "secret")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if user.ID != 7 || user.RoleCode != "A004" {
		t.Errorf("user = %+v", user)
	}
	if api.Session().Token() != "tok-1" {
		t.Errorf("token = %q", api.Session().Token())
	}
	if api.Session().Role() != "A004" {
		t.Errorf("role = %q", api.Session().Role())
	}

	me, err := api.Me(context.Background())
	if err != nil {
		t.Fatalf("Me: %v", err)
	}
	if me.Email != "ann@example.com" {
		t.Errorf("me = %+v", me)
	}

	mu.Lock()
	defer mu.Unlock()
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if _, err := uuid.Parse(gotID); err != nil {
		t.Errorf("%s = %q, want uuid: %v", RequestIDHeader, gotID, err)
	}
}

func TestClient_LoginWithoutTokenFails(t *testing.T) {
	api, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusOK, true, "ok", map[string]any{"token": ""})
	}))

	_, err := api.Login(context.Background(), "a@example.com", "x")
	if !IsTransport(err) {
		t.Fatalf("err = %v, want transport error", err)
	}
	if api.Session().Token() != "" {
		t.Error("session should stay logged out")
	}
}

func TestClient_LogoutClearsSessionEvenOnFailure(t *testing.T) {
	api, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusInternalServerError, false, "boom", nil)
	}))
	api.Session().Set("tok", SessionUser{ID: 1, RoleCode: "A004"}, time.Time{})

	err := api.Logout(context.Background())
	if !IsRemote(err) {
		t.Fatalf("err = %v, want remote error", err)
	}
	if _, ok := api.Session().User(); ok {
		t.Error("session should be cleared")
	}
}

func TestClient_LogoutWithoutSessionSendsNothing(t *testing.T) {
	called := false
	api, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		writeEnvelope(w, http.StatusOK, true, "ok", nil)
	}))

	if err := api.Logout(context.Background()); err != nil {
		t.Fatalf("Logout: %v", err)
	}
	if called {
		t.Error("logout without a token should not reach the server")
	}
}

func TestClient_DoErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		check   func(t *testing.T, err error)
	}{
		{
			name: "non-JSON error page is remote",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				_, _ = w.Write([]byte("<html>bad gateway</html>"))
			},
			check: func(t *testing.T, err error) {
				var re *RemoteError
				if !errors.As(err, &re) || re.Status != http.StatusBadGateway {
					t.Fatalf("err = %v, want remote 502", err)
				}
			},
		},
		{
			name: "undecodable success body is transport",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("not json"))
			},
			check: func(t *testing.T, err error) {
				if !IsTransport(err) {
					t.Fatalf("err = %v, want transport", err)
				}
			},
		},
		{
			name: "success false with 200 is remote",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusOK, false, "nope", nil)
			},
			check: func(t *testing.T, err error) {
				var re *RemoteError
				if !errors.As(err, &re) || re.Message != "nope" {
					t.Fatalf("err = %v, want remote with message", err)
				}
			},
		},
		{
			name: "validation errors populate fields",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    400,
					"success": false,
					"message": "validation failed",
					"errors":  map[string]string{"amount": "must be greater than 0"},
				})
			},
			check: func(t *testing.T, err error) {
				var re *RemoteError
				if !errors.As(err, &re) {
					t.Fatalf("err = %v, want remote", err)
				}
				if re.Fields["amount"] != "must be greater than 0" {
					t.Errorf("Fields = %v", re.Fields)
				}
				if message(err) != "validation failed" {
					t.Errorf("message = %q", message(err))
				}
			},
		},
		{
			name: "data of the wrong shape is transport",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeEnvelope(w, http.StatusOK, true, "ok", "a string")
			},
			check: func(t *testing.T, err error) {
				if !IsTransport(err) {
					t.Fatalf("err = %v, want transport", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api, _ := newTestAPI(t, tt.handler)
			var out struct {
				ID int `json:"id"`
			}
			err := api.Do(context.Background(), http.MethodGet, "/thing", nil, &out)
			tt.check(t, err)
		})
	}
}

func TestClient_DoUnreachableServer(t *testing.T) {
	api, srv := newTestAPI(t, http.NotFoundHandler())
	srv.Close()

	err := api.Do(context.Background(), http.MethodGet, "/thing", nil, nil)
	if !IsTransport(err) {
		t.Fatalf("err = %v, want transport", err)
	}
	if !strings.HasPrefix(message(err), "could not reach the server") {
		t.Errorf("message = %q", message(err))
	}
}

func TestClient_DoSendsJSONBody(t *testing.T) {
	var got map[string]any
	var contentType string
	api, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeEnvelope(w, http.StatusOK, true, "ok", nil)
	}))

	if err := api.Do(context.Background(), http.MethodPost, "things", map[string]any{"name": "x"}, nil); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if contentType != "application/json" {
		t.Errorf("Content-Type = %q", contentType)
	}
	if got["name"] != "x" {
		t.Errorf("body = %v", got)
	}
}

func TestClient_RefreshReplacesToken(t *testing.T) {
	renewedAt := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	var gotAuth string
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeEnvelope(w, http.StatusOK, true, "success", map[string]any{
			"token":      "tok-2",
			"token_type": "Bearer",
			"expires_at": renewedAt.Unix(),
			"user":       map[string]any{"id": 7, "name": "Ann", "role_code": "A003"},
		})
	})
	api, _ := newTestAPI(t, mux)
	api.Session().Set("tok-1", SessionUser{ID: 7, Name: "Ann", RoleCode: "A004"}, time.Now().Add(time.Minute))

	user, err := api.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if gotAuth != "Bearer tok-1" {
		t.Errorf("Authorization = %q, want the old token", gotAuth)
	}
	if api.Session().Token() != "tok-2" || !api.Session().ExpiresAt().Equal(renewedAt) {
		t.Errorf("session token = %q expires = %v", api.Session().Token(), api.Session().ExpiresAt())
	}
	if user.RoleCode != "A003" || api.Session().Role() != "A003" {
		t.Errorf("role not refreshed: user = %+v session = %q", user, api.Session().Role())
	}
}

func TestClient_RefreshFailureKeepsSession(t *testing.T) {
	api, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(w, http.StatusForbidden, false, "account is blocked", nil)
	}))
	api.Session().Set("tok-1", SessionUser{ID: 7, RoleCode: "A004"}, time.Time{})

	_, err := api.Refresh(context.Background())
	var re *RemoteError
	if !errors.As(err, &re) || re.Status != http.StatusForbidden {
		t.Fatalf("error = %v, want RemoteError 403", err)
	}
	if api.Session().Token() != "tok-1" {
		t.Errorf("token = %q, want the session untouched", api.Session().Token())
	}
}

func TestClient_RefreshWithoutSession(t *testing.T) {
	called := false
	api, _ := newTestAPI(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	_, err := api.Refresh(context.Background())
	var ge *GuardError
	if !errors.As(err, &ge) {
		t.Fatalf("error = %v, want GuardError", err)
	}
	if called {
		t.Error("Refresh without a session contacted the server")
	}
}
