package auth

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAuthModule_Routes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewModule(&AuthHandler{}).RegisterRoutes(r.Group("/api/v1"))

	registered := make(map[string]bool)
	for _, ri := range r.Routes() {
		registered[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		http.MethodPost + " /api/v1/auth/login",
		http.MethodPost + " /api/v1/auth/register",
		http.MethodGet + " /api/v1/auth/me",
		http.MethodPost + " /api/v1/auth/refresh",
		http.MethodPost + " /api/v1/auth/logout",
	} {
		if !registered[want] {
			t.Errorf("route %s not registered", want)
		}
	}
	if len(r.Routes()) != 5 {
		t.Errorf("registered %d routes, want 5", len(r.Routes()))
	}
}

func TestNewModule_NilHandlerPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil handler")
		}
	}()
	NewModule(nil)
}
