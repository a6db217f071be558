package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apphttp "pos_invoicing_backend/internal/http"
	"pos_invoicing_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

type testRouterConfig struct {
	origins []string
}

func (c testRouterConfig) GetHTTPAddr() string        { return ":0" }
func (c testRouterConfig) GetCORSAllowAll() bool      { return false }
func (c testRouterConfig) GetCORSOrigins() []string   { return c.origins }
func (c testRouterConfig) GetCORSAllowCreds() bool    { return true }
func (c testRouterConfig) GetJWTAccessSecret() string { return "" }

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type echoModule struct{}

func (echoModule) Name() string { return "echo" }

func (echoModule) RegisterRoutes(routes *apphttp.Routes) {
	routes.Protected.GET("/echo", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
}

func newTestApp(checks ...apphttp.HealthCheck) *apphttp.App {
	gin.SetMode(gin.TestMode)
	return &apphttp.App{
		Config:  testRouterConfig{origins: []string{"https://pos.example.com"}},
		Logger:  logger.Discard(),
		Health:  checks,
		Modules: []apphttp.Module{echoModule{}},
	}
}

func TestHealth(t *testing.T) {
	healthy := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name   string
		checks []apphttp.HealthCheck
		status int
	}{
		{"all up", []apphttp.HealthCheck{{Name: "database", Checker: healthy}, {Name: "queue", Checker: healthy}}, http.StatusOK},
		{"queue down", []apphttp.HealthCheck{{Name: "database", Checker: healthy}, {Name: "queue", Checker: down}}, http.StatusServiceUnavailable},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine := New(newTestApp(tc.checks...))
			w := httptest.NewRecorder()
			engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestModulesAreMounted(t *testing.T) {
	engine := New(newTestApp())

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/echo", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected request id header")
	}
}

func TestCORSAllowsConfiguredOrigin(t *testing.T) {
	engine := New(newTestApp())

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/echo", nil)
	req.Header.Set("Origin", "https://pos.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://pos.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
