package httpkit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos_invoicing_backend/platform/apperr"
	"pos_invoicing_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

type testJWTConfig struct{ secret string }

func (c testJWTConfig) GetJWTAccessSecret() string { return c.secret }

func newTestRouter(middleware ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware...)
	r.GET("/whoami", func(c *gin.Context) {
		id := GetIdentity(c)
		OK(c, gin.H{"subject": id.Subject(), "cashier": id.HasRole("cashier")})
	})
	return r
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return token
}

func TestAuthRequired(t *testing.T) {
	cfg := testJWTConfig{secret: "s3cret"}
	valid := signToken(t, cfg.secret, jwt.MapClaims{
		"sub":   "pos-01",
		"type":  "access",
		"roles": []string{"cashier"},
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	refresh := signToken(t, cfg.secret, jwt.MapClaims{"sub": "pos-01", "type": "refresh"})
	foreign := signToken(t, "other", jwt.MapClaims{"sub": "pos-01", "type": "access"})

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"valid", "Bearer " + valid, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong type", "Bearer " + refresh, http.StatusUnauthorized},
		{"wrong secret", "Bearer " + foreign, http.StatusUnauthorized},
	}

	r := newTestRouter(AuthRequired(cfg))
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, w.Code, w.Body.String())
			}
		})
	}
}

func TestAuthDisabledWithoutSecret(t *testing.T) {
	r := newTestRouter(AuthRequired(testJWTConfig{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	r := newTestRouter(RequestID(), RequestLogger(logger.Discard()))

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get(RequestIDHeader); got != "req-42" {
		t.Fatalf("expected request id to be echoed, got %q", got)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("expected generated request id")
	}
}

func TestRateLimit(t *testing.T) {
	limiter := NewIPRateLimiter(rate.Limit(0.001), 1, logger.Discard())
	r := newTestRouter(limiter.RateLimit())

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/whoami", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/whoami", nil))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected statuses %d, %d", first.Code, second.Code)
	}
}

func TestHandleErrorMapsKinds(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		err    error
		status int
	}{
		{apperr.NotFound("sale not found"), http.StatusNotFound},
		{apperr.Validation("invalid payload"), http.StatusBadRequest},
		{apperr.Conflict("already queued"), http.StatusConflict},
		{http.ErrHandlerTimeout, http.StatusInternalServerError},
	}
	for _, tc := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		if !HandleError(c, tc.err) {
			t.Fatalf("expected %v to be handled", tc.err)
		}
		if w.Code != tc.status {
			t.Fatalf("expected %d for %v, got %d", tc.status, tc.err, w.Code)
		}
	}
}
