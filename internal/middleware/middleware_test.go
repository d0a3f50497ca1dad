package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type mockResolver struct {
	res role.Resolution
	err error
}

func (m *mockResolver) Resolve(ctx context.Context, email string) (role.Resolution, error) {
	return m.res, m.err
}

func newRoleRouter(resolver RoleResolver, allowed ...role.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	auth := NewAuthMiddleware(resolver)
	r.GET("/api/admin/users",
		func(c *gin.Context) {
			c.Set(response.IdentityKey, identity.Identity{UID: "u1", Email: "a@example.com"})
		},
		auth.RequireRole(allowed...),
		func(c *gin.Context) {
			caller, _ := response.GetCaller(c)
			c.JSON(http.StatusOK, gin.H{"role": caller.Role})
		},
	)
	return r
}

func serve(r *gin.Engine) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/admin/users", nil))
	return w
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name     string
		resolver *mockResolver
		expected int
	}{
		{"matching role", &mockResolver{res: role.Known(role.Admin)}, http.StatusOK},
		{"other role", &mockResolver{res: role.Known(role.Student)}, http.StatusForbidden},
		{"unresolved is retryable", &mockResolver{res: role.Unresolved(), err: errors.New("backend down")}, http.StatusServiceUnavailable},
		{"revoked session", &mockResolver{res: role.Unresolved(), err: apperror.Revoked(apperror.FromStatus(http.StatusUnauthorized, "expired"))}, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(newRoleRouter(tt.resolver, role.Admin))
			assert.Equal(t, tt.expected, w.Code)
		})
	}
}

func TestRequireRoleSetsCallerRole(t *testing.T) {
	w := serve(newRoleRouter(&mockResolver{res: role.Known(role.Tutor)}))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"role":"tutor"}`, w.Body.String())
}

func TestRequestIDAndLogging(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(RequestID(), Logging(logger), Metrics())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "req-123")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Contains(t, buf.String(), `"request_id":"req-123"`)
	assert.Contains(t, buf.String(), `"route":"/health"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
}
