package guard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name     string
		state    State
		path     string
		expected Decision
	}{
		{"resolving never redirects", Resolving, "/dashboard/booked-sessions", Decision{Kind: RenderLoading}},
		{"unauthenticated keeps path", Unauthenticated, "/dashboard/booked-sessions", Decision{Kind: Redirect, Location: "/login?redirect=%2Fdashboard%2Fbooked-sessions"}},
		{"unauthenticated keeps query", Unauthenticated, "/dashboard/manage-users?page=2", Decision{Kind: Redirect, Location: "/login?redirect=%2Fdashboard%2Fmanage-users%3Fpage%3D2"}},
		{"authenticated renders", Authenticated, "/dashboard", Decision{Kind: Render}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Decide(tt.state, tt.path))
		})
	}
}

func TestFromIdentity(t *testing.T) {
	assert.Equal(t, Resolving, FromIdentity(identity.Resolving()))
	assert.Equal(t, Unauthenticated, FromIdentity(identity.SignedOut()))
	assert.Equal(t, Authenticated, FromIdentity(identity.SignedIn(identity.Identity{UID: "u"})))
}

func TestSafeReturnPath(t *testing.T) {
	tests := map[string]string{
		"":                           "/",
		"/dashboard/create-note":     "/dashboard/create-note",
		"/dashboard?tab=2":           "/dashboard?tab=2",
		"https://evil.example/":      "/",
		"//evil.example/dashboard":   "/",
		`/\evil.example`:             "/",
		"dashboard":                  "/",
		"/login?redirect=/dashboard": "/",
	}
	for in, want := range tests {
		assert.Equal(t, want, SafeReturnPath(in), in)
	}
}

type stubProvider struct {
	identity.Provider
	state    identity.State
	signOuts int
}

func (s *stubProvider) Resolve(context.Context, http.ResponseWriter, *http.Request) identity.State {
	return s.state
}

func (s *stubProvider) SignOut(http.ResponseWriter, *http.Request) error {
	s.signOuts++
	return nil
}

func newRouter(p identity.Provider, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	g := New(p)
	r.GET("/dashboard/*page", g.Require(), handler)
	r.GET("/api/dashboard", g.Require(), handler)
	return r
}

func TestRequireWhileResolving(t *testing.T) {
	called := false
	r := newRouter(&stubProvider{state: identity.Resolving()}, func(c *gin.Context) { called = true })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/booked-sessions", nil))

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.Empty(t, w.Header().Get("Location"))
	assert.False(t, called)
}

func TestRequireRedirectsPagesAndRejectsAPI(t *testing.T) {
	r := newRouter(&stubProvider{state: identity.SignedOut()}, func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/booked-sessions", nil))
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login?redirect=%2Fdashboard%2Fbooked-sessions", w.Header().Get("Location"))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "/login?redirect=%2Fapi%2Fdashboard", body["redirect"])
}

func TestRequireRendersWithRequestSession(t *testing.T) {
	id := identity.Identity{UID: "u1", Email: "a@example.com"}
	r := newRouter(&stubProvider{state: identity.SignedIn(id)}, func(c *gin.Context) {
		got, err := response.GetIdentity(c)
		require.NoError(t, err)
		rs := identity.FromContext(c.Request.Context())
		require.NotNil(t, rs)
		assert.Equal(t, got, rs.Identity)
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRevokedSessionWithoutResponseRedirectsOnce(t *testing.T) {
	p := &stubProvider{state: identity.SignedIn(identity.Identity{UID: "u1", Email: "a@example.com"})}
	r := newRouter(p, func(c *gin.Context) {
		identity.RevokeFromContext(c.Request.Context())
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/manage-notes", nil))

	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/login", w.Header().Get("Location"))
	assert.Equal(t, 1, p.signOuts)
}

func TestRevokedSessionClearedEvenWhenHandlerSucceeds(t *testing.T) {
	p := &stubProvider{state: identity.SignedIn(identity.Identity{UID: "u1", Email: "a@example.com"})}
	r := newRouter(p, func(c *gin.Context) {
		identity.RevokeFromContext(c.Request.Context())
		assert.Equal(t, 1, p.signOuts)
		c.JSON(http.StatusOK, gin.H{"sessions": []string{}})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, p.signOuts)
}
