package apiclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type ctxKey struct{}

// sequenceTokens mints a new token on every call for contexts carrying an
// identity marker.
type sequenceTokens struct {
	n atomic.Int32
}

func (s *sequenceTokens) TokenFor(ctx context.Context) (string, error) {
	if ctx.Value(ctxKey{}) == nil {
		return "", nil
	}
	return "token-" + string(rune('0'+s.n.Add(1))), nil
}

func signedIn() context.Context {
	return context.WithValue(context.Background(), ctxKey{}, true)
}

func TestBearerIsMintedPerRequest(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen = append(seen, r.Header.Get("Authorization"))
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	client := New(srv.URL, srv.Client(), WithBearer(&sequenceTokens{}))

	require.NoError(t, client.Get(signedIn(), "/sessions", nil))
	require.NoError(t, client.Get(signedIn(), "/sessions", nil))
	require.NoError(t, client.Get(context.Background(), "/sessions", nil))

	assert.Equal(t, []string{"Bearer token-1", "Bearer token-2", ""}, seen)
}

func TestAuthFailureInvokesHookOncePerFailure(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"message":"token expired"}`))
			}))
			defer srv.Close()

			var hooks atomic.Int32
			client := New(srv.URL, srv.Client(), WithAuthFailure(func(context.Context) { hooks.Add(1) }))

			err := client.Get(signedIn(), "/users/role/a@example.com", nil)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrSessionRevoked)
			assert.Equal(t, http.StatusUnauthorized, apperror.MapErrorToStatus(err))
			var appErr *apperror.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, status, appErr.Code)
			assert.Equal(t, "token expired", appErr.Message)
			assert.Equal(t, int32(1), hooks.Load())
		})
	}
}

func TestOtherFailuresDoNotInvokeHook(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"session not found"}`))
	}))
	defer srv.Close()

	var hooks atomic.Int32
	client := New(srv.URL, srv.Client(), WithAuthFailure(func(context.Context) { hooks.Add(1) }))

	err := client.Get(signedIn(), "/sessions/missing", nil)

	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.NotErrorIs(t, err, apperror.ErrSessionRevoked)
	assert.Equal(t, "session not found", apperror.Message(err))
	assert.Zero(t, hooks.Load())
}

func TestTimeoutMapsToErrTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := New(srv.URL, srv.Client(), WithTimeout(50*time.Millisecond))

	err := client.Get(context.Background(), "/sessions", nil)

	assert.ErrorIs(t, err, apperror.ErrTimeout)
	assert.Equal(t, http.StatusGatewayTimeout, apperror.MapErrorToStatus(err))
}

func TestDecodesBodyAfterTimeoutMiddleware(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]any{"insertedId": "abc", "echo": in["title"]})
	}))
	defer srv.Close()

	limiter := rate.NewLimiter(rate.Inf, 1)
	client := New(srv.URL, srv.Client(), WithMetrics("backend"), WithRateLimit(limiter), WithTimeout(time.Second))

	var out struct {
		InsertedID string `json:"insertedId"`
		Echo       string `json:"echo"`
	}
	require.NoError(t, client.Post(context.Background(), "/sessions", map[string]string{"title": "Go"}, &out))

	assert.Equal(t, "abc", out.InsertedID)
	assert.Equal(t, "Go", out.Echo)
}

func TestUnreachableBackend(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, nil).Get(context.Background(), "/sessions", nil)

	assert.ErrorIs(t, err, apperror.ErrUnavailable)
}

func TestUpstreamMessageShapes(t *testing.T) {
	assert.Equal(t, "flat", upstreamMessage([]byte(`{"error":"flat"}`)))
	assert.Equal(t, "INVALID_PASSWORD", upstreamMessage([]byte(`{"error":{"code":400,"message":"INVALID_PASSWORD"}}`)))
	assert.Equal(t, "msg", upstreamMessage([]byte(`{"message":"msg"}`)))
	assert.Equal(t, "plain text", upstreamMessage([]byte("plain text\n")))
}

func TestPathEscapesSegments(t *testing.T) {
	assert.Equal(t, "/tutors/email/a+b@example.com", Path("tutors", "email", "a+b@example.com"))
	assert.Equal(t, "/materials/x%2Fy", Path("materials", "x/y"))
}
