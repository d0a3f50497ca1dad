package apiclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/time/rate"
)

var (
	upstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tutorhub_upstream_requests_total",
			Help: "Outbound requests by upstream, method and status",
		},
		[]string{"upstream", "method", "status"},
	)

	upstreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tutorhub_upstream_request_duration_seconds",
			Help:    "Outbound request latency by upstream",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream", "method"},
	)

	authFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tutorhub_auth_failures_total",
			Help: "Backend responses that revoked the identity session",
		},
	)
)

// TokenSource mints the bearer token for the identity carried by ctx. It
// returns an empty token when ctx carries no identity.
type TokenSource interface {
	TokenFor(ctx context.Context) (string, error)
}

// WithBearer attaches a freshly minted identity token to every attempt.
func WithBearer(tokens TokenSource) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			token, err := tokens.TokenFor(req.Context())
			if err != nil {
				return nil, fmt.Errorf("mint identity token: %w", err)
			}
			if token != "" {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			return next.Do(req)
		})
	}
}

// WithAuthFailure calls hook once for every 401 or 403 response and returns
// an error wrapping apperror.ErrSessionRevoked along with the upstream error.
// The request is not retried.
func WithAuthFailure(hook func(ctx context.Context)) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			resp, err := next.Do(req)
			if err != nil {
				return nil, err
			}
			if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
				return resp, nil
			}

			defer resp.Body.Close()
			upstream := ErrorFromResponse(resp)
			authFailures.Inc()
			hook(req.Context())
			return nil, apperror.Revoked(upstream)
		})
	}
}

// WithTimeout bounds every attempt. Expiry maps to apperror.ErrTimeout.
func WithTimeout(d time.Duration) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			ctx, cancel := context.WithTimeout(req.Context(), d)
			resp, err := next.Do(req.WithContext(ctx))
			if err != nil {
				cancel()
				if errors.Is(ctx.Err(), context.DeadlineExceeded) {
					return nil, apperror.New(http.StatusGatewayTimeout, "the TutorHub service took too long to respond",
						fmt.Errorf("%w after %s: %s %s", apperror.ErrTimeout, d, req.Method, req.URL.Path))
				}
				return nil, err
			}
			resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
			return resp, nil
		})
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

// WithRateLimit makes every attempt wait for the shared limiter.
func WithRateLimit(limiter *rate.Limiter) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			if err := limiter.Wait(req.Context()); err != nil {
				return nil, fmt.Errorf("%w: rate limiter: %v", apperror.ErrUnavailable, err)
			}
			return next.Do(req)
		})
	}
}

// WithMetrics records outbound request counts and latency for upstream.
func WithMetrics(upstream string) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(req *http.Request) (*http.Response, error) {
			start := time.Now()
			resp, err := next.Do(req)
			upstreamDuration.WithLabelValues(upstream, req.Method).Observe(time.Since(start).Seconds())

			status := "error"
			switch {
			case err == nil:
				status = strconv.Itoa(resp.StatusCode)
			default:
				var appErr *apperror.AppError
				if errors.As(err, &appErr) && appErr.Code != 0 {
					status = strconv.Itoa(appErr.Code)
				}
			}
			upstreamRequests.WithLabelValues(upstream, req.Method, status).Inc()
			return resp, err
		})
	}
}
