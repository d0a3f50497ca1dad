package role

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// Fetcher loads the stored role of a user from the backend.
type Fetcher interface {
	FetchRole(ctx context.Context, email string) (string, error)
}

type backendFetcher struct {
	client *apiclient.Client
}

// NewBackendFetcher reads roles from GET /users/role/{email}.
func NewBackendFetcher(client *apiclient.Client) Fetcher {
	return &backendFetcher{client: client}
}

func (f *backendFetcher) FetchRole(ctx context.Context, email string) (string, error) {
	var out struct {
		Role string `json:"role"`
	}
	if err := f.client.Get(ctx, apiclient.Path("users", "role", email), &out); err != nil {
		return "", err
	}
	return out.Role, nil
}

const fetchTimeout = 10 * time.Second

type Resolver struct {
	fetcher Fetcher
	rdb     *redis.Client
	ttl     time.Duration
	group   singleflight.Group
}

func NewResolver(fetcher Fetcher, rdb *redis.Client, ttl time.Duration) *Resolver {
	return &Resolver{fetcher: fetcher, rdb: rdb, ttl: ttl}
}

func cacheKey(email string) string {
	return "user-role:" + strings.ToLower(email)
}

// Resolve returns the role of email. Any failure yields Unresolved together
// with the error; the caller decides how to render that.
func (r *Resolver) Resolve(ctx context.Context, email string) (Resolution, error) {
	if email == "" {
		return Unresolved(), errors.New("resolve role: empty email")
	}

	if r.rdb != nil {
		cached, err := r.rdb.Get(ctx, cacheKey(email)).Result()
		if err == nil {
			if role, err := Parse(cached); err == nil {
				return Known(role), nil
			}
		} else if !errors.Is(err, redis.Nil) {
			slog.Warn("role cache read failed", "email", email, "error", err)
		}
	}

	// the shared fetch outlives any one caller
	ch := r.group.DoChan(strings.ToLower(email), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()

		raw, err := r.fetcher.FetchRole(fetchCtx, email)
		if err != nil {
			return nil, err
		}
		role, err := Parse(raw)
		if err != nil {
			return nil, err
		}
		if r.rdb != nil {
			if err := r.rdb.Set(fetchCtx, cacheKey(email), string(role), r.ttl).Err(); err != nil {
				slog.Warn("role cache write failed", "email", email, "error", err)
			}
		}
		return role, nil
	})

	var v any
	select {
	case res := <-ch:
		if res.Err != nil {
			return Unresolved(), fmt.Errorf("resolve role for %s: %w", email, res.Err)
		}
		v = res.Val
	case <-ctx.Done():
		return Unresolved(), fmt.Errorf("resolve role for %s: %w", email, ctx.Err())
	}
	return Known(v.(Role)), nil
}

// Invalidate drops the cached role so the next Resolve asks the backend.
func (r *Resolver) Invalidate(ctx context.Context, email string) error {
	if r.rdb == nil {
		return nil
	}
	if err := r.rdb.Del(ctx, cacheKey(email)).Err(); err != nil {
		return fmt.Errorf("invalidate role of %s: %w", email, err)
	}
	return nil
}
