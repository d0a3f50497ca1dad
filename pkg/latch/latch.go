// Package latch guards state-changing actions so that a second submission of
// the same action is rejected while the first one is still in flight.
package latch

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrInFlight is returned when the same action is already running.
var ErrInFlight = apperror.New(http.StatusConflict, "this action is already in progress", apperror.ErrConflict)

// compare-and-delete so an expired holder cannot release a newer one
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Latch struct {
	rdb *redis.Client
	ttl time.Duration

	mu    sync.Mutex
	local map[string]string
}

// New returns a latch backed by redis. With a nil client the latch only
// covers the current process.
func New(rdb *redis.Client, ttl time.Duration) *Latch {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Latch{rdb: rdb, ttl: ttl, local: make(map[string]string)}
}

// Key builds the latch key for an action on a set of identifiers.
func Key(action string, ids ...string) string {
	parts := make([]string, 0, len(ids)+2)
	parts = append(parts, "latch", action)
	for _, id := range ids {
		parts = append(parts, strings.ToLower(id))
	}
	return strings.Join(parts, ":")
}

// Acquire takes the latch for action+ids. The returned release func must be
// called once the action finished, whatever its outcome.
func (l *Latch) Acquire(ctx context.Context, action string, ids ...string) (func(), error) {
	key := Key(action, ids...)
	token := uuid.NewString()

	if l.rdb == nil {
		return l.acquireLocal(key, token)
	}

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire latch %s: %w", key, err)
	}
	if !ok {
		return nil, ErrInFlight
	}

	return func() {
		// the request context may already be cancelled
		_ = releaseScript.Run(context.Background(), l.rdb, []string{key}, token).Err()
	}, nil
}

func (l *Latch) acquireLocal(key, token string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.local[key]; held {
		return nil, ErrInFlight
	}
	l.local[key] = token

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.local[key] == token {
			delete(l.local, key)
		}
	}, nil
}
