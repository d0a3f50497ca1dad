package latch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

func TestLatchRejectsSecondHolder(t *testing.T) {
	_, rdb := newRedis(t)
	l := New(rdb, time.Minute)
	ctx := context.Background()

	release, err := l.Acquire(ctx, "enroll", "Student@Example.com", "s1")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "enroll", "student@example.com", "s1")
	assert.ErrorIs(t, err, apperror.ErrConflict)

	release()

	release, err = l.Acquire(ctx, "enroll", "student@example.com", "s1")
	require.NoError(t, err)
	release()
}

func TestLatchKeysAreIndependent(t *testing.T) {
	_, rdb := newRedis(t)
	l := New(rdb, time.Minute)
	ctx := context.Background()

	r1, err := l.Acquire(ctx, "enroll", "a@example.com", "s1")
	require.NoError(t, err)
	defer r1()

	r2, err := l.Acquire(ctx, "enroll", "a@example.com", "s2")
	require.NoError(t, err)
	defer r2()
}

func TestExpiredHolderDoesNotReleaseNewHolder(t *testing.T) {
	mr, rdb := newRedis(t)
	l := New(rdb, time.Second)
	ctx := context.Background()

	stale, err := l.Acquire(ctx, "session-review", "s1")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := l.Acquire(ctx, "session-review", "s1")
	require.NoError(t, err)

	stale()
	assert.True(t, mr.Exists(Key("session-review", "s1")))

	fresh()
	assert.False(t, mr.Exists(Key("session-review", "s1")))
}

func TestLocalLatchUnderContention(t *testing.T) {
	l := New(nil, time.Minute)

	var acquired atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.Acquire(context.Background(), "enroll", "a@example.com", "s1"); err == nil {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), acquired.Load())
}
