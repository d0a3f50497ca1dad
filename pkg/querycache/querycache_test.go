package querycache

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

func newCache(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return New(rdb, 0)
}

func counting(calls *int, items []item) func(context.Context) ([]item, error) {
	return func(context.Context) ([]item, error) {
		*calls++
		return items, nil
	}
}

func TestQueryCachesUntilInvalidated(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	calls := 0
	req := Request[[]item]{
		Key:     NewKey("sessions-for-tutor", "tutor@example.com"),
		Fetch:   counting(&calls, []item{{ID: "1", Title: "Go"}}),
		Enabled: true,
	}

	first, err := Query(ctx, c, req)
	require.NoError(t, err)
	second, err := Query(ctx, c, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Invalidate(ctx, req.Key))
	_, err = Query(ctx, c, req)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestInvalidateIsScopedToNamedKeys(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	tutorCalls, adminCalls := 0, 0
	tutorReq := Request[[]item]{Key: NewKey("sessions-for-tutor", "t@example.com"), Fetch: counting(&tutorCalls, nil), Enabled: true}
	adminReq := Request[[]item]{Key: NewKey("admin-sessions"), Fetch: counting(&adminCalls, nil), Enabled: true}

	_, _ = Query(ctx, c, tutorReq)
	_, _ = Query(ctx, c, adminReq)
	require.NoError(t, c.Invalidate(ctx, NewKey("admin-sessions")))
	_, _ = Query(ctx, c, tutorReq)
	_, _ = Query(ctx, c, adminReq)

	assert.Equal(t, 1, tutorCalls)
	assert.Equal(t, 2, adminCalls)
}

func TestDependenciesInvalidateFamilies(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	family := NewKey("admin-users")
	calls := 0
	page := func(n string) Request[[]item] {
		return Request[[]item]{
			Key:          NewKey("admin-users", "", n),
			Dependencies: []Key{family},
			Fetch:        counting(&calls, nil),
			Enabled:      true,
		}
	}

	_, _ = Query(ctx, c, page("1"))
	_, _ = Query(ctx, c, page("2"))
	require.NoError(t, c.Invalidate(ctx, family))
	_, _ = Query(ctx, c, page("1"))
	_, _ = Query(ctx, c, page("2"))

	assert.Equal(t, 4, calls)
}

func TestDisabledQueryDoesNotFetch(t *testing.T) {
	c := newCache(t)
	calls := 0
	_, err := Query(context.Background(), c, Request[[]item]{
		Key:   NewKey("payments", ""),
		Fetch: counting(&calls, nil),
	})

	assert.ErrorIs(t, err, ErrDisabled)
	assert.Zero(t, calls)
}

func TestFetchErrorsAreNotCached(t *testing.T) {
	c := newCache(t)
	ctx := context.Background()
	fail := true
	req := Request[[]item]{
		Key: NewKey("approved-sessions"),
		Fetch: func(context.Context) ([]item, error) {
			if fail {
				return nil, errors.New("backend down")
			}
			return []item{{ID: "1"}}, nil
		},
		Enabled: true,
	}

	_, err := Query(ctx, c, req)
	require.Error(t, err)

	fail = false
	got, err := Query(ctx, c, req)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestNilCacheFetchesDirectly(t *testing.T) {
	calls := 0
	req := Request[[]item]{Key: NewKey("x"), Fetch: counting(&calls, nil), Enabled: true}
	_, _ = Query(context.Background(), nil, req)
	_, _ = Query(context.Background(), nil, req)
	assert.Equal(t, 2, calls)
	assert.NoError(t, (*Cache)(nil).Invalidate(context.Background(), NewKey("x")))
}
