package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	notifService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/service"
	"github.com/ShahriarTWS/TutorHub-Client/internal/modules/user/dto"
	user "github.com/ShahriarTWS/TutorHub-Client/internal/modules/user/repository"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
)

type recordingRoles struct {
	invalidated []string
}

func (r *recordingRoles) Invalidate(_ context.Context, email string) error {
	r.invalidated = append(r.invalidated, email)
	return nil
}

type usersBackend struct {
	lists   atomic.Int32
	upserts atomic.Int32
	roles   map[string]string
}

func newUsersBackend(t *testing.T) (*usersBackend, *apiclient.Client) {
	t.Helper()
	b := &usersBackend{roles: map[string]string{}}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/users", func(w http.ResponseWriter, r *http.Request) {
		b.lists.Add(1)
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"users": []map[string]string{{"_id": "u1", "email": "a@example.com", "name": "Ann"}},
			"total": 21,
		})
	})
	mux.HandleFunc("PATCH /admin/users/{id}/role", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.roles[r.PathValue("id")] = body["role"]
		_ = json.NewEncoder(w).Encode(map[string]int{"matchedCount": 1, "modifiedCount": 1})
	})
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		b.upserts.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{"insertedId": "u9"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, apiclient.New(srv.URL, srv.Client())
}

func newTestUserService(t *testing.T) (UserService, *usersBackend, *recordingRoles) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	backend, client := newUsersBackend(t)
	roles := &recordingRoles{}
	svc := NewUserService(user.NewUserRepository(client), roles, latch.New(rdb, time.Minute),
		querycache.New(rdb, time.Minute), notifService.NewNotificationService(nil, nil))
	return svc, backend, roles
}

func TestListComputesPagesAndCaches(t *testing.T) {
	svc, backend, _ := newTestUserService(t)
	ctx := context.Background()

	res, err := svc.List(ctx, dto.UserFilter{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Len(t, res.Data, 1)
	assert.Equal(t, 3, res.Meta.TotalPages)
	assert.Equal(t, int64(21), res.Meta.TotalItems)

	_, err = svc.List(ctx, dto.UserFilter{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.lists.Load())
}

func TestUpdateRoleInvalidatesRoleAndEveryUserPage(t *testing.T) {
	svc, backend, roles := newTestUserService(t)
	ctx := context.Background()

	_, err := svc.List(ctx, dto.UserFilter{Page: 2, Limit: 10})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateRole(ctx, "u1", dto.UpdateRoleRequest{Email: "a@example.com", Role: "tutor"}))
	assert.Equal(t, "tutor", backend.roles["u1"])
	assert.Equal(t, []string{"a@example.com"}, roles.invalidated)

	_, err = svc.List(ctx, dto.UserFilter{Page: 2, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int32(2), backend.lists.Load())
}

func TestUpdateRoleRejectsUnknownRole(t *testing.T) {
	svc, backend, roles := newTestUserService(t)

	err := svc.UpdateRole(context.Background(), "u1", dto.UpdateRoleRequest{Email: "a@example.com", Role: "owner"})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	assert.Empty(t, backend.roles)
	assert.Empty(t, roles.invalidated)
}

func TestSyncProfileUpserts(t *testing.T) {
	svc, backend, _ := newTestUserService(t)

	err := svc.SyncProfile(context.Background(), identity.Identity{UID: "uid-1", Email: "new@example.com", DisplayName: "New"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), backend.upserts.Load())
}
