package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	notifService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/service"
	"github.com/ShahriarTWS/TutorHub-Client/internal/modules/user/dto"
	"github.com/ShahriarTWS/TutorHub-Client/internal/modules/user/repository"
	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	commonDto "github.com/ShahriarTWS/TutorHub-Client/pkg/dto"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
)

// RoleInvalidator drops the cached role of a user whose role changed.
type RoleInvalidator interface {
	Invalidate(ctx context.Context, email string) error
}

type UserService interface {
	// SyncProfile mirrors an identity into the backend user collection.
	SyncProfile(ctx context.Context, id identity.Identity) error
	List(ctx context.Context, filter dto.UserFilter) (*dto.UserListResponse, error)
	UpdateRole(ctx context.Context, id string, req dto.UpdateRoleRequest) error
}

// usersFamily is invalidated by every change to any user.
var usersFamily = querycache.NewKey("admin-users")

type userService struct {
	repo          user.UserRepository
	roles         RoleInvalidator
	latch         *latch.Latch
	cache         *querycache.Cache
	notifications notifService.NotificationService
}

func NewUserService(repo user.UserRepository, roles RoleInvalidator, latch *latch.Latch, cache *querycache.Cache, notifications notifService.NotificationService) UserService {
	return &userService{
		repo:          repo,
		roles:         roles,
		latch:         latch,
		cache:         cache,
		notifications: notifications,
	}
}

func (s *userService) SyncProfile(ctx context.Context, id identity.Identity) error {
	err := s.repo.Upsert(ctx, &entity.User{
		UID:      id.UID,
		Name:     id.DisplayName,
		Email:    id.Email,
		PhotoURL: id.PhotoURL,
	})
	if err != nil {
		return fmt.Errorf("sync profile of %s: %w", id.Email, err)
	}
	if err := s.cache.Invalidate(ctx, usersFamily); err != nil {
		slog.Warn("failed to invalidate user list", "error", err)
	}
	return nil
}

func (s *userService) List(ctx context.Context, filter dto.UserFilter) (*dto.UserListResponse, error) {
	if filter.Page == 0 {
		filter.Page = 1
	}
	if filter.Limit == 0 {
		filter.Limit = 10
	}
	search := strings.TrimSpace(filter.Search)

	page, err := querycache.Query(ctx, s.cache, querycache.Request[*user.Page]{
		Key:          querycache.NewKey("admin-users-page", search, strconv.Itoa(filter.Page), strconv.Itoa(filter.Limit)),
		Dependencies: []querycache.Key{usersFamily},
		Fetch: func(ctx context.Context) (*user.Page, error) {
			return s.repo.List(ctx, search, filter.Page, filter.Limit)
		},
		Enabled: true,
	})
	if err != nil {
		return nil, err
	}

	return &dto.UserListResponse{
		Data: page.Users,
		Meta: commonDto.NewPaginationMeta(filter.Page, filter.Limit, page.Total),
	}, nil
}

func (s *userService) UpdateRole(ctx context.Context, id string, req dto.UpdateRoleRequest) error {
	newRole, err := role.Parse(req.Role)
	if err != nil {
		return apperror.New(http.StatusBadRequest, "role must be admin, tutor or student", apperror.ErrInvalidInput)
	}

	release, err := s.latch.Acquire(ctx, "user-role", id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.repo.UpdateRole(ctx, id, newRole); err != nil {
		return err
	}

	if err := s.roles.Invalidate(ctx, req.Email); err != nil {
		slog.Warn("failed to invalidate role", "email", req.Email, "error", err)
	}
	if err := s.cache.Invalidate(ctx, usersFamily); err != nil {
		slog.Warn("failed to invalidate user list", "error", err)
	}
	s.notifications.Notify(ctx, req.Email, entity.Notification{
		Type:    entity.NotifyRoleChanged,
		Level:   entity.LevelInfo,
		Title:   "Your role changed",
		Message: fmt.Sprintf("You are now signed in as %s", newRole),
		Link:    "/dashboard",
	})
	return nil
}
