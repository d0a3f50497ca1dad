package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"

	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	dashboardDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/dashboard/dto"
	"github.com/ShahriarTWS/TutorHub-Client/internal/navigation"
	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
)

type RoleResolver interface {
	Resolve(ctx context.Context, email string) (role.Resolution, error)
}

type Service interface {
	// View never guesses a role: an unresolved role yields the
	// resolving-role status and no links.
	View(ctx context.Context, id identity.Identity) (*dashboardDto.View, error)
	Page(ctx context.Context, id identity.Identity, page string) (*dashboardDto.PageResponse, error)
}

type service struct {
	roles RoleResolver
}

func NewService(roles RoleResolver) Service {
	return &service{roles: roles}
}

func (s *service) resolve(ctx context.Context, email string) (role.Resolution, error) {
	res, err := s.roles.Resolve(ctx, email)
	if err != nil {
		if errors.Is(err, apperror.ErrSessionRevoked) {
			return res, err
		}
		slog.Warn("dashboard role unresolved", "email", email, "error", err)
		return role.Unresolved(), nil
	}
	return res, nil
}

func (s *service) View(ctx context.Context, id identity.Identity) (*dashboardDto.View, error) {
	res, err := s.resolve(ctx, id.Email)
	if err != nil {
		return nil, err
	}

	links, ok := navigation.Sidebar(res)
	if !ok {
		return &dashboardDto.View{Status: dashboardDto.StatusResolvingRole, Identity: id}, nil
	}
	r, _ := res.Get()
	return &dashboardDto.View{Identity: id, Role: r, Links: links}, nil
}

// ErrRoleUnresolved is returned by Page while the role cannot be determined.
var ErrRoleUnresolved = apperror.New(http.StatusServiceUnavailable, "role could not be resolved", apperror.ErrUnavailable)

func (s *service) Page(ctx context.Context, id identity.Identity, page string) (*dashboardDto.PageResponse, error) {
	res, err := s.resolve(ctx, id.Email)
	if err != nil {
		return nil, err
	}
	r, ok := res.Get()
	if !ok {
		return nil, ErrRoleUnresolved
	}

	p := path.Clean("/dashboard/" + page)
	if !navigation.Allowed(r, p) {
		return nil, apperror.New(http.StatusForbidden, "this page is not available for your role", apperror.ErrForbidden)
	}
	links, _ := navigation.Sidebar(res)
	return &dashboardDto.PageResponse{Page: p, Role: r, Links: links}, nil
}
