package user

import (
	"context"
	"net/url"
	"strconv"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
)

type UserRepository interface {
	// Upsert creates the profile of a user or refreshes it.
	Upsert(ctx context.Context, user *entity.User) error
	List(ctx context.Context, search string, page, limit int) (*Page, error)
	UpdateRole(ctx context.Context, id string, r role.Role) error
}

type Page struct {
	Users []entity.User `json:"users"`
	Total int64         `json:"total"`
}

type userRepository struct {
	client *apiclient.Client
}

func NewUserRepository(client *apiclient.Client) UserRepository {
	return &userRepository{client: client}
}

func (r *userRepository) Upsert(ctx context.Context, user *entity.User) error {
	return r.client.Post(ctx, "/users", user, nil)
}

func (r *userRepository) List(ctx context.Context, search string, page, limit int) (*Page, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var res Page
	if err := r.client.Get(ctx, "/admin/users?"+q.Encode(), &res); err != nil {
		return nil, err
	}
	if res.Users == nil {
		res.Users = []entity.User{}
	}
	return &res, nil
}

func (r *userRepository) UpdateRole(ctx context.Context, id string, ro role.Role) error {
	var res apiclient.WriteResult
	if err := r.client.Patch(ctx, apiclient.Path("admin", "users", id, "role"), map[string]role.Role{"role": ro}, &res); err != nil {
		return err
	}
	return res.Matched("user " + id)
}
