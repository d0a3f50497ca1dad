package tutor

import (
	"context"
	"errors"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
)

type Repository interface {
	// FindByEmail returns nil when the user never applied.
	FindByEmail(ctx context.Context, email string) (*entity.TutorApplication, error)
	Create(ctx context.Context, app *entity.TutorApplication) (string, error)
	Update(ctx context.Context, id string, patch any) error
	FindPending(ctx context.Context) ([]entity.TutorApplication, error)
	FindAll(ctx context.Context) ([]entity.TutorApplication, error)
	Delete(ctx context.Context, id string) error
}

// Review is the admin decision on an application.
type Review struct {
	Status   entity.ApplicationStatus `json:"status"`
	Feedback string                   `json:"feedback,omitempty"`
}

type repository struct {
	client *apiclient.Client
}

func NewRepository(client *apiclient.Client) Repository {
	return &repository{client: client}
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*entity.TutorApplication, error) {
	var app entity.TutorApplication
	err := r.client.Get(ctx, apiclient.Path("tutors", "email", email), &app)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if app.ID == "" {
		return nil, nil
	}
	return &app, nil
}

func (r *repository) Create(ctx context.Context, app *entity.TutorApplication) (string, error) {
	var res apiclient.WriteResult
	if err := r.client.Post(ctx, "/tutors", app, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

func (r *repository) Update(ctx context.Context, id string, patch any) error {
	var res apiclient.WriteResult
	if err := r.client.Patch(ctx, apiclient.Path("tutors", id), patch, &res); err != nil {
		return err
	}
	return res.Matched("tutor application " + id)
}

func (r *repository) FindPending(ctx context.Context) ([]entity.TutorApplication, error) {
	return r.list(ctx, "/tutors?status=pending")
}

func (r *repository) FindAll(ctx context.Context) ([]entity.TutorApplication, error) {
	return r.list(ctx, "/tutors/all")
}

func (r *repository) Delete(ctx context.Context, id string) error {
	var res apiclient.WriteResult
	if err := r.client.Delete(ctx, apiclient.Path("tutors", id), &res); err != nil {
		return err
	}
	return res.Matched("tutor " + id)
}

func (r *repository) list(ctx context.Context, path string) ([]entity.TutorApplication, error) {
	var apps []entity.TutorApplication
	if err := r.client.Get(ctx, path, &apps); err != nil {
		return nil, err
	}
	if apps == nil {
		apps = []entity.TutorApplication{}
	}
	return apps, nil
}
