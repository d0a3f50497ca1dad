package note

import (
	"context"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
)

type Repository interface {
	Create(ctx context.Context, note *entity.Note) (string, error)
	FindByEmail(ctx context.Context, email string) ([]entity.Note, error)
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
}

type Patch struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type repository struct {
	client *apiclient.Client
}

func NewRepository(client *apiclient.Client) Repository {
	return &repository{client: client}
}

func (r *repository) Create(ctx context.Context, note *entity.Note) (string, error) {
	var res apiclient.WriteResult
	if err := r.client.Post(ctx, "/notes", note, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) ([]entity.Note, error) {
	var notes []entity.Note
	if err := r.client.Get(ctx, apiclient.Path("notes", email), &notes); err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []entity.Note{}
	}
	return notes, nil
}

func (r *repository) Update(ctx context.Context, id string, patch Patch) error {
	var res apiclient.WriteResult
	if err := r.client.Patch(ctx, apiclient.Path("notes", id), patch, &res); err != nil {
		return err
	}
	return res.Matched("note " + id)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	var res apiclient.WriteResult
	if err := r.client.Delete(ctx, apiclient.Path("notes", id), &res); err != nil {
		return err
	}
	return res.Matched("note " + id)
}
