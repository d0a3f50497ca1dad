package material

import (
	"context"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
)

type Repository interface {
	Create(ctx context.Context, material *entity.Material) (string, error)
	FindAll(ctx context.Context) ([]entity.Material, error)
	FindByTutor(ctx context.Context, email string) ([]entity.Material, error)
	// FindForStudent returns the materials of a session as visible to an
	// enrolled student.
	FindForStudent(ctx context.Context, sessionID, email string) ([]entity.Material, error)
	Update(ctx context.Context, id string, patch Patch) error
	Delete(ctx context.Context, id string) error
}

// Patch holds the editable fields of a material. Empty fields are cleared.
type Patch struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ResourceLink string `json:"resourceLink"`
	FileURL      string `json:"fileURL"`
}

type repository struct {
	client *apiclient.Client
}

func NewRepository(client *apiclient.Client) Repository {
	return &repository{client: client}
}

func (r *repository) Create(ctx context.Context, material *entity.Material) (string, error) {
	var res apiclient.WriteResult
	if err := r.client.Post(ctx, apiclient.Path("materials", material.SessionID), material, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

func (r *repository) FindAll(ctx context.Context) ([]entity.Material, error) {
	return r.list(ctx, "/materials")
}

func (r *repository) FindByTutor(ctx context.Context, email string) ([]entity.Material, error) {
	return r.list(ctx, apiclient.Path("materials", "tutor", email))
}

func (r *repository) FindForStudent(ctx context.Context, sessionID, email string) ([]entity.Material, error) {
	return r.list(ctx, apiclient.Path("materials", "session", sessionID, "student", email))
}

func (r *repository) Update(ctx context.Context, id string, patch Patch) error {
	var res apiclient.WriteResult
	if err := r.client.Patch(ctx, apiclient.Path("materials", id), patch, &res); err != nil {
		return err
	}
	return res.Matched("material " + id)
}

func (r *repository) Delete(ctx context.Context, id string) error {
	var res apiclient.WriteResult
	if err := r.client.Delete(ctx, apiclient.Path("materials", id), &res); err != nil {
		return err
	}
	return res.Matched("material " + id)
}

func (r *repository) list(ctx context.Context, path string) ([]entity.Material, error) {
	var materials []entity.Material
	if err := r.client.Get(ctx, path, &materials); err != nil {
		return nil, err
	}
	if materials == nil {
		materials = []entity.Material{}
	}
	return materials, nil
}
