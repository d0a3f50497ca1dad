package feedback

import (
	"context"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
)

type Repository interface {
	FindBySession(ctx context.Context, sessionID string) ([]entity.Review, error)
	Create(ctx context.Context, review *entity.Review) (string, error)
	Update(ctx context.Context, id string, patch Patch) error
}

type Patch struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

type repository struct {
	client *apiclient.Client
}

func NewRepository(client *apiclient.Client) Repository {
	return &repository{client: client}
}

func (r *repository) FindBySession(ctx context.Context, sessionID string) ([]entity.Review, error) {
	var reviews []entity.Review
	if err := r.client.Get(ctx, apiclient.Path("feedbacks", "session", sessionID), &reviews); err != nil {
		return nil, err
	}
	if reviews == nil {
		reviews = []entity.Review{}
	}
	return reviews, nil
}

func (r *repository) Create(ctx context.Context, review *entity.Review) (string, error) {
	var res apiclient.WriteResult
	if err := r.client.Post(ctx, "/feedbacks", review, &res); err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

func (r *repository) Update(ctx context.Context, id string, patch Patch) error {
	var res apiclient.WriteResult
	if err := r.client.Patch(ctx, apiclient.Path("feedbacks", id), patch, &res); err != nil {
		return err
	}
	return res.Matched("review " + id)
}
