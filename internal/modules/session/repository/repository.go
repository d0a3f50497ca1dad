package session

import (
	"context"
	"errors"
	"net/url"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
)

type Repository interface {
	Create(ctx context.Context, session *entity.StudySession) (string, error)
	FindByID(ctx context.Context, id string) (*entity.StudySession, error)
	FindApproved(ctx context.Context) ([]entity.StudySession, error)
	FindByTutor(ctx context.Context, email string) ([]entity.StudySession, error)
	FindAll(ctx context.Context) ([]entity.StudySession, error)
	FindApprovedByTutor(ctx context.Context, email string) ([]entity.StudySession, error)
	UpdateStatus(ctx context.Context, id string, update StatusUpdate) error
}

// StatusUpdate is the admin review patch of a session.
type StatusUpdate struct {
	Status          entity.SessionStatus `json:"status"`
	RegistrationFee *float64             `json:"registrationFee,omitempty"`
	Feedback        string               `json:"feedback,omitempty"`
}

type repository struct {
	client *apiclient.Client
}

func NewRepository(client *apiclient.Client) Repository {
	return &repository{client: client}
}

func (r *repository) Create(ctx context.Context, session *entity.StudySession) (string, error) {
	var res apiclient.WriteResult
	if err := r.client.Post(ctx, "/sessions", session, &res); err != nil {
		return "", err
	}
	if res.InsertedID == "" {
		return "", errors.New("backend did not return the id of the created session")
	}
	return res.InsertedID, nil
}

func (r *repository) FindByID(ctx context.Context, id string) (*entity.StudySession, error) {
	var session entity.StudySession
	if err := r.client.Get(ctx, apiclient.Path("sessions", id), &session); err != nil {
		return nil, err
	}
	if session.ID == "" {
		return nil, apperror.ErrNotFound
	}
	return &session, nil
}

func (r *repository) FindApproved(ctx context.Context) ([]entity.StudySession, error) {
	return r.list(ctx, "/sessions")
}

func (r *repository) FindByTutor(ctx context.Context, email string) ([]entity.StudySession, error) {
	return r.list(ctx, "/sessions?tutorEmail="+url.QueryEscape(email))
}

func (r *repository) FindAll(ctx context.Context) ([]entity.StudySession, error) {
	return r.list(ctx, "/admin/sessions")
}

func (r *repository) FindApprovedByTutor(ctx context.Context, email string) ([]entity.StudySession, error) {
	return r.list(ctx, apiclient.Path("tutors", email, "approved-sessions"))
}

func (r *repository) UpdateStatus(ctx context.Context, id string, update StatusUpdate) error {
	var res apiclient.WriteResult
	if err := r.client.Patch(ctx, apiclient.Path("admin", "sessions", id), update, &res); err != nil {
		return err
	}
	return res.Matched("session " + id)
}

func (r *repository) list(ctx context.Context, path string) ([]entity.StudySession, error) {
	var sessions []entity.StudySession
	if err := r.client.Get(ctx, path, &sessions); err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []entity.StudySession{}
	}
	return sessions, nil
}
