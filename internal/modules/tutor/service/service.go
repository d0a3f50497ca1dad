package tutor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	notifService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/service"
	tutorDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/tutor/dto"
	repo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/tutor/repository"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
)

// RoleInvalidator drops the cached role of a user whose role changed.
type RoleInvalidator interface {
	Invalidate(ctx context.Context, email string) error
}

type Service interface {
	Status(ctx context.Context, email string) (*tutorDto.StatusResponse, error)
	// Apply creates the application or re-submits a cancelled one.
	Apply(ctx context.Context, caller entity.Caller, req tutorDto.ApplyRequest) (*entity.TutorApplication, error)
	ListPending(ctx context.Context) ([]entity.TutorApplication, error)
	Approve(ctx context.Context, id string) (*entity.TutorApplication, error)
	Reject(ctx context.Context, id string, req tutorDto.RejectRequest) (*entity.TutorApplication, error)
	ListAll(ctx context.Context) ([]entity.TutorApplication, error)
	// ListApproved is the public tutor directory.
	ListApproved(ctx context.Context) ([]entity.TutorApplication, error)
	Delete(ctx context.Context, id string) error
}

var (
	pendingKey = querycache.NewKey("pending-tutors")
	allKey     = querycache.NewKey("all-tutors")
)

func statusKey(email string) querycache.Key { return querycache.NewKey("tutor-status", email) }

type service struct {
	repo          repo.Repository
	roles         RoleInvalidator
	latch         *latch.Latch
	cache         *querycache.Cache
	notifications notifService.NotificationService
	now           func() time.Time
}

func NewService(repo repo.Repository, roles RoleInvalidator, latch *latch.Latch, cache *querycache.Cache, notifications notifService.NotificationService) Service {
	return &service{
		repo:          repo,
		roles:         roles,
		latch:         latch,
		cache:         cache,
		notifications: notifications,
		now:           time.Now,
	}
}

func (s *service) Status(ctx context.Context, email string) (*tutorDto.StatusResponse, error) {
	app, err := querycache.Query(ctx, s.cache, querycache.Request[*entity.TutorApplication]{
		Key: statusKey(email),
		Fetch: func(ctx context.Context) (*entity.TutorApplication, error) {
			return s.repo.FindByEmail(ctx, email)
		},
		Enabled: email != "",
	})
	if err != nil {
		return nil, err
	}
	if app == nil {
		return &tutorDto.StatusResponse{Status: tutorDto.StatusNone, CanApply: true}, nil
	}
	return &tutorDto.StatusResponse{
		Status:      string(app.Status),
		Application: app,
		CanApply:    app.Status == entity.ApplicationCancelled,
	}, nil
}

func (s *service) Apply(ctx context.Context, caller entity.Caller, req tutorDto.ApplyRequest) (*entity.TutorApplication, error) {
	if caller.IsAdmin() || caller.IsTutor() {
		return nil, apperror.New(http.StatusConflict, "you already have tutor access", apperror.ErrConflict)
	}

	release, err := s.latch.Acquire(ctx, "tutor-apply", caller.Email)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.repo.FindByEmail(ctx, caller.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		switch existing.Status {
		case entity.ApplicationPending:
			return nil, apperror.New(http.StatusConflict, "your application is still under review", apperror.ErrConflict)
		case entity.ApplicationApproved:
			return nil, apperror.New(http.StatusConflict, "your application was already approved", apperror.ErrConflict)
		}
	}

	app := &entity.TutorApplication{
		Name:       caller.Name,
		Email:      caller.Email,
		Photo:      caller.PhotoURL,
		Phone:      strings.TrimSpace(req.Phone),
		Experience: strings.TrimSpace(req.Experience),
		Speciality: strings.TrimSpace(req.Speciality),
		Education: entity.Education{
			Degree:      strings.TrimSpace(req.Education.Degree),
			Institution: strings.TrimSpace(req.Education.Institution),
			Year:        strings.TrimSpace(req.Education.Year),
			GPA:         strings.TrimSpace(req.Education.GPA),
		},
		Bio:       strings.TrimSpace(req.Bio),
		LinkedIn:  strings.TrimSpace(req.LinkedIn),
		Role:      "tutor",
		Status:    entity.ApplicationPending,
		Feedback:  "",
		AppliedAt: entity.NewDate(s.now()),
	}

	if existing != nil {
		if err := s.repo.Update(ctx, existing.ID, app); err != nil {
			return nil, err
		}
		app.ID = existing.ID
	} else {
		id, err := s.repo.Create(ctx, app)
		if err != nil {
			return nil, err
		}
		app.ID = id
	}

	s.invalidate(ctx, pendingKey, allKey, statusKey(caller.Email))
	return app, nil
}

func (s *service) ListPending(ctx context.Context) ([]entity.TutorApplication, error) {
	return querycache.Query(ctx, s.cache, querycache.Request[[]entity.TutorApplication]{
		Key:     pendingKey,
		Fetch:   s.repo.FindPending,
		Enabled: true,
	})
}

func (s *service) ListAll(ctx context.Context) ([]entity.TutorApplication, error) {
	return querycache.Query(ctx, s.cache, querycache.Request[[]entity.TutorApplication]{
		Key:     allKey,
		Fetch:   s.repo.FindAll,
		Enabled: true,
	})
}

func (s *service) ListApproved(ctx context.Context) ([]entity.TutorApplication, error) {
	all, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	approved := make([]entity.TutorApplication, 0, len(all))
	for _, app := range all {
		if app.Status == entity.ApplicationApproved {
			app.Phone = ""
			approved = append(approved, app)
		}
	}
	return approved, nil
}

func (s *service) Approve(ctx context.Context, id string) (*entity.TutorApplication, error) {
	app, release, err := s.startReview(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.repo.Update(ctx, id, repo.Review{Status: entity.ApplicationApproved}); err != nil {
		return nil, err
	}
	app.Status = entity.ApplicationApproved
	app.Feedback = ""

	// the backend flips the user role to tutor along with the application
	if err := s.roles.Invalidate(ctx, app.Email); err != nil {
		slog.Warn("failed to invalidate role after tutor approval", "email", app.Email, "error", err)
	}
	s.invalidate(ctx, pendingKey, allKey, statusKey(app.Email), querycache.NewKey("admin-users"))
	s.notifications.Notify(ctx, app.Email, entity.Notification{
		Type:    entity.NotifyTutorApproved,
		Level:   entity.LevelSuccess,
		Title:   "You are now a tutor",
		Message: "Your tutor application was approved. You can create study sessions.",
		Link:    "/dashboard/create-session",
	})
	return app, nil
}

func (s *service) Reject(ctx context.Context, id string, req tutorDto.RejectRequest) (*entity.TutorApplication, error) {
	feedback := strings.TrimSpace(req.Feedback)
	if feedback == "" {
		return nil, apperror.New(http.StatusBadRequest, "feedback is required to reject an application", apperror.ErrInvalidInput)
	}

	app, release, err := s.startReview(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.repo.Update(ctx, id, repo.Review{Status: entity.ApplicationCancelled, Feedback: feedback}); err != nil {
		return nil, err
	}
	app.Status = entity.ApplicationCancelled
	app.Feedback = feedback

	s.invalidate(ctx, pendingKey, allKey, statusKey(app.Email))
	s.notifications.Notify(ctx, app.Email, entity.Notification{
		Type:    entity.NotifyTutorRejected,
		Level:   entity.LevelError,
		Title:   "Tutor application rejected",
		Message: feedback,
		Link:    "/become-tutor",
	})
	return app, nil
}

// startReview latches the application and finds it among the pending ones.
func (s *service) startReview(ctx context.Context, id string) (*entity.TutorApplication, func(), error) {
	release, err := s.latch.Acquire(ctx, "tutor-review", id)
	if err != nil {
		return nil, nil, err
	}

	pending, err := s.repo.FindPending(ctx)
	if err != nil {
		release()
		return nil, nil, err
	}
	for i := range pending {
		if pending[i].ID == id {
			app := pending[i]
			return &app, release, nil
		}
	}
	release()
	return nil, nil, apperror.New(http.StatusConflict, "this application is not awaiting review", apperror.ErrConflict)
}

func (s *service) Delete(ctx context.Context, id string) error {
	release, err := s.latch.Acquire(ctx, "tutor-delete", id)
	if err != nil {
		return err
	}
	defer release()

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete tutor %s: %w", id, err)
	}
	s.invalidate(ctx, pendingKey, allKey)
	return nil
}

func (s *service) invalidate(ctx context.Context, keys ...querycache.Key) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		slog.Warn("failed to invalidate tutor queries", "error", err)
	}
}
