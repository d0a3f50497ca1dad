package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	notifService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/service"
	searchService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/search/service"
	sessionDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/session/dto"
	repo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/session/repository"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	commonDto "github.com/ShahriarTWS/TutorHub-Client/pkg/dto"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/storage"
)

// Service drives a study session through pending, approved and rejected.
// Local state only changes after the backend confirmed a write.
type Service interface {
	Create(ctx context.Context, caller entity.Caller, req sessionDto.CreateSessionRequest, image *commonDto.UploadedFile) (*entity.StudySession, error)
	// Resubmit files a new pending session that supersedes id. The original
	// record is kept as history.
	Resubmit(ctx context.Context, caller entity.Caller, id string, req sessionDto.CreateSessionRequest, image *commonDto.UploadedFile) (*entity.StudySession, error)
	Approve(ctx context.Context, id string, req sessionDto.ApproveSessionRequest) (*entity.StudySession, error)
	Reject(ctx context.Context, id string, req sessionDto.RejectSessionRequest) (*entity.StudySession, error)

	Get(ctx context.Context, id string) (*entity.StudySession, error)
	ListApproved(ctx context.Context) ([]sessionDto.SessionResponse, error)
	ListForTutor(ctx context.Context, email string) ([]entity.StudySession, error)
	ListAll(ctx context.Context) ([]entity.StudySession, error)
	ApprovedForTutor(ctx context.Context, email string) ([]entity.StudySession, error)
	// Reindex pushes every approved session to the search index.
	Reindex(ctx context.Context) error
}

func sessionKey(id string) querycache.Key { return querycache.NewKey("session", id) }

func tutorSessionsKey(email string) querycache.Key {
	return querycache.NewKey("sessions-for-tutor", email)
}

func tutorApprovedKey(email string) querycache.Key {
	return querycache.NewKey("approved-sessions-for-tutor", email)
}

var (
	approvedKey = querycache.NewKey("approved-sessions")
	adminKey    = querycache.NewKey("admin-sessions")
)

type service struct {
	repo          repo.Repository
	fileStorage   storage.FileStorage
	latch         *latch.Latch
	cache         *querycache.Cache
	search        searchService.SearchService
	notifications notifService.NotificationService
	uploadFolder  string
	now           func() time.Time
}

func NewService(repo repo.Repository, fileStorage storage.FileStorage, latch *latch.Latch, cache *querycache.Cache, search searchService.SearchService, notifications notifService.NotificationService, uploadFolder string) Service {
	return &service{
		repo:          repo,
		fileStorage:   fileStorage,
		latch:         latch,
		cache:         cache,
		search:        search,
		notifications: notifications,
		uploadFolder:  uploadFolder,
		now:           time.Now,
	}
}

func (s *service) Create(ctx context.Context, caller entity.Caller, req sessionDto.CreateSessionRequest, image *commonDto.UploadedFile) (*entity.StudySession, error) {
	if !caller.IsTutor() && !caller.IsAdmin() {
		return nil, fmt.Errorf("only tutors can create study sessions: %w", apperror.ErrForbidden)
	}

	release, err := s.latch.Acquire(ctx, "session-create", caller.Email)
	if err != nil {
		return nil, err
	}
	defer release()

	owner := entity.StudySession{TutorName: caller.Name, TutorEmail: caller.Email, TutorImage: caller.PhotoURL}
	session, err := s.build(ctx, caller, req, image, owner)
	if err != nil {
		return nil, err
	}

	return s.submit(ctx, session)
}

func (s *service) Resubmit(ctx context.Context, caller entity.Caller, id string, req sessionDto.CreateSessionRequest, image *commonDto.UploadedFile) (*entity.StudySession, error) {
	if !caller.IsTutor() && !caller.IsAdmin() {
		return nil, fmt.Errorf("only tutors can resubmit study sessions: %w", apperror.ErrForbidden)
	}

	release, err := s.latch.Acquire(ctx, "session-create", caller.Email)
	if err != nil {
		return nil, err
	}
	defer release()

	original, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.IsAdmin() && !strings.EqualFold(original.TutorEmail, caller.Email) {
		return nil, fmt.Errorf("session %s belongs to another tutor: %w", id, apperror.ErrForbidden)
	}
	if original.Status == entity.SessionApproved {
		return nil, apperror.New(http.StatusConflict, "approved sessions cannot be resubmitted", apperror.ErrConflict)
	}

	owner := entity.StudySession{TutorName: original.TutorName, TutorEmail: original.TutorEmail, TutorImage: original.TutorImage}
	session, err := s.build(ctx, caller, req, image, owner)
	if err != nil {
		return nil, err
	}
	session.Supersedes = original.ID
	if session.Image == "" {
		session.Image = original.Image
	}

	return s.submit(ctx, session)
}

// build validates the request and assembles a new pending session for owner.
// The fee stays 0 unless an admin sets it.
func (s *service) build(ctx context.Context, caller entity.Caller, req sessionDto.CreateSessionRequest, image *commonDto.UploadedFile, owner entity.StudySession) (*entity.StudySession, error) {
	dates := map[string]string{
		"registrationStart": req.RegistrationStart,
		"registrationEnd":   req.RegistrationEnd,
		"classStart":        req.ClassStart,
		"classEnd":          req.ClassEnd,
	}
	parsed := make(map[string]entity.Date, len(dates))
	for field, raw := range dates {
		d, err := entity.ParseDate(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", field, apperror.ErrInvalidInput)
		}
		parsed[field] = d
	}
	if parsed["registrationEnd"].Before(parsed["registrationStart"].Time) {
		return nil, apperror.New(http.StatusBadRequest, "registration must end after it starts", apperror.ErrInvalidInput)
	}
	if parsed["classEnd"].Before(parsed["classStart"].Time) {
		return nil, apperror.New(http.StatusBadRequest, "class must end after it starts", apperror.ErrInvalidInput)
	}

	fee := 0.0
	if caller.IsAdmin() && req.RegistrationFee != nil {
		if err := validFee(req.RegistrationFee); err != nil {
			return nil, err
		}
		fee = *req.RegistrationFee
	}

	imageURL := req.Image
	if image != nil {
		if s.fileStorage == nil {
			return nil, apperror.New(http.StatusServiceUnavailable, "image uploads are not enabled", apperror.ErrUnavailable)
		}
		url, err := s.fileStorage.UploadImage(ctx, image.Reader, s.uploadFolder+"/sessions", image.FileName)
		if err != nil {
			return nil, fmt.Errorf("upload session image: %w", err)
		}
		imageURL = url
	}

	return &entity.StudySession{
		Title:             strings.TrimSpace(req.Title),
		Description:       strings.TrimSpace(req.Description),
		TutorName:         owner.TutorName,
		TutorEmail:        owner.TutorEmail,
		TutorImage:        owner.TutorImage,
		RegistrationStart: parsed["registrationStart"],
		RegistrationEnd:   parsed["registrationEnd"],
		ClassStart:        parsed["classStart"],
		ClassEnd:          parsed["classEnd"],
		Duration:          strings.TrimSpace(req.Duration),
		RegistrationFee:   fee,
		Status:            entity.SessionPending,
		Image:             imageURL,
	}, nil
}

func (s *service) submit(ctx context.Context, session *entity.StudySession) (*entity.StudySession, error) {
	id, err := s.repo.Create(ctx, session)
	if err != nil {
		if session.Image != "" && s.fileStorage != nil {
			s.discardUpload(session.Image)
		}
		return nil, err
	}
	session.ID = id

	s.invalidate(ctx, tutorSessionsKey(session.TutorEmail), adminKey)
	s.notifications.Notify(ctx, session.TutorEmail, entity.Notification{
		Type:    entity.NotifySessionSubmitted,
		Level:   entity.LevelSuccess,
		Title:   "Session submitted",
		Message: fmt.Sprintf("%q is waiting for admin review", session.Title),
		Link:    "/dashboard/view-study-sessions",
	})
	return session, nil
}

func (s *service) Approve(ctx context.Context, id string, req sessionDto.ApproveSessionRequest) (*entity.StudySession, error) {
	if err := validFee(req.RegistrationFee); err != nil {
		return nil, err
	}
	fee := *req.RegistrationFee

	session, release, err := s.startReview(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.repo.UpdateStatus(ctx, id, repo.StatusUpdate{Status: entity.SessionApproved, RegistrationFee: &fee}); err != nil {
		return nil, err
	}
	session.Status = entity.SessionApproved
	session.RegistrationFee = fee
	session.Feedback = ""

	s.afterReview(ctx, session)
	if err := s.search.IndexSession(session); err != nil {
		slog.Warn("failed to index approved session", "session_id", id, "error", err)
	}

	message := fmt.Sprintf("%q is open for registration", session.Title)
	if fee > 0 {
		message = fmt.Sprintf("%q is open for registration with a fee of %.2f", session.Title, fee)
	}
	s.notifications.Notify(ctx, session.TutorEmail, entity.Notification{
		Type:    entity.NotifySessionApproved,
		Level:   entity.LevelSuccess,
		Title:   "Session approved",
		Message: message,
		Link:    "/dashboard/view-study-sessions",
	})
	return session, nil
}

func (s *service) Reject(ctx context.Context, id string, req sessionDto.RejectSessionRequest) (*entity.StudySession, error) {
	feedback := strings.TrimSpace(req.Feedback)
	if feedback == "" {
		return nil, apperror.New(http.StatusBadRequest, "feedback is required to reject a session", apperror.ErrInvalidInput)
	}

	session, release, err := s.startReview(ctx, id)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.repo.UpdateStatus(ctx, id, repo.StatusUpdate{Status: entity.SessionRejected, Feedback: feedback}); err != nil {
		return nil, err
	}
	session.Status = entity.SessionRejected
	session.Feedback = feedback

	s.afterReview(ctx, session)
	if err := s.search.DeleteSession(id); err != nil {
		slog.Warn("failed to remove rejected session from index", "session_id", id, "error", err)
	}

	s.notifications.Notify(ctx, session.TutorEmail, entity.Notification{
		Type:    entity.NotifySessionRejected,
		Level:   entity.LevelError,
		Title:   "Session rejected",
		Message: fmt.Sprintf("%q was rejected: %s", session.Title, feedback),
		Link:    "/dashboard/view-study-sessions",
	})
	return session, nil
}

// startReview latches the session and loads its current state. Only pending
// sessions can be reviewed.
func (s *service) startReview(ctx context.Context, id string) (*entity.StudySession, func(), error) {
	release, err := s.latch.Acquire(ctx, "session-review", id)
	if err != nil {
		return nil, nil, err
	}

	session, err := s.repo.FindByID(ctx, id)
	if err != nil {
		release()
		return nil, nil, err
	}
	if session.Status != entity.SessionPending {
		release()
		return nil, nil, apperror.New(http.StatusConflict,
			fmt.Sprintf("session is already %s", session.Status), apperror.ErrConflict)
	}
	return session, release, nil
}

func (s *service) afterReview(ctx context.Context, session *entity.StudySession) {
	s.invalidate(ctx,
		adminKey,
		approvedKey,
		tutorSessionsKey(session.TutorEmail),
		tutorApprovedKey(session.TutorEmail),
		sessionKey(session.ID),
	)
}

func (s *service) Get(ctx context.Context, id string) (*entity.StudySession, error) {
	session, err := querycache.Query(ctx, s.cache, querycache.Request[*entity.StudySession]{
		Key:     sessionKey(id),
		Fetch:   func(ctx context.Context) (*entity.StudySession, error) { return s.repo.FindByID(ctx, id) },
		Enabled: id != "",
	})
	if errors.Is(err, querycache.ErrDisabled) {
		return nil, apperror.ErrNotFound
	}
	return session, err
}

func (s *service) ListApproved(ctx context.Context) ([]sessionDto.SessionResponse, error) {
	sessions, err := querycache.Query(ctx, s.cache, querycache.Request[[]entity.StudySession]{
		Key:     approvedKey,
		Fetch:   s.repo.FindApproved,
		Enabled: true,
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	res := make([]sessionDto.SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		res = append(res, sessionDto.SessionResponse{
			StudySession:      session,
			RegistrationLabel: session.RegistrationLabel(now),
			Bookable:          session.Bookable(now),
		})
	}
	return res, nil
}

func (s *service) ListForTutor(ctx context.Context, email string) ([]entity.StudySession, error) {
	return s.listByEmail(ctx, tutorSessionsKey(email), email, s.repo.FindByTutor)
}

func (s *service) ApprovedForTutor(ctx context.Context, email string) ([]entity.StudySession, error) {
	return s.listByEmail(ctx, tutorApprovedKey(email), email, s.repo.FindApprovedByTutor)
}

func (s *service) listByEmail(ctx context.Context, key querycache.Key, email string, fetch func(context.Context, string) ([]entity.StudySession, error)) ([]entity.StudySession, error) {
	sessions, err := querycache.Query(ctx, s.cache, querycache.Request[[]entity.StudySession]{
		Key:     key,
		Fetch:   func(ctx context.Context) ([]entity.StudySession, error) { return fetch(ctx, email) },
		Enabled: email != "",
	})
	if errors.Is(err, querycache.ErrDisabled) {
		return []entity.StudySession{}, nil
	}
	return sessions, err
}

func (s *service) ListAll(ctx context.Context) ([]entity.StudySession, error) {
	return querycache.Query(ctx, s.cache, querycache.Request[[]entity.StudySession]{
		Key:     adminKey,
		Fetch:   s.repo.FindAll,
		Enabled: true,
	})
}

func (s *service) Reindex(ctx context.Context) error {
	sessions, err := s.repo.FindApproved(ctx)
	if err != nil {
		return err
	}
	for i := range sessions {
		if err := s.search.IndexSession(&sessions[i]); err != nil {
			return err
		}
	}
	slog.Info("search index rebuilt", "sessions", len(sessions))
	return nil
}

func (s *service) invalidate(ctx context.Context, keys ...querycache.Key) {
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		slog.Warn("failed to invalidate session queries", "error", err)
	}
}

func (s *service) discardUpload(url string) {
	if err := s.fileStorage.Delete(context.Background(), url); err != nil {
		slog.Warn("failed to delete orphaned session image", "url", url, "error", err)
	}
}

func validFee(fee *float64) error {
	if fee == nil {
		return apperror.New(http.StatusBadRequest, "a registration fee is required to approve a session", apperror.ErrInvalidInput)
	}
	if *fee < 0 || math.IsNaN(*fee) || math.IsInf(*fee, 0) {
		return apperror.New(http.StatusBadRequest, "registration fee must be zero or positive", apperror.ErrInvalidInput)
	}
	return nil
}
