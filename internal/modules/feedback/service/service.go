package feedback

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	feedbackDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/feedback/dto"
	repo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/feedback/repository"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
	"github.com/microcosm-cc/bluemonday"
)

type EnrollmentChecker interface {
	IsEnrolled(ctx context.Context, email, sessionID string) (bool, error)
}

type Service interface {
	ForSession(ctx context.Context, caller entity.Caller, sessionID string) (*feedbackDto.SessionReviews, error)
	// Save creates the caller's review of a session or updates it.
	Save(ctx context.Context, caller entity.Caller, sessionID string, req feedbackDto.ReviewRequest) (*entity.Review, error)
}

func reviewsKey(sessionID string) querycache.Key { return querycache.NewKey("feedbacks", sessionID) }

type service struct {
	repo        repo.Repository
	enrollments EnrollmentChecker
	latch       *latch.Latch
	cache       *querycache.Cache
	sanitizer   *bluemonday.Policy
	now         func() time.Time
}

func NewService(repo repo.Repository, enrollments EnrollmentChecker, latch *latch.Latch, cache *querycache.Cache) Service {
	return &service{
		repo:        repo,
		enrollments: enrollments,
		latch:       latch,
		cache:       cache,
		sanitizer:   bluemonday.StrictPolicy(),
		now:         time.Now,
	}
}

func (s *service) reviews(ctx context.Context, sessionID string) ([]entity.Review, error) {
	return querycache.Query(ctx, s.cache, querycache.Request[[]entity.Review]{
		Key:     reviewsKey(sessionID),
		Fetch:   func(ctx context.Context) ([]entity.Review, error) { return s.repo.FindBySession(ctx, sessionID) },
		Enabled: true,
	})
}

func (s *service) ForSession(ctx context.Context, caller entity.Caller, sessionID string) (*feedbackDto.SessionReviews, error) {
	reviews, err := s.reviews(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res := &feedbackDto.SessionReviews{Reviews: reviews, Count: len(reviews)}
	if len(reviews) > 0 {
		sum := 0
		for _, r := range reviews {
			sum += r.Rating
		}
		avg := math.Round(float64(sum)/float64(len(reviews))*10) / 10
		res.Average = &avg
	}
	if mine := findByStudent(reviews, caller.Email); mine != nil {
		res.MyReview = mine
	}
	return res, nil
}

func (s *service) Save(ctx context.Context, caller entity.Caller, sessionID string, req feedbackDto.ReviewRequest) (*entity.Review, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperror.New(http.StatusBadRequest, "rating must be between 1 and 5", apperror.ErrInvalidInput)
	}

	enrolled, err := s.enrollments.IsEnrolled(ctx, caller.Email, sessionID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, apperror.New(http.StatusForbidden, "only enrolled students can review this session", apperror.ErrForbidden)
	}

	release, err := s.latch.Acquire(ctx, "review", caller.Email, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	text := strings.TrimSpace(s.sanitizer.Sanitize(req.Feedback))

	// always read fresh so two tabs cannot create two reviews
	current, err := s.repo.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	review := findByStudent(current, caller.Email)
	if review != nil {
		if err := s.repo.Update(ctx, review.ID, repo.Patch{Rating: req.Rating, Feedback: text}); err != nil {
			return nil, err
		}
		review.Rating = req.Rating
		review.Feedback = text
	} else {
		review = &entity.Review{
			SessionID:    sessionID,
			StudentEmail: caller.Email,
			StudentName:  caller.Name,
			Rating:       req.Rating,
			Feedback:     text,
			CreatedAt:    entity.NewDate(s.now()),
		}
		id, err := s.repo.Create(ctx, review)
		if err != nil {
			return nil, err
		}
		review.ID = id
	}

	if err := s.cache.Invalidate(ctx, reviewsKey(sessionID)); err != nil {
		slog.Warn("failed to invalidate reviews", "session_id", sessionID, "error", err)
	}
	return review, nil
}

func findByStudent(reviews []entity.Review, email string) *entity.Review {
	for i := range reviews {
		if strings.EqualFold(reviews[i].StudentEmail, email) {
			r := reviews[i]
			return &r
		}
	}
	return nil
}
