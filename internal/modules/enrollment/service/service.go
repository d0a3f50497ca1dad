package enrollment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	enrollmentDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/enrollment/dto"
	repo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/enrollment/repository"
	notifService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/service"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
)

// SessionReader loads the current state of a study session.
type SessionReader interface {
	Get(ctx context.Context, id string) (*entity.StudySession, error)
}

type Service interface {
	// Enroll books student into a session. Free sessions are recorded at
	// once; paid sessions return the checkout to complete with ConfirmPayment.
	Enroll(ctx context.Context, student entity.Caller, sessionID string) (*enrollmentDto.EnrollResult, error)
	ConfirmPayment(ctx context.Context, student entity.Caller, sessionID, transactionID string) (*entity.Payment, error)
	History(ctx context.Context, email string) ([]enrollmentDto.PaymentHistoryItem, error)
	IsEnrolled(ctx context.Context, email, sessionID string) (bool, error)
	// EnrolledSessionIDs lists the sessions email has a payment for.
	EnrolledSessionIDs(ctx context.Context, email string) ([]string, error)
}

func paymentsKey(email string) querycache.Key { return querycache.NewKey("payments", email) }

type service struct {
	repo           repo.Repository
	sessions       SessionReader
	latch          *latch.Latch
	cache          *querycache.Cache
	notifications  notifService.NotificationService
	publishableKey string
	now            func() time.Time
}

func NewService(repo repo.Repository, sessions SessionReader, latch *latch.Latch, cache *querycache.Cache, notifications notifService.NotificationService, publishableKey string) Service {
	return &service{
		repo:           repo,
		sessions:       sessions,
		latch:          latch,
		cache:          cache,
		notifications:  notifications,
		publishableKey: publishableKey,
		now:            time.Now,
	}
}

func (s *service) Enroll(ctx context.Context, student entity.Caller, sessionID string) (*enrollmentDto.EnrollResult, error) {
	release, err := s.latch.Acquire(ctx, "enroll", student.Email, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.bookableSession(ctx, student, sessionID)
	if err != nil {
		return nil, err
	}

	if !session.IsFree() {
		secret, err := s.repo.CreatePaymentIntent(ctx, session.RegistrationFee)
		if err != nil {
			return nil, err
		}
		return &enrollmentDto.EnrollResult{
			Status: enrollmentDto.StatusCheckoutRequired,
			Checkout: &enrollmentDto.Checkout{
				SessionID:      session.ID,
				Amount:         session.RegistrationFee,
				ClientSecret:   secret,
				PublishableKey: s.publishableKey,
			},
		}, nil
	}

	payment := &entity.Payment{
		Email:         student.Email,
		SessionID:     session.ID,
		Amount:        0,
		TransactionID: entity.FreeTransactionID,
		Date:          entity.NewDate(s.now()),
	}
	if err := s.repo.CreateFree(ctx, payment); err != nil {
		return nil, err
	}
	s.enrolled(ctx, student.Email, session)

	return &enrollmentDto.EnrollResult{Status: enrollmentDto.StatusEnrolled, Payment: payment}, nil
}

func (s *service) ConfirmPayment(ctx context.Context, student entity.Caller, sessionID, transactionID string) (*entity.Payment, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" || transactionID == entity.FreeTransactionID {
		return nil, apperror.New(http.StatusBadRequest, "a transaction id is required", apperror.ErrInvalidInput)
	}

	release, err := s.latch.Acquire(ctx, "enroll", student.Email, sessionID)
	if err != nil {
		return nil, err
	}
	defer release()

	session, err := s.bookableSession(ctx, student, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsFree() {
		return nil, apperror.New(http.StatusBadRequest, "free sessions do not take payments", apperror.ErrInvalidInput)
	}

	payment := &entity.Payment{
		Email:         student.Email,
		SessionID:     session.ID,
		Amount:        session.RegistrationFee,
		TransactionID: transactionID,
		Date:          entity.NewDate(s.now()),
	}
	if err := s.repo.StorePayment(ctx, payment); err != nil {
		return nil, err
	}
	s.enrolled(ctx, student.Email, session)

	return payment, nil
}

// bookableSession loads the session and checks that student can still book
// it and has not done so already.
func (s *service) bookableSession(ctx context.Context, student entity.Caller, sessionID string) (*entity.StudySession, error) {
	session, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Bookable(s.now()) {
		return nil, apperror.New(http.StatusConflict, "registration for this session is closed", apperror.ErrConflict)
	}

	enrolled, err := s.fetchEnrolled(ctx, student.Email, sessionID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, apperror.New(http.StatusConflict, "you are already enrolled in this session", apperror.ErrConflict)
	}
	return session, nil
}

// fetchEnrolled always asks the backend so a stale cache cannot let a
// student pay twice.
func (s *service) fetchEnrolled(ctx context.Context, email, sessionID string) (bool, error) {
	payments, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	return hasSession(payments, sessionID), nil
}

func (s *service) enrolled(ctx context.Context, email string, session *entity.StudySession) {
	if err := s.cache.Invalidate(ctx, paymentsKey(email)); err != nil {
		slog.Warn("failed to invalidate payments", "email", email, "error", err)
	}
	s.notifications.Notify(ctx, email, entity.Notification{
		Type:    entity.NotifyEnrolled,
		Level:   entity.LevelSuccess,
		Title:   "Enrolled",
		Message: fmt.Sprintf("You are booked into %q", session.Title),
		Link:    "/dashboard/booked-sessions",
	})
}

func (s *service) payments(ctx context.Context, email string) ([]entity.Payment, error) {
	payments, err := querycache.Query(ctx, s.cache, querycache.Request[[]entity.Payment]{
		Key:     paymentsKey(email),
		Fetch:   func(ctx context.Context) ([]entity.Payment, error) { return s.repo.FindByEmail(ctx, email) },
		Enabled: email != "",
	})
	if errors.Is(err, querycache.ErrDisabled) {
		return []entity.Payment{}, nil
	}
	return payments, err
}

func (s *service) History(ctx context.Context, email string) ([]enrollmentDto.PaymentHistoryItem, error) {
	payments, err := s.payments(ctx, email)
	if err != nil {
		return nil, err
	}

	titles := make(map[string]string, len(payments))
	items := make([]enrollmentDto.PaymentHistoryItem, 0, len(payments))
	for _, p := range payments {
		title, ok := titles[p.SessionID]
		if !ok {
			session, err := s.sessions.Get(ctx, p.SessionID)
			switch {
			case err == nil:
				title = session.Title
			case errors.Is(err, apperror.ErrSessionRevoked):
				return nil, err
			default:
				slog.Warn("failed to load session for payment history", "session_id", p.SessionID, "error", err)
			}
			titles[p.SessionID] = title
		}
		items = append(items, enrollmentDto.PaymentHistoryItem{
			Payment:      p,
			SessionTitle: title,
			Free:         p.TransactionID == entity.FreeTransactionID,
		})
	}
	return items, nil
}

func (s *service) IsEnrolled(ctx context.Context, email, sessionID string) (bool, error) {
	payments, err := s.payments(ctx, email)
	if err != nil {
		return false, err
	}
	return hasSession(payments, sessionID), nil
}

func (s *service) EnrolledSessionIDs(ctx context.Context, email string) ([]string, error) {
	payments, err := s.payments(ctx, email)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(payments))
	ids := make([]string, 0, len(payments))
	for _, p := range payments {
		if !seen[p.SessionID] {
			seen[p.SessionID] = true
			ids = append(ids, p.SessionID)
		}
	}
	return ids, nil
}

func hasSession(payments []entity.Payment, sessionID string) bool {
	for _, p := range payments {
		if p.SessionID == sessionID {
			return true
		}
	}
	return false
}
