package enrollment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	enrollmentDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/enrollment/dto"
	notifService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/service"
	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindByEmail(ctx context.Context, email string) ([]entity.Payment, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Payment), args.Error(1)
}

func (m *MockRepository) CreateFree(ctx context.Context, payment *entity.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

func (m *MockRepository) CreatePaymentIntent(ctx context.Context, amount float64) (string, error) {
	args := m.Called(ctx, amount)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) StorePayment(ctx context.Context, payment *entity.Payment) error {
	return m.Called(ctx, payment).Error(0)
}

// staticSessions serves fixed sessions by id.
type staticSessions map[string]entity.StudySession

func (s staticSessions) Get(_ context.Context, id string) (*entity.StudySession, error) {
	session, ok := s[id]
	if !ok {
		return nil, apperror.ErrNotFound
	}
	return &session, nil
}

var (
	student = entity.Caller{Email: "student@example.com", Role: role.Student}
	today   = time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)
)

func approvedSession(id string, fee float64) entity.StudySession {
	return entity.StudySession{
		ID:              id,
		Title:           "Session " + id,
		Status:          entity.SessionApproved,
		RegistrationFee: fee,
		RegistrationEnd: entity.NewDate(time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)),
	}
}

func newTestService(t *testing.T, r *MockRepository, sessions SessionReader) *service {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	svc := NewService(r, sessions, latch.New(rdb, time.Minute), querycache.New(rdb, time.Minute),
		notifService.NewNotificationService(nil, nil), "pk_test_123").(*service)
	svc.now = func() time.Time { return today }
	return svc
}

func TestEnrollFreeSessionRecordsFreeTransaction(t *testing.T) {
	r := new(MockRepository)
	svc := newTestService(t, r, staticSessions{"free": approvedSession("free", 0)})

	r.On("FindByEmail", mock.Anything, student.Email).Return([]entity.Payment{}, nil)
	r.On("CreateFree", mock.Anything, mock.MatchedBy(func(p *entity.Payment) bool {
		return p.TransactionID == entity.FreeTransactionID && p.Amount == 0 && p.SessionID == "free"
	})).Return(nil)

	res, err := svc.Enroll(context.Background(), student, "free")
	require.NoError(t, err)
	assert.Equal(t, enrollmentDto.StatusEnrolled, res.Status)
	assert.Nil(t, res.Checkout)
	r.AssertNotCalled(t, "CreatePaymentIntent", mock.Anything, mock.Anything)
}

func TestEnrollPaidSessionReturnsCheckoutThenConfirms(t *testing.T) {
	r := new(MockRepository)
	svc := newTestService(t, r, staticSessions{"paid": approvedSession("paid", 500)})
	ctx := context.Background()

	r.On("FindByEmail", mock.Anything, student.Email).Return([]entity.Payment{}, nil)
	r.On("CreatePaymentIntent", mock.Anything, 500.0).Return("pi_secret", nil)

	res, err := svc.Enroll(ctx, student, "paid")
	require.NoError(t, err)
	assert.Equal(t, enrollmentDto.StatusCheckoutRequired, res.Status)
	require.NotNil(t, res.Checkout)
	assert.Equal(t, 500.0, res.Checkout.Amount)
	assert.Equal(t, "pi_secret", res.Checkout.ClientSecret)
	assert.Equal(t, "pk_test_123", res.Checkout.PublishableKey)
	r.AssertNotCalled(t, "CreateFree", mock.Anything, mock.Anything)

	r.On("StorePayment", mock.Anything, mock.MatchedBy(func(p *entity.Payment) bool {
		return p.Amount == 500 && p.TransactionID == "pi_123" && p.Email == student.Email
	})).Return(nil)

	payment, err := svc.ConfirmPayment(ctx, student, "paid", " pi_123 ")
	require.NoError(t, err)
	assert.Equal(t, 500.0, payment.Amount)
	r.AssertExpectations(t)
}

func TestEnrollRejectsClosedAndDuplicateBookings(t *testing.T) {
	closed := approvedSession("closed", 0)
	closed.RegistrationEnd = entity.NewDate(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	pending := approvedSession("pending", 0)
	pending.Status = entity.SessionPending

	r := new(MockRepository)
	svc := newTestService(t, r, staticSessions{
		"closed":  closed,
		"pending": pending,
		"taken":   approvedSession("taken", 0),
	})
	r.On("FindByEmail", mock.Anything, student.Email).Return([]entity.Payment{{SessionID: "taken"}}, nil)

	for _, id := range []string{"closed", "pending", "taken"} {
		_, err := svc.Enroll(context.Background(), student, id)
		assert.ErrorIs(t, err, apperror.ErrConflict, id)
	}
	r.AssertNotCalled(t, "CreateFree", mock.Anything, mock.Anything)
}

func TestConcurrentEnrollmentIsLatched(t *testing.T) {
	r := new(MockRepository)
	svc := newTestService(t, r, staticSessions{"free": approvedSession("free", 0)})

	entered := make(chan struct{})
	unblock := make(chan struct{})
	r.On("FindByEmail", mock.Anything, student.Email).Return([]entity.Payment{}, nil)
	r.On("CreateFree", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		close(entered)
		<-unblock
	}).Return(nil).Once()

	var wg sync.WaitGroup
	var firstErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = svc.Enroll(context.Background(), student, "free")
	}()

	<-entered
	_, err := svc.Enroll(context.Background(), student, "free")
	assert.ErrorIs(t, err, apperror.ErrConflict)
	assert.ErrorIs(t, err, latch.ErrInFlight)

	close(unblock)
	wg.Wait()
	require.NoError(t, firstErr)
	r.AssertNumberOfCalls(t, "CreateFree", 1)
}

func TestConfirmPaymentRequiresTransaction(t *testing.T) {
	r := new(MockRepository)
	svc := newTestService(t, r, staticSessions{"paid": approvedSession("paid", 10)})

	_, err := svc.ConfirmPayment(context.Background(), student, "paid", "  ")
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	_, err = svc.ConfirmPayment(context.Background(), student, "paid", entity.FreeTransactionID)
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)
	r.AssertNotCalled(t, "StorePayment", mock.Anything, mock.Anything)
}

func TestHistoryJoinsTitlesAndCaches(t *testing.T) {
	r := new(MockRepository)
	svc := newTestService(t, r, staticSessions{"a": approvedSession("a", 0)})

	r.On("FindByEmail", mock.Anything, student.Email).Return([]entity.Payment{
		{SessionID: "a", TransactionID: entity.FreeTransactionID},
		{SessionID: "gone", TransactionID: "pi_1", Amount: 20},
	}, nil).Once()

	items, err := svc.History(context.Background(), student.Email)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Session a", items[0].SessionTitle)
	assert.True(t, items[0].Free)
	assert.Empty(t, items[1].SessionTitle)
	assert.False(t, items[1].Free)

	enrolled, err := svc.IsEnrolled(context.Background(), student.Email, "gone")
	require.NoError(t, err)
	assert.True(t, enrolled)
	r.AssertNumberOfCalls(t, "FindByEmail", 1)
}

// revokedSessions answers every lookup as a rejected identity.
type revokedSessions struct{}

func (revokedSessions) Get(context.Context, string) (*entity.StudySession, error) {
	return nil, apperror.Revoked(apperror.FromStatus(403, ""))
}

func TestHistoryStopsOnRevokedSession(t *testing.T) {
	r := new(MockRepository)
	svc := newTestService(t, r, revokedSessions{})

	r.On("FindByEmail", mock.Anything, student.Email).Return([]entity.Payment{
		{SessionID: "a", TransactionID: "pi_1", Amount: 20},
	}, nil)

	items, err := svc.History(context.Background(), student.Email)
	assert.ErrorIs(t, err, apperror.ErrSessionRevoked)
	assert.Nil(t, items)
}
