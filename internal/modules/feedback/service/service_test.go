package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	feedbackDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/feedback/dto"
	repo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/feedback/repository"
	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindBySession(ctx context.Context, sessionID string) ([]entity.Review, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Review), args.Error(1)
}

func (m *MockRepository) Create(ctx context.Context, review *entity.Review) (string, error) {
	args := m.Called(ctx, review)
	return args.String(0), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, id string, patch repo.Patch) error {
	return m.Called(ctx, id, patch).Error(0)
}

type enrolledIn map[string]bool

func (e enrolledIn) IsEnrolled(_ context.Context, _ string, sessionID string) (bool, error) {
	return e[sessionID], nil
}

var student = entity.Caller{Email: "student@example.com", Name: "Sam", Role: role.Student}

func newTestService(r *MockRepository) Service {
	return NewService(r, enrolledIn{"s1": true}, latch.New(nil, time.Minute), nil)
}

func TestForSessionAverages(t *testing.T) {
	r := new(MockRepository)
	svc := newTestService(r)

	r.On("FindBySession", mock.Anything, "s1").Return([]entity.Review{
		{ID: "r1", StudentEmail: "other@example.com", Rating: 5},
		{ID: "r2", StudentEmail: student.Email, Rating: 4},
		{ID: "r3", StudentEmail: "third@example.com", Rating: 4},
	}, nil)

	res, err := svc.ForSession(context.Background(), student, "s1")
	require.NoError(t, err)
	require.NotNil(t, res.Average)
	assert.Equal(t, 4.3, *res.Average)
	assert.Equal(t, 3, res.Count)
	require.NotNil(t, res.MyReview)
	assert.Equal(t, "r2", res.MyReview.ID)
}

func TestForSessionWithoutReviews(t *testing.T) {
	r := new(MockRepository)
	svc := newTestService(r)

	r.On("FindBySession", mock.Anything, "s1").Return([]entity.Review{}, nil)
	res, err := svc.ForSession(context.Background(), student, "s1")
	require.NoError(t, err)
	assert.Nil(t, res.Average)
	assert.Nil(t, res.MyReview)
}

func TestSaveCreatesThenUpdates(t *testing.T) {
	r := new(MockRepository)
	svc := newTestService(r)

	r.On("FindBySession", mock.Anything, "s1").Return([]entity.Review{}, nil).Once()
	r.On("Create", mock.Anything, mock.MatchedBy(func(rv *entity.Review) bool {
		return rv.Rating == 5 && rv.Feedback == "great" && rv.StudentEmail == student.Email
	})).Return("r1", nil)

	created, err := svc.Save(context.Background(), student, "s1", feedbackDto.ReviewRequest{Rating: 5, Feedback: "<b>great</b>"})
	require.NoError(t, err)
	assert.Equal(t, "r1", created.ID)

	r.On("FindBySession", mock.Anything, "s1").Return([]entity.Review{{ID: "r1", StudentEmail: student.Email, Rating: 5}}, nil)
	r.On("Update", mock.Anything, "r1", repo.Patch{Rating: 3, Feedback: "ok"}).Return(nil)

	updated, err := svc.Save(context.Background(), student, "s1", feedbackDto.ReviewRequest{Rating: 3, Feedback: "ok"})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Rating)
	r.AssertNumberOfCalls(t, "Create", 1)
}

func TestSaveRequiresEnrollmentAndValidRating(t *testing.T) {
	r := new(MockRepository)
	svc := newTestService(r)

	_, err := svc.Save(context.Background(), student, "s2", feedbackDto.ReviewRequest{Rating: 4})
	assert.ErrorIs(t, err, apperror.ErrForbidden)

	_, err = svc.Save(context.Background(), student, "s1", feedbackDto.ReviewRequest{Rating: 6})
	assert.ErrorIs(t, err, apperror.ErrInvalidInput)

	r.AssertNotCalled(t, "FindBySession", mock.Anything, mock.Anything)
}
