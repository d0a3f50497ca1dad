package session

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
)

func newTestRepository(t *testing.T, handler http.HandlerFunc) Repository {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewRepository(apiclient.New(srv.URL, srv.Client()))
}

func TestUpdateStatusSendsReviewPatch(t *testing.T) {
	var got map[string]any
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/admin/sessions/s1", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"matchedCount":1,"modifiedCount":1}`))
	})

	fee := 500.0
	err := repo.UpdateStatus(context.Background(), "s1", StatusUpdate{Status: entity.SessionApproved, RegistrationFee: &fee})
	require.NoError(t, err)
	assert.Equal(t, "approved", got["status"])
	assert.Equal(t, 500.0, got["registrationFee"])
	assert.NotContains(t, got, "feedback")
}

func TestUpdateStatusWithoutMatchIsNotFound(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"matchedCount":0,"modifiedCount":0}`))
	})

	err := repo.UpdateStatus(context.Background(), "missing", StatusUpdate{Status: entity.SessionRejected, Feedback: "no"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestCreateReturnsInsertedID(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sessions", r.URL.Path)
		_, _ = w.Write([]byte(`{"insertedId":"665f1c"}`))
	})

	id, err := repo.Create(context.Background(), &entity.StudySession{Title: "Intro to Go", Status: entity.SessionPending})
	require.NoError(t, err)
	assert.Equal(t, "665f1c", id)
}

func TestFindByTutorEscapesEmail(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions", r.URL.Path)
		assert.Equal(t, "a+b@example.com", r.URL.Query().Get("tutorEmail"))
		_, _ = w.Write([]byte(`null`))
	})

	sessions, err := repo.FindByTutor(context.Background(), "a+b@example.com")
	require.NoError(t, err)
	assert.NotNil(t, sessions)
	assert.Empty(t, sessions)
}

func TestFindByIDMapsBackendErrors(t *testing.T) {
	repo := newTestRepository(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"session not found"}`))
	})

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Equal(t, "session not found", apperror.Message(err))
}
