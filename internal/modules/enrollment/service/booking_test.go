package enrollment

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	enrollmentDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/enrollment/dto"
	enrollmentRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/enrollment/repository"
	notifService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/notification/service"
	searchService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/search/service"
	sessionDto "github.com/ShahriarTWS/TutorHub-Client/internal/modules/session/dto"
	sessionRepo "github.com/ShahriarTWS/TutorHub-Client/internal/modules/session/repository"
	sessionService "github.com/ShahriarTWS/TutorHub-Client/internal/modules/session/service"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/latch"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/querycache"
)

// fakeBackend keeps one study session and the stored payments in memory.
type fakeBackend struct {
	mu       sync.Mutex
	session  entity.StudySession
	payments []entity.Payment
	intents  []float64
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/sessions/"+b.session.ID:
		_ = json.NewEncoder(w).Encode(b.session)
	case r.Method == http.MethodGet && r.URL.Path == "/sessions":
		var approved []entity.StudySession
		if b.session.Status == entity.SessionApproved {
			approved = append(approved, b.session)
		}
		_ = json.NewEncoder(w).Encode(approved)
	case r.Method == http.MethodPatch && r.URL.Path == "/admin/sessions/"+b.session.ID:
		var update sessionRepo.StatusUpdate
		if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.session.Status = update.Status
		if update.RegistrationFee != nil {
			b.session.RegistrationFee = *update.RegistrationFee
		}
		_, _ = w.Write([]byte(`{"matchedCount":1,"modifiedCount":1}`))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/payments/user/"):
		_ = json.NewEncoder(w).Encode(b.payments)
	case r.Method == http.MethodPost && r.URL.Path == "/payments/create-payment-intent":
		var body struct {
			Amount float64 `json:"amount"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		b.intents = append(b.intents, body.Amount)
		_, _ = w.Write([]byte(`{"clientSecret":"pi_123_secret"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/payments/store-payment":
		var p entity.Payment
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.payments = append(b.payments, p)
		_, _ = w.Write([]byte(`{"insertedId":"pay1"}`))
	default:
		http.NotFound(w, r)
	}
}

func TestApprovedFeeFlowsIntoCheckoutAndPayment(t *testing.T) {
	backend := &fakeBackend{session: entity.StudySession{
		ID:                "s1",
		Title:             "Intro to Go",
		TutorEmail:        "tia@example.com",
		Status:            entity.SessionPending,
		RegistrationStart: entity.NewDate(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		RegistrationEnd:   entity.NewDate(time.Date(2099, 1, 1, 0, 0, 0, 0, time.UTC)),
		ClassStart:        entity.NewDate(time.Date(2099, 2, 1, 0, 0, 0, 0, time.UTC)),
		ClassEnd:          entity.NewDate(time.Date(2099, 3, 1, 0, 0, 0, 0, time.UTC)),
	}}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client := apiclient.New(srv.URL, srv.Client())
	cache := querycache.New(nil, time.Minute)
	notifications := notifService.NewNotificationService(nil, nil)
	sessions := sessionService.NewService(sessionRepo.NewRepository(client), nil, latch.New(nil, time.Minute),
		cache, searchService.NewDisabledSearch(), notifications, "tutorhub")
	svc := NewService(enrollmentRepo.NewRepository(client), sessions, latch.New(nil, time.Minute),
		cache, notifications, "pk_test_123").(*service)
	svc.now = func() time.Time { return today }
	ctx := t.Context()

	fee := 500.0
	approved, err := sessions.Approve(ctx, "s1", sessionDto.ApproveSessionRequest{RegistrationFee: &fee})
	require.NoError(t, err)
	assert.Equal(t, entity.SessionApproved, approved.Status)

	listed, err := sessions.ListApproved(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, entity.RegistrationOngoing, listed[0].RegistrationLabel)
	assert.True(t, listed[0].Bookable)
	assert.Equal(t, 500.0, listed[0].RegistrationFee)

	res, err := svc.Enroll(ctx, student, "s1")
	require.NoError(t, err)
	assert.Equal(t, enrollmentDto.StatusCheckoutRequired, res.Status)
	require.NotNil(t, res.Checkout)
	assert.Equal(t, 500.0, res.Checkout.Amount)
	assert.Equal(t, []float64{500}, backend.intents)

	payment, err := svc.ConfirmPayment(ctx, student, "s1", "pi_123")
	require.NoError(t, err)
	assert.Equal(t, 500.0, payment.Amount)

	require.Len(t, backend.payments, 1)
	assert.Equal(t, 500.0, backend.payments[0].Amount)
	assert.Equal(t, "pi_123", backend.payments[0].TransactionID)
	assert.Equal(t, "s1", backend.payments[0].SessionID)
	assert.Equal(t, student.Email, backend.payments[0].Email)

	enrolled, err := svc.IsEnrolled(ctx, student.Email, "s1")
	require.NoError(t, err)
	assert.True(t, enrolled)
}
