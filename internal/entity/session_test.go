package entity

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustDate(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseDate(s)
	require.NoError(t, err)
	return d
}

func TestBookable(t *testing.T) {
	s := StudySession{Status: SessionApproved, RegistrationEnd: mustDate(t, "2025-07-01")}

	assert.True(t, s.Bookable(time.Date(2025, 6, 30, 12, 0, 0, 0, time.UTC)))
	assert.True(t, s.Bookable(time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)), "deadline itself is open")
	assert.False(t, s.Bookable(time.Date(2025, 7, 1, 0, 0, 1, 0, time.UTC)))

	s.Status = SessionPending
	assert.False(t, s.Bookable(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestRegistrationLabel(t *testing.T) {
	s := StudySession{RegistrationEnd: mustDate(t, "2025-07-01")}
	assert.Equal(t, RegistrationOngoing, s.RegistrationLabel(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, RegistrationClosed, s.RegistrationLabel(time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)))
}

func TestClassStarted(t *testing.T) {
	s := StudySession{ClassStart: mustDate(t, "2025-07-10")}
	assert.False(t, s.ClassStarted(time.Date(2025, 7, 9, 23, 59, 0, 0, time.UTC)))
	assert.True(t, s.ClassStarted(time.Date(2025, 7, 10, 0, 0, 0, 0, time.UTC)))
}

func TestDateJSON(t *testing.T) {
	var s StudySession
	payload := `{"_id":"s1","registrationEnd":"2025-07-01","classStart":"2025-07-10T09:30:00Z","classEnd":null}`
	require.NoError(t, json.Unmarshal([]byte(payload), &s))

	assert.Equal(t, "s1", s.ID)
	assert.Equal(t, 2025, s.RegistrationEnd.Year())
	assert.Equal(t, 9, s.ClassStart.Hour())
	assert.True(t, s.ClassEnd.IsZero())

	out, err := json.Marshal(s.RegistrationEnd)
	require.NoError(t, err)
	assert.JSONEq(t, `"2025-07-01"`, string(out))

	var bad Date
	assert.Error(t, json.Unmarshal([]byte(`"next tuesday"`), &bad))
}
