package entity

import "time"

type SessionStatus string

const (
	SessionPending  SessionStatus = "pending"
	SessionApproved SessionStatus = "approved"
	SessionRejected SessionStatus = "rejected"
)

const (
	RegistrationOngoing = "Ongoing"
	RegistrationClosed  = "Closed"
)

// StudySession is a tutor-offered class with a registration window and a
// class window.
type StudySession struct {
	ID                string        `json:"_id"`
	Title             string        `json:"title"`
	Description       string        `json:"description"`
	TutorName         string        `json:"tutorName"`
	TutorEmail        string        `json:"tutorEmail"`
	TutorImage        string        `json:"tutorImage,omitempty"`
	RegistrationStart Date          `json:"registrationStart"`
	RegistrationEnd   Date          `json:"registrationEnd"`
	ClassStart        Date          `json:"classStart"`
	ClassEnd          Date          `json:"classEnd"`
	Duration          string        `json:"duration"`
	RegistrationFee   float64       `json:"registrationFee"`
	Status            SessionStatus `json:"status"`
	Feedback          string        `json:"feedback,omitempty"`
	Image             string        `json:"image,omitempty"`
	Supersedes        string        `json:"supersedes,omitempty"`
}

// Bookable reports whether a student may enroll at now. The registration
// deadline itself is still open.
func (s StudySession) Bookable(now time.Time) bool {
	return s.Status == SessionApproved && !now.After(s.RegistrationEnd.Time)
}

// RegistrationLabel is the badge shown on session cards.
func (s StudySession) RegistrationLabel(now time.Time) string {
	if !now.After(s.RegistrationEnd.Time) {
		return RegistrationOngoing
	}
	return RegistrationClosed
}

// ClassStarted gates student access to materials.
func (s StudySession) ClassStarted(now time.Time) bool {
	return !now.Before(s.ClassStart.Time)
}

func (s StudySession) IsFree() bool {
	return s.RegistrationFee == 0
}
