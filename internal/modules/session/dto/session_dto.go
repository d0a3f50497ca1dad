package dto

import "github.com/ShahriarTWS/TutorHub-Client/internal/entity"

// CreateSessionRequest is submitted by a tutor, or an admin, to propose a
// session. Dates are calendar dates (2006-01-02) or RFC 3339 timestamps.
type CreateSessionRequest struct {
	Title             string   `json:"title" form:"title" binding:"required,notblank,max=200"`
	Description       string   `json:"description" form:"description" binding:"required,notblank"`
	RegistrationStart string   `json:"registrationStart" form:"registrationStart" binding:"required"`
	RegistrationEnd   string   `json:"registrationEnd" form:"registrationEnd" binding:"required"`
	ClassStart        string   `json:"classStart" form:"classStart" binding:"required"`
	ClassEnd          string   `json:"classEnd" form:"classEnd" binding:"required"`
	Duration          string   `json:"duration" form:"duration" binding:"required,notblank"`
	RegistrationFee   *float64 `json:"registrationFee" form:"registrationFee" binding:"omitempty,gte=0"`
	Image             string   `json:"image" form:"image" binding:"omitempty,url"`
}

type ApproveSessionRequest struct {
	RegistrationFee *float64 `json:"registrationFee" binding:"required,gte=0"`
}

type RejectSessionRequest struct {
	Feedback string `json:"feedback" binding:"required,notblank"`
}

// SessionResponse adds the registration badge computed at read time.
type SessionResponse struct {
	entity.StudySession
	RegistrationLabel string `json:"registrationLabel"`
	Bookable          bool   `json:"bookable"`
}
