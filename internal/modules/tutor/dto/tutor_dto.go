package dto

import "github.com/ShahriarTWS/TutorHub-Client/internal/entity"

type EducationRequest struct {
	Degree      string `json:"degree" binding:"required,notblank"`
	Institution string `json:"institution" binding:"required,notblank"`
	Year        string `json:"year" binding:"omitempty,numeric,len=4"`
	GPA         string `json:"gpa" binding:"omitempty,max=10"`
}

type ApplyRequest struct {
	Phone      string           `json:"phone" binding:"omitempty,max=30"`
	Experience string           `json:"experience" binding:"required,notblank"`
	Speciality string           `json:"speciality" binding:"required,notblank,max=100"`
	Education  EducationRequest `json:"education" binding:"required"`
	Bio        string           `json:"bio" binding:"required,notblank,max=2000"`
	LinkedIn   string           `json:"linkedin" binding:"omitempty,url"`
}

type RejectRequest struct {
	Feedback string `json:"feedback" binding:"required,notblank"`
}

// StatusResponse reports "none" when the user never applied.
type StatusResponse struct {
	Status      string                   `json:"status"`
	Application *entity.TutorApplication `json:"application,omitempty"`
	CanApply    bool                     `json:"canApply"`
}

const StatusNone = "none"
