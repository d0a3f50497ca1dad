package entity

import "time"

type NotificationLevel string

const (
	LevelInfo    NotificationLevel = "info"
	LevelSuccess NotificationLevel = "success"
	LevelError   NotificationLevel = "error"
)

const (
	NotifySessionSubmitted = "session_submitted"
	NotifySessionApproved  = "session_approved"
	NotifySessionRejected  = "session_rejected"
	NotifyEnrolled         = "enrolled"
	NotifyTutorApproved    = "tutor_approved"
	NotifyTutorRejected    = "tutor_rejected"
	NotifyMaterialUploaded = "material_uploaded"
	NotifyRoleChanged      = "role_changed"
)

// Notification is a dismissible toast delivered to one user.
type Notification struct {
	ID        string            `json:"id"`
	Type      string            `json:"type"`
	Level     NotificationLevel `json:"level"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Link      string            `json:"link,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}
