package dto

import "github.com/ShahriarTWS/TutorHub-Client/internal/entity"

type ReviewRequest struct {
	Rating   int    `json:"rating" binding:"required,min=1,max=5"`
	Feedback string `json:"feedback" binding:"max=2000"`
}

// SessionReviews lists the reviews of a session. Average is nil when there
// are none.
type SessionReviews struct {
	Reviews  []entity.Review `json:"reviews"`
	Average  *float64        `json:"average"`
	Count    int             `json:"count"`
	MyReview *entity.Review  `json:"myReview,omitempty"`
}
