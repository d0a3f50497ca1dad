package entity

// Review is a student's rating of a session they enrolled in.
type Review struct {
	ID           string `json:"_id,omitempty"`
	SessionID    string `json:"sessionId"`
	StudentEmail string `json:"studentEmail"`
	StudentName  string `json:"studentName,omitempty"`
	Rating       int    `json:"rating"`
	Feedback     string `json:"feedback"`
	CreatedAt    Date   `json:"createdAt,omitempty"`
}
