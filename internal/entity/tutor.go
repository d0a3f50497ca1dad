package entity

type ApplicationStatus string

const (
	ApplicationPending  ApplicationStatus = "pending"
	ApplicationApproved ApplicationStatus = "approved"
	// ApplicationCancelled is how the backend records a rejected application.
	ApplicationCancelled ApplicationStatus = "cancelled"
)

type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year,omitempty"`
	GPA         string `json:"gpa,omitempty"`
}

// TutorApplication is a student's request to become a tutor.
type TutorApplication struct {
	ID         string            `json:"_id,omitempty"`
	Name       string            `json:"name"`
	Email      string            `json:"email"`
	Photo      string            `json:"photo,omitempty"`
	Phone      string            `json:"phone,omitempty"`
	Experience string            `json:"experience"`
	Speciality string            `json:"speciality"`
	Education  Education         `json:"education"`
	Bio        string            `json:"bio"`
	LinkedIn   string            `json:"linkedin,omitempty"`
	Role       string            `json:"role,omitempty"`
	Status     ApplicationStatus `json:"status"`
	Feedback   string            `json:"feedback"`
	AppliedAt  Date              `json:"appliedAt,omitempty"`
}
