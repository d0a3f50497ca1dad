package entity

import "github.com/ShahriarTWS/TutorHub-Client/internal/role"

// Caller is the signed-in user performing a request, with the role resolved
// for the current route group.
type Caller struct {
	UID      string
	Email    string
	Name     string
	PhotoURL string
	Role     role.Role
}

func (c Caller) IsAdmin() bool {
	return c.Role == role.Admin
}

func (c Caller) IsTutor() bool {
	return c.Role == role.Tutor
}
