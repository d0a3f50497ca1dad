package dto

import (
	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	"github.com/ShahriarTWS/TutorHub-Client/internal/navigation"
	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
)

// View is the dashboard shell of a signed-in user. Role and Links are empty
// until the role is resolved.
type View struct {
	Status   string            `json:"status,omitempty"`
	Identity identity.Identity `json:"identity"`
	Role     role.Role         `json:"role,omitempty"`
	Links    []navigation.Link `json:"links,omitempty"`
}

const StatusResolvingRole = "resolving-role"

type PageResponse struct {
	Page  string            `json:"page"`
	Role  role.Role         `json:"role"`
	Links []navigation.Link `json:"links"`
}
