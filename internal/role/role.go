// Package role resolves the application role of the signed-in user.
package role

import (
	"fmt"
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
)

type Role string

const (
	Admin   Role = "admin"
	Tutor   Role = "tutor"
	Student Role = "student"
)

func Parse(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case Admin, Tutor, Student:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", apperror.ErrInvalidInput, s)
}

// Resolution is either a known role or unresolved. There is no default.
type Resolution struct {
	role  Role
	known bool
}

func Unresolved() Resolution {
	return Resolution{}
}

func Known(r Role) Resolution {
	return Resolution{role: r, known: true}
}

func (r Resolution) Get() (Role, bool) {
	return r.role, r.known
}

func (r Resolution) String() string {
	if !r.known {
		return "unresolved"
	}
	return string(r.role)
}
