// Package navigation holds the role-specific dashboard sidebars.
package navigation

import (
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
)

type Link struct {
	Path  string `json:"path"`
	Label string `json:"label"`
}

var (
	adminLinks = []Link{
		{Path: "/dashboard/manage-users", Label: "Manage Users"},
		{Path: "/dashboard/view-study-sessions", Label: "View All Study Sessions"},
		{Path: "/dashboard/view-materials", Label: "View All Materials"},
	}

	tutorLinks = []Link{
		{Path: "/dashboard/create-study-session", Label: "Create Study Session"},
		{Path: "/dashboard/view-study-sessions", Label: "My Study Sessions"},
		{Path: "/dashboard/upload-materials", Label: "Upload Materials"},
		{Path: "/dashboard/view-materials", Label: "My Materials"},
	}

	studentLinks = []Link{
		{Path: "/dashboard/booked-sessions", Label: "My Booked Sessions"},
		{Path: "/dashboard/create-note", Label: "Create Note"},
		{Path: "/dashboard/manage-notes", Label: "Manage Notes"},
		{Path: "/dashboard/study-materials", Label: "Study Materials"},
	}
)

// LinksFor returns the sidebar of a role. Unrecognized values fall back to
// the student sidebar.
func LinksFor(r string) []Link {
	var links []Link
	switch role.Role(r) {
	case role.Admin:
		links = adminLinks
	case role.Tutor:
		links = tutorLinks
	default:
		links = studentLinks
	}
	return append([]Link(nil), links...)
}

// Sidebar returns the links for a resolved role. ok is false while the role
// is unresolved so the caller can show a loading state.
func Sidebar(res role.Resolution) (links []Link, ok bool) {
	r, ok := res.Get()
	if !ok {
		return nil, false
	}
	return LinksFor(string(r)), true
}

// Allowed reports whether a dashboard page belongs to the sidebar of r.
// The dashboard root is open to every role.
func Allowed(r role.Role, path string) bool {
	path = strings.TrimRight(path, "/")
	if path == "" || path == "/dashboard" {
		return true
	}
	for _, l := range LinksFor(string(r)) {
		if l.Path == path {
			return true
		}
	}
	return false
}
