// Package guard gates protected routes on the identity state. It checks
// authentication only; role checks live with the role-gated route groups.
package guard

import (
	"net/url"
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
)

type State int

const (
	Resolving State = iota
	Unauthenticated
	Authenticated
)

func FromIdentity(s identity.State) State {
	switch s.Status() {
	case identity.StatusSignedIn:
		return Authenticated
	case identity.StatusSignedOut:
		return Unauthenticated
	default:
		return Resolving
	}
}

type Kind int

const (
	RenderLoading Kind = iota
	Redirect
	Render
)

type Decision struct {
	Kind     Kind
	Location string
}

// Decide maps the identity state of a request for requested (path plus
// query) to what the route renders. Resolving never renders content and
// never redirects.
func Decide(state State, requested string) Decision {
	switch state {
	case Authenticated:
		return Decision{Kind: Render}
	case Unauthenticated:
		return Decision{Kind: Redirect, Location: LoginURL(requested)}
	default:
		return Decision{Kind: RenderLoading}
	}
}

// LoginURL is the login entry that returns to returnPath after sign in.
func LoginURL(returnPath string) string {
	returnPath = SafeReturnPath(returnPath)
	if returnPath == "/" {
		return response.LoginPath
	}
	return response.LoginPath + "?redirect=" + url.QueryEscape(returnPath)
}

// SafeReturnPath accepts only local absolute paths; anything else becomes /.
func SafeReturnPath(raw string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, `/\`) {
		return "/"
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return "/"
	}
	if u.Path == response.LoginPath || strings.HasPrefix(u.Path, response.LoginPath+"/") {
		return "/"
	}
	return u.RequestURI()
}
