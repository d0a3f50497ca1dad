// Package identity owns the browser's identity session: who is signed in,
// whether that is still being determined, and the bearer tokens minted for
// backend calls on their behalf.
package identity

// Identity is the authenticated principal.
type Identity struct {
	UID         string `json:"uid"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

type Status int

const (
	StatusResolving Status = iota
	StatusSignedOut
	StatusSignedIn
)

func (s Status) String() string {
	switch s {
	case StatusSignedOut:
		return "signedOut"
	case StatusSignedIn:
		return "signedIn"
	default:
		return "resolving"
	}
}

// State is the identity state of a request. A signed-in state always carries
// an identity; the other two never do.
type State struct {
	status   Status
	identity Identity
}

func Resolving() State {
	return State{status: StatusResolving}
}

func SignedOut() State {
	return State{status: StatusSignedOut}
}

func SignedIn(id Identity) State {
	return State{status: StatusSignedIn, identity: id}
}

func (s State) Status() Status {
	return s.status
}

// Identity returns the signed-in identity, or false in any other state.
func (s State) Identity() (Identity, bool) {
	return s.identity, s.status == StatusSignedIn
}
