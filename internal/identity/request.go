package identity

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// RequestSession is the signed-in identity bound to one inbound request.
type RequestSession struct {
	Identity Identity

	signOut     func() error
	once        sync.Once
	signOutErr  error
	revocations atomic.Int32
}

// NewRequestSession binds id to a request. signOut clears the session cookie
// on that request's response and must be callable before any body is written.
func NewRequestSession(id Identity, signOut func() error) *RequestSession {
	return &RequestSession{Identity: id, signOut: signOut}
}

// Revoke records that the backend rejected this identity and clears the
// session right away.
func (s *RequestSession) Revoke() {
	s.revocations.Add(1)
	if err := s.SignOut(); err != nil {
		slog.Error("failed to clear revoked session", "uid", s.Identity.UID, "error", err)
	}
}

func (s *RequestSession) Revoked() bool {
	return s.revocations.Load() > 0
}

// Revocations counts the rejected backend responses seen by this request.
func (s *RequestSession) Revocations() int {
	return int(s.revocations.Load())
}

// SignOut clears the identity session. Only the first call has an effect.
func (s *RequestSession) SignOut() error {
	s.once.Do(func() {
		if s.signOut != nil {
			s.signOutErr = s.signOut()
		}
	})
	return s.signOutErr
}

type sessionKey struct{}

func WithSession(ctx context.Context, s *RequestSession) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

func FromContext(ctx context.Context) *RequestSession {
	s, _ := ctx.Value(sessionKey{}).(*RequestSession)
	return s
}

// RevokeFromContext is the auth failure hook of the backend client.
func RevokeFromContext(ctx context.Context) {
	if s := FromContext(ctx); s != nil {
		s.Revoke()
	}
}
