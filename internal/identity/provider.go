package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
)

// SessionName is the cookie holding the identity session.
const SessionName = "tutorhub_session"

const (
	keyUID        = "uid"
	keyEmail      = "email"
	keyName       = "name"
	keyPhoto      = "photo"
	keyMethod     = "method"
	keyVerifiedAt = "verified_at"
	keyOAuthState = "oauth_state"

	methodPassword = "password"
	methodGoogle   = "google"
)

var errGoogleDisabled = apperror.New(http.StatusNotFound, "google sign-in is not enabled", apperror.ErrNotFound)

// Provider manages identity sessions.
type Provider interface {
	// Resolve reports the identity state of r. It answers Resolving while the
	// account check with the identity provider is still pending.
	Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) State
	SignIn(ctx context.Context, w http.ResponseWriter, r *http.Request, email, password string) (Identity, error)
	SignUp(ctx context.Context, w http.ResponseWriter, r *http.Request, in SignUpInput) (Identity, error)
	ResetPassword(ctx context.Context, email string) error
	GoogleAuthURL(w http.ResponseWriter, r *http.Request) (string, error)
	CompleteGoogle(ctx context.Context, w http.ResponseWriter, r *http.Request, state, code string) (Identity, error)
	SignOut(w http.ResponseWriter, r *http.Request) error
	// TokenFor mints a bearer token for the identity of the request session
	// in ctx, or returns "" when there is none.
	TokenFor(ctx context.Context) (string, error)
}

type ProviderConfig struct {
	// ResolveTimeout bounds the account check made while resolving.
	ResolveTimeout time.Duration
	// Revalidate is how long a checked session is trusted before the
	// account is looked up again.
	Revalidate time.Duration
}

type sessionProvider struct {
	store    sessions.Store
	accounts Accounts
	google   *GoogleConnector
	minter   *TokenMinter
	cfg      ProviderConfig
	now      func() time.Time
}

// NewProvider builds the cookie session provider. google may be nil when
// social sign-in is not configured.
func NewProvider(store sessions.Store, accounts Accounts, google *GoogleConnector, minter *TokenMinter, cfg ProviderConfig) Provider {
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = 2 * time.Second
	}
	return &sessionProvider{
		store:    store,
		accounts: accounts,
		google:   google,
		minter:   minter,
		cfg:      cfg,
		now:      time.Now,
	}
}

// NewCookieStore creates the signed cookie store for identity sessions.
func NewCookieStore(secret string, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 60 * 60,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

func (p *sessionProvider) Resolve(ctx context.Context, w http.ResponseWriter, r *http.Request) State {
	sess, err := p.store.Get(r, SessionName)
	if err != nil || sess.IsNew {
		return SignedOut()
	}

	id, ok := identityFromSession(sess)
	if !ok {
		return SignedOut()
	}

	method, _ := sess.Values[keyMethod].(string)
	verifiedAt, _ := sess.Values[keyVerifiedAt].(int64)
	if method != methodPassword || p.accounts == nil || p.now().Sub(time.Unix(verifiedAt, 0)) < p.cfg.Revalidate {
		return SignedIn(id)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, p.cfg.ResolveTimeout)
	defer cancel()

	current, err := p.accounts.Lookup(lookupCtx, id.UID)
	switch {
	case err == nil:
		if err := p.save(w, r, sess, current, methodPassword); err != nil {
			slog.Warn("failed to refresh identity session", "uid", id.UID, "error", err)
		}
		return SignedIn(current)
	case lookupCtx.Err() != nil:
		return Resolving()
	case errors.Is(err, apperror.ErrUnauthorized), errors.Is(err, apperror.ErrNotFound), errors.Is(err, apperror.ErrForbidden):
		if err := p.SignOut(w, r); err != nil {
			slog.Warn("failed to clear identity session", "uid", id.UID, "error", err)
		}
		return SignedOut()
	default:
		// the cookie is signed and was verified before; keep it while the
		// identity provider is failing
		slog.Warn("identity lookup failed, trusting existing session", "uid", id.UID, "error", err)
		return SignedIn(id)
	}
}

func (p *sessionProvider) SignIn(ctx context.Context, w http.ResponseWriter, r *http.Request, email, password string) (Identity, error) {
	if p.accounts == nil {
		return Identity{}, fmt.Errorf("%w: identity provider is not configured", apperror.ErrUnavailable)
	}
	id, err := p.accounts.SignInWithPassword(ctx, email, password)
	if err != nil {
		return Identity{}, err
	}
	return id, p.start(w, r, id, methodPassword)
}

func (p *sessionProvider) SignUp(ctx context.Context, w http.ResponseWriter, r *http.Request, in SignUpInput) (Identity, error) {
	if p.accounts == nil {
		return Identity{}, fmt.Errorf("%w: identity provider is not configured", apperror.ErrUnavailable)
	}
	id, err := p.accounts.SignUp(ctx, in)
	if err != nil {
		return Identity{}, err
	}
	return id, p.start(w, r, id, methodPassword)
}

func (p *sessionProvider) ResetPassword(ctx context.Context, email string) error {
	if p.accounts == nil {
		return fmt.Errorf("%w: identity provider is not configured", apperror.ErrUnavailable)
	}
	return p.accounts.SendPasswordReset(ctx, email)
}

func (p *sessionProvider) GoogleAuthURL(w http.ResponseWriter, r *http.Request) (string, error) {
	if p.google == nil {
		return "", errGoogleDisabled
	}
	sess, _ := p.store.Get(r, SessionName)
	state := uuid.NewString()
	sess.Values[keyOAuthState] = state
	if err := sess.Save(r, w); err != nil {
		return "", fmt.Errorf("save oauth state: %w", err)
	}
	return p.google.AuthURL(state), nil
}

func (p *sessionProvider) CompleteGoogle(ctx context.Context, w http.ResponseWriter, r *http.Request, state, code string) (Identity, error) {
	if p.google == nil {
		return Identity{}, errGoogleDisabled
	}
	sess, _ := p.store.Get(r, SessionName)
	expected, _ := sess.Values[keyOAuthState].(string)
	delete(sess.Values, keyOAuthState)
	if expected == "" || state != expected {
		return Identity{}, apperror.New(http.StatusBadRequest, "invalid sign-in state, please try again", apperror.ErrBadRequest)
	}

	id, err := p.google.Exchange(ctx, code)
	if err != nil {
		return Identity{}, err
	}
	return id, p.save(w, r, sess, id, methodGoogle)
}

func (p *sessionProvider) SignOut(w http.ResponseWriter, r *http.Request) error {
	sess, _ := p.store.Get(r, SessionName)
	for k := range sess.Values {
		delete(sess.Values, k)
	}
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("clear identity session: %w", err)
	}
	return nil
}

func (p *sessionProvider) TokenFor(ctx context.Context) (string, error) {
	rs := FromContext(ctx)
	if rs == nil {
		return "", nil
	}
	return p.minter.Mint(rs.Identity)
}

func (p *sessionProvider) start(w http.ResponseWriter, r *http.Request, id Identity, method string) error {
	sess, _ := p.store.Get(r, SessionName)
	return p.save(w, r, sess, id, method)
}

func (p *sessionProvider) save(w http.ResponseWriter, r *http.Request, sess *sessions.Session, id Identity, method string) error {
	sess.Values[keyUID] = id.UID
	sess.Values[keyEmail] = id.Email
	sess.Values[keyName] = id.DisplayName
	sess.Values[keyPhoto] = id.PhotoURL
	sess.Values[keyMethod] = method
	sess.Values[keyVerifiedAt] = p.now().Unix()
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save identity session: %w", err)
	}
	return nil
}

func identityFromSession(sess *sessions.Session) (Identity, bool) {
	uid, _ := sess.Values[keyUID].(string)
	email, _ := sess.Values[keyEmail].(string)
	if uid == "" || email == "" {
		return Identity{}, false
	}
	name, _ := sess.Values[keyName].(string)
	photo, _ := sess.Values[keyPhoto].(string)
	return Identity{UID: uid, Email: email, DisplayName: name, PhotoURL: photo}, true
}
