package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/internal/apiclient"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
)

// Accounts is the identity provider's account API.
type Accounts interface {
	SignInWithPassword(ctx context.Context, email, password string) (Identity, error)
	SignUp(ctx context.Context, in SignUpInput) (Identity, error)
	SendPasswordReset(ctx context.Context, email string) error
	// Lookup returns the current account for uid. Disabled or deleted
	// accounts yield apperror.ErrUnauthorized.
	Lookup(ctx context.Context, uid string) (Identity, error)
}

type SignUpInput struct {
	Email       string
	Password    string
	DisplayName string
	PhotoURL    string
}

var (
	errInvalidCredentials = apperror.New(http.StatusUnauthorized, "invalid email or password", apperror.ErrUnauthorized)
	errAccountDisabled    = apperror.New(http.StatusForbidden, "this account has been disabled", apperror.ErrForbidden)
	errEmailTaken         = apperror.New(http.StatusConflict, "an account with this email already exists", apperror.ErrConflict)
	errWeakPassword       = apperror.New(http.StatusBadRequest, "password is too weak", apperror.ErrInvalidInput)
)

type restAccounts struct {
	client *apiclient.Client
	apiKey string
}

// NewRESTAccounts talks to an identity toolkit compatible REST API.
func NewRESTAccounts(client *apiclient.Client, apiKey string) Accounts {
	return &restAccounts{client: client, apiKey: apiKey}
}

type accountRecord struct {
	LocalID        string `json:"localId"`
	Email          string `json:"email"`
	DisplayName    string `json:"displayName"`
	PhotoURL       string `json:"photoUrl"`
	ProfilePicture string `json:"profilePicture"`
	Disabled       bool   `json:"disabled"`
}

func (a accountRecord) identity() Identity {
	photo := a.PhotoURL
	if photo == "" {
		photo = a.ProfilePicture
	}
	return Identity{UID: a.LocalID, Email: a.Email, DisplayName: a.DisplayName, PhotoURL: photo}
}

func (s *restAccounts) path(method string) string {
	return "/accounts:" + method + "?key=" + url.QueryEscape(s.apiKey)
}

func (s *restAccounts) SignInWithPassword(ctx context.Context, email, password string) (Identity, error) {
	var out accountRecord
	err := s.client.Post(ctx, s.path("signInWithPassword"), map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return Identity{}, translate(err)
	}
	return out.identity(), nil
}

func (s *restAccounts) SignUp(ctx context.Context, in SignUpInput) (Identity, error) {
	var out accountRecord
	err := s.client.Post(ctx, s.path("signUp"), map[string]any{
		"email":             in.Email,
		"password":          in.Password,
		"displayName":       in.DisplayName,
		"photoUrl":          in.PhotoURL,
		"returnSecureToken": true,
	}, &out)
	if err != nil {
		return Identity{}, translate(err)
	}

	id := out.identity()
	if id.DisplayName == "" {
		id.DisplayName = in.DisplayName
	}
	if id.PhotoURL == "" {
		id.PhotoURL = in.PhotoURL
	}
	return id, nil
}

func (s *restAccounts) SendPasswordReset(ctx context.Context, email string) error {
	err := s.client.Post(ctx, s.path("sendOobCode"), map[string]any{
		"requestType": "PASSWORD_RESET",
		"email":       email,
	}, nil)
	if err != nil {
		// unknown emails are not disclosed
		if errors.Is(translate(err), apperror.ErrUnauthorized) {
			return nil
		}
		return translate(err)
	}
	return nil
}

func (s *restAccounts) Lookup(ctx context.Context, uid string) (Identity, error) {
	var out struct {
		Users []accountRecord `json:"users"`
	}
	if err := s.client.Post(ctx, s.path("lookup"), map[string]any{"localId": []string{uid}}, &out); err != nil {
		return Identity{}, translate(err)
	}
	if len(out.Users) == 0 || out.Users[0].Disabled {
		return Identity{}, fmt.Errorf("account %s: %w", uid, apperror.ErrUnauthorized)
	}
	return out.Users[0].identity(), nil
}

// translate maps identity provider error codes to application errors.
func translate(err error) error {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusBadRequest {
		return err
	}

	code := appErr.Message
	if i := strings.IndexAny(code, " :"); i > 0 {
		code = code[:i]
	}
	switch code {
	case "INVALID_PASSWORD", "EMAIL_NOT_FOUND", "INVALID_LOGIN_CREDENTIALS", "INVALID_EMAIL", "USER_NOT_FOUND":
		return errInvalidCredentials
	case "USER_DISABLED":
		return errAccountDisabled
	case "EMAIL_EXISTS":
		return errEmailTaken
	case "WEAK_PASSWORD":
		return errWeakPassword
	}
	return err
}
