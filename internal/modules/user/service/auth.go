package service

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	"github.com/ShahriarTWS/TutorHub-Client/internal/modules/user/dto"
	commonDto "github.com/ShahriarTWS/TutorHub-Client/pkg/dto"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/storage"
)

// AuthService drives sign-in flows on top of the identity provider and keeps
// the backend profile in sync.
type AuthService interface {
	Login(ctx context.Context, w http.ResponseWriter, r *http.Request, req dto.LoginRequest) (identity.Identity, error)
	Register(ctx context.Context, w http.ResponseWriter, r *http.Request, req dto.RegisterRequest, avatar *commonDto.UploadedFile) (identity.Identity, error)
	ResetPassword(ctx context.Context, email string) error
	GoogleAuthURL(w http.ResponseWriter, r *http.Request) (string, error)
	CompleteGoogle(ctx context.Context, w http.ResponseWriter, r *http.Request, state, code string) (identity.Identity, error)
	Logout(w http.ResponseWriter, r *http.Request) error
}

type authService struct {
	provider     identity.Provider
	users        UserService
	fileStorage  storage.FileStorage
	uploadFolder string
}

func NewAuthService(provider identity.Provider, users UserService, fileStorage storage.FileStorage, uploadFolder string) AuthService {
	return &authService{
		provider:     provider,
		users:        users,
		fileStorage:  fileStorage,
		uploadFolder: uploadFolder,
	}
}

func (s *authService) Login(ctx context.Context, w http.ResponseWriter, r *http.Request, req dto.LoginRequest) (identity.Identity, error) {
	id, err := s.provider.SignIn(ctx, w, r, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return identity.Identity{}, err
	}
	s.sync(ctx, id)
	return id, nil
}

func (s *authService) Register(ctx context.Context, w http.ResponseWriter, r *http.Request, req dto.RegisterRequest, avatar *commonDto.UploadedFile) (identity.Identity, error) {
	photoURL := req.PhotoURL
	if avatar != nil && s.fileStorage != nil {
		url, err := s.fileStorage.UploadImage(ctx, avatar.Reader, s.uploadFolder+"/avatars", avatar.FileName)
		if err != nil {
			return identity.Identity{}, err
		}
		photoURL = url
	}

	id, err := s.provider.SignUp(ctx, w, r, identity.SignUpInput{
		Email:       strings.TrimSpace(req.Email),
		Password:    req.Password,
		DisplayName: strings.TrimSpace(req.Name),
		PhotoURL:    photoURL,
	})
	if err != nil {
		if avatar != nil && photoURL != req.PhotoURL {
			if delErr := s.fileStorage.Delete(context.Background(), photoURL); delErr != nil {
				slog.Warn("failed to delete avatar of failed sign-up", "url", photoURL, "error", delErr)
			}
		}
		return identity.Identity{}, err
	}

	s.sync(ctx, id)
	return id, nil
}

func (s *authService) ResetPassword(ctx context.Context, email string) error {
	return s.provider.ResetPassword(ctx, strings.TrimSpace(email))
}

func (s *authService) GoogleAuthURL(w http.ResponseWriter, r *http.Request) (string, error) {
	return s.provider.GoogleAuthURL(w, r)
}

func (s *authService) CompleteGoogle(ctx context.Context, w http.ResponseWriter, r *http.Request, state, code string) (identity.Identity, error) {
	id, err := s.provider.CompleteGoogle(ctx, w, r, state, code)
	if err != nil {
		return identity.Identity{}, err
	}
	s.sync(ctx, id)
	return id, nil
}

func (s *authService) Logout(w http.ResponseWriter, r *http.Request) error {
	return s.provider.SignOut(w, r)
}

// sync mirrors the profile after every sign-in. The account already exists,
// so a failure only delays the mirror to the next sign-in.
func (s *authService) sync(ctx context.Context, id identity.Identity) {
	if err := s.users.SyncProfile(ctx, id); err != nil {
		slog.Error("failed to sync user profile", "email", id.Email, "error", err)
	}
}
