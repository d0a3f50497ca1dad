package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type GoogleConnector struct {
	config      *oauth2.Config
	userInfoURL string
}

func NewGoogleConnector(clientID, clientSecret, redirectURL string) *GoogleConnector {
	return &GoogleConnector{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

func (g *GoogleConnector) AuthURL(state string) string {
	return g.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the callback code for the Google profile.
func (g *GoogleConnector) Exchange(ctx context.Context, code string) (Identity, error) {
	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return Identity{}, apperror.New(http.StatusUnauthorized, "google sign-in failed",
			fmt.Errorf("%w: exchange code: %v", apperror.ErrUnauthorized, err))
	}

	resp, err := g.config.Client(ctx, token).Get(g.userInfoURL)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: fetch google user info: %v", apperror.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Identity{}, fmt.Errorf("%w: google user info returned %d", apperror.ErrUnavailable, resp.StatusCode)
	}

	var profile struct {
		ID            string `json:"id"`
		Email         string `json:"email"`
		VerifiedEmail bool   `json:"verified_email"`
		Name          string `json:"name"`
		Picture       string `json:"picture"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return Identity{}, fmt.Errorf("decode google user info: %w", err)
	}
	if profile.Email == "" || !profile.VerifiedEmail {
		return Identity{}, apperror.New(http.StatusForbidden, "google account email is not verified", apperror.ErrForbidden)
	}

	return Identity{
		UID:         "google:" + profile.ID,
		Email:       profile.Email,
		DisplayName: profile.Name,
		PhotoURL:    profile.Picture,
	}, nil
}
