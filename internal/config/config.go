package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string
	PublicURL      string

	BackendURL     string
	BackendTimeout time.Duration
	BackendRPS     float64

	IdentityURL            string
	IdentityAPIKey         string
	IdentityTokenSecret    string
	IdentityTokenTTL       time.Duration
	IdentityResolveTimeout time.Duration
	IdentityRevalidate     time.Duration
	SessionSecret          string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	RedisURL      string
	RoleCacheTTL  time.Duration
	QueryCacheTTL time.Duration
	LatchTTL      time.Duration

	MeiliSearchHost string
	MeiliMasterKey  string

	CloudinaryURL          string
	CloudinaryUploadFolder string

	StripePublishableKey string
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:5173"),
		PublicURL:      getEnv("PUBLIC_URL", "http://localhost:8080"),

		BackendURL: strings.TrimRight(os.Getenv("BACKEND_URL"), "/"),

		IdentityURL:         getEnv("IDENTITY_URL", "https://identitytoolkit.googleapis.com/v1"),
		IdentityAPIKey:      os.Getenv("IDENTITY_API_KEY"),
		IdentityTokenSecret: os.Getenv("IDENTITY_TOKEN_SECRET"),
		SessionSecret:       os.Getenv("SESSION_SECRET"),

		GoogleClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),

		RedisURL: os.Getenv("REDIS_URL"),

		MeiliSearchHost: os.Getenv("MEILISEARCH_HOST"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		CloudinaryURL:          cloudinaryURL(),
		CloudinaryUploadFolder: getEnv("CLOUDINARY_UPLOAD_FOLDER", "tutorhub"),

		StripePublishableKey: os.Getenv("STRIPE_PUBLISHABLE_KEY"),
	}

	durations := []struct {
		key      string
		fallback string
		dst      *time.Duration
	}{
		{"BACKEND_TIMEOUT", "10s", &cfg.BackendTimeout},
		{"IDENTITY_TOKEN_TTL", "5m", &cfg.IdentityTokenTTL},
		{"IDENTITY_RESOLVE_TIMEOUT", "2s", &cfg.IdentityResolveTimeout},
		{"IDENTITY_REVALIDATE_INTERVAL", "5m", &cfg.IdentityRevalidate},
		{"ROLE_CACHE_TTL", "10m", &cfg.RoleCacheTTL},
		{"QUERY_CACHE_TTL", "5m", &cfg.QueryCacheTTL},
		{"LATCH_TTL", "30s", &cfg.LatchTTL},
	}
	for _, d := range durations {
		v, err := time.ParseDuration(getEnv(d.key, d.fallback))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
		*d.dst = v
	}

	rps, err := strconv.ParseFloat(getEnv("BACKEND_RPS", "20"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("invalid BACKEND_RPS: %q", os.Getenv("BACKEND_RPS"))
	}
	cfg.BackendRPS = rps

	return cfg, nil
}

// Validate checks the settings the server cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.BackendURL == "" {
		errs = append(errs, errors.New("BACKEND_URL is required"))
	}
	if !c.IsDevelopment() {
		if c.IdentityTokenSecret == "" {
			errs = append(errs, errors.New("IDENTITY_TOKEN_SECRET is required"))
		}
		if len(c.SessionSecret) < 32 {
			errs = append(errs, errors.New("SESSION_SECRET must be at least 32 bytes"))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// GoogleEnabled reports whether Google sign-in credentials are configured.
func (c *Config) GoogleEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != ""
}

func cloudinaryURL() string {
	if v := os.Getenv("CLOUDINARY_URL"); v != "" {
		return v
	}
	name, key, secret := os.Getenv("CLOUDINARY_CLOUD_NAME"), os.Getenv("CLOUDINARY_API_KEY"), os.Getenv("CLOUDINARY_API_SECRET")
	if name == "" || key == "" || secret == "" {
		return ""
	}
	return fmt.Sprintf("cloudinary://%s:%s@%s", key, secret, name)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
