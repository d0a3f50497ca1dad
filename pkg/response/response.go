package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ShahriarTWS/TutorHub-Client/internal/entity"
	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/gin-gonic/gin"
)

// Gin context keys populated by the guard and role middleware.
const (
	IdentityKey = "identity"
	RoleKey     = "role"
)

// LoginPath is where a revoked session is sent.
const LoginPath = "/login"

// GetIdentity retrieves the signed-in identity from the context
func GetIdentity(c *gin.Context) (identity.Identity, error) {
	v, exists := c.Get(IdentityKey)
	if !exists {
		return identity.Identity{}, apperror.ErrUnauthorized
	}
	id, ok := v.(identity.Identity)
	if !ok || id.Email == "" {
		return identity.Identity{}, apperror.ErrUnauthorized
	}
	return id, nil
}

// GetCaller combines the identity with the role resolved by RequireRole.
func GetCaller(c *gin.Context) (entity.Caller, error) {
	id, err := GetIdentity(c)
	if err != nil {
		return entity.Caller{}, err
	}
	caller := entity.Caller{
		UID:      id.UID,
		Email:    id.Email,
		Name:     id.DisplayName,
		PhotoURL: id.PhotoURL,
	}
	if v, ok := c.Get(RoleKey); ok {
		if r, ok := v.(role.Role); ok {
			caller.Role = r
		}
	}
	return caller, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if errors.Is(err, apperror.ErrSessionRevoked) {
		if rs := identity.FromContext(c.Request.Context()); rs != nil {
			if signOutErr := rs.SignOut(); signOutErr != nil {
				slog.Error("failed to clear revoked session", "error", signOutErr)
			}
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":    apperror.Message(err),
			"redirect": LoginPath,
		})
		return
	}

	// Log internal errors
	if code >= http.StatusInternalServerError {
		slog.Error("request failed", "status", code, "path", c.Request.URL.Path, "error", err)
	}

	c.JSON(code, gin.H{"error": apperror.Message(err)})
}
