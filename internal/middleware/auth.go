package middleware

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/internal/role"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/apperror"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/gin-gonic/gin"
)

type RoleResolver interface {
	Resolve(ctx context.Context, email string) (role.Resolution, error)
}

type AuthMiddleware struct {
	roles RoleResolver
}

func NewAuthMiddleware(roles RoleResolver) *AuthMiddleware {
	return &AuthMiddleware{roles: roles}
}

// RequireRole resolves the caller's role and admits only the given roles.
// It must run behind the guard. An unresolved role is answered as
// retryable, never treated as student.
func (m *AuthMiddleware) RequireRole(allowed ...role.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := response.GetIdentity(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
			return
		}

		res, err := m.roles.Resolve(c.Request.Context(), id.Email)
		if err != nil {
			if errors.Is(err, apperror.ErrSessionRevoked) {
				response.ResponseError(c, err)
				c.Abort()
				return
			}
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error":  "role could not be resolved",
				"status": "resolving-role",
			})
			return
		}

		r, _ := res.Get()
		if len(allowed) > 0 && !slices.Contains(allowed, r) {
			names := make([]string, len(allowed))
			for i, a := range allowed {
				names[i] = string(a)
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": strings.Join(names, " or ") + " access required"})
			return
		}

		c.Set(response.RoleKey, r)
		c.Next()
	}
}
