package guard

import (
	"net/http"
	"strings"

	"github.com/ShahriarTWS/TutorHub-Client/internal/identity"
	"github.com/ShahriarTWS/TutorHub-Client/pkg/response"
	"github.com/gin-gonic/gin"
)

type Guard struct {
	provider identity.Provider
}

func New(provider identity.Provider) *Guard {
	return &Guard{provider: provider}
}

// Require protects the routes behind it. Page routes are redirected to the
// login entry; API routes answer 401 with the same redirect target.
func (g *Guard) Require() gin.HandlerFunc {
	return func(c *gin.Context) {
		state := g.provider.Resolve(c.Request.Context(), c.Writer, c.Request)
		decision := Decide(FromIdentity(state), c.Request.URL.RequestURI())

		switch decision.Kind {
		case RenderLoading:
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"status": "resolving"})
			return
		case Redirect:
			redirect(c, decision.Location)
			return
		}

		id, _ := state.Identity()
		rs := identity.NewRequestSession(id, func() error {
			return g.provider.SignOut(c.Writer, c.Request)
		})
		c.Request = c.Request.WithContext(identity.WithSession(c.Request.Context(), rs))
		c.Set(response.IdentityKey, id)

		c.Next()

		// the cookie is already cleared; a handler that wrote nothing still
		// owes the client a redirect
		if rs.Revoked() && !c.Writer.Written() {
			redirect(c, response.LoginPath)
		}
	}
}

func redirect(c *gin.Context, location string) {
	if isAPI(c.Request.URL.Path) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":    "authentication required",
			"redirect": location,
		})
		return
	}
	c.Redirect(http.StatusFound, location)
	c.Abort()
}

func isAPI(path string) bool {
	return path == "/api" || strings.HasPrefix(path, "/api/")
}
