package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/sma-web-api/pkg/errors"
	"github.com/noah-isme/sma-web-api/pkg/response"
)

// RequireSession only lets signed-in users through.
func RequireSession(loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SessionFromContext(c).Authenticated() {
			redirect(c, loginPath, appErrors.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

// AdminGate only lets admins through. Anonymous callers are sent to loginPath
// and signed-in non-admins to homePath.
func AdminGate(loginPath, homePath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := SessionFromContext(c)
		switch {
		case !session.Authenticated():
			redirect(c, loginPath, appErrors.ErrUnauthorized)
		case !session.IsAdmin:
			redirect(c, homePath, appErrors.ErrForbidden)
		default:
			c.Next()
		}
	}
}

// redirect issues a 302 for page navigations and an error envelope carrying
// meta.redirect for API clients.
func redirect(c *gin.Context, location string, err *appErrors.Error) {
	if wantsHTML(c.Request) {
		c.Redirect(http.StatusFound, location)
		c.Abort()
		return
	}
	response.Error(c, err, map[string]interface{}{"redirect": location})
	c.Abort()
}

func wantsHTML(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Accept")), "text/html")
}
