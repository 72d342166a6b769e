package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-web-api/internal/models"
	"github.com/noah-isme/sma-web-api/pkg/response"
)

// ContextSessionKey is the gin context key storing the resolved session.
const ContextSessionKey = "session"

// SessionResolver turns an Authorization header into a session.
type SessionResolver interface {
	Resolve(ctx context.Context, authorization string) (*models.Session, error)
}

// Session resolves the caller's identity and stores it on the context. It never
// rejects a request; gates decide what an unauthenticated session may do.
func Session(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := resolver.Resolve(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}
		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// SessionFromContext returns the session stored by Session, or an
// unauthenticated one when none was resolved.
func SessionFromContext(c *gin.Context) *models.Session {
	if value, ok := c.Get(ContextSessionKey); ok {
		if session, ok := value.(*models.Session); ok && session != nil {
			return session
		}
	}
	return &models.Session{State: models.SessionUnauthenticated}
}

// ClaimsFromContext returns the token claims of the signed-in user, if any.
func ClaimsFromContext(c *gin.Context) *models.JWTClaims {
	session := SessionFromContext(c)
	if !session.Authenticated() {
		return nil
	}
	return session.Claims
}
