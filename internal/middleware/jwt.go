package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/store"
	appErrors "github.com/muni-gth/papeletas-api/pkg/errors"
	"github.com/muni-gth/papeletas-api/pkg/response"
)

// Context keys populated by the Session middleware.
const (
	ContextClaimsKey  = "session_claims"
	ContextSessionKey = "session"
)

type sessionResolver interface {
	ValidateToken(token string) (*models.SessionClaims, error)
	Resume(ctx context.Context, claims *models.SessionClaims) (*store.Session, error)
}

// Session guards routes behind a bearer token and attaches the live
// session to the request context.
func Session(auth sessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authorization header required"))
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "authorization header must be a bearer token"))
			c.Abort()
			return
		}

		claims, err := auth.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		session, err := auth.Resume(c.Request.Context(), claims)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextClaimsKey, claims)
		c.Set(ContextSessionKey, session)
		c.Next()
	}
}

// ClaimsFromContext extracts the validated claims set by Session.
func ClaimsFromContext(c *gin.Context) (*models.SessionClaims, bool) {
	value, exists := c.Get(ContextClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*models.SessionClaims)
	return claims, ok
}

// SessionFromContext extracts the live session set by Session.
func SessionFromContext(c *gin.Context) (*store.Session, bool) {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil, false
	}
	session, ok := value.(*store.Session)
	return session, ok
}
