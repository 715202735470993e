package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/muni-gth/papeletas-api/internal/middleware"
	"github.com/muni-gth/papeletas-api/internal/models"
	"github.com/muni-gth/papeletas-api/internal/store"
)

func claimsFromContext(c *gin.Context) *models.SessionClaims {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return nil
	}
	return claims
}

func sessionFromContext(c *gin.Context) *store.Session {
	session, ok := middleware.SessionFromContext(c)
	if !ok {
		return nil
	}
	return session
}
