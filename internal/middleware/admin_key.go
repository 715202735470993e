package middleware

import (
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	appErrors "github.com/muni-gth/papeletas-api/pkg/errors"
	"github.com/muni-gth/papeletas-api/pkg/response"
)

const adminKeyHeader = "X-Admin-Key"

// AdminKey protects maintenance endpoints with a bcrypt-hashed shared
// key. With no hash configured the endpoints stay disabled.
func AdminKey(keyHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if keyHash == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "maintenance endpoints disabled"))
			c.Abort()
			return
		}

		key := c.GetHeader(adminKeyHeader)
		if key == "" {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "admin key required"))
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(key)); err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid admin key"))
			c.Abort()
			return
		}

		c.Next()
	}
}
