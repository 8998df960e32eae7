package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/waveground/backend/internal/models"
)

// GetAdminFromContext extracts the authenticated admin from the Gin context.
// Returns the admin and true if found, or nil and false if not authenticated.
// If the admin is not authenticated, it automatically responds with 401 Unauthorized.
func GetAdminFromContext(c *gin.Context) (*models.AdminUser, bool) {
	admin, exists := c.Get("admin")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return nil, false
	}
	adminPtr, ok := admin.(*models.AdminUser)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "invalid admin data in context"})
		return nil, false
	}
	return adminPtr, true
}

// ClientIP returns the caller's IP, preferring the first X-Forwarded-For hop
// when the request came through a proxy. Gin's ClientIP already handles
// trusted-proxy resolution; this wrapper exists so handlers and the identity
// resolver agree on one source of truth.
func ClientIP(c *gin.Context) string {
	return c.ClientIP()
}
