package middleware

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/waveground/backend/internal/database"
	"github.com/waveground/backend/internal/models"
	"github.com/waveground/backend/internal/util"
)

// AdminAuthMiddleware validates the Bearer token and loads the admin account
// into the request context. Moderation endpoints sit behind this; the public
// comment surface never does.
func AdminAuthMiddleware(jwtSecret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
			util.RespondUnauthorized(c, "missing bearer token")
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return jwtSecret, nil
		})
		if err != nil || !token.Valid {
			util.RespondUnauthorized(c, "invalid token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			util.RespondUnauthorized(c, "invalid token claims")
			c.Abort()
			return
		}

		adminID, ok := claims["admin_id"].(string)
		if !ok || adminID == "" {
			util.RespondUnauthorized(c, "invalid admin_id in token")
			c.Abort()
			return
		}

		// Fetch fresh admin data so a deleted account is locked out immediately
		var admin models.AdminUser
		if err := database.DB.Where("id = ?", adminID).First(&admin).Error; err != nil {
			util.RespondUnauthorized(c, "admin not found")
			c.Abort()
			return
		}

		c.Set("admin", &admin)
		c.Next()
	}
}
