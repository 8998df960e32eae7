package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/waveground/backend/internal/database"
	"github.com/waveground/backend/internal/logger"
	"github.com/waveground/backend/internal/models"
	"github.com/waveground/backend/internal/util"
)

const otpIssuer = "Waveground"

// AdminLoginRequest is the request body for admin login
type AdminLoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Code     string `json:"code"`
}

// AdminLogin authenticates a moderator and issues a session token
// POST /api/v1/admin/login
func (h *Handlers) AdminLogin(c *gin.Context) {
	var req AdminLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "username and password are required")
		return
	}

	var admin models.AdminUser
	err := database.DB.Where("username = ?", req.Username).First(&admin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		util.RespondUnauthorized(c, "invalid credentials")
		return
	}
	if err != nil {
		util.RespondInternalError(c)
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)) != nil {
		logger.Log.Warn("failed admin login",
			zap.String("username", req.Username),
			zap.String("client_ip", c.ClientIP()))
		util.RespondUnauthorized(c, "invalid credentials")
		return
	}

	if admin.TwoFactorEnabled {
		if req.Code == "" {
			c.JSON(http.StatusOK, gin.H{"requires_2fa": true})
			return
		}
		if admin.TwoFactorSecret == nil || !totp.Validate(req.Code, *admin.TwoFactorSecret) {
			util.RespondUnauthorized(c, "invalid one-time code")
			return
		}
	}

	expiresAt := time.Now().Add(24 * time.Hour)
	claims := jwt.MapClaims{
		"admin_id": admin.ID,
		"username": admin.Username,
		"exp":      expiresAt.Unix(),
		"iat":      time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(h.cfg.JWTSecret))
	if err != nil {
		util.RespondInternalError(c, "failed to sign token")
		return
	}

	now := time.Now()
	admin.LastLoginAt = &now
	database.DB.Save(&admin)

	c.JSON(http.StatusOK, gin.H{
		"token":      tokenString,
		"expires_at": expiresAt,
		"username":   admin.Username,
	})
}

// Setup2FA generates a TOTP secret for the authenticated admin. The
// secret only takes effect after Verify2FA confirms the authenticator
// produces matching codes.
// POST /api/v1/admin/2fa/setup
func (h *Handlers) Setup2FA(c *gin.Context) {
	admin, ok := util.GetAdminFromContext(c)
	if !ok {
		return
	}
	if admin.TwoFactorEnabled {
		util.RespondBadRequest(c, "2fa is already enabled")
		return
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      otpIssuer,
		AccountName: admin.Username,
	})
	if err != nil {
		util.RespondInternalError(c, "failed to generate secret")
		return
	}

	secret := key.Secret()
	admin.TwoFactorSecret = &secret
	if err := database.DB.Save(admin).Error; err != nil {
		util.RespondInternalError(c, "failed to store secret")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"secret":      secret,
		"qr_code_url": key.URL(),
	})
}

// Verify2FA confirms the pending TOTP secret and switches 2FA on
// POST /api/v1/admin/2fa/verify
func (h *Handlers) Verify2FA(c *gin.Context) {
	admin, ok := util.GetAdminFromContext(c)
	if !ok {
		return
	}

	var req struct {
		Code string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "code is required")
		return
	}

	if admin.TwoFactorSecret == nil {
		util.RespondBadRequest(c, "run setup first")
		return
	}
	if !totp.Validate(req.Code, *admin.TwoFactorSecret) {
		util.RespondUnauthorized(c, "invalid one-time code")
		return
	}

	admin.TwoFactorEnabled = true
	if err := database.DB.Save(admin).Error; err != nil {
		util.RespondInternalError(c, "failed to enable 2fa")
		return
	}

	logger.Log.Info("2fa enabled for admin", zap.String("username", admin.Username))
	c.JSON(http.StatusOK, gin.H{"enabled": true})
}
