package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/waveground/backend/internal/config"
	"github.com/waveground/backend/internal/database"
	"github.com/waveground/backend/internal/identity"
	"github.com/waveground/backend/internal/logger"
	"github.com/waveground/backend/internal/middleware"
	"github.com/waveground/backend/internal/models"
	"github.com/waveground/backend/internal/moderation"
	"github.com/waveground/backend/internal/ratelimit"
	"github.com/waveground/backend/internal/repository"
)

const testJWTSecret = "test-jwt-secret"

func setupRouter(t *testing.T) (*gin.Engine, *Handlers) {
	gin.SetMode(gin.TestMode)
	require.NoError(t, logger.Initialize("error", filepath.Join(t.TempDir(), "test.log")))

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError:                           true,
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.CommentIdentity{},
		&models.Comment{},
		&models.CommentAbuseLog{},
		&models.CommentReport{},
		&models.AdminUser{},
	))
	database.DB = db

	resolver, err := identity.NewResolver("test-secret")
	require.NoError(t, err)

	identities := repository.NewIdentityRepository(db)
	comments := repository.NewCommentRepository(db)
	service := moderation.NewService(resolver, identities, comments)
	limiter := ratelimit.New()

	cfg := &config.Config{
		JWTSecret:         testJWTSecret,
		CommentsPerWindow: 5,
		CommentWindowMs:   60000,
	}

	h := NewHandlers(service, resolver, identities, comments, nil, limiter, cfg)

	r := gin.New()
	r.GET("/health", h.Health)
	api := r.Group("/api/v1")
	{
		api.GET("/posts/:post_id/comments", h.GetComments)
		api.POST("/posts/:post_id/comments", h.SubmitComment)
		api.PUT("/comments/:id", h.EditComment)
		api.POST("/comments/:id/report", h.ReportComment)
		api.GET("/identity", h.GetIdentity)
		api.POST("/username/check", h.CheckUsername)

		admin := api.Group("/admin")
		{
			admin.POST("/login", h.AdminLogin)
			authed := admin.Group("")
			authed.Use(middleware.AdminAuthMiddleware([]byte(testJWTSecret)))
			{
				authed.GET("/identities/flagged", h.ListFlaggedIdentities)
				authed.POST("/identities/:hash/ban", h.BanIdentity)
			}
		}
	}
	return r, h
}

func doJSON(r *gin.Engine, method, path string, body interface{}, session string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.RemoteAddr = "203.0.113.7:51000"
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "test-agent")
	if session != "" {
		req.Header.Set("X-Session-ID", session)
		req.Header.Set("X-Local-Storage-ID", "local-"+session)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSubmitCommentEndpoint(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments",
		gin.H{"content": "fuck yeah, great drop"}, "alice")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Comment  models.Comment `json:"comment"`
		Username string         `json:"username"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "**** yeah, great drop", resp.Comment.Content)
	assert.NotEmpty(t, resp.Username)
	assert.True(t, moderation.IsGeneratedUsername(resp.Username))
}

func TestSubmitCommentMissingContent(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments", gin.H{}, "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubmitCommentRateLimited(t *testing.T) {
	r, _ := setupRouter(t)

	for i := 0; i < 5; i++ {
		w := doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments",
			gin.H{"content": fmt.Sprintf("comment number %d", i)}, "alice")
		require.Equal(t, http.StatusCreated, w.Code, "call %d: %s", i+1, w.Body.String())
	}

	w := doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments",
		gin.H{"content": "one too many"}, "alice")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp struct {
		Code         string `json:"code"`
		RetryAfterMs int64  `json:"retry_after_ms"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "RATE_LIMITED", resp.Code)
	assert.Greater(t, resp.RetryAfterMs, int64(0))
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Rotating the session does not buy a fresh budget
	w = doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments",
		gin.H{"content": "new session who dis"}, "alice-rotated")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
}

func TestSubmitCommentCooldown(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments",
		gin.H{"content": "buy now before it runs out"}, "alice")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments",
		gin.H{"content": "a perfectly fine comment"}, "alice")
	require.Equal(t, http.StatusTooManyRequests, w.Code)

	var resp struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "COOLDOWN_ACTIVE", resp.Code)
}

func TestGetCommentsHidesShadowBanned(t *testing.T) {
	r, _ := setupRouter(t)

	// Hate speech is accepted but shadow banned
	w := doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments",
		gin.H{"content": "faggot"}, "troll")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// The author still sees it
	w = doJSON(r, http.MethodGet, "/api/v1/posts/post-1/comments", nil, "troll")
	require.Equal(t, http.StatusOK, w.Code)
	var own struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &own))
	assert.Equal(t, 1, own.Count)

	// Everyone else sees an empty thread
	w = doJSON(r, http.MethodGet, "/api/v1/posts/post-1/comments", nil, "bystander")
	require.Equal(t, http.StatusOK, w.Code)
	var public struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &public))
	assert.Equal(t, 0, public.Count)
}

func TestReportEndpoint(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments",
		gin.H{"content": "borderline take"}, "alice")
	require.Equal(t, http.StatusCreated, w.Code)

	var created struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Another identity reports it
	w = doJSON(r, http.MethodPost, "/api/v1/comments/"+created.Comment.ID+"/report",
		gin.H{"reason": "rude"}, "bob")
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// Reporting your own comment is rejected
	w = doJSON(r, http.MethodPost, "/api/v1/comments/"+created.Comment.ID+"/report",
		gin.H{"reason": "oops"}, "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestIdentityEndpoint(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodGet, "/api/v1/identity", nil, "alice")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Username      string `json:"username"`
		TotalComments int    `json:"total_comments"`
		Cooldown      struct {
			IsActive bool `json:"is_active"`
		} `json:"cooldown"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, moderation.IsGeneratedUsername(resp.Username))
	assert.Zero(t, resp.TotalComments)
	assert.False(t, resp.Cooldown.IsActive)

	// The preview matches the name used on the first comment
	w2 := doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments",
		gin.H{"content": "first comment"}, "alice")
	require.Equal(t, http.StatusCreated, w2.Code)
	var created struct {
		Username string `json:"username"`
	}
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &created))
	assert.Equal(t, resp.Username, created.Username)
}

func TestCheckUsernameEndpoint(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/username/check",
		gin.H{"username": "SunnyTraveler"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var ok struct {
		Available bool `json:"available"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ok))
	assert.True(t, ok.Available)

	w = doJSON(r, http.MethodPost, "/api/v1/username/check",
		gin.H{"username": "F4GG0T99"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	var bad struct {
		Available bool   `json:"available"`
		Reason    string `json:"reason"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bad))
	assert.False(t, bad.Available)
	assert.NotEmpty(t, bad.Reason)
}

func createTestAdmin(t *testing.T, username string) string {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse-battery"), bcrypt.MinCost)
	require.NoError(t, err)
	admin := models.AdminUser{Username: username, PasswordHash: string(hash)}
	require.NoError(t, database.DB.Create(&admin).Error)

	claims := jwt.MapClaims{
		"admin_id": admin.ID,
		"username": admin.Username,
		"exp":      time.Now().Add(time.Hour).Unix(),
		"iat":      time.Now().Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)
	return token
}

func TestAdminRoutesRequireAuth(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodGet, "/api/v1/admin/identities/flagged", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := createTestAdmin(t, "mod")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/identities/flagged", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestAdminLoginEndpoint(t *testing.T) {
	r, _ := setupRouter(t)
	createTestAdmin(t, "mod")

	w := doJSON(r, http.MethodPost, "/api/v1/admin/login",
		gin.H{"username": "mod", "password": "correct-horse-battery"}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)

	w = doJSON(r, http.MethodPost, "/api/v1/admin/login",
		gin.H{"username": "mod", "password": "wrong"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminBanHidesComments(t *testing.T) {
	r, _ := setupRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/posts/post-1/comments",
		gin.H{"content": "soon to be hidden"}, "alice")
	require.Equal(t, http.StatusCreated, w.Code)
	var created struct {
		Comment models.Comment `json:"comment"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	// Look up the author's identity hash through the admin surface
	var stored models.Comment
	require.NoError(t, database.DB.First(&stored, "id = ?", created.Comment.ID).Error)

	token := createTestAdmin(t, "mod")
	req := httptest.NewRequest(http.MethodPost,
		"/api/v1/admin/identities/"+stored.IdentityHash+"/ban",
		bytes.NewBufferString(`{"reason":"spamming"}`))
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	w2 := httptest.NewRecorder()
	r.ServeHTTP(w2, req)
	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())

	// The thread is now empty for other viewers
	w3 := doJSON(r, http.MethodGet, "/api/v1/posts/post-1/comments", nil, "bystander")
	require.Equal(t, http.StatusOK, w3.Code)
	var list struct {
		Count int `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w3.Body.Bytes(), &list))
	assert.Equal(t, 0, list.Count)

	// And the banned identity can no longer post
	w4 := doJSON(r, http.MethodPost, "/api/v1/posts/post-2/comments",
		gin.H{"content": "hello again"}, "alice")
	assert.Equal(t, http.StatusForbidden, w4.Code)
}
