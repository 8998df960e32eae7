package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/waveground/backend/internal/cache"
	"github.com/waveground/backend/internal/config"
	"github.com/waveground/backend/internal/identity"
	"github.com/waveground/backend/internal/moderation"
	"github.com/waveground/backend/internal/ratelimit"
	"github.com/waveground/backend/internal/repository"
	"github.com/waveground/backend/internal/util"
)

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	service    *moderation.Service
	resolver   *identity.Resolver
	identities repository.IdentityRepository
	comments   repository.CommentRepository
	cache      *cache.CommentCache
	limiter    *ratelimit.Limiter
	cfg        *config.Config
}

// NewHandlers creates a new handlers instance
func NewHandlers(
	service *moderation.Service,
	resolver *identity.Resolver,
	identities repository.IdentityRepository,
	comments repository.CommentRepository,
	commentCache *cache.CommentCache,
	limiter *ratelimit.Limiter,
	cfg *config.Config,
) *Handlers {
	return &Handlers{
		service:    service,
		resolver:   resolver,
		identities: identities,
		comments:   comments,
		cache:      commentCache,
		limiter:    limiter,
		cfg:        cfg,
	}
}

// timeNow is swapped out in tests
var timeNow = time.Now

// signalsFromRequest collects the identity signals the client presents.
// The session and local storage IDs are client-asserted headers; the IP
// and user agent come from the transport.
func signalsFromRequest(c *gin.Context) identity.Signals {
	return identity.Signals{
		IPAddress:      util.ClientIP(c),
		UserAgent:      c.Request.UserAgent(),
		SessionID:      c.GetHeader("X-Session-ID"),
		LocalStorageID: c.GetHeader("X-Local-Storage-ID"),
	}
}

// pagination pulls limit/offset query params with sane bounds
func pagination(c *gin.Context, defaultLimit, maxLimit int) (int, int) {
	limit := defaultLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			offset = n
		}
	}
	return limit, offset
}
