// Package backend provides the Waveground comments API server.

// The code is organized into subpackages:

// - internal/handlers: HTTP request handlers for all API endpoints
// - internal/moderation: abuse scoring, cooldowns, and ban decisions
// - internal/identity: anonymous commenter identity resolution
// - internal/ratelimit: sliding-window rate limiter
// - internal/models: data models and database schemas
// - internal/repository: data access on top of GORM
// - internal/database: database connection and migrations
// - internal/cache: Redis comment-list cache
// - internal/middleware: HTTP middleware (auth, logging, metrics)

// See the individual package documentation for detailed API reference.
package backend
