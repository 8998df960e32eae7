package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all runtime configuration loaded from environment variables
type Config struct {
	Port     string
	GinMode  string
	LogLevel string
	LogFile  string

	// IdentityHashSecret keys the commenter identity hashes. Rotating it
	// orphans all existing identity records, so it must be stable.
	IdentityHashSecret string

	DatabaseURL string

	// Redis is optional. An empty host disables the comment list cache.
	RedisHost     string
	RedisPort     string
	RedisPassword string

	JWTSecret string

	// CommentsPerWindow / CommentWindowMs configure the comment submission
	// rate limiter (defaults: 5 comments per 60s).
	CommentsPerWindow int
	CommentWindowMs   int64
}

// Load reads configuration from the environment.
// REQUIRED environment variables:
// - IDENTITY_HASH_SECRET: secret key for commenter identity hashing
// - JWT_SECRET: signing key for admin session tokens
func Load() (*Config, error) {
	identitySecret := os.Getenv("IDENTITY_HASH_SECRET")
	if identitySecret == "" {
		return nil, fmt.Errorf("IDENTITY_HASH_SECRET environment variable not set - this is REQUIRED for identity tracking to work")
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable not set")
	}

	return &Config{
		Port:               getEnvOrDefault("PORT", "8787"),
		GinMode:            getEnvOrDefault("GIN_MODE", "debug"),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		LogFile:            getEnvOrDefault("LOG_FILE", "logs/backend.log"),
		IdentityHashSecret: identitySecret,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisHost:          os.Getenv("REDIS_HOST"),
		RedisPort:          getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		JWTSecret:          jwtSecret,
		CommentsPerWindow:  getEnvIntOrDefault("COMMENTS_PER_WINDOW", 5),
		CommentWindowMs:    int64(getEnvIntOrDefault("COMMENT_WINDOW_MS", 60000)),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
