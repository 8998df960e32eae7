package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/waveground/backend/internal/metrics"
	"github.com/waveground/backend/internal/models"
)

// CommentCache caches rendered comment lists per post. Lists are keyed
// per viewer segment: the public list for everyone, and never cached
// for viewers with hidden comments of their own, since their view is
// personal.
type CommentCache struct {
	redis *RedisClient
	ttl   time.Duration
}

// NewCommentCache creates a comment list cache. A nil redis client
// disables caching entirely; every method becomes a no-op miss.
func NewCommentCache(redis *RedisClient) *CommentCache {
	return &CommentCache{
		redis: redis,
		ttl:   30 * time.Second,
	}
}

func commentListKey(postID string) string {
	return fmt.Sprintf("comments:post:%s", postID)
}

// GetPublicList returns the cached public comment list for a post, or
// nil on miss.
func (cc *CommentCache) GetPublicList(ctx context.Context, postID string) []*models.Comment {
	if cc == nil || cc.redis == nil {
		return nil
	}

	raw, err := cc.redis.Get(ctx, commentListKey(postID))
	if err != nil {
		if !IsNil(err) {
			metrics.Get().ErrorsTotal.WithLabelValues("comment_cache").Inc()
		}
		metrics.Get().CacheMissesTotal.WithLabelValues("comments").Inc()
		return nil
	}

	var comments []*models.Comment
	if err := json.Unmarshal([]byte(raw), &comments); err != nil {
		metrics.Get().CacheMissesTotal.WithLabelValues("comments").Inc()
		return nil
	}

	metrics.Get().CacheHitsTotal.WithLabelValues("comments").Inc()
	return comments
}

// SetPublicList caches the public comment list for a post
func (cc *CommentCache) SetPublicList(ctx context.Context, postID string, comments []*models.Comment) {
	if cc == nil || cc.redis == nil {
		return
	}

	raw, err := json.Marshal(comments)
	if err != nil {
		return
	}
	_ = cc.redis.SetEx(ctx, commentListKey(postID), raw, cc.ttl)
}

// Invalidate drops the cached list after any write to a post's comments
func (cc *CommentCache) Invalidate(ctx context.Context, postID string) {
	if cc == nil || cc.redis == nil {
		return
	}
	_ = cc.redis.Del(ctx, commentListKey(postID))
}
