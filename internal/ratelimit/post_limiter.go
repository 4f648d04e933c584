package ratelimit

import (
	"context"
	"fmt"
	"strings"

	"github.com/heraerp/heracore/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyTransactionPostOrg = "txn:post:org:%s"

// PostLimiter throttles transaction posting per organization. When no redis
// address or rate is configured the limiter is disabled and admits
// everything.
type PostLimiter struct {
	enabled bool

	bucket *TokenBucket
	rate   float64
	burst  int
}

func NewPostLimiter(cfg config.Config) *PostLimiter {
	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" || cfg.PostRateLimit <= 0 {
		return nil
	}

	burst := cfg.PostRateBurst
	if burst <= 0 {
		burst = cfg.PostRateLimit
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
	})

	return &PostLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    float64(cfg.PostRateLimit),
		burst:   burst,
	}
}

func (l *PostLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *PostLimiter) AllowOrg(ctx context.Context, orgID string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyTransactionPostOrg, strings.TrimSpace(orgID)), l.rate, l.burst)
}
