package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ipLimitWindow = 15 * time.Minute
	ipLimitMax    = 10
	emailCooldown = 2 * time.Minute
)

// Limiter is a Redis-backed rate limiter. Two mechanisms: a sliding request
// count per IP, and a per-target cooldown for operations that send email.
type Limiter struct {
	client *redis.Client
}

func NewLimiter(client *redis.Client) *Limiter {
	return &Limiter{client: client}
}

func ipKey(ip, purpose string) string {
	if purpose == "" {
		return fmt.Sprintf("ratelimit:ip:%s", ip)
	}
	return fmt.Sprintf("ratelimit:ip:%s:%s", purpose, ip)
}

func cooldownKey(target string) string {
	return fmt.Sprintf("ratelimit:cooldown:%s", target)
}

// CheckIPRateLimit reports whether the IP has exceeded the request budget.
func (l *Limiter) CheckIPRateLimit(ctx context.Context, ip string) (bool, error) {
	return l.CheckIPRateLimitWithPurpose(ctx, ip, "")
}

// CheckIPRateLimitWithPurpose is CheckIPRateLimit with a separate budget per
// endpoint, so hammering login does not lock out registration.
func (l *Limiter) CheckIPRateLimitWithPurpose(ctx context.Context, ip, purpose string) (bool, error) {
	count, err := l.client.Get(ctx, ipKey(ip, purpose)).Int()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, fmt.Errorf("failed to read rate limit counter: %w", err)
	}

	return count >= ipLimitMax, nil
}

// RecordIPRequest counts a request against the IP's budget.
func (l *Limiter) RecordIPRequest(ctx context.Context, ip string) error {
	return l.RecordIPRequestWithPurpose(ctx, ip, "")
}

// RecordIPRequestWithPurpose counts a request against the per-endpoint budget.
func (l *Limiter) RecordIPRequestWithPurpose(ctx context.Context, ip, purpose string) error {
	key := ipKey(ip, purpose)

	pipe := l.client.Pipeline()
	pipe.Incr(ctx, key)
	// Expire only set on first increment so the window does not slide forever
	pipe.ExpireNX(ctx, key, ipLimitWindow)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to record request: %w", err)
	}

	return nil
}

// CheckEmailCooldown reports whether the target (an email address or user id)
// asked for an email too recently.
func (l *Limiter) CheckEmailCooldown(ctx context.Context, target string) (bool, error) {
	count, err := l.client.Exists(ctx, cooldownKey(target)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check cooldown: %w", err)
	}

	return count > 0, nil
}

// SetEmailCooldown starts the cooldown window for the target.
func (l *Limiter) SetEmailCooldown(ctx context.Context, target string) error {
	if err := l.client.Set(ctx, cooldownKey(target), "1", emailCooldown).Err(); err != nil {
		return fmt.Errorf("failed to set cooldown: %w", err)
	}

	return nil
}
