package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter is a fixed-window counter. The web layer uses it to slow
// credential stuffing on signin and promo-code guessing at checkout.
type RateLimiter struct {
	client *Client
}

func NewRateLimiter(client *Client) *RateLimiter {
	return &RateLimiter{client: client}
}

func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := r.client.Incr(ctx, key)
	if err != nil {
		return false, err
	}

	if count == 1 {
		if err := r.client.Expire(ctx, key, window); err != nil {
			return false, err
		}
	}

	return count <= int64(limit), nil
}

func SigninKey(email string) string {
	return fmt.Sprintf("rate_limit:signin:%s", email)
}

func PromoKey(accountID string) string {
	return fmt.Sprintf("rate_limit:promo:%s", accountID)
}
