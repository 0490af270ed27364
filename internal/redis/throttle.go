package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ContactThrottle rate-limits contact form submissions per sender. The first
// submission within the cooloff window wins; later ones are rejected until
// the key expires.
type ContactThrottle struct {
	rdb     *goredis.Client
	cooloff time.Duration
}

func NewContactThrottle(client *Client, cooloff time.Duration) *ContactThrottle {
	return &ContactThrottle{rdb: client.Underlying(), cooloff: cooloff}
}

// Allow reports whether the sender may submit now. The check and the window
// start are one atomic SETNX.
func (t *ContactThrottle) Allow(ctx context.Context, sender string) (bool, error) {
	set, err := t.rdb.SetNX(ctx, throttleKey(sender), "1", t.cooloff).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check contact throttle: %w", err)
	}
	return set, nil
}

func throttleKey(sender string) string {
	return "contact:throttle:" + sender
}
