// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package challenge

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// incrementWindow bumps the counter and starts its expiry on the first hit only,
// so repeated requests cannot keep extending the window.
var incrementWindow = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// RedisThrottle implements [Throttle] with one expiring counter per key.
type RedisThrottle struct {
	client *redis.Client
}

// NewRedisThrottle creates a new Redis-backed Throttle.
func NewRedisThrottle(client *redis.Client) *RedisThrottle {
	return &RedisThrottle{client: client}
}

/*
Allow increments the counter stored at key.

Parameters:
  - context: context.Context
  - key: string (already prefixed)
  - limit: int64
  - window: time.Duration

Returns:
  - bool: true while the counter is at most limit
  - error: Connectivity errors
*/
func (throttle *RedisThrottle) Allow(context context.Context, key string, limit int64, window time.Duration) (bool, error) {
	count, err := incrementWindow.Run(context, throttle.client, []string{key}, window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("redis_otp_throttle_failed: %w", err)
	}

	return count <= limit, nil
}
