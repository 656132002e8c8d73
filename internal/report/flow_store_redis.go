// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taibuivan/vitalis/internal/platform/constants"
)

// swapFlow replaces KEYS[1] with ARGV[2] only when the stored revision equals ARGV[1].
// Returns 1 on success and 0 when the flow is missing or has moved on.
var swapFlow = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
if not current then
	return 0
end
if cjson.decode(current)["revision"] ~= ARGV[1] then
	return 0
end
redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
return 1
`)

// RedisFlowStore implements [FlowStore] with one JSON value per identifier.
type RedisFlowStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisFlowStore creates a new Redis-backed FlowStore.
func NewRedisFlowStore(client *redis.Client, ttl time.Duration) *RedisFlowStore {
	return &RedisFlowStore{client: client, ttl: ttl}
}

func flowKey(identifier string) string {
	return constants.RedisPrefixReportFlow + identifier
}

/*
Get retrieves the flow for identifier.

Parameters:
  - context: context.Context
  - identifier: string

Returns:
  - *Flow: Decoded record
  - error: ErrFlowNotFound or connectivity errors
*/
func (store *RedisFlowStore) Get(context context.Context, identifier string) (*Flow, error) {
	raw, err := store.client.Get(context, flowKey(identifier)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrFlowNotFound
		}
		return nil, fmt.Errorf("redis_flow_get_failed: %w", err)
	}

	flow := &Flow{}
	if err := json.Unmarshal(raw, flow); err != nil {
		return nil, fmt.Errorf("redis_flow_decode_failed: %w", err)
	}
	return flow, nil
}

/*
Put overwrites the flow and restarts its TTL.

Parameters:
  - context: context.Context
  - flow: *Flow

Returns:
  - error: Execution errors
*/
func (store *RedisFlowStore) Put(context context.Context, flow *Flow) error {
	raw, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("redis_flow_encode_failed: %w", err)
	}

	if err := store.client.Set(context, flowKey(flow.Identifier), raw, store.ttl).Err(); err != nil {
		return fmt.Errorf("redis_flow_set_failed: %w", err)
	}
	return nil
}

/*
CompareAndSwap writes next atomically if the stored revision is expectedRevision.

Parameters:
  - context: context.Context
  - next: *Flow
  - expectedRevision: string

Returns:
  - bool: Whether the write happened
  - error: Connectivity errors
*/
func (store *RedisFlowStore) CompareAndSwap(context context.Context, next *Flow, expectedRevision string) (bool, error) {
	raw, err := json.Marshal(next)
	if err != nil {
		return false, fmt.Errorf("redis_flow_encode_failed: %w", err)
	}

	swapped, err := swapFlow.Run(context, store.client,
		[]string{flowKey(next.Identifier)},
		expectedRevision, raw, store.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return false, fmt.Errorf("redis_flow_swap_failed: %w", err)
	}

	return swapped == 1, nil
}
