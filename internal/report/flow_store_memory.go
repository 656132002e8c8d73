// Copyright (c) 2026 Vitalis. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package report

import (
	"context"
	"sync"
	"time"
)

type memoryFlow struct {
	flow      Flow
	expiresAt time.Time
}

// MemoryFlowStore is a process-local [FlowStore]. It is the fallback when
// Redis is not configured and is only correct for a single server instance.
type MemoryFlowStore struct {
	mu    sync.Mutex
	flows map[string]memoryFlow
	ttl   time.Duration
	now   func() time.Time
}

// NewMemoryFlowStore creates an empty store whose records expire after ttl of inactivity.
func NewMemoryFlowStore(ttl time.Duration) *MemoryFlowStore {
	return &MemoryFlowStore{flows: make(map[string]memoryFlow), ttl: ttl, now: time.Now}
}

// WithClock replaces the time source used for expiry.
func (store *MemoryFlowStore) WithClock(now func() time.Time) *MemoryFlowStore {
	store.now = now
	return store
}

// Get returns a copy of the live flow.
func (store *MemoryFlowStore) Get(_ context.Context, identifier string) (*Flow, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, found := store.live(identifier)
	if !found {
		return nil, ErrFlowNotFound
	}

	flow := entry.flow
	return &flow, nil
}

// Put replaces the flow and restarts its TTL.
func (store *MemoryFlowStore) Put(_ context.Context, flow *Flow) error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.flows[flow.Identifier] = memoryFlow{flow: *flow, expiresAt: store.now().Add(store.ttl)}
	return nil
}

// CompareAndSwap replaces the flow if its revision still matches.
func (store *MemoryFlowStore) CompareAndSwap(_ context.Context, next *Flow, expectedRevision string) (bool, error) {
	store.mu.Lock()
	defer store.mu.Unlock()

	entry, found := store.live(next.Identifier)
	if !found || entry.flow.Revision != expectedRevision {
		return false, nil
	}

	store.flows[next.Identifier] = memoryFlow{flow: *next, expiresAt: store.now().Add(store.ttl)}
	return true, nil
}

// live must be called with mu held.
func (store *MemoryFlowStore) live(identifier string) (memoryFlow, bool) {
	entry, found := store.flows[identifier]
	if !found {
		return memoryFlow{}, false
	}
	if !store.now().Before(entry.expiresAt) {
		delete(store.flows, identifier)
		return memoryFlow{}, false
	}
	return entry, true
}
