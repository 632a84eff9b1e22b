package ratelimiter_test

import (
	"context"
	"sync"

	"github.com/dmitrymomot/edgegate/pkg/store"
)

// fakeStore is an in-memory store.Store test double implementing the
// same conditional-write semantics the real bindings provide, so the
// three limiters can be driven deterministically without a live
// MongoDB/Redis instance.
type fakeStore struct {
	mu sync.Mutex

	items map[string]store.Item

	getErr    error
	updateErr error

	// forceConditionFailOnce, when true, makes the next Update report a
	// failed condition regardless of whether it would actually match;
	// used to exercise the collision branch deterministically.
	forceConditionFailOnce bool

	// alwaysFailCondition makes every conditional Update report a failed
	// condition, simulating a client stuck in permanent contention.
	alwaysFailCondition bool

	updates int
}

func newFakeStore() *fakeStore {
	return &fakeStore{items: make(map[string]store.Item)}
}

func storeItem(tokens float64, lastRefill int64, refillRate, refillInterval, maxTokens int) store.Item {
	return store.Item{
		Tokens:         tokens,
		LastRefill:     lastRefill,
		RefillRate:     refillRate,
		RefillInterval: refillInterval,
		MaxTokens:      maxTokens,
	}
}

func (f *fakeStore) seed(key string, item store.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[key] = item
}

func (f *fakeStore) snapshot(key string) (store.Item, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	item, ok := f.items[key]
	return item, ok
}

func (f *fakeStore) Get(_ context.Context, key string) (store.Item, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.getErr != nil {
		return store.Item{}, false, f.getErr
	}
	item, ok := f.items[key]
	return item, ok, nil
}

func (f *fakeStore) Update(_ context.Context, key string, fields store.Fields, cond store.Condition) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.updates++

	if f.updateErr != nil {
		return false, f.updateErr
	}

	if f.forceConditionFailOnce {
		f.forceConditionFailOnce = false
		return false, nil
	}

	if f.alwaysFailCondition && !cond.Unconditional {
		return false, nil
	}

	if !cond.Unconditional {
		current, exists := f.items[key]
		if exists && current.LastRefill != cond.ExpectedLastRefill {
			return false, nil
		}
	}

	f.items[key] = store.Item(fields)
	return true, nil
}
