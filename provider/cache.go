/*
Copyright 2025 The cf-ts-dns Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package provider

import (
	"sync"
	"time"
)

// TTLCache caches a single value for a fixed duration. It is shared across
// concurrent syncs; the mutex makes sure a miss fills once rather than
// fanning out duplicate upstream calls.
type TTLCache[T any] struct {
	mu       sync.Mutex
	age      time.Time
	duration time.Duration
	value    []T
}

// NewTTLCache returns a cache holding values for the given duration.
// A non-positive duration disables caching.
func NewTTLCache[T any](duration time.Duration) *TTLCache[T] {
	return &TTLCache[T]{duration: duration}
}

// Get returns the cached value, filling it via fetch when absent or expired.
func (c *TTLCache[T]) Get(fetch func() ([]T, error)) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.expired() {
		return c.value, nil
	}
	value, err := fetch()
	if err != nil {
		return nil, err
	}
	if c.duration > 0 {
		c.age = time.Now()
		c.value = value
	}
	return value, nil
}

// Reset drops the cached value so the next Get refetches.
func (c *TTLCache[T]) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
	c.age = time.Time{}
}

func (c *TTLCache[T]) expired() bool {
	return len(c.value) < 1 || time.Since(c.age) > c.duration
}
