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

package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudmesh/cf-ts-dns/pkg/errs"
)

// ErrNotFound is returned by a KV backend when a key has never been written.
var ErrNotFound = errors.New("key not found")

// KV is the persistence contract the store runs on. Backends: local files,
// etcd, and an in-memory map for tests.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, value []byte) error
}

// Store reads and writes one configuration document per owner-id. Writes are
// serialized; reads hand out masked copies so secrets never leave the store.
type Store struct {
	mu      sync.Mutex
	kv      KV
	ownerID string
}

// NewStore binds a store to a KV backend for one owner-id.
func NewStore(kv KV, ownerID string) *Store {
	return &Store{kv: kv, ownerID: ownerID}
}

func (s *Store) key() string {
	return s.ownerID + "/settings"
}

// Read returns the document with secrets masked. A never-written owner gets
// an empty document.
func (s *Store) Read(ctx context.Context) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Masked(), nil
}

// ReadSecrets returns the document with secrets intact. For internal use by
// the sync path only; the operator API must go through Read.
func (s *Store) ReadSecrets(ctx context.Context) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Write validates and persists the document. Masked secret values are
// restored from the stored document, so clients can write back what a
// masked read gave them.
func (s *Store) Write(ctx context.Context, next *Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prior, err := s.load(ctx)
	if err != nil {
		return err
	}
	restoreSecrets(next, prior)
	if err := Validate(next); err != nil {
		return err
	}
	return s.save(ctx, next)
}

// Update applies mutate to the stored document under the store lock and
// persists the result. The mutate callback sees unmasked secrets.
func (s *Store) Update(ctx context.Context, mutate func(*Config) error) (*Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := mutate(cfg); err != nil {
		return nil, err
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	if err := s.save(ctx, cfg); err != nil {
		return nil, err
	}
	return cfg.Masked(), nil
}

func (s *Store) load(ctx context.Context) (*Config, error) {
	data, err := s.kv.Get(ctx, s.key())
	if errors.Is(err, ErrNotFound) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading settings for %q: %w", s.ownerID, err)
	}
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errs.NewConfigf("stored settings for %q are not valid JSON: %v", s.ownerID, err)
	}
	return cfg, nil
}

func (s *Store) save(ctx context.Context, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := s.kv.Put(ctx, s.key(), data); err != nil {
		return fmt.Errorf("writing settings for %q: %w", s.ownerID, err)
	}
	return nil
}
