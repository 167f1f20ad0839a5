// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"errors"
	"sync"
	"time"
)

// ErrKeyNotFound is returned when a key value is unknown to the store.
var ErrKeyNotFound = errors.New("key not found")

// Store persists credential keys. Implementations must tolerate concurrent
// calls; the Manager serializes state transitions on top of it.
type Store interface {
	// Insert adds a new key. Key values are unique across providers.
	Insert(k *Key) error
	// Get returns the key with the given value.
	Get(value string) (*Key, error)
	// Update rewrites the stored state of a key, matched by value.
	Update(k *Key) error
	// ListByProvider returns every key for a provider, system and user alike.
	ListByProvider(provider string) ([]*Key, error)
	// ReactivateExpired flips keys whose cooldown has passed back to active
	// and clears their failure counters.
	ReactivateExpired(provider string, now time.Time) error
}

// MemoryStore is an in-process Store for tests and single-run CLI use where
// no database path is configured.
type MemoryStore struct {
	mu   sync.Mutex
	keys map[string]*Key
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]*Key)}
}

func (s *MemoryStore) Insert(k *Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[k.Value]; ok {
		return errors.New("duplicate key value")
	}

	c := *k
	s.keys[k.Value] = &c

	return nil
}

func (s *MemoryStore) Get(value string) (*Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	k, ok := s.keys[value]
	if !ok {
		return nil, ErrKeyNotFound
	}

	c := *k

	return &c, nil
}

func (s *MemoryStore) Update(k *Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[k.Value]; !ok {
		return ErrKeyNotFound
	}

	c := *k
	s.keys[k.Value] = &c

	return nil
}

func (s *MemoryStore) ListByProvider(provider string) ([]*Key, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Key

	for _, k := range s.keys {
		if k.Provider == provider {
			c := *k
			out = append(out, &c)
		}
	}

	return out, nil
}

func (s *MemoryStore) ReactivateExpired(provider string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range s.keys {
		if k.Provider != provider {
			continue
		}

		if (k.Status == StatusQuotaExceeded || k.Status == StatusRateLimited) &&
			k.CooldownUntil != nil && !now.Before(*k.CooldownUntil) {
			k.Status = StatusActive
			k.CooldownUntil = nil
			k.FailureCount = 0
		}
	}

	return nil
}
