// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"
)

const (
	rateLimitCooldown = 5 * time.Minute
	// Consecutive unclassified failures before a key is benched.
	maxConsecutiveFailures = 3
)

// Manager hands out credential keys and tracks their health. All state
// transitions are serialized under one lock so that two concurrent failures
// cannot double-penalize a key or race a reactivation.
type Manager struct {
	mu    sync.Mutex
	store Store
	now   func() time.Time
	randn func(n int) int
}

// NewManager creates a Manager on top of a Store.
func NewManager(store Store) *Manager {
	return &Manager{
		store: store,
		now:   time.Now,
		randn: rand.Intn,
	}
}

// GetNextKey returns a usable key for the provider. The caller's own active
// key wins when userID is non-zero and one exists; otherwise a uniformly
// random active system key is chosen. ErrNoAvailableKey means the provider
// must be skipped.
func (m *Manager) GetNextKey(provider string, userID int64) (*Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if err := m.store.ReactivateExpired(provider, now); err != nil {
		return nil, fmt.Errorf("reactivating keys for %s: %w", provider, err)
	}

	all, err := m.store.ListByProvider(provider)
	if err != nil {
		return nil, fmt.Errorf("listing keys for %s: %w", provider, err)
	}

	var systemKeys []*Key

	for _, k := range all {
		if k.Status != StatusActive {
			continue
		}

		if k.Owner == OwnerUser && userID != 0 && k.UserID == userID {
			return m.touch(k)
		}

		if k.Owner == OwnerSystem {
			systemKeys = append(systemKeys, k)
		}
	}

	if len(systemKeys) == 0 {
		return nil, fmt.Errorf("%s: %w", provider, ErrNoAvailableKey)
	}

	return m.touch(systemKeys[m.randn(len(systemKeys))])
}

func (m *Manager) touch(k *Key) (*Key, error) {
	now := m.now()
	k.LastUsed = &now

	if err := m.store.Update(k); err != nil {
		return nil, fmt.Errorf("stamping key: %w", err)
	}

	c := *k

	return &c, nil
}

// ReportFailure records a failed call. Invalid keys are retired permanently;
// quota exhaustion benches the key until the next UTC midnight; rate limiting
// benches it for five minutes; unclassified failures accumulate and escalate
// to a rate-limit bench on the third consecutive one.
func (m *Manager) ReportFailure(value string, reason FailureReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, err := m.store.Get(value)
	if err != nil {
		return err
	}

	now := m.now()

	switch reason {
	case ReasonInvalid:
		k.Status = StatusInvalid
		k.CooldownUntil = nil
		log.Printf("key %s/%s retired: invalid", k.Provider, shorten(value))
	case ReasonQuotaExceeded:
		until := nextUTCMidnight(now)
		k.Status = StatusQuotaExceeded
		k.CooldownUntil = &until
		k.FailureCount = 0
	case ReasonRateLimited:
		until := now.Add(rateLimitCooldown)
		k.Status = StatusRateLimited
		k.CooldownUntil = &until
		k.FailureCount = 0
	default: // ReasonOther
		k.FailureCount++
		if k.FailureCount >= maxConsecutiveFailures {
			until := now.Add(rateLimitCooldown)
			k.Status = StatusRateLimited
			k.CooldownUntil = &until
			k.FailureCount = 0
			log.Printf("key %s/%s benched after %d consecutive failures",
				k.Provider, shorten(value), maxConsecutiveFailures)
		}
	}

	return m.store.Update(k)
}

// ReportSuccess resets the consecutive-failure counter and stamps last use.
func (m *Manager) ReportSuccess(value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	k, err := m.store.Get(value)
	if err != nil {
		return err
	}

	now := m.now()
	k.FailureCount = 0
	k.LastUsed = &now

	return m.store.Update(k)
}

func nextUTCMidnight(now time.Time) time.Time {
	u := now.UTC()

	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 1)
}

func shorten(value string) string {
	if len(value) <= 8 {
		return value
	}

	return value[:4] + "…" + value[len(value)-4:]
}
