// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

// Package keys manages per-provider credential pools and request pacing.
//
// Keys are the only state shared across concurrent resolutions: each call
// outcome mutates the health of the key that made it, and cooled-down keys
// return to rotation lazily on the next lookup rather than via a timer.
package keys

import (
	"errors"
	"time"
)

// Status is the health state of a credential key.
type Status string

// Key lifecycle states.
const (
	StatusActive        Status = "active"
	StatusInvalid       Status = "invalid"
	StatusQuotaExceeded Status = "quota_exceeded"
	StatusRateLimited   Status = "rate_limited"
)

// Owner distinguishes pool keys from user-contributed ones.
type Owner string

// Key ownership kinds. A user key takes priority over the system pool for
// calls made on behalf of that user.
const (
	OwnerSystem Owner = "system"
	OwnerUser   Owner = "user"
)

// FailureReason classifies a failed provider call for key bookkeeping.
type FailureReason string

// Failure reasons reported by provider adapters.
const (
	ReasonInvalid       FailureReason = "invalid"
	ReasonQuotaExceeded FailureReason = "quota_exceeded"
	ReasonRateLimited   FailureReason = "rate_limited"
	ReasonOther         FailureReason = "other"
)

// ErrNoAvailableKey is returned when every key for a provider is invalid or
// cooling down. The caller skips the provider; the cascade continues.
var ErrNoAvailableKey = errors.New("no available api key")

// Key is a single credential for one provider.
type Key struct {
	Value         string
	Provider      string
	Owner         Owner
	UserID        int64 // 0 for system keys
	Status        Status
	CooldownUntil *time.Time
	FailureCount  int
	LastUsed      *time.Time
}

// Available reports whether the key can be handed out right now. A cooled
// down key whose deadline passed counts as available; the manager reactivates
// it on the way out.
func (k *Key) Available(now time.Time) bool {
	switch k.Status {
	case StatusActive:
		return true
	case StatusQuotaExceeded, StatusRateLimited:
		return k.CooldownUntil != nil && !now.Before(*k.CooldownUntil)
	default:
		return false
	}
}
