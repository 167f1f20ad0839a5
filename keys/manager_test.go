// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T, ks ...*Key) (*Manager, *fakeClock) {
	t.Helper()

	store := NewMemoryStore()
	for _, k := range ks {
		require.NoError(t, store.Insert(k))
	}

	clock := &fakeClock{t: time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)}
	m := NewManager(store)
	m.now = clock.Now
	m.randn = func(n int) int { return 0 }

	return m, clock
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.t = c.t.Add(d)
}

func TestGetNextKeyPrefersUserKey(t *testing.T) {
	m, _ := newTestManager(t,
		&Key{Value: "sys-1", Provider: "amap", Owner: OwnerSystem, Status: StatusActive},
		&Key{Value: "user-7", Provider: "amap", Owner: OwnerUser, UserID: 7, Status: StatusActive},
	)

	k, err := m.GetNextKey("amap", 7)
	require.NoError(t, err)
	assert.Equal(t, "user-7", k.Value)

	// Another user falls through to the system pool.
	k, err = m.GetNextKey("amap", 8)
	require.NoError(t, err)
	assert.Equal(t, "sys-1", k.Value)

	k, err = m.GetNextKey("amap", 0)
	require.NoError(t, err)
	assert.Equal(t, "sys-1", k.Value)
}

func TestGetNextKeyNoneAvailable(t *testing.T) {
	m, _ := newTestManager(t,
		&Key{Value: "dead", Provider: "amap", Owner: OwnerSystem, Status: StatusInvalid},
	)

	_, err := m.GetNextKey("amap", 0)
	assert.ErrorIs(t, err, ErrNoAvailableKey)

	_, err = m.GetNextKey("baidu", 0)
	assert.ErrorIs(t, err, ErrNoAvailableKey)
}

func TestReportFailureInvalidIsPermanent(t *testing.T) {
	m, clock := newTestManager(t,
		&Key{Value: "k1", Provider: "amap", Owner: OwnerSystem, Status: StatusActive},
	)

	require.NoError(t, m.ReportFailure("k1", ReasonInvalid))

	_, err := m.GetNextKey("amap", 0)
	assert.ErrorIs(t, err, ErrNoAvailableKey)

	clock.Advance(100 * 24 * time.Hour)

	_, err = m.GetNextKey("amap", 0)
	assert.ErrorIs(t, err, ErrNoAvailableKey)
}

func TestReportFailureQuotaReactivatesAtUTCMidnight(t *testing.T) {
	m, clock := newTestManager(t,
		&Key{Value: "k1", Provider: "amap", Owner: OwnerSystem, Status: StatusActive},
	)

	require.NoError(t, m.ReportFailure("k1", ReasonQuotaExceeded))

	_, err := m.GetNextKey("amap", 0)
	assert.ErrorIs(t, err, ErrNoAvailableKey)

	// Just before midnight it is still benched.
	clock.t = time.Date(2025, time.June, 1, 23, 59, 59, 0, time.UTC)
	_, err = m.GetNextKey("amap", 0)
	assert.ErrorIs(t, err, ErrNoAvailableKey)

	clock.t = time.Date(2025, time.June, 2, 0, 0, 0, 0, time.UTC)
	k, err := m.GetNextKey("amap", 0)
	require.NoError(t, err)
	assert.Equal(t, "k1", k.Value)
}

func TestReportFailureRateLimitedCoolsForFiveMinutes(t *testing.T) {
	m, clock := newTestManager(t,
		&Key{Value: "k1", Provider: "amap", Owner: OwnerSystem, Status: StatusActive},
	)

	require.NoError(t, m.ReportFailure("k1", ReasonRateLimited))

	_, err := m.GetNextKey("amap", 0)
	assert.ErrorIs(t, err, ErrNoAvailableKey)

	clock.Advance(4 * time.Minute)
	_, err = m.GetNextKey("amap", 0)
	assert.ErrorIs(t, err, ErrNoAvailableKey)

	clock.Advance(time.Minute)
	k, err := m.GetNextKey("amap", 0)
	require.NoError(t, err)
	assert.Equal(t, "k1", k.Value)
}

func TestConsecutiveFailuresEscalate(t *testing.T) {
	m, clock := newTestManager(t,
		&Key{Value: "k1", Provider: "amap", Owner: OwnerSystem, Status: StatusActive},
	)

	require.NoError(t, m.ReportFailure("k1", ReasonOther))
	require.NoError(t, m.ReportFailure("k1", ReasonOther))

	// Two strikes: still in rotation.
	k, err := m.GetNextKey("amap", 0)
	require.NoError(t, err)
	assert.Equal(t, "k1", k.Value)

	require.NoError(t, m.ReportFailure("k1", ReasonOther))

	_, err = m.GetNextKey("amap", 0)
	assert.ErrorIs(t, err, ErrNoAvailableKey)

	clock.Advance(5 * time.Minute)
	_, err = m.GetNextKey("amap", 0)
	require.NoError(t, err)
}

func TestSuccessResetsFailureCounter(t *testing.T) {
	m, _ := newTestManager(t,
		&Key{Value: "k1", Provider: "amap", Owner: OwnerSystem, Status: StatusActive},
	)

	require.NoError(t, m.ReportFailure("k1", ReasonOther))
	require.NoError(t, m.ReportFailure("k1", ReasonOther))
	require.NoError(t, m.ReportSuccess("k1"))
	require.NoError(t, m.ReportFailure("k1", ReasonOther))
	require.NoError(t, m.ReportFailure("k1", ReasonOther))

	// The counter restarted after the success, so the key is still active.
	k, err := m.GetNextKey("amap", 0)
	require.NoError(t, err)
	assert.Equal(t, "k1", k.Value)
}

func TestGetNextKeyStampsLastUsed(t *testing.T) {
	m, clock := newTestManager(t,
		&Key{Value: "k1", Provider: "amap", Owner: OwnerSystem, Status: StatusActive},
	)

	k, err := m.GetNextKey("amap", 0)
	require.NoError(t, err)
	require.NotNil(t, k.LastUsed)
	assert.Equal(t, clock.Now(), *k.LastUsed)
}

func TestAvailable(t *testing.T) {
	now := time.Date(2025, time.June, 1, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	for _, tc := range []struct {
		name string
		key  Key
		want bool
	}{
		{"active", Key{Status: StatusActive}, true},
		{"invalid", Key{Status: StatusInvalid}, false},
		{"cooling", Key{Status: StatusRateLimited, CooldownUntil: &future}, false},
		{"cooled down", Key{Status: StatusRateLimited, CooldownUntil: &past}, true},
		{"quota expired", Key{Status: StatusQuotaExceeded, CooldownUntil: &past}, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.key.Available(now))
		})
	}
}
