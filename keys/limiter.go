// Copyright 2025 The Geocoding Authors
// SPDX-License-Identifier: Apache-2.0

package keys

import (
	"context"
	"sync"
	"time"
)

// RateLimiter caps outbound request rate to one provider using a sliding
// one-second window of request timestamps. It is independent of key health:
// even a fresh key must respect the vendor's QPS contract.
type RateLimiter struct {
	mu     sync.Mutex
	qps    int
	stamps []time.Time
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewRateLimiter creates a limiter allowing qps requests per second.
func NewRateLimiter(qps int) *RateLimiter {
	if qps <= 0 {
		qps = 1
	}

	return &RateLimiter{
		qps:   qps,
		now:   time.Now,
		sleep: sleepCtx,
	}
}

// Acquire blocks until a request slot is free or the context is done.
func (l *RateLimiter) Acquire(ctx context.Context) error {
	for {
		l.mu.Lock()

		now := l.now()
		cutoff := now.Add(-time.Second)

		keep := l.stamps[:0]
		for _, s := range l.stamps {
			if s.After(cutoff) {
				keep = append(keep, s)
			}
		}
		l.stamps = keep

		if len(l.stamps) < l.qps {
			l.stamps = append(l.stamps, now)
			l.mu.Unlock()

			return nil
		}

		wait := time.Second - now.Sub(l.stamps[0])
		l.mu.Unlock()

		if wait <= 0 {
			continue
		}

		if err := l.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
