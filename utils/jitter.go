// Copyright (C) 2026 Storj Labs, Inc.
// See LICENSE for copying information.

package utils

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// JitteredTicker delivers ticks on C at jittered intervals around interval.
type JitteredTicker struct {
	C         chan struct{}
	interval  time.Duration
	closeOnce sync.Once
	closed    chan struct{}
}

// NewJitteredTicker creates a ticker. Ticks are produced while Run is active.
func NewJitteredTicker(interval time.Duration) *JitteredTicker {
	return &JitteredTicker{
		C:        make(chan struct{}, 1),
		interval: interval,
		closed:   make(chan struct{}),
	}
}

// Run produces ticks until ctx is canceled or Stop is called. A tick that
// nobody has picked up yet is not duplicated.
func (t *JitteredTicker) Run(ctx context.Context) {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	timer := time.NewTimer(Jitter(r, t.interval))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.closed:
			return
		case <-timer.C:
			select {
			case t.C <- struct{}{}:
			default:
			}
			timer.Reset(Jitter(r, t.interval))
		}
	}
}

// Stop terminates Run.
func (t *JitteredTicker) Stop() {
	t.closeOnce.Do(func() { close(t.closed) })
}

// Jitter returns a duration normally distributed around t.
func Jitter(r *rand.Rand, t time.Duration) time.Duration {
	nanos := r.NormFloat64()*float64(t/4) + float64(t)
	if nanos <= 0 {
		nanos = 1
	}
	return time.Duration(nanos)
}

// Backoff hands out jittered waits that double from Min up to Max.
// It is not safe for concurrent use.
type Backoff struct {
	Min time.Duration
	Max time.Duration

	r   *rand.Rand
	cur time.Duration
}

// NewBackoff creates a Backoff between min and max.
func NewBackoff(min, max time.Duration) *Backoff {
	if min > max {
		min = max
	}
	return &Backoff{
		Min: min,
		Max: max,
		r:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next returns the next wait. It never exceeds Max.
func (b *Backoff) Next() time.Duration {
	if b.cur == 0 {
		b.cur = b.Min
	} else {
		b.cur *= 2
	}
	if b.cur > b.Max {
		b.cur = b.Max
	}
	wait := Jitter(b.r, b.cur)
	if wait > b.Max {
		wait = b.Max
	}
	return wait
}

// Reset starts the next wait from Min again.
func (b *Backoff) Reset() { b.cur = 0 }
