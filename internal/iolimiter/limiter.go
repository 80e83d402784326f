package iolimiter

import (
	"context"
	"sync"
)

// Limiter hands out one bounded, per-device concurrency permit at a time,
// so concurrent recording analysis (internal/scanner, internal/metadata)
// doesn't saturate a single spinning drive while other devices sit idle.
// Matches the teacher's `internal/relay` preference for a plain buffered
// channel as a counting semaphore over pulling in
// `golang.org/x/sync/semaphore` for what is, here, a single fixed-size
// permit pool per key.
type Limiter struct {
	concurrency int

	mu   sync.Mutex
	sems map[string]chan struct{}
}

// New returns a Limiter granting concurrency simultaneous permits per
// device. concurrency <= 0 is treated as 1 (fully serialized per device).
func New(concurrency int) *Limiter {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Limiter{concurrency: concurrency, sems: make(map[string]chan struct{})}
}

func (l *Limiter) semFor(device string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.sems[device]
	if !ok {
		sem = make(chan struct{}, l.concurrency)
		l.sems[device] = sem
	}
	return sem
}

// Acquire blocks until a permit for device is available or ctx is
// canceled, returning a release function to call when the caller is
// done. An empty device string still serializes correctly (all empty-
// device callers share one semaphore), for paths whose backing device
// couldn't be resolved.
func (l *Limiter) Acquire(ctx context.Context, device string) (release func(), err error) {
	sem := l.semFor(device)
	select {
	case sem <- struct{}{}:
		return func() { <-sem }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AcquireForPath resolves path's backing device and acquires a permit for
// it. A resolution failure is not fatal: it falls back to the shared
// empty-device semaphore rather than letting an unresolvable path bypass
// the limiter entirely.
func (l *Limiter) AcquireForPath(ctx context.Context, path string) (release func(), err error) {
	device, resolveErr := ResolveDevice(ctx, path)
	if resolveErr != nil {
		device = ""
	}
	return l.Acquire(ctx, device)
}
