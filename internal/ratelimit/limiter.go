// Package ratelimit provides per-tenant sliding-window admission control.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultWindow       = 60 * time.Second
	DefaultMax          = 50
	DefaultPollInterval = time.Second
)

// Limiter admits at most max requests per tenant within a trailing window.
// Each tenant's window has its own lock, so a saturated tenant never delays
// admission checks for another.
type Limiter struct {
	window time.Duration
	max    int
	poll   time.Duration
	now    func() time.Time

	mu      sync.Mutex
	tenants map[string]*tenantWindow
}

type tenantWindow struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// Option configures a Limiter.
type Option func(*Limiter)

func WithWindow(d time.Duration) Option { return func(l *Limiter) { l.window = d } }

func WithMax(n int) Option { return func(l *Limiter) { l.max = n } }

func WithPollInterval(d time.Duration) Option { return func(l *Limiter) { l.poll = d } }

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option { return func(l *Limiter) { l.now = now } }

// New creates a limiter with a 60s window, 50 requests and a 1s poll interval
// unless overridden.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		window:  DefaultWindow,
		max:     DefaultMax,
		poll:    DefaultPollInterval,
		now:     time.Now,
		tenants: make(map[string]*tenantWindow),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

func (l *Limiter) tenant(id string) *tenantWindow {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.tenants[id]
	if !ok {
		w = &tenantWindow{}
		l.tenants[id] = w
	}

	return w
}

// Allow reports whether a request for tenant may proceed now and records it
// when it may.
func (l *Limiter) Allow(tenant string) bool {
	w := l.tenant(tenant)

	w.mu.Lock()
	defer w.mu.Unlock()

	now := l.now()
	w.prune(now.Add(-l.window))

	if len(w.timestamps) >= l.max {
		return false
	}

	w.timestamps = append(w.timestamps, now)

	return true
}

// Wait blocks until Allow admits the request or ctx is done.
func (l *Limiter) Wait(ctx context.Context, tenant string) error {
	if l.Allow(tenant) {
		return nil
	}

	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.Allow(tenant) {
				return nil
			}
		}
	}
}

// Len returns the number of requests currently inside the tenant's window.
func (l *Limiter) Len(tenant string) int {
	w := l.tenant(tenant)

	w.mu.Lock()
	defer w.mu.Unlock()

	w.prune(l.now().Add(-l.window))

	return len(w.timestamps)
}

// prune drops timestamps at or before cutoff. Timestamps are appended in
// order, so the expired ones form a prefix.
func (w *tenantWindow) prune(cutoff time.Time) {
	i := 0
	for i < len(w.timestamps) && !w.timestamps[i].After(cutoff) {
		i++
	}

	if i > 0 {
		w.timestamps = append(w.timestamps[:0], w.timestamps[i:]...)
	}
}
