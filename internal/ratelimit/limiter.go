package ratelimit

import (
	"sync"
	"time"
)

// Limiter enforces a minimum interval between requests to the same host.
// Safe for concurrent use.
type Limiter struct {
	mu          sync.Mutex
	hosts       map[string]time.Time
	minInterval time.Duration
}

// New creates a limiter with the given minimum per-host interval
func New(minInterval time.Duration) *Limiter {
	return &Limiter{
		hosts:       make(map[string]time.Time),
		minInterval: minInterval,
	}
}

// Allow reports whether a request to host may proceed now. When it may,
// the host's timestamp is updated; a denied request does not update it.
func (l *Limiter) Allow(host string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	last, ok := l.hosts[host]
	if ok && now.Sub(last) < l.minInterval {
		return false
	}
	l.hosts[host] = now
	return true
}

// Wait blocks until a request to host may proceed, then records it
func (l *Limiter) Wait(host string) {
	l.mu.Lock()
	now := time.Now()
	last, ok := l.hosts[host]
	if !ok || now.Sub(last) >= l.minInterval {
		l.hosts[host] = now
		l.mu.Unlock()
		return
	}
	wait := l.minInterval - now.Sub(last)
	l.hosts[host] = last.Add(l.minInterval)
	l.mu.Unlock()

	time.Sleep(wait)
}

// Reset clears the recorded timestamp for a single host
func (l *Limiter) Reset(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.hosts, host)
}

// ResetAll clears all recorded timestamps
func (l *Limiter) ResetAll() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hosts = make(map[string]time.Time)
}
