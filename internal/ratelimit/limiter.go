// Package ratelimit throttles requests per client key.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the per-client limits.
type Config struct {
	RPS     float64       // Requests per second per client
	Burst   int           // Burst size per client
	IdleTTL time.Duration // Limiters idle this long are dropped
}

// DefaultConfig allows a browser suite running in parallel against one host.
var DefaultConfig = Config{
	RPS:     50,
	Burst:   100,
	IdleTTL: 10 * time.Minute,
}

type entry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Limiter holds one token bucket per client key.
type Limiter struct {
	mu      sync.Mutex
	entries map[string]*entry
	config  Config
	now     func() time.Time

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Limiter and starts its idle cleanup goroutine. Call Stop to
// release it.
func New(config Config) *Limiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultConfig.IdleTTL
	}
	l := &Limiter{
		entries: make(map[string]*entry),
		config:  config,
		now:     time.Now,
		stopCh:  make(chan struct{}),
	}
	l.wg.Add(1)
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request from key is within its limit.
func (l *Limiter) Allow(key string) bool {
	return l.get(key).Allow()
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst)}
		l.entries[key] = e
	}
	e.lastUsed = l.now()
	return e.limiter
}

// Cleanup drops limiters idle for longer than IdleTTL.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.config.IdleTTL)
	for key, e := range l.entries {
		if e.lastUsed.Before(cutoff) {
			delete(l.entries, key)
		}
	}
}

func (l *Limiter) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.IdleTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// Stop ends the cleanup goroutine. It is safe to call more than once.
func (l *Limiter) Stop() {
	l.mu.Lock()
	select {
	case <-l.stopCh:
		l.mu.Unlock()
		return
	default:
		close(l.stopCh)
	}
	l.mu.Unlock()
	l.wg.Wait()
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
