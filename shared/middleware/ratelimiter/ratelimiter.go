// Package ratelimiter keeps one token bucket per caller identity.
package ratelimiter

import (
	"sync"
	"time"
)

type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// Limiter is a set of token buckets keyed by identity. Buckets unused for longer
// than the idle period are dropped by a background sweep.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	rate     float64 // tokens per second
	capacity float64
	idle     time.Duration
	now      func() time.Time

	stopOnce sync.Once
	done     chan struct{}
}

func New(rate, capacity float64, idle time.Duration) *Limiter {
	l := &Limiter{
		buckets:  make(map[string]*bucket),
		rate:     rate,
		capacity: capacity,
		idle:     idle,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go l.sweep()
	return l
}

// Allow takes one token from the identity's bucket.
func (l *Limiter) Allow(identity string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[identity]
	if !ok || now.Sub(b.lastSeen) > l.idle {
		b = &bucket{tokens: l.capacity, lastSeen: now}
		l.buckets[identity] = b
	}

	b.tokens += now.Sub(b.lastSeen).Seconds() * l.rate
	if b.tokens > l.capacity {
		b.tokens = l.capacity
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

func (l *Limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *Limiter) sweep() {
	interval := l.idle / 2
	if interval <= 0 {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.mu.Lock()
			now := l.now()
			for identity, b := range l.buckets {
				if now.Sub(b.lastSeen) > l.idle {
					delete(l.buckets, identity)
				}
			}
			l.mu.Unlock()
		}
	}
}

// Stop ends the background sweep. Safe to call more than once.
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func OnceInSecond() *Limiter { return New(1, 1, time.Hour) }
func OnceInMinute() *Limiter { return New(1.0/60, 1, time.Hour) }

// Rps allows n requests per second with a burst of n.
func Rps(n int) *Limiter { return New(float64(n), float64(n), time.Hour) }
