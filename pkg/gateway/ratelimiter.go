package gateway

import (
	"sync"
	"time"
)

// Rate limit defaults per client key.
const (
	DefaultRequestsPerMinute = 60
	DefaultMaxConcurrent     = 4
)

// ClientRateLimiter implements sliding window rate limiting for one client
type ClientRateLimiter struct {
	mu                 sync.Mutex
	requestsPerMinute  int
	maxConcurrent      int
	requests           []time.Time
	concurrentRequests int
	now                func() time.Time
}

// NewClientRateLimiter creates a rate limiter with custom limits. Non-positive
// limits use the defaults.
func NewClientRateLimiter(requestsPerMinute, maxConcurrent int) *ClientRateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &ClientRateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
		now:               time.Now,
	}
}

// Acquire admits a request, returning a release func for when it ends, or
// false with the reason it was refused.
func (r *ClientRateLimiter) Acquire() (func(), string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.concurrentRequests >= r.maxConcurrent {
		return nil, "too many concurrent turns", false
	}

	now := r.now()
	r.prune(now)
	if len(r.requests) >= r.requestsPerMinute {
		return nil, "rate limit exceeded", false
	}

	r.requests = append(r.requests, now)
	r.concurrentRequests++

	var once sync.Once
	return func() { once.Do(r.release) }, "", true
}

func (r *ClientRateLimiter) release() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.concurrentRequests > 0 {
		r.concurrentRequests--
	}
}

// prune drops requests older than one minute. Callers hold mu.
func (r *ClientRateLimiter) prune(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(r.requests) && !r.requests[i].After(cutoff) {
		i++
	}
	r.requests = r.requests[i:]
}

// idle reports whether the limiter holds no state worth keeping.
func (r *ClientRateLimiter) idle() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(r.now())
	return r.concurrentRequests == 0 && len(r.requests) == 0
}

// GetStats returns current rate limiter statistics
func (r *ClientRateLimiter) GetStats() (requestCount, concurrentCount int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(r.now())
	return len(r.requests), r.concurrentRequests
}

// maxTrackedClients is the number of client keys kept before idle ones are swept.
const maxTrackedClients = 1024

// RateLimiter keeps one ClientRateLimiter per client key (the remote host).
type RateLimiter struct {
	mu                sync.Mutex
	requestsPerMinute int
	maxConcurrent     int
	clients           map[string]*ClientRateLimiter
	now               func() time.Time
}

// NewRateLimiter creates a keyed rate limiter
func NewRateLimiter(requestsPerMinute, maxConcurrent int) *RateLimiter {
	return &RateLimiter{
		requestsPerMinute: requestsPerMinute,
		maxConcurrent:     maxConcurrent,
		clients:           make(map[string]*ClientRateLimiter),
		now:               time.Now,
	}
}

// Acquire admits a request from key. The client limiter is acquired under mu so
// a concurrent sweep never drops a limiter between lookup and admission.
func (l *RateLimiter) Acquire(key string) (func(), string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	limiter, ok := l.clients[key]
	if !ok {
		if len(l.clients) >= maxTrackedClients {
			l.sweepLocked()
		}
		limiter = NewClientRateLimiter(l.requestsPerMinute, l.maxConcurrent)
		limiter.now = l.now
		l.clients[key] = limiter
	}

	return limiter.Acquire()
}

// Len returns the number of tracked client keys.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

// sweepLocked forgets idle clients. Callers hold mu.
func (l *RateLimiter) sweepLocked() {
	for key, limiter := range l.clients {
		if limiter.idle() {
			delete(l.clients, key)
		}
	}
}
