// Package ratelimit keeps one token bucket per client key and forgets clients
// that have been idle.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// DefaultIdle is how long a client's limiter is kept after its last use
const DefaultIdle = 5 * time.Minute

// Clients hands out a limiter per key
type Clients struct {
	limit rate.Limit
	burst int
	idle  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*client
	lastSweep time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter set. A non-positive idle uses DefaultIdle.
func New(limit rate.Limit, burst int, idle time.Duration) *Clients {
	if idle <= 0 {
		idle = DefaultIdle
	}
	return &Clients{
		limit:     limit,
		burst:     burst,
		idle:      idle,
		now:       time.Now,
		clients:   make(map[string]*client),
		lastSweep: time.Now(),
	}
}

// Allow reports whether key may proceed now
func (c *Clients) Allow(key string) bool {
	return c.Get(key).Allow()
}

// Get returns the limiter for key, creating it on first use. Clients idle
// longer than the idle period are dropped at most once per period.
func (c *Clients) Get(key string) *rate.Limiter {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if now.Sub(c.lastSweep) > c.idle {
		for k, cl := range c.clients {
			if now.Sub(cl.lastSeen) > c.idle {
				delete(c.clients, k)
			}
		}
		c.lastSweep = now
	}

	cl, ok := c.clients[key]
	if !ok {
		cl = &client{limiter: rate.NewLimiter(c.limit, c.burst)}
		c.clients[key] = cl
	}
	cl.lastSeen = now
	return cl.limiter
}

// Len returns the number of tracked clients
func (c *Clients) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.clients)
}
