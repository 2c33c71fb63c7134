// Package registry owns the per-client state pairs. Each connected client
// gets exactly one FrameProcessor and one session Aggregator, created
// together on first contact and destroyed together on disconnect or idle
// eviction.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"countcam/internal/processor"
	"countcam/internal/session"
)

const (
	// DefaultIdleTimeout is how long a client may stay silent before the
	// sweeper removes it.
	DefaultIdleTimeout = 300 * time.Second
	// DefaultSweepInterval is how often the idle sweeper runs.
	DefaultSweepInterval = 60 * time.Second
)

// Client bundles the per-client processing state.
type Client struct {
	ID        string
	Processor *processor.FrameProcessor
	Session   *session.Aggregator

	lastSeen time.Time // guarded by the registry mutex
}

// Registry maps client ids to their processing state. All mutations
// (lazy insert, evict, sweep) are serialized under one mutex so a client
// reconnecting while being swept cannot lose a freshly created pair.
type Registry struct {
	mu          sync.Mutex
	clients     map[string]*Client
	idleTimeout time.Duration
}

// New creates an empty registry. A non-positive idleTimeout falls back to
// DefaultIdleTimeout.
func New(idleTimeout time.Duration) *Registry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &Registry{
		clients:     make(map[string]*Client),
		idleTimeout: idleTimeout,
	}
}

// Resolve returns the client's state pair, creating it lazily on first
// contact, and marks the client as active.
func (r *Registry) Resolve(clientID string) *Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if !ok {
		c = &Client{
			ID:        clientID,
			Processor: processor.New(),
			Session:   session.New(),
		}
		r.clients[clientID] = c
		fmt.Printf("[REG] client %s registered (total: %d)\n", clientID, len(r.clients))
	}
	c.lastSeen = time.Now()
	return c
}

// Lookup returns the client's state pair without creating one.
func (r *Registry) Lookup(clientID string) (*Client, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.clients[clientID]
	if ok {
		c.lastSeen = time.Now()
	}
	return c, ok
}

// Evict removes a client, typically on explicit disconnect.
func (r *Registry) Evict(clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[clientID]; ok {
		delete(r.clients, clientID)
		fmt.Printf("[REG] client %s evicted (total: %d)\n", clientID, len(r.clients))
	}
}

// SweepIdle removes every client whose last activity is older than the idle
// timeout and returns how many were removed.
func (r *Registry) SweepIdle(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, c := range r.clients {
		if now.Sub(c.lastSeen) > r.idleTimeout {
			delete(r.clients, id)
			removed++
		}
	}
	if removed > 0 {
		fmt.Printf("[REG] swept %d idle client(s) (total: %d)\n", removed, len(r.clients))
	}
	return removed
}

// Len returns the number of registered clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Run executes the idle sweep on a recurring timer until the context is
// canceled. Meant to be started once at process init.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.SweepIdle(now)
		}
	}
}
