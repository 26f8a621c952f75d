package state

import (
	"sync"

	"github.com/rpggio/libflow/internal/domain/session"
)

// Registry owns the containers of all live sessions, keyed by session ID.
type Registry struct {
	opts Options

	mu         sync.RWMutex
	containers map[string]*Container
}

// NewRegistry creates an empty registry. opts is used for every container.
func NewRegistry(opts Options) *Registry {
	return &Registry{
		opts:       opts.withDefaults(),
		containers: make(map[string]*Container),
	}
}

// Attach returns the container for sess, creating and mounting it on first
// sight.
func (r *Registry) Attach(sess *session.Session) *Container {
	r.mu.RLock()
	c, ok := r.containers[sess.ID]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	if c, ok = r.containers[sess.ID]; ok {
		r.mu.Unlock()
		return c
	}
	c = New(sess, r.opts)
	r.containers[sess.ID] = c
	n := len(r.containers)
	r.mu.Unlock()

	r.opts.Metrics.setContainers(n)
	c.Mount()
	return c
}

// Get returns the container for a session ID.
func (r *Registry) Get(id string) (*Container, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.containers[id]
	return c, ok
}

// Drop forgets the containers of the given sessions.
func (r *Registry) Drop(ids ...string) {
	r.mu.Lock()
	for _, id := range ids {
		delete(r.containers, id)
	}
	n := len(r.containers)
	r.mu.Unlock()
	r.opts.Metrics.setContainers(n)
}

// Len returns the number of live containers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.containers)
}
