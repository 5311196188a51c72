package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// Registry keeps one Controller per browser session. Sessions idle for
// longer than the TTL are dropped.
type Registry struct {
	cache *cache.Cache
	opts  Options
}

// NewRegistry creates a registry whose sessions expire after ttl of
// inactivity. A ttl <= 0 keeps sessions forever.
func NewRegistry(ttl time.Duration, opts Options) *Registry {
	if ttl <= 0 {
		return &Registry{cache: cache.New(cache.NoExpiration, 0), opts: opts}
	}
	return &Registry{cache: cache.New(ttl, ttl/3), opts: opts}
}

// Create starts a new session and returns its id.
func (r *Registry) Create() (string, *Controller) {
	id := uuid.NewString()
	c := NewController(r.opts)
	r.cache.SetDefault(id, c)
	return id, c
}

// Get returns the session with the given id and extends its lifetime.
func (r *Registry) Get(id string) (*Controller, bool) {
	v, found := r.cache.Get(id)
	if !found {
		return nil, false
	}
	c, ok := v.(*Controller)
	if !ok {
		return nil, false
	}
	r.cache.SetDefault(id, c)
	return c, true
}

// Delete ends a session.
func (r *Registry) Delete(id string) {
	r.cache.Delete(id)
}

// Len returns the number of live sessions, including expired ones not yet
// swept.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}
