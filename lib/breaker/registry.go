package breaker

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// Registry holds one breaker per remote destination (keyed by host or
// endpoint), created lazily on first use and kept for process lifetime.
type Registry struct {
	cfg      Config
	breakers *xsync.MapOf[string, *Breaker]
}

// NewRegistry creates an empty registry; every breaker it creates shares
// the given config.
func NewRegistry(cfg Config) *Registry {
	return &Registry{
		cfg:      cfg,
		breakers: xsync.NewMapOf[string, *Breaker](),
	}
}

// Get returns the breaker for destination, creating it on first use.
func (r *Registry) Get(destination string) *Breaker {
	b, _ := r.breakers.LoadOrCompute(destination, func() *Breaker {
		return New(destination, r.cfg)
	})
	return b
}

// Snapshot reports the status of every known breaker.
func (r *Registry) Snapshot() []Status {
	var out []Status
	r.breakers.Range(func(_ string, b *Breaker) bool {
		out = append(out, b.Snapshot())
		return true
	})
	return out
}
