package registry

import (
	"fmt"

	"github.com/tdw-glyd/dfu-proto/internal/config"
	"github.com/tdw-glyd/dfu-proto/internal/logging"
)

var registryLog = logging.For("registry")

// Registry is the process-wide device-discovery collaborator: one
// fixed-size Pool of Lists, plus logging around scan results.
type Registry struct {
	pool *Pool
}

// New builds a Registry sized per cfg.
func New(cfg config.Config) *Registry {
	return &Registry{pool: NewPool(cfg)}
}

// Reserve claims one list from the pool for a caller (typically one per
// link/transport the host is scanning on).
func (r *Registry) Reserve() (Handle, *List, bool) {
	h, l, ok := r.pool.Reserve()
	if !ok {
		registryLog.Warn("registry pool exhausted")
		return Handle{}, nil, false
	}
	registryLog.WithField("in_use", r.pool.InUse()).Debug("reserved device list")
	return h, l, true
}

// Release returns a list to the pool.
func (r *Registry) Release(h Handle) error {
	if err := r.pool.Release(h); err != nil {
		return fmt.Errorf("registry: %w", err)
	}
	registryLog.WithField("in_use", r.pool.InUse()).Debug("released device list")
	return nil
}

// Get resolves a handle to its list.
func (r *Registry) Get(h Handle) (*List, bool) { return r.pool.Get(h) }
