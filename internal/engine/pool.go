package engine

import (
	"fmt"
	"sync"

	"github.com/tdw-glyd/dfu-proto/internal/metrics"
)

// Handle is a generation-counted reference to a pool slot. A stale
// Handle from a destroyed instance can never alias a freshly reserved
// one: Get compares both the index and the generation stamped at
// Reserve time.
type Handle struct {
	index int
	gen   uint64
}

// Valid reports whether h refers to any slot at all (the zero Handle is
// always invalid).
func (h Handle) Valid() bool { return h.gen != 0 }

type slot struct {
	inst *Instance
	gen  uint64
	used bool
}

// Pool is a fixed-size instance pool — at most cfg.MaxProtocolInstances
// live instances at once, handed out and reclaimed via generation-
// counted Handles.
type Pool struct {
	mu    sync.Mutex
	slots []slot
}

// NewPool allocates a pool with the given fixed capacity.
func NewPool(capacity int) *Pool {
	return &Pool{slots: make([]slot, capacity)}
}

// Reserve finds a free slot, constructs an Instance in it, and returns a
// Handle good until the matching Destroy. It returns ok=false if the
// pool is exhausted.
func (p *Pool) Reserve(cfg Config, cb Callbacks) (Handle, *Instance, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		if p.slots[i].used {
			continue
		}
		p.slots[i].gen++
		p.slots[i].used = true
		inst := newInstance(cfg, cb, realClock{})
		p.slots[i].inst = inst
		metrics.InstancesInUse.Set(float64(p.inUseLocked()))
		return Handle{index: i, gen: p.slots[i].gen}, inst, true
	}
	return Handle{}, nil, false
}

// Get resolves h to its Instance, failing if h is stale or out of range.
func (p *Pool) Get(h Handle) (*Instance, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.index < 0 || h.index >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[h.index]
	if !s.used || s.gen != h.gen {
		return nil, false
	}
	return s.inst, true
}

// Destroy releases the slot referenced by h. Any Handle copies become
// invalid immediately since the slot's generation has already been
// bumped the next time Reserve reuses it.
func (p *Pool) Destroy(h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.index < 0 || h.index >= len(p.slots) {
		return fmt.Errorf("engine: handle index %d out of range", h.index)
	}
	s := &p.slots[h.index]
	if !s.used || s.gen != h.gen {
		return fmt.Errorf("engine: stale handle")
	}
	s.used = false
	s.inst = nil
	metrics.InstancesInUse.Set(float64(p.inUseLocked()))
	return nil
}

// InUse reports the number of slots currently occupied.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inUseLocked()
}

func (p *Pool) inUseLocked() int {
	n := 0
	for _, s := range p.slots {
		if s.used {
			n++
		}
	}
	return n
}

// Capacity reports the fixed pool size.
func (p *Pool) Capacity() int {
	return len(p.slots)
}
