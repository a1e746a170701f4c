package registry

import (
	"fmt"
	"sync"

	"github.com/tdw-glyd/dfu-proto/internal/config"
)

// Handle is a generation-counted reference to a reserved List, the same
// stale-reference-proof scheme as internal/engine.Handle.
type Handle struct {
	index int
	gen   uint64
}

// Valid reports whether h refers to any slot at all.
func (h Handle) Valid() bool { return h.gen != 0 }

type poolSlot struct {
	list *List
	gen  uint64
	used bool
}

// Pool is a fixed-size pool of device lists. Capacity and per-list
// bounds come from cfg.MaxRegistryLists and cfg.MaxRecordsPerList.
type Pool struct {
	mu      sync.Mutex
	slots   []poolSlot
	listCap int
}

// NewPool allocates a pool sized per cfg.
func NewPool(cfg config.Config) *Pool {
	return &Pool{
		slots:   make([]poolSlot, cfg.MaxRegistryLists),
		listCap: cfg.MaxRecordsPerList,
	}
}

// Reserve claims a free list slot, returning ok=false if the pool is
// exhausted.
func (p *Pool) Reserve() (Handle, *List, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i := range p.slots {
		if p.slots[i].used {
			continue
		}
		p.slots[i].gen++
		p.slots[i].used = true
		l := newList(p.listCap)
		p.slots[i].list = l
		return Handle{index: i, gen: p.slots[i].gen}, l, true
	}
	return Handle{}, nil, false
}

// Get resolves h to its List, failing if h is stale or out of range.
func (p *Pool) Get(h Handle) (*List, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.index < 0 || h.index >= len(p.slots) {
		return nil, false
	}
	s := &p.slots[h.index]
	if !s.used || s.gen != h.gen {
		return nil, false
	}
	return s.list, true
}

// Release frees the list referenced by h. Records within a list are
// upserted, never deleted by the engine; callers release whole slots.
func (p *Pool) Release(h Handle) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h.index < 0 || h.index >= len(p.slots) {
		return fmt.Errorf("registry: handle index %d out of range", h.index)
	}
	s := &p.slots[h.index]
	if !s.used || s.gen != h.gen {
		return fmt.Errorf("registry: stale handle")
	}
	s.used = false
	s.list = nil
	return nil
}

// InUse reports the number of slots currently reserved.
func (p *Pool) InUse() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.slots {
		if s.used {
			n++
		}
	}
	return n
}

// Capacity reports the fixed number of list slots.
func (p *Pool) Capacity() int {
	return len(p.slots)
}
