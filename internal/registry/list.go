package registry

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

// List is one bounded device list: an LRU-evicted cache keyed by
// physical address, with oldest-seen devices falling off once the list
// is full rather than overflow being a hard error. A secondary index
// keeps find_by(type,variant) off a full scan.
type List struct {
	mu    sync.Mutex
	cache *lru.Cache[string, Record]
	byKey map[typeVariantKey]map[string]struct{}
}

func newList(capacity int) *List {
	l := &List{byKey: make(map[typeVariantKey]map[string]struct{})}
	cache, err := lru.NewWithEvict[string, Record](capacity, l.onEvict)
	if err != nil {
		// capacity <= 0; lru.NewWithEvict only fails on a non-positive
		// size, which registry.NewPool never passes.
		panic(err)
	}
	l.cache = cache
	return l
}

func (l *List) onEvict(addr string, rec Record) {
	l.unindexLocked(rec)
}

func (l *List) unindexLocked(rec Record) {
	k := typeVariantKey{rec.DeviceType, rec.Variant}
	set := l.byKey[k]
	if set == nil {
		return
	}
	delete(set, rec.PhysicalAddr)
	if len(set) == 0 {
		delete(l.byKey, k)
	}
}

// AddOrUpdate upserts a record keyed on physical address: an existing
// entry's fields are overwritten and its timestamp advanced, matching
// DEVICE_STATUS upsert semantics.
func (l *List) AddOrUpdate(deviceType, variant uint8, addr string, version wire.BLVersion, status wire.DeviceStatusBits, coreMask uint32, seenAt time.Time) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	if old, ok := l.cache.Peek(addr); ok {
		l.unindexLocked(old)
	}

	rec := Record{
		PhysicalAddr:  addr,
		DeviceType:    deviceType,
		Variant:       variant,
		BLVersion:     blVersion(version),
		StatusBits:    status,
		CoreImageMask: coreMask,
		LastSeen:      seenAt,
	}
	l.cache.Add(addr, rec)

	k := typeVariantKey{deviceType, variant}
	set := l.byKey[k]
	if set == nil {
		set = make(map[string]struct{})
		l.byKey[k] = set
	}
	set[addr] = struct{}{}

	return rec
}

// FindByMAC looks a record up by its physical address.
func (l *List) FindByMAC(addr string) (Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Peek(addr)
}

// FindByType returns every record currently stored under (deviceType,
// variant), in no particular order.
func (l *List) FindByType(deviceType, variant uint8) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	set := l.byKey[typeVariantKey{deviceType, variant}]
	if len(set) == 0 {
		return nil
	}
	out := make([]Record, 0, len(set))
	for addr := range set {
		if rec, ok := l.cache.Peek(addr); ok {
			out = append(out, rec)
		}
	}
	return out
}

// All returns every record currently held, in no particular order.
func (l *List) All() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	keys := l.cache.Keys()
	out := make([]Record, 0, len(keys))
	for _, k := range keys {
		if rec, ok := l.cache.Peek(k); ok {
			out = append(out, rec)
		}
	}
	return out
}

// Len reports how many records are currently stored.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cache.Len()
}
