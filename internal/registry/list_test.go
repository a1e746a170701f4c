package registry

import (
	"testing"
	"time"

	"github.com/blang/semver/v4"

	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

func TestList_AddOrUpdate_OverwritesOnMatchingAddress(t *testing.T) {
	l := newList(4)
	t0 := time.Unix(1000, 0)
	l.AddOrUpdate(1, 2, "AA:BB:CC", wire.BLVersion{Major: 1, Minor: 0, Rev: 0}, 0, 0, t0)

	t1 := t0.Add(time.Minute)
	rec := l.AddOrUpdate(1, 2, "AA:BB:CC", wire.BLVersion{Major: 1, Minor: 2, Rev: 0}, 0x02, 0xFF, t1)

	if l.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 (overwrite, not append)", l.Len())
	}
	if rec.BLVersion.Minor != 2 || !rec.LastSeen.Equal(t1) {
		t.Fatalf("got %+v, want Minor=2 LastSeen=%v", rec, t1)
	}

	got, ok := l.FindByMAC("AA:BB:CC")
	if !ok || got.CoreImageMask != 0xFF {
		t.Fatalf("FindByMAC = %+v, %v", got, ok)
	}
}

func TestList_FindByType(t *testing.T) {
	l := newList(8)
	now := time.Unix(0, 0)
	l.AddOrUpdate(1, 2, "AA", wire.BLVersion{}, 0, 0, now)
	l.AddOrUpdate(1, 2, "BB", wire.BLVersion{}, 0, 0, now)
	l.AddOrUpdate(3, 4, "CC", wire.BLVersion{}, 0, 0, now)

	got := l.FindByType(1, 2)
	if len(got) != 2 {
		t.Fatalf("FindByType(1,2) = %d records, want 2", len(got))
	}

	if got := l.FindByType(9, 9); got != nil {
		t.Fatalf("FindByType(9,9) = %v, want nil", got)
	}
}

func TestList_EvictionRemovesFromTypeIndex(t *testing.T) {
	l := newList(2)
	now := time.Unix(0, 0)
	l.AddOrUpdate(1, 1, "AA", wire.BLVersion{}, 0, 0, now)
	l.AddOrUpdate(1, 1, "BB", wire.BLVersion{}, 0, 0, now)
	// Capacity is 2; a third distinct key evicts the LRU entry (AA).
	l.AddOrUpdate(1, 1, "CC", wire.BLVersion{}, 0, 0, now)

	got := l.FindByType(1, 1)
	if len(got) != 2 {
		t.Fatalf("FindByType(1,1) after eviction = %d records, want 2", len(got))
	}
	if _, ok := l.FindByMAC("AA"); ok {
		t.Fatal("AA should have been evicted")
	}
}

func TestList_ApplyDeviceStatus(t *testing.T) {
	l := newList(4)
	report := wire.DeviceStatusReport{
		Version:    wire.BLVersion{Major: 2, Minor: 1, Rev: 0},
		Status:     0x04,
		DeviceType: 5,
		Variant:    1,
		UptimeMins: 42,
	}
	seenAt := time.Unix(500, 0)
	rec := l.ApplyDeviceStatus("11:22:33", FromReport(report, 0b0011), seenAt)

	if rec.DeviceType != 5 || rec.Variant != 1 || rec.CoreImageMask != 0b0011 {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if rec.NeedsUpdate(semver.Version{Major: 2, Minor: 2, Patch: 0}) == false {
		t.Fatal("expected 2.1.0 to need update to 2.2.0")
	}
	if rec.NeedsUpdate(semver.Version{Major: 2, Minor: 0, Patch: 0}) {
		t.Fatal("did not expect 2.1.0 to need downgrade to 2.0.0")
	}
}
