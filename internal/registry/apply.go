package registry

import (
	"time"

	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

// DeviceStatusUpdate carries the fields of a decoded DEVICE_STATUS frame
// that the registry cares about, plus a core-image mask supplied by the
// caller — the wire format itself doesn't carry one; it comes from a
// higher-level manifest describing which cores an image targets.
type DeviceStatusUpdate struct {
	DeviceType    uint8
	Variant       uint8
	Version       wire.BLVersion
	Status        wire.DeviceStatusBits
	CoreImageMask uint32
}

// ApplyDeviceStatus folds one decoded DEVICE_STATUS report into list,
// keyed by the physical address the frame arrived from (link.Source.ID
// on Ethernet/CAN transports, or the configured peer ID on a
// point-to-point UART). This is the only way records enter a List: the
// registry is populated purely from unsolicited status traffic.
func (l *List) ApplyDeviceStatus(addr string, u DeviceStatusUpdate, seenAt time.Time) Record {
	return l.AddOrUpdate(u.DeviceType, u.Variant, addr, u.Version, u.Status, u.CoreImageMask, seenAt)
}

// FromReport builds a DeviceStatusUpdate from a decoded wire report.
func FromReport(r wire.DeviceStatusReport, coreMask uint32) DeviceStatusUpdate {
	return DeviceStatusUpdate{
		DeviceType:    r.DeviceType,
		Variant:       r.Variant,
		Version:       r.Version,
		Status:        r.Status,
		CoreImageMask: coreMask,
	}
}
