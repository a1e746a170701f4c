// Package registry implements the device discovery registry: a
// fixed-size pool of lists, each list a bounded set of device records
// populated from unsolicited DEVICE_STATUS broadcasts. The pool-of-lists
// shape mirrors internal/engine's instance pool (generation-counted
// handles over fixed slots).
package registry

import (
	"time"

	"github.com/blang/semver/v4"

	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

// Record is one discovered device.
type Record struct {
	PhysicalAddr  string
	DeviceType    uint8
	Variant       uint8
	BLVersion     semver.Version
	StatusBits    wire.DeviceStatusBits
	CoreImageMask uint32
	LastSeen      time.Time
}

// typeVariantKey is the secondary lookup key kept alongside the
// physical address.
type typeVariantKey struct {
	deviceType uint8
	variant    uint8
}

// blVersion converts the wire's major.minor.rev triplet to a semver
// Version, treating "rev" as semver's patch component — bootloader
// versions never carry prerelease/build metadata on the wire.
func blVersion(v wire.BLVersion) semver.Version {
	return semver.Version{Major: uint64(v.Major), Minor: uint64(v.Minor), Patch: uint64(v.Rev)}
}
