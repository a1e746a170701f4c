package wire

// BLVersion is a bootloader major.minor.rev triplet as carried in
// DEVICE_STATUS.
type BLVersion struct {
	Major, Minor, Rev uint8
}

// DeviceStatusBits is the status byte; bit 0 is reserved/unused (mask
// 0xFE covers the defined bits).
type DeviceStatusBits uint8

const DeviceStatusDefinedMask DeviceStatusBits = 0xFE

// DeviceStatusReport is the decoded DEVICE_STATUS payload.
type DeviceStatusReport struct {
	Version    BLVersion
	Status     DeviceStatusBits
	DeviceType uint8 // bits 7..3 of the type/variant byte
	Variant    uint8 // bits 2..0 of the type/variant byte
	UptimeMins uint16
}

// BuildDeviceStatus writes the 8-byte DEVICE_STATUS frame (used for
// both the RESPONSE and UNSOLICITED variants — same 7-byte body after
// the header).
func BuildDeviceStatus(buf []byte, toggle uint8, msgType MsgType, r DeviceStatusReport) (int, error) {
	const n = 8
	if len(buf) < n {
		return 0, malformed("buffer too small for DEVICE_STATUS (%d < %d)", len(buf), n)
	}
	buf[0] = PackHeader(DeviceStatus, toggle, msgType)
	buf[1] = r.Version.Major
	buf[2] = r.Version.Minor
	buf[3] = r.Version.Rev
	buf[4] = byte(r.Status) & byte(DeviceStatusDefinedMask)
	buf[5] = (r.DeviceType << 3) | (r.Variant & 0x07)
	buf[6] = byte(r.UptimeMins)
	buf[7] = byte(r.UptimeMins >> 8)
	return n, nil
}

// DecodeDeviceStatus reverses BuildDeviceStatus.
func DecodeDeviceStatus(data []byte) (DeviceStatusReport, error) {
	if len(data) < 8 {
		return DeviceStatusReport{}, malformed("DEVICE_STATUS frame too short (%d < 8)", len(data))
	}
	typeVariant := data[5]
	return DeviceStatusReport{
		Version: BLVersion{
			Major: data[1],
			Minor: data[2],
			Rev:   data[3],
		},
		Status:     DeviceStatusBits(data[4]) & DeviceStatusDefinedMask,
		DeviceType: typeVariant >> 3,
		Variant:    typeVariant & 0x07,
		UptimeMins: uint16(data[6]) | uint16(data[7])<<8,
	}, nil
}

// BuildDeviceStatusQuery writes the header-only DEVICE_STATUS query.
func BuildDeviceStatusQuery(buf []byte, toggle uint8) (int, error) {
	if len(buf) < 1 {
		return 0, malformed("buffer too small for DEVICE_STATUS query")
	}
	buf[0] = PackHeader(DeviceStatus, toggle, MsgCommand)
	return 1, nil
}

// BuildKeepAlive writes the header-only unsolicited liveness frame.
func BuildKeepAlive(buf []byte, toggle uint8) (int, error) {
	if len(buf) < 1 {
		return 0, malformed("buffer too small for KEEP_ALIVE")
	}
	buf[0] = PackHeader(KeepAlive, toggle, MsgUnsolicited)
	return 1, nil
}
