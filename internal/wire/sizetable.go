package wire

// sizeTable holds, for every (command, msgType) pair, the maximum
// permitted frame length in bytes including the 1-byte header. A zero
// entry means the variant is forbidden: a frame arriving against a
// zero entry is reported as MsgTooLong, not treated as zero-length-OK.
//
// RcvData and SendData use MTU rather than a fixed constant; their entry
// here is a sentinel (mtuSentinel) that callers must special-case via
// MaxLenFor.
const mtuSentinel = 0xFFFF

type variantLimits [5]uint16

var sizeTable = map[Command]variantLimits{
	NegotiateMTU:  {3, 3, 1, 1, 0},
	BeginRcv:      {8, 0, 1, 1, 0},
	AbortXfer:     {1, 0, 1, 1, 0},
	RcvComplete:   {4, 0, 1, 1, 0},
	RcvData:       {mtuSentinel, 0, 1, 1, 0},
	Reboot:        {3, 0, 1, 1, 0},
	DeviceStatus:  {1, 8, 1, 1, 8},
	KeepAlive:     {0, 0, 0, 0, 1},
	BeginSession:  {1, 5, 1, 1, 0},
	EndSession:    {1, 0, 1, 1, 0},
	ImageStatus:   {5, 4, 1, 1, 0},
	BeginSend:     {2, 8, 1, 1, 0},
	SendData:      {2, mtuSentinel, 1, 1, 0},
	InstallImage:  {1, 1, 1, 1, 0},
}

// VariantKnown reports whether cmd/msgType names a row in the size
// table at all, independent of whether that row's entry is 0
// (forbidden). A false result means msgType itself is out of range for
// cmd, not merely that the variant is disallowed.
func VariantKnown(cmd Command, msgType MsgType) bool {
	limits, known := sizeTable[cmd]
	if !known {
		return false
	}
	return int(msgType) < len(limits)
}

// MaxLenFor returns the maximum permitted frame length (including header)
// for cmd/msgType given the engine's current MTU, and whether the variant
// is permitted at all. ok is false both when msgType is out of range
// (see VariantKnown) and when the table entry is 0 (forbidden) — callers
// that need to tell those two cases apart should check VariantKnown
// first.
func MaxLenFor(cmd Command, msgType MsgType, mtu uint16) (max uint16, ok bool) {
	limits, known := sizeTable[cmd]
	if !known {
		return 0, false
	}
	if int(msgType) >= len(limits) {
		return 0, false
	}
	entry := limits[msgType]
	if entry == 0 {
		return 0, false
	}
	if entry == mtuSentinel {
		return mtu, true
	}
	return entry, true
}

// put24 writes the low 24 bits of v into buf[0:3], little-endian.
func put24(buf []byte, v uint32) {
	buf[0] = byte(v)
	buf[1] = byte(v >> 8)
	buf[2] = byte(v >> 16)
}

// get24 reads 3 little-endian bytes into the low 24 bits of a uint32.
func get24(buf []byte) uint32 {
	return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16
}
