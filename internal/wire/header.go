// Package wire implements the DFU frame codec: header pack/unpack and
// per-command builders/decoders. Every function here is pure — no link,
// no engine state, no allocation beyond what the caller's buffer or
// return value requires — so it can be fuzzed and unit tested in
// isolation.
package wire

import "fmt"

// Command identifies one of the 14 DFU commands. Zero is illegal and 15
// is reserved/terminator.
type Command uint8

const (
	_ Command = iota // 0 is illegal
	NegotiateMTU
	BeginRcv
	AbortXfer
	RcvComplete
	RcvData
	Reboot
	DeviceStatus
	KeepAlive
	BeginSession
	EndSession
	ImageStatus
	BeginSend
	SendData
	InstallImage
	// LastCommand is the first id >= all legal commands; the dispatch
	// table is indexed 0..LastCommand inclusive, total function.
	LastCommand
)

// MsgType is the 3-bit message-type field.
type MsgType uint8

const (
	MsgCommand MsgType = iota
	MsgResponse
	MsgAck
	MsgNak
	MsgUnsolicited
)

// Header bit masks.
const (
	CommandMask = 0xF0
	ToggleMask  = 0x08
	MsgTypeMask = 0x07

	commandShift = 4
	toggleShift  = 3
)

// PackHeader builds the single header byte for cmd/toggle/msgType.
// toggle is 0 or 1; only bit 0 is consulted.
func PackHeader(cmd Command, toggle uint8, msgType MsgType) byte {
	return byte(cmd)<<commandShift | (toggle&1)<<toggleShift | byte(msgType)&MsgTypeMask
}

// ParseHeader splits a header byte back into its three fields.
//
// MsgType is masked with 0x07 while only types 0..4 are defined. Types
// 5..7 are not rejected here; that leniency is intentional and
// documented by TestParseHeader_UnusedMsgTypesNotRejected in
// header_test.go.
func ParseHeader(b byte) (cmd Command, toggle uint8, msgType MsgType) {
	cmd = Command(b&CommandMask) >> commandShift
	toggle = (b & ToggleMask) >> toggleShift
	msgType = MsgType(b & MsgTypeMask)
	return
}

// ErrMalformed is returned (wrapped) by decoders on any length or range
// violation in the payload they were given.
var ErrMalformed = fmt.Errorf("wire: malformed frame")

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+fmt.Sprintf(format, args...), ErrMalformed)
}
