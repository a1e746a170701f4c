package wire

// BuildAck writes a 1-byte ACK frame for cmd.
func BuildAck(buf []byte, cmd Command, toggle uint8) (int, error) {
	if len(buf) < 1 {
		return 0, malformed("buffer too small for ACK")
	}
	buf[0] = PackHeader(cmd, toggle, MsgAck)
	return 1, nil
}

// BuildNak writes a 1-byte NAK frame for cmd.
func BuildNak(buf []byte, cmd Command, toggle uint8) (int, error) {
	if len(buf) < 1 {
		return 0, malformed("buffer too small for NAK")
	}
	buf[0] = PackHeader(cmd, toggle, MsgNak)
	return 1, nil
}

var commandNames = map[Command]string{
	NegotiateMTU:  "NEGOTIATE_MTU",
	BeginRcv:      "BEGIN_RCV",
	AbortXfer:     "ABORT_XFER",
	RcvComplete:   "RCV_COMPLETE",
	RcvData:       "RCV_DATA",
	Reboot:        "REBOOT",
	DeviceStatus:  "DEVICE_STATUS",
	KeepAlive:     "KEEP_ALIVE",
	BeginSession:  "BEGIN_SESSION",
	EndSession:    "END_SESSION",
	ImageStatus:   "IMAGE_STATUS",
	BeginSend:     "BEGIN_SEND",
	SendData:      "SEND_DATA",
	InstallImage:  "INSTALL_IMAGE",
}

// String renders a command's mnemonic name, or "CMD(n)" for an unknown
// (including the illegal 0 and reserved 15) value.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "CMD(" + itoa(uint8(c)) + ")"
}

func itoa(v uint8) string {
	if v == 0 {
		return "0"
	}
	var buf [3]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// String renders a message type's mnemonic name.
func (t MsgType) String() string {
	switch t {
	case MsgCommand:
		return "COMMAND"
	case MsgResponse:
		return "RESPONSE"
	case MsgAck:
		return "ACK"
	case MsgNak:
		return "NAK"
	case MsgUnsolicited:
		return "UNSOLICITED"
	default:
		return "MSGTYPE(" + itoa(uint8(t)) + ")"
	}
}
