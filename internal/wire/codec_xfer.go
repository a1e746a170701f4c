package wire

// BeginRcvParams is the decoded payload of a BEGIN_RCV frame.
type BeginRcvParams struct {
	ImageIndex uint8
	Encrypted  bool
	Size       uint32 // low 24 bits significant
	Addr       uint32 // low 24 bits significant
}

// BuildBeginRcv packs image_index<<1|encrypted, then 24-bit size, then
// 24-bit destination address.
func BuildBeginRcv(buf []byte, toggle uint8, p BeginRcvParams) (int, error) {
	const n = 8
	if len(buf) < n {
		return 0, malformed("buffer too small for BEGIN_RCV (%d < %d)", len(buf), n)
	}
	if p.ImageIndex > 127 {
		return 0, malformed("image index %d out of range", p.ImageIndex)
	}
	buf[0] = PackHeader(BeginRcv, toggle, MsgCommand)
	b := p.ImageIndex << 1
	if p.Encrypted {
		b |= 1
	}
	buf[1] = b
	put24(buf[2:5], p.Size)
	put24(buf[5:8], p.Addr)
	return n, nil
}

// DecodeBeginRcv reverses BuildBeginRcv.
func DecodeBeginRcv(data []byte) (BeginRcvParams, error) {
	if len(data) < 8 {
		return BeginRcvParams{}, malformed("BEGIN_RCV frame too short (%d < 8)", len(data))
	}
	b := data[1]
	return BeginRcvParams{
		ImageIndex: b >> 1,
		Encrypted:  b&1 != 0,
		Size:       get24(data[2:5]),
		Addr:       get24(data[5:8]),
	}, nil
}

// BuildAbortXfer writes the header-only ABORT_XFER request.
func BuildAbortXfer(buf []byte, toggle uint8) (int, error) {
	if len(buf) < 1 {
		return 0, malformed("buffer too small for ABORT_XFER")
	}
	buf[0] = PackHeader(AbortXfer, toggle, MsgCommand)
	return 1, nil
}

// BuildRcvData writes an RCV_DATA frame. dataLen must not exceed
// mtu-1 (the header consumes one byte); the builder rejects a
// dataLen that would overflow the caller's buffer too.
func BuildRcvData(buf []byte, toggle uint8, mtu uint16, data []byte) (int, error) {
	if len(data) > int(mtu)-1 {
		return 0, malformed("RCV_DATA payload %d exceeds MTU-1 (%d)", len(data), mtu-1)
	}
	n := 1 + len(data)
	if len(buf) < n {
		return 0, malformed("buffer too small for RCV_DATA (%d < %d)", len(buf), n)
	}
	buf[0] = PackHeader(RcvData, toggle, MsgCommand)
	copy(buf[1:n], data)
	return n, nil
}

// DecodeRcvData returns the raw payload bytes (a view into data, not a
// copy — callers that retain it across the next Recv must copy).
func DecodeRcvData(data []byte) ([]byte, error) {
	if len(data) < 1 {
		return nil, malformed("RCV_DATA frame too short (%d < 1)", len(data))
	}
	return data[1:], nil
}

// BuildRcvComplete writes the 24-bit total-bytes-transferred payload.
func BuildRcvComplete(buf []byte, toggle uint8, total uint32) (int, error) {
	const n = 4
	if len(buf) < n {
		return 0, malformed("buffer too small for RCV_COMPLETE (%d < %d)", len(buf), n)
	}
	buf[0] = PackHeader(RcvComplete, toggle, MsgCommand)
	put24(buf[1:4], total)
	return n, nil
}

// DecodeRcvComplete reverses BuildRcvComplete.
func DecodeRcvComplete(data []byte) (total uint32, err error) {
	if len(data) < 4 {
		return 0, malformed("RCV_COMPLETE frame too short (%d < 4)", len(data))
	}
	return get24(data[1:4]), nil
}

// BuildInstallImage writes the header-only INSTALL_IMAGE request. The
// image index is NOT carried on the wire (INSTALL_IMAGE is a 1-byte,
// header-only COMMAND variant): the target commits whatever image it
// most recently finished receiving, per the at-most-one-in-flight-
// transfer discipline. transaction.Client.InstallImage takes no index
// either, so nothing on the host side checks which image is committed.
func BuildInstallImage(buf []byte, toggle uint8) (int, error) {
	if len(buf) < 1 {
		return 0, malformed("buffer too small for INSTALL_IMAGE")
	}
	buf[0] = PackHeader(InstallImage, toggle, MsgCommand)
	return 1, nil
}

// BuildReboot writes the 2-byte millisecond delay payload.
func BuildReboot(buf []byte, toggle uint8, delayMs uint16) (int, error) {
	const n = 3
	if len(buf) < n {
		return 0, malformed("buffer too small for REBOOT (%d < %d)", len(buf), n)
	}
	buf[0] = PackHeader(Reboot, toggle, MsgCommand)
	buf[1] = byte(delayMs)
	buf[2] = byte(delayMs >> 8)
	return n, nil
}

// DecodeReboot reverses BuildReboot.
func DecodeReboot(data []byte) (delayMs uint16, err error) {
	if len(data) < 3 {
		return 0, malformed("REBOOT frame too short (%d < 3)", len(data))
	}
	return uint16(data[1]) | uint16(data[2])<<8, nil
}

// ImageStatusQuery is the COMMAND-side payload of IMAGE_STATUS.
type ImageStatusQuery struct {
	ImageIndex uint8
}

// BuildImageStatusQuery writes a 4-byte query payload: the image index
// followed by 3 reserved/padding bytes (the table allots 4 payload bytes
// to this variant; only the index is currently defined).
func BuildImageStatusQuery(buf []byte, toggle uint8, q ImageStatusQuery) (int, error) {
	const n = 5
	if len(buf) < n {
		return 0, malformed("buffer too small for IMAGE_STATUS query (%d < %d)", len(buf), n)
	}
	buf[0] = PackHeader(ImageStatus, toggle, MsgCommand)
	buf[1] = q.ImageIndex
	buf[2], buf[3], buf[4] = 0, 0, 0
	return n, nil
}

// ImageStatusReport is the RESPONSE-side payload of IMAGE_STATUS.
type ImageStatusReport struct {
	Status uint8
	Size   uint16
}

// BuildImageStatusReport writes the 3-byte report payload.
func BuildImageStatusReport(buf []byte, toggle uint8, r ImageStatusReport) (int, error) {
	const n = 4
	if len(buf) < n {
		return 0, malformed("buffer too small for IMAGE_STATUS report (%d < %d)", len(buf), n)
	}
	buf[0] = PackHeader(ImageStatus, toggle, MsgResponse)
	buf[1] = r.Status
	buf[2] = byte(r.Size)
	buf[3] = byte(r.Size >> 8)
	return n, nil
}

// DecodeImageStatusReport reverses BuildImageStatusReport.
func DecodeImageStatusReport(data []byte) (ImageStatusReport, error) {
	if len(data) < 4 {
		return ImageStatusReport{}, malformed("IMAGE_STATUS report too short (%d < 4)", len(data))
	}
	return ImageStatusReport{
		Status: data[1],
		Size:   uint16(data[2]) | uint16(data[3])<<8,
	}, nil
}

// BuildBeginSend writes the 1-byte image-index COMMAND payload for
// BEGIN_SEND (the target announcing it wants to push an image).
func BuildBeginSend(buf []byte, toggle uint8, imageIndex uint8) (int, error) {
	const n = 2
	if len(buf) < n {
		return 0, malformed("buffer too small for BEGIN_SEND (%d < %d)", len(buf), n)
	}
	buf[0] = PackHeader(BeginSend, toggle, MsgCommand)
	buf[1] = imageIndex
	return n, nil
}

// DecodeBeginSend reverses BuildBeginSend.
func DecodeBeginSend(data []byte) (imageIndex uint8, err error) {
	if len(data) < 2 {
		return 0, malformed("BEGIN_SEND frame too short (%d < 2)", len(data))
	}
	return data[1], nil
}

// BuildBeginSendResponse writes the peer's acceptance: size, addr,
// encrypted flag — the reverse-direction mirror of BEGIN_RCV's payload.
func BuildBeginSendResponse(buf []byte, toggle uint8, p BeginRcvParams) (int, error) {
	const n = 8
	if len(buf) < n {
		return 0, malformed("buffer too small for BEGIN_SEND response (%d < %d)", len(buf), n)
	}
	buf[0] = PackHeader(BeginSend, toggle, MsgResponse)
	put24(buf[1:4], p.Size)
	put24(buf[4:7], p.Addr)
	if p.Encrypted {
		buf[7] = 1
	} else {
		buf[7] = 0
	}
	return n, nil
}

// DecodeBeginSendResponse reverses BuildBeginSendResponse.
func DecodeBeginSendResponse(data []byte) (BeginRcvParams, error) {
	if len(data) < 8 {
		return BeginRcvParams{}, malformed("BEGIN_SEND response too short (%d < 8)", len(data))
	}
	return BeginRcvParams{
		Size:      get24(data[1:4]),
		Addr:      get24(data[4:7]),
		Encrypted: data[7] != 0,
	}, nil
}

// BuildSendDataRequest writes the 1-byte COMMAND cue requesting the next
// reverse-direction chunk.
func BuildSendDataRequest(buf []byte, toggle uint8, sequence uint8) (int, error) {
	const n = 2
	if len(buf) < n {
		return 0, malformed("buffer too small for SEND_DATA request (%d < %d)", len(buf), n)
	}
	buf[0] = PackHeader(SendData, toggle, MsgCommand)
	buf[1] = sequence
	return n, nil
}

// BuildSendDataResponse writes the reverse-direction data chunk itself,
// mirroring RCV_DATA but carried in a RESPONSE message.
func BuildSendDataResponse(buf []byte, toggle uint8, mtu uint16, data []byte) (int, error) {
	if len(data) > int(mtu)-1 {
		return 0, malformed("SEND_DATA payload %d exceeds MTU-1 (%d)", len(data), mtu-1)
	}
	n := 1 + len(data)
	if len(buf) < n {
		return 0, malformed("buffer too small for SEND_DATA response (%d < %d)", len(buf), n)
	}
	buf[0] = PackHeader(SendData, toggle, MsgResponse)
	copy(buf[1:n], data)
	return n, nil
}

// DecodeSendDataResponse returns the raw chunk bytes (a view, not a copy).
func DecodeSendDataResponse(data []byte) ([]byte, error) {
	if len(data) < 1 {
		return nil, malformed("SEND_DATA response too short (%d < 1)", len(data))
	}
	return data[1:], nil
}
