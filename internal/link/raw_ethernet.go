//go:build linux

package link

import (
	"context"
	"encoding/binary"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// BroadcastMAC is FF:FF:FF:FF:FF:FF.
var BroadcastMAC = net.HardwareAddr{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// minEthernetFrame is the minimum padded frame length.
const minEthernetFrame = 60

// RawEthernet adapter speaks a raw link envelope: dst MAC(6) | src
// MAC(6) | big-endian length(2) | frame, padded to 60 bytes. It opens
// an AF_PACKET SOCK_RAW socket bound to ifaceName.
type RawEthernet struct {
	fd       int
	ifIndex  int
	localMAC net.HardwareAddr
	peerMAC  net.HardwareAddr
	onErr    func(frame []byte, kind ErrorKind)
}

// OpenRawEthernet binds a raw socket to ifaceName. peerFilter, if
// non-nil, causes Recv to drop frames whose source MAC does not match,
// reporting each one as ErrKindFiltered through OnError; frames sent to
// the broadcast MAC are accepted from any source. The adapter is
// responsible for its own address filtering.
func OpenRawEthernet(ifaceName string, peerFilter net.HardwareAddr) (*RawEthernet, error) {
	iface, err := net.InterfaceByName(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("link: resolving interface %s: %w", ifaceName, err)
	}

	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("link: opening raw socket: %w", err)
	}

	addr := unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  iface.Index,
	}
	if err := unix.Bind(fd, &addr); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("link: binding raw socket to %s: %w", ifaceName, err)
	}

	return &RawEthernet{
		fd:       fd,
		ifIndex:  iface.Index,
		localMAC: iface.HardwareAddr,
		peerMAC:  peerFilter,
	}, nil
}

func htons(v int) uint16 {
	return uint16(v<<8) | uint16(v>>8)
}

// Close closes the underlying socket.
func (r *RawEthernet) Close() error {
	return unix.Close(r.fd)
}

func (r *RawEthernet) Recv(ctx context.Context) ([]byte, Source, bool) {
	buf := make([]byte, 2048)
	n, _, err := unix.Recvfrom(r.fd, buf, unix.MSG_DONTWAIT)
	if err != nil {
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK {
			r.reportError(nil, ErrKindIO)
		}
		return nil, Source{}, false
	}
	if n < 14 {
		return nil, Source{}, false
	}
	dst := net.HardwareAddr(buf[0:6])
	src := net.HardwareAddr(buf[6:12])
	length := binary.BigEndian.Uint16(buf[12:14])
	if int(length) > n-14 {
		r.reportError(buf[:n], ErrKindOversize)
		return nil, Source{}, false
	}

	isBroadcast := dst.String() == BroadcastMAC.String()
	if !isBroadcast && r.peerMAC != nil && src.String() != r.peerMAC.String() {
		r.reportError(nil, ErrKindFiltered)
		return nil, Source{}, false
	}

	frame := make([]byte, length)
	copy(frame, buf[14:14+length])
	return frame, Source{ID: src.String()}, true
}

func (r *RawEthernet) Send(ctx context.Context, frame []byte, target Target) error {
	dst := r.peerMAC
	if target == TargetAny || dst == nil {
		dst = BroadcastMAC
	}

	total := 14 + len(frame)
	if total < minEthernetFrame {
		total = minEthernetFrame
	}
	out := make([]byte, total)
	copy(out[0:6], dst)
	copy(out[6:12], r.localMAC)
	binary.BigEndian.PutUint16(out[12:14], uint16(len(frame)))
	copy(out[14:], frame)

	addr := unix.SockaddrLinklayer{Ifindex: r.ifIndex, Halen: 6}
	copy(addr.Addr[:6], dst)
	if err := unix.Sendto(r.fd, out, 0, &addr); err != nil {
		r.reportError(frame, ErrKindIO)
		return fmt.Errorf("link: sendto on raw socket: %w", err)
	}
	return nil
}

func (r *RawEthernet) OnError(fn func(frame []byte, kind ErrorKind)) {
	r.onErr = fn
}

func (r *RawEthernet) reportError(frame []byte, kind ErrorKind) {
	if r.onErr != nil {
		r.onErr(frame, kind)
	}
}
