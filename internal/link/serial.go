//go:build linux

package link

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// DefaultOpenTimeout bounds how long OpenSerial waits for the device
// node to become available.
const DefaultOpenTimeout = 5 * time.Second

// Serial is a UART link adapter: it opens a TTY character device,
// configures it for raw 8N1 at the requested baud via termios ioctls,
// and frames outbound writes / inbound reads with a 2-byte big-endian
// length prefix since a bare UART has no native addressing or framing.
type Serial struct {
	fd     int
	path   string
	peer   Source
	onErr  func(frame []byte, kind ErrorKind)
	rxBuf  []byte
}

// OpenSerial opens path and configures the line discipline for raw
// binary framing at baud bits/sec.
func OpenSerial(path string, baud uint32) (*Serial, error) {
	return OpenSerialWithTimeout(path, baud, DefaultOpenTimeout)
}

// OpenSerialWithTimeout is OpenSerial with an explicit open deadline; a
// locked-open device (another process holding it) times out instead of
// blocking forever.
func OpenSerialWithTimeout(path string, baud uint32, timeout time.Duration) (*Serial, error) {
	type result struct {
		fd  int
		err error
	}
	done := make(chan result, 1)
	go func() {
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY|unix.O_CLOEXEC, 0)
		done <- result{fd, err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("link: opening serial device %s: %w", path, r.err)
		}
		s := &Serial{fd: r.fd, path: path, peer: Source{ID: path}}
		if err := s.configure(baud); err != nil {
			unix.Close(r.fd)
			return nil, err
		}
		return s, nil
	case <-time.After(timeout):
		return nil, fmt.Errorf("link: opening serial device %s timed out after %v", path, timeout)
	}
}

func (s *Serial) configure(baud uint32) error {
	t, err := unix.IoctlGetTermios(s.fd, unix.TCGETS)
	if err != nil {
		return fmt.Errorf("link: TCGETS on %s: %w", s.path, err)
	}

	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB
	t.Cflag |= unix.CS8 | unix.CREAD | unix.CLOCAL
	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 0

	rate, ok := termiosBaudConstant(baud)
	if !ok {
		return fmt.Errorf("link: unsupported baud rate %d", baud)
	}
	t.Ispeed = rate
	t.Ospeed = rate

	if err := unix.IoctlSetTermios(s.fd, unix.TCSETS, t); err != nil {
		return fmt.Errorf("link: TCSETS on %s: %w", s.path, err)
	}
	return nil
}

func termiosBaudConstant(baud uint32) (uint32, bool) {
	switch baud {
	case 9600:
		return unix.B9600, true
	case 19200:
		return unix.B19200, true
	case 38400:
		return unix.B38400, true
	case 57600:
		return unix.B57600, true
	case 115200:
		return unix.B115200, true
	case 230400:
		return unix.B230400, true
	default:
		return 0, false
	}
}

// Close closes the underlying file descriptor.
func (s *Serial) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}

// Recv reads one length-prefixed frame if a complete one is buffered.
// It never blocks: a partial frame is held until the next call.
func (s *Serial) Recv(ctx context.Context) ([]byte, Source, bool) {
	tmp := make([]byte, 4096)
	n, err := unix.Read(s.fd, tmp)
	if err != nil && err != unix.EAGAIN {
		s.reportError(nil, ErrKindIO)
		return nil, Source{}, false
	}
	if n > 0 {
		s.rxBuf = append(s.rxBuf, tmp[:n]...)
	}

	if len(s.rxBuf) < 2 {
		return nil, Source{}, false
	}
	frameLen := int(binary.BigEndian.Uint16(s.rxBuf[:2]))
	if len(s.rxBuf) < 2+frameLen {
		return nil, Source{}, false
	}
	frame := make([]byte, frameLen)
	copy(frame, s.rxBuf[2:2+frameLen])
	s.rxBuf = s.rxBuf[2+frameLen:]
	return frame, s.peer, true
}

// Send writes frame with a 2-byte big-endian length prefix. target is
// ignored — a UART has exactly one peer.
func (s *Serial) Send(ctx context.Context, frame []byte, target Target) error {
	if len(frame) > 0xFFFF {
		s.reportError(frame, ErrKindOversize)
		return fmt.Errorf("link: frame %d bytes exceeds serial envelope limit", len(frame))
	}
	out := make([]byte, 2+len(frame))
	binary.BigEndian.PutUint16(out[:2], uint16(len(frame)))
	copy(out[2:], frame)
	_, err := unix.Write(s.fd, out)
	if err != nil {
		s.reportError(frame, ErrKindIO)
	}
	return err
}

func (s *Serial) OnError(fn func(frame []byte, kind ErrorKind)) {
	s.onErr = fn
}

func (s *Serial) reportError(frame []byte, kind ErrorKind) {
	if s.onErr != nil {
		s.onErr(frame, kind)
	}
}
