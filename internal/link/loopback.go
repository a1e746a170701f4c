package link

import (
	"context"
	"sync"
)

// Loopback is an in-memory pair of byte-queue endpoints connecting two
// engine instances within the same process — used by tests and by the
// cmd/dfuctl + cmd/dfutarget demo binaries so the whole protocol is
// exercisable without real hardware.
type Loopback struct {
	mu     sync.Mutex
	inbox  [][]byte
	peer   *Loopback
	source Source
	onErr  func(frame []byte, kind ErrorKind)
}

// NewLoopbackPair returns two connected Loopback adapters: frames sent
// on a arrive on b's Recv, and vice versa.
func NewLoopbackPair() (a, b *Loopback) {
	a = &Loopback{source: Source{ID: "loopback-a"}}
	b = &Loopback{source: Source{ID: "loopback-b"}}
	a.peer = b
	b.peer = a
	return a, b
}

func (l *Loopback) Recv(ctx context.Context) ([]byte, Source, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.inbox) == 0 {
		return nil, Source{}, false
	}
	frame := l.inbox[0]
	l.inbox = l.inbox[1:]
	return frame, l.peer.source, true
}

func (l *Loopback) Send(ctx context.Context, frame []byte, target Target) error {
	// Loopback has exactly one peer; TargetAny and TargetSender behave
	// identically.
	cp := make([]byte, len(frame))
	copy(cp, frame)
	l.peer.mu.Lock()
	l.peer.inbox = append(l.peer.inbox, cp)
	l.peer.mu.Unlock()
	return nil
}

func (l *Loopback) OnError(fn func(frame []byte, kind ErrorKind)) {
	l.mu.Lock()
	l.onErr = fn
	l.mu.Unlock()
}
