package linktest

import (
	"context"
	"sync"

	"github.com/tdw-glyd/dfu-proto/internal/link"
)

// FakeAdapter is an in-memory link.Adapter with no transport at all:
// tests call Inject to enqueue an inbound frame and Sent to inspect what
// an Instance wrote out.
type FakeAdapter struct {
	mu     sync.Mutex
	inbox  [][]byte
	source link.Source
	sent   [][]byte
	onErr  func(frame []byte, kind link.ErrorKind)

	// FailSend, if set, is returned by Send instead of actually queuing
	// anything — used to exercise transaction/xfer error paths.
	FailSend error
}

// NewFakeAdapter returns an adapter whose Recv reports frames as coming
// from source.
func NewFakeAdapter(source link.Source) *FakeAdapter {
	return &FakeAdapter{source: source}
}

// Inject queues frame to be returned by the next Recv call.
func (f *FakeAdapter) Inject(frame []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = append(f.inbox, append([]byte(nil), frame...))
}

// Sent returns every frame handed to Send so far, in order.
func (f *FakeAdapter) Sent() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]byte, len(f.sent))
	copy(out, f.sent)
	return out
}

// LastSent returns the most recent frame sent, or nil if none yet.
func (f *FakeAdapter) LastSent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

func (f *FakeAdapter) Recv(ctx context.Context) ([]byte, link.Source, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inbox) == 0 {
		return nil, link.Source{}, false
	}
	frame := f.inbox[0]
	f.inbox = f.inbox[1:]
	return frame, f.source, true
}

func (f *FakeAdapter) Send(ctx context.Context, frame []byte, target link.Target) error {
	if f.FailSend != nil {
		return f.FailSend
	}
	f.mu.Lock()
	f.sent = append(f.sent, append([]byte(nil), frame...))
	f.mu.Unlock()
	return nil
}

func (f *FakeAdapter) OnError(fn func(frame []byte, kind link.ErrorKind)) {
	f.onErr = fn
}
