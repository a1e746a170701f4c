package link

import (
	"context"
	"testing"
)

func TestLoopbackPair_SendRecv(t *testing.T) {
	a, b := NewLoopbackPair()
	ctx := context.Background()

	if err := a.Send(ctx, []byte{1, 2, 3}, TargetAny); err != nil {
		t.Fatalf("Send: %v", err)
	}

	frame, source, ok := b.Recv(ctx)
	if !ok {
		t.Fatal("expected a frame on b")
	}
	if string(frame) != string([]byte{1, 2, 3}) {
		t.Fatalf("frame = %v, want [1 2 3]", frame)
	}
	if source.ID != "loopback-a" {
		t.Fatalf("source = %+v, want loopback-a", source)
	}

	if _, _, ok := b.Recv(ctx); ok {
		t.Fatal("expected b's inbox to be drained after one Recv")
	}
}

func TestLoopbackPair_SendCopiesFrame(t *testing.T) {
	a, b := NewLoopbackPair()
	ctx := context.Background()

	frame := []byte{9, 9}
	if err := a.Send(ctx, frame, TargetAny); err != nil {
		t.Fatalf("Send: %v", err)
	}
	frame[0] = 0 // mutate the caller's slice after sending

	got, _, _ := b.Recv(ctx)
	if got[0] != 9 {
		t.Fatalf("Send must copy the frame; got %v, mutation leaked through", got)
	}
}

func TestLoopback_RecvEmptyReturnsNotOK(t *testing.T) {
	a, _ := NewLoopbackPair()
	if _, _, ok := a.Recv(context.Background()); ok {
		t.Fatal("expected Recv on an empty inbox to return ok=false")
	}
}
