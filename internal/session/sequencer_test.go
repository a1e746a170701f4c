package session

import (
	"context"
	"testing"
	"time"

	"github.com/tdw-glyd/dfu-proto/internal/config"
	"github.com/tdw-glyd/dfu-proto/internal/cryptoprovider"
	"github.com/tdw-glyd/dfu-proto/internal/engine"
	"github.com/tdw-glyd/dfu-proto/internal/link"
	"github.com/tdw-glyd/dfu-proto/internal/linktest"
	"github.com/tdw-glyd/dfu-proto/internal/transaction"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

// fixedEncrypter is a test double that returns the same fixed bytes
// whatever the challenge, avoiding a dependency on real box crypto in the
// sequencing test (cryptoprovider's own round trip is covered by
// internal/cryptoprovider's tests).
type fixedEncrypter struct{ out []byte }

func (f fixedEncrypter) EncryptChallenge(challenge uint32) ([]byte, error) {
	return f.out, nil
}

func ackFor(t *testing.T, cmd wire.Command) []byte {
	t.Helper()
	buf := make([]byte, 1)
	n, err := wire.BuildAck(buf, cmd, 0)
	if err != nil {
		t.Fatalf("BuildAck(%v): %v", cmd, err)
	}
	return buf[:n]
}

func TestSequencer_Open_HappyPath(t *testing.T) {
	adapter := linktest.NewFakeAdapter(link.Source{ID: "target"})
	inst := engine.NewInstance(config.DefaultConfig(), engine.Callbacks{Adapter: adapter}, linktest.NewFakeClock(time.Unix(0, 0)))
	client := transaction.NewClient(inst, time.Millisecond)
	seq := NewSequencer(client, fixedEncrypter{out: []byte{1, 2, 3, 4}})

	resp := make([]byte, 5)
	n, _ := wire.BuildBeginSessionResponse(resp, 0, 0x11223344)
	adapter.Inject(resp[:n])

	mtuResp := make([]byte, 3)
	mn, _ := wire.BuildNegotiateMTU(mtuResp, 0, wire.MsgResponse, 64)
	adapter.Inject(mtuResp[:mn])

	adapter.Inject(ackFor(t, wire.BeginRcv))   // challenge BEGIN_RCV
	adapter.Inject(ackFor(t, wire.RcvData))    // challenge bytes (1 chunk, 4 bytes)
	adapter.Inject(ackFor(t, wire.RcvComplete))
	adapter.Inject(ackFor(t, wire.InstallImage)) // commit challenge, promotes ACTIVE

	adapter.Inject(ackFor(t, wire.BeginRcv))   // firmware BEGIN_RCV
	adapter.Inject(ackFor(t, wire.RcvData))    // firmware bytes (1 chunk, fits in MTU-1=63)
	adapter.Inject(ackFor(t, wire.RcvComplete))
	adapter.Inject(ackFor(t, wire.InstallImage)) // commit firmware

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err := seq.Open(ctx, 64, Image{Index: 1, Addr: 0x8000, Data: []byte("firmware")}, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
}

func TestSequencer_Open_AbortsOnMTUFailure(t *testing.T) {
	adapter := linktest.NewFakeAdapter(link.Source{ID: "target"})
	inst := engine.NewInstance(config.DefaultConfig(), engine.Callbacks{Adapter: adapter}, linktest.NewFakeClock(time.Unix(0, 0)))
	client := transaction.NewClient(inst, time.Millisecond)
	seq := NewSequencer(client, fixedEncrypter{out: []byte{1, 2, 3, 4}})

	resp := make([]byte, 5)
	n, _ := wire.BuildBeginSessionResponse(resp, 0, 0x11223344)
	adapter.Inject(resp[:n])

	nak := make([]byte, 1)
	nn, _ := wire.BuildNak(nak, wire.NegotiateMTU, 0)
	adapter.Inject(nak[:nn])

	adapter.Inject(ackFor(t, wire.EndSession)) // expected teardown

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := seq.Open(ctx, 64, Image{Index: 1, Data: []byte("x")}, nil)
	if err == nil {
		t.Fatal("expected an error when NEGOTIATE_MTU is NAKed")
	}
}
