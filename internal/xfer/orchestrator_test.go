package xfer

import (
	"context"
	"testing"
	"time"

	"github.com/tdw-glyd/dfu-proto/internal/config"
	"github.com/tdw-glyd/dfu-proto/internal/engine"
	"github.com/tdw-glyd/dfu-proto/internal/link"
	"github.com/tdw-glyd/dfu-proto/internal/linktest"
	"github.com/tdw-glyd/dfu-proto/internal/transaction"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

// TestSend_HappyPath: MTU=16 over a 40-byte image yields three RCV_DATA
// chunks of 15/15/10 bytes and a single RCV_COMPLETE(total=40).
func TestSend_HappyPath(t *testing.T) {
	adapter := linktest.NewFakeAdapter(link.Source{ID: "target"})
	inst := engine.NewInstance(config.DefaultConfig(), engine.Callbacks{Adapter: adapter}, linktest.NewFakeClock(time.Unix(0, 0)))
	inst.SetMTU(16)
	inst.PromoteActive()
	client := transaction.NewClient(inst, time.Millisecond)
	orch := NewOrchestrator(client)

	queueAck := func(cmd wire.Command) {
		buf := make([]byte, 1)
		n, _ := wire.BuildAck(buf, cmd, 0)
		adapter.Inject(buf[:n])
	}
	queueAck(wire.BeginRcv)
	queueAck(wire.RcvData)
	queueAck(wire.RcvData)
	queueAck(wire.RcvData)
	queueAck(wire.RcvComplete)

	data := make([]byte, 40)
	for i := range data {
		data[i] = byte(i)
	}

	var progressCalls [][2]int
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res := orch.Send(ctx, wire.BeginRcvParams{ImageIndex: 1, Size: 40, Addr: 0x1000}, data, func(sent, total int) {
		progressCalls = append(progressCalls, [2]int{sent, total})
	})

	if res.Err != nil {
		t.Fatalf("Send: %v", res.Err)
	}
	if res.BytesSent != 40 {
		t.Fatalf("BytesSent = %d, want 40", res.BytesSent)
	}
	if res.ChunksSent != 3 {
		t.Fatalf("ChunksSent = %d, want 3", res.ChunksSent)
	}
	if len(progressCalls) != 3 || progressCalls[0][0] != 15 || progressCalls[1][0] != 30 || progressCalls[2][0] != 40 {
		t.Fatalf("progress calls = %v, want [15 30 40] sent", progressCalls)
	}

	sent := adapter.Sent()
	// BEGIN_RCV + 3x RCV_DATA + RCV_COMPLETE = 5 requests.
	if len(sent) != 5 {
		t.Fatalf("requests sent = %d, want 5", len(sent))
	}
	wantLens := []int{8, 16, 16, 11, 4}
	for i, w := range wantLens {
		if len(sent[i]) != w {
			t.Fatalf("request %d length = %d, want %d", i, len(sent[i]), w)
		}
	}
}

func TestSend_MidTransferFailureReportsPartial(t *testing.T) {
	adapter := linktest.NewFakeAdapter(link.Source{ID: "target"})
	inst := engine.NewInstance(config.DefaultConfig(), engine.Callbacks{Adapter: adapter}, linktest.NewFakeClock(time.Unix(0, 0)))
	inst.SetMTU(16)
	inst.PromoteActive()
	client := transaction.NewClient(inst, time.Millisecond)
	orch := NewOrchestrator(client)

	ackBuf := make([]byte, 1)
	n, _ := wire.BuildAck(ackBuf, wire.BeginRcv, 0)
	adapter.Inject(ackBuf[:n])
	nakBuf := make([]byte, 1)
	nn, _ := wire.BuildNak(nakBuf, wire.RcvData, 0)
	adapter.Inject(nakBuf[:nn])

	data := make([]byte, 40)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res := orch.Send(ctx, wire.BeginRcvParams{ImageIndex: 1, Size: 40}, data, nil)

	if res.Err == nil {
		t.Fatal("expected an error from the rejected first chunk")
	}
	if res.BytesSent != 0 || res.ChunksSent != 0 {
		t.Fatalf("BytesSent=%d ChunksSent=%d, want 0/0 since the first chunk failed", res.BytesSent, res.ChunksSent)
	}
}
