// Command dfutarget is a minimal bootloader-side demo: it wires up one
// internal/engine instance in the device role over a link.Loopback pair
// and drives it on a fixed tick while a simulated peer repeatedly opens
// and closes a session with it, logging dispatch errors and the peer's
// side of each exchange. It exists to exercise the
// engine end to end without any real transport.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tdw-glyd/dfu-proto/internal/config"
	"github.com/tdw-glyd/dfu-proto/internal/engine"
	"github.com/tdw-glyd/dfu-proto/internal/link"
	"github.com/tdw-glyd/dfu-proto/internal/logging"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

var log = logging.For("dfutarget")

func main() {
	tick := flag.Duration("tick", 10*time.Millisecond, "drive() polling interval")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	targetAdapter, peerAdapter := link.NewLoopbackPair()
	targetAdapter.OnError(func(frame []byte, kind link.ErrorKind) {
		log.WithField("kind", kind).Warn("link error")
	})

	cfg := config.DefaultConfig()
	inst := engine.NewInstance(cfg, engine.Callbacks{
		Adapter: targetAdapter,
		Err: func(inst *engine.Instance, kind engine.ErrorKind, frame []byte) {
			log.WithField("kind", kind.String()).Warn("dispatch error")
		},
	}, nil)

	inst.InstallHandler(wire.BeginRcv, func(inst *engine.Instance, toggle uint8, msgType wire.MsgType, payload []byte) error {
		frame := append([]byte{wire.PackHeader(wire.BeginRcv, toggle, msgType)}, payload...)
		params, err := wire.DecodeBeginRcv(frame)
		if err != nil {
			return err
		}
		log.WithField("image_index", params.ImageIndex).WithField("size", params.Size).Info("begin receive")
		buf := inst.Scratch()
		n, err := wire.BuildAck(buf, wire.BeginRcv, toggle)
		if err != nil {
			return err
		}
		return inst.SendMsg(context.Background(), buf[:n], link.TargetSender)
	})

	log.WithField("mtu", inst.MTU()).Info("target instance ready")

	go simulatePeer(ctx, peerAdapter)

	ticker := time.NewTicker(*tick)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			return
		case <-ticker.C:
			inst.Drive(ctx)
		}
	}
}

// simulatePeer stands in for a real host: it opens a session, waits a
// moment, then ends it, repeating forever so the demo produces visible
// dispatch activity without a second binary.
func simulatePeer(ctx context.Context, adapter *link.Loopback) {
	buf := make([]byte, 16)
	toggle := uint8(0)
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		n, err := wire.BuildBeginSession(buf, toggle)
		if err != nil {
			log.WithError(err).Error("build BEGIN_SESSION")
			return
		}
		if err := adapter.Send(ctx, buf[:n], link.TargetAny); err != nil {
			log.WithError(err).Error("send BEGIN_SESSION")
			return
		}

		reply := awaitReply(ctx, adapter, 2*time.Second)
		if reply == nil {
			log.Warn("peer: no BEGIN_SESSION reply")
			time.Sleep(time.Second)
			continue
		}
		log.Info("peer: session opened")
		toggle ^= 1

		time.Sleep(200 * time.Millisecond)

		n, err = wire.BuildEndSession(buf, toggle)
		if err != nil {
			log.WithError(err).Error("build END_SESSION")
			return
		}
		if err := adapter.Send(ctx, buf[:n], link.TargetAny); err != nil {
			log.WithError(err).Error("send END_SESSION")
			return
		}
		if reply := awaitReply(ctx, adapter, 2*time.Second); reply != nil {
			log.Info("peer: session closed")
			toggle ^= 1
		}

		time.Sleep(2 * time.Second)
	}
}

func awaitReply(ctx context.Context, adapter *link.Loopback, timeout time.Duration) []byte {
	deadline := time.After(timeout)
	poll := time.NewTicker(5 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-deadline:
			return nil
		case <-poll.C:
			if frame, _, ok := adapter.Recv(ctx); ok {
				return frame
			}
		}
	}
}
