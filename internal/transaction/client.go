// Package transaction implements the client transaction layer: a
// synchronous request/response wrapper around one internal/engine
// Instance, driven from the host side. The engine stays a polled,
// non-blocking state machine; Client is what turns "send a command and
// wait" into an ordinary blocking Go call with a context deadline —
// build request, send, poll for reply, validate.
package transaction

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tdw-glyd/dfu-proto/internal/engine"
	"github.com/tdw-glyd/dfu-proto/internal/link"
	"github.com/tdw-glyd/dfu-proto/internal/logging"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

var txnLog = logging.For("transaction")

// ErrTransactionInProgress is returned by any transaction method when the Client already has
// an outstanding request: at most one transaction may be in flight per
// instance.
var ErrTransactionInProgress = fmt.Errorf("transaction: another transaction is already in progress")

// ErrNak is returned when the peer answers with a NAK.
var ErrNak = fmt.Errorf("transaction: peer replied NAK")

// Result is one completed transaction's reply.
type Result struct {
	MsgType wire.MsgType
	Payload []byte
}

type pending struct {
	cmd  wire.Command
	done chan Result
}

// Client drives exactly one engine.Instance on the host's behalf.
// Target is the link.Target to address outbound frames to; most
// transports have a single peer (TargetSender once one is seen) but a
// fresh Client defaults to TargetAny until it has heard from the target
// at least once.
type Client struct {
	mu           sync.Mutex
	inst         *engine.Instance
	pollInterval time.Duration
	target       link.Target
	pend         *pending
}

// NewClient wires the eight transaction commands' completion handlers
// onto inst and returns a Client ready to drive it. pollInterval governs
// how often a transaction calls inst.Drive while waiting for a reply; it
// should be well under the shortest deadline callers pass in ctx.
func NewClient(inst *engine.Instance, pollInterval time.Duration) *Client {
	c := &Client{inst: inst, pollInterval: pollInterval, target: link.TargetAny}
	for _, cmd := range []wire.Command{
		wire.BeginSession, wire.EndSession, wire.NegotiateMTU,
		wire.BeginRcv, wire.RcvData, wire.RcvComplete,
		wire.InstallImage, wire.Reboot,
	} {
		inst.InstallHandler(cmd, c.completionHandlerFor(cmd))
	}
	return c
}

func (c *Client) completionHandlerFor(cmd wire.Command) engine.HandlerFunc {
	return func(inst *engine.Instance, toggle uint8, msgType wire.MsgType, payload []byte) error {
		if msgType == wire.MsgCommand || msgType == wire.MsgUnsolicited {
			// Not a reply to a host-initiated request; nothing to complete.
			return nil
		}
		c.mu.Lock()
		c.target = link.TargetSender
		p := c.pend
		if p == nil || p.cmd != cmd {
			c.mu.Unlock()
			return nil
		}
		c.pend = nil
		c.mu.Unlock()

		cp := make([]byte, len(payload))
		copy(cp, payload)
		p.done <- Result{MsgType: msgType, Payload: cp}
		return nil
	}
}

// MTU returns the instance's currently negotiated MTU, for callers (such
// as internal/xfer) that need to size chunks without reaching into the
// engine package directly.
func (c *Client) MTU() uint16 { return c.inst.MTU() }

// PromoteActive marks the underlying instance's session ACTIVE. Called
// by internal/session once the target has confirmed (via a successful
// INSTALL_IMAGE) that the decrypted challenge matched.
func (c *Client) PromoteActive() { c.inst.PromoteActive() }

// do sends frame (already built into buf[:n] with the instance's current
// toggle) as a cmd transaction and blocks until a reply completes it,
// ctx is done, or the instance already has one in flight.
func (c *Client) do(ctx context.Context, cmd wire.Command, n int, buildErr error) (Result, error) {
	if buildErr != nil {
		return Result{}, buildErr
	}

	c.mu.Lock()
	if c.pend != nil {
		c.mu.Unlock()
		return Result{}, ErrTransactionInProgress
	}
	p := &pending{cmd: cmd, done: make(chan Result, 1)}
	c.pend = p
	c.mu.Unlock()

	corrID := uuid.NewString()
	log := txnLog.WithField("command", cmd.String()).WithField("txn_id", corrID)

	frame := make([]byte, n)
	copy(frame, c.inst.Scratch()[:n])
	if err := c.inst.SendMsg(ctx, frame, c.target); err != nil {
		c.mu.Lock()
		if c.pend == p {
			c.pend = nil
		}
		c.mu.Unlock()
		log.WithError(err).Warn("send failed")
		return Result{}, err
	}
	log.Debug("request sent, awaiting reply")

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case res := <-p.done:
			log.WithField("msg_type", res.MsgType.String()).Debug("reply received")
			if res.MsgType == wire.MsgNak {
				return res, ErrNak
			}
			return res, nil
		case <-ctx.Done():
			c.mu.Lock()
			if c.pend == p {
				c.pend = nil
			}
			c.mu.Unlock()
			log.Warn("transaction timed out")
			return Result{}, ctx.Err()
		case <-ticker.C:
			c.inst.Drive(ctx)
		}
	}
}
