package engine

import (
	"context"
	"fmt"

	"github.com/tdw-glyd/dfu-proto/internal/link"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

// SendMsg writes frame, already encoded into a caller buffer (typically
// via one of the wire.Build* functions), out the instance's adapter, then
// inverts the toggle bit. Every successful send, of any message type,
// inverts the toggle uniformly rather than special-casing it per
// command.
func (inst *Instance) SendMsg(ctx context.Context, frame []byte, target link.Target) error {
	if inst.cb.Adapter == nil {
		return fmt.Errorf("engine: instance has no adapter")
	}
	if err := inst.cb.Adapter.Send(ctx, frame, target); err != nil {
		return err
	}
	inst.invertToggle()
	return nil
}

// SendAck builds and sends a 1-byte ACK for cmd using the instance's
// current toggle bit.
func (inst *Instance) SendAck(ctx context.Context, cmd wire.Command, target link.Target) error {
	n, err := wire.BuildAck(inst.scratch, cmd, inst.toggle)
	if err != nil {
		return err
	}
	return inst.SendMsg(ctx, inst.scratch[:n], target)
}

// SendNak builds and sends a 1-byte NAK for cmd using the instance's
// current toggle bit.
func (inst *Instance) SendNak(ctx context.Context, cmd wire.Command, target link.Target) error {
	n, err := wire.BuildNak(inst.scratch, cmd, inst.toggle)
	if err != nil {
		return err
	}
	return inst.SendMsg(ctx, inst.scratch[:n], target)
}

// Scratch returns the instance's MaxMsgLen-sized send buffer, for
// handlers that need to build a RESPONSE/UNSOLICITED frame in place
// before calling SendMsg.
func (inst *Instance) Scratch() []byte { return inst.scratch }
