package engine

import (
	"context"
	"time"

	"github.com/tdw-glyd/dfu-proto/internal/link"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

// InstallHandler registers fn as the handler for cmd, replacing whatever
// was there (including the default). A command slot always holds a
// handler — before InstallHandler is ever called, or after
// RemoveHandler, it holds the default one installed by newInstance.
func (inst *Instance) InstallHandler(cmd wire.Command, fn HandlerFunc) {
	inst.handlers[cmd] = handlerEntry{fn: fn, installed: true}
}

// RemoveHandler reverts cmd to its default handler.
func (inst *Instance) RemoveHandler(cmd wire.Command) {
	inst.handlers[cmd] = handlerEntry{fn: defaultHandlerFor(cmd), installed: false}
}

// InstallPeriodic registers fn to run roughly every interval while the
// instance is driven. Periodic tasks are capped by
// cfg.MaxPeriodicCommands; once the cap is reached a registration is
// not stored and InstallPeriodic returns false.
func (inst *Instance) InstallPeriodic(interval time.Duration, fn PeriodicFunc) bool {
	if len(inst.periodic) >= inst.cfg.MaxPeriodicCommands {
		return false
	}
	inst.periodic = append(inst.periodic, &periodicEntry{
		fn:       fn,
		interval: interval,
		last:     inst.clock.Now(),
	})
	return true
}

func installDefaultHandlers(inst *Instance) {
	for c := wire.Command(0); c <= wire.LastCommand; c++ {
		inst.handlers[c] = handlerEntry{fn: defaultHandlerFor(c)}
	}
}

// defaultHandlerFor returns the fallback behavior for a command that has
// no user handler installed: NAK it if the instance is configured to,
// otherwise silently drop it. A config-driven choice rather than a fixed
// per-command rule.
func defaultHandlerFor(cmd wire.Command) HandlerFunc {
	return func(inst *Instance, toggle uint8, msgType wire.MsgType, payload []byte) error {
		if msgType != wire.MsgCommand {
			return nil
		}
		if inst.cfg.NakUnsupportedCommands {
			return inst.SendNak(context.Background(), cmd, link.TargetSender)
		}
		return nil
	}
}

// dispatchBeginSession implements the BEGIN_SESSION special case: the
// state transitions to STARTING before the installed handler (if any)
// runs, and reverts to INACTIVE if that handler fails. This lets a
// BEGIN_SESSION handler's own reply (e.g. carrying a challenge) be built
// while the instance already reports STARTING.
func (inst *Instance) dispatchBeginSession(toggle uint8, msgType wire.MsgType, payload []byte) error {
	inst.enterStarting()
	h := inst.handlers[wire.BeginSession]
	var err error
	if h.installed {
		err = h.fn(inst, toggle, msgType, payload)
	} else if msgType == wire.MsgCommand {
		err = inst.SendAck(context.Background(), wire.BeginSession, link.TargetSender)
	}
	if err != nil {
		inst.enterInactive()
	}
	return err
}

// dispatchEndSession implements the END_SESSION special-case: the state
// always transitions to INACTIVE first (END_SESSION is unconditional),
// then either the installed handler runs or a plain ACK is sent.
func (inst *Instance) dispatchEndSession(toggle uint8, msgType wire.MsgType, payload []byte) error {
	inst.enterInactive()
	h := inst.handlers[wire.EndSession]
	if h.installed {
		return h.fn(inst, toggle, msgType, payload)
	}
	if msgType == wire.MsgCommand {
		return inst.SendAck(context.Background(), wire.EndSession, link.TargetSender)
	}
	return nil
}
