package engine

import (
	"context"
	"time"

	"github.com/tdw-glyd/dfu-proto/internal/logging"
	"github.com/tdw-glyd/dfu-proto/internal/metrics"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

var dispatchLog = logging.For("engine")

// allowedStates declares, per command, which session states may receive
// it. BEGIN_SESSION only from INACTIVE; the image-transfer and
// challenge-response commands span STARTING and ACTIVE since the
// challenge payload rides the same xfer commands as firmware data;
// REBOOT/IMAGE_STATUS/BEGIN_SEND/SEND_DATA require a fully ACTIVE
// session; DEVICE_STATUS/KEEP_ALIVE are liveness/discovery traffic and
// are always accepted regardless of session state.
var allowedStates = map[wire.Command]StateMask{
	wire.BeginSession: maskOf(SessionInactive),
	wire.EndSession:   maskOf(SessionStarting, SessionActive),
	wire.NegotiateMTU: maskOf(SessionInactive, SessionStarting, SessionActive),
	wire.BeginRcv:     maskOf(SessionStarting, SessionActive),
	wire.RcvData:      maskOf(SessionStarting, SessionActive),
	wire.RcvComplete:  maskOf(SessionStarting, SessionActive),
	wire.AbortXfer:    maskOf(SessionStarting, SessionActive),
	wire.InstallImage: maskOf(SessionStarting, SessionActive),
	wire.Reboot:       maskOf(SessionActive),
	wire.ImageStatus:  maskOf(SessionActive),
	wire.BeginSend:    maskOf(SessionActive),
	wire.SendData:     maskOf(SessionActive),
	wire.DeviceStatus: maskOf(SessionInactive, SessionStarting, SessionActive),
	wire.KeepAlive:    maskOf(SessionInactive, SessionStarting, SessionActive),
}

func (inst *Instance) runPeriodic() {
	now := inst.clock.Now()
	for _, p := range inst.periodic {
		if now.Sub(p.last) >= p.interval {
			p.last = now
			p.fn(inst)
		}
	}
}

func msToDuration(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Drive runs exactly one iteration of the dispatch algorithm: periodic
// tasks, session/starting timeout checks, one non-blocking Recv, header
// validation, state-mask check, length validation, and (on success)
// handler invocation.
func (inst *Instance) Drive(ctx context.Context) DriveState {
	inst.runPeriodic()

	if inst.sessionTimerRunning {
		switch inst.sessionState {
		case SessionActive:
			if inst.clock.Now().Sub(inst.sessionTimerStart) >= msToDuration(inst.cfg.IdleSessionTimeoutMS()) {
				return inst.timeoutSession(SessionActive)
			}
		case SessionStarting:
			if inst.clock.Now().Sub(inst.startingTimerStart) >= msToDuration(inst.cfg.SessionStartingTimeoutMS()) {
				return inst.timeoutSession(SessionStarting)
			}
		}
	}

	if inst.cb.Adapter == nil {
		return DriveIdle
	}
	frame, source, ok := inst.cb.Adapter.Recv(ctx)
	if !ok {
		return DriveUnknown
	}
	if len(frame) == 0 {
		inst.flagError(ErrKindMsgTooShort, frame)
		return DriveError
	}

	cmd, toggle, msgType := wire.ParseHeader(frame[0])
	inst.lastCommand = cmd

	if cmd == 0 || cmd >= wire.LastCommand {
		inst.flagError(ErrKindInvalidCommand, frame)
		return DriveError
	}

	mask, known := allowedStates[cmd]
	if known && !mask.Allows(inst.sessionState) {
		inst.flagError(ErrKindNoSession, frame)
		return DriveError
	}

	inst.restartSessionTimer()

	if !wire.VariantKnown(cmd, msgType) {
		inst.flagError(ErrKindInvalidMsgType, frame)
		return DriveError
	}
	maxLen, permitted := wire.MaxLenFor(cmd, msgType, inst.mtu)
	if !permitted {
		// VariantKnown already confirmed msgType is in range, so this is
		// a forbidden (size-table entry 0) variant, not an unknown one.
		inst.flagError(ErrKindMsgTooLong, frame)
		return DriveError
	}
	if len(frame) > int(inst.mtu) {
		inst.flagError(ErrKindMsgExceedsMTU, frame)
		return DriveError
	}
	if len(frame) > int(maxLen) {
		inst.flagError(ErrKindMsgTooLong, frame)
		return DriveError
	}

	payload := frame[1:]
	inst.lastSource = source

	var err error
	switch cmd {
	case wire.BeginSession:
		err = inst.dispatchBeginSession(toggle, msgType, payload)
	case wire.EndSession:
		err = inst.dispatchEndSession(toggle, msgType, payload)
	default:
		err = inst.handlers[cmd].fn(inst, toggle, msgType, payload)
	}

	if err != nil {
		dispatchLog.WithField("command", cmd.String()).WithError(err).Debug("handler returned error")
		return DriveError
	}

	inst.restartSessionTimer()
	metrics.FramesDispatched.WithLabelValues(cmd.String()).Inc()

	switch {
	case cmd == wire.EndSession:
		return DriveSessionEnded
	case inst.sessionState == SessionActive:
		return DriveSessionActive
	default:
		return DriveOk
	}
}

func (inst *Instance) timeoutSession(from SessionState) DriveState {
	inst.enterInactive()
	metrics.SessionTimeouts.WithLabelValues(from.String()).Inc()
	inst.flagError(ErrKindSessionTimedOut, nil)
	return DriveSessionTimeout
}

func (inst *Instance) flagError(kind ErrorKind, frame []byte) {
	metrics.ErrorsReported.WithLabelValues(kind.String()).Inc()
	dispatchLog.WithField("kind", kind.String()).Warn("dispatch error")
	inst.reportError(kind, frame)
}
