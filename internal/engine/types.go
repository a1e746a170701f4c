// Package engine implements a multi-instance, polled protocol state
// machine that receives frames, dispatches them by command and session
// state, invokes registered handlers, and manages session/uptime timers
// and periodic tasks.
package engine

import (
	"time"

	"github.com/tdw-glyd/dfu-proto/internal/config"
	"github.com/tdw-glyd/dfu-proto/internal/link"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

// ErrorKind enumerates the non-fatal error taxonomy. Every kind is
// reported through the error callback, never fatal at engine scope, and
// never triggers a retry.
type ErrorKind int

const (
	ErrKindNone ErrorKind = iota
	ErrKindInvalidMsgType
	ErrKindInvalidCommand
	ErrKindMsgTooShort
	ErrKindMsgTooLong
	ErrKindMsgExceedsMTU
	ErrKindNoSession
	ErrKindSessionTimedOut
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindInvalidMsgType:
		return "InvalidMsgType"
	case ErrKindInvalidCommand:
		return "InvalidCommand"
	case ErrKindMsgTooShort:
		return "MsgTooShort"
	case ErrKindMsgTooLong:
		return "MsgTooLong"
	case ErrKindMsgExceedsMTU:
		return "MsgExceedsMtu"
	case ErrKindNoSession:
		return "NoSession"
	case ErrKindSessionTimedOut:
		return "SessionTimedOut"
	default:
		return "None"
	}
}

// Error is reported to the error callback; it always carries the raw
// frame bytes when one was available, so an operator can diagnose it.
type Error struct {
	Kind  ErrorKind
	Frame []byte
}

func (e *Error) Error() string {
	return "dfu engine: " + e.Kind.String()
}

// SessionState is a bitmask-friendly enum: the dispatch table declares
// an allowed-state *mask* per command, so each value here is a distinct
// bit rather than a sequential int.
type SessionState uint8

const (
	SessionInactive SessionState = 1 << iota
	SessionStarting
	SessionActive
)

func (s SessionState) String() string {
	switch s {
	case SessionInactive:
		return "INACTIVE"
	case SessionStarting:
		return "STARTING"
	case SessionActive:
		return "ACTIVE"
	default:
		return "UNKNOWN"
	}
}

// StateMask is a set of permitted SessionStates for one command.
type StateMask uint8

// Allows reports whether s is a member of m.
func (m StateMask) Allows(s SessionState) bool {
	return StateMask(s)&m != 0
}

func maskOf(states ...SessionState) StateMask {
	var m StateMask
	for _, s := range states {
		m |= StateMask(s)
	}
	return m
}

// DriveState is the outcome of one Drive() call.
type DriveState int

const (
	DriveIdle DriveState = iota
	DriveOk
	DriveError
	DriveSessionActive
	DriveSessionEnded
	DriveSessionTimeout
	DriveUnknown
)

func (d DriveState) String() string {
	switch d {
	case DriveIdle:
		return "Idle"
	case DriveOk:
		return "Ok"
	case DriveError:
		return "Error"
	case DriveSessionActive:
		return "SessionActive"
	case DriveSessionEnded:
		return "SessionEnded"
	case DriveSessionTimeout:
		return "SessionTimeout"
	default:
		return "Unknown"
	}
}

// Clock abstracts time.Now so tests can drive session/uptime timers
// deterministically (see internal/linktest.FakeClock) instead of
// sleeping in real time.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// HandlerFunc processes one dispatched frame. It receives the already
// toggle/msgType-parsed header fields and the raw payload (the bytes
// after the header; the wire Decode* functions expect the header byte at
// index 0, so it must be put back in front before decoding). Returning a non-nil
// error marks the Drive() call as DriveError but does not, by itself,
// invoke the error callback — only the dispatch table's own validation
// steps do that.
type HandlerFunc func(inst *Instance, toggle uint8, msgType wire.MsgType, payload []byte) error

// PeriodicFunc is invoked by Drive() whenever its interval has elapsed.
type PeriodicFunc func(inst *Instance)

// ErrFunc is the upward error callback.
type ErrFunc func(inst *Instance, kind ErrorKind, frame []byte)

// Callbacks bundles the capability set an Instance is configured with.
// Ctx is the caller's opaque user context, carried so handlers installed
// as closures can still reach it without a C-style void pointer.
type Callbacks struct {
	Adapter link.Adapter
	Err     ErrFunc
	Ctx     any
}

// Config is re-exported here so callers of internal/engine don't need to
// also import internal/config directly for the common path.
type Config = config.Config
