package engine

import (
	"time"

	"github.com/tdw-glyd/dfu-proto/internal/link"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

type handlerEntry struct {
	fn        HandlerFunc
	installed bool
}

type periodicEntry struct {
	fn       PeriodicFunc
	interval time.Duration
	last     time.Time
}

// Instance is one polled protocol state machine, bound to exactly one
// link.Adapter. All exported methods are safe to call from the same
// goroutine that calls Drive; Instance is not designed for concurrent
// access from multiple goroutines — Drive is the single owning loop and
// all state mutation happens on its call stack.
type Instance struct {
	cfg   Config
	cb    Callbacks
	clock Clock

	mtu          uint16
	toggle       uint8
	sessionState SessionState
	statusBits   wire.DeviceStatusBits
	lastCommand  wire.Command

	sessionTimerRunning bool
	sessionTimerStart   time.Time
	startingTimerStart  time.Time
	uptimeStart         time.Time

	handlers   [int(wire.LastCommand) + 1]handlerEntry
	periodic   []*periodicEntry
	lastSource link.Source

	scratch []byte
}

// NewInstance constructs a standalone Instance outside of a Pool, for
// tests that want to supply a fake Clock (see internal/linktest) to
// drive session/uptime timers deterministically.
func NewInstance(cfg Config, cb Callbacks, clock Clock) *Instance {
	if clock == nil {
		clock = realClock{}
	}
	return newInstance(cfg, cb, clock)
}

func newInstance(cfg Config, cb Callbacks, clock Clock) *Instance {
	now := clock.Now()
	inst := &Instance{
		cfg:          cfg,
		cb:           cb,
		clock:        clock,
		mtu:          cfg.DefaultMTU,
		toggle:       1,
		sessionState: SessionInactive,
		uptimeStart:  now,
		scratch:      make([]byte, cfg.MaxMsgLen),
	}
	installDefaultHandlers(inst)
	return inst
}

// MTU returns the currently negotiated MTU.
func (inst *Instance) MTU() uint16 { return inst.mtu }

// SetMTU updates the negotiated MTU, normally called from the
// NEGOTIATE_MTU handler once both sides have agreed a value.
func (inst *Instance) SetMTU(mtu uint16) { inst.mtu = mtu }

// SessionState reports the current session state.
func (inst *Instance) SessionState() SessionState { return inst.sessionState }

// StatusBits returns the device status bitmap reported in DEVICE_STATUS
// messages.
func (inst *Instance) StatusBits() wire.DeviceStatusBits { return inst.statusBits }

// SetStatusBits overwrites the device status bitmap.
func (inst *Instance) SetStatusBits(bits wire.DeviceStatusBits) { inst.statusBits = bits }

// Uptime reports elapsed time since the instance was created.
func (inst *Instance) Uptime() time.Duration { return inst.clock.Now().Sub(inst.uptimeStart) }

// Ctx returns the opaque user context supplied at Reserve time.
func (inst *Instance) Ctx() any { return inst.cb.Ctx }

// Toggle returns the current outbound toggle bit.
func (inst *Instance) Toggle() uint8 { return inst.toggle }

// LastSource reports where the most recently dispatched frame came from.
func (inst *Instance) LastSource() link.Source { return inst.lastSource }

func (inst *Instance) invertToggle() {
	inst.toggle ^= 1
}

func (inst *Instance) restartSessionTimer() {
	inst.sessionTimerRunning = true
	inst.sessionTimerStart = inst.clock.Now()
}

func (inst *Instance) stopSessionTimer() {
	inst.sessionTimerRunning = false
}

func (inst *Instance) enterStarting() {
	inst.sessionState = SessionStarting
	inst.startingTimerStart = inst.clock.Now()
	inst.restartSessionTimer()
}

func (inst *Instance) enterActive() {
	inst.sessionState = SessionActive
	inst.restartSessionTimer()
}

func (inst *Instance) enterInactive() {
	inst.sessionState = SessionInactive
	inst.stopSessionTimer()
}

// PromoteActive transitions a STARTING session to ACTIVE. Called by a
// target-side INSTALL_IMAGE handler once it has verified the decrypted
// challenge matches.
func (inst *Instance) PromoteActive() { inst.enterActive() }

// ForceInactive unconditionally returns the instance to INACTIVE,
// stopping the session timer. Used by a session sequencer's teardown
// path when any step after BEGIN_SESSION fails.
func (inst *Instance) ForceInactive() { inst.enterInactive() }

func (inst *Instance) reportError(kind ErrorKind, frame []byte) {
	if inst.cb.Err != nil {
		inst.cb.Err(inst, kind, frame)
	}
}
