package engine

import (
	"context"
	"testing"
	"time"

	"github.com/tdw-glyd/dfu-proto/internal/config"
	"github.com/tdw-glyd/dfu-proto/internal/link"
	"github.com/tdw-glyd/dfu-proto/internal/linktest"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

func newTestInstance(t *testing.T) (*Instance, *linktest.FakeAdapter, *linktest.FakeClock) {
	t.Helper()
	adapter := linktest.NewFakeAdapter(link.Source{ID: "peer"})
	clock := linktest.NewFakeClock(time.Unix(0, 0))
	var errs []ErrorKind
	cb := Callbacks{
		Adapter: adapter,
		Err: func(inst *Instance, kind ErrorKind, frame []byte) {
			errs = append(errs, kind)
		},
	}
	inst := NewInstance(config.DefaultConfig(), cb, clock)
	return inst, adapter, clock
}

// TestDrive_OversizeFrameRejected: a frame exceeding the instance's MTU
// is rejected before any handler runs.
func TestDrive_OversizeFrameRejected(t *testing.T) {
	inst, adapter, _ := newTestInstance(t)
	if inst.MTU() != 8 {
		t.Fatalf("expected default MTU 8, got %d", inst.MTU())
	}

	var reported []ErrorKind
	inst.cb.Err = func(i *Instance, kind ErrorKind, frame []byte) { reported = append(reported, kind) }

	frame := make([]byte, 10)
	frame[0] = wire.PackHeader(wire.KeepAlive, 0, wire.MsgUnsolicited)
	adapter.Inject(frame)

	state := inst.Drive(context.Background())
	if state != DriveError {
		t.Fatalf("Drive() = %v, want DriveError", state)
	}
	if len(reported) != 1 || reported[0] != ErrKindMsgExceedsMTU {
		t.Fatalf("reported = %v, want [MsgExceedsMtu]", reported)
	}
	if len(adapter.Sent()) != 0 {
		t.Fatalf("handler must not have sent anything, got %v", adapter.Sent())
	}
}

// TestDrive_SessionStartingTimeout: a session stuck in STARTING for
// longer than SessionStartingTimeoutMS reverts to INACTIVE and reports
// SessionTimedOut.
func TestDrive_SessionStartingTimeout(t *testing.T) {
	inst, _, clock := newTestInstance(t)

	var reported []ErrorKind
	inst.cb.Err = func(i *Instance, kind ErrorKind, frame []byte) { reported = append(reported, kind) }

	inst.enterStarting()
	if inst.SessionState() != SessionStarting {
		t.Fatalf("expected STARTING, got %v", inst.SessionState())
	}

	clock.Advance(61 * time.Second)
	state := inst.Drive(context.Background())

	if state != DriveSessionTimeout {
		t.Fatalf("Drive() = %v, want DriveSessionTimeout", state)
	}
	if inst.SessionState() != SessionInactive {
		t.Fatalf("session state = %v, want INACTIVE", inst.SessionState())
	}
	if len(reported) != 1 || reported[0] != ErrKindSessionTimedOut {
		t.Fatalf("reported = %v, want [SessionTimedOut]", reported)
	}
}

func TestDrive_IdleSessionTimeout(t *testing.T) {
	inst, _, clock := newTestInstance(t)
	inst.enterActive()

	clock.Advance(301 * time.Second)
	state := inst.Drive(context.Background())

	if state != DriveSessionTimeout {
		t.Fatalf("Drive() = %v, want DriveSessionTimeout", state)
	}
	if inst.SessionState() != SessionInactive {
		t.Fatalf("session state = %v, want INACTIVE", inst.SessionState())
	}
}

func TestDrive_CommandDisallowedInCurrentState(t *testing.T) {
	inst, adapter, _ := newTestInstance(t)
	// REBOOT requires an ACTIVE session; the instance starts INACTIVE.
	var reported []ErrorKind
	inst.cb.Err = func(i *Instance, kind ErrorKind, frame []byte) { reported = append(reported, kind) }

	buf := make([]byte, 8)
	n, err := wire.BuildReboot(buf, 0, 5000)
	if err != nil {
		t.Fatalf("BuildReboot: %v", err)
	}
	adapter.Inject(buf[:n])

	state := inst.Drive(context.Background())
	if state != DriveError {
		t.Fatalf("Drive() = %v, want DriveError", state)
	}
	if len(reported) != 1 || reported[0] != ErrKindNoSession {
		t.Fatalf("reported = %v, want [NoSession]", reported)
	}
	if len(adapter.Sent()) != 0 {
		t.Fatalf("no reply should have been sent, got %v", adapter.Sent())
	}
}

// TestDrive_ForbiddenVariantReportsMsgTooLong: a size-table entry of 0
// means the variant is forbidden, reported as MsgTooLong rather than
// InvalidMsgType. KEEP_ALIVE has no COMMAND variant
// (sizeTable[KeepAlive][MsgCommand] == 0).
func TestDrive_ForbiddenVariantReportsMsgTooLong(t *testing.T) {
	inst, adapter, _ := newTestInstance(t)
	var reported []ErrorKind
	inst.cb.Err = func(i *Instance, kind ErrorKind, frame []byte) { reported = append(reported, kind) }

	adapter.Inject([]byte{wire.PackHeader(wire.KeepAlive, 0, wire.MsgCommand)})

	state := inst.Drive(context.Background())
	if state != DriveError {
		t.Fatalf("Drive() = %v, want DriveError", state)
	}
	if len(reported) != 1 || reported[0] != ErrKindMsgTooLong {
		t.Fatalf("reported = %v, want [MsgTooLong]", reported)
	}
}

// TestDrive_MsgTypeOutOfRangeReportsInvalidMsgType exercises the other
// branch: a msgType value with no row in the size table at all (as
// opposed to a row whose entry is 0) is still InvalidMsgType.
func TestDrive_MsgTypeOutOfRangeReportsInvalidMsgType(t *testing.T) {
	inst, adapter, _ := newTestInstance(t)
	var reported []ErrorKind
	inst.cb.Err = func(i *Instance, kind ErrorKind, frame []byte) { reported = append(reported, kind) }

	// KeepAlive's variantLimits array has length 5 (indices 0..4); 6 and 7
	// are in MsgType's lenient range but out of range for the table.
	adapter.Inject([]byte{wire.PackHeader(wire.KeepAlive, 0, wire.MsgType(6))})

	state := inst.Drive(context.Background())
	if state != DriveError {
		t.Fatalf("Drive() = %v, want DriveError", state)
	}
	if len(reported) != 1 || reported[0] != ErrKindInvalidMsgType {
		t.Fatalf("reported = %v, want [InvalidMsgType]", reported)
	}
}

func TestDrive_InvalidCommandRejected(t *testing.T) {
	inst, adapter, _ := newTestInstance(t)
	var reported []ErrorKind
	inst.cb.Err = func(i *Instance, kind ErrorKind, frame []byte) { reported = append(reported, kind) }

	adapter.Inject([]byte{0x00}) // command nibble 0 is illegal

	state := inst.Drive(context.Background())
	if state != DriveError {
		t.Fatalf("Drive() = %v, want DriveError", state)
	}
	if len(reported) != 1 || reported[0] != ErrKindInvalidCommand {
		t.Fatalf("reported = %v, want [InvalidCommand]", reported)
	}
}

func TestDrive_BeginSessionDefaultAcksAndEntersStarting(t *testing.T) {
	inst, adapter, _ := newTestInstance(t)

	buf := make([]byte, 1)
	n, err := wire.BuildBeginSession(buf, 0)
	if err != nil {
		t.Fatalf("BuildBeginSession: %v", err)
	}
	adapter.Inject(buf[:n])

	startToggle := inst.Toggle()
	state := inst.Drive(context.Background())
	if state != DriveOk {
		t.Fatalf("Drive() = %v, want DriveOk", state)
	}
	if inst.SessionState() != SessionStarting {
		t.Fatalf("session state = %v, want STARTING", inst.SessionState())
	}
	sent := adapter.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected one ACK sent, got %d", len(sent))
	}
	cmd, toggle, msgType := wire.ParseHeader(sent[0][0])
	if cmd != wire.BeginSession || msgType != wire.MsgAck || toggle != startToggle {
		t.Fatalf("unexpected ack header: cmd=%v msgType=%v toggle=%d", cmd, msgType, toggle)
	}
	if inst.Toggle() == startToggle {
		t.Fatalf("toggle did not invert after successful send")
	}
}

func TestDrive_BeginSessionHandlerFailureRevertsToInactive(t *testing.T) {
	inst, adapter, _ := newTestInstance(t)
	inst.InstallHandler(wire.BeginSession, func(i *Instance, toggle uint8, msgType wire.MsgType, payload []byte) error {
		return errFake
	})

	buf := make([]byte, 1)
	n, _ := wire.BuildBeginSession(buf, 0)
	adapter.Inject(buf[:n])

	state := inst.Drive(context.Background())
	if state != DriveError {
		t.Fatalf("Drive() = %v, want DriveError", state)
	}
	if inst.SessionState() != SessionInactive {
		t.Fatalf("session state = %v, want INACTIVE after handler failure", inst.SessionState())
	}
}

func TestDrive_EndSessionAlwaysReturnsToInactive(t *testing.T) {
	inst, adapter, _ := newTestInstance(t)
	inst.enterActive()

	buf := make([]byte, 1)
	n, _ := wire.BuildEndSession(buf, 0)
	adapter.Inject(buf[:n])

	state := inst.Drive(context.Background())
	if state != DriveSessionEnded {
		t.Fatalf("Drive() = %v, want DriveSessionEnded", state)
	}
	if inst.SessionState() != SessionInactive {
		t.Fatalf("session state = %v, want INACTIVE", inst.SessionState())
	}
	if len(adapter.Sent()) != 1 {
		t.Fatalf("expected one ACK sent, got %d", len(adapter.Sent()))
	}
}

func TestDrive_UnsupportedCommandDefaultsToNak(t *testing.T) {
	inst, adapter, _ := newTestInstance(t)
	inst.enterActive()

	buf := make([]byte, 8)
	n, _ := wire.BuildReboot(buf, 0, 1000)
	adapter.Inject(buf[:n])

	state := inst.Drive(context.Background())
	if state != DriveSessionActive {
		t.Fatalf("Drive() = %v, want DriveSessionActive", state)
	}
	sent := adapter.Sent()
	if len(sent) != 1 {
		t.Fatalf("expected one NAK sent, got %d", len(sent))
	}
	_, _, msgType := wire.ParseHeader(sent[0][0])
	if msgType != wire.MsgNak {
		t.Fatalf("msgType = %v, want NAK", msgType)
	}
}

func TestInstallPeriodic_RunsWhenDue(t *testing.T) {
	inst, _, clock := newTestInstance(t)
	var calls int
	if !inst.InstallPeriodic(10*time.Second, func(i *Instance) { calls++ }) {
		t.Fatal("InstallPeriodic rejected")
	}

	inst.Drive(context.Background()) // first Drive: not due yet (last == now)
	if calls != 0 {
		t.Fatalf("calls = %d, want 0 before interval elapses", calls)
	}

	clock.Advance(11 * time.Second)
	inst.Drive(context.Background())
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 after interval elapses", calls)
	}
}

func TestInstallPeriodic_RespectsCap(t *testing.T) {
	inst, _, _ := newTestInstance(t)
	ok := true
	for i := 0; i < inst.cfg.MaxPeriodicCommands; i++ {
		ok = inst.InstallPeriodic(time.Second, func(i *Instance) {})
		if !ok {
			t.Fatalf("InstallPeriodic rejected before reaching cap at i=%d", i)
		}
	}
	if inst.InstallPeriodic(time.Second, func(i *Instance) {}) {
		t.Fatal("InstallPeriodic should reject once MaxPeriodicCommands is reached")
	}
}

var errFake = fakeErr{}

type fakeErr struct{}

func (fakeErr) Error() string { return "fake handler failure" }
