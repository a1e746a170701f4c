package wire

import "testing"

func TestMaxLenFor_ZeroEntryIsForbidden(t *testing.T) {
	// KEEP_ALIVE has no COMMAND variant (entry 0): "forbidden", not
	// "zero length OK".
	if _, ok := MaxLenFor(KeepAlive, MsgCommand, 64); ok {
		t.Fatalf("KEEP_ALIVE COMMAND should be forbidden (size-table entry 0)")
	}
}

func TestMaxLenFor_MTUSentinel(t *testing.T) {
	max, ok := MaxLenFor(RcvData, MsgCommand, 128)
	if !ok || max != 128 {
		t.Fatalf("RCV_DATA COMMAND should resolve to the live MTU, got max=%d ok=%v", max, ok)
	}
}

func TestMaxLenFor_KnownVariants(t *testing.T) {
	cases := []struct {
		cmd     Command
		msgType MsgType
		want    uint16
	}{
		{NegotiateMTU, MsgCommand, 3},
		{NegotiateMTU, MsgResponse, 3},
		{BeginRcv, MsgCommand, 8},
		{DeviceStatus, MsgResponse, 8},
		{DeviceStatus, MsgUnsolicited, 8},
		{KeepAlive, MsgUnsolicited, 1},
		{BeginSession, MsgResponse, 5},
		{InstallImage, MsgCommand, 1},
	}
	for _, c := range cases {
		got, ok := MaxLenFor(c.cmd, c.msgType, 1500)
		if !ok || got != c.want {
			t.Fatalf("MaxLenFor(%v,%v) = (%d,%v), want (%d,true)", c.cmd, c.msgType, got, ok, c.want)
		}
	}
}
