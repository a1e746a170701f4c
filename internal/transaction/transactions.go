package transaction

import (
	"context"

	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

// BeginSession issues BEGIN_SESSION and returns the target's 32-bit
// challenge value from its RESPONSE.
func (c *Client) BeginSession(ctx context.Context) (uint32, error) {
	buf := c.inst.Scratch()
	n, err := wire.BuildBeginSession(buf, c.inst.Toggle())
	res, doErr := c.do(ctx, wire.BeginSession, n, err)
	if doErr != nil {
		return 0, doErr
	}
	challenge, err := wire.DecodeBeginSessionResponse(prependHeader(res))
	if err != nil {
		return 0, err
	}
	return challenge, nil
}

// EndSession issues END_SESSION and waits for the ACK.
func (c *Client) EndSession(ctx context.Context) error {
	buf := c.inst.Scratch()
	n, err := wire.BuildEndSession(buf, c.inst.Toggle())
	_, doErr := c.do(ctx, wire.EndSession, n, err)
	return doErr
}

// NegotiateMTU proposes mtu and returns the value the target accepted.
func (c *Client) NegotiateMTU(ctx context.Context, proposed uint16) (uint16, error) {
	buf := c.inst.Scratch()
	n, err := wire.BuildNegotiateMTU(buf, c.inst.Toggle(), wire.MsgCommand, proposed)
	res, doErr := c.do(ctx, wire.NegotiateMTU, n, err)
	if doErr != nil {
		return 0, doErr
	}
	agreed, err := wire.DecodeNegotiateMTU(prependHeader(res))
	if err != nil {
		return 0, err
	}
	c.inst.SetMTU(agreed)
	return agreed, nil
}

// BeginRcv starts an image receive at the target.
func (c *Client) BeginRcv(ctx context.Context, p wire.BeginRcvParams) error {
	buf := c.inst.Scratch()
	n, err := wire.BuildBeginRcv(buf, c.inst.Toggle(), p)
	_, doErr := c.do(ctx, wire.BeginRcv, n, err)
	return doErr
}

// RcvData sends one chunk of image data and waits for its ACK/NAK.
func (c *Client) RcvData(ctx context.Context, data []byte) error {
	buf := c.inst.Scratch()
	n, err := wire.BuildRcvData(buf, c.inst.Toggle(), c.inst.MTU(), data)
	_, doErr := c.do(ctx, wire.RcvData, n, err)
	return doErr
}

// RcvComplete announces total bytes transferred and waits for the ACK.
func (c *Client) RcvComplete(ctx context.Context, total uint32) error {
	buf := c.inst.Scratch()
	n, err := wire.BuildRcvComplete(buf, c.inst.Toggle(), total)
	_, doErr := c.do(ctx, wire.RcvComplete, n, err)
	return doErr
}

// InstallImage commits the most recently completed receive.
func (c *Client) InstallImage(ctx context.Context) error {
	buf := c.inst.Scratch()
	n, err := wire.BuildInstallImage(buf, c.inst.Toggle())
	_, doErr := c.do(ctx, wire.InstallImage, n, err)
	return doErr
}

// Reboot asks the target to reboot after delayMs milliseconds.
func (c *Client) Reboot(ctx context.Context, delayMs uint16) error {
	buf := c.inst.Scratch()
	n, err := wire.BuildReboot(buf, c.inst.Toggle(), delayMs)
	_, doErr := c.do(ctx, wire.Reboot, n, err)
	return doErr
}

// prependHeader reconstructs a full frame (header byte + payload) from a
// Result so it can be run back through the wire package's Decode*
// functions, which all expect the header byte at index 0.
func prependHeader(res Result) []byte {
	out := make([]byte, 1+len(res.Payload))
	out[0] = wire.PackHeader(0, 0, res.MsgType) // command nibble unused by decoders
	copy(out[1:], res.Payload)
	return out
}
