// Package xfer implements the image-transfer orchestrator: it drives a
// transaction.Client through BEGIN_RCV → RCV_DATA* → RCV_COMPLETE in
// strict order, chunking the image to the negotiated MTU and reporting
// partial-failure state if any chunk along the way is rejected.
package xfer

import (
	"context"
	"fmt"

	"github.com/tdw-glyd/dfu-proto/internal/logging"
	"github.com/tdw-glyd/dfu-proto/internal/transaction"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
)

var xferLog = logging.For("xfer")

// ProgressFunc is invoked after each chunk the orchestrator successfully
// sends, with the number of bytes sent so far and the total.
type ProgressFunc func(sent, total int)

// Result reports how much of an image transfer actually completed. A
// non-nil Err means the transfer did not finish: BytesSent bytes were
// accepted by the target before the failure. If a chunk was rejected,
// ChunksSent is that chunk's 0-based index and RCV_COMPLETE was never
// sent (the target is left mid-transfer, recoverable only by ABORT_XFER
// or a fresh BEGIN_RCV); if RCV_COMPLETE itself was rejected, every
// chunk was accepted.
type Result struct {
	BytesSent  int
	ChunksSent int
	Err        error
}

// Orchestrator sequences one image transfer over a transaction.Client.
type Orchestrator struct {
	client *transaction.Client
}

// NewOrchestrator wraps client.
func NewOrchestrator(client *transaction.Client) *Orchestrator {
	return &Orchestrator{client: client}
}

// Send runs the full BEGIN_RCV/RCV_DATA/RCV_COMPLETE sequence for data,
// chunked to the client's current MTU minus the 1-byte header. progress
// may be nil.
func (o *Orchestrator) Send(ctx context.Context, params wire.BeginRcvParams, data []byte, progress ProgressFunc) Result {
	log := xferLog.WithField("image_index", params.ImageIndex).WithField("total_bytes", len(data))
	log.Info("beginning image transfer")

	if err := o.client.BeginRcv(ctx, params); err != nil {
		log.WithError(err).Warn("BEGIN_RCV rejected")
		return Result{Err: fmt.Errorf("xfer: BEGIN_RCV: %w", err)}
	}

	chunkSize := int(o.client.MTU()) - 1
	if chunkSize <= 0 {
		return Result{Err: fmt.Errorf("xfer: MTU %d leaves no room for a data chunk", o.client.MTU())}
	}

	sent := 0
	chunks := 0
	for sent < len(data) {
		end := sent + chunkSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[sent:end]

		if err := o.client.RcvData(ctx, chunk); err != nil {
			log.WithError(err).WithField("bytes_sent", sent).Warn("RCV_DATA rejected mid-transfer")
			return Result{BytesSent: sent, ChunksSent: chunks, Err: fmt.Errorf("xfer: RCV_DATA at offset %d: %w", sent, err)}
		}

		sent = end
		chunks++
		if progress != nil {
			progress(sent, len(data))
		}
	}

	if err := o.client.RcvComplete(ctx, uint32(sent)); err != nil {
		log.WithError(err).Warn("RCV_COMPLETE rejected")
		return Result{BytesSent: sent, ChunksSent: chunks, Err: fmt.Errorf("xfer: RCV_COMPLETE: %w", err)}
	}

	log.WithField("chunks", chunks).Info("image transfer complete")
	return Result{BytesSent: sent, ChunksSent: chunks}
}
