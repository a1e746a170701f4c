// Package session implements the authenticated install sequence:
// begin_session → negotiate_mtu → encrypt the challenge → transfer it
// over xfer at a reserved image index → install_image to promote the
// session to ACTIVE → transfer the real firmware image → install_image
// again to commit it, tearing down (end_session) on any failure.
package session

import (
	"context"
	"fmt"

	"github.com/tdw-glyd/dfu-proto/internal/cryptoprovider"
	"github.com/tdw-glyd/dfu-proto/internal/logging"
	"github.com/tdw-glyd/dfu-proto/internal/transaction"
	"github.com/tdw-glyd/dfu-proto/internal/wire"
	"github.com/tdw-glyd/dfu-proto/internal/xfer"
)

var sessionLog = logging.For("session")

// ReservedChallengeIndex is the image index reserved for the
// challenge-response handshake's ciphertext transfer; real firmware
// images always use index 1 or above.
const ReservedChallengeIndex uint8 = 0

// Sequencer drives one full authenticated install over a
// transaction.Client, using encrypter to seal the BEGIN_SESSION
// challenge before it rides the ordinary xfer path to the target.
type Sequencer struct {
	client    *transaction.Client
	orch      *xfer.Orchestrator
	encrypter cryptoprovider.ChallengeEncrypter
}

// NewSequencer wires client, an orchestrator built on the same client,
// and encrypter together.
func NewSequencer(client *transaction.Client, encrypter cryptoprovider.ChallengeEncrypter) *Sequencer {
	return &Sequencer{
		client:    client,
		orch:      xfer.NewOrchestrator(client),
		encrypter: encrypter,
	}
}

// Image describes one firmware image destined for a specific address.
type Image struct {
	Index     uint8
	Encrypted bool
	Addr      uint32
	Data      []byte
}

// Open runs the full handshake-then-install sequence: negotiate mtu,
// exchange the encrypted challenge, then transfer and install img.
// Any failure after BEGIN_SESSION tears the session down with
// END_SESSION before returning.
func (s *Sequencer) Open(ctx context.Context, proposedMTU uint16, img Image, progress xfer.ProgressFunc) error {
	log := sessionLog.WithField("image_index", img.Index)
	log.Info("opening session")

	challenge, err := s.client.BeginSession(ctx)
	if err != nil {
		return fmt.Errorf("session: BEGIN_SESSION: %w", err)
	}

	if _, err := s.client.NegotiateMTU(ctx, proposedMTU); err != nil {
		return s.abort(ctx, fmt.Errorf("session: NEGOTIATE_MTU: %w", err))
	}

	ciphertext, err := s.encrypter.EncryptChallenge(challenge)
	if err != nil {
		return s.abort(ctx, fmt.Errorf("session: encrypting challenge: %w", err))
	}

	challengeParams := wire.BeginRcvParams{
		ImageIndex: ReservedChallengeIndex,
		Size:       uint32(len(ciphertext)),
	}
	if res := s.orch.Send(ctx, challengeParams, ciphertext, nil); res.Err != nil {
		return s.abort(ctx, fmt.Errorf("session: transferring encrypted challenge: %w", res.Err))
	}

	if err := s.client.InstallImage(ctx); err != nil {
		return s.abort(ctx, fmt.Errorf("session: INSTALL_IMAGE (challenge): %w", err))
	}
	s.client.PromoteActive()
	log.Debug("challenge accepted, session promoted to ACTIVE")

	imageParams := wire.BeginRcvParams{
		ImageIndex: img.Index,
		Encrypted:  img.Encrypted,
		Size:       uint32(len(img.Data)),
		Addr:       img.Addr,
	}
	res := s.orch.Send(ctx, imageParams, img.Data, progress)
	if res.Err != nil {
		return s.abort(ctx, fmt.Errorf("session: transferring image %d: %w", img.Index, res.Err))
	}

	if err := s.client.InstallImage(ctx); err != nil {
		return s.abort(ctx, fmt.Errorf("session: INSTALL_IMAGE (image %d): %w", img.Index, err))
	}

	log.Info("session complete, image installed")
	return nil
}

// Close ends the session cleanly, e.g. after Reboot has been issued.
func (s *Sequencer) Close(ctx context.Context) error {
	return s.client.EndSession(ctx)
}

func (s *Sequencer) abort(ctx context.Context, cause error) error {
	sessionLog.WithError(cause).Warn("aborting session")
	if err := s.client.EndSession(ctx); err != nil {
		sessionLog.WithError(err).Warn("END_SESSION during abort also failed")
	}
	return cause
}
