// Package cryptoprovider implements an opaque challenge-encryption
// collaborator: the session sequencer hands it a 32-bit challenge and a
// wire-ready ciphertext comes back, without the sequencer needing to
// know which algorithm produced it. Two concrete providers are offered:
// BoxEncrypter/BoxDecrypter use a nacl/box sealed-box scheme (nacl/box +
// a blake2b-derived nonce), RSAEncrypter/RSADecrypter use RSA-OAEP from
// stdlib crypto/rsa for peers that only carry an
// RSA key pair (e.g. a bootloader built against a vendor RSA toolchain).
package cryptoprovider

import "fmt"

// ErrDecryptFailed is returned (wrapped) when a ciphertext fails to
// authenticate or is too short to be well-formed.
var ErrDecryptFailed = fmt.Errorf("cryptoprovider: decryption failed")

// ChallengeEncrypter encrypts a challenge value for a specific peer.
// Implemented by BoxEncrypter and RSAEncrypter.
type ChallengeEncrypter interface {
	EncryptChallenge(challenge uint32) ([]byte, error)
}

// ChallengeDecrypter recovers a challenge value from ciphertext produced
// by the matching ChallengeEncrypter. Implemented by BoxDecrypter and
// RSADecrypter.
type ChallengeDecrypter interface {
	DecryptChallenge(ciphertext []byte) (uint32, error)
}
