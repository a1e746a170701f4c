package cryptoprovider

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/box"
)

// KeyPair is a Curve25519 key pair, as used by nacl/box.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateKeyPair creates a fresh Curve25519 key pair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("cryptoprovider: generating box key pair: %w", err)
	}
	return KeyPair{Public: *pub, Private: *priv}, nil
}

// deriveNonce matches kryptco-kr's krypto.go sealed-box scheme: the
// nonce is blake2b(ephemeral_public || recipient_public), truncated to
// the 24 bytes nacl/box requires, rather than a random value — this
// lets the recipient recompute it without the sender transmitting it
// separately.
func deriveNonce(ephemeralPublic, recipientPublic [32]byte) [24]byte {
	preimage := make([]byte, 0, 64)
	preimage = append(preimage, ephemeralPublic[:]...)
	preimage = append(preimage, recipientPublic[:]...)
	sum := blake2b.Sum256(preimage)
	var nonce [24]byte
	copy(nonce[:], sum[:24])
	return nonce
}

// BoxEncrypter encrypts challenges for one specific recipient public key.
type BoxEncrypter struct {
	peerPublic [32]byte
}

// NewBoxEncrypter returns an encrypter targeting peerPublic.
func NewBoxEncrypter(peerPublic [32]byte) BoxEncrypter {
	return BoxEncrypter{peerPublic: peerPublic}
}

// EncryptChallenge seals challenge (as 4 little-endian bytes) to the
// recipient using a fresh ephemeral key pair, prefixing the ephemeral
// public key to the ciphertext so the recipient can recompute the nonce.
func (e BoxEncrypter) EncryptChallenge(challenge uint32) ([]byte, error) {
	msg := make([]byte, 4)
	binary.LittleEndian.PutUint32(msg, challenge)

	ephPub, ephPriv, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("cryptoprovider: generating ephemeral key: %w", err)
	}
	nonce := deriveNonce(*ephPub, e.peerPublic)

	sealed := box.Seal(nil, msg, &nonce, &e.peerPublic, ephPriv)
	out := make([]byte, 0, 32+len(sealed))
	out = append(out, ephPub[:]...)
	out = append(out, sealed...)
	return out, nil
}

// BoxDecrypter decrypts challenges addressed to one specific key pair.
type BoxDecrypter struct {
	keys KeyPair
}

// NewBoxDecrypter returns a decrypter holding keys.
func NewBoxDecrypter(keys KeyPair) BoxDecrypter {
	return BoxDecrypter{keys: keys}
}

// DecryptChallenge reverses BoxEncrypter.EncryptChallenge.
func (d BoxDecrypter) DecryptChallenge(ciphertext []byte) (uint32, error) {
	if len(ciphertext) < 32+box.Overhead+4 {
		return 0, fmt.Errorf("%w: ciphertext too short (%d bytes)", ErrDecryptFailed, len(ciphertext))
	}
	var ephPub [32]byte
	copy(ephPub[:], ciphertext[:32])
	nonce := deriveNonce(ephPub, d.keys.Public)

	msg, ok := box.Open(nil, ciphertext[32:], &nonce, &ephPub, &d.keys.Private)
	if !ok {
		return 0, ErrDecryptFailed
	}
	if len(msg) < 4 {
		return 0, fmt.Errorf("%w: opened message too short (%d bytes)", ErrDecryptFailed, len(msg))
	}
	return binary.LittleEndian.Uint32(msg), nil
}
