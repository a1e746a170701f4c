package cryptoprovider

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
)

// RSAEncrypter encrypts challenges with RSA-OAEP for a peer that only
// carries an RSA key pair — the stdlib fallback for targets without a
// Curve25519 stack.
type RSAEncrypter struct {
	pub *rsa.PublicKey
}

// NewRSAEncrypter returns an encrypter targeting pub.
func NewRSAEncrypter(pub *rsa.PublicKey) RSAEncrypter {
	return RSAEncrypter{pub: pub}
}

// EncryptChallenge encrypts challenge (4 little-endian bytes) with
// RSA-OAEP/SHA-256.
func (e RSAEncrypter) EncryptChallenge(challenge uint32) ([]byte, error) {
	msg := make([]byte, 4)
	binary.LittleEndian.PutUint32(msg, challenge)
	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, e.pub, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("cryptoprovider: RSA-OAEP encrypt: %w", err)
	}
	return ct, nil
}

// RSADecrypter decrypts challenges with a private key.
type RSADecrypter struct {
	priv *rsa.PrivateKey
}

// NewRSADecrypter returns a decrypter holding priv.
func NewRSADecrypter(priv *rsa.PrivateKey) RSADecrypter {
	return RSADecrypter{priv: priv}
}

// DecryptChallenge reverses RSAEncrypter.EncryptChallenge.
func (d RSADecrypter) DecryptChallenge(ciphertext []byte) (uint32, error) {
	msg, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, d.priv, ciphertext, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
	}
	if len(msg) < 4 {
		return 0, fmt.Errorf("%w: opened message too short (%d bytes)", ErrDecryptFailed, len(msg))
	}
	return binary.LittleEndian.Uint32(msg), nil
}
