package channel

import (
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// deriveAEAD expands ikm into an XChaCha20-Poly1305 key and nonce under a
// domain-separating info string, the same derive-then-seal shape as
// djb.go's derive + Seal/Open.
func deriveAEAD(ikm, info []byte) (key, nonce []byte) {
	buf := make([]byte, chacha20poly1305.KeySize+chacha20poly1305.NonceSizeX)
	r := hkdf.New(sha256.New, ikm, nil, info)
	if _, err := io.ReadFull(r, buf); err != nil {
		panic("channel: deriveAEAD: " + err.Error())
	}
	return buf[:chacha20poly1305.KeySize], buf[chacha20poly1305.KeySize:]
}

// generateX25519Ephemeral draws an ephemeral X25519 key pair from r, used
// by subscribe to encrypt to the author without relying on a pre-shared
// static key on the subscriber's side being known yet.
func generateX25519Ephemeral(r io.Reader) (priv, pub [32]byte, err error) {
	if _, err = io.ReadFull(r, priv[:]); err != nil {
		return priv, pub, errf("generateX25519Ephemeral", CryptoFailure, "read seed: %w", err)
	}
	priv[0] &= 248
	priv[31] &= 127
	priv[31] |= 64
	p, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return priv, pub, errf("generateX25519Ephemeral", CryptoFailure, "derive public: %w", err)
	}
	copy(pub[:], p)
	return priv, pub, nil
}

// x25519DH computes the Diffie-Hellman value between an ephemeral/static
// private scalar and a peer's public key, as used by subscribe to reach
// the author without the author's identity needing to hold the
// subscriber's private material.
func x25519DH(priv, peerPub [32]byte) ([]byte, error) {
	secret, err := curve25519.X25519(priv[:], peerPub[:])
	if err != nil {
		return nil, errf("x25519DH", CryptoFailure, "x25519: %w", err)
	}
	return secret, nil
}
