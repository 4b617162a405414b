package channel

import (
	"crypto/ed25519"
	"io"

	"golang.org/x/crypto/curve25519"
)

// Identity is a participant's complete (private, public) key material: an
// Ed25519 signing pair, which is the identity used in every store, and an
// X25519 key-agreement pair derived deterministically from it.
//
// The derivation follows the same shape as djb.go's Generate: clamp 32
// bytes of key material into a valid X25519 scalar and compute the
// matching basepoint multiple.
type Identity struct {
	sigPriv ed25519.PrivateKey
	sigPub  ed25519.PublicKey

	kePriv [32]byte
	kePub  [32]byte
}

// SigPublic returns the Ed25519 public key, the identity used throughout
// PkStore and every wire message.
func (id *Identity) SigPublic() ed25519.PublicKey { return id.sigPub }

// KePublic returns the derived X25519 public key.
func (id *Identity) KePublic() [32]byte { return id.kePub }

// GenerateIdentity draws an Ed25519 seed from r (the caller-supplied PRNG)
// and derives the corresponding X25519 key-agreement pair from it, so a
// single seed deterministically fixes both key pairs.
func GenerateIdentity(r io.Reader) (*Identity, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, errf("GenerateIdentity", CryptoFailure, "read seed: %w", err)
	}
	return identityFromSeed(seed)
}

func identityFromSeed(seed []byte) (*Identity, error) {
	sigPriv := ed25519.NewKeyFromSeed(seed)
	sigPub := sigPriv.Public().(ed25519.PublicKey)

	id := &Identity{sigPriv: sigPriv, sigPub: sigPub}
	copy(id.kePriv[:], seed)
	id.kePriv[0] &= 248
	id.kePriv[31] &= 127
	id.kePriv[31] |= 64

	pub, err := curve25519.X25519(id.kePriv[:], curve25519.Basepoint)
	if err != nil {
		return nil, errf("GenerateIdentity", CryptoFailure, "derive x25519: %w", err)
	}
	copy(id.kePub[:], pub)
	return id, nil
}

// sharedSecret computes the X25519 Diffie-Hellman value between this
// identity's key-agreement private key and a peer's key-agreement public
// key, used to derive the symmetric key that protects subscribe and
// keyload bodies.
func (id *Identity) sharedSecret(peerKePub [32]byte) ([]byte, error) {
	secret, err := curve25519.X25519(id.kePriv[:], peerKePub[:])
	if err != nil {
		return nil, errf("sharedSecret", CryptoFailure, "x25519: %w", err)
	}
	return secret, nil
}
