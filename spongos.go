package channel

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Spongos is the duplex sponge state the rest of the core treats as an
// opaque collaborator. Content wrappers only ever call Absorb,
// AbsorbExternal, Encrypt, Decrypt, Squeeze, Tag, and Fork; nothing reaches
// inside.
//
// The construction chains crypto/hmac + golang.org/x/crypto/hkdf exactly
// the way djb.go's KDFrk/KDFck and derive build the Double Ratchet's KDF
// chains: each absorb re-keys an HMAC over the running state, and each
// squeeze/encrypt/tag expands fresh output from an HKDF keyed by the
// current state with a domain-separating info string.
type Spongos struct {
	state [sha256.Size]byte
}

const (
	domainAbsorb   = "absorb"
	domainExternal = "external"
	domainSqueeze  = "squeeze"
	domainMask     = "mask"
	domainTag      = "tag"
)

// NewSpongos returns a sponge in its initial (zero) state.
func NewSpongos() *Spongos {
	return &Spongos{}
}

// Fork returns an independent copy of the sponge state, so a child
// message can continue from a committed parent without disturbing it.
func (s *Spongos) Fork() *Spongos {
	clone := *s
	return &clone
}

func (s *Spongos) rekey(domain string, data []byte) {
	h := hmac.New(sha256.New, s.state[:])
	h.Write([]byte(domain))
	h.Write(data)
	copy(s.state[:], h.Sum(nil))
}

// Absorb mixes data the wrapper considers part of the message body into
// the sponge state.
func (s *Spongos) Absorb(data []byte) {
	s.rekey(domainAbsorb, data)
}

// AbsorbExternal mixes data that is authenticated but not carried as part
// of this content's own body — the header bytes, most notably.
func (s *Spongos) AbsorbExternal(data []byte) {
	s.rekey(domainExternal, data)
}

// expand derives n bytes of output from the current state under a
// domain-separating label, without mutating the state.
func (s *Spongos) expand(domain string, n int) []byte {
	r := hkdf.New(sha256.New, s.state[:], nil, []byte(domain))
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		// hkdf.New over sha256 can only fail to expand past 255*32
		// bytes; n never approaches that for any wire field this
		// package produces.
		panic("channel: spongos expand: " + err.Error())
	}
	return out
}

// Squeeze derives n bytes of output from the current state. It does not
// mutate the state; callers that want the output bound into subsequent
// operations must Absorb it back explicitly (see Encrypt, Tag).
func (s *Spongos) Squeeze(n int) []byte {
	return s.expand(domainSqueeze, n)
}

func xor(dst, a, b []byte) {
	for i := range a {
		dst[i] = a[i] ^ b[i]
	}
}

// Encrypt masks plaintext with a keystream derived from the current
// state and absorbs the resulting ciphertext back in, so later operations
// (and the receiver's matching Decrypt) observe the same state.
func (s *Spongos) Encrypt(plaintext []byte) []byte {
	mask := s.expand(domainMask, len(plaintext))
	ct := make([]byte, len(plaintext))
	xor(ct, plaintext, mask)
	s.Absorb(ct)
	return ct
}

// Decrypt is Encrypt's inverse: it unmasks ciphertext with the same
// keystream derivation and absorbs the ciphertext (not the plaintext)
// back into the state, mirroring the sender's Encrypt exactly.
func (s *Spongos) Decrypt(ciphertext []byte) []byte {
	mask := s.expand(domainMask, len(ciphertext))
	pt := make([]byte, len(ciphertext))
	xor(pt, ciphertext, mask)
	s.Absorb(ciphertext)
	return pt
}

// MarshalBinary returns the raw sponge state, so a LinkStore backed by
// persistent storage (see package boltstore) can serialize it.
func (s *Spongos) MarshalBinary() ([]byte, error) {
	return append([]byte(nil), s.state[:]...), nil
}

// UnmarshalBinary restores a sponge state previously produced by
// MarshalBinary.
func (s *Spongos) UnmarshalBinary(data []byte) error {
	if len(data) != sha256.Size {
		return errf("Spongos.UnmarshalBinary", EncodingError, "bad state length: %d", len(data))
	}
	copy(s.state[:], data)
	return nil
}

// Tag derives an n-byte authentication tag from the current transcript
// and absorbs it back in. Two sponges that absorbed the same sequence of
// external/body data (crucially including any previously joined session
// key) produce equal tags; anyone who diverges by even one byte does not.
func (s *Spongos) Tag(n int) []byte {
	tag := s.expand(domainTag, n)
	s.Absorb(tag)
	return tag
}
