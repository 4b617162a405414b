package channel

import (
	"crypto/ed25519"
	"encoding/binary"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
)

// keyloadRecipientKe is one recipient of a keyload message, wrapped via
// its static X25519 public key.
type keyloadRecipientKe struct {
	SigPk ed25519.PublicKey
	KePub [32]byte
}

// keyloadWrap builds a KEYLOAD body: a fresh session key encrypted once
// per PSK recipient and once per ke-recipient, followed by a signature
// over the whole thing. ECDH here is static-static (no ephemeral key on
// the author side); forward secrecy beyond keyload rotation is out of
// scope.
type keyloadWrap struct {
	rng        io.Reader
	linkTo     Rel
	author     *Identity
	psks       []PskEntry
	recipients []keyloadRecipientKe
	sessionKey [32]byte // fresh per keyload, absorbed so payloads under this branch are bound to it
}

var _ contentWrap = (*keyloadWrap)(nil)

func (c *keyloadWrap) wrap(store LinkStore, hdrBytes []byte) ([]byte, *Spongos, error) {
	parent, err := forkParent(store, c.linkTo)
	if err != nil {
		return nil, nil, err
	}
	parent.AbsorbExternal(hdrBytes)
	parent.Absorb(c.linkTo[:])

	nonce := make([]byte, 16)
	if _, err := io.ReadFull(c.rng, nonce); err != nil {
		return nil, nil, errf("wrap keyload", CryptoFailure, "read nonce: %w", err)
	}

	body := make([]byte, 0, 256)
	body = append(body, nonce...)

	var pskCount [4]byte
	binary.BigEndian.PutUint32(pskCount[:], uint32(len(c.psks)))
	body = append(body, pskCount[:]...)
	for _, p := range c.psks {
		key, aeadNonce := deriveAEAD(p.Psk[:], append(append([]byte(nil), nonce...), []byte("streamchannel/keyload/psk")...))
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, nil, errf("wrap keyload", CryptoFailure, "new aead: %w", err)
		}
		ct := aead.Seal(nil, aeadNonce, c.sessionKey[:], hdrBytes)
		body = append(body, p.Id[:]...)
		body = putLenPrefixed(body, ct)
	}

	var keCount [4]byte
	binary.BigEndian.PutUint32(keCount[:], uint32(len(c.recipients)))
	body = append(body, keCount[:]...)
	for _, r := range c.recipients {
		secret, err := x25519DH(c.author.kePriv, r.KePub)
		if err != nil {
			return nil, nil, err
		}
		key, aeadNonce := deriveAEAD(secret, append(append([]byte(nil), nonce...), []byte("streamchannel/keyload/ke")...))
		aead, err := chacha20poly1305.NewX(key)
		if err != nil {
			return nil, nil, errf("wrap keyload", CryptoFailure, "new aead: %w", err)
		}
		ct := aead.Seal(nil, aeadNonce, c.sessionKey[:], hdrBytes)
		body = append(body, r.SigPk...)
		body = append(body, r.KePub[:]...)
		body = putLenPrefixed(body, ct)
	}

	parent.Absorb(body)
	digest := parent.Squeeze(32)
	sig := ed25519.Sign(c.author.sigPriv, digest)
	parent.Absorb(sig)
	parent.Absorb(c.sessionKey[:])

	wire := make([]byte, 0, 32+len(body)+len(sig))
	wire = append(wire, c.linkTo[:]...)
	wire = append(wire, body...)
	wire = append(wire, sig...)
	return wire, parent, nil
}

// keyloadUnwrap decrypts whichever recipient slot (PSK or ke) this
// participant can open, and records every ke-recipient identity observed
// in the message so the caller can learn about peers it hasn't met yet.
type keyloadUnwrap struct {
	self        *Identity
	pskStore    PskStore
	authorSigPk ed25519.PublicKey
	authorKePub [32]byte

	SessionKey [32]byte
	Opened     bool
	Observed   []keyloadRecipientKe
}

var _ contentUnwrap = (*keyloadUnwrap)(nil)

func (c *keyloadUnwrap) unwrap(store LinkStore, hdrBytes, body []byte) (*Spongos, error) {
	if len(body) < 32 {
		return nil, errf("unwrap keyload", EncodingError, "truncated body")
	}
	var linkTo Rel
	copy(linkTo[:], body[:32])
	body = body[32:]

	parent, err := forkParent(store, linkTo)
	if err != nil {
		return nil, err
	}
	parent.AbsorbExternal(hdrBytes)
	parent.Absorb(linkTo[:])

	orig := body

	if len(body) < 16+4 {
		return nil, errf("unwrap keyload", EncodingError, "truncated body")
	}
	nonce := body[:16]
	body = body[16:]

	pskCount := binary.BigEndian.Uint32(body[:4])
	body = body[4:]
	for i := uint32(0); i < pskCount; i++ {
		if len(body) < 16 {
			return nil, errf("unwrap keyload", EncodingError, "truncated psk slot")
		}
		var id PskId
		copy(id[:], body[:16])
		body = body[16:]
		ct, rest, err := getLenPrefixed(body)
		if err != nil {
			return nil, err
		}
		body = rest

		if !c.Opened {
			if psk, ok := c.pskStore.Get(id); ok {
				key, aeadNonce := deriveAEAD(psk[:], append(append([]byte(nil), nonce...), []byte("streamchannel/keyload/psk")...))
				if aead, aerr := chacha20poly1305.NewX(key); aerr == nil {
					if pt, derr := aead.Open(nil, aeadNonce, ct, hdrBytes); derr == nil && len(pt) == 32 {
						copy(c.SessionKey[:], pt)
						c.Opened = true
					}
				}
			}
		}
	}

	if len(body) < 4 {
		return nil, errf("unwrap keyload", EncodingError, "truncated ke count")
	}
	keCount := binary.BigEndian.Uint32(body[:4])
	body = body[4:]
	for i := uint32(0); i < keCount; i++ {
		if len(body) < ed25519.PublicKeySize+32 {
			return nil, errf("unwrap keyload", EncodingError, "truncated ke slot")
		}
		sigPk := append(ed25519.PublicKey(nil), body[:ed25519.PublicKeySize]...)
		body = body[ed25519.PublicKeySize:]
		var kePub [32]byte
		copy(kePub[:], body[:32])
		body = body[32:]
		ct, rest, err := getLenPrefixed(body)
		if err != nil {
			return nil, err
		}
		body = rest

		c.Observed = append(c.Observed, keyloadRecipientKe{SigPk: sigPk, KePub: kePub})

		if !c.Opened && sigPk.Equal(c.self.SigPublic()) {
			secret, err := c.self.sharedSecret(c.authorKePub)
			if err == nil {
				key, aeadNonce := deriveAEAD(secret, append(append([]byte(nil), nonce...), []byte("streamchannel/keyload/ke")...))
				if aead, aerr := chacha20poly1305.NewX(key); aerr == nil {
					if pt, derr := aead.Open(nil, aeadNonce, ct, hdrBytes); derr == nil && len(pt) == 32 {
						copy(c.SessionKey[:], pt)
						c.Opened = true
					}
				}
			}
		}
	}

	if len(body) < ed25519.SignatureSize {
		return nil, errf("unwrap keyload", EncodingError, "truncated signature")
	}
	sig := body[:ed25519.SignatureSize]

	signed := orig[:len(orig)-ed25519.SignatureSize]
	parent.Absorb(signed)
	digest := parent.Squeeze(32)
	if !ed25519.Verify(c.authorSigPk, digest, sig) {
		return nil, errf("unwrap keyload", CryptoFailure, "bad keyload signature")
	}
	parent.Absorb(sig)
	if c.Opened {
		parent.Absorb(c.SessionKey[:])
	}

	return parent, nil
}
