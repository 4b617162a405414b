package channel

import "crypto/ed25519"

// announceWrap builds the ANNOUNCE body: the author's signing identity,
// its X25519 key-agreement public key (so subscribe has something to
// encrypt to as soon as the announcement is observed), and the channel
// flags, signed with the author's key.
type announceWrap struct {
	id    *Identity
	flags byte
}

var _ contentWrap = (*announceWrap)(nil)

const announceBodySize = ed25519.PublicKeySize + 32 + 1

func (c *announceWrap) wrap(store LinkStore, hdrBytes []byte) ([]byte, *Spongos, error) {
	parent := NewSpongos()
	parent.AbsorbExternal(hdrBytes)

	body := make([]byte, 0, announceBodySize)
	body = append(body, c.id.SigPublic()...)
	kePub := c.id.KePublic()
	body = append(body, kePub[:]...)
	body = append(body, c.flags)
	parent.Absorb(body)

	digest := parent.Squeeze(32)
	sig := ed25519.Sign(c.id.sigPriv, digest)
	parent.Absorb(sig)

	wire := append(append([]byte(nil), body...), sig...)
	return wire, parent, nil
}

// announceUnwrap is the unwrap-side content of an ANNOUNCE message: the
// discovered author identity and channel flags.
type announceUnwrap struct {
	SigPk ed25519.PublicKey
	KePk  [32]byte
	Flags byte
}

var _ contentUnwrap = (*announceUnwrap)(nil)

func (c *announceUnwrap) unwrap(store LinkStore, hdrBytes, body []byte) (*Spongos, error) {
	const want = announceBodySize + ed25519.SignatureSize
	if len(body) != want {
		return nil, errf("unwrap announce", EncodingError, "bad body length: %d", len(body))
	}
	parent := NewSpongos()
	sigPk := append(ed25519.PublicKey(nil), body[:ed25519.PublicKeySize]...)
	var kePk [32]byte
	copy(kePk[:], body[ed25519.PublicKeySize:ed25519.PublicKeySize+32])
	flags := body[announceBodySize-1]
	sig := body[announceBodySize:]

	parent.AbsorbExternal(hdrBytes)
	parent.Absorb(body[:announceBodySize])

	digest := parent.Squeeze(32)
	if !ed25519.Verify(sigPk, digest, sig) {
		return nil, errf("unwrap announce", CryptoFailure, "bad announcement signature")
	}
	parent.Absorb(sig)

	c.SigPk = sigPk
	c.KePk = kePk
	c.Flags = flags
	return parent, nil
}
