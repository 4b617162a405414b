package channel

import "crypto/ed25519"

// signedPacketWrap builds a SIGNED_PACKET body: the parent link it joins
// against (in the clear), a public part absorbed in the clear, a masked
// (encrypted-in-sponge) private part, and a signature over all of it by
// the publishing user's identity.
type signedPacketWrap struct {
	id      *Identity
	linkTo  Rel
	public  []byte
	private []byte
}

var _ contentWrap = (*signedPacketWrap)(nil)

func (c *signedPacketWrap) wrap(store LinkStore, hdrBytes []byte) ([]byte, *Spongos, error) {
	parent, err := forkParent(store, c.linkTo)
	if err != nil {
		return nil, nil, err
	}
	parent.AbsorbExternal(hdrBytes)
	parent.Absorb(c.linkTo[:])

	body := append([]byte(nil), c.linkTo[:]...)
	body = putLenPrefixed(body, c.public)
	parent.Absorb(c.public)

	ct := parent.Encrypt(c.private)
	body = putLenPrefixed(body, ct)

	body = append(body, c.id.SigPublic()...)
	parent.Absorb(c.id.SigPublic())

	digest := parent.Squeeze(32)
	sig := ed25519.Sign(c.id.sigPriv, digest)
	parent.Absorb(sig)

	body = append(body, sig...)
	return body, parent, nil
}

// signedPacketUnwrap is the unwrap-side content of a SIGNED_PACKET
// message: the recovered public/private payloads and signer identity.
type signedPacketUnwrap struct {
	SignerSigPk ed25519.PublicKey
	Public      []byte
	Private     []byte
}

var _ contentUnwrap = (*signedPacketUnwrap)(nil)

func (c *signedPacketUnwrap) unwrap(store LinkStore, hdrBytes, body []byte) (*Spongos, error) {
	if len(body) < 32 {
		return nil, errf("unwrap signed_packet", EncodingError, "truncated body")
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

	public, rest, err := getLenPrefixed(body)
	if err != nil {
		return nil, err
	}
	parent.Absorb(public)

	ct, rest2, err := getLenPrefixed(rest)
	if err != nil {
		return nil, err
	}
	private := parent.Decrypt(ct)

	if len(rest2) < ed25519.PublicKeySize+ed25519.SignatureSize {
		return nil, errf("unwrap signed_packet", EncodingError, "truncated signer/signature")
	}
	sigPk := append(ed25519.PublicKey(nil), rest2[:ed25519.PublicKeySize]...)
	sig := rest2[ed25519.PublicKeySize : ed25519.PublicKeySize+ed25519.SignatureSize]
	parent.Absorb(sigPk)

	digest := parent.Squeeze(32)
	if !ed25519.Verify(sigPk, digest, sig) {
		return nil, errf("unwrap signed_packet", CryptoFailure, "bad signed_packet signature")
	}
	parent.Absorb(sig)

	c.SignerSigPk = sigPk
	c.Public = append([]byte(nil), public...)
	c.Private = private
	return parent, nil
}
