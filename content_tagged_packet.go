package channel

import "crypto/hmac"

// taggedPacketWrap builds a TAGGED_PACKET body: the same joined
// parent-link/public/masked shape as SIGNED_PACKET, but authenticated
// with the session sponge's keyed tag instead of a signature.
type taggedPacketWrap struct {
	linkTo  Rel
	public  []byte
	private []byte
}

var _ contentWrap = (*taggedPacketWrap)(nil)

func (c *taggedPacketWrap) wrap(store LinkStore, hdrBytes []byte) ([]byte, *Spongos, error) {
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

	tag := parent.Tag(32)
	body = append(body, tag...)
	return body, parent, nil
}

// taggedPacketUnwrap is the unwrap-side content of a TAGGED_PACKET
// message.
type taggedPacketUnwrap struct {
	Public  []byte
	Private []byte
}

var _ contentUnwrap = (*taggedPacketUnwrap)(nil)

func (c *taggedPacketUnwrap) unwrap(store LinkStore, hdrBytes, body []byte) (*Spongos, error) {
	if len(body) < 32 {
		return nil, errf("unwrap tagged_packet", EncodingError, "truncated body")
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

	if len(rest2) != 32 {
		return nil, errf("unwrap tagged_packet", EncodingError, "bad tag length: %d", len(rest2))
	}
	wantTag := parent.Tag(32)
	if !hmac.Equal(wantTag, rest2) {
		return nil, errf("unwrap tagged_packet", CryptoFailure, "bad tagged_packet tag")
	}

	c.Public = append([]byte(nil), public...)
	c.Private = private
	return parent, nil
}
