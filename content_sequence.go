package channel

import (
	"crypto/ed25519"
	"crypto/hmac"
	"encoding/binary"
)

const sequenceBodySize = 32 + ed25519.PublicKeySize + 4 + 32 // link + pk + seqNum + refLink

// sequenceWrap builds a SEQUENCE message body: the publisher's cursor link,
// the publisher's identity, the sequence number, and the link of the
// payload message it points at.
type sequenceWrap struct {
	link    Rel
	pk      ed25519.PublicKey
	seqNum  uint32
	refLink Rel
}

var _ contentWrap = (*sequenceWrap)(nil)

func (c *sequenceWrap) wrap(store LinkStore, hdrBytes []byte) ([]byte, *Spongos, error) {
	// The cursor link doubles as the parent this message joins against: it
	// is this publisher's last committed SEQUENCE message, or the
	// announcement before the first one.
	parent, err := forkParent(store, c.link)
	if err != nil {
		return nil, nil, err
	}
	parent.AbsorbExternal(hdrBytes)

	body := make([]byte, 0, sequenceBodySize)
	body = append(body, c.link[:]...)
	body = append(body, c.pk...)
	var seq [4]byte
	binary.BigEndian.PutUint32(seq[:], c.seqNum)
	body = append(body, seq[:]...)
	body = append(body, c.refLink[:]...)
	parent.Absorb(body)

	tag := parent.Tag(32)
	wire := append(append([]byte(nil), body...), tag...)
	return wire, parent, nil
}

// sequenceUnwrap is the unwrap-side content of a SEQUENCE message.
type sequenceUnwrap struct {
	Link    Rel
	Pk      ed25519.PublicKey
	SeqNum  uint32
	RefLink Rel
}

var _ contentUnwrap = (*sequenceUnwrap)(nil)

func (c *sequenceUnwrap) unwrap(store LinkStore, hdrBytes, body []byte) (*Spongos, error) {
	if len(body) != sequenceBodySize+32 {
		return nil, errf("unwrap sequence", EncodingError, "bad body length: %d", len(body))
	}
	var link Rel
	copy(link[:], body[0:32])
	parent, err := forkParent(store, link)
	if err != nil {
		return nil, err
	}
	parent.AbsorbExternal(hdrBytes)

	fields := body[:sequenceBodySize]
	tag := body[sequenceBodySize:]
	parent.Absorb(fields)

	wantTag := parent.Tag(32)
	if !hmac.Equal(wantTag, tag) {
		return nil, errf("unwrap sequence", CryptoFailure, "bad sequence tag")
	}

	copy(c.Link[:], fields[0:32])
	c.Pk = append(ed25519.PublicKey(nil), fields[32:32+ed25519.PublicKeySize]...)
	off := 32 + ed25519.PublicKeySize
	c.SeqNum = binary.BigEndian.Uint32(fields[off : off+4])
	copy(c.RefLink[:], fields[off+4:off+4+32])

	return parent, nil
}
