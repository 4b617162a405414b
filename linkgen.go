package channel

import (
	"crypto/ed25519"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
)

// LinkGenerator derives message addresses from a publisher identity and a
// cursor. LinkFrom must be a pure, collision-resistant function of its
// arguments: two generators given identical (pk, cursor) must produce
// equal links.
type LinkGenerator interface {
	// Gen seeds the generator from the author's identity and a channel
	// index, fixing the channel's Base.
	Gen(pk ed25519.PublicKey, channelIdx uint64)
	// Get returns the generator's current anchor link.
	Get() Link
	// LinkFrom derives the link for the next message a publisher will
	// send, given its cursor.
	LinkFrom(pk ed25519.PublicKey, cursor Cursor) Link
	// Reset rebinds the generator's anchor, used after parsing an
	// announcement.
	Reset(link Link)
}

// DefaultLinkGenerator derives links with HMAC-SHA256 over the publisher
// identity, so links are content-addressed rather than sequentially
// assigned.
type DefaultLinkGenerator struct {
	base   Base
	anchor Link
}

var _ LinkGenerator = (*DefaultLinkGenerator)(nil)

func (g *DefaultLinkGenerator) Gen(pk ed25519.PublicKey, channelIdx uint64) {
	var idxBuf [8]byte
	binary.BigEndian.PutUint64(idxBuf[:], channelIdx)

	h := hmac.New(sha256.New, pk)
	h.Write([]byte("streamchannel/appinst"))
	h.Write(idxBuf[:])
	var base Base
	copy(base[:], h.Sum(nil))

	g.base = base
	// The announcement's own rel component is the base itself: it is
	// the one message every other address in the channel is ultimately
	// derived from.
	g.anchor = Link{Base: base, Rel: Rel(base)}
}

func (g *DefaultLinkGenerator) Get() Link { return g.anchor }

func (g *DefaultLinkGenerator) LinkFrom(pk ed25519.PublicKey, cursor Cursor) Link {
	var branchBuf, seqBuf [4]byte
	binary.BigEndian.PutUint32(branchBuf[:], cursor.BranchNo)
	binary.BigEndian.PutUint32(seqBuf[:], cursor.SeqNo)

	h := hmac.New(sha256.New, pk)
	h.Write([]byte("streamchannel/msgid"))
	h.Write(cursor.Link[:])
	h.Write(branchBuf[:])
	h.Write(seqBuf[:])
	var rel Rel
	copy(rel[:], h.Sum(nil))
	return Link{Base: g.base, Rel: rel}
}

func (g *DefaultLinkGenerator) Reset(link Link) {
	g.base = link.Base
	g.anchor = link
}
