package channel

import "crypto/ed25519"

// Rel is the relative component of a Link: the address of a single
// message within a channel.
type Rel [32]byte

// Base identifies a channel instance — the announcement's address.
type Base [32]byte

// Link is an opaque address with two projections: Base identifies the
// channel instance, Rel addresses a single message within it. Equality
// uses both.
type Link struct {
	Base Base
	Rel  Rel
}

// Equal reports whether two links name the same message in the same
// channel.
func (l Link) Equal(o Link) bool {
	return l.Base == o.Base && l.Rel == o.Rel
}

// Cursor is the next address a publisher will use: {link, branch_no,
// seq_no}. Link here is always relative to the owning channel's Base,
// matching how PkStore keys its entries.
type Cursor struct {
	Link     Rel
	BranchNo uint32
	SeqNo    uint32
}

// NewCursorAt builds a Cursor with an explicit link/branch/seq triple.
func NewCursorAt(link Rel, branchNo, seqNo uint32) Cursor {
	return Cursor{Link: link, BranchNo: branchNo, SeqNo: seqNo}
}

// NextSeq advances the cursor's sequence number by one in place.
func (c *Cursor) NextSeq() { c.SeqNo++ }

// Candidate is one entry of GenNextMsgIds's result: a full Link (not just a
// Rel) the caller should try fetching from transport, together with the
// sequence number it's expected to carry.
type Candidate struct {
	Pk    ed25519.PublicKey
	Link  Link
	SeqNo uint32
}

// Reserved sequence numbers.
const (
	SeqAnnounceOrSubscribe uint32 = 0
	SeqSequenceMessage     uint32 = 1
	SeqFirstPayload        uint32 = 2
)
