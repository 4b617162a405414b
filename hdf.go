package channel

import "encoding/binary"

// ContentType is the 8-bit content-type tag stamped in every header.
// Additional tags beyond these six are reserved.
type ContentType byte

const (
	ContentAnnounce ContentType = iota
	ContentSubscribe
	ContentKeyload
	ContentSignedPacket
	ContentTaggedPacket
	ContentSequence
)

func (t ContentType) String() string {
	switch t {
	case ContentAnnounce:
		return "ANNOUNCE"
	case ContentSubscribe:
		return "SUBSCRIBE"
	case ContentKeyload:
		return "KEYLOAD"
	case ContentSignedPacket:
		return "SIGNED_PACKET"
	case ContentTaggedPacket:
		return "TAGGED_PACKET"
	case ContentSequence:
		return "SEQUENCE"
	default:
		return "RESERVED"
	}
}

// FlagBranching is the bit of HDF.Flags that selects multi-branch
// topology. Other bits are opaque and must be preserved on round-trip.
const FlagBranching byte = 0x01

// HDF is the message header: link, content-type tag, sequence number,
// flags. Link is first on the wire so framing can compute the address
// before parsing the rest.
type HDF struct {
	Link              Link
	ContentType       ContentType
	PayloadLengthHint uint32
	SeqNum            uint32
	Flags             byte
}

// NewHDF starts a header for msgLink; chain With* to fill in the rest.
func NewHDF(msgLink Link) HDF { return HDF{Link: msgLink} }

func (h HDF) WithContentType(ct ContentType) HDF { h.ContentType = ct; return h }
func (h HDF) WithPayloadLength(n uint32) HDF      { h.PayloadLengthHint = n; return h }
func (h HDF) WithSeqNum(n uint32) HDF             { h.SeqNum = n; return h }
func (h HDF) WithFlags(f byte) HDF                { h.Flags = f; return h }

// IsBranching reports whether the channel this header belongs to uses
// multi-branch topology.
func (h HDF) IsBranching() bool { return h.Flags&FlagBranching != 0 }

// hdfWireSize is the fixed size of an encoded HDF: two 32-byte link
// halves, a content-type byte, two 4-byte counters, and a flags byte.
const hdfWireSize = 32 + 32 + 1 + 4 + 4 + 1

// MarshalBinary encodes the header. It is always the first hdfWireSize
// bytes of a BinaryMessage's body.
func (h HDF) MarshalBinary() []byte {
	buf := make([]byte, hdfWireSize)
	copy(buf[0:32], h.Link.Base[:])
	copy(buf[32:64], h.Link.Rel[:])
	buf[64] = byte(h.ContentType)
	binary.BigEndian.PutUint32(buf[65:69], h.PayloadLengthHint)
	binary.BigEndian.PutUint32(buf[69:73], h.SeqNum)
	buf[73] = h.Flags
	return buf
}

// ParseHDF decodes a header from the front of data and returns the
// remaining (still sponge-sealed) bytes.
func ParseHDF(data []byte) (HDF, []byte, error) {
	if len(data) < hdfWireSize {
		return HDF{}, nil, errf("ParseHDF", EncodingError, "truncated header: %d bytes", len(data))
	}
	var h HDF
	copy(h.Link.Base[:], data[0:32])
	copy(h.Link.Rel[:], data[32:64])
	h.ContentType = ContentType(data[64])
	h.PayloadLengthHint = binary.BigEndian.Uint32(data[65:69])
	h.SeqNum = binary.BigEndian.Uint32(data[69:73])
	h.Flags = data[73]
	return h, data[hdfWireSize:], nil
}
