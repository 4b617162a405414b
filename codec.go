package channel

import "encoding/binary"

// putLenPrefixed appends a 4-byte big-endian length followed by data — the
// minimal framing every content type's variable-length fields share.
func putLenPrefixed(buf, data []byte) []byte {
	var l [4]byte
	binary.BigEndian.PutUint32(l[:], uint32(len(data)))
	buf = append(buf, l[:]...)
	buf = append(buf, data...)
	return buf
}

// getLenPrefixed reads a length-prefixed field off the front of data and
// returns it along with the remaining bytes.
func getLenPrefixed(data []byte) (value, rest []byte, err error) {
	if len(data) < 4 {
		return nil, nil, errf("decode", EncodingError, "truncated length prefix")
	}
	n := binary.BigEndian.Uint32(data[:4])
	data = data[4:]
	if uint64(len(data)) < uint64(n) {
		return nil, nil, errf("decode", EncodingError, "truncated field: want %d have %d", n, len(data))
	}
	return data[:n], data[n:], nil
}
