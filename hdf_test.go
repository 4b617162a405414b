package channel

import "testing"

func TestHDFMarshalParseRoundTrip(t *testing.T) {
	cases := []struct {
		name string
		hdf  HDF
	}{
		{"announce", NewHDF(Link{Base: Base{1}, Rel: Rel{2}}).
			WithContentType(ContentAnnounce).WithSeqNum(0).WithFlags(0)},
		{"branching keyload", NewHDF(Link{Base: Base{9}, Rel: Rel{8}}).
			WithContentType(ContentKeyload).WithPayloadLength(512).WithSeqNum(3).WithFlags(FlagBranching)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			wire := tc.hdf.MarshalBinary()
			got, rest, err := ParseHDF(append(wire, []byte("trailing body")...))
			if err != nil {
				t.Fatalf("ParseHDF: %v", err)
			}
			if got != tc.hdf {
				t.Fatalf("round trip mismatch: got %+v want %+v", got, tc.hdf)
			}
			if string(rest) != "trailing body" {
				t.Fatalf("unexpected remainder: %q", rest)
			}
		})
	}
}

func TestParseHDFTruncated(t *testing.T) {
	if _, _, err := ParseHDF([]byte("short")); err == nil {
		t.Fatal("expected error on truncated header")
	}
}

func TestHDFIsBranching(t *testing.T) {
	h := NewHDF(Link{}).WithFlags(FlagBranching)
	if !h.IsBranching() {
		t.Fatal("expected IsBranching to observe FlagBranching")
	}
	if NewHDF(Link{}).WithFlags(0).IsBranching() {
		t.Fatal("expected IsBranching to be false without the flag")
	}
}

func TestContentTypeString(t *testing.T) {
	want := map[ContentType]string{
		ContentAnnounce:     "ANNOUNCE",
		ContentSubscribe:    "SUBSCRIBE",
		ContentKeyload:      "KEYLOAD",
		ContentSignedPacket: "SIGNED_PACKET",
		ContentTaggedPacket: "TAGGED_PACKET",
		ContentSequence:     "SEQUENCE",
	}
	for ct, s := range want {
		if ct.String() != s {
			t.Errorf("ContentType(%d).String() = %q, want %q", ct, ct.String(), s)
		}
	}
	if ContentType(99).String() != "RESERVED" {
		t.Fatal("expected unknown content type to stringify as RESERVED")
	}
}
