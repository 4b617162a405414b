package channel

import (
	"bytes"
	"testing"
)

func TestSpongosEncryptDecryptRoundTrip(t *testing.T) {
	enc := NewSpongos()
	dec := NewSpongos()

	enc.AbsorbExternal([]byte("header"))
	dec.AbsorbExternal([]byte("header"))

	plaintext := []byte("hello, streamchannel")
	ct := enc.Encrypt(plaintext)
	pt := dec.Decrypt(ct)

	if !bytes.Equal(plaintext, pt) {
		t.Fatalf("decrypt mismatch: got %q want %q", pt, plaintext)
	}

	if !bytes.Equal(enc.Tag(32), dec.Tag(32)) {
		t.Fatal("sponges diverged after matching encrypt/decrypt")
	}
}

func TestSpongosTagDivergesOnTamper(t *testing.T) {
	a := NewSpongos()
	b := NewSpongos()
	a.Absorb([]byte("same"))
	b.Absorb([]byte("different"))

	if bytes.Equal(a.Tag(32), b.Tag(32)) {
		t.Fatal("tags matched despite diverging transcripts")
	}
}

func TestSpongosForkIsIndependent(t *testing.T) {
	base := NewSpongos()
	base.Absorb([]byte("shared prefix"))

	child1 := base.Fork()
	child2 := base.Fork()

	child1.Absorb([]byte("branch one"))
	child2.Absorb([]byte("branch two"))

	tag1 := child1.Tag(32)
	if bytes.Equal(tag1, child2.Tag(32)) {
		t.Fatal("forked sponges should diverge independently")
	}
	// base itself must be untouched by either fork's mutation.
	again := base.Fork()
	again.Absorb([]byte("branch one"))
	if !bytes.Equal(again.Tag(32), tag1) {
		t.Fatal("fork mutated the parent sponge")
	}
}

func TestSpongosMarshalUnmarshalRoundTrip(t *testing.T) {
	sp := NewSpongos()
	sp.Absorb([]byte("some transcript"))

	data, err := sp.MarshalBinary()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	restored := NewSpongos()
	if err := restored.UnmarshalBinary(data); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !bytes.Equal(sp.Tag(32), restored.Tag(32)) {
		t.Fatal("restored sponge produced a different tag")
	}
}

func TestSpongosUnmarshalBinaryRejectsBadLength(t *testing.T) {
	sp := NewSpongos()
	if err := sp.UnmarshalBinary([]byte("too short")); err == nil {
		t.Fatal("expected error for truncated state")
	}
}
