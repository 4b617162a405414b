package channel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestUser builds a User seeded from a fixed byte so scenarios are
// reproducible across runs.
func newTestUser(t *testing.T, seed byte, opts ...Option) *User {
	t.Helper()
	u, err := Gen(NewDeterministicPRNG(int64(seed)), opts...)
	require.NoError(t, err)
	return u
}

// TestSoloAnnounce exercises an author creating a channel solo.
func TestSoloAnnounce(t *testing.T) {
	r := require.New(t)

	a := newTestUser(t, 1)
	r.NoError(a.CreateChannel(0))

	appinst, ok := a.Appinst()
	r.True(ok)

	entry, ok := a.pkStore.Get(a.SigPublic())
	r.True(ok)
	r.Equal(appinst.Rel, entry.Cursor.Link)
	r.Equal(uint32(0), entry.Cursor.BranchNo)
	r.Equal(uint32(2), entry.Cursor.SeqNo)

	msg, ws, err := a.Announce()
	r.NoError(err)
	r.Equal(ws.Link, msg.Link)

	preparsed, err := msg.ParseHeader()
	r.NoError(err)
	r.Equal(ContentAnnounce, preparsed.Header.ContentType)
	r.Equal(uint32(0), preparsed.Header.SeqNum)

	_, err = ws.Commit(a.linkStore, nil)
	r.NoError(err)
}

// TestSubscribeRoundTrip exercises a subscriber joining an announced channel.
func TestSubscribeRoundTrip(t *testing.T) {
	r := require.New(t)

	a := newTestUser(t, 1)
	r.NoError(a.CreateChannel(0))
	appinst, _ := a.Appinst()

	announceMsg, announceWS, err := a.Announce()
	r.NoError(err)
	_, err = announceWS.Commit(a.linkStore, nil)
	r.NoError(err)

	b := newTestUser(t, 2)
	r.NoError(b.HandleAnnouncement(announceMsg, nil))

	subMsg, subWS, err := b.Subscribe(appinst.Rel)
	r.NoError(err)
	_, err = subWS.Commit(b.linkStore, nil)
	r.NoError(err)

	r.NoError(a.HandleSubscribe(subMsg, nil))

	bEntry, ok := a.pkStore.Get(b.SigPublic())
	r.True(ok)
	r.Equal(appinst.Rel, bEntry.Cursor.Link)
	r.Equal(uint32(1), bEntry.Cursor.SeqNo)

	aEntry, ok := b.pkStore.Get(a.SigPublic())
	r.True(ok)
	r.Equal(uint32(2), aEntry.Cursor.SeqNo)
	selfEntry, ok := b.pkStore.Get(b.SigPublic())
	r.True(ok)
	r.Equal(uint32(2), selfEntry.Cursor.SeqNo)
}

// joinedPair builds an author A, a subscribed B, with the announcement
// and subscribe handshake already committed on both sides, returning the
// channel's announcement link so callers can layer further scenarios on top.
func joinedPair(t *testing.T, flags byte) (a, b *User, appinst Link) {
	t.Helper()
	r := require.New(t)

	a = newTestUser(t, 1, WithFlags(flags))
	r.NoError(a.CreateChannel(0))
	appinst, _ = a.Appinst()

	announceMsg, announceWS, err := a.Announce()
	r.NoError(err)
	_, err = announceWS.Commit(a.linkStore, nil)
	r.NoError(err)

	b = newTestUser(t, 2)
	r.NoError(b.HandleAnnouncement(announceMsg, nil))

	subMsg, subWS, err := b.Subscribe(appinst.Rel)
	r.NoError(err)
	_, err = subWS.Commit(b.linkStore, nil)
	r.NoError(err)
	r.NoError(a.HandleSubscribe(subMsg, nil))

	return a, b, appinst
}

// TestKeyloadOpensChannel exercises a keyload granting access to a
// subscriber but not to a stranger who never subscribed.
func TestKeyloadOpensChannel(t *testing.T) {
	r := require.New(t)
	a, b, appinst := joinedPair(t, 0)

	keyloadMsg, keyloadWS, err := a.ShareKeyloadForEveryone(appinst.Rel)
	r.NoError(err)
	keyloadLink, err := keyloadWS.Commit(a.linkStore, nil)
	r.NoError(err)

	result, err := b.HandleKeyload(keyloadMsg, nil)
	r.NoError(err)
	r.True(result.Allowed)
	r.Equal(keyloadLink, result.Link)

	// C never subscribed, so its key-agreement key is unknown to A and it
	// cannot have been offered a slot; its own keyload handling therefore
	// fails to open.
	c := newTestUser(t, 3)
	r.NoError(c.HandleAnnouncement(mustReannounce(t, a), nil))
	result, err = c.HandleKeyload(keyloadMsg, nil)
	r.NoError(err)
	r.False(result.Allowed)
}

// mustReannounce re-derives A's ANNOUNCE message so a third party can
// learn the channel without participating in the earlier handshake.
func mustReannounce(t *testing.T, a *User) BinaryMessage {
	t.Helper()
	msg, _, err := a.Announce()
	require.NoError(t, err)
	return msg
}

// TestSignedPacketNonBranching exercises a signed packet delivered after
// keyload, and the cursor advance that follows it.
func TestSignedPacketNonBranching(t *testing.T) {
	r := require.New(t)
	a, b, appinst := joinedPair(t, 0)

	keyloadMsg, keyloadWS, err := a.ShareKeyloadForEveryone(appinst.Rel)
	r.NoError(err)
	keyloadLink, err := keyloadWS.Commit(a.linkStore, nil)
	r.NoError(err)
	_, err = b.HandleKeyload(keyloadMsg, nil)
	r.NoError(err)

	signedMsg, signedWS, err := a.SignPacket(keyloadLink.Rel, []byte("hello"), []byte("secret"))
	r.NoError(err)
	_, err = signedWS.Commit(a.linkStore, nil)
	r.NoError(err)

	result, err := b.HandleSignedPacket(signedMsg, nil)
	r.NoError(err)
	r.Equal(a.SigPublic(), result.SignerPk)
	r.Equal([]byte("hello"), result.Public)
	r.Equal([]byte("secret"), result.Masked)

	beforeA, _ := a.pkStore.Get(a.SigPublic())
	beforeB, _ := b.pkStore.Get(a.SigPublic())
	a.StoreStateForAll(signedMsg.Link.Rel, beforeA.Cursor.SeqNo)
	b.StoreStateForAll(signedMsg.Link.Rel, beforeB.Cursor.SeqNo)

	afterA, _ := a.pkStore.Get(a.SigPublic())
	afterB, _ := b.pkStore.Get(a.SigPublic())
	r.Equal(beforeA.Cursor.SeqNo+1, afterA.Cursor.SeqNo)
	r.Equal(beforeB.Cursor.SeqNo+1, afterB.Cursor.SeqNo)
}

// TestSequenceBranching exercises a branching-mode tagged packet,
// its SEQUENCE pointer, and next-message candidate enumeration.
func TestSequenceBranching(t *testing.T) {
	r := require.New(t)
	a, b, appinst := joinedPair(t, FlagBranching)

	_, keyloadWS, err := a.ShareKeyloadForEveryone(appinst.Rel)
	r.NoError(err)
	keyloadLink, err := keyloadWS.Commit(a.linkStore, nil)
	r.NoError(err)

	refMsg, refWS, err := a.TagPacket(keyloadLink.Rel, []byte("ref"), []byte("payload"))
	r.NoError(err)
	_, err = refWS.Commit(a.linkStore, nil)
	r.NoError(err)

	wrapped, err := a.WrapSequence(refMsg.Link)
	r.NoError(err)
	r.NotNil(wrapped.Message)
	r.NotNil(wrapped.State)

	seqPreparsed, err := wrapped.Message.ParseHeader()
	r.NoError(err)
	r.Equal(uint32(1), seqPreparsed.Header.SeqNum)

	newLink, err := a.CommitSequence(wrapped, nil)
	r.NoError(err)
	r.NotNil(newLink)

	entry, ok := a.pkStore.Get(a.SigPublic())
	r.True(ok)
	r.Equal(newLink.Rel, entry.Cursor.Link)

	seqResult, err := b.HandleSequence(*wrapped.Message, nil)
	r.NoError(err)
	r.Equal(a.SigPublic(), seqResult.Pk)
	r.Equal(refMsg.Link.Rel, seqResult.RefLink)
	r.Equal(wrapped.Cursor.SeqNo, seqResult.SeqNum)

	candidates := a.GenNextMsgIds(true)
	r.Len(candidates, 2) // one per known publisher: A (self) and B (subscribed in joinedPair)
	found := false
	for _, c := range candidates {
		if c.Pk.Equal(a.SigPublic()) {
			found = true
		}
	}
	r.True(found, "expected a candidate for A's own next sequence address")
}

// TestTamperedSignedPacketBody exercises rejection of a tampered signed
// packet body without any observable state mutation.
func TestTamperedSignedPacketBody(t *testing.T) {
	r := require.New(t)
	a, b, appinst := joinedPair(t, 0)

	keyloadMsg, keyloadWS, err := a.ShareKeyloadForEveryone(appinst.Rel)
	r.NoError(err)
	keyloadLink, err := keyloadWS.Commit(a.linkStore, nil)
	r.NoError(err)
	_, err = b.HandleKeyload(keyloadMsg, nil)
	r.NoError(err)

	signedMsg, signedWS, err := a.SignPacket(keyloadLink.Rel, []byte("hello"), []byte("secret"))
	r.NoError(err)
	_, err = signedWS.Commit(a.linkStore, nil)
	r.NoError(err)

	preAppinst, _ := b.Appinst()
	preEntry, _ := b.pkStore.Get(a.SigPublic())

	tampered := append([]byte(nil), signedMsg.Body...)
	tampered[len(tampered)-1] ^= 0x01
	badMsg := ParseBinaryMessage(signedMsg.Link, tampered)

	_, err = b.HandleSignedPacket(badMsg, nil)
	r.Error(err)
	r.ErrorIs(err, CryptoFailure)

	postAppinst, _ := b.Appinst()
	postEntry, _ := b.pkStore.Get(a.SigPublic())
	r.Equal(preAppinst, postAppinst)
	r.Equal(preEntry, postEntry)
}
