package channel

import (
	"crypto/ed25519"
	"io"

	"github.com/op/go-logging"
)

// State is the coarse lifecycle stage a User occupies. Transitions are
// one-way; there is no terminal state.
type State int

const (
	StateFresh State = iota
	StateAuthor
	StateSubscriber
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "FRESH"
	case StateAuthor:
		return "AUTHOR"
	case StateSubscriber:
		return "SUBSCRIBER"
	default:
		return "UNKNOWN"
	}
}

// Option configures a User, the same functional-options shape dr.Session
// uses for WithStore.
type Option func(*User)

// WithPkStore overrides the default in-memory PkStore.
func WithPkStore(s PkStore) Option { return func(u *User) { u.pkStore = s } }

// WithPskStore overrides the default in-memory PskStore.
func WithPskStore(s PskStore) Option { return func(u *User) { u.pskStore = s } }

// WithLinkStore overrides the default in-memory LinkStore.
func WithLinkStore(s LinkStore) Option { return func(u *User) { u.linkStore = s } }

// WithLinkGenerator overrides the default HMAC-based LinkGenerator.
func WithLinkGenerator(g LinkGenerator) Option { return func(u *User) { u.linkGen = g } }

// WithLogger attaches a *logging.Logger; the default is a logger for the
// "channel" module, matching newLogger's per-component naming.
func WithLogger(l *logging.Logger) Option { return func(u *User) { u.log = l } }

// WithFlags sets the header flags byte a User stamps when authoring a
// channel, most notably FlagBranching. A subscriber's flags are instead
// learned from the announcement it joins (see HandleAnnouncement) and
// overwrite whatever WithFlags set.
func WithFlags(flags byte) Option { return func(u *User) { u.flags = flags } }

// User is the per-participant channel engine: identity, stores, and the
// cursor/link-generator state that together enforce the ordering and
// access-control invariants of the channel protocol.
type User struct {
	identity *Identity
	rng      io.Reader
	log      *logging.Logger

	pkStore   PkStore
	pskStore  PskStore
	linkStore LinkStore
	linkGen   LinkGenerator

	authorSigPk ed25519.PublicKey // nil until an announcement has been seen
	appinst     *Link             // nil until joined (self-authored or subscribed)
	flags       byte
	state       State
}

// Gen draws a fresh identity from rng and returns a FRESH User. rng is
// retained as the User's randomness source for subscribe and keyload, so a
// deterministic-seedable PRNG makes an entire run reproducible.
func Gen(rng io.Reader, opts ...Option) (*User, error) {
	id, err := GenerateIdentity(rng)
	if err != nil {
		return nil, err
	}
	return newUser(id, rng, opts...), nil
}

// NewUser builds a FRESH User around an already-generated identity. rng
// is still required: it seeds session keys and nonces in keyload/subscribe.
func NewUser(id *Identity, rng io.Reader, opts ...Option) *User {
	return newUser(id, rng, opts...)
}

func newUser(id *Identity, rng io.Reader, opts ...Option) *User {
	u := &User{
		identity:  id,
		rng:       rng,
		pkStore:   NewMapPkStore(),
		pskStore:  NewMapPskStore(),
		linkStore: NewMapLinkStore(),
		linkGen:   &DefaultLinkGenerator{},
		state:     StateFresh,
	}
	for _, fn := range opts {
		fn(u)
	}
	if u.log == nil {
		u.log = logging.MustGetLogger("channel")
	}
	return u
}

// SigPublic returns this participant's signing identity, the key used
// throughout PkStore and on the wire.
func (u *User) SigPublic() ed25519.PublicKey { return u.identity.SigPublic() }

// State reports the engine's current lifecycle stage.
func (u *User) State() State { return u.state }

// Appinst returns the channel's announcement link and whether the user
// has joined a channel yet.
func (u *User) Appinst() (Link, bool) {
	if u.appinst == nil {
		return Link{}, false
	}
	return *u.appinst, true
}

// IsMultiBranching reports whether the joined channel uses multi-branch
// topology.
func (u *User) IsMultiBranching() bool { return u.flags&FlagBranching != 0 }

func (u *User) ensureAppinst(op string) (Link, error) {
	if u.appinst == nil {
		return Link{}, newErr(op, PreconditionUnmet, nil)
	}
	return *u.appinst, nil
}

func (u *User) checkAddress(op string, link Link) error {
	appinst, err := u.ensureAppinst(op)
	if err != nil {
		return err
	}
	if appinst.Base != link.Base {
		return newErr(op, AddressMismatch, nil)
	}
	return nil
}

func (u *User) getSeqNo(op string, pk ed25519.PublicKey) (PkEntry, error) {
	entry, ok := u.pkStore.Get(pk)
	if !ok {
		return PkEntry{}, newErr(op, StoreMiss, nil)
	}
	return entry, nil
}

// CreateChannel makes this User the author of a new channel at
// channelIdx. The user must not already be joined to a channel.
func (u *User) CreateChannel(channelIdx uint64) error {
	const op = "CreateChannel"
	if u.appinst != nil {
		return newErr(op, PreconditionUnmet, nil)
	}
	u.linkGen.Gen(u.identity.SigPublic(), channelIdx)
	anchor := u.linkGen.Get()
	u.pkStore.Insert(u.identity.SigPublic(), u.identity.KePublic(), NewCursorAt(anchor.Rel, 0, SeqFirstPayload))
	u.appinst = &anchor
	u.authorSigPk = u.identity.SigPublic()
	u.state = StateAuthor
	u.log.Debugf("created channel %d, appinst=%x", channelIdx, anchor.Rel[:8])
	return nil
}

// Announce builds the channel's ANNOUNCE message: the author's identity
// and flags, signed with the author's signing key.
func (u *User) Announce() (BinaryMessage, WrapState, error) {
	const op = "Announce"
	appinst, err := u.ensureAppinst(op)
	if err != nil {
		return BinaryMessage{}, WrapState{}, err
	}
	hdr := NewHDF(appinst).
		WithContentType(ContentAnnounce).
		WithSeqNum(SeqAnnounceOrSubscribe).
		WithFlags(u.flags)
	content := &announceWrap{id: u.identity, flags: u.flags}
	prepared := newPreparedMessage(u.linkStore, hdr, content)
	u.log.Debugf("wrapping ANNOUNCE at %x", appinst.Rel[:8])
	return prepared.Wrap()
}

// HandleAnnouncement processes an ANNOUNCE message, transitioning a FRESH
// User into a SUBSCRIBER.
func (u *User) HandleAnnouncement(msg BinaryMessage, info LinkInfo) error {
	const op = "HandleAnnouncement"
	preparsed, err := msg.ParseHeader()
	if err != nil {
		return err
	}
	if preparsed.Header.ContentType != ContentAnnounce {
		return newErr(op, ContentTypeMismatch, nil)
	}
	if u.appinst != nil && !u.appinst.Equal(preparsed.Header.Link) {
		return newErr(op, AddressMismatch, nil)
	}

	content := &announceUnwrap{}
	unwrapped, err := unwrapContent(u.linkStore, preparsed, content)
	if err != nil {
		return err
	}
	if _, err := unwrapped.Commit(u.linkStore, info); err != nil {
		return err
	}

	link := preparsed.Header.Link
	u.linkGen.Reset(link)
	u.appinst = &link
	u.authorSigPk = content.SigPk
	u.flags = content.Flags
	u.pkStore.Insert(content.SigPk, content.KePk, NewCursorAt(link.Rel, 0, SeqFirstPayload))
	u.pkStore.Insert(u.identity.SigPublic(), u.identity.KePublic(), NewCursorAt(link.Rel, 0, SeqFirstPayload))
	u.state = StateSubscriber
	u.log.Infof("joined channel %x authored by %x", link.Rel[:8], content.SigPk[:8])
	return nil
}

// Subscribe builds a SUBSCRIBE message addressed at linkTo: the
// subscriber's identity, encrypted to the author's X25519 public key,
// along with a random unsubscribe key.
func (u *User) Subscribe(linkTo Rel) (BinaryMessage, WrapState, error) {
	const op = "Subscribe"
	if _, err := u.ensureAppinst(op); err != nil {
		return BinaryMessage{}, WrapState{}, err
	}
	if u.authorSigPk == nil {
		return BinaryMessage{}, WrapState{}, newErr(op, PreconditionUnmet, nil)
	}
	authorKePub, ok := u.pkStore.GetKePk(u.authorSigPk)
	if !ok {
		return BinaryMessage{}, WrapState{}, newErr(op, StoreMiss, nil)
	}

	var unsubKey [32]byte
	if _, err := io.ReadFull(u.rng, unsubKey[:]); err != nil {
		return BinaryMessage{}, WrapState{}, errf(op, CryptoFailure, "read unsubscribe key: %w", err)
	}

	msgLink := u.linkGen.LinkFrom(u.identity.SigPublic(), NewCursorAt(linkTo, 0, SeqAnnounceOrSubscribe))
	hdr := NewHDF(msgLink).
		WithContentType(ContentSubscribe).
		WithSeqNum(SeqAnnounceOrSubscribe).
		WithFlags(u.flags)
	content := &subscribeWrap{
		rng:            u.rng,
		linkTo:         linkTo,
		unsubscribeKey: unsubKey,
		subscriber:     u.identity,
		authorKePub:    authorKePub,
	}
	prepared := newPreparedMessage(u.linkStore, hdr, content)
	return prepared.Wrap()
}

// HandleSubscribe processes a SUBSCRIBE message. Must run in author
// context: it records the subscriber at a reserved subscription cursor
// slot rather than a payload slot.
func (u *User) HandleSubscribe(msg BinaryMessage, info LinkInfo) error {
	const op = "HandleSubscribe"
	preparsed, err := msg.ParseHeader()
	if err != nil {
		return err
	}
	if preparsed.Header.ContentType != ContentSubscribe {
		return newErr(op, ContentTypeMismatch, nil)
	}
	if err := u.checkAddress(op, preparsed.Header.Link); err != nil {
		return err
	}

	content := &subscribeUnwrap{author: u.identity}
	unwrapped, err := unwrapContent(u.linkStore, preparsed, content)
	if err != nil {
		return err
	}
	if _, err := unwrapped.Commit(u.linkStore, info); err != nil {
		return err
	}

	appinst, _ := u.ensureAppinst(op)
	u.pkStore.Insert(content.SubscriberSigPk, content.SubscriberKePk, NewCursorAt(appinst.Rel, 0, 1))
	u.log.Debugf("recorded subscriber %x", content.SubscriberSigPk[:8])
	return nil
}

// ShareKeyload builds a KEYLOAD message granting access to a selected
// set of PSK and key-agreement recipients. Author-only.
func (u *User) ShareKeyload(linkTo Rel, pskIds []PskId, pks []ed25519.PublicKey) (BinaryMessage, WrapState, error) {
	const op = "ShareKeyload"
	return u.shareKeyload(op, linkTo, u.pskStore.Filter(pskIds), u.resolveKeRecipients(pks))
}

// ShareKeyloadForEveryone is ShareKeyload with the recipient set taken
// from every entry currently known in pk_store and psk_store.
func (u *User) ShareKeyloadForEveryone(linkTo Rel) (BinaryMessage, WrapState, error) {
	const op = "ShareKeyloadForEveryone"
	all := u.pkStore.Iter()
	recipients := make([]keyloadRecipientKe, 0, len(all))
	for _, pkKe := range all {
		recipients = append(recipients, keyloadRecipientKe{SigPk: pkKe.SigPk, KePub: pkKe.KePk})
	}
	return u.shareKeyload(op, linkTo, u.pskStore.Iter(), recipients)
}

func (u *User) resolveKeRecipients(pks []ed25519.PublicKey) []keyloadRecipientKe {
	out := make([]keyloadRecipientKe, 0, len(pks))
	for _, pk := range pks {
		if kePub, ok := u.pkStore.GetKePk(pk); ok {
			out = append(out, keyloadRecipientKe{SigPk: pk, KePub: kePub})
		}
	}
	return out
}

func (u *User) shareKeyload(op string, linkTo Rel, psks []PskEntry, recipients []keyloadRecipientKe) (BinaryMessage, WrapState, error) {
	if _, err := u.ensureAppinst(op); err != nil {
		return BinaryMessage{}, WrapState{}, err
	}
	self, err := u.getSeqNo(op, u.identity.SigPublic())
	if err != nil {
		return BinaryMessage{}, WrapState{}, err
	}

	var sessionKey [32]byte
	if _, err := io.ReadFull(u.rng, sessionKey[:]); err != nil {
		return BinaryMessage{}, WrapState{}, errf(op, CryptoFailure, "read session key: %w", err)
	}

	msgLink := u.linkGen.LinkFrom(u.identity.SigPublic(), NewCursorAt(linkTo, 0, self.Cursor.SeqNo))
	hdr := NewHDF(msgLink).
		WithContentType(ContentKeyload).
		WithSeqNum(self.Cursor.SeqNo).
		WithFlags(u.flags)
	content := &keyloadWrap{
		rng:        u.rng,
		linkTo:     linkTo,
		author:     u.identity,
		psks:       psks,
		recipients: recipients,
		sessionKey: sessionKey,
	}
	prepared := newPreparedMessage(u.linkStore, hdr, content)
	return prepared.Wrap()
}

// KeyloadResult is the outcome of handling a KEYLOAD message.
type KeyloadResult struct {
	Link    Link
	Allowed bool
}

// HandleKeyload processes a KEYLOAD message. An announcement must already
// be known and the link must belong to this channel.
func (u *User) HandleKeyload(msg BinaryMessage, info LinkInfo) (KeyloadResult, error) {
	const op = "HandleKeyload"
	if u.authorSigPk == nil {
		return KeyloadResult{}, newErr(op, PreconditionUnmet, nil)
	}
	preparsed, err := msg.ParseHeader()
	if err != nil {
		return KeyloadResult{}, err
	}
	if preparsed.Header.ContentType != ContentKeyload {
		return KeyloadResult{}, newErr(op, ContentTypeMismatch, nil)
	}
	if err := u.checkAddress(op, preparsed.Header.Link); err != nil {
		return KeyloadResult{}, err
	}

	authorKePub, ok := u.pkStore.GetKePk(u.authorSigPk)
	if !ok {
		return KeyloadResult{}, newErr(op, StoreMiss, nil)
	}
	content := &keyloadUnwrap{self: u.identity, pskStore: u.pskStore, authorSigPk: u.authorSigPk, authorKePub: authorKePub}
	unwrapped, err := unwrapContent(u.linkStore, preparsed, content)
	if err != nil {
		return KeyloadResult{}, err
	}
	if _, err := unwrapped.Commit(u.linkStore, info); err != nil {
		return KeyloadResult{}, err
	}

	appinst, _ := u.ensureAppinst(op)
	for _, rec := range content.Observed {
		if _, known := u.pkStore.Get(rec.SigPk); !known {
			u.pkStore.Insert(rec.SigPk, rec.KePub, NewCursorAt(appinst.Rel, 0, SeqFirstPayload))
		}
	}

	if content.Opened {
		u.log.Debugf("keyload at %x opened channel access", preparsed.Header.Link.Rel[:8])
	} else {
		u.log.Warningf("keyload at %x did not grant this identity access", preparsed.Header.Link.Rel[:8])
	}

	return KeyloadResult{Link: preparsed.Header.Link, Allowed: content.Opened}, nil
}

// SignPacket builds a SIGNED_PACKET message: publicPayload is absorbed in
// the clear, maskedPayload is encrypted in the sponge, and the result is
// signed with this user's signing key.
func (u *User) SignPacket(linkTo Rel, publicPayload, maskedPayload []byte) (BinaryMessage, WrapState, error) {
	const op = "SignPacket"
	if _, err := u.ensureAppinst(op); err != nil {
		return BinaryMessage{}, WrapState{}, err
	}
	self, err := u.getSeqNo(op, u.identity.SigPublic())
	if err != nil {
		return BinaryMessage{}, WrapState{}, err
	}

	msgLink := u.linkGen.LinkFrom(u.identity.SigPublic(), NewCursorAt(linkTo, 0, self.Cursor.SeqNo))
	hdr := NewHDF(msgLink).
		WithContentType(ContentSignedPacket).
		WithSeqNum(self.Cursor.SeqNo).
		WithFlags(u.flags)
	content := &signedPacketWrap{id: u.identity, linkTo: linkTo, public: publicPayload, private: maskedPayload}
	prepared := newPreparedMessage(u.linkStore, hdr, content)
	return prepared.Wrap()
}

// TagPacket is SignPacket's MAC-only counterpart: it authenticates the
// body with the session sponge's keyed tag instead of a signature, so it
// can only be verified by a recipient that also holds the session key
// granted by a prior keyload.
func (u *User) TagPacket(linkTo Rel, publicPayload, maskedPayload []byte) (BinaryMessage, WrapState, error) {
	const op = "TagPacket"
	if _, err := u.ensureAppinst(op); err != nil {
		return BinaryMessage{}, WrapState{}, err
	}
	self, err := u.getSeqNo(op, u.identity.SigPublic())
	if err != nil {
		return BinaryMessage{}, WrapState{}, err
	}

	msgLink := u.linkGen.LinkFrom(u.identity.SigPublic(), NewCursorAt(linkTo, 0, self.Cursor.SeqNo))
	hdr := NewHDF(msgLink).
		WithContentType(ContentTaggedPacket).
		WithSeqNum(self.Cursor.SeqNo).
		WithFlags(u.flags)
	content := &taggedPacketWrap{linkTo: linkTo, public: publicPayload, private: maskedPayload}
	prepared := newPreparedMessage(u.linkStore, hdr, content)
	return prepared.Wrap()
}

// SignedPacketResult is the payload surfaced by HandleSignedPacket.
type SignedPacketResult struct {
	Link      Link
	SignerPk  ed25519.PublicKey
	Public    []byte
	Masked    []byte
}

// HandleSignedPacket processes a SIGNED_PACKET message.
func (u *User) HandleSignedPacket(msg BinaryMessage, info LinkInfo) (SignedPacketResult, error) {
	const op = "HandleSignedPacket"
	if _, err := u.ensureAppinst(op); err != nil {
		return SignedPacketResult{}, err
	}
	preparsed, err := msg.ParseHeader()
	if err != nil {
		return SignedPacketResult{}, err
	}
	if preparsed.Header.ContentType != ContentSignedPacket {
		return SignedPacketResult{}, newErr(op, ContentTypeMismatch, nil)
	}
	if err := u.checkAddress(op, preparsed.Header.Link); err != nil {
		return SignedPacketResult{}, err
	}

	content := &signedPacketUnwrap{}
	unwrapped, err := unwrapContent(u.linkStore, preparsed, content)
	if err != nil {
		u.log.Warningf("rejected signed packet at %x: %v", preparsed.Header.Link.Rel[:8], err)
		return SignedPacketResult{}, err
	}
	if _, err := unwrapped.Commit(u.linkStore, info); err != nil {
		return SignedPacketResult{}, err
	}

	return SignedPacketResult{
		Link:     preparsed.Header.Link,
		SignerPk: content.SignerSigPk,
		Public:   content.Public,
		Masked:   content.Private,
	}, nil
}

// TaggedPacketResult is the payload surfaced by HandleTaggedPacket.
type TaggedPacketResult struct {
	Link   Link
	Public []byte
	Masked []byte
}

// HandleTaggedPacket processes a TAGGED_PACKET message.
func (u *User) HandleTaggedPacket(msg BinaryMessage, info LinkInfo) (TaggedPacketResult, error) {
	const op = "HandleTaggedPacket"
	if _, err := u.ensureAppinst(op); err != nil {
		return TaggedPacketResult{}, err
	}
	preparsed, err := msg.ParseHeader()
	if err != nil {
		return TaggedPacketResult{}, err
	}
	if preparsed.Header.ContentType != ContentTaggedPacket {
		return TaggedPacketResult{}, newErr(op, ContentTypeMismatch, nil)
	}
	if err := u.checkAddress(op, preparsed.Header.Link); err != nil {
		return TaggedPacketResult{}, err
	}

	content := &taggedPacketUnwrap{}
	unwrapped, err := unwrapContent(u.linkStore, preparsed, content)
	if err != nil {
		return TaggedPacketResult{}, err
	}
	if _, err := unwrapped.Commit(u.linkStore, info); err != nil {
		return TaggedPacketResult{}, err
	}

	return TaggedPacketResult{Link: preparsed.Header.Link, Public: content.Public, Masked: content.Private}, nil
}

// WrappedSequence is the result of WrapSequence: one of three outcomes,
// depending on whether self has a cursor and on topology (empty when there
// is no cursor; cursor only when non-branching; cursor plus a SEQUENCE
// message when branching).
type WrappedSequence struct {
	Cursor  Cursor
	Message *BinaryMessage
	State   *WrapState
}

// WrapSequence prepares the next address advancement for self, relative
// to refLink (the payload message just published). In non-branching mode
// this only computes a cursor mutation; in branching mode it also
// produces a SEQUENCE message advertising the new address.
func (u *User) WrapSequence(refLink Link) (WrappedSequence, error) {
	const op = "WrapSequence"
	self, ok := u.pkStore.Get(u.identity.SigPublic())
	if !ok {
		return WrappedSequence{}, nil
	}
	cursor := self.Cursor

	if !u.IsMultiBranching() {
		cursor.Link = refLink.Rel
		return WrappedSequence{Cursor: cursor}, nil
	}

	if _, err := u.ensureAppinst(op); err != nil {
		return WrappedSequence{}, err
	}
	// The message's own address is freshly derived from the cursor; the
	// cursor's prior link only identifies the parent sponge state to fork
	// from (it is carried inside the body too, as the cursor's link field).
	newLink := u.linkGen.LinkFrom(u.identity.SigPublic(), NewCursorAt(cursor.Link, 0, SeqSequenceMessage))
	hdr := NewHDF(newLink).
		WithContentType(ContentSequence).
		WithSeqNum(SeqSequenceMessage).
		WithFlags(u.flags)
	content := &sequenceWrap{
		link:    cursor.Link,
		pk:      u.identity.SigPublic(),
		seqNum:  cursor.SeqNo,
		refLink: refLink.Rel,
	}
	prepared := newPreparedMessage(u.linkStore, hdr, content)
	bin, ws, err := prepared.Wrap()
	if err != nil {
		return WrappedSequence{}, err
	}
	return WrappedSequence{Cursor: cursor, Message: &bin, State: &ws}, nil
}

// CommitSequence finalizes a WrapSequence result: committing the SEQUENCE
// message if one was produced, or folding the cursor into every known
// publisher's state otherwise.
func (u *User) CommitSequence(wrapped WrappedSequence, info LinkInfo) (*Link, error) {
	if wrapped.Message != nil && wrapped.State != nil {
		link, err := wrapped.State.Commit(u.linkStore, info)
		if err != nil {
			return nil, err
		}
		cursor := wrapped.Cursor
		cursor.Link = link.Rel
		cursor.NextSeq()
		u.pkStore.Update(u.identity.SigPublic(), func(c *Cursor) { *c = cursor })
		u.log.Debugf("advanced cursor to seq %d at %x", cursor.SeqNo, link.Rel[:8])
		return &link, nil
	}
	u.StoreStateForAll(wrapped.Cursor.Link, wrapped.Cursor.SeqNo)
	return nil, nil
}

// SequenceResult is the payload surfaced by HandleSequence.
type SequenceResult struct {
	Link    Link
	Pk      ed25519.PublicKey
	SeqNum  uint32
	RefLink Rel
}

// HandleSequence processes a SEQUENCE message, surfacing the referenced
// (publisher, seq_num, ref_link) tuple so the caller can fetch the
// referenced payload message.
func (u *User) HandleSequence(msg BinaryMessage, info LinkInfo) (SequenceResult, error) {
	const op = "HandleSequence"
	if _, err := u.ensureAppinst(op); err != nil {
		return SequenceResult{}, err
	}
	preparsed, err := msg.ParseHeader()
	if err != nil {
		return SequenceResult{}, err
	}
	if preparsed.Header.ContentType != ContentSequence {
		return SequenceResult{}, newErr(op, ContentTypeMismatch, nil)
	}
	if err := u.checkAddress(op, preparsed.Header.Link); err != nil {
		return SequenceResult{}, err
	}

	content := &sequenceUnwrap{}
	unwrapped, err := unwrapContent(u.linkStore, preparsed, content)
	if err != nil {
		return SequenceResult{}, err
	}
	if _, err := unwrapped.Commit(u.linkStore, info); err != nil {
		return SequenceResult{}, err
	}

	return SequenceResult{
		Link:    preparsed.Header.Link,
		Pk:      content.Pk,
		SeqNum:  content.SeqNum,
		RefLink: content.RefLink,
	}, nil
}

// StoreState sets pk's cursor link and bumps its seq_no by one.
func (u *User) StoreState(pk ed25519.PublicKey, link Rel) {
	u.pkStore.Update(pk, func(c *Cursor) {
		c.Link = link
		c.NextSeq()
	})
}

// StoreStateForAll sets self and every known publisher's cursor to
// (link, branch_no=0, seqNo+1): the non-branching advancement where every
// participant implicitly chains from the same tip.
func (u *User) StoreStateForAll(link Rel, seqNo uint32) {
	for _, pkKe := range u.pkStore.Iter() {
		u.pkStore.Update(pkKe.SigPk, func(c *Cursor) {
			*c = NewCursorAt(link, 0, seqNo+1)
		})
	}
}

// GenNextMsgIds enumerates candidate addresses the caller should try to
// fetch from transport. In branching mode, one candidate per
// known publisher (its next SEQUENCE message); in non-branching mode, two
// per publisher, guarding against off-by-one state between peers
// observing the same chain.
func (u *User) GenNextMsgIds(branching bool) []Candidate {
	appinst, ok := u.Appinst()
	if !ok {
		return nil
	}
	known := u.pkStore.Iter()
	out := make([]Candidate, 0, len(known)*2)
	for _, pkKe := range known {
		entry, ok := u.pkStore.Get(pkKe.SigPk)
		if !ok {
			continue
		}
		if branching {
			cursor := NewCursorAt(entry.Cursor.Link, 0, SeqSequenceMessage)
			link := u.linkGen.LinkFrom(pkKe.SigPk, cursor)
			out = append(out, Candidate{Pk: pkKe.SigPk, Link: Link{Base: appinst.Base, Rel: link.Rel}, SeqNo: SeqSequenceMessage})
			continue
		}
		for _, seqNo := range [2]uint32{entry.Cursor.SeqNo, entry.Cursor.SeqNo - 1} {
			cursor := NewCursorAt(entry.Cursor.Link, entry.Cursor.BranchNo, seqNo)
			link := u.linkGen.LinkFrom(pkKe.SigPk, cursor)
			out = append(out, Candidate{Pk: pkKe.SigPk, Link: Link{Base: appinst.Base, Rel: link.Rel}, SeqNo: seqNo})
		}
	}
	return out
}
