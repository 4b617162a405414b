package channel

// BinaryMessage is the wire form of a message: an address plus
// header-bytes-concatenated-with-body-bytes.
type BinaryMessage struct {
	Link Link
	Body []byte
}

// Bytes returns the wire encoding, header followed by body, so the
// caller's transport can ship it as-is.
func (m BinaryMessage) Bytes() []byte {
	return append([]byte(nil), m.Body...)
}

// ParseBinaryMessage wraps raw transport bytes as a BinaryMessage
// addressed at link. The core never performs the transport fetch itself.
func ParseBinaryMessage(link Link, data []byte) BinaryMessage {
	return BinaryMessage{Link: link, Body: append([]byte(nil), data...)}
}

// ParseHeader decodes the HDF from the front of the message, returning a
// PreparsedMessage whose Body is still sponge-sealed.
func (m BinaryMessage) ParseHeader() (PreparsedMessage, error) {
	h, rest, err := ParseHDF(m.Body)
	if err != nil {
		return PreparsedMessage{}, err
	}
	return PreparsedMessage{Header: h, Body: rest}, nil
}

// PreparsedMessage is a message whose header has been decoded but whose
// body is still sponge-sealed.
type PreparsedMessage struct {
	Header HDF
	Body   []byte
}

// contentWrap is satisfied by every content kind's wrap-side type. wrap
// is handed the link store directly (rather than an already-forked
// sponge) because the parent link a content kind joins against is, for
// every kind but Announce, itself part of what gets written onto the
// wire: the parent reference travels in the clear ahead of the
// authenticated body so an unwrapper can perform the identical lookup.
type contentWrap interface {
	wrap(store LinkStore, hdrBytes []byte) ([]byte, *Spongos, error)
}

// contentUnwrap mirrors contentWrap on the receive side: it reads
// whatever parent reference the wrap side wrote, looks it up itself, and
// proceeds against the forked sponge.
type contentUnwrap interface {
	unwrap(store LinkStore, hdrBytes []byte, body []byte) (*Spongos, error)
}

// forkParent looks up linkTo's committed sponge state and forks it,
// failing with StoreMiss if no such state has been committed yet. Announce
// has no parent and starts from a fresh sponge.
func forkParent(store LinkStore, linkTo Rel) (*Spongos, error) {
	entry, ok := store.Lookup(linkTo)
	if !ok {
		return nil, newErr("forkParent", StoreMiss, nil)
	}
	return entry.Spongos.Fork(), nil
}

// PreparedMessage pairs a header and content wrapper with the link store
// needed to find the parent sponge state.
type PreparedMessage struct {
	store   LinkStore
	header  HDF
	content contentWrap
}

func newPreparedMessage(store LinkStore, header HDF, content contentWrap) PreparedMessage {
	return PreparedMessage{store: store, header: header, content: content}
}

// Wrap runs the authenticated sponge over header and content and
// produces the binary message plus the post-wrap sponge state.
func (p PreparedMessage) Wrap() (BinaryMessage, WrapState, error) {
	hdrBytes := p.header.MarshalBinary()
	bodyBytes, sp, err := p.content.wrap(p.store, hdrBytes)
	if err != nil {
		return BinaryMessage{}, WrapState{}, err
	}
	wire := make([]byte, 0, len(hdrBytes)+len(bodyBytes))
	wire = append(wire, hdrBytes...)
	wire = append(wire, bodyBytes...)
	return BinaryMessage{Link: p.header.Link, Body: wire},
		WrapState{Link: p.header.Link, Spongos: sp},
		nil
}

// WrapState carries the sponge produced by wrapping a message and the
// link it should be committed under.
type WrapState struct {
	Link    Link
	Spongos *Spongos
}

// Commit persists the sponge state into store under Link.Rel, making it
// reachable as a parent for descendant messages.
func (w WrapState) Commit(store LinkStore, info LinkInfo) (Link, error) {
	if err := store.Update(w.Link.Rel, w.Spongos, info); err != nil {
		return Link{}, err
	}
	return w.Link, nil
}

// UnwrappedMessage is the result of unwrapping a PreparsedMessage: the
// content has been populated but the sponge state is not yet committed.
type UnwrappedMessage struct {
	link    Link
	spongos *Spongos
	content contentUnwrap
}

// Commit persists the sponge state and returns the populated content so
// the caller can pull whatever fields this content kind exposes.
func (u UnwrappedMessage) Commit(store LinkStore, info LinkInfo) (contentUnwrap, error) {
	if err := store.Update(u.link.Rel, u.spongos, info); err != nil {
		return nil, err
	}
	return u.content, nil
}

// unwrapContent runs content.unwrap against the link store directly;
// the content itself reads the parent reference off the wire and looks
// it up (Announce instead starts from a fresh sponge).
func unwrapContent(store LinkStore, preparsed PreparsedMessage, content contentUnwrap) (UnwrappedMessage, error) {
	hdrBytes := preparsed.Header.MarshalBinary()
	sp, err := content.unwrap(store, hdrBytes, preparsed.Body)
	if err != nil {
		return UnwrappedMessage{}, err
	}
	return UnwrappedMessage{link: preparsed.Header.Link, spongos: sp, content: content}, nil
}
