package channel

import (
	"crypto/ed25519"
	"sync"
)

// PkEntry is what PkStore remembers about a publisher: the X25519
// key-agreement key it announced or subscribed with, and its current
// cursor.
type PkEntry struct {
	KePub  [32]byte
	Cursor Cursor
}

// PkKe is a (signing key, key-agreement key) pair, the shape PkStore.Keys
// and PkStore.Filter are specified to yield.
type PkKe struct {
	SigPk ed25519.PublicKey
	KePk  [32]byte
}

// PkStore maps a signer identity to its cursor and derived key-agreement
// identity. Lookup must be O(1) average; iteration order is not
// observable.
type PkStore interface {
	Insert(pk ed25519.PublicKey, kePub [32]byte, cursor Cursor)
	Get(pk ed25519.PublicKey) (PkEntry, bool)
	// Update mutates the cursor for pk in place and reports whether pk
	// was present. It is the Go-idiomatic stand-in for get_mut.
	Update(pk ed25519.PublicKey, fn func(*Cursor)) bool
	Iter() []PkKe
	Keys() []PkKe
	Filter(pks []ed25519.PublicKey) []PkKe
	GetKePk(pk ed25519.PublicKey) ([32]byte, bool)
}

// PskId identifies a pre-shared key.
type PskId [16]byte

// Psk is a pre-shared symmetric key.
type Psk [32]byte

// PskEntry pairs a PskId with its key, the shape PskStore.Iter and
// PskStore.Filter are specified to yield.
type PskEntry struct {
	Id  PskId
	Psk Psk
}

// PskStore maps a pre-shared-key id to its key.
type PskStore interface {
	Insert(id PskId, psk Psk)
	Get(id PskId) (Psk, bool)
	Iter() []PskEntry
	Filter(ids []PskId) []PskEntry
}

// LinkInfo is caller-supplied metadata committed alongside a sponge
// state — transport receipt, timestamps, whatever the caller wants
// threaded through. The core never inspects it.
type LinkInfo interface{}

// LinkStoreEntry is a committed sponge state plus the caller info it was
// committed with.
type LinkStoreEntry struct {
	Spongos *Spongos
	Info    LinkInfo
}

// LinkStore maps a relative link to the sponge state committed under it,
// so subsequent messages can be chained into a prior authenticated state.
type LinkStore interface {
	Lookup(rel Rel) (LinkStoreEntry, bool)
	Update(rel Rel, spongos *Spongos, info LinkInfo) error
}

// MapPkStore is the default in-memory PkStore.
type MapPkStore struct {
	entries map[[ed25519.PublicKeySize]byte]pkStoreRow
}

type pkStoreRow struct {
	pk    ed25519.PublicKey
	entry PkEntry
}

func keyOf(pk ed25519.PublicKey) [ed25519.PublicKeySize]byte {
	var k [ed25519.PublicKeySize]byte
	copy(k[:], pk)
	return k
}

// NewMapPkStore returns an empty in-memory PkStore.
func NewMapPkStore() *MapPkStore {
	return &MapPkStore{entries: make(map[[ed25519.PublicKeySize]byte]pkStoreRow)}
}

var _ PkStore = (*MapPkStore)(nil)

func (s *MapPkStore) Insert(pk ed25519.PublicKey, kePub [32]byte, cursor Cursor) {
	pkCopy := append(ed25519.PublicKey(nil), pk...)
	s.entries[keyOf(pk)] = pkStoreRow{pk: pkCopy, entry: PkEntry{KePub: kePub, Cursor: cursor}}
}

func (s *MapPkStore) Get(pk ed25519.PublicKey) (PkEntry, bool) {
	row, ok := s.entries[keyOf(pk)]
	return row.entry, ok
}

func (s *MapPkStore) Update(pk ed25519.PublicKey, fn func(*Cursor)) bool {
	row, ok := s.entries[keyOf(pk)]
	if !ok {
		return false
	}
	fn(&row.entry.Cursor)
	s.entries[keyOf(pk)] = row
	return true
}

func (s *MapPkStore) Iter() []PkKe {
	out := make([]PkKe, 0, len(s.entries))
	for _, row := range s.entries {
		out = append(out, PkKe{SigPk: row.pk, KePk: row.entry.KePub})
	}
	return out
}

func (s *MapPkStore) Keys() []PkKe { return s.Iter() }

func (s *MapPkStore) Filter(pks []ed25519.PublicKey) []PkKe {
	out := make([]PkKe, 0, len(pks))
	for _, pk := range pks {
		if row, ok := s.entries[keyOf(pk)]; ok {
			out = append(out, PkKe{SigPk: row.pk, KePk: row.entry.KePub})
		}
	}
	return out
}

func (s *MapPkStore) GetKePk(pk ed25519.PublicKey) ([32]byte, bool) {
	row, ok := s.entries[keyOf(pk)]
	return row.entry.KePub, ok
}

// MapPskStore is the default in-memory PskStore.
type MapPskStore struct {
	entries map[PskId]Psk
}

// NewMapPskStore returns an empty in-memory PskStore.
func NewMapPskStore() *MapPskStore {
	return &MapPskStore{entries: make(map[PskId]Psk)}
}

var _ PskStore = (*MapPskStore)(nil)

func (s *MapPskStore) Insert(id PskId, psk Psk) { s.entries[id] = psk }

func (s *MapPskStore) Get(id PskId) (Psk, bool) {
	psk, ok := s.entries[id]
	return psk, ok
}

func (s *MapPskStore) Iter() []PskEntry {
	out := make([]PskEntry, 0, len(s.entries))
	for id, psk := range s.entries {
		out = append(out, PskEntry{Id: id, Psk: psk})
	}
	return out
}

func (s *MapPskStore) Filter(ids []PskId) []PskEntry {
	out := make([]PskEntry, 0, len(ids))
	for _, id := range ids {
		if psk, ok := s.entries[id]; ok {
			out = append(out, PskEntry{Id: id, Psk: psk})
		}
	}
	return out
}

// MapLinkStore is the default in-memory LinkStore. It enforces non-reentrant
// access with a mutex: a lookup or update that arrives while another is in
// flight fails explicitly instead of deadlocking.
type MapLinkStore struct {
	mu      sync.Mutex
	entries map[Rel]LinkStoreEntry
}

// NewMapLinkStore returns an empty in-memory LinkStore.
func NewMapLinkStore() *MapLinkStore {
	return &MapLinkStore{entries: make(map[Rel]LinkStoreEntry)}
}

var _ LinkStore = (*MapLinkStore)(nil)

func (s *MapLinkStore) Lookup(rel Rel) (LinkStoreEntry, bool) {
	if !s.mu.TryLock() {
		return LinkStoreEntry{}, false
	}
	defer s.mu.Unlock()
	e, ok := s.entries[rel]
	return e, ok
}

func (s *MapLinkStore) Update(rel Rel, sp *Spongos, info LinkInfo) error {
	if !s.mu.TryLock() {
		return errf("LinkStore.Update", PreconditionUnmet, "re-entrant link store access")
	}
	defer s.mu.Unlock()
	s.entries[rel] = LinkStoreEntry{Spongos: sp, Info: info}
	return nil
}
