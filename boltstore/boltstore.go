// Package boltstore implements channel.PkStore, channel.PskStore, and
// channel.LinkStore on top of a single bbolt database file, so a long-lived
// participant can resume a channel across restarts instead of losing every
// cursor and sponge state it had committed.
package boltstore

import (
	"crypto/ed25519"
	"fmt"

	bolt "github.com/coreos/bbolt"

	channel "github.com/nym-raven/streamchannel"
)

const (
	pkBucket   = "pk"
	pskBucket  = "psk"
	linkBucket = "link"
)

// Store opens (or creates) a bbolt file holding all three of a channel
// participant's persistent stores.
type Store struct {
	db *bolt.DB
}

// Open creates or loads a Store backed by the file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [...]string{pkBucket, pskBucket, linkBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		s.db.Close()
		return nil, err
	}
	return s, nil
}

// Close syncs and closes the underlying database file.
func (s *Store) Close() error {
	if err := s.db.Sync(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}

// PkStore returns a channel.PkStore view over this database.
func (s *Store) PkStore() *PkStore { return &PkStore{db: s.db} }

// PskStore returns a channel.PskStore view over this database.
func (s *Store) PskStore() *PskStore { return &PskStore{db: s.db} }

// LinkStore returns a channel.LinkStore view over this database.
func (s *Store) LinkStore() *LinkStore { return &LinkStore{db: s.db} }

// PkStore persists channel.PkEntry rows keyed by signing public key.
type PkStore struct {
	db *bolt.DB
}

var _ channel.PkStore = (*PkStore)(nil)

// marshalPkEntry encodes one PkStore row as ke_pub(32) || branch_no(4) ||
// seq_no(4) || link_rel(32).
func marshalPkEntry(e channel.PkEntry) []byte {
	out := make([]byte, 0, 32+4+4+32)
	out = append(out, e.KePub[:]...)
	out = appendUint32(out, e.Cursor.BranchNo)
	out = appendUint32(out, e.Cursor.SeqNo)
	out = append(out, e.Cursor.Link[:]...)
	return out
}

func unmarshalPkEntry(data []byte) (channel.PkEntry, error) {
	if len(data) != 32+4+4+32 {
		return channel.PkEntry{}, fmt.Errorf("boltstore: bad pk record length: %d", len(data))
	}
	var e channel.PkEntry
	copy(e.KePub[:], data[0:32])
	e.Cursor.BranchNo = readUint32(data[32:36])
	e.Cursor.SeqNo = readUint32(data[36:40])
	copy(e.Cursor.Link[:], data[40:72])
	return e, nil
}

func (s *PkStore) Insert(pk ed25519.PublicKey, kePub [32]byte, cursor channel.Cursor) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(pkBucket))
		return bkt.Put(pk, marshalPkEntry(channel.PkEntry{KePub: kePub, Cursor: cursor}))
	})
}

func (s *PkStore) Get(pk ed25519.PublicKey) (channel.PkEntry, bool) {
	var entry channel.PkEntry
	found := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(pkBucket)).Get(pk)
		if raw == nil {
			return nil
		}
		e, err := unmarshalPkEntry(raw)
		if err != nil {
			return err
		}
		entry, found = e, true
		return nil
	})
	return entry, found
}

func (s *PkStore) Update(pk ed25519.PublicKey, fn func(*channel.Cursor)) bool {
	updated := false
	_ = s.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(pkBucket))
		raw := bkt.Get(pk)
		if raw == nil {
			return nil
		}
		e, err := unmarshalPkEntry(raw)
		if err != nil {
			return err
		}
		fn(&e.Cursor)
		updated = true
		return bkt.Put(pk, marshalPkEntry(e))
	})
	return updated
}

func (s *PkStore) iterate(keep func(pk ed25519.PublicKey) bool) []channel.PkKe {
	var out []channel.PkKe
	_ = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(pkBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			pk := append(ed25519.PublicKey(nil), k...)
			if keep != nil && !keep(pk) {
				continue
			}
			e, err := unmarshalPkEntry(v)
			if err != nil {
				continue
			}
			out = append(out, channel.PkKe{SigPk: pk, KePk: e.KePub})
		}
		return nil
	})
	return out
}

func (s *PkStore) Iter() []channel.PkKe  { return s.iterate(nil) }
func (s *PkStore) Keys() []channel.PkKe { return s.iterate(nil) }

func (s *PkStore) Filter(pks []ed25519.PublicKey) []channel.PkKe {
	wanted := make(map[string]bool, len(pks))
	for _, pk := range pks {
		wanted[string(pk)] = true
	}
	return s.iterate(func(pk ed25519.PublicKey) bool { return wanted[string(pk)] })
}

func (s *PkStore) GetKePk(pk ed25519.PublicKey) ([32]byte, bool) {
	e, ok := s.Get(pk)
	return e.KePub, ok
}

// PskStore persists pre-shared keys keyed by their 16-byte id.
type PskStore struct {
	db *bolt.DB
}

var _ channel.PskStore = (*PskStore)(nil)

func (s *PskStore) Insert(id channel.PskId, psk channel.Psk) {
	_ = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(pskBucket)).Put(id[:], psk[:])
	})
}

func (s *PskStore) Get(id channel.PskId) (channel.Psk, bool) {
	var psk channel.Psk
	found := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(pskBucket)).Get(id[:])
		if raw == nil || len(raw) != 32 {
			return nil
		}
		copy(psk[:], raw)
		found = true
		return nil
	})
	return psk, found
}

func (s *PskStore) Iter() []channel.PskEntry {
	var out []channel.PskEntry
	_ = s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(pskBucket)).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var entry channel.PskEntry
			copy(entry.Id[:], k)
			copy(entry.Psk[:], v)
			out = append(out, entry)
		}
		return nil
	})
	return out
}

func (s *PskStore) Filter(ids []channel.PskId) []channel.PskEntry {
	out := make([]channel.PskEntry, 0, len(ids))
	for _, id := range ids {
		if psk, ok := s.Get(id); ok {
			out = append(out, channel.PskEntry{Id: id, Psk: psk})
		}
	}
	return out
}

// LinkStore persists committed sponge states keyed by their relative link.
// Unlike channel.MapLinkStore, bbolt transactions already serialize
// concurrent writers; a link store backed by this package cannot observe
// the non-reentrant-access failure MapLinkStore's mutex guards against,
// since bolt.Tx blocks rather than fails.
type LinkStore struct {
	db *bolt.DB
}

var _ channel.LinkStore = (*LinkStore)(nil)

func (s *LinkStore) Lookup(rel channel.Rel) (channel.LinkStoreEntry, bool) {
	var entry channel.LinkStoreEntry
	found := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(linkBucket)).Get(rel[:])
		if raw == nil {
			return nil
		}
		sp := channel.NewSpongos()
		if err := sp.UnmarshalBinary(raw); err != nil {
			return err
		}
		entry, found = channel.LinkStoreEntry{Spongos: sp}, true
		return nil
	})
	return entry, found
}

func (s *LinkStore) Update(rel channel.Rel, sp *channel.Spongos, info channel.LinkInfo) error {
	raw, err := sp.MarshalBinary()
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(linkBucket)).Put(rel[:], raw)
	})
}

func appendUint32(dst []byte, v uint32) []byte {
	return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

func readUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}
