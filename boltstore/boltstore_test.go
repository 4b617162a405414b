package boltstore

import (
	"path/filepath"
	"testing"

	channel "github.com/nym-raven/streamchannel"
	"github.com/stretchr/testify/require"
)

func TestPkStoreRoundTrip(t *testing.T) {
	r := require.New(t)
	store, err := Open(filepath.Join(t.TempDir(), "channel.db"))
	r.NoError(err)
	defer store.Close()

	pk := store.PkStore()
	id, err := channel.GenerateIdentity(channel.NewDeterministicPRNG(1))
	r.NoError(err)

	cursor := channel.NewCursorAt(channel.Rel{1, 2, 3}, 0, 2)
	pk.Insert(id.SigPublic(), id.KePublic(), cursor)

	entry, ok := pk.Get(id.SigPublic())
	r.True(ok)
	r.Equal(id.KePublic(), entry.KePub)
	r.Equal(cursor, entry.Cursor)

	ok = pk.Update(id.SigPublic(), func(c *channel.Cursor) { c.NextSeq() })
	r.True(ok)
	entry, _ = pk.Get(id.SigPublic())
	r.Equal(uint32(3), entry.Cursor.SeqNo)

	all := pk.Iter()
	r.Len(all, 1)
	r.True(all[0].SigPk.Equal(id.SigPublic()))
}

func TestPskStoreRoundTrip(t *testing.T) {
	r := require.New(t)
	store, err := Open(filepath.Join(t.TempDir(), "channel.db"))
	r.NoError(err)
	defer store.Close()

	psk := store.PskStore()
	id := channel.PskId{1, 1, 1}
	key := channel.Psk{9, 9, 9}
	psk.Insert(id, key)

	got, ok := psk.Get(id)
	r.True(ok)
	r.Equal(key, got)

	filtered := psk.Filter([]channel.PskId{id, {2, 2, 2}})
	r.Len(filtered, 1)
	r.Equal(id, filtered[0].Id)
}

func TestLinkStoreRoundTrip(t *testing.T) {
	r := require.New(t)
	store, err := Open(filepath.Join(t.TempDir(), "channel.db"))
	r.NoError(err)
	defer store.Close()

	links := store.LinkStore()
	sp := channel.NewSpongos()
	sp.Absorb([]byte("committed state"))

	var rel channel.Rel
	rel[0] = 7
	r.NoError(links.Update(rel, sp, nil))

	entry, ok := links.Lookup(rel)
	r.True(ok)
	r.Equal(sp.Tag(32), entry.Spongos.Tag(32))
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	r := require.New(t)
	path := filepath.Join(t.TempDir(), "channel.db")

	store, err := Open(path)
	r.NoError(err)
	id := channel.PskId{5}
	store.PskStore().Insert(id, channel.Psk{1})
	r.NoError(store.Close())

	reopened, err := Open(path)
	r.NoError(err)
	defer reopened.Close()

	got, ok := reopened.PskStore().Get(id)
	r.True(ok)
	r.Equal(channel.Psk{1}, got)
}
