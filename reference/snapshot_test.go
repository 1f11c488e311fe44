package reference

import (
	"context"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/docmap/blobstore"
)

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	a := NewAttribute()
	a.Update(10, gidOf(1))
	a.Update(11, gidOf(1))
	a.Update(12, gidOf(2))

	require.NoError(t, a.Save(ctx, store, "refs/parent.snap"))

	loaded := NewAttribute()
	require.NoError(t, loaded.Load(ctx, store, "refs/parent.snap"))

	require.Equal(t, 3, loaded.NumReferences())
	require.ElementsMatch(t, []uint32{10, 11}, loaded.ReferencedBy(gidOf(1)).ToArray())
	require.ElementsMatch(t, []uint32{12}, loaded.ReferencedBy(gidOf(2)).ToArray())

	// Resolved target LIDs are not part of the snapshot.
	_, ok := loaded.TargetLID(gidOf(1))
	require.False(t, ok)
}

func TestSnapshotLoadMissing(t *testing.T) {
	a := NewAttribute()
	err := a.Load(context.Background(), blobstore.NewMemoryStore(), "nope")
	require.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestSnapshotLoadCorrupt(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	a := NewAttribute()
	a.Update(10, gidOf(1))
	require.NoError(t, a.Save(ctx, store, "good"))

	good, err := store.Get(ctx, "good")
	require.NoError(t, err)

	// Not zstd at all.
	require.NoError(t, store.Put(ctx, "garbage", []byte("not a snapshot")))
	require.Error(t, NewAttribute().Load(ctx, store, "garbage"))

	// Valid compression, bad magic.
	require.NoError(t, store.Put(ctx, "badmagic", tamper(t, good, 0, 0xDEADBEEF)))
	err = NewAttribute().Load(ctx, store, "badmagic")
	require.True(t, errors.Is(err, ErrInvalidMagic), "err=%v", err)

	// Valid compression, unknown version.
	require.NoError(t, store.Put(ctx, "badversion", tamper(t, good, 4, 99)))
	err = NewAttribute().Load(ctx, store, "badversion")
	require.True(t, errors.Is(err, ErrInvalidVersion), "err=%v", err)
}

// tamper decompresses a snapshot blob, overwrites the uint32 at off, and
// recompresses it.
func tamper(t *testing.T, compressed []byte, off int, value uint32) []byte {
	t.Helper()

	dec, err := zstd.NewReader(nil)
	require.NoError(t, err)
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	require.NoError(t, err)

	binary.LittleEndian.PutUint32(raw[off:], value)

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	defer enc.Close()
	return enc.EncodeAll(raw, nil)
}
