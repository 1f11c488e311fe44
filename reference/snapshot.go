package reference

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/docmap/blobstore"
	"github.com/hupe1980/docmap/core"
)

const (
	// snapshotMagic identifies reference attribute snapshots (ASCII: "DMRA")
	snapshotMagic = 0x444D5241
	// snapshotVersion is the current snapshot format version
	snapshotVersion = 1
)

var (
	ErrInvalidMagic   = errors.New("invalid snapshot magic")
	ErrInvalidVersion = errors.New("unsupported snapshot version")
)

// Save writes the attribute's references to store as a zstd-compressed blob.
// Only the source LID to target GID map is stored; postings are an inverted
// view and resolved target LIDs are re-seeded on listener registration, so
// both are rebuilt on load.
func (a *Attribute) Save(ctx context.Context, store blobstore.Store, name string) error {
	a.mu.RLock()
	raw := make([]byte, 16, 16+len(a.refs)*(4+core.GIDSize))
	binary.LittleEndian.PutUint32(raw[0:], snapshotMagic)
	binary.LittleEndian.PutUint32(raw[4:], snapshotVersion)
	binary.LittleEndian.PutUint64(raw[8:], uint64(len(a.refs)))
	var entry [4 + core.GIDSize]byte
	for lid, gid := range a.refs {
		binary.LittleEndian.PutUint32(entry[0:], uint32(lid))
		copy(entry[4:], gid[:])
		raw = append(raw, entry[:]...)
	}
	a.mu.RUnlock()

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return err
	}
	compressed := enc.EncodeAll(raw, nil)
	if err := enc.Close(); err != nil {
		return err
	}

	return store.Put(ctx, name, compressed)
}

// Load replaces the attribute's state with the snapshot stored under name.
func (a *Attribute) Load(ctx context.Context, store blobstore.Store, name string) error {
	compressed, err := store.Get(ctx, name)
	if err != nil {
		return err
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return err
	}
	defer dec.Close()

	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("decompress snapshot %s: %w", name, err)
	}
	if len(raw) < 16 {
		return fmt.Errorf("snapshot %s: truncated header", name)
	}
	if binary.LittleEndian.Uint32(raw[0:]) != snapshotMagic {
		return ErrInvalidMagic
	}
	if binary.LittleEndian.Uint32(raw[4:]) != snapshotVersion {
		return ErrInvalidVersion
	}
	count := binary.LittleEndian.Uint64(raw[8:])

	const entrySize = 4 + core.GIDSize
	body := raw[16:]
	if count > uint64(len(body))/entrySize || uint64(len(body)) != count*entrySize {
		return fmt.Errorf("snapshot %s: body size %d does not match %d entries", name, len(body), count)
	}

	refs := make(map[core.LID]core.GID, count)
	for i := uint64(0); i < count; i++ {
		off := i * entrySize
		lid := core.LID(binary.LittleEndian.Uint32(body[off:]))
		var gid core.GID
		copy(gid[:], body[off+4:off+entrySize])
		refs[lid] = gid
	}

	postings := make(map[core.GID]*roaring.Bitmap)
	for lid, gid := range refs {
		posting, ok := postings[gid]
		if !ok {
			posting = roaring.New()
			postings[gid] = posting
		}
		posting.Add(uint32(lid))
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.refs = refs
	a.postings = postings
	a.targets = make(map[core.GID]core.LID)
	return nil
}
