package docmap

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/docmap/blobstore"
	"github.com/hupe1980/docmap/core"
	"github.com/hupe1980/docmap/feed"
	"github.com/hupe1980/docmap/mapping"
	"github.com/hupe1980/docmap/notify"
)

// docType bundles the per-document-type state: the mapping table, its
// change handler, and the pipeline applying operations to both.
type docType struct {
	name     string
	store    *mapping.Store
	handler  *notify.ChangeHandler
	pipeline *feed.Pipeline
}

// DB is the document-identifier mapping layer for a set of document types.
// Serial numbers are allocated from a single domain shared by all types.
//
// Put and Remove for one document type must be issued from a single
// goroutine (the type's feed master); different types may feed
// concurrently, and all read operations are safe for concurrent use.
type DB struct {
	opts    options
	serials feed.SerialAllocator

	mu     sync.RWMutex
	types  map[string]*docType
	closed bool
}

// New creates an empty DB.
func New(optFns ...Option) *DB {
	opts := options{
		logger: NoopLogger(),
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	return &DB{
		opts:  opts,
		types: make(map[string]*docType),
	}
}

// AddDocType registers a document type with an empty mapping.
func (db *DB) AddDocType(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.closed {
		return ErrClosed
	}
	if _, ok := db.types[name]; ok {
		return fmt.Errorf("%w: %s", ErrDocTypeExists, name)
	}

	store := mapping.NewStore()
	handler := notify.NewChangeHandler()
	pipeline := feed.New(store, handler, &db.serials, func(o *feed.Options) {
		o.Workers = db.opts.workers
		o.RateLimit = db.opts.rateLimit
		o.Burst = db.opts.burst
	})

	db.types[name] = &docType{
		name:     name,
		store:    store,
		handler:  handler,
		pipeline: pipeline,
	}
	db.opts.logger.Info("document type added", "doc_type", name)
	return nil
}

func (db *DB) docType(name string) (*docType, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	if db.closed {
		return nil, ErrClosed
	}
	dt, ok := db.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDocType, name)
	}
	return dt, nil
}

// Put maps gid to lid within docType and returns the operation's serial.
func (db *DB) Put(ctx context.Context, docType string, gid core.GID, lid core.LID) (core.SerialNum, error) {
	dt, err := db.docType(docType)
	if err != nil {
		return 0, err
	}
	serial, err := dt.pipeline.Put(ctx, gid, lid)
	if err != nil {
		return 0, err
	}
	db.opts.logger.LogPut(docType, gid, lid, serial)
	return serial, nil
}

// Remove tears down the mapping for gid within docType and returns the
// operation's serial.
func (db *DB) Remove(ctx context.Context, docType string, gid core.GID) (core.SerialNum, error) {
	dt, err := db.docType(docType)
	if err != nil {
		return 0, err
	}
	serial, err := dt.pipeline.Remove(ctx, gid)
	if err != nil {
		return 0, err
	}
	db.opts.logger.LogRemove(docType, gid, serial)
	return serial, nil
}

// Lookup returns the LID currently mapped to gid within docType. The result
// reflects applied operations only; a submitted but unapplied put is not yet
// visible.
func (db *DB) Lookup(docType string, gid core.GID) (core.LID, bool, error) {
	dt, err := db.docType(docType)
	if err != nil {
		return 0, false, err
	}
	lid, ok := dt.store.Lookup(gid)
	return lid, ok, nil
}

// AddListener registers l on the change handler of its document type.
// Ownership of l transfers to the DB.
func (db *DB) AddListener(l notify.Listener) error {
	dt, err := db.docType(l.DocTypeName())
	if err != nil {
		return err
	}
	dt.handler.AddListener(l)
	db.opts.logger.LogListenerAdded(l.DocTypeName(), l.Name())
	return nil
}

// RemoveListeners removes every listener of docType whose name is not in
// keepNames.
func (db *DB) RemoveListeners(docType string, keepNames map[string]struct{}) error {
	dt, err := db.docType(docType)
	if err != nil {
		return err
	}
	dt.handler.RemoveListeners(docType, keepNames)
	return nil
}

// SnapshotStore returns the configured snapshot store, or nil.
func (db *DB) SnapshotStore() blobstore.Store {
	return db.opts.snapshotStore
}

// Close drains every document type's pipeline, destroys all listeners and
// verifies the handlers are fully drained. Idempotent.
func (db *DB) Close() error {
	db.mu.Lock()
	if db.closed {
		db.mu.Unlock()
		return nil
	}
	db.closed = true
	types := make([]*docType, 0, len(db.types))
	for _, dt := range db.types {
		types = append(types, dt)
	}
	db.mu.Unlock()

	for _, dt := range types {
		if err := dt.pipeline.Drain(); err != nil {
			return fmt.Errorf("drain %s: %w", dt.name, err)
		}
		dt.handler.Close()
		dt.handler.Shutdown()
	}
	db.opts.logger.LogClose(len(types))
	return nil
}
