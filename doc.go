// Package docmap implements the document-identifier mapping layer of a
// document-oriented search engine's storage node.
//
// Documents are addressed externally by a stable global identifier (GID) and
// internally by a dense local identifier (LID). docmap owns the GID to LID
// table per document type and tells interested subsystems, in an order
// equivalent to write-log serial order, whenever a mapping is created or
// torn down — even though the feed pipeline completes operations
// concurrently and out of order.
//
// # Architecture
//
//   - core: the GID, LID and SerialNum value types.
//   - mapping: the per-document-type GID to LID table.
//   - notify: the change handler reconciling out-of-order completions and
//     fanning them out to registered listeners.
//   - feed: serial allocation and the worker pipeline applying operations.
//   - reference: reference attributes, the canonical listener consumer.
//   - blobstore: snapshot storage (memory, local disk, MinIO).
//
// The root package ties these together into a DB facade:
//
//	db := docmap.New()
//	defer db.Close()
//
//	db.AddDocType("music")
//	serial, err := db.Put(ctx, "music", gid, 7)
package docmap
