package notify

import (
	"github.com/hupe1980/docmap/core"
)

// Listener consumes GID to LID mapping changes for one document type.
//
// Listeners are identified by the pair (DocTypeName, Name); the handler never
// holds two listeners with the same identity. Callbacks are invoked
// synchronously while the handler's lock is held, so implementations must not
// re-enter the handler and must return quickly.
type Listener interface {
	// NotifyPutDone is called after a put assigned lid to gid.
	NotifyPutDone(gid core.GID, lid core.LID)

	// NotifyRemove is called when gid is being removed from the mapping.
	NotifyRemove(gid core.GID)

	// NotifyRegistered is called once, when the listener has been added to
	// the handler.
	NotifyRegistered()

	// DocTypeName returns the name of the document type this listener
	// belongs to.
	DocTypeName() string

	// Name returns the listener name, unique within its document type.
	Name() string
}
