package reference

import (
	"github.com/hupe1980/docmap/core"
	"github.com/hupe1980/docmap/notify"
)

// Resolve looks up the current LID of a GID in the target document type's
// mapping. mapping.Store's Lookup satisfies this signature.
type Resolve func(core.GID) (core.LID, bool)

// Listener keeps an Attribute's resolved target LIDs in sync with the
// target document type's GID to LID mapping. Register it on the target
// type's change handler.
type Listener struct {
	attr    *Attribute
	docType string
	name    string
	resolve Resolve
}

var _ notify.Listener = (*Listener)(nil)

// NewListener creates a listener for attr. docType is the target document
// type whose changes are tracked; name identifies the attribute within that
// type. resolve is consulted on registration to seed the target LIDs.
func NewListener(attr *Attribute, docType, name string, resolve Resolve) *Listener {
	return &Listener{
		attr:    attr,
		docType: docType,
		name:    name,
		resolve: resolve,
	}
}

// NotifyPutDone records the target's new LID if any source document
// references it.
func (l *Listener) NotifyPutDone(gid core.GID, lid core.LID) {
	l.attr.setTargetLID(gid, lid)
}

// NotifyRemove invalidates the resolved LID for a removed target.
func (l *Listener) NotifyRemove(gid core.GID) {
	l.attr.clearTargetLID(gid)
}

// NotifyRegistered resolves all currently referenced targets. Changes that
// happened before registration are not replayed, so the seed scan is the
// only way to observe them.
func (l *Listener) NotifyRegistered() {
	l.attr.populateTargetLIDs(l.resolve)
}

// DocTypeName returns the target document type name.
func (l *Listener) DocTypeName() string { return l.docType }

// Name returns the attribute name.
func (l *Listener) Name() string { return l.name }
