// Package reference maintains reference attributes: per-document links to a
// document of another (target) document type, addressed by the target's GID.
//
// The attribute keeps an inverted view (target GID to the set of referencing
// source LIDs, as roaring bitmaps) and a resolved target LID per referenced
// GID. The resolved LIDs are kept consistent with the target document type's
// mapping by registering a reference.Listener on that type's change handler.
package reference

import (
	"sync"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/hupe1980/docmap/core"
)

// Attribute tracks which source documents reference which target GID.
// Safe for concurrent use.
type Attribute struct {
	mu       sync.RWMutex
	refs     map[core.LID]core.GID
	postings map[core.GID]*roaring.Bitmap
	targets  map[core.GID]core.LID
}

// NewAttribute creates an empty reference attribute.
func NewAttribute() *Attribute {
	return &Attribute{
		refs:     make(map[core.LID]core.GID),
		postings: make(map[core.GID]*roaring.Bitmap),
		targets:  make(map[core.GID]core.LID),
	}
}

// Update sets the reference of the source document sourceLID to targetGID,
// replacing any previous reference.
func (a *Attribute) Update(sourceLID core.LID, targetGID core.GID) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.clearLocked(sourceLID)
	a.refs[sourceLID] = targetGID

	posting, ok := a.postings[targetGID]
	if !ok {
		posting = roaring.New()
		a.postings[targetGID] = posting
	}
	posting.Add(uint32(sourceLID))
}

// Clear removes the reference held by sourceLID, if any.
func (a *Attribute) Clear(sourceLID core.LID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clearLocked(sourceLID)
}

// clearLocked removes sourceLID's reference. Caller holds a.mu.
func (a *Attribute) clearLocked(sourceLID core.LID) {
	gid, ok := a.refs[sourceLID]
	if !ok {
		return
	}
	delete(a.refs, sourceLID)

	posting := a.postings[gid]
	posting.Remove(uint32(sourceLID))
	if posting.IsEmpty() {
		delete(a.postings, gid)
		delete(a.targets, gid)
	}
}

// ReferencedBy returns the set of source LIDs referencing targetGID.
// The returned bitmap is a copy and may be mutated freely.
func (a *Attribute) ReferencedBy(targetGID core.GID) *roaring.Bitmap {
	a.mu.RLock()
	defer a.mu.RUnlock()

	posting, ok := a.postings[targetGID]
	if !ok {
		return roaring.New()
	}
	return posting.Clone()
}

// TargetLID returns the resolved LID of the referenced target document, if
// the target currently exists in its document type's mapping.
func (a *Attribute) TargetLID(targetGID core.GID) (core.LID, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	lid, ok := a.targets[targetGID]
	return lid, ok
}

// NumReferences returns the number of source documents holding a reference.
func (a *Attribute) NumReferences() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.refs)
}

// setTargetLID records the resolved LID for targetGID if the target is
// referenced by at least one source document.
func (a *Attribute) setTargetLID(targetGID core.GID, lid core.LID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.postings[targetGID]; ok {
		a.targets[targetGID] = lid
	}
}

// clearTargetLID drops the resolved LID for targetGID.
func (a *Attribute) clearTargetLID(targetGID core.GID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.targets, targetGID)
}

// populateTargetLIDs resolves the target LID of every referenced GID via
// resolve. Used when the attribute (re)attaches to a change handler.
func (a *Attribute) populateTargetLIDs(resolve func(core.GID) (core.LID, bool)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.targets = make(map[core.GID]core.LID, len(a.postings))
	for gid := range a.postings {
		if lid, ok := resolve(gid); ok {
			a.targets[gid] = lid
		}
	}
}
