package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/hupe1980/docmap/core"
)

// pendingRemoveEntry tracks the outstanding removes for a single GID.
//
// An entry exists iff at least one remove for the GID has been registered and
// not yet acknowledged done. removeSerial is the highest remove serial seen;
// putSerial is the serial of the most recent put completion observed while
// the entry existed (zero means none, valid serials start at 1).
type pendingRemoveEntry struct {
	removeSerial core.SerialNum
	putSerial    core.SerialNum
	refCount     uint32
}

// ChangeHandler reconciles out-of-order put/remove completions on the
// GID to LID mapping and fans them out to registered listeners.
//
// Multiple feed and replay goroutines may complete operations for the same
// GID out of order relative to each other, tagged only with a globally
// monotonic serial number. The handler delivers notifications equivalent to
// replaying the operations in serial order: it only ever decides "deliver
// now" or "suppress", never "deliver later". A put completing behind an
// already registered later remove is suppressed; a remove registering on top
// of an outstanding remove is re-announced only if an intervening put made
// listeners believe the document is present.
//
// Serial-number discipline is owed by the upstream write-ahead log. A
// violation (shared serial, non-monotonic serial per GID, completing a
// remove that was never registered) can only be an upstream bug, so the
// handler panics instead of returning an error.
type ChangeHandler struct {
	mu            sync.Mutex
	listeners     []Listener
	closed        bool
	pendingRemove map[core.GID]*pendingRemoveEntry
}

// NewChangeHandler creates an open handler with no listeners and no pending
// removes.
func NewChangeHandler() *ChangeHandler {
	return &ChangeHandler{
		pendingRemove: make(map[core.GID]*pendingRemoveEntry),
	}
}

// notifyPutDone fans out unconditionally. Caller holds h.mu.
func (h *ChangeHandler) notifyPutDone(gid core.GID, lid core.LID) {
	for _, l := range h.listeners {
		l.NotifyPutDone(gid, lid)
	}
}

// notifyRemove fans out unconditionally. Caller holds h.mu.
func (h *ChangeHandler) notifyRemove(gid core.GID) {
	for _, l := range h.listeners {
		l.NotifyRemove(gid)
	}
}

// NotifyPutDone reports that a put operation stamped with serial assigned
// lid to gid. The notification is suppressed if a remove with a higher
// serial is already outstanding for gid.
func (h *ChangeHandler) NotifyPutDone(gid core.GID, lid core.LID, serial core.SerialNum) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if entry, ok := h.pendingRemove[gid]; ok {
		if entry.removeSerial == serial {
			panic(fmt.Sprintf("notify: put and remove share serial %d for gid %s", serial, gid))
		}
		if entry.removeSerial > serial {
			// Document has already been removed later on.
			return
		}
		if entry.putSerial >= serial {
			panic(fmt.Sprintf("notify: put serial %d for gid %s not after observed put serial %d",
				serial, gid, entry.putSerial))
		}
		entry.putSerial = serial
	}
	h.notifyPutDone(gid, lid)
}

// NotifyRemove registers a remove operation stamped with serial for gid.
// Every call must be paired with exactly one later NotifyRemoveDone carrying
// the same serial.
func (h *ChangeHandler) NotifyRemove(gid core.GID, serial core.SerialNum) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.pendingRemove[gid]
	if !ok {
		h.pendingRemove[gid] = &pendingRemoveEntry{removeSerial: serial, refCount: 1}
		h.notifyRemove(gid)
		return
	}
	if entry.removeSerial >= serial {
		panic(fmt.Sprintf("notify: remove serial %d for gid %s not after remove serial %d",
			serial, gid, entry.removeSerial))
	}
	if entry.putSerial >= serial {
		panic(fmt.Sprintf("notify: remove serial %d for gid %s not after put serial %d",
			serial, gid, entry.putSerial))
	}
	if entry.removeSerial < entry.putSerial {
		// Listeners last saw this document as present, announce the remove.
		h.notifyRemove(gid)
	}
	entry.removeSerial = serial
	entry.refCount++
}

// NotifyRemoveDone acknowledges that the remove registered with serial for
// gid has completed. The pending entry is erased when its last outstanding
// remove completes.
func (h *ChangeHandler) NotifyRemoveDone(gid core.GID, serial core.SerialNum) {
	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.pendingRemove[gid]
	if !ok {
		panic(fmt.Sprintf("notify: remove done for gid %s without pending remove", gid))
	}
	if entry.removeSerial < serial {
		panic(fmt.Sprintf("notify: remove done serial %d for gid %s ahead of remove serial %d",
			serial, gid, entry.removeSerial))
	}
	entry.refCount--
	if entry.refCount == 0 {
		delete(h.pendingRemove, gid)
	}
}

// AddListener transfers ownership of l to the handler. If a listener with
// the same (document type, name) identity is already registered, l is
// discarded. On success the listener's NotifyRegistered callback is invoked
// before AddListener returns.
func (h *ChangeHandler) AddListener(l Listener) {
	var discard []Listener
	defer func() {
		destroyListeners(discard)
	}()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		if len(h.listeners) != 0 {
			panic("notify: listeners registered on closed handler")
		}
		discard = append(discard, l)
		return
	}
	docType, name := l.DocTypeName(), l.Name()
	for _, old := range h.listeners {
		if old.DocTypeName() == docType && old.Name() == name {
			discard = append(discard, l)
			return
		}
	}
	h.listeners = append(h.listeners, l)
	l.NotifyRegistered()
}

// RemoveListeners removes every listener of document type docType whose name
// is not in keepNames. Removed listeners are destroyed after the handler's
// lock has been released.
func (h *ChangeHandler) RemoveListeners(docType string, keepNames map[string]struct{}) {
	var deferredDestroy []Listener

	h.mu.Lock()
	if h.closed {
		if len(h.listeners) != 0 {
			panic("notify: listeners registered on closed handler")
		}
		h.mu.Unlock()
		return
	}
	kept := h.listeners[:0]
	for _, l := range h.listeners {
		if shouldRemoveListener(l, docType, keepNames) {
			deferredDestroy = append(deferredDestroy, l)
		} else {
			kept = append(kept, l)
		}
	}
	for i := len(kept); i < len(h.listeners); i++ {
		h.listeners[i] = nil
	}
	h.listeners = kept
	h.mu.Unlock()

	destroyListeners(deferredDestroy)
}

func shouldRemoveListener(l Listener, docType string, keepNames map[string]struct{}) bool {
	if l.DocTypeName() != docType {
		return false
	}
	_, keep := keepNames[l.Name()]
	return !keep
}

// Close marks the handler closed and destroys all registered listeners.
// Further AddListener/RemoveListeners calls become no-ops. Close is
// idempotent.
func (h *ChangeHandler) Close() {
	h.mu.Lock()
	h.closed = true
	deferredDestroy := h.listeners
	h.listeners = nil
	h.mu.Unlock()

	destroyListeners(deferredDestroy)
}

// Shutdown verifies the handler is ready for teardown: closed, with no
// listeners and no outstanding removes. Outstanding state at teardown is a
// leak in the owning component and therefore fatal.
func (h *ChangeHandler) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.closed {
		panic("notify: shutdown of open handler")
	}
	if len(h.listeners) != 0 {
		panic("notify: shutdown with registered listeners")
	}
	if len(h.pendingRemove) != 0 {
		panic(fmt.Sprintf("notify: shutdown with %d pending removes", len(h.pendingRemove)))
	}
}

// destroyListeners drops ownership of the given listeners, closing those
// that hold resources. Must be called without holding the handler's lock.
func destroyListeners(ls []Listener) {
	for _, l := range ls {
		if c, ok := l.(io.Closer); ok {
			_ = c.Close()
		}
	}
}
