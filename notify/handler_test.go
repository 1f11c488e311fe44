package notify

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/docmap/core"
)

type putEvent struct {
	gid core.GID
	lid core.LID
}

// recordingListener captures every callback for inspection.
type recordingListener struct {
	docType    string
	name       string
	registered int
	puts       []putEvent
	removes    []core.GID
	closed     bool
}

func (l *recordingListener) NotifyPutDone(gid core.GID, lid core.LID) {
	l.puts = append(l.puts, putEvent{gid: gid, lid: lid})
}

func (l *recordingListener) NotifyRemove(gid core.GID) {
	l.removes = append(l.removes, gid)
}

func (l *recordingListener) NotifyRegistered() { l.registered++ }

func (l *recordingListener) DocTypeName() string { return l.docType }

func (l *recordingListener) Name() string { return l.name }
func (l *recordingListener) Close() error {
	l.closed = true
	return nil
}

func testGID(b byte) core.GID {
	var g core.GID
	g[0] = b
	return g
}

func TestChangeHandlerPutWithoutPendingRemove(t *testing.T) {
	h := NewChangeHandler()
	l1 := &recordingListener{docType: "music", name: "a"}
	l2 := &recordingListener{docType: "music", name: "b"}
	h.AddListener(l1)
	h.AddListener(l2)

	g := testGID(1)
	h.NotifyPutDone(g, 7, 100)

	for _, l := range []*recordingListener{l1, l2} {
		if len(l.puts) != 1 || l.puts[0] != (putEvent{gid: g, lid: 7}) {
			t.Fatalf("listener %s: puts=%v", l.name, l.puts)
		}
	}
}

func TestChangeHandlerStalePutSuppressed(t *testing.T) {
	h := NewChangeHandler()
	l := &recordingListener{docType: "music", name: "a"}
	h.AddListener(l)

	g := testGID(1)
	h.NotifyRemove(g, 101)
	if len(l.removes) != 1 {
		t.Fatalf("removes=%v", l.removes)
	}

	// Put completed out of order, behind the remove at 101.
	h.NotifyPutDone(g, 8, 99)
	if len(l.puts) != 0 {
		t.Fatalf("stale put delivered: %v", l.puts)
	}

	h.NotifyRemoveDone(g, 101)
}

func TestChangeHandlerLaterPutDelivered(t *testing.T) {
	h := NewChangeHandler()
	l := &recordingListener{docType: "music", name: "a"}
	h.AddListener(l)

	g := testGID(1)
	h.NotifyRemove(g, 101)
	h.NotifyPutDone(g, 8, 102)

	if len(l.puts) != 1 || l.puts[0].lid != 8 {
		t.Fatalf("puts=%v", l.puts)
	}

	h.NotifyRemoveDone(g, 101)
}

func TestChangeHandlerOverlappingRemoves(t *testing.T) {
	t.Run("no intervening put", func(t *testing.T) {
		h := NewChangeHandler()
		l := &recordingListener{docType: "music", name: "a"}
		h.AddListener(l)

		g := testGID(1)
		h.NotifyRemove(g, 101)
		h.NotifyRemove(g, 103)
		// Listeners already believe the document is gone.
		assert.Len(t, l.removes, 1)

		h.NotifyRemoveDone(g, 101)
		h.NotifyRemoveDone(g, 103)
	})

	t.Run("intervening put", func(t *testing.T) {
		h := NewChangeHandler()
		l := &recordingListener{docType: "music", name: "a"}
		h.AddListener(l)

		g := testGID(1)
		h.NotifyRemove(g, 101)
		h.NotifyPutDone(g, 9, 102)
		h.NotifyRemove(g, 103)
		// The put at 102 made the document visible again.
		assert.Len(t, l.removes, 2)
		assert.Len(t, l.puts, 1)

		h.NotifyRemoveDone(g, 101)
		h.NotifyRemoveDone(g, 103)
	})
}

func TestChangeHandlerRemoveDoneDrainsEntry(t *testing.T) {
	h := NewChangeHandler()
	g := testGID(1)

	h.NotifyRemove(g, 101)
	h.NotifyRemoveDone(g, 101)

	// Entry is gone, a second done has nothing to acknowledge.
	assert.Panics(t, func() {
		h.NotifyRemoveDone(g, 101)
	})
}

func TestChangeHandlerDuplicateListener(t *testing.T) {
	h := NewChangeHandler()
	first := &recordingListener{docType: "music", name: "a"}
	dup := &recordingListener{docType: "music", name: "a"}
	h.AddListener(first)
	h.AddListener(dup)

	if first.registered != 1 {
		t.Fatalf("first registered %d times", first.registered)
	}
	if dup.registered != 0 {
		t.Fatalf("duplicate listener was registered")
	}
	if !dup.closed {
		t.Fatalf("duplicate listener was not destroyed")
	}

	h.NotifyPutDone(testGID(1), 7, 100)
	if len(first.puts) != 1 || len(dup.puts) != 0 {
		t.Fatalf("fan-out: first=%v dup=%v", first.puts, dup.puts)
	}
}

func TestChangeHandlerClose(t *testing.T) {
	h := NewChangeHandler()
	l := &recordingListener{docType: "music", name: "a"}
	h.AddListener(l)

	h.Close()
	if !l.closed {
		t.Fatalf("listener not destroyed on close")
	}

	// Notifications after close reach nobody.
	h.NotifyPutDone(testGID(1), 7, 100)
	if len(l.puts) != 0 {
		t.Fatalf("notification after close: %v", l.puts)
	}

	// AddListener on a closed handler discards the listener.
	late := &recordingListener{docType: "music", name: "b"}
	h.AddListener(late)
	if late.registered != 0 || !late.closed {
		t.Fatalf("late listener: registered=%d closed=%v", late.registered, late.closed)
	}

	// Close is idempotent.
	h.Close()
	h.Shutdown()
}

func TestChangeHandlerRemoveListeners(t *testing.T) {
	h := NewChangeHandler()
	keepA := &recordingListener{docType: "typeA", name: "keep"}
	dropA := &recordingListener{docType: "typeA", name: "drop"}
	otherB := &recordingListener{docType: "typeB", name: "drop"}
	h.AddListener(keepA)
	h.AddListener(dropA)
	h.AddListener(otherB)

	h.RemoveListeners("typeA", map[string]struct{}{"keep": {}})

	if !dropA.closed {
		t.Fatalf("typeA/drop not destroyed")
	}
	if keepA.closed || otherB.closed {
		t.Fatalf("kept listeners destroyed: keepA=%v otherB=%v", keepA.closed, otherB.closed)
	}

	h.NotifyPutDone(testGID(1), 7, 100)
	if len(keepA.puts) != 1 || len(otherB.puts) != 1 || len(dropA.puts) != 0 {
		t.Fatalf("fan-out after removal: keepA=%d otherB=%d dropA=%d",
			len(keepA.puts), len(otherB.puts), len(dropA.puts))
	}
}

func TestChangeHandlerSerialDisciplinePanics(t *testing.T) {
	g := testGID(1)

	t.Run("put and remove share serial", func(t *testing.T) {
		h := NewChangeHandler()
		h.NotifyRemove(g, 101)
		assert.Panics(t, func() {
			h.NotifyPutDone(g, 7, 101)
		})
	})

	t.Run("put serial regression", func(t *testing.T) {
		h := NewChangeHandler()
		h.NotifyRemove(g, 100)
		h.NotifyPutDone(g, 7, 102)
		assert.Panics(t, func() {
			h.NotifyPutDone(g, 7, 102)
		})
	})

	t.Run("remove serial regression", func(t *testing.T) {
		h := NewChangeHandler()
		h.NotifyRemove(g, 101)
		assert.Panics(t, func() {
			h.NotifyRemove(g, 101)
		})
	})

	t.Run("remove behind observed put", func(t *testing.T) {
		h := NewChangeHandler()
		h.NotifyRemove(g, 100)
		h.NotifyPutDone(g, 7, 105)
		assert.Panics(t, func() {
			h.NotifyRemove(g, 103)
		})
	})

	t.Run("remove done without entry", func(t *testing.T) {
		h := NewChangeHandler()
		assert.Panics(t, func() {
			h.NotifyRemoveDone(g, 101)
		})
	})

	t.Run("remove done ahead of record", func(t *testing.T) {
		h := NewChangeHandler()
		h.NotifyRemove(g, 101)
		assert.Panics(t, func() {
			h.NotifyRemoveDone(g, 102)
		})
	})
}

func TestChangeHandlerShutdownChecks(t *testing.T) {
	t.Run("open handler", func(t *testing.T) {
		h := NewChangeHandler()
		assert.Panics(t, h.Shutdown)
	})

	t.Run("pending removes", func(t *testing.T) {
		h := NewChangeHandler()
		h.NotifyRemove(testGID(1), 101)
		h.Close()
		assert.Panics(t, h.Shutdown)
	})

	t.Run("drained", func(t *testing.T) {
		h := NewChangeHandler()
		h.NotifyRemove(testGID(1), 101)
		h.NotifyRemoveDone(testGID(1), 101)
		h.Close()
		h.Shutdown()
	})
}

// Mirrors the full replay scenario: put, remove, stale put, drain.
func TestChangeHandlerReplayScenario(t *testing.T) {
	h := NewChangeHandler()
	l := &recordingListener{docType: "music", name: "a"}
	h.AddListener(l)

	g := testGID(1)
	h.NotifyPutDone(g, 7, 100)
	h.NotifyRemove(g, 101)
	h.NotifyPutDone(g, 8, 99) // completed late, suppressed
	h.NotifyRemoveDone(g, 101)

	if len(l.puts) != 1 || l.puts[0].lid != 7 {
		t.Fatalf("puts=%v", l.puts)
	}
	if len(l.removes) != 1 {
		t.Fatalf("removes=%v", l.removes)
	}

	assert.Panics(t, func() {
		h.NotifyRemoveDone(g, 101)
	})
}

// countingListener is safe to use from the handler under concurrent callers;
// the handler's lock serializes all callbacks.
type countingListener struct {
	docType string
	name    string
	puts    atomic.Int64
	removes atomic.Int64
}

func (l *countingListener) NotifyPutDone(core.GID, core.LID) { l.puts.Add(1) }

func (l *countingListener) NotifyRemove(core.GID) { l.removes.Add(1) }

func (l *countingListener) NotifyRegistered() {}

func (l *countingListener) DocTypeName() string { return l.docType }

func (l *countingListener) Name() string { return l.name }

func TestChangeHandlerConcurrentFeed(t *testing.T) {
	h := NewChangeHandler()
	l := &countingListener{docType: "music", name: "a"}
	h.AddListener(l)

	const goroutines = 8
	const docsPerGoroutine = 200

	var serial atomic.Uint64
	var g errgroup.Group
	for w := 0; w < goroutines; w++ {
		w := w
		g.Go(func() error {
			for i := 0; i < docsPerGoroutine; i++ {
				var gid core.GID
				gid[0] = byte(w)
				gid[1] = byte(i)
				gid[2] = byte(i >> 8)

				h.NotifyPutDone(gid, core.LID(i), core.SerialNum(serial.Add(1)))
				rs := core.SerialNum(serial.Add(1))
				h.NotifyRemove(gid, rs)
				h.NotifyRemoveDone(gid, rs)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("feed failed: %v", err)
	}

	if got := l.puts.Load(); got != goroutines*docsPerGoroutine {
		t.Fatalf("puts=%d", got)
	}
	if got := l.removes.Load(); got != goroutines*docsPerGoroutine {
		t.Fatalf("removes=%d", got)
	}

	h.Close()
	h.Shutdown()
}
