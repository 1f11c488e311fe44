// Package feed applies put and remove operations to a document type's
// mapping and drives its change handler with the two-phase remove protocol.
//
// Operations are stamped with a monotonic serial number at submission and
// applied on a fixed pool of workers, partitioned by GID hash: operations on
// the same GID apply in serial order, while operations on different GIDs
// complete in any order. The change handler is built to reconcile exactly
// this interleaving.
package feed

import (
	"context"
	"errors"
	"hash/maphash"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/hupe1980/docmap/core"
	"github.com/hupe1980/docmap/mapping"
	"github.com/hupe1980/docmap/notify"
)

// ErrClosed is returned when an operation is submitted to a closed pipeline.
var ErrClosed = errors.New("feed: pipeline closed")

// Options contains configuration for the Pipeline.
type Options struct {
	// Workers is the number of apply goroutines. Defaults to GOMAXPROCS.
	Workers int

	// RateLimit caps submissions per second. Zero means unlimited.
	RateLimit rate.Limit

	// Burst is the rate limiter burst size. Only used with RateLimit.
	Burst int
}

// DefaultOptions returns default pipeline options.
var DefaultOptions = Options{
	Workers: 0, // GOMAXPROCS
	Burst:   1,
}

type opKind uint8

const (
	opPut opKind = iota
	opRemove
)

type task struct {
	kind   opKind
	gid    core.GID
	lid    core.LID
	serial core.SerialNum
}

// Pipeline feeds one document type. Put and Remove must be called from a
// single goroutine (the feed master); applies run concurrently on workers.
type Pipeline struct {
	store   *mapping.Store
	handler *notify.ChangeHandler
	serials *SerialAllocator
	limiter *rate.Limiter
	seed    maphash.Seed

	queues []chan task
	g      *errgroup.Group
	closed atomic.Bool
}

// New creates a running pipeline over store and handler. serials may be
// shared between pipelines of different document types; the serial domain is
// global, not per type.
func New(store *mapping.Store, handler *notify.ChangeHandler, serials *SerialAllocator, optFns ...func(o *Options)) *Pipeline {
	opts := DefaultOptions
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}

	p := &Pipeline{
		store:   store,
		handler: handler,
		serials: serials,
		seed:    maphash.MakeSeed(),
		queues:  make([]chan task, opts.Workers),
		g:       &errgroup.Group{},
	}
	if opts.RateLimit > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		p.limiter = rate.NewLimiter(opts.RateLimit, burst)
	}

	for i := range p.queues {
		q := make(chan task, 64)
		p.queues[i] = q
		p.g.Go(func() error {
			p.worker(q)
			return nil
		})
	}
	return p
}

// Put maps gid to lid. The put notification fans out once the mapping has
// been applied, tagged with the serial returned here.
func (p *Pipeline) Put(ctx context.Context, gid core.GID, lid core.LID) (core.SerialNum, error) {
	if err := p.admit(ctx); err != nil {
		return 0, err
	}
	serial := p.serials.Next()
	p.queue(gid) <- task{kind: opPut, gid: gid, lid: lid, serial: serial}
	return serial, nil
}

// Remove tears down the mapping for gid. The remove is registered with the
// change handler immediately, in submission order; completion is
// acknowledged once the mapping mutation has been applied on a worker.
func (p *Pipeline) Remove(ctx context.Context, gid core.GID) (core.SerialNum, error) {
	if err := p.admit(ctx); err != nil {
		return 0, err
	}
	serial := p.serials.Next()
	p.handler.NotifyRemove(gid, serial)
	p.queue(gid) <- task{kind: opRemove, gid: gid, serial: serial}
	return serial, nil
}

func (p *Pipeline) admit(ctx context.Context) error {
	if p.closed.Load() {
		return ErrClosed
	}
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) queue(gid core.GID) chan task {
	h := maphash.Bytes(p.seed, gid[:])
	return p.queues[h%uint64(len(p.queues))]
}

func (p *Pipeline) worker(q chan task) {
	for t := range q {
		switch t.kind {
		case opPut:
			p.store.Put(t.gid, t.lid)
			p.handler.NotifyPutDone(t.gid, t.lid, t.serial)
		case opRemove:
			p.store.Remove(t.gid)
			p.handler.NotifyRemoveDone(t.gid, t.serial)
		}
	}
}

// Drain blocks until every submitted operation has been applied, then closes
// the pipeline. Further submissions return ErrClosed. Idempotent.
func (p *Pipeline) Drain() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	for _, q := range p.queues {
		close(q)
	}
	return p.g.Wait()
}
