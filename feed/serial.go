package feed

import (
	"sync/atomic"

	"github.com/hupe1980/docmap/core"
)

// SerialAllocator hands out globally monotonic serial numbers. The zero
// value is ready to use; the first serial issued is 1, so zero can serve as
// the "no serial observed" sentinel.
type SerialAllocator struct {
	last atomic.Uint64
}

// Next returns the next serial number.
func (a *SerialAllocator) Next() core.SerialNum {
	return core.SerialNum(a.last.Add(1))
}

// Current returns the last serial number issued.
func (a *SerialAllocator) Current() core.SerialNum {
	return core.SerialNum(a.last.Load())
}
