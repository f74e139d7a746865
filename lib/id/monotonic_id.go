package id

import (
	"strconv"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/cpu"
)

const cacheLinePadSize = unsafe.Sizeof(cpu.CacheLinePad{})

// monotonicNonZeroID only increases, 0 is skipped on overflow.
// The counter occupies its own cache line so that the workers
// sharing one generator do not false share with their neighbours.
type monotonicNonZeroID struct {
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
	val uint64
	_   [cacheLinePadSize - unsafe.Sizeof(*new(uint64))]byte
}

func (id *monotonicNonZeroID) next() uint64 {
	var v uint64
	if v = atomic.AddUint64(&id.val, 1); v == 0 {
		v = atomic.AddUint64(&id.val, 1)
	}
	return v
}

// MonotonicNonZeroID starts from 1.
func MonotonicNonZeroID() (Generator, error) {
	return MonotonicNonZeroIDFrom(0)
}

// MonotonicNonZeroIDFrom starts from offset+1. The offset lets the
// stress trials draw disjoint key ranges from one seed.
func MonotonicNonZeroIDFrom(offset uint64) (Generator, error) {
	src := &monotonicNonZeroID{val: offset}
	id := new(defaultID)
	id.number = func() uint64 {
		return src.next()
	}
	id.str = func() string {
		return strconv.FormatUint(src.next(), 10)
	}
	return id, nil
}
