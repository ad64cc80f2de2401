// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"math/bits"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

const (
	segShift    = 6
	segBase     = 1 << segShift // slots in segment 0; segment k holds segBase<<k
	maxSegments = 32 - segShift + 1
	maxIndex    = 1<<32 - 2 // index+1 must fit in the low half of a ref
)

// arena owns every node a queue ever allocates.
//
// Slots live in geometrically growing segments that are installed lazily
// and never moved, so a slot address is stable for the arena's lifetime.
// Freed slots go to a Treiber stack whose head carries a version counter:
//
//	free: [hi 32 = version | lo 32 = index+1 of top slot]
//
// Every successful push or pop bumps the version, so a popper holding a
// stale head cannot complete its CAS after the stack changed underneath it.
type arena[T any] struct {
	_        pad
	free     atomix.Uint64
	_        pad
	fresh    atomix.Uint64 // Next never-used index
	_        pad
	segments [maxSegments]atomic.Pointer[[]node[T]]
}

// alloc returns a node whose payload is empty and whose next is null.
// Panics when all 2^32-1 slots are in use.
func (a *arena[T]) alloc() (ref, *node[T]) {
	sw := spin.Wait{}
	for {
		top := a.free.LoadAcquire()
		if uint32(top) == 0 {
			break
		}
		index := uint32(top) - 1
		n := a.locate(index)
		link := n.next.LoadAcquire()
		if a.free.CompareAndSwapAcqRel(top, (top>>32+1)<<32|uint64(uint32(link))) {
			n.next.StoreRelaxed(uint64(nilRef))
			return makeRef(uint32(n.gen.LoadAcquire()), index), n
		}
		sw.Once()
	}

	index := a.fresh.AddAcqRel(1) - 1
	if index > maxIndex {
		panic("msq: node arena exhausted")
	}
	a.grow(segmentOf(index))
	return makeRef(0, uint32(index)), a.locate(uint32(index))
}

// release returns the slot behind r to the free list.
// The caller guarantees that no goroutine can still dereference r.
func (a *arena[T]) release(r ref) {
	index := r.index()
	n := a.locate(index)
	n.payload.reset()
	n.gen.StoreRelease(uint64(r.gen() + 1))

	sw := spin.Wait{}
	for {
		top := a.free.LoadAcquire()
		n.next.StoreRelease(uint64(uint32(top)))
		if a.free.CompareAndSwapAcqRel(top, (top>>32+1)<<32|uint64(index+1)) {
			return
		}
		sw.Once()
	}
}

// at resolves a non-null ref to its node.
func (a *arena[T]) at(r ref) *node[T] {
	return a.locate(r.index())
}

// size reports how many distinct slots have been handed out.
func (a *arena[T]) size() uint64 {
	return min(a.fresh.LoadAcquire(), maxIndex+1)
}

func (a *arena[T]) locate(index uint32) *node[T] {
	v := uint64(index) + segBase
	k := bits.Len64(v) - 1 - segShift
	seg := a.segments[k].Load()
	return &(*seg)[v-segBase<<k]
}

// grow installs segment k if no other goroutine has done so yet.
func (a *arena[T]) grow(k int) {
	if a.segments[k].Load() != nil {
		return
	}
	seg := make([]node[T], segBase<<k)
	a.segments[k].CompareAndSwap(nil, &seg)
}

func segmentOf(index uint64) int {
	return bits.Len64(index+segBase) - 1 - segShift
}
