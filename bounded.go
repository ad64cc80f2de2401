// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Bounded is a CAS-based multi-producer multi-consumer queue with a fixed
// capacity.
//
// Unlike [Unbounded], capacity is part of the contract: Push waits while
// the queue is full and TryPush reports ErrWouldBlock. Use it only when
// backpressure is wanted.
//
// Per-slot sequence numbers (Vyukov) provide ABA safety: slot i accepts a
// producer at position p when seq == p and a consumer when seq == p+1;
// the consumer hands the slot to the next round by storing p+capacity.
//
// Memory: capacity slots, no allocation after construction.
type Bounded[T any] struct {
	_        pad
	tail     atomix.Uint64 // Producer position
	_        pad
	head     atomix.Uint64 // Consumer position
	_        pad
	buffer   []boundedSlot[T]
	mask     uint64
	capacity uint64
	wait     WaitStrategy
}

type boundedSlot[T any] struct {
	seq  atomix.Uint64
	data T
	_    padShort // Pad to cache line
}

// NewBounded creates a Bounded queue with the default wait strategy.
// Capacity rounds up to the next power of 2. Panics if capacity < 2.
func NewBounded[T any](capacity int) *Bounded[T] {
	return newBounded[T](capacity, SpinYieldWait(defaultSpins))
}

func newBounded[T any](capacity int, wait WaitStrategy) *Bounded[T] {
	if capacity < 2 {
		panic("msq: capacity must be >= 2")
	}

	n := uint64(roundToPow2(capacity))
	q := &Bounded[T]{
		buffer:   make([]boundedSlot[T], n),
		mask:     n - 1,
		capacity: n,
		wait:     wait,
	}

	for i := uint64(0); i < n; i++ {
		q.buffer[i].seq.StoreRelaxed(i)
	}

	return q
}

// step is the outcome of one attempt on a Bounded ring position.
type step uint8

const (
	stepDone    step = iota // Element moved
	stepBlocked             // Ring full (put) or empty (take): wait
	stepLost                // Another goroutine took the position: retry now
)

// put makes one attempt to store v at the producer position.
//
// The slot at position pos is free for this lap when seq == pos. A smaller
// seq means the consumer of the previous lap has not released it yet; a
// larger one means another producer already claimed pos.
func (q *Bounded[T]) put(v T) step {
	pos := q.tail.LoadAcquire()
	s := &q.buffer[pos&q.mask]
	switch lag := int64(s.seq.LoadAcquire() - pos); {
	case lag < 0:
		return stepBlocked
	case lag > 0:
		return stepLost
	}
	if !q.tail.CompareAndSwapAcqRel(pos, pos+1) {
		return stepLost
	}
	s.data = v
	s.seq.StoreRelease(pos + 1)
	return stepDone
}

// take makes one attempt to remove the element at the consumer position.
// The slot holds it when seq == pos+1; releasing the slot sets seq to the
// position it takes in the next lap.
func (q *Bounded[T]) take() (v T, st step) {
	pos := q.head.LoadAcquire()
	s := &q.buffer[pos&q.mask]
	switch lag := int64(s.seq.LoadAcquire() - (pos + 1)); {
	case lag < 0:
		return v, stepBlocked
	case lag > 0:
		return v, stepLost
	}
	if !q.head.CompareAndSwapAcqRel(pos, pos+1) {
		return v, stepLost
	}
	v = s.data
	var zero T
	s.data = zero
	s.seq.StoreRelease(pos + q.capacity)
	return v, stepDone
}

// Push appends v, waiting with the queue's [WaitStrategy] while the queue
// is full. Lost races retry immediately and are not counted as waits.
func (q *Bounded[T]) Push(v T) {
	w := q.wait.start()
	sw := spin.Wait{}
	for {
		switch q.put(v) {
		case stepDone:
			return
		case stepBlocked:
			w.pause()
		default:
			sw.Once()
		}
	}
}

// TryPush appends v.
// Returns ErrWouldBlock if the queue is full.
func (q *Bounded[T]) TryPush(v T) error {
	sw := spin.Wait{}
	for {
		switch q.put(v) {
		case stepDone:
			return nil
		case stepBlocked:
			return ErrWouldBlock
		}
		sw.Once()
	}
}

// Pop removes and returns the oldest element, waiting with the queue's
// [WaitStrategy] while the queue is empty.
func (q *Bounded[T]) Pop() T {
	w := q.wait.start()
	sw := spin.Wait{}
	for {
		v, st := q.take()
		switch st {
		case stepDone:
			return v
		case stepBlocked:
			w.pause()
		default:
			sw.Once()
		}
	}
}

// TryPop removes and returns the oldest element.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Bounded[T]) TryPop() (T, error) {
	sw := spin.Wait{}
	for {
		v, st := q.take()
		switch st {
		case stepDone:
			return v, nil
		case stepBlocked:
			return v, ErrWouldBlock
		}
		sw.Once()
	}
}

// IsEmpty reports whether no element was queued at the moment of the
// call. Like [Unbounded.IsEmpty], it is only meaningful once producers and
// consumers have stopped.
func (q *Bounded[T]) IsEmpty() bool {
	return q.head.LoadAcquire() >= q.tail.LoadAcquire()
}

// Cap returns the queue capacity.
func (q *Bounded[T]) Cap() int {
	return int(q.capacity)
}
