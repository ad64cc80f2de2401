// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Unbounded is a lock-free multi-producer multi-consumer FIFO queue.
//
// Based on the Michael-Scott linked queue (PODC 1996). The list always
// holds a sentinel: head points at the last consumed node (or the initial
// sentinel) and tail at the newest node or its predecessor. Both only move
// forward along next links, and only through a winning CAS.
//
// Links are generation-tagged arena references rather than pointers.
// Nodes removed from the list are retired to the configured [Reclamation]
// scheme and return to the arena only when no goroutine can still hold a
// reference to them; the generation tag additionally makes every CAS
// comparand unique per slot incarnation (ABA safety).
//
// Ordering is FIFO in the order producers win the link CAS, not in the
// order Push was called.
//
// Memory: one arena slot per queued element plus retired-but-unreclaimed
// slots; slots are reused, the arena never shrinks.
type Unbounded[T any] struct {
	_       pad
	head    atomix.Uint64 // ref of the sentinel
	_       pad
	tail    atomix.Uint64 // ref of the last node, or its predecessor
	_       pad
	nodes   arena[T]
	reclaim reclaimer
	wait    WaitStrategy
}

// Stats is a diagnostic snapshot of an Unbounded queue's node usage.
// Fields are read without synchronization against running operations.
type Stats struct {
	Nodes     uint64 // Distinct arena slots allocated so far
	Retired   uint64 // Nodes handed to the reclamation scheme
	Reclaimed uint64 // Retired nodes returned to the arena
}

// NewUnbounded creates an Unbounded queue with epoch-based reclamation
// and the default wait strategy.
func NewUnbounded[T any]() *Unbounded[T] {
	return newUnbounded[T](ReclaimEpoch, SpinYieldWait(defaultSpins))
}

func newUnbounded[T any](policy Reclamation, wait WaitStrategy) *Unbounded[T] {
	q := &Unbounded[T]{wait: wait}
	q.reclaim = newReclaimer(policy, q.nodes.release)

	sentinel, _ := q.nodes.alloc()
	q.head.StoreRelaxed(uint64(sentinel))
	q.tail.StoreRelaxed(uint64(sentinel))
	return q
}

// Push appends v to the queue. It never blocks and never fails; running
// out of arena slots panics.
func (q *Unbounded[T]) Push(v T) {
	r, n := q.nodes.alloc()
	n.payload.fill(v)

	p := q.reclaim.pin()
	sw := spin.Wait{}
	for {
		tail := ref(q.tail.LoadAcquire())
		q.reclaim.protect(p, 0, tail)
		if ref(q.tail.Load()) != tail {
			continue
		}

		last := q.nodes.at(tail)
		next := ref(last.next.LoadAcquire())
		if ref(q.tail.LoadAcquire()) != tail {
			sw.Once()
			continue
		}

		if next == nilRef {
			if last.next.CompareAndSwapAcqRel(uint64(nilRef), uint64(r)) {
				// Best effort: a peer may already have swung tail for us.
				q.tail.CompareAndSwapAcqRel(uint64(tail), uint64(r))
				break
			}
		} else {
			// Tail is lagging; help the pending append finish.
			q.tail.CompareAndSwapAcqRel(uint64(tail), uint64(next))
		}
		sw.Once()
	}
	q.reclaim.unpin(p)
}

// Pop removes and returns the oldest element, waiting with the queue's
// [WaitStrategy] while the queue is empty. There is no timeout: Pop on a
// queue that will never be pushed to again does not return.
func (q *Unbounded[T]) Pop() T {
	w := q.wait.start()
	for {
		if v, ok := q.dequeue(); ok {
			return v
		}
		w.pause()
	}
}

// TryPop removes and returns the oldest element.
// Returns (zero-value, ErrWouldBlock) if the queue is empty.
func (q *Unbounded[T]) TryPop() (T, error) {
	v, ok := q.dequeue()
	if !ok {
		return v, ErrWouldBlock
	}
	return v, nil
}

// dequeue makes one pinned attempt to take the oldest element. It retries
// lost CAS races but returns false as soon as it observes an empty queue,
// so waiting always happens unpinned.
func (q *Unbounded[T]) dequeue() (T, bool) {
	p := q.reclaim.pin()
	sw := spin.Wait{}
	for {
		head := ref(q.head.LoadAcquire())
		q.reclaim.protect(p, 0, head)
		if ref(q.head.Load()) != head {
			continue
		}

		next := ref(q.nodes.at(head).next.LoadAcquire())
		if next == nilRef {
			q.reclaim.unpin(p)
			var zero T
			return zero, false
		}
		q.reclaim.protect(p, 1, next)
		if ref(q.head.Load()) != head {
			continue
		}

		// Never let head pass tail: a retired node must not stay
		// reachable through tail.
		if tail := ref(q.tail.LoadAcquire()); tail == head {
			q.tail.CompareAndSwapAcqRel(uint64(tail), uint64(next))
		}

		if c, ok := q.advanceHead(head, next); ok {
			v := c.extract()
			q.reclaim.retire(p, head)
			q.reclaim.unpin(p)
			return v, true
		}
		sw.Once()
	}
}

// advanceHead swings head from head to next. The winner receives the
// claim on next's payload; losers receive nothing.
func (q *Unbounded[T]) advanceHead(head, next ref) (claim[T], bool) {
	if !q.head.CompareAndSwapAcqRel(uint64(head), uint64(next)) {
		return claim[T]{}, false
	}
	return claim[T]{n: q.nodes.at(next)}, true
}

// IsEmpty reports whether the queue held no elements at the moment of
// the call. The answer may be stale before it is returned; use it for
// assertions once producers and consumers have stopped, not for control
// flow under concurrency.
func (q *Unbounded[T]) IsEmpty() bool {
	p := q.reclaim.pin()
	var head ref
	for {
		head = ref(q.head.LoadAcquire())
		q.reclaim.protect(p, 0, head)
		if ref(q.head.Load()) == head {
			break
		}
	}
	tail := ref(q.tail.LoadAcquire())
	next := ref(q.nodes.at(head).next.LoadAcquire())
	q.reclaim.unpin(p)
	return head == tail && next == nilRef
}

// Quiesce returns to the arena every retired node that no in-flight
// operation can reach. Called while no Push or Pop runs, it reclaims all
// retired nodes; it is safe, but less effective, under concurrency.
func (q *Unbounded[T]) Quiesce() {
	q.reclaim.quiesce()
}

// Stats returns a snapshot of node usage.
func (q *Unbounded[T]) Stats() Stats {
	retired, reclaimed := q.reclaim.stats()
	return Stats{
		Nodes:     q.nodes.size(),
		Retired:   retired,
		Reclaimed: reclaimed,
	}
}
