// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

// Queue is the combined producer-consumer interface for a FIFO queue.
//
// Push and Pop block (by busy-waiting with the queue's [WaitStrategy])
// only where the queue variant has a reason to: Pop on an empty queue,
// and Push on a full [Bounded] queue. An [Unbounded] Push never waits.
//
// The interface intentionally excludes length because accurate counts in
// lock-free algorithms require expensive cross-core synchronization.
// Track counts in application logic when needed.
//
// Example:
//
//	q := msq.NewUnbounded[int]()
//
//	q.Push(42)
//	fmt.Println(q.Pop()) // 42
//
//	if _, err := q.TryPop(); msq.IsWouldBlock(err) {
//	    // Empty
//	}
type Queue[T any] interface {
	Producer[T]
	Consumer[T]

	// IsEmpty reports whether the queue was empty at some instant during
	// the call. Only meaningful once all producers and consumers have
	// stopped.
	IsEmpty() bool
}

// Producer is the interface for enqueueing elements.
type Producer[T any] interface {
	// Push appends v. Safe for concurrent use by multiple goroutines.
	Push(v T)
}

// Consumer is the interface for dequeueing elements.
//
// The queue clears its copy of a dequeued element so that referenced
// objects can be garbage collected.
type Consumer[T any] interface {
	// Pop removes and returns the oldest element, waiting while the queue
	// is empty. There is no timeout or cancellation.
	Pop() T

	// TryPop removes and returns the oldest element without waiting.
	// Returns (zero-value, ErrWouldBlock) if the queue is empty.
	TryPop() (T, error)
}

var (
	_ Queue[int] = (*Unbounded[int])(nil)
	_ Queue[int] = (*Bounded[int])(nil)
)
