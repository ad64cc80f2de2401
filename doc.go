// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package msq provides an unbounded lock-free multi-producer
// multi-consumer FIFO queue with safe memory reclamation.
//
// The queue is a Michael-Scott linked list mutated only by
// compare-and-swap. Nodes live in a per-queue arena and are referenced by
// generation-tagged indices; nodes removed from the list are handed to a
// reclamation scheme (epoch-based or hazard pointers) and reused only once
// no goroutine can still reach them.
//
// # Quick Start
//
// Direct constructors (recommended for most cases):
//
//	q := msq.NewUnbounded[Event]()
//	q := msq.NewBounded[*Request](4096)
//
// Builder API:
//
//	q := msq.Build[Event](msq.New())                                   // → Unbounded
//	q := msq.Build[Event](msq.New().HazardPointers())                  // → Unbounded, hazard pointers
//	q := msq.Build[Event](msq.New().Wait(msq.BackoffWait()))           // → Unbounded, sleeping waits
//	q := msq.Build[Event](msq.New().Bounded(1024))                     // → Bounded
//
// # Basic Usage
//
//	q := msq.NewUnbounded[int]()
//
//	// Push never blocks and never fails
//	q.Push(42)
//
//	// Pop blocks while the queue is empty
//	v := q.Pop()
//
//	// TryPop returns immediately
//	v, err := q.TryPop()
//	if msq.IsWouldBlock(err) {
//	    // Queue is empty - try again later
//	}
//
// # Common Patterns
//
// Worker Pool:
//
//	q := msq.NewUnbounded[Job]()
//
//	for range numWorkers {
//	    go func() {
//	        for {
//	            q.Pop().Run()
//	        }
//	    }()
//	}
//
//	// Submit jobs from anywhere
//	func Submit(j Job) {
//	    q.Push(j)
//	}
//
// Balanced Producers and Consumers:
//
//	var wg sync.WaitGroup
//	for p := range producers {
//	    wg.Add(1)
//	    go func(id int) {
//	        defer wg.Done()
//	        for i := range perProducer {
//	            q.Push(id*perProducer + i)
//	        }
//	    }(p)
//	}
//	for range consumers {
//	    wg.Add(1)
//	    go func() {
//	        defer wg.Done()
//	        for range perConsumer {
//	            handle(q.Pop())
//	        }
//	    }()
//	}
//	wg.Wait()
//	// producers*perProducer == consumers*perConsumer, so q.IsEmpty()
//
// A Pop with no matching Push never returns. Stopping a consumer is the
// application's job, typically by pushing a sentinel value.
//
// # Ordering
//
// The queue is linearizable. Elements leave in the order their producers
// won the link CAS; two producers racing may commit in either order
// regardless of which called Push first. Elements pushed by one goroutine
// are popped in the order they were pushed.
//
// # Memory Reclamation
//
// Unlinked nodes are retired, not freed. Two schemes decide when a retired
// node returns to the arena:
//
//	ReclaimEpoch   - epoch-based (default), cheapest per operation
//	ReclaimHazard  - hazard pointers, bounded garbage under stalled goroutines
//
// Every link is a 64-bit reference [generation | index]. Freeing a slot
// bumps its generation, so a stale reference never matches the slot's next
// incarnation in a CAS.
//
// [Unbounded.Quiesce] reclaims everything retired once no operation is in
// flight, and [Unbounded.Stats] reports arena size and reclamation counts.
//
// # Waiting
//
// Blocking calls busy-wait; how they spend the time between attempts is a
// [WaitStrategy]:
//
//	SpinWait()        - CPU pause
//	YieldWait()       - runtime.Gosched
//	SpinYieldWait(n)  - n spins, then yield (default n=64)
//	BackoffWait()     - iox.Backoff adaptive sleep
//	CustomWait(f)     - caller supplied
//
// Pop has no timeout or cancellation. TryPop is the non-blocking
// primitive for callers that need one.
//
// # Capacity
//
// [Unbounded] has no capacity; Push only fails if the arena runs out of
// its 2^32-1 slots, which panics. Bounded semantics are opt-in through
// [Bounded], where Push waits at capacity and TryPush returns
// [ErrWouldBlock]. Capacity rounds up to the next power of 2.
//
// # Error Handling
//
// Pop and Push never return an error: an empty queue (or a full
// [Bounded]) is a wait condition for them. TryPop and TryPush return
// [ErrWouldBlock] instead, which is the iox sentinel.
//
//	msq.IsWouldBlock(err)  // true if queue empty (or full, for Bounded)
//	msq.IsSemantic(err)    // true if control flow signal
//	msq.IsNonFailure(err)  // true if nil or ErrWouldBlock
//
// # Race Detection
//
// Go's race detector cannot observe happens-before relationships
// established through atomix memory orderings. Payloads are plain fields
// published by an acquire-release link, so the detector reports false
// positives. Concurrent tests are skipped when [RaceEnabled] is true.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors and
// backoff, [code.hybscloud.com/atomix] for atomic primitives with explicit
// memory ordering, [code.hybscloud.com/spin] for CPU pause instructions,
// and [golang.org/x/sys/cpu] for cache line padding.
package msq
