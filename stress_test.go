// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq_test

import (
	"runtime"
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/msq"
)

// =============================================================================
// High Contention
// =============================================================================

// TestHighContentionPush runs 32 producers against one consumer so every
// Push races on the tail link.
func TestHighContentionPush(t *testing.T) {
	if msq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}
	const (
		numProducers = 32
		perProducer  = 1000
		total        = numProducers * perProducer
	)

	for _, r := range reclamations {
		t.Run(r.String(), func(t *testing.T) {
			q := newUnbounded[int](r)
			seen := make([]atomix.Int32, total)

			var wg sync.WaitGroup
			for p := range numProducers {
				wg.Add(1)
				go func(id int) {
					defer wg.Done()
					for i := range perProducer {
						q.Push(id*perProducer + i)
					}
				}(p)
			}

			wg.Add(1)
			go func() {
				defer wg.Done()
				for range total {
					seen[q.Pop()].Add(1)
				}
			}()
			waitTimeout(t, &wg, 20*time.Second, "32P/1C")

			for i := range total {
				if c := seen[i].Load(); c != 1 {
					t.Fatalf("value %d seen %d times", i, c)
				}
			}
		})
	}
}

// TestHighContentionPop runs 32 consumers against a pre-filled queue so
// every Pop races on the head link.
func TestHighContentionPop(t *testing.T) {
	if msq.RaceEnabled {
		t.Skip("skip: lock-free algorithm uses cross-variable memory ordering")
	}
	const (
		numConsumers = 32
		total        = 32000
	)

	for _, r := range reclamations {
		t.Run(r.String(), func(t *testing.T) {
			q := newUnbounded[int](r)
			for i := range total {
				q.Push(i)
			}

			seen := make([]atomix.Int32, total)
			var popped atomix.Int64
			var wg sync.WaitGroup
			for range numConsumers {
				wg.Add(1)
				go func() {
					defer wg.Done()
					last := -1
					for {
						v, err := q.TryPop()
						if iox.IsWouldBlock(err) {
							return
						}
						// A single producer pushed in order, so each consumer
						// sees increasing values
						if v <= last {
							t.Errorf("out of order: %d after %d", v, last)
						}
						last = v
						seen[v].Add(1)
						popped.Add(1)
					}
				}()
			}
			waitTimeout(t, &wg, 20*time.Second, "1P/32C drain")

			if got := popped.Load(); got != total {
				t.Fatalf("popped %d, want %d", got, total)
			}
			for i := range total {
				if c := seen[i].Load(); c != 1 {
					t.Fatalf("value %d seen %d times", i, c)
				}
			}
			if !q.IsEmpty() {
				t.Fatalf("IsEmpty: got false, want true")
			}
		})
	}
}

// TestOversubscribed runs more goroutines than processors so operations are
// preempted between their load and CAS, with a yielding wait strategy.
func TestOversubscribed(t *testing.T) {
	workers := 4 * runtime.GOMAXPROCS(0)
	for _, r := range reclamations {
		t.Run(r.String(), func(t *testing.T) {
			lt := &linearizabilityTest{t: t, numP: workers, numC: workers, itemsPerProd: 1000, timeout: 30 * time.Second}
			lt.run(msq.Build[int](msq.New().Reclaim(r).Wait(msq.YieldWait())))
		})
	}
}

// =============================================================================
// Fill/Drain Cycles
// =============================================================================

// TestUnboundedFillDrain tests rapid fill/drain cycles. After the first
// cycle the arena stops growing.
func TestUnboundedFillDrain(t *testing.T) {
	for _, r := range reclamations {
		t.Run(r.String(), func(t *testing.T) {
			q := newUnbounded[int](r)
			var grownAt uint64

			for cycle := range 2000 {
				for i := range 16 {
					q.Push(cycle*100 + i)
				}
				for i := range 16 {
					if v := q.Pop(); v != cycle*100+i {
						t.Fatalf("cycle %d: got %d, want %d", cycle, v, cycle*100+i)
					}
				}
				q.Quiesce()
				if cycle == 0 {
					grownAt = q.Stats().Nodes
				}
			}
			if n := q.Stats().Nodes; n != grownAt {
				t.Fatalf("arena grew from %d to %d nodes over steady fill/drain", grownAt, n)
			}
		})
	}
}

// TestBoundedFillDrain tests rapid fill/drain cycles on a full ring.
func TestBoundedFillDrain(t *testing.T) {
	q := msq.NewBounded[int](16)

	for cycle := range 5000 {
		for i := range 16 {
			if err := q.TryPush(cycle*100 + i); err != nil {
				t.Fatalf("cycle %d: TryPush(%d): %v", cycle, i, err)
			}
		}
		if err := q.TryPush(-1); !msq.IsWouldBlock(err) {
			t.Fatalf("cycle %d: TryPush on full: got %v, want ErrWouldBlock", cycle, err)
		}
		for i := range 16 {
			v, err := q.TryPop()
			if err != nil {
				t.Fatalf("cycle %d: TryPop(%d): %v", cycle, i, err)
			}
			if v != cycle*100+i {
				t.Fatalf("cycle %d: got %d, want %d", cycle, v, cycle*100+i)
			}
		}
	}
}

// TestBoundedStressConcurrent uses only the non-blocking calls with
// iox.Backoff on a small ring under a deadline.
func TestBoundedStressConcurrent(t *testing.T) {
	if msq.RaceEnabled {
		t.Skip("skip: CAS-based algorithm uses cross-variable memory ordering")
	}

	const (
		numProducers = 8
		numConsumers = 8
		itemsPerProd = 10000
		timeout      = 10 * time.Second
	)

	q := msq.NewBounded[int](64)
	expectedTotal := numProducers * itemsPerProd
	seen := make([]atomix.Int32, expectedTotal)

	var wg sync.WaitGroup
	var consumed atomix.Int64
	var timedOut atomix.Bool
	deadline := time.Now().Add(timeout)

	for p := range numProducers {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			backoff := iox.Backoff{}
			for i := range itemsPerProd {
				for q.TryPush(id*itemsPerProd+i) != nil {
					if time.Now().After(deadline) {
						timedOut.Store(true)
						return
					}
					backoff.Wait()
				}
				backoff.Reset()
			}
		}(p)
	}

	for range numConsumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			backoff := iox.Backoff{}
			for consumed.Load() < int64(expectedTotal) {
				if time.Now().After(deadline) {
					timedOut.Store(true)
					return
				}
				v, err := q.TryPop()
				if err != nil {
					backoff.Wait()
					continue
				}
				backoff.Reset()
				seen[v].Add(1)
				consumed.Add(1)
			}
		}()
	}

	wg.Wait()

	if timedOut.Load() {
		t.Fatalf("timeout: consumed=%d/%d", consumed.Load(), expectedTotal)
	}
	var duplicates, missing int
	for i := range expectedTotal {
		switch c := seen[i].Load(); {
		case c == 0:
			missing++
		case c > 1:
			duplicates++
		}
	}
	if duplicates > 0 || missing > 0 {
		t.Errorf("linearizability violation: %d missing, %d duplicates", missing, duplicates)
	}
}
