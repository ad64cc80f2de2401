// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package stress drives a queue with concurrent producers and consumers
// and checks the result against the FIFO queue contract.
package stress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/msq"
	"github.com/cespare/xxhash"
	"k8s.io/klog/v2"
)

var (
	// ErrTimeout reports a round that did not finish in time. Its
	// goroutines are still blocked in Pop and are abandoned.
	ErrTimeout = errors.New("stress: round timed out")

	// ErrViolation reports a broken queue property.
	ErrViolation = errors.New("stress: queue property violated")
)

// Report summarizes a run.
type Report struct {
	Rounds   int
	Pushed   uint64
	Popped   uint64
	Elapsed  time.Duration
	Stats    msq.Stats // Unbounded queues only
	Bounded  bool
	Scenario string
}

// String returns a one-line summary.
func (r Report) String() string {
	s := fmt.Sprintf("%s: %d rounds, %d pushed, %d popped in %v", r.Scenario, r.Rounds, r.Pushed, r.Popped, r.Elapsed)
	if !r.Bounded {
		s += fmt.Sprintf(", nodes=%d retired=%d reclaimed=%d", r.Stats.Nodes, r.Stats.Retired, r.Stats.Reclaimed)
	}
	return s
}

// round is the shared state of one round.
type round struct {
	cfg     *Config
	q       msq.Queue[int]
	seen    []atomix.Int32
	popped  atomix.Uint64
	order   atomix.Int64  // Per-producer FIFO violations
	stray   atomix.Int64  // Values that were never pushed
	pushSum atomix.Uint64 // Multiset checksums
	popSum  atomix.Uint64
}

// Run executes cfg.Rounds rounds against one queue and returns the first
// violation found.
func Run(cfg *Config) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	q := msq.Build[int](cfg.builder())
	rep := Report{
		Bounded:  cfg.Bounded > 0,
		Scenario: fmt.Sprintf("%dP/%dC x %d %s/%s", cfg.Producers, cfg.Consumers, cfg.Items, cfg.Reclamation, cfg.Wait),
	}
	if rep.Bounded {
		rep.Scenario += fmt.Sprintf(" bounded(%d)", cfg.Bounded)
	}
	klog.V(1).InfoS("Starting stress run", "scenario", rep.Scenario, "rounds", cfg.Rounds)

	start := time.Now()
	for i := range cfg.Rounds {
		r := &round{cfg: cfg, q: q, seen: make([]atomix.Int32, cfg.Producers*cfg.Items)}
		err := r.run()
		rep.Rounds = i + 1
		rep.Pushed += uint64(len(r.seen))
		rep.Popped += r.popped.Load()
		if err != nil {
			klog.ErrorS(err, "Stress round failed", "round", i, "scenario", rep.Scenario)
			rep.Elapsed = time.Since(start)
			return rep, fmt.Errorf("round %d: %w", i, err)
		}
		if u, ok := q.(*msq.Unbounded[int]); ok {
			u.Quiesce()
			rep.Stats = u.Stats()
		}
		klog.V(2).InfoS("Stress round passed", "round", i, "popped", r.popped.Load(), "nodes", rep.Stats.Nodes)
	}
	rep.Elapsed = time.Since(start)

	if !rep.Bounded && rep.Stats.Retired != rep.Stats.Reclaimed {
		return rep, fmt.Errorf("%w: %d nodes retired but %d reclaimed after quiesce", ErrViolation, rep.Stats.Retired, rep.Stats.Reclaimed)
	}
	klog.V(1).InfoS("Stress run passed", "scenario", rep.Scenario, "elapsed", rep.Elapsed)
	return rep, nil
}

// tag encodes producer p's i-th value.
func (r *round) tag(p, i int) int {
	return p*r.cfg.Items + i
}

func checksum(v int) uint64 {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	return xxhash.Sum64(b[:])
}

func (r *round) produce(p int) {
	var sum uint64
	for i := range r.cfg.Items {
		v := r.tag(p, i)
		sum += checksum(v)
		r.q.Push(v)
	}
	r.pushSum.Add(sum)
}

func (r *round) consume(n int) {
	last := make([]int, r.cfg.Producers)
	for i := range last {
		last[i] = -1
	}
	var sum uint64
	for range n {
		v := r.q.Pop()
		sum += checksum(v)
		r.popped.Add(1)
		if v < 0 || v >= len(r.seen) {
			r.stray.Add(1)
			continue
		}
		p, seq := v/r.cfg.Items, v%r.cfg.Items
		if seq <= last[p] {
			r.order.Add(1)
		}
		last[p] = seq
		r.seen[v].Add(1)
	}
	r.popSum.Add(sum)
}

func (r *round) run() error {
	perConsumer := len(r.seen) / r.cfg.Consumers

	var wg sync.WaitGroup
	for range r.cfg.Consumers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.consume(perConsumer)
		}()
	}
	for p := range r.cfg.Producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.produce(p)
		}()
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(r.cfg.Timeout):
		return fmt.Errorf("%w after %v: popped %d of %d", ErrTimeout, r.cfg.Timeout, r.popped.Load(), len(r.seen))
	}
	return r.verify()
}

// verify checks conservation, no loss, no duplication, per-producer FIFO
// and emptiness after the round has joined.
func (r *round) verify() error {
	if n := r.stray.Load(); n > 0 {
		return fmt.Errorf("%w: %d values popped that were never pushed", ErrViolation, n)
	}
	if n := r.order.Load(); n > 0 {
		return fmt.Errorf("%w: per-producer FIFO broken %d times", ErrViolation, n)
	}
	var missing, duplicated int
	for i := range r.seen {
		switch c := r.seen[i].Load(); {
		case c == 0:
			missing++
		case c > 1:
			duplicated++
		}
	}
	if missing > 0 || duplicated > 0 {
		return fmt.Errorf("%w: %d values lost, %d duplicated", ErrViolation, missing, duplicated)
	}
	if push, pop := r.pushSum.Load(), r.popSum.Load(); push != pop {
		return fmt.Errorf("%w: checksum mismatch: pushed %016x popped %016x", ErrViolation, push, pop)
	}
	if !r.q.IsEmpty() {
		return fmt.Errorf("%w: queue not empty after a balanced round", ErrViolation)
	}
	return nil
}
