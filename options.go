// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import "golang.org/x/sys/cpu"

// Options configures queue creation and algorithm selection.
type Options struct {
	// Explicit capacity (selects Bounded)
	bounded  bool
	capacity int

	// Unbounded only
	reclamation Reclamation

	// Blocking behavior
	wait WaitStrategy
}

// Builder creates queues with fluent configuration.
//
// Without Bounded, the builder produces an [Unbounded] queue; capacity is
// never assumed.
//
// Example:
//
//	// Unbounded queue, epoch-based reclamation (default)
//	q := msq.BuildUnbounded[Event](msq.New())
//
//	// Unbounded queue with hazard pointers and sleeping consumers
//	q := msq.BuildUnbounded[*Request](msq.New().HazardPointers().Wait(msq.BackoffWait()))
//
//	// Bounded queue, Push waits at capacity
//	q := msq.BuildBounded[Job](msq.New().Bounded(4096))
type Builder struct {
	opts Options
}

// New creates a queue builder with the defaults: unbounded, epoch-based
// reclamation, SpinYieldWait(64).
func New() *Builder {
	return &Builder{opts: Options{
		reclamation: ReclaimEpoch,
		wait:        SpinYieldWait(defaultSpins),
	}}
}

// Bounded selects the fixed-capacity [Bounded] variant.
//
// Capacity rounds up to the next power of 2.
// Panics if capacity < 2.
func (b *Builder) Bounded(capacity int) *Builder {
	if capacity < 2 {
		panic("msq: capacity must be >= 2")
	}
	b.opts.bounded = true
	b.opts.capacity = capacity
	return b
}

// EpochBased selects epoch-based reclamation. This is the default.
// Ignored by Bounded queues, which never free nodes.
func (b *Builder) EpochBased() *Builder {
	b.opts.reclamation = ReclaimEpoch
	return b
}

// HazardPointers selects hazard-pointer reclamation.
// Ignored by Bounded queues, which never free nodes.
func (b *Builder) HazardPointers() *Builder {
	b.opts.reclamation = ReclaimHazard
	return b
}

// Reclaim selects the reclamation scheme by value.
// Panics on an unknown scheme.
func (b *Builder) Reclaim(r Reclamation) *Builder {
	if r != ReclaimEpoch && r != ReclaimHazard {
		panic("msq: unknown reclamation scheme")
	}
	b.opts.reclamation = r
	return b
}

// Wait sets the strategy blocking calls use between attempts.
func (b *Builder) Wait(s WaitStrategy) *Builder {
	b.opts.wait = s
	return b
}

// Build creates a Queue[T] with automatic algorithm selection.
//
// Algorithm selection:
//
//	Bounded(n) → Bounded (sequence-number ring, n slots)
//	otherwise  → Unbounded (Michael-Scott linked queue)
//
// For type-safe returns with concrete types, use:
//   - BuildUnbounded[T](b) → *Unbounded[T]
//   - BuildBounded[T](b)   → *Bounded[T]
func Build[T any](b *Builder) Queue[T] {
	if b.opts.bounded {
		return newBounded[T](b.opts.capacity, b.opts.wait)
	}
	return newUnbounded[T](b.opts.reclamation, b.opts.wait)
}

// BuildUnbounded creates an Unbounded queue with compile-time type safety.
// Panics if builder is configured with Bounded().
func BuildUnbounded[T any](b *Builder) *Unbounded[T] {
	if b.opts.bounded {
		panic("msq: BuildUnbounded requires no Bounded()")
	}
	return newUnbounded[T](b.opts.reclamation, b.opts.wait)
}

// BuildBounded creates a Bounded queue with compile-time type safety.
// Panics if builder is not configured with Bounded().
func BuildBounded[T any](b *Builder) *Bounded[T] {
	if !b.opts.bounded {
		panic("msq: BuildBounded requires Bounded()")
	}
	return newBounded[T](b.opts.capacity, b.opts.wait)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad = cpu.CacheLinePad

// padShort is padding to fill a 64-byte line after an 8-byte field.
type padShort [64 - 8]byte
