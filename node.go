// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import "code.hybscloud.com/atomix"

// ref is a generation-tagged reference to an arena slot.
//
// Layout: [hi 32 = generation | lo 32 = index+1]
//
// The zero ref is null. The generation changes every time the slot is
// freed, so a ref taken before a slot was recycled never compares equal
// to a ref of the slot's next incarnation.
type ref uint64

const nilRef ref = 0

func makeRef(gen, index uint32) ref {
	return ref(uint64(gen)<<32 | uint64(index+1))
}

func (r ref) index() uint32 { return uint32(r) - 1 }

func (r ref) gen() uint32 { return uint32(r >> 32) }

// Payload states.
const (
	slotEmpty uint64 = iota // sentinel or pooled node
	slotFull                // value present, not yet extracted
	slotTaken               // extracted by the consumer that won the head CAS
)

// node is a linked list cell.
//
// While the node is on the queue, next holds the ref of its successor.
// While the node sits on the arena free list, next holds the free-list link.
type node[T any] struct {
	next    atomix.Uint64
	gen     atomix.Uint64
	payload payload[T]
}

// payload holds at most one value. The state word makes the
// "already extracted" condition observable: take is a CAS full→taken.
type payload[T any] struct {
	state atomix.Uint64
	value T
}

// fill stores v. Called by the producer before the node is published.
func (s *payload[T]) fill(v T) {
	s.value = v
	s.state.StoreRelaxed(slotFull)
}

// take moves the value out of the slot.
// Panics if the value was already taken or never stored.
func (s *payload[T]) take() T {
	if !s.state.CompareAndSwapAcqRel(slotFull, slotTaken) {
		panic("msq: payload extracted twice or never stored")
	}
	v := s.value
	var zero T
	s.value = zero
	return v
}

// reset clears the slot for reuse. Only the reclaimer calls it, after
// no goroutine can reach the node.
func (s *payload[T]) reset() {
	var zero T
	s.value = zero
	s.state.StoreRelaxed(slotEmpty)
}

// claim is the right to take one node's payload.
//
// Only [Unbounded.advanceHead] builds a claim, and only for the node its
// head CAS made the new sentinel. Each CAS succeeds for one caller, so each
// node is claimed at most once. extract consumes the claim; the payload's
// own state CAS remains as a second line against misuse.
type claim[T any] struct {
	n *node[T]
}

// extract returns the claimed node's value. Panics if the claim was
// already used.
func (c *claim[T]) extract() T {
	n := c.n
	if n == nil {
		panic("msq: claim extracted twice")
	}
	c.n = nil
	return n.payload.take()
}
