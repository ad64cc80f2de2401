// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package msq

import (
	"fmt"
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// Reclamation selects the scheme that decides when a node removed from
// the queue may be returned to the arena and reused.
//
// Go's garbage collector keeps node memory alive, but slots are recycled
// through a free list: a slot reused while another goroutine still holds
// a snapshot of it would let that goroutine read or CAS against an
// unrelated node. Both schemes guarantee a retired slot is freed only
// after no goroutine can hold a live reference to it.
type Reclamation uint8

const (
	// ReclaimEpoch uses epoch-based reclamation.
	//
	// Operations announce the global epoch they run in. A retired node is
	// freed once the global epoch has advanced twice past its retirement,
	// which requires every in-flight operation to have finished.
	// Cheapest per operation; one stalled operation delays all frees.
	ReclaimEpoch Reclamation = iota

	// ReclaimHazard uses hazard pointers.
	//
	// Operations publish the nodes they are about to dereference. A retired
	// node is freed when a scan of all published hazards does not find it.
	// Bounded garbage regardless of stalled goroutines; one store plus a
	// validating load per protected reference.
	ReclaimHazard
)

// String returns "epoch" or "hazard".
func (r Reclamation) String() string {
	switch r {
	case ReclaimEpoch:
		return "epoch"
	case ReclaimHazard:
		return "hazard"
	default:
		return fmt.Sprintf("Reclamation(%d)", uint8(r))
	}
}

// ParseReclamation parses the names produced by [Reclamation.String].
func ParseReclamation(s string) (Reclamation, error) {
	switch s {
	case "epoch", "ebr":
		return ReclaimEpoch, nil
	case "hazard", "hp":
		return ReclaimHazard, nil
	}
	return 0, fmt.Errorf("msq: unknown reclamation scheme %q", s)
}

// reclaimer is the contract between a queue and its reclamation scheme.
//
// A queue operation runs between pin and unpin. Inside, it protects every
// ref it will dereference and re-validates the location the ref came from
// before trusting it. After unlinking a node it retires the node's ref;
// the reclaimer calls free for it once no participant can reach it.
type reclaimer interface {
	pin() *participant
	protect(p *participant, slot int, r ref)
	retire(p *participant, r ref)
	unpin(p *participant)

	// quiesce frees every retired node that no in-flight operation can
	// reach. With no operation in flight it frees everything.
	quiesce()

	stats() (retired, reclaimed uint64)
}

func newReclaimer(policy Reclamation, free func(ref)) reclaimer {
	switch policy {
	case ReclaimEpoch:
		return newEpochs(free)
	case ReclaimHazard:
		return newHazards(free)
	default:
		panic("msq: unknown reclamation scheme")
	}
}

const hazardSlots = 2

// participant is the per-operation record of a reclamation domain.
//
// Records are acquired for one operation at a time through the owned
// word; all non-atomic fields belong to the current owner. Records are
// never removed from the registry.
type participant struct {
	owned   atomix.Uint64
	local   atomix.Uint64 // Epoch scheme: epoch<<1 | pinned
	hazards [hazardSlots]atomix.Uint64

	bags    [epochBags]bag // Epoch scheme
	since   int            // Epoch scheme: retirements since the last collect
	retired []ref          // Hazard scheme
	scratch []uint32       // Hazard scheme scan buffer

	nretired atomix.Uint64 // Written by the owner only
	nreclaim atomix.Uint64 // Written by the owner only
	next     *participant  // Immutable once published
}

func (p *participant) countRetired(n int) {
	p.nretired.StoreRelaxed(p.nretired.LoadRelaxed() + uint64(n))
}

func (p *participant) countReclaimed(n int) {
	p.nreclaim.StoreRelaxed(p.nreclaim.LoadRelaxed() + uint64(n))
}

// registry is an append-only lock-free list of participant records.
type registry struct {
	head  atomic.Pointer[participant]
	count atomix.Int64
}

// acquire returns a record owned by the caller, reusing an idle record
// when one exists.
func (g *registry) acquire() *participant {
	for p := g.head.Load(); p != nil; p = p.next {
		if p.owned.LoadRelaxed() == 0 && p.owned.CompareAndSwapAcqRel(0, 1) {
			return p
		}
	}

	p := &participant{}
	p.owned.StoreRelaxed(1)
	for {
		head := g.head.Load()
		p.next = head
		if g.head.CompareAndSwap(head, p) {
			g.count.AddAcqRel(1)
			return p
		}
	}
}

// release hands the record back to the registry.
func (g *registry) release(p *participant) {
	p.owned.StoreRelease(0)
}

// tryOwn acquires a specific idle record. Used by quiesce.
func (g *registry) tryOwn(p *participant) bool {
	return p.owned.LoadRelaxed() == 0 && p.owned.CompareAndSwapAcqRel(0, 1)
}

// pending reports whether p holds retired nodes not yet freed. Safe to
// call on records owned by others.
func (p *participant) pending() bool {
	return p.nretired.LoadRelaxed() != p.nreclaim.LoadRelaxed()
}

func (g *registry) stats() (retired, reclaimed uint64) {
	for p := g.head.Load(); p != nil; p = p.next {
		retired += p.nretired.LoadRelaxed()
		reclaimed += p.nreclaim.LoadRelaxed()
	}
	return retired, reclaimed
}
